// File path: internal/calc/engine.go
package calc

import (
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
)

// FormulaEngine evaluates a numeric expression against an environment of
// named operands. The calculator uses it for free-form arithmetic and for
// the formula-driven numeric backend.
type FormulaEngine interface {
	Name() string
	Evaluate(expression string, env map[string]any) (float64, error)
}

// ExprEngine evaluates expressions with the expr language runtime.
type ExprEngine struct{}

func NewExprEngine() *ExprEngine {
	return &ExprEngine{}
}

func (e *ExprEngine) Name() string { return "expr" }

func (e *ExprEngine) Evaluate(expression string, env map[string]any) (float64, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return 0, fmt.Errorf("empty expression")
	}
	if env == nil {
		env = map[string]any{}
	}
	out, err := expr.Eval(expression, env)
	if err != nil {
		return 0, fmt.Errorf("evaluate %q: %w", expression, err)
	}
	return coerceFloat(out)
}

func coerceFloat(v any) (float64, error) {
	switch value := v.(type) {
	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, fmt.Errorf("expression produced non-finite result")
		}
		return value, nil
	case float32:
		return float64(value), nil
	case int:
		return float64(value), nil
	case int64:
		return float64(value), nil
	case uint64:
		return float64(value), nil
	default:
		return 0, fmt.Errorf("expression produced non-numeric result (%T)", v)
	}
}

// NumericBackend is the strategy contract for the spreadsheet-style
// financial functions. The formula-driven and native implementations are
// interchangeable and agree to within floating-point tolerance; which one
// serves is decided at construction, not probed at runtime.
type NumericBackend interface {
	Name() string
	NPV(rate float64, cashFlows []float64) (float64, error)
	IRR(cashFlows []float64) (float64, error)
	PMT(rate float64, periods int, principal float64) (float64, error)
	FV(rate float64, periods int, payment, principal float64) (float64, error)
	PV(rate float64, periods int, payment float64) (float64, error)
}

// FormulaBackend composes each financial function as a spreadsheet-style
// formula and evaluates it through a FormulaEngine.
type FormulaBackend struct {
	engine FormulaEngine
}

func NewFormulaBackend(engine FormulaEngine) *FormulaBackend {
	if engine == nil {
		engine = NewExprEngine()
	}
	return &FormulaBackend{engine: engine}
}

func (b *FormulaBackend) Name() string { return "formula/" + b.engine.Name() }

func (b *FormulaBackend) NPV(rate float64, cashFlows []float64) (float64, error) {
	if len(cashFlows) == 0 {
		return 0, fmt.Errorf("npv requires at least one cash flow")
	}
	terms := make([]string, 0, len(cashFlows))
	env := map[string]any{"r": rate}
	for i, cf := range cashFlows {
		name := fmt.Sprintf("cf%d", i)
		env[name] = cf
		if i == 0 {
			terms = append(terms, name)
			continue
		}
		terms = append(terms, fmt.Sprintf("%s / (1.0 + r)^%d", name, i))
	}
	return b.engine.Evaluate(strings.Join(terms, " + "), env)
}

func (b *FormulaBackend) IRR(cashFlows []float64) (float64, error) {
	return solveIRR(cashFlows, func(rate float64) (float64, error) {
		return b.NPV(rate, cashFlows)
	})
}

func (b *FormulaBackend) PMT(rate float64, periods int, principal float64) (float64, error) {
	if periods <= 0 {
		return 0, fmt.Errorf("pmt requires a positive number of periods")
	}
	if rate == 0 {
		return b.engine.Evaluate("pv / n", map[string]any{"pv": principal, "n": float64(periods)})
	}
	return b.engine.Evaluate("pv * r / (1.0 - (1.0 + r)^(-n))",
		map[string]any{"pv": principal, "r": rate, "n": float64(periods)})
}

func (b *FormulaBackend) FV(rate float64, periods int, payment, principal float64) (float64, error) {
	if periods < 0 {
		return 0, fmt.Errorf("fv requires a non-negative number of periods")
	}
	if rate == 0 {
		return b.engine.Evaluate("pv + pmt * n",
			map[string]any{"pv": principal, "pmt": payment, "n": float64(periods)})
	}
	return b.engine.Evaluate("pv * (1.0 + r)^n + pmt * (((1.0 + r)^n - 1.0) / r)",
		map[string]any{"pv": principal, "pmt": payment, "r": rate, "n": float64(periods)})
}

func (b *FormulaBackend) PV(rate float64, periods int, payment float64) (float64, error) {
	if periods <= 0 {
		return 0, fmt.Errorf("pv requires a positive number of periods")
	}
	if rate == 0 {
		return b.engine.Evaluate("pmt * n", map[string]any{"pmt": payment, "n": float64(periods)})
	}
	return b.engine.Evaluate("pmt * (1.0 - (1.0 + r)^(-n)) / r",
		map[string]any{"pmt": payment, "r": rate, "n": float64(periods)})
}

// NativeBackend implements the same functions with closed-form arithmetic
// and Newton-Raphson for IRR.
type NativeBackend struct{}

func NewNativeBackend() *NativeBackend { return &NativeBackend{} }

func (b *NativeBackend) Name() string { return "native" }

func (b *NativeBackend) NPV(rate float64, cashFlows []float64) (float64, error) {
	if len(cashFlows) == 0 {
		return 0, fmt.Errorf("npv requires at least one cash flow")
	}
	total := 0.0
	for i, cf := range cashFlows {
		total += cf / math.Pow(1+rate, float64(i))
	}
	return total, nil
}

func (b *NativeBackend) IRR(cashFlows []float64) (float64, error) {
	return solveIRR(cashFlows, func(rate float64) (float64, error) {
		return b.NPV(rate, cashFlows)
	})
}

func (b *NativeBackend) PMT(rate float64, periods int, principal float64) (float64, error) {
	if periods <= 0 {
		return 0, fmt.Errorf("pmt requires a positive number of periods")
	}
	if rate == 0 {
		return principal / float64(periods), nil
	}
	return principal * rate / (1 - math.Pow(1+rate, -float64(periods))), nil
}

func (b *NativeBackend) FV(rate float64, periods int, payment, principal float64) (float64, error) {
	if periods < 0 {
		return 0, fmt.Errorf("fv requires a non-negative number of periods")
	}
	if rate == 0 {
		return principal + payment*float64(periods), nil
	}
	growth := math.Pow(1+rate, float64(periods))
	return principal*growth + payment*((growth-1)/rate), nil
}

func (b *NativeBackend) PV(rate float64, periods int, payment float64) (float64, error) {
	if periods <= 0 {
		return 0, fmt.Errorf("pv requires a positive number of periods")
	}
	if rate == 0 {
		return payment * float64(periods), nil
	}
	return payment * (1 - math.Pow(1+rate, -float64(periods))) / rate, nil
}

const (
	irrMaxIterations = 100
	irrTolerance     = 1e-9
	irrDerivativeEps = 1e-6
)

// solveIRR finds the rate where NPV crosses zero via Newton-Raphson with a
// numeric derivative, falling back to bisection when Newton diverges.
func solveIRR(cashFlows []float64, npv func(rate float64) (float64, error)) (float64, error) {
	if len(cashFlows) < 2 {
		return 0, fmt.Errorf("irr requires at least two cash flows")
	}
	hasNegative, hasPositive := false, false
	for _, cf := range cashFlows {
		if cf < 0 {
			hasNegative = true
		}
		if cf > 0 {
			hasPositive = true
		}
	}
	if !hasNegative || !hasPositive {
		return 0, fmt.Errorf("irr requires at least one positive and one negative cash flow")
	}

	rate := 0.1
	for i := 0; i < irrMaxIterations; i++ {
		value, err := npv(rate)
		if err != nil {
			return 0, err
		}
		if math.Abs(value) < irrTolerance {
			return rate, nil
		}
		upper, err := npv(rate + irrDerivativeEps)
		if err != nil {
			return 0, err
		}
		lower, err := npv(rate - irrDerivativeEps)
		if err != nil {
			return 0, err
		}
		derivative := (upper - lower) / (2 * irrDerivativeEps)
		if derivative == 0 || math.IsNaN(derivative) {
			break
		}
		next := rate - value/derivative
		if math.IsNaN(next) || math.IsInf(next, 0) || next <= -1 {
			break
		}
		if math.Abs(next-rate) < irrTolerance {
			return next, nil
		}
		rate = next
	}
	return bisectIRR(npv)
}

func bisectIRR(npv func(rate float64) (float64, error)) (float64, error) {
	low, high := -0.9999, 10.0
	lowVal, err := npv(low)
	if err != nil {
		return 0, err
	}
	highVal, err := npv(high)
	if err != nil {
		return 0, err
	}
	if lowVal*highVal > 0 {
		return 0, fmt.Errorf("irr did not converge")
	}
	for i := 0; i < 200; i++ {
		mid := (low + high) / 2
		midVal, err := npv(mid)
		if err != nil {
			return 0, err
		}
		if math.Abs(midVal) < irrTolerance || (high-low)/2 < irrTolerance {
			return mid, nil
		}
		if lowVal*midVal < 0 {
			high = mid
		} else {
			low = mid
			lowVal = midVal
		}
	}
	return 0, fmt.Errorf("irr did not converge")
}
