// File path: internal/calc/calculator.go
package calc

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/docuchat-ai/docuchat/internal/common"
	"github.com/docuchat-ai/docuchat/internal/common/telemetry"
)

// Calculator executes classified calculation queries. Dependencies are
// injected at construction; there is no hidden process-wide instance.
type Calculator struct {
	engine  FormulaEngine
	backend NumericBackend
}

type Option func(*Calculator)

// WithEngine overrides the expression engine.
func WithEngine(engine FormulaEngine) Option {
	return func(c *Calculator) {
		if engine != nil {
			c.engine = engine
		}
	}
}

// WithBackend overrides the financial-function backend.
func WithBackend(backend NumericBackend) Option {
	return func(c *Calculator) {
		if backend != nil {
			c.backend = backend
		}
	}
}

// NewCalculator builds a calculator with the formula-driven backend as the
// default and the native backend available as an explicit alternative.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{engine: NewExprEngine()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.backend == nil {
		c.backend = NewFormulaBackend(c.engine)
	}
	return c
}

// Calculate dispatches a classified query to the matching numeric family.
// Every outcome is a typed result; extraction failures never panic.
func (c *Calculator) Calculate(query string, ct CalculationType) CalculationResult {
	logger := common.Logger()
	logger.Debug("calc: executing calculation", "category", ct.Category, "sub_type", ct.SubType)
	telemetry.RecordCalculation(string(ct.Category))

	var result CalculationResult
	switch ct.Category {
	case CategoryArithmetic:
		result = c.calculateArithmetic(query)
	case CategoryPercentage:
		result = c.calculatePercentage(query)
	case CategoryFinancial:
		result = c.calculateFinancialFromQuery(query, ct.SubType)
	case CategoryStatistics:
		result = c.calculateStatistics(query, ct.SubType)
	case CategoryConversion:
		result = c.calculateConversion(query)
	case CategoryRatio:
		result = c.calculateRatio(query)
	case CategoryGrowth:
		result = c.calculateGrowth(query, ct.SubType)
	case CategoryComplex:
		result = c.SolveWordProblem(query, ct.SubType)
	default:
		result = failure("none", "query is not a recognised calculation")
	}
	if !result.Success {
		logger.Debug("calc: calculation failed", "category", ct.Category, "error", result.Error)
	}
	return result
}

var (
	numberPattern     = regexp.MustCompile(`-?\$?\d[\d,]*(?:\.\d+)?`)
	expressionPattern = regexp.MustCompile(`[\(\-]*\d[\d,]*(?:\.\d+)?(?:\s*[\+\-\*/\^\(\)]+\s*\d[\d,]*(?:\.\d+)?\)?)+`)
	sqrtPattern       = regexp.MustCompile(`(?i)square\s+root\s+of\s+(-?[\d,.]+)`)
	percentOfPattern  = regexp.MustCompile(`(?i)([\d,.]+)\s*(?:%|percent|por\s+cento|por\s+ciento)\s+(?:of|de)\s+\$?([\d,.]+)`)
	percentOffPattern = regexp.MustCompile(`(?i)([\d,.]+)\s*(?:%|percent)\s+off\s+\$?([\d,.]+)`)
	whatPercentage    = regexp.MustCompile(`(?i)what\s+percent(?:age)?\s+(?:of\s+\$?([\d,.]+)\s+is\s+\$?([\d,.]+)|is\s+\$?([\d,.]+)\s+of\s+\$?([\d,.]+))`)
	changeByPercent   = regexp.MustCompile(`(?i)(increase|decrease|raise|reduce)[d]?\s+\$?([\d,.]+)\s+by\s+([\d,.]+)\s*(?:%|percent)`)
	conversionPattern = regexp.MustCompile(`(?i)([\d,.]+)\s*(°?[a-zA-Z]+)\s+(?:to|into|in|para|em|a|en)\s+(°?[a-zA-Z]+)`)
	ratioPattern      = regexp.MustCompile(`(?i)ratio\s+(?:of|between)?\s*\$?([\d,.]+)\s+(?:to|and|:)\s+\$?([\d,.]+)`)
	ratioColon        = regexp.MustCompile(`([\d,.]+)\s*:\s*([\d,.]+)`)
	growthPattern     = regexp.MustCompile(`(?i)from\s+\$?([\d,.]+)\s+to\s+\$?([\d,.]+)`)
	yearsPattern      = regexp.MustCompile(`(?i)(?:over|in|across)\s+(\d+)\s*(?:years?|anos?|años?)`)
	percentValue      = regexp.MustCompile(`([\d.]+)\s*%`)
	periodsPattern    = regexp.MustCompile(`(?i)(\d+)\s*(?:years?|months?|periods?|payments?)`)
)

// ParseNumber strips currency and thousand separators before parsing.
func ParseNumber(raw string) (float64, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", raw, err)
	}
	return value, nil
}

// ExtractNumbers returns every numeric operand in the text, in order.
func ExtractNumbers(text string) []float64 {
	matches := numberPattern.FindAllString(text, -1)
	numbers := make([]float64, 0, len(matches))
	for _, m := range matches {
		if value, err := ParseNumber(m); err == nil {
			numbers = append(numbers, value)
		}
	}
	return numbers
}

// FormatNumber renders a result with at most two decimal places, trimming
// trailing zeros so integers display plainly.
func FormatNumber(value float64) string {
	if value == math.Trunc(value) && math.Abs(value) < 1e15 {
		return strconv.FormatFloat(value, 'f', 0, 64)
	}
	formatted := strconv.FormatFloat(value, 'f', 2, 64)
	formatted = strings.TrimRight(formatted, "0")
	return strings.TrimRight(formatted, ".")
}

func (c *Calculator) calculateArithmetic(query string) CalculationResult {
	if m := sqrtPattern.FindStringSubmatch(query); m != nil {
		operand, err := ParseNumber(m[1])
		if err != nil {
			return failure("arithmetic", err.Error())
		}
		if operand < 0 {
			return failure("arithmetic", "square root of a negative number is undefined")
		}
		value := math.Sqrt(operand)
		return CalculationResult{
			Success:   true,
			Result:    value,
			Formatted: FormatNumber(value),
			Method:    "arithmetic",
			Steps: []string{
				fmt.Sprintf("Input: square root of %s", FormatNumber(operand)),
				fmt.Sprintf("sqrt(%s) = %s", FormatNumber(operand), FormatNumber(value)),
			},
		}
	}

	expression := expressionPattern.FindString(query)
	if expression == "" {
		expression = wordsToExpression(query)
	}
	if expression == "" {
		return failure("arithmetic", "no arithmetic expression found in query")
	}
	cleaned := strings.ReplaceAll(expression, ",", "")
	value, err := c.engine.Evaluate(cleaned, nil)
	if err != nil {
		return failure("arithmetic", err.Error())
	}
	return CalculationResult{
		Success:   true,
		Result:    value,
		Formatted: FormatNumber(value),
		Method:    "arithmetic/" + c.engine.Name(),
		Steps: []string{
			fmt.Sprintf("Expression: %s", cleaned),
			fmt.Sprintf("%s = %s", cleaned, FormatNumber(value)),
		},
	}
}

var wordOperators = []struct {
	word string
	op   string
}{
	{"divided by", "/"}, {"dividido por", "/"}, {"entre", "/"},
	{"plus", "+"}, {"mais", "+"}, {"más", "+"},
	{"minus", "-"}, {"menos", "-"},
	{"times", "*"}, {"vezes", "*"}, {"multiplied by", "*"},
}

// wordsToExpression rewrites spelled operators so "12 plus 5" evaluates.
func wordsToExpression(query string) string {
	lower := strings.ToLower(query)
	for _, entry := range wordOperators {
		lower = strings.ReplaceAll(lower, entry.word, entry.op)
	}
	return expressionPattern.FindString(lower)
}

func (c *Calculator) calculatePercentage(query string) CalculationResult {
	if m := percentOfPattern.FindStringSubmatch(query); m != nil {
		percent, err1 := ParseNumber(m[1])
		base, err2 := ParseNumber(m[2])
		if err1 != nil || err2 != nil {
			return failure("percentage", "could not parse percentage operands")
		}
		value := base * percent / 100
		return CalculationResult{
			Success:   true,
			Result:    value,
			Formatted: FormatNumber(value),
			Method:    "percentage",
			Steps: []string{
				fmt.Sprintf("Inputs: %s%% of %s", FormatNumber(percent), FormatNumber(base)),
				fmt.Sprintf("%s × %s / 100 = %s", FormatNumber(base), FormatNumber(percent), FormatNumber(value)),
			},
		}
	}
	if m := percentOffPattern.FindStringSubmatch(query); m != nil {
		percent, err1 := ParseNumber(m[1])
		base, err2 := ParseNumber(m[2])
		if err1 != nil || err2 != nil {
			return failure("percentage", "could not parse percentage operands")
		}
		discount := base * percent / 100
		value := base - discount
		return CalculationResult{
			Success:   true,
			Result:    value,
			Formatted: FormatNumber(value),
			Method:    "percentage",
			Steps: []string{
				fmt.Sprintf("Discount: %s%% of %s = %s", FormatNumber(percent), FormatNumber(base), FormatNumber(discount)),
				fmt.Sprintf("%s - %s = %s", FormatNumber(base), FormatNumber(discount), FormatNumber(value)),
			},
		}
	}
	if m := whatPercentage.FindStringSubmatch(query); m != nil {
		var baseRaw, partRaw string
		if m[1] != "" {
			baseRaw, partRaw = m[1], m[2]
		} else {
			partRaw, baseRaw = m[3], m[4]
		}
		base, err1 := ParseNumber(baseRaw)
		part, err2 := ParseNumber(partRaw)
		if err1 != nil || err2 != nil || base == 0 {
			return failure("percentage", "could not parse percentage operands")
		}
		value := part / base * 100
		return CalculationResult{
			Success:   true,
			Result:    value,
			Formatted: FormatNumber(value) + "%",
			Method:    "percentage",
			Steps: []string{
				fmt.Sprintf("Inputs: part %s, whole %s", FormatNumber(part), FormatNumber(base)),
				fmt.Sprintf("%s / %s × 100 = %s%%", FormatNumber(part), FormatNumber(base), FormatNumber(value)),
			},
		}
	}
	if m := changeByPercent.FindStringSubmatch(query); m != nil {
		direction := strings.ToLower(m[1])
		base, err1 := ParseNumber(m[2])
		percent, err2 := ParseNumber(m[3])
		if err1 != nil || err2 != nil {
			return failure("percentage", "could not parse percentage operands")
		}
		delta := base * percent / 100
		value := base + delta
		sign := "+"
		if direction == "decrease" || direction == "reduce" {
			value = base - delta
			sign = "-"
		}
		return CalculationResult{
			Success:   true,
			Result:    value,
			Formatted: FormatNumber(value),
			Method:    "percentage",
			Steps: []string{
				fmt.Sprintf("Change: %s%% of %s = %s", FormatNumber(percent), FormatNumber(base), FormatNumber(delta)),
				fmt.Sprintf("%s %s %s = %s", FormatNumber(base), sign, FormatNumber(delta), FormatNumber(value)),
			},
		}
	}
	return failure("percentage", "could not extract percentage operands from query")
}

// FinancialInputs carries the extracted operands for the spreadsheet-style
// financial functions.
type FinancialInputs struct {
	Rate      float64
	Periods   int
	Principal float64
	Payment   float64
	CashFlows []float64
}

// CalculateFinancial executes one named financial function through the
// configured backend. Unknown names are a typed failure.
func (c *Calculator) CalculateFinancial(name string, inputs FinancialInputs) CalculationResult {
	method := "financial/" + c.backend.Name()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "irr":
		rate, err := c.backend.IRR(inputs.CashFlows)
		if err != nil {
			return failure(method, err.Error())
		}
		return CalculationResult{
			Success:   true,
			Result:    rate,
			Formatted: FormatNumber(rate*100) + "%",
			Method:    method,
			Steps: []string{
				fmt.Sprintf("Cash flows: %s", formatSeries(inputs.CashFlows)),
				"Solved NPV(rate) = 0 with Newton-Raphson",
				fmt.Sprintf("IRR = %s%%", FormatNumber(rate*100)),
			},
		}
	case "npv":
		value, err := c.backend.NPV(inputs.Rate, inputs.CashFlows)
		if err != nil {
			return failure(method, err.Error())
		}
		return CalculationResult{
			Success:   true,
			Result:    value,
			Formatted: FormatNumber(value),
			Method:    method,
			Steps: []string{
				fmt.Sprintf("Discount rate: %s%%", FormatNumber(inputs.Rate*100)),
				fmt.Sprintf("Cash flows: %s", formatSeries(inputs.CashFlows)),
				fmt.Sprintf("NPV = Σ cf_t / (1+r)^t = %s", FormatNumber(value)),
			},
		}
	case "pmt":
		value, err := c.backend.PMT(inputs.Rate, inputs.Periods, inputs.Principal)
		if err != nil {
			return failure(method, err.Error())
		}
		return CalculationResult{
			Success:   true,
			Result:    value,
			Formatted: FormatNumber(value),
			Method:    method,
			Steps: []string{
				fmt.Sprintf("Principal %s at %s%% over %d periods", FormatNumber(inputs.Principal), FormatNumber(inputs.Rate*100), inputs.Periods),
				fmt.Sprintf("PMT = P·r / (1 - (1+r)^-n) = %s", FormatNumber(value)),
			},
		}
	case "fv":
		value, err := c.backend.FV(inputs.Rate, inputs.Periods, inputs.Payment, inputs.Principal)
		if err != nil {
			return failure(method, err.Error())
		}
		return CalculationResult{
			Success:   true,
			Result:    value,
			Formatted: FormatNumber(value),
			Method:    method,
			Steps: []string{
				fmt.Sprintf("Principal %s, payment %s, rate %s%%, periods %d", FormatNumber(inputs.Principal), FormatNumber(inputs.Payment), FormatNumber(inputs.Rate*100), inputs.Periods),
				fmt.Sprintf("FV = %s", FormatNumber(value)),
			},
		}
	case "pv":
		value, err := c.backend.PV(inputs.Rate, inputs.Periods, inputs.Payment)
		if err != nil {
			return failure(method, err.Error())
		}
		return CalculationResult{
			Success:   true,
			Result:    value,
			Formatted: FormatNumber(value),
			Method:    method,
			Steps: []string{
				fmt.Sprintf("Payment %s, rate %s%%, periods %d", FormatNumber(inputs.Payment), FormatNumber(inputs.Rate*100), inputs.Periods),
				fmt.Sprintf("PV = %s", FormatNumber(value)),
			},
		}
	default:
		return failure("financial", fmt.Sprintf("unknown financial function %q", name))
	}
}

func (c *Calculator) calculateFinancialFromQuery(query, subType string) CalculationResult {
	numbers := ExtractNumbers(query)
	rate := extractRate(query)
	periods := extractPeriods(query)
	switch subType {
	case "irr":
		return c.CalculateFinancial("irr", FinancialInputs{CashFlows: numbers})
	case "npv":
		// Strip the percentage token before scanning for flows so the rate's
		// digits never enter the series and a flow numerically equal to the
		// rate survives.
		flows := ExtractNumbers(percentValue.ReplaceAllString(query, " "))
		return c.CalculateFinancial("npv", FinancialInputs{Rate: rate, CashFlows: flows})
	case "pmt":
		principal := largest(numbers)
		if principal == 0 {
			return failure("financial", "could not extract loan principal from query")
		}
		monthly := rate / 12
		n := periods * 12
		if n == 0 {
			return failure("financial", "could not extract loan term from query")
		}
		return c.CalculateFinancial("pmt", FinancialInputs{Rate: monthly, Periods: n, Principal: principal})
	case "fv":
		return c.CalculateFinancial("fv", FinancialInputs{Rate: rate, Periods: periods, Principal: largest(numbers)})
	case "pv":
		return c.CalculateFinancial("pv", FinancialInputs{Rate: rate, Periods: periods, Payment: largest(numbers)})
	default:
		return failure("financial", "could not determine which financial function applies")
	}
}

func (c *Calculator) calculateStatistics(query, subType string) CalculationResult {
	numbers := ExtractNumbers(query)
	method := "statistics"
	var (
		value float64
		err   error
		label string
	)
	switch subType {
	case "median":
		value, err = Median(numbers)
		label = "median"
	case "mode":
		value, err = Mode(numbers)
		label = "mode"
	case "variance":
		value, err = Variance(numbers)
		label = "variance"
	case "stdev":
		value, err = StdDev(numbers)
		label = "standard deviation"
	case "percentile":
		if len(numbers) < 2 {
			return failure(method, "percentile requires a rank and at least one value")
		}
		value, err = Percentile(numbers[1:], numbers[0])
		label = fmt.Sprintf("%s percentile", FormatNumber(numbers[0]))
	case "mean", "":
		value, err = Mean(numbers)
		label = "mean"
	default:
		return failure(method, fmt.Sprintf("unknown statistical function %q", subType))
	}
	if err != nil {
		return failure(method, err.Error())
	}
	return CalculationResult{
		Success:   true,
		Result:    value,
		Formatted: FormatNumber(value),
		Method:    method,
		Steps: []string{
			fmt.Sprintf("Values: %s", formatSeries(numbers)),
			fmt.Sprintf("%s = %s", label, FormatNumber(value)),
		},
	}
}

func (c *Calculator) calculateConversion(query string) CalculationResult {
	m := conversionPattern.FindStringSubmatch(query)
	if m == nil {
		return failure("conversion", "could not extract value and units from query")
	}
	value, err := ParseNumber(m[1])
	if err != nil {
		return failure("conversion", err.Error())
	}
	converted, err := ConvertUnits(value, m[2], m[3])
	if err != nil {
		return failure("conversion", err.Error())
	}
	return CalculationResult{
		Success:   true,
		Result:    converted,
		Formatted: fmt.Sprintf("%s %s", FormatNumber(converted), strings.ToLower(m[3])),
		Method:    "conversion",
		Steps: []string{
			fmt.Sprintf("Input: %s %s", FormatNumber(value), strings.ToLower(m[2])),
			fmt.Sprintf("%s %s = %s %s", FormatNumber(value), strings.ToLower(m[2]), FormatNumber(converted), strings.ToLower(m[3])),
		},
	}
}

func (c *Calculator) calculateRatio(query string) CalculationResult {
	m := ratioPattern.FindStringSubmatch(query)
	if m == nil {
		m = ratioColon.FindStringSubmatch(query)
	}
	if m == nil {
		return failure("ratio", "could not extract ratio operands from query")
	}
	a, err1 := ParseNumber(m[1])
	b, err2 := ParseNumber(m[2])
	if err1 != nil || err2 != nil || b == 0 {
		return failure("ratio", "could not parse ratio operands")
	}
	value := a / b
	formatted := fmt.Sprintf("%s:%s", FormatNumber(a), FormatNumber(b))
	if a == math.Trunc(a) && b == math.Trunc(b) {
		divisor := gcd(int64(math.Abs(a)), int64(math.Abs(b)))
		if divisor > 1 {
			formatted = fmt.Sprintf("%d:%d", int64(a)/divisor, int64(b)/divisor)
		}
	}
	return CalculationResult{
		Success:   true,
		Result:    value,
		Formatted: formatted,
		Method:    "ratio",
		Steps: []string{
			fmt.Sprintf("Inputs: %s and %s", FormatNumber(a), FormatNumber(b)),
			fmt.Sprintf("Simplified ratio: %s (%s as a quotient)", formatted, FormatNumber(value)),
		},
	}
}

func (c *Calculator) calculateGrowth(query, subType string) CalculationResult {
	m := growthPattern.FindStringSubmatch(query)
	if m == nil {
		return failure("growth", "could not extract start and end values from query")
	}
	start, err1 := ParseNumber(m[1])
	end, err2 := ParseNumber(m[2])
	if err1 != nil || err2 != nil || start == 0 {
		return failure("growth", "could not parse growth operands")
	}
	years := 0
	if ym := yearsPattern.FindStringSubmatch(query); ym != nil {
		years, _ = strconv.Atoi(ym[1])
	}
	if subType == "cagr" || (years > 1 && subType != "yoy") {
		if years <= 0 {
			return failure("growth", "CAGR requires the number of years")
		}
		if start < 0 || end < 0 {
			return failure("growth", "CAGR requires non-negative start and end values")
		}
		value := math.Pow(end/start, 1/float64(years)) - 1
		return CalculationResult{
			Success:   true,
			Result:    value,
			Formatted: FormatNumber(value*100) + "%",
			Method:    "growth/cagr",
			Steps: []string{
				fmt.Sprintf("Inputs: %s to %s over %d years", FormatNumber(start), FormatNumber(end), years),
				fmt.Sprintf("CAGR = (%s/%s)^(1/%d) - 1 = %s%%", FormatNumber(end), FormatNumber(start), years, FormatNumber(value*100)),
			},
		}
	}
	value := (end - start) / start * 100
	return CalculationResult{
		Success:   true,
		Result:    value,
		Formatted: FormatNumber(value) + "%",
		Method:    "growth",
		Steps: []string{
			fmt.Sprintf("Inputs: %s to %s", FormatNumber(start), FormatNumber(end)),
			fmt.Sprintf("Growth = (%s - %s) / %s × 100 = %s%%", FormatNumber(end), FormatNumber(start), FormatNumber(start), FormatNumber(value)),
		},
	}
}

func extractRate(query string) float64 {
	if m := percentValue.FindStringSubmatch(query); m != nil {
		if value, err := ParseNumber(m[1]); err == nil {
			return value / 100
		}
	}
	return 0
}

func extractPeriods(query string) int {
	if m := periodsPattern.FindStringSubmatch(query); m != nil {
		if value, err := strconv.Atoi(m[1]); err == nil {
			return value
		}
	}
	return 0
}

func largest(values []float64) float64 {
	best := 0.0
	for _, v := range values {
		if math.Abs(v) > math.Abs(best) {
			best = v
		}
	}
	return best
}

func formatSeries(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = FormatNumber(v)
	}
	return strings.Join(parts, ", ")
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}
