// File path: internal/calc/wordproblem.go
package calc

import (
	"fmt"
	"regexp"
	"strings"
)

// Word problems extract their operands with regexes over free text and then
// dispatch to the arithmetic primitives. Unparseable problems return a typed
// failure, never an exception.

var (
	discountProblem = regexp.MustCompile(`(?i)\$?([\d,.]+).{0,40}?([\d.]+)\s*(?:%|percent)\s*(?:discount|off)|([\d.]+)\s*(?:%|percent)\s*(?:discount|off).{0,40}?\$?([\d,.]+)`)
	taxProblem      = regexp.MustCompile(`(?i)\$?([\d,.]+).{0,40}?([\d.]+)\s*(?:%|percent)\s*(?:sales\s+)?tax|([\d.]+)\s*(?:%|percent)\s*(?:sales\s+)?tax.{0,40}?\$?([\d,.]+)`)
	profitProblem   = regexp.MustCompile(`(?i)(?:bought|cost|purchased).{0,30}?\$?([\d,.]+).{0,60}?(?:sold|sells?|selling).{0,30}?\$?([\d,.]+)`)
	changeProblem   = regexp.MustCompile(`(?i)(?:from|was)\s+\$?([\d,.]+)\s+(?:to|now|is\s+now)\s+\$?([\d,.]+)`)
)

// SolveWordProblem handles the discount/tax/profit/percentage-change shapes.
func (c *Calculator) SolveWordProblem(query, subType string) CalculationResult {
	lower := strings.ToLower(query)
	switch {
	case subType == "discount" || strings.Contains(lower, "discount") || strings.Contains(lower, " off"):
		return c.solveDiscount(query)
	case subType == "tax" || strings.Contains(lower, "tax"):
		return c.solveTax(query)
	case subType == "profit" || strings.Contains(lower, "profit") || strings.Contains(lower, "margin"):
		return c.solveProfit(query)
	case strings.Contains(lower, "change"):
		return c.solvePercentageChange(query)
	}
	// Last resort: a bare expression hiding in prose.
	if result := c.calculateArithmetic(query); result.Success {
		return result
	}
	return failure("word_problem", "could not recognise the word problem shape")
}

func pairFromAlternates(m []string) (float64, float64, error) {
	var baseRaw, pctRaw string
	if m[1] != "" {
		baseRaw, pctRaw = m[1], m[2]
	} else {
		pctRaw, baseRaw = m[3], m[4]
	}
	base, err := ParseNumber(baseRaw)
	if err != nil {
		return 0, 0, err
	}
	pct, err := ParseNumber(pctRaw)
	if err != nil {
		return 0, 0, err
	}
	return base, pct, nil
}

func (c *Calculator) solveDiscount(query string) CalculationResult {
	m := discountProblem.FindStringSubmatch(query)
	if m == nil {
		return failure("word_problem/discount", "could not extract price and discount rate")
	}
	base, pct, err := pairFromAlternates(m)
	if err != nil {
		return failure("word_problem/discount", err.Error())
	}
	discount := base * pct / 100
	value := base - discount
	return CalculationResult{
		Success:   true,
		Result:    value,
		Formatted: FormatNumber(value),
		Method:    "word_problem/discount",
		Steps: []string{
			fmt.Sprintf("Price %s with %s%% discount", FormatNumber(base), FormatNumber(pct)),
			fmt.Sprintf("Discount amount: %s", FormatNumber(discount)),
			fmt.Sprintf("Final price: %s", FormatNumber(value)),
		},
	}
}

func (c *Calculator) solveTax(query string) CalculationResult {
	m := taxProblem.FindStringSubmatch(query)
	if m == nil {
		return failure("word_problem/tax", "could not extract price and tax rate")
	}
	base, pct, err := pairFromAlternates(m)
	if err != nil {
		return failure("word_problem/tax", err.Error())
	}
	tax := base * pct / 100
	value := base + tax
	return CalculationResult{
		Success:   true,
		Result:    value,
		Formatted: FormatNumber(value),
		Method:    "word_problem/tax",
		Steps: []string{
			fmt.Sprintf("Price %s with %s%% tax", FormatNumber(base), FormatNumber(pct)),
			fmt.Sprintf("Tax amount: %s", FormatNumber(tax)),
			fmt.Sprintf("Total: %s", FormatNumber(value)),
		},
	}
}

func (c *Calculator) solveProfit(query string) CalculationResult {
	m := profitProblem.FindStringSubmatch(query)
	if m == nil {
		return failure("word_problem/profit", "could not extract cost and sale price")
	}
	cost, err1 := ParseNumber(m[1])
	sale, err2 := ParseNumber(m[2])
	if err1 != nil || err2 != nil || cost == 0 {
		return failure("word_problem/profit", "could not parse cost and sale price")
	}
	profit := sale - cost
	margin := profit / cost * 100
	return CalculationResult{
		Success:   true,
		Result:    profit,
		Formatted: FormatNumber(profit),
		Method:    "word_problem/profit",
		Steps: []string{
			fmt.Sprintf("Cost %s, sale price %s", FormatNumber(cost), FormatNumber(sale)),
			fmt.Sprintf("Profit: %s", FormatNumber(profit)),
			fmt.Sprintf("Margin on cost: %s%%", FormatNumber(margin)),
		},
	}
}

func (c *Calculator) solvePercentageChange(query string) CalculationResult {
	m := changeProblem.FindStringSubmatch(query)
	if m == nil {
		return failure("word_problem/percentage_change", "could not extract before and after values")
	}
	before, err1 := ParseNumber(m[1])
	after, err2 := ParseNumber(m[2])
	if err1 != nil || err2 != nil || before == 0 {
		return failure("word_problem/percentage_change", "could not parse before and after values")
	}
	value := (after - before) / before * 100
	return CalculationResult{
		Success:   true,
		Result:    value,
		Formatted: FormatNumber(value) + "%",
		Method:    "word_problem/percentage_change",
		Steps: []string{
			fmt.Sprintf("Before %s, after %s", FormatNumber(before), FormatNumber(after)),
			fmt.Sprintf("Change: (%s - %s) / %s × 100 = %s%%", FormatNumber(after), FormatNumber(before), FormatNumber(before), FormatNumber(value)),
		},
	}
}
