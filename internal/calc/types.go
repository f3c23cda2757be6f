// File path: internal/calc/types.go
package calc

// Category classifies a query against the known calculation families.
type Category string

const (
	CategoryArithmetic Category = "arithmetic"
	CategoryPercentage Category = "percentage"
	CategoryFinancial  Category = "financial"
	CategoryStatistics Category = "statistics"
	CategoryConversion Category = "conversion"
	CategoryRatio      Category = "ratio"
	CategoryGrowth     Category = "growth"
	CategoryComplex    Category = "complex"
	CategoryNone       Category = "none"
)

// CalculationType is the classification produced for a query. It exists only
// long enough to make the routing decision.
type CalculationType struct {
	Category        Category `json:"category"`
	Confidence      float64  `json:"confidence"`
	SubType         string   `json:"sub_type,omitempty"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
}

// CalculationResult is the immutable outcome of executing a calculation.
// Steps carry the human-readable derivation so answers can cite their work.
type CalculationResult struct {
	Success   bool     `json:"success"`
	Result    float64  `json:"result"`
	Formatted string   `json:"formatted"`
	Steps     []string `json:"steps,omitempty"`
	Method    string   `json:"method"`
	Error     string   `json:"error,omitempty"`
}

func failure(method, message string) CalculationResult {
	return CalculationResult{Success: false, Method: method, Error: message}
}
