// File path: internal/calc/detector.go
package calc

import (
	"strings"

	"github.com/docuchat-ai/docuchat/internal/rag"
)

// calculationEngineThreshold is the confidence floor below which a query
// falls through to document search. The precision/recall trade-off is
// deliberate: ordinary document questions containing numbers must not be
// hijacked by the calculator.
const calculationEngineThreshold = 0.7

// DetectCalculationType classifies a query against the ordered rule table.
// Pure function, no I/O; the first matching category wins.
func DetectCalculationType(query string) CalculationType {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return CalculationType{Category: CategoryNone, Confidence: 0}
	}
	lower := strings.ToLower(trimmed)
	for _, group := range detectionRules {
		matched := false
		for _, pattern := range group.Patterns {
			if pattern.MatchString(trimmed) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		result := CalculationType{
			Category:   group.Category,
			Confidence: rag.Clamp01(group.BaseConfidence),
		}
		for _, keyword := range group.Keywords {
			if strings.Contains(lower, keyword) {
				result.MatchedKeywords = append(result.MatchedKeywords, keyword)
			}
		}
		for _, sub := range group.SubTypes {
			if sub.Pattern.MatchString(trimmed) {
				result.SubType = sub.SubType
				break
			}
		}
		return result
	}
	return CalculationType{Category: CategoryNone, Confidence: 0}
}

// ShouldUseCalculationEngine reports whether the classification is confident
// enough to short-circuit retrieval and route to the calculator.
func ShouldUseCalculationEngine(ct CalculationType) bool {
	return ct.Category != CategoryNone && ct.Confidence >= calculationEngineThreshold
}
