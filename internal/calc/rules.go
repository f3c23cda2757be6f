// File path: internal/calc/rules.go
package calc

import "regexp"

// ruleGroup is one entry of the ordered detection table. The first group
// whose patterns or keywords match wins; BaseConfidence reflects how
// unambiguous the trigger patterns are.
type ruleGroup struct {
	Category       Category
	BaseConfidence float64
	Patterns       []*regexp.Regexp
	Keywords       []string
	SubTypes       []subTypeRule
}

// subTypeRule refines a category into a named variant via secondary
// matching.
type subTypeRule struct {
	SubType string
	Pattern *regexp.Regexp
}

// englishRules is the base detection table. Language packs below are merged
// keyword-wise into the same categories, so adding a language never touches
// control flow.
var englishRules = []ruleGroup{
	{
		Category:       CategoryArithmetic,
		BaseConfidence: 0.95,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\d[\d,.]*\s*[\+\-\*/\^]\s*\d`),
			regexp.MustCompile(`(?i)\b(?:sum|add|subtract|multiply|divide)\b.*\d`),
			regexp.MustCompile(`(?i)\bwhat\s+is\s+[\d,.]+\s*(?:plus|minus|times|divided\s+by)\s*[\d,.]+`),
			regexp.MustCompile(`(?i)\bsquare\s+root\s+of\s+[\d,.]+`),
		},
		Keywords: []string{"plus", "minus", "times", "divided by", "square root"},
	},
	{
		Category:       CategoryPercentage,
		BaseConfidence: 0.98,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)[\d,.]+\s*%\s*(?:of|off)\s*[\d,.]+`),
			regexp.MustCompile(`(?i)\bwhat\s+(?:is|was)\s+[\d,.]+\s*(?:%|percent)\s+of\b`),
			regexp.MustCompile(`(?i)\bpercent(?:age)?\s+(?:of|change|increase|decrease)\b`),
			regexp.MustCompile(`(?i)\b(?:increase|decrease|raise|reduce)[d]?\s+.{0,20}\bby\s+[\d,.]+\s*(?:%|percent)`),
		},
		Keywords: []string{"percent", "percentage", "%"},
	},
	{
		Category:       CategoryFinancial,
		BaseConfidence: 0.90,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:irr|npv|pmt|internal\s+rate\s+of\s+return|net\s+present\s+value)\b`),
			regexp.MustCompile(`(?i)\b(?:future|present)\s+value\b`),
			regexp.MustCompile(`(?i)\b(?:loan|mortgage|monthly)\s+payment\b`),
			regexp.MustCompile(`(?i)\b(?:compound\s+)?interest\s+(?:rate|on|of)\b`),
			regexp.MustCompile(`(?i)\bcash\s*flows?\b`),
		},
		Keywords: []string{"irr", "npv", "loan", "mortgage", "interest", "annuity", "discount rate"},
		SubTypes: []subTypeRule{
			{SubType: "irr", Pattern: regexp.MustCompile(`(?i)\b(?:irr|internal\s+rate\s+of\s+return)\b`)},
			{SubType: "npv", Pattern: regexp.MustCompile(`(?i)\b(?:npv|net\s+present\s+value)\b`)},
			{SubType: "pmt", Pattern: regexp.MustCompile(`(?i)\b(?:pmt|loan\s+payment|monthly\s+payment|mortgage)\b`)},
			{SubType: "fv", Pattern: regexp.MustCompile(`(?i)\bfuture\s+value\b|\bfv\b`)},
			{SubType: "pv", Pattern: regexp.MustCompile(`(?i)\bpresent\s+value\b|\bpv\b`)},
		},
	},
	{
		Category:       CategoryStatistics,
		BaseConfidence: 0.90,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:median|mode|variance|standard\s+deviation|stdev|percentile|average|mean)\b`),
		},
		Keywords: []string{"median", "mode", "variance", "standard deviation", "percentile", "average", "mean"},
		SubTypes: []subTypeRule{
			{SubType: "median", Pattern: regexp.MustCompile(`(?i)\bmedian\b`)},
			{SubType: "mode", Pattern: regexp.MustCompile(`(?i)\bmode\b`)},
			{SubType: "variance", Pattern: regexp.MustCompile(`(?i)\bvariance\b`)},
			{SubType: "stdev", Pattern: regexp.MustCompile(`(?i)\bstandard\s+deviation\b|\bstdev\b`)},
			{SubType: "percentile", Pattern: regexp.MustCompile(`(?i)\bpercentile\b`)},
			{SubType: "mean", Pattern: regexp.MustCompile(`(?i)\baverage\b|\bmean\b`)},
		},
	},
	{
		Category:       CategoryConversion,
		BaseConfidence: 0.92,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bconvert\s+[\d,.]+\s*\w+\s+(?:to|into)\s+\w+`),
			regexp.MustCompile(`(?i)\b[\d,.]+\s*(?:km|kilometers?|miles?|meters?|feet|ft|kg|kilograms?|pounds?|lbs?|celsius|fahrenheit|liters?|gallons?|gb|mb)\s+(?:to|in|into)\s+\w+`),
			regexp.MustCompile(`(?i)\bhow\s+many\s+\w+\s+(?:is|are|in)\s+[\d,.]+\s*\w+`),
		},
		Keywords: []string{"convert", "conversion"},
	},
	{
		Category:       CategoryRatio,
		BaseConfidence: 0.85,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bratio\s+(?:of|between)\b`),
			regexp.MustCompile(`(?i)\b[\d,.]+\s*:\s*[\d,.]+\b`),
			regexp.MustCompile(`(?i)\bproportion(?:al)?\b.*\d`),
		},
		Keywords: []string{"ratio", "proportion"},
	},
	{
		Category:       CategoryGrowth,
		BaseConfidence: 0.88,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:cagr|compound\s+annual\s+growth)\b`),
			regexp.MustCompile(`(?i)\bgrowth\s+rate\b`),
			regexp.MustCompile(`(?i)\b(?:grew|grow|growth|increase[d]?)\s+from\s+[\d,.]+\s+to\s+[\d,.]+`),
			regexp.MustCompile(`(?i)\byear[\s-]over[\s-]year\b|\byoy\b`),
		},
		Keywords: []string{"cagr", "growth rate", "grew"},
		SubTypes: []subTypeRule{
			{SubType: "cagr", Pattern: regexp.MustCompile(`(?i)\bcagr\b|\bcompound\s+annual\b`)},
			{SubType: "yoy", Pattern: regexp.MustCompile(`(?i)\byear[\s-]over[\s-]year\b|\byoy\b`)},
			{SubType: "growth_rate", Pattern: regexp.MustCompile(`(?i)\bgrowth\s+rate\b|\bgrew\s+from\b`)},
		},
	},
	{
		Category:       CategoryComplex,
		BaseConfidence: 0.75,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:discount(?:ed)?|after\s+tax|before\s+tax|profit\s+margin|markup|net\s+of)\b.*\d`),
			regexp.MustCompile(`(?i)\bhow\s+much\s+(?:will|would|do)\s+.{0,40}\d.{0,40}\b(?:cost|pay|save|earn)\b`),
		},
		Keywords: []string{"discount", "tax", "profit", "markup"},
		SubTypes: []subTypeRule{
			{SubType: "discount", Pattern: regexp.MustCompile(`(?i)\bdiscount`)},
			{SubType: "tax", Pattern: regexp.MustCompile(`(?i)\btax\b`)},
			{SubType: "profit", Pattern: regexp.MustCompile(`(?i)\bprofit\b|\bmargin\b|\bmarkup\b`)},
		},
	},
	{
		// Numeric fallback: several numbers plus a computing verb, but no
		// stronger pattern above fired.
		Category:       CategoryArithmetic,
		BaseConfidence: 0.70,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:calculate|compute|how\s+much\s+is)\b.*\d`),
		},
		Keywords: []string{"calculate", "compute"},
	},
}

// portugueseRules and spanishRules extend the same categories with
// language-specific triggers; they are merged after the English table so
// ordering semantics stay identical per category.
var portugueseRules = []ruleGroup{
	{
		Category:       CategoryPercentage,
		BaseConfidence: 0.98,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:quanto\s+é|qual\s+é)\s+[\d,.]+\s*(?:%|por\s+cento)\s+de\b`),
			regexp.MustCompile(`(?i)\bporcentagem\b`),
		},
		Keywords: []string{"por cento", "porcentagem"},
	},
	{
		Category:       CategoryArithmetic,
		BaseConfidence: 0.95,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:some|soma|subtraia|multiplique|divida)\b.*\d`),
			regexp.MustCompile(`(?i)\bquanto\s+é\s+[\d,.]+\s*(?:mais|menos|vezes|dividido\s+por)\s*[\d,.]+`),
		},
		Keywords: []string{"mais", "menos", "vezes", "dividido por"},
	},
	{
		Category:       CategoryConversion,
		BaseConfidence: 0.92,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bconverta?\s+[\d,.]+\s*\w+\s+(?:para|em)\s+\w+`),
		},
		Keywords: []string{"converta", "converter"},
	},
}

var spanishRules = []ruleGroup{
	{
		Category:       CategoryPercentage,
		BaseConfidence: 0.98,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:cuánto\s+es|cual\s+es)\s+(?:el\s+)?[\d,.]+\s*(?:%|por\s+ciento)\s+de\b`),
			regexp.MustCompile(`(?i)\bporcentaje\b`),
		},
		Keywords: []string{"por ciento", "porcentaje"},
	},
	{
		Category:       CategoryArithmetic,
		BaseConfidence: 0.95,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:suma|resta|multiplica|divide)\b.*\d`),
			regexp.MustCompile(`(?i)\bcuánto\s+es\s+[\d,.]+\s*(?:más|menos|por|entre)\s*[\d,.]+`),
		},
		Keywords: []string{"más", "menos", "entre"},
	},
	{
		Category:       CategoryConversion,
		BaseConfidence: 0.92,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bconvierte\s+[\d,.]+\s*\w+\s+(?:a|en)\s+\w+`),
		},
		Keywords: []string{"convierte", "convertir"},
	},
}

// detectionRules is the merged, ordered table the detector walks. English
// first preserves the base confidences for the primary language; the
// language packs are appended per category right after their English
// counterpart so category precedence is stable across languages.
var detectionRules = mergeRuleTables(englishRules, portugueseRules, spanishRules)

func mergeRuleTables(base []ruleGroup, packs ...[]ruleGroup) []ruleGroup {
	merged := make([]ruleGroup, 0, len(base))
	for _, group := range base {
		merged = append(merged, group)
		for _, pack := range packs {
			for _, extra := range pack {
				if extra.Category == group.Category && extra.BaseConfidence == group.BaseConfidence {
					merged = append(merged, extra)
				}
			}
		}
	}
	return merged
}
