// File path: internal/search/criteria.go
package search

import (
	"regexp"
	"strings"

	"github.com/docuchat-ai/docuchat/internal/rag"
)

// Criteria extraction decomposes a multi-criteria query into weighted
// constraints. Order inside the set is irrelevant; weights only influence
// ranking.

var (
	timePeriodPattern = regexp.MustCompile(`(?i)\bQ[1-4]\s*(?:19|20)?\d{0,4}\b|\b(?:19|20)\d{2}\b|\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\s*(?:19|20)?\d{0,4}\b`)
	metricPattern     = regexp.MustCompile(`(?i)\b(?:revenue|sales|profit|margin|cost|expense|budget|headcount|growth|decline|income|ebitda|churn)\b`)
	fileTypePattern   = regexp.MustCompile(`(?i)\b(?:pdf|docx?|xlsx?|pptx?|csv|txt|spreadsheet|presentation)\b`)
	quotedPattern     = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)
)

var criteriaStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "in": {}, "on": {}, "for": {},
	"which": {}, "what": {}, "that": {}, "with": {}, "and": {}, "or": {},
	"document": {}, "documents": {}, "file": {}, "files": {}, "mentions": {},
	"mention": {}, "about": {}, "contains": {}, "shows": {}, "show": {},
	"find": {}, "where": {}, "is": {}, "are": {}, "does": {}, "say": {},
	"qual": {}, "onde": {}, "documento": {}, "arquivo": {}, "dónde": {}, "cual": {},
}

// ExtractCriteria pulls the weighted constraint set out of a query.
func ExtractCriteria(queryText string) []rag.SearchCriteria {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return nil
	}
	var criteria []rag.SearchCriteria
	seen := make(map[string]struct{})
	add := func(ctype rag.CriteriaType, value string, weight float64) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		// Dedup by value alone: a quoted "revenue" and the metric pattern
		// both finding revenue must not count as two criteria.
		key := strings.ToLower(value)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		criteria = append(criteria, rag.SearchCriteria{Type: ctype, Value: value, Weight: rag.Clamp01(weight)})
	}

	for _, m := range quotedPattern.FindAllStringSubmatch(queryText, -1) {
		phrase := m[1]
		if phrase == "" {
			phrase = m[2]
		}
		add(rag.CriteriaKeyword, phrase, 1.0)
	}
	for _, m := range timePeriodPattern.FindAllString(queryText, -1) {
		add(rag.CriteriaTimePeriod, m, 0.9)
	}
	for _, m := range metricPattern.FindAllString(queryText, -1) {
		add(rag.CriteriaMetric, strings.ToLower(m), 0.8)
	}
	for _, m := range fileTypePattern.FindAllString(queryText, -1) {
		add(rag.CriteriaFileType, strings.ToLower(m), 0.5)
	}

	// Remaining significant terms become topic criteria.
	cleaned := quotedPattern.ReplaceAllString(queryText, " ")
	cleaned = timePeriodPattern.ReplaceAllString(cleaned, " ")
	cleaned = metricPattern.ReplaceAllString(cleaned, " ")
	for _, word := range strings.Fields(strings.ToLower(cleaned)) {
		word = strings.Trim(word, `.,!?;:"'()`)
		if len(word) < 3 {
			continue
		}
		if _, stop := criteriaStopwords[word]; stop {
			continue
		}
		add(rag.CriteriaTopic, word, 0.6)
	}
	return criteria
}

var conjunctionMarkers = []string{" and ", " as well as ", " plus ", " e ", " y "}
var disjunctionMarkers = []string{" or ", " either ", " ou ", " o "}

// IsConjunctive reports whether the query demands every criterion (AND) as
// opposed to any of them (OR). Wording decides; AND wins ties because a
// query naming several constraints usually wants all of them.
func IsConjunctive(queryText string) bool {
	lower := " " + strings.ToLower(queryText) + " "
	for _, marker := range disjunctionMarkers {
		if strings.Contains(lower, marker) {
			for _, conj := range conjunctionMarkers {
				if strings.Contains(lower, conj) {
					return true
				}
			}
			return false
		}
	}
	return true
}

// searchTriggerPhrases are the multilingual lead-ins stripped when reducing
// a document-search query to its topic. Grouped per language and merged so
// packs stay independently editable.
var searchTriggerPhrases = mergeTriggerTables(
	[]string{
		"which document mentions", "which document contains", "which file mentions",
		"find the document", "find a document", "find document", "where is the document",
		"where is", "look for", "search for", "show me the document", "show me",
	},
	[]string{
		"qual documento menciona", "qual documento contém", "onde está o documento",
		"onde está", "encontre o documento", "procure por", "me mostre",
	},
	[]string{
		"qué documento menciona", "cuál documento contiene", "dónde está el documento",
		"dónde está", "encuentra el documento", "busca", "muéstrame",
	},
)

func mergeTriggerTables(tables ...[]string) []string {
	var merged []string
	for _, table := range tables {
		merged = append(merged, table...)
	}
	return merged
}

// ExtractSearchTopic strips search-trigger lead-ins, leaving the topic to
// match against. Queries with no trigger phrases are returned unchanged, so
// the function is idempotent on clean input.
func ExtractSearchTopic(queryText string) string {
	trimmed := strings.TrimSpace(queryText)
	lower := strings.ToLower(trimmed)
	for _, phrase := range searchTriggerPhrases {
		idx := strings.Index(lower, phrase)
		if idx < 0 {
			continue
		}
		topic := trimmed[:idx] + trimmed[idx+len(phrase):]
		topic = strings.Trim(strings.TrimSpace(topic), "?!.")
		if topic != "" {
			return topic
		}
	}
	return trimmed
}
