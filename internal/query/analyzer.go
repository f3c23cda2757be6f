// File path: internal/query/analyzer.go
package query

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/docuchat-ai/docuchat/internal/common"
	"github.com/docuchat-ai/docuchat/internal/rag"
)

// DocumentLister is the document-store contract the analyzer depends on.
type DocumentLister interface {
	DocumentsForUser(ctx context.Context, userID string) ([]rag.Document, error)
}

// Analysis is the routing decision derived from a query before retrieval.
type Analysis struct {
	MentionedDocuments []rag.Document    `json:"mentioned_documents,omitempty"`
	IsMultiDocument    bool              `json:"is_multi_document"`
	MetadataFilters    map[string]string `json:"metadata_filters,omitempty"`
	Strategy           SearchStrategy    `json:"strategy"`
}

// SearchStrategy is the semantic-vs-keyword weighting policy downstream
// search blends scores with. Weights sum to 1; they are a knob, not a hard
// constraint.
type SearchStrategy struct {
	SemanticWeight float64 `json:"semantic_weight"`
	KeywordWeight  float64 `json:"keyword_weight"`
	Reason         string  `json:"reason"`
}

// Analyzer inspects queries against a user's document set.
type Analyzer struct {
	docs DocumentLister
}

func NewAnalyzer(docs DocumentLister) *Analyzer {
	return &Analyzer{docs: docs}
}

var multiDocumentKeywords = []string{
	"compare", "comparison", "versus", " vs ", "both", "all documents",
	"all files", "each document", "across documents", "between the",
	"compare os", "todos os documentos", "ambos", "comparar", "todos los documentos",
}

var conceptualKeywords = []string{
	"explain", "describe", "why", "how does", "what is the meaning",
	"summarize", "overview", "explique", "descreva", "explica",
}

var entityPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`)

var datePattern = regexp.MustCompile(`(?i)\b(?:19|20)\d{2}\b|\bQ[1-4]\s*(?:19|20)?\d{0,4}\b|\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\b`)

var categoryPattern = regexp.MustCompile(`(?i)\b(?:invoice|report|contract|presentation|spreadsheet|summary|policy|manual)s?\b`)

// knownAliases maps informal document references to filename fragments.
var knownAliases = map[string]string{
	"the handbook":    "handbook",
	"the deck":        "presentation",
	"the spreadsheet": "xlsx",
	"the contract":    "contract",
	"the invoice":     "invoice",
}

// Analyze determines which documents are explicitly mentioned, whether the
// query spans multiple documents, what metadata filters apply, and how to
// weight retrieval.
func (a *Analyzer) Analyze(ctx context.Context, queryText, userID string) (Analysis, error) {
	logger := common.Logger()
	queryText = strings.TrimSpace(queryText)
	analysis := Analysis{MetadataFilters: map[string]string{}}
	if queryText == "" {
		analysis.Strategy = defaultStrategy()
		return analysis, nil
	}

	var docs []rag.Document
	if a.docs != nil && strings.TrimSpace(userID) != "" {
		loaded, err := a.docs.DocumentsForUser(ctx, userID)
		if err != nil {
			// Analysis still proceeds on query shape alone; retrieval is the
			// universal fallback.
			logger.Warn("query: document lookup failed during analysis", "error", err)
		} else {
			docs = loaded
		}
	}

	analysis.MentionedDocuments = DetectMentionedDocuments(queryText, docs)
	analysis.IsMultiDocument = detectMultiDocumentIntent(queryText, len(analysis.MentionedDocuments))
	analysis.MetadataFilters = extractMetadataFilters(queryText)
	analysis.Strategy = chooseStrategy(queryText, analysis)
	logger.Debug("query: analysis complete",
		"mentioned", len(analysis.MentionedDocuments),
		"multi_document", analysis.IsMultiDocument,
		"semantic_weight", analysis.Strategy.SemanticWeight)
	return analysis, nil
}

// DetectMentionedDocuments matches explicit document references by exact
// name, extension-stripped name, partial compound words, and known aliases.
// An empty document set always yields an empty result.
func DetectMentionedDocuments(queryText string, docs []rag.Document) []rag.Document {
	if len(docs) == 0 {
		return nil
	}
	lowerQuery := strings.ToLower(queryText)
	var mentioned []rag.Document
	seen := make(map[string]struct{}, len(docs))
	appendDoc := func(doc rag.Document) {
		if _, ok := seen[doc.ID]; ok {
			return
		}
		seen[doc.ID] = struct{}{}
		mentioned = append(mentioned, doc)
	}
	for _, doc := range docs {
		filename := strings.ToLower(doc.Filename)
		stripped := strings.TrimSuffix(filename, filepath.Ext(filename))
		if filename == "" {
			continue
		}
		if strings.Contains(lowerQuery, filename) || (stripped != "" && strings.Contains(lowerQuery, stripped)) {
			appendDoc(doc)
			continue
		}
		if matchesCompoundWords(lowerQuery, stripped) {
			appendDoc(doc)
		}
	}
	for alias, fragment := range knownAliases {
		if !strings.Contains(lowerQuery, alias) {
			continue
		}
		for _, doc := range docs {
			if strings.Contains(strings.ToLower(doc.Filename), fragment) {
				appendDoc(doc)
			}
		}
	}
	return mentioned
}

// matchesCompoundWords treats separators in a filename as word boundaries
// and requires every significant word to appear in the query, so
// "q3 report" matches "Q3_Financial_Report.pdf" only when all parts do.
func matchesCompoundWords(lowerQuery, strippedName string) bool {
	parts := strings.FieldsFunc(strippedName, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	significant := 0
	for _, part := range parts {
		if len(part) < 3 {
			continue
		}
		significant++
		if !strings.Contains(lowerQuery, part) {
			return false
		}
	}
	return significant > 0
}

func detectMultiDocumentIntent(queryText string, mentionedCount int) bool {
	if mentionedCount > 1 {
		return true
	}
	lower := " " + strings.ToLower(queryText) + " "
	for _, keyword := range multiDocumentKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func extractMetadataFilters(queryText string) map[string]string {
	filters := map[string]string{}
	if m := datePattern.FindString(queryText); m != "" {
		filters["date"] = strings.TrimSpace(m)
	}
	if m := categoryPattern.FindString(queryText); m != "" {
		filters["category"] = strings.ToLower(strings.TrimSpace(m))
	}
	if m := regexp.MustCompile(`(?i)\.(pdf|docx?|xlsx?|pptx?|csv|txt)\b`).FindStringSubmatch(queryText); m != nil {
		filters["file_type"] = strings.ToLower(m[1])
	}
	return filters
}

// chooseStrategy picks the semantic/keyword weight pair from the decision
// table keyed by query shape.
func chooseStrategy(queryText string, analysis Analysis) SearchStrategy {
	lower := strings.ToLower(queryText)
	if len(analysis.MentionedDocuments) > 0 {
		return SearchStrategy{SemanticWeight: 0.5, KeywordWeight: 0.5, Reason: "document-scoped query"}
	}
	for _, keyword := range conceptualKeywords {
		if strings.Contains(lower, keyword) {
			return SearchStrategy{SemanticWeight: 0.8, KeywordWeight: 0.2, Reason: "conceptual query"}
		}
	}
	if entityPattern.MatchString(queryText) {
		return SearchStrategy{SemanticWeight: 0.3, KeywordWeight: 0.7, Reason: "entity or name query"}
	}
	return defaultStrategy()
}

func defaultStrategy() SearchStrategy {
	return SearchStrategy{SemanticWeight: 0.6, KeywordWeight: 0.4, Reason: "default"}
}

// String renders the strategy for logging.
func (s SearchStrategy) String() string {
	return fmt.Sprintf("semantic=%.0f%% keyword=%.0f%% (%s)", s.SemanticWeight*100, s.KeywordWeight*100, s.Reason)
}
