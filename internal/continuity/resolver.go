// File path: internal/continuity/resolver.go
package continuity

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/docuchat-ai/docuchat/internal/common"
	"github.com/docuchat-ai/docuchat/internal/rag"
)

// HistoryProvider returns the most recent turns of a conversation in
// chronological order.
type HistoryProvider interface {
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]rag.Message, error)
}

// ResolutionType classifies the referring expression that was rewritten.
type ResolutionType string

const (
	ResolutionPronoun         ResolutionType = "pronoun"
	ResolutionDemonstrative   ResolutionType = "demonstrative"
	ResolutionDefiniteArticle ResolutionType = "definite_article"
	ResolutionEllipsis        ResolutionType = "ellipsis"
	ResolutionAnaphora        ResolutionType = "anaphora"
)

// Resolution records one substitution made while rewriting a query.
type Resolution struct {
	Span       string         `json:"span"`
	Referent   string         `json:"referent"`
	Type       ResolutionType `json:"type"`
	Confidence float64        `json:"confidence"`
}

// ResolvedQuery is the rewrite outcome. Confidence is the mean of the
// individual resolution confidences; 1.0 when nothing needed fixing.
type ResolvedQuery struct {
	Original    string       `json:"original"`
	Resolved    string       `json:"resolved"`
	WasResolved bool         `json:"wasResolved"`
	Resolutions []Resolution `json:"resolutions,omitempty"`
	Confidence  float64      `json:"confidence"`
}

const historyWindow = 10

// Base confidences per resolution type. Substitutions guided by an explicit
// document name in history are more trustworthy than topic guesses.
var resolutionConfidence = map[ResolutionType]float64{
	ResolutionPronoun:         0.75,
	ResolutionDemonstrative:   0.80,
	ResolutionDefiniteArticle: 0.70,
	ResolutionEllipsis:        0.85,
	ResolutionAnaphora:        0.70,
}

// referringRule is one detectable referring expression. Rules are grouped
// per language and merged, so a language pack is an extra table.
type referringRule struct {
	Pattern *regexp.Regexp
	Type    ResolutionType
}

var englishReferring = []referringRule{
	{regexp.MustCompile(`(?i)\b(?:this|that|these|those)\s+(?:document|file|report|section|one)\b`), ResolutionDemonstrative},
	{regexp.MustCompile(`(?i)\bthe\s+(?:document|file|section)\b`), ResolutionDefiniteArticle},
	{regexp.MustCompile(`(?i)^(?:it|its|they|them|their)\b|\b(?:in|about|of|from)\s+it\b`), ResolutionPronoun},
	{regexp.MustCompile(`(?i)\bthe\s+same\s+(?:document|file|topic|one)\b`), ResolutionAnaphora},
}

var portugueseReferring = []referringRule{
	{regexp.MustCompile(`(?i)\b(?:este|esse|aquele)\s+(?:documento|arquivo|relatório)\b`), ResolutionDemonstrative},
	{regexp.MustCompile(`(?i)\bo\s+(?:documento|arquivo)\b`), ResolutionDefiniteArticle},
	{regexp.MustCompile(`(?i)^(?:ele|ela|isso|nele|nela)\b`), ResolutionPronoun},
}

var spanishReferring = []referringRule{
	{regexp.MustCompile(`(?i)\b(?:este|ese|aquel)\s+(?:documento|archivo|informe)\b`), ResolutionDemonstrative},
	{regexp.MustCompile(`(?i)\bel\s+(?:documento|archivo)\b`), ResolutionDefiniteArticle},
	{regexp.MustCompile(`(?i)^(?:él|ella|eso|esto)\b`), ResolutionPronoun},
}

var referringRules = mergeReferringTables(englishReferring, portugueseReferring, spanishReferring)

func mergeReferringTables(tables ...[]referringRule) []referringRule {
	var merged []referringRule
	for _, table := range tables {
		merged = append(merged, table...)
	}
	return merged
}

// ellipsisPattern catches continuation fragments like "and the deadline?"
// or "what about Q4?" that carry no referent of their own.
var ellipsisPattern = regexp.MustCompile(`(?i)^(?:and|what about|how about|also|e|y)\s+`)

var (
	filenamePattern    = regexp.MustCompile(`(?i)\b[\w][\w\-]{0,60}\.(?:pdf|docx?|xlsx?|pptx?|csv|txt|md)\b`)
	quotedPattern      = regexp.MustCompile(`"([^"]{2,80})"`)
	titlePhrasePattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z0-9][\w]*)+\b`)
)

// Resolver rewrites referring expressions using recent conversation turns.
type Resolver struct {
	history HistoryProvider
}

func NewResolver(history HistoryProvider) *Resolver {
	return &Resolver{history: history}
}

// ResolveQuery rewrites pronouns, demonstratives, and vague articles into
// explicit referents. Queries with no referring expressions are returned
// unchanged without touching history, which also makes resolution
// idempotent: a resolved query passes the gate untouched.
func (r *Resolver) ResolveQuery(ctx context.Context, queryText, conversationID string) ResolvedQuery {
	unchanged := ResolvedQuery{Original: queryText, Resolved: queryText, Confidence: 1.0}
	matched, isEllipsis := detectReferringExpressions(queryText)
	if len(matched) == 0 && !isEllipsis {
		return unchanged
	}
	if r.history == nil || conversationID == "" {
		return unchanged
	}
	logger := common.Logger()
	turns, err := r.history.RecentMessages(ctx, conversationID, historyWindow)
	if err != nil {
		logger.Warn("continuity: history fetch failed", "error", err)
		return unchanged
	}
	if len(turns) == 0 {
		return unchanged
	}

	referent := bestReferent(turns)
	topic := lastUserTopic(turns)

	resolved := queryText
	var resolutions []Resolution
	if referent != "" {
		for _, rule := range referringRules {
			span := rule.Pattern.FindString(resolved)
			if span == "" {
				continue
			}
			resolved = rule.Pattern.ReplaceAllString(resolved, referent)
			resolutions = append(resolutions, Resolution{
				Span:       span,
				Referent:   referent,
				Type:       rule.Type,
				Confidence: resolutionConfidence[rule.Type],
			})
		}
	}
	if isEllipsis && topic != "" && len(resolutions) == 0 {
		resolved = fmt.Sprintf("Regarding %s: %s", topic, queryText)
		resolutions = append(resolutions, Resolution{
			Span:       queryText,
			Referent:   topic,
			Type:       ResolutionEllipsis,
			Confidence: resolutionConfidence[ResolutionEllipsis],
		})
	}
	if len(resolutions) == 0 {
		return unchanged
	}

	total := 0.0
	for _, res := range resolutions {
		total += res.Confidence
	}
	result := ResolvedQuery{
		Original:    queryText,
		Resolved:    resolved,
		WasResolved: true,
		Resolutions: resolutions,
		Confidence:  rag.Clamp01(total / float64(len(resolutions))),
	}
	logger.Info("continuity: resolved query", "resolutions", len(resolutions), "confidence", result.Confidence)
	return result
}

// detectReferringExpressions is the cheap gate run before any history I/O.
func detectReferringExpressions(queryText string) (matched []ResolutionType, isEllipsis bool) {
	for _, rule := range referringRules {
		if rule.Pattern.MatchString(queryText) {
			matched = append(matched, rule.Type)
		}
	}
	return matched, ellipsisPattern.MatchString(queryText)
}

// bestReferent scans history newest-first for the most concrete candidate:
// an explicit filename beats a quoted title beats a capitalized phrase.
func bestReferent(turns []rag.Message) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if name := filenamePattern.FindString(turns[i].Content); name != "" {
			return strings.TrimSpace(name)
		}
	}
	for i := len(turns) - 1; i >= 0; i-- {
		if m := quotedPattern.FindStringSubmatch(turns[i].Content); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	for i := len(turns) - 1; i >= 0; i-- {
		if phrase := titlePhrasePattern.FindString(turns[i].Content); phrase != "" {
			return strings.TrimSpace(phrase)
		}
	}
	return ""
}

// lastUserTopic reduces the most recent user turn to a short topic phrase
// for ellipsis prefixing.
func lastUserTopic(turns []rag.Message) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role != "user" {
			continue
		}
		if name := filenamePattern.FindString(turns[i].Content); name != "" {
			return name
		}
		if phrase := titlePhrasePattern.FindString(turns[i].Content); phrase != "" {
			return phrase
		}
		words := significantWords(turns[i].Content)
		if len(words) > 4 {
			words = words[:4]
		}
		if len(words) > 0 {
			return strings.Join(words, " ")
		}
	}
	return ""
}

var topicStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "what": {}, "which": {}, "is": {}, "are": {},
	"was": {}, "does": {}, "did": {}, "how": {}, "about": {}, "tell": {}, "me": {},
	"show": {}, "in": {}, "of": {}, "for": {}, "on": {}, "to": {}, "and": {},
}

func significantWords(text string) []string {
	var words []string
	for _, word := range strings.Fields(text) {
		cleaned := strings.Trim(strings.ToLower(word), `.,!?;:"'()`)
		if len(cleaned) < 3 {
			continue
		}
		if _, stop := topicStopwords[cleaned]; stop {
			continue
		}
		words = append(words, strings.Trim(word, `.,!?;:"'()`))
	}
	return words
}
