// File path: internal/agentloop/state.go
package agentloop

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Phase is the loop's current position in its analyze → plan → retrieve →
// observe cycle.
type Phase string

const (
	PhaseAnalyzing  Phase = "analyzing"
	PhasePlanning   Phase = "planning"
	PhaseRetrieving Phase = "retrieving"
	PhaseObserving  Phase = "observing"
	PhaseComplete   Phase = "complete"
	PhaseExhausted  Phase = "exhausted"
)

// Completeness thresholds. Coarse proxies for answer sufficiency, kept as
// tunable policy constants.
const (
	maxIterations         = 3
	chunksForCompleteness = 5
	iterationForSettling  = 2
	contextChunkLimit     = 8
)

// RetrievedChunk is one scored chunk accumulated across iterations.
type RetrievedChunk struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"documentId"`
	Filename   string  `json:"filename"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// AgentState is the loop's accumulator, threaded through the pure step
// functions. Chunks and TriedQueries are append-only.
type AgentState struct {
	Query         string
	Iteration     int
	MaxIterations int
	Phase         Phase
	Chunks        []RetrievedChunk
	TriedQueries  []string
	Observations  []string
	IsComplete    bool
	FinalAnswer   string
}

func NewAgentState(query string) AgentState {
	return AgentState{Query: query, MaxIterations: maxIterations, Phase: PhaseAnalyzing}
}

// Query shapes steer planning and the final answer template.
const (
	ShapeComparison  = "comparison"
	ShapeTemporal    = "temporal"
	ShapeAggregation = "aggregation"
	ShapeMultiPart   = "multi_part"
	ShapeGeneral     = "general"
)

// QueryShape is the analyze step's output: what kind of query this is and
// which entities (quarters, years, named subjects) it spans.
type QueryShape struct {
	Kind     string
	Entities []string
}

var (
	comparisonPattern  = regexp.MustCompile(`(?i)\b(?:compare|versus|vs\.?|difference between|better|worse|both)\b`)
	temporalPattern    = regexp.MustCompile(`(?i)\b(?:trend|over time|since|historical|evolution|month over month|year over year)\b`)
	aggregationPattern = regexp.MustCompile(`(?i)\b(?:total|sum|average|overall|combined|across all)\b`)
	multiPartPattern   = regexp.MustCompile(`(?i)\band\s+(?:also|then|what|how|why)\b`)

	quarterPattern = regexp.MustCompile(`(?i)\bQ[1-4](?:\s*(?:19|20)\d{2})?\b`)
	yearPattern    = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

// AnalyzeQueryShape classifies the query and pulls out the entities a
// comparison or temporal query spans. Pure function.
func AnalyzeQueryShape(query string) QueryShape {
	shape := QueryShape{Kind: ShapeGeneral}
	switch {
	case comparisonPattern.MatchString(query):
		shape.Kind = ShapeComparison
	case temporalPattern.MatchString(query):
		shape.Kind = ShapeTemporal
	case aggregationPattern.MatchString(query):
		shape.Kind = ShapeAggregation
	case multiPartPattern.MatchString(query):
		shape.Kind = ShapeMultiPart
	}
	seen := map[string]struct{}{}
	for _, m := range quarterPattern.FindAllString(query, -1) {
		normalized := strings.ToUpper(strings.Join(strings.Fields(m), " "))
		if _, ok := seen[normalized]; !ok {
			seen[normalized] = struct{}{}
			shape.Entities = append(shape.Entities, normalized)
		}
	}
	for _, m := range yearPattern.FindAllString(query, -1) {
		if strings.Contains(strings.Join(shape.Entities, " "), m) {
			continue
		}
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			shape.Entities = append(shape.Entities, m)
		}
	}
	return shape
}

// PlanNextQuery derives the next search string. The first pass always uses
// the original query; later passes target whichever comparison entity the
// accumulated chunks still lack, otherwise narrow the original. Pure
// function over the state.
func PlanNextQuery(state AgentState, shape QueryShape) string {
	if state.Iteration <= 1 {
		return state.Query
	}
	accumulated := strings.ToLower(chunkText(state.Chunks))
	if shape.Kind == ShapeComparison {
		for _, entity := range shape.Entities {
			if strings.Contains(accumulated, strings.ToLower(entity)) {
				continue
			}
			planned := entity + " " + topicTerms(state.Query, shape)
			if !alreadyTried(state.TriedQueries, planned) {
				return strings.TrimSpace(planned)
			}
		}
	}
	refined := state.Query + " details"
	if alreadyTried(state.TriedQueries, refined) {
		refined = topicTerms(state.Query, shape)
	}
	return strings.TrimSpace(refined)
}

// Observe decides completeness: nothing retrieved is never complete, a
// comparison is incomplete while a side is missing from the accumulated
// text, otherwise the loop settles once it has iterated twice or gathered
// enough chunks. Pure function.
func Observe(state AgentState, shape QueryShape) (bool, string) {
	if len(state.Chunks) == 0 {
		return false, "no chunks retrieved yet"
	}
	if shape.Kind == ShapeComparison {
		accumulated := strings.ToLower(chunkText(state.Chunks))
		for _, entity := range shape.Entities {
			if !strings.Contains(accumulated, strings.ToLower(entity)) {
				return false, fmt.Sprintf("missing coverage for %s", entity)
			}
		}
	}
	if state.Iteration >= iterationForSettling || len(state.Chunks) >= chunksForCompleteness {
		return true, fmt.Sprintf("sufficient coverage after %d iteration(s), %d chunk(s)", state.Iteration, len(state.Chunks))
	}
	return false, "coverage still thin"
}

// DeduplicateAndRank removes duplicate chunk IDs (first occurrence wins)
// and orders by similarity descending.
func DeduplicateAndRank(chunks []RetrievedChunk) []RetrievedChunk {
	seen := make(map[string]struct{}, len(chunks))
	deduped := make([]RetrievedChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if _, ok := seen[chunk.ID]; ok {
			continue
		}
		seen[chunk.ID] = struct{}{}
		deduped = append(deduped, chunk)
	}
	sort.SliceStable(deduped, func(i, j int) bool { return deduped[i].Similarity > deduped[j].Similarity })
	return deduped
}

func chunkText(chunks []RetrievedChunk) string {
	var b strings.Builder
	for _, chunk := range chunks {
		b.WriteString(chunk.Content)
		b.WriteByte(' ')
	}
	return b.String()
}

// topicTerms strips the comparison scaffolding and entities, leaving the
// subject terms to pair with a targeted entity.
func topicTerms(query string, shape QueryShape) string {
	cleaned := comparisonPattern.ReplaceAllString(query, " ")
	cleaned = quarterPattern.ReplaceAllString(cleaned, " ")
	cleaned = yearPattern.ReplaceAllString(cleaned, " ")
	var words []string
	for _, word := range strings.Fields(cleaned) {
		word = strings.Trim(word, `.,!?;:"'`)
		if len(word) < 3 || strings.EqualFold(word, "and") || strings.EqualFold(word, "the") {
			continue
		}
		words = append(words, word)
	}
	return strings.Join(words, " ")
}

func alreadyTried(tried []string, candidate string) bool {
	for _, q := range tried {
		if strings.EqualFold(strings.TrimSpace(q), strings.TrimSpace(candidate)) {
			return true
		}
	}
	return false
}
