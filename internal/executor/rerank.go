// File path: internal/executor/rerank.go
package executor

import (
	"regexp"
	"sort"
	"strings"

	"github.com/docuchat-ai/docuchat/internal/rag"
)

// Reranker reorders retrieved chunks using a secondary signal. Rerankers
// are applied in the order configured on the executor.
type Reranker interface {
	Name() string
	Rerank(query string, chunks []rag.ChunkMatch) []rag.ChunkMatch
}

// MicroSummaryReranker scores chunks by term overlap between the query and
// the chunk's leading sentence, which acts as a cheap micro-summary of the
// chunk. Overlap nudges relevance; it never zeroes a chunk out.
type MicroSummaryReranker struct{}

func (MicroSummaryReranker) Name() string { return "micro_summary" }

func (MicroSummaryReranker) Rerank(query string, chunks []rag.ChunkMatch) []rag.ChunkMatch {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return chunks
	}
	reranked := make([]rag.ChunkMatch, len(chunks))
	copy(reranked, chunks)
	for i := range reranked {
		summary := strings.ToLower(leadingSentence(reranked[i].Excerpt))
		hits := 0
		for _, term := range terms {
			if strings.Contains(summary, term) {
				hits++
			}
		}
		boost := 0.2 * float64(hits) / float64(len(terms))
		reranked[i].Relevance = rag.Clamp01(reranked[i].Relevance + boost)
	}
	sort.SliceStable(reranked, func(i, j int) bool { return reranked[i].Relevance > reranked[j].Relevance })
	return reranked
}

// ChunkTypeReranker prefers numeric-dense chunks for quantitative questions
// and prose chunks otherwise.
type ChunkTypeReranker struct{}

func (ChunkTypeReranker) Name() string { return "chunk_type" }

var quantitativePattern = regexp.MustCompile(`(?i)\b(?:how (?:much|many)|total|sum|average|percent|revenue|cost|budget|figure|number)\b`)

func (ChunkTypeReranker) Rerank(query string, chunks []rag.ChunkMatch) []rag.ChunkMatch {
	wantsNumbers := quantitativePattern.MatchString(query)
	reranked := make([]rag.ChunkMatch, len(chunks))
	copy(reranked, chunks)
	for i := range reranked {
		numeric := digitDensity(reranked[i].Excerpt) > 0.05
		if numeric == wantsNumbers {
			reranked[i].Relevance = rag.Clamp01(reranked[i].Relevance + 0.1)
		}
	}
	sort.SliceStable(reranked, func(i, j int) bool { return reranked[i].Relevance > reranked[j].Relevance })
	return reranked
}

func leadingSentence(text string) string {
	text = strings.TrimSpace(text)
	for _, stop := range []string{". ", "! ", "? ", "\n"} {
		if idx := strings.Index(text, stop); idx > 0 {
			return text[:idx+1]
		}
	}
	return text
}

func digitDensity(text string) float64 {
	if text == "" {
		return 0
	}
	digits := 0
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return float64(digits) / float64(len(text))
}

func queryTerms(query string) []string {
	var terms []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, `.,!?;:"'()`)
		if len(word) < 4 {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}
