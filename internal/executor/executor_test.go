// File path: internal/executor/executor_test.go
package executor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat-ai/docuchat/internal/llm"
	"github.com/docuchat-ai/docuchat/internal/rag"
	"github.com/docuchat-ai/docuchat/internal/search"
)

type fakeSearcher struct {
	results map[string]search.Result
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, queryText, _ string, _ search.Options) (search.Result, error) {
	f.queries = append(f.queries, queryText)
	if f.err != nil {
		return search.Result{}, f.err
	}
	return f.results[queryText], nil
}

type fakeGenerator struct {
	reply string
	err   error
}

func (f *fakeGenerator) Chat(_ context.Context, _ []llm.Message) (string, error) {
	return f.reply, f.err
}

func matchWith(filename string, chunks ...rag.ChunkMatch) rag.DocumentMatch {
	return rag.DocumentMatch{DocumentID: "doc-" + filename, Filename: filename, Confidence: 0.9, MatchedChunks: chunks}
}

func TestExecuteSubQuestionHappyPath(t *testing.T) {
	searcher := &fakeSearcher{results: map[string]search.Result{
		"What was Q3 revenue?": {
			Action: search.ActionShowSingle,
			Matches: []rag.DocumentMatch{
				matchWith("q3_report.pdf", rag.ChunkMatch{ChunkID: "c1", Excerpt: "Q3 revenue was $1.2M.", Relevance: 0.9}),
			},
		},
	}}
	exec := NewExecutor(searcher, &fakeGenerator{reply: "Q3 revenue was $1.2M."})

	result := exec.ExecuteSubQuestion(context.Background(), SubQuestion{Text: "What was Q3 revenue?"}, "user-1")

	assert.Equal(t, "Q3 revenue was $1.2M.", result.Answer)
	assert.Equal(t, []string{"q3_report.pdf"}, result.Sources)
	assert.Equal(t, 1, result.ChunkCount)
}

func TestExecuteSubQuestionSearchFailureDegrades(t *testing.T) {
	exec := NewExecutor(&fakeSearcher{err: errors.New("store down")}, &fakeGenerator{reply: "unused"})

	result := exec.ExecuteSubQuestion(context.Background(), SubQuestion{Text: "anything"}, "user-1")

	assert.Equal(t, noAnswerFallback, result.Answer)
	assert.Zero(t, result.ChunkCount)
}

func TestExecuteSubQuestionGeneratorFailureFallsBackToExcerpts(t *testing.T) {
	searcher := &fakeSearcher{results: map[string]search.Result{
		"budget?": {Matches: []rag.DocumentMatch{
			matchWith("plan.pdf", rag.ChunkMatch{ChunkID: "c1", Excerpt: "Budget is $40k.", Relevance: 0.8}),
		}},
	}}
	exec := NewExecutor(searcher, &fakeGenerator{err: errors.New("llm down")})

	result := exec.ExecuteSubQuestion(context.Background(), SubQuestion{Text: "budget?"}, "user-1")

	assert.Contains(t, result.Answer, "Budget is $40k.")
	assert.Contains(t, result.Answer, "plan.pdf")
}

func TestExecuteAllIsSequentialAndOrdered(t *testing.T) {
	searcher := &fakeSearcher{results: map[string]search.Result{}}
	exec := NewExecutor(searcher, nil)

	subs := []SubQuestion{{Text: "first"}, {Text: "second"}, {Text: "third"}}
	results := exec.ExecuteAll(context.Background(), subs, "user-1")

	require.Len(t, results, 3)
	assert.Equal(t, []string{"first", "second", "third"}, searcher.queries)
	for i, res := range results {
		assert.Equal(t, subs[i].Text, res.Question)
	}
}

func TestExecuteSubQuestionAppliesRerankersInOrder(t *testing.T) {
	searcher := &fakeSearcher{results: map[string]search.Result{
		"how much revenue total?": {Matches: []rag.DocumentMatch{
			matchWith("report.pdf",
				rag.ChunkMatch{ChunkID: "prose", Excerpt: "Revenue commentary without figures here.", Relevance: 0.70},
				rag.ChunkMatch{ChunkID: "table", Excerpt: "Revenue 2024: 1200000, 2025: 1500000, margin 22%", Relevance: 0.68},
			),
		}},
	}}
	exec := NewExecutor(searcher, nil, WithRerankers(ChunkTypeReranker{}))

	result := exec.ExecuteSubQuestion(context.Background(), SubQuestion{Text: "how much revenue total?"}, "user-1")

	// The numeric-dense chunk should be boosted ahead of the prose chunk.
	require.Equal(t, 2, result.ChunkCount)
	assert.True(t, strings.Index(result.Answer, "1200000") < strings.Index(result.Answer, "commentary"))
}

func TestMicroSummaryRerankerBoostsMatchingLead(t *testing.T) {
	chunks := []rag.ChunkMatch{
		{ChunkID: "off", Excerpt: "Holiday schedule details. Revenue mentioned later.", Relevance: 0.70},
		{ChunkID: "on", Excerpt: "Revenue projections for next year. More detail follows.", Relevance: 0.68},
	}

	reranked := MicroSummaryReranker{}.Rerank("revenue projections", chunks)

	assert.Equal(t, "on", reranked[0].ChunkID)
	// Input order untouched.
	assert.Equal(t, "off", chunks[0].ChunkID)
}

func TestAssembleComparisonEmitsTable(t *testing.T) {
	answer := AssembleMultiPartAnswer(IntentComparison, []SubQuestionResult{
		{Question: "Q3 revenue", Answer: "$1.2M", ChunkCount: 2, LatencyMS: 40},
		{Question: "Q4 revenue", Answer: "$1.5M", ChunkCount: 3, LatencyMS: 55},
	})

	assert.Contains(t, answer.Answer, "| Aspect | Finding |")
	assert.Contains(t, answer.Answer, "| Q3 revenue | $1.2M |")
	assert.Contains(t, answer.Answer, "| Q4 revenue | $1.5M |")
	assert.Equal(t, 5, answer.TotalChunks)
	assert.Equal(t, int64(95), answer.TotalLatencyMS)
}

func TestAssembleOverviewSections(t *testing.T) {
	answer := AssembleMultiPartAnswer(IntentOverview, []SubQuestionResult{
		{Question: "Scope", Answer: "Covers 2025."},
		{Question: "Budget", Answer: "$40k."},
	})

	assert.True(t, strings.HasPrefix(answer.Answer, "## Overview"))
	assert.Contains(t, answer.Answer, "### Scope")
	assert.Contains(t, answer.Answer, "### Budget")
}

func TestAssembleUnknownIntentFallsBackToDirect(t *testing.T) {
	answer := AssembleMultiPartAnswer("mystery", []SubQuestionResult{
		{Question: "a", Answer: "first part"},
		{Question: "b", Answer: "second part"},
	})

	assert.Equal(t, IntentDirect, answer.Intent)
	assert.Equal(t, "first part\n\nsecond part", answer.Answer)
}

func TestAssembleReasoningNumbersSteps(t *testing.T) {
	answer := AssembleMultiPartAnswer(IntentReasoning, []SubQuestionResult{
		{Question: "Why did churn rise?", Answer: "Support wait times doubled."},
		{Question: "What follows?", Answer: "Staffing needs review."},
	})

	assert.Contains(t, answer.Answer, "1. **Why did churn rise?**")
	assert.Contains(t, answer.Answer, "2. **What follows?**")
}
