// File path: internal/continuity/resolver_test.go
package continuity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat-ai/docuchat/internal/rag"
)

type fakeHistory struct {
	turns []rag.Message
	err   error
}

func (f *fakeHistory) RecentMessages(_ context.Context, _ string, _ int) ([]rag.Message, error) {
	return f.turns, f.err
}

func historyWith(contents ...[2]string) *fakeHistory {
	h := &fakeHistory{}
	for _, c := range contents {
		h.turns = append(h.turns, rag.Message{Role: c[0], Content: c[1]})
	}
	return h
}

func TestResolveQueryNoReferringExpressions(t *testing.T) {
	resolver := NewResolver(historyWith([2]string{"user", "Summarize q3_report.pdf"}))

	result := resolver.ResolveQuery(context.Background(), "Compare Q3 and Q4 revenue", "conv-1")

	assert.False(t, result.WasResolved)
	assert.Equal(t, "Compare Q3 and Q4 revenue", result.Resolved)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)
	assert.Empty(t, result.Resolutions)
}

func TestResolveQueryDemonstrative(t *testing.T) {
	resolver := NewResolver(historyWith(
		[2]string{"user", "What does q3_report.pdf say about revenue?"},
		[2]string{"assistant", "Revenue grew 12% according to the report."},
	))

	result := resolver.ResolveQuery(context.Background(), "What else does that document cover?", "conv-1")

	require.True(t, result.WasResolved)
	assert.Contains(t, result.Resolved, "q3_report.pdf")
	assert.NotContains(t, result.Resolved, "that document")
	require.Len(t, result.Resolutions, 1)
	assert.Equal(t, ResolutionDemonstrative, result.Resolutions[0].Type)
	assert.InDelta(t, 0.80, result.Resolutions[0].Confidence, 1e-9)
}

func TestResolveQueryLeadingPronoun(t *testing.T) {
	resolver := NewResolver(historyWith(
		[2]string{"user", `Open "Annual Budget" for me`},
	))

	result := resolver.ResolveQuery(context.Background(), "it mentions headcount, right?", "conv-1")

	require.True(t, result.WasResolved)
	assert.Contains(t, result.Resolved, "Annual Budget")
}

func TestResolveQueryEllipsisPrefixing(t *testing.T) {
	resolver := NewResolver(historyWith(
		[2]string{"user", "What is the budget in marketing_plan.pdf?"},
		[2]string{"assistant", "The budget is $40k."},
	))

	result := resolver.ResolveQuery(context.Background(), "and the deadline?", "conv-1")

	require.True(t, result.WasResolved)
	assert.Contains(t, result.Resolved, "Regarding marketing_plan.pdf:")
	assert.Contains(t, result.Resolved, "and the deadline?")
	require.Len(t, result.Resolutions, 1)
	assert.Equal(t, ResolutionEllipsis, result.Resolutions[0].Type)
}

func TestResolveQueryIdempotent(t *testing.T) {
	resolver := NewResolver(historyWith(
		[2]string{"user", "Tell me about q3_report.pdf"},
	))

	first := resolver.ResolveQuery(context.Background(), "What else does that document cover?", "conv-1")
	require.True(t, first.WasResolved)

	second := resolver.ResolveQuery(context.Background(), first.Resolved, "conv-1")
	assert.False(t, second.WasResolved)
	assert.Equal(t, first.Resolved, second.Resolved)
}

func TestResolveQueryEmptyHistory(t *testing.T) {
	resolver := NewResolver(historyWith())

	result := resolver.ResolveQuery(context.Background(), "what does that document say?", "conv-1")

	assert.False(t, result.WasResolved)
	assert.Equal(t, "what does that document say?", result.Resolved)
}

func TestResolveQueryHistoryFailure(t *testing.T) {
	resolver := NewResolver(&fakeHistory{err: errors.New("db closed")})

	result := resolver.ResolveQuery(context.Background(), "what does that document say?", "conv-1")

	assert.False(t, result.WasResolved)
	assert.Equal(t, "what does that document say?", result.Resolved)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)
}

func TestResolveQueryMeanConfidence(t *testing.T) {
	resolver := NewResolver(historyWith(
		[2]string{"user", "Summarize q3_report.pdf"},
	))

	result := resolver.ResolveQuery(context.Background(), "it says the document covers churn in the file, right?", "conv-1")

	require.True(t, result.WasResolved)
	require.NotEmpty(t, result.Resolutions)
	total := 0.0
	for _, res := range result.Resolutions {
		total += res.Confidence
	}
	assert.InDelta(t, total/float64(len(result.Resolutions)), result.Confidence, 1e-9)
}
