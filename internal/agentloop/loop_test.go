// File path: internal/agentloop/loop_test.go
package agentloop

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat-ai/docuchat/internal/llm"
	"github.com/docuchat-ai/docuchat/internal/vector"
)

// scriptedVectors returns one batch of results per Search call, then
// repeats the last batch (or nothing).
type scriptedVectors struct {
	batches [][]vector.SearchResult
	queries []string
	calls   int
}

func (s *scriptedVectors) Available() bool { return true }

func (s *scriptedVectors) EnsureCollection(context.Context) error { return nil }

func (s *scriptedVectors) UpsertChunks(context.Context, []vector.ChunkPoint) error { return nil }

func (s *scriptedVectors) Search(context.Context, []float32, string, int, float32) ([]vector.SearchResult, error) {
	defer func() { s.calls++ }()
	if s.calls < len(s.batches) {
		return s.batches[s.calls], nil
	}
	return nil, nil
}

type recordingEmbedder struct {
	queries []string
}

func (r *recordingEmbedder) Embed(_ context.Context, input []string) ([][]float32, error) {
	r.queries = append(r.queries, input...)
	return [][]float32{{0.1, 0.2}}, nil
}

type echoGenerator struct{}

func (echoGenerator) Chat(_ context.Context, messages []llm.Message) (string, error) {
	return "generated from: " + messages[len(messages)-1].Content[:20], nil
}

func chunkResult(id, filename, content string, score float32) vector.SearchResult {
	return vector.SearchResult{ID: id, DocumentID: "doc-" + id, Filename: filename, Content: content, Score: score}
}

func TestProcessQueryNeverExceedsIterationCap(t *testing.T) {
	vectors := &scriptedVectors{} // every retrieval comes back empty
	loop := NewLoop(vectors, &recordingEmbedder{}, nil)

	result := loop.ProcessQuery(context.Background(), "compare Q3 and Q4 revenue", "user-1")

	assert.Equal(t, maxIterations, result.Iterations)
	assert.False(t, result.Complete)
	assert.Len(t, result.Queries, maxIterations)
}

func TestProcessQueryComparisonTargetsMissingEntity(t *testing.T) {
	vectors := &scriptedVectors{
		batches: [][]vector.SearchResult{
			{chunkResult("c1", "q3.pdf", "Q3 revenue was $1.2M", 0.9)},
			{chunkResult("c2", "q4.pdf", "Q4 revenue was $1.5M", 0.88)},
		},
	}
	embedder := &recordingEmbedder{}
	loop := NewLoop(vectors, embedder, nil)

	result := loop.ProcessQuery(context.Background(), "Compare Q3 and Q4 revenue", "user-1")

	require.GreaterOrEqual(t, len(embedder.queries), 2)
	assert.Equal(t, "Compare Q3 and Q4 revenue", embedder.queries[0])
	assert.Contains(t, embedder.queries[1], "Q4")
	assert.True(t, result.Complete)
	assert.Equal(t, 2, result.Iterations)
}

func TestProcessQueryCompletesEarlyOnEnoughChunks(t *testing.T) {
	batch := make([]vector.SearchResult, 0, 6)
	for i := 0; i < 6; i++ {
		batch = append(batch, chunkResult(fmt.Sprintf("c%d", i), "report.pdf", fmt.Sprintf("fact %d about churn", i), float32(0.9)-float32(i)*0.05))
	}
	vectors := &scriptedVectors{batches: [][]vector.SearchResult{batch}}
	loop := NewLoop(vectors, &recordingEmbedder{}, nil)

	result := loop.ProcessQuery(context.Background(), "What drove churn last year?", "user-1")

	assert.True(t, result.Complete)
	assert.Equal(t, 1, result.Iterations)
}

func TestProcessQueryDeduplicatesAndCapsContext(t *testing.T) {
	var batch []vector.SearchResult
	for i := 0; i < 12; i++ {
		batch = append(batch, chunkResult(fmt.Sprintf("c%d", i%10), "report.pdf", "repeated fact", float32(0.5)))
	}
	vectors := &scriptedVectors{batches: [][]vector.SearchResult{batch}}
	loop := NewLoop(vectors, &recordingEmbedder{}, nil)

	result := loop.ProcessQuery(context.Background(), "What does the report say?", "user-1")

	assert.LessOrEqual(t, len(result.Context), contextChunkLimit)
	seen := map[string]struct{}{}
	for _, chunk := range result.Context {
		_, dup := seen[chunk.ID]
		assert.False(t, dup, "duplicate chunk %s in context", chunk.ID)
		seen[chunk.ID] = struct{}{}
	}
}

func TestProcessQueryTransparencyNote(t *testing.T) {
	vectors := &scriptedVectors{
		batches: [][]vector.SearchResult{
			nil,
			{chunkResult("c1", "plan.pdf", "The deadline is March 3", 0.8)},
		},
	}
	loop := NewLoop(vectors, &recordingEmbedder{}, nil)

	result := loop.ProcessQuery(context.Background(), "When is the deadline?", "user-1")

	assert.Greater(t, result.Iterations, 1)
	assert.Contains(t, result.Answer, "search passes")
}

func TestProcessQuerySingleIterationHasNoNote(t *testing.T) {
	batch := make([]vector.SearchResult, 0, 5)
	for i := 0; i < 5; i++ {
		batch = append(batch, chunkResult(fmt.Sprintf("c%d", i), "notes.pdf", fmt.Sprintf("note %d", i), 0.7))
	}
	vectors := &scriptedVectors{batches: [][]vector.SearchResult{batch}}
	loop := NewLoop(vectors, &recordingEmbedder{}, nil)

	result := loop.ProcessQuery(context.Background(), "Summarize the notes", "user-1")

	assert.Equal(t, 1, result.Iterations)
	assert.NotContains(t, result.Answer, "search passes")
}

func TestProcessQueryRanksContextBySimilarity(t *testing.T) {
	vectors := &scriptedVectors{
		batches: [][]vector.SearchResult{{
			chunkResult("low", "a.pdf", "weak match", 0.35),
			chunkResult("high", "b.pdf", "strong match", 0.95),
			chunkResult("mid", "c.pdf", "ok match", 0.6),
		}},
	}
	loop := NewLoop(vectors, &recordingEmbedder{}, echoGenerator{})

	result := loop.ProcessQuery(context.Background(), "anything relevant", "user-1")

	require.Len(t, result.Context, 3)
	assert.Equal(t, "high", result.Context[0].ID)
	assert.True(t, strings.HasPrefix(result.Answer, "generated from:"))
}

func TestAnalyzeQueryShape(t *testing.T) {
	tests := []struct {
		query    string
		kind     string
		entities []string
	}{
		{"Compare Q3 and Q4 revenue", ShapeComparison, []string{"Q3", "Q4"}},
		{"Revenue trend since 2023", ShapeTemporal, []string{"2023"}},
		{"Total spend across all departments", ShapeAggregation, nil},
		{"What is the budget and also who approved it", ShapeMultiPart, nil},
		{"Summarize the handbook", ShapeGeneral, nil},
	}
	for _, tc := range tests {
		shape := AnalyzeQueryShape(tc.query)
		assert.Equal(t, tc.kind, shape.Kind, tc.query)
		assert.Equal(t, tc.entities, shape.Entities, tc.query)
	}
}
