// File path: internal/search/search_test.go
package search

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat-ai/docuchat/internal/query"
	"github.com/docuchat-ai/docuchat/internal/rag"
	"github.com/docuchat-ai/docuchat/internal/vector"
)

type fakeStore struct {
	docs   []rag.Document
	chunks []rag.Chunk
}

func (f *fakeStore) DocumentsForUser(_ context.Context, _ string) ([]rag.Document, error) {
	return f.docs, nil
}

func (f *fakeStore) SearchChunks(_ context.Context, _ string, term string, _ int) ([]rag.Chunk, error) {
	var out []rag.Chunk
	for _, chunk := range f.chunks {
		if strings.Contains(strings.ToLower(chunk.Content), strings.ToLower(term)) {
			out = append(out, chunk)
		}
	}
	return out, nil
}

type fakeVectors struct {
	available bool
	results   []vector.SearchResult
}

func (f *fakeVectors) Available() bool { return f.available }

func (f *fakeVectors) EnsureCollection(context.Context) error { return nil }

func (f *fakeVectors) UpsertChunks(context.Context, []vector.ChunkPoint) error { return nil }

func (f *fakeVectors) Search(context.Context, []float32, string, int, float32) ([]vector.SearchResult, error) {
	return f.results, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, input []string) ([][]float32, error) {
	out := make([][]float32, len(input))
	for i := range input {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func TestSearchSingleConfidentMatch(t *testing.T) {
	store := &fakeStore{
		docs: []rag.Document{
			{ID: "doc-1", Filename: "q2_2025_sales_report.pdf"},
			{ID: "doc-2", Filename: "handbook.pdf"},
		},
		chunks: []rag.Chunk{
			{ID: "c-1", DocumentID: "doc-1", Content: "Revenue decline of 12% in Q2 2025 versus Q1."},
			{ID: "c-2", DocumentID: "doc-2", Content: "Vacation policy and onboarding."},
		},
	}
	vectors := &fakeVectors{
		available: true,
		results: []vector.SearchResult{
			{ID: "c-1", DocumentID: "doc-1", Filename: "q2_2025_sales_report.pdf", Content: "Revenue decline of 12% in Q2 2025 versus Q1.", Score: 0.89},
		},
	}
	searcher := NewSearcher(store, vectors, fakeEmbedder{})

	result, err := searcher.Search(context.Background(), "Which document mentions the Q2 2025 revenue decline?", "user-1", Options{
		Strategy: query.SearchStrategy{SemanticWeight: 0.6, KeywordWeight: 0.4},
	})
	require.NoError(t, err)

	assert.Equal(t, ActionShowSingle, result.Action)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "doc-1", result.Matches[0].DocumentID)
	assert.GreaterOrEqual(t, result.Matches[0].Confidence, 0.85)
	assert.Contains(t, result.Message, "q2_2025_sales_report.pdf")
}

func TestSearchNotFound(t *testing.T) {
	searcher := NewSearcher(&fakeStore{}, &fakeVectors{available: true}, fakeEmbedder{})

	result, err := searcher.Search(context.Background(), "find the quarterly budget", "user-1", Options{})
	require.NoError(t, err)

	assert.Equal(t, ActionNotFound, result.Action)
	assert.Empty(t, result.Matches)
	assert.NotEmpty(t, result.Message)
}

func TestSearchMultipleMatches(t *testing.T) {
	store := &fakeStore{
		docs: []rag.Document{
			{ID: "doc-1", Filename: "invoice_jan.pdf"},
			{ID: "doc-2", Filename: "invoice_feb.pdf"},
			{ID: "doc-3", Filename: "invoice_mar.pdf"},
		},
		chunks: []rag.Chunk{
			{ID: "c-1", DocumentID: "doc-1", Content: "Invoice total for January services."},
			{ID: "c-2", DocumentID: "doc-2", Content: "Invoice total for February services."},
			{ID: "c-3", DocumentID: "doc-3", Content: "Invoice total for March services."},
		},
	}
	searcher := NewSearcher(store, &fakeVectors{}, fakeEmbedder{})

	result, err := searcher.Search(context.Background(), "find documents about invoice totals", "user-1", Options{})
	require.NoError(t, err)

	assert.Equal(t, ActionShowMultiple, result.Action)
	assert.True(t, len(result.Matches) >= 2)
	assert.LessOrEqual(t, len(result.Matches), maxPresentedMatches)
}

func TestSearchConjunctivePartialCaveat(t *testing.T) {
	store := &fakeStore{
		docs: []rag.Document{{ID: "doc-1", Filename: "report.pdf"}, {ID: "doc-2", Filename: "notes.pdf"}},
		chunks: []rag.Chunk{
			{ID: "c-1", DocumentID: "doc-1", Content: "Revenue figures for the year."},
			{ID: "c-2", DocumentID: "doc-2", Content: "Churn analysis for the year."},
		},
	}
	searcher := NewSearcher(store, &fakeVectors{}, fakeEmbedder{})

	result, err := searcher.Search(context.Background(), `find documents with "revenue" and "churn"`, "user-1", Options{})
	require.NoError(t, err)

	assert.Equal(t, ActionShowMultiple, result.Action)
	assert.NotEmpty(t, result.Caveat)
}

func TestSearchAllCriteriaBoost(t *testing.T) {
	store := &fakeStore{
		docs: []rag.Document{{ID: "doc-1", Filename: "report.pdf"}, {ID: "doc-2", Filename: "notes.pdf"}},
		chunks: []rag.Chunk{
			{ID: "c-1", DocumentID: "doc-1", Content: "Revenue and churn both covered here."},
			{ID: "c-2", DocumentID: "doc-2", Content: "Only churn analysis."},
		},
	}
	searcher := NewSearcher(store, &fakeVectors{}, fakeEmbedder{})

	result, err := searcher.Search(context.Background(), `find documents with "revenue" and "churn"`, "user-1", Options{})
	require.NoError(t, err)

	require.NotEmpty(t, result.Matches)
	assert.Equal(t, "doc-1", result.Matches[0].DocumentID)
}

func TestSearchVectorUnavailableFallsBackToKeyword(t *testing.T) {
	store := &fakeStore{
		docs:   []rag.Document{{ID: "doc-1", Filename: "plan.pdf"}},
		chunks: []rag.Chunk{{ID: "c-1", DocumentID: "doc-1", Content: "Marketing roadmap details."}},
	}
	searcher := NewSearcher(store, &fakeVectors{available: false}, fakeEmbedder{})

	result, err := searcher.Search(context.Background(), "search for the marketing roadmap", "user-1", Options{})
	require.NoError(t, err)

	assert.NotEqual(t, ActionNotFound, result.Action)
	require.NotEmpty(t, result.Matches)
	assert.Equal(t, "doc-1", result.Matches[0].DocumentID)
}

func TestSearchKeywordOnlyAllCriteriaKeepsBoost(t *testing.T) {
	store := &fakeStore{
		docs: []rag.Document{
			{ID: "doc-1", Filename: "q2_2025_sales_report.pdf"},
			{ID: "doc-2", Filename: "handbook.pdf"},
		},
		chunks: []rag.Chunk{
			{ID: "c-1", DocumentID: "doc-1", Content: "Revenue decline of 12% in Q2 2025 versus Q1."},
			{ID: "c-2", DocumentID: "doc-2", Content: "Vacation policy and onboarding."},
		},
	}
	searcher := NewSearcher(store, &fakeVectors{available: false}, fakeEmbedder{})

	result, err := searcher.Search(context.Background(), "which document mentions Q2 2025 decline?", "user-1", Options{
		Strategy: query.SearchStrategy{SemanticWeight: 0.6, KeywordWeight: 0.4},
	})
	require.NoError(t, err)

	assert.Equal(t, ActionShowSingle, result.Action)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "doc-1", result.Matches[0].DocumentID)
	assert.GreaterOrEqual(t, result.Matches[0].Confidence, 0.95)
	assert.Contains(t, result.Message, "q2_2025_sales_report.pdf")
}

func TestExtractSearchTopicIdempotent(t *testing.T) {
	queries := []string{
		"find documents about revenue growth",
		"search for the onboarding checklist",
		"which document mentions churn?",
		"procure por contratos",
		"busca el presupuesto anual",
	}
	for _, q := range queries {
		once := ExtractSearchTopic(q)
		twice := ExtractSearchTopic(once)
		assert.Equal(t, once, twice, "topic extraction should be stable for %q", q)
	}
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "en", DetectLanguage("find the annual report"))
	assert.Equal(t, "pt", DetectLanguage("qual documento menciona vendas?"))
	assert.Equal(t, "es", DetectLanguage("¿cuál documento menciona ventas?"))
}
