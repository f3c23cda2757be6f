// File path: internal/query/analyzer_test.go
package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat-ai/docuchat/internal/rag"
)

type fakeLister struct {
	docs []rag.Document
	err  error
}

func (f *fakeLister) DocumentsForUser(ctx context.Context, userID string) ([]rag.Document, error) {
	return f.docs, f.err
}

func sampleDocs() []rag.Document {
	return []rag.Document{
		{ID: "d1", Filename: "Q3_Financial_Report.pdf"},
		{ID: "d2", Filename: "employee_handbook.docx"},
		{ID: "d3", Filename: "sales_invoice_march.pdf"},
	}
}

func TestDetectMentionedDocumentsEmptySet(t *testing.T) {
	assert.Empty(t, DetectMentionedDocuments("anything at all about the handbook", nil))
	assert.Empty(t, DetectMentionedDocuments("", []rag.Document{}))
}

func TestDetectMentionedDocuments(t *testing.T) {
	docs := sampleDocs()
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"exact filename", "open Q3_Financial_Report.pdf please", []string{"d1"}},
		{"extension stripped", "what does employee_handbook say", []string{"d2"}},
		{"compound words", "summarize the q3 financial report", []string{"d1"}},
		{"alias", "what does the handbook say about leave", []string{"d2"}},
		{"no mention", "what was our revenue last year", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := DetectMentionedDocuments(tt.query, docs)
			var ids []string
			for _, m := range matches {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestAnalyzeStrategyTable(t *testing.T) {
	analyzer := NewAnalyzer(&fakeLister{docs: sampleDocs()})
	ctx := context.Background()

	tests := []struct {
		name     string
		query    string
		semantic float64
		keyword  float64
	}{
		{"document scoped", "summarize the employee_handbook", 0.5, 0.5},
		{"conceptual", "explain our vacation policy", 0.8, 0.2},
		{"entity", "what did Maria Santos approve", 0.3, 0.7},
		{"default", "revenue totals last quarter", 0.6, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis, err := analyzer.Analyze(ctx, tt.query, "u1")
			require.NoError(t, err)
			assert.InDelta(t, tt.semantic, analysis.Strategy.SemanticWeight, 1e-9)
			assert.InDelta(t, tt.keyword, analysis.Strategy.KeywordWeight, 1e-9)
		})
	}
}

func TestAnalyzeMultiDocumentIntent(t *testing.T) {
	analyzer := NewAnalyzer(&fakeLister{docs: sampleDocs()})
	ctx := context.Background()

	analysis, err := analyzer.Analyze(ctx, "compare the Q3 results with last year", "u1")
	require.NoError(t, err)
	assert.True(t, analysis.IsMultiDocument)

	analysis, err = analyzer.Analyze(ctx, "what does the invoice total", "u1")
	require.NoError(t, err)
	assert.False(t, analysis.IsMultiDocument)
}

func TestAnalyzeMetadataFilters(t *testing.T) {
	analyzer := NewAnalyzer(&fakeLister{})
	ctx := context.Background()

	analysis, err := analyzer.Analyze(ctx, "find the 2024 invoice saved as .pdf", "u1")
	require.NoError(t, err)
	assert.Equal(t, "2024", analysis.MetadataFilters["date"])
	assert.Equal(t, "invoice", analysis.MetadataFilters["category"])
	assert.Equal(t, "pdf", analysis.MetadataFilters["file_type"])
}

func TestAnalyzeSurvivesListerFailure(t *testing.T) {
	analyzer := NewAnalyzer(&fakeLister{err: assert.AnError})
	analysis, err := analyzer.Analyze(context.Background(), "explain the budget", "u1")
	require.NoError(t, err)
	assert.Empty(t, analysis.MentionedDocuments)
	assert.InDelta(t, 0.8, analysis.Strategy.SemanticWeight, 1e-9)
}
