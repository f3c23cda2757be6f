// File path: internal/validator/validator_test.go
package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat-ai/docuchat/internal/rag"
)

type fakeLister struct {
	filenames []string
	err       error
}

func (f *fakeLister) DocumentsForUser(_ context.Context, _ string) ([]rag.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	docs := make([]rag.Document, 0, len(f.filenames))
	for i, name := range f.filenames {
		docs = append(docs, rag.Document{ID: string(rune('a' + i)), Filename: name})
	}
	return docs, nil
}

func TestValidateResponseFabricatedReference(t *testing.T) {
	v := NewValidator(&fakeLister{filenames: []string{"q1_sales_summary.pdf"}})

	result := v.ValidateResponse(context.Background(),
		"According to the Q3 Marketing Report, revenue grew 12%.",
		"user-1",
		[]string{"Q1 Sales Summary"})

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Q3 Marketing Report", result.Errors[0].Reference)
	assert.Contains(t, result.CorrectedResponse, "Q1 Sales Summary")
	assert.NotContains(t, result.CorrectedResponse, "Q3 Marketing Report")
}

func TestValidateResponseVerifiedSource(t *testing.T) {
	v := NewValidator(&fakeLister{filenames: []string{"q3_report.pdf"}})

	result := v.ValidateResponse(context.Background(),
		"According to q3_report.pdf, revenue grew 12%.",
		"user-1",
		[]string{"q3_report.pdf"})

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	assert.Contains(t, result.Verified, "q3_report.pdf")
}

func TestValidateResponseOwnedButUnsourcedIsWarning(t *testing.T) {
	v := NewValidator(&fakeLister{filenames: []string{"handbook.pdf", "budget.xlsx"}})

	result := v.ValidateResponse(context.Background(),
		"Based on the handbook, vacation carries over.",
		"user-1",
		[]string{"budget.xlsx"})

	assert.True(t, result.IsValid, "warnings must not invalidate the response")
	assert.Empty(t, result.Errors)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "handbook", result.Warnings[0].Reference)
	assert.Empty(t, result.CorrectedResponse)
}

func TestValidateResponseNoReferences(t *testing.T) {
	v := NewValidator(&fakeLister{})

	result := v.ValidateResponse(context.Background(),
		"Revenue grew steadily over the period.",
		"user-1",
		nil)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateResponseListerFailureDowngradesToWarning(t *testing.T) {
	v := NewValidator(&fakeLister{err: errors.New("db closed")})

	result := v.ValidateResponse(context.Background(),
		"According to the Phantom Dossier, everything is fine.",
		"user-1",
		nil)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.NotEmpty(t, result.Warnings)
}

func TestValidateResponseFuzzyMatching(t *testing.T) {
	v := NewValidator(&fakeLister{filenames: []string{"Q3_Marketing_Report.pdf"}})

	result := v.ValidateResponse(context.Background(),
		"According to the Q3 Marketing Report, spend was flat.",
		"user-1",
		[]string{"Q3_Marketing_Report.pdf"})

	assert.True(t, result.IsValid)
	assert.Contains(t, result.Verified, "Q3 Marketing Report")
}

func TestExtractReferencesFiltersGenerics(t *testing.T) {
	refs := ExtractReferences("According to the document, the report shows growth. Based on the data, all is well.")
	assert.Empty(t, refs)
}

func TestExtractReferencesPatterns(t *testing.T) {
	refs := ExtractReferences(
		"According to the Annual Budget, spend rose. As stated in the Hiring Plan, headcount is frozen. See notes.pdf for detail.")

	assert.Contains(t, refs, "Annual Budget")
	assert.Contains(t, refs, "Hiring Plan")
	assert.Contains(t, refs, "notes.pdf")
}
