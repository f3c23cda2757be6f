// File path: internal/search/criteria_test.go
package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat-ai/docuchat/internal/rag"
)

func criteriaValues(criteria []rag.SearchCriteria) []string {
	values := make([]string, 0, len(criteria))
	for _, c := range criteria {
		values = append(values, c.Value)
	}
	return values
}

func TestExtractCriteriaWeights(t *testing.T) {
	criteria := ExtractCriteria(`reports from Q2 2025 with "churn analysis" in pdf`)

	byValue := map[string]rag.SearchCriteria{}
	for _, c := range criteria {
		byValue[c.Value] = c
	}

	require.Contains(t, byValue, "churn analysis")
	assert.Equal(t, rag.CriteriaKeyword, byValue["churn analysis"].Type)
	assert.InDelta(t, 1.0, byValue["churn analysis"].Weight, 1e-9)

	require.Contains(t, byValue, "Q2 2025")
	assert.Equal(t, rag.CriteriaTimePeriod, byValue["Q2 2025"].Type)

	require.Contains(t, byValue, "pdf")
	assert.Equal(t, rag.CriteriaFileType, byValue["pdf"].Type)
	assert.InDelta(t, 0.5, byValue["pdf"].Weight, 1e-9)
}

func TestExtractCriteriaDeduplicatesAcrossTypes(t *testing.T) {
	criteria := ExtractCriteria(`"revenue" and revenue projections`)

	count := 0
	for _, value := range criteriaValues(criteria) {
		if value == "revenue" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExtractCriteriaEmpty(t *testing.T) {
	assert.Nil(t, ExtractCriteria(""))
	assert.Nil(t, ExtractCriteria("   "))
}

func TestIsConjunctive(t *testing.T) {
	assert.True(t, IsConjunctive(`documents with "revenue" and "churn"`))
	assert.False(t, IsConjunctive(`documents with "revenue" or "churn"`))
	// Mixed wording wants everything.
	assert.True(t, IsConjunctive(`documents with "revenue" and either "churn" or "growth"`))
	// No markers at all defaults to conjunctive.
	assert.True(t, IsConjunctive("quarterly revenue report"))
}

func TestExtractSearchTopicStripsTriggers(t *testing.T) {
	assert.Equal(t, "churn", ExtractSearchTopic("which document mentions churn?"))
	assert.Equal(t, "contratos", ExtractSearchTopic("procure por contratos"))
	assert.Equal(t, "el presupuesto anual", ExtractSearchTopic("busca el presupuesto anual"))
	// No trigger phrase leaves the query untouched.
	assert.Equal(t, "annual budget overview", ExtractSearchTopic("annual budget overview"))
}
