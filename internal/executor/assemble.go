// File path: internal/executor/assemble.go
package executor

import (
	"fmt"
	"strings"
)

// Intents governing the assembly template.
const (
	IntentComparison = "comparison"
	IntentOverview   = "overview"
	IntentReasoning  = "reasoning"
	IntentDirect     = "direct"
)

// MultiPartAnswer is the assembled response with summed observability
// metadata across all sub-questions.
type MultiPartAnswer struct {
	Answer         string              `json:"answer"`
	Intent         string              `json:"intent"`
	Parts          []SubQuestionResult `json:"parts"`
	TotalChunks    int                 `json:"totalChunks"`
	TotalLatencyMS int64               `json:"totalLatencyMs"`
}

// AssembleMultiPartAnswer formats ordered sub-answers into the template
// selected by the governing intent. Unknown intents fall back to direct.
func AssembleMultiPartAnswer(intent string, results []SubQuestionResult) MultiPartAnswer {
	answer := MultiPartAnswer{Intent: intent, Parts: results}
	for _, res := range results {
		answer.TotalChunks += res.ChunkCount
		answer.TotalLatencyMS += res.LatencyMS
	}
	switch intent {
	case IntentComparison:
		answer.Answer = assembleComparison(results)
	case IntentOverview:
		answer.Answer = assembleOverview(results)
	case IntentReasoning:
		answer.Answer = assembleReasoning(results)
	default:
		answer.Intent = IntentDirect
		answer.Answer = assembleDirect(results)
	}
	return answer
}

// assembleComparison emits a markdown table, one row per sub-question.
func assembleComparison(results []SubQuestionResult) string {
	var b strings.Builder
	b.WriteString("| Aspect | Finding |\n|---|---|\n")
	for _, res := range results {
		fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(res.Question), escapeCell(res.Answer))
	}
	return strings.TrimRight(b.String(), "\n")
}

func assembleOverview(results []SubQuestionResult) string {
	var b strings.Builder
	b.WriteString("## Overview\n")
	for _, res := range results {
		fmt.Fprintf(&b, "\n### %s\n%s\n", res.Question, res.Answer)
	}
	return strings.TrimRight(b.String(), "\n")
}

func assembleReasoning(results []SubQuestionResult) string {
	var b strings.Builder
	for i, res := range results {
		fmt.Fprintf(&b, "%d. **%s** %s\n", i+1, res.Question, res.Answer)
	}
	return strings.TrimRight(b.String(), "\n")
}

func assembleDirect(results []SubQuestionResult) string {
	parts := make([]string, 0, len(results))
	for _, res := range results {
		parts = append(parts, res.Answer)
	}
	return strings.Join(parts, "\n\n")
}

func escapeCell(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.ReplaceAll(text, "|", "\\|")
}
