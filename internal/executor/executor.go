// File path: internal/executor/executor.go
package executor

import (
	"context"
	"strings"
	"time"

	"github.com/docuchat-ai/docuchat/internal/common"
	"github.com/docuchat-ai/docuchat/internal/llm"
	"github.com/docuchat-ai/docuchat/internal/rag"
	"github.com/docuchat-ai/docuchat/internal/search"
)

// DocSearcher is the retrieval contract sub-question execution rides on.
type DocSearcher interface {
	Search(ctx context.Context, queryText, userID string, opts search.Options) (search.Result, error)
}

// Generator produces answer text from a prompt.
type Generator interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
}

// Sub-answers are deliberately shorter than full answers.
const (
	subContextLimit  = 4
	subAnswerWordCap = 120
	noAnswerFallback = "No relevant content was found for this part of the question."
)

// SubQuestion is one atomic question from a decomposed compound query.
type SubQuestion struct {
	Text   string `json:"text"`
	Intent string `json:"intent,omitempty"`
}

// SubQuestionResult carries one sub-answer plus its observability metadata.
type SubQuestionResult struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources,omitempty"`
	ChunkCount int      `json:"chunkCount"`
	LatencyMS  int64    `json:"latencyMs"`
}

// Executor runs sub-questions sequentially through routing, hybrid search,
// the configured rerankers, and capped generation. Sequential on purpose:
// later sub-questions may depend on context established by earlier ones.
type Executor struct {
	searcher  DocSearcher
	generator Generator
	rerankers []Reranker
}

// Option configures an Executor.
type Option func(*Executor)

// WithRerankers installs post-retrieval rerankers, applied in order.
func WithRerankers(rerankers ...Reranker) Option {
	return func(e *Executor) { e.rerankers = rerankers }
}

func NewExecutor(searcher DocSearcher, generator Generator, opts ...Option) *Executor {
	e := &Executor{searcher: searcher, generator: generator}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteSubQuestion resolves one sub-question end to end. Failures degrade
// to a typed fallback answer rather than an error.
func (e *Executor) ExecuteSubQuestion(ctx context.Context, sub SubQuestion, userID string) SubQuestionResult {
	logger := common.Logger()
	start := time.Now()
	result := SubQuestionResult{Question: sub.Text, Answer: noAnswerFallback}

	searchResult, err := e.searcher.Search(ctx, sub.Text, userID, search.Options{})
	if err != nil {
		logger.Warn("executor: sub-question search failed", "question", sub.Text, "error", err)
		result.LatencyMS = time.Since(start).Milliseconds()
		return result
	}

	chunks := flattenChunks(searchResult.Matches)
	for _, reranker := range e.rerankers {
		chunks = reranker.Rerank(sub.Text, chunks)
	}
	if len(chunks) > subContextLimit {
		chunks = chunks[:subContextLimit]
	}
	result.ChunkCount = len(chunks)
	result.Sources = sourceNames(chunks)

	if len(chunks) > 0 {
		result.Answer = e.generateSubAnswer(ctx, sub.Text, chunks)
	}
	result.LatencyMS = time.Since(start).Milliseconds()
	return result
}

// ExecuteAll runs the ordered sub-questions one after another.
func (e *Executor) ExecuteAll(ctx context.Context, subs []SubQuestion, userID string) []SubQuestionResult {
	results := make([]SubQuestionResult, 0, len(subs))
	for _, sub := range subs {
		results = append(results, e.ExecuteSubQuestion(ctx, sub, userID))
	}
	return results
}

func (e *Executor) generateSubAnswer(ctx context.Context, question string, chunks []rag.ChunkMatch) string {
	var b strings.Builder
	for _, chunk := range chunks {
		b.WriteString("- ")
		b.WriteString(chunk.Filename)
		b.WriteString(": ")
		b.WriteString(chunk.Excerpt)
		b.WriteByte('\n')
	}
	if e.generator == nil {
		return capWords(b.String(), subAnswerWordCap)
	}
	answer, err := e.generator.Chat(ctx, []llm.Message{
		{Role: "system", Content: "Answer in at most three sentences, strictly from the excerpts provided."},
		{Role: "user", Content: "Question: " + question + "\n\nExcerpts:\n" + b.String()},
	})
	if err != nil {
		common.Logger().Warn("executor: sub-answer generation failed", "error", err)
		return capWords(b.String(), subAnswerWordCap)
	}
	return capWords(strings.TrimSpace(answer), subAnswerWordCap)
}

func flattenChunks(matches []rag.DocumentMatch) []rag.ChunkMatch {
	var chunks []rag.ChunkMatch
	for _, match := range matches {
		for _, chunk := range match.MatchedChunks {
			if chunk.Filename == "" {
				chunk.Filename = match.Filename
			}
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

func sourceNames(chunks []rag.ChunkMatch) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, chunk := range chunks {
		if chunk.Filename == "" {
			continue
		}
		if _, ok := seen[chunk.Filename]; ok {
			continue
		}
		seen[chunk.Filename] = struct{}{}
		names = append(names, chunk.Filename)
	}
	return names
}

func capWords(text string, limit int) string {
	words := strings.Fields(text)
	if len(words) <= limit {
		return strings.TrimSpace(text)
	}
	return strings.Join(words[:limit], " ") + "…"
}
