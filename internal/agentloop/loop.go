// File path: internal/agentloop/loop.go
package agentloop

import (
	"context"
	"fmt"
	"strings"

	"github.com/docuchat-ai/docuchat/internal/common"
	"github.com/docuchat-ai/docuchat/internal/common/telemetry"
	"github.com/docuchat-ai/docuchat/internal/llm"
	"github.com/docuchat-ai/docuchat/internal/vector"
)

// Embedder maps query text to fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, input []string) ([][]float32, error)
}

// Generator produces the final answer text from a prompt.
type Generator interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
}

const retrievalFloor = 0.3
const retrievalLimit = 10

// Result is what ProcessQuery hands back to the pipeline.
type Result struct {
	Answer     string           `json:"answer"`
	Context    []RetrievedChunk `json:"context,omitempty"`
	Iterations int              `json:"iterations"`
	Queries    []string         `json:"queries"`
	Complete   bool             `json:"complete"`
}

// Loop runs bounded iterative retrieval for queries a single search pass
// cannot answer. Collaborators are injected; a missing or failing one
// degrades the answer, never the process.
type Loop struct {
	vectors   vector.Store
	embedder  Embedder
	generator Generator
}

func NewLoop(vectors vector.Store, embedder Embedder, generator Generator) *Loop {
	return &Loop{vectors: vectors, embedder: embedder, generator: generator}
}

// ProcessQuery threads an AgentState through up to maxIterations
// plan/retrieve/observe cycles, exiting early once observation reports
// completeness, then composes a best-effort answer from whatever was
// accumulated.
func (l *Loop) ProcessQuery(ctx context.Context, query, userID string) Result {
	logger := common.Logger()
	state := NewAgentState(query)
	shape := AnalyzeQueryShape(query)
	logger.Info("agentloop: starting", "shape", shape.Kind, "entities", len(shape.Entities))

	for state.Iteration < state.MaxIterations && !state.IsComplete {
		state.Iteration++

		state.Phase = PhasePlanning
		planned := PlanNextQuery(state, shape)
		state.TriedQueries = append(state.TriedQueries, planned)

		state.Phase = PhaseRetrieving
		retrieved := l.retrieve(ctx, planned, userID)
		state.Chunks = append(state.Chunks, retrieved...)

		state.Phase = PhaseObserving
		complete, observation := Observe(state, shape)
		state.Observations = append(state.Observations, observation)
		state.IsComplete = complete
		logger.Debug("agentloop: iteration observed",
			"iteration", state.Iteration, "retrieved", len(retrieved), "observation", observation)
	}
	if state.IsComplete {
		state.Phase = PhaseComplete
	} else {
		state.Phase = PhaseExhausted
	}
	telemetry.RecordAgentIterations(state.Iteration)

	ranked := DeduplicateAndRank(state.Chunks)
	if len(ranked) > contextChunkLimit {
		ranked = ranked[:contextChunkLimit]
	}
	state.FinalAnswer = l.composeAnswer(ctx, state, shape, ranked)

	return Result{
		Answer:     state.FinalAnswer,
		Context:    ranked,
		Iterations: state.Iteration,
		Queries:    state.TriedQueries,
		Complete:   state.IsComplete,
	}
}

func (l *Loop) retrieve(ctx context.Context, queryText, userID string) []RetrievedChunk {
	logger := common.Logger()
	if l.vectors == nil || !l.vectors.Available() || l.embedder == nil {
		return nil
	}
	vectors, err := l.embedder.Embed(ctx, []string{queryText})
	if err != nil || len(vectors) == 0 {
		logger.Warn("agentloop: embedding failed", "error", err)
		return nil
	}
	results, err := l.vectors.Search(ctx, vectors[0], userID, retrievalLimit, retrievalFloor)
	if err != nil {
		logger.Warn("agentloop: retrieval failed", "error", err)
		return nil
	}
	chunks := make([]RetrievedChunk, 0, len(results))
	for _, res := range results {
		chunks = append(chunks, RetrievedChunk{
			ID:         res.ID,
			DocumentID: res.DocumentID,
			Filename:   res.Filename,
			Content:    res.Content,
			Similarity: float64(res.Score),
		})
	}
	return chunks
}

// composeAnswer packages the ranked chunks as cited context, selects a
// template by query shape, and asks the generator to answer from that
// context only. Without a generator (or when it fails) the cited context
// itself becomes the answer.
func (l *Loop) composeAnswer(ctx context.Context, state AgentState, shape QueryShape, ranked []RetrievedChunk) string {
	if len(ranked) == 0 {
		return "I couldn't find relevant content in your documents for this question."
	}
	citations := formatCitations(ranked)
	answer := ""
	if l.generator != nil {
		prompt := answerPrompt(state.Query, shape, citations)
		generated, err := l.generator.Chat(ctx, []llm.Message{
			{Role: "system", Content: "Answer strictly from the provided document excerpts. Cite excerpts by their [n] marker."},
			{Role: "user", Content: prompt},
		})
		if err != nil {
			common.Logger().Warn("agentloop: answer generation failed", "error", err)
		} else {
			answer = strings.TrimSpace(generated)
		}
	}
	if answer == "" {
		answer = "Here is what your documents say:\n\n" + citations
	}
	if state.Iteration > 1 {
		answer += fmt.Sprintf("\n\n_This answer was assembled over %d search passes._", state.Iteration)
	}
	return answer
}

func formatCitations(chunks []RetrievedChunk) string {
	var b strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "[%d] %s: %s\n", i+1, chunk.Filename, strings.TrimSpace(chunk.Content))
	}
	return b.String()
}

func answerPrompt(query string, shape QueryShape, citations string) string {
	var instruction string
	switch shape.Kind {
	case ShapeComparison:
		instruction = fmt.Sprintf("Compare %s side by side, covering each entity explicitly.", strings.Join(shape.Entities, " and "))
	case ShapeTemporal:
		instruction = "Describe how the figures change over the period, in chronological order."
	default:
		instruction = "Answer the question directly and concisely."
	}
	return fmt.Sprintf("Question: %s\n\n%s\n\nDocument excerpts:\n%s", query, instruction, citations)
}
