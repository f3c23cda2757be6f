// File path: internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"regexp"
	"strings"

	"github.com/docuchat-ai/docuchat/internal/agentloop"
	"github.com/docuchat-ai/docuchat/internal/calc"
	"github.com/docuchat-ai/docuchat/internal/common"
	"github.com/docuchat-ai/docuchat/internal/common/telemetry"
	"github.com/docuchat-ai/docuchat/internal/continuity"
	"github.com/docuchat-ai/docuchat/internal/executor"
	"github.com/docuchat-ai/docuchat/internal/query"
	"github.com/docuchat-ai/docuchat/internal/search"
	"github.com/docuchat-ai/docuchat/internal/validator"
)

// Narrow contracts over the pipeline's collaborators. Any of them may be
// nil; the pipeline degrades to the next stage instead of failing.

type Resolver interface {
	ResolveQuery(ctx context.Context, queryText, conversationID string) continuity.ResolvedQuery
}

type Calculator interface {
	Calculate(queryText string, ct calc.CalculationType) calc.CalculationResult
}

type Analyzer interface {
	Analyze(ctx context.Context, queryText, userID string) (query.Analysis, error)
}

type Searcher interface {
	Search(ctx context.Context, queryText, userID string, opts search.Options) (search.Result, error)
}

type AgentRunner interface {
	ProcessQuery(ctx context.Context, queryText, userID string) agentloop.Result
}

type SubQuestionExecutor interface {
	ExecuteAll(ctx context.Context, subs []executor.SubQuestion, userID string) []executor.SubQuestionResult
}

type ResponseValidator interface {
	ValidateResponse(ctx context.Context, responseText, userID string, actualSourceDocs []string) validator.ValidationResult
}

// Routes a request can take through the pipeline.
const (
	RouteCalculation = "calculation"
	RouteSearch      = "search"
	RouteAgent       = "agent"
	RouteMultiPart   = "multi_part"
)

// Request is one incoming chat query.
type Request struct {
	Query          string `json:"query"`
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Response is the pipeline's typed outcome. Exactly one of the
// route-specific payloads is populated, matching Route.
type Response struct {
	Route         string                      `json:"route"`
	Answer        string                      `json:"answer"`
	ResolvedQuery continuity.ResolvedQuery    `json:"resolvedQuery"`
	Calculation   *calc.CalculationResult     `json:"calculation,omitempty"`
	Search        *search.Result              `json:"search,omitempty"`
	Agent         *agentloop.Result           `json:"agent,omitempty"`
	MultiPart     *executor.MultiPartAnswer   `json:"multiPart,omitempty"`
	Validation    *validator.ValidationResult `json:"validation,omitempty"`
}

// Deps wires the pipeline's collaborators explicitly.
type Deps struct {
	Resolver   Resolver
	Calculator Calculator
	Analyzer   Analyzer
	Searcher   Searcher
	Agent      AgentRunner
	Executor   SubQuestionExecutor
	Validator  ResponseValidator
}

// Pipeline drives a query through continuity resolution, the calculation
// short-circuit, analysis, retrieval, and validation.
type Pipeline struct {
	deps Deps
}

func New(deps Deps) *Pipeline {
	return &Pipeline{deps: deps}
}

// Handle processes one request end to end. Every stage falls through on low
// confidence or failure; document search is the universal fallback and the
// worst case is a less precise answer, never a panic.
func (p *Pipeline) Handle(ctx context.Context, req Request) Response {
	logger := common.Logger()
	resp := Response{}

	resolved := continuity.ResolvedQuery{Original: req.Query, Resolved: req.Query, Confidence: 1.0}
	if p.deps.Resolver != nil {
		resolved = p.deps.Resolver.ResolveQuery(ctx, req.Query, req.ConversationID)
	}
	resp.ResolvedQuery = resolved
	queryText := resolved.Resolved

	if p.deps.Calculator != nil {
		ct := calc.DetectCalculationType(queryText)
		if calc.ShouldUseCalculationEngine(ct) {
			result := p.deps.Calculator.Calculate(queryText, ct)
			if result.Success {
				resp.Route = RouteCalculation
				resp.Calculation = &result
				resp.Answer = calculationAnswer(result)
				telemetry.RecordPipelineRoute(resp.Route)
				return resp
			}
			logger.Debug("pipeline: calculation failed, falling through to search",
				"category", ct.Category, "error", result.Error)
		}
	}

	analysis := query.Analysis{Strategy: query.SearchStrategy{SemanticWeight: 0.6, KeywordWeight: 0.4, Reason: "default"}}
	if p.deps.Analyzer != nil {
		if a, err := p.deps.Analyzer.Analyze(ctx, queryText, req.UserID); err == nil {
			analysis = a
		} else {
			logger.Warn("pipeline: analysis failed, using default strategy", "error", err)
		}
	}

	shape := agentloop.AnalyzeQueryShape(queryText)
	subs := DecomposeQuery(queryText)

	var sources []string
	switch {
	case shape.Kind == agentloop.ShapeMultiPart && p.deps.Executor != nil && len(subs) > 1:
		resp.Route = RouteMultiPart
		results := p.deps.Executor.ExecuteAll(ctx, subs, req.UserID)
		assembled := executor.AssembleMultiPartAnswer(governingIntent(queryText), results)
		resp.MultiPart = &assembled
		resp.Answer = assembled.Answer
		for _, part := range results {
			sources = append(sources, part.Sources...)
		}
	case needsIterativeRetrieval(shape, analysis) && p.deps.Agent != nil:
		resp.Route = RouteAgent
		result := p.deps.Agent.ProcessQuery(ctx, queryText, req.UserID)
		resp.Agent = &result
		resp.Answer = result.Answer
		sources = agentSources(result)
	default:
		resp.Route = RouteSearch
		resp.Answer = "I couldn't search your documents right now."
		if p.deps.Searcher != nil {
			result, err := p.deps.Searcher.Search(ctx, queryText, req.UserID, search.Options{Strategy: analysis.Strategy})
			if err != nil {
				logger.Warn("pipeline: search failed", "error", err)
			} else {
				resp.Search = &result
				resp.Answer = searchAnswer(result)
				sources = searchSources(result)
			}
		}
	}

	if p.deps.Validator != nil && resp.Answer != "" {
		validation := p.deps.Validator.ValidateResponse(ctx, resp.Answer, req.UserID, sources)
		resp.Validation = &validation
		if !validation.IsValid && validation.CorrectedResponse != "" {
			resp.Answer = validation.CorrectedResponse
		}
	}
	telemetry.RecordPipelineRoute(resp.Route)
	return resp
}

func needsIterativeRetrieval(shape agentloop.QueryShape, analysis query.Analysis) bool {
	switch shape.Kind {
	case agentloop.ShapeComparison, agentloop.ShapeTemporal, agentloop.ShapeAggregation:
		return true
	}
	return analysis.IsMultiDocument
}

var subQuestionSplit = regexp.MustCompile(`(?i)\?\s+|\band\s+also\b|;\s+`)

// DecomposeQuery splits a compound query into ordered sub-questions. A
// query that does not decompose comes back as a single entry.
func DecomposeQuery(queryText string) []executor.SubQuestion {
	parts := subQuestionSplit.Split(queryText, -1)
	var subs []executor.SubQuestion
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.HasSuffix(part, "?") {
			part += "?"
		}
		subs = append(subs, executor.SubQuestion{Text: part})
	}
	if len(subs) == 0 {
		return []executor.SubQuestion{{Text: queryText}}
	}
	return subs
}

var reasoningPattern = regexp.MustCompile(`(?i)\b(?:why|explain|reason|cause)\b`)
var overviewPattern = regexp.MustCompile(`(?i)\b(?:overview|summar|describe|tell me about)\b`)

func governingIntent(queryText string) string {
	switch {
	case agentloop.AnalyzeQueryShape(queryText).Kind == agentloop.ShapeComparison:
		return executor.IntentComparison
	case reasoningPattern.MatchString(queryText):
		return executor.IntentReasoning
	case overviewPattern.MatchString(queryText):
		return executor.IntentOverview
	default:
		return executor.IntentDirect
	}
}

func calculationAnswer(result calc.CalculationResult) string {
	var b strings.Builder
	b.WriteString("The answer is ")
	b.WriteString(result.Formatted)
	b.WriteString(".")
	if len(result.Steps) > 0 {
		b.WriteString("\n\n")
		for _, step := range result.Steps {
			b.WriteString("- ")
			b.WriteString(step)
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func searchAnswer(result search.Result) string {
	answer := result.Message
	if result.Caveat != "" {
		answer += "\n\n" + result.Caveat
	}
	return answer
}

func searchSources(result search.Result) []string {
	seen := map[string]struct{}{}
	var sources []string
	for _, match := range result.Matches {
		if match.Filename == "" {
			continue
		}
		if _, ok := seen[match.Filename]; ok {
			continue
		}
		seen[match.Filename] = struct{}{}
		sources = append(sources, match.Filename)
	}
	return sources
}

func agentSources(result agentloop.Result) []string {
	seen := map[string]struct{}{}
	var sources []string
	for _, chunk := range result.Context {
		if chunk.Filename == "" {
			continue
		}
		if _, ok := seen[chunk.Filename]; ok {
			continue
		}
		seen[chunk.Filename] = struct{}{}
		sources = append(sources, chunk.Filename)
	}
	return sources
}
