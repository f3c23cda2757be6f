// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"sync"
	"time"

	"github.com/docuchat-ai/docuchat/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	vectorSearchTotal     *expvar.Int
	vectorSearchLatencyMS *expvar.Int

	keywordSearchTotal *expvar.Int

	calcTotal       *expvar.Map
	pipelineTotal   *expvar.Map
	agentIterations *expvar.Int

	validatorErrors   *expvar.Int
	validatorWarnings *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		vectorSearchTotal = expvar.NewInt("docuchat_vector_search_total")
		vectorSearchLatencyMS = expvar.NewInt("docuchat_vector_search_latency_ms")
		keywordSearchTotal = expvar.NewInt("docuchat_keyword_search_total")
		calcTotal = expvar.NewMap("docuchat_calc_total")
		pipelineTotal = expvar.NewMap("docuchat_pipeline_total")
		agentIterations = expvar.NewInt("docuchat_agent_iterations_total")
		validatorErrors = expvar.NewInt("docuchat_validator_errors_total")
		validatorWarnings = expvar.NewInt("docuchat_validator_warnings_total")
	})
}

// StartSpan records the beginning of a named operation and returns a context
// that carries the timing information for EndSpan.
func StartSpan(ctx context.Context, name string) context.Context {
	ensureInit()
	return context.WithValue(ctx, spanKey{}, span{name: name, start: time.Now()})
}

// EndSpan closes the span started with StartSpan, logging its duration at
// debug level and updating latency gauges for known span names.
func EndSpan(ctx context.Context) {
	value := ctx.Value(spanKey{})
	sp, ok := value.(span)
	if !ok {
		return
	}
	elapsed := time.Since(sp.start)
	if sp.name == "vector.search" {
		vectorSearchLatencyMS.Set(elapsed.Milliseconds())
	}
	common.Logger().Debug("telemetry: span complete", "span", sp.name, "elapsed_ms", elapsed.Milliseconds())
}

// RecordVectorSearch increments the vector search counter.
func RecordVectorSearch() {
	ensureInit()
	vectorSearchTotal.Add(1)
}

// RecordKeywordSearch increments the keyword search counter.
func RecordKeywordSearch() {
	ensureInit()
	keywordSearchTotal.Add(1)
}

// RecordCalculation counts a calculation routed to the calculation engine,
// keyed by category.
func RecordCalculation(category string) {
	ensureInit()
	if category == "" {
		category = "unknown"
	}
	calcTotal.Add(category, 1)
}

// RecordPipelineRoute counts a pipeline routing decision, keyed by route name.
func RecordPipelineRoute(route string) {
	ensureInit()
	if route == "" {
		route = "unknown"
	}
	pipelineTotal.Add(route, 1)
}

// RecordAgentIterations adds the number of iterations an agent loop consumed.
func RecordAgentIterations(n int) {
	ensureInit()
	if n > 0 {
		agentIterations.Add(int64(n))
	}
}

// RecordValidation counts validator findings.
func RecordValidation(errors, warnings int) {
	ensureInit()
	if errors > 0 {
		validatorErrors.Add(int64(errors))
	}
	if warnings > 0 {
		validatorWarnings.Add(int64(warnings))
	}
}
