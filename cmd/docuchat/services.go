// File path: cmd/docuchat/services.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docuchat-ai/docuchat/internal/agentloop"
	"github.com/docuchat-ai/docuchat/internal/calc"
	"github.com/docuchat-ai/docuchat/internal/continuity"
	"github.com/docuchat-ai/docuchat/internal/docstore"
	"github.com/docuchat-ai/docuchat/internal/executor"
	"github.com/docuchat-ai/docuchat/internal/llm"
	"github.com/docuchat-ai/docuchat/internal/pipeline"
	"github.com/docuchat-ai/docuchat/internal/query"
	"github.com/docuchat-ai/docuchat/internal/search"
	"github.com/docuchat-ai/docuchat/internal/validator"
	"github.com/docuchat-ai/docuchat/internal/vector"
)

// services holds every constructed collaborator. Wiring is explicit: each
// component receives its dependencies here, nothing reaches for a global.
type services struct {
	store    *docstore.Store
	vectors  vector.Store
	provider llm.Provider
	pipeline *pipeline.Pipeline
}

func buildServices(ctx context.Context, logger *slog.Logger, dbPath string) (*services, error) {
	storeCfg, err := docstore.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("docstore config: %w", err)
	}
	if trimmed := strings.TrimSpace(dbPath); trimmed != "" {
		storeCfg.Path = trimmed
	}
	store, err := docstore.OpenWithConfig(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("open docstore: %w", err)
	}
	logger.Info("docuchat: docstore ready", "path", storeCfg.Path)

	provider := llm.NewProvider()
	logger.Info("docuchat: llm provider ready", "provider", provider.Name())

	var vectors vector.Store
	if client, err := vector.NewFromEnv(ctx); err != nil {
		logger.Warn("docuchat: qdrant not configured; semantic search disabled", "error", err)
	} else {
		vectors = client
		if client.Available() {
			if err := client.EnsureCollection(ctx); err != nil {
				logger.Warn("docuchat: collection setup failed", "error", err)
			} else {
				logger.Info("docuchat: qdrant available")
			}
		} else {
			logger.Warn("docuchat: qdrant unreachable; semantic search disabled")
		}
	}

	searcher := search.NewSearcher(store, vectors, provider)
	pipe := pipeline.New(pipeline.Deps{
		Resolver:   continuity.NewResolver(store),
		Calculator: calc.NewCalculator(),
		Analyzer:   query.NewAnalyzer(store),
		Searcher:   searcher,
		Agent:      agentloop.NewLoop(vectors, provider, provider),
		Executor: executor.NewExecutor(searcher, provider,
			executor.WithRerankers(executor.MicroSummaryReranker{}, executor.ChunkTypeReranker{})),
		Validator: validator.NewValidator(store),
	})

	return &services{
		store:    store,
		vectors:  vectors,
		provider: provider,
		pipeline: pipe,
	}, nil
}

func (s *services) close(logger *slog.Logger) {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		logger.Warn("docuchat: docstore close failed", "error", err)
	}
}

// startWatchdog reclaims documents stuck in processing. Runs until ctx is
// cancelled.
func startWatchdog(ctx context.Context, logger *slog.Logger, store *docstore.Store, interval, stuckAfter time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				released, err := store.ReleaseStuckDocuments(ctx, stuckAfter)
				if err != nil {
					logger.Warn("docuchat: watchdog sweep failed", "error", err)
					continue
				}
				if released > 0 {
					logger.Info("docuchat: released stuck documents", "count", released)
				}
			}
		}
	}()
}
