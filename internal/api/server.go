// File path: internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/docuchat-ai/docuchat/internal/common"
	"github.com/docuchat-ai/docuchat/internal/pipeline"
	"github.com/docuchat-ai/docuchat/internal/rag"
)

// ChatPipeline is the query-processing entry point the server fronts.
type ChatPipeline interface {
	Handle(ctx context.Context, req pipeline.Request) pipeline.Response
}

// DocumentStore lists a user's documents for the catalog route.
type DocumentStore interface {
	DocumentsForUser(ctx context.Context, userID string) ([]rag.Document, error)
}

type Server struct {
	router   chi.Router
	pipeline ChatPipeline
	docs     DocumentStore
}

func NewServer(chat ChatPipeline, docs DocumentStore) (*Server, error) {
	logger := common.Logger()
	if chat == nil {
		return nil, fmt.Errorf("chat pipeline required")
	}
	srv := &Server{
		router:   chi.NewRouter(),
		pipeline: chat,
		docs:     docs,
	}
	srv.routes()
	logger.Info("api: server ready")
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/api/v1/chat", s.handleChat)
	s.router.Get("/api/v1/documents", s.handleDocuments)
	s.router.Get("/api/v1/logs", s.handleLogs)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
