// File path: internal/api/docs_handler.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/docuchat-ai/docuchat/internal/common"
	"github.com/docuchat-ai/docuchat/internal/rag"
)

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("user_id required"))
		return
	}
	if s.docs == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("document store unavailable"))
		return
	}
	docs, err := s.docs.DocumentsForUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if docs == nil {
		docs = []rag.Document{}
	}
	logger.Debug("api: documents listed", "count", len(docs))
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries := append([]common.LogEntry(nil), common.LogEntries()...)
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		if limit < len(entries) {
			entries = entries[len(entries)-limit:]
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
