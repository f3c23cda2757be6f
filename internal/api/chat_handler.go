// File path: internal/api/chat_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/docuchat-ai/docuchat/internal/common"
	"github.com/docuchat-ai/docuchat/internal/pipeline"
)

type chatRequest struct {
	Query          string `json:"query"`
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: chat decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("query required"))
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("userId required"))
		return
	}
	logger.Info("api: chat request received", "query_length", len(req.Query), "conversation", req.ConversationID != "")

	response := s.pipeline.Handle(r.Context(), pipeline.Request{
		Query:          req.Query,
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
	})
	logger.Info("api: chat request handled", "route", response.Route)
	writeJSON(w, http.StatusOK, response)
}
