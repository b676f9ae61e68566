package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/medtech/go-cds/internal/api/middleware"
)

// ChatService forwards clinical questions to the remote assistant.
type ChatService interface {
	Chat(ctx context.Context, query, chatContext string) (string, error)
}

// ChatHandler handles the assistant proxy endpoint
type ChatHandler struct {
	service ChatService
	logger  *zap.Logger
}

// NewChatHandler creates a new handler
func NewChatHandler(service ChatService, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{service: service, logger: logger}
}

// Routes returns the handler routes
func (h *ChatHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/query", h.Query)
	return r
}

// QueryRequest is the request body for an assistant query
type QueryRequest struct {
	Query   string `json:"query"`
	Context string `json:"context,omitempty"`
}

// Query handles POST /chat/query. The assistant has no local fallback, so a
// remote failure maps to 502.
func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}

	answer, err := h.service.Chat(r.Context(), req.Query, req.Context)
	if err != nil {
		h.logger.Warn("assistant query failed", zap.Error(err),
			zap.String("request_id", middleware.GetRequestID(r.Context())))
		jsonError(w, "assistant is currently unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": answer})
}
