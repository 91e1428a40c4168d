// Package api provides the HTTP and WebSocket chat endpoints.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/erp-assistant/internal/domain"
)

// maxBodyBytes bounds chat request bodies.
const maxBodyBytes = 64 << 10

// Chat is the conversation engine behind every transport.
type Chat interface {
	HandleMessage(ctx context.Context, user domain.User, text string) []domain.Reply
	HandleCallback(ctx context.Context, user domain.User, data string) []domain.Reply
}

// Limiter decides whether a user may send another message.
type Limiter interface {
	Allow(key string) bool
}

// Handler serves the chat API.
type Handler struct {
	chat    Chat
	limiter Limiter
	conns   *Connections
	origins []string
	isDev   bool
	logger  *slog.Logger
}

// Options configures a Handler. Limiter is only consulted for WebSocket
// frames; HTTP requests are limited by middleware.
type Options struct {
	Chat           Chat
	Limiter        Limiter
	AllowedOrigins []string
	IsDev          bool
	Logger         *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		chat:    opts.Chat,
		limiter: opts.Limiter,
		conns:   NewConnections(),
		origins: opts.AllowedOrigins,
		isDev:   opts.IsDev,
		logger:  logger,
	}
}

// Connections exposes the live WebSocket registry.
func (h *Handler) Connections() *Connections {
	return h.conns
}

// RegisterRoutes mounts the chat endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.Message)
	r.Post("/api/chat/callback", h.Callback)
	r.Get("/ws/chat", h.ServeWS)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
