package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const healthCheckTimeout = 5 * time.Second

// ERPPinger probes the ERP backend.
type ERPPinger interface {
	Ping(ctx context.Context) (string, error)
}

// NLUStatus probes the NLU service.
type NLUStatus interface {
	Enabled() bool
	Status(ctx context.Context) error
}

// CachePinger probes a remote cache backend.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// SessionCounter reports how many conversations are held in memory.
type SessionCounter interface {
	Len() int
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	erp      ERPPinger
	nlu      NLUStatus
	cache    CachePinger
	sessions SessionCounter
	conns    *Connections
	logger   *slog.Logger
}

// HealthOptions lists the dependencies reported by /health. Nil entries are skipped.
type HealthOptions struct {
	ERP         ERPPinger
	NLU         NLUStatus
	Cache       CachePinger
	Sessions    SessionCounter
	Connections *Connections
	Logger      *slog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(opts HealthOptions) *HealthHandler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		erp:      opts.ERP,
		nlu:      opts.NLU,
		cache:    opts.Cache,
		sessions: opts.Sessions,
		conns:    opts.Connections,
		logger:   logger,
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string            `json:"status"`
	Checks      map[string]string `json:"checks"`
	Sessions    int               `json:"sessions"`
	Connections int               `json:"connections"`
}

// Health returns the health status of the API and its dependencies. The ERP
// and the cache are required; an unreachable NLU only degrades to the local
// rules.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status: "healthy",
		Checks: map[string]string{"api": "ok"},
	}
	statusCode := http.StatusOK

	if h.erp != nil {
		if _, err := h.erp.Ping(ctx); err != nil {
			h.logger.Error("Health check failed", "dependency", "erp", "error", err)
			resp.Checks["erp"] = "unreachable"
			resp.Status = "degraded"
			statusCode = http.StatusServiceUnavailable
		} else {
			resp.Checks["erp"] = "ok"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			h.logger.Error("Health check failed", "dependency", "cache", "error", err)
			resp.Checks["cache"] = "unreachable"
			resp.Status = "degraded"
			statusCode = http.StatusServiceUnavailable
		} else {
			resp.Checks["cache"] = "ok"
		}
	}

	if h.nlu != nil {
		switch {
		case !h.nlu.Enabled():
			resp.Checks["nlu"] = "local"
		case h.nlu.Status(ctx) != nil:
			h.logger.Warn("NLU unreachable, using local rules")
			resp.Checks["nlu"] = "fallback"
		default:
			resp.Checks["nlu"] = "ok"
		}
	}

	if h.sessions != nil {
		resp.Sessions = h.sessions.Len()
	}
	if h.conns != nil {
		resp.Connections = h.conns.Count()
	}

	JSON(w, statusCode, resp)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
