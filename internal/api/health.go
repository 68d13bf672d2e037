package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const healthCheckTimeout = 5 * time.Second

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PollStatus reports when the poller last reached the platform.
type PollStatus interface {
	LastSuccess() time.Time
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	history    Pinger
	poller     PollStatus
	staleAfter time.Duration
	now        func() time.Time
}

// NewHealthHandler creates a health handler. The poller counts as stale when
// its last successful fetch is older than staleAfter; poller may be nil.
func NewHealthHandler(history Pinger, poller PollStatus, staleAfter time.Duration) *HealthHandler {
	return &HealthHandler{
		history:    history,
		poller:     poller,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Health returns the health status of the bot and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{}
	status := "healthy"
	statusCode := http.StatusOK

	if err := h.history.Ping(ctx); err != nil {
		slog.Error("Health check failed", "check", "history", "error", err)
		checks["history"] = "unreachable"
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["history"] = "ok"
	}

	if h.poller != nil {
		last := h.poller.LastSuccess()
		switch {
		case last.IsZero():
			checks["poller"] = "starting"
		case h.staleAfter > 0 && h.now().Sub(last) > h.staleAfter:
			checks["poller"] = "stale"
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		default:
			checks["poller"] = "ok"
		}
	}

	JSON(w, statusCode, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
