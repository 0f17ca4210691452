package http_handlers

import (
	"context"
	"net/http"

	"github.com/tenantcare/auth-service/internal/logger"
	"github.com/tenantcare/auth-service/internal/transport/http/response"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
	cache Pinger // optional
}

func NewHealthHandler(store Pinger, cache Pinger) *HealthHandler {
	return &HealthHandler{store: store, cache: cache}
}

// Healthz handles GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz. The store must answer; the cache only degrades.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			logger.WithCtx(r.Context()).Warn().Err(err).Msg("readyz: store unavailable")
			response.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  "database unavailable",
			})
			return
		}
	}

	body := map[string]string{"status": "ready"}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			body["cache"] = "degraded"
		} else {
			body["cache"] = "ok"
		}
	}
	response.WriteJSON(w, http.StatusOK, body)
}
