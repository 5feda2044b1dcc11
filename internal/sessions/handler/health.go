package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"studiobook/pkg/config"
	httputil "studiobook/pkg/http"
	"studiobook/pkg/logger"
)

type HealthHandler struct {
	cfg    *config.Config
	logger *logger.Logger
}

func NewHealthHandler(cfg *config.Config, log *logger.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, logger: log}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.HandlerFunc(http.MethodGet, "/health", h.Health)
	router.HandlerFunc(http.MethodGet, "/ready", h.Ready)
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if writeErr := httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}); writeErr != nil {
		h.logger.Error("failed to write response", "error", writeErr)
	}
}

// Ready verifies the Mongo connection before reporting ready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.cfg.Client.Mongo.Ping(ctx, nil); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		if writeErr := httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"}); writeErr != nil {
			h.logger.Error("failed to write response", "error", writeErr)
		}
		return
	}

	if writeErr := httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"}); writeErr != nil {
		h.logger.Error("failed to write response", "error", writeErr)
	}
}
