package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"innkeep/pkg/contracts"
	httputil "innkeep/pkg/http"
	"innkeep/pkg/logger"
)

const readinessTimeout = 2 * time.Second

type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage,omitempty"`
}

// HealthHandler serves liveness and readiness probes. Liveness never
// touches storage; readiness pings it.
type HealthHandler struct {
	storage contracts.Pinger
	log     *logger.Logger
}

func NewHealthHandler(storage contracts.Pinger, log *logger.Logger) *HealthHandler {
	return &HealthHandler{storage: storage, log: log}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	h.respond(w, "Health", http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := h.storage.Ping(ctx); err != nil {
		h.log.Warn("readiness check failed", "error", err)
		h.respond(w, "Ready", http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Storage: "error"})
		return
	}
	h.respond(w, "Ready", http.StatusOK, HealthResponse{Status: "ready", Storage: "ok"})
}

func (h *HealthHandler) respond(w http.ResponseWriter, handler string, status int, body HealthResponse) {
	if err := httputil.WriteJSON(w, status, body); err != nil {
		h.log.Error("failed to write JSON response", "handler", handler, "error", err)
	}
}
