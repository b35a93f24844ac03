package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/lookatme/backend/internal/logging"
)

const pingTimeout = 2 * time.Second

// HealthHandler responds with service health information.
type HealthHandler struct {
	DB Pinger
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Handle implements GET /healthz and GET /api/status/database.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	ctx := r.Context()
	if h.DB == nil {
		respondJSON(ctx, w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Database: "not configured"})
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := h.DB.PingContext(pingCtx); err != nil {
		logging.FromContext(ctx).Error("database ping failed", "error", err)
		respondJSON(ctx, w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Database: "disconnected"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, healthResponse{Status: "ok", Database: "connected"})
}
