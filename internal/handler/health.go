package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/apiproject/userapi/internal/handler/dto"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

const healthTimeout = 5 * time.Second

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	db     HealthChecker
	logger *slog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db HealthChecker, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		db:     db,
		logger: logger,
	}
}

// Healthz is a liveness probe; it checks no dependencies.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Health pings the store and reports whether the database is reachable.
//
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if h.db == nil {
		writeJSON(w, http.StatusInternalServerError, dto.HealthResponse{
			Status:   "unhealthy",
			Database: "disconnected",
			Message:  "database connection failed: store not configured",
		})
		return
	}

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health_check_failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.HealthResponse{
			Status:   "unhealthy",
			Database: "disconnected",
			Message:  "database connection failed: " + err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, dto.HealthResponse{
		Status:   "healthy",
		Database: "connected",
		Message:  "application is running normally",
	})
}
