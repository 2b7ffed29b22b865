package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"docindex/internal/contextutil"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	index              Pinger
	db                 *sql.DB
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(index Pinger, db *sql.DB) *HealthHandler {
	return &HealthHandler{
		index:              index,
		db:                 db,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles GET /health.
//
// Returns 200 OK if the vector index and status database are reachable,
// 503 Service Unavailable otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	if err := h.index.Ping(checkCtx); err != nil {
		logger.WarnContext(ctx, "vector index health check failed", "error", err)
		checks["vector_index"] = "error"
		issues = append(issues, "vector_index_unavailable")
	} else {
		checks["vector_index"] = "ok"
	}

	if err := h.db.PingContext(checkCtx); err != nil {
		logger.WarnContext(ctx, "status database health check failed", "error", err)
		checks["status_db"] = "error"
		issues = append(issues, "status_db_unavailable")
	} else {
		checks["status_db"] = "ok"
	}

	healthStatus := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		healthStatus = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:    healthStatus,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	})
}
