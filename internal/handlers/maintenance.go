package handlers

import (
	"net/http"

	"docindex/internal/contextutil"
	"docindex/internal/rag"
)

// MaintenanceHandler handles on-demand maintenance sweeps.
type MaintenanceHandler struct {
	engine rag.Engine
}

// NewMaintenanceHandler creates a new MaintenanceHandler.
func NewMaintenanceHandler(engine rag.Engine) *MaintenanceHandler {
	return &MaintenanceHandler{engine: engine}
}

// SweepResponse represents the result of a maintenance sweep.
//
// swagger:model SweepResponse
type SweepResponse struct {
	CleanedCount int      `json:"cleaned_count"`
	FileIDs      []string `json:"file_ids"`
}

// ServeHTTP handles POST /api/maintenance/sweep.
//
// Marks every upload stuck in processing past the timeout as errored so it
// can be retried.
func (h *MaintenanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	result, err := h.engine.SweepStuckUploads(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "sweep failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to sweep stuck uploads")
		return
	}

	fileIDs := result.FileIDs
	if fileIDs == nil {
		fileIDs = []string{}
	}

	writeJSON(w, http.StatusOK, SweepResponse{
		CleanedCount: result.CleanedCount,
		FileIDs:      fileIDs,
	})
}
