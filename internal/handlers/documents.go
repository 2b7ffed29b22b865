package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"docindex/internal/contextutil"
	"docindex/internal/embedding"
	"docindex/internal/rag"
	"docindex/internal/status"
)

// DefaultMaxUploadBytes caps the upload request body.
const DefaultMaxUploadBytes = 10 << 20 // 10 MiB

// DocumentsHandler handles HTTP requests for document upload, search,
// status, and deletion.
type DocumentsHandler struct {
	engine         rag.Engine
	maxUploadBytes int64
}

// NewDocumentsHandler creates a new DocumentsHandler. A non-positive
// maxUploadBytes falls back to DefaultMaxUploadBytes.
func NewDocumentsHandler(engine rag.Engine, maxUploadBytes int64) *DocumentsHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &DocumentsHandler{
		engine:         engine,
		maxUploadBytes: maxUploadBytes,
	}
}

// UploadRequest represents the HTTP request payload for document uploads.
//
// swagger:model UploadRequest
type UploadRequest struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// UploadResponse represents the HTTP response payload for document uploads.
//
// swagger:model UploadResponse
type UploadResponse struct {
	FileID     string `json:"file_id"`
	ChunkCount int    `json:"chunk_count"`
	Note       string `json:"note,omitempty"`
}

// SearchRequest represents the HTTP request payload for chunk search.
//
// swagger:model SearchRequest
type SearchRequest struct {
	Query   string   `json:"query"`
	FileIDs []string `json:"file_ids,omitempty"`
	TopK    int      `json:"top_k,omitempty"`
}

// SearchResultItem is one scored chunk in a search response.
//
// swagger:model SearchResultItem
type SearchResultItem struct {
	FileID        string  `json:"file_id"`
	Filename      string  `json:"filename"`
	Content       string  `json:"content"`
	ChunkIndex    int     `json:"chunk_index"`
	SectionHeader string  `json:"section_header,omitempty"`
	Score         float32 `json:"score"`
}

// SearchResponse represents the HTTP response payload for chunk search.
//
// swagger:model SearchResponse
type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
}

// StatusResponse represents the HTTP response payload for status checks.
//
// swagger:model StatusResponse
type StatusResponse struct {
	FileID     string `json:"file_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Indexed    bool   `json:"indexed"`
	ChunkCount int    `json:"chunk_count"`
	Note       string `json:"note,omitempty"`
}

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// Upload handles POST /api/documents.
//
// Chunks, embeds, and indexes the document text under the caller's tenant.
// Small documents bypass indexing and are marked ready for direct context use.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	tenant, ok := contextutil.TenantFromContext(ctx)
	if !ok {
		writeError(w, http.StatusBadRequest, "Tenant headers are required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			logger.WarnContext(ctx, "upload body too large", "limit", maxBytesErr.Limit)
			writeError(w, http.StatusRequestEntityTooLarge, "Upload body too large")
			return
		}
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.FileID == "" {
		writeError(w, http.StatusBadRequest, "file_id is required")
		return
	}

	result, err := h.engine.UploadDocument(ctx, req.FileID, tenant.OrgID, tenant.UserID, req.Text, req.Filename)
	if err != nil {
		if errors.Is(err, status.ErrAlreadyProcessing) {
			writeError(w, http.StatusConflict, "File is already being processed")
			return
		}
		h.handleEngineError(w, r, err, "Failed to index document")
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		FileID:     req.FileID,
		ChunkCount: result.ChunkCount,
		Note:       result.Note,
	})
}

// Search handles POST /api/documents/search.
//
// Embeds the query and returns the tenant's most similar chunks, optionally
// restricted to specific files.
func (h *DocumentsHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	tenant, ok := contextutil.TenantFromContext(ctx)
	if !ok {
		writeError(w, http.StatusBadRequest, "Tenant headers are required")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	chunks, err := h.engine.SearchDocuments(ctx, req.Query, tenant.OrgID, tenant.UserID, req.FileIDs, req.TopK)
	if err != nil {
		h.handleEngineError(w, r, err, "Failed to search documents")
		return
	}

	results := make([]SearchResultItem, len(chunks))
	for i, c := range chunks {
		results[i] = SearchResultItem{
			FileID:        c.FileID,
			Filename:      c.Filename,
			Content:       c.Content,
			ChunkIndex:    c.ChunkIndex,
			SectionHeader: c.SectionHeader,
			Score:         c.Score,
		}
	}

	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Status handles GET /api/documents/{fileID}/status.
func (h *DocumentsHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := contextutil.TenantFromContext(ctx)
	if !ok {
		writeError(w, http.StatusBadRequest, "Tenant headers are required")
		return
	}

	fileID := chi.URLParam(r, "fileID")
	if fileID == "" {
		writeError(w, http.StatusBadRequest, "file ID is required")
		return
	}

	result, err := h.engine.GetDocumentStatus(ctx, fileID, tenant.OrgID, tenant.UserID)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		h.handleEngineError(w, r, err, "Failed to get document status")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		FileID:     result.FileID,
		Filename:   result.Filename,
		Status:     result.Status,
		Indexed:    result.Indexed,
		ChunkCount: result.ChunkCount,
		Note:       result.Note,
	})
}

// Delete handles DELETE /api/documents/{fileID}. Deletion is idempotent;
// deleting an unknown document returns 204.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := contextutil.TenantFromContext(ctx)
	if !ok {
		writeError(w, http.StatusBadRequest, "Tenant headers are required")
		return
	}

	fileID := chi.URLParam(r, "fileID")
	if fileID == "" {
		writeError(w, http.StatusBadRequest, "file ID is required")
		return
	}

	if err := h.engine.DeleteDocument(ctx, fileID, tenant.OrgID, tenant.UserID); err != nil {
		h.handleEngineError(w, r, err, "Failed to delete document")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleEngineError maps engine errors to HTTP status codes.
func (h *DocumentsHandler) handleEngineError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "engine error", "error", err)

	if errors.Is(err, embedding.ErrRateLimited) {
		writeError(w, http.StatusBadGateway, "Embedding provider rate limited")
		return
	}

	var providerErr *embedding.ProviderError
	if errors.As(err, &providerErr) {
		writeError(w, http.StatusBadGateway, "Embedding provider error")
		return
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "qdrant") ||
		strings.Contains(errMsg, "failed to search index") ||
		strings.Contains(errMsg, "failed to upsert") {
		writeError(w, http.StatusServiceUnavailable, "Vector index unavailable")
		return
	}

	writeError(w, http.StatusInternalServerError, defaultMsg)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}
