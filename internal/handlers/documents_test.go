package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"docindex/internal/contextutil"
	"docindex/internal/rag"
	"docindex/internal/rag/mocks"
	"docindex/internal/status"
	"docindex/internal/vectorstore"
)

func withTenant(r *http.Request) *http.Request {
	ctx := contextutil.WithTenant(r.Context(), contextutil.Tenant{
		OrgID:  "org-a",
		UserID: "user-a",
	})
	return r.WithContext(ctx)
}

func withFileID(r *http.Request, fileID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("fileID", fileID)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestDocumentsHandler_Upload(t *testing.T) {
	tests := []struct {
		name          string
		body          interface{}
		noTenant      bool
		mockSetup     func(*mocks.MockEngine)
		wantStatus    int
		checkResponse func(*httptest.ResponseRecorder) bool
	}{
		{
			name: "successful upload",
			body: UploadRequest{FileID: "file-1", Filename: "doc.md", Text: "hello world"},
			mockSetup: func(m *mocks.MockEngine) {
				m.EXPECT().
					UploadDocument(gomock.Any(), "file-1", "org-a", "user-a", "hello world", "doc.md").
					Return(rag.UploadResult{ChunkCount: 4}, nil)
			},
			wantStatus: http.StatusOK,
			checkResponse: func(w *httptest.ResponseRecorder) bool {
				var resp UploadResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					return false
				}
				return resp.FileID == "file-1" && resp.ChunkCount == 4
			},
		},
		{
			name: "missing file_id",
			body: UploadRequest{Filename: "doc.md", Text: "hello"},
			mockSetup: func(m *mocks.MockEngine) {
				// No calls expected
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "invalid JSON body",
			body: "not json",
			mockSetup: func(m *mocks.MockEngine) {
				// No calls expected
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:     "missing tenant",
			body:     UploadRequest{FileID: "file-1", Text: "hello"},
			noTenant: true,
			mockSetup: func(m *mocks.MockEngine) {
				// No calls expected
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "upload conflict",
			body: UploadRequest{FileID: "file-1", Filename: "doc.md", Text: "hello"},
			mockSetup: func(m *mocks.MockEngine) {
				m.EXPECT().
					UploadDocument(gomock.Any(), "file-1", "org-a", "user-a", "hello", "doc.md").
					Return(rag.UploadResult{}, status.ErrAlreadyProcessing)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "engine failure",
			body: UploadRequest{FileID: "file-1", Filename: "doc.md", Text: "hello"},
			mockSetup: func(m *mocks.MockEngine) {
				m.EXPECT().
					UploadDocument(gomock.Any(), "file-1", "org-a", "user-a", "hello", "doc.md").
					Return(rag.UploadResult{}, errors.New("tracker write failed"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockEngine := mocks.NewMockEngine(ctrl)
			tt.mockSetup(mockEngine)

			handler := NewDocumentsHandler(mockEngine, 0)

			var body bytes.Buffer
			if s, ok := tt.body.(string); ok {
				body.WriteString(s)
			} else {
				_ = json.NewEncoder(&body).Encode(tt.body)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/documents", &body)
			if !tt.noTenant {
				req = withTenant(req)
			}
			w := httptest.NewRecorder()

			handler.Upload(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.checkResponse != nil && !tt.checkResponse(w) {
				t.Error("response validation failed")
			}
		})
	}
}

func TestDocumentsHandler_Upload_BodyTooLarge(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEngine := mocks.NewMockEngine(ctrl)
	handler := NewDocumentsHandler(mockEngine, 64)

	body, _ := json.Marshal(UploadRequest{
		FileID: "file-1",
		Text:   strings.Repeat("x", 1024),
	})
	req := withTenant(httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewReader(body)))
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestDocumentsHandler_Search(t *testing.T) {
	tests := []struct {
		name          string
		body          interface{}
		mockSetup     func(*mocks.MockEngine)
		wantStatus    int
		checkResponse func(*httptest.ResponseRecorder) bool
	}{
		{
			name: "successful search",
			body: SearchRequest{Query: "deployment steps", FileIDs: []string{"file-1"}, TopK: 2},
			mockSetup: func(m *mocks.MockEngine) {
				m.EXPECT().
					SearchDocuments(gomock.Any(), "deployment steps", "org-a", "user-a", []string{"file-1"}, 2).
					Return([]vectorstore.ScoredChunk{
						{FileID: "file-1", Filename: "doc.md", Content: "step one", ChunkIndex: 0, Score: 0.9},
						{FileID: "file-1", Filename: "doc.md", Content: "step two", ChunkIndex: 1, Score: 0.8},
					}, nil)
			},
			wantStatus: http.StatusOK,
			checkResponse: func(w *httptest.ResponseRecorder) bool {
				var resp SearchResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					return false
				}
				return len(resp.Results) == 2 && resp.Results[0].Content == "step one"
			},
		},
		{
			name: "empty query",
			body: SearchRequest{},
			mockSetup: func(m *mocks.MockEngine) {
				// No calls expected
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "index unavailable",
			body: SearchRequest{Query: "anything"},
			mockSetup: func(m *mocks.MockEngine) {
				m.EXPECT().
					SearchDocuments(gomock.Any(), "anything", "org-a", "user-a", nil, 0).
					Return(nil, errors.New("failed to search index: connection refused"))
			},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockEngine := mocks.NewMockEngine(ctrl)
			tt.mockSetup(mockEngine)

			handler := NewDocumentsHandler(mockEngine, 0)

			body, _ := json.Marshal(tt.body)
			req := withTenant(httptest.NewRequest(http.MethodPost, "/api/documents/search", bytes.NewReader(body)))
			w := httptest.NewRecorder()

			handler.Search(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.checkResponse != nil && !tt.checkResponse(w) {
				t.Error("response validation failed")
			}
		})
	}
}

func TestDocumentsHandler_Status(t *testing.T) {
	tests := []struct {
		name          string
		fileID        string
		mockSetup     func(*mocks.MockEngine)
		wantStatus    int
		checkResponse func(*httptest.ResponseRecorder) bool
	}{
		{
			name:   "indexed file",
			fileID: "file-1",
			mockSetup: func(m *mocks.MockEngine) {
				m.EXPECT().
					GetDocumentStatus(gomock.Any(), "file-1", "org-a", "user-a").
					Return(rag.StatusResult{
						FileID: "file-1", Filename: "doc.md", Status: "ready",
						Indexed: true, ChunkCount: 6,
					}, nil)
			},
			wantStatus: http.StatusOK,
			checkResponse: func(w *httptest.ResponseRecorder) bool {
				var resp StatusResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					return false
				}
				return resp.Indexed && resp.ChunkCount == 6
			},
		},
		{
			name:   "unknown file",
			fileID: "missing",
			mockSetup: func(m *mocks.MockEngine) {
				m.EXPECT().
					GetDocumentStatus(gomock.Any(), "missing", "org-a", "user-a").
					Return(rag.StatusResult{}, status.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockEngine := mocks.NewMockEngine(ctrl)
			tt.mockSetup(mockEngine)

			handler := NewDocumentsHandler(mockEngine, 0)

			req := httptest.NewRequest(http.MethodGet, "/api/documents/"+tt.fileID+"/status", nil)
			req = withFileID(withTenant(req), tt.fileID)
			w := httptest.NewRecorder()

			handler.Status(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.checkResponse != nil && !tt.checkResponse(w) {
				t.Error("response validation failed")
			}
		})
	}
}

func TestDocumentsHandler_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEngine := mocks.NewMockEngine(ctrl)
	mockEngine.EXPECT().
		DeleteDocument(gomock.Any(), "file-1", "org-a", "user-a").
		Return(nil)

	handler := NewDocumentsHandler(mockEngine, 0)

	req := httptest.NewRequest(http.MethodDelete, "/api/documents/file-1", nil)
	req = withFileID(withTenant(req), "file-1")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}
