package http

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"docindex/internal/contextutil"
)

func TestTenantMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		orgID      string
		userID     string
		wantStatus int
		wantNext   bool
	}{
		{"both headers present", "org-a", "user-a", http.StatusOK, true},
		{"missing org", "", "user-a", http.StatusBadRequest, false},
		{"missing user", "org-a", "", http.StatusBadRequest, false},
		{"missing both", "", "", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				tenant, ok := contextutil.TenantFromContext(r.Context())
				if !ok {
					t.Error("tenant missing from context")
				}
				if tenant.OrgID != tt.orgID || tenant.UserID != tt.userID {
					t.Errorf("tenant = %+v, want %s/%s", tenant, tt.orgID, tt.userID)
				}
			})

			req := httptest.NewRequest(http.MethodPost, "/api/documents", nil)
			if tt.orgID != "" {
				req.Header.Set("X-Org-ID", tt.orgID)
			}
			if tt.userID != "" {
				req.Header.Set("X-User-ID", tt.userID)
			}
			w := httptest.NewRecorder()

			TenantMiddleware(next).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if nextCalled != tt.wantNext {
				t.Errorf("next called = %v, want %v", nextCalled, tt.wantNext)
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run for preflight")
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/documents", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()

	CORS(next).ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Errorf("Allow-Origin = %q, want request origin", got)
	}
}

func TestLoggerMiddleware(t *testing.T) {
	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		if contextutil.LoggerFromContext(r.Context()) == slog.Default() {
			t.Error("logger missing from context")
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	LoggerMiddleware(next).ServeHTTP(httptest.NewRecorder(), req)

	if !nextCalled {
		t.Error("next handler not called")
	}
}
