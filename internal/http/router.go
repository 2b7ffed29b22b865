package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docindex/internal/handlers"
	"docindex/internal/rag"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Engine         rag.Engine
	Index          handlers.Pinger
	DB             *sql.DB
	MaxUploadBytes int64
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Add chi middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(CORS)
	r.Use(LoggerMiddleware)

	documentsHandler := handlers.NewDocumentsHandler(deps.Engine, deps.MaxUploadBytes)
	maintenanceHandler := handlers.NewMaintenanceHandler(deps.Engine)
	healthHandler := handlers.NewHealthHandler(deps.Index, deps.DB)

	r.Route("/api", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Use(TenantMiddleware)
			r.Post("/", documentsHandler.Upload)
			r.Post("/search", documentsHandler.Search)
			r.Get("/{fileID}/status", documentsHandler.Status)
			r.Delete("/{fileID}", documentsHandler.Delete)
		})
		r.Method(http.MethodPost, "/maintenance/sweep", maintenanceHandler)
	})

	r.Method(http.MethodGet, "/health", healthHandler)

	return r
}
