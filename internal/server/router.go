package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kiesman99/tilewall/internal/api"
)

// NewRouter mounts the API under /api/v1 behind the standard middleware stack
func NewRouter(apiServer *Server, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Add middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors)

	r.Route("/api/v1", func(r chi.Router) {
		api.HandlerWithOptions(apiServer, api.ChiServerOptions{
			BaseRouter:       r,
			ErrorHandlerFunc: apiServer.HandleParamError,
		})
	})

	// Legacy health endpoint (without /api/v1 prefix for backward compatibility)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/v1/health", http.StatusMovedPermanently)
	})

	return r
}

// cors allows browser front ends on other origins to call the API
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID, X-Tile-Count, X-Preview-Size")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
