/*
Package api exposes the planning engine over HTTP.

ROUTES:

	GET    /api/health                  Liveness probe
	POST   /api/runs                    Execute an MRP run
	GET    /api/runs                    List runs, newest first (?status=&limit=)
	GET    /api/runs/{id}               Run with its lines
	DELETE /api/runs/{id}               Delete a run and its lines
	POST   /api/runs/{id}/apply         Apply all suggestions (?auto_create=)
	POST   /api/runs/{id}/cancel        Cancel a run
	POST   /api/runs/{id}/mark-applied  Close a fully applied run
	POST   /api/lines/{id}/apply        Apply one suggestion (?auto_create=)
	GET    /api/items/{id}/explode      BOM explosion (?qty=&max_level=)
	GET    /api/items/{id}/critical-path  Longest lead-time chains (?qty=&top=)

ERRORS:

	400  validation failure, cyclic BOM
	404  run, line or item not found
	409  line already applied, invalid status transition
	502  purchasing or production failure
	500  everything else

MIDDLEWARE:

	RequestID, request logging through the service logger, panic recovery
	and CORS for the configured origins.
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vsinha/mrp-planner/pkg/logger"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.ListRuns)
			r.Post("/", h.CreateRun)
			r.Get("/{id}", h.GetRun)
			r.Delete("/{id}", h.DeleteRun)
			r.Post("/{id}/apply", h.ApplyRun)
			r.Post("/{id}/cancel", h.CancelRun)
			r.Post("/{id}/mark-applied", h.MarkRunApplied)
		})

		r.Post("/lines/{id}/apply", h.ApplyLine)
		r.Get("/items/{id}/explode", h.ExplodeItem)
		r.Get("/items/{id}/critical-path", h.CriticalPath)
	})

	return r
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
