package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/image-tagger/internal/api"
	apiMiddleware "github.com/phrazzld/image-tagger/internal/api/middleware"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.Trace(app.logger))

	queueHandler := api.NewQueueHandler(app.queue, app.worker, app.snapshots, app.logger)
	processingHandler := api.NewProcessingHandler(app.queue, app.worker, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/queue", func(r chi.Router) {
			r.Post("/tasks", queueHandler.AddTasks)
			r.Get("/tasks", queueHandler.GetTasks)
			r.Get("/status", queueHandler.GetStatus)
			r.Post("/clear", queueHandler.ClearQueue)
			r.Delete("/state", queueHandler.ClearSavedState)
		})
		r.Route("/processing", func(r chi.Router) {
			r.Post("/start", processingHandler.Start)
			r.Post("/stop", processingHandler.Stop)
			r.Get("/status", processingHandler.GetStatus)
		})
	})

	r.Method(http.MethodGet, "/health", api.NewHealthHandler(app.queue, app.health))
	r.Method(http.MethodGet, "/metrics", app.metrics.Handler())

	return r
}
