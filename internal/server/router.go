package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/refdesk-ai/refdesk/internal/api"
	"github.com/refdesk-ai/refdesk/internal/api/handlers"
	"github.com/refdesk-ai/refdesk/internal/api/middleware"
)

type RouterConfig struct {
	DocumentHandler  *handlers.DocumentHandler
	QuestionHandler  *handlers.QuestionHandler
	DashboardHandler *handlers.DashboardHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Generous enough for multipart PDF uploads
	const maxBodyBytes int64 = 32 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", cfg.DocumentHandler.Create)
		r.Post("/upload", cfg.DocumentHandler.Upload)
		r.Get("/", cfg.DocumentHandler.List)
		r.Get("/{id}", cfg.DocumentHandler.Get)
		r.Put("/{id}", cfg.DocumentHandler.Replace)
		r.Delete("/{id}", cfg.DocumentHandler.Delete)
		r.Get("/{id}/download", cfg.DocumentHandler.Download)

		r.Post("/{id}/questions", cfg.QuestionHandler.Ask)
		r.Get("/{id}/questions", cfg.QuestionHandler.History)
		r.Post("/{id}/summary", cfg.QuestionHandler.Summarize)
	})

	r.Get("/dashboard", cfg.DashboardHandler.Get)

	return r
}
