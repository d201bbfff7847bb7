package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/askbase/internal/api"
	"github.com/cloo-solutions/askbase/internal/api/handlers"
	"github.com/cloo-solutions/askbase/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator     middleware.AuthValidator
	ChatHandler       *handlers.ChatHandler
	ViolationsHandler *handlers.ViolationsHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/v1", func(r chi.Router) {
			r.Post("/chat", cfg.ChatHandler.Answer)
			r.Get("/chatbots/{chatbotID}/violations", cfg.ViolationsHandler.List)
		})
	})

	return r
}
