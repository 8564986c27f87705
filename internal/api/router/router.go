// Package router assembles the HTTP surface.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Akshatoff/Alloc8/internal/chat"
	"github.com/Akshatoff/Alloc8/internal/http/handlers"
	httpmiddleware "github.com/Akshatoff/Alloc8/internal/http/middleware"
	"github.com/Akshatoff/Alloc8/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Sessions           *handlers.SessionsHandler
	Plans              *handlers.PlansHandler
	Chat               *chat.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", cfg.Sessions.Create)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", cfg.Sessions.Get)
			r.Delete("/", cfg.Sessions.Delete)
			r.Post("/report", cfg.Sessions.Report)
			r.Post("/answer", cfg.Sessions.Answer)
			r.Post("/strategy", cfg.Sessions.Strategy)
			r.Post("/plan", cfg.Sessions.Plan)
			r.Post("/save", cfg.Sessions.Save)
			r.Post("/load", cfg.Sessions.Load)
			r.Post("/reset", cfg.Sessions.Reset)
		})
	})

	r.Route("/plans", func(r chi.Router) {
		r.Get("/", cfg.Plans.List)
		r.Get("/watch", cfg.Plans.Watch)
	})

	if cfg.Chat != nil {
		r.Get("/chat/ws", cfg.Chat.ServeHTTP)
	}

	return r
}
