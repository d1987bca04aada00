package httpapi

import (
	"encoding/json"
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/keffjoons/looksy-backend/internal/domain"
	"github.com/keffjoons/looksy-backend/internal/http/handlers"
	"github.com/keffjoons/looksy-backend/internal/middleware"
)

// NewRouter wires the middleware chain and routes around the App container.
func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(app.Logger))
	r.Use(middleware.Recoverer(app.Logger))
	r.Use(middleware.CORS(app.Config.AllowedOrigins))
	r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))

	r.Get("/health", app.Health)

	r.Route("/api/extension", func(r chi.Router) {
		r.Post("/tryon", app.TryOn)
		r.Post("/studio", app.StudioUpload)
		r.Get("/studio/{id}", app.StudioImage)
	})

	r.NotFound(unmatched(stdhttp.StatusNotFound))
	r.MethodNotAllowed(unmatched(stdhttp.StatusMethodNotAllowed))

	return r
}

func unmatched(status int) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "not found",
			"code":  domain.CodeNotFound,
		})
	}
}
