package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"photomotion/internal/http/handlers"
	"photomotion/internal/infra"
	"photomotion/internal/middleware"
)

// NewRouter assembles the chi router with the service middleware chain.
func NewRouter(app *handlers.App, logger infra.Logger, cfg *infra.Config, lookup middleware.CountryLookup) stdhttp.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.I18N(cfg.DefaultLocale, lookup),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/key", func(r chi.Router) {
		r.Get("/status", app.KeyStatus)
		r.Post("/", app.KeySelect)
	})

	r.Route("/v1/generations", func(r chi.Router) {
		r.Post("/", app.GenerationsCreate)
		r.Get("/{generation_id}", app.GenerationStatus)
		r.Get("/{generation_id}/video", app.GenerationVideo)
		r.Post("/{generation_id}/reset", app.GenerationReset)
	})

	r.Post("/v1/session/reset", app.SessionReset)

	return r
}
