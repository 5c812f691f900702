package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/place5-inc/pinkroom-api-sub000/internal/http/handlers"
	"github.com/place5-inc/pinkroom-api-sub000/internal/infra"
	"github.com/place5-inc/pinkroom-api-sub000/internal/middleware"
)

// Options carries router-level configuration.
type Options struct {
	Logger          infra.Logger
	MetricsHandler  stdhttp.Handler
	RateLimitPerMin int
	AllowedOrigins  []string
}

// NewRouter assembles the HTTP surface of the API server.
func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logger(opts.Logger))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(opts.AllowedOrigins))
	}

	r.Get("/v1/healthz", app.Health)
	if opts.MetricsHandler != nil {
		r.Method(stdhttp.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Route("/v1/photos", func(r chi.Router) {
		if opts.RateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		}
		r.Post("/", app.UploadPhoto)
		r.Post("/{photoID}/generate", app.GeneratePhoto)
		r.Post("/{photoID}/designs/{designID}/generate", app.GenerateDesign)
		r.Get("/{photoID}/results", app.ListResults)
		r.Post("/{photoID}/favorite", app.SetFavorite)
	})

	r.Get("/v1/admin/failing", app.ListFailing)

	return r
}
