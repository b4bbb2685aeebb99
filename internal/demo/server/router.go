package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kroma-labs/sqlevent/internal/demo/database"
)

// Store is the part of the demo database the API reads from.
type Store interface {
	BySpecies(ctx context.Context, species string) ([]database.Animal, error)
	Count(ctx context.Context) (map[string]int64, error)
}

// NewRouter builds the demo API.
//
// Routes:
//   - GET /ping
//   - GET /readyz
//   - GET /metrics
//   - GET /animals?species=Lion
//   - GET /animals/counts
func NewRouter(store Store, health *Health, gatherer prometheus.Gatherer, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		RequestID(),
		Recovery(logger),
		Logger(logger, "/ping", "/readyz", "/metrics"),
	)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, r, http.StatusOK, map[string]string{"status": "pong"}, "")
	})
	r.Method(http.MethodGet, "/readyz", health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/animals", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			species := r.URL.Query().Get("species")
			if species == "" {
				WriteError(w, r, http.StatusBadRequest, "validation failed",
					Error{Field: "species", Message: "is required"},
				)
				return
			}

			animals, err := store.BySpecies(r.Context(), species)
			if err != nil {
				logger.Error().Err(err).Str("species", species).Msg("failed to load animals")
				WriteError(w, r, http.StatusInternalServerError, "failed to load animals")
				return
			}
			WriteList(w, r, animals)
		})

		r.Get("/counts", func(w http.ResponseWriter, r *http.Request) {
			counts, err := store.Count(r.Context())
			if err != nil {
				logger.Error().Err(err).Msg("failed to count animals")
				WriteError(w, r, http.StatusInternalServerError, "failed to count animals")
				return
			}
			WriteSuccess(w, r, http.StatusOK, counts, "")
		})
	})

	return r
}
