package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// NewRouter builds and returns the Chi router with all routes configured.
// The API is browser-facing: CORS is restricted to the configured origins.
// Rate limiting is applied globally: 60 requests per minute per IP.
func NewRouter(handlers *Handlers, corsOrigins []string, db, redisClient Pinger, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httprate.LimitByIP(60, time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/api/health", HealthHandlerFunc(db, redisClient, log))

	r.Get("/api/countries", handlers.GetCountries)
	r.Get("/api/cities/{countryCode}", handlers.GetCities)
	r.Get("/api/city-data/{cityName}", handlers.GetCityData)
	r.Post("/api/directions", handlers.GetDirections)
	r.Get("/api/street-view", handlers.GetStreetView)

	r.Route("/api/trips", func(r chi.Router) {
		r.Get("/", handlers.ListTrips)
		r.Post("/", handlers.CreateTrip)
		r.Delete("/{id}", handlers.DeleteTrip)
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
