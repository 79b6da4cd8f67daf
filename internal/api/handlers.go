package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"cityatlas/internal/maps"
	"cityatlas/internal/storage"
)

// Handlers holds the dependencies for all HTTP handlers.
// trips may be nil when no database is configured; the trips endpoints then
// respond 503 instead of taking the process down.
type Handlers struct {
	profiler   Profiler
	directory  Directory
	directions Router
	streetView StreetViewBuilder
	trips      TripsRepo
	log        *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(
	profiler Profiler,
	dir Directory,
	directions Router,
	streetView StreetViewBuilder,
	trips TripsRepo,
	log *slog.Logger,
) *Handlers {
	return &Handlers{
		profiler:   profiler,
		directory:  dir,
		directions: directions,
		streetView: streetView,
		trips:      trips,
		log:        log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GetCountries handles GET /api/countries.
func (h *Handlers) GetCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.directory.Countries(r.Context())
	if err != nil {
		h.log.Error("country list failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch countries"})
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

// GetCities handles GET /api/cities/{countryCode}.
func (h *Handlers) GetCities(w http.ResponseWriter, r *http.Request) {
	countryCode := chi.URLParam(r, "countryCode")

	cities, err := h.directory.Cities(r.Context(), countryCode)
	if err != nil {
		h.log.Error("city list failed", "country", countryCode, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch cities"})
		return
	}
	writeJSON(w, http.StatusOK, cities)
}

// GetCityData handles GET /api/city-data/{cityName}?lat=..&lng=..
// Missing or non-numeric coordinates are the only way this call fails; no
// provider is contacted in that case.
func (h *Handlers) GetCityData(w http.ResponseWriter, r *http.Request) {
	cityName := chi.URLParam(r, "cityName")

	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Latitude and longitude required"})
		return
	}

	data := h.profiler.FetchProfile(r.Context(), cityName, lat, lng)
	writeJSON(w, http.StatusOK, data)
}

// directionsRequest is the body of POST /api/directions.
type directionsRequest struct {
	Origin      *maps.LatLng `json:"origin"`
	Destination *maps.LatLng `json:"destination"`
	Mode        string       `json:"mode"`
}

// GetDirections handles POST /api/directions. The routing provider's payload
// is returned untouched.
func (h *Handlers) GetDirections(w http.ResponseWriter, r *http.Request) {
	var req directionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Origin == nil || req.Destination == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Origin and destination required"})
		return
	}

	payload, err := h.directions.Route(r.Context(), *req.Origin, *req.Destination, req.Mode)
	if err != nil {
		if errors.Is(err, maps.ErrNoAPIKey) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Google Maps API key not configured"})
			return
		}
		h.log.Error("directions fetch failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get directions"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// GetStreetView handles GET /api/street-view?lat=..&lng=..
func (h *Handlers) GetStreetView(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid parameters or API key not configured"})
		return
	}

	u, err := h.streetView.URL(lat, lng)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid parameters or API key not configured"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"street_view_url": u})
}

// validTripStatus reports whether s is one of the accepted trip statuses.
func validTripStatus(s string) bool {
	switch s {
	case "draft", "planned", "completed":
		return true
	}
	return false
}

// tripsUnavailable writes the degraded-mode response for trips endpoints.
func (h *Handlers) tripsUnavailable(w http.ResponseWriter) bool {
	if h.trips != nil {
		return false
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "trips storage not configured"})
	return true
}

// ListTrips handles GET /api/trips?status=..
func (h *Handlers) ListTrips(w http.ResponseWriter, r *http.Request) {
	if h.tripsUnavailable(w) {
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" && !validTripStatus(status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	trips, err := h.trips.ListTrips(r.Context(), status)
	if err != nil {
		h.log.Error("trip list failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list trips"})
		return
	}
	if trips == nil {
		trips = []*storage.Trip{}
	}
	writeJSON(w, http.StatusOK, trips)
}

// CreateTrip handles POST /api/trips.
func (h *Handlers) CreateTrip(w http.ResponseWriter, r *http.Request) {
	if h.tripsUnavailable(w) {
		return
	}

	var t storage.Trip
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid trip payload"})
		return
	}
	if t.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "trip name required"})
		return
	}
	if t.Status == "" {
		t.Status = "draft"
	}
	if !validTripStatus(t.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	if err := h.trips.CreateTrip(r.Context(), &t); err != nil {
		h.log.Error("trip create failed", "name", t.Name, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create trip"})
		return
	}
	writeJSON(w, http.StatusCreated, &t)
}

// DeleteTrip handles DELETE /api/trips/{id}.
func (h *Handlers) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	if h.tripsUnavailable(w) {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid trip id"})
		return
	}

	if err := h.trips.DeleteTrip(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrTripNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "trip not found"})
			return
		}
		h.log.Error("trip delete failed", "id", id, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete trip"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pinger is a connectivity check for an optional backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerFunc returns an http.HandlerFunc reporting db and redis
// connectivity. A nil pinger reports "disabled" and does not degrade health.
func HealthHandlerFunc(db, redis Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		check := func(name string, p Pinger) string {
			if p == nil {
				return "disabled"
			}
			if err := p.Ping(ctx); err != nil {
				log.Error("health check ping failed", "service", name, "err", err)
				status = http.StatusServiceUnavailable
				return "error"
			}
			return "ok"
		}

		dbStatus := check("db", db)
		redisStatus := check("redis", redis)

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}

		writeJSON(w, status, map[string]string{
			"status": overall,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	}
}
