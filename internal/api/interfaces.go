package api

import (
	"context"
	"encoding/json"

	"cityatlas/internal/directory"
	"cityatlas/internal/maps"
	"cityatlas/internal/profile"
	"cityatlas/internal/storage"
)

// Profiler defines the city-data aggregation needed by handlers.
type Profiler interface {
	FetchProfile(ctx context.Context, name string, lat, lng float64) *profile.CityData
}

// Directory defines the country/city lookup operations needed by handlers.
type Directory interface {
	Countries(ctx context.Context) ([]directory.CountryEntry, error)
	Cities(ctx context.Context, countryCode string) ([]directory.CityEntry, error)
}

// Router defines the directions passthrough needed by handlers.
type Router interface {
	Route(ctx context.Context, origin, destination maps.LatLng, mode string) (json.RawMessage, error)
}

// StreetViewBuilder defines the street-view URL construction needed by handlers.
type StreetViewBuilder interface {
	URL(lat, lng float64) (string, error)
}

// TripsRepo defines the storage operations needed by the trips handlers.
type TripsRepo interface {
	ListTrips(ctx context.Context, status string) ([]*storage.Trip, error)
	CreateTrip(ctx context.Context, t *storage.Trip) error
	DeleteTrip(ctx context.Context, id int64) error
}
