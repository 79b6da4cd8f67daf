package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityatlas/internal/api"
	"cityatlas/internal/directory"
	"cityatlas/internal/maps"
	"cityatlas/internal/profile"
	"cityatlas/internal/storage"
)

// ---- mock implementations ----

type mockProfiler struct {
	calls int32
	fn    func(ctx context.Context, name string, lat, lng float64) *profile.CityData
}

func (m *mockProfiler) FetchProfile(ctx context.Context, name string, lat, lng float64) *profile.CityData {
	atomic.AddInt32(&m.calls, 1)
	return m.fn(ctx, name, lat, lng)
}

type mockDirectory struct {
	countriesFn func(ctx context.Context) ([]directory.CountryEntry, error)
	citiesFn    func(ctx context.Context, code string) ([]directory.CityEntry, error)
}

func (m *mockDirectory) Countries(ctx context.Context) ([]directory.CountryEntry, error) {
	return m.countriesFn(ctx)
}
func (m *mockDirectory) Cities(ctx context.Context, code string) ([]directory.CityEntry, error) {
	return m.citiesFn(ctx, code)
}

type mockRouter struct {
	fn func(ctx context.Context, origin, destination maps.LatLng, mode string) (json.RawMessage, error)
}

func (m *mockRouter) Route(ctx context.Context, origin, destination maps.LatLng, mode string) (json.RawMessage, error) {
	return m.fn(ctx, origin, destination, mode)
}

type mockStreetView struct {
	fn func(lat, lng float64) (string, error)
}

func (m *mockStreetView) URL(lat, lng float64) (string, error) { return m.fn(lat, lng) }

type mockTrips struct {
	listFn   func(ctx context.Context, status string) ([]*storage.Trip, error)
	createFn func(ctx context.Context, t *storage.Trip) error
	deleteFn func(ctx context.Context, id int64) error
}

func (m *mockTrips) ListTrips(ctx context.Context, status string) ([]*storage.Trip, error) {
	return m.listFn(ctx, status)
}
func (m *mockTrips) CreateTrip(ctx context.Context, t *storage.Trip) error {
	return m.createFn(ctx, t)
}
func (m *mockTrips) DeleteTrip(ctx context.Context, id int64) error { return m.deleteFn(ctx, id) }

type mockPinger struct{ err error }

func (m *mockPinger) Ping(context.Context) error { return m.err }

// ---- helpers ----

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleCityData(_ context.Context, name string, lat, lng float64) *profile.CityData {
	return &profile.CityData{
		Name:          name,
		Coordinates:   profile.Coordinates{Lat: lat, Lng: lng},
		Weather:       &profile.Weather{Temperature: 22.5},
		Places:        []profile.Place{},
		Landmarks:     &profile.Landmark{Extract: "A city."},
		Accessibility: &profile.Accessibility{Score: 0.5},
		Traffic:       &profile.Traffic{Status: "moderate"},
		Storytelling:  &profile.Story{Story: "Once upon a time."},
	}
}

type deps struct {
	profiler   *mockProfiler
	directory  *mockDirectory
	directions *mockRouter
	streetView *mockStreetView
	trips      api.TripsRepo
}

func defaultDeps() *deps {
	return &deps{
		profiler: &mockProfiler{fn: sampleCityData},
		directory: &mockDirectory{
			countriesFn: func(context.Context) ([]directory.CountryEntry, error) {
				return []directory.CountryEntry{{Code: "FR", Name: "France", Flag: "🇫🇷"}}, nil
			},
			citiesFn: func(_ context.Context, code string) ([]directory.CityEntry, error) {
				return []directory.CityEntry{{Name: "Paris", Population: 2161000}}, nil
			},
		},
		directions: &mockRouter{fn: func(context.Context, maps.LatLng, maps.LatLng, string) (json.RawMessage, error) {
			return json.RawMessage(`{"status":"OK"}`), nil
		}},
		streetView: &mockStreetView{fn: func(lat, lng float64) (string, error) {
			return "https://example.org/streetview", nil
		}},
		trips: nil,
	}
}

func newTestServer(t *testing.T, d *deps) *httptest.Server {
	t.Helper()
	handlers := api.NewHandlers(d.profiler, d.directory, d.directions, d.streetView, d.trips, discardLogger())
	router := api.NewRouter(handlers, []string{"http://localhost:5173"}, nil, nil, discardLogger())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		if len(data) > 0 && (data[0] == '{') {
			require.NoError(t, json.Unmarshal(data, &decoded))
		}
	}
	return resp, decoded
}

// ---- countries / cities ----

func TestGetCountries(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	resp, err := http.Get(srv.URL + "/api/countries")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var countries []directory.CountryEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&countries))
	require.Len(t, countries, 1)
	assert.Equal(t, "FR", countries[0].Code)
}

func TestGetCountries_UpstreamError(t *testing.T) {
	d := defaultDeps()
	d.directory.countriesFn = func(context.Context) ([]directory.CountryEntry, error) {
		return nil, errors.New("upstream down")
	}
	srv := newTestServer(t, d)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/countries", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to fetch countries", body["error"])
}

func TestGetCities(t *testing.T) {
	d := defaultDeps()
	var gotCode string
	d.directory.citiesFn = func(_ context.Context, code string) ([]directory.CityEntry, error) {
		gotCode = code
		return []directory.CityEntry{{Name: "Paris", Population: 2161000}}, nil
	}
	srv := newTestServer(t, d)

	resp, err := http.Get(srv.URL + "/api/cities/FR")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "FR", gotCode)
}

// ---- city data ----

func TestGetCityData(t *testing.T) {
	d := defaultDeps()
	srv := newTestServer(t, d)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/city-data/Paris?lat=48.85&lng=2.35", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "Paris", body["name"])
	for _, field := range []string{"coordinates", "weather", "places", "landmarks", "accessibility", "traffic", "storytelling"} {
		assert.Contains(t, body, field)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&d.profiler.calls))
}

func TestGetCityData_MissingCoordinates(t *testing.T) {
	d := defaultDeps()
	srv := newTestServer(t, d)

	for _, path := range []string{
		"/api/city-data/Paris",
		"/api/city-data/Paris?lat=48.85",
		"/api/city-data/Paris?lng=2.35",
		"/api/city-data/Paris?lat=abc&lng=2.35",
	} {
		resp, body := doJSON(t, http.MethodGet, srv.URL+path, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "path %s", path)
		assert.Equal(t, "Latitude and longitude required", body["error"])
	}

	assert.Equal(t, int32(0), atomic.LoadInt32(&d.profiler.calls), "no provider call without coordinates")
}

// ---- directions ----

func TestGetDirections(t *testing.T) {
	d := defaultDeps()
	var gotMode string
	d.directions.fn = func(_ context.Context, origin, dest maps.LatLng, mode string) (json.RawMessage, error) {
		gotMode = mode
		assert.Equal(t, 48.85, origin.Lat)
		assert.Equal(t, 51.51, dest.Lat)
		return json.RawMessage(`{"status":"OK","routes":[]}`), nil
	}
	srv := newTestServer(t, d)

	body := `{"origin":{"lat":48.85,"lng":2.35},"destination":{"lat":51.51,"lng":-0.13},"mode":"walking"}`
	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/api/directions", body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", decoded["status"], "routing payload passes through untouched")
	assert.Equal(t, "walking", gotMode)
}

func TestGetDirections_MissingEndpoints(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/directions", `{"origin":{"lat":1,"lng":2}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Origin and destination required", body["error"])
}

func TestGetDirections_NoAPIKey(t *testing.T) {
	d := defaultDeps()
	d.directions.fn = func(context.Context, maps.LatLng, maps.LatLng, string) (json.RawMessage, error) {
		return nil, maps.ErrNoAPIKey
	}
	srv := newTestServer(t, d)

	body := `{"origin":{"lat":1,"lng":2},"destination":{"lat":3,"lng":4}}`
	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/api/directions", body)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Google Maps API key not configured", decoded["error"])
}

// ---- street view ----

func TestGetStreetView(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/street-view?lat=48.85&lng=2.35", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://example.org/streetview", body["street_view_url"])
}

func TestGetStreetView_MissingParams(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/street-view?lat=48.85", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid parameters or API key not configured", body["error"])
}

func TestGetStreetView_NoAPIKey(t *testing.T) {
	d := defaultDeps()
	d.streetView.fn = func(float64, float64) (string, error) { return "", maps.ErrNoAPIKey }
	srv := newTestServer(t, d)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/street-view?lat=1&lng=2", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid parameters or API key not configured", body["error"])
}

// ---- trips ----

func TestTrips_NoDatabaseConfigured(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/trips", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "trips storage not configured", body["error"])
}

func TestListTrips(t *testing.T) {
	d := defaultDeps()
	d.trips = &mockTrips{
		listFn: func(_ context.Context, status string) ([]*storage.Trip, error) {
			assert.Equal(t, "planned", status)
			return []*storage.Trip{{ID: 1, Name: "Coastal Road Trip", Status: "planned"}}, nil
		},
	}
	srv := newTestServer(t, d)

	resp, err := http.Get(srv.URL + "/api/trips?status=planned")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var trips []*storage.Trip
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&trips))
	require.Len(t, trips, 1)
	assert.Equal(t, "Coastal Road Trip", trips[0].Name)
}

func TestListTrips_InvalidStatus(t *testing.T) {
	d := defaultDeps()
	d.trips = &mockTrips{}
	srv := newTestServer(t, d)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/trips?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid status", body["error"])
}

func TestCreateTrip_Handler(t *testing.T) {
	d := defaultDeps()
	d.trips = &mockTrips{
		createFn: func(_ context.Context, trip *storage.Trip) error {
			trip.ID = 42
			trip.CreatedAt = time.Now()
			return nil
		},
	}
	srv := newTestServer(t, d)

	body := `{"name":"Historic Towns Route","starts_on":"2025-02-02T00:00:00Z","waypoints":12}`
	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/api/trips", body)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(42), decoded["id"])
	assert.Equal(t, "draft", decoded["status"], "status defaults to draft")
}

func TestCreateTrip_MissingName(t *testing.T) {
	d := defaultDeps()
	d.trips = &mockTrips{}
	srv := newTestServer(t, d)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/trips", `{"waypoints":3}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "trip name required", body["error"])
}

func TestDeleteTrip_Handler(t *testing.T) {
	d := defaultDeps()
	d.trips = &mockTrips{
		deleteFn: func(_ context.Context, id int64) error {
			assert.Equal(t, int64(7), id)
			return nil
		},
	}
	srv := newTestServer(t, d)

	resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/api/trips/7", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDeleteTrip_NotFound_Handler(t *testing.T) {
	d := defaultDeps()
	d.trips = &mockTrips{
		deleteFn: func(context.Context, int64) error { return storage.ErrTripNotFound },
	}
	srv := newTestServer(t, d)

	resp, body := doJSON(t, http.MethodDelete, srv.URL+"/api/trips/99", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "trip not found", body["error"])
}

// ---- health ----

func TestHealth_BackendsDisabled(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "disabled", body["db"])
	assert.Equal(t, "disabled", body["redis"])
}

func TestHealth_Degraded(t *testing.T) {
	d := defaultDeps()
	handlers := api.NewHandlers(d.profiler, d.directory, d.directions, d.streetView, nil, discardLogger())
	router := api.NewRouter(handlers, []string{"*"}, &mockPinger{err: errors.New("down")}, &mockPinger{}, discardLogger())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "error", body["db"])
	assert.Equal(t, "ok", body["redis"])
}
