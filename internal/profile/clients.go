package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

const httpTimeout = 10 * time.Second

// ErrNoAPIKey signals a missing credential, detected at construction and
// reported on first use. Distinct from upstream failure so the aggregator can
// surface a configuration message instead of an availability one.
var ErrNoAPIKey = errors.New("api key not configured")

// newHTTPClient returns an http.Client with a 10-second timeout.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// newBreaker returns a circuit breaker for one upstream provider. Trips after
// five consecutive failures, holds open for one minute. There are no retries:
// a rejected or failed call resolves to the field's placeholder or default.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// doRequest executes req through the provider's circuit breaker and decodes
// the JSON response into dst.
func doRequest(client *http.Client, cb *gobreaker.CircuitBreaker, req *http.Request, dst any) error {
	_, err := cb.Execute(func() (any, error) {
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s %s returned status %d", req.Method, req.URL, resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return nil, fmt.Errorf("decoding response from %s: %w", req.URL, err)
		}
		return nil, nil
	})
	return err
}

// doGet performs a GET request through the breaker and decodes JSON into dst.
func doGet(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", rawURL, err)
	}
	return doRequest(client, cb, req, dst)
}

// ---- OpenWeatherMap ----

// WeatherClient fetches current weather by coordinates from OpenWeatherMap.
type WeatherClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
}

const owmDefaultURL = "https://api.openweathermap.org/data/2.5/weather"

// NewWeatherClient constructs a WeatherClient with the given API key.
// An empty key is tolerated here and reported as ErrNoAPIKey on Fetch.
func NewWeatherClient(apiKey string) *WeatherClient {
	return NewWeatherClientWithURL(owmDefaultURL, apiKey)
}

// NewWeatherClientWithURL constructs a WeatherClient pointing at a custom base URL (for tests).
func NewWeatherClientWithURL(baseURL, apiKey string) *WeatherClient {
	return &WeatherClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  newHTTPClient(),
		cb:      newBreaker("openweathermap"),
	}
}

type owmResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Fetch retrieves metric-unit weather for the given coordinates.
func (c *WeatherClient) Fetch(ctx context.Context, lat, lng float64) (*Weather, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openweathermap: %w", ErrNoAPIKey)
	}

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lng))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	var raw owmResponse
	if err := doGet(ctx, c.client, c.cb, c.baseURL+"?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("openweathermap fetch at %f,%f: %w", lat, lng, err)
	}

	w := &Weather{
		Temperature: raw.Main.Temp,
		Humidity:    raw.Main.Humidity,
		WindSpeed:   raw.Wind.Speed,
	}
	if len(raw.Weather) > 0 {
		w.Description = raw.Weather[0].Description
		w.Icon = raw.Weather[0].Icon
	}
	return w, nil
}

// ---- Google Places ----

// PlacesClient fetches nearby tourist attractions from the Places API.
type PlacesClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
}

const (
	placesDefaultURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"
	placesRadius     = 5000
	placesLimit      = 20
)

// NewPlacesClient constructs a PlacesClient with the given API key.
func NewPlacesClient(apiKey string) *PlacesClient {
	return NewPlacesClientWithURL(placesDefaultURL, apiKey)
}

// NewPlacesClientWithURL constructs a PlacesClient pointing at a custom base URL (for tests).
func NewPlacesClientWithURL(baseURL, apiKey string) *PlacesClient {
	return &PlacesClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  newHTTPClient(),
		cb:      newBreaker("places"),
	}
}

type placesResponse struct {
	Results []struct {
		Name     string   `json:"name"`
		Rating   float64  `json:"rating"`
		Types    []string `json:"types"`
		Vicinity string   `json:"vicinity"`
		Geometry struct {
			Location Coordinates `json:"location"`
		} `json:"geometry"`
		Photos []struct {
			PhotoReference string `json:"photo_reference"`
		} `json:"photos"`
	} `json:"results"`
}

// Fetch retrieves up to 20 tourist attractions within 5km of the coordinates.
func (c *PlacesClient) Fetch(ctx context.Context, lat, lng float64) ([]Place, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("places: %w", ErrNoAPIKey)
	}

	q := url.Values{}
	q.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	q.Set("radius", fmt.Sprintf("%d", placesRadius))
	q.Set("type", "tourist_attraction")
	q.Set("key", c.apiKey)

	var raw placesResponse
	if err := doGet(ctx, c.client, c.cb, c.baseURL+"?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("places fetch at %f,%f: %w", lat, lng, err)
	}

	results := raw.Results
	if len(results) > placesLimit {
		results = results[:placesLimit]
	}

	places := make([]Place, 0, len(results))
	for _, p := range results {
		place := Place{
			Name:     p.Name,
			Rating:   p.Rating,
			Types:    p.Types,
			Vicinity: p.Vicinity,
			Location: p.Geometry.Location,
		}
		if len(p.Photos) > 0 {
			ref := p.Photos[0].PhotoReference
			place.PhotoReference = &ref
		}
		places = append(places, place)
	}
	return places, nil
}

// ---- Wikipedia ----

// LandmarkClient fetches an encyclopedic summary of the city from the
// Wikipedia REST API. Lookup failure yields a synthesized fallback extract,
// never an error: this adapter has a built-in default.
type LandmarkClient struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	log     *slog.Logger
}

const wikipediaDefaultURL = "https://en.wikipedia.org/api/rest_v1/page/summary"

// NewLandmarkClient constructs a LandmarkClient.
func NewLandmarkClient(log *slog.Logger) *LandmarkClient {
	return NewLandmarkClientWithURL(wikipediaDefaultURL, log)
}

// NewLandmarkClientWithURL constructs a LandmarkClient pointing at a custom base URL (for tests).
func NewLandmarkClientWithURL(baseURL string, log *slog.Logger) *LandmarkClient {
	return &LandmarkClient{
		baseURL: baseURL,
		client:  newHTTPClient(),
		cb:      newBreaker("wikipedia"),
		log:     log,
	}
}

type wikipediaSummary struct {
	Title     string `json:"title"`
	Extract   string `json:"extract"`
	Thumbnail *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
}

// Fetch retrieves the summary page for the city, keyed by the
// underscore-joined city name.
func (c *LandmarkClient) Fetch(ctx context.Context, city string) *Landmark {
	title := strings.ReplaceAll(city, " ", "_")

	var raw wikipediaSummary
	if err := doGet(ctx, c.client, c.cb, c.baseURL+"/"+url.PathEscape(title), &raw); err != nil {
		c.log.Warn("wikipedia fetch failed", "city", city, "err", err)
		return &Landmark{
			Extract: fmt.Sprintf("Explore the beautiful city of %s with its rich history and culture.", city),
		}
	}

	lm := &Landmark{Title: raw.Title, Extract: raw.Extract}
	if lm.Title == "" {
		lm.Title = city
	}
	if raw.Thumbnail != nil && raw.Thumbnail.Source != "" {
		src := raw.Thumbnail.Source
		lm.Thumbnail = &src
	}
	return lm
}

// ---- Overpass ----

// AccessibilityClient counts wheelchair-accessible map features near the
// coordinates via the Overpass API. Failure yields a fixed neutral default
// (score 0.5), never an error: same built-in-default policy as LandmarkClient.
type AccessibilityClient struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	log     *slog.Logger
}

const (
	overpassDefaultURL  = "https://overpass-api.de/api/interpreter"
	accessibilityRadius = 1000
)

// NewAccessibilityClient constructs an AccessibilityClient.
func NewAccessibilityClient(log *slog.Logger) *AccessibilityClient {
	return NewAccessibilityClientWithURL(overpassDefaultURL, log)
}

// NewAccessibilityClientWithURL constructs an AccessibilityClient pointing at a custom URL (for tests).
func NewAccessibilityClientWithURL(baseURL string, log *slog.Logger) *AccessibilityClient {
	return &AccessibilityClient{
		baseURL: baseURL,
		client:  newHTTPClient(),
		cb:      newBreaker("overpass"),
		log:     log,
	}
}

type overpassResponse struct {
	Elements []json.RawMessage `json:"elements"`
}

// Fetch counts wheelchair=yes nodes and ways within 1km and scores them,
// capped at 1.0 (ten or more features).
func (c *AccessibilityClient) Fetch(ctx context.Context, lat, lng float64) *Accessibility {
	query := fmt.Sprintf(`[out:json][timeout:25];
(
  way["wheelchair"="yes"](around:%d,%f,%f);
  node["wheelchair"="yes"](around:%d,%f,%f);
);
out geom;`, accessibilityRadius, lat, lng, accessibilityRadius, lat, lng)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(query))
	if err != nil {
		c.log.Warn("overpass request build failed", "err", err)
		return accessibilityDefault()
	}
	req.Header.Set("Content-Type", "text/plain")

	var raw overpassResponse
	if err := doRequest(c.client, c.cb, req, &raw); err != nil {
		c.log.Warn("overpass fetch failed", "lat", lat, "lng", lng, "err", err)
		return accessibilityDefault()
	}

	count := len(raw.Elements)
	score := float64(count) / 10
	if score > 1.0 {
		score = 1.0
	}

	return &Accessibility{
		FeatureCount: &count,
		Score:        score,
		Description:  fmt.Sprintf("Found %d wheelchair-accessible features nearby", count),
	}
}

func accessibilityDefault() *Accessibility {
	return &Accessibility{
		Score:       0.5,
		Description: "Accessibility information not available",
	}
}

// ---- Traffic ----

// TrafficClient is a static stand-in implementing the same capability shape
// as the networked adapters. Swap it for a real traffic source without
// touching the aggregator.
type TrafficClient struct {
	now func() time.Time
}

// NewTrafficClient constructs a TrafficClient using wall-clock time.
func NewTrafficClient() *TrafficClient {
	return &TrafficClient{now: time.Now}
}

// NewTrafficClientWithClock constructs a TrafficClient with a fixed clock (for tests).
func NewTrafficClientWithClock(now func() time.Time) *TrafficClient {
	return &TrafficClient{now: now}
}

// Fetch returns the static traffic payload. No network call is made.
func (c *TrafficClient) Fetch(_ context.Context, _, _ float64) *Traffic {
	return &Traffic{
		Status:      "moderate",
		Description: "Moderate traffic conditions",
		LastUpdated: c.now().Format(time.RFC3339),
	}
}
