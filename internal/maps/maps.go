// Package maps wraps the credentialed Google Maps surfaces: the directions
// passthrough and the street-view URL builder.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNoAPIKey signals that the Maps credential is not configured.
var ErrNoAPIKey = errors.New("maps api key not configured")

const httpTimeout = 10 * time.Second

// LatLng is a coordinate pair in a directions request.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ---- Directions ----

// DirectionsClient forwards routing requests to the Google Directions API and
// returns the provider's payload untouched.
type DirectionsClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

const directionsDefaultURL = "https://maps.googleapis.com/maps/api/directions/json"

// NewDirectionsClient constructs a DirectionsClient with the given API key.
func NewDirectionsClient(apiKey string) *DirectionsClient {
	return NewDirectionsClientWithURL(directionsDefaultURL, apiKey)
}

// NewDirectionsClientWithURL constructs a DirectionsClient pointing at a custom base URL (for tests).
func NewDirectionsClientWithURL(baseURL, apiKey string) *DirectionsClient {
	return &DirectionsClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// Route fetches directions between origin and destination and returns the raw
// routing payload.
func (c *DirectionsClient) Route(ctx context.Context, origin, destination LatLng, mode string) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if mode == "" {
		mode = "driving"
	}

	q := url.Values{}
	q.Set("origin", fmt.Sprintf("%f,%f", origin.Lat, origin.Lng))
	q.Set("destination", fmt.Sprintf("%f,%f", destination.Lat, destination.Lng))
	q.Set("mode", mode)
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating directions request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directions fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directions fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading directions response: %w", err)
	}
	return json.RawMessage(body), nil
}

// ---- Street View ----

// StreetView builds static street-view image URLs. Pure string construction,
// no network call.
type StreetView struct {
	apiKey  string
	baseURL string
}

const streetViewDefaultURL = "https://maps.googleapis.com/maps/api/streetview"

// NewStreetView constructs a StreetView builder with the given API key.
func NewStreetView(apiKey string) *StreetView {
	return &StreetView{apiKey: apiKey, baseURL: streetViewDefaultURL}
}

// URL returns the image URL for the given coordinates.
func (s *StreetView) URL(lat, lng float64) (string, error) {
	if s.apiKey == "" {
		return "", ErrNoAPIKey
	}
	return fmt.Sprintf("%s?size=640x640&location=%f,%f&key=%s", s.baseURL, lat, lng, s.apiKey), nil
}
