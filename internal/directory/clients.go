package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const httpTimeout = 10 * time.Second

// newHTTPClient returns an http.Client with a 10-second timeout.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// doGet performs a GET request and decodes the JSON response into dst.
func doGet(ctx context.Context, client *http.Client, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", rawURL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", rawURL, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response from %s: %w", rawURL, err)
	}

	return nil
}

// ---- RestCountries ----

// CountriesClient fetches the country directory from RestCountries (no API key required).
type CountriesClient struct {
	baseURL string
	client  *http.Client
}

const countriesDefaultURL = "https://restcountries.com/v3.1/all"

// NewCountriesClient constructs a CountriesClient.
func NewCountriesClient() *CountriesClient {
	return &CountriesClient{baseURL: countriesDefaultURL, client: newHTTPClient()}
}

// NewCountriesClientWithURL constructs a CountriesClient pointing at a custom base URL (for tests).
func NewCountriesClientWithURL(baseURL string) *CountriesClient {
	return &CountriesClient{baseURL: baseURL, client: newHTTPClient()}
}

type restCountriesEntry struct {
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	CCA2 string `json:"cca2"`
	Flag string `json:"flag"`
}

// Fetch retrieves all countries with their common name, 2-letter code, and flag emoji.
func (c *CountriesClient) Fetch(ctx context.Context) ([]CountryEntry, error) {
	endpoint := c.baseURL + "?fields=name,cca2,flag"

	var raw []restCountriesEntry
	if err := doGet(ctx, c.client, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("restcountries fetch: %w", err)
	}

	countries := make([]CountryEntry, 0, len(raw))
	for _, entry := range raw {
		flag := entry.Flag
		if flag == "" {
			flag = "🏳️"
		}
		countries = append(countries, CountryEntry{
			Code: entry.CCA2,
			Name: entry.Name.Common,
			Flag: flag,
		})
	}
	return countries, nil
}

// ---- GeoNames ----

// CitiesClient fetches populated places per country from GeoNames.
// Requires a registered GeoNames account username.
type CitiesClient struct {
	username string
	baseURL  string
	client   *http.Client
}

const (
	geonamesDefaultURL = "http://api.geonames.org/searchJSON"
	geonamesMaxRows    = 50
)

// NewCitiesClient constructs a CitiesClient with the given account username.
func NewCitiesClient(username string) *CitiesClient {
	return &CitiesClient{username: username, baseURL: geonamesDefaultURL, client: newHTTPClient()}
}

// NewCitiesClientWithURL constructs a CitiesClient pointing at a custom base URL (for tests).
func NewCitiesClientWithURL(baseURL, username string) *CitiesClient {
	return &CitiesClient{username: username, baseURL: baseURL, client: newHTTPClient()}
}

type geonamesResponse struct {
	Geonames []struct {
		Name       string `json:"name"`
		Lat        string `json:"lat"`
		Lng        string `json:"lng"`
		Population int    `json:"population"`
		AdminName1 string `json:"adminName1"`
	} `json:"geonames"`
}

// Fetch retrieves up to 50 populated places for the country code, ordered by
// population. Rows with unparsable coordinates are skipped.
func (c *CitiesClient) Fetch(ctx context.Context, countryCode string) ([]CityEntry, error) {
	q := url.Values{}
	q.Set("country", countryCode)
	q.Set("featureClass", "P")
	q.Set("maxRows", fmt.Sprintf("%d", geonamesMaxRows))
	q.Set("orderby", "population")
	q.Set("username", c.username)

	var raw geonamesResponse
	if err := doGet(ctx, c.client, c.baseURL+"?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("geonames fetch for %s: %w", countryCode, err)
	}

	cities := make([]CityEntry, 0, len(raw.Geonames))
	for _, g := range raw.Geonames {
		var lat, lng float64
		if _, err := fmt.Sscanf(g.Lat, "%f", &lat); err != nil {
			continue
		}
		if _, err := fmt.Sscanf(g.Lng, "%f", &lng); err != nil {
			continue
		}
		cities = append(cities, CityEntry{
			Name:       g.Name,
			Lat:        lat,
			Lng:        lng,
			Population: g.Population,
			AdminName:  g.AdminName1,
		})
	}
	return cities, nil
}
