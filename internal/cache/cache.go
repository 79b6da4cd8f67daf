package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"cityatlas/internal/directory"
)

// Connect parses redisURL and returns a verified client. Redis is optional
// infrastructure here; callers treat a connection failure at startup as fatal
// only because a configured-but-unreachable URL is a deployment mistake.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// Store wraps a Redis client with typed get/set for the directory tables.
// Entries carry no TTL: directory values are immutable once built.
type Store struct {
	client *redis.Client
}

// NewStore constructs a Store.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

const countriesCacheKey = "directory:countries"

// citiesKey returns the Redis key for a country's city list.
func citiesKey(countryCode string) string {
	return "directory:cities:" + strings.ToUpper(strings.TrimSpace(countryCode))
}

// GetCountries retrieves the cached country list.
// Returns nil, nil on a cache miss (not an error).
func (s *Store) GetCountries(ctx context.Context) ([]directory.CountryEntry, error) {
	val, err := s.client.Get(ctx, countriesCacheKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get for countries: %w", err)
	}

	var countries []directory.CountryEntry
	if err := json.Unmarshal([]byte(val), &countries); err != nil {
		return nil, fmt.Errorf("unmarshaling cached countries: %w", err)
	}
	return countries, nil
}

// SetCountries stores the country list without expiry.
func (s *Store) SetCountries(ctx context.Context, countries []directory.CountryEntry) error {
	if countries == nil {
		return nil
	}

	b, err := json.Marshal(countries)
	if err != nil {
		return fmt.Errorf("marshaling countries: %w", err)
	}

	if err := s.client.Set(ctx, countriesCacheKey, b, 0).Err(); err != nil {
		return fmt.Errorf("cache set for countries: %w", err)
	}
	return nil
}

// GetCities retrieves the cached city list for the given country code.
// Returns nil, nil on a cache miss (not an error).
func (s *Store) GetCities(ctx context.Context, countryCode string) ([]directory.CityEntry, error) {
	val, err := s.client.Get(ctx, citiesKey(countryCode)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get for country %s: %w", countryCode, err)
	}

	var cities []directory.CityEntry
	if err := json.Unmarshal([]byte(val), &cities); err != nil {
		return nil, fmt.Errorf("unmarshaling cached cities for country %s: %w", countryCode, err)
	}
	return cities, nil
}

// SetCities stores a country's city list without expiry.
func (s *Store) SetCities(ctx context.Context, countryCode string, cities []directory.CityEntry) error {
	if cities == nil {
		return nil
	}

	b, err := json.Marshal(cities)
	if err != nil {
		return fmt.Errorf("marshaling cities for country %s: %w", countryCode, err)
	}

	if err := s.client.Set(ctx, citiesKey(countryCode), b, 0).Err(); err != nil {
		return fmt.Errorf("cache set for country %s: %w", countryCode, err)
	}
	return nil
}
