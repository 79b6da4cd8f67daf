// Package directory serves the country and city lookup tables. Both tables
// are populated lazily, at most once per key per process, and are immutable
// once populated. There is no invalidation.
package directory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

const (
	cityListLimit     = 30
	minCityPopulation = 10000

	countriesKey = "countries"
)

// CountryEntry is one row of the country list.
type CountryEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// CityEntry is one row of a per-country city list.
type CityEntry struct {
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Population int     `json:"population"`
	AdminName  string  `json:"admin_name"`
}

// countriesFetcher is the interface satisfied by CountriesClient.
type countriesFetcher interface {
	Fetch(ctx context.Context) ([]CountryEntry, error)
}

// citiesFetcher is the interface satisfied by CitiesClient.
type citiesFetcher interface {
	Fetch(ctx context.Context, countryCode string) ([]CityEntry, error)
}

// SecondLevel is an optional shared store consulted between the in-process
// memo and the upstream fetch. Satisfied by cache.Store. Get returns
// nil, nil on a miss.
type SecondLevel interface {
	GetCountries(ctx context.Context) ([]CountryEntry, error)
	SetCountries(ctx context.Context, countries []CountryEntry) error
	GetCities(ctx context.Context, countryCode string) ([]CityEntry, error)
	SetCities(ctx context.Context, countryCode string, cities []CityEntry) error
}

// Service owns the two lookup tables. Population is guarded by a singleflight
// group: concurrent first requests for the same key share one upstream call.
// A failed population is not memoized; the next request retries.
type Service struct {
	countries countriesFetcher
	cities    citiesFetcher
	store     SecondLevel // nil when redis is not configured
	log       *slog.Logger

	sf singleflight.Group

	mu          sync.RWMutex
	countryList []CountryEntry
	cityLists   map[string][]CityEntry
}

// NewService constructs a Service with production clients.
func NewService(geonamesUser string, store SecondLevel, log *slog.Logger) *Service {
	return NewServiceWithClients(NewCountriesClient(), NewCitiesClient(geonamesUser), store, log)
}

// NewServiceWithClients constructs a Service with injectable clients (used in tests).
func NewServiceWithClients(countries countriesFetcher, cities citiesFetcher, store SecondLevel, log *slog.Logger) *Service {
	return &Service{
		countries: countries,
		cities:    cities,
		store:     store,
		log:       log,
		cityLists: make(map[string][]CityEntry),
	}
}

// Countries returns the full country list, sorted ascending by name and
// unique by code, fetching it on first use.
func (s *Service) Countries(ctx context.Context) ([]CountryEntry, error) {
	s.mu.RLock()
	cached := s.countryList
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	v, err, _ := s.sf.Do(countriesKey, func() (any, error) {
		// A caller that queued behind the winning flight may arrive after the
		// memo is already set.
		s.mu.RLock()
		memo := s.countryList
		s.mu.RUnlock()
		if memo != nil {
			return memo, nil
		}

		if s.store != nil {
			stored, err := s.store.GetCountries(ctx)
			if err != nil {
				s.log.Warn("country store get failed", "err", err)
			}
			if stored != nil {
				s.memoizeCountries(stored)
				return stored, nil
			}
		}

		raw, err := s.countries.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("populating country list: %w", err)
		}
		list := normalizeCountries(raw)

		if s.store != nil {
			if err := s.store.SetCountries(ctx, list); err != nil {
				s.log.Warn("country store set failed", "err", err)
			}
		}
		s.memoizeCountries(list)
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]CountryEntry), nil
}

// Cities returns the city list for a country code: population above 10000,
// sorted descending by population, at most 30 entries. Fetched on first use
// per country code.
func (s *Service) Cities(ctx context.Context, countryCode string) ([]CityEntry, error) {
	s.mu.RLock()
	cached, ok := s.cityLists[countryCode]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := s.sf.Do("cities:"+countryCode, func() (any, error) {
		s.mu.RLock()
		memo, ok := s.cityLists[countryCode]
		s.mu.RUnlock()
		if ok {
			return memo, nil
		}

		if s.store != nil {
			stored, err := s.store.GetCities(ctx, countryCode)
			if err != nil {
				s.log.Warn("city store get failed", "country", countryCode, "err", err)
			}
			if stored != nil {
				s.memoizeCities(countryCode, stored)
				return stored, nil
			}
		}

		raw, err := s.cities.Fetch(ctx, countryCode)
		if err != nil {
			return nil, fmt.Errorf("populating city list for %s: %w", countryCode, err)
		}
		list := normalizeCities(raw)

		if s.store != nil {
			if err := s.store.SetCities(ctx, countryCode, list); err != nil {
				s.log.Warn("city store set failed", "country", countryCode, "err", err)
			}
		}
		s.memoizeCities(countryCode, list)
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]CityEntry), nil
}

func (s *Service) memoizeCountries(list []CountryEntry) {
	s.mu.Lock()
	if s.countryList == nil {
		s.countryList = list
	}
	s.mu.Unlock()
}

func (s *Service) memoizeCities(countryCode string, list []CityEntry) {
	s.mu.Lock()
	if _, ok := s.cityLists[countryCode]; !ok {
		s.cityLists[countryCode] = list
	}
	s.mu.Unlock()
}

// normalizeCountries sorts by name ascending and drops duplicate codes,
// keeping the first occurrence.
func normalizeCountries(raw []CountryEntry) []CountryEntry {
	list := make([]CountryEntry, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, c := range raw {
		if seen[c.Code] {
			continue
		}
		seen[c.Code] = true
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// normalizeCities filters to population above the threshold, sorts descending
// by population, and truncates to the list limit.
func normalizeCities(raw []CityEntry) []CityEntry {
	list := make([]CityEntry, 0, len(raw))
	for _, c := range raw {
		if c.Population > minCityPopulation {
			list = append(list, c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Population > list[j].Population })
	if len(list) > cityListLimit {
		list = list[:cityListLimit]
	}
	return list
}
