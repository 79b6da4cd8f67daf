package profile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// defaultProviderTimeout bounds each provider call independently. A tunable
// default, not a contract.
const defaultProviderTimeout = 10 * time.Second

// weatherFetcher is the interface satisfied by WeatherClient.
type weatherFetcher interface {
	Fetch(ctx context.Context, lat, lng float64) (*Weather, error)
}

// placesFetcher is the interface satisfied by PlacesClient.
type placesFetcher interface {
	Fetch(ctx context.Context, lat, lng float64) ([]Place, error)
}

// landmarkFetcher is the interface satisfied by LandmarkClient.
type landmarkFetcher interface {
	Fetch(ctx context.Context, city string) *Landmark
}

// accessibilityFetcher is the interface satisfied by AccessibilityClient.
type accessibilityFetcher interface {
	Fetch(ctx context.Context, lat, lng float64) *Accessibility
}

// trafficFetcher is the interface satisfied by TrafficClient.
type trafficFetcher interface {
	Fetch(ctx context.Context, lat, lng float64) *Traffic
}

// storyFetcher is the interface satisfied by StoryClient.
type storyFetcher interface {
	Fetch(ctx context.Context, city string) *Story
}

// Aggregator composes the six provider adapters into one CityData per request.
// Providers run concurrently, each bounded by its own timeout; a provider that
// errors or times out yields its field's placeholder (or the adapter's
// built-in default), never an aggregate failure.
type Aggregator struct {
	weather       weatherFetcher
	places        placesFetcher
	landmark      landmarkFetcher
	accessibility accessibilityFetcher
	traffic       trafficFetcher
	story         storyFetcher
	timeout       time.Duration
	log           *slog.Logger
}

// NewAggregator constructs an Aggregator with production clients.
func NewAggregator(weatherKey, mapsKey string, timeout time.Duration, log *slog.Logger) *Aggregator {
	return NewAggregatorWithClients(
		NewWeatherClient(weatherKey),
		NewPlacesClient(mapsKey),
		NewLandmarkClient(log),
		NewAccessibilityClient(log),
		NewTrafficClient(),
		NewStoryClient(),
		timeout,
		log,
	)
}

// NewAggregatorWithClients constructs an Aggregator with injectable clients (used in tests).
func NewAggregatorWithClients(
	w weatherFetcher,
	p placesFetcher,
	l landmarkFetcher,
	a accessibilityFetcher,
	t trafficFetcher,
	s storyFetcher,
	timeout time.Duration,
	log *slog.Logger,
) *Aggregator {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &Aggregator{
		weather:       w,
		places:        p,
		landmark:      l,
		accessibility: a,
		traffic:       t,
		story:         s,
		timeout:       timeout,
		log:           log,
	}
}

// FetchProfile fans out to all six providers and joins their results.
// Every field of the returned CityData is populated: payload on success,
// ErrorPlaceholder or documented default on failure. A slow provider does not
// cancel the others.
func (a *Aggregator) FetchProfile(ctx context.Context, name string, lat, lng float64) *CityData {
	data := &CityData{
		Name:        name,
		Coordinates: Coordinates{Lat: lat, Lng: lng},
	}

	// errgroup carries no errors here: every branch swallows its failure into
	// its own field, so one provider can never cancel the rest.
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(a.guard("weather", func() {
		fetchCtx, cancel := context.WithTimeout(gCtx, a.timeout)
		defer cancel()
		w, err := a.weather.Fetch(fetchCtx, lat, lng)
		if err != nil {
			a.log.Warn("weather fetch failed", "city", name, "err", err)
			data.Weather = placeholder(err, "Weather API key not configured", "Weather data unavailable")
			return
		}
		data.Weather = w
	}, func() { data.Weather = ErrorPlaceholder{Error: "Weather data unavailable"} }))

	g.Go(a.guard("places", func() {
		fetchCtx, cancel := context.WithTimeout(gCtx, a.timeout)
		defer cancel()
		p, err := a.places.Fetch(fetchCtx, lat, lng)
		if err != nil {
			a.log.Warn("places fetch failed", "city", name, "err", err)
			data.Places = placeholder(err, "Google Maps API key not configured", "Places data unavailable")
			return
		}
		data.Places = p
	}, func() { data.Places = ErrorPlaceholder{Error: "Places data unavailable"} }))

	g.Go(a.guard("landmarks", func() {
		fetchCtx, cancel := context.WithTimeout(gCtx, a.timeout)
		defer cancel()
		data.Landmarks = a.landmark.Fetch(fetchCtx, name)
	}, func() { data.Landmarks = ErrorPlaceholder{Error: "Landmark data unavailable"} }))

	g.Go(a.guard("accessibility", func() {
		fetchCtx, cancel := context.WithTimeout(gCtx, a.timeout)
		defer cancel()
		data.Accessibility = a.accessibility.Fetch(fetchCtx, lat, lng)
	}, func() { data.Accessibility = accessibilityDefault() }))

	g.Go(a.guard("traffic", func() {
		data.Traffic = a.traffic.Fetch(gCtx, lat, lng)
	}, func() { data.Traffic = ErrorPlaceholder{Error: "Traffic data unavailable"} }))

	g.Go(a.guard("storytelling", func() {
		data.Storytelling = a.story.Fetch(gCtx, name)
	}, func() { data.Storytelling = ErrorPlaceholder{Error: "Story data unavailable"} }))

	// Branches never return errors; Wait is a pure join.
	_ = g.Wait()

	return data
}

// guard wraps a provider branch with panic recovery. A panicking adapter
// resolves to its field's fallback value instead of crashing the aggregate.
func (a *Aggregator) guard(field string, run func(), onPanic func()) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				a.log.Error("provider fetch panicked", "field", field, "recover", r)
				onPanic()
			}
		}()
		run()
		return nil
	}
}

// placeholder maps a provider error to its field-level message: missing
// credential gets the configuration message, anything else the availability one.
func placeholder(err error, configMsg, unavailableMsg string) ErrorPlaceholder {
	if errors.Is(err, ErrNoAPIKey) {
		return ErrorPlaceholder{Error: configMsg}
	}
	return ErrorPlaceholder{Error: unavailableMsg}
}
