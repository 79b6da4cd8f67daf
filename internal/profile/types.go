package profile

// Coordinates is a lat/lng pair as it appears in the city-data response.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ErrorPlaceholder occupies a CityData field whose provider call failed.
// Wire shape: {"error": "..."}.
type ErrorPlaceholder struct {
	Error string `json:"error"`
}

// Weather holds current conditions at the requested coordinates.
type Weather struct {
	Temperature float64 `json:"temperature"`
	Description string  `json:"description"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Icon        string  `json:"icon"`
}

// Place is a single point of interest near the requested coordinates.
type Place struct {
	Name           string      `json:"name"`
	Rating         float64     `json:"rating"`
	Types          []string    `json:"types"`
	Vicinity       string      `json:"vicinity"`
	Location       Coordinates `json:"location"`
	PhotoReference *string     `json:"photo_reference"`
}

// Landmark is an encyclopedic summary of the city.
type Landmark struct {
	Title     string  `json:"title,omitempty"`
	Extract   string  `json:"extract"`
	Thumbnail *string `json:"thumbnail,omitempty"`
}

// Accessibility summarises wheelchair-accessible map features near the
// requested coordinates. Score is normalised to 0..1.
type Accessibility struct {
	FeatureCount *int    `json:"accessible_features_count,omitempty"`
	Score        float64 `json:"accessibility_score"`
	Description  string  `json:"description"`
}

// Traffic is a static placeholder payload until a real traffic source is wired in.
type Traffic struct {
	Status      string `json:"status"`
	Description string `json:"description"`
	LastUpdated string `json:"last_updated"`
}

// Story is narrative content for the city.
type Story struct {
	Story          string `json:"story"`
	AudioAvailable bool   `json:"audio_available"`
}

// CityData is the composite response for one city-data request.
// The six provider fields each hold either the provider's payload or an
// ErrorPlaceholder; a provider failure never removes a field. The composite
// belongs to the request that built it and is never cached.
type CityData struct {
	Name          string      `json:"name"`
	Coordinates   Coordinates `json:"coordinates"`
	Weather       any         `json:"weather"`
	Places        any         `json:"places"`
	Landmarks     any         `json:"landmarks"`
	Accessibility any         `json:"accessibility"`
	Traffic       any         `json:"traffic"`
	Storytelling  any         `json:"storytelling"`
}
