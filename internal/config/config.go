package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the service reads from the environment, assembled
// once at startup and passed by reference. Adapters never read env vars
// themselves. A missing credential degrades only the affected field or
// operation, never the whole process.
type Config struct {
	Port        string
	CORSOrigins []string

	// Credentials. Any of these may be empty.
	OpenWeatherAPIKey string
	MapsAPIKey        string // places, directions, street view
	GeoNamesUsername  string

	// ProviderTimeout bounds each provider call inside one aggregate request.
	ProviderTimeout time.Duration

	// Optional infrastructure. Empty means the feature runs degraded:
	// no redis = in-process directory cache only, no database = no trips.
	DatabaseURL string
	RedisURL    string
}

// Load reads configuration from the environment with sensible defaults.
func Load(log *slog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file loaded", "err", err)
	}

	cfg := &Config{
		Port:              getenvDefault("PORT", "8080"),
		CORSOrigins:       splitList(getenvDefault("CORS_ORIGINS", "http://localhost:5173")),
		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		MapsAPIKey:        os.Getenv("GOOGLE_MAPS_API_KEY"),
		GeoNamesUsername:  getenvDefault("GEONAMES_USERNAME", "demo"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
	}

	timeoutStr := getenvDefault("PROVIDER_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_TIMEOUT: %w", err)
	}
	cfg.ProviderTimeout = timeout

	if cfg.OpenWeatherAPIKey == "" {
		log.Warn("OPENWEATHER_API_KEY not set; weather field will be degraded")
	}
	if cfg.MapsAPIKey == "" {
		log.Warn("GOOGLE_MAPS_API_KEY not set; places, directions and street view will be degraded")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
