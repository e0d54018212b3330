package config

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/i474232898/climate-series/internal/series"
)

// Cache drivers.
const (
	CacheSQLite = "sqlite"
	CacheMemory = "memory"
	CacheNone   = "none"
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// AppConfig is the process configuration read from the environment.
type AppConfig struct {
	Port      string `env:"PORT" envDefault:"3000"`
	StaticDir string `env:"STATIC_DIR" envDefault:"./web"`

	// DataBaseURL is what relative series routes resolve against.
	// Defaults to this server.
	DataBaseURL string `env:"DATA_BASE_URL"`

	// RawRoutes is a comma separated alias=route list.
	RawRoutes string `env:"SERIES_ROUTES" envDefault:"temperature=/data/temperature.json,precipitation=/data/precipitation.json"`
	Routes    series.Routes

	CacheDriver string `env:"CACHE_DRIVER" envDefault:"sqlite"`
	CachePath   string `env:"CACHE_PATH" envDefault:"weather.db"`

	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	FetchMaxRetries int           `env:"FETCH_MAX_RETRIES" envDefault:"0"`

	// WarmInterval controls how often empty caches are filled. 0 disables warming.
	WarmInterval time.Duration `env:"WARM_INTERVAL" envDefault:"1h"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment (and .env, if present).
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	routes, err := ParseRoutes(cfg.RawRoutes)
	if err != nil {
		return nil, fmt.Errorf("invalid SERIES_ROUTES: %w", err)
	}
	cfg.Routes = routes

	switch cfg.CacheDriver {
	case CacheSQLite, CacheMemory, CacheNone:
	default:
		return nil, fmt.Errorf("invalid CACHE_DRIVER %q: want sqlite, memory or none", cfg.CacheDriver)
	}
	if cfg.CacheDriver == CacheSQLite && strings.TrimSpace(cfg.CachePath) == "" {
		return nil, fmt.Errorf("CACHE_PATH is required for the sqlite cache")
	}
	if cfg.FetchMaxRetries < 0 {
		return nil, fmt.Errorf("invalid FETCH_MAX_RETRIES: must not be negative")
	}
	if cfg.WarmInterval < 0 {
		return nil, fmt.Errorf("invalid WARM_INTERVAL: must not be negative")
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	if cfg.DataBaseURL == "" {
		cfg.DataBaseURL = "http://localhost:" + cfg.Port
	}

	return cfg, nil
}

// ParseRoutes parses "alias=route,alias=route".
func ParseRoutes(raw string) (series.Routes, error) {
	routes := series.Routes{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		alias, route, ok := strings.Cut(item, "=")
		alias = strings.TrimSpace(alias)
		route = strings.TrimSpace(route)
		if !ok || alias == "" || route == "" {
			return nil, fmt.Errorf("entry %q is not alias=route", item)
		}
		if !aliasPattern.MatchString(alias) {
			return nil, fmt.Errorf("alias %q may only contain letters, digits, '-' and '_'", alias)
		}
		if _, dup := routes[alias]; dup {
			return nil, fmt.Errorf("alias %q listed twice", alias)
		}
		routes[alias] = route
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("no routes configured")
	}
	return routes, nil
}

// ParseLogLevel maps a LOG_LEVEL value to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
