package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if cfg.Port != "3000" {
		t.Fatalf("Port = %q, want 3000", cfg.Port)
	}
	if cfg.DataBaseURL != "http://localhost:3000" {
		t.Fatalf("DataBaseURL = %q", cfg.DataBaseURL)
	}
	if cfg.Routes["temperature"] != "/data/temperature.json" || cfg.Routes["precipitation"] != "/data/precipitation.json" {
		t.Fatalf("unexpected routes: %v", cfg.Routes)
	}
	if cfg.CacheDriver != CacheSQLite || cfg.CachePath != "weather.db" {
		t.Fatalf("unexpected cache config: %s %s", cfg.CacheDriver, cfg.CachePath)
	}
	if cfg.HTTPTimeout != 10*time.Second || cfg.WarmInterval != time.Hour || cfg.FetchMaxRetries != 0 {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("SERIES_ROUTES", "snow=/data/snow.json")
	t.Setenv("CACHE_DRIVER", "memory")
	t.Setenv("WARM_INTERVAL", "0")
	t.Setenv("DATA_BASE_URL", "http://static.local")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if cfg.Port != "8081" || cfg.CacheDriver != CacheMemory || cfg.WarmInterval != 0 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.DataBaseURL != "http://static.local" {
		t.Fatalf("DataBaseURL = %q", cfg.DataBaseURL)
	}
	if len(cfg.Routes) != 1 || cfg.Routes["snow"] != "/data/snow.json" {
		t.Fatalf("unexpected routes: %v", cfg.Routes)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"HTTP_TIMEOUT":      "soon",
		"CACHE_DRIVER":      "redis",
		"SERIES_ROUTES":     "temperature",
		"FETCH_MAX_RETRIES": "-1",
		"LOG_LEVEL":         "loud",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", name, value)
			}
		})
	}
}

func TestParseRoutes(t *testing.T) {
	routes, err := ParseRoutes(" temperature = /t.json , precipitation=/p.json,")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if routes["temperature"] != "/t.json" || routes["precipitation"] != "/p.json" {
		t.Fatalf("unexpected routes: %v", routes)
	}

	for _, raw := range []string{"", "a=/x,a=/y", "bad alias=/x", "=/x", "a="} {
		if _, err := ParseRoutes(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("debug")
	if err != nil || level != slog.LevelDebug {
		t.Fatalf("ParseLogLevel(debug) = %v, %v", level, err)
	}
	if _, err := ParseLogLevel("verbose"); err == nil || !strings.Contains(err.Error(), "LOG_LEVEL") {
		t.Fatalf("expected LOG_LEVEL error, got %v", err)
	}
}
