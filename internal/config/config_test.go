package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "robotfleet.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfig(t, `
telemetry_url: http://robots.local:8000/robots
poll_interval: 2s
max_robots: 10
geocode:
  concurrency: 4
  cache:
    ttl: 1h
log:
  level: debug
  format: json
`)
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.TelemetryURL != "http://robots.local:8000/robots" || cfg.PollInterval != 2*time.Second {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.MaxRobots != 10 || cfg.Geocode.Concurrency != 4 || cfg.Geocode.Cache.TTL != time.Hour {
		t.Errorf("unexpected config: %+v", cfg)
	}
	// Untouched keys keep their defaults.
	if cfg.Geocode.URL != DefaultGeocodeURL || cfg.Geocode.Timeout != 10*time.Second {
		t.Errorf("defaults lost: %+v", cfg.Geocode)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *cfg != Default() {
		t.Fatalf("got %+v, want defaults", cfg)
	}
	if cfg.PollInterval != 5*time.Second || cfg.MaxRobots != 30 || cfg.TelemetryURL != DefaultTelemetryURL {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"too many robots": "max_robots: 31\n",
		"bad duration":    "poll_interval: soon\n",
		"unknown key":     "telemetry: http://x\n",
		"bad log level":   "log:\n  level: loud\n",
		"bad url":         "telemetry_url: robots.local\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body), ""); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ROBOTFLEET_TELEMETRY_URL", "http://env:9000/robots")
	t.Setenv("ROBOTFLEET_GEOCODE_URL", "http://geo.local/reverse")
	t.Setenv("ROBOTFLEET_POLL_INTERVAL", "750ms")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load(writeConfig(t, "telemetry_url: http://file/robots\n"), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TelemetryURL != "http://env:9000/robots" || cfg.Geocode.URL != "http://geo.local/reverse" {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.PollInterval != 750*time.Millisecond || cfg.Geocode.Cache.RedisAddr != "redis:6379" {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestLoadConfig_BadEnvInterval(t *testing.T) {
	t.Setenv("ROBOTFLEET_POLL_INTERVAL", "-1s")
	if _, err := Load("", ""); err == nil {
		t.Fatalf("expected error for negative interval")
	}
}

func TestValidateWithCue_CustomSchema(t *testing.T) {
	schema := filepath.Join(t.TempDir(), "strict.cue")
	if err := os.WriteFile(schema, []byte("#Config: {max_robots: <=5}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := ValidateWithCue(writeConfig(t, "max_robots: 10\n"), schema)
	if err == nil || !strings.Contains(err.Error(), "schema validation failed") {
		t.Fatalf("expected custom schema to reject config, got %v", err)
	}
}

func TestExampleConfigIsValid(t *testing.T) {
	if err := ValidateWithCue("../../config/robotfleet.yaml", ""); err != nil {
		t.Fatalf("example config: %v", err)
	}
}
