// YAML config loader with CUE validation integration
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var defaultSchema []byte

// DefaultSchema returns the embedded CUE schema.
func DefaultSchema() []byte { return defaultSchema }

const (
	DefaultTelemetryURL = "http://localhost:8000/robots"
	DefaultGeocodeURL   = "https://nominatim.openstreetmap.org/reverse"
	DefaultUserAgent    = "robotfleet-dashboard/1.0"
	DefaultAdminAddr    = ":8080"
)

// Cache configures the geocode result cache. RedisAddr selects Redis over
// the in-memory store.
type Cache struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	RedisAddr  string        `yaml:"redis_addr"`
}

// Geocode configures the reverse geocoding client.
type Geocode struct {
	URL         string        `yaml:"url"`
	UserAgent   string        `yaml:"user_agent"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
	Cache       Cache         `yaml:"cache"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the root dashboard configuration.
type Config struct {
	TelemetryURL string        `yaml:"telemetry_url"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxRobots    int           `yaml:"max_robots"`
	AdminAddr    string        `yaml:"admin_addr"`
	Geocode      Geocode       `yaml:"geocode"`
	Log          Log           `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		TelemetryURL: DefaultTelemetryURL,
		PollInterval: 5 * time.Second,
		MaxRobots:    30,
		AdminAddr:    DefaultAdminAddr,
		Geocode: Geocode{
			URL:         DefaultGeocodeURL,
			UserAgent:   DefaultUserAgent,
			Concurrency: 8,
			Timeout:     10 * time.Second,
			Cache: Cache{
				TTL:        24 * time.Hour,
				MaxEntries: 4096,
			},
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads a YAML config, validates it against the CUE schema and applies
// environment overrides. An empty configPath yields the defaults. An empty
// cueSchemaPath uses the embedded schema.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	cfg := Default()
	if configPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ROBOTFLEET_TELEMETRY_URL"); v != "" {
		c.TelemetryURL = v
	}
	if v := os.Getenv("ROBOTFLEET_GEOCODE_URL"); v != "" {
		c.Geocode.URL = v
	}
	if v := os.Getenv("ROBOTFLEET_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid ROBOTFLEET_POLL_INTERVAL %q", v)
		}
		c.PollInterval = d
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Geocode.Cache.RedisAddr = v
	}
	return nil
}

// ValidateWithCue validates a YAML configuration file using a CUE schema
// file. An empty cueFile selects the embedded schema.
func ValidateWithCue(configFile, cueFile string) error {
	yamlBytes, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("cannot read YAML config: %w", err)
	}
	schemaBytes := defaultSchema
	if cueFile != "" {
		schemaBytes, err = os.ReadFile(cueFile)
		if err != nil {
			return fmt.Errorf("cannot read CUE schema: %w", err)
		}
	}
	return validate(configFile, yamlBytes, schemaBytes)
}

func validate(name string, yamlBytes, schemaBytes []byte) error {
	ctx := cuecontext.New()

	schemaVal := ctx.CompileBytes(schemaBytes)
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("cannot compile CUE schema: %w", err)
	}
	def := schemaVal.LookupPath(cue.ParsePath("#Config"))
	if !def.Exists() {
		return fmt.Errorf("CUE schema has no #Config definition")
	}

	file, err := cueyaml.Extract(name, yamlBytes)
	if err != nil {
		return fmt.Errorf("cannot parse YAML config: %w", err)
	}
	configVal := ctx.BuildFile(file)
	if err := configVal.Err(); err != nil {
		return fmt.Errorf("cannot build YAML config: %w", err)
	}

	final := def.Unify(configVal)
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
