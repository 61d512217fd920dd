package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Provider names.
const (
	ProviderYahoo   = "yahoo"
	ProviderPolygon = "polygon"
)

// searched in the working directory when no path is given
var defaultPaths = []string{"tradedesk.yaml", "tradedesk.yml", "tradedesk.json"}

// EnvVars lists every environment variable Load reads.
var EnvVars = []string{
	"TRADEDESK_PROVIDER", "TRADEDESK_OUTPUT", "TRADEDESK_DIRECTORY", "TRADEDESK_LOG_LEVEL",
	"TRADEDESK_REMOTE_SEARCH", "TRADEDESK_MAX_DISTANCE", "REQUEST_TIMEOUT_SEC",
	"YAHOO_BASE_URL", "YAHOO_USER_AGENT", "YAHOO_MAX_RPM",
	"POLYGON_API_KEY", "POLYGON_MAX_RPM", "POLYGON_MIN_INTERVAL_SEC",
}

type Resolver struct {
	MaxDistance  int  `json:"max_distance" yaml:"max_distance"`
	RemoteSearch bool `json:"remote_search" yaml:"remote_search"`
}

type Yahoo struct {
	BaseURL               string `json:"base_url" yaml:"base_url"`
	UserAgent             string `json:"user_agent" yaml:"user_agent"`
	SearchLimit           int    `json:"search_limit" yaml:"search_limit"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute" yaml:"max_requests_per_minute"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" yaml:"min_request_interval_sec"`
	Burst                 int    `json:"burst" yaml:"burst"`
}

type Polygon struct {
	APIKey                string `json:"api_key" yaml:"api_key"`
	Currency              string `json:"currency" yaml:"currency"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute" yaml:"max_requests_per_minute"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" yaml:"min_request_interval_sec"`
	Burst                 int    `json:"burst" yaml:"burst"`
}

type Config struct {
	Provider          string   `json:"provider" yaml:"provider"`
	Output            string   `json:"output" yaml:"output"`
	Directory         string   `json:"directory" yaml:"directory"`
	LogLevel          string   `json:"log_level" yaml:"log_level"`
	RequestTimeoutSec int      `json:"request_timeout_sec" yaml:"request_timeout_sec"`
	Resolver          Resolver `json:"resolver" yaml:"resolver"`
	Yahoo             Yahoo    `json:"yahoo" yaml:"yahoo"`
	Polygon           Polygon  `json:"polygon" yaml:"polygon"`
}

func Default() Config {
	return Config{
		Provider:          ProviderYahoo,
		Output:            "text",
		LogLevel:          "warn",
		RequestTimeoutSec: 10,
		Resolver: Resolver{
			MaxDistance:  3,
			RemoteSearch: true,
		},
		Yahoo: Yahoo{
			SearchLimit:          5,
			MaxRequestsPerMinute: 60,
			Burst:                5,
		},
		Polygon: Polygon{
			Currency:             "USD",
			MaxRequestsPerMinute: 5, // free tier
			Burst:                1,
		},
	}
}

// Load reads YAML or JSON config from path, picked by extension. An empty
// path tries the default file names in the working directory and falls back
// to defaults. A .env file in the working directory is loaded first;
// environment variables then override select fields.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := LoadEnvFile(".env"); err != nil {
		return cfg, err
	}

	if path == "" {
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := decode(path, b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
		log.WithField("path", path).Debug("config file loaded")
	}

	applyEnv(&cfg)
	return cfg, nil
}

// LoadEnvFile loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	case ".json":
		return json.Unmarshal(b, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TRADEDESK_PROVIDER"); v != "" {
		cfg.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("TRADEDESK_OUTPUT"); v != "" {
		cfg.Output = strings.ToLower(v)
	}
	if v := os.Getenv("TRADEDESK_DIRECTORY"); v != "" {
		cfg.Directory = v
	}
	if v := os.Getenv("TRADEDESK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.RequestTimeoutSec = x
		}
	}
	if v := os.Getenv("TRADEDESK_REMOTE_SEARCH"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			cfg.Resolver.RemoteSearch = true
		case "0", "false", "no", "n":
			cfg.Resolver.RemoteSearch = false
		}
	}
	if v := os.Getenv("TRADEDESK_MAX_DISTANCE"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Resolver.MaxDistance = x
		}
	}

	if v := os.Getenv("YAHOO_BASE_URL"); v != "" {
		cfg.Yahoo.BaseURL = v
	}
	if v := os.Getenv("YAHOO_USER_AGENT"); v != "" {
		cfg.Yahoo.UserAgent = v
	}
	if v := os.Getenv("YAHOO_MAX_RPM"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.Yahoo.MaxRequestsPerMinute = x
		}
	}

	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.Polygon.APIKey = v
	}
	if v := os.Getenv("POLYGON_MAX_RPM"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.Polygon.MaxRequestsPerMinute = x
		}
	}
	if v := os.Getenv("POLYGON_MIN_INTERVAL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.Polygon.MinRequestIntervalSec = x
		}
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderYahoo:
	case ProviderPolygon:
		if c.Polygon.APIKey == "" {
			return errors.New("polygon provider needs an API key (POLYGON_API_KEY)")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	switch c.Output {
	case "text", "json", "table":
	default:
		return fmt.Errorf("unknown output format %q", c.Output)
	}
	if c.RequestTimeoutSec <= 0 {
		return fmt.Errorf("request_timeout_sec must be positive, got %d", c.RequestTimeoutSec)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Resolver.MaxDistance < 1 {
		return fmt.Errorf("resolver.max_distance must be at least 1, got %d", c.Resolver.MaxDistance)
	}
	if c.Yahoo.MaxRequestsPerMinute < 0 || c.Polygon.MaxRequestsPerMinute < 0 {
		return errors.New("max_requests_per_minute must not be negative")
	}
	return nil
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}
