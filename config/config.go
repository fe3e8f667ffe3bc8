// Package config handles TOML configuration and environment secrets for dbtrail.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultDiscoveryURL is the production dbt Cloud Discovery API endpoint.
const DefaultDiscoveryURL = "https://metadata.cloud.getdbt.com/graphql"

// Required secrets are read from the environment, never from the config file.
var (
	ErrMissingServiceToken  = errors.New("config: DBT_CLOUD_SERVICE_TOKEN is not set")
	ErrMissingWebhookSecret = errors.New("config: DBT_CLOUD_WEBHOOK_SECRET is not set")
	ErrMissingDatadogAPIKey = errors.New("config: DD_API_KEY is not set")
)

// Config is the root configuration structure. It is built once at startup
// and passed by reference into each component constructor.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Discovery DiscoveryConfig `toml:"discovery"`
	Ingest    IngestConfig    `toml:"ingest"`
	OTEL      OTELConfig      `toml:"otel"`
	Log       LogConfig       `toml:"log"`

	Secrets Secrets `toml:"-"`
}

// ServerConfig holds webhook server settings.
type ServerConfig struct {
	Addr              string `toml:"addr"`
	MetricsAddr       string `toml:"metrics_addr"`
	RequestTimeoutStr string `toml:"request_timeout"`
	RequestTimeout    time.Duration
}

// DiscoveryConfig holds Discovery API client settings.
type DiscoveryConfig struct {
	URL        string `toml:"url"`
	PageSize   int    `toml:"page_size"`
	TimeoutStr string `toml:"timeout"`
	Timeout    time.Duration
}

// IngestConfig holds log submission settings.
type IngestConfig struct {
	Site      string `toml:"site"`
	BatchSize int    `toml:"batch_size"`

	// FailOnError makes the webhook respond 5xx when any log batch fails
	// to submit. Off by default: a delivery gap in Datadog is preferable
	// to dbt Cloud retrying the whole webhook.
	FailOnError bool `toml:"fail_on_error"`
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string        `toml:"endpoint"`
	Insecure    bool          `toml:"insecure"`
	ServiceName string        `toml:"service_name"`
	Traces      TracesConfig  `toml:"traces"`
	Metrics     MetricsConfig `toml:"metrics"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `toml:"enabled"`
	SampleRate float64 `toml:"sample_rate"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Secrets holds credentials sourced from the environment.
type Secrets struct {
	ServiceToken  string
	WebhookSecret string
	DatadogAPIKey string
	DatadogAppKey string
}

// Load reads and parses a TOML config file, then overlays environment
// secrets. An empty path yields a default configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyDefaults(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, err
	}

	cfg.loadSecrets()
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MetricsAddr == "" {
		cfg.Server.MetricsAddr = ":9090"
	}
	if cfg.Server.RequestTimeoutStr == "" {
		cfg.Server.RequestTimeoutStr = "60s"
	}
	if cfg.Discovery.URL == "" {
		cfg.Discovery.URL = DefaultDiscoveryURL
	}
	if cfg.Discovery.PageSize == 0 {
		cfg.Discovery.PageSize = 500
	}
	if cfg.Discovery.TimeoutStr == "" {
		cfg.Discovery.TimeoutStr = "30s"
	}
	if cfg.Ingest.Site == "" {
		cfg.Ingest.Site = "datadoghq.com"
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 1000
	}
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "dbtrail"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func parseDurations(cfg *Config) error {
	d, err := time.ParseDuration(cfg.Server.RequestTimeoutStr)
	if err != nil {
		return fmt.Errorf("parse server.request_timeout %q: %w", cfg.Server.RequestTimeoutStr, err)
	}
	cfg.Server.RequestTimeout = d

	d, err = time.ParseDuration(cfg.Discovery.TimeoutStr)
	if err != nil {
		return fmt.Errorf("parse discovery.timeout %q: %w", cfg.Discovery.TimeoutStr, err)
	}
	cfg.Discovery.Timeout = d
	return nil
}

// loadSecrets pulls credentials from the environment. A .env file in the
// working directory is honored for local development.
func (c *Config) loadSecrets() {
	_ = godotenv.Load()

	c.Secrets.ServiceToken = os.Getenv("DBT_CLOUD_SERVICE_TOKEN")
	c.Secrets.WebhookSecret = os.Getenv("DBT_CLOUD_WEBHOOK_SECRET")
	c.Secrets.DatadogAPIKey = os.Getenv("DD_API_KEY")
	c.Secrets.DatadogAppKey = os.Getenv("DD_APP_KEY")

	if url := os.Getenv("DBT_CLOUD_METADATA_URL"); url != "" {
		c.Discovery.URL = url
	}
}

// Validate checks the configuration is complete enough to serve webhooks.
func (c *Config) Validate() error {
	if c.Secrets.ServiceToken == "" {
		return ErrMissingServiceToken
	}
	if c.Secrets.WebhookSecret == "" {
		return ErrMissingWebhookSecret
	}
	if c.Secrets.DatadogAPIKey == "" {
		return ErrMissingDatadogAPIKey
	}
	if c.Discovery.PageSize < 1 {
		return fmt.Errorf("discovery: page_size must be positive (got %d)", c.Discovery.PageSize)
	}
	if c.Ingest.BatchSize < 1 {
		return fmt.Errorf("ingest: batch_size must be positive (got %d)", c.Ingest.BatchSize)
	}
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		return fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate)
	}
	return nil
}
