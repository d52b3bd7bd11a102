// Package config loads libralend configuration from defaults, an optional
// YAML file, a .env file and the environment, in that order of precedence
// (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func init() {
	// Load .env file if it exists
	_ = godotenv.Load()
}

var ErrUnknownSource = errors.New("unknown catalog source")

// Catalog sources.
const (
	SourceStatic   = "static"
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
)

// Config is the root configuration.
type Config struct {
	Listen       string          `yaml:"listen"`
	ImageBaseURL string          `yaml:"image_base_url"` // Prefix for item image references.
	Lending      LendingConfig   `yaml:"lending"`
	Catalog      CatalogConfig   `yaml:"catalog"`
	Journal      JournalConfig   `yaml:"journal"`
	Auth         AuthConfig      `yaml:"auth"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
	Metrics      MetricsConfig   `yaml:"metrics"`
	Tracing      TracingConfig   `yaml:"tracing"`
	Log          LogConfig       `yaml:"log"`
}

// LendingConfig controls the simulated approval.
type LendingConfig struct {
	ApprovalDelay time.Duration `yaml:"approval_delay"` // Default: 2s
	IssueDelay    time.Duration `yaml:"issue_delay"`    // Default: 1s, measured from approval
	StrictReturn  bool          `yaml:"strict_return"`  // Reject returns of items that are not issued. Default: true
}

// CatalogConfig selects the Catalog Provider.
type CatalogConfig struct {
	Source string `yaml:"source"` // "static" (default), "http" or "postgres"
	File   string `yaml:"file"`   // static: YAML or JSON file; empty means an empty catalog
	URL    string `yaml:"url"`    // http: backend base URL
	DSN    string `yaml:"dsn"`    // postgres
}

// JournalConfig enables the Postgres audit journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// AuthConfig protects the HTTP surface. With neither TokenHash nor
// JWTSecret set, auth is disabled.
type AuthConfig struct {
	TokenHash    string        `yaml:"token_hash"`    // Argon2id hash of a static admin token
	JWTSecret    string        `yaml:"jwt_secret"`    // HS256 key for signed bearer tokens, at least 32 bytes
	TokenTTL     time.Duration `yaml:"token_ttl"`     // lifetime of tokens from issue-token. Default: 24h
	ProtectReads bool          `yaml:"protect_reads"` // require a token with any scope on GET routes
}

// Enabled reports whether any credential is configured.
func (a AuthConfig) Enabled() bool {
	return a.TokenHash != "" || a.JWTSecret != ""
}

type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute"` // 0 disables limiting
	Burst     int `yaml:"burst"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // Default: "/metrics"
}

// TracingConfig configures OpenTelemetry export over OTLP/HTTP.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"` // host:port, e.g. "localhost:4318"
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Listen:       ":8082",
		ImageBaseURL: "http://localhost:1205/api/v1",
		Lending: LendingConfig{
			ApprovalDelay: 2 * time.Second,
			IssueDelay:    time.Second,
			StrictReturn:  true,
		},
		Catalog: CatalogConfig{Source: SourceStatic},
		Auth:    AuthConfig{TokenTTL: 24 * time.Hour},
		RateLimit: RateLimitConfig{
			PerMinute: 120,
			Burst:     10,
		},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		Tracing: TracingConfig{
			Endpoint:    "localhost:4318",
			Insecure:    true,
			ServiceName: "libralend",
			SampleRate:  1.0,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. path may be empty.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if port, ok := os.LookupEnv("PORT"); ok {
		c.Listen = ":" + port
	}
	c.Listen = getEnv("LISTEN_ADDR", c.Listen)
	c.ImageBaseURL = getEnv("IMAGE_BASE_URL", c.ImageBaseURL)

	c.Catalog.Source = getEnv("CATALOG_SOURCE", c.Catalog.Source)
	c.Catalog.File = getEnv("CATALOG_FILE", c.Catalog.File)
	c.Catalog.URL = getEnv("CATALOG_URL", c.Catalog.URL)
	c.Catalog.DSN = getEnv("DATABASE_URL", c.Catalog.DSN)
	c.Journal.DSN = getEnv("DATABASE_URL", c.Journal.DSN)
	c.Auth.TokenHash = getEnv("API_TOKEN_HASH", c.Auth.TokenHash)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	if endpoint, ok := os.LookupEnv("OTEL_EXPORTER_OTLP_ENDPOINT"); ok {
		c.Tracing.Enabled = true
		c.Tracing.Endpoint = endpoint
	}

	var err error
	if c.Lending.ApprovalDelay, err = durationEnv("LENDING_APPROVAL_DELAY", c.Lending.ApprovalDelay); err != nil {
		return err
	}
	if c.Lending.IssueDelay, err = durationEnv("LENDING_ISSUE_DELAY", c.Lending.IssueDelay); err != nil {
		return err
	}
	if c.Lending.StrictReturn, err = boolEnv("LENDING_STRICT_RETURN", c.Lending.StrictReturn); err != nil {
		return err
	}
	if c.Journal.Enabled, err = boolEnv("JOURNAL_ENABLED", c.Journal.Enabled); err != nil {
		return err
	}
	if c.Auth.ProtectReads, err = boolEnv("AUTH_PROTECT_READS", c.Auth.ProtectReads); err != nil {
		return err
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Lending.ApprovalDelay < 0 || c.Lending.IssueDelay < 0 {
		return errors.New("lending delays must not be negative")
	}

	switch c.Catalog.Source {
	case SourceStatic:
	case SourceHTTP:
		if c.Catalog.URL == "" {
			return errors.New("catalog source http requires catalog.url")
		}
	case SourcePostgres:
		if c.Catalog.DSN == "" {
			return errors.New("catalog source postgres requires catalog.dsn")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSource, c.Catalog.Source)
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return errors.New("auth.jwt_secret must be at least 32 bytes")
	}
	if c.Auth.ProtectReads && !c.Auth.Enabled() {
		return errors.New("auth.protect_reads needs auth.token_hash or auth.jwt_secret")
	}
	if c.Journal.Enabled && c.Journal.DSN == "" {
		return errors.New("journal requires journal.dsn")
	}
	if c.RateLimit.PerMinute < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate limit values must not be negative")
	}
	if c.RateLimit.PerMinute > 0 && c.RateLimit.Burst == 0 {
		return errors.New("rate_limit.burst must be at least 1 when limiting is enabled")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return errors.New("tracing.sample_rate must be within [0, 1]")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func durationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func boolEnv(key string, defaultValue bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
