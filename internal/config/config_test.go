package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Lending.ApprovalDelay)
	assert.Equal(t, time.Second, cfg.Lending.IssueDelay)
	assert.True(t, cfg.Lending.StrictReturn)
	assert.Equal(t, SourceStatic, cfg.Catalog.Source)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libralend.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
lending:
  approval_delay: 500ms
  issue_delay: 250ms
  strict_return: false
catalog:
  source: http
  url: http://backend:1205/api/v1
`), 0o600))

	t.Setenv("LENDING_ISSUE_DELAY", "2s")
	t.Setenv("PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Listen)
	assert.Equal(t, 500*time.Millisecond, cfg.Lending.ApprovalDelay)
	assert.Equal(t, 2*time.Second, cfg.Lending.IssueDelay)
	assert.False(t, cfg.Lending.StrictReturn)
	assert.Equal(t, SourceHTTP, cfg.Catalog.Source)
	assert.Equal(t, "http://backend:1205/api/v1", cfg.Catalog.URL)
}

func TestLoadOTLPEndpointEnablesTracing(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "collector:4318", cfg.Tracing.Endpoint)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("LENDING_APPROVAL_DELAY", "soon")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative delay", func(c *Config) { c.Lending.ApprovalDelay = -time.Second }},
		{"unknown source", func(c *Config) { c.Catalog.Source = "ftp" }},
		{"http without url", func(c *Config) { c.Catalog.Source = SourceHTTP }},
		{"postgres without dsn", func(c *Config) { c.Catalog.Source = SourcePostgres }},
		{"journal without dsn", func(c *Config) { c.Journal.Enabled = true }},
		{"negative rate", func(c *Config) { c.RateLimit.PerMinute = -1 }},
		{"zero burst", func(c *Config) { c.RateLimit.Burst = 0 }},
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "short" }},
		{"protect reads without auth", func(c *Config) { c.Auth.ProtectReads = true }},
		{"sample rate", func(c *Config) { c.Tracing.SampleRate = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.RateLimit = RateLimitConfig{PerMinute: 0, Burst: 0}
	assert.NoError(t, cfg.Validate(), "limiting disabled")

	cfg = Default()
	cfg.Catalog.Source = "ftp"
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownSource)
}

func TestLoadAuthFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("AUTH_PROTECT_READS", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Auth.Enabled())
	assert.True(t, cfg.Auth.ProtectReads)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
}
