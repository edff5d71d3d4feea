package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[scanners]
max_concurrency = 4
timeout = "750ms"
batch_deadline = "3s"
max_retries = 2
disabled = ["carrier_lookup"]

[normalization]
default_country_code = "44"
fold_gmail_dots = true

[memgraph]
uri = "bolt://graph:7687"
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Scanners.MaxConcurrency)
	assert.Equal(t, 750*time.Millisecond, cfg.Scanners.Timeout.Duration)
	assert.Equal(t, 3*time.Second, cfg.Scanners.BatchDeadline.Duration)
	assert.Equal(t, uint64(2), cfg.Scanners.MaxRetries)
	assert.Equal(t, []string{"carrier_lookup"}, cfg.Scanners.Disabled)
	assert.Equal(t, "44", cfg.Normalization.DefaultCountryCode)
	assert.True(t, cfg.Normalization.FoldGmailDots)
	assert.Equal(t, "bolt://graph:7687", cfg.Memgraph.URI)

	// untouched sections keep their defaults
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 200*time.Millisecond, cfg.Scanners.RetryBackoff.Duration)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[scanners]\ntimeout = \"soon\"\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[scanners]\nmax_concurrency = 0\n"))
	assert.ErrorContains(t, err, "max_concurrency")

	_, err = Load(writeConfig(t, "[normalization]\ndefault_country_code = \"UK\"\n"))
	assert.ErrorContains(t, err, "calling code")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/dossier")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_COUNTRY_CODE", "+1")
	t.Setenv("SCAN_MAX_CONCURRENCY", "3")

	cfg := Defaults()
	cfg.ApplyEnv()

	assert.Equal(t, "postgres://localhost/dossier", cfg.Postgres.URL)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "+1", cfg.Normalization.DefaultCountryCode)
	assert.Equal(t, 3, cfg.Scanners.MaxConcurrency)
	assert.NoError(t, cfg.Validate())
}
