package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 3500*time.Millisecond, cfg.Scanner.Interval.Duration)
	assert.Contains(t, cfg.Symbols.Pairs, "EUR/USD")
	assert.Contains(t, cfg.Symbols.Pairs, "BTC (OTC)")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "scan"
log_level = "debug"

[scanner]
interval = "2s"
min_broadcast_confidence = 55

[symbols]
pairs = ["EUR/USD", "Gold (OTC)"]

[redis]
addr = "localhost:6379"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "scan", cfg.Mode)
	assert.Equal(t, 2*time.Second, cfg.Scanner.Interval.Duration)
	assert.Equal(t, 55, cfg.Scanner.MinBroadcastConfidence)
	assert.Equal(t, []string{"EUR/USD", "Gold (OTC)"}, cfg.Symbols.Pairs)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	// Untouched sections keep their defaults.
	assert.Equal(t, 140, cfg.Scanner.MinHistory)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("SNIPER_SERVER_PORT", "9001")
	t.Setenv("SNIPER_SCANNER_INTERVAL", "5s")
	t.Setenv("SNIPER_SYMBOLS_PAIRS", "EUR/USD, USD/JPY")
	t.Setenv("SNIPER_AUTH_ADMIN_TOKEN", "s3cret")
	t.Setenv("SNIPER_POSTGRES_ENABLED", "true")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Scanner.Interval.Duration)
	assert.Equal(t, []string{"EUR/USD", "USD/JPY"}, cfg.Symbols.Pairs)
	assert.Equal(t, "s3cret", cfg.Auth.AdminToken)
	assert.True(t, cfg.Postgres.Enabled)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.LogLevel = "loud"
	cfg.Scanner.Interval.Duration = 0
	cfg.Scanner.MinBroadcastConfidence = 150
	cfg.Symbols.Pairs = nil
	cfg.Feed.Username = "trader" // api_url and password missing

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"unknown mode", "unknown log_level", "interval must be positive",
		"min_broadcast_confidence", "pairs must not be empty", "must all be set together",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidatePostgresOnlyWhenEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Host = ""
	assert.NoError(t, cfg.Validate())

	cfg.Postgres.Enabled = true
	assert.Error(t, cfg.Validate())
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Feed.Password = "hunter2"
	cfg.Redis.Password = "redispw"
	cfg.Postgres.Password = "pgpw"
	cfg.S3.SecretKey = "sk"
	cfg.Notify.TelegramToken = "bot:token"
	cfg.Auth.AdminToken = "admin"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Feed.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	assert.Equal(t, "***", red.Auth.AdminToken)
	// Original is untouched.
	assert.Equal(t, "hunter2", cfg.Feed.Password)

	red.Symbols.Pairs[0] = "mutated"
	assert.NotEqual(t, "mutated", cfg.Symbols.Pairs[0])
}
