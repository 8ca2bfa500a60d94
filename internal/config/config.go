// Package config defines the top-level configuration for the signal server
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SNIPER_* environment variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Scanner  ScannerConfig  `toml:"scanner"`
	Symbols  SymbolsConfig  `toml:"symbols"`
	Feed     FeedConfig     `toml:"feed"`
	TimeSync TimeSyncConfig `toml:"time_sync"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Notify   NotifyConfig   `toml:"notify"`
	Auth     AuthConfig     `toml:"auth"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds HTTP/WebSocket server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// RateLimit requests per RateWindow per remote host; 0 disables.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// ScannerConfig holds the scan loop thresholds.
type ScannerConfig struct {
	Interval               duration `toml:"interval"`
	MinHistory             int      `toml:"min_history"`
	WindowSize             int      `toml:"window_size"`
	ManipulationVeto       float64  `toml:"manipulation_veto"`
	MaxRisk                float64  `toml:"max_risk"`
	MinBroadcastConfidence int      `toml:"min_broadcast_confidence"`
	AutoPick               bool     `toml:"auto_pick"`
	AutoPickMinScore       float64  `toml:"auto_pick_min_score"`
	ExpirySeconds          int64    `toml:"expiry_seconds"`
	WarmupTicks            int      `toml:"warmup_ticks"`
}

// SymbolsConfig holds the scanned pair list.
type SymbolsConfig struct {
	Pairs []string `toml:"pairs"`
}

// FeedConfig holds broker feed credentials. Leave the credentials empty to
// run on simulated ticks only.
type FeedConfig struct {
	APIURL   string `toml:"api_url"`
	WSURL    string `toml:"ws_url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// TimeSyncConfig holds the reference time endpoint used for entry timestamps.
type TimeSyncConfig struct {
	URL      string   `toml:"url"`
	Interval duration `toml:"interval"`
}

// RedisConfig holds Redis connection parameters. An empty addr keeps the
// whole deployment in-process.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds the durable signal store parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters for the signal
// archiver.
type S3Config struct {
	Enabled         bool     `toml:"enabled"`
	Endpoint        string   `toml:"endpoint"`
	Region          string   `toml:"region"`
	Bucket          string   `toml:"bucket"`
	AccessKey       string   `toml:"access_key"`
	SecretKey       string   `toml:"secret_key"`
	UseSSL          bool     `toml:"use_ssl"`
	ForcePathStyle  bool     `toml:"force_path_style"`
	ArchiveInterval duration `toml:"archive_interval"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// AuthConfig holds client authentication settings.
type AuthConfig struct {
	AdminToken string `toml:"admin_token"`
	Owner      string `toml:"owner"`
	UsersFile  string `toml:"users_file"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "3.5s", "15m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "3500ms" or "1m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultPairs is the scanned universe when the TOML file names none.
// Symbols with an "(OTC)" suffix are classified as synthetic markets.
var DefaultPairs = []string{
	"EUR/USD", "GBP/USD", "USD/JPY", "AUD/USD", "USD/CAD",
	"USD/CHF", "NZD/USD", "BTC (OTC)", "Gold (OTC)",
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Enabled:     true,
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   0,
			RateWindow:  duration{time.Minute},
		},
		Scanner: ScannerConfig{
			Interval:               duration{3500 * time.Millisecond},
			MinHistory:             140,
			WindowSize:             300,
			ManipulationVeto:       85,
			MaxRisk:                65,
			MinBroadcastConfidence: 45,
			AutoPick:               true,
			AutoPickMinScore:       50,
			ExpirySeconds:          60,
			WarmupTicks:            240,
		},
		Symbols: SymbolsConfig{
			Pairs: append([]string(nil), DefaultPairs...),
		},
		TimeSync: TimeSyncConfig{
			URL:      "https://worldtimeapi.org/api/timezone/Etc/UTC",
			Interval: duration{time.Minute},
		},
		Redis: RedisConfig{
			Addr:     "",
			DB:       0,
			PoolSize: 20,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "sniper",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Enabled:         false,
			Endpoint:        "http://localhost:9000",
			Region:          "us-east-1",
			Bucket:          "sniper-signals",
			UseSSL:          false,
			ForcePathStyle:  true,
			ArchiveInterval: duration{15 * time.Minute},
		},
		Auth: AuthConfig{
			AdminToken: "",
			Owner:      "OTC SNIPER",
			UsersFile:  "users.json",
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"full":   true,
	"scan":   true,
	"server": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: full, scan, server)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if len(c.Symbols.Pairs) == 0 {
		errs = append(errs, "symbols: pairs must not be empty")
	}

	if c.Scanner.Interval.Duration <= 0 {
		errs = append(errs, "scanner: interval must be positive")
	}
	if c.Scanner.MinHistory < 2 {
		errs = append(errs, "scanner: min_history must be >= 2")
	}
	if c.Scanner.WindowSize < c.Scanner.MinHistory {
		errs = append(errs, "scanner: window_size must be >= min_history")
	}
	if c.Scanner.ManipulationVeto <= 0 || c.Scanner.ManipulationVeto > 100 {
		errs = append(errs, fmt.Sprintf("scanner: manipulation_veto must be in (0, 100], got %g", c.Scanner.ManipulationVeto))
	}
	if c.Scanner.MaxRisk <= 0 || c.Scanner.MaxRisk > 100 {
		errs = append(errs, fmt.Sprintf("scanner: max_risk must be in (0, 100], got %g", c.Scanner.MaxRisk))
	}
	if c.Scanner.MinBroadcastConfidence < 1 || c.Scanner.MinBroadcastConfidence > 99 {
		errs = append(errs, fmt.Sprintf("scanner: min_broadcast_confidence must be 1-99, got %d", c.Scanner.MinBroadcastConfidence))
	}
	if c.Scanner.ExpirySeconds <= 0 {
		errs = append(errs, "scanner: expiry_seconds must be positive")
	}

	// Feed credentials come as a set or not at all.
	fa := c.Feed.APIURL != ""
	fu := c.Feed.Username != ""
	fp := c.Feed.Password != ""
	if (fa || fu || fp) && !(fa && fu && fp) {
		errs = append(errs, "feed: api_url, username, and password must all be set together")
	}

	if c.Redis.Addr != "" && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.ArchiveInterval.Duration <= 0 {
			errs = append(errs, "s3: archive_interval must be positive")
		}
	}

	// Notify channels come fully configured or not at all.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be positive when rate_limit is set")
		}
	}
	if strings.ToLower(c.Mode) == "server" && !c.Server.Enabled {
		errs = append(errs, "server: must be enabled in server mode")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
