package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SNIPER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SNIPER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setBool(&cfg.Server.Enabled, "SNIPER_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SNIPER_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SNIPER_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "SNIPER_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "SNIPER_SERVER_RATE_WINDOW")

	// ── Scanner ──
	setDuration(&cfg.Scanner.Interval, "SNIPER_SCANNER_INTERVAL")
	setInt(&cfg.Scanner.MinHistory, "SNIPER_SCANNER_MIN_HISTORY")
	setInt(&cfg.Scanner.WindowSize, "SNIPER_SCANNER_WINDOW_SIZE")
	setFloat64(&cfg.Scanner.ManipulationVeto, "SNIPER_SCANNER_MANIPULATION_VETO")
	setFloat64(&cfg.Scanner.MaxRisk, "SNIPER_SCANNER_MAX_RISK")
	setInt(&cfg.Scanner.MinBroadcastConfidence, "SNIPER_SCANNER_MIN_BROADCAST_CONFIDENCE")
	setBool(&cfg.Scanner.AutoPick, "SNIPER_SCANNER_AUTO_PICK")
	setFloat64(&cfg.Scanner.AutoPickMinScore, "SNIPER_SCANNER_AUTO_PICK_MIN_SCORE")
	setInt64(&cfg.Scanner.ExpirySeconds, "SNIPER_SCANNER_EXPIRY_SECONDS")
	setInt(&cfg.Scanner.WarmupTicks, "SNIPER_SCANNER_WARMUP_TICKS")

	// ── Symbols ──
	setStringSlice(&cfg.Symbols.Pairs, "SNIPER_SYMBOLS_PAIRS")

	// ── Feed ──
	setStr(&cfg.Feed.APIURL, "SNIPER_FEED_API_URL")
	setStr(&cfg.Feed.WSURL, "SNIPER_FEED_WS_URL")
	setStr(&cfg.Feed.Username, "SNIPER_FEED_USERNAME")
	setStr(&cfg.Feed.Password, "SNIPER_FEED_PASSWORD")

	// ── Time sync ──
	setStr(&cfg.TimeSync.URL, "SNIPER_TIME_SYNC_URL")
	setDuration(&cfg.TimeSync.Interval, "SNIPER_TIME_SYNC_INTERVAL")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SNIPER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SNIPER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SNIPER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SNIPER_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "SNIPER_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "SNIPER_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "SNIPER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SNIPER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SNIPER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SNIPER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SNIPER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SNIPER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SNIPER_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SNIPER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SNIPER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SNIPER_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SNIPER_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SNIPER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SNIPER_S3_REGION")
	setStr(&cfg.S3.Bucket, "SNIPER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SNIPER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SNIPER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SNIPER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SNIPER_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.ArchiveInterval, "SNIPER_S3_ARCHIVE_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SNIPER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SNIPER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SNIPER_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Auth ──
	setStr(&cfg.Auth.AdminToken, "SNIPER_AUTH_ADMIN_TOKEN")
	setStr(&cfg.Auth.Owner, "SNIPER_AUTH_OWNER")
	setStr(&cfg.Auth.UsersFile, "SNIPER_AUTH_USERS_FILE")

	// ── Top-level ──
	setStr(&cfg.Mode, "SNIPER_MODE")
	setStr(&cfg.LogLevel, "SNIPER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
