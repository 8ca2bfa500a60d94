package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/infouniverseforloop/binary/internal/blob/s3"
	"github.com/infouniverseforloop/binary/internal/cache/memory"
	"github.com/infouniverseforloop/binary/internal/cache/redis"
	"github.com/infouniverseforloop/binary/internal/clock"
	"github.com/infouniverseforloop/binary/internal/config"
	"github.com/infouniverseforloop/binary/internal/domain"
	"github.com/infouniverseforloop/binary/internal/events"
	"github.com/infouniverseforloop/binary/internal/ledger"
	"github.com/infouniverseforloop/binary/internal/market"
	"github.com/infouniverseforloop/binary/internal/notify"
	"github.com/infouniverseforloop/binary/internal/server/handler"
	"github.com/infouniverseforloop/binary/internal/store/postgres"
	"github.com/infouniverseforloop/binary/internal/users"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	Market   *market.Store
	Registry *domain.Registry
	Ledger   *ledger.Ledger
	Clock    *clock.Clock
	Users    *users.Service

	Bus       domain.SignalBus
	Publisher *events.Publisher

	// Redis-backed extras; nil when no Redis addr is configured.
	TickCache   domain.TickCache
	LockManager domain.LockManager
	RateLimiter domain.RateLimiter

	// History serves /api/signals/history. Ledger-backed normally; on
	// server-only nodes with Redis it reads the shared signal stream.
	History handler.HistorySource

	// SignalStore persists emitted signals; nil when Postgres is disabled.
	SignalStore domain.SignalStore

	// Archiver batches resolved signals to object storage; nil when S3 is
	// disabled.
	Archiver *s3blob.Archiver

	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Market:   market.NewStore(logger),
		Registry: domain.NewRegistry(cfg.Symbols.Pairs),
		Ledger:   ledger.New(),
		Clock:    clock.New(cfg.TimeSync.URL, cfg.TimeSync.Interval.Duration, logger),
	}

	userSvc, err := users.Load(cfg.Auth.UsersFile, cfg.Auth.AdminToken, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: users: %w", err)
	}
	deps.Users = userSvc

	// --- Signal bus: Redis when configured, in-process otherwise ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		bus := redis.NewSignalBus(redisClient)
		deps.Bus = bus
		deps.TickCache = redis.NewTickCache(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		if strings.ToLower(cfg.Mode) == "server" {
			// Server-only nodes never run a scanner, so the local ledger
			// stays empty; history comes off the shared stream instead.
			deps.History = redis.NewSignalHistory(bus)
		}
	} else {
		deps.Bus = memory.NewSignalBus()
	}
	if deps.History == nil {
		deps.History = deps.Ledger
	}
	deps.Publisher = events.NewPublisher(deps.Bus, logger)

	// --- PostgreSQL signal store ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.SignalStore = postgres.NewSignalStore(pgClient.Pool())
	}

	// --- S3 signal archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			deps.Ledger,
			cfg.S3.ArchiveInterval.Duration,
			logger,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, logger)

	return deps, cleanup, nil
}
