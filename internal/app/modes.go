package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/infouniverseforloop/binary/internal/feed"
	"github.com/infouniverseforloop/binary/internal/ledger"
	"github.com/infouniverseforloop/binary/internal/overseer"
	"github.com/infouniverseforloop/binary/internal/scanner"
	"github.com/infouniverseforloop/binary/internal/scorer"
	"github.com/infouniverseforloop/binary/internal/server"
	"github.com/infouniverseforloop/binary/internal/server/handler"
	"github.com/infouniverseforloop/binary/internal/server/ws"
)

const shutdownGrace = 10 * time.Second

// ScanMode runs the scan loop, outcome resolver, broker feed, and time sync
// without the client-facing API. Signals still reach downstream consumers
// over the bus, the store, and the notifiers.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	g, ctx := errgroup.WithContext(ctx)
	sc := a.buildScanner(deps)
	a.startScanGroup(ctx, g, deps, sc)

	return waitGroup(g)
}

// ServerMode runs only the HTTP/WebSocket API. Pushes come off the shared
// bus; on-demand requests are served from local (typically simulated) data.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	sc := a.buildScanner(deps)
	a.startServerGroup(ctx, g, deps, sc)

	g.Go(func() error { return deps.Clock.Run(ctx) })

	return waitGroup(g)
}

// FullMode runs the scanner and the API in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	sc := a.buildScanner(deps)
	a.startScanGroup(ctx, g, deps, sc)
	if a.cfg.Server.Enabled {
		a.startServerGroup(ctx, g, deps, sc)
	}

	return waitGroup(g)
}

// buildScanner assembles the scoring cascade around the shared market store
// and ledger.
func (a *App) buildScanner(deps *Dependencies) *scanner.Scanner {
	collab := scanner.Collaborators{
		Computer:      scorer.NewComputer(),
		Manipulation:  scorer.NewManipulation(),
		Patterns:      scorer.NewPatterns(),
		Sentiment:     scorer.NewSentiment(),
		DeepSentiment: scorer.NewDeepSentiment(),
		Risk:          scorer.NewRisk(scorer.NoNews{}, a.logger),
		Booster:       scorer.NewBooster(),
	}

	sc := a.cfg.Scanner
	cfg := scanner.Config{
		Interval:               sc.Interval.Duration,
		MinHistory:             sc.MinHistory,
		WindowSize:             sc.WindowSize,
		ManipulationVeto:       sc.ManipulationVeto,
		MaxRisk:                sc.MaxRisk,
		MinBroadcastConfidence: sc.MinBroadcastConfidence,
		AutoPick:               sc.AutoPick,
		AutoPickMinScore:       sc.AutoPickMinScore,
		ExpirySeconds:          sc.ExpirySeconds,
	}

	ovr := overseer.New(sc.MinBroadcastConfidence, a.logger)
	s := scanner.New(
		cfg,
		deps.Market,
		deps.Registry,
		deps.Ledger,
		ovr,
		overseer.NewMartingale(),
		collab,
		deps.Publisher,
		deps.Clock,
		deps.Notifier,
		deps.SignalStore,
		a.logger,
	)
	if deps.LockManager != nil {
		s = s.WithLock(deps.LockManager)
	}
	return s
}

// startScanGroup launches the signal-producing goroutines.
func (a *App) startScanGroup(ctx context.Context, g *errgroup.Group, deps *Dependencies, sc *scanner.Scanner) {
	if n := a.cfg.Scanner.WarmupTicks; n > 0 {
		deps.Market.Warmup(deps.Registry.Symbols(), n)
	}

	g.Go(func() error { return sc.Run(ctx) })
	g.Go(func() error { return deps.Clock.Run(ctx) })

	resolver := ledger.NewResolver(deps.Ledger, deps.Market, deps.Publisher, deps.SignalStore, 0, a.logger)
	g.Go(func() error { return resolver.Run(ctx) })

	brokerFeed := feed.NewQuotexFeed(feed.Config{
		APIURL:   a.cfg.Feed.APIURL,
		WSURL:    a.cfg.Feed.WSURL,
		Username: a.cfg.Feed.Username,
		Password: a.cfg.Feed.Password,
	}, deps.Market, deps.TickCache, deps.Publisher, a.logger)
	g.Go(func() error { return brokerFeed.Run(ctx) })

	if deps.Archiver != nil {
		g.Go(func() error { return deps.Archiver.Run(ctx) })
	}
}

// startServerGroup launches the WebSocket hub and the HTTP server, and ties
// HTTP shutdown to group cancellation.
func (a *App) startServerGroup(ctx context.Context, g *errgroup.Group, deps *Dependencies, sc *scanner.Scanner) {
	hub := ws.NewHub(ws.Deps{
		Bus:      deps.Bus,
		Provider: sc,
		Registry: deps.Registry,
		Users:    deps.Users,
		Ledger:   deps.Ledger,
		Clock:    deps.Clock,
		Owner:    a.cfg.Auth.Owner,
	}, a.logger)
	g.Go(func() error { return hub.Run(ctx) })

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(a.logger),
		Pairs:   handler.NewPairsHandler(deps.Registry, deps.TickCache, a.logger),
		History: handler.NewHistoryHandler(deps.History, a.logger),
	}, hub, deps.RateLimiter, a.logger)

	g.Go(func() error { return srv.Start() })
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("server shutdown", slog.String("error", err.Error()))
		}
		return ctx.Err()
	})
}

// waitGroup normalizes errgroup exit: cancellation is a clean shutdown, not
// a failure.
func waitGroup(g *errgroup.Group) error {
	if err := g.Wait(); err != nil &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded) &&
		!errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
