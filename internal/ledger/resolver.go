package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/infouniverseforloop/binary/internal/domain"
	"github.com/infouniverseforloop/binary/internal/events"
)

const defaultResolveInterval = 5 * time.Second

// PriceSource answers the exit-price lookup the resolver needs.
type PriceSource interface {
	CloseAtOrAfter(symbol string, ts int64) (float64, bool)
}

// Resolver periodically settles expired signals against the candle record.
// A CALL wins when the exit close is above entry, a PUT when below; a flat
// exit counts as a loss.
type Resolver struct {
	ledger    *Ledger
	prices    PriceSource
	publisher *events.Publisher
	store     domain.SignalStore
	interval  time.Duration
	nowFn     func() time.Time
	logger    *slog.Logger
}

// NewResolver creates a resolver. publisher and store may be nil; interval
// <= 0 selects the default.
func NewResolver(l *Ledger, prices PriceSource, publisher *events.Publisher, store domain.SignalStore, interval time.Duration, logger *slog.Logger) *Resolver {
	if interval <= 0 {
		interval = defaultResolveInterval
	}
	return &Resolver{
		ledger:    l,
		prices:    prices,
		publisher: publisher,
		store:     store,
		interval:  interval,
		nowFn:     time.Now,
		logger:    logger.With(slog.String("component", "resolver")),
	}
}

// Run settles expired signals on the resolver interval until ctx is
// canceled.
func (r *Resolver) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep resolves every signal whose expiry has passed. It is safe to call
// concurrently with emissions.
func (r *Resolver) Sweep(ctx context.Context) {
	now := r.nowFn().Unix()
	for _, sig := range r.ledger.Unresolved(now) {
		r.settle(ctx, sig)
	}
}

func (r *Resolver) settle(ctx context.Context, sig domain.Signal) {
	exit, ok := r.prices.CloseAtOrAfter(sig.Symbol, sig.ExpiryTS)
	if !ok {
		// No candle record for the symbol; leave the signal pending.
		return
	}

	result := domain.ResultLoss
	if (sig.Direction == domain.DirectionCall && exit > sig.Entry) ||
		(sig.Direction == domain.DirectionPut && exit < sig.Entry) {
		result = domain.ResultWin
	}

	resolved, err := r.ledger.Resolve(sig.ID, result)
	if err != nil {
		if !errors.Is(err, domain.ErrAlreadyResolved) {
			r.logger.Warn("resolve failed",
				slog.Int64("signal_id", sig.ID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	r.logger.Info("signal resolved",
		slog.Int64("signal_id", resolved.ID),
		slog.String("symbol", resolved.Symbol),
		slog.String("result", string(result)),
		slog.Float64("entry", resolved.Entry),
		slog.Float64("exit", exit),
	)

	if r.publisher != nil {
		msg := fmt.Sprintf("Signal #%d %s %s resolved %s", resolved.ID, resolved.Symbol, resolved.Direction, result)
		if err := r.publisher.Log(ctx, msg); err != nil {
			r.logger.Warn("resolution broadcast failed", slog.String("error", err.Error()))
		}
	}

	if r.store != nil {
		go func(id int64, res domain.Result) {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.store.UpdateResult(sctx, id, res); err != nil {
				r.logger.Warn("store update failed",
					slog.Int64("signal_id", id),
					slog.String("error", err.Error()),
				)
			}
		}(resolved.ID, result)
	}
}
