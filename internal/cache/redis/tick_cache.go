package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/infouniverseforloop/binary/internal/domain"
)

// tickTTL expires stale quotes so a dead feed reads as missing, not as a
// frozen price.
const tickTTL = 5 * time.Minute

// TickCache implements domain.TickCache with one hash per symbol at
// "tick:{symbol}", fields "price" and "ts" (Unix milliseconds). The feed
// writes through it; the pairs endpoint reads it for last-quote display.
type TickCache struct {
	rdb *redis.Client
}

// NewTickCache creates a TickCache backed by the given Client.
func NewTickCache(c *Client) *TickCache {
	return &TickCache{rdb: c.Underlying()}
}

func tickKey(symbol string) string {
	return "tick:" + symbol
}

// SetTick stores the freshest quote for a symbol.
func (tc *TickCache) SetTick(ctx context.Context, symbol string, price float64, ts time.Time) error {
	key := tickKey(symbol)
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixMilli(), 10),
	}

	pipe := tc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, tickTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set tick %s: %w", symbol, err)
	}
	return nil
}

// GetTick returns the cached quote for a symbol, or domain.ErrNotFound.
func (tc *TickCache) GetTick(ctx context.Context, symbol string) (float64, time.Time, error) {
	vals, err := tc.rdb.HGetAll(ctx, tickKey(symbol)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get tick %s: %w", symbol, err)
	}
	if len(vals) == 0 {
		return 0, time.Time{}, domain.ErrNotFound
	}

	price, err := strconv.ParseFloat(vals["price"], 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse tick price %s: %w", symbol, err)
	}
	tsMilli, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse tick ts %s: %w", symbol, err)
	}
	return price, time.UnixMilli(tsMilli), nil
}

// GetTicks pipelines quote lookups for many symbols. Symbols without a
// cached quote are omitted.
func (tc *TickCache) GetTicks(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	pipe := tc.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(symbols))
	for _, sym := range symbols {
		cmds[sym] = pipe.HGetAll(ctx, tickKey(sym))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get ticks pipeline: %w", err)
	}

	out := make(map[string]float64, len(symbols))
	for sym, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		price, err := strconv.ParseFloat(vals["price"], 64)
		if err != nil {
			continue
		}
		out[sym] = price
	}
	return out, nil
}

var _ domain.TickCache = (*TickCache)(nil)
