package domain

import (
	"context"
	"time"
)

// LockManager provides cross-process mutual exclusion. Multi-node
// deployments use it so only one scanner runs a cycle at a time.
type LockManager interface {
	// Acquire obtains the named lock for at most ttl and returns the
	// release function, or ErrLockHeld when another holder has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter bounds request rates per key over a sliding window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// TickCache shares the freshest tick per symbol across processes.
type TickCache interface {
	SetTick(ctx context.Context, symbol string, price float64, ts time.Time) error
	GetTick(ctx context.Context, symbol string) (float64, time.Time, error)
	GetTicks(ctx context.Context, symbols []string) (map[string]float64, error)
}
