// Package ledger keeps the in-memory record of every emitted signal and
// resolves outcomes after expiry.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/infouniverseforloop/binary/internal/domain"
)

const maxRecentRead = 500

// Ledger is the append-only signal record. IDs are assigned sequentially
// from 1 under the ledger lock, so emission order and ID order always
// agree.
type Ledger struct {
	mu      sync.RWMutex
	signals []domain.Signal
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Append assigns the next ID, records the signal, and returns the stored
// copy.
func (l *Ledger) Append(sig domain.Signal) domain.Signal {
	l.mu.Lock()
	defer l.mu.Unlock()

	sig.ID = int64(len(l.signals) + 1)
	l.signals = append(l.signals, sig)
	return sig
}

// Recent returns up to n signals, newest last. n <= 0 or n beyond the read
// cap returns at most the cap.
func (l *Ledger) Recent(n int) []domain.Signal {
	if n <= 0 || n > maxRecentRead {
		n = maxRecentRead
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	start := len(l.signals) - n
	if start < 0 {
		start = 0
	}
	out := make([]domain.Signal, len(l.signals)-start)
	copy(out, l.signals[start:])
	return out
}

// RecentSignals adapts Recent to the HTTP history source contract.
func (l *Ledger) RecentSignals(ctx context.Context, limit int) ([]domain.Signal, error) {
	return l.Recent(limit), nil
}

// Get returns the signal with the given ID.
func (l *Ledger) Get(id int64) (domain.Signal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if id < 1 || id > int64(len(l.signals)) {
		return domain.Signal{}, fmt.Errorf("ledger: get %d: %w", id, domain.ErrNotFound)
	}
	return l.signals[id-1], nil
}

// Resolve sets the outcome of a signal exactly once. A second resolution
// attempt returns ErrAlreadyResolved and leaves the first result in place.
func (l *Ledger) Resolve(id int64, result domain.Result) (domain.Signal, error) {
	if result != domain.ResultWin && result != domain.ResultLoss {
		return domain.Signal{}, fmt.Errorf("ledger: resolve %d: result %q: %w", id, result, domain.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if id < 1 || id > int64(len(l.signals)) {
		return domain.Signal{}, fmt.Errorf("ledger: resolve %d: %w", id, domain.ErrNotFound)
	}
	idx := id - 1
	if l.signals[idx].Resolved() {
		return domain.Signal{}, fmt.Errorf("ledger: resolve %d: %w", id, domain.ErrAlreadyResolved)
	}
	l.signals[idx].Result = result
	return l.signals[idx], nil
}

// Unresolved returns the signals whose expiry has passed but whose outcome
// is still unset, given the current epoch seconds.
func (l *Ledger) Unresolved(now int64) []domain.Signal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.Signal
	for _, s := range l.signals {
		if !s.Resolved() && s.ExpiryTS <= now {
			out = append(out, s)
		}
	}
	return out
}

// Count returns the number of signals ever emitted.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.signals)
}

// Stats summarizes resolved outcomes for the admin surface.
func (l *Ledger) Stats() (wins, losses, pending int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, s := range l.signals {
		switch s.Result {
		case domain.ResultWin:
			wins++
		case domain.ResultLoss:
			losses++
		default:
			pending++
		}
	}
	return wins, losses, pending
}
