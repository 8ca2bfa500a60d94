// Package market owns the per-symbol candle series. It is the only writer
// of candle state in the process; every other component receives read-only
// window copies.
package market

import (
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/infouniverseforloop/binary/internal/domain"
)

// maxCandles bounds each symbol's series; the oldest candle is evicted on
// overflow.
const maxCandles = 10000

// Store aggregates ticks into per-symbol candle ring buffers.
type Store struct {
	mu     sync.RWMutex
	series map[string][]domain.Candle
	logger *slog.Logger
}

// NewStore creates an empty candle store.
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		series: make(map[string][]domain.Candle),
		logger: logger.With(slog.String("component", "market_store")),
	}
}

// AppendTick folds one price/quantity observation into the symbol's series.
// The symbol is normalized to upper case; an empty symbol is a no-op. A tick
// in the same second as the last candle mutates it, otherwise a new candle
// is appended. Non-finite or non-positive prices are rejected; a negative
// or non-finite quantity is clamped to zero.
func (s *Store) AppendTick(symbol string, price, qty float64, tsSec int64) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		s.logger.Debug("rejected malformed tick",
			slog.String("symbol", symbol),
			slog.Float64("price", price),
		)
		return
	}
	if math.IsNaN(qty) || math.IsInf(qty, 0) || qty < 0 {
		qty = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	arr := s.series[symbol]
	if n := len(arr); n > 0 && arr[n-1].Time == tsSec {
		last := &arr[n-1]
		last.Close = price
		if price > last.High {
			last.High = price
		}
		if price < last.Low {
			last.Low = price
		}
		last.Volume += qty
		return
	}
	if n := len(arr); n > 0 && arr[n-1].Time > tsSec {
		// Out-of-order tick from a reconnecting feed; fold into the last
		// candle rather than breaking time monotonicity.
		last := &arr[n-1]
		last.Close = price
		if price > last.High {
			last.High = price
		}
		if price < last.Low {
			last.Low = price
		}
		last.Volume += qty
		return
	}

	arr = append(arr, domain.Candle{
		Time:   tsSec,
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Volume: qty,
	})
	if overflow := len(arr) - maxCandles; overflow > 0 {
		arr = append([]domain.Candle(nil), arr[overflow:]...)
	}
	s.series[symbol] = arr
}

// Len returns the number of candles held for symbol.
func (s *Store) Len(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series[strings.ToUpper(symbol)])
}

// Window returns a copy of the trailing n candles for symbol. If n <= 0 or
// exceeds the series length, the whole series is copied.
func (s *Store) Window(symbol string, n int) []domain.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	arr := s.series[strings.ToUpper(symbol)]
	if len(arr) == 0 {
		return nil
	}
	start := 0
	if n > 0 && n < len(arr) {
		start = len(arr) - n
	}
	out := make([]domain.Candle, len(arr)-start)
	copy(out, arr[start:])
	return out
}

// Last returns the most recent candle for symbol, if any.
func (s *Store) Last(symbol string) (domain.Candle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	arr := s.series[strings.ToUpper(symbol)]
	if len(arr) == 0 {
		return domain.Candle{}, false
	}
	return arr[len(arr)-1], true
}

// CloseAtOrAfter returns the close of the first candle whose time is >= ts,
// falling back to the latest close when the series ends before ts. Used by
// the outcome resolver.
func (s *Store) CloseAtOrAfter(symbol string, ts int64) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	arr := s.series[strings.ToUpper(symbol)]
	if len(arr) == 0 {
		return 0, false
	}
	for _, c := range arr {
		if c.Time >= ts {
			return c.Close, true
		}
	}
	return arr[len(arr)-1].Close, true
}
