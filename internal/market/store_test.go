package market

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAppendTick_SameBucketBounds(t *testing.T) {
	s := newTestStore()

	prices := []float64{1.10, 1.14, 1.08, 1.11}
	for _, p := range prices {
		s.AppendTick("eur/usd", p, 5, 1000)
	}

	c, ok := s.Last("EUR/USD")
	require.True(t, ok)
	assert.Equal(t, int64(1000), c.Time)
	assert.Equal(t, 1.10, c.Open)
	assert.Equal(t, 1.14, c.High)
	assert.Equal(t, 1.08, c.Low)
	assert.Equal(t, 1.11, c.Close)
	assert.Equal(t, 20.0, c.Volume)

	assert.GreaterOrEqual(t, c.High, c.Open)
	assert.GreaterOrEqual(t, c.High, c.Close)
	assert.LessOrEqual(t, c.Low, c.Open)
	assert.LessOrEqual(t, c.Low, c.Close)
}

func TestAppendTick_NewBucketAppends(t *testing.T) {
	s := newTestStore()

	s.AppendTick("GBP/USD", 1.25, 1, 10)
	s.AppendTick("GBP/USD", 1.26, 1, 11)
	s.AppendTick("GBP/USD", 1.27, 1, 12)

	require.Equal(t, 3, s.Len("GBP/USD"))
	w := s.Window("GBP/USD", 0)
	for i := 1; i < len(w); i++ {
		assert.Greater(t, w[i].Time, w[i-1].Time, "times must be strictly increasing")
	}
}

func TestAppendTick_EmptySymbolNoop(t *testing.T) {
	s := newTestStore()
	s.AppendTick("", 1.0, 1, 10)
	s.AppendTick("   ", 1.0, 1, 10)
	assert.Equal(t, 0, s.Len(""))
}

func TestAppendTick_RejectsMalformedPrice(t *testing.T) {
	s := newTestStore()

	s.AppendTick("USD/JPY", math.NaN(), 1, 10)
	s.AppendTick("USD/JPY", -3, 1, 10)
	s.AppendTick("USD/JPY", 0, 1, 10)
	assert.Equal(t, 0, s.Len("USD/JPY"))

	// Negative quantity is clamped, not rejected.
	s.AppendTick("USD/JPY", 150.1, -5, 10)
	c, ok := s.Last("USD/JPY")
	require.True(t, ok)
	assert.Equal(t, 0.0, c.Volume)
}

func TestAppendTick_Eviction(t *testing.T) {
	s := newTestStore()
	for i := 0; i < maxCandles+25; i++ {
		s.AppendTick("BTC (OTC)", 100, 1, int64(i))
	}
	require.Equal(t, maxCandles, s.Len("BTC (OTC)"))

	w := s.Window("BTC (OTC)", 1)
	assert.Equal(t, int64(maxCandles+24), w[0].Time)
}

func TestWindow_ReturnsCopy(t *testing.T) {
	s := newTestStore()
	s.AppendTick("AUD/USD", 0.65, 1, 10)

	w := s.Window("AUD/USD", 10)
	require.Len(t, w, 1)
	w[0].Close = 999

	c, _ := s.Last("AUD/USD")
	assert.Equal(t, 0.65, c.Close)
}

func TestAppendTick_ConcurrentSymbols(t *testing.T) {
	s := newTestStore()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			sym := fmt.Sprintf("SYM%d", g)
			for i := 0; i < 500; i++ {
				s.AppendTick(sym, 1.0+float64(i)*0.001, 1, int64(i))
			}
		}(g)
	}
	wg.Wait()

	for g := 0; g < 8; g++ {
		assert.Equal(t, 500, s.Len(fmt.Sprintf("SYM%d", g)))
	}
}

func TestCloseAtOrAfter(t *testing.T) {
	s := newTestStore()
	s.AppendTick("EUR/USD", 1.10, 1, 100)
	s.AppendTick("EUR/USD", 1.11, 1, 101)
	s.AppendTick("EUR/USD", 1.12, 1, 102)

	close1, ok := s.CloseAtOrAfter("EUR/USD", 101)
	require.True(t, ok)
	assert.Equal(t, 1.11, close1)

	// Past the end of the series: latest close.
	close2, ok := s.CloseAtOrAfter("EUR/USD", 500)
	require.True(t, ok)
	assert.Equal(t, 1.12, close2)

	_, ok = s.CloseAtOrAfter("UNKNOWN", 100)
	assert.False(t, ok)
}
