package market

import (
	"math/rand"
	"strings"
	"time"

	"github.com/infouniverseforloop/binary/internal/domain"
)

// SimulateTick feeds one synthetic tick for symbol, keeping cold symbols
// warm while no live feed covers them.
func (s *Store) SimulateTick(symbol string) {
	base := 1.0
	spread := 0.003
	switch {
	case domain.Classify(symbol) == domain.ClassCrypto:
		base = rand.Float64()*200 + 20
		spread = 2
	case strings.HasPrefix(strings.ToUpper(symbol), "EUR"):
		base = 1.09
	}
	price := base + (rand.Float64()-0.5)*spread
	qty := rand.Float64() * 100
	s.AppendTick(symbol, price, qty, time.Now().Unix())
}

// Warmup seeds n historical one-second candles per symbol so filters have
// enough history immediately after start.
func (s *Store) Warmup(symbols []string, n int) {
	now := time.Now().Unix()
	for _, sym := range symbols {
		base := 1.0
		if strings.HasPrefix(strings.ToUpper(sym), "EUR") {
			base = 1.09
		}
		for i := 0; i < n; i++ {
			ts := now - int64(n-i)
			price := base + (rand.Float64()-0.5)*0.005
			s.AppendTick(sym, price, rand.Float64()*100, ts)
		}
	}
}
