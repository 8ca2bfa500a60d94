package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/infouniverseforloop/binary/internal/domain"
)

// flatSeries builds n identical candles.
func flatSeries(n int, price float64) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := range out {
		out[i] = domain.Candle{
			Time: int64(i), Open: price, High: price, Low: price,
			Close: price, Volume: 10,
		}
	}
	return out
}

// trendSeries builds n candles stepping the close by step each candle.
func trendSeries(n int, start, step, volume float64) []domain.Candle {
	out := make([]domain.Candle, n)
	price := start
	for i := range out {
		next := price + step
		hi, lo := price, next
		if next > price {
			hi, lo = next, price
		}
		out[i] = domain.Candle{
			Time: int64(i), Open: price, High: hi, Low: lo,
			Close: next, Volume: volume,
		}
		price = next
	}
	return out
}

func TestDetectRegime_InsufficientHistory(t *testing.T) {
	assert.Equal(t, domain.RegimeNoTrade, DetectRegime(flatSeries(39, 1.1)))
	assert.Equal(t, domain.RegimeNoTrade, DetectRegime(nil))
}

func TestDetectRegime_Volatile(t *testing.T) {
	// 40 candles stepping 0.001 on a ~1.1 base: range/close ≈ 0.036 > 0.02.
	series := trendSeries(40, 1.10, 0.001, 10)
	assert.Equal(t, domain.RegimeVolatile, DetectRegime(series))
}

func TestDetectRegime_HighLiquidity(t *testing.T) {
	series := flatSeries(40, 1.1)
	for i := range series {
		series[i].Volume = 5000
	}
	assert.Equal(t, domain.RegimeHighLiquidity, DetectRegime(series))
}

func TestDetectRegime_Normal(t *testing.T) {
	assert.Equal(t, domain.RegimeNormal, DetectRegime(flatSeries(40, 1.1)))
}

func TestCheckDivergence_BearishFlip(t *testing.T) {
	// Prior 20 candles rising steadily (RSI near 100), most recent 20
	// falling steadily (RSI near 0).
	up := trendSeries(20, 1.00, 0.002, 10)
	down := trendSeries(20, up[len(up)-1].Close, -0.002, 10)
	series := append(up, down...)

	res := CheckDivergence(series)
	assert.True(t, res.Forbid)
	assert.Equal(t, "momentum-divergence", res.Reason)
}

func TestCheckDivergence_FlatAllows(t *testing.T) {
	assert.False(t, CheckDivergence(flatSeries(60, 1.1)).Forbid)
}

func TestCheckDivergence_InsufficientHistory(t *testing.T) {
	assert.False(t, CheckDivergence(flatSeries(29, 1.1)).Forbid)
}

func TestCheckDivergence_SustainedUptrendAllows(t *testing.T) {
	assert.False(t, CheckDivergence(trendSeries(60, 1.0, 0.001, 10)).Forbid)
}

func TestCheckLiquiditySweep_SweepCandle(t *testing.T) {
	series := flatSeries(20, 1.10)
	// Give the trailing 10 a modest collective range...
	for i := 10; i < 19; i++ {
		series[i].High = 1.101
		series[i].Low = 1.099
	}
	// ...and make the last candle a sweep covering nearly all of it.
	series[19].High = 1.104
	series[19].Low = 1.096
	series[19].Open = 1.10
	series[19].Close = 1.097

	res := CheckLiquiditySweep(series)
	assert.True(t, res.Forbid)
	assert.Equal(t, "liquidity-sweep", res.Reason)
}

func TestCheckLiquiditySweep_QuietTapeAllows(t *testing.T) {
	series := trendSeries(40, 1.10, 0.0004, 10)
	assert.False(t, CheckLiquiditySweep(series).Forbid)
}

func TestCheckLiquiditySweep_InsufficientHistory(t *testing.T) {
	assert.False(t, CheckLiquiditySweep(flatSeries(19, 1.1)).Forbid)
}
