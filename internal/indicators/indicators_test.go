package indicators

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// waveCandles generates a deterministic oscillating uptrend
func waveCandles(n int) []types.PriceCandle {
	candles := make([]types.PriceCandle, n)
	for i := 0; i < n; i++ {
		price := 100 + float64(i)*0.5 + 5*math.Sin(float64(i)/3)
		candles[i] = types.PriceCandle{
			Timestamp: int64(i+1) * 60_000,
			Open:      price - 0.3,
			High:      price + 1.2,
			Low:       price - 1.1,
			Close:     price,
			Volume:    1000,
		}
	}
	return candles
}

func closesOf(candles []types.PriceCandle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func assertSeries(t *testing.T, expected []float64, actual Series) {
	t.Helper()
	require.Len(t, actual, len(expected))
	for i, e := range expected {
		if math.IsNaN(e) {
			_, ok := actual.At(i)
			assert.False(t, ok, "index %d should be warm-up", i)
			continue
		}
		v, ok := actual.At(i)
		require.True(t, ok, "index %d should be available", i)
		assert.InDelta(t, e, v, 1e-9, "index %d", i)
	}
}

var nan = math.NaN()

func TestSMA(t *testing.T) {
	s, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assertSeries(t, []float64{nan, nan, 2, 3, 4}, s)
	assert.Equal(t, 2, s.FirstValid())

	_, err = SMA([]float64{1}, 0)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestEMASeries(t *testing.T) {
	s, err := EMASeries([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assertSeries(t, []float64{nan, nan, 2, 3, 4}, s)

	// leading NaN values are skipped before seeding
	chained, err := EMASeries([]float64{nan, nan, 1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assertSeries(t, []float64{nan, nan, nan, nan, 2, 3, 4}, chained)
}

func TestEMAIncremental(t *testing.T) {
	ema := NewEMA(2)
	_, ok := ema.UpdateSingle(10)
	assert.False(t, ok)
	v, ok := ema.UpdateSingle(20)
	assert.True(t, ok)
	assert.Equal(t, 15.0, v)
	v, _ = ema.UpdateSingle(30)
	assert.InDelta(t, 30*2.0/3.0+15*1.0/3.0, v, 1e-12)

	ema.ResetState()
	assert.False(t, ema.IsInitialized())
	assert.Equal(t, 0.0, ema.GetLastValue())
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		period   int
		expected []float64
	}{
		{"alternating", []float64{1, 2, 1, 2, 1}, 2, []float64{nan, nan, 50, 75, 37.5}},
		{"flat", []float64{5, 5, 5, 5}, 2, []float64{nan, nan, 50, 50}},
		{"rising", []float64{1, 2, 3, 4}, 2, []float64{nan, nan, 100, 100}},
		{"too short", []float64{1, 2}, 2, []float64{nan, nan}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := RSI(tt.values, tt.period)
			require.NoError(t, err)
			assertSeries(t, tt.expected, s)
		})
	}
}

func TestMACD(t *testing.T) {
	flat := make([]float64, 60)
	for i := range flat {
		flat[i] = 42
	}

	res, err := MACD(flat, 12, 26, 9)
	require.NoError(t, err)
	assert.Equal(t, 25, res.Line.FirstValid())
	assert.Equal(t, 33, res.Signal.FirstValid())
	assert.Equal(t, 33, res.Histogram.FirstValid())
	for i := 33; i < len(flat); i++ {
		assert.InDelta(t, 0, res.Line[i], 1e-12)
		assert.InDelta(t, 0, res.Histogram[i], 1e-12)
	}

	_, err = MACD(flat, 26, 12, 9)
	assert.Error(t, err)
}

func TestATR(t *testing.T) {
	candles := make([]types.PriceCandle, 10)
	for i := range candles {
		candles[i] = types.PriceCandle{Timestamp: int64(i), Open: 100, High: 101, Low: 99, Close: 100}
	}

	for _, mode := range []ATRMode{ATRModeSimple, ATRModeEMA, ATRModeWilder} {
		t.Run(string(mode), func(t *testing.T) {
			s, err := ATR(candles, 3, mode)
			require.NoError(t, err)
			assert.Equal(t, 2, s.FirstValid())
			for i := 2; i < len(candles); i++ {
				assert.InDelta(t, 2.0, s[i], 1e-12)
			}
		})
	}

	_, err := ATR(candles, 3, "bogus")
	assert.Error(t, err)

	gap := []types.PriceCandle{
		{Close: 100, High: 101, Low: 99},
		{Close: 90, High: 95, Low: 89},
	}
	tr := TrueRange(gap)
	assert.Equal(t, []float64{2, 11}, tr)
}

func TestRateOfChange(t *testing.T) {
	s, err := RateOfChange([]float64{100, 110, 121, 0, 5}, 1)
	require.NoError(t, err)
	assertSeries(t, []float64{nan, 0.1, 0.1, -1, nan}, s)
}

// TestNoLookAhead tests that extending a series never changes earlier values
func TestNoLookAhead(t *testing.T) {
	full := waveCandles(120)
	prefix := full[:70]

	type calc func(c []types.PriceCandle) Series
	calcs := map[string]calc{
		"sma": func(c []types.PriceCandle) Series { s, _ := SMA(closesOf(c), 10); return s },
		"ema": func(c []types.PriceCandle) Series { s, _ := EMASeries(closesOf(c), 10); return s },
		"rsi": func(c []types.PriceCandle) Series { s, _ := RSI(closesOf(c), 14); return s },
		"atr": func(c []types.PriceCandle) Series { s, _ := ATR(c, 14, ATRModeWilder); return s },
		"roc": func(c []types.PriceCandle) Series { s, _ := RateOfChange(closesOf(c), 10); return s },
		"macd": func(c []types.PriceCandle) Series {
			r, _ := MACD(closesOf(c), 12, 26, 9)
			return r.Histogram
		},
	}

	for name, fn := range calcs {
		t.Run(name, func(t *testing.T) {
			a := fn(prefix)
			b := fn(full)
			for i := range a {
				if math.IsNaN(a[i]) {
					assert.True(t, math.IsNaN(b[i]))
					continue
				}
				assert.Equal(t, a[i], b[i], "index %d", i)
			}
		})
	}
}

func TestCache(t *testing.T) {
	series := types.NewSeries(waveCandles(80))
	other := types.NewSeries(waveCandles(90))
	cache := NewCache()

	first, err := cache.EMA(series, 20)
	require.NoError(t, err)
	second, err := cache.EMA(series, 20)
	require.NoError(t, err)
	assert.True(t, &first[0] == &second[0], "second call should return the cached slice")
	assert.Equal(t, first[40], second[40])

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)

	_, err = cache.EMA(series, 50)
	require.NoError(t, err)
	_, err = cache.ATR(other, 14, ATRModeSimple)
	require.NoError(t, err)
	assert.Equal(t, 3, cache.Stats().Entries)

	cache.Invalidate(series.ID)
	assert.Equal(t, 1, cache.Stats().Entries)

	cache.Reset()
	assert.Equal(t, CacheStats{}, cache.Stats())

	_, err = cache.SMA(series, 0)
	assert.Error(t, err)
	assert.Equal(t, 0, cache.Stats().Entries)
}

func TestCacheNilComputesDirectly(t *testing.T) {
	var cache *Cache
	series := types.NewSeries(waveCandles(40))
	s, err := cache.RSI(series, 14)
	require.NoError(t, err)
	assert.Equal(t, 14, s.FirstValid())
	assert.Equal(t, CacheStats{}, cache.Stats())
}

func TestCacheConcurrentReaders(t *testing.T) {
	series := types.NewSeries(waveCandles(200))
	cache := NewCache()
	expected, err := MACD(series.Closes(), 12, 26, 9)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 50; k++ {
				res, err := cache.MACD(series, 12, 26, 9)
				if assert.NoError(t, err) {
					assert.Equal(t, expected.Histogram[150], res.Histogram[150])
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cache.Stats().Entries)
	assert.Equal(t, uint64(16*50), cache.Stats().Hits+cache.Stats().Misses)
}

func TestSMAChainsOnWarmupSeries(t *testing.T) {
	s, err := SMA([]float64{nan, nan, 1, 2, 3, nan, 4, 5}, 2)
	require.NoError(t, err)
	assertSeries(t, []float64{nan, nan, nan, 1.5, 2.5, nan, nan, 4.5}, s)
}
