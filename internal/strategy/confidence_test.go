package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ducminhle1904/regime-backtester/internal/indicators"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
)

func constantATR(n int, v float64) indicators.Series {
	s := make(indicators.Series, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func testSignal(value, regimeConfidence float64) *Signal {
	return &Signal{
		Signal:         value,
		Regime:         regime.RegimeSignal{Regime: regime.RegimeBullish, Confidence: regimeConfidence},
		ActiveStrategy: Bullish(&config.TradingConfig{BuyThreshold: 0.3, SellThreshold: -0.3}),
	}
}

func TestComputeConfidenceMonotonic(t *testing.T) {
	params := config.DefaultStrategyConfig().Confidence
	series := linearSeries(40, 100, 0)
	atr := constantATR(40, 1)

	near := ComputeConfidence(testSignal(0.35, 0.5), atr, series, 30, params)
	far := ComputeConfidence(testSignal(0.7, 0.5), atr, series, 30, params)
	assert.Greater(t, far, near)

	weak := ComputeConfidence(testSignal(0.7, 0.2), atr, series, 30, params)
	assert.Greater(t, far, weak)

	calm := ComputeConfidence(testSignal(0.7, 0.5), constantATR(40, 0.5), series, 30, params)
	wild := ComputeConfidence(testSignal(0.7, 0.5), constantATR(40, 4), series, 30, params)
	assert.Greater(t, calm, wild)
}

func TestComputeConfidenceValues(t *testing.T) {
	params := config.DefaultStrategyConfig().Confidence
	series := linearSeries(40, 100, 0)

	// distance 0.5 -> strength 1, regime 1, no volatility -> 1
	zeroVol := constantATR(40, 0)
	assert.InDelta(t, 1.0, ComputeConfidence(testSignal(0.8, 1), zeroVol, series, 39, params), 1e-12)

	// ATR/close = 0.02 halves the blend
	atr := constantATR(40, 2)
	assert.InDelta(t, 0.5, ComputeConfidence(testSignal(0.8, 1), atr, series, 39, params), 1e-12)

	assert.Equal(t, 0.0, ComputeConfidence(nil, atr, series, 39, params))
	assert.Equal(t, 0.0, ComputeConfidence(&Signal{}, atr, series, 39, params))
}

func TestNormalizedVolatilitySkipsWarmup(t *testing.T) {
	series := linearSeries(10, 100, 0)
	atr, err := indicators.SMA([]float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, 5)
	assert.NoError(t, err)

	assert.Equal(t, 0.0, NormalizedVolatility(atr, series, 2, 5))
	assert.InDelta(t, 0.01, NormalizedVolatility(atr, series, 6, 5), 1e-12)
}
