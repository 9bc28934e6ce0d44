package correlation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	simerrors "github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

func seriesFrom(closes []float64) *types.Series {
	candles := make([]types.PriceCandle, len(closes))
	for i, c := range closes {
		candles[i] = types.PriceCandle{Timestamp: int64(i) * 60_000, Open: c, High: c, Low: c, Close: c}
	}
	return types.NewSeries(candles)
}

func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 * math.Exp(0.01*float64(i)+0.02*math.Sin(float64(i)/3))
	}
	return out
}

// TestBuildAligned tests that identical series are fully correlated
func TestBuildAligned(t *testing.T) {
	closes := wave(60)
	adj, err := Build(seriesFrom(closes), seriesFrom(closes), DefaultParams())
	require.NoError(t, err)
	require.Len(t, adj, 60)

	for i := 0; i < 20; i++ {
		assert.Nil(t, adj[i], "index %d", i)
	}
	for i := 20; i < 60; i++ {
		require.NotNil(t, adj[i])
		assert.InDelta(t, 1, adj[i].Signal/clamp((closes[i]/closes[i-10]-1)/0.05, -1, 1), 1e-9)
		assert.Equal(t, ContextAligned, adj[i].Context)
		assert.GreaterOrEqual(t, adj[i].RiskLevel, 0.0)
		assert.LessOrEqual(t, adj[i].RiskLevel, 1.0)
	}
}

// TestBuildDivergent tests that an inverted secondary flips the sign
func TestBuildDivergent(t *testing.T) {
	closes := wave(40)
	inverse := make([]float64, len(closes))
	for i, c := range closes {
		inverse[i] = 10000 / c
	}

	adj, err := Build(seriesFrom(closes), seriesFrom(inverse), DefaultParams())
	require.NoError(t, err)
	last := adj[len(adj)-1]
	require.NotNil(t, last)
	assert.Equal(t, ContextDivergent, last.Context)
	// the inverse falls, so a negative correlation yields a positive signal
	assert.Greater(t, last.Signal, 0.0)
}

func TestBuildFlatSecondary(t *testing.T) {
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 50
	}

	adj, err := Build(seriesFrom(wave(30)), seriesFrom(flat), DefaultParams())
	require.NoError(t, err)
	last := adj[29]
	require.NotNil(t, last)
	assert.Equal(t, 0.0, last.Signal)
	assert.Equal(t, 0.0, last.RiskLevel)
	assert.Equal(t, ContextUncorrelated, last.Context)
}

func TestBuildErrors(t *testing.T) {
	good := seriesFrom(wave(30))

	_, err := Build(good, seriesFrom(wave(29)), DefaultParams())
	assert.True(t, simerrors.IsDataError(err))

	shifted := seriesFrom(wave(30))
	shifted.Candles[5].Timestamp++
	_, err = Build(good, shifted, DefaultParams())
	assert.True(t, simerrors.IsDataError(err))

	bad := wave(30)
	bad[3] = 0
	_, err = Build(good, seriesFrom(bad), DefaultParams())
	assert.True(t, simerrors.IsDataError(err))

	params := DefaultParams()
	params.Lookback = 1
	_, err = Build(good, good, params)
	assert.True(t, simerrors.IsConfigurationError(err))
}
