package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/regime-backtester/internal/safety"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
)

func defaultKelly() config.KellyParams {
	return config.KellyParams{Enabled: true, LookbackPeriod: 20, MinTrades: 10, FractionalMultiplier: 0.25}
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// TestKellyReferenceScenario tests 10 wins of +100 and 5 losses of -50
func TestKellyReferenceScenario(t *testing.T) {
	pnls := append(repeat(100, 10), repeat(-50, 5)...)
	res := NewKellySizer(defaultKelly()).Compute(pnls, 0.5)

	assert.False(t, res.UsedFallback)
	assert.Equal(t, 15, res.Trades)
	assert.InDelta(t, 0.667, res.WinRate, 0.001)
	assert.InDelta(t, 2.0, res.WinLossRatio, 1e-12)
	assert.InDelta(t, 0.5, res.KellyFraction, 1e-9)
	assert.InDelta(t, 0.125, res.FractionalKelly, 1e-9)
	assert.InDelta(t, 0.125, res.PositionPct, 1e-9)
}

func TestKellyFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		params   config.KellyParams
		pnls     []float64
		fallback bool
		kelly    float64
	}{
		{"too few trades", defaultKelly(), repeat(100, 9), true, 0},
		{"disabled", config.KellyParams{}, repeat(100, 30), true, 0},
		{"no losses with high win rate", defaultKelly(), append(repeat(100, 8), 0, 0), false, 0.8},
		{"no losses with low win rate", defaultKelly(), append(repeat(100, 5), repeat(0, 5)...), true, 0},
		{"no wins", defaultKelly(), repeat(-10, 12), false, 0},
		{"negative edge", defaultKelly(), append(repeat(10, 3), repeat(-50, 9)...), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewKellySizer(tt.params).Compute(tt.pnls, 0.3)
			assert.Equal(t, tt.fallback, res.UsedFallback)
			if tt.fallback {
				assert.Equal(t, 0.3, res.PositionPct)
				return
			}
			assert.InDelta(t, tt.kelly, res.KellyFraction, 1e-9)
			assert.GreaterOrEqual(t, res.FractionalKelly, 0.0)
			assert.LessOrEqual(t, res.FractionalKelly, tt.params.FractionalMultiplier)
		})
	}
}

func TestKellyUsesLookbackWindow(t *testing.T) {
	params := defaultKelly()
	params.LookbackPeriod = 10
	// old losses fall out of the window
	pnls := append(repeat(-100, 10), repeat(50, 10)...)
	res := NewKellySizer(params).Compute(pnls, 1)
	assert.Equal(t, 10, res.Trades)
	assert.Equal(t, 1.0, res.WinRate)
	assert.InDelta(t, 0.25, res.FractionalKelly, 1e-12)
}

func TestKellyBounds(t *testing.T) {
	sizer := NewKellySizer(defaultKelly())
	for wins := 0; wins <= 20; wins++ {
		pnls := append(repeat(30, wins), repeat(-20, 20-wins)...)
		res := sizer.Compute(pnls, 0.5)
		assert.GreaterOrEqual(t, res.FractionalKelly, 0.0)
		assert.LessOrEqual(t, res.FractionalKelly, 0.25)
		assert.LessOrEqual(t, res.PositionPct, 0.5)
	}
}

func TestPnLWindow(t *testing.T) {
	w := NewPnLWindow(3)
	for _, v := range []float64{1, 2, 3, 4} {
		w.Add(v)
	}
	assert.Equal(t, []float64{2, 3, 4}, w.Values())
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, 1, NewPnLWindow(0).size)
}

// TestTrailingStopMonotonic tests that the stop never moves down
func TestTrailingStopMonotonic(t *testing.T) {
	stop := NewStopLevel(100, 2, 2)
	assert.Equal(t, 96.0, stop.Stop)
	assert.False(t, stop.Raised())

	prices := []float64{101, 105, 103, 110, 104, 108, 99}
	atrs := []float64{2, 3, 1, 4, 6, 1, 10}
	last := stop.Stop
	for i, p := range prices {
		stop.Update(p, atrs[i], 2, true)
		assert.GreaterOrEqual(t, stop.Stop, last)
		last = stop.Stop
	}
	assert.Equal(t, 110.0, stop.Highest)
	assert.Equal(t, 108.0, stop.Stop)

	hit, reason := stop.Triggered(107.5)
	assert.True(t, hit)
	assert.Equal(t, ExitTrailingStop, reason)
	hit, _ = stop.Triggered(108)
	assert.False(t, hit)
}

func TestStopWithoutTrailing(t *testing.T) {
	stop := NewStopLevel(100, 5, 2)
	assert.False(t, stop.Update(150, 1, 2, false))
	assert.Equal(t, 90.0, stop.Stop)
	assert.Equal(t, 150.0, stop.Highest)

	hit, reason := stop.Triggered(50)
	assert.True(t, hit)
	assert.Equal(t, ExitStopLoss, reason)

	assert.Equal(t, 0.0, NewStopLevel(1, 5, 2).Stop)
}

// TestStopHalvingDrop tests that a 50% drop lands below a 2xATR stop
func TestStopHalvingDrop(t *testing.T) {
	stop := NewStopLevel(100, 1.5, 2)
	stop.Update(101, 1.5, 2, true)
	stop.Update(50, 9, 2, true)

	hit, reason := stop.Triggered(50)
	require.True(t, hit)
	assert.Equal(t, ExitTrailingStop, reason)
	assert.Less(t, 50.0, stop.Stop)
}

func testConfig() *config.StrategyConfig {
	cfg := config.DefaultStrategyConfig()
	cfg.Drawdown = config.DrawdownParams{
		WarnThreshold:          0.1,
		WarnSizeMultiplier:     0.5,
		HardThreshold:          0.2,
		CircuitBreakerLookback: 3,
		CircuitBreakerWinRate:  0.5,
		CooldownPeriods:        4,
		SuccessThreshold:       1,
	}
	return cfg
}

func TestOverseerDrawdown(t *testing.T) {
	o := NewOverseer(testConfig(), 1000)

	a := o.Assess(0, 1100)
	assert.Equal(t, 1100.0, a.Peak)
	assert.Equal(t, 0.0, a.Drawdown)
	assert.Equal(t, 1.0, a.SizeMultiplier)

	a = o.Assess(1, 980)
	assert.InDelta(t, 0.10909, a.Drawdown, 1e-4)
	assert.Equal(t, 0.5, a.SizeMultiplier)
	assert.False(t, a.Liquidate)

	a = o.Assess(2, 880)
	assert.True(t, a.Liquidate)

	o.AfterLiquidation(2, 880, true)
	a = o.Assess(3, 880)
	assert.Equal(t, 0.0, a.Drawdown)
	assert.True(t, a.EntriesPaused)

	a = o.Assess(6, 880)
	assert.False(t, a.EntriesPaused)
	assert.Equal(t, safety.StateHalfOpen, o.Breaker().GetState())
	assert.Equal(t, 1, o.Stats().Liquidations)
	assert.Equal(t, 1, o.Stats().DrawdownTrips)
}

// TestOverseerFlatTrip tests that tripping the guard on a flat book rebases
// and pauses without counting a liquidation
func TestOverseerFlatTrip(t *testing.T) {
	o := NewOverseer(testConfig(), 1000)
	o.Assess(0, 1100)
	require.True(t, o.Assess(1, 800).Liquidate)

	o.AfterLiquidation(1, 800, false)
	a := o.Assess(2, 800)
	assert.False(t, a.Liquidate)
	assert.Equal(t, 0.0, a.Drawdown)
	assert.True(t, a.EntriesPaused)

	stats := o.Stats()
	assert.Equal(t, 1, stats.DrawdownTrips)
	assert.Zero(t, stats.Liquidations)
}

func TestOverseerWinRateBreaker(t *testing.T) {
	o := NewOverseer(testConfig(), 1000)
	o.RecordClosedTrade(10, -5)
	o.RecordClosedTrade(11, 5)
	assert.False(t, o.Assess(11, 1000).EntriesPaused)

	o.RecordClosedTrade(12, -5) // 1 of 3
	assert.True(t, o.Assess(13, 1000).EntriesPaused)
	assert.False(t, o.Assess(16, 1000).EntriesPaused)

	stats := o.Stats()
	assert.Equal(t, 3, stats.ClosedTrades)
	assert.Equal(t, 1, stats.CircuitBreaker.Trips)

	sizing := o.Size(0.4)
	assert.True(t, sizing.UsedFallback)
	assert.Equal(t, 0.4, sizing.PositionPct)
}
