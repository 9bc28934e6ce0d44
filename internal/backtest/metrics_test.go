package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/regime-backtester/internal/indicators"
	"github.com/ducminhle1904/regime-backtester/internal/portfolio"
	"github.com/ducminhle1904/regime-backtester/internal/risk"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// TestSharpeRatio tests the population-stddev Sharpe ratio
func TestSharpeRatio(t *testing.T) {
	tests := []struct {
		name          string
		returns       []float64
		annualization float64
		want          float64
	}{
		{"empty", nil, 1, 0},
		{"single return", []float64{0.05}, 1, 0},
		{"flat", []float64{0.01, 0.01, 0.01}, 1, 0},
		{"two periods annualized", []float64{0.02, 0}, 4, 2},
		{"unannualized", []float64{0.02, 0}, 1, 1},
		{"non-positive factor falls back to 1", []float64{0.02, 0}, 0, 1},
		{"losing", []float64{-0.02, 0}, 1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, sharpeRatio(tt.returns, tt.annualization), 1e-9)
		})
	}
}

// TestAnnualizationFactor tests inference from candle spacing
func TestAnnualizationFactor(t *testing.T) {
	cfg := config.DefaultStrategyConfig()

	hourly := types.NewSeries(constantCandles(10, 100))
	assert.InDelta(t, 8766, annualizationFactor(cfg, hourly), 1e-6)

	daily := make([]types.PriceCandle, 5)
	for i := range daily {
		daily[i] = types.PriceCandle{Timestamp: baseTimestamp + int64(i)*24*hourMs, Open: 1, High: 1, Low: 1, Close: 1}
	}
	assert.InDelta(t, 365.25, annualizationFactor(cfg, types.NewSeries(daily)), 1e-6)

	assert.Equal(t, 1.0, annualizationFactor(cfg, types.NewSeries(constantCandles(1, 100))))

	cfg.AnnualizationFactor = 252
	assert.Equal(t, 252.0, annualizationFactor(cfg, hourly))
}

// TestComputeBaseline tests buy-and-hold from the first simulated candle
func TestComputeBaseline(t *testing.T) {
	series := types.NewSeries([]types.PriceCandle{
		candleAt(0, 50, 50, 50, 50),
		candleAt(1, 100, 100, 100, 100),
		candleAt(2, 110, 110, 110, 110),
		candleAt(3, 99, 99, 99, 99),
	})

	b := computeBaseline(series, 1, 1000, 1)
	assert.InDelta(t, -1.0, b.ReturnPct, 1e-9)
	assert.InDelta(t, 10.0, b.MaxDrawdownPct, 1e-9)

	assert.Equal(t, BaselineMetrics{}, computeBaseline(series, 4, 1000, 1))
	assert.Equal(t, BaselineMetrics{}, computeBaseline(series, 0, 0, 1))
}

// TestComputeMetrics tests aggregation of snapshots and fills
func TestComputeMetrics(t *testing.T) {
	cfg := config.DefaultStrategyConfig()
	cfg.AnnualizationFactor = 1
	series := types.NewSeries(constantCandles(60, 100))
	sc := newSimulationContext("test", cfg, series, nil, indicators.NewCache())

	sc.Snapshots = []Snapshot{
		{TotalValue: 10000, Asset: 0, PeriodReturn: 0},
		{TotalValue: 11000, Asset: 1, PeriodReturn: 0.1, Drawdown: 0},
		{TotalValue: 9900, Asset: 1, PeriodReturn: -0.1, Drawdown: 0.1},
		{TotalValue: 10500, Asset: 0, PeriodReturn: 10500.0/9900 - 1, Drawdown: 0.0454},
	}
	sc.Trades = []*portfolio.Trade{
		{Type: portfolio.TradeBuy, Fee: 1},
		{Type: portfolio.TradeSell, Fee: 1, PnL: 300},
		{Type: portfolio.TradeBuy, Fee: 1},
		{Type: portfolio.TradeSell, Fee: 1, PnL: -100, Reason: risk.ExitTrailingStop},
	}
	sc.Portfolio.SellCount = 2
	sc.Portfolio.WinCount = 1
	sc.stopExits = 1

	m := computeMetrics(sc, cfg)
	assert.Equal(t, 10000.0, m.InitialCapital)
	assert.Equal(t, 10500.0, m.FinalValue)
	assert.InDelta(t, 5.0, m.TotalReturnPct, 1e-9)
	assert.InDelta(t, 10.0, m.MaxDrawdownPct, 1e-9)
	assert.InDelta(t, 50.0, m.ExposurePct, 1e-9)
	assert.Equal(t, 4, m.TotalTrades)
	assert.Equal(t, 2, m.BuyCount)
	assert.Equal(t, 2, m.SellCount)
	assert.Equal(t, 0.5, m.WinRate)
	assert.InDelta(t, 3.0, m.ProfitFactor, 1e-9)
	assert.InDelta(t, 4.0, m.TotalFees, 1e-9)
	assert.Equal(t, 1, m.StopExits)
	assert.Equal(t, 1.0, m.AnnualizationFactor)
	assert.NotZero(t, m.SharpeRatio)
}

// TestComputeMetricsWithoutLosses tests that profit factor stays finite
func TestComputeMetricsWithoutLosses(t *testing.T) {
	cfg := config.DefaultStrategyConfig()
	series := types.NewSeries(constantCandles(60, 100))
	sc := newSimulationContext("test", cfg, series, nil, indicators.NewCache())
	sc.Trades = []*portfolio.Trade{{Type: portfolio.TradeSell, PnL: 50}}

	m := computeMetrics(sc, cfg)
	require.Empty(t, sc.Snapshots)
	assert.Equal(t, 0.0, m.ProfitFactor)
	assert.Equal(t, 10000.0, m.FinalValue)
	assert.Equal(t, 0.0, m.ExposurePct)
}
