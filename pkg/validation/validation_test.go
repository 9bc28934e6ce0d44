package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	simerrors "github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/data"
	"github.com/ducminhle1904/regime-backtester/pkg/optimization"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// fixedOptimizer returns the base config scored on the training window
type fixedOptimizer struct {
	calls   int
	lengths []int
	err     error
}

func (f *fixedOptimizer) Optimize(ctx context.Context, base *config.StrategyConfig, candles []types.PriceCandle, opts backtest.RunOptions) (*optimization.Result, error) {
	f.calls++
	f.lengths = append(f.lengths, len(candles))
	if f.err != nil {
		return nil, f.err
	}
	engine, err := backtest.NewEngine(base)
	if err != nil {
		return nil, err
	}
	res, err := engine.Run(ctx, candles, opts)
	if err != nil {
		return nil, err
	}
	best := optimization.NewIndividual(base.Clone())
	best.Result = res
	best.Evaluated = true
	return &optimization.Result{Best: best, Config: best.Config}, nil
}

// hourlyCandles returns n hourly candles on a gentle uptrend
func hourlyCandles(n int) []types.PriceCandle {
	return data.Linear(data.SyntheticParams{Count: n}, 100, 0.05)
}

func TestSplitByRatio(t *testing.T) {
	s := NewDefaultDataSplitter()
	candles := hourlyCandles(720)

	fold, ok := s.SplitByRatio(candles, 0.7)
	require.True(t, ok)
	assert.Equal(t, 0, fold.TrainFrom)
	assert.Equal(t, 504, fold.TrainTo)
	assert.Equal(t, 720, fold.TestTo)
	assert.Equal(t, 216, fold.TestLen())
	assert.Equal(t, candles[504].Time(), fold.TestStart)
	assert.Equal(t, candles[719].Time(), fold.TestEnd)

	for _, ratio := range []float64{0, 1, -0.5, 0.05, 0.999} {
		_, ok := s.SplitByRatio(candles, ratio)
		assert.False(t, ok, "ratio %v", ratio)
	}
}

func TestCreateRollingFolds(t *testing.T) {
	s := NewDefaultDataSplitter()
	candles := hourlyCandles(720) // 30 days

	folds := s.CreateRollingFolds(candles, 10, 5, 5)
	require.Len(t, folds, 4)
	for i, f := range folds {
		assert.Equal(t, i*120, f.TrainFrom)
		assert.Equal(t, 240, f.TrainLen())
		assert.Equal(t, 120, f.TestLen())
		assert.True(t, f.TestStart.After(f.TrainEnd))
	}

	assert.Empty(t, s.CreateRollingFolds(candles, 40, 5, 5))
	assert.Empty(t, s.CreateRollingFolds(candles, 0, 5, 5))
	assert.Empty(t, s.CreateRollingFolds(hourlyCandles(50), 1, 1, 1))

	// a zero roll still advances by one candle
	assert.NotEmpty(t, s.CreateRollingFolds(hourlyCandles(300), 10, 1, 0))
}

// TestValidateRolling tests that every fold trades only its test window
func TestValidateRolling(t *testing.T) {
	candles := hourlyCandles(720)
	opt := &fixedOptimizer{}
	v := NewDefaultWalkForwardValidator(opt, zerolog.Nop())

	summary, err := v.Validate(context.Background(), config.DefaultStrategyConfig(), candles, WalkForwardConfig{
		Rolling: true, TrainDays: 10, TestDays: 5, RollDays: 5,
	})
	require.NoError(t, err)
	require.Len(t, summary.Results, 4)
	assert.Equal(t, 4, opt.calls)
	assert.Equal(t, []int{240, 240, 240, 240}, opt.lengths)

	for i, r := range summary.Results {
		assert.Equal(t, i+1, r.Fold)
		assert.Len(t, r.Test.Snapshots, 120)
		assert.Equal(t, r.TestStart.UnixMilli(), r.Test.Snapshots[0].Timestamp)
		assert.NotNil(t, r.BestConfig)
	}
	assert.NotEmpty(t, summary.OverfittingRisk)
}

func TestValidateHoldout(t *testing.T) {
	v := NewDefaultWalkForwardValidator(&fixedOptimizer{}, zerolog.Nop())

	summary, err := v.Validate(context.Background(), config.DefaultStrategyConfig(), hourlyCandles(400), WalkForwardConfig{SplitRatio: 0.75})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Len(t, summary.Results[0].Test.Snapshots, 100)
}

func TestValidateErrors(t *testing.T) {
	ctx := context.Background()
	candles := hourlyCandles(400)

	bad := config.DefaultStrategyConfig()
	bad.Bullish = nil
	_, err := NewDefaultWalkForwardValidator(&fixedOptimizer{}, zerolog.Nop()).Validate(ctx, bad, candles, WalkForwardConfig{SplitRatio: 0.7})
	assert.True(t, simerrors.IsConfigurationError(err))

	_, err = NewDefaultWalkForwardValidator(&fixedOptimizer{}, zerolog.Nop()).Validate(ctx, config.DefaultStrategyConfig(), hourlyCandles(60), WalkForwardConfig{SplitRatio: 0.7})
	assert.True(t, simerrors.IsDataError(err))

	boom := errors.New("boom")
	_, err = NewDefaultWalkForwardValidator(&fixedOptimizer{err: boom}, zerolog.Nop()).Validate(ctx, config.DefaultStrategyConfig(), candles, WalkForwardConfig{SplitRatio: 0.7})
	assert.ErrorIs(t, err, boom)
}

func foldWith(train, test float64) FoldResult {
	return FoldResult{
		Train: &backtest.BacktestResult{Metrics: backtest.Metrics{TotalReturnPct: train, MaxDrawdownPct: 2}},
		Test:  &backtest.BacktestResult{Metrics: backtest.Metrics{TotalReturnPct: test, MaxDrawdownPct: 4}},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]FoldResult{foldWith(10, 6), foldWith(20, 12)})
	assert.InDelta(t, 15, s.AverageTrainReturn, 1e-9)
	assert.InDelta(t, 9, s.AverageTestReturn, 1e-9)
	assert.InDelta(t, 7.0710678, s.TrainReturnStdDev, 1e-6)
	assert.InDelta(t, 2, s.AverageTrainDrawdown, 1e-9)
	assert.InDelta(t, 4, s.AverageTestDrawdown, 1e-9)
	assert.InDelta(t, 40, s.ReturnDegradation, 1e-9)
	assert.False(t, s.IsRobust)
	assert.Equal(t, RiskHigh, s.OverfittingRisk)

	s = Summarize([]FoldResult{foldWith(10, 8)})
	assert.InDelta(t, 20, s.ReturnDegradation, 1e-9)
	assert.True(t, s.IsRobust)
	assert.Equal(t, RiskModerate, s.OverfittingRisk)
	assert.Zero(t, s.TrainReturnStdDev)

	s = Summarize([]FoldResult{foldWith(10, 12)})
	assert.Equal(t, RiskLow, s.OverfittingRisk)

	assert.Equal(t, &WalkForwardSummary{}, Summarize(nil))
}
