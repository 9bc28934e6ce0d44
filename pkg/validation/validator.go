package validation

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	simerrors "github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

const (
	// robustDegradation is the largest return degradation still called robust
	robustDegradation = 30.0
	// moderateDegradation separates low from moderate overfitting risk
	moderateDegradation = 15.0
)

// DefaultWalkForwardValidator implements walk-forward validation
type DefaultWalkForwardValidator struct {
	splitter   DataSplitter
	optimizer  Optimizer
	engineOpts []backtest.Option
	logger     zerolog.Logger
}

// NewDefaultWalkForwardValidator creates a validator that optimizes with opt
// and runs out-of-sample tests with engineOpts
func NewDefaultWalkForwardValidator(opt Optimizer, logger zerolog.Logger, engineOpts ...backtest.Option) *DefaultWalkForwardValidator {
	return &DefaultWalkForwardValidator{
		splitter:   NewDefaultDataSplitter(),
		optimizer:  opt,
		engineOpts: engineOpts,
		logger:     logger,
	}
}

// Validate splits data into folds, optimizes each training window and
// simulates the winner on the test window. The test run is fed the last
// WarmupPeriods training candles first, so indicators are warm and only
// out-of-sample candles are traded.
func (v *DefaultWalkForwardValidator) Validate(ctx context.Context, base *config.StrategyConfig, data []types.PriceCandle, wf WalkForwardConfig) (*WalkForwardSummary, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}

	var folds []WalkForwardFold
	if wf.Rolling {
		folds = v.splitter.CreateRollingFolds(data, wf.TrainDays, wf.TestDays, wf.RollDays)
	} else if fold, ok := v.splitter.SplitByRatio(data, wf.SplitRatio); ok {
		folds = []WalkForwardFold{fold}
	}
	if len(folds) == 0 {
		return nil, simerrors.NewDataError("validation", "split", "not enough data for walk-forward validation").
			WithContext("candles", len(data)).
			WithContext("rolling", wf.Rolling)
	}

	v.logger.Info().Int("folds", len(folds)).Bool("rolling", wf.Rolling).Msg("walk-forward started")

	runOpts := backtest.RunOptions{AllowSynthetic: wf.AllowSynthetic}
	results := make([]FoldResult, 0, len(folds))
	for i, fold := range folds {
		opt, err := v.optimizer.Optimize(ctx, base, data[fold.TrainFrom:fold.TrainTo], runOpts)
		if err != nil {
			return nil, fmt.Errorf("optimization failed for fold %d: %w", i+1, err)
		}

		engine, err := backtest.NewEngine(opt.Config, v.engineOpts...)
		if err != nil {
			return nil, err
		}
		warmFrom := fold.TrainTo - opt.Config.WarmupPeriods
		if warmFrom < 0 {
			warmFrom = 0
		}
		test, err := engine.Run(ctx, data[warmFrom:fold.TestTo], runOpts)
		if err != nil {
			return nil, fmt.Errorf("out-of-sample run failed for fold %d: %w", i+1, err)
		}

		results = append(results, FoldResult{
			Fold:       i + 1,
			Train:      opt.Best.Result,
			Test:       test,
			BestConfig: opt.Config,
			TrainStart: fold.TrainStart,
			TrainEnd:   fold.TrainEnd,
			TestStart:  fold.TestStart,
			TestEnd:    fold.TestEnd,
		})
		v.logger.Info().
			Int("fold", i+1).
			Float64("train_return_pct", opt.Best.Result.Metrics.TotalReturnPct).
			Float64("test_return_pct", test.Metrics.TotalReturnPct).
			Msg("fold complete")
	}

	return Summarize(results), nil
}

// Summarize aggregates fold results
func Summarize(results []FoldResult) *WalkForwardSummary {
	if len(results) == 0 {
		return &WalkForwardSummary{}
	}

	var trainReturns, testReturns, trainDrawdowns, testDrawdowns []float64
	for _, r := range results {
		trainReturns = append(trainReturns, r.Train.Metrics.TotalReturnPct)
		testReturns = append(testReturns, r.Test.Metrics.TotalReturnPct)
		trainDrawdowns = append(trainDrawdowns, r.Train.Metrics.MaxDrawdownPct)
		testDrawdowns = append(testDrawdowns, r.Test.Metrics.MaxDrawdownPct)
	}

	s := &WalkForwardSummary{
		Results:              results,
		AverageTrainReturn:   average(trainReturns),
		AverageTestReturn:    average(testReturns),
		TrainReturnStdDev:    stdDev(trainReturns),
		TestReturnStdDev:     stdDev(testReturns),
		AverageTrainDrawdown: average(trainDrawdowns),
		AverageTestDrawdown:  average(testDrawdowns),
	}
	s.ReturnDegradation = (s.AverageTrainReturn - s.AverageTestReturn) / math.Max(0.01, math.Abs(s.AverageTrainReturn)) * 100

	s.IsRobust = s.ReturnDegradation <= robustDegradation
	switch {
	case s.ReturnDegradation > robustDegradation:
		s.OverfittingRisk = RiskHigh
	case s.ReturnDegradation > moderateDegradation:
		s.OverfittingRisk = RiskModerate
	default:
		s.OverfittingRisk = RiskLow
	}
	return s
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the sample standard deviation
func stdDev(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}

	avg := average(values)
	sumSquares := 0.0
	for _, v := range values {
		diff := v - avg
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)-1))
}
