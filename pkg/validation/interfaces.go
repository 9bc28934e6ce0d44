// Package validation provides walk-forward validation: optimize on a
// training window, then simulate the winner on the candles that follow it.
package validation

import (
	"context"
	"time"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/optimization"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// Optimizer searches for the best config on a training window
type Optimizer interface {
	Optimize(ctx context.Context, base *config.StrategyConfig, candles []types.PriceCandle, opts backtest.RunOptions) (*optimization.Result, error)
}

var _ Optimizer = (*optimization.Optimizer)(nil)

// DataSplitter defines the interface for splitting data into train/test sets
type DataSplitter interface {
	SplitByRatio(data []types.PriceCandle, ratio float64) (WalkForwardFold, bool)
	CreateRollingFolds(data []types.PriceCandle, trainDays, testDays, rollDays int) []WalkForwardFold
}

// WalkForwardConfig holds the configuration for walk-forward validation
type WalkForwardConfig struct {
	Rolling        bool    `json:"rolling"`
	SplitRatio     float64 `json:"split_ratio"` // holdout train share, (0, 1)
	TrainDays      int     `json:"train_days"`
	TestDays       int     `json:"test_days"`
	RollDays       int     `json:"roll_days"`
	AllowSynthetic bool    `json:"allow_synthetic"`
}

// WalkForwardFold is one train/test split expressed as half-open index
// ranges into the full series: train is [TrainFrom, TrainTo), test is
// [TrainTo, TestTo)
type WalkForwardFold struct {
	TrainFrom  int
	TrainTo    int
	TestTo     int
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
}

// TrainLen returns the number of training candles
func (f WalkForwardFold) TrainLen() int { return f.TrainTo - f.TrainFrom }

// TestLen returns the number of out-of-sample candles
func (f WalkForwardFold) TestLen() int { return f.TestTo - f.TrainTo }

// FoldResult holds the results for a single fold
type FoldResult struct {
	Fold       int                      `json:"fold"`
	Train      *backtest.BacktestResult `json:"train"`
	Test       *backtest.BacktestResult `json:"test"`
	BestConfig *config.StrategyConfig   `json:"best_config"`
	TrainStart time.Time                `json:"train_start"`
	TrainEnd   time.Time                `json:"train_end"`
	TestStart  time.Time                `json:"test_start"`
	TestEnd    time.Time                `json:"test_end"`
}

// Overfitting risk levels
const (
	RiskLow      = "LOW"
	RiskModerate = "MODERATE"
	RiskHigh     = "HIGH"
)

// WalkForwardSummary holds the summary of all walk-forward validation results
type WalkForwardSummary struct {
	Results              []FoldResult `json:"results"`
	AverageTrainReturn   float64      `json:"average_train_return"`
	AverageTestReturn    float64      `json:"average_test_return"`
	TrainReturnStdDev    float64      `json:"train_return_std_dev"`
	TestReturnStdDev     float64      `json:"test_return_std_dev"`
	AverageTrainDrawdown float64      `json:"average_train_drawdown"`
	AverageTestDrawdown  float64      `json:"average_test_drawdown"`
	ReturnDegradation    float64      `json:"return_degradation"` // percent of train return lost out of sample
	IsRobust             bool         `json:"is_robust"`
	OverfittingRisk      string       `json:"overfitting_risk"`
}
