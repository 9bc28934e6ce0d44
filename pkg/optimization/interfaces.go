package optimization

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
)

// Package optimization searches StrategyConfig space with a genetic
// algorithm. The backtest engine is treated as a black-box fitness source.

// invalidFitness ranks configs that could not be simulated below everything else
var invalidFitness = math.Inf(-1)

// FitnessFunc scores a finished run; higher is better
type FitnessFunc func(*backtest.BacktestResult) float64

// Evaluator scores every individual that has not been evaluated yet
type Evaluator interface {
	Evaluate(ctx context.Context, individuals []*Individual) error
}

// OptimizationConfig holds the configuration for the genetic algorithm
type OptimizationConfig struct {
	PopulationSize int     `json:"population_size"`
	Generations    int     `json:"generations"`
	MutationRate   float64 `json:"mutation_rate"`
	CrossoverRate  float64 `json:"crossover_rate"`
	EliteSize      int     `json:"elite_size"`
	TournamentSize int     `json:"tournament_size"`
	MaxWorkers     int     `json:"max_workers"` // <= 0 uses every CPU
	Seed           int64   `json:"seed"`
}

// Validate checks the GA settings
func (c OptimizationConfig) Validate() error {
	if c.PopulationSize < 2 {
		return fmt.Errorf("population size must be at least 2, got %d", c.PopulationSize)
	}
	if c.Generations < 1 {
		return fmt.Errorf("generations must be at least 1, got %d", c.Generations)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("mutation rate must be in [0, 1], got %.4f", c.MutationRate)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf("crossover rate must be in [0, 1], got %.4f", c.CrossoverRate)
	}
	if c.EliteSize < 0 || c.EliteSize >= c.PopulationSize {
		return fmt.Errorf("elite size must be in [0, %d), got %d", c.PopulationSize, c.EliteSize)
	}
	if c.TournamentSize < 1 {
		return fmt.Errorf("tournament size must be at least 1, got %d", c.TournamentSize)
	}
	return nil
}

func (c OptimizationConfig) workers() int {
	if c.MaxWorkers <= 0 {
		return runtime.NumCPU()
	}
	return c.MaxWorkers
}

// OptimizationRanges defines the candidate values each gene draws from
type OptimizationRanges struct {
	BullishBuyThresholds  []float64 `json:"bullish_buy_thresholds"`
	BullishSellThresholds []float64 `json:"bullish_sell_thresholds"`
	BearishBuyThresholds  []float64 `json:"bearish_buy_thresholds"`
	BearishSellThresholds []float64 `json:"bearish_sell_thresholds"`
	BullishPositionPcts   []float64 `json:"bullish_position_pcts"`
	BearishPositionPcts   []float64 `json:"bearish_position_pcts"`

	SMAPeriods      []int `json:"sma_periods"`
	EMAPeriods      []int `json:"ema_periods"`
	RSIPeriods      []int `json:"rsi_periods"`
	MomentumPeriods []int `json:"momentum_periods"`
	MACDFast        []int `json:"macd_fast"`
	MACDSlow        []int `json:"macd_slow"`
	MACDSignal      []int `json:"macd_signal"`

	RegimeConfidenceThresholds []float64 `json:"regime_confidence_thresholds"`
	ATRMultipliers             []float64 `json:"atr_multipliers"`
	KellyFractions             []float64 `json:"kelly_fractions"`
	WarnThresholds             []float64 `json:"warn_thresholds"`
	HardThresholds             []float64 `json:"hard_thresholds"`
}

// GenerationStats summarizes one evaluated generation
type GenerationStats struct {
	Generation int     `json:"generation"`
	Best       float64 `json:"best"`
	Average    float64 `json:"average"` // over valid individuals only
	Worst      float64 `json:"worst"`
	Invalid    int     `json:"invalid"`
}
