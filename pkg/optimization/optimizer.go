package optimization

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	simerrors "github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// Result is the outcome of an optimization
type Result struct {
	Best    *Individual            `json:"-"`
	Config  *config.StrategyConfig `json:"config"`
	Fitness float64                `json:"fitness"`
	History []GenerationStats      `json:"history"`
	Elapsed time.Duration          `json:"elapsed"`
}

// Optimizer runs the genetic algorithm over StrategyConfig
type Optimizer struct {
	config       OptimizationConfig
	operator     *GeneticOperator
	fitness      FitnessFunc
	engineOpts   []backtest.Option
	logger       zerolog.Logger
	onGeneration func(GenerationStats)
}

// Option configures an Optimizer
type Option func(*Optimizer)

// WithRanges overrides the default gene ranges
func WithRanges(r *OptimizationRanges) Option {
	return func(o *Optimizer) { o.operator = NewGeneticOperator(r) }
}

// WithFitness overrides the default return-based fitness
func WithFitness(f FitnessFunc) Option {
	return func(o *Optimizer) {
		if f != nil {
			o.fitness = f
		}
	}
}

// WithEngineOptions passes options to every backtest engine
func WithEngineOptions(opts ...backtest.Option) Option {
	return func(o *Optimizer) { o.engineOpts = append(o.engineOpts, opts...) }
}

// WithLogger sets the optimizer logger
func WithLogger(l zerolog.Logger) Option {
	return func(o *Optimizer) { o.logger = l }
}

// OnGeneration registers a callback invoked after each generation is scored
func OnGeneration(fn func(GenerationStats)) Option {
	return func(o *Optimizer) { o.onGeneration = fn }
}

// NewOptimizer validates the GA settings and builds an optimizer
func NewOptimizer(cfg OptimizationConfig, opts ...Option) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, simerrors.WrapError(err, simerrors.ErrorCategoryConfiguration, "optimizer", "new")
	}
	o := &Optimizer{
		config:   cfg,
		operator: NewGeneticOperator(nil),
		fitness:  FitnessReturn,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Optimize evolves configurations derived from base against candles. The
// search is reproducible: the same seed, base and candles give the same
// result regardless of worker count.
func (o *Optimizer) Optimize(ctx context.Context, base *config.StrategyConfig, candles []types.PriceCandle, runOpts backtest.RunOptions) (*Result, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	rng := rand.New(rand.NewSource(o.config.Seed))
	evaluator := NewBacktestEvaluator(candles, runOpts, o.fitness, o.config.workers(), o.engineOpts...)

	o.logger.Info().
		Int("population", o.config.PopulationSize).
		Int("generations", o.config.Generations).
		Int64("seed", o.config.Seed).
		Int("candles", len(candles)).
		Msg("optimization started")

	pop := InitializePopulation(base, o.config.PopulationSize, o.operator, rng)
	result := &Result{}
	var best *Individual

	for gen := 0; gen < o.config.Generations; gen++ {
		if err := evaluator.Evaluate(ctx, pop.Individuals()); err != nil {
			return nil, fmt.Errorf("generation %d: %w", gen, err)
		}
		pop.SortByFitness()

		stats := pop.Stats(gen)
		result.History = append(result.History, stats)
		if o.onGeneration != nil {
			o.onGeneration(stats)
		}
		if top := pop.Individuals()[0]; top.Valid() && (best == nil || top.Fitness > best.Fitness) {
			best = top.Copy()
		}

		o.logger.Debug().
			Int("generation", gen).
			Float64("best", stats.Best).
			Float64("average", stats.Average).
			Int("invalid", stats.Invalid).
			Msg("generation scored")

		if gen < o.config.Generations-1 {
			pop = CreateNextGeneration(pop, o.config, o.operator, rng)
		}
	}

	if best == nil {
		return nil, simerrors.NewComputationError("optimizer", "optimize",
			fmt.Errorf("no candidate could be simulated"))
	}

	result.Best = best
	result.Config = best.Config
	result.Fitness = best.Fitness
	result.Elapsed = time.Since(started)

	o.logger.Info().
		Float64("fitness", best.Fitness).
		Float64("return_pct", best.Result.Metrics.TotalReturnPct).
		Dur("elapsed", result.Elapsed).
		Msg("optimization finished")
	return result, nil
}
