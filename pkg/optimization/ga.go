package optimization

import (
	"context"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	simerrors "github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/internal/indicators"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// BacktestEvaluator runs each candidate through the backtest engine. All
// candidates see the same candles, so one indicator cache serves them all.
type BacktestEvaluator struct {
	candles    []types.PriceCandle
	runOpts    backtest.RunOptions
	engineOpts []backtest.Option
	fitness    FitnessFunc
	workers    int
	cache      *indicators.Cache
}

// NewBacktestEvaluator creates an evaluator over one candle series
func NewBacktestEvaluator(candles []types.PriceCandle, runOpts backtest.RunOptions, fitness FitnessFunc, workers int, engineOpts ...backtest.Option) *BacktestEvaluator {
	if fitness == nil {
		fitness = FitnessReturn
	}
	if workers <= 0 {
		workers = 1
	}
	return &BacktestEvaluator{
		candles:    candles,
		runOpts:    runOpts,
		engineOpts: engineOpts,
		fitness:    fitness,
		workers:    workers,
		cache:      indicators.NewCache(),
	}
}

// Cache exposes the shared indicator cache
func (e *BacktestEvaluator) Cache() *indicators.Cache {
	return e.cache
}

// Evaluate scores every individual not yet evaluated. A candidate whose
// config is rejected or whose run fails gets invalidFitness; data errors
// and cancellation abort the whole evaluation since no candidate could
// succeed.
func (e *BacktestEvaluator) Evaluate(ctx context.Context, individuals []*Individual) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	opts := append(append([]backtest.Option(nil), e.engineOpts...), backtest.WithIndicatorCache(e.cache))
	for _, ind := range individuals {
		if ind.Evaluated {
			continue
		}
		ind := ind
		g.Go(func() error {
			ind.Evaluated = true
			engine, err := backtest.NewEngine(ind.Config, opts...)
			if err != nil {
				ind.Fitness, ind.Err = invalidFitness, err
				return nil
			}
			res, err := engine.Run(gctx, e.candles, e.runOpts)
			if err != nil {
				ind.Fitness, ind.Err = invalidFitness, err
				if simerrors.IsDataError(err) {
					return err
				}
				return gctx.Err()
			}
			ind.Fitness, ind.Result = e.fitness(res), res
			return nil
		})
	}
	return g.Wait()
}

// InitializePopulation seeds the population with the base config followed
// by randomized variants of it
func InitializePopulation(base *config.StrategyConfig, size int, op *GeneticOperator, rng *rand.Rand) *Population {
	individuals := make([]*Individual, size)
	for i := range individuals {
		cfg := base.Clone()
		if i > 0 {
			op.Randomize(cfg, rng)
		}
		individuals[i] = NewIndividual(cfg)
	}
	return NewPopulation(individuals)
}

// CreateNextGeneration keeps the elite of a sorted population and fills the
// rest through selection, crossover and mutation
func CreateNextGeneration(pop *Population, cfg OptimizationConfig, op *GeneticOperator, rng *rand.Rand) *Population {
	next := pop.Elite(cfg.EliteSize)
	for len(next) < pop.Size() {
		parent1 := op.Select(pop, cfg.TournamentSize, rng)
		parent2 := op.Select(pop, cfg.TournamentSize, rng)

		child := op.Crossover(parent1, parent2, cfg.CrossoverRate, rng)
		op.Mutate(child, cfg.MutationRate, rng)
		next = append(next, child)
	}
	return NewPopulation(next)
}
