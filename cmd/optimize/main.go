package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ducminhle1904/regime-backtester/cmd/common"
	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/data"
	"github.com/ducminhle1904/regime-backtester/pkg/optimization"
	"github.com/ducminhle1904/regime-backtester/pkg/reporting"
	"github.com/ducminhle1904/regime-backtester/pkg/validation"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "optimize: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	defaults := optimization.GetDefaultOptimizationConfig()

	fs := flag.NewFlagSet("optimize", flag.ExitOnError)
	commonFlags := common.RegisterCommonFlags(fs)
	dataFlags := common.RegisterDataFlags(fs)
	population := fs.Int("population", defaults.PopulationSize, "Population size")
	generations := fs.Int("generations", defaults.Generations, "Generations")
	mutation := fs.Float64("mutation", defaults.MutationRate, "Mutation rate")
	crossover := fs.Float64("crossover", defaults.CrossoverRate, "Crossover rate")
	elite := fs.Int("elite", defaults.EliteSize, "Individuals carried over unchanged")
	tournament := fs.Int("tournament", defaults.TournamentSize, "Tournament size")
	workers := fs.Int("workers", defaults.MaxWorkers, "Parallel backtests (0 uses every CPU)")
	gaSeed := fs.Int64("ga-seed", defaults.Seed, "Search seed")
	fitness := fs.String("fitness", "return", "Objective: return, sharpe or calmar")
	out := fs.String("out", "best_config.yaml", "Where to write the best config (.yaml or .json)")
	walkForward := fs.Bool("walk-forward", false, "Validate out of sample instead of optimizing once")
	wfRolling := fs.Bool("wf-rolling", false, "Use rolling folds instead of a single holdout")
	wfSplit := fs.Float64("wf-split", 0.7, "Holdout train share")
	wfTrain := fs.Int("wf-train", 90, "Rolling train window in days")
	wfTest := fs.Int("wf-test", 30, "Rolling test window in days")
	wfRoll := fs.Int("wf-roll", 30, "Days between rolling folds")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *commonFlags.Version {
		common.PrintVersion("optimize")
		return nil
	}

	log, base, err := commonFlags.Setup("optimize")
	if err != nil {
		return err
	}
	defer log.Close()

	in, err := dataFlags.Load(log.Logger)
	if err != nil {
		return err
	}
	fitnessFn, err := optimization.FitnessByName(*fitness)
	if err != nil {
		return err
	}

	optimizer, err := optimization.NewOptimizer(optimization.OptimizationConfig{
		PopulationSize: *population,
		Generations:    *generations,
		MutationRate:   *mutation,
		CrossoverRate:  *crossover,
		EliteSize:      *elite,
		TournamentSize: *tournament,
		MaxWorkers:     *workers,
		Seed:           *gaSeed,
	},
		optimization.WithFitness(fitnessFn),
		optimization.WithLogger(log.Logger),
		optimization.OnGeneration(func(s optimization.GenerationStats) {
			log.Info().
				Int("generation", s.Generation+1).
				Float64("best", s.Best).
				Float64("average", s.Average).
				Int("invalid", s.Invalid).
				Msg("generation complete")
		}),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *walkForward {
		candles := data.NewDefaultDataFilter().FilterByDateRange(in.Candles, in.From, in.To)
		validator := validation.NewDefaultWalkForwardValidator(optimizer, log.Logger)
		summary, err := validator.Validate(ctx, base, candles, validation.WalkForwardConfig{
			Rolling:        *wfRolling,
			SplitRatio:     *wfSplit,
			TrainDays:      *wfTrain,
			TestDays:       *wfTest,
			RollDays:       *wfRoll,
			AllowSynthetic: in.Synthetic,
		})
		if err != nil {
			return err
		}
		reporting.NewDefaultConsoleReporter(os.Stdout, 0).OutputWalkForward(summary)
		return nil
	}

	res, err := optimizer.Optimize(ctx, base, in.Candles, backtest.RunOptions{
		From:           in.From,
		To:             in.To,
		AllowSynthetic: in.Synthetic,
	})
	if err != nil {
		return err
	}

	reporting.NewDefaultConsoleReporter(os.Stdout, 10).OutputResults(res.Best.Result)
	if err := config.Save(res.Config, *out); err != nil {
		return err
	}
	log.Info().Str("path", *out).Float64("fitness", res.Fitness).Dur("elapsed", res.Elapsed).Msg("best config saved")
	return nil
}
