package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/regime-backtester/cmd/common"
	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/internal/correlation"
	"github.com/ducminhle1904/regime-backtester/internal/portfolio"
	"github.com/ducminhle1904/regime-backtester/internal/portfolio/storage"
	"github.com/ducminhle1904/regime-backtester/pkg/reporting"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// ledgerTolerance bounds float drift between the decimal replay and the run
const ledgerTolerance = 1e-6

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	commonFlags := common.RegisterCommonFlags(fs)
	dataFlags := common.RegisterDataFlags(fs)
	outDir := fs.String("output", "", "Report directory (default results/<NAME>_<interval>)")
	consoleOnly := fs.Bool("console-only", false, "Print results without writing report files")
	ledgerPath := fs.String("ledger", "", "Save the final ledger to this JSON file")
	failFast := fs.Bool("fail-fast", false, "Abort on the first failed candle instead of recording it as neutral")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *commonFlags.Version {
		common.PrintVersion("backtest")
		return nil
	}

	log, cfg, err := commonFlags.Setup("backtest")
	if err != nil {
		return err
	}
	defer log.Close()

	in, err := dataFlags.Load(log.Logger)
	if err != nil {
		return err
	}

	opts := backtest.RunOptions{From: in.From, To: in.To, AllowSynthetic: in.Synthetic}
	if len(in.Secondary) > 0 {
		adj, err := correlation.Build(types.NewSeries(in.Candles), types.NewSeries(in.Secondary), correlation.DefaultParams())
		if err != nil {
			return err
		}
		opts.Correlation = adj
	}

	engineOpts := []backtest.Option{backtest.WithLogger(log.Logger)}
	if *failFast {
		engineOpts = append(engineOpts, backtest.WithFailurePolicy(backtest.FailurePolicyFailFast))
	}
	engine, err := backtest.NewEngine(cfg, engineOpts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := engine.Run(ctx, in.Candles, opts)
	if err != nil {
		return err
	}
	checkLedger(log.Logger, res)

	reporter := reporting.NewDefaultReporter(os.Stdout, "")
	dir := *outDir
	if dir == "" {
		dir = reporter.GetDefaultOutputDir(in.Name, *dataFlags.Interval)
	}
	written, err := reporter.WriteAll(res, reporting.ReportingConfig{
		EnableConsole:   true,
		OutputDirectory: dir,
		CSVEnabled:      !*consoleOnly,
		ExcelEnabled:    !*consoleOnly,
		JSONEnabled:     !*consoleOnly,
	})
	if err != nil {
		return err
	}
	for _, path := range written {
		log.Info().Str("path", path).Msg("report written")
	}

	if *ledgerPath != "" {
		return saveLedger(log.Logger, *ledgerPath, res)
	}
	return nil
}

// checkLedger replays the trades in decimal arithmetic and warns on drift
func checkLedger(log zerolog.Logger, res *backtest.BacktestResult) {
	ledger := portfolio.Reconcile(res.Portfolio.InitialCapital, res.Trades)
	if err := ledger.Verify(&res.Portfolio, ledgerTolerance); err != nil {
		log.Warn().Err(err).Msg("ledger does not reconcile")
		return
	}
	log.Debug().Str("fees", ledger.Fees.StringFixed(8)).Msg("ledger reconciled")
}

func saveLedger(log zerolog.Logger, path string, res *backtest.BacktestResult) error {
	store, err := storage.NewFileStorage(path)
	if err != nil {
		return err
	}
	state := &portfolio.LedgerState{
		InitialCapital: res.Portfolio.InitialCapital,
		Portfolio:      res.Portfolio,
		Trades:         res.Trades,
		OpenPositions:  res.OpenPositions,
	}
	if err := store.Save(state); err != nil {
		return err
	}
	log.Info().Str("path", store.Path()).Int("trades", len(res.Trades)).Msg("ledger saved")
	return nil
}
