package common

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/regime-backtester/internal/logger"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/data"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// dateLayout is the accepted -from/-to format
const dateLayout = "2006-01-02"

// CommonFlags contains flags that are shared across multiple commands
type CommonFlags struct {
	EnvFile  *string
	Config   *string
	LogLevel *string
	LogDir   *string
	Console  *bool
	Version  *bool
}

// RegisterCommonFlags registers common flags on fs
func RegisterCommonFlags(fs *flag.FlagSet) *CommonFlags {
	return &CommonFlags{
		EnvFile:  fs.String("env", "", "Environment file path (default .env when present)"),
		Config:   fs.String("config", "", "Strategy config file (.yaml, .yml or .json)"),
		LogLevel: fs.String("log-level", "", "DEBUG, INFO, WARN or ERROR (default LOG_LEVEL or INFO)"),
		LogDir:   fs.String("log-dir", "", "Also write a session log file into this directory"),
		Console:  fs.Bool("console-log", true, "Human-readable log output"),
		Version:  fs.Bool("version", false, "Show version information"),
	}
}

// Setup loads the env file, builds the logger and loads the strategy config
func (c *CommonFlags) Setup(service string) (*logger.Logger, *config.StrategyConfig, error) {
	if err := config.LoadEnv(*c.EnvFile); err != nil {
		return nil, nil, fmt.Errorf("load env file: %w", err)
	}

	log, err := logger.New(logger.Options{
		Service: service,
		Level:   *c.LogLevel,
		Console: *c.Console,
		Dir:     *c.LogDir,
	})
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.LoadStrategyConfig(*c.Config)
	if err != nil {
		_ = log.Close()
		return nil, nil, err
	}
	return log, cfg, nil
}

// DataFlags select the candle input: a CSV file or a synthetic series
type DataFlags struct {
	Data      *string
	Secondary *string
	Period    *string
	From      *string
	To        *string
	Synthetic *string
	Count     *int
	Seed      *int64
	Strict    *bool
	Symbol    *string
	Exchange  *string
	DataRoot  *string
	Interval  *string
}

// RegisterDataFlags registers the input flags on fs
func RegisterDataFlags(fs *flag.FlagSet) *DataFlags {
	return &DataFlags{
		Data:      fs.String("data", "", "Candle CSV file"),
		Secondary: fs.String("secondary", "", "Correlated asset CSV on the same timestamps"),
		Period:    fs.String("period", "", "Trailing window to keep, e.g. 30d or 12h"),
		From:      fs.String("from", "", "First date to simulate (YYYY-MM-DD)"),
		To:        fs.String("to", "", "Last date to simulate (YYYY-MM-DD)"),
		Synthetic: fs.String("synthetic", "", "Generate constant, linear, walk or shock candles instead of reading -data"),
		Count:     fs.Int("count", 1000, "Synthetic candle count"),
		Seed:      fs.Int64("seed", 1, "Synthetic random walk seed"),
		Strict:    fs.Bool("strict", false, "Fail on malformed CSV rows instead of skipping them"),
		Symbol:    fs.String("symbol", "", "Locate the CSV for this symbol under -data-root when -data is empty"),
		Exchange:  fs.String("exchange", "bybit", "Exchange directory under -data-root"),
		DataRoot:  fs.String("data-root", "data", "Root of the downloaded candle tree"),
		Interval:  fs.String("interval", "1h", "Candle interval, e.g. 15m, 1h or 1d"),
	}
}

// Input is the loaded candle data
type Input struct {
	Name      string // symbol, file base name or synthetic-<kind>
	Source    string // file read, empty for synthetic input
	Candles   []types.PriceCandle
	Secondary []types.PriceCandle
	Synthetic bool
	From, To  time.Time
}

// Load reads or generates the candles the flags describe
func (d *DataFlags) Load(log zerolog.Logger) (*Input, error) {
	in := &Input{}
	var err error
	if in.From, err = parseDate(*d.From); err != nil {
		return nil, fmt.Errorf("-from: %w", err)
	}
	if in.To, err = parseDate(*d.To); err != nil {
		return nil, fmt.Errorf("-to: %w", err)
	}
	if !in.To.IsZero() {
		in.To = in.To.Add(24*time.Hour - time.Millisecond)
	}

	if *d.Synthetic != "" {
		in.Candles, err = synthetic(*d.Synthetic, *d.Count, *d.Seed)
		in.Synthetic = true
		in.Name = "synthetic-" + strings.ToLower(*d.Synthetic)
		return in, err
	}

	opts := data.LoadOptions{Deduplicate: true}
	if *d.Period != "" {
		period, ok := data.ParseTrailingPeriod(*d.Period)
		if !ok {
			return nil, fmt.Errorf("-period: cannot parse %q", *d.Period)
		}
		opts.Period = period
	}

	dm := data.NewDataManager(log)
	if *d.Strict {
		dm = data.NewDataManagerWithProvider(data.NewCSVProvider(data.WithStrict(true), data.WithLogger(log)), log)
	}

	in.Source = *d.Data
	in.Name = strings.TrimSuffix(filepath.Base(in.Source), filepath.Ext(in.Source))
	if in.Source == "" {
		if *d.Symbol == "" {
			return nil, fmt.Errorf("one of -data, -symbol or -synthetic is required")
		}
		in.Source = dm.FindDataFile(*d.DataRoot, *d.Exchange, *d.Symbol, *d.Interval)
		if in.Source == "" {
			return nil, fmt.Errorf("no %s %s data under %s", strings.ToUpper(*d.Symbol), *d.Interval, *d.DataRoot)
		}
		in.Name = strings.ToUpper(*d.Symbol)
	}

	if in.Candles, err = dm.Load(in.Source, opts); err != nil {
		return nil, err
	}
	if *d.Secondary != "" {
		if in.Secondary, err = dm.Load(*d.Secondary, opts); err != nil {
			return nil, err
		}
	}
	log.Info().Str("file", in.Source).Int("candles", len(in.Candles)).Msg("data loaded")
	return in, nil
}

func synthetic(kind string, count int, seed int64) ([]types.PriceCandle, error) {
	p := data.SyntheticParams{Count: count}
	switch strings.ToLower(kind) {
	case "constant":
		return data.Constant(p, 100), nil
	case "linear":
		return data.Linear(p, 100, 0.5), nil
	case "walk":
		return data.RandomWalk(p, 100, 0.0002, 0.01, seed), nil
	case "shock":
		return data.Shock(data.RandomWalk(p, 100, 0.0005, 0.005, seed), count/2, 0.6), nil
	default:
		return nil, fmt.Errorf("unknown synthetic series %q", kind)
	}
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}
