package backtest

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	simerrors "github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/internal/indicators"
	"github.com/ducminhle1904/regime-backtester/internal/portfolio"
	"github.com/ducminhle1904/regime-backtester/internal/risk"
	"github.com/ducminhle1904/regime-backtester/internal/safety"
	"github.com/ducminhle1904/regime-backtester/internal/strategy"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

const (
	// DefaultTimeout bounds a whole run when the config sets none
	DefaultTimeout = 5 * time.Minute

	// deadlineCheckInterval is how many candles run between deadline checks
	deadlineCheckInterval = 64
)

// FailurePolicy decides what a failed candle becomes
type FailurePolicy int

const (
	// FailurePolicyContinue substitutes a neutral hold record and keeps going
	FailurePolicyContinue FailurePolicy = iota
	// FailurePolicyFailFast aborts the run with the step's error
	FailurePolicyFailFast
)

func (p FailurePolicy) String() string {
	if p == FailurePolicyFailFast {
		return "fail-fast"
	}
	return "continue"
}

// Recorder receives run telemetry. monitoring.Metrics implements it.
type Recorder interface {
	RunStarted()
	RunFinished(outcome string, duration time.Duration, returnPct float64)
	TradeExecuted(side, reason string)
	StepFailed()
}

type nopRecorder struct{}

func (nopRecorder) RunStarted()                                {}
func (nopRecorder) RunFinished(string, time.Duration, float64) {}
func (nopRecorder) TradeExecuted(string, string)               {}
func (nopRecorder) StepFailed()                                {}

// RunOptions are the per-run inputs besides candles
type RunOptions struct {
	From           time.Time // zero means unbounded
	To             time.Time // zero means unbounded; inclusive
	Correlation    []*types.CorrelationAdjustment
	AllowSynthetic bool
	Timeout        time.Duration // overrides the config timeout when positive
}

// BacktestResult is everything a run produces. It carries no wall-clock or
// identity fields so identical inputs give identical results.
type BacktestResult struct {
	Metrics         Metrics                   `json:"metrics"`
	Baseline        BaselineMetrics           `json:"baseline"`
	Snapshots       []Snapshot                `json:"snapshots"`
	Trades          []*portfolio.Trade        `json:"trades"`
	OpenPositions   []*portfolio.OpenPosition `json:"open_positions"`
	Portfolio       portfolio.Portfolio       `json:"portfolio"`
	Risk            risk.OverseerStats        `json:"risk"`
	Failures        int                       `json:"failures"`
	FailureMessages []string                  `json:"failure_messages,omitempty"`
	StartIndex      int                       `json:"start_index"`
	Candles         int                       `json:"candles"`
}

// Engine runs simulations for one strategy configuration. An Engine is
// safe for concurrent Run calls; every run gets its own SimulationContext.
type Engine struct {
	cfg       *config.StrategyConfig
	generator strategy.Generator
	cache     *indicators.Cache
	logger    zerolog.Logger
	recorder  Recorder
	policy    FailurePolicy
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRecorder sets the telemetry sink
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithSignalGenerator replaces the signal generator
func WithSignalGenerator(g strategy.Generator) Option {
	return func(e *Engine) {
		if g != nil {
			e.generator = g
		}
	}
}

// WithIndicatorCache shares an indicator cache between runs over the same
// series. Without it every run builds its own.
func WithIndicatorCache(c *indicators.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithFailurePolicy sets how failed candles are handled
func WithFailurePolicy(p FailurePolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// NewEngine validates cfg and returns an engine holding a private copy
func NewEngine(cfg *config.StrategyConfig, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg.Clone(),
		generator: strategy.NewSignalGenerator(),
		logger:    zerolog.Nop(),
		recorder:  nopRecorder{},
		policy:    FailurePolicyContinue,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns a copy of the engine configuration
func (e *Engine) Config() *config.StrategyConfig {
	return e.cfg.Clone()
}

// Run simulates candles. Config and data problems are returned before any
// run state exists; a run exceeding its time budget returns a TimeoutError
// and no partial result.
func (e *Engine) Run(ctx context.Context, candles []types.PriceCandle, opts RunOptions) (*BacktestResult, error) {
	started := time.Now()
	runID := uuid.NewString()
	log := e.logger.With().Str("run_id", runID).Logger()

	series, corr, err := e.prepare(candles, opts)
	if err != nil {
		log.Warn().Err(err).Msg("run rejected")
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Duration(e.cfg.TimeoutSeconds) * time.Second
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	e.recorder.RunStarted()
	log.Info().
		Int("candles", series.Len()).
		Int("warmup", e.cfg.WarmupPeriods).
		Str("series", series.ID).
		Dur("timeout", timeout).
		Msg("run started")

	result, err := e.run(ctx, runID, series, corr, log)
	elapsed := time.Since(started)
	if err != nil {
		outcome := "error"
		if simerrors.IsTimeoutError(err) {
			outcome = "timeout"
		}
		e.recorder.RunFinished(outcome, elapsed, 0)
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("run aborted")
		return nil, err
	}

	e.recorder.RunFinished("success", elapsed, result.Metrics.TotalReturnPct)
	log.Info().
		Float64("return_pct", result.Metrics.TotalReturnPct).
		Float64("max_drawdown_pct", result.Metrics.MaxDrawdownPct).
		Int("trades", result.Metrics.TotalTrades).
		Int("failures", result.Failures).
		Dur("elapsed", elapsed).
		Msg("run finished")
	return result, nil
}

// prepare validates and filters the input. Every error is a DataError.
func (e *Engine) prepare(candles []types.PriceCandle, opts RunOptions) (*types.Series, []*types.CorrelationAdjustment, error) {
	if opts.Correlation != nil && len(opts.Correlation) != len(candles) {
		return nil, nil, simerrors.NewDataError("engine", "prepare",
			fmt.Sprintf("correlation adjustments (%d) do not match candles (%d)", len(opts.Correlation), len(candles)))
	}
	if !opts.From.IsZero() && !opts.To.IsZero() && opts.From.After(opts.To) {
		return nil, nil, simerrors.NewDataError("engine", "prepare", "date range start is after its end").
			WithContext("from", opts.From.Format(time.RFC3339)).
			WithContext("to", opts.To.Format(time.RFC3339))
	}

	if res := safety.ValidateSeries(candles, opts.AllowSynthetic); !res.Valid {
		return nil, nil, simerrors.NewDataError("engine", "validate", res.Message).
			WithContext("code", res.Code).
			WithContext("index", res.Index)
	}

	from, to := 0, len(candles)
	if !opts.From.IsZero() {
		ms := opts.From.UnixMilli()
		for from < to && candles[from].Timestamp < ms {
			from++
		}
	}
	if !opts.To.IsZero() {
		ms := opts.To.UnixMilli()
		for to > from && candles[to-1].Timestamp > ms {
			to--
		}
	}

	if n := to - from; n < e.cfg.WarmupPeriods {
		return nil, nil, simerrors.NewDataError("engine", "prepare",
			fmt.Sprintf("need at least %d candles for warm-up, got %d", e.cfg.WarmupPeriods, n))
	}

	var corr []*types.CorrelationAdjustment
	if opts.Correlation != nil {
		corr = opts.Correlation[from:to]
	}
	return types.NewSeries(candles[from:to]), corr, nil
}

func (e *Engine) run(ctx context.Context, runID string, series *types.Series, corr []*types.CorrelationAdjustment, log zerolog.Logger) (*BacktestResult, error) {
	cache := e.cache
	if cache == nil {
		cache = indicators.NewCache()
	}
	sc := newSimulationContext(runID, e.cfg, series, corr, cache)
	start := e.cfg.WarmupPeriods

	if err := e.precompute(sc); err != nil {
		return nil, err
	}
	if err := e.preloadHistory(sc, start); err != nil {
		return nil, err
	}

	for i := start; i < series.Len(); i++ {
		if (i-start)%deadlineCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, e.abortError(err, i)
			}
		}

		res := e.step(sc, i)
		if !res.Failed() {
			sc.Snapshots = append(sc.Snapshots, res.Snapshot)
			continue
		}

		simErr := asComputationError(res.Err, i)
		sc.Errors.RecordError(simErr)
		e.recorder.StepFailed()
		if e.policy == FailurePolicyFailFast {
			return nil, simErr
		}
		log.Warn().Err(simErr).Int("index", i).Msg("step failed, recording neutral candle")
		sc.Snapshots = append(sc.Snapshots, sc.snapshot(i, strategy.NeutralSignal(), 0, true))
	}

	if err := ctx.Err(); err != nil {
		return nil, e.abortError(err, series.Len())
	}

	for _, t := range sc.Trades {
		e.recorder.TradeExecuted(string(t.Type), string(t.Reason))
	}
	return e.buildResult(sc, start), nil
}

// precompute fills the cache with every run-wide series the loop reads
func (e *Engine) precompute(sc *SimulationContext) error {
	period, mode := atrSettings(e.cfg)
	atr, err := sc.Cache.ATR(sc.Series, period, mode)
	if err != nil {
		return simerrors.NewComputationError("engine", "precompute", err)
	}
	sc.ATR = atr

	if _, err := sc.Cache.ROC(sc.Series, e.cfg.MomentumPeriod); err != nil {
		return simerrors.NewComputationError("engine", "precompute", err)
	}
	for _, tc := range []*config.TradingConfig{e.cfg.Bullish, e.cfg.Bearish} {
		for _, spec := range tc.Indicators {
			if err := warm(sc.Cache, sc.Series, spec); err != nil {
				return simerrors.NewComputationError("engine", "precompute", err).WithContext("indicator", spec.Name)
			}
		}
	}
	return nil
}

func warm(cache *indicators.Cache, s *types.Series, spec config.IndicatorSpec) error {
	var err error
	switch spec.Name {
	case config.IndicatorSMA:
		_, err = cache.SMA(s, spec.Period)
	case config.IndicatorEMA:
		_, err = cache.EMA(s, spec.Period)
	case config.IndicatorMACD:
		_, err = cache.MACD(s, spec.Fast, spec.Slow, spec.Signal)
	case config.IndicatorRSI:
		_, err = cache.RSI(s, spec.Period)
	case config.IndicatorMomentum:
		_, err = cache.ROC(s, spec.Period)
	}
	return err
}

// atrSettings returns the ATR used for stops and confidence. Confidence
// needs ATR even with stops off, so unset values fall back to defaults.
func atrSettings(cfg *config.StrategyConfig) (int, indicators.ATRMode) {
	period := cfg.StopLoss.ATRPeriod
	if period <= 0 {
		period = 14
	}
	mode := indicators.ATRMode(cfg.StopLoss.ATRMode)
	switch mode {
	case indicators.ATRModeSimple, indicators.ATRModeEMA, indicators.ATRModeWilder:
	default:
		mode = indicators.ATRModeWilder
	}
	return period, mode
}

// preloadHistory feeds the regime detections preceding start into the
// persistence buffer
func (e *Engine) preloadHistory(sc *SimulationContext, start int) error {
	from := start - e.cfg.RegimeHistorySize
	if from < 0 {
		from = 0
	}
	for i := from; i < start; i++ {
		sig, err := sc.Strategy.Detector.Detect(sc.Series, i)
		if err != nil {
			return simerrors.NewComputationError("engine", "preload", err).WithContext("index", i)
		}
		sc.Strategy.History.Update(sig.Regime)
	}
	return nil
}

// step processes candle i: stops, drawdown guard, signal, confidence,
// sizing, execution, snapshot. Fills are recorded as they happen so a
// later failure in the same candle still leaves a consistent ledger.
func (e *Engine) step(sc *SimulationContext, i int) (res StepResult) {
	res.Index = i
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug().Str("run_id", sc.RunID).Int("index", i).Bytes("stack", debug.Stack()).Msg("recovered step panic")
			res.Err = fmt.Errorf("panic: %v", r)
		}
	}()

	c := sc.Series.Candles[i]
	price := c.Close
	ec := portfolio.ExecContext{
		Index:          i,
		Timestamp:      c.Timestamp,
		SizeMultiplier: 1,
		ATR:            sc.atrAt(i),
	}

	for _, t := range sc.Executor.CheckStops(price, sc.Portfolio, ec) {
		sc.record(t)
		e.logTrade(t, sc.RunID)
	}

	assessment := sc.Overseer.Assess(i, sc.Portfolio.MarkToMarket(price))
	if assessment.Liquidate {
		t := sc.Executor.ClosePositions(price, sc.Portfolio, ec, risk.ExitDrawdownLiquidation)
		sc.record(t)
		e.logTrade(t, sc.RunID)
		sc.Overseer.AfterLiquidation(i, sc.Portfolio.MarkToMarket(price), t != nil)
		assessment.EntriesPaused = true
		e.logger.Warn().
			Str("run_id", sc.RunID).
			Int("index", i).
			Float64("drawdown", assessment.Drawdown).
			Msg("drawdown limit hit, positions liquidated")
	}

	sig, err := e.generator.Generate(sc.Series, sc.Config, i, sc.Strategy, sc.adjustment(i))
	if err != nil {
		res.Err = err
		return res
	}
	if sig.ActiveStrategy.Config == nil {
		res.Err = fmt.Errorf("signal at index %d has no active sub-strategy", i)
		return res
	}

	confidence := strategy.ComputeConfidence(sig, sc.ATR, sc.Series, i, sc.Config.Confidence)
	sizing := sc.Overseer.Size(sig.ActiveStrategy.Config.MaxPositionPct)

	ec.PositionPct = sizing.PositionPct
	ec.SizeMultiplier = assessment.SizeMultiplier
	ec.EntriesPaused = assessment.EntriesPaused

	trade, err := sc.Executor.Execute(sig, confidence, price, sc.Portfolio, ec)
	if err != nil {
		res.Err = err
		return res
	}
	sc.record(trade)
	e.logTrade(trade, sc.RunID)

	res.Snapshot = sc.snapshot(i, sig, confidence, false)
	return res
}

func (e *Engine) logTrade(t *portfolio.Trade, runID string) {
	if t == nil {
		return
	}
	e.logger.Debug().
		Str("run_id", runID).
		Str("trade_id", t.ID).
		Str("type", string(t.Type)).
		Str("reason", string(t.Reason)).
		Int("index", t.Index).
		Float64("price", t.Price).
		Float64("amount", t.AssetAmount).
		Float64("pnl", t.PnL).
		Msg("trade")
}

func (e *Engine) abortError(err error, index int) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return simerrors.NewTimeoutError("engine", "run", err).WithContext("index", index)
	}
	return fmt.Errorf("run cancelled at index %d: %w", index, err)
}

func asComputationError(err error, index int) *simerrors.SimError {
	return simerrors.NewComputationError("engine", "step", err).WithContext("index", index)
}

func (e *Engine) buildResult(sc *SimulationContext, start int) *BacktestResult {
	open := append([]*portfolio.OpenPosition(nil), sc.Executor.Book().Positions()...)
	return &BacktestResult{
		Metrics:         computeMetrics(sc, e.cfg),
		Baseline:        computeBaseline(sc.Series, start, sc.Portfolio.InitialCapital, annualizationFactor(e.cfg, sc.Series)),
		Snapshots:       sc.Snapshots,
		Trades:          sc.Trades,
		OpenPositions:   open,
		Portfolio:       *sc.Portfolio,
		Risk:            sc.Overseer.Stats(),
		Failures:        sc.Errors.TotalErrors,
		FailureMessages: sc.Errors.Messages(),
		StartIndex:      start,
		Candles:         sc.Series.Len(),
	}
}
