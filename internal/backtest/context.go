package backtest

import (
	"math"

	simerrors "github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/internal/indicators"
	"github.com/ducminhle1904/regime-backtester/internal/portfolio"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/internal/risk"
	"github.com/ducminhle1904/regime-backtester/internal/strategy"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// maxRecordedFailures bounds the failure messages kept per run
const maxRecordedFailures = 50

// Snapshot is the portfolio state recorded after one candle
type Snapshot struct {
	Index        int                  `json:"index"`
	Timestamp    int64                `json:"timestamp"`
	Price        float64              `json:"price"`
	Cash         float64              `json:"cash"`
	Asset        float64              `json:"asset"`
	TotalValue   float64              `json:"total_value"`
	Peak         float64              `json:"peak"`
	Drawdown     float64              `json:"drawdown"`      // (peak - value) / peak
	PeriodReturn float64              `json:"period_return"` // value / previous value - 1
	Regime       regime.RegimeType    `json:"regime"`
	Signal       float64              `json:"signal"`
	Action       strategy.TradeAction `json:"action"`
	Confidence   float64              `json:"confidence"`
	Failed       bool                 `json:"failed,omitempty"`
}

// StepResult is the outcome of one candle: a record, or the error that
// prevented one. The loop driver decides what a failure becomes.
type StepResult struct {
	Index    int
	Snapshot Snapshot
	Err      error
}

// Failed reports whether the step produced no record
func (r StepResult) Failed() bool {
	return r.Err != nil
}

// SimulationContext is all mutable state of one run. It is created at run
// start, owned by a single goroutine and dropped when the run ends.
type SimulationContext struct {
	RunID       string
	Config      *config.StrategyConfig
	Series      *types.Series
	Correlation []*types.CorrelationAdjustment
	Cache       *indicators.Cache
	ATR         indicators.Series

	Strategy  *strategy.State
	Overseer  *risk.Overseer
	Executor  *portfolio.Executor
	Portfolio *portfolio.Portfolio

	Trades    []*portfolio.Trade
	Snapshots []Snapshot
	Errors    *simerrors.ErrorStats

	equityPeak float64
	lastValue  float64
	stopExits  int
}

func newSimulationContext(runID string, cfg *config.StrategyConfig, series *types.Series, corr []*types.CorrelationAdjustment, cache *indicators.Cache) *SimulationContext {
	capital := cfg.Bullish.InitialCapital
	return &SimulationContext{
		RunID:       runID,
		Config:      cfg,
		Series:      series,
		Correlation: corr,
		Cache:       cache,
		Strategy:    strategy.NewState(cfg, cache),
		Overseer:    risk.NewOverseer(cfg, capital),
		Executor:    portfolio.NewExecutor(cfg),
		Portfolio:   portfolio.NewPortfolio(capital),
		Snapshots:   make([]Snapshot, 0, series.Len()),
		Errors:      simerrors.NewErrorStats(maxRecordedFailures),
		equityPeak:  capital,
		lastValue:   capital,
	}
}

// adjustment returns the correlation overlay for index, if any
func (sc *SimulationContext) adjustment(index int) *types.CorrelationAdjustment {
	if index < len(sc.Correlation) {
		return sc.Correlation[index]
	}
	return nil
}

// atrAt returns ATR at index or NaN while it warms up
func (sc *SimulationContext) atrAt(index int) float64 {
	if v, ok := sc.ATR.At(index); ok {
		return v
	}
	return math.NaN()
}

// snapshot marks the portfolio to market and builds the record for index
func (sc *SimulationContext) snapshot(index int, sig *strategy.Signal, confidence float64, failed bool) Snapshot {
	c := sc.Series.Candles[index]
	value := sc.Portfolio.MarkToMarket(c.Close)
	if value > sc.equityPeak {
		sc.equityPeak = value
	}

	snap := Snapshot{
		Index:      index,
		Timestamp:  c.Timestamp,
		Price:      c.Close,
		Cash:       sc.Portfolio.Cash,
		Asset:      sc.Portfolio.Asset,
		TotalValue: value,
		Peak:       sc.equityPeak,
		Regime:     sig.Regime.Regime,
		Signal:     sig.Signal,
		Action:     sig.Action,
		Confidence: confidence,
		Failed:     failed,
	}
	if sc.equityPeak > 0 {
		snap.Drawdown = (sc.equityPeak - value) / sc.equityPeak
	}
	if sc.lastValue > 0 {
		snap.PeriodReturn = value/sc.lastValue - 1
	}
	sc.lastValue = value
	return snap
}

// record appends a fill and feeds realized P&L into risk state
func (sc *SimulationContext) record(t *portfolio.Trade) {
	if t == nil {
		return
	}
	sc.Trades = append(sc.Trades, t)
	if t.Type != portfolio.TradeSell {
		return
	}
	sc.Overseer.RecordClosedTrade(t.Index, t.PnL)
	if t.Reason == risk.ExitStopLoss || t.Reason == risk.ExitTrailingStop {
		sc.stopExits++
	}
}
