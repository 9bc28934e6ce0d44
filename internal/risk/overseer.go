package risk

import (
	"github.com/ducminhle1904/regime-backtester/internal/safety"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
)

// Overseer owns the per-run risk state: the drawdown peak, the realized
// P&L window for Kelly sizing and the entry circuit breaker
type Overseer struct {
	drawdown config.DrawdownParams
	kelly    *KellySizer
	pnls     *PnLWindow
	breaker  *safety.CircuitBreaker

	peak         float64
	trips        int
	liquidations int
	closedTrades int
}

// OverseerStats summarizes risk activity for a run
type OverseerStats struct {
	Peak           float64                    `json:"peak"`
	DrawdownTrips  int                        `json:"drawdown_trips"`
	Liquidations   int                        `json:"liquidations"`
	ClosedTrades   int                        `json:"closed_trades"`
	CircuitBreaker safety.CircuitBreakerStats `json:"circuit_breaker"`
}

// NewOverseer creates risk state for one run starting at initialValue
func NewOverseer(cfg *config.StrategyConfig, initialValue float64) *Overseer {
	window := cfg.Kelly.LookbackPeriod
	if cfg.Drawdown.CircuitBreakerLookback > window {
		window = cfg.Drawdown.CircuitBreakerLookback
	}

	return &Overseer{
		drawdown: cfg.Drawdown,
		kelly:    NewKellySizer(cfg.Kelly),
		pnls:     NewPnLWindow(window),
		breaker: safety.NewCircuitBreaker("entries", safety.CircuitBreakerConfig{
			Lookback:         cfg.Drawdown.CircuitBreakerLookback,
			MinWinRate:       cfg.Drawdown.CircuitBreakerWinRate,
			CooldownPeriods:  cfg.Drawdown.CooldownPeriods,
			SuccessThreshold: cfg.Drawdown.SuccessThreshold,
		}),
		peak: initialValue,
	}
}

// Assess updates the peak with the current portfolio value and returns
// sizing and liquidation decisions for candle index
func (o *Overseer) Assess(index int, value float64) Assessment {
	if value > o.peak {
		o.peak = value
	}

	a := Assessment{Peak: o.peak, SizeMultiplier: 1}
	if o.peak > 0 {
		a.Drawdown = (o.peak - value) / o.peak
	}
	if a.Drawdown >= o.drawdown.WarnThreshold {
		a.SizeMultiplier = o.drawdown.WarnSizeMultiplier
	}
	if a.Drawdown >= o.drawdown.HardThreshold {
		a.Liquidate = true
	}
	a.EntriesPaused = !o.breaker.Allow(index)
	return a
}

// AfterLiquidation rebases the peak to the post-liquidation value and
// pauses entries for the cooldown window. closed reports whether the
// liquidation sold anything; a flat book only trips the guard.
func (o *Overseer) AfterLiquidation(index int, value float64, closed bool) {
	o.peak = value
	o.trips++
	if closed {
		o.liquidations++
	}
	o.breaker.ForceOpen(index)
}

// RecordClosedTrade feeds a realized P&L into Kelly sizing and the breaker
func (o *Overseer) RecordClosedTrade(index int, pnl float64) {
	o.pnls.Add(pnl)
	o.closedTrades++
	o.breaker.RecordOutcome(index, pnl > 0)
}

// Size returns the Kelly-adjusted position percentage for basePct
func (o *Overseer) Size(basePct float64) KellyResult {
	return o.kelly.Compute(o.pnls.Values(), basePct)
}

// Breaker exposes the entry circuit breaker
func (o *Overseer) Breaker() *safety.CircuitBreaker {
	return o.breaker
}

// Stats returns a snapshot of the risk state
func (o *Overseer) Stats() OverseerStats {
	return OverseerStats{
		Peak:           o.peak,
		DrawdownTrips:  o.trips,
		Liquidations:   o.liquidations,
		ClosedTrades:   o.closedTrades,
		CircuitBreaker: o.breaker.GetStats(),
	}
}
