package backtest

import (
	"math"
	"time"

	"github.com/ducminhle1904/regime-backtester/internal/portfolio"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// yearDuration is the calendar year used to infer periods per year
const yearDuration = time.Duration(24*365.25) * time.Hour

// Metrics aggregates a run's performance
type Metrics struct {
	InitialCapital      float64 `json:"initial_capital"`
	FinalValue          float64 `json:"final_value"`
	TotalReturnPct      float64 `json:"total_return_pct"`
	SharpeRatio         float64 `json:"sharpe_ratio"`
	MaxDrawdownPct      float64 `json:"max_drawdown_pct"`
	WinRate             float64 `json:"win_rate"` // winning sells / sells, 0-1
	TotalTrades         int     `json:"total_trades"`
	BuyCount            int     `json:"buy_count"`
	SellCount           int     `json:"sell_count"`
	WinCount            int     `json:"win_count"`
	ProfitFactor        float64 `json:"profit_factor"` // 0 when no sell lost money
	ExposurePct         float64 `json:"exposure_pct"`  // share of candles holding the asset
	StopExits           int     `json:"stop_exits"`
	Liquidations        int     `json:"liquidations"`
	TotalFees           float64 `json:"total_fees"`
	AnnualizationFactor float64 `json:"annualization_factor"`
}

// BaselineMetrics describes buy-and-hold over the simulated window
type BaselineMetrics struct {
	ReturnPct      float64 `json:"return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
}

func computeMetrics(sc *SimulationContext, cfg *config.StrategyConfig) Metrics {
	p := sc.Portfolio
	m := Metrics{
		InitialCapital:      p.InitialCapital,
		FinalValue:          p.TotalValue,
		TotalTrades:         len(sc.Trades),
		SellCount:           p.SellCount,
		WinCount:            p.WinCount,
		WinRate:             p.WinRate(),
		StopExits:           sc.stopExits,
		Liquidations:        sc.Overseer.Stats().Liquidations,
		AnnualizationFactor: annualizationFactor(cfg, sc.Series),
	}
	if n := len(sc.Snapshots); n > 0 {
		m.FinalValue = sc.Snapshots[n-1].TotalValue
	}
	if m.InitialCapital > 0 {
		m.TotalReturnPct = (m.FinalValue - m.InitialCapital) / m.InitialCapital * 100
	}

	returns := make([]float64, 0, len(sc.Snapshots))
	held := 0
	for _, s := range sc.Snapshots {
		returns = append(returns, s.PeriodReturn)
		if s.Drawdown*100 > m.MaxDrawdownPct {
			m.MaxDrawdownPct = s.Drawdown * 100
		}
		if s.Asset > 0 {
			held++
		}
	}
	m.SharpeRatio = sharpeRatio(returns, m.AnnualizationFactor)
	if len(sc.Snapshots) > 0 {
		m.ExposurePct = float64(held) / float64(len(sc.Snapshots)) * 100
	}

	var profit, loss float64
	for _, t := range sc.Trades {
		m.TotalFees += t.Fee
		if t.Type == portfolio.TradeBuy {
			m.BuyCount++
			continue
		}
		if t.PnL > 0 {
			profit += t.PnL
		} else {
			loss -= t.PnL
		}
	}
	if loss > 0 {
		m.ProfitFactor = profit / loss
	}
	return m
}

// computeBaseline holds the asset from the close at start to the last candle
func computeBaseline(series *types.Series, start int, capital float64, annualization float64) BaselineMetrics {
	var b BaselineMetrics
	if start >= series.Len() || capital <= 0 {
		return b
	}

	entry := series.Candles[start].Close
	units := capital / entry
	peak := capital
	prev := capital
	returns := make([]float64, 0, series.Len()-start)
	for i := start; i < series.Len(); i++ {
		value := units * series.Candles[i].Close
		if value > peak {
			peak = value
		}
		if dd := (peak - value) / peak * 100; dd > b.MaxDrawdownPct {
			b.MaxDrawdownPct = dd
		}
		returns = append(returns, value/prev-1)
		prev = value
	}
	b.ReturnPct = (prev - capital) / capital * 100
	b.SharpeRatio = sharpeRatio(returns, annualization)
	return b
}

// sharpeRatio is mean/stddev of per-period returns (population stddev,
// zero risk-free rate) scaled by sqrt(periods per year). A flat series
// has no defined ratio and reports 0.
func sharpeRatio(returns []float64, annualization float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	avg := 0.0
	for _, r := range returns {
		avg += r
	}
	avg /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - avg) * (r - avg)
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)

	if stdDev < 1e-10 {
		return 0
	}
	if annualization <= 0 {
		annualization = 1
	}
	return avg / stdDev * math.Sqrt(annualization)
}

// annualizationFactor returns the configured periods per year or infers it
// from the average candle spacing
func annualizationFactor(cfg *config.StrategyConfig, series *types.Series) float64 {
	if cfg.AnnualizationFactor > 0 {
		return cfg.AnnualizationFactor
	}
	n := series.Len()
	if n < 2 {
		return 1
	}
	span := series.Candles[n-1].Timestamp - series.Candles[0].Timestamp
	if span <= 0 {
		return 1
	}
	avg := time.Duration(span/int64(n-1)) * time.Millisecond
	if avg <= 0 {
		return 1
	}
	return float64(yearDuration) / float64(avg)
}
