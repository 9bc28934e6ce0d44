package optimization

import (
	"fmt"
	"strings"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
)

// FitnessReturn scores a run by total return percent
func FitnessReturn(r *backtest.BacktestResult) float64 {
	return r.Metrics.TotalReturnPct
}

// FitnessSharpe scores a run by annualized Sharpe ratio
func FitnessSharpe(r *backtest.BacktestResult) float64 {
	return r.Metrics.SharpeRatio
}

// FitnessCalmar scores a run by return per unit of max drawdown. A run that
// never drew down is scored by its return alone.
func FitnessCalmar(r *backtest.BacktestResult) float64 {
	if r.Metrics.MaxDrawdownPct <= 0 {
		return r.Metrics.TotalReturnPct
	}
	return r.Metrics.TotalReturnPct / r.Metrics.MaxDrawdownPct
}

// FitnessByName resolves a fitness function for CLI and API callers
func FitnessByName(name string) (FitnessFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "return":
		return FitnessReturn, nil
	case "sharpe":
		return FitnessSharpe, nil
	case "calmar":
		return FitnessCalmar, nil
	default:
		return nil, fmt.Errorf("unknown fitness %q (want return, sharpe or calmar)", name)
	}
}
