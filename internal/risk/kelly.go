package risk

import (
	"math"

	"github.com/ducminhle1904/regime-backtester/pkg/config"
)

// KellyResult is the outcome of one sizing decision
type KellyResult struct {
	Trades          int     `json:"trades"`
	WinRate         float64 `json:"win_rate"`
	WinLossRatio    float64 `json:"win_loss_ratio"`
	KellyFraction   float64 `json:"kelly_fraction"`   // [0, 1]
	FractionalKelly float64 `json:"fractional_kelly"` // KellyFraction x safety multiplier
	PositionPct     float64 `json:"position_pct"`     // min(base, fractional) or base on fallback
	UsedFallback    bool    `json:"used_fallback"`
}

// KellySizer computes Kelly-criterion position sizes from realized P&L
type KellySizer struct {
	params config.KellyParams
}

// NewKellySizer creates a sizer
func NewKellySizer(params config.KellyParams) *KellySizer {
	return &KellySizer{params: params}
}

// Compute sizes a position from the most recent realized P&Ls. Only the
// last LookbackPeriod values are used. A zero P&L is neither a win nor a
// loss but still counts toward the trade total.
func (k *KellySizer) Compute(pnls []float64, basePct float64) KellyResult {
	if k.params.LookbackPeriod > 0 && len(pnls) > k.params.LookbackPeriod {
		pnls = pnls[len(pnls)-k.params.LookbackPeriod:]
	}

	res := KellyResult{Trades: len(pnls), PositionPct: basePct, UsedFallback: true}
	if !k.params.Enabled || len(pnls) == 0 || len(pnls) < k.params.MinTrades {
		return res
	}

	var wins, losses int
	var sumWin, sumLoss float64
	for _, p := range pnls {
		switch {
		case p > 0:
			wins++
			sumWin += p
		case p < 0:
			losses++
			sumLoss += -p
		}
	}

	w := float64(wins) / float64(len(pnls))
	res.WinRate = w

	var f float64
	switch {
	case losses == 0:
		if w <= 0.5 {
			return res
		}
		// no losses to size against; bet the win rate
		f = w
	case wins == 0:
		f = 0
	default:
		avgWin := sumWin / float64(wins)
		avgLoss := sumLoss / float64(losses)
		r := avgWin / avgLoss
		res.WinLossRatio = r
		f = (w*r - (1 - w)) / r
	}

	res.KellyFraction = math.Max(0, math.Min(1, f))
	res.FractionalKelly = res.KellyFraction * k.params.FractionalMultiplier
	res.PositionPct = math.Min(basePct, res.FractionalKelly)
	res.UsedFallback = false
	return res
}

// PnLWindow keeps the most recent realized P&Ls
type PnLWindow struct {
	values []float64
	size   int
}

// NewPnLWindow creates a window holding at most size values
func NewPnLWindow(size int) *PnLWindow {
	if size < 1 {
		size = 1
	}
	return &PnLWindow{values: make([]float64, 0, size), size: size}
}

// Add appends a realized P&L, dropping the oldest when full
func (w *PnLWindow) Add(pnl float64) {
	if len(w.values) == w.size {
		copy(w.values, w.values[1:])
		w.values = w.values[:w.size-1]
	}
	w.values = append(w.values, pnl)
}

// Values returns the window, oldest first
func (w *PnLWindow) Values() []float64 {
	return w.values
}

// Len returns the number of stored values
func (w *PnLWindow) Len() int {
	return len(w.values)
}
