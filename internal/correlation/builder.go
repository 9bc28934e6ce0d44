// Package correlation derives per-candle cross-asset adjustments from a
// secondary series that shares the primary series' timestamps.
package correlation

import (
	"fmt"
	"math"

	simerrors "github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// Adjustment contexts
const (
	ContextAligned       = "aligned"
	ContextDivergent     = "divergent"
	ContextUncorrelated  = "uncorrelated"
	momentumFullStrength = 0.05
)

// Params configures the builder
type Params struct {
	Lookback       int     `json:"lookback" yaml:"lookback"`               // Log returns per correlation window (default: 20)
	MomentumPeriod int     `json:"momentum_period" yaml:"momentum_period"` // Secondary rate-of-change period (default: 10)
	VolScale       float64 `json:"vol_scale" yaml:"vol_scale"`             // Per-candle volatility mapping to full risk (default: 0.03)
	MinCorrelation float64 `json:"min_correlation" yaml:"min_correlation"` // Below this |corr| the assets are uncorrelated (default: 0.3)
}

// DefaultParams returns the default builder settings
func DefaultParams() Params {
	return Params{Lookback: 20, MomentumPeriod: 10, VolScale: 0.03, MinCorrelation: 0.3}
}

// Validate checks the parameters
func (p Params) Validate() error {
	switch {
	case p.Lookback < 2:
		return simerrors.NewConfigurationError("correlation", "validate", "lookback must be at least 2")
	case p.MomentumPeriod <= 0:
		return simerrors.NewConfigurationError("correlation", "validate", "momentum period must be positive")
	case p.VolScale <= 0:
		return simerrors.NewConfigurationError("correlation", "validate", "vol scale must be positive")
	case p.MinCorrelation < 0 || p.MinCorrelation > 1:
		return simerrors.NewConfigurationError("correlation", "validate", "min correlation must be in [0, 1]")
	}
	return nil
}

// Build returns one adjustment per primary candle. Entries stay nil until
// both the correlation window and the momentum period are filled.
func Build(primary, secondary *types.Series, params Params) ([]*types.CorrelationAdjustment, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	n := primary.Len()
	if secondary.Len() != n {
		return nil, simerrors.NewDataError("correlation", "build",
			fmt.Sprintf("series lengths differ: %d vs %d", n, secondary.Len()))
	}

	a, err := logReturns(primary, secondary)
	if err != nil {
		return nil, err
	}
	b, err := logReturns(secondary, nil)
	if err != nil {
		return nil, err
	}

	out := make([]*types.CorrelationAdjustment, n)
	start := params.Lookback
	if params.MomentumPeriod > start {
		start = params.MomentumPeriod
	}
	for i := start; i < n; i++ {
		// returns are indexed by their ending candle; a[0] is unused
		from := i - params.Lookback + 1
		corr := pearson(a[from:i+1], b[from:i+1])

		prev := secondary.Candles[i-params.MomentumPeriod].Close
		roc := secondary.Candles[i].Close/prev - 1

		out[i] = &types.CorrelationAdjustment{
			Signal:    corr * clamp(roc/momentumFullStrength, -1, 1),
			RiskLevel: clamp(stdDev(b[from:i+1])/params.VolScale, 0, 1),
			Context:   classify(corr, params.MinCorrelation),
		}
	}
	return out, nil
}

// logReturns validates s (and its timestamps against ref when given) and
// returns ln(close[i]/close[i-1]) with a leading zero
func logReturns(s, ref *types.Series) ([]float64, error) {
	out := make([]float64, s.Len())
	for i, c := range s.Candles {
		if c.Close <= 0 || math.IsNaN(c.Close) || math.IsInf(c.Close, 0) {
			return nil, simerrors.NewDataError("correlation", "build",
				fmt.Sprintf("invalid close %v at index %d", c.Close, i))
		}
		if ref != nil && ref.Candles[i].Timestamp != c.Timestamp {
			return nil, simerrors.NewDataError("correlation", "build",
				fmt.Sprintf("timestamps differ at index %d", i))
		}
		if i > 0 {
			out[i] = math.Log(c.Close / s.Candles[i-1].Close)
		}
	}
	return out, nil
}

func pearson(x, y []float64) float64 {
	mx, my := mean(x), mean(y)
	var cov, vx, vy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx < 1e-18 || vy < 1e-18 {
		return 0
	}
	return clamp(cov/math.Sqrt(vx*vy), -1, 1)
}

func mean(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func stdDev(v []float64) float64 {
	m := mean(v)
	sum := 0.0
	for _, x := range v {
		sum += (x - m) * (x - m)
	}
	return math.Sqrt(sum / float64(len(v)))
}

func classify(corr, threshold float64) string {
	switch {
	case math.Abs(corr) < threshold:
		return ContextUncorrelated
	case corr > 0:
		return ContextAligned
	default:
		return ContextDivergent
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
