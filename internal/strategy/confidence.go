package strategy

import (
	"math"

	"github.com/ducminhle1904/regime-backtester/internal/indicators"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// ComputeConfidence returns a position-size scalar in [0, 1]. It rises with
// the signal's distance from the nearest threshold and with regime
// confidence, and falls as average ATR/close over the lookback rises.
// It never changes the action.
func ComputeConfidence(sig *Signal, atr indicators.Series, series *types.Series, index int, params config.ConfidenceParams) float64 {
	if sig == nil || sig.ActiveStrategy.Config == nil {
		return 0
	}

	tc := sig.ActiveStrategy.Config
	distance := math.Min(math.Abs(sig.Signal-tc.BuyThreshold), math.Abs(sig.Signal-tc.SellThreshold))
	strength := regime.Clamp01(distance / params.DistanceScale)

	blended := params.SignalWeight*strength + (1-params.SignalWeight)*sig.Regime.Confidence
	vol := NormalizedVolatility(atr, series, index, params.VolatilityLookback)

	return regime.Clamp01(blended / (1 + vol/params.VolatilityScale))
}

// NormalizedVolatility averages ATR/close over the lookback ending at index.
// Indices still warming up are skipped; with no data it returns 0.
func NormalizedVolatility(atr indicators.Series, series *types.Series, index, lookback int) float64 {
	sum := 0.0
	n := 0
	for j := index; j > index-lookback && j >= 0; j-- {
		v, ok := atr.At(j)
		if !ok {
			continue
		}
		c := series.Candles[j].Close
		if c <= 0 {
			continue
		}
		sum += v / c
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
