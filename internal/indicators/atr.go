package indicators

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// ATRMode selects how true range is averaged
type ATRMode string

const (
	ATRModeSimple ATRMode = "simple" // rolling mean
	ATRModeEMA    ATRMode = "ema"    // 2/(p+1) smoothing, SMA seeded
	ATRModeWilder ATRMode = "wilder" // 1/p smoothing, SMA seeded
)

// TrueRange returns the true range per candle. The first candle has no
// previous close and uses high minus low.
func TrueRange(candles []types.PriceCandle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		if i == 0 {
			out[i] = c.High - c.Low
			continue
		}
		prevClose := candles[i-1].Close
		out[i] = math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
	}
	return out
}

// ATR computes the average true range for the whole series so it can be
// indexed by position on every candle
func ATR(candles []types.PriceCandle, period int, mode ATRMode) (Series, error) {
	if err := checkPeriod("ATR", period); err != nil {
		return nil, err
	}
	tr := TrueRange(candles)

	switch mode {
	case ATRModeSimple, "":
		return SMA(tr, period)
	case ATRModeEMA:
		return smooth(tr, NewEMA(period)), nil
	case ATRModeWilder:
		return smooth(tr, NewWilderEMA(period)), nil
	default:
		return nil, fmt.Errorf("ATR: unknown mode %q", mode)
	}
}
