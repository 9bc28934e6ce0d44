package data

import (
	"math"
	"math/rand"
	"time"

	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// Generator settings shared by every synthetic series
type SyntheticParams struct {
	Count    int
	Start    time.Time     // zero uses 2024-01-01 UTC
	Interval time.Duration // zero uses one hour
	Volume   float64
}

func (p SyntheticParams) withDefaults() SyntheticParams {
	if p.Start.IsZero() {
		p.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if p.Interval <= 0 {
		p.Interval = time.Hour
	}
	if p.Volume <= 0 {
		p.Volume = 1000
	}
	if p.Count < 0 {
		p.Count = 0
	}
	return p
}

// fromCloses builds candles whose open is the previous close and whose
// high/low bracket both by spread
func fromCloses(p SyntheticParams, closes []float64, spread float64) []types.PriceCandle {
	p = p.withDefaults()
	out := make([]types.PriceCandle, len(closes))
	start := p.Start.UnixMilli()
	step := p.Interval.Milliseconds()
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		out[i] = types.PriceCandle{
			Timestamp: start + int64(i)*step,
			Open:      open,
			High:      math.Max(open, c) * (1 + spread),
			Low:       math.Min(open, c) * (1 - spread),
			Close:     c,
			Volume:    p.Volume,
		}
	}
	return out
}

// Constant returns a flat series at price with zero range
func Constant(p SyntheticParams, price float64) []types.PriceCandle {
	p = p.withDefaults()
	closes := make([]float64, p.Count)
	for i := range closes {
		closes[i] = price
	}
	return fromCloses(p, closes, 0)
}

// Linear returns closes start + i*step
func Linear(p SyntheticParams, start, step float64) []types.PriceCandle {
	p = p.withDefaults()
	closes := make([]float64, p.Count)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return fromCloses(p, closes, 0.002)
}

// RandomWalk returns a geometric random walk. The same seed always yields
// the same series.
func RandomWalk(p SyntheticParams, start, drift, volatility float64, seed int64) []types.PriceCandle {
	p = p.withDefaults()
	rng := rand.New(rand.NewSource(seed))
	closes := make([]float64, p.Count)
	price := start
	for i := range closes {
		if i > 0 {
			price *= math.Exp(drift + volatility*rng.NormFloat64())
		}
		closes[i] = price
	}
	return fromCloses(p, closes, volatility/2)
}

// Shock multiplies every close from index at onward by factor, modelling a
// single gap
func Shock(candles []types.PriceCandle, at int, factor float64) []types.PriceCandle {
	out := make([]types.PriceCandle, len(candles))
	copy(out, candles)
	for i := at; i < len(out); i++ {
		if i < 0 {
			continue
		}
		c := &out[i]
		if i > at {
			c.Open *= factor
		}
		c.High *= factor
		c.Low *= factor
		c.Close *= factor
		if i == at {
			// the gap candle opens at the old level
			c.High = math.Max(c.Open, c.High)
			c.Low = math.Min(c.Low, c.Open)
		}
	}
	return out
}
