package indicators

import "math"

// EMA represents an incremental exponential moving average seeded with
// the SMA of its first period values
type EMA struct {
	period      int
	alpha       float64
	seedSum     float64
	seedCount   int
	lastValue   float64
	initialized bool
}

// NewEMA creates a new EMA accumulator
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

// NewWilderEMA creates an accumulator with Wilder's 1/period smoothing
func NewWilderEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  1.0 / float64(period),
	}
}

// UpdateSingle feeds one value and returns the current average and whether it
// has left warm-up
func (e *EMA) UpdateSingle(value float64) (float64, bool) {
	if !e.initialized {
		e.seedSum += value
		e.seedCount++
		if e.seedCount < e.period {
			return 0, false
		}
		e.lastValue = e.seedSum / float64(e.period)
		e.initialized = true
		return e.lastValue, true
	}

	// EMA = value*alpha + previous*(1-alpha)
	e.lastValue = value*e.alpha + e.lastValue*(1-e.alpha)
	return e.lastValue, true
}

// IsInitialized returns whether the EMA has left warm-up
func (e *EMA) IsInitialized() bool {
	return e.initialized
}

// GetLastValue returns the last calculated EMA value
func (e *EMA) GetLastValue() float64 {
	return e.lastValue
}

// ResetState clears the accumulator
func (e *EMA) ResetState() {
	e.seedSum = 0
	e.seedCount = 0
	e.lastValue = 0
	e.initialized = false
}

// EMASeries computes an exponential moving average. Leading NaN input values
// are skipped so the function can be chained on other indicator series.
func EMASeries(values []float64, period int) (Series, error) {
	if err := checkPeriod("EMA", period); err != nil {
		return nil, err
	}
	return smooth(values, NewEMA(period)), nil
}

func smooth(values []float64, acc *EMA) Series {
	out := newSeries(len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			if acc.IsInitialized() || acc.seedCount > 0 {
				// gap after the series started; stop producing values
				acc.ResetState()
			}
			continue
		}
		if avg, ok := acc.UpdateSingle(v); ok {
			out[i] = avg
		}
	}
	return out
}
