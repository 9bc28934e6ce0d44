package indicators

import "math"

// SMA computes the simple moving average over a rolling window.
// Value i uses values[i-period+1 .. i] only. A NaN input restarts the
// window, so SMA can be chained on other indicator series.
func SMA(values []float64, period int) (Series, error) {
	if err := checkPeriod("SMA", period); err != nil {
		return nil, err
	}

	out := newSeries(len(values))
	sum := 0.0
	run := 0
	for i, v := range values {
		if math.IsNaN(v) {
			sum, run = 0, 0
			continue
		}
		sum += v
		run++
		if run > period {
			sum -= values[i-period]
		}
		if run >= period {
			out[i] = sum / float64(period)
		}
	}
	return out, nil
}
