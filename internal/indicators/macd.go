package indicators

import "fmt"

// MACDResult holds the three MACD series
type MACDResult struct {
	Line      Series
	Signal    Series
	Histogram Series
}

// MACD computes fast EMA minus slow EMA, its signal EMA and the histogram
func MACD(values []float64, fast, slow, signal int) (*MACDResult, error) {
	if fast >= slow {
		return nil, fmt.Errorf("MACD: fast period %d must be below slow period %d", fast, slow)
	}
	fastEMA, err := EMASeries(values, fast)
	if err != nil {
		return nil, err
	}
	slowEMA, err := EMASeries(values, slow)
	if err != nil {
		return nil, err
	}
	if err := checkPeriod("MACD signal", signal); err != nil {
		return nil, err
	}

	line := newSeries(len(values))
	for i := range values {
		f, okF := fastEMA.At(i)
		s, okS := slowEMA.At(i)
		if okF && okS {
			line[i] = f - s
		}
	}

	signalLine, err := EMASeries(line, signal)
	if err != nil {
		return nil, err
	}

	hist := newSeries(len(values))
	for i := range values {
		l, okL := line.At(i)
		s, okS := signalLine.At(i)
		if okL && okS {
			hist[i] = l - s
		}
	}

	return &MACDResult{Line: line, Signal: signalLine, Histogram: hist}, nil
}
