package indicators

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidPeriod is returned when an indicator is asked for a non-positive window
var ErrInvalidPeriod = errors.New("indicator period must be positive")

// Series holds one indicator value per candle index. Indices that are still
// inside the warm-up window hold NaN. Series returned from a Cache are shared
// and must be treated as read-only.
type Series []float64

// newSeries allocates a series of length n filled with NaN
func newSeries(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// At returns the value at index i and whether it is available
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s) {
		return 0, false
	}
	v := s[i]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// FirstValid returns the first index holding a value, or -1
func (s Series) FirstValid() int {
	for i, v := range s {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}

func checkPeriod(name string, period int) error {
	if period <= 0 {
		return fmt.Errorf("%s: %w (got %d)", name, ErrInvalidPeriod, period)
	}
	return nil
}
