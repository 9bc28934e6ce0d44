package risk

import "math"

// StopLevel tracks an ATR stop for one open position
type StopLevel struct {
	Stop        float64 `json:"stop"`
	InitialStop float64 `json:"initial_stop"`
	Highest     float64 `json:"highest"` // highest price since entry
	ATRAtEntry  float64 `json:"atr_at_entry"`
}

// NewStopLevel places the initial stop at entry - ATR x multiplier
func NewStopLevel(entry, atr, multiplier float64) StopLevel {
	stop := math.Max(0, entry-atr*multiplier)
	return StopLevel{Stop: stop, InitialStop: stop, Highest: entry, ATRAtEntry: atr}
}

// Update records the current price and, when trailing, raises the stop to
// highest - ATR x multiplier if that is higher. The stop never moves down.
// It returns true when the stop moved.
func (s *StopLevel) Update(price, atr, multiplier float64, trailing bool) bool {
	if price > s.Highest {
		s.Highest = price
	}
	if !trailing || math.IsNaN(atr) {
		return false
	}
	candidate := s.Highest - atr*multiplier
	if candidate > s.Stop {
		s.Stop = candidate
		return true
	}
	return false
}

// Raised reports whether the stop has trailed above its initial level
func (s StopLevel) Raised() bool {
	return s.Stop > s.InitialStop
}

// Triggered reports whether price is below the stop and how to tag the exit
func (s StopLevel) Triggered(price float64) (bool, ExitReason) {
	if price >= s.Stop {
		return false, ""
	}
	if s.Raised() {
		return true, ExitTrailingStop
	}
	return true, ExitStopLoss
}
