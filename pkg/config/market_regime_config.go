package config

import (
	"fmt"
)

// RegimeParams holds configuration for market regime detection
type RegimeParams struct {
	FastPeriod       int     `json:"fast_period" yaml:"fast_period"`             // Fast EMA (default: 12)
	SlowPeriod       int     `json:"slow_period" yaml:"slow_period"`             // Slow EMA (default: 26)
	MomentumPeriod   int     `json:"momentum_period" yaml:"momentum_period"`     // Rate-of-change lookback (default: 10)
	SmoothingPeriods int     `json:"smoothing_periods" yaml:"smoothing_periods"` // Raw score averaging window (default: 5)
	EnterThreshold   float64 `json:"enter_threshold" yaml:"enter_threshold"`     // Smoothed score to enter a trend (default: 0.05)
	ExitThreshold    float64 `json:"exit_threshold" yaml:"exit_threshold"`       // Smoothed score to leave a trend (default: 0.02)
	ConfidenceScale  float64 `json:"confidence_scale" yaml:"confidence_scale"`   // |score| reaching full confidence (default: 0.2)

	// Raw score components are clamped to [-1, 1] after dividing by their scale
	MAScale        float64 `json:"ma_scale" yaml:"ma_scale"`             // EMA spread scale (default: 0.02)
	PriceScale     float64 `json:"price_scale" yaml:"price_scale"`       // Close vs slow EMA scale (default: 0.05)
	MomentumScale  float64 `json:"momentum_scale" yaml:"momentum_scale"` // ROC scale (default: 0.05)
	TrendWeight    float64 `json:"trend_weight" yaml:"trend_weight"`
	PriceWeight    float64 `json:"price_weight" yaml:"price_weight"`
	MomentumWeight float64 `json:"momentum_weight" yaml:"momentum_weight"`
}

// DefaultRegimeParams returns the default regime detection parameters
func DefaultRegimeParams() RegimeParams {
	return RegimeParams{
		FastPeriod:       12,
		SlowPeriod:       26,
		MomentumPeriod:   10,
		SmoothingPeriods: 5,
		EnterThreshold:   0.05,
		ExitThreshold:    0.02,
		ConfidenceScale:  0.2,
		MAScale:          0.02,
		PriceScale:       0.05,
		MomentumScale:    0.05,
		TrendWeight:      0.4,
		PriceWeight:      0.3,
		MomentumWeight:   0.3,
	}
}

// RequiredPeriods returns the first index with a smoothed score
func (p RegimeParams) RequiredPeriods() int {
	first := p.SlowPeriod - 1
	if p.MomentumPeriod > first {
		first = p.MomentumPeriod
	}
	return first + p.SmoothingPeriods - 1
}

// Validate validates the regime parameters
func (p RegimeParams) Validate() error {
	if p.FastPeriod <= 0 || p.SlowPeriod <= 0 {
		return fmt.Errorf("regime EMA periods must be positive, got fast=%d slow=%d", p.FastPeriod, p.SlowPeriod)
	}
	if p.FastPeriod >= p.SlowPeriod {
		return fmt.Errorf("regime fast period (%d) must be below slow period (%d)", p.FastPeriod, p.SlowPeriod)
	}
	if p.MomentumPeriod <= 0 {
		return fmt.Errorf("regime momentum period must be positive, got %d", p.MomentumPeriod)
	}
	if p.SmoothingPeriods <= 0 {
		return fmt.Errorf("regime smoothing periods must be positive, got %d", p.SmoothingPeriods)
	}
	if p.ExitThreshold < 0 || p.EnterThreshold <= p.ExitThreshold {
		return fmt.Errorf("regime thresholds need 0 <= exit < enter, got enter=%.4f exit=%.4f", p.EnterThreshold, p.ExitThreshold)
	}
	if p.ConfidenceScale <= 0 || p.MAScale <= 0 || p.PriceScale <= 0 || p.MomentumScale <= 0 {
		return fmt.Errorf("regime scales must be positive")
	}
	if p.TrendWeight < 0 || p.PriceWeight < 0 || p.MomentumWeight < 0 {
		return fmt.Errorf("regime component weights must not be negative")
	}
	return nil
}
