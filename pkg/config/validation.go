package config

import (
	"fmt"

	simerrors "github.com/ducminhle1904/regime-backtester/internal/errors"
)

const (
	// MaxCommission is the largest accepted fee rate (10%)
	MaxCommission = 0.1
	// MinWarmupPeriods is the smallest accepted warm-up window
	MinWarmupPeriods = 2
)

var validATRModes = map[string]bool{"simple": true, "ema": true, "wilder": true}

// Validate checks the whole configuration and returns a ConfigurationError
// describing the first problem found
func (c *StrategyConfig) Validate() error {
	if c == nil {
		return simerrors.NewConfigurationError("config", "validate", "strategy config is nil")
	}
	if err := c.validate(); err != nil {
		return simerrors.WrapError(err, simerrors.ErrorCategoryConfiguration, "config", "validate")
	}
	return nil
}

func (c *StrategyConfig) validate() error {
	if c.Bullish == nil {
		return fmt.Errorf("missing bullish sub-strategy")
	}
	if c.Bearish == nil {
		return fmt.Errorf("missing bearish sub-strategy")
	}
	if err := c.Bullish.Validate(); err != nil {
		return fmt.Errorf("bullish: %w", err)
	}
	if err := c.Bearish.Validate(); err != nil {
		return fmt.Errorf("bearish: %w", err)
	}
	if c.Bullish.InitialCapital != c.Bearish.InitialCapital {
		return fmt.Errorf("bullish and bearish initial capital differ: %.2f vs %.2f",
			c.Bullish.InitialCapital, c.Bearish.InitialCapital)
	}

	if err := unitRange("regime confidence threshold", c.RegimeConfidenceThreshold); err != nil {
		return err
	}
	if err := unitRange("momentum confirmation threshold", c.MomentumConfirmationThreshold); err != nil {
		return err
	}
	if err := unitRange("momentum dampening", c.MomentumDampening); err != nil {
		return err
	}
	if c.MomentumPeriod <= 0 {
		return fmt.Errorf("momentum period must be positive, got %d", c.MomentumPeriod)
	}
	if c.RegimePersistencePeriods < 1 {
		return fmt.Errorf("regime persistence periods must be at least 1, got %d", c.RegimePersistencePeriods)
	}
	if c.RegimeHistorySize < c.RegimePersistencePeriods {
		return fmt.Errorf("regime history size (%d) must hold the persistence window (%d)",
			c.RegimeHistorySize, c.RegimePersistencePeriods)
	}
	if c.WhipsawDetectionPeriods < 1 {
		return fmt.Errorf("whipsaw detection periods must be at least 1, got %d", c.WhipsawDetectionPeriods)
	}
	if c.WhipsawMaxChanges < 0 {
		return fmt.Errorf("whipsaw max changes must not be negative, got %d", c.WhipsawMaxChanges)
	}

	validators := []struct {
		name string
		v    Validatable
	}{
		{"regime", c.Regime},
		{"confidence", c.Confidence},
		{"kelly", c.Kelly},
		{"stop loss", c.StopLoss},
		{"drawdown", c.Drawdown},
		{"execution", c.Execution},
		{"correlation", c.Correlation},
	}
	for _, section := range validators {
		if err := section.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", section.name, err)
		}
	}

	if c.WarmupPeriods < MinWarmupPeriods {
		return fmt.Errorf("warm-up periods must be at least %d, got %d", MinWarmupPeriods, c.WarmupPeriods)
	}
	if c.AnnualizationFactor < 0 {
		return fmt.Errorf("annualization factor must not be negative, got %.2f", c.AnnualizationFactor)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must not be negative, got %d", c.TimeoutSeconds)
	}
	return nil
}

// Validate checks one sub-strategy
func (t *TradingConfig) Validate() error {
	if len(t.Indicators) == 0 {
		return fmt.Errorf("at least one indicator is required")
	}
	for i, ind := range t.Indicators {
		if err := ind.Validate(); err != nil {
			return fmt.Errorf("indicator %d: %w", i, err)
		}
	}
	if t.SellThreshold >= t.BuyThreshold {
		return fmt.Errorf("sell threshold (%.4f) must be below buy threshold (%.4f)", t.SellThreshold, t.BuyThreshold)
	}
	if t.MaxPositionPct <= 0 || t.MaxPositionPct > 1 {
		return fmt.Errorf("max position pct must be in (0, 1], got %.4f", t.MaxPositionPct)
	}
	if t.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %.2f", t.InitialCapital)
	}
	return nil
}

// Validate checks one indicator entry
func (s IndicatorSpec) Validate() error {
	switch s.Name {
	case IndicatorSMA, IndicatorEMA, IndicatorRSI, IndicatorMomentum:
		if s.Period <= 0 {
			return fmt.Errorf("%s period must be positive, got %d", s.Name, s.Period)
		}
	case IndicatorMACD:
		if s.Fast <= 0 || s.Slow <= 0 || s.Signal <= 0 {
			return fmt.Errorf("macd periods must be positive, got %d/%d/%d", s.Fast, s.Slow, s.Signal)
		}
		if s.Fast >= s.Slow {
			return fmt.Errorf("macd fast period (%d) must be below slow period (%d)", s.Fast, s.Slow)
		}
	default:
		return fmt.Errorf("unknown indicator %q", s.Name)
	}
	return nil
}

// Validate checks the confidence parameters
func (p ConfidenceParams) Validate() error {
	if err := unitRange("signal weight", p.SignalWeight); err != nil {
		return err
	}
	if p.DistanceScale <= 0 || p.VolatilityScale <= 0 {
		return fmt.Errorf("distance and volatility scales must be positive")
	}
	if p.VolatilityLookback <= 0 {
		return fmt.Errorf("volatility lookback must be positive, got %d", p.VolatilityLookback)
	}
	return nil
}

// Validate checks the Kelly parameters
func (p KellyParams) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.MinTrades < 1 {
		return fmt.Errorf("min trades must be at least 1, got %d", p.MinTrades)
	}
	if p.LookbackPeriod < p.MinTrades {
		return fmt.Errorf("lookback period (%d) must be at least min trades (%d)", p.LookbackPeriod, p.MinTrades)
	}
	if p.FractionalMultiplier <= 0 || p.FractionalMultiplier > 1 {
		return fmt.Errorf("fractional multiplier must be in (0, 1], got %.4f", p.FractionalMultiplier)
	}
	return nil
}

// Validate checks the stop-loss parameters
func (p StopLossParams) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.ATRPeriod <= 0 {
		return fmt.Errorf("ATR period must be positive, got %d", p.ATRPeriod)
	}
	if p.ATRMultiplier <= 0 {
		return fmt.Errorf("ATR multiplier must be positive, got %.4f", p.ATRMultiplier)
	}
	if !validATRModes[p.ATRMode] {
		return fmt.Errorf("unknown ATR mode %q", p.ATRMode)
	}
	return nil
}

// Validate checks the drawdown parameters
func (p DrawdownParams) Validate() error {
	if p.WarnThreshold <= 0 || p.HardThreshold > 1 || p.WarnThreshold > p.HardThreshold {
		return fmt.Errorf("drawdown thresholds need 0 < warn <= hard <= 1, got warn=%.4f hard=%.4f", p.WarnThreshold, p.HardThreshold)
	}
	if err := unitRange("warn size multiplier", p.WarnSizeMultiplier); err != nil {
		return err
	}
	if err := unitRange("circuit breaker win rate", p.CircuitBreakerWinRate); err != nil {
		return err
	}
	if p.CircuitBreakerLookback < 1 {
		return fmt.Errorf("circuit breaker lookback must be at least 1, got %d", p.CircuitBreakerLookback)
	}
	if p.CooldownPeriods < 0 {
		return fmt.Errorf("cooldown periods must not be negative, got %d", p.CooldownPeriods)
	}
	if p.SuccessThreshold < 1 {
		return fmt.Errorf("success threshold must be at least 1, got %d", p.SuccessThreshold)
	}
	return nil
}

// Validate checks the execution parameters
func (p ExecutionParams) Validate() error {
	if p.Commission < 0 || p.Commission > MaxCommission {
		return fmt.Errorf("commission must be between 0 and %.2f, got: %.4f", MaxCommission, p.Commission)
	}
	if p.MinTradeValue < 0 {
		return fmt.Errorf("min trade value must not be negative, got %.4f", p.MinTradeValue)
	}
	if p.MaxOpenPositions < 1 {
		return fmt.Errorf("max open positions must be at least 1, got %d", p.MaxOpenPositions)
	}
	return nil
}

// Validate checks the correlation blending parameters
func (p CorrelationParams) Validate() error {
	if err := unitRange("correlation weight", p.Weight); err != nil {
		return err
	}
	return unitRange("correlation risk damping", p.RiskDamping)
}

func unitRange(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be in [0, 1], got %.4f", name, v)
	}
	return nil
}
