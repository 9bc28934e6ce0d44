package config

// Indicator names accepted in IndicatorSpec.Name
const (
	IndicatorSMA      = "sma"
	IndicatorEMA      = "ema"
	IndicatorMACD     = "macd"
	IndicatorRSI      = "rsi"
	IndicatorMomentum = "momentum"
)

// IndicatorSpec configures one weighted indicator. Weight is a scaling
// knob: weights need not sum to 1 and a negative weight inverts the
// indicator's contribution.
type IndicatorSpec struct {
	Name   string  `json:"name" yaml:"name"`
	Weight float64 `json:"weight" yaml:"weight"`
	Period int     `json:"period,omitempty" yaml:"period,omitempty"` // sma, ema, rsi, momentum
	Fast   int     `json:"fast,omitempty" yaml:"fast,omitempty"`     // macd
	Slow   int     `json:"slow,omitempty" yaml:"slow,omitempty"`     // macd
	Signal int     `json:"signal,omitempty" yaml:"signal,omitempty"` // macd
}

// TradingConfig is the sub-strategy used while one regime is active
type TradingConfig struct {
	Name           string          `json:"name" yaml:"name"`
	Indicators     []IndicatorSpec `json:"indicators" yaml:"indicators"`
	BuyThreshold   float64         `json:"buy_threshold" yaml:"buy_threshold"`
	SellThreshold  float64         `json:"sell_threshold" yaml:"sell_threshold"`
	MaxPositionPct float64         `json:"max_position_pct" yaml:"max_position_pct"` // Share of cash per entry (0-1]
	InitialCapital float64         `json:"initial_capital" yaml:"initial_capital"`
}

// ConfidenceParams shapes the trade confidence scalar
type ConfidenceParams struct {
	SignalWeight       float64 `json:"signal_weight" yaml:"signal_weight"`             // Weight of signal strength vs regime confidence (default: 0.5)
	DistanceScale      float64 `json:"distance_scale" yaml:"distance_scale"`           // Threshold distance reaching full strength (default: 0.5)
	VolatilityScale    float64 `json:"volatility_scale" yaml:"volatility_scale"`       // ATR/close at which confidence halves (default: 0.02)
	VolatilityLookback int     `json:"volatility_lookback" yaml:"volatility_lookback"` // Candles averaged (default: 14)
}

// KellyParams configures Kelly-criterion sizing
type KellyParams struct {
	Enabled              bool    `json:"enabled" yaml:"enabled"`
	LookbackPeriod       int     `json:"lookback_period" yaml:"lookback_period"`             // Realized trades considered (default: 20)
	MinTrades            int     `json:"min_trades" yaml:"min_trades"`                       // Below this the base % is used (default: 10)
	FractionalMultiplier float64 `json:"fractional_multiplier" yaml:"fractional_multiplier"` // Safety multiplier (default: 0.25)
}

// StopLossParams configures ATR stops
type StopLossParams struct {
	Enabled       bool    `json:"enabled" yaml:"enabled"`
	ATRPeriod     int     `json:"atr_period" yaml:"atr_period"`         // default: 14
	ATRMode       string  `json:"atr_mode" yaml:"atr_mode"`             // simple, ema or wilder (default: wilder)
	ATRMultiplier float64 `json:"atr_multiplier" yaml:"atr_multiplier"` // default: 2.0
	Trailing      bool    `json:"trailing" yaml:"trailing"`
}

// DrawdownParams configures the drawdown guard and entry circuit breaker
type DrawdownParams struct {
	WarnThreshold          float64 `json:"warn_threshold" yaml:"warn_threshold"`                     // Drawdown reducing size (default: 0.10)
	WarnSizeMultiplier     float64 `json:"warn_size_multiplier" yaml:"warn_size_multiplier"`         // Size scalar past warn (default: 0.5)
	HardThreshold          float64 `json:"hard_threshold" yaml:"hard_threshold"`                     // Drawdown forcing liquidation (default: 0.20)
	CircuitBreakerLookback int     `json:"circuit_breaker_lookback" yaml:"circuit_breaker_lookback"` // Closed trades inspected (default: 10)
	CircuitBreakerWinRate  float64 `json:"circuit_breaker_win_rate" yaml:"circuit_breaker_win_rate"` // Minimum rolling win rate (default: 0.3)
	CooldownPeriods        int     `json:"cooldown_periods" yaml:"cooldown_periods"`                 // Candles entries stay paused (default: 24)
	SuccessThreshold       int     `json:"success_threshold" yaml:"success_threshold"`               // Winning exits closing a half-open breaker (default: 1)
}

// ExecutionParams configures the simulated fill model
type ExecutionParams struct {
	Commission       float64 `json:"commission" yaml:"commission"`                 // Fee rate per fill (default: 0)
	MinTradeValue    float64 `json:"min_trade_value" yaml:"min_trade_value"`       // Smallest buy in quote currency (default: 1)
	MaxOpenPositions int     `json:"max_open_positions" yaml:"max_open_positions"` // Concurrent entries (default: 5)
}

// CorrelationParams configures blending of an external cross-asset adjustment
type CorrelationParams struct {
	Weight      float64 `json:"weight" yaml:"weight"`             // Share of the blended signal (default: 0.3)
	RiskDamping float64 `json:"risk_damping" yaml:"risk_damping"` // Size reduction at full risk (default: 0.5)
}

// StrategyConfig is the complete, immutable configuration of one run
type StrategyConfig struct {
	Bullish *TradingConfig `json:"bullish" yaml:"bullish"`
	Bearish *TradingConfig `json:"bearish" yaml:"bearish"`

	RegimeConfidenceThreshold     float64 `json:"regime_confidence_threshold" yaml:"regime_confidence_threshold"`         // default: 0.5
	MomentumConfirmationThreshold float64 `json:"momentum_confirmation_threshold" yaml:"momentum_confirmation_threshold"` // default: 0.2
	MomentumPeriod                int     `json:"momentum_period" yaml:"momentum_period"`                                 // default: 10
	MomentumDampening             float64 `json:"momentum_dampening" yaml:"momentum_dampening"`                           // Signal scalar when unconfirmed (default: 0.5)
	RegimePersistencePeriods      int     `json:"regime_persistence_periods" yaml:"regime_persistence_periods"`           // default: 3
	RegimeHistorySize             int     `json:"regime_history_size" yaml:"regime_history_size"`                         // default: 10
	WhipsawDetectionPeriods       int     `json:"whipsaw_detection_periods" yaml:"whipsaw_detection_periods"`             // default: 10
	WhipsawMaxChanges             int     `json:"whipsaw_max_changes" yaml:"whipsaw_max_changes"`                         // default: 3

	Regime      RegimeParams      `json:"regime" yaml:"regime"`
	Confidence  ConfidenceParams  `json:"confidence" yaml:"confidence"`
	Kelly       KellyParams       `json:"kelly" yaml:"kelly"`
	StopLoss    StopLossParams    `json:"stop_loss" yaml:"stop_loss"`
	Drawdown    DrawdownParams    `json:"drawdown" yaml:"drawdown"`
	Execution   ExecutionParams   `json:"execution" yaml:"execution"`
	Correlation CorrelationParams `json:"correlation" yaml:"correlation"`

	WarmupPeriods       int     `json:"warmup_periods" yaml:"warmup_periods"`             // default: 50
	AnnualizationFactor float64 `json:"annualization_factor" yaml:"annualization_factor"` // 0 infers it from candle spacing
	TimeoutSeconds      int     `json:"timeout_seconds" yaml:"timeout_seconds"`           // Whole-run budget (default: 300)
}

// DefaultBullishConfig returns the default trend-following sub-strategy
func DefaultBullishConfig() *TradingConfig {
	return &TradingConfig{
		Name: "bullish",
		Indicators: []IndicatorSpec{
			{Name: IndicatorEMA, Weight: 0.4, Period: 20},
			{Name: IndicatorMACD, Weight: 0.3, Fast: 12, Slow: 26, Signal: 9},
			{Name: IndicatorRSI, Weight: 0.3, Period: 14},
		},
		BuyThreshold:   0.25,
		SellThreshold:  -0.35,
		MaxPositionPct: 0.5,
		InitialCapital: 10000,
	}
}

// DefaultBearishConfig returns the default defensive sub-strategy
func DefaultBearishConfig() *TradingConfig {
	return &TradingConfig{
		Name: "bearish",
		Indicators: []IndicatorSpec{
			{Name: IndicatorSMA, Weight: 0.5, Period: 20},
			{Name: IndicatorMomentum, Weight: 0.5, Period: 10},
		},
		BuyThreshold:   0.6,
		SellThreshold:  -0.15,
		MaxPositionPct: 0.2,
		InitialCapital: 10000,
	}
}

// DefaultStrategyConfig returns a complete configuration with default values
func DefaultStrategyConfig() *StrategyConfig {
	return &StrategyConfig{
		Bullish:                       DefaultBullishConfig(),
		Bearish:                       DefaultBearishConfig(),
		RegimeConfidenceThreshold:     0.5,
		MomentumConfirmationThreshold: 0.2,
		MomentumPeriod:                10,
		MomentumDampening:             0.5,
		RegimePersistencePeriods:      3,
		RegimeHistorySize:             10,
		WhipsawDetectionPeriods:       10,
		WhipsawMaxChanges:             3,
		Regime:                        DefaultRegimeParams(),
		Confidence: ConfidenceParams{
			SignalWeight:       0.5,
			DistanceScale:      0.5,
			VolatilityScale:    0.02,
			VolatilityLookback: 14,
		},
		Kelly: KellyParams{
			Enabled:              true,
			LookbackPeriod:       20,
			MinTrades:            10,
			FractionalMultiplier: 0.25,
		},
		StopLoss: StopLossParams{
			Enabled:       true,
			ATRPeriod:     14,
			ATRMode:       "wilder",
			ATRMultiplier: 2.0,
			Trailing:      true,
		},
		Drawdown: DrawdownParams{
			WarnThreshold:          0.10,
			WarnSizeMultiplier:     0.5,
			HardThreshold:          0.20,
			CircuitBreakerLookback: 10,
			CircuitBreakerWinRate:  0.3,
			CooldownPeriods:        24,
			SuccessThreshold:       1,
		},
		Execution: ExecutionParams{
			Commission:       0,
			MinTradeValue:    1,
			MaxOpenPositions: 5,
		},
		Correlation: CorrelationParams{
			Weight:      0.3,
			RiskDamping: 0.5,
		},
		WarmupPeriods:  50,
		TimeoutSeconds: 300,
	}
}

// Clone returns a deep copy so callers can mutate a config without touching
// one that a run may be holding
func (c *StrategyConfig) Clone() *StrategyConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.Bullish = c.Bullish.Clone()
	out.Bearish = c.Bearish.Clone()
	return &out
}

// Clone returns a deep copy of the sub-strategy
func (t *TradingConfig) Clone() *TradingConfig {
	if t == nil {
		return nil
	}
	out := *t
	out.Indicators = append([]IndicatorSpec(nil), t.Indicators...)
	return &out
}

// RequiredPeriods returns the longest look-back any indicator of the
// sub-strategy needs
func (t *TradingConfig) RequiredPeriods() int {
	longest := 0
	for _, ind := range t.Indicators {
		n := ind.Period
		if ind.Name == IndicatorMACD {
			n = ind.Slow + ind.Signal - 1
		}
		if n > longest {
			longest = n
		}
	}
	return longest
}
