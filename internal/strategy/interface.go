package strategy

import (
	"fmt"

	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// Generator produces the signal for one candle. The backtest engine only
// depends on this interface.
type Generator interface {
	Generate(series *types.Series, cfg *config.StrategyConfig, index int, state *State, adj *types.CorrelationAdjustment) (*Signal, error)
}

// TradeAction represents the type of trading action
type TradeAction int

const (
	ActionHold TradeAction = iota
	ActionBuy
	ActionSell
)

func (ta TradeAction) String() string {
	switch ta {
	case ActionHold:
		return "hold"
	case ActionBuy:
		return "buy"
	case ActionSell:
		return "sell"
	default:
		return "unknown"
	}
}

// MarshalText encodes the action by name
func (ta TradeAction) MarshalText() ([]byte, error) {
	return []byte(ta.String()), nil
}

// UnmarshalText decodes an action name
func (ta *TradeAction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "hold":
		*ta = ActionHold
	case "buy":
		*ta = ActionBuy
	case "sell":
		*ta = ActionSell
	default:
		return fmt.Errorf("unknown action %q", text)
	}
	return nil
}

// SubStrategy tags which TradingConfig is active
type SubStrategy int

const (
	SubStrategyBearish SubStrategy = iota
	SubStrategyBullish
)

func (s SubStrategy) String() string {
	if s == SubStrategyBullish {
		return "bullish"
	}
	return "bearish"
}

// MarshalText encodes the sub-strategy by name
func (s SubStrategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ActiveStrategy is the sub-strategy chosen for a candle: always exactly
// one of Bullish or Bearish with its configuration
type ActiveStrategy struct {
	Kind   SubStrategy           `json:"kind"`
	Config *config.TradingConfig `json:"-"`
}

// Bullish wraps the bullish sub-strategy
func Bullish(cfg *config.TradingConfig) ActiveStrategy {
	return ActiveStrategy{Kind: SubStrategyBullish, Config: cfg}
}

// Bearish wraps the bearish sub-strategy
func Bearish(cfg *config.TradingConfig) ActiveStrategy {
	return ActiveStrategy{Kind: SubStrategyBearish, Config: cfg}
}

// IndicatorContribution records one weighted indicator term of a signal
type IndicatorContribution struct {
	Name         string  `json:"name"`
	Normalized   float64 `json:"normalized"` // [-1, 1]
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
	Available    bool    `json:"available"`
}

// Signal is the combined strategy output for one candle
type Signal struct {
	Regime                 regime.RegimeSignal     `json:"regime"`
	PersistedRegime        regime.RegimeType       `json:"persisted_regime"`
	Signal                 float64                 `json:"signal"`
	RawSignal              float64                 `json:"raw_signal"` // before blending and dampening
	Action                 TradeAction             `json:"action"`
	ActiveStrategy         ActiveStrategy          `json:"active_strategy"`
	PositionSizeMultiplier float64                 `json:"position_size_multiplier"` // [0, 1]
	Dampened               bool                    `json:"dampened"`
	WhipsawHold            bool                    `json:"whipsaw_hold"`
	Components             []IndicatorContribution `json:"components"`
}

// NeutralSignal is the no-trade record substituted when a candle fails
func NeutralSignal() *Signal {
	return &Signal{
		Regime:          regime.NeutralSignal,
		PersistedRegime: regime.RegimeNeutral,
		Action:          ActionHold,
		ActiveStrategy:  ActiveStrategy{Kind: SubStrategyBearish},
	}
}
