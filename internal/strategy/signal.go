package strategy

import (
	"fmt"
	"math"

	simerrors "github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/internal/indicators"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// Normalization scales mapping raw indicator output to [-1, 1]
const (
	MADistanceScale = 0.05 // (close-ma)/ma
	MACDScale       = 0.01 // macd line / close
	MomentumScale   = 0.05 // rate of change
)

// SignalGenerator fuses regime, persisted-regime history and weighted
// indicators into one signal per candle
type SignalGenerator struct{}

// NewSignalGenerator creates a signal generator
func NewSignalGenerator() *SignalGenerator {
	return &SignalGenerator{}
}

// Generate computes the signal at index. It reads candles up to index and
// mutates only state.History.
func (g *SignalGenerator) Generate(series *types.Series, cfg *config.StrategyConfig, index int, state *State, adj *types.CorrelationAdjustment) (*Signal, error) {
	if index < 0 || index >= series.Len() {
		return nil, simerrors.NewDataError("strategy", "generate", "index out of range").
			WithContext("index", index)
	}

	regimeSig, err := state.Detector.Detect(series, index)
	if err != nil {
		return nil, err
	}

	persisted, _ := state.History.Update(regimeSig.Regime)

	active := Bearish(cfg.Bearish)
	if persisted == regime.RegimeBullish && regimeSig.Confidence >= cfg.RegimeConfidenceThreshold {
		active = Bullish(cfg.Bullish)
	}

	components, raw, err := g.combine(series, index, active.Config, state.Indicators)
	if err != nil {
		return nil, simerrors.NewComputationError("strategy", "combine", err).WithContext("index", index)
	}

	sig := &Signal{
		Regime:          regimeSig,
		PersistedRegime: persisted,
		RawSignal:       raw,
		Signal:          raw,
		ActiveStrategy:  active,
		Components:      components,
	}

	sizeFactor := 1.0
	if adj != nil {
		w := cfg.Correlation.Weight
		sig.Signal = sig.Signal*(1-w) + regime.Clamp(adj.Signal)*w
		sizeFactor *= 1 - regime.Clamp01(adj.RiskLevel)*cfg.Correlation.RiskDamping
	}

	momentum, err := g.momentumStrength(series, index, cfg.MomentumPeriod, state.Indicators)
	if err != nil {
		return nil, simerrors.NewComputationError("strategy", "momentum", err).WithContext("index", index)
	}
	if regimeSig.Confidence < cfg.MomentumConfirmationThreshold || momentum < cfg.MomentumConfirmationThreshold {
		sig.Dampened = true
		sig.Signal *= cfg.MomentumDampening
		sizeFactor *= cfg.MomentumDampening
	}

	switch {
	case state.History.RecentChanges() > cfg.WhipsawMaxChanges:
		sig.WhipsawHold = true
		sig.Action = ActionHold
	case sig.Signal >= active.Config.BuyThreshold:
		sig.Action = ActionBuy
	case sig.Signal <= active.Config.SellThreshold:
		sig.Action = ActionSell
	default:
		sig.Action = ActionHold
	}

	sig.PositionSizeMultiplier = regime.Clamp01(regimeSig.Confidence * sizeFactor)
	return sig, nil
}

// combine returns the weighted sum of normalized indicator values
func (g *SignalGenerator) combine(series *types.Series, index int, tc *config.TradingConfig, cache *indicators.Cache) ([]IndicatorContribution, float64, error) {
	components := make([]IndicatorContribution, 0, len(tc.Indicators))
	total := 0.0
	for _, spec := range tc.Indicators {
		value, ok, err := normalized(series, index, spec, cache)
		if err != nil {
			return nil, 0, err
		}
		c := IndicatorContribution{Name: spec.Name, Weight: spec.Weight, Available: ok}
		if ok {
			c.Normalized = value
			c.Contribution = value * spec.Weight
			total += c.Contribution
		}
		components = append(components, c)
	}
	return components, total, nil
}

func normalized(series *types.Series, index int, spec config.IndicatorSpec, cache *indicators.Cache) (float64, bool, error) {
	close := series.Candles[index].Close

	switch spec.Name {
	case config.IndicatorSMA, config.IndicatorEMA:
		var (
			ma  indicators.Series
			err error
		)
		if spec.Name == config.IndicatorSMA {
			ma, err = cache.SMA(series, spec.Period)
		} else {
			ma, err = cache.EMA(series, spec.Period)
		}
		if err != nil {
			return 0, false, err
		}
		v, ok := ma.At(index)
		if !ok || v == 0 {
			return 0, false, nil
		}
		return regime.Clamp((close - v) / v / MADistanceScale), true, nil

	case config.IndicatorMACD:
		res, err := cache.MACD(series, spec.Fast, spec.Slow, spec.Signal)
		if err != nil {
			return 0, false, err
		}
		v, ok := res.Line.At(index)
		if !ok || close == 0 {
			return 0, false, nil
		}
		return regime.Clamp(v / close / MACDScale), true, nil

	case config.IndicatorRSI:
		rsi, err := cache.RSI(series, spec.Period)
		if err != nil {
			return 0, false, err
		}
		v, ok := rsi.At(index)
		if !ok {
			return 0, false, nil
		}
		return (v - 50) / 50, true, nil

	case config.IndicatorMomentum:
		roc, err := cache.ROC(series, spec.Period)
		if err != nil {
			return 0, false, err
		}
		v, ok := roc.At(index)
		if !ok {
			return 0, false, nil
		}
		return regime.Clamp(v / MomentumScale), true, nil

	default:
		return 0, false, fmt.Errorf("unknown indicator %q", spec.Name)
	}
}

// momentumStrength returns |normalized rate of change| in [0, 1]; 0 while
// the indicator is warming up
func (g *SignalGenerator) momentumStrength(series *types.Series, index, period int, cache *indicators.Cache) (float64, error) {
	roc, err := cache.ROC(series, period)
	if err != nil {
		return 0, err
	}
	v, ok := roc.At(index)
	if !ok {
		return 0, nil
	}
	return math.Abs(regime.Clamp(v / MomentumScale)), nil
}
