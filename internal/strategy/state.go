package strategy

import (
	"github.com/ducminhle1904/regime-backtester/internal/indicators"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
)

// State is the per-run strategy state. The regime history is the only
// part mutated by Generate.
type State struct {
	Detector   *regime.Detector
	Indicators *indicators.Cache
	History    *RegimeHistory
}

// NewState builds fresh strategy state for one run
func NewState(cfg *config.StrategyConfig, cache *indicators.Cache) *State {
	return &State{
		Detector:   regime.NewDetector(cfg.Regime, cache),
		Indicators: cache,
		History:    NewRegimeHistory(cfg.RegimeHistorySize, cfg.RegimePersistencePeriods, cfg.WhipsawDetectionPeriods),
	}
}
