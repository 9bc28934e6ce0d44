package optimization

import (
	"math"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
)

// Individual is one candidate configuration and, once evaluated, its score
type Individual struct {
	Config    *config.StrategyConfig
	Fitness   float64
	Result    *backtest.BacktestResult
	Err       error // why the candidate could not be simulated
	Evaluated bool
}

// NewIndividual wraps a config that has not been evaluated yet
func NewIndividual(cfg *config.StrategyConfig) *Individual {
	return &Individual{Config: cfg}
}

// Copy returns a deep copy of the config with the evaluation carried over.
// Results are immutable once produced, so the pointer is shared.
func (i *Individual) Copy() *Individual {
	return &Individual{
		Config:    i.Config.Clone(),
		Fitness:   i.Fitness,
		Result:    i.Result,
		Err:       i.Err,
		Evaluated: i.Evaluated,
	}
}

// Valid reports whether the individual was simulated successfully
func (i *Individual) Valid() bool {
	return i.Evaluated && i.Err == nil && !math.IsInf(i.Fitness, -1)
}

func (i *Individual) reset() {
	i.Fitness = 0
	i.Result = nil
	i.Err = nil
	i.Evaluated = false
}
