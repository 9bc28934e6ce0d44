package optimization

import (
	"math/rand"

	"github.com/ducminhle1904/regime-backtester/pkg/config"
)

// gene is one tunable knob of a StrategyConfig
type gene struct {
	name      string
	randomize func(cfg *config.StrategyConfig, r *OptimizationRanges, rng *rand.Rand)
	inherit   func(dst, src *config.StrategyConfig)
}

// genes is iterated in a fixed order so a seed reproduces the same search
var genes = []gene{
	{
		name: "bullish_buy_threshold",
		randomize: func(c *config.StrategyConfig, r *OptimizationRanges, rng *rand.Rand) {
			c.Bullish.BuyThreshold = randomChoice(r.BullishBuyThresholds, rng, c.Bullish.BuyThreshold)
		},
		inherit: func(dst, src *config.StrategyConfig) { dst.Bullish.BuyThreshold = src.Bullish.BuyThreshold },
	},
	{
		name: "bullish_sell_threshold",
		randomize: func(c *config.StrategyConfig, r *OptimizationRanges, rng *rand.Rand) {
			c.Bullish.SellThreshold = randomChoice(r.BullishSellThresholds, rng, c.Bullish.SellThreshold)
		},
		inherit: func(dst, src *config.StrategyConfig) { dst.Bullish.SellThreshold = src.Bullish.SellThreshold },
	},
	{
		name: "bearish_buy_threshold",
		randomize: func(c *config.StrategyConfig, r *OptimizationRanges, rng *rand.Rand) {
			c.Bearish.BuyThreshold = randomChoice(r.BearishBuyThresholds, rng, c.Bearish.BuyThreshold)
		},
		inherit: func(dst, src *config.StrategyConfig) { dst.Bearish.BuyThreshold = src.Bearish.BuyThreshold },
	},
	{
		name: "bearish_sell_threshold",
		randomize: func(c *config.StrategyConfig, r *OptimizationRanges, rng *rand.Rand) {
			c.Bearish.SellThreshold = randomChoice(r.BearishSellThresholds, rng, c.Bearish.SellThreshold)
		},
		inherit: func(dst, src *config.StrategyConfig) { dst.Bearish.SellThreshold = src.Bearish.SellThreshold },
	},
	{
		name: "bullish_position_pct",
		randomize: func(c *config.StrategyConfig, r *OptimizationRanges, rng *rand.Rand) {
			c.Bullish.MaxPositionPct = randomChoice(r.BullishPositionPcts, rng, c.Bullish.MaxPositionPct)
		},
		inherit: func(dst, src *config.StrategyConfig) { dst.Bullish.MaxPositionPct = src.Bullish.MaxPositionPct },
	},
	{
		name: "bearish_position_pct",
		randomize: func(c *config.StrategyConfig, r *OptimizationRanges, rng *rand.Rand) {
			c.Bearish.MaxPositionPct = randomChoice(r.BearishPositionPcts, rng, c.Bearish.MaxPositionPct)
		},
		inherit: func(dst, src *config.StrategyConfig) { dst.Bearish.MaxPositionPct = src.Bearish.MaxPositionPct },
	},
	periodGene(config.IndicatorSMA, func(r *OptimizationRanges) []int { return r.SMAPeriods }),
	periodGene(config.IndicatorEMA, func(r *OptimizationRanges) []int { return r.EMAPeriods }),
	periodGene(config.IndicatorRSI, func(r *OptimizationRanges) []int { return r.RSIPeriods }),
	periodGene(config.IndicatorMomentum, func(r *OptimizationRanges) []int { return r.MomentumPeriods }),
	{
		name: "macd",
		randomize: func(c *config.StrategyConfig, r *OptimizationRanges, rng *rand.Rand) {
			fast := randomChoice(r.MACDFast, rng, 0)
			slow := randomChoice(r.MACDSlow, rng, 0)
			signal := randomChoice(r.MACDSignal, rng, 0)
			forEachIndicator(c, config.IndicatorMACD, func(spec *config.IndicatorSpec) {
				if fast > 0 && slow > fast {
					spec.Fast, spec.Slow = fast, slow
				}
				if signal > 0 {
					spec.Signal = signal
				}
			})
		},
		inherit: func(dst, src *config.StrategyConfig) {
			inheritIndicators(dst, src, config.IndicatorMACD, func(d *config.IndicatorSpec, s config.IndicatorSpec) {
				d.Fast, d.Slow, d.Signal = s.Fast, s.Slow, s.Signal
			})
		},
	},
	{
		name: "regime_confidence_threshold",
		randomize: func(c *config.StrategyConfig, r *OptimizationRanges, rng *rand.Rand) {
			c.RegimeConfidenceThreshold = randomChoice(r.RegimeConfidenceThresholds, rng, c.RegimeConfidenceThreshold)
		},
		inherit: func(dst, src *config.StrategyConfig) { dst.RegimeConfidenceThreshold = src.RegimeConfidenceThreshold },
	},
	{
		name: "atr_multiplier",
		randomize: func(c *config.StrategyConfig, r *OptimizationRanges, rng *rand.Rand) {
			c.StopLoss.ATRMultiplier = randomChoice(r.ATRMultipliers, rng, c.StopLoss.ATRMultiplier)
		},
		inherit: func(dst, src *config.StrategyConfig) { dst.StopLoss.ATRMultiplier = src.StopLoss.ATRMultiplier },
	},
	{
		name: "kelly_fraction",
		randomize: func(c *config.StrategyConfig, r *OptimizationRanges, rng *rand.Rand) {
			c.Kelly.FractionalMultiplier = randomChoice(r.KellyFractions, rng, c.Kelly.FractionalMultiplier)
		},
		inherit: func(dst, src *config.StrategyConfig) { dst.Kelly.FractionalMultiplier = src.Kelly.FractionalMultiplier },
	},
	{
		name: "drawdown",
		randomize: func(c *config.StrategyConfig, r *OptimizationRanges, rng *rand.Rand) {
			warn := randomChoice(r.WarnThresholds, rng, c.Drawdown.WarnThreshold)
			hard := randomChoice(r.HardThresholds, rng, c.Drawdown.HardThreshold)
			if warn <= hard {
				c.Drawdown.WarnThreshold, c.Drawdown.HardThreshold = warn, hard
			}
		},
		inherit: func(dst, src *config.StrategyConfig) {
			dst.Drawdown.WarnThreshold = src.Drawdown.WarnThreshold
			dst.Drawdown.HardThreshold = src.Drawdown.HardThreshold
		},
	},
}

func periodGene(name string, values func(*OptimizationRanges) []int) gene {
	return gene{
		name: name + "_period",
		randomize: func(c *config.StrategyConfig, r *OptimizationRanges, rng *rand.Rand) {
			period := randomChoice(values(r), rng, 0)
			if period <= 0 {
				return
			}
			forEachIndicator(c, name, func(spec *config.IndicatorSpec) { spec.Period = period })
		},
		inherit: func(dst, src *config.StrategyConfig) {
			inheritIndicators(dst, src, name, func(d *config.IndicatorSpec, s config.IndicatorSpec) { d.Period = s.Period })
		},
	}
}

func forEachIndicator(c *config.StrategyConfig, name string, fn func(*config.IndicatorSpec)) {
	for _, tc := range []*config.TradingConfig{c.Bullish, c.Bearish} {
		for i := range tc.Indicators {
			if tc.Indicators[i].Name == name {
				fn(&tc.Indicators[i])
			}
		}
	}
}

// inheritIndicators copies parameters position by position. Individuals
// descend from one base config so their indicator lists line up.
func inheritIndicators(dst, src *config.StrategyConfig, name string, fn func(*config.IndicatorSpec, config.IndicatorSpec)) {
	pairs := [][2]*config.TradingConfig{{dst.Bullish, src.Bullish}, {dst.Bearish, src.Bearish}}
	for _, pair := range pairs {
		d, s := pair[0], pair[1]
		for i := range d.Indicators {
			if i < len(s.Indicators) && d.Indicators[i].Name == name && s.Indicators[i].Name == name {
				fn(&d.Indicators[i], s.Indicators[i])
			}
		}
	}
}

// GeneticOperator implements selection, crossover and mutation over
// StrategyConfig genes
type GeneticOperator struct {
	ranges *OptimizationRanges
}

// NewGeneticOperator creates an operator drawing from ranges
func NewGeneticOperator(ranges *OptimizationRanges) *GeneticOperator {
	if ranges == nil {
		ranges = GetDefaultOptimizationRanges()
	}
	return &GeneticOperator{ranges: ranges}
}

// Randomize draws every gene of cfg from the ranges
func (op *GeneticOperator) Randomize(cfg *config.StrategyConfig, rng *rand.Rand) {
	for _, g := range genes {
		g.randomize(cfg, op.ranges, rng)
	}
}

// Crossover creates a child starting from parent1. With probability rate
// each gene is then taken from either parent with equal odds.
func (op *GeneticOperator) Crossover(parent1, parent2 *Individual, rate float64, rng *rand.Rand) *Individual {
	child := NewIndividual(parent1.Config.Clone())
	if rng.Float64() < rate {
		for _, g := range genes {
			if rng.Float64() < 0.5 {
				g.inherit(child.Config, parent2.Config)
			}
		}
	}
	return child
}

// Mutate redraws one random gene with probability rate
func (op *GeneticOperator) Mutate(ind *Individual, rate float64, rng *rand.Rand) {
	if rng.Float64() < rate {
		genes[rng.Intn(len(genes))].randomize(ind.Config, op.ranges, rng)
		ind.reset()
	}
}

// Select chooses an individual using tournament selection
func (op *GeneticOperator) Select(pop *Population, tournamentSize int, rng *rand.Rand) *Individual {
	individuals := pop.Individuals()
	if len(individuals) == 0 {
		return nil
	}

	best := individuals[rng.Intn(len(individuals))]
	for i := 1; i < tournamentSize; i++ {
		candidate := individuals[rng.Intn(len(individuals))]
		if candidate.Fitness > best.Fitness {
			best = candidate
		}
	}
	return best
}

// randomChoice selects a random element, or fallback when there is nothing
// to choose from. The rng is only advanced for non-empty choices.
func randomChoice[T any](choices []T, rng *rand.Rand, fallback T) T {
	if len(choices) == 0 {
		return fallback
	}
	return choices[rng.Intn(len(choices))]
}
