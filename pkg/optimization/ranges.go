package optimization

// DefaultOptimizationRanges provides the default parameter ranges for optimization.
// Every combination passes StrategyConfig validation: buy thresholds are
// positive, sell thresholds negative, MACD fast stays below slow and the
// drawdown warn level below the hard level.
var DefaultOptimizationRanges = OptimizationRanges{
	BullishBuyThresholds:  []float64{0.1, 0.15, 0.2, 0.25, 0.3, 0.35, 0.4, 0.5},
	BullishSellThresholds: []float64{-0.1, -0.2, -0.25, -0.3, -0.35, -0.4, -0.5},
	BearishBuyThresholds:  []float64{0.4, 0.5, 0.6, 0.7, 0.8},
	BearishSellThresholds: []float64{-0.05, -0.1, -0.15, -0.2, -0.3},
	BullishPositionPcts:   []float64{0.2, 0.3, 0.4, 0.5, 0.6, 0.8},
	BearishPositionPcts:   []float64{0.05, 0.1, 0.15, 0.2, 0.3},

	SMAPeriods:      []int{10, 14, 20, 30, 40, 50},
	EMAPeriods:      []int{10, 15, 20, 25, 30, 40, 50},
	RSIPeriods:      []int{7, 10, 12, 14, 16, 20},
	MomentumPeriods: []int{5, 8, 10, 14, 20},
	MACDFast:        []int{6, 8, 10, 12},
	MACDSlow:        []int{20, 24, 26, 30, 35},
	MACDSignal:      []int{5, 7, 9, 12},

	RegimeConfidenceThresholds: []float64{0.3, 0.4, 0.5, 0.6, 0.7},
	ATRMultipliers:             []float64{1.0, 1.5, 2.0, 2.5, 3.0, 4.0},
	KellyFractions:             []float64{0.1, 0.25, 0.4, 0.5},
	WarnThresholds:             []float64{0.05, 0.08, 0.1, 0.12},
	HardThresholds:             []float64{0.15, 0.2, 0.25, 0.3},
}

// GetDefaultOptimizationRanges returns a copy of the default optimization ranges
func GetDefaultOptimizationRanges() *OptimizationRanges {
	r := DefaultOptimizationRanges
	return &r
}

// GetDefaultOptimizationConfig returns the default optimization configuration
func GetDefaultOptimizationConfig() OptimizationConfig {
	return OptimizationConfig{
		PopulationSize: 24,
		Generations:    15,
		MutationRate:   0.2,
		CrossoverRate:  0.85,
		EliteSize:      4,
		TournamentSize: 2,
		MaxWorkers:     6,
		Seed:           42,
	}
}
