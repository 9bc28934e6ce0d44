package risk

// ExitReason tags why a position was closed
type ExitReason string

const (
	ExitSignal              ExitReason = "signal"
	ExitStopLoss            ExitReason = "stop-loss"
	ExitTrailingStop        ExitReason = "trailing-stop"
	ExitDrawdownLiquidation ExitReason = "drawdown-liquidation"
)

// Assessment is the overseer's per-candle verdict
type Assessment struct {
	Peak           float64 `json:"peak"`
	Drawdown       float64 `json:"drawdown"`        // (peak - value) / peak
	SizeMultiplier float64 `json:"size_multiplier"` // 1, or the warn multiplier past the warn threshold
	Liquidate      bool    `json:"liquidate"`       // hard threshold breached
	EntriesPaused  bool    `json:"entries_paused"`  // entry circuit breaker open
}
