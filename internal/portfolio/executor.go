package portfolio

import (
	"fmt"
	"math"

	simerrors "github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/internal/risk"
	"github.com/ducminhle1904/regime-backtester/internal/strategy"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
)

// ExecContext carries the per-candle inputs the executor needs besides
// the signal itself
type ExecContext struct {
	Index          int
	Timestamp      int64
	PositionPct    float64 // min(base, Kelly) or base on fallback
	SizeMultiplier float64 // drawdown guard scalar
	EntriesPaused  bool
	ATR            float64 // NaN when not yet available
}

// Executor turns signals into simulated fills and owns the open position book
type Executor struct {
	exec  config.ExecutionParams
	stops config.StopLossParams

	book     *Book
	tradeSeq int
	posSeq   int
}

// NewExecutor creates an executor for one run
func NewExecutor(cfg *config.StrategyConfig) *Executor {
	return &Executor{
		exec:  cfg.Execution,
		stops: cfg.StopLoss,
		book:  NewBook(),
	}
}

// Book exposes the open positions
func (e *Executor) Book() *Book {
	return e.book
}

// Execute applies signal at price. It returns nil when nothing was filled.
func (e *Executor) Execute(sig *strategy.Signal, confidence, price float64, p *Portfolio, ec ExecContext) (*Trade, error) {
	if sig == nil {
		return nil, simerrors.NewComputationError("executor", "execute", fmt.Errorf("nil signal"))
	}
	if !validPrice(price) {
		return nil, simerrors.NewComputationError("executor", "execute", fmt.Errorf("invalid price %v at index %d", price, ec.Index))
	}

	var trade *Trade
	switch sig.Action {
	case strategy.ActionBuy:
		trade = e.buy(sig, confidence, price, p, ec)
	case strategy.ActionSell:
		if e.book.Len() > 0 {
			trade = e.close(e.book.Positions(), sig.Signal, confidence, price, p, ec, risk.ExitSignal)
		}
	}
	p.MarkToMarket(price)
	return trade, nil
}

func (e *Executor) buy(sig *strategy.Signal, confidence, price float64, p *Portfolio, ec ExecContext) *Trade {
	if ec.EntriesPaused {
		return nil
	}
	if e.exec.MaxOpenPositions > 0 && e.book.Len() >= e.exec.MaxOpenPositions {
		return nil
	}

	spend := p.Cash * ec.PositionPct * confidence * sig.PositionSizeMultiplier * ec.SizeMultiplier
	if math.IsNaN(spend) || spend <= 0 || spend < e.exec.MinTradeValue || spend > p.Cash {
		return nil
	}

	fee := spend * e.exec.Commission
	amount := (spend - fee) / price

	e.tradeSeq++
	e.posSeq++
	trade := &Trade{
		ID:          tradeID(e.tradeSeq),
		Type:        TradeBuy,
		Index:       ec.Index,
		Timestamp:   ec.Timestamp,
		Price:       price,
		AssetAmount: amount,
		CashAmount:  spend,
		Fee:         fee,
		Signal:      sig.Signal,
		Confidence:  confidence,
	}

	op := &OpenPosition{
		ID:          fmt.Sprintf("P%06d", e.posSeq),
		BuyTradeID:  trade.ID,
		EntryIndex:  ec.Index,
		EntryPrice:  price,
		AssetAmount: amount,
		CostBasis:   spend,
	}
	if e.stops.Enabled && !math.IsNaN(ec.ATR) && ec.ATR > 0 {
		stop := risk.NewStopLevel(price, ec.ATR, e.stops.ATRMultiplier)
		op.Stop = &stop
	}
	e.book.Open(op)

	p.Cash -= spend
	p.Asset += amount
	p.TradeCount++
	return trade
}

// CheckStops trails every stop with the current price and ATR, then closes
// the positions whose stop is above price in entry order. Consecutive
// positions with the same exit reason close as one trade.
func (e *Executor) CheckStops(price float64, p *Portfolio, ec ExecContext) []*Trade {
	if !e.stops.Enabled || e.book.Len() == 0 || !validPrice(price) {
		return nil
	}

	var hit []*OpenPosition
	var reasons []risk.ExitReason
	for _, op := range e.book.Positions() {
		if op.Stop == nil {
			continue
		}
		op.Stop.Update(price, ec.ATR, e.stops.ATRMultiplier, e.stops.Trailing)
		if triggered, reason := op.Stop.Triggered(price); triggered {
			hit = append(hit, op)
			reasons = append(reasons, reason)
		}
	}

	var trades []*Trade
	for start := 0; start < len(hit); {
		end := start + 1
		for end < len(hit) && reasons[end] == reasons[start] {
			end++
		}
		trades = append(trades, e.close(hit[start:end], 0, 0, price, p, ec, reasons[start]))
		start = end
	}

	p.MarkToMarket(price)
	return trades
}

// ClosePositions force-closes every open position at price with reason
func (e *Executor) ClosePositions(price float64, p *Portfolio, ec ExecContext, reason risk.ExitReason) *Trade {
	if e.book.Len() == 0 || !validPrice(price) {
		return nil
	}
	trade := e.close(e.book.Positions(), 0, 0, price, p, ec, reason)
	p.MarkToMarket(price)
	return trade
}

// close sells positions oldest first as a single trade
func (e *Executor) close(positions []*OpenPosition, signal, confidence, price float64, p *Portfolio, ec ExecContext, reason risk.ExitReason) *Trade {
	closing := make([]*OpenPosition, len(positions))
	copy(closing, positions)

	var amount, basis float64
	ids := make([]string, 0, len(closing))
	for _, op := range closing {
		amount += op.AssetAmount
		basis += op.CostBasis
		ids = append(ids, op.ID)
	}

	gross := amount * price
	fee := gross * e.exec.Commission
	proceeds := gross - fee

	e.tradeSeq++
	trade := &Trade{
		ID:              tradeID(e.tradeSeq),
		Type:            TradeSell,
		Index:           ec.Index,
		Timestamp:       ec.Timestamp,
		Price:           price,
		AssetAmount:     amount,
		CashAmount:      proceeds,
		Fee:             fee,
		Signal:          signal,
		Confidence:      confidence,
		PnL:             proceeds - basis,
		Reason:          reason,
		ClosedPositions: ids,
	}

	e.book.Remove(closing)
	p.Cash += proceeds
	p.Asset -= amount
	if e.book.Len() == 0 {
		p.Asset = 0
	}
	p.TradeCount++
	p.SellCount++
	if trade.PnL > 0 {
		p.WinCount++
	}
	return trade
}

func tradeID(seq int) string {
	return fmt.Sprintf("T%06d", seq)
}

func validPrice(price float64) bool {
	return price > 0 && !math.IsNaN(price) && !math.IsInf(price, 0)
}
