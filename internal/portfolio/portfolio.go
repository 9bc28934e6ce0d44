package portfolio

import (
	"fmt"
	"time"

	"github.com/ducminhle1904/regime-backtester/internal/risk"
)

// TradeType is the side of a simulated fill
type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
)

// Portfolio is the simulated account for one run
type Portfolio struct {
	Cash           float64 `json:"cash"`
	Asset          float64 `json:"asset"`
	TotalValue     float64 `json:"total_value"` // Cash + Asset x last price
	InitialCapital float64 `json:"initial_capital"`
	TradeCount     int     `json:"trade_count"`
	WinCount       int     `json:"win_count"`
	SellCount      int     `json:"sell_count"`
}

// NewPortfolio creates an all-cash portfolio
func NewPortfolio(initialCapital float64) *Portfolio {
	return &Portfolio{
		Cash:           initialCapital,
		TotalValue:     initialCapital,
		InitialCapital: initialCapital,
	}
}

// MarkToMarket revalues the portfolio at price and returns the total value
func (p *Portfolio) MarkToMarket(price float64) float64 {
	p.TotalValue = p.Cash + p.Asset*price
	return p.TotalValue
}

// WinRate returns winning sells over all sells
func (p *Portfolio) WinRate() float64 {
	if p.SellCount == 0 {
		return 0
	}
	return float64(p.WinCount) / float64(p.SellCount)
}

// Trade is one simulated fill. A sell may close several positions.
type Trade struct {
	ID              string          `json:"id"`
	Type            TradeType       `json:"type"`
	Index           int             `json:"index"`
	Timestamp       int64           `json:"timestamp"`
	Price           float64         `json:"price"`
	AssetAmount     float64         `json:"asset_amount"`
	CashAmount      float64         `json:"cash_amount"` // spent on buys including fee, received on sells net of fee
	Fee             float64         `json:"fee"`
	Signal          float64         `json:"signal"`
	Confidence      float64         `json:"confidence"`
	PnL             float64         `json:"pnl,omitempty"`
	Reason          risk.ExitReason `json:"reason,omitempty"`
	ClosedPositions []string        `json:"closed_positions,omitempty"`
}

func (t *Trade) String() string {
	return fmt.Sprintf("%s %s idx=%d px=%.4f qty=%.8f cash=%.2f", t.ID, t.Type, t.Index, t.Price, t.AssetAmount, t.CashAmount)
}

// OpenPosition is one buy still held. Stop is nil when stops are disabled
// or no ATR was available at entry.
type OpenPosition struct {
	ID          string          `json:"id"`
	BuyTradeID  string          `json:"buy_trade_id"`
	EntryIndex  int             `json:"entry_index"`
	EntryPrice  float64         `json:"entry_price"`
	AssetAmount float64         `json:"asset_amount"`
	CostBasis   float64         `json:"cost_basis"` // cash spent including fee
	Stop        *risk.StopLevel `json:"stop,omitempty"`
}

// StopLossPrice returns the current stop or 0 when the position has none
func (op *OpenPosition) StopLossPrice() float64 {
	if op.Stop == nil {
		return 0
	}
	return op.Stop.Stop
}

// LedgerState is the persisted outcome of one run's execution
type LedgerState struct {
	Version        string          `json:"version"`
	SavedAt        time.Time       `json:"saved_at"`
	InitialCapital float64         `json:"initial_capital"`
	Portfolio      Portfolio       `json:"portfolio"`
	Trades         []*Trade        `json:"trades"`
	OpenPositions  []*OpenPosition `json:"open_positions"`
}

// LedgerStore persists ledger states
type LedgerStore interface {
	Save(state *LedgerState) error
	Load() (*LedgerState, error)
}
