package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Ledger is the account state implied by replaying trades in exact decimal
// arithmetic
type Ledger struct {
	Cash     decimal.Decimal `json:"cash"`
	Asset    decimal.Decimal `json:"asset"`
	Fees     decimal.Decimal `json:"fees"`
	Realized decimal.Decimal `json:"realized"`
	Buys     int             `json:"buys"`
	Sells    int             `json:"sells"`
}

// Reconcile replays trades from initialCapital
func Reconcile(initialCapital float64, trades []*Trade) Ledger {
	l := Ledger{
		Cash:     decimal.NewFromFloat(initialCapital),
		Asset:    decimal.Zero,
		Fees:     decimal.Zero,
		Realized: decimal.Zero,
	}
	for _, t := range trades {
		cash := decimal.NewFromFloat(t.CashAmount)
		amount := decimal.NewFromFloat(t.AssetAmount)
		switch t.Type {
		case TradeBuy:
			l.Cash = l.Cash.Sub(cash)
			l.Asset = l.Asset.Add(amount)
			l.Buys++
		case TradeSell:
			l.Cash = l.Cash.Add(cash)
			l.Asset = l.Asset.Sub(amount)
			l.Realized = l.Realized.Add(decimal.NewFromFloat(t.PnL))
			l.Sells++
		}
		l.Fees = l.Fees.Add(decimal.NewFromFloat(t.Fee))
	}
	return l
}

// Value returns cash plus asset at price
func (l Ledger) Value(price float64) decimal.Decimal {
	return l.Cash.Add(l.Asset.Mul(decimal.NewFromFloat(price)))
}

// Verify checks p against the ledger within tolerance, in quote currency
// for cash and in asset units for the position
func (l Ledger) Verify(p *Portfolio, tolerance float64) error {
	tol := decimal.NewFromFloat(tolerance)

	if diff := l.Cash.Sub(decimal.NewFromFloat(p.Cash)).Abs(); diff.GreaterThan(tol) {
		return fmt.Errorf("cash mismatch: ledger %s, portfolio %.8f (diff %s)", l.Cash.StringFixed(8), p.Cash, diff.StringFixed(8))
	}
	if diff := l.Asset.Sub(decimal.NewFromFloat(p.Asset)).Abs(); diff.GreaterThan(tol) {
		return fmt.Errorf("asset mismatch: ledger %s, portfolio %.8f (diff %s)", l.Asset.StringFixed(8), p.Asset, diff.StringFixed(8))
	}
	if l.Buys+l.Sells != p.TradeCount {
		return fmt.Errorf("trade count mismatch: ledger %d, portfolio %d", l.Buys+l.Sells, p.TradeCount)
	}
	return nil
}
