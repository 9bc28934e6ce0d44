package portfolio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	simerrors "github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/internal/risk"
	"github.com/ducminhle1904/regime-backtester/internal/strategy"
	"github.com/ducminhle1904/regime-backtester/pkg/config"
)

func testConfig(commission float64, maxOpen int) *config.StrategyConfig {
	cfg := config.DefaultStrategyConfig()
	cfg.Execution = config.ExecutionParams{Commission: commission, MinTradeValue: 1, MaxOpenPositions: maxOpen}
	cfg.StopLoss = config.StopLossParams{Enabled: true, ATRPeriod: 14, ATRMode: "wilder", ATRMultiplier: 2, Trailing: true}
	return cfg
}

func buySignal(mult float64) *strategy.Signal {
	return &strategy.Signal{Action: strategy.ActionBuy, Signal: 0.8, PositionSizeMultiplier: mult}
}

func sellSignal() *strategy.Signal {
	return &strategy.Signal{Action: strategy.ActionSell, Signal: -0.8, PositionSizeMultiplier: 1}
}

func execCtx(index int, atr float64) ExecContext {
	return ExecContext{Index: index, Timestamp: int64(index) * 60000, PositionPct: 0.5, SizeMultiplier: 1, ATR: atr}
}

func assertValueIdentity(t *testing.T, p *Portfolio, price float64) {
	t.Helper()
	assert.InDelta(t, p.Cash+p.Asset*price, p.TotalValue, 1e-9)
}

// TestBuySizing tests the spend formula with fees
func TestBuySizing(t *testing.T) {
	e := NewExecutor(testConfig(0.001, 5))
	p := NewPortfolio(10000)

	trade, err := e.Execute(buySignal(1), 0.8, 100, p, execCtx(50, 2))
	require.NoError(t, err)
	require.NotNil(t, trade)

	assert.Equal(t, "T000001", trade.ID)
	assert.Equal(t, TradeBuy, trade.Type)
	assert.InDelta(t, 4000, trade.CashAmount, 1e-9)
	assert.InDelta(t, 4, trade.Fee, 1e-9)
	assert.InDelta(t, 39.96, trade.AssetAmount, 1e-9)
	assert.InDelta(t, 6000, p.Cash, 1e-9)
	assert.InDelta(t, 9996, p.TotalValue, 1e-9)
	assertValueIdentity(t, p, 100)

	require.Equal(t, 1, e.Book().Len())
	op := e.Book().Positions()[0]
	assert.Equal(t, "P000001", op.ID)
	assert.Equal(t, trade.ID, op.BuyTradeID)
	assert.Equal(t, 96.0, op.StopLossPrice())
}

func TestBuyScalesWithMultipliers(t *testing.T) {
	e := NewExecutor(testConfig(0, 5))
	p := NewPortfolio(10000)

	ec := execCtx(50, 2)
	ec.SizeMultiplier = 0.5
	ec.PositionPct = 0.2
	trade, err := e.Execute(buySignal(0.5), 1, 100, p, ec)
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.InDelta(t, 500, trade.CashAmount, 1e-9)
}

func TestBuyNoOps(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(ec *ExecContext)
		conf    float64
		preload bool
	}{
		{"entries paused", func(ec *ExecContext) { ec.EntriesPaused = true }, 1, false},
		{"below min trade value", func(ec *ExecContext) { ec.PositionPct = 0.00005 }, 1, false},
		{"zero confidence", func(ec *ExecContext) {}, 0, false},
		{"position cap", func(ec *ExecContext) {}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExecutor(testConfig(0, 1))
			p := NewPortfolio(10000)
			if tt.preload {
				_, err := e.Execute(buySignal(1), 1, 100, p, execCtx(1, 2))
				require.NoError(t, err)
			}
			before := *p

			ec := execCtx(2, 2)
			tt.mutate(&ec)
			trade, err := e.Execute(buySignal(1), tt.conf, 100, p, ec)
			require.NoError(t, err)
			assert.Nil(t, trade)
			assert.Equal(t, before.Cash, p.Cash)
			assert.Equal(t, before.TradeCount, p.TradeCount)
		})
	}
}

// TestSellLiquidatesFIFO tests that a sell signal closes every position oldest first
func TestSellLiquidatesFIFO(t *testing.T) {
	e := NewExecutor(testConfig(0, 5))
	p := NewPortfolio(10000)

	_, err := e.Execute(buySignal(1), 1, 100, p, execCtx(1, 2))
	require.NoError(t, err)
	_, err = e.Execute(buySignal(1), 1, 110, p, execCtx(2, 2))
	require.NoError(t, err)
	assert.InDelta(t, 2500, p.Cash, 1e-9)

	trade, err := e.Execute(sellSignal(), 0.7, 120, p, execCtx(3, 2))
	require.NoError(t, err)
	require.NotNil(t, trade)

	assert.Equal(t, TradeSell, trade.Type)
	assert.Equal(t, risk.ExitSignal, trade.Reason)
	assert.Equal(t, []string{"P000001", "P000002"}, trade.ClosedPositions)
	amount := 50 + 2500.0/110
	assert.InDelta(t, amount, trade.AssetAmount, 1e-9)
	assert.InDelta(t, amount*120-7500, trade.PnL, 1e-9)

	assert.Equal(t, 0.0, p.Asset)
	assert.InDelta(t, 2500+amount*120, p.Cash, 1e-9)
	assert.Equal(t, 3, p.TradeCount)
	assert.Equal(t, 1, p.SellCount)
	assert.Equal(t, 1, p.WinCount)
	assert.Equal(t, 1.0, p.WinRate())
	assert.Equal(t, 0, e.Book().Len())
	assertValueIdentity(t, p, 120)
}

func TestSellWithoutPositions(t *testing.T) {
	e := NewExecutor(testConfig(0, 5))
	p := NewPortfolio(10000)

	trade, err := e.Execute(sellSignal(), 1, 100, p, execCtx(1, 2))
	require.NoError(t, err)
	assert.Nil(t, trade)
	assert.Equal(t, 10000.0, p.TotalValue)
}

func TestCheckStops(t *testing.T) {
	t.Run("fixed stop", func(t *testing.T) {
		e := NewExecutor(testConfig(0, 5))
		p := NewPortfolio(10000)
		_, err := e.Execute(buySignal(1), 1, 100, p, execCtx(1, 2))
		require.NoError(t, err)

		trades := e.CheckStops(95, p, execCtx(2, 2))
		require.Len(t, trades, 1)
		assert.Equal(t, risk.ExitStopLoss, trades[0].Reason)
		assert.InDelta(t, -250, trades[0].PnL, 1e-9)
		assert.Equal(t, 0, p.WinCount)
		assertValueIdentity(t, p, 95)
	})

	t.Run("trailing stop", func(t *testing.T) {
		e := NewExecutor(testConfig(0, 5))
		p := NewPortfolio(10000)
		_, err := e.Execute(buySignal(1), 1, 100, p, execCtx(1, 2))
		require.NoError(t, err)

		assert.Empty(t, e.CheckStops(105, p, execCtx(2, 1)))
		assert.Equal(t, 103.0, e.Book().Positions()[0].StopLossPrice())

		trades := e.CheckStops(102, p, execCtx(3, 1))
		require.Len(t, trades, 1)
		assert.Equal(t, risk.ExitTrailingStop, trades[0].Reason)
		assert.InDelta(t, 100, trades[0].PnL, 1e-9)
		assert.Equal(t, 1, p.WinCount)
	})

	t.Run("mixed reasons close in entry order", func(t *testing.T) {
		e := NewExecutor(testConfig(0, 5))
		p := NewPortfolio(10000)
		_, err := e.Execute(buySignal(1), 1, 100, p, execCtx(1, 2))
		require.NoError(t, err)
		assert.Empty(t, e.CheckStops(105, p, execCtx(2, 1)))
		_, err = e.Execute(buySignal(1), 1, 105, p, execCtx(3, 1.25))
		require.NoError(t, err)

		positions := e.Book().Positions()
		require.Len(t, positions, 2)
		first, second := positions[0].ID, positions[1].ID

		trades := e.CheckStops(102, p, execCtx(4, 2))
		require.Len(t, trades, 2)
		assert.Equal(t, risk.ExitTrailingStop, trades[0].Reason)
		assert.Equal(t, []string{first}, trades[0].ClosedPositions)
		assert.Equal(t, risk.ExitStopLoss, trades[1].Reason)
		assert.Equal(t, []string{second}, trades[1].ClosedPositions)
		assert.Less(t, trades[0].ID, trades[1].ID)
		assert.Zero(t, e.Book().Len())
		assertValueIdentity(t, p, 102)
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := testConfig(0, 5)
		cfg.StopLoss.Enabled = false
		e := NewExecutor(cfg)
		p := NewPortfolio(10000)
		_, err := e.Execute(buySignal(1), 1, 100, p, execCtx(1, 2))
		require.NoError(t, err)
		assert.Nil(t, e.Book().Positions()[0].Stop)
		assert.Empty(t, e.CheckStops(1, p, execCtx(2, 2)))
	})

	t.Run("no atr at entry", func(t *testing.T) {
		e := NewExecutor(testConfig(0, 5))
		p := NewPortfolio(10000)
		_, err := e.Execute(buySignal(1), 1, 100, p, execCtx(1, math.NaN()))
		require.NoError(t, err)
		assert.Equal(t, 0.0, e.Book().Positions()[0].StopLossPrice())
	})
}

func TestClosePositions(t *testing.T) {
	e := NewExecutor(testConfig(0.001, 5))
	p := NewPortfolio(10000)
	_, err := e.Execute(buySignal(1), 1, 100, p, execCtx(1, 2))
	require.NoError(t, err)

	trade := e.ClosePositions(80, p, execCtx(2, 2), risk.ExitDrawdownLiquidation)
	require.NotNil(t, trade)
	assert.Equal(t, risk.ExitDrawdownLiquidation, trade.Reason)
	assert.Less(t, trade.PnL, 0.0)
	assert.Equal(t, 0.0, p.Asset)
	assertValueIdentity(t, p, 80)

	assert.Nil(t, e.ClosePositions(80, p, execCtx(3, 2), risk.ExitDrawdownLiquidation))
}

func TestExecuteErrors(t *testing.T) {
	e := NewExecutor(testConfig(0, 5))
	p := NewPortfolio(10000)

	_, err := e.Execute(nil, 1, 100, p, execCtx(1, 2))
	assert.True(t, simerrors.IsComputationError(err))

	for _, price := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := e.Execute(buySignal(1), 1, price, p, execCtx(1, 2))
		assert.True(t, simerrors.IsComputationError(err), "price %v", price)
	}
	assert.Equal(t, 10000.0, p.Cash)
}

func TestReconcile(t *testing.T) {
	e := NewExecutor(testConfig(0.001, 5))
	p := NewPortfolio(10000)

	var trades []*Trade
	record := func(tr *Trade) {
		if tr != nil {
			trades = append(trades, tr)
		}
	}
	tr, _ := e.Execute(buySignal(1), 0.9, 100, p, execCtx(1, 2))
	record(tr)
	tr, _ = e.Execute(buySignal(1), 0.7, 103.5, p, execCtx(2, 2))
	record(tr)
	tr, _ = e.Execute(sellSignal(), 0.6, 107.25, p, execCtx(3, 2))
	record(tr)
	tr, _ = e.Execute(buySignal(1), 0.5, 99.1, p, execCtx(4, 2))
	record(tr)
	require.Len(t, trades, 4)

	ledger := Reconcile(10000, trades)
	assert.Equal(t, 3, ledger.Buys)
	assert.Equal(t, 1, ledger.Sells)
	require.NoError(t, ledger.Verify(p, 1e-6))
	assert.InDelta(t, p.MarkToMarket(99.1), ledger.Value(99.1).InexactFloat64(), 1e-6)

	tampered := *p
	tampered.Cash += 1
	assert.Error(t, ledger.Verify(&tampered, 1e-6))

	tampered = *p
	tampered.TradeCount++
	assert.Error(t, ledger.Verify(&tampered, 1e-6))
}

func TestBookRemoveKeepsOrder(t *testing.T) {
	b := NewBook()
	ops := []*OpenPosition{{ID: "a", AssetAmount: 1}, {ID: "b", AssetAmount: 2}, {ID: "c", AssetAmount: 3}}
	for _, op := range ops {
		b.Open(op)
	}
	assert.Equal(t, 6.0, b.TotalAsset())

	b.Remove([]*OpenPosition{ops[1]})
	require.Equal(t, 2, b.Len())
	assert.Equal(t, "a", b.Positions()[0].ID)
	assert.Equal(t, "c", b.Positions()[1].ID)

	b.Reset()
	assert.Equal(t, 0, b.Len())
}
