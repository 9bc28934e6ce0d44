package reporting

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/internal/portfolio"
	"github.com/ducminhle1904/regime-backtester/internal/regime"
	"github.com/ducminhle1904/regime-backtester/internal/risk"
	"github.com/ducminhle1904/regime-backtester/internal/strategy"
	"github.com/ducminhle1904/regime-backtester/pkg/validation"
)

func sampleResult() *backtest.BacktestResult {
	return &backtest.BacktestResult{
		Metrics: backtest.Metrics{
			InitialCapital: 10000,
			FinalValue:     10500,
			TotalReturnPct: 5,
			MaxDrawdownPct: 3.2,
			SharpeRatio:    1.4,
			WinRate:        1,
			TotalTrades:    2,
			BuyCount:       1,
			SellCount:      1,
			WinCount:       1,
		},
		Baseline: backtest.BaselineMetrics{ReturnPct: 7, MaxDrawdownPct: 4},
		Snapshots: []backtest.Snapshot{
			{Index: 50, Timestamp: 1_700_000_000_000, Price: 100, Cash: 5000, Asset: 50, TotalValue: 10000, Regime: regime.RegimeBullish, Action: strategy.ActionBuy},
			{Index: 51, Timestamp: 1_700_003_600_000, Price: 110, Cash: 10500, TotalValue: 10500, Regime: regime.RegimeBullish, Action: strategy.ActionSell},
		},
		Trades: []*portfolio.Trade{
			{ID: "T000001", Type: portfolio.TradeBuy, Index: 50, Timestamp: 1_700_000_000_000, Price: 100, AssetAmount: 50, CashAmount: 5000},
			{ID: "T000002", Type: portfolio.TradeSell, Index: 51, Timestamp: 1_700_003_600_000, Price: 110, AssetAmount: 50, CashAmount: 5500, PnL: 500, Reason: risk.ExitSignal, ClosedPositions: []string{"P000001"}},
		},
		StartIndex: 50,
		Candles:    52,
	}
}

// TestConsoleOutput tests that the tables carry the headline numbers
func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	r := NewDefaultReporter(&buf, t.TempDir())
	r.OutputResults(sampleResult())

	out := buf.String()
	assert.Contains(t, out, "BACKTEST RESULTS")
	assert.Contains(t, out, "$10500.00")
	assert.Contains(t, out, "5.00%")
	assert.Contains(t, out, "7.00%")
	assert.Contains(t, out, "T000002")
	assert.Contains(t, out, "2023-11-14 22:13")
}

func TestConsoleBatch(t *testing.T) {
	var buf bytes.Buffer
	r := NewDefaultReporter(&buf, t.TempDir())
	r.OutputBatch([]backtest.JobResult{
		{ID: "a", Seq: 0, Result: sampleResult()},
		{ID: "b", Seq: 1, Error: errors.New("bad config")},
	}, []string{"baseline"})

	out := buf.String()
	assert.Contains(t, out, "baseline")
	assert.Contains(t, out, "bad config")
	assert.Contains(t, out, "5.00%")
}

func TestConsoleWalkForward(t *testing.T) {
	var buf bytes.Buffer
	r := NewDefaultConsoleReporter(&buf, 0)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.OutputWalkForward(&validation.WalkForwardSummary{
		Results: []validation.FoldResult{{
			Fold:       1,
			Train:      sampleResult(),
			Test:       sampleResult(),
			TrainStart: start,
			TrainEnd:   start.AddDate(0, 0, 9),
			TestStart:  start.AddDate(0, 0, 10),
			TestEnd:    start.AddDate(0, 0, 14),
		}},
		ReturnDegradation: 42,
		OverfittingRisk:   validation.RiskHigh,
	})

	out := buf.String()
	assert.Contains(t, out, "WALK-FORWARD FOLDS")
	assert.Contains(t, out, "2024-01-11")
	assert.Contains(t, out, "42.00%")
	assert.Contains(t, out, "HIGH")
	assert.Contains(t, out, "NO")
}

// TestWriteAll tests every file output
func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	r := NewDefaultReporter(&bytes.Buffer{}, dir)
	outDir := r.GetDefaultOutputDir("btcusdt", "1H")
	assert.Equal(t, filepath.Join(dir, "BTCUSDT_1h"), outDir)

	written, err := r.WriteAll(sampleResult(), ReportingConfig{
		OutputDirectory: outDir,
		CSVEnabled:      true,
		ExcelEnabled:    true,
		JSONEnabled:     true,
	})
	require.NoError(t, err)
	assert.Len(t, written, 4)

	f, err := os.Open(filepath.Join(outDir, "trades.csv"))
	require.NoError(t, err)
	rows, err := csv.NewReader(f).ReadAll()
	f.Close()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, tradeHeader, rows[0])
	assert.Equal(t, "sell", rows[2][3])
	assert.Equal(t, "500", rows[2][10])
	assert.Equal(t, "P000001", rows[2][12])

	f, err = os.Open(filepath.Join(outDir, "equity.csv"))
	require.NoError(t, err)
	rows, err = csv.NewReader(f).ReadAll()
	f.Close()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "bullish", rows[1][7])

	fx, err := excelize.OpenFile(filepath.Join(outDir, "result.xlsx"))
	require.NoError(t, err)
	defer fx.Close()
	assert.Equal(t, []string{SummarySheet, TradesSheet, EquitySheet}, fx.GetSheetList())
	id, err := fx.GetCellValue(TradesSheet, "A3")
	require.NoError(t, err)
	assert.Equal(t, "T000002", id)
	label, err := fx.GetCellValue(SummarySheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Initial Capital", label)

	data, err := os.ReadFile(filepath.Join(outDir, "result.json"))
	require.NoError(t, err)
	var decoded backtest.BacktestResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, sampleResult().Metrics, decoded.Metrics)
	assert.Equal(t, regime.RegimeBullish, decoded.Snapshots[0].Regime)
}

func TestWriteAllNothingEnabled(t *testing.T) {
	written, err := NewDefaultReporter(&bytes.Buffer{}, t.TempDir()).WriteAll(sampleResult(), ReportingConfig{})
	assert.NoError(t, err)
	assert.Empty(t, written)
}
