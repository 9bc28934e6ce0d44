package reporting

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/internal/portfolio"
)

// DefaultCSVReporter implements CSV output functionality
type DefaultCSVReporter struct {
	paths PathManager
}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter(paths PathManager) *DefaultCSVReporter {
	return &DefaultCSVReporter{paths: paths}
}

var tradeHeader = []string{
	"ID", "Index", "Time", "Side", "Price", "Quantity", "Cash", "Fee", "Signal", "Confidence", "PnL", "Reason", "Closed_Positions",
}

// WriteTradesCSV writes one row per fill
func (r *DefaultCSVReporter) WriteTradesCSV(result *backtest.BacktestResult, path string) error {
	rows := make([][]string, 0, len(result.Trades))
	for _, t := range result.Trades {
		pnl := ""
		if t.Type == portfolio.TradeSell {
			pnl = ff(t.PnL)
		}
		closed := ""
		for i, id := range t.ClosedPositions {
			if i > 0 {
				closed += ";"
			}
			closed += id
		}
		rows = append(rows, []string{
			t.ID, strconv.Itoa(t.Index), formatTime(t.Timestamp), string(t.Type),
			ff(t.Price), ff(t.AssetAmount), ff(t.CashAmount), ff(t.Fee),
			ff(t.Signal), ff(t.Confidence), pnl, string(t.Reason), closed,
		})
	}
	return r.write(path, tradeHeader, rows)
}

var equityHeader = []string{
	"Index", "Time", "Price", "Cash", "Asset", "Total_Value", "Drawdown", "Regime", "Signal", "Action", "Confidence", "Failed",
}

// WriteEquityCSV writes one row per snapshot
func (r *DefaultCSVReporter) WriteEquityCSV(result *backtest.BacktestResult, path string) error {
	rows := make([][]string, 0, len(result.Snapshots))
	for _, s := range result.Snapshots {
		rows = append(rows, []string{
			strconv.Itoa(s.Index), formatTime(s.Timestamp), ff(s.Price), ff(s.Cash), ff(s.Asset),
			ff(s.TotalValue), ff(s.Drawdown), s.Regime.String(), ff(s.Signal), s.Action.String(),
			ff(s.Confidence), strconv.FormatBool(s.Failed),
		})
	}
	return r.write(path, equityHeader, rows)
}

func (r *DefaultCSVReporter) write(path string, header []string, rows [][]string) error {
	if err := r.paths.EnsureDirectoryExists(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
