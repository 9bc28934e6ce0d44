package reporting

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/internal/portfolio"
)

// DefaultConsoleReporter renders results as go-pretty tables
type DefaultConsoleReporter struct {
	out       io.Writer
	maxTrades int
}

// NewDefaultConsoleReporter writes to out (stdout when nil) and lists at
// most maxTrades fills
func NewDefaultConsoleReporter(out io.Writer, maxTrades int) *DefaultConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &DefaultConsoleReporter{out: out, maxTrades: maxTrades}
}

// OutputResults prints the summary, risk and trade tables
func (r *DefaultConsoleReporter) OutputResults(result *backtest.BacktestResult) {
	m := result.Metrics
	b := result.Baseline

	t := r.newTable("BACKTEST RESULTS")
	t.AppendHeader(table.Row{"Metric", "Strategy", "Buy & Hold"})
	t.AppendRows([]table.Row{
		{"💰 Initial Capital", money(m.InitialCapital), money(m.InitialCapital)},
		{"💰 Final Value", money(m.FinalValue), ""},
		{"📈 Total Return", pct(m.TotalReturnPct), pct(b.ReturnPct)},
		{"📉 Max Drawdown", pct(m.MaxDrawdownPct), pct(b.MaxDrawdownPct)},
		{"📊 Sharpe Ratio", fmt.Sprintf("%.2f", m.SharpeRatio), fmt.Sprintf("%.2f", b.SharpeRatio)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"🔄 Trades", fmt.Sprintf("%d (%d buys, %d sells)", m.TotalTrades, m.BuyCount, m.SellCount), ""},
		{"✅ Win Rate", pct(m.WinRate * 100), ""},
		{"💹 Profit Factor", fmt.Sprintf("%.2f", m.ProfitFactor), ""},
		{"🎯 Exposure", pct(m.ExposurePct), ""},
		{"💸 Fees", money(m.TotalFees), ""},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 18, Align: text.AlignRight},
		{Number: 3, WidthMin: 12, Align: text.AlignRight},
	})
	t.Render()

	risk := r.newTable("RISK")
	risk.AppendRows([]table.Row{
		{"🛑 Stop exits", m.StopExits},
		{"🚨 Drawdown liquidations", m.Liquidations},
		{"⚡ Breaker trips", result.Risk.CircuitBreaker.Trips},
		{"⚡ Breaker state", result.Risk.CircuitBreaker.State.String()},
		{"⚠️ Failed candles", result.Failures},
		{"📂 Open positions", len(result.OpenPositions)},
	})
	risk.Render()

	if r.maxTrades > 0 && len(result.Trades) > 0 {
		trades := r.newTable("TRADES")
		trades.AppendHeader(table.Row{"ID", "Index", "Time", "Side", "Price", "Quantity", "Cash", "PnL", "Reason"})
		for i, tr := range result.Trades {
			if i == r.maxTrades {
				trades.AppendFooter(table.Row{fmt.Sprintf("+%d more", len(result.Trades)-r.maxTrades)})
				break
			}
			pnl := ""
			if tr.Type == portfolio.TradeSell {
				pnl = money(tr.PnL)
			}
			trades.AppendRow(table.Row{
				tr.ID, tr.Index, formatTime(tr.Timestamp), tr.Type,
				fmt.Sprintf("%.4f", tr.Price), fmt.Sprintf("%.6f", tr.AssetAmount), money(tr.CashAmount), pnl, tr.Reason,
			})
		}
		trades.Render()
	}
}

// OutputBatch prints one row per job
func (r *DefaultConsoleReporter) OutputBatch(results []backtest.JobResult, labels []string) {
	t := r.newTable("BATCH RESULTS")
	t.AppendHeader(table.Row{"#", "Config", "Return", "Max DD", "Sharpe", "Trades", "Duration", "Error"})
	for i, res := range results {
		label := res.ID
		if i < len(labels) {
			label = labels[i]
		}
		if res.Error != nil || res.Result == nil {
			t.AppendRow(table.Row{res.Seq, label, "", "", "", "", res.Duration.Round(time.Millisecond), errString(res.Error)})
			continue
		}
		m := res.Result.Metrics
		t.AppendRow(table.Row{
			res.Seq, label, pct(m.TotalReturnPct), pct(m.MaxDrawdownPct),
			fmt.Sprintf("%.2f", m.SharpeRatio), m.TotalTrades, res.Duration.Round(time.Millisecond), "",
		})
	}
	t.Render()
}

func (r *DefaultConsoleReporter) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

func errString(err error) string {
	if err == nil {
		return "no result"
	}
	return err.Error()
}

func formatTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}
