package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
	"github.com/ducminhle1904/regime-backtester/internal/portfolio"
)

// Sheet names of the result workbook
const (
	SummarySheet = "Summary"
	TradesSheet  = "Trades"
	EquitySheet  = "Equity"
)

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct {
	paths PathManager
}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter(paths PathManager) *DefaultExcelReporter {
	return &DefaultExcelReporter{paths: paths}
}

// WriteResultXLSX writes summary, trades and equity sheets
func (r *DefaultExcelReporter) WriteResultXLSX(result *backtest.BacktestResult, path string) error {
	if err := r.paths.EnsureDirectoryExists(path); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), SummarySheet)
	if _, err := fx.NewSheet(TradesSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(EquitySheet); err != nil {
		return err
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	writers := []func(*excelize.File, *backtest.BacktestResult, ExcelStyles) error{
		r.writeSummarySheet, r.writeTradesSheet, r.writeEquitySheet,
	}
	for _, write := range writers {
		if err := write(fx, result, styles); err != nil {
			return err
		}
	}

	return fx.SaveAs(path)
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	// $ format
	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	// 0.00%
	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{Border: border})
	if err != nil {
		return styles, err
	}

	styles.BuyStyle, err = fx.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E6F3FF"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return styles, err
	}

	styles.SellStyle, err = fx.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E6FFE6"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return styles, err
	}

	styles.SummaryStyle, err = fx.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Border: border,
	})
	return styles, err
}

func writeHeader(fx *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, style)
	}
	fx.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, result *backtest.BacktestResult, styles ExcelStyles) error {
	sheet := SummarySheet
	fx.SetColWidth(sheet, "A", "A", 26)
	fx.SetColWidth(sheet, "B", "C", 16)
	writeHeader(fx, sheet, []string{"Metric", "Strategy", "Buy & Hold"}, styles.HeaderStyle)

	m := result.Metrics
	b := result.Baseline
	rows := []struct {
		label    string
		strategy interface{}
		baseline interface{}
		style    int
	}{
		{"Initial Capital", m.InitialCapital, m.InitialCapital, styles.CurrencyStyle},
		{"Final Value", m.FinalValue, nil, styles.CurrencyStyle},
		{"Total Return", m.TotalReturnPct / 100, b.ReturnPct / 100, styles.PercentStyle},
		{"Max Drawdown", m.MaxDrawdownPct / 100, b.MaxDrawdownPct / 100, styles.PercentStyle},
		{"Sharpe Ratio", m.SharpeRatio, b.SharpeRatio, styles.BaseStyle},
		{"Win Rate", m.WinRate, nil, styles.PercentStyle},
		{"Profit Factor", m.ProfitFactor, nil, styles.BaseStyle},
		{"Exposure", m.ExposurePct / 100, nil, styles.PercentStyle},
		{"Total Trades", m.TotalTrades, nil, styles.BaseStyle},
		{"Buys", m.BuyCount, nil, styles.BaseStyle},
		{"Sells", m.SellCount, nil, styles.BaseStyle},
		{"Stop Exits", m.StopExits, nil, styles.BaseStyle},
		{"Liquidations", m.Liquidations, nil, styles.BaseStyle},
		{"Fees", m.TotalFees, nil, styles.CurrencyStyle},
		{"Failed Candles", result.Failures, nil, styles.BaseStyle},
	}
	for i, row := range rows {
		n := i + 2
		fx.SetCellValue(sheet, fmt.Sprintf("A%d", n), row.label)
		fx.SetCellStyle(sheet, fmt.Sprintf("A%d", n), fmt.Sprintf("A%d", n), styles.SummaryStyle)
		fx.SetCellValue(sheet, fmt.Sprintf("B%d", n), row.strategy)
		if row.baseline != nil {
			fx.SetCellValue(sheet, fmt.Sprintf("C%d", n), row.baseline)
		}
		fx.SetCellStyle(sheet, fmt.Sprintf("B%d", n), fmt.Sprintf("C%d", n), row.style)
	}
	return nil
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, result *backtest.BacktestResult, styles ExcelStyles) error {
	sheet := TradesSheet
	fx.SetColWidth(sheet, "A", "A", 10)
	fx.SetColWidth(sheet, "B", "B", 8)
	fx.SetColWidth(sheet, "C", "C", 18)
	fx.SetColWidth(sheet, "D", "K", 13)
	fx.SetColWidth(sheet, "L", "L", 22)
	writeHeader(fx, sheet, []string{
		"ID", "Index", "Time", "Side", "Price", "Quantity", "Cash", "Fee", "Signal", "Confidence", "PnL", "Reason",
	}, styles.HeaderStyle)

	for i, t := range result.Trades {
		row := i + 2
		values := []interface{}{
			t.ID, t.Index, formatTime(t.Timestamp), string(t.Type), t.Price, t.AssetAmount,
			t.CashAmount, t.Fee, t.Signal, t.Confidence, nil, string(t.Reason),
		}
		style := styles.BuyStyle
		if t.Type == portfolio.TradeSell {
			values[10] = t.PnL
			style = styles.SellStyle
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := fx.SetSheetRow(sheet, start, &values); err != nil {
			return err
		}
		end, _ := excelize.CoordinatesToCellName(len(values), row)
		fx.SetCellStyle(sheet, start, end, style)
	}
	return nil
}

func (r *DefaultExcelReporter) writeEquitySheet(fx *excelize.File, result *backtest.BacktestResult, styles ExcelStyles) error {
	sheet := EquitySheet
	fx.SetColWidth(sheet, "A", "A", 8)
	fx.SetColWidth(sheet, "B", "B", 18)
	fx.SetColWidth(sheet, "C", "J", 13)
	writeHeader(fx, sheet, []string{
		"Index", "Time", "Price", "Cash", "Asset", "Total Value", "Drawdown", "Regime", "Signal", "Action",
	}, styles.HeaderStyle)

	for i, s := range result.Snapshots {
		row := i + 2
		values := []interface{}{
			s.Index, formatTime(s.Timestamp), s.Price, s.Cash, s.Asset, s.TotalValue, s.Drawdown,
			s.Regime.String(), s.Signal, s.Action.String(),
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := fx.SetSheetRow(sheet, start, &values); err != nil {
			return err
		}
	}
	if n := len(result.Snapshots); n > 0 {
		fx.SetCellStyle(sheet, "D2", fmt.Sprintf("D%d", n+1), styles.CurrencyStyle)
		fx.SetCellStyle(sheet, "F2", fmt.Sprintf("F%d", n+1), styles.CurrencyStyle)
		fx.SetCellStyle(sheet, "G2", fmt.Sprintf("G%d", n+1), styles.PercentStyle)
	}
	return nil
}
