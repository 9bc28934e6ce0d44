// Package reporting renders backtest results for people and spreadsheets
package reporting

import (
	"github.com/ducminhle1904/regime-backtester/internal/backtest"
)

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	OutputResults(result *backtest.BacktestResult)
	OutputBatch(results []backtest.JobResult, labels []string)
}

// FileReporter defines interface for file output
type FileReporter interface {
	WriteTradesCSV(result *backtest.BacktestResult, path string) error
	WriteEquityCSV(result *backtest.BacktestResult, path string) error
	WriteResultXLSX(result *backtest.BacktestResult, path string) error
	WriteResultJSON(result *backtest.BacktestResult, path string) error
}

// PathManager defines interface for output path management
type PathManager interface {
	GetDefaultOutputDir(symbol, interval string) string
	EnsureDirectoryExists(path string) error
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle   int
	CurrencyStyle int
	PercentStyle  int
	BaseStyle     int
	BuyStyle      int
	SellStyle     int
	SummaryStyle  int
}

// ReportingConfig selects which outputs WriteAll produces
type ReportingConfig struct {
	EnableConsole   bool
	OutputDirectory string
	ExcelEnabled    bool
	CSVEnabled      bool
	JSONEnabled     bool
}
