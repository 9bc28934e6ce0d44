package reporting

import (
	"io"
	"path/filepath"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
)

// DefaultReporter implements every reporter interface
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
	paths   *DefaultPathManager
}

// NewDefaultReporter creates a reporter whose console output goes to out
// and whose files are placed under root
func NewDefaultReporter(out io.Writer, root string) *DefaultReporter {
	paths := NewDefaultPathManager(root)
	return &DefaultReporter{
		console: NewDefaultConsoleReporter(out, 20),
		csv:     NewDefaultCSVReporter(paths),
		excel:   NewDefaultExcelReporter(paths),
		paths:   paths,
	}
}

func (r *DefaultReporter) OutputResults(result *backtest.BacktestResult) {
	r.console.OutputResults(result)
}

func (r *DefaultReporter) OutputBatch(results []backtest.JobResult, labels []string) {
	r.console.OutputBatch(results, labels)
}

func (r *DefaultReporter) WriteTradesCSV(result *backtest.BacktestResult, path string) error {
	return r.csv.WriteTradesCSV(result, path)
}

func (r *DefaultReporter) WriteEquityCSV(result *backtest.BacktestResult, path string) error {
	return r.csv.WriteEquityCSV(result, path)
}

func (r *DefaultReporter) WriteResultXLSX(result *backtest.BacktestResult, path string) error {
	return r.excel.WriteResultXLSX(result, path)
}

func (r *DefaultReporter) GetDefaultOutputDir(symbol, interval string) string {
	return r.paths.GetDefaultOutputDir(symbol, interval)
}

func (r *DefaultReporter) EnsureDirectoryExists(path string) error {
	return r.paths.EnsureDirectoryExists(path)
}

// WriteAll produces every output enabled in cfg and returns the files written
func (r *DefaultReporter) WriteAll(result *backtest.BacktestResult, cfg ReportingConfig) ([]string, error) {
	if cfg.EnableConsole {
		r.OutputResults(result)
	}

	dir := cfg.OutputDirectory
	var written []string
	type output struct {
		enabled bool
		name    string
		write   func(*backtest.BacktestResult, string) error
	}
	outputs := []output{
		{cfg.CSVEnabled, "trades.csv", r.WriteTradesCSV},
		{cfg.CSVEnabled, "equity.csv", r.WriteEquityCSV},
		{cfg.ExcelEnabled, "result.xlsx", r.WriteResultXLSX},
		{cfg.JSONEnabled, "result.json", r.WriteResultJSON},
	}
	for _, o := range outputs {
		if !o.enabled {
			continue
		}
		path := filepath.Join(dir, o.name)
		if err := o.write(result, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

var (
	_ ConsoleReporter = (*DefaultReporter)(nil)
	_ FileReporter    = (*DefaultReporter)(nil)
	_ PathManager     = (*DefaultReporter)(nil)
)
