package reporting

import (
	"encoding/json"
	"os"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"
)

// WriteResultJSON writes the full result as indented JSON
func (r *DefaultReporter) WriteResultJSON(result *backtest.BacktestResult, path string) error {
	return writeJSON(r.paths, result, path)
}

// WriteJSON writes any value as indented JSON, creating parent directories
func WriteJSON(v interface{}, path string) error {
	return writeJSON(NewDefaultPathManager(""), v, path)
}

func writeJSON(paths PathManager, v interface{}, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := paths.EnsureDirectoryExists(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
