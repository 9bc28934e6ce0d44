package data

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// marketCategories are the sub-directories searched under an exchange
var marketCategories = map[string][]string{
	"bybit":   {"spot", "linear", "inverse"},
	"binance": {"spot", "futures"},
}

var defaultCategories = []string{"spot", "futures", "linear", "inverse"}

// intervalUnits maps an interval suffix to minutes
var intervalUnits = map[byte]int{'m': 1, 'h': 60, 'd': 24 * 60, 'w': 7 * 24 * 60}

// DefaultFileLocator searches a directory tree of downloaded candles
type DefaultFileLocator struct {
	logger zerolog.Logger
}

// NewDefaultFileLocator creates a new default file locator
func NewDefaultFileLocator(logger zerolog.Logger) *DefaultFileLocator {
	return &DefaultFileLocator{logger: logger}
}

// ConvertIntervalToMinutes turns "15m", "1h" or "1d" into a minute count.
// Bare numbers and unparseable input come back unchanged.
func (f *DefaultFileLocator) ConvertIntervalToMinutes(interval string) string {
	s := strings.ToLower(strings.TrimSpace(interval))
	if _, err := strconv.Atoi(s); err == nil || len(s) < 2 {
		return s
	}

	mult, ok := intervalUnits[s[len(s)-1]]
	n, err := strconv.Atoi(s[:len(s)-1])
	if !ok || err != nil {
		return s
	}
	return strconv.Itoa(n * mult)
}

// FindDataFile returns the first existing candidate, or "" when none exists.
// Candidates are <root>/<exchange>/<category>/<SYMBOL>/<minutes>/candles.csv
// for each market category, then <root>/<SYMBOL>_<interval>.csv.
func (f *DefaultFileLocator) FindDataFile(dataRoot, exchange, symbol, interval string) string {
	symbol = strings.ToUpper(symbol)
	minutes := f.ConvertIntervalToMinutes(interval)

	categories, ok := marketCategories[strings.ToLower(exchange)]
	if !ok {
		categories = defaultCategories
	}

	candidates := make([]string, 0, len(categories)+1)
	for _, category := range categories {
		candidates = append(candidates, filepath.Join(dataRoot, exchange, category, symbol, minutes, "candles.csv"))
	}
	candidates = append(candidates, filepath.Join(dataRoot, symbol+"_"+interval+".csv"))

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}

	f.logger.Warn().
		Str("exchange", exchange).
		Str("symbol", symbol).
		Str("interval", interval).
		Strs("attempted", candidates).
		Msg("no data file found")
	return ""
}
