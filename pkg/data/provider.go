package data

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	simerrors "github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// DataManager combines loading, locating and filtering
type DataManager struct {
	provider DataProvider
	filter   *DefaultDataFilter
	locator  FileLocator
}

// NewDataManager creates a data manager over a cached lenient CSV provider
func NewDataManager(logger zerolog.Logger) *DataManager {
	return &DataManager{
		provider: NewCachedProvider(NewCSVProvider(WithLogger(logger)), logger),
		filter:   NewDefaultDataFilter(),
		locator:  NewDefaultFileLocator(logger),
	}
}

// NewDataManagerWithProvider creates a data manager with a custom provider
func NewDataManagerWithProvider(provider DataProvider, logger zerolog.Logger) *DataManager {
	return &DataManager{
		provider: provider,
		filter:   NewDefaultDataFilter(),
		locator:  NewDefaultFileLocator(logger),
	}
}

// LoadOptions selects and cleans the loaded candles
type LoadOptions struct {
	Period      time.Duration // trailing window; zero keeps everything
	Start, End  time.Time     // inclusive bounds; zero is open
	Deduplicate bool
}

// Load reads a file, orders it and applies the options. The result is
// validated as a strictly increasing series.
func (dm *DataManager) Load(path string, opts LoadOptions) ([]types.PriceCandle, error) {
	candles, err := dm.provider.LoadData(path)
	if err != nil {
		return nil, err
	}

	candles = dm.filter.SortByTimestamp(candles)
	if opts.Deduplicate {
		candles = dm.filter.RemoveDuplicates(candles)
	}
	if !opts.Start.IsZero() || !opts.End.IsZero() {
		candles = dm.filter.FilterByDateRange(candles, opts.Start, opts.End)
	}
	candles = dm.filter.FilterByPeriod(candles, opts.Period)

	if err := dm.filter.ValidateTimeSequence(candles); err != nil {
		return nil, simerrors.WrapError(err, simerrors.ErrorCategoryData, "data", "load")
	}
	return candles, nil
}

// FindDataFile locates a candle file under dataRoot
func (dm *DataManager) FindDataFile(dataRoot, exchange, symbol, interval string) string {
	return dm.locator.FindDataFile(dataRoot, exchange, symbol, interval)
}

// Filter returns the data filter
func (dm *DataManager) Filter() *DefaultDataFilter {
	return dm.filter
}

// ParseTrailingPeriod parses period strings like "7d", "30d", "180d" or a
// Go duration such as "168h"
func ParseTrailingPeriod(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasSuffix(s, "days") {
		s = strings.TrimSuffix(s, "days") + "d"
	}
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d, true
	}
	return 0, false
}
