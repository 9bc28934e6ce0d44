package data

import (
	"time"

	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// DataProvider loads historical candles from a source
type DataProvider interface {
	LoadData(source string) ([]types.PriceCandle, error)
	GetName() string
}

// DataCache caches loaded candles by source
type DataCache interface {
	Get(key string) ([]types.PriceCandle, bool)
	Set(key string, data []types.PriceCandle)
	Clear()
	Size() int
}

// DataFilter filters and orders candle data
type DataFilter interface {
	// FilterByPeriod keeps the trailing period ending at the last candle
	FilterByPeriod(data []types.PriceCandle, period time.Duration) []types.PriceCandle

	// FilterByDateRange keeps candles in [start, end]; a zero bound is open
	FilterByDateRange(data []types.PriceCandle, start, end time.Time) []types.PriceCandle

	// ValidateTimeSequence ensures strictly increasing timestamps
	ValidateTimeSequence(data []types.PriceCandle) error
}

// FileLocator finds candle files in a data directory tree
type FileLocator interface {
	FindDataFile(dataRoot, exchange, symbol, interval string) string
	ConvertIntervalToMinutes(interval string) string
}

// TimestampUnixMillis makes the CSV timestamp column a unix millisecond integer
const TimestampUnixMillis = "unix_ms"

// CSVColumnMapping gives the zero-based column of each field
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string // time layout or TimestampUnixMillis
	HasHeader    bool
}

// ohlcvColumns is timestamp,open,high,low,close,volume with a header row
func ohlcvColumns(dateFormat string) CSVColumnMapping {
	return CSVColumnMapping{
		TimestampCol: 0, OpenCol: 1, HighCol: 2, LowCol: 3, CloseCol: 4, VolumeCol: 5,
		MinColumns: 6,
		DateFormat: dateFormat,
		HasHeader:  true,
	}
}

var (
	// DefaultCSVFormat reads "2006-01-02 15:04:05" UTC timestamps
	DefaultCSVFormat = ohlcvColumns("2006-01-02 15:04:05")
	// UnixMillisCSVFormat reads exchange-style millisecond timestamps
	UnixMillisCSVFormat = ohlcvColumns(TimestampUnixMillis)
)
