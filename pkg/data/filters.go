package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// DefaultDataFilter implements DataFilter for common filtering operations
type DefaultDataFilter struct{}

// NewDefaultDataFilter creates a new default data filter
func NewDefaultDataFilter() *DefaultDataFilter {
	return &DefaultDataFilter{}
}

// FilterByPeriod filters data to the last N period
func (f *DefaultDataFilter) FilterByPeriod(data []types.PriceCandle, period time.Duration) []types.PriceCandle {
	if period <= 0 || len(data) == 0 {
		return data
	}

	cutoff := data[len(data)-1].Timestamp - period.Milliseconds()
	start := sort.Search(len(data), func(i int) bool { return data[i].Timestamp >= cutoff })
	return data[start:]
}

// FilterByDateRange filters data to a specific date range, bounds inclusive
func (f *DefaultDataFilter) FilterByDateRange(data []types.PriceCandle, start, end time.Time) []types.PriceCandle {
	var filtered []types.PriceCandle
	for _, candle := range data {
		if !start.IsZero() && candle.Timestamp < start.UnixMilli() {
			continue
		}
		if !end.IsZero() && candle.Timestamp > end.UnixMilli() {
			continue
		}
		filtered = append(filtered, candle)
	}
	return filtered
}

// ValidateTimeSequence ensures data is in chronological order without duplicates
func (f *DefaultDataFilter) ValidateTimeSequence(data []types.PriceCandle) error {
	for i := 1; i < len(data); i++ {
		prev, cur := data[i-1].Time(), data[i].Time()
		if cur.Before(prev) {
			return fmt.Errorf("data not in chronological order at index %d: %s comes after %s",
				i, cur.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		if cur.Equal(prev) {
			return fmt.Errorf("duplicate timestamp at index %d: %s", i, cur.Format(time.RFC3339))
		}
	}
	return nil
}

// SortByTimestamp returns a copy sorted by timestamp; equal timestamps keep
// their input order
func (f *DefaultDataFilter) SortByTimestamp(data []types.PriceCandle) []types.PriceCandle {
	sorted := make([]types.PriceCandle, len(data))
	copy(sorted, data)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })
	return sorted
}

// RemoveDuplicates removes duplicate timestamps, keeping the first occurrence
func (f *DefaultDataFilter) RemoveDuplicates(data []types.PriceCandle) []types.PriceCandle {
	if len(data) <= 1 {
		return data
	}

	filtered := make([]types.PriceCandle, 0, len(data))
	seen := make(map[int64]bool, len(data))
	for _, candle := range data {
		if !seen[candle.Timestamp] {
			seen[candle.Timestamp] = true
			filtered = append(filtered, candle)
		}
	}
	return filtered
}

// FilterOutliers drops candles whose open gaps more than maxPercentChange
// from the previous kept close
func (f *DefaultDataFilter) FilterOutliers(data []types.PriceCandle, maxPercentChange float64) []types.PriceCandle {
	if len(data) <= 1 || maxPercentChange <= 0 {
		return data
	}

	filtered := []types.PriceCandle{data[0]}
	for _, candle := range data[1:] {
		prevClose := filtered[len(filtered)-1].Close
		change := (candle.Open - prevClose) / prevClose * 100
		if change <= maxPercentChange && change >= -maxPercentChange {
			filtered = append(filtered, candle)
		}
	}
	return filtered
}
