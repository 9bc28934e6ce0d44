package validation

import (
	"time"

	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

const (
	// minTrainCandles leaves the optimizer room to trade after warm-up
	minTrainCandles = 100
	// minTestCandles is the smallest out-of-sample window worth scoring
	minTestCandles = 10
)

// DefaultDataSplitter implements the DataSplitter interface
type DefaultDataSplitter struct{}

// NewDefaultDataSplitter creates a new default data splitter
func NewDefaultDataSplitter() *DefaultDataSplitter {
	return &DefaultDataSplitter{}
}

// SplitByRatio makes a single holdout fold. ok is false when the ratio or
// the data cannot produce one.
func (s *DefaultDataSplitter) SplitByRatio(data []types.PriceCandle, ratio float64) (WalkForwardFold, bool) {
	if ratio <= 0 || ratio >= 1 {
		return WalkForwardFold{}, false
	}

	n := int(float64(len(data)) * ratio)
	if n < minTrainCandles || len(data)-n < minTestCandles {
		return WalkForwardFold{}, false
	}
	return newFold(data, 0, n, len(data)), true
}

// CreateRollingFolds creates rolling walk-forward folds. Each fold trains on
// trainDays, tests on the following testDays, and the next fold starts
// rollDays after the previous one.
func (s *DefaultDataSplitter) CreateRollingFolds(data []types.PriceCandle, trainDays, testDays, rollDays int) []WalkForwardFold {
	var folds []WalkForwardFold
	if len(data) < minTrainCandles+minTestCandles || trainDays <= 0 || testDays <= 0 {
		return folds
	}

	trainMs := days(trainDays)
	testMs := days(testDays)
	rollMs := days(rollDays)

	start := 0
	for {
		trainEndTs := data[start].Timestamp + trainMs
		trainEnd := advance(data, start, trainEndTs)

		testEndTs := trainEndTs + testMs
		testEnd := advance(data, trainEnd, testEndTs)

		if trainEnd-start < minTrainCandles || testEnd-trainEnd < minTestCandles {
			break
		}
		folds = append(folds, newFold(data, start, trainEnd, testEnd))

		nextStart := advance(data, start, data[start].Timestamp+rollMs)
		if nextStart <= start {
			nextStart = start + 1
		}
		if nextStart >= len(data) {
			break
		}
		start = nextStart
	}
	return folds
}

// advance returns the first index at or after from whose timestamp is not
// before ts
func advance(data []types.PriceCandle, from int, ts int64) int {
	i := from
	for i < len(data) && data[i].Timestamp < ts {
		i++
	}
	return i
}

func newFold(data []types.PriceCandle, trainFrom, trainTo, testTo int) WalkForwardFold {
	return WalkForwardFold{
		TrainFrom:  trainFrom,
		TrainTo:    trainTo,
		TestTo:     testTo,
		TrainStart: data[trainFrom].Time(),
		TrainEnd:   data[trainTo-1].Time(),
		TestStart:  data[trainTo].Time(),
		TestEnd:    data[testTo-1].Time(),
	}
}

func days(n int) int64 {
	return (time.Duration(n) * 24 * time.Hour).Milliseconds()
}
