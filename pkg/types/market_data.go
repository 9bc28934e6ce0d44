package types

import (
	"encoding/binary"
	"math"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// PriceCandle is one OHLCV bar. Timestamp is unix milliseconds.
type PriceCandle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Time returns the candle open time in UTC
func (c PriceCandle) Time() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}

// Series is an ordered candle sequence with a content-derived identity.
// Two series with identical candles share an ID, which is what the
// indicator and regime caches key on.
type Series struct {
	ID      string
	Candles []PriceCandle
}

// NewSeries builds a series and derives its ID from the candle content
func NewSeries(candles []PriceCandle) *Series {
	return &Series{ID: HashCandles(candles), Candles: candles}
}

// Len returns the number of candles
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Candles)
}

// Closes extracts the close prices
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Slice returns the sub-series [from, to) with a fresh identity
func (s *Series) Slice(from, to int) *Series {
	return NewSeries(s.Candles[from:to])
}

// HashCandles returns a hex xxhash64 digest of every candle field
func HashCandles(candles []PriceCandle) string {
	h := xxhash.New()
	var buf [48]byte
	for _, c := range candles {
		binary.LittleEndian.PutUint64(buf[0:], uint64(c.Timestamp))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(c.Open))
		binary.LittleEndian.PutUint64(buf[16:], math.Float64bits(c.High))
		binary.LittleEndian.PutUint64(buf[24:], math.Float64bits(c.Low))
		binary.LittleEndian.PutUint64(buf[32:], math.Float64bits(c.Close))
		binary.LittleEndian.PutUint64(buf[40:], math.Float64bits(c.Volume))
		_, _ = h.Write(buf[:])
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// CorrelationAdjustment is an externally computed cross-asset overlay for one index
type CorrelationAdjustment struct {
	Signal    float64 `json:"signal"`     // [-1, 1]
	RiskLevel float64 `json:"risk_level"` // [0, 1]
	Context   string  `json:"context"`
}
