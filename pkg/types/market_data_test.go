package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testCandles() []PriceCandle {
	return []PriceCandle{
		{Timestamp: 1_000, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
		{Timestamp: 2_000, Open: 10.5, High: 12, Low: 10, Close: 11.5, Volume: 120},
	}
}

// TestSeriesIdentity tests that identity follows content, not allocation
func TestSeriesIdentity(t *testing.T) {
	a := NewSeries(testCandles())
	b := NewSeries(testCandles())
	assert.Equal(t, a.ID, b.ID)

	changed := testCandles()
	changed[1].Close = 11.6
	c := NewSeries(changed)
	assert.NotEqual(t, a.ID, c.ID)

	assert.Equal(t, []float64{10.5, 11.5}, a.Closes())
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 0, (*Series)(nil).Len())
	assert.Equal(t, 1, a.Slice(1, 2).Len())
	assert.NotEqual(t, a.ID, a.Slice(1, 2).ID)
}

func TestCandleTime(t *testing.T) {
	c := PriceCandle{Timestamp: 86_400_000}
	assert.Equal(t, 1970, c.Time().Year())
	assert.Equal(t, 2, c.Time().Day())
}
