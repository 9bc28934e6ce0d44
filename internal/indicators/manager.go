package indicators

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// Kind names an indicator family in a cache key
type Kind string

const (
	KindSMA  Kind = "sma"
	KindEMA  Kind = "ema"
	KindMACD Kind = "macd"
	KindRSI  Kind = "rsi"
	KindATR  Kind = "atr"
	KindROC  Kind = "roc"
)

// Key identifies one computed indicator: which series, which indicator,
// which parameters
type Key struct {
	SeriesID string
	Kind     Kind
	Params   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s(%s)", k.SeriesID, k.Kind, k.Params)
}

// CacheStats reports cache usage
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// Cache stores whole-series indicator results. Reads of a populated cache
// are safe from many goroutines; concurrent misses on the same key compute
// once.
type Cache struct {
	mutex   sync.RWMutex
	entries map[Key]interface{}
	group   singleflight.Group
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[Key]interface{})}
}

func getOrCompute[T any](c *Cache, key Key, compute func() (T, error)) (T, error) {
	if c == nil {
		return compute()
	}

	c.mutex.RLock()
	v, ok := c.entries[key]
	c.mutex.RUnlock()
	if ok {
		c.hits.Add(1)
		return v.(T), nil
	}

	c.misses.Add(1)
	res, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		c.mutex.RLock()
		existing, ok := c.entries[key]
		c.mutex.RUnlock()
		if ok {
			return existing, nil
		}

		computed, err := compute()
		if err != nil {
			return nil, err
		}
		c.mutex.Lock()
		c.entries[key] = computed
		c.mutex.Unlock()
		return computed, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// GetOrCompute returns the cached series for key or stores the result of compute
func (c *Cache) GetOrCompute(key Key, compute func() (Series, error)) (Series, error) {
	return getOrCompute(c, key, compute)
}

// Invalidate drops every entry belonging to one series
func (c *Cache) Invalidate(seriesID string) {
	if c == nil {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for k := range c.entries {
		if k.SeriesID == seriesID {
			delete(c.entries, k)
		}
	}
}

// Reset drops all entries and statistics
func (c *Cache) Reset() {
	if c == nil {
		return
	}
	c.mutex.Lock()
	c.entries = make(map[Key]interface{})
	c.mutex.Unlock()
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns hit/miss counters and the entry count
func (c *Cache) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	c.mutex.RLock()
	n := len(c.entries)
	c.mutex.RUnlock()
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: n}
}

// SMA returns the close-price SMA for the series
func (c *Cache) SMA(s *types.Series, period int) (Series, error) {
	key := Key{SeriesID: s.ID, Kind: KindSMA, Params: fmt.Sprintf("p=%d", period)}
	return getOrCompute(c, key, func() (Series, error) { return SMA(s.Closes(), period) })
}

// EMA returns the close-price EMA for the series
func (c *Cache) EMA(s *types.Series, period int) (Series, error) {
	key := Key{SeriesID: s.ID, Kind: KindEMA, Params: fmt.Sprintf("p=%d", period)}
	return getOrCompute(c, key, func() (Series, error) { return EMASeries(s.Closes(), period) })
}

// MACD returns the close-price MACD for the series
func (c *Cache) MACD(s *types.Series, fast, slow, signal int) (*MACDResult, error) {
	key := Key{SeriesID: s.ID, Kind: KindMACD, Params: fmt.Sprintf("f=%d,s=%d,sig=%d", fast, slow, signal)}
	return getOrCompute(c, key, func() (*MACDResult, error) { return MACD(s.Closes(), fast, slow, signal) })
}

// RSI returns the close-price RSI for the series
func (c *Cache) RSI(s *types.Series, period int) (Series, error) {
	key := Key{SeriesID: s.ID, Kind: KindRSI, Params: fmt.Sprintf("p=%d", period)}
	return getOrCompute(c, key, func() (Series, error) { return RSI(s.Closes(), period) })
}

// ATR returns the average true range for the series
func (c *Cache) ATR(s *types.Series, period int, mode ATRMode) (Series, error) {
	key := Key{SeriesID: s.ID, Kind: KindATR, Params: fmt.Sprintf("p=%d,m=%s", period, mode)}
	return getOrCompute(c, key, func() (Series, error) { return ATR(s.Candles, period, mode) })
}

// ROC returns the close-price rate of change for the series
func (c *Cache) ROC(s *types.Series, period int) (Series, error) {
	key := Key{SeriesID: s.ID, Kind: KindROC, Params: fmt.Sprintf("p=%d", period)}
	return getOrCompute(c, key, func() (Series, error) { return RateOfChange(s.Closes(), period) })
}
