package data

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// MemoryCache is a DataCache that hands out copies so callers cannot
// corrupt cached candles
type MemoryCache struct {
	mutex   sync.RWMutex
	entries map[string][]types.PriceCandle
}

// NewMemoryCache creates an empty cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]types.PriceCandle)}
}

func (c *MemoryCache) Get(key string) ([]types.PriceCandle, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	candles, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return append([]types.PriceCandle(nil), candles...), true
}

func (c *MemoryCache) Set(key string, candles []types.PriceCandle) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[key] = append([]types.PriceCandle(nil), candles...)
}

func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries = make(map[string][]types.PriceCandle)
}

func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// CachedProvider memoizes file loads. Entries are keyed by absolute path,
// size and modification time, so a rewritten file is read again.
// Concurrent loads of the same file share one read.
type CachedProvider struct {
	provider DataProvider
	cache    DataCache
	group    singleflight.Group
	logger   zerolog.Logger
}

// NewCachedProvider wraps provider with an in-memory cache
func NewCachedProvider(provider DataProvider, logger zerolog.Logger) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    NewMemoryCache(),
		logger:   logger,
	}
}

func (p *CachedProvider) GetName() string {
	return "cached " + p.provider.GetName()
}

// LoadData returns cached candles while the file is unchanged
func (p *CachedProvider) LoadData(source string) ([]types.PriceCandle, error) {
	key, err := fileKey(source)
	if err != nil {
		// let the provider report the missing file in its own terms
		return p.provider.LoadData(source)
	}
	if cached, ok := p.cache.Get(key); ok {
		return cached, nil
	}

	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		candles, err := p.provider.LoadData(source)
		if err != nil {
			return nil, err
		}
		p.cache.Set(key, candles)
		return candles, nil
	})
	if err != nil {
		p.logger.Error().Err(err).Str("source", filepath.Base(source)).Msg("failed to load data")
		return nil, err
	}

	candles := v.([]types.PriceCandle)
	p.logger.Debug().Str("source", filepath.Base(source)).Int("records", len(candles)).Msg("data cached")
	return append([]types.PriceCandle(nil), candles...), nil
}

// ClearCache drops every cached file
func (p *CachedProvider) ClearCache() {
	p.cache.Clear()
}

// GetCacheSize returns the number of cached file versions
func (p *CachedProvider) GetCacheSize() int {
	return p.cache.Size()
}

func fileKey(source string) (string, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s|%d|%d", abs, info.Size(), info.ModTime().UnixNano()), nil
}
