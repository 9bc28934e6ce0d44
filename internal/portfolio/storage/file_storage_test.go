package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/regime-backtester/internal/portfolio"
)

func sampleLedger() *portfolio.LedgerState {
	buy := &portfolio.Trade{ID: "T000001", Type: portfolio.TradeBuy, Index: 1, Price: 100, AssetAmount: 10, CashAmount: 1000}
	sell := &portfolio.Trade{ID: "T000002", Type: portfolio.TradeSell, Index: 2, Price: 110, AssetAmount: 10, CashAmount: 1100, PnL: 100}
	return &portfolio.LedgerState{
		InitialCapital: 5000,
		Portfolio: portfolio.Portfolio{
			Cash: 5100, TotalValue: 5100, InitialCapital: 5000,
			TradeCount: 2, WinCount: 1, SellCount: 1,
		},
		Trades: []*portfolio.Trade{buy, sell},
	}
}

// TestFileStorageRoundTrip tests save and load through a temp directory
func TestFileStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "ledger.json")
	store, err := NewFileStorage(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(sampleLedger()))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, ledgerVersion, loaded.Version)
	assert.Len(t, loaded.Trades, 2)
	assert.Equal(t, 5100.0, loaded.Portfolio.Cash)

	backup, err := store.BackupState()
	require.NoError(t, err)
	assert.FileExists(t, backup)
}

func TestFileStorageRejectsInconsistentLedger(t *testing.T) {
	store, err := NewFileStorage(filepath.Join(t.TempDir(), "ledger.json"))
	require.NoError(t, err)

	state := sampleLedger()
	state.Portfolio.Cash = 9999
	require.NoError(t, store.Save(state))

	_, err = store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cash mismatch")
}

func TestFileStorageErrors(t *testing.T) {
	store, err := NewFileStorage(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	_, err = store.Load()
	assert.Error(t, err)
	assert.Error(t, store.Save(nil))

	require.NoError(t, os.WriteFile(store.Path(), []byte("{"), 0o644))
	_, err = store.Load()
	assert.Error(t, err)
}
