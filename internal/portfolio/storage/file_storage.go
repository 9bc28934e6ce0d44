package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ducminhle1904/regime-backtester/internal/portfolio"
)

// ledgerVersion is bumped when LedgerState changes shape
const ledgerVersion = "1.0"

// reconcileTolerance bounds float drift between the ledger replay and the
// stored portfolio
const reconcileTolerance = 1e-6

// FileStorage implements portfolio.LedgerStore as a JSON file
type FileStorage struct {
	mu       sync.RWMutex
	filePath string
}

// NewFileStorage creates a file-based ledger store
func NewFileStorage(filePath string) (*FileStorage, error) {
	if filePath == "" {
		filePath = "ledger.json"
	}

	dir := filepath.Dir(filePath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	return &FileStorage{filePath: filePath}, nil
}

// Path returns the backing file
func (f *FileStorage) Path() string {
	return f.filePath
}

// Save writes the ledger atomically
func (f *FileStorage) Save(state *portfolio.LedgerState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if state == nil {
		return fmt.Errorf("cannot save nil ledger")
	}

	state.Version = ledgerVersion
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	// Write to temporary file first
	tempFile := f.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary ledger file: %w", err)
	}

	if err := os.Rename(tempFile, f.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to commit ledger file: %w", err)
	}

	return nil
}

// Load reads the ledger and checks that its trades reproduce the stored
// portfolio
func (f *FileStorage) Load() (*portfolio.LedgerState, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var state portfolio.LedgerState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger: %w", err)
	}

	if err := validateState(&state); err != nil {
		return nil, fmt.Errorf("invalid ledger: %w", err)
	}

	return &state, nil
}

// BackupState copies the current ledger next to itself with a timestamp
// suffix and returns the backup path
func (f *FileStorage) BackupState() (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read ledger for backup: %w", err)
	}

	backupPath := fmt.Sprintf("%s.backup_%s", f.filePath, time.Now().Format("20060102_150405"))
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	return backupPath, nil
}

func validateState(state *portfolio.LedgerState) error {
	if state.Version != ledgerVersion {
		return fmt.Errorf("unsupported version %q", state.Version)
	}
	if state.InitialCapital <= 0 {
		return fmt.Errorf("invalid initial capital: %.2f", state.InitialCapital)
	}
	for i, t := range state.Trades {
		if t == nil {
			return fmt.Errorf("nil trade at %d", i)
		}
	}
	return portfolio.Reconcile(state.InitialCapital, state.Trades).Verify(&state.Portfolio, reconcileTolerance)
}
