package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const backupSuffix = ".bak"

// BackupPath returns the backup file path for a state file path.
func BackupPath(statePath string) string {
	return statePath + backupSuffix
}

// backup copies the current state file to state.json.bak. A missing state
// file is not an error.
func (s *Store) backup() error {
	data, err := os.ReadFile(s.statePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state for backup: %w", err)
	}
	return writeAtomic(BackupPath(s.statePath), data)
}

// LoadBackup reads the backup next to statePath. It returns nil, nil when
// no backup exists.
func LoadBackup(statePath string) (*State, error) {
	data, err := os.ReadFile(BackupPath(statePath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}
	st := NewState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("failed to parse backup: %w", err)
	}
	return st, nil
}
