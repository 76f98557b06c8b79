package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	fbErrors "github.com/terassyi/fbinstall/internal/errors"
)

// Store handles state file persistence with file locking.
type Store struct {
	statePath string
	lockPath  string
	fileLock  *flock.Flock
	locked    bool
}

// NewStore creates a Store keeping state.json and state.lock in dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fbErrors.NewStateError("failed to create state directory", err)
	}
	lockPath := filepath.Join(dir, "state.lock")
	return &Store{
		statePath: filepath.Join(dir, "state.json"),
		lockPath:  lockPath,
		fileLock:  flock.New(lockPath),
	}, nil
}

// Lock acquires an exclusive lock and records the PID in the lock file.
// A lock held by another process is reported as a lock error.
func (s *Store) Lock() error {
	if s.locked {
		return nil
	}

	locked, err := s.fileLock.TryLock()
	if err != nil {
		return fbErrors.NewStateError("failed to acquire lock", err)
	}
	if !locked {
		pid, _ := s.readLockPID()
		return fbErrors.NewLockError(s.lockPath, pid)
	}

	if err := os.WriteFile(s.lockPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		_ = s.fileLock.Unlock()
		return fmt.Errorf("failed to write PID to lock file: %w", err)
	}

	s.locked = true
	return nil
}

// Unlock releases the lock.
func (s *Store) Unlock() error {
	if !s.locked {
		return nil
	}
	if err := s.fileLock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	s.locked = false
	return nil
}

// Load reads the state. Must be called after Lock.
func (s *Store) Load() (*State, error) {
	if !s.locked {
		return nil, errors.New("must acquire lock before loading state")
	}
	st, err := s.readState()
	if err != nil {
		return nil, err
	}
	for _, w := range Validate(st).Warnings {
		slog.Warn("state validation warning", "field", w.Field, "message", w.Message)
	}
	return st, nil
}

// LoadReadOnly reads the state without holding the lock.
func (s *Store) LoadReadOnly() (*State, error) {
	return s.readState()
}

// Save backs up the previous state and writes st atomically. Must be
// called after Lock.
func (s *Store) Save(st *State) error {
	if !s.locked {
		return errors.New("must acquire lock before saving state")
	}
	if err := s.backup(); err != nil {
		slog.Warn("failed to back up state", "error", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := writeAtomic(s.statePath, data); err != nil {
		return fbErrors.NewStateError("failed to write state", err)
	}
	return nil
}

// Put loads the state, replaces the record for name and saves it.
func (s *Store) Put(name string, rec *Record) error {
	st, err := s.Load()
	if err != nil {
		return err
	}
	st.Resources[name] = rec
	return s.Save(st)
}

func (s *Store) readState() (*State, error) {
	data, err := os.ReadFile(s.statePath)
	if errors.Is(err, os.ErrNotExist) {
		return NewState(), nil
	}
	if err != nil {
		return nil, fbErrors.NewStateError("failed to read state file", err)
	}

	st := NewState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fbErrors.NewStateError("failed to parse state file", err)
	}
	if st.Resources == nil {
		st.Resources = make(map[string]*Record)
	}
	return st, nil
}

// StatePath returns the path to the state file.
func (s *Store) StatePath() string {
	return s.statePath
}

// LockPath returns the path to the lock file.
func (s *Store) LockPath() string {
	return s.lockPath
}

func (s *Store) readLockPID() (int, error) {
	data, err := os.ReadFile(s.lockPath)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
