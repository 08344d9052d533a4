// Package snapshot persists the published feed state as human-readable JSON
// files. Every write goes to a temp file in the same directory followed by a
// rename, so readers never observe a half-written file.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/stumpwatch/stumpwatch/internal/domain/match"
	"github.com/stumpwatch/stumpwatch/internal/platform/logging"
)

const staleTimeLayout = "2006-01-02 15:04:05 MST"

// Store owns the snapshot file.
type Store struct {
	path   string
	logger *logging.Logger
	mu     sync.Mutex
}

func NewStore(path string, logger *logging.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &Store{path: path, logger: logger}, nil
}

// Write replaces the snapshot atomically.
func (s *Store) Write(snapshot match.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(s.path, encodeSnapshot(snapshot))
}

// Read loads the current snapshot. A missing file is an error the caller
// decides how to treat.
func (s *Store) Read() (match.Snapshot, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return match.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snapshot match.Snapshot
	if err := sonic.Unmarshal(raw, &snapshot); err != nil {
		return match.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snapshot, nil
}

// ModTime returns the snapshot file's last modification time, used by the
// serving layer as a cache key.
func (s *Store) ModTime() (time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// AnnotateStale marks the existing snapshot as last-checked without touching
// its matches. Called when a fetch cycle fails; stale data stays served
// rather than being replaced with nothing. No snapshot yet means nothing to
// annotate.
func (s *Store) AnnotateStale(checkedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot match.Snapshot
	if err := sonic.Unmarshal(raw, &snapshot); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	snapshot.StaleSince = checkedAt.UTC().Format(staleTimeLayout)
	return writeFileAtomic(s.path, encodeSnapshot(snapshot))
}

func encodeSnapshot(snapshot match.Snapshot) []byte {
	encoded, err := sonic.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		// Snapshot is plain structs; this cannot fail in practice.
		encoded = []byte("{}")
	}
	return encoded
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}
