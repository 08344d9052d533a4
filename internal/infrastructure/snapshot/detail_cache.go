package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileDetailCache stores raw per-match scorecard blobs as one file per match
// under a subdirectory of the data dir.
type FileDetailCache struct {
	dir string
}

func NewFileDetailCache(dir string) (*FileDetailCache, error) {
	if dir == "" {
		return nil, fmt.Errorf("detail cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create detail cache directory: %w", err)
	}
	return &FileDetailCache{dir: dir}, nil
}

func (c *FileDetailCache) WriteDetail(matchID string, raw []byte) error {
	if matchID == "" {
		return fmt.Errorf("match id is required")
	}
	return writeFileAtomic(c.pathFor(matchID), raw)
}

// ReadDetail returns the stored blob, or os.ErrNotExist-wrapping error when
// the match has no cached scorecard.
func (c *FileDetailCache) ReadDetail(matchID string) ([]byte, error) {
	raw, err := os.ReadFile(c.pathFor(matchID))
	if err != nil {
		return nil, fmt.Errorf("read scorecard detail: %w", err)
	}
	return raw, nil
}

// Prune removes cached scorecards for matches no longer present in the feed.
func (c *FileDetailCache) Prune(activeIDs map[string]struct{}) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("list detail cache: %w", err)
	}

	// File names hold the flattened form of the ID, so compare in that form.
	keep := make(map[string]struct{}, len(activeIDs))
	for id := range activeIDs {
		keep[flattenID(id)] = struct{}{}
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if _, ok := keep[strings.TrimSuffix(name, ".json")]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale detail %s: %w", name, err)
		}
	}
	return nil
}

func (c *FileDetailCache) pathFor(matchID string) string {
	return filepath.Join(c.dir, flattenID(matchID)+".json")
}

// flattenID turns a match ID into a safe file name.
func flattenID(matchID string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '.', ' ':
			return '_'
		default:
			return r
		}
	}, matchID)
}
