package snapshot

import (
	"fmt"
	"os"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/stumpwatch/stumpwatch/internal/usecase"
)

// CounterFile persists the failure-escalation counter beside the snapshot
// with the same atomic-replace semantics.
type CounterFile struct {
	path string
	mu   sync.Mutex
}

func NewCounterFile(path string) (*CounterFile, error) {
	if path == "" {
		return nil, fmt.Errorf("counter path is required")
	}
	return &CounterFile{path: path}, nil
}

// Load reads the counter. A missing file is a zero counter, not an error.
func (c *CounterFile) Load() (usecase.FailureCounter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return usecase.FailureCounter{}, nil
	}
	if err != nil {
		return usecase.FailureCounter{}, fmt.Errorf("read failure counter: %w", err)
	}

	var counter usecase.FailureCounter
	if err := sonic.Unmarshal(raw, &counter); err != nil {
		return usecase.FailureCounter{}, fmt.Errorf("decode failure counter: %w", err)
	}
	return counter, nil
}

func (c *CounterFile) Store(counter usecase.FailureCounter) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	encoded, err := sonic.MarshalIndent(counter, "", "  ")
	if err != nil {
		return fmt.Errorf("encode failure counter: %w", err)
	}
	return writeFileAtomic(c.path, encoded)
}
