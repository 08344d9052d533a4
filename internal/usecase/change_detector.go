package usecase

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ChangeDetector fingerprints successive feed payloads and counts how many
// cycles in a row nothing changed. The scheduler maps that count onto its
// backoff tiers.
type ChangeDetector struct {
	mu             sync.Mutex
	seen           bool
	lastPrint      uint64
	unchangedCount int
}

func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{}
}

// Observe records one payload. The first observation always counts as a
// change.
func (d *ChangeDetector) Observe(raw []byte) (changed bool, unchangedCount int) {
	print := xxhash.Sum64(raw)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seen && print == d.lastPrint {
		d.unchangedCount++
		return false, d.unchangedCount
	}

	d.seen = true
	d.lastPrint = print
	d.unchangedCount = 0
	return true, 0
}

// Reset clears the fingerprint so the next observation counts as a change.
func (d *ChangeDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = false
	d.lastPrint = 0
	d.unchangedCount = 0
}
