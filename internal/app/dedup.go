package app

import (
	"sync"
	"time"
)

// DedupRegistry records alert keys so each one fires at most once within
// its horizon. Entries are removed by Sweep, never on lookup, so a key
// stays suppressed for at least the horizon.
type DedupRegistry struct {
	mu      sync.Mutex
	horizon time.Duration
	entries map[string]time.Time
}

func NewDedupRegistry(horizon time.Duration) *DedupRegistry {
	return &DedupRegistry{
		horizon: horizon,
		entries: make(map[string]time.Time),
	}
}

// SeenBefore reports whether the key was already recorded and records it
// if not. The first call for a key returns false, every later call true.
func (d *DedupRegistry) SeenBefore(key string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.entries[key]; ok {
		return true
	}
	d.entries[key] = now
	return false
}

// Sweep drops entries recorded before now minus the horizon.
func (d *DedupRegistry) Sweep(now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := now.Add(-d.horizon)
	removed := 0
	for key, at := range d.entries {
		if at.Before(cutoff) {
			delete(d.entries, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of live entries.
func (d *DedupRegistry) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
