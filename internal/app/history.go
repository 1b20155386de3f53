package app

import (
	"sync"
	"time"
)

// historyRetention bounds how far back any series keeps samples.
const historyRetention = 24 * time.Hour

type historySample struct {
	at    time.Time
	value float64
}

// RollingHistory keeps a time series of float samples per entity. Samples
// older than 24 hours are dropped on every Record and on Sweep.
type RollingHistory struct {
	mu     sync.RWMutex
	series map[string][]historySample
}

func NewRollingHistory() *RollingHistory {
	return &RollingHistory{
		series: make(map[string][]historySample),
	}
}

// Record appends a sample and prunes anything past retention for that entity.
func (h *RollingHistory) Record(entity string, at time.Time, value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	samples := append(h.series[entity], historySample{at: at, value: value})

	cutoff := at.Add(-historyRetention)
	start := 0
	for start < len(samples) && !samples[start].at.After(cutoff) {
		start++
	}
	h.series[entity] = samples[start:]
}

// ValueAsOf returns the most recent sample recorded at or before t.
// ok is false when the entity has no sample that old.
func (h *RollingHistory) ValueAsOf(entity string, t time.Time) (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	samples := h.series[entity]
	for i := len(samples) - 1; i >= 0; i-- {
		if !samples[i].at.After(t) {
			return samples[i].value, true
		}
	}
	return 0, false
}

// Latest returns the newest sample for the entity.
func (h *RollingHistory) Latest(entity string) (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	samples := h.series[entity]
	if len(samples) == 0 {
		return 0, false
	}
	return samples[len(samples)-1].value, true
}

// Sweep drops expired samples across all entities and removes empty series.
func (h *RollingHistory) Sweep(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := now.Add(-historyRetention)
	for entity, samples := range h.series {
		start := 0
		for start < len(samples) && !samples[start].at.After(cutoff) {
			start++
		}
		if start == len(samples) {
			delete(h.series, entity)
			continue
		}
		h.series[entity] = samples[start:]
	}
}

// EntityCount returns the number of entities with at least one sample.
func (h *RollingHistory) EntityCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.series)
}
