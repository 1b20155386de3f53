package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRollingHistory_ValueAsOf(t *testing.T) {
	h := NewRollingHistory()
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	h.Record("m1", base, 100)
	h.Record("m1", base.Add(5*time.Minute), 150)
	h.Record("m1", base.Add(10*time.Minute), 200)

	// Exact hit
	v, ok := h.ValueAsOf("m1", base.Add(5*time.Minute))
	assert.True(t, ok)
	assert.Equal(t, 150.0, v)

	// Between samples picks the earlier one
	v, ok = h.ValueAsOf("m1", base.Add(7*time.Minute))
	assert.True(t, ok)
	assert.Equal(t, 150.0, v)

	// Before first sample
	_, ok = h.ValueAsOf("m1", base.Add(-time.Minute))
	assert.False(t, ok)

	// Unknown entity
	_, ok = h.ValueAsOf("m2", base)
	assert.False(t, ok)
}

func TestRollingHistory_Latest(t *testing.T) {
	h := NewRollingHistory()
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	_, ok := h.Latest("m1")
	assert.False(t, ok)

	h.Record("m1", base, 100)
	h.Record("m1", base.Add(time.Minute), 110)

	v, ok := h.Latest("m1")
	assert.True(t, ok)
	assert.Equal(t, 110.0, v)
}

func TestRollingHistory_RetentionOnRecord(t *testing.T) {
	h := NewRollingHistory()
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	h.Record("m1", base, 100)
	h.Record("m1", base.Add(25*time.Hour), 200)

	// The day-old sample is gone
	_, ok := h.ValueAsOf("m1", base)
	assert.False(t, ok)

	v, ok := h.Latest("m1")
	assert.True(t, ok)
	assert.Equal(t, 200.0, v)
}

func TestRollingHistory_Sweep(t *testing.T) {
	h := NewRollingHistory()
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	h.Record("stale", base, 100)
	h.Record("fresh", base.Add(23*time.Hour), 200)
	assert.Equal(t, 2, h.EntityCount())

	h.Sweep(base.Add(25 * time.Hour))
	assert.Equal(t, 1, h.EntityCount())

	_, ok := h.Latest("stale")
	assert.False(t, ok)
	_, ok = h.Latest("fresh")
	assert.True(t, ok)
}
