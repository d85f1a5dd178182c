package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerScenario(t *testing.T) {
	tr := NewTracker()

	assert.Equal(t, Applied, tr.Apply(Delta{Num: 1, IsSnapshot: true, State: map[string]any{"a": 1}}))
	assert.Equal(t, map[string]any{"a": 1}, tr.Current())
	assert.Equal(t, int64(2), tr.Next())

	assert.Equal(t, Applied, tr.Apply(Delta{Num: 2, State: map[string]any{"b": 2}}))
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, tr.Current())
	assert.Equal(t, int64(3), tr.Next())

	assert.Equal(t, Stale, tr.Apply(Delta{Num: 2, State: map[string]any{"b": 99}}))
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, tr.Current())
	assert.Equal(t, int64(3), tr.Next())

	assert.Equal(t, Gap, tr.Apply(Delta{Num: 10, State: map[string]any{"c": 3}}))
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, tr.Current())

	assert.Equal(t, Applied, tr.Apply(Delta{Num: 10, IsSnapshot: true, State: map[string]any{"a": 1, "b": 2, "c": 3}}))
	assert.Equal(t, int64(11), tr.Next())
}

func TestTrackerNeedsBaseline(t *testing.T) {
	tr := NewTracker()
	assert.False(t, tr.Synced())
	assert.Equal(t, Gap, tr.Apply(Delta{Num: 0, State: map[string]any{"a": 1}}))
	assert.Empty(t, tr.Current())
}

func TestPerformDeltaUpdateDeletes(t *testing.T) {
	current := map[string]any{"a": 1, "b": 2}
	PerformDeltaUpdate(current, map[string]any{"a": nil})
	assert.Equal(t, map[string]any{"b": 2}, current)

	PerformDeltaUpdate(current, map[string]any{"b": 3, "c": "x", "missing": nil})
	assert.Equal(t, map[string]any{"b": 3, "c": "x"}, current)
}

func TestParseDelta(t *testing.T) {
	d, err := ParseDelta(map[string]any{"current_num": uint64(7), "is_snapshot": false, "state": map[string]any{}, "extra": 1})
	require.NoError(t, err)
	assert.Equal(t, int64(7), d.Num)

	_, err = ParseDelta(map[string]any{"current_num": "7", "is_snapshot": false, "state": map[string]any{}})
	assert.Error(t, err)
	_, err = ParseDelta(map[string]any{"current_num": 7, "state": map[string]any{}})
	assert.Error(t, err)
}
