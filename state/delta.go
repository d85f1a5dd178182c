package state

import (
	"fmt"
	"math"

	"github.com/dermesser/svcframe/schema"
)

// The arguments every delta frame and snapshot reply carries.
const (
	ArgCurrentNum = "current_num"
	ArgIsSnapshot = "is_snapshot"
	ArgState      = "state"
)

var deltaStateArguments = schema.Contract{
	Required: schema.Sections{
		ArgCurrentNum: schema.Int,
		ArgIsSnapshot: schema.Bool,
		ArgState:      schema.Dict,
	},
}

// Delta is one decoded delta frame.
type Delta struct {
	Num        int64
	IsSnapshot bool
	State      map[string]any
}

// ParseDelta reads a validated delta payload.
func ParseDelta(args map[string]any) (Delta, error) {
	if err := deltaStateArguments.Validate(pick(args, ArgCurrentNum, ArgIsSnapshot, ArgState)); err != nil {
		return Delta{}, err
	}

	num, err := toInt64(args[ArgCurrentNum])

	if err != nil {
		return Delta{}, err
	}

	return Delta{
		Num:        num,
		IsSnapshot: args[ArgIsSnapshot].(bool),
		State:      args[ArgState].(map[string]any),
	}, nil
}

func (d Delta) Args() map[string]any {
	return map[string]any{
		ArgCurrentNum: d.Num,
		ArgIsSnapshot: d.IsSnapshot,
		ArgState:      d.State,
	}
}

func pick(m map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return uintToInt64(uint64(n))
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return uintToInt64(n)
	}
	return 0, fmt.Errorf("%s is %T, not an integer", ArgCurrentNum, v)
}

func uintToInt64(n uint64) (int64, error) {
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%s %d out of range", ArgCurrentNum, n)
	}
	return int64(n), nil
}

// PerformDeltaUpdate merges delta into current: a nil value deletes the key, anything else
// overwrites it.
func PerformDeltaUpdate(current, delta map[string]any) {
	for k, v := range delta {
		if v == nil {
			delete(current, k)
		} else {
			current[k] = v
		}
	}
}

// Outcome is what Tracker.Apply did with a frame.
type Outcome int

const (
	// Applied: snapshot installed or delta merged.
	Applied Outcome = iota
	// Stale: delta older than expected, dropped.
	Stale
	// Gap: delta newer than expected, dropped; a snapshot is needed.
	Gap
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Stale:
		return "stale"
	case Gap:
		return "gap"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Tracker is the receiving side's state machine over (next expected number, current state).
// The state is always one snapshot plus the in-order deltas since. It is not safe for
// concurrent use.
type Tracker struct {
	synced  bool
	next    int64
	current map[string]any
}

func NewTracker() *Tracker {
	return &Tracker{current: map[string]any{}}
}

// Apply feeds one frame into the tracker. Before the first snapshot every delta is a Gap.
func (t *Tracker) Apply(d Delta) Outcome {
	if d.IsSnapshot {
		t.current = copyState(d.State)
		t.next = d.Num + 1
		t.synced = true
		return Applied
	}

	if !t.synced || d.Num > t.next {
		return Gap
	}
	if d.Num < t.next {
		return Stale
	}

	PerformDeltaUpdate(t.current, d.State)
	t.next++
	return Applied
}

// Next returns the number of the next expected delta.
func (t *Tracker) Next() int64 {
	return t.next
}

func (t *Tracker) Synced() bool {
	return t.synced
}

func (t *Tracker) Current() map[string]any {
	return copyState(t.current)
}
