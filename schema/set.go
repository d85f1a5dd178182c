package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Set is an unordered collection of unique comparable scalars (strings, numbers, bools, UUIDs).
// Integer members are stored as int64 so that 1, int64(1) and uint8(1) are the same member.
type Set map[any]struct{}

func NewSet(items ...any) Set {
	s := make(Set, len(items))
	for _, i := range items {
		s.Add(i)
	}
	return s
}

func (s Set) Add(item any) {
	s[normalizeMember(item)] = struct{}{}
}

func (s Set) Contains(item any) bool {
	_, ok := s[normalizeMember(item)]
	return ok
}

// Items returns the members in a stable order.
func (s Set) Items() []any {
	out := make([]any, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
	})
	return out
}

func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for k := range s {
		if _, ok := o[k]; !ok {
			return false
		}
	}
	return true
}

func (s Set) specName() string {
	items := s.Items()
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = fmt.Sprintf("%v", it)
	}
	return "{" + strings.Join(names, ", ") + "}"
}

func normalizeMember(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return uint64ToMember(uint64(n))
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return uint64ToMember(n)
	case float32:
		return float64(n)
	}
	return v
}

func uint64ToMember(n uint64) any {
	if n <= 1<<63-1 {
		return int64(n)
	}
	return n
}
