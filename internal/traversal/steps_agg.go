package traversal

import (
	"github.com/helix-kernel/helix/internal/kernelerrors"
	"github.com/helix-kernel/helix/internal/value"
)

func groupKey(accessors []Accessor, v Value) ([]value.Value, bool) {
	key := make([]value.Value, len(accessors))
	for i, acc := range accessors {
		got, ok := acc(v)
		if !ok {
			return nil, false
		}
		key[i] = got
	}
	return key, true
}

func keysEqual(a, b []value.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func groupBy(accessors []Accessor) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		var groups []Group
		for _, v := range in {
			key, ok := groupKey(accessors, v)
			if !ok {
				continue
			}
			found := false
			for i := range groups {
				if keysEqual(groups[i].Key, key) {
					groups[i].Items = append(groups[i].Items, v)
					groups[i].Count++
					found = true
					break
				}
			}
			if !found {
				groups = append(groups, Group{Key: key, Items: []Value{v}, Count: 1})
			}
		}
		out := make([]Value, len(groups))
		for i, g := range groups {
			out[i] = GroupValue(g)
		}
		return out, nil
	}
}

// GROUP_BY hash-aggregates input elements by the tuple of accessors.
func GROUP_BY(keys ...Accessor) Step { return groupBy(keys) }

// AGGREGATE_BY is GROUP_BY with an explicit count; the engine's Group
// carries Count alongside Items unconditionally, so the two steps share
// one implementation.
func AGGREGATE_BY(keys ...Accessor) Step { return groupBy(keys) }

// COUNT materializes the input length as a single Scalar.
func COUNT() Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		return []Value{ScalarValue(value.Int64(int64(len(in))))}, nil
	}
}

// FIRST returns the first input element, or Empty if in is empty,
// terminating the producer.
func FIRST() Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		if len(in) == 0 {
			return []Value{Empty()}, nil
		}
		return []Value{in[0]}, nil
	}
}

// RANGE returns the half-open, 0-based subsequence in[a:b].
func RANGE(a, b int) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		if a < 0 {
			a = 0
		}
		if b > len(in) {
			b = len(in)
		}
		if a >= b {
			return nil, nil
		}
		out := make([]Value, b-a)
		copy(out, in[a:b])
		return out, nil
	}
}

// INTERSECT returns the subset of in whose ID also appears in sub's
// output (sub is run with no seed, i.e. as an independent producer).
func INTERSECT(sub ...Step) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		other, err := e.Run(sub...)
		if err != nil {
			return nil, err
		}
		ids := make(map[string]bool, len(other))
		for _, v := range other {
			if id, ok := v.ID(); ok {
				ids[id.String()] = true
			}
		}
		var out []Value
		for _, v := range in {
			id, ok := v.ID()
			if !ok {
				return nil, kernelerrors.TypeMismatch("INTERSECT requires elements with an identity")
			}
			if ids[id.String()] {
				out = append(out, v)
			}
		}
		return out, nil
	}
}
