package traversal

import (
	"github.com/helix-kernel/helix/internal/kernelerrors"
	"github.com/helix-kernel/helix/internal/value"
)

// Predicate tests a single Value, used by WHERE and the comparison/
// boolean combinators. The query language's analyzer is responsible for
// compiling its boolean expressions down to a Predicate; the engine only
// needs to evaluate one per element.
type Predicate func(e *Engine, v Value) (bool, error)

// WHERE eagerly filters in by pred.
func WHERE(pred Predicate) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		var out []Value
		for _, v := range in {
			ok, err := pred(e, v)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, v)
			}
		}
		return out, nil
	}
}

func seed(v Value) Step {
	return func(*Engine, []Value) ([]Value, error) {
		return []Value{v}, nil
	}
}

// Exists returns a Predicate that short-circuits true as soon as sub,
// re-seeded with the tested element, yields anything.
func Exists(sub ...Step) Predicate {
	return func(e *Engine, v Value) (bool, error) {
		out, err := e.Run(append([]Step{seed(v)}, sub...)...)
		if err != nil {
			return false, err
		}
		return len(out) > 0, nil
	}
}

// EXISTS is the step form of Exists: each input element is replaced by
// a boolean scalar reporting whether sub yields anything when seeded
// with that element.
func EXISTS(sub ...Step) Step {
	pred := Exists(sub...)
	return func(e *Engine, in []Value) ([]Value, error) {
		out := make([]Value, len(in))
		for i, v := range in {
			ok, err := pred(e, v)
			if err != nil {
				return nil, err
			}
			out[i] = BoolValue(ok)
		}
		return out, nil
	}
}

// And combines predicates with short-circuit evaluation.
func And(preds ...Predicate) Predicate {
	return func(e *Engine, v Value) (bool, error) {
		for _, p := range preds {
			ok, err := p(e, v)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
}

// Or combines predicates with short-circuit evaluation.
func Or(preds ...Predicate) Predicate {
	return func(e *Engine, v Value) (bool, error) {
		for _, p := range preds {
			ok, err := p(e, v)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

// Not negates pred.
func Not(pred Predicate) Predicate {
	return func(e *Engine, v Value) (bool, error) {
		ok, err := pred(e, v)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}
}

// Accessor extracts the scalar value a comparison predicate compares,
// e.g. a property access or the element's own Scalar.
type Accessor func(v Value) (value.Value, bool)

// Prop accesses a named property on a Node/Edge/Vector element.
func Prop(name string) Accessor {
	return func(v Value) (value.Value, bool) {
		props := v.Properties()
		if props == nil {
			return value.Value{}, false
		}
		p, ok := props[name]
		return p, ok
	}
}

// Self accesses a Scalar element directly, for comparisons over
// projection results rather than stored properties.
func Self() Accessor {
	return func(v Value) (value.Value, bool) {
		if v.Kind != KindScalar {
			return value.Value{}, false
		}
		return v.Scalar, true
	}
}

func compare(acc Accessor, target value.Value, ok func(int) bool) Predicate {
	return func(e *Engine, v Value) (bool, error) {
		got, present := acc(v)
		if !present {
			return false, nil
		}
		cmp, err := value.Compare(got, target)
		if err != nil {
			return false, kernelerrors.TypeMismatch(err.Error())
		}
		return ok(cmp), nil
	}
}

func EQ(acc Accessor, target value.Value) Predicate {
	return func(e *Engine, v Value) (bool, error) {
		got, present := acc(v)
		if !present {
			return false, nil
		}
		return got.Equal(target), nil
	}
}

func NEQ(acc Accessor, target value.Value) Predicate {
	eq := EQ(acc, target)
	return Not(eq)
}

func LT(acc Accessor, target value.Value) Predicate {
	return compare(acc, target, func(c int) bool { return c < 0 })
}

func LTE(acc Accessor, target value.Value) Predicate {
	return compare(acc, target, func(c int) bool { return c <= 0 })
}

func GT(acc Accessor, target value.Value) Predicate {
	return compare(acc, target, func(c int) bool { return c > 0 })
}

func GTE(acc Accessor, target value.Value) Predicate {
	return compare(acc, target, func(c int) bool { return c >= 0 })
}

// IsIn reports whether the accessed value equals any of targets.
func IsIn(acc Accessor, targets []value.Value) Predicate {
	return func(e *Engine, v Value) (bool, error) {
		got, present := acc(v)
		if !present {
			return false, nil
		}
		for _, t := range targets {
			if got.Equal(t) {
				return true, nil
			}
		}
		return false, nil
	}
}
