package traversal

import (
	"math"

	"github.com/helix-kernel/helix/internal/value"
)

// Expr evaluates to a scalar value.Value given the current pipeline
// element, used both standalone (as a projected field's sub-expression)
// and as an operand to the arithmetic combinators below. It mirrors
// Accessor's shape deliberately: a projection field is "just" an Expr
// whose result becomes a Map entry.
type Expr func(v Value) value.Value

// PropExpr reads a named property as an Expr, for use inside Project.
func PropExpr(name string) Expr {
	return func(v Value) value.Value {
		props := v.Properties()
		if props == nil {
			return value.Null()
		}
		if got, ok := props[name]; ok {
			return got
		}
		return value.Null()
	}
}

// ConstExpr always evaluates to c, for literal operands in arithmetic.
func ConstExpr(c value.Value) Expr {
	return func(Value) value.Value { return c }
}

func binaryFloat(a, b Expr, f func(x, y float64) float64) Expr {
	return func(v Value) value.Value {
		x, ok1 := a(v).AsFloat64()
		y, ok2 := b(v).AsFloat64()
		if !ok1 || !ok2 {
			return value.Null()
		}
		return value.Float64(f(x, y))
	}
}

func unaryFloat(a Expr, f func(x float64) float64) Expr {
	return func(v Value) value.Value {
		x, ok := a(v).AsFloat64()
		if !ok {
			return value.Null()
		}
		return value.Float64(f(x))
	}
}

// ADD, SUB, MUL, DIV, MOD, POW are the binary arithmetic
// operators available in projections. DIV and MOD by zero
// evaluate to NaN rather than erroring; a surrounding Project step
// turns a NaN anywhere in a row into an Empty row (see below).
func ADD(a, b Expr) Expr { return binaryFloat(a, b, func(x, y float64) float64 { return x + y }) }
func SUB(a, b Expr) Expr { return binaryFloat(a, b, func(x, y float64) float64 { return x - y }) }
func MUL(a, b Expr) Expr { return binaryFloat(a, b, func(x, y float64) float64 { return x * y }) }

func DIV(a, b Expr) Expr {
	return binaryFloat(a, b, func(x, y float64) float64 {
		if y == 0 {
			return math.NaN()
		}
		return x / y
	})
}

func MOD(a, b Expr) Expr { return binaryFloat(a, b, math.Mod) }
func POW(a, b Expr) Expr { return binaryFloat(a, b, math.Pow) }

func ABS(a Expr) Expr   { return unaryFloat(a, math.Abs) }
func LN(a Expr) Expr    { return unaryFloat(a, math.Log) }
func LOG(a Expr) Expr   { return unaryFloat(a, math.Log) }
func LOG10(a Expr) Expr { return unaryFloat(a, math.Log10) }
func EXP(a Expr) Expr   { return unaryFloat(a, math.Exp) }
func SQRT(a Expr) Expr  { return unaryFloat(a, math.Sqrt) }
func CEIL(a Expr) Expr  { return unaryFloat(a, math.Ceil) }
func FLOOR(a Expr) Expr { return unaryFloat(a, math.Floor) }
func ROUND(a Expr) Expr { return unaryFloat(a, math.Round) }
func SIN(a Expr) Expr   { return unaryFloat(a, math.Sin) }
func COS(a Expr) Expr   { return unaryFloat(a, math.Cos) }
func TAN(a Expr) Expr   { return unaryFloat(a, math.Tan) }
func ASIN(a Expr) Expr  { return unaryFloat(a, math.Asin) }
func ACOS(a Expr) Expr  { return unaryFloat(a, math.Acos) }
func ATAN(a Expr) Expr  { return unaryFloat(a, math.Atan) }

func ATAN2(a, b Expr) Expr { return binaryFloat(a, b, math.Atan2) }

// PI and EULER are nullary constant Exprs, useful as ATAN2/POW operands.
func PI() Expr    { return ConstExpr(value.Float64(math.Pi)) }
func EULER() Expr { return ConstExpr(value.Float64(math.E)) }

// Project remaps each input element to a Map of named fields evaluated
// from fields, the `{name: sub_expr, ...}` projection form. A row any
// of whose field Exprs evaluates to NaN (division by zero and friends)
// is projected as a single Empty value, not a map carrying NaN. If
// includeRest is true, every unmapped property of the source element
// (its "..") is copied into the result map first, so explicit fields
// can still override them.
func Project(fields map[string]Expr, includeRest bool) Step {
	return func(e *Engine, in []Value) ([]Value, error) {
		out := make([]Value, 0, len(in))
		for _, v := range in {
			m := make(map[string]Value)
			if includeRest {
				for k, pv := range v.Properties() {
					m[k] = ScalarValue(pv)
				}
			}
			nan := false
			for name, expr := range fields {
				result := expr(v)
				if f, ok := result.AsFloat64(); ok && math.IsNaN(f) {
					nan = true
					break
				}
				m[name] = ScalarValue(result)
			}
			if nan {
				out = append(out, Empty())
				continue
			}
			out = append(out, MapValue(m))
		}
		return out, nil
	}
}
