package lang

import (
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/ardnew/cmds/lang/token"
)

// maxRange bounds the number of elements a range expression may produce.
const maxRange = 1 << 24

func kindOf(v Value) string {
	if v == nil {
		return "None"
	}

	return v.Kind().String()
}

func opError(op token.Kind, a, b Value) *Error {
	return ErrType.Detail("invalid operands for " + op.String() + ": " +
		kindOf(a) + " and " + kindOf(b))
}

// unary applies a prefix operator.
func unary(op token.Kind, v Value) (Value, error) {
	switch op {
	case token.Minus:
		n, ok := v.(Number)
		if !ok {
			return nil, ErrType.Detail("cannot negate " + kindOf(v))
		}

		return -n, nil

	case token.Bang:
		return Bool(!Truthy(v)), nil
	}

	return nil, ErrType.Detail("invalid unary operator " + op.String())
}

// binary applies an infix operator other than the short-circuiting && and
// ||, which the evaluator handles itself.
func binary(op token.Kind, a, b Value) (Value, error) {
	switch op {
	case token.Equal:
		return Bool(Equal(a, b)), nil
	case token.NotEqual:
		return Bool(!Equal(a, b)), nil
	case token.Less, token.LessEqual, token.Greater, token.GreaterEqual:
		return compare(op, a, b)
	case token.Range:
		return rangeOf(a, b)
	case token.Plus:
		return add(a, b)
	case token.And:
		return Bool(Truthy(a) && Truthy(b)), nil
	case token.Or:
		return Bool(Truthy(a) || Truthy(b)), nil
	}

	x, xok := a.(Number)
	y, yok := b.(Number)

	if !xok || !yok {
		return nil, opError(op, a, b)
	}

	switch op {
	case token.Minus:
		return x - y, nil
	case token.Star:
		return x * y, nil
	case token.Slash:
		if y == 0 {
			return nil, ErrDivision.Detail(FormatNumber(x) + " / 0")
		}

		return x / y, nil
	case token.Percent:
		if y == 0 {
			return nil, ErrDivision.Detail(FormatNumber(x) + " % 0")
		}

		return Number(math.Mod(float64(x), float64(y))), nil
	case token.Caret:
		return Number(math.Pow(float64(x), float64(y))), nil
	}

	return nil, ErrType.Detail("invalid binary operator " + op.String())
}

// add sums numbers, concatenates arrays, and concatenates strings with the
// string form of a number or bool on the other side.
func add(a, b Value) (Value, error) {
	switch x := a.(type) {
	case Number:
		switch y := b.(type) {
		case Number:
			return x + y, nil
		case String:
			return String(FormatNumber(x)) + y, nil
		}

	case String:
		if s, err := ToString(b); err == nil {
			return x + String(s), nil
		}

	case Bool:
		if y, ok := b.(String); ok {
			s, _ := ToString(x)

			return String(s) + y, nil
		}

	case *Array:
		if y, ok := b.(*Array); ok {
			return NewArray(slices.Concat(x.Elems, y.Elems)...), nil
		}
	}

	return nil, opError(token.Plus, a, b)
}

func compare(op token.Kind, a, b Value) (Value, error) {
	var c int

	switch x := a.(type) {
	case Number:
		y, ok := b.(Number)
		if !ok {
			return nil, opError(op, a, b)
		}

		// NaN compares false with everything.
		if x != x || y != y {
			return Bool(false), nil
		}

		switch {
		case x < y:
			c = -1
		case x > y:
			c = 1
		}

	case String:
		y, ok := b.(String)
		if !ok {
			return nil, opError(op, a, b)
		}

		c = strings.Compare(string(x), string(y))

	default:
		return nil, opError(op, a, b)
	}

	switch op {
	case token.Less:
		return Bool(c < 0), nil
	case token.LessEqual:
		return Bool(c <= 0), nil
	case token.Greater:
		return Bool(c > 0), nil
	default:
		return Bool(c >= 0), nil
	}
}

// rangeOf returns the half-open integer interval [a, b).
func rangeOf(a, b Value) (Value, error) {
	x, xok := a.(Number)
	y, yok := b.(Number)

	if !xok || !yok {
		return nil, opError(token.Range, a, b)
	}

	if !isInt(x) || !isInt(y) {
		return nil, ErrType.Detail("range bounds must be integers")
	}

	if y <= x {
		return NewArray(), nil
	}

	if y-x > maxRange {
		return nil, ErrIndex.
			With(slog.Float64("from", float64(x)), slog.Float64("to", float64(y))).
			Detail("range too large")
	}

	elems := make([]Value, 0, int(y-x))
	for n := x; n < y; n++ {
		elems = append(elems, n)
	}

	return NewArray(elems...), nil
}

func isInt(n Number) bool {
	f := float64(n)

	return !math.IsInf(f, 0) && f == math.Trunc(f)
}

// toIndex converts v to an index into a sequence of length n. Negative
// indexes are not supported.
func toIndex(v Value, n int) (int, error) {
	num, ok := v.(Number)
	if !ok {
		return 0, ErrType.Detail("index must be a Number, got " + kindOf(v))
	}

	if !isInt(num) {
		return 0, ErrType.Detail("index must be an integer, got " + FormatNumber(num))
	}

	if num < 0 || float64(num) >= float64(n) {
		return 0, ErrIndex.
			With(slog.Int("length", n)).
			Detail("index " + FormatNumber(num) + " with length " + FormatNumber(Number(n)))
	}

	return int(num), nil
}

// member returns the field name of v. Objects expose their own bindings;
// command results and async handles expose fixed fields.
func member(v Value, name string) (Value, error) {
	switch v := v.(type) {
	case *Scope:
		if f, ok := v.Get(name); ok {
			return f, nil
		}

	case *CommandResult:
		switch name {
		case "stdout":
			return String(v.Stdout), nil
		case "stderr":
			return String(v.Stderr), nil
		case "code":
			return Number(v.Code), nil
		case "ok":
			return Bool(v.Code == 0), nil
		}

	case *AsyncHandle:
		switch name {
		case "done":
			return Bool(v.Done()), nil
		case "command":
			return String(v.Text()), nil
		}

	case Result:
		if name == "value" {
			return v.Value, nil
		}

	case Option:
		if name == "value" && v.Some {
			return v.Value, nil
		}

	default:
		return nil, ErrType.Detail("cannot access field " + name + " of " + kindOf(v))
	}

	return nil, ErrUndefined.Detail("no field " + name + " in " + kindOf(v))
}

// index returns v[key] for arrays, strings (by character), and objects (by
// field name).
func index(v, key Value) (Value, error) {
	switch v := v.(type) {
	case *Array:
		i, err := toIndex(key, len(v.Elems))
		if err != nil {
			return nil, err
		}

		return v.Elems[i], nil

	case String:
		runes := []rune(string(v))

		i, err := toIndex(key, len(runes))
		if err != nil {
			return nil, err
		}

		return String(runes[i]), nil

	case *Scope:
		name, ok := key.(String)
		if !ok {
			if sym, isSym := key.(Symbol); isSym {
				name, ok = String(sym), true
			}
		}

		if !ok {
			return nil, ErrType.Detail("object key must be a String, got " + kindOf(key))
		}

		return member(v, string(name))
	}

	return nil, ErrType.Detail("cannot index " + kindOf(v))
}

// setIndex stores val at v[key]. Arrays may be written at any existing
// index or appended to at their length.
func setIndex(v, key, val Value) error {
	switch v := v.(type) {
	case *Array:
		if n, ok := key.(Number); ok && int(n) == len(v.Elems) && isInt(n) {
			v.Elems = append(v.Elems, val)

			return nil
		}

		i, err := toIndex(key, len(v.Elems))
		if err != nil {
			return err
		}

		v.Elems[i] = val

		return nil

	case *Scope:
		name, ok := key.(String)
		if !ok {
			return ErrType.Detail("object key must be a String, got " + kindOf(key))
		}

		if !v.Define(string(name), val) {
			return ErrType.Detail("cannot modify built-in object")
		}

		return nil
	}

	return ErrType.Detail("cannot assign to index of " + kindOf(v))
}
