package lang

import (
	"math"
	"strconv"
	"strings"
)

// FormatNumber returns the shortest decimal form of n that parses back to
// the same value. Negative zero prints as 0.
func FormatNumber(n Number) string {
	f := float64(n)

	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	case f == 0:
		return "0"
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToString coerces v for interpolation into a template or command. Only
// numbers, strings, and bools convert.
func ToString(v Value) (string, error) {
	switch v := v.(type) {
	case Number:
		return FormatNumber(v), nil
	case String:
		return string(v), nil
	case Bool:
		return strconv.FormatBool(bool(v)), nil
	}

	return "", ErrType.Detail("cannot convert " + kindOf(v) + " to String")
}

// Display returns v as print writes it: strings appear without quotes,
// everything else as [Repr].
func Display(v Value) string {
	if s, ok := v.(String); ok {
		return string(s)
	}

	return Repr(v)
}

// Repr returns a readable rendering of v with strings quoted.
func Repr(v Value) string {
	var b strings.Builder

	writeRepr(&b, v, make(map[any]bool))

	return b.String()
}

func writeRepr(b *strings.Builder, v Value, seen map[any]bool) {
	switch v := v.(type) {
	case nil:
		b.WriteString("none")

	case Number:
		b.WriteString(FormatNumber(v))

	case String:
		b.WriteString(strconv.Quote(string(v)))

	case Bool:
		b.WriteString(strconv.FormatBool(bool(v)))

	case Symbol:
		b.WriteString("#" + string(v))

	case *Array:
		if seen[v] {
			b.WriteString("[...]")

			return
		}

		seen[v] = true
		defer delete(seen, v)

		b.WriteByte('[')

		for i, el := range v.Elems {
			if i > 0 {
				b.WriteString(", ")
			}

			writeRepr(b, el, seen)
		}

		b.WriteByte(']')

	case *Scope:
		if seen[v] {
			b.WriteString("{...}")

			return
		}

		seen[v] = true
		defer delete(seen, v)

		if v.Len() == 0 {
			b.WriteString("{}")

			return
		}

		b.WriteString("{ ")

		i := 0
		for name, field := range v.All() {
			if i > 0 {
				b.WriteString(", ")
			}

			b.WriteString(name + " = ")
			writeRepr(b, field, seen)

			i++
		}

		b.WriteString(" }")

	case *Closure:
		b.WriteString("fn " + v.Name + "(" + strings.Join(v.Params, ", ") + ")")

	case *Builtin:
		b.WriteString("builtin " + v.Name)

	case *CommandResult:
		b.WriteString("{ stdout = " + strconv.Quote(v.Stdout) +
			", stderr = " + strconv.Quote(v.Stderr) +
			", code = " + strconv.Itoa(v.Code) + " }")

	case *AsyncHandle:
		state := "running"
		if v.Done() {
			state = "done"
		}

		b.WriteString("async(" + strconv.Quote(v.Text()) + ", " + state + ")")

	case Result:
		if v.Ok {
			b.WriteString("Ok(")
		} else {
			b.WriteString("Error(")
		}

		writeRepr(b, v.Value, seen)
		b.WriteByte(')')

	case Option:
		if !v.Some {
			b.WriteString("none")

			return
		}

		b.WriteString("Some(")
		writeRepr(b, v.Value, seen)
		b.WriteByte(')')
	}
}
