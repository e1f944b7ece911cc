package lang

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// FromGo converts a Go value produced by a host, such as the result of a
// --define expression, into a script value. Maps become objects with their
// keys in sorted order.
func FromGo(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return None, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(x), nil
	case int:
		return Number(x), nil
	case int64:
		return Number(x), nil
	case []string:
		elems := make([]Value, len(x))
		for i, s := range x {
			elems[i] = String(s)
		}

		return NewArray(elems...), nil
	}

	rv := reflect.ValueOf(x)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(rv.Int()), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(rv.Uint()), nil

	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil

	case reflect.Slice, reflect.Array:
		elems := make([]Value, rv.Len())

		for i := range elems {
			v, err := FromGo(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}

			elems[i] = v
		}

		return NewArray(elems...), nil

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}

		obj := NewScope(nil)
		keys := make(map[string]reflect.Value, rv.Len())

		for it := rv.MapRange(); it.Next(); {
			keys[it.Key().String()] = it.Value()
		}

		for _, k := range slices.Sorted(maps.Keys(keys)) {
			v, err := FromGo(keys[k].Interface())
			if err != nil {
				return nil, err
			}

			obj.Define(k, v)
		}

		return obj, nil
	}

	return nil, ErrType.Detail(fmt.Sprintf("cannot convert %T to a value", x))
}

// ToGo converts a script value into plain Go data: float64, string, bool,
// []any, and map[string]any. None becomes nil. Functions and handles have
// no plain form and convert to their [Repr], as does an array or object
// that contains itself at the point it recurs.
func ToGo(v Value) any {
	return toGo(v, make(map[any]bool))
}

func toGo(v Value, seen map[any]bool) any {
	switch v := v.(type) {
	case nil:
		return nil
	case Number:
		return float64(v)
	case String:
		return string(v)
	case Bool:
		return bool(v)
	case Symbol:
		return string(v)
	case *Array:
		if seen[v] {
			return "[...]"
		}

		seen[v] = true
		defer delete(seen, v)

		out := make([]any, len(v.Elems))
		for i, el := range v.Elems {
			out[i] = toGo(el, seen)
		}

		return out
	case *Scope:
		if seen[v] {
			return "{...}"
		}

		seen[v] = true
		defer delete(seen, v)

		out := make(map[string]any, v.Len())
		for name, field := range v.All() {
			out[name] = toGo(field, seen)
		}

		return out
	case *CommandResult:
		return map[string]any{"stdout": v.Stdout, "stderr": v.Stderr, "code": v.Code}
	case Result:
		return toGo(v.Value, seen)
	case Option:
		if !v.Some {
			return nil
		}

		return toGo(v.Value, seen)
	}

	return Repr(v)
}
