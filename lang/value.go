package lang

import (
	"github.com/ardnew/cmds/lang/parser"
	"github.com/ardnew/cmds/lang/proc"
)

// Kind identifies the variant of a [Value].
type Kind int

const (
	KindNumber Kind = iota
	KindString
	KindBool
	KindArray
	KindObject
	KindFunction
	KindCommandResult
	KindAsyncHandle
	KindResult
	KindOption
	KindSymbol
)

var kindName = [...]string{
	KindNumber:        "Number",
	KindString:        "String",
	KindBool:          "Bool",
	KindArray:         "Array",
	KindObject:        "Object",
	KindFunction:      "Function",
	KindCommandResult: "CommandResult",
	KindAsyncHandle:   "AsyncHandle",
	KindResult:        "Result",
	KindOption:        "Option",
	KindSymbol:        "Symbol",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindName) {
		return kindName[k]
	}

	return "Unknown"
}

// Value is a runtime value. The set of implementations is closed.
type Value interface {
	Kind() Kind
	value()
}

type (
	// Number is a 64-bit float.
	Number float64

	// String is an immutable UTF-8 string.
	String string

	// Bool is true or false.
	Bool bool

	// Symbol is an interned tag such as #Error.
	Symbol string

	// Array is a mutable sequence shared by reference.
	Array struct {
		Elems []Value
	}

	// Closure is a user-defined function with the scope it was created in.
	Closure struct {
		Name   string
		Params []string
		Body   *parser.Block
		Env    *Scope
	}

	// Builtin is a function implemented in Go. Builtins are compared by
	// identity.
	Builtin struct {
		Name    string
		MinArgs int
		MaxArgs int // negative for variadic
		Fn      BuiltinFunc
	}

	// CommandResult is the outcome of a finished command.
	CommandResult struct {
		Stdout string
		Stderr string
		Code   int
	}

	// AsyncHandle is a command started with '%'. The first await stores the
	// result; later awaits return it.
	AsyncHandle struct {
		handle *proc.Handle
		result *CommandResult
	}

	// Result is Ok(Value) or Error(Value).
	Result struct {
		Value Value
		Ok    bool
	}

	// Option is Some(Value) or None. The zero Option is None.
	Option struct {
		Value Value
		Some  bool
	}
)

// None is the empty Option. It is also the value of statements that produce
// nothing.
var None = Option{}

// NewArray returns an Array holding elems.
func NewArray(elems ...Value) *Array { return &Array{Elems: elems} }

// Ok wraps v as a successful Result.
func Ok(v Value) Result { return Result{Value: v, Ok: true} }

// Fail wraps v as an Error Result.
func Fail(v Value) Result { return Result{Value: v} }

// Some wraps v as a present Option.
func Some(v Value) Option { return Option{Value: v, Some: true} }

// Text returns the command text h was started with.
func (h *AsyncHandle) Text() string { return h.handle.Text() }

// Done reports whether the command has exited.
func (h *AsyncHandle) Done() bool {
	if h.result != nil {
		return true
	}

	select {
	case <-h.handle.Done():
		return true
	default:
		return false
	}
}

func (Number) Kind() Kind         { return KindNumber }
func (String) Kind() Kind         { return KindString }
func (Bool) Kind() Kind           { return KindBool }
func (Symbol) Kind() Kind         { return KindSymbol }
func (*Array) Kind() Kind         { return KindArray }
func (*Scope) Kind() Kind         { return KindObject }
func (*Closure) Kind() Kind       { return KindFunction }
func (*Builtin) Kind() Kind       { return KindFunction }
func (*CommandResult) Kind() Kind { return KindCommandResult }
func (*AsyncHandle) Kind() Kind   { return KindAsyncHandle }
func (Result) Kind() Kind         { return KindResult }
func (Option) Kind() Kind         { return KindOption }

func (Number) value()         {}
func (String) value()         {}
func (Bool) value()           {}
func (Symbol) value()         {}
func (*Array) value()         {}
func (*Scope) value()         {}
func (*Closure) value()       {}
func (*Builtin) value()       {}
func (*CommandResult) value() {}
func (*AsyncHandle) value()   {}
func (Result) value()         {}
func (Option) value()         {}

// TypeOf returns the symbol naming v's variant. Result and Option name the
// active case: #Ok, #Error, #Some, or #None.
func TypeOf(v Value) Symbol {
	switch v := v.(type) {
	case Result:
		if v.Ok {
			return "Ok"
		}

		return "Error"
	case Option:
		if v.Some {
			return "Some"
		}

		return "None"
	case nil:
		return "None"
	default:
		return Symbol(v.Kind().String())
	}
}

// Truthy reports whether v counts as true in a condition. False, zero, NaN,
// the empty string, None, and Error results are false.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case Bool:
		return bool(v)
	case Number:
		return v != 0 && v == v
	case String:
		return v != ""
	case Option:
		return v.Some
	case Result:
		return v.Ok
	case nil:
		return false
	default:
		return true
	}
}

// Equal reports whether a and b are equal. Values of different kinds are
// unequal, except that a Symbol equals a String with the same name. Arrays,
// Results, Options, and command results compare structurally; objects,
// functions, and handles compare by identity.
func Equal(a, b Value) bool {
	return equal(a, b, nil)
}

// arrayPair is a pair of arrays under comparison.
type arrayPair struct{ a, b *Array }

// equal implements [Equal]. A pair of arrays already being compared further
// up the stack is taken as equal, so self-referencing arrays terminate.
func equal(a, b Value, active map[arrayPair]bool) bool {
	switch a := a.(type) {
	case Number:
		b, ok := b.(Number)

		return ok && a == b
	case String:
		switch b := b.(type) {
		case String:
			return a == b
		case Symbol:
			return string(a) == string(b)
		}
	case Symbol:
		switch b := b.(type) {
		case Symbol:
			return a == b
		case String:
			return string(a) == string(b)
		}
	case Bool:
		b, ok := b.(Bool)

		return ok && a == b
	case *Array:
		b, ok := b.(*Array)
		if !ok || len(a.Elems) != len(b.Elems) {
			return false
		}

		if a == b {
			return true
		}

		pair := arrayPair{a, b}
		if active[pair] {
			return true
		}

		if active == nil {
			active = make(map[arrayPair]bool)
		}

		active[pair] = true
		defer delete(active, pair)

		for i := range a.Elems {
			if !equal(a.Elems[i], b.Elems[i], active) {
				return false
			}
		}

		return true
	case Result:
		b, ok := b.(Result)

		return ok && a.Ok == b.Ok && equal(a.Value, b.Value, active)
	case Option:
		b, ok := b.(Option)
		if !ok || a.Some != b.Some {
			return false
		}

		return !a.Some || equal(a.Value, b.Value, active)
	case *CommandResult:
		b, ok := b.(*CommandResult)

		return ok && *a == *b
	case nil:
		return b == nil
	default:
		return a == b
	}

	return false
}
