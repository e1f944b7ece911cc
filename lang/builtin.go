package lang

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// BuiltinFunc implements a built-in function. Arity has been checked
// against the [Builtin] before it is called.
type BuiltinFunc func(ctx context.Context, in *Interpreter, args []Value) (Value, error)

var (
	builtinsOnce  sync.Once
	builtinsScope *Scope
)

// Builtins returns the frozen registry of built-in functions and objects.
// Every root scope is a child of it, so user bindings shadow built-ins
// without changing them.
func Builtins() *Scope {
	builtinsOnce.Do(func() {
		sc := NewScope(nil)

		for _, b := range coreBuiltins() {
			sc.Define(b.Name, b)
		}

		sc.Define("math", namespace("math", mathBuiltins()))
		sc.Define("env", namespace("env", envBuiltins()))
		sc.Define("file", namespace("file", fileBuiltins()))
		sc.Define("path", namespace("path", pathBuiltins()))
		sc.Define("sys", sysObject())

		builtinsScope = sc.Freeze()
	})

	return builtinsScope
}

func namespace(name string, fns []*Builtin) *Scope {
	sc := NewScope(nil)

	for _, b := range fns {
		short := b.Name
		b.Name = name + "." + short
		sc.Define(short, b)
	}

	return sc
}

func coreBuiltins() []*Builtin {
	return []*Builtin{
		{Name: "assert", MinArgs: 1, MaxArgs: 2, Fn: builtinAssert},
		{Name: "panic", MinArgs: 0, MaxArgs: 1, Fn: builtinPanic},
		{Name: "exit", MinArgs: 0, MaxArgs: 1, Fn: builtinExit},
		{Name: "print", MinArgs: 0, MaxArgs: -1, Fn: builtinPrint},
		{Name: "read_line", Fn: builtinReadLine},
		{Name: "typeof", MinArgs: 1, MaxArgs: 1, Fn: builtinTypeof},
		{Name: "str", MinArgs: 1, MaxArgs: 1, Fn: builtinStr},
		{Name: "parse_number", MinArgs: 1, MaxArgs: 1, Fn: builtinParseNumber},
		{Name: "length", MinArgs: 1, MaxArgs: 1, Fn: builtinLength},
		{Name: "nth", MinArgs: 2, MaxArgs: 2, Fn: builtinNth},
		{Name: "split", MinArgs: 2, MaxArgs: 2, Fn: builtinSplit},
		{Name: "join", MinArgs: 2, MaxArgs: 2, Fn: builtinJoin},
		{Name: "trim", MinArgs: 1, MaxArgs: 1, Fn: builtinTrim},
		{Name: "push", MinArgs: 2, MaxArgs: -1, Fn: builtinPush},
		{Name: "keys", MinArgs: 1, MaxArgs: 1, Fn: builtinKeys},
		{Name: "cwd", Fn: builtinCwd},
		{Name: "ok", MinArgs: 1, MaxArgs: 1, Fn: wrap(func(v Value) Value { return Ok(v) })},
		{Name: "error", MinArgs: 1, MaxArgs: 1, Fn: wrap(func(v Value) Value { return Fail(v) })},
		{Name: "some", MinArgs: 1, MaxArgs: 1, Fn: wrap(func(v Value) Value { return Some(v) })},
		{Name: "isOk", MinArgs: 1, MaxArgs: 1, Fn: test(isOk)},
		{Name: "isError", MinArgs: 1, MaxArgs: 1, Fn: test(isError)},
		{Name: "isSome", MinArgs: 1, MaxArgs: 1, Fn: test(isSome)},
		{Name: "isNone", MinArgs: 1, MaxArgs: 1, Fn: test(isNone)},
		{Name: "unwrap", MinArgs: 1, MaxArgs: 1, Fn: builtinUnwrap},
	}
}

func wrap(f func(Value) Value) BuiltinFunc {
	return func(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
		return f(args[0]), nil
	}
}

func test(f func(Value) bool) BuiltinFunc {
	return func(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
		return Bool(f(args[0])), nil
	}
}

func isOk(v Value) bool {
	r, ok := v.(Result)

	return ok && r.Ok
}

func isError(v Value) bool {
	r, ok := v.(Result)

	return ok && !r.Ok
}

func isSome(v Value) bool {
	o, ok := v.(Option)

	return ok && o.Some
}

func isNone(v Value) bool {
	o, ok := v.(Option)

	return ok && !o.Some
}

func argString(fn string, args []Value, i int) (string, error) {
	s, ok := args[i].(String)
	if !ok {
		return "", ErrType.Detail(fn + " argument " + strconv.Itoa(i+1) +
			" must be a String, got " + kindOf(args[i]))
	}

	return string(s), nil
}

func argNumber(fn string, args []Value, i int) (float64, error) {
	n, ok := args[i].(Number)
	if !ok {
		return 0, ErrType.Detail(fn + " argument " + strconv.Itoa(i+1) +
			" must be a Number, got " + kindOf(args[i]))
	}

	return float64(n), nil
}

func argArray(fn string, args []Value, i int) (*Array, error) {
	a, ok := args[i].(*Array)
	if !ok {
		return nil, ErrType.Detail(fn + " argument " + strconv.Itoa(i+1) +
			" must be an Array, got " + kindOf(args[i]))
	}

	return a, nil
}

func builtinAssert(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
	if Truthy(args[0]) {
		return None, nil
	}

	msg := "assertion failed"
	if len(args) > 1 {
		msg = Display(args[1])
	}

	return nil, ErrFatal.Detail(msg)
}

func builtinPanic(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
	msg := "panic"
	if len(args) > 0 {
		msg = Display(args[0])
	}

	return nil, ErrFatal.Detail(msg)
}

func builtinExit(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
	if len(args) == 0 {
		return nil, &ExitError{}
	}

	n, err := argNumber("exit", args, 0)
	if err != nil {
		return nil, err
	}

	if !isInt(Number(n)) {
		return nil, ErrType.Detail("exit code must be an integer, got " + FormatNumber(Number(n)))
	}

	return nil, &ExitError{Code: int(n)}
}

func builtinPrint(_ context.Context, in *Interpreter, args []Value) (Value, error) {
	part := make([]string, len(args))
	for i, a := range args {
		part[i] = Display(a)
	}

	if _, err := io.WriteString(in.stdout, strings.Join(part, " ")+"\n"); err != nil {
		return nil, ErrFatal.Wrap(err).Detail("print")
	}

	return None, nil
}

func builtinReadLine(ctx context.Context, in *Interpreter, _ []Value) (Value, error) {
	if in.input == nil {
		var r io.Reader = os.Stdin
		if in.stdin != nil {
			r = in.stdin
		}

		in.input = NewLineReader(r)
	}

	line, err := in.input.ReadLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return String(""), nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, ErrReadInput.Wrap(err)
	}

	return String(line), nil
}

func builtinTypeof(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
	return TypeOf(args[0]), nil
}

func builtinStr(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
	return String(Display(args[0])), nil
}

var numberPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

func builtinParseNumber(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
	s, err := argString("parse_number", args, 0)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(s)
	if !numberPattern.MatchString(text) {
		return Fail(String("invalid number: " + strconv.Quote(s))), nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Fail(String("invalid number: " + strconv.Quote(s))), nil
	}

	return Ok(Number(f)), nil
}

func builtinLength(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
	switch v := args[0].(type) {
	case *Array:
		return Number(len(v.Elems)), nil
	case String:
		return Number(len([]rune(string(v)))), nil
	case *Scope:
		return Number(v.Len()), nil
	}

	return nil, ErrType.Detail("length of " + kindOf(args[0]))
}

func builtinNth(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
	switch args[0].(type) {
	case *Array, String:
		return index(args[0], args[1])
	}

	return nil, ErrType.Detail("nth of " + kindOf(args[0]))
}

func builtinSplit(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
	s, err := argString("split", args, 0)
	if err != nil {
		return nil, err
	}

	sep, err := argString("split", args, 1)
	if err != nil {
		return nil, err
	}

	part := strings.Split(s, sep)
	elems := make([]Value, len(part))

	for i, p := range part {
		elems[i] = String(p)
	}

	return NewArray(elems...), nil
}

func builtinJoin(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
	arr, err := argArray("join", args, 0)
	if err != nil {
		return nil, err
	}

	sep, err := argString("join", args, 1)
	if err != nil {
		return nil, err
	}

	part := make([]string, len(arr.Elems))

	for i, el := range arr.Elems {
		if part[i], err = ToString(el); err != nil {
			return nil, err
		}
	}

	return String(strings.Join(part, sep)), nil
}

func builtinTrim(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
	s, err := argString("trim", args, 0)
	if err != nil {
		return nil, err
	}

	return String(strings.TrimSpace(s)), nil
}

func builtinPush(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
	arr, err := argArray("push", args, 0)
	if err != nil {
		return nil, err
	}

	arr.Elems = append(arr.Elems, args[1:]...)

	return arr, nil
}

func builtinKeys(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
	obj, ok := args[0].(*Scope)
	if !ok {
		return nil, ErrType.Detail("keys of " + kindOf(args[0]))
	}

	names := obj.Names()
	elems := make([]Value, len(names))

	for i, name := range names {
		elems[i] = String(name)
	}

	return NewArray(elems...), nil
}

func builtinUnwrap(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
	switch v := args[0].(type) {
	case Result:
		if v.Ok {
			return v.Value, nil
		}

		return nil, ErrFatal.Detail("unwrap of Error: " + Display(v.Value))

	case Option:
		if v.Some {
			return v.Value, nil
		}

		return nil, ErrFatal.Detail("unwrap of None")
	}

	return nil, ErrType.Detail("unwrap of " + kindOf(args[0]))
}

func mathBuiltins() []*Builtin {
	unaryMath := func(name string, f func(float64) float64) *Builtin {
		return &Builtin{
			Name: name, MinArgs: 1, MaxArgs: 1,
			Fn: func(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
				n, err := argNumber("math."+name, args, 0)
				if err != nil {
					return nil, err
				}

				return Number(f(n)), nil
			},
		}
	}

	fold := func(name string, f func(a, b float64) float64) *Builtin {
		return &Builtin{
			Name: name, MinArgs: 1, MaxArgs: -1,
			Fn: func(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
				acc, err := argNumber("math."+name, args, 0)
				if err != nil {
					return nil, err
				}

				for i := 1; i < len(args); i++ {
					n, err := argNumber("math."+name, args, i)
					if err != nil {
						return nil, err
					}

					acc = f(acc, n)
				}

				return Number(acc), nil
			},
		}
	}

	return []*Builtin{
		unaryMath("floor", math.Floor),
		unaryMath("ceil", math.Ceil),
		unaryMath("round", math.Round),
		unaryMath("abs", math.Abs),
		unaryMath("sqrt", math.Sqrt),
		fold("min", math.Min),
		fold("max", math.Max),
	}
}
