package lang

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/ardnew/cmds/lang/parser"
	"github.com/ardnew/cmds/lang/proc"
	"github.com/ardnew/cmds/lang/token"
)

// returnSignal carries a return value up to the nearest call boundary.
type returnSignal struct {
	value Value
}

func (*returnSignal) Error() string { return "return outside of function" }

// branchSignal carries break or continue up to the nearest loop.
type branchSignal struct {
	tok token.Kind
}

func (b *branchSignal) Error() string { return b.tok.String() + " outside of loop" }

// at positions err if it is a runtime error without a location. Control
// signals, exit requests, and context errors pass through unchanged.
func at(err error, pos token.Position) error {
	var ee *Error
	if errors.As(err, &ee) && !ee.pos.IsValid() {
		return ee.At(pos)
	}

	return err
}

// execList runs stmts in sc and returns the value of the last one. When
// object is set, plain assignments bind in sc itself.
func (in *Interpreter) execList(
	ctx context.Context,
	stmts []parser.Stmt,
	sc *Scope,
	object bool,
) (Value, error) {
	var last Value = None

	for _, s := range stmts {
		v, err := in.exec(ctx, s, sc, object)
		if err != nil {
			return nil, err
		}

		last = v
	}

	return last, nil
}

// exec runs one statement. Only expression statements produce a value.
func (in *Interpreter) exec(
	ctx context.Context,
	s parser.Stmt,
	sc *Scope,
	object bool,
) (Value, error) {
	switch s := s.(type) {
	case *parser.ExprStmt:
		if cmd, ok := s.X.(*parser.CommandExpr); ok {
			return in.command(ctx, cmd, sc, true)
		}

		return in.eval(ctx, s.X, sc)

	case *parser.AssignStmt:
		return None, in.assign(ctx, s, sc, object)

	case *parser.ReturnStmt:
		var v Value = None

		if s.Value != nil {
			var err error

			v, err = in.eval(ctx, s.Value, sc)
			if err != nil {
				return nil, err
			}
		}

		return nil, &returnSignal{value: v}

	case *parser.WhileStmt:
		return None, in.while(ctx, s, sc)

	case *parser.ForStmt:
		return None, in.forIn(ctx, s, sc)

	case *parser.BranchStmt:
		return nil, &branchSignal{tok: s.Tok}
	}

	return nil, ErrType.Detail("unsupported statement").At(s.Pos())
}

func (in *Interpreter) assign(
	ctx context.Context,
	s *parser.AssignStmt,
	sc *Scope,
	object bool,
) error {
	rhs, err := in.eval(ctx, s.Value, sc)
	if err != nil {
		return err
	}

	combine := func(old Value) (Value, error) {
		if s.Op == token.Assign {
			return rhs, nil
		}

		v, err := binary(s.Op.Compound(), old, rhs)

		return v, at(err, s.OpPos)
	}

	switch t := s.Target.(type) {
	case *parser.Ident:
		if object && s.Op == token.Assign {
			sc.Define(t.Name, rhs)

			return nil
		}

		var old Value

		if s.Op != token.Assign {
			var ok bool
			if old, ok = sc.Lookup(t.Name); !ok {
				return ErrUndefined.Detail(t.Name).At(t.NamePos)
			}
		}

		v, err := combine(old)
		if err != nil {
			return err
		}

		if !sc.Assign(t.Name, v) {
			return ErrType.Detail("cannot assign to built-in " + strconv.Quote(t.Name)).At(t.NamePos)
		}

		return nil

	case *parser.MemberExpr:
		recv, err := in.eval(ctx, t.X, sc)
		if err != nil {
			return err
		}

		obj, ok := recv.(*Scope)
		if !ok {
			return ErrType.Detail("cannot set field of " + kindOf(recv)).At(t.NamePos)
		}

		var old Value

		if s.Op != token.Assign {
			if old, ok = obj.Get(t.Name); !ok {
				return ErrUndefined.Detail("no field " + strconv.Quote(t.Name)).At(t.NamePos)
			}
		}

		v, err := combine(old)
		if err != nil {
			return err
		}

		if !obj.Define(t.Name, v) {
			return ErrType.Detail("cannot modify built-in object").At(t.NamePos)
		}

		return nil

	case *parser.IndexExpr:
		recv, err := in.eval(ctx, t.X, sc)
		if err != nil {
			return err
		}

		key, err := in.eval(ctx, t.Index, sc)
		if err != nil {
			return err
		}

		var old Value

		if s.Op != token.Assign {
			if old, err = index(recv, key); err != nil {
				return at(err, t.Lbrack)
			}
		}

		v, err := combine(old)
		if err != nil {
			return err
		}

		return at(setIndex(recv, key, v), t.Lbrack)
	}

	return ErrType.Detail("invalid assignment target").At(s.Pos())
}

func (in *Interpreter) while(ctx context.Context, s *parser.WhileStmt, sc *Scope) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cond, err := in.eval(ctx, s.Cond, sc)
		if err != nil {
			return err
		}

		if !Truthy(cond) {
			return nil
		}

		if _, err := in.block(ctx, s.Body, NewScope(sc), false); err != nil {
			if done, err := loopControl(err); done || err != nil {
				return err
			}
		}
	}
}

func (in *Interpreter) forIn(ctx context.Context, s *parser.ForStmt, sc *Scope) error {
	iter, err := in.eval(ctx, s.Iter, sc)
	if err != nil {
		return err
	}

	var items []Value

	switch it := iter.(type) {
	case *Array:
		items = slices.Clone(it.Elems)
	case String:
		for _, r := range string(it) {
			items = append(items, String(string(r)))
		}
	case *Scope:
		for _, name := range it.Names() {
			items = append(items, String(name))
		}
	default:
		return ErrType.Detail("cannot iterate over " + kindOf(iter)).At(s.Iter.Pos())
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		iterScope := NewScope(sc)
		iterScope.Define(s.Var, item)

		if _, err := in.block(ctx, s.Body, iterScope, false); err != nil {
			if done, err := loopControl(err); done || err != nil {
				return err
			}
		}
	}

	return nil
}

// loopControl interprets an error leaving a loop body. It reports done for
// break, and returns err unchanged if it is not a branch signal.
func loopControl(err error) (done bool, _ error) {
	var br *branchSignal
	if !errors.As(err, &br) {
		return true, err
	}

	return br.tok == token.Break, nil
}

// block evaluates b in sc, which the caller has already created for it.
// A block whose statements are all plain assignments evaluates to sc;
// otherwise it evaluates to its last expression statement or None. When
// literal is set, the block is an object literal and its assignments bind
// fields of sc rather than updating enclosing variables.
func (in *Interpreter) block(
	ctx context.Context,
	b *parser.Block,
	sc *Scope,
	literal bool,
) (Value, error) {
	object := b.IsObject()

	v, err := in.execList(ctx, b.Stmts, sc, object && literal)
	if err != nil {
		return nil, err
	}

	if object {
		return sc, nil
	}

	return v, nil
}

func (in *Interpreter) eval(ctx context.Context, x parser.Expr, sc *Scope) (Value, error) {
	switch x := x.(type) {
	case *parser.NumberLit:
		return Number(x.Value), nil

	case *parser.StringLit:
		return String(x.Value), nil

	case *parser.TemplateLit:
		s, err := in.interpolate(ctx, x.Parts, sc)
		if err != nil {
			return nil, err
		}

		return String(s), nil

	case *parser.BoolLit:
		return Bool(x.Value), nil

	case *parser.NoneLit:
		return None, nil

	case *parser.SymbolLit:
		return Symbol(x.Name), nil

	case *parser.ArrayLit:
		elems := make([]Value, len(x.Elems))

		for i, el := range x.Elems {
			v, err := in.eval(ctx, el, sc)
			if err != nil {
				return nil, err
			}

			elems[i] = v
		}

		return NewArray(elems...), nil

	case *parser.Ident:
		v, ok := sc.Lookup(x.Name)
		if !ok {
			return nil, ErrUndefined.Detail(x.Name).At(x.NamePos)
		}

		return v, nil

	case *parser.UnaryExpr:
		v, err := in.eval(ctx, x.X, sc)
		if err != nil {
			return nil, err
		}

		v, err = unary(x.Op, v)

		return v, at(err, x.OpPos)

	case *parser.BinaryExpr:
		return in.binaryExpr(ctx, x, sc)

	case *parser.Block:
		return in.block(ctx, x, NewScope(sc), true)

	case *parser.FuncLit:
		return &Closure{Name: x.Name, Params: x.Params, Body: x.Body, Env: sc}, nil

	case *parser.CallExpr:
		fn, err := in.eval(ctx, x.Fun, sc)
		if err != nil {
			return nil, err
		}

		args := make([]Value, len(x.Args))

		for i, a := range x.Args {
			if args[i], err = in.eval(ctx, a, sc); err != nil {
				return nil, err
			}
		}

		return in.call(ctx, fn, args, x.Lparen)

	case *parser.MemberExpr:
		recv, err := in.eval(ctx, x.X, sc)
		if err != nil {
			return nil, err
		}

		v, err := member(recv, x.Name)

		return v, at(err, x.NamePos)

	case *parser.IndexExpr:
		recv, err := in.eval(ctx, x.X, sc)
		if err != nil {
			return nil, err
		}

		key, err := in.eval(ctx, x.Index, sc)
		if err != nil {
			return nil, err
		}

		v, err := index(recv, key)

		return v, at(err, x.Lbrack)

	case *parser.IfExpr:
		return in.ifExpr(ctx, x, sc)

	case *parser.CommandExpr:
		return in.command(ctx, x, sc, false)

	case *parser.AwaitExpr:
		v, err := in.eval(ctx, x.X, sc)
		if err != nil {
			return nil, err
		}

		v, err = in.await(ctx, v)

		return v, at(err, x.BangPos)
	}

	return nil, ErrType.Detail("unsupported expression").At(x.Pos())
}

func (in *Interpreter) binaryExpr(ctx context.Context, x *parser.BinaryExpr, sc *Scope) (Value, error) {
	lhs, err := in.eval(ctx, x.X, sc)
	if err != nil {
		return nil, err
	}

	switch x.Op {
	case token.And:
		if !Truthy(lhs) {
			return Bool(false), nil
		}
	case token.Or:
		if Truthy(lhs) {
			return Bool(true), nil
		}
	}

	rhs, err := in.eval(ctx, x.Y, sc)
	if err != nil {
		return nil, err
	}

	if x.Op == token.And || x.Op == token.Or {
		return Bool(Truthy(rhs)), nil
	}

	v, err := binary(x.Op, lhs, rhs)

	return v, at(err, x.OpPos)
}

func (in *Interpreter) ifExpr(ctx context.Context, x *parser.IfExpr, sc *Scope) (Value, error) {
	for {
		cond, err := in.eval(ctx, x.Cond, sc)
		if err != nil {
			return nil, err
		}

		if Truthy(cond) {
			return in.block(ctx, x.Then, NewScope(sc), false)
		}

		switch e := x.Else.(type) {
		case *parser.IfExpr:
			x = e
		case *parser.Block:
			return in.block(ctx, e, NewScope(sc), false)
		default:
			return None, nil
		}
	}
}

func (in *Interpreter) call(
	ctx context.Context,
	fn Value,
	args []Value,
	pos token.Position,
) (Value, error) {
	switch fn := fn.(type) {
	case *Closure:
		if len(args) != len(fn.Params) {
			return nil, ErrType.Detail(
				describeFunc(fn) + " expects " + plural(len(fn.Params), "argument") +
					", got " + strconv.Itoa(len(args)),
			).At(pos)
		}

		if in.depth >= in.maxDepth {
			return nil, ErrMaxDepthExceeded.
				With(slog.Int("max_depth", in.maxDepth)).
				Detail(describeFunc(fn)).
				At(pos)
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		in.depth++
		defer func() { in.depth-- }()

		in.logger.TraceContext(ctx, "call",
			slog.String("function", describeFunc(fn)),
			slog.Int("depth", in.depth),
		)

		// Parameters and body share one scope, so an object-shaped body
		// returns its parameters as fields too. Its assignments bind fields
		// of that scope, as in an object literal, and never reach enclosing
		// variables.
		callScope := NewScope(fn.Env)
		for i, name := range fn.Params {
			callScope.Define(name, args[i])
		}

		v, err := in.block(ctx, fn.Body, callScope, true)
		if err != nil {
			var ret *returnSignal
			if errors.As(err, &ret) {
				return ret.value, nil
			}

			return nil, err
		}

		return v, nil

	case *Builtin:
		if len(args) < fn.MinArgs || (fn.MaxArgs >= 0 && len(args) > fn.MaxArgs) {
			return nil, ErrType.Detail(fn.Name + " expects " + arity(fn) +
				", got " + strconv.Itoa(len(args))).At(pos)
		}

		v, err := fn.Fn(ctx, in, args)
		if err != nil {
			return nil, at(err, pos)
		}

		if v == nil {
			v = None
		}

		return v, nil
	}

	return nil, ErrType.Detail("cannot call " + kindOf(fn)).At(pos)
}

// interpolate concatenates literal text with the string coercion of each
// embedded expression.
func (in *Interpreter) interpolate(ctx context.Context, parts []parser.Part, sc *Scope) (string, error) {
	var b strings.Builder

	for _, part := range parts {
		if part.Expr == nil {
			b.WriteString(part.Text)

			continue
		}

		v, err := in.eval(ctx, part.Expr, sc)
		if err != nil {
			return "", err
		}

		s, err := ToString(v)
		if err != nil {
			return "", at(err, part.Expr.Pos())
		}

		b.WriteString(s)
	}

	return b.String(), nil
}

// command submits x to the process service. A synchronous command in
// statement position inherits the interpreter's streams when echo is on.
func (in *Interpreter) command(
	ctx context.Context,
	x *parser.CommandExpr,
	sc *Scope,
	stmt bool,
) (Value, error) {
	text, err := in.interpolate(ctx, x.Parts, sc)
	if err != nil {
		return nil, err
	}

	req := proc.Request{Text: text, Env: in.Environ(), Async: x.Async}

	if stmt && !x.Async && in.echo {
		req.Stdin, req.Stdout, req.Stderr = in.stdin, in.stdout, in.stderr
	}

	in.logger.TraceContext(ctx, "command",
		slog.String("text", text),
		slog.Bool("async", x.Async),
		slog.Bool("interactive", req.Stdin != nil),
	)

	h, err := in.proc.Spawn(ctx, req)
	if err != nil {
		return nil, ErrCommand.Wrap(err).Detail(text).At(x.CmdPos)
	}

	if x.Async {
		return &AsyncHandle{handle: h}, nil
	}

	res, err := h.Wait(ctx)
	if err != nil {
		return nil, in.waitError(ctx, err, text, x.CmdPos)
	}

	return &CommandResult{Stdout: res.Stdout, Stderr: res.Stderr, Code: res.Code}, nil
}

func (in *Interpreter) await(ctx context.Context, v Value) (Value, error) {
	h, ok := v.(*AsyncHandle)
	if !ok {
		return nil, ErrType.Detail("cannot await " + kindOf(v))
	}

	if h.result != nil {
		return h.result, nil
	}

	res, err := h.handle.Wait(ctx)
	if err != nil {
		return nil, in.waitError(ctx, err, h.Text(), token.Position{})
	}

	h.result = &CommandResult{Stdout: res.Stdout, Stderr: res.Stderr, Code: res.Code}

	return h.result, nil
}

// waitError passes cancellation through and reports any other failure as
// a command error.
func (in *Interpreter) waitError(ctx context.Context, err error, text string, pos token.Position) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return ErrCommand.Wrap(err).Detail(text).At(pos)
}

func describeFunc(c *Closure) string {
	if c.Name != "" {
		return c.Name
	}

	return "fn"
}

func plural(n int, noun string) string {
	s := strconv.Itoa(n) + " " + noun
	if n != 1 {
		s += "s"
	}

	return s
}

func arity(b *Builtin) string {
	switch {
	case b.MaxArgs < 0:
		return "at least " + plural(b.MinArgs, "argument")
	case b.MinArgs == b.MaxArgs:
		return plural(b.MinArgs, "argument")
	default:
		return strconv.Itoa(b.MinArgs) + " to " + plural(b.MaxArgs, "argument")
	}
}
