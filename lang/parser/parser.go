// Package parser builds the syntax tree of a cmds script from its tokens.
//
// Expressions are parsed by precedence climbing. Blocks are stored uniformly;
// whether a block denotes an object or a value is decided by the evaluator
// (see [Block.IsObject]).
package parser

import (
	"log/slog"
	"strconv"

	"github.com/ardnew/cmds/lang/lexer"
	"github.com/ardnew/cmds/lang/token"
	"github.com/ardnew/cmds/log"
)

// Option configures parsing.
type Option func(*parser)

// WithLogger sets the logger used for trace output.
func WithLogger(logger log.Logger) Option {
	return func(p *parser) { p.logger = logger }
}

type parser struct {
	logger log.Logger
	toks   []token.Token
	pos    int
	loops  int // enclosing while/for bodies
}

// Parse builds a [Program] from toks, which must end with [token.EOF].
func Parse(toks []token.Token, opts ...Option) (*Program, error) {
	p := newParser(toks, opts...)

	prog, err := p.parseProgram()
	if err != nil {
		return nil, err
	}

	p.logger.Trace("parse complete",
		slog.Int("token_count", len(toks)),
		slog.Int("statement_count", len(prog.Stmts)),
	)

	return prog, nil
}

// ParseString tokenizes and parses src. The returned error is either a
// [*lexer.Error] or an [*Error].
func ParseString(src string, opts ...Option) (*Program, error) {
	p := newParser(nil, opts...)

	toks, err := lexer.Tokenize(src, lexer.WithLogger(p.logger))
	if err != nil {
		return nil, err
	}

	prog, err := Parse(toks, opts...)
	if err != nil {
		return nil, err
	}

	prog.Source = src

	return prog, nil
}

func newParser(toks []token.Token, opts ...Option) *parser {
	p := &parser{toks: toks}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *parser) parseProgram() (*Program, error) {
	stmts, err := p.parseStmtList(token.EOF)
	if err != nil {
		return nil, err
	}

	return &Program{Stmts: stmts}, nil
}

// parseStmtList parses separated statements up to, but not including, end.
func (p *parser) parseStmtList(end token.Kind) ([]Stmt, error) {
	var stmts []Stmt

	for {
		p.skipSeparators()

		if p.at(end) || p.at(token.EOF) {
			return stmts, nil
		}

		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}

		stmts = append(stmts, s)

		if !p.peek().Kind.IsSeparator() && !p.at(end) && !p.at(token.EOF) {
			return nil, p.expected("newline or ';' after statement")
		}
	}
}

func (p *parser) parseStmt() (Stmt, error) {
	tok := p.peek()

	switch tok.Kind {
	case token.Return:
		p.next()

		s := &ReturnStmt{RetPos: tok.Pos}

		if p.peek().Kind.IsSeparator() || p.at(token.RBrace) || p.at(token.EOF) {
			return s, nil
		}

		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		s.Value = value

		return s, nil

	case token.While:
		return p.parseWhile()

	case token.For:
		return p.parseFor()

	case token.Break, token.Continue:
		p.next()

		if p.loops == 0 {
			return nil, &Error{
				Pos:     tok.Pos,
				Found:   tok,
				Message: tok.Kind.String() + " outside of a loop",
			}
		}

		return &BranchStmt{Tok: tok.Kind, TokPos: tok.Pos}, nil

	case token.Fn:
		// fn name(params) { … } declares name.
		if p.peekAt(1).Kind == token.Ident {
			fn, err := p.parseFunc()
			if err != nil {
				return nil, err
			}

			return &AssignStmt{
				Target: &Ident{Name: fn.Name, NamePos: fn.NamePos},
				Value:  fn,
				Op:     token.Assign,
				OpPos:  fn.FnPos,
			}, nil
		}
	}

	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	op := p.peek()
	if !op.Kind.IsAssign() {
		return &ExprStmt{X: x}, nil
	}

	switch x.(type) {
	case *Ident, *MemberExpr, *IndexExpr:
	default:
		return nil, &Error{
			Pos:     x.Pos(),
			Found:   op,
			Message: "cannot assign to " + describe(x),
		}
	}

	p.next()
	p.skipNewlines()

	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	return &AssignStmt{Target: x, Value: value, Op: op.Kind, OpPos: op.Pos}, nil
}

func (p *parser) parseWhile() (Stmt, error) {
	kw := p.next()

	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	body, err := p.parseLoopBody()
	if err != nil {
		return nil, err
	}

	return &WhileStmt{Cond: cond, Body: body, WhilePos: kw.Pos}, nil
}

func (p *parser) parseFor() (Stmt, error) {
	kw := p.next()

	name, err := p.expect(token.Ident, "loop variable")
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.In, strconv.Quote("in")); err != nil {
		return nil, err
	}

	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	body, err := p.parseLoopBody()
	if err != nil {
		return nil, err
	}

	return &ForStmt{Var: name.Text, Iter: iter, Body: body, ForPos: kw.Pos}, nil
}

func (p *parser) parseLoopBody() (*Block, error) {
	p.loops++
	defer func() { p.loops-- }()

	return p.parseBlock()
}

func (p *parser) parseBlock() (*Block, error) {
	lbrace, err := p.expect(token.LBrace, strconv.Quote("{"))
	if err != nil {
		return nil, err
	}

	stmts, err := p.parseStmtList(token.RBrace)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.RBrace, strconv.Quote("}")); err != nil {
		return nil, err
	}

	return &Block{Stmts: stmts, Lbrace: lbrace.Pos}, nil
}

// parseFunc parses "fn [name] (params) block".
func (p *parser) parseFunc() (*FuncLit, error) {
	kw := p.next()
	fn := &FuncLit{FnPos: kw.Pos}

	if p.at(token.Ident) {
		name := p.next()
		fn.Name, fn.NamePos = name.Text, name.Pos
	}

	if _, err := p.expect(token.LParen, strconv.Quote("(")); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)

	for p.skipNewlines(); !p.at(token.RParen); p.skipNewlines() {
		name, err := p.expect(token.Ident, "parameter name")
		if err != nil {
			return nil, err
		}

		if seen[name.Text] {
			return nil, &Error{
				Pos:     name.Pos,
				Found:   name,
				Message: "duplicate parameter " + strconv.Quote(name.Text),
			}
		}

		seen[name.Text] = true
		fn.Params = append(fn.Params, name.Text)

		p.skipNewlines()

		if !p.at(token.Comma) {
			break
		}

		p.next()
	}

	if _, err := p.expect(token.RParen, strconv.Quote(")")); err != nil {
		return nil, err
	}

	// A function body is its own loop context.
	loops := p.loops
	p.loops = 0

	body, err := p.parseBlock()

	p.loops = loops

	if err != nil {
		return nil, err
	}

	fn.Body = body

	return fn, nil
}

func (p *parser) peek() token.Token { return p.peekAt(0) }

func (p *parser) peekAt(n int) token.Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}

	// Synthesize EOF so a missing terminator never indexes out of range.
	var pos token.Position
	if len(p.toks) > 0 {
		pos = p.toks[len(p.toks)-1].Pos
	}

	return token.Token{Kind: token.EOF, Pos: pos}
}

func (p *parser) at(k token.Kind) bool { return p.peek().Kind == k }

func (p *parser) next() token.Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}

	return t
}

func (p *parser) expect(k token.Kind, what string) (token.Token, error) {
	if !p.at(k) {
		return token.Token{}, p.expected(what)
	}

	return p.next(), nil
}

func (p *parser) skipNewlines() {
	for p.at(token.Newline) {
		p.next()
	}
}

func (p *parser) skipSeparators() {
	for p.peek().Kind.IsSeparator() {
		p.next()
	}
}

func (p *parser) expected(what string) *Error {
	t := p.peek()

	return &Error{Pos: t.Pos, Expected: what, Found: t}
}
