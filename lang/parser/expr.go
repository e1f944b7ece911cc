package parser

import (
	"strconv"

	"github.com/ardnew/cmds/lang/token"
)

// Binary operator precedence, lowest first. Unary operators bind tighter
// than every binary operator; postfix operators tighter still.
const (
	precOr = iota + 1
	precAnd
	precCompare
	precRange
	precAdd
	precMul
	precPow
)

var binaryPrec = map[token.Kind]int{
	token.Or:           precOr,
	token.And:          precAnd,
	token.Equal:        precCompare,
	token.NotEqual:     precCompare,
	token.Less:         precCompare,
	token.LessEqual:    precCompare,
	token.Greater:      precCompare,
	token.GreaterEqual: precCompare,
	token.Range:        precRange,
	token.Plus:         precAdd,
	token.Minus:        precAdd,
	token.Star:         precMul,
	token.Slash:        precMul,
	token.Percent:      precMul,
	token.Caret:        precPow,
}

func (p *parser) parseExpr() (Expr, error) { return p.parseBinary(precOr) }

// parseBinary implements precedence climbing. All operators associate to the
// left except '^'.
func (p *parser) parseBinary(minPrec int) (Expr, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		op := p.peek()

		prec, ok := binaryPrec[op.Kind]
		if !ok || prec < minPrec {
			return x, nil
		}

		p.next()
		p.skipNewlines()

		next := prec + 1
		if op.Kind == token.Caret {
			next = prec
		}

		y, err := p.parseBinary(next)
		if err != nil {
			return nil, err
		}

		x = &BinaryExpr{X: x, Y: y, Op: op.Kind, OpPos: op.Pos}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	switch op := p.peek(); op.Kind {
	case token.Minus, token.Bang, token.Plus:
		p.next()

		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		if op.Kind == token.Plus {
			return x, nil
		}

		return &UnaryExpr{X: x, Op: op.Kind, OpPos: op.Pos}, nil
	}

	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	return p.parsePostfix(x)
}

func (p *parser) parsePostfix(x Expr) (Expr, error) {
	for {
		switch tok := p.peek(); tok.Kind {
		case token.LParen:
			p.next()

			args, err := p.parseList(token.RParen)
			if err != nil {
				return nil, err
			}

			x = &CallExpr{Fun: x, Args: args, Lparen: tok.Pos}

		case token.Dot:
			p.next()

			name, err := p.expect(token.Ident, "field name")
			if err != nil {
				return nil, err
			}

			x = &MemberExpr{X: x, Name: name.Text, NamePos: name.Pos}

		case token.LBracket:
			p.next()
			p.skipNewlines()

			index, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			p.skipNewlines()

			if _, err := p.expect(token.RBracket, strconv.Quote("]")); err != nil {
				return nil, err
			}

			x = &IndexExpr{X: x, Index: index, Lbrack: tok.Pos}

		case token.Bang:
			p.next()

			x = &AwaitExpr{X: x, BangPos: tok.Pos}

		default:
			return x, nil
		}
	}
}

// parseList parses comma-separated expressions up to and including end.
// Newlines are insignificant inside the list.
func (p *parser) parseList(end token.Kind) ([]Expr, error) {
	var list []Expr

	for p.skipNewlines(); !p.at(end); p.skipNewlines() {
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		list = append(list, x)

		p.skipNewlines()

		if !p.at(token.Comma) {
			break
		}

		p.next()
	}

	if _, err := p.expect(end, strconv.Quote(end.String())); err != nil {
		return nil, err
	}

	return list, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.peek()

	switch tok.Kind {
	case token.Number:
		p.next()

		return &NumberLit{Value: tok.Number, Text: tok.Text, NumPos: tok.Pos}, nil

	case token.String:
		p.next()

		return &StringLit{Value: tok.Text, StrPos: tok.Pos}, nil

	case token.Template:
		p.next()

		parts, err := p.parseParts(tok.Segments)
		if err != nil {
			return nil, err
		}

		return &TemplateLit{Parts: parts, StrPos: tok.Pos}, nil

	case token.Command:
		p.next()

		parts, err := p.parseParts(tok.Segments)
		if err != nil {
			return nil, err
		}

		return &CommandExpr{Parts: parts, Async: tok.Async, CmdPos: tok.Pos}, nil

	case token.True, token.False:
		p.next()

		return &BoolLit{Value: tok.Kind == token.True, BoolPos: tok.Pos}, nil

	case token.None:
		p.next()

		// none() is another spelling of none.
		if p.at(token.LParen) && p.peekAt(1).Kind == token.RParen {
			p.next()
			p.next()
		}

		return &NoneLit{NonePos: tok.Pos}, nil

	case token.Symbol:
		p.next()

		return &SymbolLit{Name: tok.Text, SymPos: tok.Pos}, nil

	case token.Ident:
		p.next()

		return &Ident{Name: tok.Text, NamePos: tok.Pos}, nil

	case token.LParen:
		p.next()
		p.skipNewlines()

		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		p.skipNewlines()

		if _, err := p.expect(token.RParen, strconv.Quote(")")); err != nil {
			return nil, err
		}

		return x, nil

	case token.LBracket:
		p.next()

		elems, err := p.parseList(token.RBracket)
		if err != nil {
			return nil, err
		}

		return &ArrayLit{Elems: elems, Lbrack: tok.Pos}, nil

	case token.LBrace:
		return p.parseBlock()

	case token.Fn:
		return p.parseFunc()

	case token.If:
		return p.parseIf()
	}

	return nil, p.expected("expression")
}

func (p *parser) parseIf() (Expr, error) {
	kw := p.next()

	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	x := &IfExpr{Cond: cond, Then: then, IfPos: kw.Pos}

	// Allow "}\nelse {"; no statement can begin with else.
	save := p.pos

	p.skipNewlines()

	if !p.at(token.Else) {
		p.pos = save

		return x, nil
	}

	p.next()

	if p.at(token.If) {
		x.Else, err = p.parseIf()
	} else {
		x.Else, err = p.parseBlock()
	}

	if err != nil {
		return nil, err
	}

	return x, nil
}

// parseParts parses the embedded expressions of a template or command. Each
// expression segment carries its own EOF-terminated token stream.
func (p *parser) parseParts(segs []token.Segment) ([]Part, error) {
	parts := make([]Part, 0, len(segs))

	for _, seg := range segs {
		if !seg.IsExpr() {
			parts = append(parts, Part{Text: seg.Text})

			continue
		}

		sub := &parser{toks: seg.Tokens, logger: p.logger}

		sub.skipNewlines()

		x, err := sub.parseExpr()
		if err != nil {
			return nil, err
		}

		sub.skipNewlines()

		if !sub.at(token.EOF) {
			return nil, sub.expected("end of interpolation")
		}

		parts = append(parts, Part{Expr: x})
	}

	return parts, nil
}

// describe names an expression kind for error messages.
func describe(x Expr) string {
	switch x.(type) {
	case *CallExpr:
		return "call result"
	case *NumberLit, *StringLit, *TemplateLit, *BoolLit, *NoneLit, *SymbolLit:
		return "literal"
	case *BinaryExpr, *UnaryExpr:
		return "operator result"
	case *Block:
		return "block"
	case *FuncLit:
		return "function"
	case *CommandExpr:
		return "command"
	default:
		return "expression"
	}
}
