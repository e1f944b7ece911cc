package parser

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/ardnew/cmds/lang/token"
)

// Format writes the program as canonical source. Nested blocks are indented
// by indent spaces; a non-positive indent selects a tab.
func (p *Program) Format(_ context.Context, w io.Writer, indent int) error {
	f := &formatter{unit: "\t"}
	if indent > 0 {
		f.unit = strings.Repeat(" ", indent)
	}

	for _, s := range p.Stmts {
		f.stmt(s)
		f.b.WriteByte('\n')
	}

	_, err := io.WriteString(w, f.b.String())

	return err
}

// FormatNode returns the canonical source of a single node.
func FormatNode(n Node) string {
	f := &formatter{unit: "  "}

	switch n := n.(type) {
	case Stmt:
		f.stmt(n)
	case Expr:
		f.expr(n, 0)
	default:
		fmt.Fprintf(&f.b, "%T", n)
	}

	return f.b.String()
}

type formatter struct {
	b     strings.Builder
	unit  string
	depth int
}

func (f *formatter) newline() {
	f.b.WriteByte('\n')

	for range f.depth {
		f.b.WriteString(f.unit)
	}
}

func (f *formatter) stmt(s Stmt) {
	switch s := s.(type) {
	case *ExprStmt:
		f.expr(s.X, 0)

	case *AssignStmt:
		if fn, ok := s.Value.(*FuncLit); ok && s.IsPlain() && fn.Name != "" &&
			fn.Name == s.Target.(*Ident).Name {
			f.expr(fn, 0)

			return
		}

		f.expr(s.Target, 0)
		f.b.WriteString(" " + s.Op.String() + " ")
		f.expr(s.Value, 0)

	case *ReturnStmt:
		f.b.WriteString("return")

		if s.Value != nil {
			f.b.WriteByte(' ')
			f.expr(s.Value, 0)
		}

	case *WhileStmt:
		f.b.WriteString("while ")
		f.expr(s.Cond, 0)
		f.b.WriteByte(' ')
		f.block(s.Body)

	case *ForStmt:
		f.b.WriteString("for " + s.Var + " in ")
		f.expr(s.Iter, 0)
		f.b.WriteByte(' ')
		f.block(s.Body)

	case *BranchStmt:
		f.b.WriteString(s.Tok.String())
	}
}

func (f *formatter) block(b *Block) {
	if len(b.Stmts) == 0 {
		f.b.WriteString("{}")

		return
	}

	f.b.WriteByte('{')
	f.depth++

	for _, s := range b.Stmts {
		f.newline()
		f.stmt(s)
	}

	f.depth--
	f.newline()
	f.b.WriteByte('}')
}

// expr writes x, parenthesizing it when its own precedence is below prec.
func (f *formatter) expr(x Expr, prec int) {
	switch x := x.(type) {
	case *NumberLit:
		if x.Text != "" {
			f.b.WriteString(x.Text)
		} else {
			f.b.WriteString(strconv.FormatFloat(x.Value, 'g', -1, 64))
		}

	case *StringLit:
		f.b.WriteString(quote([]Part{{Text: x.Value}}, f))

	case *TemplateLit:
		f.b.WriteString(quote(x.Parts, f))

	case *BoolLit:
		f.b.WriteString(strconv.FormatBool(x.Value))

	case *NoneLit:
		f.b.WriteString("none")

	case *SymbolLit:
		f.b.WriteString("#" + x.Name)

	case *Ident:
		f.b.WriteString(x.Name)

	case *ArrayLit:
		f.b.WriteByte('[')

		for i, el := range x.Elems {
			if i > 0 {
				f.b.WriteString(", ")
			}

			f.expr(el, 0)
		}

		f.b.WriteByte(']')

	case *UnaryExpr:
		f.b.WriteString(x.Op.String())
		f.expr(x.X, precPow+1)

	case *BinaryExpr:
		p := binaryPrec[x.Op]
		if p < prec {
			f.b.WriteByte('(')
			defer f.b.WriteByte(')')
		}

		left, right := p, p+1
		if x.Op == token.Caret {
			left, right = p+1, p
		}

		f.expr(x.X, left)
		f.b.WriteString(" " + x.Op.String() + " ")
		f.expr(x.Y, right)

	case *Block:
		f.block(x)

	case *FuncLit:
		f.b.WriteString("fn")

		if x.Name != "" {
			f.b.WriteString(" " + x.Name)
		}

		f.b.WriteString("(" + strings.Join(x.Params, ", ") + ") ")
		f.block(x.Body)

	case *CallExpr:
		f.postfix(x.Fun)
		f.b.WriteByte('(')

		for i, arg := range x.Args {
			if i > 0 {
				f.b.WriteString(", ")
			}

			f.expr(arg, 0)
		}

		f.b.WriteByte(')')

	case *MemberExpr:
		f.postfix(x.X)
		f.b.WriteString("." + x.Name)

	case *IndexExpr:
		f.postfix(x.X)
		f.b.WriteByte('[')
		f.expr(x.Index, 0)
		f.b.WriteByte(']')

	case *AwaitExpr:
		f.postfix(x.X)
		f.b.WriteByte('!')

	case *IfExpr:
		f.b.WriteString("if ")
		f.expr(x.Cond, 0)
		f.b.WriteByte(' ')
		f.block(x.Then)

		if x.Else != nil {
			f.b.WriteString(" else ")
			f.expr(x.Else, 0)
		}

	case *CommandExpr:
		if x.Async {
			f.b.WriteString("% ")
		} else {
			f.b.WriteString("$ ")
		}

		for _, part := range x.Parts {
			if part.Expr != nil {
				f.b.WriteString("{{ ")
				f.expr(part.Expr, 0)
				f.b.WriteString(" }}")

				continue
			}

			text := strings.ReplaceAll(part.Text, "{{", `\{{`)
			f.b.WriteString(strings.ReplaceAll(text, "$(", `\$(`))
		}
	}
}

// postfix writes the operand of a call, member, index, or await expression.
func (f *formatter) postfix(x Expr) {
	switch x.(type) {
	case *BinaryExpr, *UnaryExpr, *IfExpr, *CommandExpr:
		f.b.WriteByte('(')
		f.expr(x, 0)
		f.b.WriteByte(')')
	default:
		f.expr(x, 0)
	}
}

// quote renders parts as a double-quoted literal using only escapes the
// lexer accepts.
func quote(parts []Part, f *formatter) string {
	var b strings.Builder

	b.WriteByte('"')

	for _, part := range parts {
		if part.Expr != nil {
			sub := &formatter{unit: f.unit}
			sub.expr(part.Expr, 0)
			b.WriteString("{{ " + sub.b.String() + " }}")

			continue
		}

		rs := []rune(part.Text)
		for i, r := range rs {
			switch {
			case r == '"' || r == '\\':
				b.WriteByte('\\')
				b.WriteRune(r)
			case r == '\n':
				b.WriteString(`\n`)
			case r == '\t':
				b.WriteString(`\t`)
			case r == '\r':
				b.WriteString(`\r`)
			case r == 0:
				b.WriteString(`\0`)
			case r == '{' && i+1 < len(rs) && rs[i+1] == '{':
				b.WriteString(`\{`)
			case r < 0x10000 && !unicode.IsPrint(r):
				fmt.Fprintf(&b, `\u%04x`, r)
			default:
				b.WriteRune(r)
			}
		}
	}

	b.WriteByte('"')

	return b.String()
}
