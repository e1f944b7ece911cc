package parser

import (
	"io"
	"strconv"
	"strings"
)

func writer(w io.Writer) func(eol string, item ...string) {
	return func(eol string, item ...string) {
		_, err := io.WriteString(w, strings.Join(item, ": ")+eol)
		if err != nil {
			panic(err)
		}
	}
}

// Print writes an indented dump of the syntax tree, one node per line.
func (p *Program) Print(w io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e

				return
			}

			panic(r)
		}
	}()

	put := writer(w)
	put("\n", "Program")

	for _, s := range p.Stmts {
		printNode(put, s, 1)
	}

	return nil
}

func printNode(put func(string, ...string), n Node, depth int) {
	prefix := strings.Repeat("  ", depth)

	line := func(kind string, detail ...string) {
		put("\n", append([]string{prefix + kind}, detail...)...)
	}

	label := func(name string) {
		put("\n", strings.Repeat("  ", depth+1)+name)
	}

	parts := func(ps []Part) {
		for _, part := range ps {
			if part.Expr == nil {
				put("\n", strings.Repeat("  ", depth+1)+"Text", strconv.Quote(part.Text))
			} else {
				printNode(put, part.Expr, depth+1)
			}
		}
	}

	switch n := n.(type) {
	case *NumberLit:
		line("Number", strconv.FormatFloat(n.Value, 'g', -1, 64))
	case *StringLit:
		line("String", strconv.Quote(n.Value))
	case *TemplateLit:
		line("Template")
		parts(n.Parts)
	case *BoolLit:
		line("Bool", strconv.FormatBool(n.Value))
	case *NoneLit:
		line("None")
	case *SymbolLit:
		line("Symbol", "#"+n.Name)
	case *ArrayLit:
		line("Array", strconv.Itoa(len(n.Elems)))

		for _, x := range n.Elems {
			printNode(put, x, depth+1)
		}
	case *Ident:
		line("Ident", n.Name)
	case *UnaryExpr:
		line("Unary", n.Op.String())
		printNode(put, n.X, depth+1)
	case *BinaryExpr:
		line("Binary", n.Op.String())
		printNode(put, n.X, depth+1)
		printNode(put, n.Y, depth+1)
	case *Block:
		kind := "value"
		if n.IsObject() {
			kind = "object"
		}

		line("Block", kind)

		for _, s := range n.Stmts {
			printNode(put, s, depth+1)
		}
	case *FuncLit:
		line("Func", n.Name+"("+strings.Join(n.Params, ", ")+")")
		printNode(put, n.Body, depth+1)
	case *CallExpr:
		line("Call", strconv.Itoa(len(n.Args)))
		printNode(put, n.Fun, depth+1)

		for _, x := range n.Args {
			printNode(put, x, depth+1)
		}
	case *MemberExpr:
		line("Member", n.Name)
		printNode(put, n.X, depth+1)
	case *IndexExpr:
		line("Index")
		printNode(put, n.X, depth+1)
		printNode(put, n.Index, depth+1)
	case *IfExpr:
		line("If")
		printNode(put, n.Cond, depth+1)
		printNode(put, n.Then, depth+1)

		if n.Else != nil {
			label("Else")
			printNode(put, n.Else, depth+2)
		}
	case *CommandExpr:
		mode := "sync"
		if n.Async {
			mode = "async"
		}

		line("Command", mode)
		parts(n.Parts)
	case *AwaitExpr:
		line("Await")
		printNode(put, n.X, depth+1)
	case *ExprStmt:
		printNode(put, n.X, depth)
	case *AssignStmt:
		line("Assign", n.Op.String())
		printNode(put, n.Target, depth+1)
		printNode(put, n.Value, depth+1)
	case *ReturnStmt:
		line("Return")

		if n.Value != nil {
			printNode(put, n.Value, depth+1)
		}
	case *WhileStmt:
		line("While")
		printNode(put, n.Cond, depth+1)
		printNode(put, n.Body, depth+1)
	case *ForStmt:
		line("For", n.Var)
		printNode(put, n.Iter, depth+1)
		printNode(put, n.Body, depth+1)
	case *BranchStmt:
		line(n.Tok.String())
	}
}
