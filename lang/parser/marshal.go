package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// MarshalJSON implements [json.Marshaler] for Program.
func (p *Program) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ToMap())
}

// ToMap converts the program to generic maps and slices. Every node becomes
// a map whose "node" key names its type.
func (p *Program) ToMap() map[string]any {
	return map[string]any{
		"node":  "Program",
		"stmts": stmtsToNative(p.Stmts),
	}
}

// FormatJSON writes the syntax tree as JSON. A positive indent pretty-prints.
func (p *Program) FormatJSON(_ context.Context, w io.Writer, indent int) error {
	var (
		data []byte
		err  error
	)

	if indent > 0 {
		data, err = json.MarshalIndent(p, "", strings.Repeat(" ", indent))
	} else {
		data, err = json.Marshal(p)
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

// FormatYAML writes the syntax tree as YAML. A non-positive indent selects
// flow style.
func (p *Program) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	data, err := yaml.MarshalContext(ctx, p.ToMap(), opts...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(w, string(data))

	return err
}

func stmtsToNative(stmts []Stmt) []any {
	out := make([]any, len(stmts))
	for i, s := range stmts {
		out[i] = ToNative(s)
	}

	return out
}

func exprsToNative(exprs []Expr) []any {
	out := make([]any, len(exprs))
	for i, x := range exprs {
		out[i] = ToNative(x)
	}

	return out
}

func partsToNative(parts []Part) []any {
	out := make([]any, len(parts))

	for i, part := range parts {
		if part.Expr == nil {
			out[i] = part.Text
		} else {
			out[i] = ToNative(part.Expr)
		}
	}

	return out
}

// ToNative converts a single node to generic maps and slices. A nil node
// converts to nil.
func ToNative(n Node) any {
	m := func(kind string, kv ...any) map[string]any {
		out := map[string]any{"node": kind}

		if n != nil {
			out["pos"] = n.Pos().String()
		}

		for i := 0; i+1 < len(kv); i += 2 {
			out[kv[i].(string)] = kv[i+1]
		}

		return out
	}

	switch n := n.(type) {
	case nil:
		return nil
	case *Program:
		return n.ToMap()
	case *NumberLit:
		return m("Number", "value", n.Value)
	case *StringLit:
		return m("String", "value", n.Value)
	case *TemplateLit:
		return m("Template", "parts", partsToNative(n.Parts))
	case *BoolLit:
		return m("Bool", "value", n.Value)
	case *NoneLit:
		return m("None")
	case *SymbolLit:
		return m("Symbol", "name", n.Name)
	case *ArrayLit:
		return m("Array", "elems", exprsToNative(n.Elems))
	case *Ident:
		return m("Ident", "name", n.Name)
	case *UnaryExpr:
		return m("Unary", "op", n.Op.String(), "x", ToNative(n.X))
	case *BinaryExpr:
		return m("Binary", "op", n.Op.String(), "x", ToNative(n.X), "y", ToNative(n.Y))
	case *Block:
		return m("Block", "object", n.IsObject(), "stmts", stmtsToNative(n.Stmts))
	case *FuncLit:
		params := make([]any, len(n.Params))
		for i, p := range n.Params {
			params[i] = p
		}

		out := m("Func", "params", params, "body", ToNative(n.Body))
		if n.Name != "" {
			out["name"] = n.Name
		}

		return out
	case *CallExpr:
		return m("Call", "fun", ToNative(n.Fun), "args", exprsToNative(n.Args))
	case *MemberExpr:
		return m("Member", "x", ToNative(n.X), "name", n.Name)
	case *IndexExpr:
		return m("Index", "x", ToNative(n.X), "index", ToNative(n.Index))
	case *IfExpr:
		out := m("If", "cond", ToNative(n.Cond), "then", ToNative(n.Then))
		if n.Else != nil {
			out["else"] = ToNative(n.Else)
		}

		return out
	case *CommandExpr:
		return m("Command", "async", n.Async, "parts", partsToNative(n.Parts))
	case *AwaitExpr:
		return m("Await", "x", ToNative(n.X))
	case *ExprStmt:
		return m("Expr", "x", ToNative(n.X))
	case *AssignStmt:
		return m("Assign", "op", n.Op.String(), "target", ToNative(n.Target), "value", ToNative(n.Value))
	case *ReturnStmt:
		out := m("Return")
		if n.Value != nil {
			out["value"] = ToNative(n.Value)
		}

		return out
	case *WhileStmt:
		return m("While", "cond", ToNative(n.Cond), "body", ToNative(n.Body))
	case *ForStmt:
		return m("For", "var", n.Var, "iter", ToNative(n.Iter), "body", ToNative(n.Body))
	case *BranchStmt:
		return m(strings.ToUpper(n.Tok.String()[:1]) + n.Tok.String()[1:])
	default:
		return m(fmt.Sprintf("%T", n))
	}
}
