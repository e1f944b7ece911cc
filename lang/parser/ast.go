package parser

import "github.com/ardnew/cmds/lang/token"

// Node is implemented by every syntax tree element.
type Node interface {
	Pos() token.Position
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Program is the root of a parsed script.
type Program struct {
	Source string // may be empty when parsed from tokens
	Stmts  []Stmt
}

func (p *Program) Pos() token.Position {
	if len(p.Stmts) == 0 {
		return token.Position{Line: 1, Column: 1}
	}

	return p.Stmts[0].Pos()
}

type (
	// NumberLit is a numeric literal.
	NumberLit struct {
		Value  float64
		Text   string
		NumPos token.Position
	}

	// StringLit is a string literal without interpolation.
	StringLit struct {
		Value  string
		StrPos token.Position
	}

	// TemplateLit is a string literal with interpolated expressions.
	TemplateLit struct {
		Parts  []Part
		StrPos token.Position
	}

	// BoolLit is true or false.
	BoolLit struct {
		Value   bool
		BoolPos token.Position
	}

	// NoneLit is the none literal.
	NoneLit struct {
		NonePos token.Position
	}

	// SymbolLit is a #Name literal.
	SymbolLit struct {
		Name   string
		SymPos token.Position
	}

	// ArrayLit is a bracketed list of elements.
	ArrayLit struct {
		Elems  []Expr
		Lbrack token.Position
	}

	// Ident is a name reference.
	Ident struct {
		Name    string
		NamePos token.Position
	}

	// UnaryExpr is a prefix operation.
	UnaryExpr struct {
		X     Expr
		Op    token.Kind
		OpPos token.Position
	}

	// BinaryExpr is an infix operation.
	BinaryExpr struct {
		X     Expr
		Y     Expr
		Op    token.Kind
		OpPos token.Position
	}

	// Block is a braced statement list. Whether it evaluates to a value or
	// to the scope it creates is decided at evaluation time.
	Block struct {
		Stmts  []Stmt
		Lbrace token.Position
	}

	// FuncLit is a function literal. Name is set for the declaration form.
	FuncLit struct {
		Body    *Block
		Name    string
		Params  []string
		FnPos   token.Position
		NamePos token.Position
	}

	// CallExpr is a function call.
	CallExpr struct {
		Fun    Expr
		Args   []Expr
		Lparen token.Position
	}

	// MemberExpr is X.Name.
	MemberExpr struct {
		X       Expr
		Name    string
		NamePos token.Position
	}

	// IndexExpr is X[Index].
	IndexExpr struct {
		X      Expr
		Index  Expr
		Lbrack token.Position
	}

	// IfExpr is an if/else-if/else chain. Else is nil, a *Block, or an
	// *IfExpr.
	IfExpr struct {
		Cond  Expr
		Then  *Block
		Else  Expr
		IfPos token.Position
	}

	// CommandExpr runs its text through the process service.
	CommandExpr struct {
		Parts  []Part
		Async  bool
		CmdPos token.Position
	}

	// AwaitExpr is the postfix '!' applied to an async handle.
	AwaitExpr struct {
		X       Expr
		BangPos token.Position
	}
)

// Part is one element of a template or command: literal text when Expr is
// nil, an interpolated expression otherwise.
type Part struct {
	Expr Expr
	Text string
}

type (
	// ExprStmt is an expression evaluated for its value or effect.
	ExprStmt struct {
		X Expr
	}

	// AssignStmt binds or updates Target. Op is [token.Assign] or a
	// compound assignment.
	AssignStmt struct {
		Target Expr // *Ident, *MemberExpr, or *IndexExpr
		Value  Expr
		Op     token.Kind
		OpPos  token.Position
	}

	// ReturnStmt leaves the enclosing function. Value may be nil.
	ReturnStmt struct {
		Value  Expr
		RetPos token.Position
	}

	// WhileStmt repeats Body while Cond is truthy.
	WhileStmt struct {
		Cond     Expr
		Body     *Block
		WhilePos token.Position
	}

	// ForStmt runs Body once per element of Iter bound to Var.
	ForStmt struct {
		Iter   Expr
		Body   *Block
		Var    string
		ForPos token.Position
	}

	// BranchStmt is break or continue.
	BranchStmt struct {
		Tok    token.Kind
		TokPos token.Position
	}
)

func (n *NumberLit) Pos() token.Position   { return n.NumPos }
func (n *StringLit) Pos() token.Position   { return n.StrPos }
func (n *TemplateLit) Pos() token.Position { return n.StrPos }
func (n *BoolLit) Pos() token.Position     { return n.BoolPos }
func (n *NoneLit) Pos() token.Position     { return n.NonePos }
func (n *SymbolLit) Pos() token.Position   { return n.SymPos }
func (n *ArrayLit) Pos() token.Position    { return n.Lbrack }
func (n *Ident) Pos() token.Position       { return n.NamePos }
func (n *UnaryExpr) Pos() token.Position   { return n.OpPos }
func (n *BinaryExpr) Pos() token.Position  { return n.X.Pos() }
func (n *Block) Pos() token.Position       { return n.Lbrace }
func (n *FuncLit) Pos() token.Position     { return n.FnPos }
func (n *CallExpr) Pos() token.Position    { return n.Fun.Pos() }
func (n *MemberExpr) Pos() token.Position  { return n.X.Pos() }
func (n *IndexExpr) Pos() token.Position   { return n.X.Pos() }
func (n *IfExpr) Pos() token.Position      { return n.IfPos }
func (n *CommandExpr) Pos() token.Position { return n.CmdPos }
func (n *AwaitExpr) Pos() token.Position   { return n.X.Pos() }

func (*NumberLit) exprNode()   {}
func (*StringLit) exprNode()   {}
func (*TemplateLit) exprNode() {}
func (*BoolLit) exprNode()     {}
func (*NoneLit) exprNode()     {}
func (*SymbolLit) exprNode()   {}
func (*ArrayLit) exprNode()    {}
func (*Ident) exprNode()       {}
func (*UnaryExpr) exprNode()   {}
func (*BinaryExpr) exprNode()  {}
func (*Block) exprNode()       {}
func (*FuncLit) exprNode()     {}
func (*CallExpr) exprNode()    {}
func (*MemberExpr) exprNode()  {}
func (*IndexExpr) exprNode()   {}
func (*IfExpr) exprNode()      {}
func (*CommandExpr) exprNode() {}
func (*AwaitExpr) exprNode()   {}

func (s *ExprStmt) Pos() token.Position   { return s.X.Pos() }
func (s *AssignStmt) Pos() token.Position { return s.Target.Pos() }
func (s *ReturnStmt) Pos() token.Position { return s.RetPos }
func (s *WhileStmt) Pos() token.Position  { return s.WhilePos }
func (s *ForStmt) Pos() token.Position    { return s.ForPos }
func (s *BranchStmt) Pos() token.Position { return s.TokPos }

func (*ExprStmt) stmtNode()   {}
func (*AssignStmt) stmtNode() {}
func (*ReturnStmt) stmtNode() {}
func (*WhileStmt) stmtNode()  {}
func (*ForStmt) stmtNode()    {}
func (*BranchStmt) stmtNode() {}

// IsPlain reports whether s is a simple "name = expr" binding, which is the
// only statement form allowed in a block that evaluates to an object.
func (s *AssignStmt) IsPlain() bool {
	_, ok := s.Target.(*Ident)

	return ok && s.Op == token.Assign
}

// IsObject reports whether b evaluates to the scope it creates: every
// top-level statement is a plain assignment. An empty block qualifies.
func (b *Block) IsObject() bool {
	for _, s := range b.Stmts {
		a, ok := s.(*AssignStmt)
		if !ok || !a.IsPlain() {
			return false
		}
	}

	return true
}
