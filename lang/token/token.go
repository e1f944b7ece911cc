// Package token defines the lexical tokens of the cmds language and the
// source positions attached to them.
package token

import (
	"strconv"
	"strings"
)

// Kind identifies the lexical class of a [Token].
type Kind int

const (
	Illegal Kind = iota
	EOF
	Newline
	Semicolon

	Ident
	Number
	String   // string literal without interpolation
	Template // string literal with at least one interpolation
	Command  // command text following a '$' or '%' marker
	Symbol   // #Name

	keywordBegin
	Fn
	If
	Else
	While
	For
	In
	Break
	Continue
	Return
	True
	False
	None
	keywordEnd

	operatorBegin
	Plus
	Minus
	Star
	Slash
	Percent
	Caret
	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	PercentAssign
	CaretAssign
	Equal
	NotEqual
	Less
	LessEqual
	Greater
	GreaterEqual
	And
	Or
	Bang
	Range
	Dot
	Comma
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	operatorEnd
)

var kindName = [...]string{
	Illegal:   "illegal",
	EOF:       "end of input",
	Newline:   "newline",
	Semicolon: ";",
	Ident:     "identifier",
	Number:    "number",
	String:    "string",
	Template:  "template",
	Command:   "command",
	Symbol:    "symbol",

	Fn:       "fn",
	If:       "if",
	Else:     "else",
	While:    "while",
	For:      "for",
	In:       "in",
	Break:    "break",
	Continue: "continue",
	Return:   "return",
	True:     "true",
	False:    "false",
	None:     "none",

	Plus:          "+",
	Minus:         "-",
	Star:          "*",
	Slash:         "/",
	Percent:       "%",
	Caret:         "^",
	Assign:        "=",
	PlusAssign:    "+=",
	MinusAssign:   "-=",
	StarAssign:    "*=",
	SlashAssign:   "/=",
	PercentAssign: "%=",
	CaretAssign:   "^=",
	Equal:         "==",
	NotEqual:      "!=",
	Less:          "<",
	LessEqual:     "<=",
	Greater:       ">",
	GreaterEqual:  ">=",
	And:           "&&",
	Or:            "||",
	Bang:          "!",
	Range:         "..",
	Dot:           ".",
	Comma:         ",",
	LParen:        "(",
	RParen:        ")",
	LBrace:        "{",
	RBrace:        "}",
	LBracket:      "[",
	RBracket:      "]",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindName) && kindName[k] != "" {
		return kindName[k]
	}

	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// IsKeyword reports whether k is a reserved word.
func (k Kind) IsKeyword() bool { return k > keywordBegin && k < keywordEnd }

// IsOperator reports whether k is an operator or punctuation mark.
func (k Kind) IsOperator() bool { return k > operatorBegin && k < operatorEnd }

// IsAssign reports whether k is '=' or one of the compound assignments.
func (k Kind) IsAssign() bool { return k >= Assign && k <= CaretAssign }

// IsSeparator reports whether k terminates a statement.
func (k Kind) IsSeparator() bool { return k == Newline || k == Semicolon }

// Compound returns the binary operator applied by a compound assignment, or
// [Illegal] when k is not a compound assignment.
func (k Kind) Compound() Kind {
	switch k {
	case PlusAssign:
		return Plus
	case MinusAssign:
		return Minus
	case StarAssign:
		return Star
	case SlashAssign:
		return Slash
	case PercentAssign:
		return Percent
	case CaretAssign:
		return Caret
	default:
		return Illegal
	}
}

var keywords = func() map[string]Kind {
	m := make(map[string]Kind, keywordEnd-keywordBegin)
	for k := keywordBegin + 1; k < keywordEnd; k++ {
		m[kindName[k]] = k
	}

	return m
}()

// Lookup returns the keyword kind for ident, or [Ident] if it is not
// reserved.
func Lookup(ident string) Kind {
	if k, ok := keywords[ident]; ok {
		return k
	}

	return Ident
}

// Keywords returns the reserved words in declaration order.
func Keywords() []string {
	out := make([]string, 0, keywordEnd-keywordBegin-1)
	for k := keywordBegin + 1; k < keywordEnd; k++ {
		out = append(out, kindName[k])
	}

	return out
}

// Token is a single lexical element.
//
// Text holds the identifier, keyword, or operator spelling, the decoded value
// of a [String], or the name of a [Symbol]. Templates and commands carry their
// content in Segments instead.
type Token struct {
	Segments []Segment
	Text     string
	Pos      Position
	Number   float64
	Kind     Kind
	Async    bool // Command only: '%' rather than '$'
}

// Segment is one piece of a template or command: either literal text or the
// tokens of an embedded expression.
type Segment struct {
	Text   string
	Tokens []Token // nil for literal text; terminated by EOF otherwise
	Pos    Position
}

// IsExpr reports whether the segment is an embedded expression.
func (s Segment) IsExpr() bool { return s.Tokens != nil }

func (t Token) String() string {
	switch t.Kind {
	case Ident:
		return "identifier " + strconv.Quote(t.Text)
	case Number:
		return "number " + strconv.FormatFloat(t.Number, 'g', -1, 64)
	case String:
		return "string " + strconv.Quote(t.Text)
	case Symbol:
		return "symbol #" + t.Text
	case Template, Command:
		var b strings.Builder

		if t.Kind == Command {
			if t.Async {
				b.WriteString("% ")
			} else {
				b.WriteString("$ ")
			}
		}

		for _, s := range t.Segments {
			if s.IsExpr() {
				b.WriteString("{{…}}")
			} else {
				b.WriteString(s.Text)
			}
		}

		return t.Kind.String() + " " + strconv.Quote(b.String())
	default:
		if t.Kind.IsKeyword() || t.Kind.IsOperator() {
			return strconv.Quote(t.Kind.String())
		}

		return t.Kind.String()
	}
}
