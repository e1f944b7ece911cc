// Package lexer converts cmds source text into a sequence of tokens.
//
// The lexer is context sensitive in one place: a '$' or '%' in operand
// position starts a command, and everything up to the end of the line is
// command text. Command text and string literals may embed expressions with
// {{ … }} (and $( … ) in commands); those expressions are lexed eagerly into
// nested token slices carried by [token.Segment].
package lexer

import (
	"log/slog"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ardnew/cmds/lang/token"
	"github.com/ardnew/cmds/log"
)

// Option configures a [Lexer].
type Option func(*Lexer)

// WithLogger sets the logger used for trace output.
func WithLogger(logger log.Logger) Option {
	return func(l *Lexer) { l.logger = logger }
}

// Lexer holds the scanning state for one source text.
type Lexer struct {
	src    string
	logger log.Logger

	pos  int // byte offset of the next rune
	line int
	col  int

	// depth counts unclosed '{' in code; a command inside a block ends at
	// the '}' that closes it.
	depth int
	// nested is nonzero while lexing an interpolated expression.
	nested int
}

// New returns a Lexer for src.
func New(src string, opts ...Option) *Lexer {
	l := &Lexer{src: src, line: 1, col: 1}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Tokenize lexes src in its entirety. The returned slice always ends with an
// [token.EOF] token.
func Tokenize(src string, opts ...Option) ([]token.Token, error) {
	return New(src, opts...).Tokenize()
}

// Tokenize lexes the remaining input.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	toks, err := l.lex(closeNone)
	if err != nil {
		return nil, err
	}

	l.logger.Trace("tokenize complete",
		slog.Int("source_bytes", len(l.src)),
		slog.Int("token_count", len(toks)),
	)

	return toks, nil
}

// closer names the delimiter that ends a (possibly nested) token stream.
type closer int

const (
	closeNone   closer = iota // end of input
	closeBraces               // "}}"
	closeParen                // ")"
)

func (c closer) String() string {
	switch c {
	case closeBraces:
		return "}}"
	case closeParen:
		return ")"
	default:
		return "end of input"
	}
}

// lex scans tokens until the given closer, which is consumed but not
// emitted. The result is terminated by an EOF token positioned at the closer.
func (l *Lexer) lex(until closer) ([]token.Token, error) {
	var (
		toks  []token.Token
		paren int // unclosed '(' in this stream
		brace int // unclosed '{' in this stream
	)

	start := l.position()

	for {
		l.skipSpace(until != closeNone)

		pos := l.position()

		if l.eof() {
			if until != closeNone {
				return nil, l.errorAt(start, "unterminated interpolation, expected "+strconv.Quote(until.String()))
			}

			return append(toks, token.Token{Kind: token.EOF, Pos: pos}), nil
		}

		switch {
		case until == closeBraces && brace == 0 && strings.HasPrefix(l.rest(), "}}"):
			l.advance(2)

			return append(toks, token.Token{Kind: token.EOF, Pos: pos}), nil

		case until == closeParen && paren == 0 && l.peek() == ')':
			l.advance(1)

			return append(toks, token.Token{Kind: token.EOF, Pos: pos}), nil
		}

		tok, err := l.next(toks)
		if err != nil {
			return nil, err
		}

		switch tok.Kind {
		case token.LParen:
			paren++
		case token.RParen:
			paren--
		case token.LBrace:
			brace++
		case token.RBrace:
			brace--
		}

		toks = append(toks, tok)
	}
}

// next scans a single token. prev holds the tokens already emitted in the
// current stream and decides whether '$', '%', '+', and '-' begin an operand.
func (l *Lexer) next(prev []token.Token) (token.Token, error) {
	pos := l.position()
	r := l.peek()
	operand := operandPosition(prev)

	switch {
	case r == '\n':
		l.advance(1)

		return token.Token{Kind: token.Newline, Text: "\n", Pos: pos}, nil

	case r == '\r' && strings.HasPrefix(l.rest(), "\r\n"):
		l.advance(2)

		return token.Token{Kind: token.Newline, Text: "\n", Pos: pos}, nil

	case (r == '$' || r == '%') && operand:
		if l.nested > 0 {
			return token.Token{}, l.errorAt(pos, "command not allowed inside interpolation")
		}

		return l.lexCommand()

	case r == '"' || r == '\'':
		return l.lexString()

	case r == '#':
		return l.lexSymbol()

	case isDigit(r):
		return l.lexNumber(pos, false)

	case (r == '-' || r == '+') && operand && isDigit(l.peekAt(1)):
		l.advance(1)

		return l.lexNumber(pos, r == '-')

	case isIdentStart(r):
		return l.lexIdent(), nil
	}

	return l.lexOperator()
}

// operandPosition reports whether the next token may start an operand, which
// is true at the start of a stream or statement and after any token that
// cannot end an expression.
func operandPosition(prev []token.Token) bool {
	if len(prev) == 0 {
		return true
	}

	switch prev[len(prev)-1].Kind {
	case token.Ident, token.Number, token.String, token.Template,
		token.Symbol, token.True, token.False, token.None,
		token.RParen, token.RBracket, token.RBrace, token.Command:
		return false
	}

	return true
}

func (l *Lexer) lexIdent() token.Token {
	pos := l.position()
	begin := l.pos

	for !l.eof() && isIdentContinue(l.peek()) {
		l.advanceRune()
	}

	text := l.src[begin:l.pos]

	return token.Token{Kind: token.Lookup(text), Text: text, Pos: pos}
}

func (l *Lexer) lexSymbol() (token.Token, error) {
	pos := l.position()

	l.advance(1) // '#'

	if l.eof() || !isIdentStart(l.peek()) {
		return token.Token{}, l.errorAt(pos, "expected symbol name after '#'")
	}

	name := l.lexIdent()

	return token.Token{Kind: token.Symbol, Text: name.Text, Pos: pos}, nil
}

// lexNumber scans digits with an optional fractional part and exponent.
// The sign, if any, has already been consumed.
func (l *Lexer) lexNumber(pos token.Position, negative bool) (token.Token, error) {
	begin := l.pos

	for isDigit(l.peek()) {
		l.advance(1)
	}

	// A '.' is part of the number only when a digit follows; "1..3" is a
	// range and "1.x" is member access.
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance(1)

		for isDigit(l.peek()) {
			l.advance(1)
		}
	}

	// An exponent needs at least one digit, so "2e" and "2ex" stay a number
	// followed by an identifier.
	if c := l.peek(); c == 'e' || c == 'E' {
		n := 1
		if sign := l.peekAt(1); sign == '+' || sign == '-' {
			n = 2
		}

		if isDigit(l.peekAt(n)) {
			l.advance(n)

			for isDigit(l.peek()) {
				l.advance(1)
			}
		}
	}

	text := l.src[begin:l.pos]

	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token.Token{}, l.errorAt(pos, "invalid number "+strconv.Quote(text))
	}

	if negative {
		n = -n
		text = "-" + text
	}

	return token.Token{Kind: token.Number, Text: text, Number: n, Pos: pos}, nil
}

// operators lists the two-character operators, which are tried before the
// single-character ones.
var operators = []struct {
	text string
	kind token.Kind
}{
	{"==", token.Equal},
	{"!=", token.NotEqual},
	{"<=", token.LessEqual},
	{">=", token.GreaterEqual},
	{"&&", token.And},
	{"||", token.Or},
	{"+=", token.PlusAssign},
	{"-=", token.MinusAssign},
	{"*=", token.StarAssign},
	{"/=", token.SlashAssign},
	{"%=", token.PercentAssign},
	{"^=", token.CaretAssign},
	{"..", token.Range},
	{"+", token.Plus},
	{"-", token.Minus},
	{"*", token.Star},
	{"/", token.Slash},
	{"%", token.Percent},
	{"^", token.Caret},
	{"=", token.Assign},
	{"<", token.Less},
	{">", token.Greater},
	{"!", token.Bang},
	{".", token.Dot},
	{",", token.Comma},
	{";", token.Semicolon},
	{"(", token.LParen},
	{")", token.RParen},
	{"{", token.LBrace},
	{"}", token.RBrace},
	{"[", token.LBracket},
	{"]", token.RBracket},
}

func (l *Lexer) lexOperator() (token.Token, error) {
	pos := l.position()
	rest := l.rest()

	for _, op := range operators {
		if !strings.HasPrefix(rest, op.text) {
			continue
		}

		l.advance(len(op.text))

		switch op.kind {
		case token.LBrace:
			l.depth++
		case token.RBrace:
			if l.depth > 0 {
				l.depth--
			}
		}

		return token.Token{Kind: op.kind, Text: op.text, Pos: pos}, nil
	}

	r, _ := utf8.DecodeRuneInString(rest)

	return token.Token{}, l.errorAt(pos, "unexpected character "+strconv.QuoteRune(r))
}

// skipSpace discards blanks and comments. Newlines are significant and left
// in place unless newlines is set, which is the case inside interpolations.
func (l *Lexer) skipSpace(newlines bool) {
	for !l.eof() {
		switch r := l.peek(); {
		case r == ' ' || r == '\t' || r == '\f' || r == '\v':
			l.advance(1)

		case r == '\r' && l.peekAt(1) != '\n':
			l.advance(1)

		case newlines && (r == '\n' || r == '\r'):
			l.advance(1)

		case r == '/' && l.peekAt(1) == '/':
			for !l.eof() && l.peek() != '\n' {
				l.advanceRune()
			}

		case r == '\\' && (l.peekAt(1) == '\n' ||
			(l.peekAt(1) == '\r' && l.peekAt(2) == '\n')):
			// Line continuation between tokens.
			l.advance(1)
			l.skipNewline()

		default:
			return
		}
	}
}

func (l *Lexer) eof() bool { return l.pos >= len(l.src) }

func (l *Lexer) rest() string { return l.src[l.pos:] }

// peek returns the next byte as a rune, or 0 at end of input. Multi-byte
// runes are only ever inspected through advanceRune and isIdentStart.
func (l *Lexer) peek() rune { return l.peekAt(0) }

func (l *Lexer) peekAt(n int) rune {
	if l.pos+n >= len(l.src) {
		return 0
	}

	b := l.src[l.pos+n]
	if b < utf8.RuneSelf {
		return rune(b)
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.pos+n:])

	return r
}

// advance consumes n bytes, all of which must be ASCII.
func (l *Lexer) advance(n int) {
	for range n {
		if l.eof() {
			return
		}

		if l.src[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}

		l.pos++
	}
}

// advanceRune consumes one rune and returns it.
func (l *Lexer) advanceRune() rune {
	r, size := utf8.DecodeRuneInString(l.rest())
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}

	return r
}

// skipNewline consumes a "\n" or "\r\n" sequence.
func (l *Lexer) skipNewline() {
	if l.peek() == '\r' {
		l.advance(1)
	}

	if l.peek() == '\n' {
		l.advance(1)
	}
}

func (l *Lexer) position() token.Position {
	return token.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) errorAt(pos token.Position, msg string) *Error {
	return &Error{Pos: pos, Message: msg}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentContinue(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) ||
		unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r)
}
