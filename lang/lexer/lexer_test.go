package lexer

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ardnew/cmds/lang/token"
)

var ignorePos = cmp.Options{
	cmpopts.IgnoreFields(token.Token{}, "Pos"),
	cmpopts.IgnoreFields(token.Segment{}, "Pos"),
	cmpopts.EquateEmpty(),
}

func tok(k token.Kind, text string) token.Token {
	return token.Token{Kind: k, Text: text}
}

func num(text string, n float64) token.Token {
	return token.Token{Kind: token.Number, Text: text, Number: n}
}

func ident(name string) token.Token { return tok(token.Ident, name) }

func eof() token.Token { return token.Token{Kind: token.EOF} }

func text(s string) token.Segment { return token.Segment{Text: s} }

func expr(toks ...token.Token) token.Segment {
	return token.Segment{Tokens: append(toks, eof())}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []token.Token
	}{
		{
			name:  "assignment",
			input: "x = 1.5 + y",
			want: []token.Token{
				ident("x"), tok(token.Assign, "="), num("1.5", 1.5),
				tok(token.Plus, "+"), ident("y"), eof(),
			},
		},
		{
			name:  "binary minus after operand",
			input: "a -1",
			want:  []token.Token{ident("a"), tok(token.Minus, "-"), num("1", 1), eof()},
		},
		{
			name:  "signed literal in operand position",
			input: "f(-1)",
			want: []token.Token{
				ident("f"), tok(token.LParen, "("), num("-1", -1),
				tok(token.RParen, ")"), eof(),
			},
		},
		{
			name:  "keywords",
			input: "fn if else while return true false none",
			want: []token.Token{
				tok(token.Fn, "fn"), tok(token.If, "if"), tok(token.Else, "else"),
				tok(token.While, "while"), tok(token.Return, "return"),
				tok(token.True, "true"), tok(token.False, "false"),
				tok(token.None, "none"), eof(),
			},
		},
		{
			name:  "comment and newline",
			input: "x // the x\ny",
			want:  []token.Token{ident("x"), tok(token.Newline, "\n"), ident("y"), eof()},
		},
		{
			name:  "compound operators",
			input: "a += b == c && d != e",
			want: []token.Token{
				ident("a"), tok(token.PlusAssign, "+="), ident("b"),
				tok(token.Equal, "=="), ident("c"), tok(token.And, "&&"),
				ident("d"), tok(token.NotEqual, "!="), ident("e"), eof(),
			},
		},
		{
			name:  "modulo after operand",
			input: "x % 2",
			want:  []token.Token{ident("x"), tok(token.Percent, "%"), num("2", 2), eof()},
		},
		{
			name:  "exponent",
			input: "1.5e3 2E-2 3e",
			want: []token.Token{
				num("1.5e3", 1500), num("2E-2", 0.02), num("3", 3), ident("e"), eof(),
			},
		},
		{
			name:  "range",
			input: "1..3",
			want:  []token.Token{num("1", 1), tok(token.Range, ".."), num("3", 3), eof()},
		},
		{
			name:  "symbol",
			input: "#Error",
			want:  []token.Token{tok(token.Symbol, "Error"), eof()},
		},
		{
			name:  "sync command",
			input: "$ echo hi",
			want: []token.Token{
				{Kind: token.Command, Segments: []token.Segment{text("echo hi")}},
				eof(),
			},
		},
		{
			name:  "async command with interpolation",
			input: "h = % sleep {{ n }}",
			want: []token.Token{
				ident("h"), tok(token.Assign, "="),
				{
					Kind:     token.Command,
					Async:    true,
					Segments: []token.Segment{text("sleep "), expr(ident("n"))},
				},
				eof(),
			},
		},
		{
			name:  "command substitution",
			input: "$ git checkout $(nth(b, 0))",
			want: []token.Token{
				{
					Kind: token.Command,
					Segments: []token.Segment{
						text("git checkout "),
						expr(
							ident("nth"), tok(token.LParen, "("), ident("b"),
							tok(token.Comma, ","), num("0", 0), tok(token.RParen, ")"),
						),
					},
				},
				eof(),
			},
		},
		{
			name:  "command continuation",
			input: "$ echo a \\\n    b\nx",
			want: []token.Token{
				{Kind: token.Command, Segments: []token.Segment{text("echo a b")}},
				tok(token.Newline, "\n"), ident("x"), eof(),
			},
		},
		{
			name:  "command inside block",
			input: "if c { $ echo hi }",
			want: []token.Token{
				tok(token.If, "if"), ident("c"), tok(token.LBrace, "{"),
				{Kind: token.Command, Segments: []token.Segment{text("echo hi")}},
				tok(token.RBrace, "}"), eof(),
			},
		},
		{
			name:  "command keeps balanced braces",
			input: "$ echo ${HOME}",
			want: []token.Token{
				{Kind: token.Command, Segments: []token.Segment{text("echo ${HOME}")}},
				eof(),
			},
		},
		{
			name:  "string escapes",
			input: `"a\tb\n\{{c"`,
			want:  []token.Token{tok(token.String, "a\tb\n{{c"), eof()},
		},
		{
			name:  "single quoted string",
			input: `'Error'`,
			want:  []token.Token{tok(token.String, "Error"), eof()},
		},
		{
			name:  "template string",
			input: `"n={{ 1 + 2 }}!"`,
			want: []token.Token{
				{
					Kind: token.Template,
					Segments: []token.Segment{
						text("n="),
						expr(num("1", 1), tok(token.Plus, "+"), num("2", 2)),
						text("!"),
					},
				},
				eof(),
			},
		},
		{
			name:  "multi-line string",
			input: "s = \"\"\" \n  a\n  b\n \"\"\"",
			want: []token.Token{
				ident("s"), tok(token.Assign, "="), tok(token.String, "a\nb"), eof(),
			},
		},
		{
			name:  "multi-line string keeps relative indentation",
			input: "\"\"\"\n    a\n\n      b\n  \"\"\"",
			want:  []token.Token{tok(token.String, "a\n\n  b"), eof()},
		},
		{
			name:  "unicode identifier",
			input: "größe = 1",
			want:  []token.Token{ident("größe"), tok(token.Assign, "="), num("1", 1), eof()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("tokenize error: %v", err)
			}

			if diff := cmp.Diff(tt.want, got, ignorePos); diff != "" {
				t.Errorf("tokens mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTokenizePositions(t *testing.T) {
	got, err := Tokenize("a\n  bc = 1")
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}

	want := []token.Position{
		{Offset: 0, Line: 1, Column: 1},
		{Offset: 1, Line: 1, Column: 2},
		{Offset: 4, Line: 2, Column: 3},
		{Offset: 7, Line: 2, Column: 6},
		{Offset: 9, Line: 2, Column: 8},
		{Offset: 10, Line: 2, Column: 9},
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(got))
	}

	for i, tk := range got {
		if tk.Pos != want[i] {
			t.Errorf("token %d (%v): expected position %+v, got %+v", i, tk, want[i], tk.Pos)
		}
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		pos     token.Position
		message string
	}{
		{
			name:    "unterminated string",
			input:   `x = "abc`,
			pos:     token.Position{Offset: 4, Line: 1, Column: 5},
			message: "unterminated string literal",
		},
		{
			name:    "invalid escape",
			input:   `"a\qb"`,
			pos:     token.Position{Offset: 2, Line: 1, Column: 3},
			message: "invalid escape sequence",
		},
		{
			name:    "unterminated multi-line string",
			input:   "\"\"\"\n  abc\n",
			pos:     token.Position{Offset: 0, Line: 1, Column: 1},
			message: "unterminated multi-line string",
		},
		{
			name:    "unterminated interpolation",
			input:   `"{{ 1 + "`,
			message: "unterminated",
		},
		{
			name:    "empty command",
			input:   "$   \n",
			pos:     token.Position{Offset: 0, Line: 1, Column: 1},
			message: "empty command",
		},
		{
			name:    "unexpected character",
			input:   "x @ y",
			pos:     token.Position{Offset: 2, Line: 1, Column: 3},
			message: "unexpected character",
		},
		{
			name:    "command inside interpolation",
			input:   `"{{ $ ls }}"`,
			message: "command not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var lexErr *Error
			if !errors.As(err, &lexErr) {
				t.Fatalf("expected *Error, got %T", err)
			}

			if !strings.Contains(lexErr.Message, tt.message) {
				t.Errorf("expected message containing %q, got %q", tt.message, lexErr.Message)
			}

			if tt.pos.IsValid() && lexErr.Pos != tt.pos {
				t.Errorf("expected position %+v, got %+v", tt.pos, lexErr.Pos)
			}
		})
	}
}

func TestErrorFormat(t *testing.T) {
	src := "ok = 1\nx = \"abc"

	_, err := Tokenize(src)

	var lexErr *Error
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected *Error, got %v", err)
	}

	want := "lex error at 2:5: unterminated string literal\n" +
		"  2 | x = \"abc\n" +
		"          ^\n"

	if got := lexErr.Format(src); got != want {
		t.Errorf("format mismatch (-want +got):\n%s", cmp.Diff(want, got))
	}
}
