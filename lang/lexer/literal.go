package lexer

import (
	"strconv"
	"strings"

	"github.com/ardnew/cmds/lang/token"
)

// segments accumulates the literal text and embedded expressions of a string
// or command.
type segments struct {
	list []token.Segment
	text strings.Builder
	pos  token.Position
	expr bool
}

func (s *segments) write(pos token.Position, text string) {
	if s.text.Len() == 0 {
		s.pos = pos
	}

	s.text.WriteString(text)
}

func (s *segments) embed(seg token.Segment) {
	s.flush()
	s.list = append(s.list, seg)
	s.expr = true
}

func (s *segments) flush() {
	if s.text.Len() == 0 {
		return
	}

	s.list = append(s.list, token.Segment{Text: s.text.String(), Pos: s.pos})
	s.text.Reset()
}

// stringToken returns a [token.String] when nothing was interpolated and a
// [token.Template] otherwise.
func (s *segments) stringToken(pos token.Position) token.Token {
	s.flush()

	if !s.expr {
		var b strings.Builder
		for _, seg := range s.list {
			b.WriteString(seg.Text)
		}

		return token.Token{Kind: token.String, Text: b.String(), Pos: pos}
	}

	return token.Token{Kind: token.Template, Segments: s.list, Pos: pos}
}

// lexEmbedded scans "{{ … }}" or "$( … )" starting at the opening delimiter.
func (l *Lexer) lexEmbedded(until closer) (token.Segment, error) {
	pos := l.position()

	l.advance(2)

	l.nested++
	toks, err := l.lex(until)
	l.nested--

	if err != nil {
		return token.Segment{}, err
	}

	if len(toks) == 1 {
		return token.Segment{}, l.errorAt(pos, "empty interpolation")
	}

	return token.Segment{Tokens: toks, Pos: pos}, nil
}

// lexCommand scans a command marker and the command text that follows it.
func (l *Lexer) lexCommand() (token.Token, error) {
	pos := l.position()
	async := l.peek() == '%'

	l.advance(1)

	for l.peek() == ' ' || l.peek() == '\t' {
		l.advance(1)
	}

	var (
		segs  segments
		local int // unclosed '{' within the command text
	)

loop:
	for !l.eof() {
		rest := l.rest()

		switch r := l.peek(); {
		case r == '\n' || strings.HasPrefix(rest, "\r\n"):
			break loop

		case strings.HasPrefix(rest, "\\\n") || strings.HasPrefix(rest, "\\\r\n"):
			l.advance(1)
			l.skipNewline()

			for l.peek() == ' ' || l.peek() == '\t' {
				l.advance(1)
			}

			if s := segs.text.String(); s != "" && !strings.HasSuffix(s, " ") {
				segs.write(l.position(), " ")
			}

		case strings.HasPrefix(rest, `\{{`) || strings.HasPrefix(rest, `\$(`):
			at := l.position()

			l.advance(3)
			segs.write(at, rest[1:3])

		case strings.HasPrefix(rest, "{{"):
			seg, err := l.lexEmbedded(closeBraces)
			if err != nil {
				return token.Token{}, err
			}

			segs.embed(seg)

		case strings.HasPrefix(rest, "$("):
			seg, err := l.lexEmbedded(closeParen)
			if err != nil {
				return token.Token{}, err
			}

			segs.embed(seg)

		case r == '}' && local == 0 && l.depth > 0:
			break loop

		default:
			switch r {
			case '{':
				local++
			case '}':
				if local > 0 {
					local--
				}
			}

			at := l.position()
			segs.write(at, string(l.advanceRune()))
		}
	}

	segs.flush()

	// Trailing blanks are not part of the command.
	if n := len(segs.list); n > 0 && !segs.list[n-1].IsExpr() {
		last := &segs.list[n-1]

		last.Text = strings.TrimRight(last.Text, " \t\r")
		if last.Text == "" {
			segs.list = segs.list[:n-1]
		}
	}

	if len(segs.list) == 0 {
		return token.Token{}, l.errorAt(pos, "empty command")
	}

	return token.Token{
		Kind:     token.Command,
		Async:    async,
		Segments: segs.list,
		Pos:      pos,
	}, nil
}

// lexString scans a quoted string literal, delegating to lexMultiline for
// triple-quoted strings.
func (l *Lexer) lexString() (token.Token, error) {
	if strings.HasPrefix(l.rest(), `"""`) {
		return l.lexMultiline()
	}

	pos := l.position()
	quote := l.peek()

	l.advance(1)

	var segs segments

	for {
		if l.eof() {
			return token.Token{}, l.errorAt(pos, "unterminated string literal")
		}

		at := l.position()

		switch r := l.peek(); {
		case r == quote:
			l.advance(1)

			return segs.stringToken(pos), nil

		case r == '\\':
			text, err := l.escape()
			if err != nil {
				return token.Token{}, err
			}

			segs.write(at, text)

		case strings.HasPrefix(l.rest(), "{{"):
			seg, err := l.lexEmbedded(closeBraces)
			if err != nil {
				return token.Token{}, err
			}

			segs.embed(seg)

		default:
			segs.write(at, string(l.advanceRune()))
		}
	}
}

// escape decodes the escape sequence starting at a backslash.
func (l *Lexer) escape() (string, error) {
	pos := l.position()

	l.advance(1) // '\'

	if l.eof() {
		return "", l.errorAt(pos, "unterminated string literal")
	}

	r := l.peek()

	switch r {
	case 'n':
		l.advance(1)

		return "\n", nil
	case 't':
		l.advance(1)

		return "\t", nil
	case 'r':
		l.advance(1)

		return "\r", nil
	case '0':
		l.advance(1)

		return "\x00", nil
	case '\\', '"', '\'', '{', '$':
		l.advance(1)

		return string(r), nil
	case '\n', '\r':
		l.skipNewline()

		return "", nil
	case 'u':
		l.advance(1)

		if len(l.rest()) < 4 {
			return "", l.errorAt(pos, "invalid unicode escape")
		}

		code, err := strconv.ParseUint(l.rest()[:4], 16, 32)
		if err != nil {
			return "", l.errorAt(pos, "invalid unicode escape")
		}

		l.advance(4)

		return string(rune(code)), nil
	}

	return "", l.errorAt(pos, "invalid escape sequence "+strconv.Quote(`\`+string(r)))
}

// lexMultiline scans a """ string. The opening delimiter must end its line;
// the closing delimiter must stand alone on a line. The common leading
// indentation of the content lines is removed.
func (l *Lexer) lexMultiline() (token.Token, error) {
	pos := l.position()

	l.advance(3)

	for l.peek() == ' ' || l.peek() == '\t' {
		l.advance(1)
	}

	switch {
	case l.eof():
		return token.Token{}, l.errorAt(pos, `unterminated multi-line string`)
	case l.peek() != '\n' && !strings.HasPrefix(l.rest(), "\r\n"):
		return token.Token{}, l.errorAt(l.position(), `expected newline after opening """`)
	}

	l.skipNewline()

	type span struct{ begin, end int }

	var (
		lines  []span
		closed = -1 // offset just past the closing delimiter
	)

	for off := l.pos; ; {
		n := strings.IndexByte(l.src[off:], '\n')

		end := len(l.src)
		if n >= 0 {
			end = off + n
		}

		line := strings.TrimRight(l.src[off:end], "\r")
		if strings.TrimSpace(line) == `"""` {
			closed = off + strings.Index(line, `"""`) + 3

			break
		}

		lines = append(lines, span{off, off + len(line)})

		if n < 0 {
			break
		}

		off = end + 1
	}

	if closed < 0 {
		return token.Token{}, l.errorAt(pos, `unterminated multi-line string, expected closing """ on its own line`)
	}

	indent := -1

	for _, ln := range lines {
		text := l.src[ln.begin:ln.end]
		if strings.TrimSpace(text) == "" {
			continue
		}

		n := len(text) - len(strings.TrimLeft(text, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}

	var segs segments

	for i, ln := range lines {
		text := l.src[ln.begin:ln.end]

		if strings.TrimSpace(text) == "" {
			l.advanceTo(ln.end)
		} else {
			l.advance(indent)

			for l.pos < ln.end {
				at := l.position()

				if strings.HasPrefix(l.rest(), "{{") {
					seg, err := l.lexEmbedded(closeBraces)
					if err != nil {
						return token.Token{}, err
					}

					if l.pos > ln.end {
						return token.Token{}, l.errorAt(at, "interpolation in multi-line string must end on the line it starts")
					}

					segs.embed(seg)

					continue
				}

				segs.write(at, string(l.advanceRune()))
			}
		}

		if i < len(lines)-1 {
			segs.write(l.position(), "\n")
		}

		// Step over any '\r' and the newline.
		for !l.eof() && l.peek() != '\n' {
			l.advanceRune()
		}

		l.advance(1)
	}

	l.advanceTo(closed)

	return segs.stringToken(pos), nil
}

// advanceTo consumes input up to byte offset off.
func (l *Lexer) advanceTo(off int) {
	for l.pos < off && !l.eof() {
		l.advanceRune()
	}
}
