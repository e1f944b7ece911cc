package lang

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ardnew/cmds/lang/lexer"
	"github.com/ardnew/cmds/lang/parser"
	"github.com/ardnew/cmds/lang/token"
)

// Predefined errors (sentinel values). Every runtime error is derived from
// one of these and matches it under [errors.Is].
var (
	ErrType             = NewError("type error")
	ErrUndefined        = NewError("undefined variable")
	ErrDivision         = NewError("division by zero")
	ErrIndex            = NewError("index out of range")
	ErrFatal            = NewError("fatal error")
	ErrMaxDepthExceeded = NewError("maximum call depth exceeded")
	ErrReadInput        = NewError("failed to read input")
	ErrCommand          = NewError("command failed")
	ErrDefine           = NewError("invalid definition")
)

// Error is a runtime error with an optional source position, message detail,
// wrapped cause, and structured logging attributes.
type Error struct {
	base   *Error
	msg    string
	detail string
	err    error
	pos    token.Position
	attrs  []slog.Attr
}

// NewError creates a sentinel Error with a message.
func NewError(msg string) *Error {
	e := &Error{msg: msg}
	e.base = e

	return e
}

// WrapError converts err to an *Error, returning it unchanged if it already
// is one.
func WrapError(err error) *Error {
	var ee *Error
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface as "<msg>: <detail>: <cause>",
// omitting empty parts.
func (e *Error) Error() string {
	part := make([]string, 0, 3)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.detail != "" {
		part = append(part, e.detail)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Message returns the detail given to the error, such as the message passed
// to panic or assert.
func (e *Error) Message() string { return e.detail }

// Position returns where the error occurred, if known.
func (e *Error) Position() token.Position { return e.pos }

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel e was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.base != nil && t.base == e.base
}

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+4)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.detail != "" {
		attrs = append(attrs, slog.String("detail", e.detail))
	}

	if e.pos.IsValid() {
		attrs = append(attrs, slog.String("pos", e.pos.String()))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

func (e *Error) clone() *Error {
	c := *e

	return &c
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	c := e.clone()
	c.err = err

	return c
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	c := e.clone()
	c.attrs = make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(c.attrs, e.attrs)
	copy(c.attrs[len(e.attrs):], attrs)

	return c
}

// Detail returns a copy of e carrying a human-readable detail message.
func (e *Error) Detail(msg string) *Error {
	c := e.clone()
	c.detail = msg

	return c
}

// At returns a copy of e positioned at pos. An error that already has a
// position keeps it, so the innermost location wins.
func (e *Error) At(pos token.Position) *Error {
	if e.pos.IsValid() {
		return e
	}

	c := e.clone()
	c.pos = pos

	return c
}

// Format renders the error with the offending source line and a caret.
func (e *Error) Format(source string) string {
	if !e.pos.IsValid() {
		return "runtime error: " + e.Error() + "\n"
	}

	return "runtime error at " + e.pos.String() + ": " + e.Error() + "\n" +
		token.Snippet(source, e.pos)
}

// ExitError reports a call to exit. It is a controlled termination, not a
// failure.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return "exit status " + strconv.Itoa(e.Code) }

// FormatError renders any error produced by compiling or evaluating source,
// including a source excerpt when the error carries a position.
func FormatError(err error, source string) string {
	var (
		lerr *lexer.Error
		perr *parser.Error
		rerr *Error
	)

	switch {
	case errors.As(err, &lerr):
		return lerr.Format(source)
	case errors.As(err, &perr):
		return perr.Format(source)
	case errors.As(err, &rerr):
		return rerr.Format(source)
	default:
		return err.Error() + "\n"
	}
}

// IsSyntax reports whether err is a lex or parse error.
func IsSyntax(err error) bool {
	var (
		lerr *lexer.Error
		perr *parser.Error
	)

	return errors.As(err, &lerr) || errors.As(err, &perr)
}
