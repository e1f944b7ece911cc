package parser

import (
	"log/slog"

	"github.com/ardnew/cmds/lang/token"
)

// Error reports a token sequence that does not form a valid program.
type Error struct {
	Pos      token.Position
	Expected string // set when a specific construct was required
	Found    token.Token
	Message  string // set instead of Expected for other violations
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Pos.String() + ": " + e.Message
	}

	return e.Pos.String() + ": expected " + e.Expected + ", found " + e.Found.String()
}

// Format renders the error with the offending source line and a caret.
func (e *Error) Format(source string) string {
	return "parse error at " + e.Error() + "\n" + token.Snippet(source, e.Pos)
}

// Position returns the location of the error.
func (e *Error) Position() token.Position { return e.Pos }

// LogValue implements [slog.LogValuer].
func (e *Error) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("pos", e.Pos.String())}

	if e.Message != "" {
		attrs = append(attrs, slog.String("error", e.Message))
	} else {
		attrs = append(attrs,
			slog.String("expected", e.Expected),
			slog.String("found", e.Found.String()),
		)
	}

	return slog.GroupValue(attrs...)
}
