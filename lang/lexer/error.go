package lexer

import (
	"log/slog"

	"github.com/ardnew/cmds/lang/token"
)

// Error reports malformed input at a source position.
type Error struct {
	Message string
	Pos     token.Position
}

func (e *Error) Error() string {
	return e.Pos.String() + ": " + e.Message
}

// Format renders the error with the offending source line and a caret.
func (e *Error) Format(source string) string {
	return "lex error at " + e.Error() + "\n" + token.Snippet(source, e.Pos)
}

// Position returns the location of the error.
func (e *Error) Position() token.Position { return e.Pos }

// LogValue implements [slog.LogValuer].
func (e *Error) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("error", e.Message),
		slog.String("pos", e.Pos.String()),
	)
}
