package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/ardnew/cmds/cli/cmd/repl"
	"github.com/ardnew/cmds/log"
	"github.com/ardnew/cmds/pkg"
)

// Repl starts an interactive session.
type Repl struct {
	History int `default:"1000" help:"Maximum number of history entries kept." name:"history"`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	s := settingsFrom(ctx)

	if !log.IsTerminal(s.Stdin) {
		return ErrNoTerminal
	}

	limit := r.History
	if limit <= 0 {
		limit = repl.DefaultHistoryLimit
	}

	// The terminal belongs to the REPL, so programs read an empty input and
	// their output is collected for display.
	var out bytes.Buffer

	rs := *s
	rs.Stdin = strings.NewReader("")
	rs.Stdout = &out
	rs.Stderr = &out

	sess := rs.open(false)
	defer sess.close(ctx)

	root, err := sess.root("<repl>", nil)
	if err != nil {
		return sess.report(ctx, err, "")
	}

	history, err := repl.OpenHistory(pkg.CachePath(repl.BaseHistory), limit)
	if err != nil {
		s.Logger.WarnContext(ctx, "history unavailable", slog.Any("error", err))

		history = repl.NewHistory(limit)
	}

	defer func() {
		if err := history.Close(); err != nil {
			s.Logger.WarnContext(ctx, "close history", slog.Any("error", err))
		}
	}()

	err = repl.Run(ctx, repl.Config{
		Interpreter: sess.in,
		Root:        root,
		Output:      &out,
		History:     history,
		Logger:      s.Logger,
	})
	if err != nil {
		return sess.report(ctx, err, "")
	}

	return nil
}
