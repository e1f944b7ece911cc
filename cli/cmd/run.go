package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/cmds/log"
)

// Run executes a script file.
type Run struct {
	Script string   `arg:"" default:"-" help:"Script file, or '-' to read standard input." name:"script"`
	Args   []string `arg:"" help:"Arguments bound to the script's args array."            name:"args"   optional:"" passthrough:""`
}

// Run executes the run command. With no script and a terminal on standard
// input it starts the REPL instead.
func (r *Run) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	s := settingsFrom(ctx)

	if r.Script == stdinSource && log.IsTerminal(s.Stdin) {
		return new(Repl).Run(ctx)
	}

	name, src, err := openSource(r.Script, s.Stdin)
	if err != nil {
		return err
	}

	defer src.Close()

	s.Logger.DebugContext(ctx, "run script",
		slog.String("script", name),
		slog.Int("arg_count", len(r.Args)),
	)

	sess := s.open(s.Echo)
	defer sess.close(ctx)

	_, err = sess.executeReader(ctx, name, src, r.Args)

	return err
}
