package cmd

import (
	"context"
	"fmt"

	"github.com/ardnew/cmds/lang"
)

// Eval evaluates program text given on the command line and prints the
// resulting value.
type Eval struct {
	Code string   `arg:"" help:"Program text to evaluate."                  name:"code"`
	Args []string `arg:"" help:"Arguments bound to the program's args array." name:"args" optional:""`
}

// Run executes the eval command.
func (e *Eval) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	s := settingsFrom(ctx)

	sess := s.open(s.Echo)
	defer sess.close(ctx)

	v, err := sess.execute(ctx, "<eval>", e.Code, e.Args)
	if err != nil || v == nil {
		return err
	}

	if o, ok := v.(lang.Option); ok && !o.Some {
		return nil
	}

	if _, err := fmt.Fprintln(s.Stdout, lang.Display(v)); err != nil {
		return ErrWriteOutput.Wrap(err)
	}

	return nil
}
