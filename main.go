package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ardnew/cmds/cli"
	"github.com/ardnew/cmds/cli/cmd"
	"github.com/ardnew/cmds/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.Run(ctx, os.Exit, os.Args[1:]...)

	stop()

	var status cmd.Status
	if err != nil && !errors.As(err, &status) && !errors.Is(err, context.Canceled) {
		// script diagnostics are already written; only CLI failures are logged
		log.Error(
			"run failed",
			slog.Any("error", err),
		) // slog automatically uses LogValue()
	}

	os.Exit(cli.ExitCode(err))
}
