package log_test

import (
	"context"
	"log/slog"
	"os"

	"github.com/ardnew/cmds/log"
)

func Example_basic() {
	logger := log.Make(os.Stderr)
	logger.Info("script started", slog.String("script", "build.cmds"))
}

func Example_configuration() {
	logger := log.Make(os.Stderr,
		log.WithLevel(log.LevelTrace),
		log.WithTimeLayout("RFC3339Nano"),
		log.WithCaller(true))

	logger.Trace("command spawn", slog.String("text", "make all"))
}

func Example_jsonFormat() {
	logger := log.Make(os.Stderr, log.WithFormat(log.FormatJSON))
	logger.Warn("command exited", slog.Int("code", 2))
}

func Example_withAttributes() {
	logger := log.Make(os.Stderr).With(slog.String("component", "proc"))

	logger.Info("shutdown", slog.Int("running", 0))
}

func Example_withContext() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Config(log.WithLevel(log.LevelDebug))
	log.DebugContext(ctx, "evaluate", slog.Int("statement_count", 3))
}
