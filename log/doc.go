// Package log provides a concurrency-safe simplified logging interface
// based on [log/slog].
//
// Loggers are built with [Make] and configured with functional options.
// The zero [Logger] discards everything, so components may hold one
// without checking whether a logger was supplied.
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelTrace),
//		log.WithFormat(log.FormatText))
//	logger.Trace("command spawn", slog.String("text", "make"))
//
// # Levels
//
// In addition to the four [slog] levels the package defines [LevelTrace],
// which the interpreter uses for per-call and per-command events.
//
// # Pretty output
//
// Pretty handlers colorize keys and values and, for [FormatJSON], print
// one field per line. Pretty output is on by default only when the writer
// is a terminal (see [IsTerminal]); [WithPretty] overrides it.
//
// # Package-level logger
//
// [Config] adjusts the logger behind the package-level functions such as
// [InfoContext]. Context-unaware variants use [DefaultContextProvider].
package log
