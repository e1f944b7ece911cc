// Package cli contains the command line interface for cs.
//
// # Usage
//
//	cs [flags] [script] [args...]   run a script, or start the REPL on a terminal
//	cs eval CODE [args...]          evaluate program text and print its value
//	cs repl                         start an interactive session
//	cs fmt [native|tokens|ast|json|yaml] [source]
//	cs init [--format native|json|yaml] [--force]
//
// The exit status is 0 on normal completion, the operand of exit(n) when a
// script calls it, 1 for an uncaught runtime error, 2 for a syntax error and
// 130 when interrupted. See [ExitCode].
//
// # Script Options
//
//   - --echo: Stream output of commands in statement position (default true)
//   - --shell: Shell used to run commands (default /bin/sh)
//   - --max-depth: Maximum function call depth
//   - --define, -D NAME=EXPR: Bind NAME before the script runs. EXPR is an
//     expr-lang expression over env (the environment as a map) and args
//     (the script arguments).
//
// # Configuration
//
// Flag values are read from up to three files in the user configuration
// directory, each overriding the one before:
//
//   - config.json
//   - config.yaml
//   - config, a cs program of plain assignments such as
//     log_level = "debug" or log = { pretty = false }
//
// Configuration programs cannot run commands. Use "cs init" to write the
// current flag values in any of the formats.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, RFC3339Nano, etc.)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize output (default when stderr is a terminal)
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o cs .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default:
//     ~/.cache/cs/pprof)
package cli
