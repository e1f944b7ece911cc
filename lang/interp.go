package lang

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/ardnew/cmds/lang/parser"
	"github.com/ardnew/cmds/lang/proc"
	"github.com/ardnew/cmds/lang/token"
	"github.com/ardnew/cmds/log"
)

// DefaultMaxDepth is the default limit on nested function calls.
const DefaultMaxDepth = 1024

// Interpreter evaluates programs. It is not safe for concurrent use; the
// commands it starts run concurrently through its process service.
type Interpreter struct {
	logger   log.Logger
	proc     proc.Service
	input    LineReader
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	environ  []string
	maxDepth int
	echo     bool
	depth    int
}

// InterpreterOption configures an [Interpreter].
type InterpreterOption func(*Interpreter)

// WithLogger sets the logger used for trace output.
func WithLogger(logger log.Logger) InterpreterOption {
	return func(in *Interpreter) { in.logger = logger }
}

// WithProcess sets the service that runs commands.
func WithProcess(svc proc.Service) InterpreterOption {
	return func(in *Interpreter) { in.proc = svc }
}

// WithInput sets the source of read_line.
func WithInput(r LineReader) InterpreterOption {
	return func(in *Interpreter) { in.input = r }
}

// WithStdio sets the streams used by print and by commands in statement
// position. A nil stdin leaves those commands without input.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) InterpreterOption {
	return func(in *Interpreter) {
		in.stdin = stdin

		if stdout != nil {
			in.stdout = stdout
		}

		if stderr != nil {
			in.stderr = stderr
		}
	}
}

// WithEnviron sets the environment passed to commands, as "KEY=value"
// entries. The slice is copied.
func WithEnviron(env []string) InterpreterOption {
	return func(in *Interpreter) { in.environ = slices.Clone(env) }
}

// WithMaxDepth limits nested function calls. Non-positive values select
// [DefaultMaxDepth].
func WithMaxDepth(depth int) InterpreterOption {
	return func(in *Interpreter) {
		if depth <= 0 {
			depth = DefaultMaxDepth
		}

		in.maxDepth = depth
	}
}

// WithEcho controls whether commands in statement position stream their
// output to the interpreter's stdout and stderr while it is captured.
func WithEcho(enable bool) InterpreterOption {
	return func(in *Interpreter) { in.echo = enable }
}

// New returns an Interpreter. Commands run through [proc.NewExec] and the
// process environment is inherited unless overridden.
func New(opts ...InterpreterOption) *Interpreter {
	in := &Interpreter{
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		maxDepth: DefaultMaxDepth,
	}

	for _, opt := range opts {
		opt(in)
	}

	if in.proc == nil {
		in.proc = proc.NewExec(proc.WithLogger(in.logger))
	}

	if in.environ == nil {
		in.environ = os.Environ()
	}

	return in
}

// Process returns the service that runs commands.
func (in *Interpreter) Process() proc.Service { return in.proc }

// Environ returns a copy of the environment passed to commands.
func (in *Interpreter) Environ() []string { return slices.Clone(in.environ) }

// Getenv returns the value of key in the command environment.
func (in *Interpreter) Getenv(key string) (string, bool) {
	for i := len(in.environ) - 1; i >= 0; i-- {
		k, v, ok := strings.Cut(in.environ[i], "=")
		if ok && k == key {
			return v, true
		}
	}

	return "", false
}

// Setenv sets key in the command environment.
func (in *Interpreter) Setenv(key, value string) {
	in.environ = slices.DeleteFunc(in.environ, func(kv string) bool {
		k, _, _ := strings.Cut(kv, "=")

		return k == key
	})
	in.environ = append(in.environ, key+"="+value)
}

// Evaluate runs prog with root as the top-level scope and returns the value
// of its final expression statement, the operand of a top-level return, or
// None.
//
// The error is an [*Error] for runtime failures, an [*ExitError] when the
// program calls exit, or the context's error when ctx is cancelled.
func (in *Interpreter) Evaluate(
	ctx context.Context,
	prog *parser.Program,
	root *Scope,
) (Value, error) {
	if root == nil {
		root = NewRootScope()
	}

	in.logger.TraceContext(ctx, "evaluate",
		slog.Int("statement_count", len(prog.Stmts)),
	)

	v, err := in.execList(ctx, prog.Stmts, root, false)
	if err != nil {
		var ret *returnSignal
		if errors.As(err, &ret) {
			return ret.value, nil
		}

		return nil, err
	}

	return v, nil
}

// Call invokes fn with args. It is used by hosts that hold function values,
// such as a REPL or a configuration loader.
func (in *Interpreter) Call(ctx context.Context, fn Value, args ...Value) (Value, error) {
	return in.call(ctx, fn, args, token.Position{})
}
