package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/expr-lang/expr"

	"github.com/ardnew/cmds/lang"
	"github.com/ardnew/cmds/lang/proc"
	"github.com/ardnew/cmds/lang/token"
	"github.com/ardnew/cmds/log"
)

// shutdownTimeout bounds how long a finished session waits for killed
// commands to be reaped.
const shutdownTimeout = 5 * time.Second

// stdinSource names standard input wherever a source file is expected.
const stdinSource = "-"

// contextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// Settings holds the global flags shared by every command that runs
// scripts.
type Settings struct {
	Echo     bool
	Shell    string
	MaxDepth int
	Define   []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

type settingsKey struct{}

// WithSettings returns a new context.Context containing s.
func WithSettings(ctx context.Context, s *Settings) context.Context {
	return context.WithValue(ctx, settingsKey{}, s)
}

// settingsFrom returns the settings stored in ctx, filling unset streams
// with the process's standard streams.
func settingsFrom(ctx context.Context) *Settings {
	s, _ := ctx.Value(settingsKey{}).(*Settings)
	if s == nil {
		s = &Settings{Echo: true}
	}

	c := *s

	if c.Stdin == nil {
		c.Stdin = os.Stdin
	}

	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}

	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}

	return &c
}

// session is one interpreter together with the process service that runs
// its commands.
type session struct {
	*Settings

	exec *proc.Exec
	in   *lang.Interpreter
}

func (s *Settings) open(echo bool, extra ...lang.InterpreterOption) *session {
	opts := []proc.ExecOption{proc.WithLogger(s.Logger)}
	if s.Shell != "" {
		opts = append(opts, proc.WithShell(s.Shell))
	}

	exec := proc.NewExec(opts...)

	return &session{
		Settings: s,
		exec:     exec,
		in: lang.New(append([]lang.InterpreterOption{
			lang.WithLogger(s.Logger),
			lang.WithProcess(exec),
			lang.WithStdio(s.Stdin, s.Stdout, s.Stderr),
			lang.WithMaxDepth(s.MaxDepth),
			lang.WithEcho(echo),
		}, extra...)...),
	}
}

// close kills every command still running and waits for it to be reaped.
func (s *session) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	running := s.exec.Running()

	if err := s.exec.Shutdown(ctx); err != nil {
		s.Logger.WarnContext(ctx, "shutdown incomplete",
			slog.Int("running", running),
			slog.Any("error", err),
		)

		return
	}

	s.Logger.DebugContext(ctx, "session closed", slog.Int("killed", running))
}

// root returns the top-level scope for a script, with every --define
// binding applied.
func (s *session) root(script string, args []string) (*lang.Scope, error) {
	sc := lang.NewScriptScope(script, args)

	for _, spec := range s.Define {
		name, v, err := define(spec, s.in.Environ(), args)
		if err != nil {
			return nil, err
		}

		sc.Define(name, v)
	}

	return sc, nil
}

// execute compiles and evaluates src. Failures are written to stderr and
// returned as a [Status].
func (s *session) execute(
	ctx context.Context,
	script, src string,
	args []string,
) (lang.Value, error) {
	root, err := s.root(script, args)
	if err != nil {
		return nil, err
	}

	prog, err := s.in.Compile(ctx, src)
	if err != nil {
		return nil, s.report(ctx, err, src)
	}

	v, err := s.in.Evaluate(ctx, prog, root)
	if err != nil {
		return nil, s.report(ctx, err, src)
	}

	return v, nil
}

// executeReader is [session.execute] for a script read from r. The script
// is read ahead and compiled as it streams in.
func (s *session) executeReader(
	ctx context.Context,
	script string,
	r io.Reader,
	args []string,
) (lang.Value, error) {
	root, err := s.root(script, args)
	if err != nil {
		return nil, err
	}

	// src is only needed to render a syntax error.
	var src strings.Builder

	prog, err := s.in.CompileReader(ctx, io.TeeReader(r, &src))
	if err != nil {
		if errors.Is(err, lang.ErrReadInput) {
			return nil, ErrReadSource.With(slog.String("source", script)).Wrap(err)
		}

		return nil, s.report(ctx, err, src.String())
	}

	v, err := s.in.Evaluate(ctx, prog, root)
	if err != nil {
		return nil, s.report(ctx, err, prog.Source)
	}

	return v, nil
}

// report writes err to stderr and converts it to the exit status of the
// script.
func (s *session) report(ctx context.Context, err error, src string) error {
	var exit *lang.ExitError

	switch {
	case errors.As(err, &exit):
		s.Logger.DebugContext(ctx, "script exit", slog.Int("code", exit.Code))

		if exit.Code == 0 {
			return nil
		}

		return Status(exit.Code)

	case lang.IsSyntax(err):
		fmt.Fprint(s.Stderr, lang.FormatError(err, src))

		return StatusSyntax

	case errors.Is(err, context.Canceled):
		fmt.Fprintln(s.Stderr, "interrupted")

		return StatusInterrupted

	default:
		fmt.Fprint(s.Stderr, lang.FormatError(err, src))

		return StatusRuntime
	}
}

// identifier matches names that may be bound with --define.
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// define evaluates a NAME=EXPR binding. EXPR is an expr-lang expression
// over env (the command environment as a map) and args (the script
// arguments).
func define(spec string, environ, args []string) (string, lang.Value, error) {
	name, code, ok := strings.Cut(spec, "=")
	name = strings.TrimSpace(name)

	if !ok || !identifier.MatchString(name) || token.Lookup(name) != token.Ident {
		return "", nil, lang.ErrDefine.Detail("expected NAME=EXPR, got " + strconv.Quote(spec))
	}

	env := map[string]any{
		"env":  environMap(environ),
		"args": args,
	}

	prog, err := expr.Compile(code, expr.Env(env))
	if err != nil {
		return "", nil, lang.ErrDefine.With(slog.String("name", name)).Wrap(err)
	}

	out, err := expr.Run(prog, env)
	if err != nil {
		return "", nil, lang.ErrDefine.With(slog.String("name", name)).Wrap(err)
	}

	v, err := lang.FromGo(out)
	if err != nil {
		return "", nil, lang.ErrDefine.With(slog.String("name", name)).Wrap(err)
	}

	return name, v, nil
}

func environMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))

	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}

	return m
}

// openSource returns the display name of path, which may be
// [stdinSource], and a reader of its contents.
func openSource(path string, stdin io.Reader) (string, io.ReadCloser, error) {
	if path == stdinSource {
		return "<stdin>", io.NopCloser(stdin), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", nil, ErrReadSource.With(slog.String("source", path)).Wrap(err)
	}

	return path, f, nil
}

// readSource returns the display name and contents of path, which may be
// [stdinSource].
func readSource(path string, stdin io.Reader) (string, string, error) {
	name, r, err := openSource(path, stdin)
	if err != nil {
		return "", "", err
	}

	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", "", ErrReadSource.With(slog.String("source", name)).Wrap(err)
	}

	return name, string(data), nil
}
