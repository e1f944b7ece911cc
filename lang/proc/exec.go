package proc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardnew/cmds/log"
)

// DefaultShell interprets command text.
const DefaultShell = "/bin/sh"

// waitDelay bounds how long Wait lingers on output pipes held open by
// orphaned descendants after the command itself has been killed.
const waitDelay = 250 * time.Millisecond

// Exec is a [Service] that runs each command with "shell -c text". Commands
// without stdin run in their own process group so that killing one also
// kills its descendants.
type Exec struct {
	shell  string
	logger log.Logger

	seq    atomic.Uint64
	mu     sync.Mutex
	live   map[*Handle]struct{}
	closed bool
	wg     sync.WaitGroup
}

// ExecOption configures an [Exec].
type ExecOption func(*Exec)

// WithShell sets the program used to interpret command text.
func WithShell(shell string) ExecOption {
	return func(e *Exec) {
		if shell != "" {
			e.shell = shell
		}
	}
}

// WithLogger sets the logger used for trace output.
func WithLogger(logger log.Logger) ExecOption {
	return func(e *Exec) { e.logger = logger }
}

// NewExec returns a ready [Exec].
func NewExec(opts ...ExecOption) *Exec {
	e := &Exec{shell: DefaultShell, live: make(map[*Handle]struct{})}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Shell returns the program used to interpret command text.
func (e *Exec) Shell() string { return e.shell }

// Spawn implements [Service]. The command is killed with its whole process
// group when ctx is cancelled.
func (e *Exec) Spawn(ctx context.Context, req Request) (*Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrShutdown.With(slog.String("command", req.Text))
	}

	cmd := exec.CommandContext(ctx, e.shell, "-c", req.Text)
	cmd.Env = req.Env
	cmd.Dir = req.Dir
	cmd.Stdin = req.Stdin
	// A command reading the terminal must stay in the foreground process
	// group or it is stopped by SIGTTIN.
	group := req.Stdin == nil
	cmd.SysProcAttr = sysProcAttr(group)
	cmd.WaitDelay = waitDelay
	cmd.Cancel = func() error { return kill(cmd.Process, group) }

	var stdout, stderr bytes.Buffer

	cmd.Stdout = tee(&stdout, req.Stdout)
	cmd.Stderr = tee(&stderr, req.Stderr)

	if err := cmd.Start(); err != nil {
		return nil, ErrSpawn.Wrap(err).With(slog.String("command", req.Text))
	}

	h := NewHandle(e.seq.Add(1), req.Text, func() { _ = kill(cmd.Process, group) })

	e.logger.TraceContext(ctx, "command spawn",
		slog.Uint64("id", h.ID()),
		slog.Int("pid", cmd.Process.Pid),
		slog.Bool("async", req.Async),
		slog.String("command", req.Text),
	)

	e.live[h] = struct{}{}
	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		err := cmd.Wait()
		res := Result{
			Stdout: stdout.String(),
			Stderr: stderr.String(),
			Code:   exitCode(cmd.ProcessState),
		}

		// A non-zero exit is reported through Code, not as a failure.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) || errors.Is(err, exec.ErrWaitDelay) {
			err = nil
		}

		e.logger.TraceContext(ctx, "command wait",
			slog.Uint64("id", h.ID()),
			slog.Int("code", res.Code),
			slog.Int("stdout_bytes", len(res.Stdout)),
			slog.Int("stderr_bytes", len(res.Stderr)),
		)

		e.mu.Lock()
		delete(e.live, h)
		e.mu.Unlock()

		h.Finish(res, err)
	}()

	return h, nil
}

// Shutdown kills every command still running, waits for
// their handles to finish, and rejects later spawns. It returns early with
// the context's error if ctx is done first.
func (e *Exec) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true

	live := make([]*Handle, 0, len(e.live))
	for h := range e.live {
		live = append(live, h)
	}
	e.mu.Unlock()

	for _, h := range live {
		e.logger.TraceContext(ctx, "command kill",
			slog.Uint64("id", h.ID()),
			slog.String("command", h.Text()),
		)
		h.Kill()
	}

	done := make(chan struct{})

	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// Running returns the number of commands that have not exited.
func (e *Exec) Running() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.live)
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}

	return io.MultiWriter(buf, w)
}
