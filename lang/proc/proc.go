// Package proc runs command text on behalf of the interpreter.
//
// A [Service] spawns a command and returns a [Handle] immediately. Waiting on
// the handle blocks until that command alone has exited; the result is cached
// so later waits return it without blocking. Handles are safe to share
// between goroutines.
package proc

import (
	"context"
	"io"
	"sync"
)

// Request describes one command to run.
type Request struct {
	// Text is the command line passed to the shell.
	Text string

	// Env is the complete environment of the command. A nil Env inherits the
	// environment of the current process.
	Env []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Stdin is connected to the command's standard input when non-nil.
	Stdin io.Reader

	// Stdout and Stderr, when non-nil, receive a copy of the command's output
	// as it is produced. The output is captured in the [Result] regardless.
	Stdout io.Writer
	Stderr io.Writer

	// Async marks a request whose handle is not awaited right away.
	Async bool
}

// Result is the outcome of a finished command.
type Result struct {
	Stdout string
	Stderr string
	Code   int
}

// Service starts commands.
type Service interface {
	Spawn(ctx context.Context, req Request) (*Handle, error)
}

// Handle refers to a spawned command.
type Handle struct {
	id     uint64
	text   string
	done   chan struct{}
	once   sync.Once
	result Result
	err    error
	kill   func()
}

// NewHandle returns an unfinished handle. The creator must call
// [Handle.Finish] exactly once. kill, if non-nil, is called by
// [Handle.Kill].
func NewHandle(id uint64, text string, kill func()) *Handle {
	return &Handle{id: id, text: text, done: make(chan struct{}), kill: kill}
}

// ID returns the identifier assigned by the service that spawned h.
func (h *Handle) ID() uint64 { return h.id }

// Text returns the command text h was spawned with.
func (h *Handle) Text() string { return h.text }

// Done returns a channel that is closed when the command has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Finish records the command's outcome and releases all waiters. Calls after
// the first have no effect.
func (h *Handle) Finish(res Result, err error) {
	h.once.Do(func() {
		h.result, h.err = res, err
		close(h.done)
	})
}

// Wait blocks until the command exits or ctx is done. A cancelled wait does
// not affect the command.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return Result{}, context.Cause(ctx)
	}
}

// Kill terminates the command if it is still running.
func (h *Handle) Kill() {
	select {
	case <-h.done:
		return
	default:
	}

	if h.kill != nil {
		h.kill()
	}
}

// Func adapts an ordinary function to a [Service]. Each call runs in its own
// goroutine, so a Func that blocks only delays the handle it belongs to.
type Func func(ctx context.Context, req Request) (Result, error)

// Spawn implements [Service].
func (f Func) Spawn(ctx context.Context, req Request) (*Handle, error) {
	ctx, cancel := context.WithCancel(ctx)
	h := NewHandle(0, req.Text, cancel)

	go func() {
		defer cancel()

		h.Finish(f(ctx, req))
	}()

	return h, nil
}
