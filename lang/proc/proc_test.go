package proc

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func requireShell(t *testing.T) *Exec {
	t.Helper()

	if _, err := os.Stat(DefaultShell); err != nil {
		t.Skipf("%s not available: %v", DefaultShell, err)
	}

	e := NewExec()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := e.Shutdown(ctx); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})

	return e
}

func run(t *testing.T, e *Exec, req Request) Result {
	t.Helper()

	h, err := e.Spawn(t.Context(), req)
	if err != nil {
		t.Fatalf("spawn error: %v", err)
	}

	res, err := h.Wait(t.Context())
	if err != nil {
		t.Fatalf("wait error: %v", err)
	}

	return res
}

func TestExecSpawn(t *testing.T) {
	e := requireShell(t)

	tests := []struct {
		name string
		req  Request
		want Result
	}{
		{
			name: "stdout",
			req:  Request{Text: "echo hi"},
			want: Result{Stdout: "hi\n"},
		},
		{
			name: "stderr and exit code",
			req:  Request{Text: "echo oops >&2; exit 3"},
			want: Result{Stderr: "oops\n", Code: 3},
		},
		{
			name: "environment",
			req:  Request{Text: `printf %s "$GREETING"`, Env: []string{"GREETING=hello"}},
			want: Result{Stdout: "hello"},
		},
		{
			name: "stdin",
			req:  Request{Text: "cat", Stdin: strings.NewReader("piped")},
			want: Result{Stdout: "piped"},
		},
		{
			name: "working directory",
			req:  Request{Text: "pwd", Dir: "/"},
			want: Result{Stdout: "/\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, run(t, e, tt.req)); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExecTee(t *testing.T) {
	e := requireShell(t)

	var out, errOut bytes.Buffer

	res := run(t, e, Request{
		Text:   "echo to-out; echo to-err >&2",
		Stdout: &out,
		Stderr: &errOut,
	})

	if res.Stdout != "to-out\n" || out.String() != "to-out\n" {
		t.Errorf("expected stdout captured and copied, got %q and %q", res.Stdout, out.String())
	}

	if res.Stderr != "to-err\n" || errOut.String() != "to-err\n" {
		t.Errorf("expected stderr captured and copied, got %q and %q", res.Stderr, errOut.String())
	}
}

func TestExecAsyncIndependent(t *testing.T) {
	e := requireShell(t)

	slow, err := e.Spawn(t.Context(), Request{Text: "sleep 0.2; echo slow", Async: true})
	if err != nil {
		t.Fatalf("spawn error: %v", err)
	}

	fast, err := e.Spawn(t.Context(), Request{Text: "echo fast", Async: true})
	if err != nil {
		t.Fatalf("spawn error: %v", err)
	}

	if slow.ID() == fast.ID() {
		t.Errorf("expected distinct handle ids, got %d twice", slow.ID())
	}

	// Await in the opposite order of completion.
	for _, tc := range []struct {
		h    *Handle
		want string
	}{{slow, "slow\n"}, {fast, "fast\n"}} {
		res, err := tc.h.Wait(t.Context())
		if err != nil {
			t.Fatalf("wait error: %v", err)
		}

		if res.Stdout != tc.want {
			t.Errorf("expected %q, got %q", tc.want, res.Stdout)
		}

		// A second wait returns the cached result.
		again, err := tc.h.Wait(t.Context())
		if err != nil || again != res {
			t.Errorf("expected cached result %+v, got %+v (%v)", res, again, err)
		}
	}
}

func TestHandleWaitCancelled(t *testing.T) {
	e := requireShell(t)

	h, err := e.Spawn(t.Context(), Request{Text: "sleep 30", Async: true})
	if err != nil {
		t.Fatalf("spawn error: %v", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	if _, err := h.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	select {
	case <-h.Done():
		t.Fatal("abandoned wait must not stop the command")
	default:
	}

	if n := e.Running(); n != 1 {
		t.Errorf("expected 1 running command, got %d", n)
	}
}

func TestExecShutdownKillsGroup(t *testing.T) {
	e := requireShell(t)

	// The backgrounded sleep is a grandchild; it dies with the group.
	h, err := e.Spawn(t.Context(), Request{Text: "sleep 30 & wait", Async: true})
	if err != nil {
		t.Fatalf("spawn error: %v", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}

	select {
	case <-h.Done():
	default:
		t.Fatal("expected handle to be finished after shutdown")
	}

	res, _ := h.Wait(t.Context())
	if res.Code != 128+9 {
		t.Errorf("expected SIGKILL exit code 137, got %d", res.Code)
	}

	if _, err := e.Spawn(t.Context(), Request{Text: "true"}); !errors.Is(err, ErrShutdown) {
		t.Errorf("expected ErrShutdown after shutdown, got %v", err)
	}
}

func TestExecContextCancelKills(t *testing.T) {
	e := requireShell(t)

	ctx, cancel := context.WithCancel(t.Context())

	h, err := e.Spawn(ctx, Request{Text: "sleep 30", Async: true})
	if err != nil {
		t.Fatalf("spawn error: %v", err)
	}

	cancel()

	wctx, wcancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer wcancel()

	_, _ = h.Wait(wctx)

	select {
	case <-h.Done():
	default:
		t.Fatal("expected cancelled command to exit")
	}
}

func TestExecBadShell(t *testing.T) {
	e := NewExec(WithShell("/nonexistent/shell"))

	_, err := e.Spawn(t.Context(), Request{Text: "true"})
	if !errors.Is(err, ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
}

func TestFunc(t *testing.T) {
	release := make(chan struct{})

	svc := Func(func(ctx context.Context, req Request) (Result, error) {
		if req.Text == "block" {
			select {
			case <-release:
			case <-ctx.Done():
				return Result{}, ctx.Err()
			}
		}

		return Result{Stdout: req.Text}, nil
	})

	blocked, err := svc.Spawn(t.Context(), Request{Text: "block"})
	if err != nil {
		t.Fatalf("spawn error: %v", err)
	}

	quick, err := svc.Spawn(t.Context(), Request{Text: "quick"})
	if err != nil {
		t.Fatalf("spawn error: %v", err)
	}

	res, err := quick.Wait(t.Context())
	if err != nil || res.Stdout != "quick" {
		t.Fatalf("expected quick result, got %+v (%v)", res, err)
	}

	close(release)

	res, err = blocked.Wait(t.Context())
	if err != nil || res.Stdout != "block" {
		t.Fatalf("expected block result, got %+v (%v)", res, err)
	}
}
