//go:build unix

package proc

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func sysProcAttr(group bool) *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: group}
}

// kill sends SIGKILL to p, or to every process in p's group when p leads one.
// A group leader's group id equals its pid.
func kill(p *os.Process, group bool) error {
	if p == nil {
		return nil
	}

	if !group {
		return p.Kill()
	}

	err := unix.Kill(-p.Pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		return os.ErrProcessDone
	}

	return err
}

// exitCode maps a terminating signal to 128 plus its number, as shells do.
func exitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}

	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}

	return state.ExitCode()
}
