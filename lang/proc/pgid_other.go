//go:build !unix

package proc

import (
	"os"
	"syscall"
)

func sysProcAttr(bool) *syscall.SysProcAttr { return nil }

func kill(p *os.Process, _ bool) error {
	if p == nil {
		return nil
	}

	return p.Kill()
}

func exitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}

	return state.ExitCode()
}
