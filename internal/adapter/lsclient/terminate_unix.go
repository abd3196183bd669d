//go:build unix

package lsclient

import (
	"os/exec"
	"syscall"
)

// terminate signals the child's whole process group so forked workers go
// down with it.
func terminate(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM); err != nil {
		_ = cmd.Process.Kill()
	}
}
