//go:build unix

package trigger

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own process group so signals aimed at the
// daemon's terminal do not reach it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
