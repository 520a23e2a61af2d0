//go:build !unix

package trigger

import "os/exec"

func detach(cmd *exec.Cmd) {}
