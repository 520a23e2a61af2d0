package trigger

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// DefaultShell runs rule command lines.
const DefaultShell = "/bin/sh"

// Launcher starts a program without waiting for it.
type Launcher interface {
	Launch(name string, args []string, env []string) error
}

// ExecLauncher starts programs as detached child processes. The child
// inherits the daemon environment extended by env; its exit status and
// output are never inspected.
type ExecLauncher struct{}

// Launch starts the program and hands it to a reaper goroutine, so the caller
// never blocks on it and no zombie is left behind.
func (ExecLauncher) Launch(name string, args []string, env []string) error {
	cmd := exec.Command(name, args...)
	cmd.Env = append(os.Environ(), env...)
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}

	go func() {
		err := cmd.Wait()
		log.Trace().Err(err).Int("pid", cmd.Process.Pid).Msg("Child exited")
	}()
	return nil
}
