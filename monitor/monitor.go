// Package monitor reads the daemon log file, optionally following it as the
// daemon appends to it.
package monitor

import (
	"context"
	"fmt"
	"io"

	"github.com/nxadm/tail"
)

// Monitor streams the lines of a log file.
type Monitor struct {
	filePath string
	tail     *tail.Tail
}

// NewMonitor opens the log file. With follow set it keeps waiting for new
// lines, also across log rotation, and starts at the end of the file.
func NewMonitor(filePath string, follow bool) (*Monitor, error) {
	cfg := tail.Config{
		Follow:    follow,
		ReOpen:    follow,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	}
	if follow {
		cfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(filePath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to tail file: %w", err)
	}

	return &Monitor{
		filePath: filePath,
		tail:     t,
	}, nil
}

// Lines returns the channel of lines. It is closed when the end of a file
// that is not followed is reached.
func (m *Monitor) Lines() chan *tail.Line {
	return m.tail.Lines
}

// Copy writes every line to w until the lines run out or ctx is cancelled.
func (m *Monitor) Copy(ctx context.Context, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-m.tail.Lines:
			if !ok {
				return m.tail.Wait()
			}
			if line.Err != nil {
				return line.Err
			}
			if _, err := fmt.Fprintln(w, line.Text); err != nil {
				return err
			}
		}
	}
}

// Stop stops the monitor.
func (m *Monitor) Stop() {
	m.tail.Cleanup()
	m.tail.Stop()
}
