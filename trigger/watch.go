package trigger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// ReloadDelay collapses bursts of file events into a single reload.
const ReloadDelay = 250 * time.Millisecond

// Watch calls onChange whenever one of the rule paths is written, created,
// removed or renamed. Paths may name files or directories of *.conf files.
// It blocks until ctx is cancelled.
func Watch(ctx context.Context, paths []string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, p := range paths {
		p = filepath.Clean(p)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			dirs[p] = true
		} else {
			files[p] = true
			p = filepath.Dir(p)
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}

	relevant := func(name string) bool {
		name = filepath.Clean(name)
		if files[name] {
			return true
		}
		return dirs[filepath.Dir(name)] && filepath.Ext(name) == RuleFileExt
	}

	timer := time.NewTimer(ReloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod || !relevant(event.Name) {
				continue
			}
			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Trigger file changed")
			timer.Reset(ReloadDelay)
		case <-timer.C:
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watcher error")
		}
	}
}
