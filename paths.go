package main

import (
	"fmt"
	"path/filepath"
)

// expandDevices resolves glob patterns such as /dev/input/by-id/*-kbd and
// drops duplicates. Plain paths are kept even when they do not exist, so
// the reader reports them.
func expandDevices(entries []string) ([]string, error) {
	var devices []string
	seen := make(map[string]bool)

	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			devices = append(devices, p)
		}
	}

	for _, entry := range entries {
		matches, err := filepath.Glob(entry)
		if err != nil {
			return nil, fmt.Errorf("bad device pattern %q: %w", entry, err)
		}
		if len(matches) == 0 {
			add(entry)
			continue
		}
		for _, m := range matches {
			add(m)
		}
	}
	return devices, nil
}
