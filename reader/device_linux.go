//go:build linux

package reader

import (
	"os"
	"path/filepath"
	"strings"
)

// DevicePattern matches the evdev device nodes.
const DevicePattern = "/dev/input/event*"

// Device is an input device node and the name the kernel reports for it.
type Device struct {
	Path string
	Name string
}

// ListDevices returns the evdev device nodes present on the system.
func ListDevices() ([]Device, error) {
	matches, err := filepath.Glob(DevicePattern)
	if err != nil {
		return nil, err
	}
	devices := make([]Device, 0, len(matches))
	for _, path := range matches {
		devices = append(devices, Device{Path: path, Name: deviceName(path)})
	}
	return devices, nil
}

// deviceName reads the device name from /sys. Symlinks such as
// /dev/input/by-id/... are resolved first.
func deviceName(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	base := filepath.Base(path)
	nameBytes, err := os.ReadFile(filepath.Join("/sys/class/input", base, "device/name"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(nameBytes))
}
