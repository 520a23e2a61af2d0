//go:build !linux

package reader

import "fmt"

// Device is an input device node and the name the kernel reports for it.
type Device struct {
	Path string
	Name string
}

// ListDevices is only supported on Linux.
func ListDevices() ([]Device, error) {
	return nil, fmt.Errorf("input device listing is not supported on this platform")
}

func deviceName(path string) string {
	return ""
}
