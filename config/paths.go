package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// AppName names the XDG subdirectories.
	AppName = "triggerhappy"

	configFileName = "thd.toml"
	socketFileName = "thd.socket"
	logFileName    = "thd.log"

	systemSocket = "/run/thd.socket"
	systemLog    = "/var/log/thd.log"
	systemConfig = "/etc/triggerhappy/thd.toml"
)

// DefaultSocketPath returns the control socket path: /run/thd.socket for
// root, the XDG runtime directory otherwise.
func DefaultSocketPath() string {
	if os.Geteuid() == 0 {
		return systemSocket
	}
	return filepath.Join(xdg.RuntimeDir, socketFileName)
}

// DefaultLogFile returns the log file path: /var/log/thd.log for root, the
// XDG state directory otherwise.
func DefaultLogFile() string {
	if os.Geteuid() == 0 {
		return systemLog
	}
	return filepath.Join(xdg.StateHome, AppName, logFileName)
}

// findConfigFile returns the first existing config file of the user and
// system locations, or "" if there is none.
func findConfigFile() string {
	if path, err := xdg.SearchConfigFile(filepath.Join(AppName, configFileName)); err == nil {
		return path
	}
	if _, err := os.Stat(systemConfig); err == nil {
		return systemConfig
	}
	return ""
}
