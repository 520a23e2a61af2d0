// Package config loads the daemon settings: built-in defaults, then an
// optional TOML file, then THD_* environment variables. Command line flags
// are applied on top by the callers.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/micha/triggerhappy/control"
	"github.com/micha/triggerhappy/trigger"
)

// EnvPrefix prefixes environment overrides, e.g. THD_SOCKET.
const EnvPrefix = "THD_"

// Config holds the daemon settings.
type Config struct {
	Socket         string        `koanf:"socket"`
	Triggers       []string      `koanf:"triggers"`
	Devices        []string      `koanf:"devices"`
	ScriptDir      string        `koanf:"scriptdir"`
	Dump           bool          `koanf:"dump"`
	Shell          string        `koanf:"shell"`
	WatchTriggers  bool          `koanf:"watch_triggers"`
	ControlTimeout time.Duration `koanf:"control_timeout"`
	LogFile        string        `koanf:"log_file"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"socket":          DefaultSocketPath(),
		"triggers":        []string{},
		"devices":         []string{},
		"scriptdir":       "",
		"dump":            false,
		"shell":           trigger.DefaultShell,
		"watch_triggers":  false,
		"control_timeout": control.DefaultReadTimeout.String(),
		"log_file":        DefaultLogFile(),
	}
}

// Load reads the configuration. An explicit path must exist; without one the
// XDG config directories and /etc/triggerhappy are searched.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.File = path

	return &cfg, nil
}
