package main

import (
	"github.com/spf13/cobra"

	"github.com/micha/triggerhappy/config"
)

// resolveConfig loads the config file and environment, then applies the
// flags that were set explicitly. Device arguments are appended to the
// configured devices.
func resolveConfig(cmd *cobra.Command, opts *options, args []string) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("dump") {
		cfg.Dump = opts.dump
	}
	if flags.Changed("scriptdir") {
		cfg.ScriptDir = opts.scriptDir
	}
	if flags.Changed("triggers") {
		cfg.Triggers = opts.triggers
	}
	if flags.Changed("socket") {
		cfg.Socket = opts.socket
	}
	if flags.Changed("shell") {
		cfg.Shell = opts.shell
	}
	if flags.Changed("watch-triggers") {
		cfg.WatchTriggers = opts.watchTriggers
	}

	cfg.Devices = append(cfg.Devices, args...)
	return cfg, nil
}
