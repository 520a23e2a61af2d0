package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/micha/triggerhappy/logging"
	"github.com/micha/triggerhappy/reader"
)

var errNoDevices = errors.New("no input devices given")

type options struct {
	configFile    string
	verbosity     int
	dump          bool
	scriptDir     string
	triggers      []string
	socket        string
	shell         string
	watchTriggers bool
	listDevices   bool
}

func newRootCmd() *cobra.Command {
	return newDaemonCmd(&options{})
}

func newDaemonCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thd [flags] <device>...",
		Short: "Hotkey daemon for Linux input devices",
		Long: `thd watches evdev input devices, keeps track of the pressed keys and runs
shell commands for the key and switch events listed in its trigger files.

Devices can be added and removed at runtime with th-cmd.`,
		Example: `  thd --triggers /etc/triggerhappy/triggers.d /dev/input/event0
  thd --dump /dev/input/event*`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.listDevices {
				return printDevices(cmd.OutOrStdout())
			}

			cfg, err := resolveConfig(cmd, opts, args)
			if err != nil {
				return err
			}

			logging.SetupLogger(opts.verbosity, cfg.LogFile)
			if cfg.File != "" {
				log.Debug().Str("path", cfg.File).Msg("Loaded config file")
			}

			devices, err := expandDevices(cfg.Devices)
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				return errNoDevices
			}

			return run(cmd.Context(), cfg, devices, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/triggerhappy/thd.toml)")
	flags.CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (-v DEBUG, -vv TRACE)")
	flags.BoolVarP(&opts.dump, "dump", "d", false, "Print every event and the held keys to stdout")
	flags.StringVarP(&opts.scriptDir, "scriptdir", "s", "", "Run <dir>/<EVENT_NAME> for every event")
	flags.StringArrayVarP(&opts.triggers, "triggers", "t", nil, "Trigger file or directory of *.conf files (repeatable)")
	flags.StringVarP(&opts.socket, "socket", "S", "", "Control socket path")
	flags.StringVar(&opts.shell, "shell", "", "Shell used to run trigger commands")
	flags.BoolVar(&opts.watchTriggers, "watch-triggers", false, "Reload trigger files when they change")
	flags.BoolVar(&opts.listDevices, "list-devices", false, "List input devices and exit")

	return cmd
}

func printDevices(out io.Writer) error {
	devices, err := reader.ListDevices()
	if err != nil {
		return fmt.Errorf("failed to list input devices: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\n", d.Path, d.Name)
	}
	return w.Flush()
}
