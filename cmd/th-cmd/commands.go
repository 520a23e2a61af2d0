package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/micha/triggerhappy/config"
	"github.com/micha/triggerhappy/control"
	"github.com/micha/triggerhappy/logging"
	"github.com/micha/triggerhappy/monitor"
)

var errNoUdevEnv = errors.New("ACTION and DEVNAME must be set")

type options struct {
	configFile string
	socket     string
	verbosity  int
	follow     bool
}

// settings loads the config and applies the --socket flag.
func (o *options) settings() (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.socket != "" {
		cfg.Socket = o.socket
	}
	return cfg, nil
}

func (o *options) send(cmd control.Command) error {
	cfg, err := o.settings()
	if err != nil {
		return err
	}
	log.Debug().Str("socket", cfg.Socket).Stringer("command", cmd).Msg("Sending command")
	return control.Send(cfg.Socket, cmd)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "th-cmd",
		Short: "Control a running thd",
		Long: `th-cmd talks to thd over its control socket. It adds and removes input
devices, turns trigger processing on and off and stops the daemon.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(opts.verbosity, "")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pflags := root.PersistentFlags()
	pflags.StringVar(&opts.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/triggerhappy/thd.toml)")
	pflags.StringVarP(&opts.socket, "socket", "S", "", "Control socket of the daemon")
	pflags.CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (-v DEBUG, -vv TRACE)")

	root.AddCommand(
		deviceCmd(opts, control.Add, "add <device>", "Start watching an input device"),
		deviceCmd(opts, control.Remove, "remove <device>", "Stop watching an input device"),
		simpleCmd(opts, control.Enable, "enable", "Resume firing triggers"),
		simpleCmd(opts, control.Disable, "disable", "Suspend firing triggers"),
		simpleCmd(opts, control.Quit, "quit", "Stop the daemon"),
		udevCmd(opts),
		logCmd(opts),
	)

	return root
}

func deviceCmd(opts *options, kind control.Kind, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.send(control.Command{Kind: kind, Param: args[0]})
		},
	}
}

func simpleCmd(opts *options, kind control.Kind, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.send(control.Command{Kind: kind})
		},
	}
}

func udevCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "udev",
		Short: "Add or remove the device of a udev event",
		Long: `Reads ACTION and DEVNAME from the environment, as set by udev for RUN
rules, and sends the matching add or remove command. Example rule:

  ACTION=="add|remove", SUBSYSTEM=="input", KERNEL=="event[0-9]*", RUN+="/usr/sbin/th-cmd udev"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := udevCommand(os.Getenv)
			if err != nil {
				return err
			}
			return opts.send(c)
		},
	}
}

// udevCommand derives the command from the udev environment.
func udevCommand(getenv func(string) string) (control.Command, error) {
	action, dev := getenv("ACTION"), getenv("DEVNAME")
	if action == "" || dev == "" {
		return control.Command{}, errNoUdevEnv
	}

	kind, err := control.ParseKind(action)
	if err != nil || !kind.NeedsParam() {
		return control.Command{}, fmt.Errorf("udev action %q: %w", action, control.ErrUnknownKind)
	}
	return control.Command{Kind: kind, Param: dev}, nil
}

func logCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the daemon log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.settings()
			if err != nil {
				return err
			}
			if cfg.LogFile == "" {
				return errors.New("no log file configured")
			}

			m, err := monitor.NewMonitor(cfg.LogFile, opts.follow)
			if err != nil {
				return err
			}
			defer m.Stop()

			return m.Copy(cmd.Context(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Keep printing lines as they are written")
	return cmd
}
