package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/micha/triggerhappy/config"
	"github.com/micha/triggerhappy/control"
	"github.com/micha/triggerhappy/dispatch"
	"github.com/micha/triggerhappy/eventnames"
	"github.com/micha/triggerhappy/keystate"
	"github.com/micha/triggerhappy/reader"
	"github.com/micha/triggerhappy/trigger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "thd: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// run starts the daemon and blocks until a QUIT command arrives or ctx is
// cancelled.
func run(ctx context.Context, cfg *config.Config, devices []string, stdout io.Writer) error {
	names := eventnames.Default
	launcher := trigger.ExecLauncher{}

	engine := trigger.NewEngine(names, launcher, trigger.WithShell(cfg.Shell))
	dopts := []dispatch.Option{dispatch.WithLauncher(launcher)}
	if cfg.Dump {
		dopts = append(dopts, dispatch.WithDump(stdout))
	}
	if cfg.ScriptDir != "" {
		dopts = append(dopts, dispatch.WithScriptDir(cfg.ScriptDir))
	}
	d := dispatch.New(keystate.New(), engine, names, dopts...)

	rules := d.Load(cfg.Triggers)
	log.Info().Int("rules", rules).Strs("paths", cfg.Triggers).Msg("Triggers loaded")

	pool := reader.NewPool(d)
	for _, dev := range devices {
		if err := pool.Add(dev); err != nil {
			log.Error().Err(err).Str("device", dev).Msg("Unable to watch device")
		}
	}

	var srv *control.Server
	if cfg.Socket != "" {
		var err error
		srv, err = control.Listen(cfg.Socket, pool, d, control.WithReadTimeout(cfg.ControlTimeout))
		if err != nil {
			pool.Close()
			return err
		}
		log.Info().Str("socket", cfg.Socket).Msg("Control socket ready")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				d.Reload(cfg.Triggers)
			}
		}
	}()

	if cfg.WatchTriggers && len(cfg.Triggers) > 0 {
		go func() {
			err := trigger.Watch(ctx, cfg.Triggers, func() { d.Reload(cfg.Triggers) })
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Trigger watcher stopped")
			}
		}()
	}

	if srv != nil {
		err := srv.Serve(ctx)
		switch {
		case err == nil:
			log.Info().Msg("Quit requested")
		case errors.Is(err, context.Canceled), errors.Is(err, control.ErrServerClosed):
		default:
			log.Error().Err(err).Msg("Control server failed")
		}
		srv.Close()
	} else {
		<-ctx.Done()
	}

	shutdown(pool, d)
	return nil
}

func shutdown(pool *reader.Pool, d *dispatch.Dispatcher) {
	pool.Close()
	d.Clear()
	log.Info().Msg("Shut down")
}
