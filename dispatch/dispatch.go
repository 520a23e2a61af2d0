// Package dispatch runs the per-event critical section of the daemon:
// update the keystate, print the event in dump mode, fire matching rules and
// run the event script. One mutex serialises it across all devices and also
// guards the rule list and the enabled flag.
package dispatch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/micha/triggerhappy/keystate"
	"github.com/micha/triggerhappy/logging"
	"github.com/micha/triggerhappy/reader"
	"github.com/micha/triggerhappy/trigger"
)

// Names resolves event names for diagnostics.
type Names interface {
	trigger.Registry
	TypeName(typ uint16) string
	Known(typ, code uint16) bool
}

// Dispatcher implements reader.Handler.
type Dispatcher struct {
	mu       sync.Mutex
	keys     *keystate.Tracker
	engine   *trigger.Engine
	names    Names
	launcher trigger.Launcher

	dump      io.Writer
	scriptDir string
	log       zerolog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDump prints every event and the held keys to w.
func WithDump(w io.Writer) Option {
	return func(d *Dispatcher) {
		d.dump = w
	}
}

// WithScriptDir runs <dir>/<EVENT_NAME> for every event, if present.
func WithScriptDir(dir string) Option {
	return func(d *Dispatcher) {
		d.scriptDir = dir
	}
}

// WithLauncher sets the launcher for event scripts. Defaults to
// trigger.ExecLauncher.
func WithLauncher(l trigger.Launcher) Option {
	return func(d *Dispatcher) {
		d.launcher = l
	}
}

// New returns a dispatcher over the given keystate and engine.
func New(keys *keystate.Tracker, engine *trigger.Engine, names Names, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		keys:     keys,
		engine:   engine,
		names:    names,
		launcher: trigger.ExecLauncher{},
		log:      logging.GetLogger("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ reader.Handler = (*Dispatcher)(nil)

// HandleEvent processes one event from any device as a single atomic step.
func (d *Dispatcher) HandleEvent(ev reader.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.keys.Update(ev.Type, ev.Code, ev.Value)
	if d.dump != nil {
		d.printEvent(ev)
	}
	d.engine.Run(ev.Type, ev.Code, ev.Value, d.keys)
	if d.scriptDir != "" {
		d.runScript(ev)
	}
}

// SetEnabled turns rule firing on or off.
func (d *Dispatcher) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.engine.SetEnabled(enabled)
	d.log.Info().Bool("enabled", enabled).Msg("Trigger processing toggled")
}

// Enabled reports whether rules fire.
func (d *Dispatcher) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Enabled()
}

// Load appends the rules of the given files or directories.
func (d *Dispatcher) Load(paths []string) int {
	rules := trigger.LoadPaths(paths, d.names)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.engine.Add(rules...)
	return len(rules)
}

// Reload replaces the rule list with the rules of the given paths. Parsing
// happens before the lock is taken, so events never see a partial list.
func (d *Dispatcher) Reload(paths []string) int {
	rules := trigger.LoadPaths(paths, d.names)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.engine.Replace(rules)
	d.log.Info().Int("rules", len(rules)).Msg("Triggers reloaded")
	return len(rules)
}

// Clear drops every rule.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.engine.Clear()
}

// RuleCount returns the number of loaded rules.
func (d *Dispatcher) RuleCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Len()
}

// Keystate returns the names of the held keys.
func (d *Dispatcher) Keystate() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.keys.Render(d.names)
}

func (d *Dispatcher) printEvent(ev reader.Event) {
	typeName := d.names.TypeName(ev.Type)
	if !d.names.Known(ev.Type, ev.Code) {
		d.log.Warn().Str("type", typeName).Uint16("code", ev.Code).Int32("value", ev.Value).Msg("Unknown event id")
		return
	}
	fmt.Fprintf(d.dump, "%s\t%s\t%d\n", typeName, d.names.Name(ev.Type, ev.Code), ev.Value)
	fmt.Fprintf(d.dump, "# %s\n", d.keys.Render(d.names))
}

// runScript launches <scriptDir>/<EVENT_NAME> <value> if such an executable
// exists.
func (d *Dispatcher) runScript(ev reader.Event) {
	name := d.names.Name(ev.Type, ev.Code)
	script := filepath.Join(d.scriptDir, name)

	info, err := os.Stat(script)
	if err != nil || info.IsDir() || info.Mode().Perm()&0111 == 0 {
		return
	}

	env := d.engine.Environment(ev.Type, ev.Code, ev.Value, d.keys)
	if err := d.launcher.Launch(script, []string{strconv.Itoa(int(ev.Value))}, env); err != nil {
		d.log.Error().Err(err).Str("script", script).Msg("Unable to run event script")
		return
	}
	d.log.Debug().Str("script", script).Int32("value", ev.Value).Msg("Event script started")
}
