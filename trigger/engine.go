// Package trigger loads rule files and fires the shell commands of rules
// that match an input event and the current keystate.
package trigger

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/micha/triggerhappy/eventnames"
	"github.com/micha/triggerhappy/keystate"
	"github.com/micha/triggerhappy/logging"
)

// Environment variables passed to every fired command.
const (
	EnvKeystate = "TH_KEYSTATE"
	EnvEvent    = "TH_EVENT"
	EnvValue    = "TH_VALUE"
)

// Registry resolves event names.
type Registry interface {
	Lookup(name string) (typ, code uint16, ok bool)
	Name(typ, code uint16) string
}

// State is the keystate view a match is evaluated against.
type State interface {
	Pressed(code uint16) bool
	HeldCount() int
	Render(names keystate.Namer) string
}

// Engine holds the ordered rule list and the enabled flag.
//
// An Engine does no locking of its own; the dispatcher serialises every call
// together with the keystate updates it depends on.
type Engine struct {
	rules    []Rule
	enabled  bool
	names    Registry
	launcher Launcher
	shell    string
	log      zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithShell sets the shell used to run command lines. Defaults to /bin/sh.
func WithShell(shell string) Option {
	return func(e *Engine) {
		if shell != "" {
			e.shell = shell
		}
	}
}

// NewEngine returns an enabled engine with no rules.
func NewEngine(names Registry, launcher Launcher, opts ...Option) *Engine {
	e := &Engine{
		enabled:  true,
		names:    names,
		launcher: launcher,
		shell:    DefaultShell,
		log:      logging.GetLogger("trigger"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Add appends rules in order.
func (e *Engine) Add(rules ...Rule) {
	e.rules = append(e.rules, rules...)
}

// Replace swaps the whole rule list.
func (e *Engine) Replace(rules []Rule) {
	e.rules = append([]Rule(nil), rules...)
}

// Clear drops every rule.
func (e *Engine) Clear() {
	e.rules = nil
}

// Len returns the number of rules.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Rules returns a copy of the rule list.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// SetEnabled turns firing on or off. Keystate tracking is unaffected.
func (e *Engine) SetEnabled(enabled bool) {
	e.enabled = enabled
}

// Enabled reports whether rules fire.
func (e *Engine) Enabled() bool {
	return e.enabled
}

// Match returns every rule matching the event under the given keystate, in
// rule order.
func (e *Engine) Match(typ, code uint16, value int32, ks State) []Rule {
	var matched []Rule
	for _, r := range e.rules {
		if r.Type == typ && r.Code == code && r.Value == value && ModifiersSatisfied(ks, r.Modifiers, typ, code) {
			matched = append(matched, r)
		}
	}
	return matched
}

// ModifiersSatisfied reports whether the held keys are exactly the modifier
// set: every modifier is down and no other key is. The key of the event being
// matched (typ, code) is down while its press is processed and does not
// count against the chord.
func ModifiersSatisfied(ks State, modifiers [MaxModifiers]uint16, typ, code uint16) bool {
	want := Rule{Modifiers: modifiers}.ModifierCodes()
	self := typ == eventnames.TypeKey
	for _, m := range want {
		if !ks.Pressed(m) {
			return false
		}
		if m == code {
			self = false
		}
	}
	held := ks.HeldCount()
	if self && ks.Pressed(code) {
		held--
	}
	return held == len(want)
}

// Run fires every rule matching the event. It returns the number of rules
// fired; nothing fires while the engine is disabled.
func (e *Engine) Run(typ, code uint16, value int32, ks State) int {
	if !e.enabled {
		return 0
	}
	fired := 0
	for _, r := range e.Match(typ, code, value, ks) {
		if err := e.Execute(r, ks); err != nil {
			e.log.Error().Err(err).Str("command", r.CmdLine).Msg("Unable to execute trigger")
			continue
		}
		fired++
	}
	return fired
}

// Execute launches the rule's command line through the shell without waiting
// for it.
func (e *Engine) Execute(r Rule, ks State) error {
	e.log.Info().Str("command", r.CmdLine).Msg("Executing trigger")
	env := e.Environment(r.Type, r.Code, r.Value, ks)
	if err := e.launcher.Launch(e.shell, []string{"-c", r.CmdLine}, env); err != nil {
		return fmt.Errorf("failed to launch %q: %w", r.CmdLine, err)
	}
	return nil
}

// Environment returns the TH_* variables describing an event.
func (e *Engine) Environment(typ, code uint16, value int32, ks State) []string {
	return []string{
		EnvKeystate + "=" + ks.Render(e.names),
		EnvEvent + "=" + e.names.Name(typ, code),
		EnvValue + "=" + strconv.Itoa(int(value)),
	}
}
