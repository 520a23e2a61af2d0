package trigger

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micha/triggerhappy/eventnames"
	"github.com/micha/triggerhappy/keystate"
)

type launch struct {
	name string
	args []string
	env  []string
}

type recordingLauncher struct {
	mu       sync.Mutex
	launches []launch
	err      error
}

func (l *recordingLauncher) Launch(name string, args []string, env []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.launches = append(l.launches, launch{name: name, args: args, env: env})
	return nil
}

func (l *recordingLauncher) commands() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var cmds []string
	for _, c := range l.launches {
		cmds = append(cmds, c.args[len(c.args)-1])
	}
	return cmds
}

func mustRules(t *testing.T, lines ...string) []Rule {
	t.Helper()
	var rules []Rule
	for _, line := range lines {
		r, err := ParseRule(line, eventnames.Default)
		require.NoError(t, err)
		rules = append(rules, r)
	}
	return rules
}

// press updates the keystate the way the dispatcher does before matching.
func press(ks *keystate.Tracker, code uint16, value int32) {
	ks.Update(eventnames.TypeKey, code, value)
}

func newTestEngine(t *testing.T, lines ...string) (*Engine, *recordingLauncher) {
	t.Helper()
	l := &recordingLauncher{}
	e := NewEngine(eventnames.Default, l)
	e.Add(mustRules(t, lines...)...)
	return e, l
}

func TestRunWithoutModifiers(t *testing.T) {
	e, l := newTestEngine(t, "KEY_A 1 first", "KEY_A 1 second", "KEY_A 0 released", "KEY_B 1 other")
	ks := keystate.New()

	press(ks, keyA, 1)
	assert.Equal(t, 2, e.Run(eventnames.TypeKey, keyA, 1, ks))
	assert.Equal(t, []string{"first", "second"}, l.commands())
}

func TestRunDuplicateRulesFireIndependently(t *testing.T) {
	e, l := newTestEngine(t, "KEY_A 1 same", "KEY_A 1 same")
	ks := keystate.New()

	press(ks, keyA, 1)
	assert.Equal(t, 2, e.Run(eventnames.TypeKey, keyA, 1, ks))
	assert.Equal(t, []string{"same", "same"}, l.commands())
}

func TestExactChord(t *testing.T) {
	tests := []struct {
		name  string
		held  []uint16
		fires bool
	}{
		{name: "exact chord", held: []uint16{keyLeftCtrl, keyLeftAlt}, fires: true},
		{name: "order irrelevant", held: []uint16{keyLeftAlt, keyLeftCtrl}, fires: true},
		{name: "extra key held", held: []uint16{keyLeftCtrl, keyLeftAlt, keyC}, fires: false},
		{name: "missing modifier", held: []uint16{keyLeftCtrl}, fires: false},
		{name: "nothing held", held: nil, fires: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, l := newTestEngine(t, "KEY_A+KEY_LEFTCTRL+KEY_LEFTALT 1 chord")
			ks := keystate.New()
			for _, code := range tt.held {
				press(ks, code, 1)
			}

			press(ks, keyA, 1)
			e.Run(eventnames.TypeKey, keyA, 1, ks)
			if tt.fires {
				assert.Equal(t, []string{"chord"}, l.commands())
			} else {
				assert.Empty(t, l.commands())
			}
		})
	}
}

func TestModifiersSatisfied(t *testing.T) {
	none := [MaxModifiers]uint16{NoModifier, NoModifier, NoModifier}
	shift := [MaxModifiers]uint16{keyLeftShift, NoModifier, NoModifier}

	ks := keystate.New()
	assert.True(t, ModifiersSatisfied(ks, none, eventnames.TypeKey, keyA))
	assert.False(t, ModifiersSatisfied(ks, shift, eventnames.TypeKey, keyA))

	press(ks, keyLeftShift, 1)
	assert.True(t, ModifiersSatisfied(ks, shift, eventnames.TypeKey, keyA))
	assert.False(t, ModifiersSatisfied(ks, none, eventnames.TypeKey, keyA))

	// the event's own key does not count against the chord
	press(ks, keyA, 1)
	assert.True(t, ModifiersSatisfied(ks, shift, eventnames.TypeKey, keyA))
	assert.False(t, ModifiersSatisfied(ks, shift, eventnames.TypeKey, keyB))

	press(ks, keyB, 1)
	assert.False(t, ModifiersSatisfied(ks, shift, eventnames.TypeKey, keyA))
}

func TestModifiersSatisfiedForSwitch(t *testing.T) {
	ctrl := [MaxModifiers]uint16{keyLeftCtrl, NoModifier, NoModifier}

	ks := keystate.New()
	ks.Update(eventnames.TypeSwitch, 0, 1)
	press(ks, keyLeftCtrl, 1)

	// switch code 0 must not be mistaken for a held key
	assert.True(t, ModifiersSatisfied(ks, ctrl, eventnames.TypeSwitch, 0))
	press(ks, keyA, 1)
	assert.False(t, ModifiersSatisfied(ks, ctrl, eventnames.TypeSwitch, 0))
}

func TestShiftAScenario(t *testing.T) {
	e, l := newTestEngine(t, "KEY_A+KEY_LEFTSHIFT 1 echo hi")
	ks := keystate.New()

	// shift, then A: fires once
	press(ks, keyLeftShift, 1)
	e.Run(eventnames.TypeKey, keyLeftShift, 1, ks)
	press(ks, keyA, 1)
	e.Run(eventnames.TypeKey, keyA, 1, ks)
	assert.Len(t, l.commands(), 1)

	// release A, press again with shift still held: fires again
	press(ks, keyA, 0)
	e.Run(eventnames.TypeKey, keyA, 0, ks)
	press(ks, keyA, 1)
	e.Run(eventnames.TypeKey, keyA, 1, ks)
	assert.Len(t, l.commands(), 2)

	// A alone: does not fire
	press(ks, keyA, 0)
	press(ks, keyLeftShift, 0)
	press(ks, keyA, 1)
	e.Run(eventnames.TypeKey, keyA, 1, ks)
	assert.Len(t, l.commands(), 2)
}

func TestDisabledEngineStillSeesLiveKeystate(t *testing.T) {
	e, l := newTestEngine(t, "KEY_A+KEY_LEFTSHIFT 1 chord")
	ks := keystate.New()

	press(ks, keyLeftShift, 1)
	e.SetEnabled(false)
	assert.False(t, e.Enabled())

	press(ks, keyA, 1)
	assert.Equal(t, 0, e.Run(eventnames.TypeKey, keyA, 1, ks))
	assert.Empty(t, l.commands())

	// shift released while disabled; re-enabling must use the current state
	press(ks, keyA, 0)
	press(ks, keyLeftShift, 0)
	e.SetEnabled(true)

	press(ks, keyA, 1)
	assert.Equal(t, 0, e.Run(eventnames.TypeKey, keyA, 1, ks))

	press(ks, keyA, 0)
	press(ks, keyLeftShift, 1)
	press(ks, keyA, 1)
	assert.Equal(t, 1, e.Run(eventnames.TypeKey, keyA, 1, ks))
}

func TestExecuteEnvironment(t *testing.T) {
	e, l := newTestEngine(t, "KEY_A+KEY_LEFTSHIFT 1 echo $TH_EVENT")
	ks := keystate.New()

	press(ks, keyLeftShift, 1)
	press(ks, keyA, 1)
	require.Equal(t, 1, e.Run(eventnames.TypeKey, keyA, 1, ks))

	got := l.launches[0]
	assert.Equal(t, DefaultShell, got.name)
	assert.Equal(t, []string{"-c", "echo $TH_EVENT"}, got.args)
	assert.Equal(t, []string{
		"TH_KEYSTATE=KEY_A KEY_LEFTSHIFT",
		"TH_EVENT=KEY_A",
		"TH_VALUE=1",
	}, got.env)
}

func TestWithShell(t *testing.T) {
	l := &recordingLauncher{}
	e := NewEngine(eventnames.Default, l, WithShell("/bin/bash"))
	e.Add(mustRules(t, "KEY_B 1 true")...)

	ks := keystate.New()
	press(ks, keyB, 1)
	e.Run(eventnames.TypeKey, keyB, 1, ks)
	require.Len(t, l.launches, 1)
	assert.Equal(t, "/bin/bash", l.launches[0].name)
}

func TestRunSkipsFailedLaunch(t *testing.T) {
	e, l := newTestEngine(t, "KEY_A 1 boom")
	l.err = errors.New("fork failed")

	ks := keystate.New()
	press(ks, keyA, 1)
	assert.Equal(t, 0, e.Run(eventnames.TypeKey, keyA, 1, ks))
}

func TestRuleListOperations(t *testing.T) {
	e, _ := newTestEngine(t, "KEY_A 1 a", "KEY_B 1 b")
	assert.Equal(t, 2, e.Len())

	rules := e.Rules()
	rules[0].CmdLine = "changed"
	assert.Equal(t, "a", e.Rules()[0].CmdLine)

	e.Replace(mustRules(t, "KEY_C 1 c"))
	assert.Equal(t, 1, e.Len())
	assert.Equal(t, "c", e.Rules()[0].CmdLine)

	e.Clear()
	assert.Equal(t, 0, e.Len())
}
