package trigger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micha/triggerhappy/eventnames"
)

const (
	keyA         = 30
	keyB         = 48
	keyC         = 46
	keyLeftShift = 42
	keyLeftCtrl  = 29
	keyLeftAlt   = 56
	keyRightAlt  = 100
)

func TestParseRule(t *testing.T) {
	r, err := ParseRule("KEY_A+KEY_LEFTSHIFT 1 echo hi", eventnames.Default)
	require.NoError(t, err)

	assert.Equal(t, eventnames.TypeKey, r.Type)
	assert.Equal(t, uint16(keyA), r.Code)
	assert.Equal(t, int32(1), r.Value)
	assert.Equal(t, "echo hi", r.CmdLine)
	assert.Equal(t, [MaxModifiers]uint16{keyLeftShift, NoModifier, NoModifier}, r.Modifiers)
	assert.Equal(t, []uint16{keyLeftShift}, r.ModifierCodes())
}

func TestParseRuleKeepsShellText(t *testing.T) {
	r, err := ParseRule("KEY_VOLUMEUP\t2   amixer set Master 5%+ | logger -t th  # louder", eventnames.Default)
	require.NoError(t, err)

	assert.Equal(t, int32(2), r.Value)
	assert.Equal(t, "amixer set Master 5%+ | logger -t th", r.CmdLine)
	assert.Empty(t, r.ModifierCodes())
}

func TestParseRuleSwitch(t *testing.T) {
	r, err := ParseRule("SW_LID 1 systemctl suspend", eventnames.Default)
	require.NoError(t, err)
	assert.Equal(t, eventnames.TypeSwitch, r.Type)
	assert.Equal(t, uint16(0), r.Code)
}

func TestParseRuleEmpty(t *testing.T) {
	for _, line := range []string{"", "   ", "\t", "# only a comment", "   # indented comment"} {
		_, err := ParseRule(line, eventnames.Default)
		assert.ErrorIs(t, err, ErrEmptyLine, "line %q", line)
	}
}

func TestParseRuleErrors(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		reason string
	}{
		{name: "missing value", line: "KEY_A", reason: "missing value"},
		{name: "non-numeric value", line: "KEY_A x echo", reason: "non-negative"},
		{name: "negative value", line: "KEY_A -1 echo", reason: "non-negative"},
		{name: "missing command", line: "KEY_A 1", reason: "missing command"},
		{name: "command is a comment", line: "KEY_A 1 # echo", reason: "missing command"},
		{name: "unknown event", line: "KEY_NOPE 1 echo", reason: "unknown event"},
		{name: "unknown modifier", line: "KEY_A+KEY_NOPE 1 echo", reason: "unknown modifier"},
		{name: "switch modifier", line: "KEY_A+SW_LID 1 echo", reason: "unknown modifier"},
		{name: "too many modifiers", line: "KEY_A+KEY_B+KEY_C+KEY_LEFTALT+KEY_LEFTCTRL 1 echo", reason: "modifiers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRule(tt.line, eventnames.Default)
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Contains(t, perr.Reason, tt.reason)
		})
	}
}

func TestParseRuleMaxModifiers(t *testing.T) {
	r, err := ParseRule("KEY_A+KEY_LEFTCTRL+KEY_LEFTALT+KEY_LEFTSHIFT 1 echo", eventnames.Default)
	require.NoError(t, err)
	assert.Equal(t, [MaxModifiers]uint16{keyLeftCtrl, keyLeftAlt, keyLeftShift}, r.Modifiers)
}
