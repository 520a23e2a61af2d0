package eventnames

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType uint16
		wantCode uint16
		wantOK   bool
	}{
		{name: "key", input: "KEY_A", wantType: TypeKey, wantCode: 30, wantOK: true},
		{name: "lower case", input: "key_leftshift", wantType: TypeKey, wantCode: 42, wantOK: true},
		{name: "switch", input: "SW_LID", wantType: TypeSwitch, wantCode: 0, wantOK: true},
		{name: "unknown", input: "KEY_DOES_NOT_EXIST", wantOK: false},
		{name: "empty", input: "  ", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, code, ok := Default.Lookup(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantType, typ)
				assert.Equal(t, tt.wantCode, code)
			}
		})
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "KEY_A", Default.Name(TypeKey, 30))
	assert.Equal(t, "SW_LID", Default.Name(TypeSwitch, 0))
	assert.Equal(t, "EV_0x5", Default.Name(0x7f, 5))
	assert.False(t, Default.Known(0x7f, 5))
	assert.True(t, Default.Known(TypeKey, 30))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "EV_KEY", Default.TypeName(TypeKey))
	assert.Equal(t, "EV_SW", Default.TypeName(TypeSwitch))
}
