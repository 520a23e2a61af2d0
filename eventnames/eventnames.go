// Package eventnames maps Linux input event types and codes to their
// symbolic names (KEY_A, SW_LID, ...) and back.
package eventnames

import (
	"fmt"
	"strings"

	evdev "github.com/holoplot/go-evdev"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Event types handled by the daemon.
const (
	TypeKey    = uint16(evdev.EV_KEY)
	TypeSwitch = uint16(evdev.EV_SW)
)

// Highest code of each tracked type.
const (
	KeyMax    = int(evdev.KEY_MAX)
	SwitchMax = int(evdev.SW_MAX)
)

// Registry resolves event names in both directions. The zero value is ready
// to use.
type Registry struct{}

// Default is the registry used by the daemon.
var Default Registry

// Lookup resolves a symbolic name such as "KEY_LEFTSHIFT" or "sw_lid" to its
// event type and code. Names are matched case-insensitively.
func (Registry) Lookup(name string) (typ, code uint16, ok bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, 0, false
	}
	name = cases.Upper(language.Und).String(name)

	if c, found := evdev.KEYFromString[name]; found {
		return TypeKey, uint16(c), true
	}
	if c, found := evdev.SWFromString[name]; found {
		return TypeSwitch, uint16(c), true
	}
	return 0, 0, false
}

// Name returns the symbolic name of a code. Unknown codes are rendered with
// the type prefix and the hex code, e.g. "KEY_0x2fe".
func (Registry) Name(typ, code uint16) string {
	var (
		name  string
		found bool
	)
	switch typ {
	case TypeKey:
		name, found = evdev.KEYToString[evdev.EvCode(code)]
	case TypeSwitch:
		name, found = evdev.SWToString[evdev.EvCode(code)]
	}
	if found {
		return name
	}
	return fmt.Sprintf("%s_0x%x", prefix(typ), code)
}

// Known reports whether the code has a symbolic name.
func (Registry) Known(typ, code uint16) bool {
	switch typ {
	case TypeKey:
		_, ok := evdev.KEYToString[evdev.EvCode(code)]
		return ok
	case TypeSwitch:
		_, ok := evdev.SWToString[evdev.EvCode(code)]
		return ok
	}
	return false
}

// TypeName returns the name of an event type, e.g. "EV_KEY".
func (Registry) TypeName(typ uint16) string {
	if name, ok := evdev.EVToString[evdev.EvType(typ)]; ok {
		return name
	}
	return fmt.Sprintf("EV_0x%x", typ)
}

func prefix(typ uint16) string {
	switch typ {
	case TypeKey:
		return "KEY"
	case TypeSwitch:
		return "SW"
	}
	return "EV"
}
