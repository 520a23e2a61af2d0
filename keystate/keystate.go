// Package keystate keeps the last observed value of every key and switch.
//
// A Tracker is not safe for concurrent use. The daemon updates and reads it
// while holding the dispatcher lock, which gives every match a consistent
// view of the table.
package keystate

import (
	"strings"

	"github.com/micha/triggerhappy/eventnames"
)

// Key values reported by the kernel.
const (
	Released = 0
	Pressed  = 1
	Repeat   = 2
)

// Namer renders a code as a symbolic name.
type Namer interface {
	Name(typ, code uint16) string
}

// Tracker holds one cell per key code and one per switch code.
type Tracker struct {
	keys     [eventnames.KeyMax + 1]int32
	switches [eventnames.SwitchMax + 1]int32
	held     int

	rendered string
	dirty    bool
}

// New returns a tracker with every key released and every switch off.
func New() *Tracker {
	return &Tracker{}
}

// Update records the latest value for a key or switch code. It returns false
// for other event types and for codes outside the tracked domain.
func (t *Tracker) Update(typ, code uint16, value int32) bool {
	switch typ {
	case eventnames.TypeKey:
		if int(code) >= len(t.keys) {
			return false
		}
		was := t.keys[code] > 0
		t.keys[code] = value
		now := value > 0
		if was != now {
			if now {
				t.held++
			} else {
				t.held--
			}
			t.dirty = true
		}
		return true
	case eventnames.TypeSwitch:
		if int(code) >= len(t.switches) {
			return false
		}
		t.switches[code] = value
		return true
	}
	return false
}

// Value returns the last value recorded for the code, 0 if none.
func (t *Tracker) Value(typ, code uint16) int32 {
	switch typ {
	case eventnames.TypeKey:
		if int(code) < len(t.keys) {
			return t.keys[code]
		}
	case eventnames.TypeSwitch:
		if int(code) < len(t.switches) {
			return t.switches[code]
		}
	}
	return 0
}

// Pressed reports whether the key is down (pressed or auto-repeating).
func (t *Tracker) Pressed(code uint16) bool {
	return int(code) < len(t.keys) && t.keys[code] > 0
}

// HeldCount returns the number of keys currently down.
func (t *Tracker) HeldCount() int {
	return t.held
}

// Held returns the codes of all keys currently down in ascending order.
func (t *Tracker) Held() []uint16 {
	codes := make([]uint16, 0, t.held)
	for code, v := range t.keys {
		if v > 0 {
			codes = append(codes, uint16(code))
		}
	}
	return codes
}

// Render returns the names of all held keys, ascending by code and joined
// by single spaces. The string is rebuilt only after the held set changed.
func (t *Tracker) Render(names Namer) string {
	if !t.dirty {
		return t.rendered
	}
	parts := make([]string, 0, t.held)
	for _, code := range t.Held() {
		parts = append(parts, names.Name(eventnames.TypeKey, code))
	}
	t.rendered = strings.Join(parts, " ")
	t.dirty = false
	return t.rendered
}

// Reset releases every key and turns every switch off.
func (t *Tracker) Reset() {
	*t = Tracker{}
}
