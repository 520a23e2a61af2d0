package trigger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/micha/triggerhappy/eventnames"
)

// MaxModifiers is the longest modifier chain a rule may carry.
const MaxModifiers = 3

// NoModifier marks an unused modifier slot.
const NoModifier = 0xffff

// ErrEmptyLine is returned for lines that hold nothing but whitespace or a
// comment.
var ErrEmptyLine = errors.New("empty line")

// ParseError describes a rule line that could not be parsed.
type ParseError struct {
	Source string
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s:%d: %s: %q", e.Source, e.Line, e.Reason, e.Text)
	}
	return fmt.Sprintf("%s: %q", e.Reason, e.Text)
}

// Rule maps an event with an exact modifier chord to a shell command line.
type Rule struct {
	Type      uint16
	Code      uint16
	Value     int32
	Modifiers [MaxModifiers]uint16
	CmdLine   string

	// Source and Line locate the rule in its rule file.
	Source string
	Line   int
}

// ModifierCodes returns the distinct modifiers of the rule, skipping unused
// slots.
func (r Rule) ModifierCodes() []uint16 {
	var codes []uint16
	for _, m := range r.Modifiers {
		if m == NoModifier {
			continue
		}
		dup := false
		for _, c := range codes {
			if c == m {
				dup = true
				break
			}
		}
		if !dup {
			codes = append(codes, m)
		}
	}
	return codes
}

// ParseRule parses a single rule line:
//
//	<event>[+<modifier>...] <value> <command line>
//
// Everything from '#' to the end of the line is ignored.
func ParseRule(line string, reg Registry) (Rule, error) {
	text := line
	if i := strings.IndexByte(text, '#'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Rule{}, ErrEmptyLine
	}

	fail := func(reason string) (Rule, error) {
		return Rule{}, &ParseError{Text: strings.TrimSpace(line), Reason: reason}
	}

	chord, rest := cutField(text)
	valueField, rest := cutField(rest)
	cmd := strings.TrimSpace(rest)

	if valueField == "" {
		return fail("missing value")
	}
	value, err := strconv.ParseInt(valueField, 10, 32)
	if err != nil || value < 0 {
		return fail("value must be a non-negative integer")
	}
	if cmd == "" {
		return fail("missing command")
	}

	names := strings.Split(chord, "+")
	if len(names)-1 > MaxModifiers {
		return fail(fmt.Sprintf("more than %d modifiers", MaxModifiers))
	}

	typ, code, ok := reg.Lookup(names[0])
	if !ok {
		return fail(fmt.Sprintf("unknown event %s", names[0]))
	}

	r := Rule{
		Type:    typ,
		Code:    code,
		Value:   int32(value),
		CmdLine: cmd,
	}
	for i := range r.Modifiers {
		r.Modifiers[i] = NoModifier
	}
	for i, name := range names[1:] {
		mtyp, mcode, ok := reg.Lookup(name)
		if !ok || mtyp != eventnames.TypeKey {
			return fail(fmt.Sprintf("unknown modifier key %s", name))
		}
		r.Modifiers[i] = mcode
	}
	return r, nil
}

// cutField splits off the first whitespace separated field.
func cutField(s string) (field, rest string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}
