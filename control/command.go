// Package control implements the daemon's command socket: a fixed-size
// message, one per connection, that adds or removes devices, toggles rule
// firing or shuts the daemon down.
package control

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a command.
type Kind uint32

// Command kinds, numbered as on the wire.
const (
	Add Kind = iota
	Remove
	Quit
	Disable
	Enable
)

// ParamSize bounds the parameter, including its terminating NUL.
const ParamSize = 256

// MessageSize is the size of every message on the wire.
const MessageSize = 4 + ParamSize

var (
	// ErrShortMessage is returned for messages shorter than MessageSize.
	ErrShortMessage = errors.New("short control message")
	// ErrUnknownKind is returned for unknown command kinds.
	ErrUnknownKind = errors.New("unknown command")
	// ErrParamTooLong is returned for parameters that do not fit a message.
	ErrParamTooLong = errors.New("command parameter too long")
)

var kindNames = map[Kind]string{
	Add:     "add",
	Remove:  "remove",
	Quit:    "quit",
	Disable: "disable",
	Enable:  "enable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint32(k))
}

// NeedsParam reports whether the command carries a device path.
func (k Kind) NeedsParam() bool {
	return k == Add || k == Remove
}

// ParseKind parses a command name case-insensitively.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownKind, s)
}

// Command is one control message.
type Command struct {
	Kind  Kind
	Param string
}

// MarshalBinary encodes the command as a MessageSize message: the kind as a
// little-endian uint32 followed by the NUL-padded parameter.
func (c Command) MarshalBinary() ([]byte, error) {
	if _, ok := kindNames[c.Kind]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint32(c.Kind))
	}
	if len(c.Param) >= ParamSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrParamTooLong, len(c.Param))
	}
	buf := make([]byte, MessageSize)
	binary.LittleEndian.PutUint32(buf, uint32(c.Kind))
	copy(buf[4:], c.Param)
	return buf, nil
}

// UnmarshalBinary decodes a message produced by MarshalBinary.
func (c *Command) UnmarshalBinary(buf []byte) error {
	if len(buf) < MessageSize {
		return fmt.Errorf("%w: %d bytes", ErrShortMessage, len(buf))
	}
	kind := Kind(binary.LittleEndian.Uint32(buf))
	if _, ok := kindNames[kind]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownKind, uint32(kind))
	}
	param := buf[4:MessageSize]
	if i := bytes.IndexByte(param, 0); i >= 0 {
		param = param[:i]
	}
	c.Kind = kind
	c.Param = string(param)
	return nil
}

func (c Command) String() string {
	if c.Kind.NeedsParam() {
		return c.Kind.String() + " " + c.Param
	}
	return c.Kind.String()
}
