package reader

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/micha/triggerhappy/eventnames"
)

// inputEvent matches the Linux struct input_event layout.
//
//	struct input_event {
//	    struct timeval time;  // 16 bytes on 64-bit (8 sec + 8 usec)
//	    __u16 type;
//	    __u16 code;
//	    __s32 value;
//	};
type inputEvent struct {
	TimeSec  int
	TimeUsec int
	Type     uint16
	Code     uint16
	Value    int32
}

// RecordSize is the size of one event record as read from a device file.
const RecordSize = int(unsafe.Sizeof(inputEvent{}))

const timeSize = RecordSize - 8

// Event is a decoded input event without its timestamp.
type Event struct {
	Type  uint16
	Code  uint16
	Value int32
}

// Tracked reports whether the event is a key or switch event.
func (e Event) Tracked() bool {
	return e.Type == eventnames.TypeKey || e.Type == eventnames.TypeSwitch
}

// Decode decodes one event record in native byte order.
func Decode(buf []byte) (Event, error) {
	if len(buf) != RecordSize {
		return Event{}, fmt.Errorf("event record is %d bytes, want %d", len(buf), RecordSize)
	}
	return Event{
		Type:  binary.NativeEndian.Uint16(buf[timeSize:]),
		Code:  binary.NativeEndian.Uint16(buf[timeSize+2:]),
		Value: int32(binary.NativeEndian.Uint32(buf[timeSize+4:])),
	}, nil
}

// Encode produces the record for an event with a zero timestamp.
func Encode(ev Event) []byte {
	buf := make([]byte, RecordSize)
	binary.NativeEndian.PutUint16(buf[timeSize:], ev.Type)
	binary.NativeEndian.PutUint16(buf[timeSize+2:], ev.Code)
	binary.NativeEndian.PutUint32(buf[timeSize+4:], uint32(ev.Value))
	return buf
}
