package midiflow

import (
	"fmt"
	"strings"
)

// MessageType is the status nibble (channel messages) or the full status
// byte (system messages) of a MIDI message.
type MessageType uint8

// Channel message types.
const (
	NoteOff         MessageType = 0x80
	NoteOn          MessageType = 0x90
	KeyPressure     MessageType = 0xA0
	ControlChange   MessageType = 0xB0
	ProgramChange   MessageType = 0xC0
	ChannelPressure MessageType = 0xD0
	PitchBend       MessageType = 0xE0
)

// System message types.
const (
	SysExStart      MessageType = 0xF0
	MTCQuarterFrame MessageType = 0xF1
	SongPosition    MessageType = 0xF2
	SongSelect      MessageType = 0xF3
	TuneRequest     MessageType = 0xF6
	SysExEnd        MessageType = 0xF7
	TimingClock     MessageType = 0xF8
	Start           MessageType = 0xFA
	Continue        MessageType = 0xFB
	Stop            MessageType = 0xFC
	ActiveSensing   MessageType = 0xFE
	SystemReset     MessageType = 0xFF
)

var typeNames = map[MessageType]string{
	NoteOff:         "Note Off",
	NoteOn:          "Note On",
	KeyPressure:     "Key Pressure",
	ControlChange:   "Control Change",
	ProgramChange:   "Program Change",
	ChannelPressure: "Channel Pressure",
	PitchBend:       "Pitch Bend",
	SysExStart:      "System Exclusive",
	MTCQuarterFrame: "MTC Quarter Frame",
	SongPosition:    "Song Position",
	SongSelect:      "Song Select",
	TuneRequest:     "Tune Request",
	SysExEnd:        "End Of Exclusive",
	TimingClock:     "Timing Clock",
	Start:           "Start",
	Continue:        "Continue",
	Stop:            "Stop",
	ActiveSensing:   "Active Sensing",
	SystemReset:     "System Reset",
}

func (t MessageType) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Undefined(0x%02X)", uint8(t))
}

// IsStatus reports whether b has its top bit set.
func IsStatus(b byte) bool {
	return b&0x80 != 0
}

// IsChannelStatus reports whether b is the status byte of a channel message.
func IsChannelStatus(b byte) bool {
	return b >= 0x80 && b < 0xF0
}

// IsRealTime reports whether b is a real-time status byte.
func IsRealTime(b byte) bool {
	return b >= 0xF8
}

// IsSysCommon reports whether b is a system common status byte. The SysEx
// markers are not included.
func IsSysCommon(b byte) bool {
	return b > 0xF0 && b < 0xF7
}

// ChannelDataLength returns the number of data bytes following a channel
// status byte.
func ChannelDataLength(status byte) int {
	switch MessageType(status & 0xF0) {
	case ProgramChange, ChannelPressure:
		return 1
	default:
		return 2
	}
}

// SysCommonDataLength returns the number of data bytes following a system
// common status byte.
func SysCommonDataLength(status byte) int {
	switch MessageType(status) {
	case SongPosition:
		return 2
	case MTCQuarterFrame, SongSelect:
		return 1
	default:
		return 0
	}
}

// Channel is a zero-based MIDI channel in [0, 15].
type Channel uint8

// Cable is a zero-based virtual cable number in [0, 15].
type Cable uint8

// Message is implemented by the four message kinds routed through the pipe
// graph: ChannelMessage, SysExMessage, SysCommonMessage and RealTimeMessage.
type Message interface {
	fmt.Stringer
	// CableNumber returns the virtual cable the message travels on.
	CableNumber() Cable
	message()
}

// ChannelMessage is a message scoped to one of the 16 channels.
type ChannelMessage struct {
	Type    MessageType
	Channel Channel
	Data1   uint8
	Data2   uint8
	Cable   Cable
}

// Status returns the status byte of the message.
func (m ChannelMessage) Status() byte {
	return byte(m.Type&0xF0) | byte(m.Channel&0x0F)
}

// HasTwoDataBytes reports whether Data2 is part of the message.
func (m ChannelMessage) HasTwoDataBytes() bool {
	return ChannelDataLength(byte(m.Type)) == 2
}

// Bytes returns the wire encoding of the message.
func (m ChannelMessage) Bytes() []byte {
	if m.HasTwoDataBytes() {
		return []byte{m.Status(), m.Data1, m.Data2}
	}
	return []byte{m.Status(), m.Data1}
}

// CableNumber implements Message.
func (m ChannelMessage) CableNumber() Cable { return m.Cable }

func (m ChannelMessage) String() string {
	if m.HasTwoDataBytes() {
		return fmt.Sprintf("%v Channel: %d Data 1: 0x%02X Data 2: 0x%02X Cable: %d",
			m.Type, m.Channel+1, m.Data1, m.Data2, m.Cable+1)
	}
	return fmt.Sprintf("%v Channel: %d Data 1: 0x%02X Cable: %d",
		m.Type, m.Channel+1, m.Data1, m.Cable+1)
}

func (ChannelMessage) message() {}

// SysExMessage is a view into the buffer a parser assembled the message in.
// Data includes the start and end markers. It is only valid until the next
// call to the parser that produced it; use Copy to keep it.
type SysExMessage struct {
	Data  []byte
	Cable Cable
}

// Len returns the number of bytes in the message.
func (m SysExMessage) Len() int { return len(m.Data) }

// Copy returns a message that owns its data.
func (m SysExMessage) Copy() SysExMessage {
	data := make([]byte, len(m.Data))
	copy(data, m.Data)
	return SysExMessage{Data: data, Cable: m.Cable}
}

// Complete reports whether the message starts and ends with the SysEx markers.
func (m SysExMessage) Complete() bool {
	return len(m.Data) >= 2 &&
		m.Data[0] == byte(SysExStart) &&
		m.Data[len(m.Data)-1] == byte(SysExEnd)
}

// CableNumber implements Message.
func (m SysExMessage) CableNumber() Cable { return m.Cable }

func (m SysExMessage) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%v [%d]", SysExStart, len(m.Data))
	for _, b := range m.Data {
		fmt.Fprintf(&sb, " %02X", b)
	}
	fmt.Fprintf(&sb, " Cable: %d", m.Cable+1)
	return sb.String()
}

func (SysExMessage) message() {}

// SysCommonMessage is a system common message with up to two data bytes.
type SysCommonMessage struct {
	Type  MessageType
	Data1 uint8
	Data2 uint8
	Cable Cable
}

// DataLength returns the number of data bytes that belong to the message.
func (m SysCommonMessage) DataLength() int {
	return SysCommonDataLength(byte(m.Type))
}

// Bytes returns the wire encoding of the message.
func (m SysCommonMessage) Bytes() []byte {
	return []byte{byte(m.Type), m.Data1, m.Data2}[:1+m.DataLength()]
}

// CableNumber implements Message.
func (m SysCommonMessage) CableNumber() Cable { return m.Cable }

func (m SysCommonMessage) String() string {
	switch m.DataLength() {
	case 2:
		return fmt.Sprintf("%v Data 1: 0x%02X Data 2: 0x%02X Cable: %d", m.Type, m.Data1, m.Data2, m.Cable+1)
	case 1:
		return fmt.Sprintf("%v Data 1: 0x%02X Cable: %d", m.Type, m.Data1, m.Cable+1)
	}
	return fmt.Sprintf("%v Cable: %d", m.Type, m.Cable+1)
}

func (SysCommonMessage) message() {}

// RealTimeMessage is a single byte message that is never held back by flow
// control.
type RealTimeMessage struct {
	Type  MessageType
	Cable Cable
}

// CableNumber implements Message.
func (m RealTimeMessage) CableNumber() Cable { return m.Cable }

func (m RealTimeMessage) String() string {
	return fmt.Sprintf("%v Cable: %d", m.Type, m.Cable+1)
}

func (RealTimeMessage) message() {}

// WithCable returns a copy of msg on the given cable. SysEx data is shared.
func WithCable(msg Message, c Cable) Message {
	switch m := msg.(type) {
	case ChannelMessage:
		m.Cable = c
		return m
	case SysExMessage:
		m.Cable = c
		return m
	case SysCommonMessage:
		m.Cable = c
		return m
	case RealTimeMessage:
		m.Cable = c
		return m
	}
	return msg
}
