// Package parser turns raw MIDI input into messages. SerialParser consumes
// a byte stream one byte at a time, USBParser consumes 4-byte USB-MIDI event
// packets and HexParser consumes ASCII hex text. All of them share the same
// bounded SysEx assembly discipline: bytes beyond the buffer capacity are
// dropped and the reported message is truncated.
package parser

import (
	"fmt"

	"github.com/dudk/midiflow"
)

// Result tells what the last parse call completed.
type Result uint8

// Parse results.
const (
	NoMessage Result = iota
	ChannelMessage
	SysExMessage
	SysCommonMessage
	RealTimeMessage
)

func (r Result) String() string {
	switch r {
	case NoMessage:
		return "NoMessage"
	case ChannelMessage:
		return "ChannelMessage"
	case SysExMessage:
		return "SysExMessage"
	case SysCommonMessage:
		return "SysCommonMessage"
	case RealTimeMessage:
		return "RealTimeMessage"
	}
	return fmt.Sprintf("Result(%d)", uint8(r))
}

// DefaultSysExBufferSize is the capacity of a SysEx assembly buffer.
const DefaultSysExBufferSize = 128

// Messages gives access to the last completed message of each kind.
type Messages interface {
	ChannelMessage() midiflow.ChannelMessage
	SysExMessage() midiflow.SysExMessage
	SysCommonMessage() midiflow.SysCommonMessage
	RealTimeMessage() midiflow.RealTimeMessage
	// Message returns the message completed by the last parse call that
	// returned r.
	Message(r Result) midiflow.Message
}

// ByteParser is a parser that consumes one byte at a time.
type ByteParser interface {
	Messages
	Parse(b byte) Result
}

// Packet is a USB-MIDI event packet. The high nibble of the first byte is
// the cable number, the low nibble the code index number.
type Packet [4]byte

// Cable returns the cable number of the packet.
func (p Packet) Cable() midiflow.Cable {
	return midiflow.Cable(p[0] >> 4)
}

// CIN returns the code index number of the packet.
func (p Packet) CIN() CIN {
	return CIN(p[0] & 0x0F)
}

// PacketParser is a parser that consumes USB-MIDI event packets.
type PacketParser interface {
	Messages
	Parse(p Packet) Result
}

// Option configures a parser.
type Option func(*config) error

type config struct {
	sysExSize           int
	cancelRunningStatus bool
}

func newConfig(options []Option) (config, error) {
	c := config{
		sysExSize:           DefaultSysExBufferSize,
		cancelRunningStatus: true,
	}
	for _, option := range options {
		if err := option(&c); err != nil {
			return config{}, err
		}
	}
	return c, nil
}

// WithSysExBufferSize sets the capacity of SysEx assembly buffers.
func WithSysExBufferSize(size int) Option {
	return func(c *config) error {
		if size < 2 {
			return fmt.Errorf("sysex buffer size %d: must hold at least both markers", size)
		}
		c.sysExSize = size
		return nil
	}
}

// WithRunningStatusCancel sets whether system common messages and SysEx
// cancel running status. MIDI 1.0 says they do, BLE-MIDI keeps it.
func WithRunningStatusCancel(cancel bool) Option {
	return func(c *config) error {
		c.cancelRunningStatus = cancel
		return nil
	}
}

// messages holds the last completed message of each kind.
type messages struct {
	channel   midiflow.ChannelMessage
	sysEx     midiflow.SysExMessage
	sysCommon midiflow.SysCommonMessage
	realTime  midiflow.RealTimeMessage
}

func (m *messages) ChannelMessage() midiflow.ChannelMessage     { return m.channel }
func (m *messages) SysExMessage() midiflow.SysExMessage         { return m.sysEx }
func (m *messages) SysCommonMessage() midiflow.SysCommonMessage { return m.sysCommon }
func (m *messages) RealTimeMessage() midiflow.RealTimeMessage   { return m.realTime }

func (m *messages) Message(r Result) midiflow.Message {
	switch r {
	case ChannelMessage:
		return m.channel
	case SysExMessage:
		return m.sysEx
	case SysCommonMessage:
		return m.sysCommon
	case RealTimeMessage:
		return m.realTime
	}
	return nil
}
