// Package port provides the raw transports MIDI interfaces read from and
// write to: byte streams for serial connections and packet streams for
// USB-MIDI.
package port

import (
	"errors"

	"github.com/dudk/midiflow/parser"
)

// ErrUnsupported is returned when a device kind is not available on the
// current platform.
var ErrUnsupported = errors.New("port: not supported on this platform")

// ErrClosed is returned by operations on a closed port.
var ErrClosed = errors.New("port: closed")

// ByteStream is a non-blocking byte oriented transport.
type ByteStream interface {
	// Available returns the number of bytes that can be read without
	// blocking.
	Available() int
	// ReadByte returns the next byte. It's only called after Available
	// reported pending bytes.
	ReadByte() (byte, error)
	Write(p []byte) (int, error)
	Flush() error
}

// PacketStream is a non-blocking USB-MIDI event packet transport.
type PacketStream interface {
	// ReadPacket returns the next packet, ok is false if none is pending.
	ReadPacket() (pkt parser.Packet, ok bool, err error)
	WritePacket(pkt parser.Packet) error
	Flush() error
}
