package port

import (
	"io"
	"sync"

	"github.com/dudk/midiflow/parser"
)

// Loopback is an in-memory ByteStream. Written bytes become readable once
// they are flushed.
type Loopback struct {
	mu       sync.Mutex
	pending  []byte
	readable []byte
	flushes  int
}

// NewLoopback returns an empty byte loopback.
func NewLoopback() *Loopback {
	return &Loopback{}
}

// Available implements ByteStream.
func (l *Loopback) Available() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.readable)
}

// ReadByte implements ByteStream. It returns io.EOF if nothing is readable.
func (l *Loopback) ReadByte() (byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.readable) == 0 {
		return 0, io.EOF
	}
	b := l.readable[0]
	l.readable = l.readable[1:]
	return b, nil
}

// Write implements ByteStream.
func (l *Loopback) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, p...)
	return len(p), nil
}

// Flush implements ByteStream.
func (l *Loopback) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readable = append(l.readable, l.pending...)
	l.pending = l.pending[:0]
	l.flushes++
	return nil
}

// Feed makes p readable right away, as if it was received.
func (l *Loopback) Feed(p ...byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readable = append(l.readable, p...)
}

// Drain returns and consumes everything readable.
func (l *Loopback) Drain() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.readable
	l.readable = nil
	return b
}

// Flushes returns how many times Flush was called.
func (l *Loopback) Flushes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushes
}

// PacketLoopback is an in-memory PacketStream. Written packets become
// readable once they are flushed.
type PacketLoopback struct {
	mu       sync.Mutex
	pending  []parser.Packet
	readable []parser.Packet
}

// NewPacketLoopback returns an empty packet loopback.
func NewPacketLoopback() *PacketLoopback {
	return &PacketLoopback{}
}

// ReadPacket implements PacketStream.
func (l *PacketLoopback) ReadPacket() (parser.Packet, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.readable) == 0 {
		return parser.Packet{}, false, nil
	}
	pkt := l.readable[0]
	l.readable = l.readable[1:]
	return pkt, true, nil
}

// WritePacket implements PacketStream.
func (l *PacketLoopback) WritePacket(pkt parser.Packet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, pkt)
	return nil
}

// Flush implements PacketStream.
func (l *PacketLoopback) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readable = append(l.readable, l.pending...)
	l.pending = l.pending[:0]
	return nil
}

// Feed makes packets readable right away.
func (l *PacketLoopback) Feed(pkts ...parser.Packet) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readable = append(l.readable, pkts...)
}

// Drain returns and consumes every readable packet.
func (l *PacketLoopback) Drain() []parser.Packet {
	l.mu.Lock()
	defer l.mu.Unlock()
	pkts := l.readable
	l.readable = nil
	return pkts
}
