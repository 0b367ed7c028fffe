package transport

import (
	"fmt"

	"github.com/dudk/midiflow"
	"github.com/dudk/midiflow/parser"
	"github.com/dudk/midiflow/port"
)

// codec binds a parser to a port.
type codec interface {
	parser.Messages
	// read parses pending input until a message completes. It returns the
	// number of raw bytes consumed.
	read() (parser.Result, int, error)
	message(r parser.Result) midiflow.Message
	write(msg midiflow.Message) error
	flush() error
	reset()
}

// encoder renders outgoing messages for byte streams.
type encoder interface {
	encode(msg midiflow.Message) []byte
	reset()
}

type byteCodec struct {
	parser.ByteParser
	stream  port.ByteStream
	encoder encoder
}

func (c *byteCodec) read() (parser.Result, int, error) {
	n := 0
	for c.stream.Available() > 0 {
		b, err := c.stream.ReadByte()
		if err != nil {
			return parser.NoMessage, n, err
		}
		n++
		if r := c.Parse(b); r != parser.NoMessage {
			return r, n, nil
		}
	}
	return parser.NoMessage, n, nil
}

func (c *byteCodec) message(r parser.Result) midiflow.Message {
	return c.Message(r)
}

func (c *byteCodec) write(msg midiflow.Message) error {
	b := c.encoder.encode(msg)
	if len(b) == 0 {
		return nil
	}
	_, err := c.stream.Write(b)
	return err
}

func (c *byteCodec) flush() error {
	return c.stream.Flush()
}

func (c *byteCodec) reset() {
	c.encoder.reset()
}

// serialEncoder writes the MIDI 1.0 wire format. With running status, a
// channel status byte equal to the previous one is left out. System common
// and SysEx messages clear it, real-time messages don't.
type serialEncoder struct {
	runningStatus bool
	last          byte
}

func (e *serialEncoder) encode(msg midiflow.Message) []byte {
	switch m := msg.(type) {
	case midiflow.ChannelMessage:
		b := m.Bytes()
		status := b[0]
		if e.runningStatus && status == e.last {
			b = b[1:]
		}
		e.last = status
		return b
	case midiflow.SysExMessage:
		e.last = 0
		return m.Data
	case midiflow.SysCommonMessage:
		e.last = 0
		return m.Bytes()
	case midiflow.RealTimeMessage:
		return []byte{byte(m.Type)}
	}
	return nil
}

func (e *serialEncoder) reset() {
	e.last = 0
}

// debugEncoder writes one readable line per message.
type debugEncoder struct{}

func (debugEncoder) encode(msg midiflow.Message) []byte {
	return []byte(fmt.Sprintf("%v\r\n", msg))
}

func (debugEncoder) reset() {}

// maxPacketsPerRead bounds a single read so it returns promptly even when
// packets keep arriving: it's the number of packets a full SysEx buffer
// takes.
const maxPacketsPerRead = (parser.DefaultSysExBufferSize + 2) / 3

type usbCodec struct {
	*parser.USBParser
	stream port.PacketStream
}

func (c *usbCodec) read() (parser.Result, int, error) {
	n := 0
	for i := 0; i < maxPacketsPerRead; i++ {
		pkt, ok, err := c.stream.ReadPacket()
		if err != nil {
			return parser.NoMessage, n, err
		}
		if !ok {
			break
		}
		n += len(pkt)
		if r := c.Parse(pkt); r != parser.NoMessage {
			return r, n, nil
		}
	}
	return parser.NoMessage, n, nil
}

func (c *usbCodec) message(r parser.Result) midiflow.Message {
	return c.Message(r)
}

func (c *usbCodec) write(msg midiflow.Message) error {
	for _, pkt := range packets(msg) {
		if err := c.stream.WritePacket(pkt); err != nil {
			return err
		}
	}
	return nil
}

func (c *usbCodec) flush() error {
	return c.stream.Flush()
}

func (c *usbCodec) reset() {}

func header(cable midiflow.Cable, cin parser.CIN) byte {
	return byte(cable&0x0F)<<4 | byte(cin)
}

// packets splits msg into USB-MIDI event packets.
func packets(msg midiflow.Message) []parser.Packet {
	cable := msg.CableNumber()
	switch m := msg.(type) {
	case midiflow.ChannelMessage:
		pkt := parser.Packet{header(cable, parser.CIN(m.Status()>>4)), m.Status(), m.Data1}
		if m.HasTwoDataBytes() {
			pkt[3] = m.Data2
		}
		return []parser.Packet{pkt}
	case midiflow.SysCommonMessage:
		cin := parser.CINSysExEnd1
		switch m.DataLength() {
		case 1:
			cin = parser.CINSysCommon2
		case 2:
			cin = parser.CINSysCommon3
		}
		pkt := parser.Packet{header(cable, cin)}
		copy(pkt[1:], m.Bytes())
		return []parser.Packet{pkt}
	case midiflow.RealTimeMessage:
		return []parser.Packet{{header(cable, parser.CINSingleByte), byte(m.Type)}}
	case midiflow.SysExMessage:
		return sysExPackets(cable, m.Data)
	}
	return nil
}

func sysExPackets(cable midiflow.Cable, data []byte) []parser.Packet {
	pkts := make([]parser.Packet, 0, (len(data)+2)/3)
	for len(data) > 3 {
		pkts = append(pkts, parser.Packet{header(cable, parser.CINSysExStart), data[0], data[1], data[2]})
		data = data[3:]
	}
	if len(data) == 0 {
		return pkts
	}
	pkt := parser.Packet{header(cable, parser.CINSysExEnd1+parser.CIN(len(data)-1))}
	copy(pkt[1:], data)
	return append(pkts, pkt)
}
