package parser

import (
	"github.com/dudk/midiflow"
)

// SerialParser parses a MIDI 1.0 byte stream, as received over a serial
// port (DIN, TRS or a raw MIDI device).
type SerialParser struct {
	messages
	cable               midiflow.Cable
	cancelRunningStatus bool

	// status is the status byte the pending data bytes belong to.
	status byte
	// running is the last channel status, it is reused when data bytes
	// arrive without a status byte.
	running byte
	data    [2]byte
	// count is the number of data bytes collected, need the number required.
	count, need int

	assembly sysExBuffer
}

// NewSerial returns a byte stream parser. Messages are tagged with cable.
func NewSerial(cable midiflow.Cable, options ...Option) (*SerialParser, error) {
	c, err := newConfig(options)
	if err != nil {
		return nil, err
	}
	return &SerialParser{
		cable:               cable,
		cancelRunningStatus: c.cancelRunningStatus,
		assembly:            newSysExBuffer(c.sysExSize),
	}, nil
}

// Parse consumes one byte.
func (p *SerialParser) Parse(b byte) Result {
	if !midiflow.IsStatus(b) {
		return p.parseData(b)
	}
	if midiflow.IsRealTime(b) {
		p.realTime = midiflow.RealTimeMessage{
			Type:  midiflow.MessageType(b),
			Cable: p.cable,
		}
		return RealTimeMessage
	}
	if b == byte(midiflow.SysExEnd) {
		return p.endSysEx()
	}
	// Any other status byte breaks a SysEx transfer.
	if p.assembly.receiving {
		p.assembly.abandon()
	}
	switch {
	case midiflow.IsChannelStatus(b):
		p.running = b
		p.expect(b, midiflow.ChannelDataLength(b))
		return NoMessage
	case b == byte(midiflow.SysExStart):
		p.cancel()
		p.assembly.start()
		p.assembly.add(b)
		return NoMessage
	default:
		p.cancel()
		n := midiflow.SysCommonDataLength(b)
		if n == 0 {
			p.sysCommon = midiflow.SysCommonMessage{
				Type:  midiflow.MessageType(b),
				Cable: p.cable,
			}
			return SysCommonMessage
		}
		p.expect(b, n)
		return NoMessage
	}
}

func (p *SerialParser) parseData(b byte) Result {
	if p.assembly.receiving {
		p.assembly.add(b)
		return NoMessage
	}
	if p.status == 0 {
		// Nothing to interpret it against.
		return NoMessage
	}
	p.data[p.count] = b
	p.count++
	if p.count < p.need {
		return NoMessage
	}
	p.count = 0
	if midiflow.IsChannelStatus(p.status) {
		p.channel = midiflow.ChannelMessage{
			Type:    midiflow.MessageType(p.status & 0xF0),
			Channel: midiflow.Channel(p.status & 0x0F),
			Data1:   p.data[0],
			Cable:   p.cable,
		}
		if p.need == 2 {
			p.channel.Data2 = p.data[1]
		}
		return ChannelMessage
	}
	p.sysCommon = midiflow.SysCommonMessage{
		Type:  midiflow.MessageType(p.status),
		Data1: p.data[0],
		Cable: p.cable,
	}
	if p.need == 2 {
		p.sysCommon.Data2 = p.data[1]
	}
	p.resume()
	return SysCommonMessage
}

func (p *SerialParser) endSysEx() Result {
	if !p.assembly.receiving {
		return NoMessage
	}
	p.assembly.add(byte(midiflow.SysExEnd))
	p.sysEx = midiflow.SysExMessage{
		Data:  p.assembly.end(),
		Cable: p.cable,
	}
	p.resume()
	return SysExMessage
}

func (p *SerialParser) expect(status byte, n int) {
	p.status = status
	p.need = n
	p.count = 0
}

// cancel drops the message in progress, and running status if the parser
// is configured to do so.
func (p *SerialParser) cancel() {
	if p.cancelRunningStatus {
		p.running = 0
	}
	p.expect(0, 0)
}

// resume goes back to the running status after a system message.
func (p *SerialParser) resume() {
	if p.running == 0 {
		p.expect(0, 0)
		return
	}
	p.expect(p.running, midiflow.ChannelDataLength(p.running))
}
