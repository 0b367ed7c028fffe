package parser

import (
	"github.com/dudk/midiflow"
)

// CIN is a USB-MIDI code index number.
type CIN uint8

// Code index numbers.
const (
	CINMiscFunction    CIN = 0x0
	CINCableEvent      CIN = 0x1
	CINSysCommon2      CIN = 0x2
	CINSysCommon3      CIN = 0x3
	CINSysExStart      CIN = 0x4
	CINSysExEnd1       CIN = 0x5 // also single byte system common
	CINSysExEnd2       CIN = 0x6
	CINSysExEnd3       CIN = 0x7
	CINNoteOff         CIN = 0x8
	CINNoteOn          CIN = 0x9
	CINKeyPressure     CIN = 0xA
	CINControlChange   CIN = 0xB
	CINProgramChange   CIN = 0xC
	CINChannelPressure CIN = 0xD
	CINPitchBend       CIN = 0xE
	CINSingleByte      CIN = 0xF
)

const cables = 16

// USBParser parses USB-MIDI event packets. SysEx transfers are assembled
// per cable, so up to 16 of them can be interleaved.
type USBParser struct {
	messages
	assembly [cables]sysExBuffer
}

// NewUSB returns a USB-MIDI packet parser.
func NewUSB(options ...Option) (*USBParser, error) {
	c, err := newConfig(options)
	if err != nil {
		return nil, err
	}
	p := &USBParser{}
	for i := range p.assembly {
		p.assembly[i] = newSysExBuffer(c.sysExSize)
	}
	return p, nil
}

// Parse consumes one packet. Packets with a code index that doesn't agree
// with their status byte are ignored.
func (p *USBParser) Parse(pkt Packet) Result {
	cable := pkt.Cable()
	cin := pkt.CIN()
	status := pkt[1]
	switch {
	case cin >= CINNoteOff && cin <= CINPitchBend:
		if CIN(status>>4) != cin {
			return NoMessage
		}
		p.channel = midiflow.ChannelMessage{
			Type:    midiflow.MessageType(status & 0xF0),
			Channel: midiflow.Channel(status & 0x0F),
			Data1:   pkt[2],
			Cable:   cable,
		}
		if midiflow.ChannelDataLength(status) == 2 {
			p.channel.Data2 = pkt[3]
		}
		return ChannelMessage
	case cin == CINSysExStart:
		s := &p.assembly[cable]
		if status == byte(midiflow.SysExStart) {
			s.start()
		} else if !s.receiving {
			return NoMessage
		}
		s.add(pkt[1])
		s.add(pkt[2])
		s.add(pkt[3])
		return NoMessage
	case cin == CINSysExEnd1:
		if status == byte(midiflow.SysExEnd) {
			return p.endSysEx(cable, pkt[1:2])
		}
		if midiflow.IsSysCommon(status) && midiflow.SysCommonDataLength(status) == 0 {
			return p.sysCommonMessage(cable, pkt)
		}
		return NoMessage
	case cin == CINSysExEnd2:
		return p.endSysEx(cable, pkt[1:3])
	case cin == CINSysExEnd3:
		return p.endSysEx(cable, pkt[1:4])
	case cin == CINSysCommon2:
		if !midiflow.IsSysCommon(status) || midiflow.SysCommonDataLength(status) != 1 {
			return NoMessage
		}
		return p.sysCommonMessage(cable, pkt)
	case cin == CINSysCommon3:
		if !midiflow.IsSysCommon(status) || midiflow.SysCommonDataLength(status) != 2 {
			return NoMessage
		}
		return p.sysCommonMessage(cable, pkt)
	case cin == CINSingleByte:
		if !midiflow.IsRealTime(status) {
			return NoMessage
		}
		p.realTime = midiflow.RealTimeMessage{
			Type:  midiflow.MessageType(status),
			Cable: cable,
		}
		return RealTimeMessage
	}
	// Miscellaneous function codes and cable events are reserved.
	return NoMessage
}

// endSysEx appends the last fragment of a transfer. A fragment that starts
// a transfer (F0 F7 in a single packet) is accepted as well.
func (p *USBParser) endSysEx(cable midiflow.Cable, payload []byte) Result {
	s := &p.assembly[cable]
	if payload[0] == byte(midiflow.SysExStart) {
		s.start()
	} else if !s.receiving {
		return NoMessage
	}
	if payload[len(payload)-1] != byte(midiflow.SysExEnd) {
		s.abandon()
		return NoMessage
	}
	for _, b := range payload {
		s.add(b)
	}
	p.sysEx = midiflow.SysExMessage{
		Data:  s.end(),
		Cable: cable,
	}
	return SysExMessage
}

func (p *USBParser) sysCommonMessage(cable midiflow.Cable, pkt Packet) Result {
	p.sysCommon = midiflow.SysCommonMessage{
		Type:  midiflow.MessageType(pkt[1]),
		Cable: cable,
	}
	switch midiflow.SysCommonDataLength(pkt[1]) {
	case 2:
		p.sysCommon.Data2 = pkt[3]
		fallthrough
	case 1:
		p.sysCommon.Data1 = pkt[2]
	}
	return SysCommonMessage
}
