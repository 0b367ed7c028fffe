package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/midiflow"
	"github.com/dudk/midiflow/parser"
)

func newSerial(t *testing.T, options ...parser.Option) *parser.SerialParser {
	t.Helper()
	p, err := parser.NewSerial(0, options...)
	require.NoError(t, err)
	return p
}

func parseAll(p parser.ByteParser, in []byte) []parser.Result {
	results := make([]parser.Result, 0, len(in))
	for _, b := range in {
		results = append(results, p.Parse(b))
	}
	return results
}

func TestSerialRunningStatus(t *testing.T) {
	p := newSerial(t)
	assert.Equal(t,
		[]parser.Result{parser.NoMessage, parser.NoMessage, parser.ChannelMessage},
		parseAll(p, []byte{0x90, 0x40, 0x7F}))
	assert.Equal(t, midiflow.ChannelMessage{
		Type:  midiflow.NoteOn,
		Data1: 0x40,
		Data2: 0x7F,
	}, p.ChannelMessage())

	assert.Equal(t,
		[]parser.Result{parser.NoMessage, parser.ChannelMessage},
		parseAll(p, []byte{0x41, 0x50}))
	assert.Equal(t, midiflow.ChannelMessage{
		Type:  midiflow.NoteOn,
		Data1: 0x41,
		Data2: 0x50,
	}, p.ChannelMessage())
}

func TestSerialChannelMessages(t *testing.T) {
	tests := []struct {
		in       []byte
		expected midiflow.ChannelMessage
	}{
		{
			in:       []byte{0x83, 0x3C, 0x00},
			expected: midiflow.ChannelMessage{Type: midiflow.NoteOff, Channel: 3, Data1: 0x3C},
		},
		{
			in:       []byte{0xBF, 0x07, 0x64},
			expected: midiflow.ChannelMessage{Type: midiflow.ControlChange, Channel: 15, Data1: 0x07, Data2: 0x64},
		},
		{
			in:       []byte{0xC1, 0x05},
			expected: midiflow.ChannelMessage{Type: midiflow.ProgramChange, Channel: 1, Data1: 0x05},
		},
		{
			in:       []byte{0xD2, 0x33},
			expected: midiflow.ChannelMessage{Type: midiflow.ChannelPressure, Channel: 2, Data1: 0x33},
		},
		{
			in:       []byte{0xE0, 0x00, 0x40},
			expected: midiflow.ChannelMessage{Type: midiflow.PitchBend, Data1: 0x00, Data2: 0x40},
		},
	}
	for _, test := range tests {
		p := newSerial(t)
		results := parseAll(p, test.in)
		for _, r := range results[:len(results)-1] {
			assert.Equal(t, parser.NoMessage, r)
		}
		assert.Equal(t, parser.ChannelMessage, results[len(results)-1])
		assert.Equal(t, test.expected, p.ChannelMessage())
	}
}

func TestSerialRealTimeInterleaved(t *testing.T) {
	p := newSerial(t)
	assert.Equal(t,
		[]parser.Result{parser.NoMessage, parser.NoMessage, parser.RealTimeMessage, parser.ChannelMessage},
		parseAll(p, []byte{0x90, 0x40, 0xF8, 0x7F}))
	assert.Equal(t, midiflow.TimingClock, p.RealTimeMessage().Type)
	assert.Equal(t, uint8(0x7F), p.ChannelMessage().Data2)

	// inside sysex
	results := parseAll(p, []byte{0xF0, 0x01, 0xFE, 0x02, 0xF7})
	assert.Equal(t, parser.RealTimeMessage, results[2])
	assert.Equal(t, parser.SysExMessage, results[4])
	assert.Equal(t, []byte{0xF0, 0x01, 0x02, 0xF7}, p.SysExMessage().Data)
}

func TestSerialSysEx(t *testing.T) {
	p := newSerial(t)
	results := parseAll(p, []byte{0xF0, 0x7E, 0x7F, 0x06, 0x01, 0xF7})
	assert.Equal(t, parser.SysExMessage, results[len(results)-1])
	msg := p.SysExMessage()
	assert.Equal(t, 6, msg.Len())
	assert.True(t, msg.Complete())

	// running status is cancelled by sysex
	parseAll(p, []byte{0x90, 0x40, 0x7F, 0xF0, 0x01, 0xF7})
	assert.Equal(t, parser.NoMessage, p.Parse(0x41))
	assert.Equal(t, parser.NoMessage, p.Parse(0x42))
}

func TestSerialSysExTruncated(t *testing.T) {
	p := newSerial(t, parser.WithSysExBufferSize(4))
	results := parseAll(p, []byte{0xF0, 0x01, 0x02, 0x03, 0x04, 0x05, 0xF7})
	assert.Equal(t, parser.SysExMessage, results[len(results)-1])
	msg := p.SysExMessage()
	assert.Equal(t, []byte{0xF0, 0x01, 0x02, 0x03}, msg.Data)
	assert.False(t, msg.Complete())
}

func TestSerialSysExAbandoned(t *testing.T) {
	p := newSerial(t)
	results := parseAll(p, []byte{0xF0, 0x01, 0x02, 0x90, 0x40, 0x7F, 0xF7})
	assert.Equal(t, []parser.Result{
		parser.NoMessage, parser.NoMessage, parser.NoMessage,
		parser.NoMessage, parser.NoMessage, parser.ChannelMessage,
		parser.NoMessage,
	}, results)
}

func TestSerialSysCommon(t *testing.T) {
	p := newSerial(t)
	assert.Equal(t,
		[]parser.Result{parser.NoMessage, parser.NoMessage, parser.SysCommonMessage},
		parseAll(p, []byte{0xF2, 0x10, 0x20}))
	assert.Equal(t, midiflow.SysCommonMessage{Type: midiflow.SongPosition, Data1: 0x10, Data2: 0x20}, p.SysCommonMessage())

	assert.Equal(t, parser.SysCommonMessage, p.Parse(0xF6))
	assert.Equal(t, midiflow.TuneRequest, p.SysCommonMessage().Type)

	// no running status for system common
	assert.Equal(t, parser.NoMessage, p.Parse(0x10))
}

func TestSerialRunningStatusKept(t *testing.T) {
	p := newSerial(t, parser.WithRunningStatusCancel(false))
	parseAll(p, []byte{0xB0, 0x07, 0x10, 0xF3, 0x01})
	assert.Equal(t, midiflow.SongSelect, p.SysCommonMessage().Type)
	assert.Equal(t,
		[]parser.Result{parser.NoMessage, parser.ChannelMessage},
		parseAll(p, []byte{0x07, 0x20}))
	assert.Equal(t, uint8(0x20), p.ChannelMessage().Data2)
}

func TestSerialNoise(t *testing.T) {
	p := newSerial(t)
	// data without status and stray end markers are dropped
	assert.Equal(t,
		[]parser.Result{parser.NoMessage, parser.NoMessage, parser.NoMessage},
		parseAll(p, []byte{0x12, 0xF7, 0x34}))
	// an interrupted message is replaced by the new one
	results := parseAll(p, []byte{0x90, 0x40, 0x80, 0x41, 0x00})
	assert.Equal(t, parser.ChannelMessage, results[4])
	assert.Equal(t, midiflow.ChannelMessage{Type: midiflow.NoteOff, Data1: 0x41}, p.ChannelMessage())
}

func TestSerialCable(t *testing.T) {
	p, err := parser.NewSerial(5)
	require.NoError(t, err)
	parseAll(p, []byte{0xFA})
	assert.Equal(t, midiflow.Cable(5), p.RealTimeMessage().Cable)
	assert.Equal(t, midiflow.Cable(5), p.Message(parser.RealTimeMessage).CableNumber())
}

func TestOptions(t *testing.T) {
	_, err := parser.NewSerial(0, parser.WithSysExBufferSize(1))
	assert.Error(t, err)
	_, err = parser.NewUSB(parser.WithSysExBufferSize(0))
	assert.Error(t, err)
}
