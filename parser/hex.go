package parser

import (
	"github.com/dudk/midiflow"
)

// HexParser parses MIDI bytes written as ASCII hex text, for example
// "90 3c 7f". A lone digit followed by a separator is a byte of its own, any
// other character only separates.
type HexParser struct {
	*SerialParser
	digits [2]byte
	n      int
}

// NewHex returns a parser that decodes hex text and feeds the bytes to a
// byte stream parser built with options. Messages are tagged with cable.
func NewHex(cable midiflow.Cable, options ...Option) (*HexParser, error) {
	p, err := NewSerial(cable, options...)
	if err != nil {
		return nil, err
	}
	return &HexParser{SerialParser: p}, nil
}

// Parse consumes one character.
func (p *HexParser) Parse(c byte) Result {
	v, ok := nibble(c)
	if ok {
		p.digits[p.n] = v
		p.n++
		if p.n < 2 {
			return NoMessage
		}
		p.n = 0
		return p.SerialParser.Parse(p.digits[0]<<4 | p.digits[1])
	}
	if p.n == 1 {
		p.n = 0
		return p.SerialParser.Parse(p.digits[0])
	}
	return NoMessage
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
