package pipe

import (
	"github.com/dudk/midiflow"
)

// Mapper transforms messages travelling from a pipe's source to its sink.
// It calls forward for every message that should go on, any number of
// times.
type Mapper interface {
	MapForward(msg midiflow.Message, forward func(midiflow.Message))
}

// MapperFunc adapts a function to Mapper.
type MapperFunc func(msg midiflow.Message, forward func(midiflow.Message))

// MapForward calls fn(msg, forward).
func (fn MapperFunc) MapForward(msg midiflow.Message, forward func(midiflow.Message)) {
	fn(msg, forward)
}

type passThrough struct{}

func (passThrough) MapForward(msg midiflow.Message, forward func(midiflow.Message)) {
	forward(msg)
}

// Mappers applies ms in order.
func Mappers(ms ...Mapper) Mapper {
	if len(ms) == 0 {
		return passThrough{}
	}
	return MapperFunc(func(msg midiflow.Message, forward func(midiflow.Message)) {
		ms[0].MapForward(msg, func(m midiflow.Message) {
			Mappers(ms[1:]...).MapForward(m, forward)
		})
	})
}

// ChannelFilter drops channel messages on channels other than the given
// ones. Other messages pass.
func ChannelFilter(channels ...midiflow.Channel) Mapper {
	var allowed uint16
	for _, c := range channels {
		allowed |= 1 << (c & 0x0F)
	}
	return MapperFunc(func(msg midiflow.Message, forward func(midiflow.Message)) {
		if m, ok := msg.(midiflow.ChannelMessage); ok && allowed&(1<<(m.Channel&0x0F)) == 0 {
			return
		}
		forward(msg)
	})
}

// ChannelRemap moves channel messages on channel from to channel to.
func ChannelRemap(from, to midiflow.Channel) Mapper {
	return MapperFunc(func(msg midiflow.Message, forward func(midiflow.Message)) {
		if m, ok := msg.(midiflow.ChannelMessage); ok && m.Channel == from {
			m.Channel = to
			msg = m
		}
		forward(msg)
	})
}

// CableRemap moves every message to cable c.
func CableRemap(c midiflow.Cable) Mapper {
	return MapperFunc(func(msg midiflow.Message, forward func(midiflow.Message)) {
		forward(midiflow.WithCable(msg, c))
	})
}

// DropRealTime drops real-time messages.
var DropRealTime Mapper = MapperFunc(func(msg midiflow.Message, forward func(midiflow.Message)) {
	if _, ok := msg.(midiflow.RealTimeMessage); ok {
		return
	}
	forward(msg)
})
