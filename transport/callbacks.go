package transport

import (
	"github.com/dudk/midiflow"
)

// Callbacks are hooks for incoming messages. Nil hooks are skipped. SysEx
// data is only valid during the call.
type Callbacks struct {
	OnChannelMessage   func(i *Interface, msg midiflow.ChannelMessage)
	OnSysExMessage     func(i *Interface, msg midiflow.SysExMessage)
	OnSysCommonMessage func(i *Interface, msg midiflow.SysCommonMessage)
	OnRealTimeMessage  func(i *Interface, msg midiflow.RealTimeMessage)
}

func (cb Callbacks) dispatch(i *Interface, msg midiflow.Message) {
	switch m := msg.(type) {
	case midiflow.ChannelMessage:
		if cb.OnChannelMessage != nil {
			cb.OnChannelMessage(i, m)
		}
	case midiflow.SysExMessage:
		if cb.OnSysExMessage != nil {
			cb.OnSysExMessage(i, m)
		}
	case midiflow.SysCommonMessage:
		if cb.OnSysCommonMessage != nil {
			cb.OnSysCommonMessage(i, m)
		}
	case midiflow.RealTimeMessage:
		if cb.OnRealTimeMessage != nil {
			cb.OnRealTimeMessage(i, m)
		}
	}
}
