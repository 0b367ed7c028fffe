package mock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/midiflow"
	"github.com/dudk/midiflow/mock"
)

func TestReceiver(t *testing.T) {
	data := []byte{0xF0, 0x01, 0xF7}
	r := &mock.Receiver{}
	var hooked int
	r.OnReceive = func(midiflow.Message) { hooked++ }

	r.Receive(midiflow.ChannelMessage{Type: midiflow.NoteOn, Data1: 0x40, Data2: 0x7F})
	r.Receive(midiflow.SysExMessage{Data: data})
	r.Receive(midiflow.RealTimeMessage{Type: midiflow.TimingClock})
	data[1] = 0x02

	messages, bytes := r.Count()
	assert.Equal(t, 3, messages)
	assert.Equal(t, 7, bytes)
	assert.Equal(t, 3, hooked)
	assert.Equal(t, []byte{0xF0, 0x01, 0xF7}, r.Received()[1].(midiflow.SysExMessage).Data)
	assert.Contains(t, r.Dump(), "SysExMessage")

	r.Reset()
	messages, bytes = r.Count()
	assert.Equal(t, 0, messages)
	assert.Equal(t, 0, bytes)
	assert.Empty(t, r.Received())
}

func TestStaller(t *testing.T) {
	var resolved bool
	s := &mock.Staller{Name: "test", Resolve: func() { resolved = true }}
	s.HandleStall()
	assert.True(t, resolved)
	assert.Equal(t, 1, s.Calls())
	assert.Equal(t, "test", s.String())
}
