// Package mock provides mocks for pipe graph components and allows to
// execute integration tests.
package mock

import (
	"sync"

	"github.com/davecgh/go-spew/spew"

	"github.com/dudk/midiflow"
)

// counter counts messages and bytes.
type counter struct {
	messages int
	bytes    int
}

// Advance counter's metrics.
func (c *counter) advance(size int) {
	c.messages++
	c.bytes = c.bytes + size
}

// Reset resets counter's metrics.
func (c *counter) reset() {
	c.messages = 0
	c.bytes = 0
}

// Count returns messages and bytes metrics.
func (c *counter) Count() (int, int) {
	return c.messages, c.bytes
}

// Receiver mocks a pipe.Receiver and records everything it gets. SysEx
// messages are copied.
type Receiver struct {
	sync.Mutex
	counter
	Messages []midiflow.Message
	// OnReceive is called for every message after it's recorded.
	OnReceive func(midiflow.Message)
}

// Receive implements pipe.Receiver.
func (r *Receiver) Receive(msg midiflow.Message) {
	r.Lock()
	if m, ok := msg.(midiflow.SysExMessage); ok {
		msg = m.Copy()
	}
	r.Messages = append(r.Messages, msg)
	r.advance(size(msg))
	fn := r.OnReceive
	r.Unlock()
	if fn != nil {
		fn(msg)
	}
}

// Received returns a copy of recorded messages.
func (r *Receiver) Received() []midiflow.Message {
	r.Lock()
	defer r.Unlock()
	return append([]midiflow.Message(nil), r.Messages...)
}

// Reset drops recorded messages.
func (r *Receiver) Reset() {
	r.Lock()
	defer r.Unlock()
	r.Messages = nil
	r.reset()
}

// Dump returns a readable representation of recorded messages.
func (r *Receiver) Dump() string {
	return spew.Sdump(r.Received())
}

func size(msg midiflow.Message) int {
	switch m := msg.(type) {
	case midiflow.ChannelMessage:
		return len(m.Bytes())
	case midiflow.SysExMessage:
		return m.Len()
	case midiflow.SysCommonMessage:
		return len(m.Bytes())
	}
	return 1
}

// Staller mocks a pipe.Staller.
type Staller struct {
	Name string
	// Resolve is called by HandleStall.
	Resolve func()
	mu      sync.Mutex
	calls   int
}

// HandleStall implements pipe.Staller.
func (s *Staller) HandleStall() {
	s.mu.Lock()
	s.calls++
	fn := s.Resolve
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Calls returns how many times HandleStall was called.
func (s *Staller) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Staller) String() string {
	return s.Name
}
