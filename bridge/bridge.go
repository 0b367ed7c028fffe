// Package bridge connects pipe graphs to gitlab.com/gomidi/midi/v2 ports.
// Out sends whatever its sink receives through a gomidi send function, In
// turns messages from a gomidi listener into a source.
package bridge

import (
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/dudk/midiflow"
	"github.com/dudk/midiflow/log"
	"github.com/dudk/midiflow/parser"
	"github.com/dudk/midiflow/pipe"
)

// Option configures bridges.
type Option func(*config)

type config struct {
	name  string
	log   log.Logger
	cable midiflow.Cable
}

// WithName sets the name used in diagnostics.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithLogger sets logger. If this option is not provided, logrus logger is used.
func WithLogger(l log.Logger) Option {
	return func(c *config) {
		c.log = l
	}
}

// WithCable sets the cable incoming messages are tagged with.
func WithCable(cable midiflow.Cable) Option {
	return func(c *config) {
		c.cable = cable & 0x0F
	}
}

func newConfig(options []Option) config {
	c := config{name: "gomidi"}
	for _, option := range options {
		option(&c)
	}
	if c.log == nil {
		c.log = log.GetLogger()
	}
	return c
}

// Message converts msg to its gomidi form. Cables have no gomidi
// equivalent and are dropped.
func Message(msg midiflow.Message) gomidi.Message {
	switch m := msg.(type) {
	case midiflow.ChannelMessage:
		return gomidi.Message(m.Bytes())
	case midiflow.SysExMessage:
		return gomidi.Message(m.Copy().Data)
	case midiflow.SysCommonMessage:
		return gomidi.Message(m.Bytes())
	case midiflow.RealTimeMessage:
		return gomidi.Message{byte(m.Type)}
	}
	return nil
}

// Out sends the messages its sink receives.
type Out struct {
	sink *pipe.Sink
	send func(gomidi.Message) error
	log  log.Logger
}

// NewOut returns an Out that sends through send, as returned by
// gomidi.SendTo.
func NewOut(send func(gomidi.Message) error, options ...Option) *Out {
	c := newConfig(options)
	o := &Out{
		send: send,
		log:  c.log,
	}
	o.sink = pipe.NewSink(pipe.ReceiverFunc(o.receive), pipe.Named(c.name))
	return o
}

// SendTo opens port and returns an Out sending to it.
func SendTo(port drivers.Out, options ...Option) (*Out, error) {
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, err
	}
	return NewOut(send, append([]Option{WithName(port.String())}, options...)...), nil
}

// Sink returns the sink messages are sent from.
func (o *Out) Sink() *pipe.Sink {
	return o.sink
}

func (o *Out) receive(msg midiflow.Message) {
	if err := o.send(Message(msg)); err != nil {
		o.log.Error(o.sink, ": send ", msg, ": ", err)
	}
}

// In sources the messages a gomidi listener receives.
type In struct {
	source *pipe.Source
	log    log.Logger

	mu     sync.Mutex
	parser *parser.SerialParser
	stop   func()
}

// NewIn returns an In. Pass its Receive method to gomidi.ListenTo, or use
// ListenTo.
func NewIn(options ...Option) (*In, error) {
	c := newConfig(options)
	p, err := parser.NewSerial(c.cable)
	if err != nil {
		return nil, err
	}
	return &In{
		source: pipe.NewSource(pipe.Named(c.name)),
		log:    c.log,
		parser: p,
	}, nil
}

// ListenTo opens port and returns an In fed by it.
func ListenTo(port drivers.In, options ...Option) (*In, error) {
	in, err := NewIn(append([]Option{WithName(port.String())}, options...)...)
	if err != nil {
		return nil, err
	}
	stop, err := gomidi.ListenTo(port, in.Receive, gomidi.UseSysEx())
	if err != nil {
		return nil, err
	}
	in.stop = stop
	return in, nil
}

// Source returns the source received messages are sent to.
func (in *In) Source() *pipe.Source {
	return in.source
}

// Receive sources msg. Its signature matches gomidi listeners.
func (in *In) Receive(msg gomidi.Message, timestampms int32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, b := range msg.Bytes() {
		r := in.parser.Parse(b)
		if r == parser.NoMessage {
			continue
		}
		if err := in.source.SourceMessage(in.parser.Message(r)); err != nil {
			in.log.Debug(in.source, ": dropped ", msg, ": ", err)
		}
	}
}

// Close stops listening and disconnects the source.
func (in *In) Close() error {
	in.mu.Lock()
	stop := in.stop
	in.stop = nil
	in.mu.Unlock()
	if stop != nil {
		stop()
	}
	return in.source.Close()
}

// Port pairs an In and an Out, so both directions of a gomidi device can be
// wired with one bidirectional pipe.
type Port struct {
	*In
	*Out
}

// Close closes the input side.
func (p Port) Close() error {
	return p.In.Close()
}
