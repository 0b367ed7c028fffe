// Package transport binds parsers to ports. An Interface reads MIDI from a
// serial byte stream, a USB-MIDI packet stream or a hex debug console,
// sends MIDI to it, and takes part in a pipe graph through its Source and
// Sink.
package transport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/xid"

	"github.com/dudk/midiflow"
	"github.com/dudk/midiflow/log"
	"github.com/dudk/midiflow/parser"
	"github.com/dudk/midiflow/pipe"
	"github.com/dudk/midiflow/port"
)

var (
	// ErrInvalidChannel is returned when a channel outside [1, 16] is sent to.
	ErrInvalidChannel = errors.New("channel must be in range [1, 16]")
	// ErrInvalidCable is returned when an interface is configured with a
	// cable outside [0, 15].
	ErrInvalidCable = errors.New("cable must be in range [0, 15]")
	// ErrAlreadyBegun is returned when Begin is called twice.
	ErrAlreadyBegun = errors.New("interface already begun")
	// ErrNotBegun is returned when an interface that wasn't begun is closed.
	ErrNotBegun = errors.New("interface not begun")
)

// UpdateBudget is the number of raw bytes Update consumes at most per call,
// three quarters of a 512 byte receive buffer.
const UpdateBudget = 384

// Interface is a MIDI interface. It is a pipe.Staller: while it sources a
// sequence exclusively, other producers feeding the same sinks wait.
type Interface struct {
	uid       string
	name      string
	log       log.Logger
	cable     midiflow.Cable
	callbacks Callbacks
	codec     codec

	source *pipe.Source
	sink   *pipe.Sink

	mu        sync.Mutex
	begun     bool
	exclusive bool
}

// Option provides a way to set functional parameters to interfaces.
type Option func(*config) error

type config struct {
	name          string
	log           log.Logger
	cable         midiflow.Cable
	callbacks     Callbacks
	runningStatus bool
	parser        []parser.Option
}

// WithName sets the name used in diagnostics.
func WithName(name string) Option {
	return func(c *config) error {
		c.name = name
		return nil
	}
}

// WithLogger sets logger. If this option is not provided, logrus logger is used.
func WithLogger(l log.Logger) Option {
	return func(c *config) error {
		c.log = l
		return nil
	}
}

// WithCable sets the cable that channel messages are sent on and that
// messages read from byte streams are tagged with.
func WithCable(cable midiflow.Cable) Option {
	return func(c *config) error {
		if cable > 15 {
			return ErrInvalidCable
		}
		c.cable = cable
		return nil
	}
}

// WithCallbacks sets hooks called by Update for every message read.
func WithCallbacks(cb Callbacks) Option {
	return func(c *config) error {
		c.callbacks = cb
		return nil
	}
}

// WithRunningStatus makes a serial interface omit repeated channel status
// bytes.
func WithRunningStatus(enabled bool) Option {
	return func(c *config) error {
		c.runningStatus = enabled
		return nil
	}
}

// WithParserOptions configures the interface's parser.
func WithParserOptions(options ...parser.Option) Option {
	return func(c *config) error {
		c.parser = append(c.parser, options...)
		return nil
	}
}

func newConfig(kind string, options []Option) (config, error) {
	c := config{name: kind}
	for _, option := range options {
		if err := option(&c); err != nil {
			return config{}, err
		}
	}
	if c.log == nil {
		c.log = log.GetLogger()
	}
	return c, nil
}

// NewSerial returns an interface that speaks the MIDI 1.0 byte stream
// format over s.
func NewSerial(s port.ByteStream, options ...Option) (*Interface, error) {
	c, err := newConfig("serial", options)
	if err != nil {
		return nil, err
	}
	p, err := parser.NewSerial(c.cable, c.parser...)
	if err != nil {
		return nil, err
	}
	return newInterface(c, &byteCodec{
		ByteParser: p,
		stream:     s,
		encoder:    &serialEncoder{runningStatus: c.runningStatus},
	}), nil
}

// NewUSB returns an interface that speaks USB-MIDI event packets over s.
func NewUSB(s port.PacketStream, options ...Option) (*Interface, error) {
	c, err := newConfig("usb", options)
	if err != nil {
		return nil, err
	}
	p, err := parser.NewUSB(c.parser...)
	if err != nil {
		return nil, err
	}
	return newInterface(c, &usbCodec{USBParser: p, stream: s}), nil
}

// NewDebug returns an interface that reads hex text, like "90 3C 7F", from
// s and writes every sent message to it as a readable line.
func NewDebug(s port.ByteStream, options ...Option) (*Interface, error) {
	c, err := newConfig("debug", options)
	if err != nil {
		return nil, err
	}
	p, err := parser.NewHex(c.cable, c.parser...)
	if err != nil {
		return nil, err
	}
	return newInterface(c, &byteCodec{
		ByteParser: p,
		stream:     s,
		encoder:    debugEncoder{},
	}), nil
}

func newInterface(c config, cd codec) *Interface {
	i := &Interface{
		uid:       xid.New().String(),
		name:      c.name,
		log:       c.log,
		cable:     c.cable,
		callbacks: c.callbacks,
		codec:     cd,
	}
	i.source = pipe.NewSource(pipe.Named(c.name), pipe.OwnedBy(i))
	i.sink = pipe.NewSink(pipe.ReceiverFunc(i.receive), pipe.Named(c.name), pipe.OwnedBy(i))
	return i
}

func (i *Interface) String() string {
	return fmt.Sprintf("%s %s", i.name, i.uid)
}

// Begin starts the interface.
func (i *Interface) Begin() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.begun {
		return ErrAlreadyBegun
	}
	i.begun = true
	i.codec.reset()
	i.log.Debug(i, " begun")
	return nil
}

// Close disconnects the interface from the pipe graph and, if it's the
// default interface, unregisters it.
func (i *Interface) Close() error {
	i.mu.Lock()
	if !i.begun {
		i.mu.Unlock()
		return ErrNotBegun
	}
	i.begun = false
	i.mu.Unlock()

	i.source.Close()
	i.sink.Close()
	Unregister(i)
	i.log.Debug(i, " closed")
	return nil
}

// Source returns the source that messages read by Update are sent to.
func (i *Interface) Source() *pipe.Source {
	return i.source
}

// Sink returns the sink that sends every message it receives.
func (i *Interface) Sink() *pipe.Sink {
	return i.sink
}

// Cable returns the cable the interface sends on.
func (i *Interface) Cable() midiflow.Cable {
	return i.cable
}

// Read parses pending input and returns as soon as a message completes,
// NoMessage if the input runs out first. It never blocks.
func (i *Interface) Read() parser.Result {
	r, _, err := i.codec.read()
	if err != nil {
		i.log.Warn(i, " read: ", err)
	}
	return r
}

// ChannelMessage returns the channel message completed by the last Read.
func (i *Interface) ChannelMessage() midiflow.ChannelMessage {
	return i.codec.ChannelMessage()
}

// SysExMessage returns the SysEx message completed by the last Read. Its
// data is only valid until the next Read.
func (i *Interface) SysExMessage() midiflow.SysExMessage {
	return i.codec.SysExMessage()
}

// SysCommonMessage returns the system common message completed by the last Read.
func (i *Interface) SysCommonMessage() midiflow.SysCommonMessage {
	return i.codec.SysCommonMessage()
}

// RealTimeMessage returns the real-time message completed by the last Read.
func (i *Interface) RealTimeMessage() midiflow.RealTimeMessage {
	return i.codec.RealTimeMessage()
}

// Send sends a channel message with two data bytes. Channels are
// one-based. The type is reduced to its status nibble and data bytes to
// seven bits.
func (i *Interface) Send(t midiflow.MessageType, channel int, data1, data2 uint8) error {
	msg, err := i.channelMessage(t, channel, data1)
	if err != nil {
		return err
	}
	if msg.HasTwoDataBytes() {
		msg.Data2 = data2 & 0x7F
	}
	return i.SendMessage(msg)
}

// SendShort sends a channel message with one data byte.
func (i *Interface) SendShort(t midiflow.MessageType, channel int, data1 uint8) error {
	msg, err := i.channelMessage(t, channel, data1)
	if err != nil {
		return err
	}
	return i.SendMessage(msg)
}

func (i *Interface) channelMessage(t midiflow.MessageType, channel int, data1 uint8) (midiflow.ChannelMessage, error) {
	if channel < 1 || channel > 16 {
		return midiflow.ChannelMessage{}, ErrInvalidChannel
	}
	return midiflow.ChannelMessage{
		Type:    midiflow.MessageType(byte(t)&0xF0 | 0x80),
		Channel: midiflow.Channel(channel - 1),
		Data1:   data1 & 0x7F,
		Cable:   i.cable,
	}, nil
}

// SendMessage writes msg and flushes the port.
func (i *Interface) SendMessage(msg midiflow.Message) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.codec.write(msg); err != nil {
		return fmt.Errorf("%v: send %v: %w", i, msg, err)
	}
	return i.codec.flush()
}

// receive is the sink's receiver.
func (i *Interface) receive(msg midiflow.Message) {
	if err := i.SendMessage(msg); err != nil {
		i.log.Error(err)
	}
}

// Update reads pending input and sends every message to the callbacks and
// the source. It stops when the input runs out, when UpdateBudget bytes
// were consumed or when the source is held by someone else who didn't
// lift the stall.
func (i *Interface) Update() error {
	for budget := UpdateBudget; budget > 0; {
		if i.source.Blocked() {
			i.source.HandleStallers()
			if i.source.Blocked() {
				return nil
			}
		}
		r, n, err := i.codec.read()
		budget -= n
		if err != nil {
			return fmt.Errorf("%v: read: %w", i, err)
		}
		if r == parser.NoMessage {
			return nil
		}
		msg := i.codec.message(r)
		i.callbacks.dispatch(i, msg)
		if err := i.source.SourceMessage(msg); err != nil {
			i.log.Debug(i, " dropped ", msg, ": ", err)
		}
	}
	return nil
}

// Exclusive runs fn while the interface holds every sink its source
// feeds, so a sequence sourced by fn is not interleaved with messages from
// other producers. The hold is lifted when fn returns, or earlier if
// another producer asks for it.
//
// Parties already holding those sinks are asked to let go first. If any
// of them keeps its hold, fn is not run and pipe.ErrStalled is returned.
func (i *Interface) Exclusive(fn func() error) error {
	if i.source.Blocked() {
		i.source.HandleStallers()
	}
	i.mu.Lock()
	i.exclusive = true
	i.mu.Unlock()
	if err := i.source.TryStall(i); err != nil {
		i.mu.Lock()
		i.exclusive = false
		i.mu.Unlock()
		return err
	}
	defer i.HandleStall()
	return fn()
}

// HandleStall implements pipe.Staller. It ends an exclusive sequence.
func (i *Interface) HandleStall() {
	i.mu.Lock()
	exclusive := i.exclusive
	i.exclusive = false
	i.mu.Unlock()
	if exclusive {
		i.source.Unstall(i)
	}
}
