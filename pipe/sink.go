package pipe

import (
	"github.com/dudk/midiflow"
	"github.com/dudk/midiflow/metric"
)

// Receiver consumes messages delivered to a Sink.
type Receiver interface {
	Receive(msg midiflow.Message)
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(msg midiflow.Message)

// Receive calls fn(msg).
func (fn ReceiverFunc) Receive(msg midiflow.Message) {
	fn(msg)
}

// Sink is the terminal consumer of a pipe graph. Any number of sources can
// be connected to it, their pipes are chained through each other.
type Sink struct {
	endpoint
	receiver   Receiver
	sourcePipe *Pipe
	staller    Staller
	measure    metric.MeasureFunc
}

// NewSink returns a sink that hands messages to r.
func NewSink(r Receiver, options ...EndpointOption) *Sink {
	k := &Sink{
		endpoint: newEndpoint("sink", options),
		receiver: r,
	}
	k.measure = metric.Meter(k)
	return k
}

// ConnectSourcePipe connects p to the sink. If the sink already has a
// pipe, p is appended at the end of its through chain.
func (k *Sink) ConnectSourcePipe(p *Pipe) {
	lock()
	defer unlock()
	k.connectSourcePipe(p)
}

func (k *Sink) connectSourcePipe(p *Pipe) {
	if k.sourcePipe != nil {
		k.sourcePipe.connectThroughIn(p)
		return
	}
	p.attachSink(k)
	k.sourcePipe = p
	p.inherit()
}

// HasSourcePipe reports whether anything is connected to the sink.
func (k *Sink) HasSourcePipe() bool {
	lock()
	defer unlock()
	return k.sourcePipe != nil
}

// SourcePipe returns the pipe connected to the sink.
func (k *Sink) SourcePipe() *Pipe {
	lock()
	defer unlock()
	return k.sourcePipe
}

// Disconnect detaches the pipe that connects src to the sink. It reports
// whether src was connected.
func (k *Sink) Disconnect(src *Source) bool {
	lock()
	defer unlock()
	for p := k.sourcePipe; p != nil; p = p.throughIn {
		if p.initialSource() == src {
			p.disconnect()
			return true
		}
	}
	return false
}

// DisconnectSourcePipes detaches every pipe connected to the sink.
func (k *Sink) DisconnectSourcePipes() {
	lock()
	defer unlock()
	for k.sourcePipe != nil {
		k.sourcePipe.disconnect()
	}
}

// Close detaches the sink from the graph.
func (k *Sink) Close() error {
	k.DisconnectSourcePipes()
	return nil
}

// Stall holds the sink: every producer connected to it stops sourcing
// messages until Unstall is called with the same cause.
func (k *Sink) Stall(cause Staller) {
	lock()
	defer unlock()
	mustCause(k, cause)
	k.hold(cause)
	if k.sourcePipe != nil {
		k.sourcePipe.stallUpstream(cause, k)
	}
}

// Unstall lifts a stall caused by cause.
func (k *Sink) Unstall(cause Staller) {
	lock()
	defer unlock()
	mustCause(k, cause)
	k.release(cause)
	if k.sourcePipe != nil {
		k.sourcePipe.unstallUpstream(cause, k)
	}
}

// IsStalled reports whether the sink is held by anyone.
func (k *Sink) IsStalled() bool {
	lock()
	defer unlock()
	return k.staller != nil
}

// Staller returns the cause holding the sink.
func (k *Sink) Staller() Staller {
	lock()
	defer unlock()
	return k.staller
}

// HandleStallers asks the cause holding the sink to lift its stall.
func (k *Sink) HandleStallers() {
	resolve(k, func() []Staller {
		lock()
		defer unlock()
		return distinct(nil, k.staller)
	})
}

func (k *Sink) hold(cause Staller) {
	switch k.staller {
	case nil:
		k.staller = cause
		metric.Stall(k)
	case cause:
	default:
		midiflow.Fail(midiflow.StallConflict, 0x6665, "%v cannot be stalled by %s: stalled by %s",
			k, stallerName(cause), stallerName(k.staller))
	}
}

func (k *Sink) release(cause Staller) {
	switch k.staller {
	case nil:
	case cause:
		k.staller = nil
	default:
		midiflow.Fail(midiflow.StallConflict, 0x6666, "%v cannot be unstalled by %s: stalled by %s",
			k, stallerName(cause), stallerName(k.staller))
	}
}

func (k *Sink) sinkMessage(msg midiflow.Message) {
	k.measure(size(msg))
	k.receiver.Receive(msg)
}

func (k *Sink) stallDownstream(cause Staller, _ sourceNode) {
	k.hold(cause)
}

func (k *Sink) unstallDownstream(cause Staller, _ sourceNode) {
	k.release(cause)
}

func (k *Sink) finalSink() *Sink {
	return k
}

func (k *Sink) replaceSourcePipe(old, next *Pipe) {
	if k.sourcePipe != old {
		midiflow.Fail(midiflow.GraphInvariant, 0x9147, "%v is not fed by %v", k, old)
	}
	k.sourcePipe = next
}

func (k *Sink) heldBy() Staller {
	return k.staller
}

func mustCause(who interface{}, cause Staller) {
	if cause == nil {
		midiflow.Fail(midiflow.GraphInvariant, 0x9149, "%v: stall without a cause", who)
	}
}

func size(msg midiflow.Message) int {
	switch m := msg.(type) {
	case midiflow.ChannelMessage:
		return len(m.Bytes())
	case midiflow.SysExMessage:
		return m.Len()
	case midiflow.SysCommonMessage:
		return 1 + m.DataLength()
	}
	return 1
}
