package pipe

import (
	"github.com/dudk/midiflow"
)

// Duplex is implemented by endpoints that both produce and consume
// messages, such as transports.
type Duplex interface {
	Source() *Source
	Sink() *Sink
}

// Route connects src to dst through p.
func Route(src *Source, p *Pipe, dst *Sink) {
	lock()
	defer unlock()
	dst.connectSourcePipe(p)
	src.connectSinkPipe(p)
}

// Connect connects src to dst through a new pipe.
func Connect(src *Source, dst *Sink, options ...Option) (*Pipe, error) {
	p, err := New(options...)
	if err != nil {
		return nil, err
	}
	Route(src, p, dst)
	return p, nil
}

// Chain connects src to dst through pipes in series: src feeds the first
// pipe, which feeds the next one through, and so on until dst. Only the
// first pipe's mapper applies.
func Chain(src *Source, dst *Sink, pipes ...*Pipe) {
	if len(pipes) == 0 {
		return
	}
	lock()
	defer unlock()
	for i := len(pipes) - 1; i >= 0; i-- {
		dst.connectSourcePipe(pipes[i])
	}
	src.connectSinkPipe(pipes[0])
}

// Factory hands out pipes from a fixed pool.
type Factory struct {
	pipes []*Pipe
	next  int
}

// NewFactory returns a factory of n pipes, each created with options.
func NewFactory(n int, options ...Option) (*Factory, error) {
	f := &Factory{pipes: make([]*Pipe, n)}
	for i := range f.pipes {
		p, err := New(options...)
		if err != nil {
			return nil, err
		}
		f.pipes[i] = p
	}
	return f, nil
}

// Next returns the next unused pipe. Running out of pipes is fatal.
func (f *Factory) Next() *Pipe {
	if f.next >= len(f.pipes) {
		midiflow.Fail(midiflow.BufferExhausted, 0x2459, "not enough pipes available: %d in use", len(f.pipes))
	}
	p := f.pipes[f.next]
	f.next++
	return p
}

// Len returns the number of pipes in the pool.
func (f *Factory) Len() int {
	return len(f.pipes)
}

// Pipe returns the i-th pipe of the pool.
func (f *Factory) Pipe(i int) *Pipe {
	return f.pipes[i]
}

// Link connects src to dst through the factory's next pipe.
func Link(src *Source, f *Factory, dst *Sink) *Pipe {
	p := f.Next()
	Route(src, p, dst)
	return p
}

// Bidirectional is a pair of pipes connecting two duplex endpoints.
type Bidirectional struct {
	Forward  *Pipe
	Backward *Pipe
}

// NewBidirectional creates both pipes with options.
func NewBidirectional(options ...Option) (Bidirectional, error) {
	fwd, err := New(options...)
	if err != nil {
		return Bidirectional{}, err
	}
	bwd, err := New(options...)
	if err != nil {
		return Bidirectional{}, err
	}
	return Bidirectional{Forward: fwd, Backward: bwd}, nil
}

// Connect routes a to b through the forward pipe and b to a through the
// backward one.
func (bp Bidirectional) Connect(a, b Duplex) {
	Route(a.Source(), bp.Forward, b.Sink())
	Route(b.Source(), bp.Backward, a.Sink())
}

// Disconnect removes both pipes from the graph.
func (bp Bidirectional) Disconnect() {
	bp.Forward.Disconnect()
	bp.Backward.Disconnect()
}

// BidirectionalFactory hands out bidirectional pipes from a fixed pool.
type BidirectionalFactory struct {
	fwd, bwd *Factory
}

// NewBidirectionalFactory returns a factory of n bidirectional pipes.
func NewBidirectionalFactory(n int, options ...Option) (*BidirectionalFactory, error) {
	fwd, err := NewFactory(n, options...)
	if err != nil {
		return nil, err
	}
	bwd, err := NewFactory(n, options...)
	if err != nil {
		return nil, err
	}
	return &BidirectionalFactory{fwd: fwd, bwd: bwd}, nil
}

// Next returns the next unused pair. Running out of pipes is fatal.
func (f *BidirectionalFactory) Next() Bidirectional {
	return Bidirectional{Forward: f.fwd.Next(), Backward: f.bwd.Next()}
}

// LinkBidirectional connects a and b both ways with the factory's next pair.
func LinkBidirectional(a Duplex, f *BidirectionalFactory, b Duplex) Bidirectional {
	bp := f.Next()
	bp.Connect(a, b)
	return bp
}
