package pipe

import (
	"errors"
	"fmt"

	"github.com/dudk/midiflow"
	"github.com/dudk/midiflow/log"
)

// Pipe connects one Source to one Sink. Pipes that feed the same sink are
// chained through each other: the first one holds the sink slot and every
// other one is the through input of the previous one. Pipes fed by the same
// source are chained the same way through their through outputs.
//
// Messages coming from the source are mapped by the pipe's Mapper before
// they reach the sink. Messages coming from the through input pass
// unchanged.
type Pipe struct {
	uid    string
	name   string
	log    log.Logger
	mapper Mapper

	source     sourceNode
	sink       sinkNode
	throughIn  *Pipe
	throughOut *Pipe

	// sinkStaller holds what's reachable through the sink slot,
	// throughStaller what's reachable through the through output.
	sinkStaller    Staller
	throughStaller Staller
	// pushed is set while sinkStaller came from the source side.
	pushed bool
}

// Option provides a way to set functional parameters to pipe.
type Option func(p *Pipe) error

// ErrNilMapper is returned if a pipe is configured with nil mapper.
var ErrNilMapper = errors.New("nil mapper")

// New creates a new unconnected pipe and applies provided options.
func New(options ...Option) (*Pipe, error) {
	p := &Pipe{
		uid:    newUID(),
		name:   "pipe",
		log:    log.Silent(),
		mapper: passThrough{},
	}
	for _, option := range options {
		err := option(p)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// WithLogger sets logger to Pipe. If this option is not provided, silent logger is used.
func WithLogger(logger log.Logger) Option {
	return func(p *Pipe) error {
		p.log = logger
		return nil
	}
}

// WithName sets name to Pipe.
func WithName(n string) Option {
	return func(p *Pipe) error {
		p.name = n
		return nil
	}
}

// WithMapper sets the mapper applied to messages from the pipe's source.
func WithMapper(m Mapper) Option {
	return func(p *Pipe) error {
		if m == nil {
			return ErrNilMapper
		}
		p.mapper = m
		return nil
	}
}

func (p *Pipe) String() string {
	return fmt.Sprintf("%s %s", p.name, p.uid)
}

// Disconnect removes the pipe from the graph. Its through input takes its
// place at its sink and its through output takes its place at its source.
func (p *Pipe) Disconnect() {
	lock()
	defer unlock()
	p.disconnect()
}

// Close removes the pipe from the graph.
func (p *Pipe) Close() error {
	p.Disconnect()
	return nil
}

// HasSink reports whether the sink slot is populated.
func (p *Pipe) HasSink() bool {
	lock()
	defer unlock()
	return p.sink != nil
}

// HasSource reports whether the source slot is populated.
func (p *Pipe) HasSource() bool {
	lock()
	defer unlock()
	return p.source != nil
}

// ThroughIn returns the pipe chained to the pipe's sink slot.
func (p *Pipe) ThroughIn() *Pipe {
	lock()
	defer unlock()
	return p.throughIn
}

// ThroughOut returns the pipe chained to the pipe's source slot.
func (p *Pipe) ThroughOut() *Pipe {
	lock()
	defer unlock()
	return p.throughOut
}

// FinalSink returns the terminal sink the pipe delivers to.
func (p *Pipe) FinalSink() *Sink {
	lock()
	defer unlock()
	return p.finalSink()
}

// InitialSource returns the terminal source that feeds the pipe.
func (p *Pipe) InitialSource() *Source {
	lock()
	defer unlock()
	return p.initialSource()
}

// delivery is a sink a message from the source reaches and the mapper it
// passes on the way.
type delivery struct {
	mapper Mapper
	sink   *Sink
}

// deliveries appends where a message that came through the source slot
// goes, the through output's targets first.
func (p *Pipe) deliveries(dst []delivery) []delivery {
	if p.sink == nil && p.throughOut == nil {
		midiflow.Fail(midiflow.GraphInvariant, 0x9148, "%v has no sink and no through output", p)
	}
	if p.throughOut != nil {
		dst = p.throughOut.deliveries(dst)
	}
	if p.sink != nil {
		k := p.finalSink()
		if k == nil {
			midiflow.Fail(midiflow.GraphInvariant, 0x9148, "%v feeds through but has no sink", p)
		}
		dst = append(dst, delivery{mapper: p.mapper, sink: k})
	}
	return dst
}

func (p *Pipe) finalSink() *Sink {
	if p.sink == nil {
		return nil
	}
	return p.sink.finalSink()
}

func (p *Pipe) initialSource() *Source {
	if p.source == nil {
		return nil
	}
	return p.source.initialSource()
}

func (p *Pipe) attachSink(n sinkNode) {
	if p.sink != nil {
		midiflow.Fail(midiflow.GraphInvariant, 0x9145, "%v is already connected to %v", p, p.sink)
	}
	if n == sinkNode(p) {
		midiflow.Fail(midiflow.GraphInvariant, 0x9145, "%v cannot feed itself", p)
	}
	p.sink = n
}

func (p *Pipe) attachSource(n sourceNode) {
	if p.source != nil {
		midiflow.Fail(midiflow.GraphInvariant, 0x9146, "%v is already connected to %v", p, p.source)
	}
	if n == sourceNode(p) {
		midiflow.Fail(midiflow.GraphInvariant, 0x9146, "%v cannot feed itself", p)
	}
	p.source = n
}

// connectThroughIn appends q at the end of the pipe's through input chain.
func (p *Pipe) connectThroughIn(q *Pipe) {
	if p.throughIn != nil {
		p.throughIn.connectThroughIn(q)
		return
	}
	q.attachSink(p)
	p.throughIn = q
	q.inherit()
}

// connectThroughOut appends q at the end of the pipe's through output chain.
func (p *Pipe) connectThroughOut(q *Pipe) {
	if p.throughOut != nil {
		p.throughOut.connectThroughOut(q)
		return
	}
	q.attachSource(p)
	p.throughOut = q
	q.present()
}

func (p *Pipe) replaceSourcePipe(old, next *Pipe) {
	if p.throughIn != old {
		midiflow.Fail(midiflow.GraphInvariant, 0x9147, "%v is not fed through by %v", p, old)
	}
	p.throughIn = next
}

func (p *Pipe) replaceSinkPipe(old, next *Pipe) {
	if p.throughOut != old {
		midiflow.Fail(midiflow.GraphInvariant, 0x9147, "%v does not feed through %v", p, old)
	}
	p.throughOut = next
}

func (p *Pipe) disconnect() {
	// withdraw what the source pushed past the pipe, nothing else can
	// reach it once the pipe is gone.
	if c := p.sinkStaller; c != nil && p.pushed {
		if p.sink != nil {
			p.sink.unstallDownstream(c, p)
		}
		if p.throughIn != nil {
			p.throughIn.unstallUpstream(c, p)
		}
	}
	if p.sink != nil {
		p.sink.replaceSourcePipe(p, p.throughIn)
		if p.throughIn != nil {
			p.throughIn.sink = p.sink
			p.throughIn = nil
		}
		p.sink = nil
	}
	if p.source != nil {
		src, out := p.source, p.throughOut
		// src sees out's state instead of the pipe's from now on.
		if c := p.effective(); c != nil {
			src.unstallUpstream(c, p)
		}
		src.replaceSinkPipe(p, out)
		p.source = nil
		if out != nil {
			out.source = src
			p.throughOut = nil
			out.present()
		}
	}
	if p.throughIn != nil || p.throughOut != nil {
		midiflow.Fail(midiflow.GraphInvariant, 0x9147, "%v left dangling through pipes", p)
	}
	p.sinkStaller, p.throughStaller, p.pushed = nil, nil, false
	p.log.Debug(p, " disconnected")
}
