package pipe

import (
	"errors"

	"github.com/dudk/midiflow"
)

// ErrStalled is returned when a message cannot be sourced because the pipe
// graph is held by someone else.
var ErrStalled = errors.New("stalled")

// Source is the terminal producer of a pipe graph. It can feed any number
// of sinks, their pipes are chained through each other.
type Source struct {
	endpoint
	sinkPipe *Pipe
}

// NewSource returns an unconnected source.
func NewSource(options ...EndpointOption) *Source {
	return &Source{
		endpoint: newEndpoint("source", options),
	}
}

// ConnectSinkPipe connects p to the source. If the source already has a
// pipe, p is appended at the end of its through chain.
func (s *Source) ConnectSinkPipe(p *Pipe) {
	lock()
	defer unlock()
	s.connectSinkPipe(p)
}

func (s *Source) connectSinkPipe(p *Pipe) {
	if s.sinkPipe != nil {
		s.sinkPipe.connectThroughOut(p)
		return
	}
	p.attachSource(s)
	s.sinkPipe = p
	p.present()
}

// HasSinkPipe reports whether the source is connected to anything.
func (s *Source) HasSinkPipe() bool {
	lock()
	defer unlock()
	return s.sinkPipe != nil
}

// SinkPipe returns the pipe the source feeds.
func (s *Source) SinkPipe() *Pipe {
	lock()
	defer unlock()
	return s.sinkPipe
}

// Disconnect detaches the pipe that connects the source to k. It reports
// whether k was connected.
func (s *Source) Disconnect(k *Sink) bool {
	lock()
	defer unlock()
	for p := s.sinkPipe; p != nil; p = p.throughOut {
		if p.finalSink() == k {
			p.disconnect()
			return true
		}
	}
	return false
}

// DisconnectSinkPipes detaches every pipe the source feeds.
func (s *Source) DisconnectSinkPipes() {
	lock()
	defer unlock()
	for s.sinkPipe != nil {
		s.sinkPipe.disconnect()
	}
}

// Close detaches the source from the graph.
func (s *Source) Close() error {
	s.DisconnectSinkPipes()
	return nil
}

// SourceMessage sends msg down the graph. Real-time messages are always
// delivered. Other messages are held back while the graph is stalled by
// anyone but the source's owner: the stallers get one HandleStallers call
// to lift their stalls and ErrStalled is returned if they don't. An eternal
// stall returns ErrStalled right away.
//
// The sinks a message reaches are picked under the graph lock, receivers
// are called without it and may stall, connect or disconnect.
func (s *Source) SourceMessage(msg midiflow.Message) error {
	if _, ok := msg.(midiflow.RealTimeMessage); !ok {
		causes := s.foreignCauses()
		if len(causes) > 0 {
			for _, c := range causes {
				if c == EternalStall {
					return ErrStalled
				}
			}
			s.HandleStallers()
			if len(s.foreignCauses()) > 0 {
				return ErrStalled
			}
		}
	}
	var buf [8]delivery
	for _, d := range s.deliveries(buf[:0]) {
		d.mapper.MapForward(msg, d.sink.sinkMessage)
	}
	return nil
}

// deliveries returns where a message sourced now goes, in delivery order.
func (s *Source) deliveries(dst []delivery) []delivery {
	lock()
	defer unlock()
	if s.sinkPipe == nil {
		return dst
	}
	return s.sinkPipe.deliveries(dst)
}

// Blocked reports whether the source is held by anyone but its owner.
func (s *Source) Blocked() bool {
	return len(s.foreignCauses()) > 0
}

func (s *Source) foreignCauses() []Staller {
	lock()
	defer unlock()
	if s.sinkPipe == nil {
		return nil
	}
	return s.sinkPipe.causes(s.owner)
}

// Stall holds every sink the source feeds, and the other producers of
// those sinks, until Unstall is called with the same cause.
func (s *Source) Stall(cause Staller) {
	lock()
	defer unlock()
	mustCause(s, cause)
	if s.sinkPipe != nil {
		s.sinkPipe.stallDownstream(cause, s)
	}
}

// TryStall stalls the source with cause unless it is held by anyone but
// its owner or cause, in which case it returns ErrStalled and changes nothing.
func (s *Source) TryStall(cause Staller) error {
	lock()
	defer unlock()
	mustCause(s, cause)
	if s.sinkPipe == nil {
		return nil
	}
	for _, c := range s.sinkPipe.causes(s.owner) {
		if c != cause {
			return ErrStalled
		}
	}
	s.sinkPipe.stallDownstream(cause, s)
	return nil
}

// Unstall lifts a stall caused by cause.
func (s *Source) Unstall(cause Staller) {
	lock()
	defer unlock()
	mustCause(s, cause)
	if s.sinkPipe != nil {
		s.sinkPipe.unstallDownstream(cause, s)
	}
}

// IsStalled reports whether anything the source feeds is held.
func (s *Source) IsStalled() bool {
	lock()
	defer unlock()
	return s.sinkPipe != nil && s.sinkPipe.isStalled()
}

// Staller returns the cause holding the source, nil if it isn't stalled.
func (s *Source) Staller() Staller {
	lock()
	defer unlock()
	if s.sinkPipe == nil {
		return nil
	}
	return s.sinkPipe.effective()
}

// HandleStallers asks every cause holding the source, except its owner,
// to lift its stall.
func (s *Source) HandleStallers() {
	resolve(s, s.foreignCauses)
}

// Terminal sources derive their state from their pipe.
func (s *Source) stallUpstream(Staller, sinkNode)   {}
func (s *Source) unstallUpstream(Staller, sinkNode) {}

func (s *Source) initialSource() *Source {
	return s
}

func (s *Source) replaceSinkPipe(old, next *Pipe) {
	if s.sinkPipe != old {
		midiflow.Fail(midiflow.GraphInvariant, 0x9147, "%v does not feed %v", s, old)
	}
	s.sinkPipe = next
}
