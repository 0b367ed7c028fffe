package pipe

import (
	"github.com/dudk/midiflow"
	"github.com/dudk/midiflow/metric"
)

// A pipe has two stall roles. The sink role is held when whatever the sink
// slot leads to doesn't accept messages, the through role when something
// reachable through the through output doesn't. Upstream, a pipe presents
// a single cause: the sink role's if it's held, the through role's
// otherwise.

// IsStalled reports whether any of the pipe's roles is held.
func (p *Pipe) IsStalled() bool {
	lock()
	defer unlock()
	return p.isStalled()
}

// Staller returns the cause the pipe presents upstream.
func (p *Pipe) Staller() Staller {
	lock()
	defer unlock()
	return p.effective()
}

// HandleStallers asks the causes holding the pipe to lift their stalls.
func (p *Pipe) HandleStallers() {
	resolve(p, func() []Staller {
		lock()
		defer unlock()
		return p.causes(nil)
	})
}

func (p *Pipe) isStalled() bool {
	return p.sinkStaller != nil || p.throughStaller != nil
}

func (p *Pipe) effective() Staller {
	if p.sinkStaller != nil {
		return p.sinkStaller
	}
	return p.throughStaller
}

// causes returns the distinct causes holding the pipe, except one.
func (p *Pipe) causes(except Staller) []Staller {
	return distinct(except, p.sinkStaller, p.throughStaller)
}

// stallDownstream holds the sink role because a producer reached through
// from wants the consumers to itself. Other producers of the same
// consumers are stalled upstream.
func (p *Pipe) stallDownstream(cause Staller, from sourceNode) {
	old := p.effective()
	if p.sinkStaller == nil {
		p.pushed = true
	}
	p.hold(&p.sinkStaller, cause, "sink")
	if from == p.source && p.throughOut != nil {
		p.throughOut.stallDownstream(cause, p)
	}
	if p.sink != nil {
		p.sink.stallDownstream(cause, p)
	}
	if p.throughIn != nil && from != p.throughIn {
		p.throughIn.stallUpstream(cause, p)
	}
	p.sync(old)
}

func (p *Pipe) unstallDownstream(cause Staller, from sourceNode) {
	old := p.effective()
	p.releaseSink(cause)
	if from == p.source && p.throughOut != nil {
		p.throughOut.unstallDownstream(cause, p)
	}
	if p.sink != nil {
		p.sink.unstallDownstream(cause, p)
	}
	if p.throughIn != nil && from != p.throughIn {
		p.throughIn.unstallUpstream(cause, p)
	}
	p.sync(old)
}

// stallUpstream records that the consumer at from is held.
func (p *Pipe) stallUpstream(cause Staller, from sinkNode) {
	old := p.effective()
	if from == p.sink {
		p.hold(&p.sinkStaller, cause, "sink")
		if p.throughIn != nil {
			p.throughIn.stallUpstream(cause, p)
		}
	} else {
		p.mustFeedThrough(from)
		p.hold(&p.throughStaller, cause, "through output")
	}
	p.sync(old)
}

func (p *Pipe) unstallUpstream(cause Staller, from sinkNode) {
	old := p.effective()
	if from == p.sink {
		p.releaseSink(cause)
		if p.throughIn != nil {
			p.throughIn.unstallUpstream(cause, p)
		}
	} else {
		p.mustFeedThrough(from)
		p.release(&p.throughStaller, cause, "through output")
	}
	p.sync(old)
}

// sync tells the source when the cause presented upstream changes. A stall
// lifted from one role re-presents the one still held in the other.
func (p *Pipe) sync(old Staller) {
	cur := p.effective()
	if cur == old || p.source == nil {
		return
	}
	if old != nil {
		p.source.unstallUpstream(old, p)
	}
	if cur != nil {
		p.source.stallUpstream(cur, p)
	}
}

// inherit holds the sink role if the pipe was connected to a held sink.
func (p *Pipe) inherit() {
	if c := p.sink.heldBy(); c != nil {
		p.stallUpstream(c, p.sink)
	}
}

// present tells a newly connected source about the pipe's state.
func (p *Pipe) present() {
	if c := p.effective(); c != nil {
		p.source.stallUpstream(c, p)
	}
}

func (p *Pipe) heldBy() Staller {
	return p.sinkStaller
}

func (p *Pipe) hold(role *Staller, cause Staller, name string) {
	switch *role {
	case nil:
		*role = cause
		metric.Stall(p)
		p.log.Debug(p, " ", name, " stalled by ", stallerName(cause))
	case cause:
	default:
		midiflow.Fail(midiflow.StallConflict, 0x6665, "%v: %s cannot be stalled by %s: stalled by %s",
			p, name, stallerName(cause), stallerName(*role))
	}
}

func (p *Pipe) release(role *Staller, cause Staller, name string) {
	switch *role {
	case nil:
	case cause:
		*role = nil
		p.log.Debug(p, " ", name, " unstalled by ", stallerName(cause))
	default:
		midiflow.Fail(midiflow.StallConflict, 0x6666, "%v: %s cannot be unstalled by %s: stalled by %s",
			p, name, stallerName(cause), stallerName(*role))
	}
}

func (p *Pipe) releaseSink(cause Staller) {
	p.release(&p.sinkStaller, cause, "sink")
	if p.sinkStaller == nil {
		p.pushed = false
	}
}

func (p *Pipe) mustFeedThrough(n sinkNode) {
	if p.throughOut == nil || n != sinkNode(p.throughOut) {
		midiflow.Fail(midiflow.GraphInvariant, 0x9147, "%v is not connected to %v", p, n)
	}
}
