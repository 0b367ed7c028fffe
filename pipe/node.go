package pipe

import (
	"fmt"

	"github.com/rs/xid"

	"github.com/dudk/midiflow"
)

// sinkNode is what a pipe's sink slot holds: a terminal Sink or another
// pipe that the pipe feeds through.
type sinkNode interface {
	fmt.Stringer
	stallDownstream(cause Staller, from sourceNode)
	unstallDownstream(cause Staller, from sourceNode)
	finalSink() *Sink
	replaceSourcePipe(old, next *Pipe)
	// heldBy returns the cause that holds the node, nil if it's free.
	heldBy() Staller
}

// sourceNode is what a pipe's source slot holds: a terminal Source or
// another pipe that feeds it through.
type sourceNode interface {
	fmt.Stringer
	stallUpstream(cause Staller, from sinkNode)
	unstallUpstream(cause Staller, from sinkNode)
	initialSource() *Source
	replaceSinkPipe(old, next *Pipe)
}

// newUID returns new unique id value.
func newUID() string {
	return xid.New().String()
}

// endpoint is the part shared by terminal sources and sinks.
type endpoint struct {
	uid   string
	name  string
	owner Staller
}

// EndpointOption configures a Source or a Sink.
type EndpointOption func(*endpoint)

// Named sets the name used in diagnostics.
func Named(name string) EndpointOption {
	return func(e *endpoint) {
		e.name = name
	}
}

// OwnedBy sets the staller that acts on behalf of the endpoint. A source
// keeps delivering while it is stalled by its owner.
func OwnedBy(s Staller) EndpointOption {
	return func(e *endpoint) {
		e.owner = s
	}
}

func newEndpoint(kind string, options []EndpointOption) endpoint {
	e := endpoint{
		uid:  newUID(),
		name: kind,
	}
	for _, option := range options {
		option(&e)
	}
	return e
}

func (e *endpoint) String() string {
	return fmt.Sprintf("%s %s", e.name, e.uid)
}

// Owner returns the staller that acts on behalf of the endpoint.
func (e *endpoint) Owner() Staller {
	return e.owner
}

// resolve gives each staller returned by stallers a chance to lift its
// stall, at most StallRetries rounds.
func resolve(who fmt.Stringer, stallers func() []Staller) {
	for i := 0; i < StallRetries; i++ {
		causes := stallers()
		if len(causes) == 0 {
			return
		}
		for _, cause := range causes {
			if cause == EternalStall {
				midiflow.Fail(midiflow.EternalStall, 0x7777, "%v cannot make progress: %s", who, stallerName(cause))
			}
			cause.HandleStall()
		}
	}
}

// StallRetries is the number of rounds HandleStallers gives stallers to
// lift their stalls.
const StallRetries = 3

// distinct returns non-nil causes without duplicates, skipping except.
func distinct(except Staller, causes ...Staller) []Staller {
	result := make([]Staller, 0, len(causes))
next:
	for _, c := range causes {
		if c == nil || c == except {
			continue
		}
		for _, r := range result {
			if r == c {
				continue next
			}
		}
		result = append(result, c)
	}
	return result
}
