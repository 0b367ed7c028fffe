package pipe

import (
	"fmt"
	"reflect"
)

// Staller is a party that holds up forward progress in a pipe graph.
// Stallers are compared by identity, so implementations must be comparable
// and are usually pointers.
type Staller interface {
	// HandleStall is called when the graph wants the stall lifted. The
	// staller should finish what it's busy with and unstall.
	HandleStall()
}

// EternalStall is a cause that is never lifted. Asking stallers to resolve
// it is fatal.
var EternalStall Staller = &eternal{name: "eternal stall"}

type eternal struct {
	name string
}

func (*eternal) HandleStall() {}

func (e *eternal) String() string {
	return e.name
}

// NewStaller returns a named staller that calls resolve when asked to
// lift its stall.
func NewStaller(name string, resolve func()) Staller {
	return &funcStaller{name: name, resolve: resolve}
}

type funcStaller struct {
	name    string
	resolve func()
}

func (s *funcStaller) HandleStall() {
	if s.resolve != nil {
		s.resolve()
	}
}

func (s *funcStaller) String() string {
	return s.name
}

// stallerName identifies s in diagnostics. Stallers without a name are
// told apart by type and address.
func stallerName(s Staller) string {
	if s == nil {
		return "nobody"
	}
	if v, ok := s.(fmt.Stringer); ok {
		if name := v.String(); name != "" {
			return name
		}
	}
	if reflect.ValueOf(s).Kind() == reflect.Ptr {
		return fmt.Sprintf("%T %p", s, s)
	}
	return fmt.Sprintf("%T %#v", s, s)
}
