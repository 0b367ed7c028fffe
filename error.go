package midiflow

import (
	"errors"
	"fmt"

	"github.com/dudk/midiflow/log"
)

// ErrorKind classifies fatal conditions.
type ErrorKind int

// Fatal error kinds.
const (
	// GraphInvariant means the pipe graph was wired inconsistently.
	GraphInvariant ErrorKind = iota + 1
	// StallConflict means a pipe role was stalled or unstalled by a cause
	// other than the one currently holding it.
	StallConflict
	// EternalStall means stallers were asked to resolve an eternal stall.
	EternalStall
	// BufferExhausted means a fixed capacity pool ran out.
	BufferExhausted
)

func (k ErrorKind) String() string {
	switch k {
	case GraphInvariant:
		return "graph invariant violation"
	case StallConflict:
		return "stall conflict"
	case EternalStall:
		return "eternal stall"
	case BufferExhausted:
		return "buffer exhausted"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Sentinel errors matched by *Error with errors.Is.
var (
	ErrGraphInvariant  = errors.New("graph invariant violation")
	ErrStallConflict   = errors.New("stall conflict")
	ErrEternalStall    = errors.New("eternal stall")
	ErrBufferExhausted = errors.New("buffer exhausted")
)

var sentinels = map[ErrorKind]error{
	GraphInvariant:  ErrGraphInvariant,
	StallConflict:   ErrStallConflict,
	EternalStall:    ErrEternalStall,
	BufferExhausted: ErrBufferExhausted,
}

// Error is a fatal condition raised by Fail.
type Error struct {
	Kind    ErrorKind
	Code    uint16
	Context string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v (0x%04X): %s", e.Kind, e.Code, e.Context)
}

// Is checks if error kind matches provided sentinel error.
func (e *Error) Is(err error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == err
}

// Fail reports a fatal condition. It never returns: hosted builds panic
// with an *Error that Catch can recover, embedded builds log it and halt.
func Fail(kind ErrorKind, code uint16, format string, args ...interface{}) {
	err := &Error{
		Kind:    kind,
		Code:    code,
		Context: fmt.Sprintf(format, args...),
	}
	logger.Error(err)
	halt(err)
}

var logger log.Logger = log.GetLogger()

// Catch runs fn and returns the *Error it failed with, if any. Panics that
// are not fatal conditions are propagated.
func Catch(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		e, ok := r.(*Error)
		if !ok {
			panic(r)
		}
		err = e
	}()
	fn()
	return nil
}
