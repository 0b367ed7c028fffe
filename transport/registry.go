package transport

import (
	"errors"
	"sync"
)

var (
	// ErrAlreadyRegistered is returned when a default interface is
	// registered while another one is.
	ErrAlreadyRegistered = errors.New("a default interface is already registered")
	// ErrNoDefault is returned when the default interface is needed but
	// none is registered.
	ErrNoDefault = errors.New("no default interface registered")
)

// Registry holds the interface used by code that doesn't build a pipe
// graph of its own.
type Registry struct {
	mu  sync.Mutex
	def *Interface
}

// Register makes i the default interface.
func (r *Registry) Register(i *Interface) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.def != nil {
		return ErrAlreadyRegistered
	}
	r.def = i
	return nil
}

// Unregister clears the default interface if it's i.
func (r *Registry) Unregister(i *Interface) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.def == nil || r.def != i {
		return ErrNoDefault
	}
	r.def = nil
	return nil
}

// Default returns the default interface.
func (r *Registry) Default() (*Interface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.def == nil {
		return nil, ErrNoDefault
	}
	return r.def, nil
}

var registry Registry

// Register makes i the process-wide default interface.
func Register(i *Interface) error {
	return registry.Register(i)
}

// Unregister clears the process-wide default interface if it's i.
func Unregister(i *Interface) error {
	return registry.Unregister(i)
}

// Default returns the process-wide default interface.
func Default() (*Interface, error) {
	return registry.Default()
}
