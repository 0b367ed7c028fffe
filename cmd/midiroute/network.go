package main

import (
	"fmt"
	"io"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/dudk/midiflow"
	"github.com/dudk/midiflow/bridge"
	"github.com/dudk/midiflow/log"
	"github.com/dudk/midiflow/pipe"
	"github.com/dudk/midiflow/port"
	"github.com/dudk/midiflow/transport"
)

// endpoint is an opened interface. update is nil for endpoints that are
// fed by their driver instead of being polled.
type endpoint struct {
	name   string
	duplex pipe.Duplex
	update func() error
	close  func() error
}

// opener opens configured interfaces.
type opener struct {
	log    log.Logger
	stdin  io.Reader
	stdout io.Writer
}

func (o opener) open(c interfaceConfig) (*endpoint, error) {
	if c.Kind == kindGomidi {
		return o.openGomidi(c)
	}
	stream, closeStream, err := o.stream(c)
	if err != nil {
		return nil, fmt.Errorf("interface %s: %w", c.Name, err)
	}
	options := []transport.Option{
		transport.WithName(c.Name),
		transport.WithLogger(o.log),
		transport.WithCable(midiflow.Cable(c.Cable)),
		transport.WithRunningStatus(c.RunningStatus),
	}
	var i *transport.Interface
	if c.Kind == kindDebug {
		i, err = transport.NewDebug(stream, options...)
	} else {
		i, err = transport.NewSerial(stream, options...)
	}
	if err == nil {
		err = i.Begin()
	}
	if err != nil {
		closeStream()
		return nil, fmt.Errorf("interface %s: %w", c.Name, err)
	}
	if c.Default {
		if err := transport.Register(i); err != nil {
			i.Close()
			closeStream()
			return nil, fmt.Errorf("interface %s: %w", c.Name, err)
		}
	}
	return &endpoint{
		name:   c.Name,
		duplex: i,
		update: i.Update,
		close: func() error {
			var errs closeErrors
			if err := i.Close(); err != nil {
				errs = append(errs, err)
			}
			if err := closeStream(); err != nil {
				errs = append(errs, err)
			}
			return errs.ret()
		},
	}, nil
}

func (o opener) stream(c interfaceConfig) (port.ByteStream, func() error, error) {
	switch {
	case c.Kind == kindSerial:
		baud := c.Baud
		if baud == 0 {
			baud = port.DefaultBaud
		}
		d, err := port.OpenSerial(c.Device, baud)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	case c.Kind == kindDebug && c.Device == "":
		return port.NewStream(o.stdin, o.stdout), func() error { return nil }, nil
	}
	d, err := port.OpenRaw(c.Device)
	if err != nil {
		return nil, nil, err
	}
	return d, d.Close, nil
}

func (o opener) openGomidi(c interfaceConfig) (*endpoint, error) {
	inPort, err := gomidi.FindInPort(c.Port)
	if err != nil {
		return nil, fmt.Errorf("interface %s: can't find input: %w", c.Name, err)
	}
	outPort, err := gomidi.FindOutPort(c.Port)
	if err != nil {
		return nil, fmt.Errorf("interface %s: can't find output: %w", c.Name, err)
	}
	options := []bridge.Option{
		bridge.WithName(c.Name),
		bridge.WithLogger(o.log),
		bridge.WithCable(midiflow.Cable(c.Cable)),
	}
	in, err := bridge.ListenTo(inPort, options...)
	if err != nil {
		return nil, fmt.Errorf("interface %s: %w", c.Name, err)
	}
	out, err := bridge.SendTo(outPort, options...)
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("interface %s: %w", c.Name, err)
	}
	p := bridge.Port{In: in, Out: out}
	return &endpoint{
		name:   c.Name,
		duplex: p,
		close:  p.Close,
	}, nil
}

// network is a set of endpoints and the pipes connecting them.
type network struct {
	endpoints []*endpoint
	links     []func()
}

// build opens every configured interface and connects the routes. Nothing
// stays open if it fails.
func build(c *routeConfig, o opener) (*network, error) {
	n := &network{}
	byName := map[string]*endpoint{}
	for _, ic := range c.Interfaces {
		e, err := o.open(ic)
		if err != nil {
			n.close()
			return nil, err
		}
		n.endpoints = append(n.endpoints, e)
		byName[e.name] = e
	}
	for _, r := range c.Routes {
		if err := n.route(r, byName[r.From], byName[r.To], o.log); err != nil {
			n.close()
			return nil, fmt.Errorf("route %s: %w", r, err)
		}
	}
	return n, nil
}

func (n *network) route(r routeRule, from, to *endpoint, l log.Logger) error {
	options := []pipe.Option{
		pipe.WithName(r.String()),
		pipe.WithLogger(l),
		pipe.WithMapper(r.mapper()),
	}
	if r.Both {
		bp, err := pipe.NewBidirectional(options...)
		if err != nil {
			return err
		}
		if err := midiflow.Catch(func() { bp.Connect(from.duplex, to.duplex) }); err != nil {
			return err
		}
		n.links = append(n.links, bp.Disconnect)
		return nil
	}
	p, err := pipe.New(options...)
	if err != nil {
		return err
	}
	if err := midiflow.Catch(func() { pipe.Route(from.duplex.Source(), p, to.duplex.Sink()) }); err != nil {
		return err
	}
	n.links = append(n.links, p.Disconnect)
	return nil
}

// close disconnects every route, then closes every endpoint.
func (n *network) close() error {
	// endpoints first, so no listener sources into a link being removed
	var errs closeErrors
	for _, e := range n.endpoints {
		if err := e.close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", e.name, err))
		}
	}
	n.endpoints = nil
	for _, disconnect := range n.links {
		disconnect()
	}
	n.links = nil
	return errs.ret()
}
