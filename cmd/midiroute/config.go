package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/dudk/midiflow"
	"github.com/dudk/midiflow/pipe"
)

// Interface kinds.
const (
	kindSerial = "serial"
	kindRaw    = "raw"
	kindDebug  = "debug"
	kindGomidi = "gomidi"
)

const defaultPoll = time.Millisecond

// routeConfig describes the interfaces to open and the routes between them.
type routeConfig struct {
	Poll       time.Duration     `yaml:"poll"`
	Interfaces []interfaceConfig `yaml:"interfaces"`
	Routes     []routeRule       `yaml:"routes"`
}

type interfaceConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	// Device is the device file of serial, raw and debug interfaces. A
	// debug interface without one uses standard input and output.
	Device string `yaml:"device"`
	// Port is the gomidi port name to look up.
	Port          string `yaml:"port"`
	Baud          int    `yaml:"baud"`
	Cable         uint8  `yaml:"cable"`
	RunningStatus bool   `yaml:"runningStatus"`
	Default       bool   `yaml:"default"`
}

type routeRule struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	// Channels lets only the listed one-based channels through.
	Channels []int `yaml:"channels"`
	// Remap moves one-based channels, applied after Channels.
	Remap        map[int]int `yaml:"remap"`
	Cable        *uint8      `yaml:"cable"`
	DropRealTime bool        `yaml:"dropRealTime"`
	// Both also routes To back to From with the same mapping.
	Both bool `yaml:"both"`
}

var errNoInterfaces = errors.New("no interfaces configured")

func loadConfig(path string) (*routeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*routeConfig, error) {
	var c routeConfig
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if c.Poll <= 0 {
		c.Poll = defaultPoll
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *routeConfig) validate() error {
	if len(c.Interfaces) == 0 {
		return errNoInterfaces
	}
	names := map[string]bool{}
	defaults := 0
	for _, i := range c.Interfaces {
		if i.Name == "" {
			return fmt.Errorf("interface without name")
		}
		if names[i.Name] {
			return fmt.Errorf("interface %s: duplicate name", i.Name)
		}
		names[i.Name] = true
		switch i.Kind {
		case kindSerial, kindRaw:
			if i.Device == "" {
				return fmt.Errorf("interface %s: %s needs a device", i.Name, i.Kind)
			}
		case kindDebug:
		case kindGomidi:
			if i.Port == "" {
				return fmt.Errorf("interface %s: gomidi needs a port", i.Name)
			}
			if i.Default {
				return fmt.Errorf("interface %s: gomidi ports can't be the default interface", i.Name)
			}
		default:
			return fmt.Errorf("interface %s: unknown kind %q", i.Name, i.Kind)
		}
		if i.Cable > 15 {
			return fmt.Errorf("interface %s: cable %d out of range", i.Name, i.Cable)
		}
		if i.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("%d default interfaces configured", defaults)
	}
	for _, r := range c.Routes {
		if !names[r.From] {
			return fmt.Errorf("route %s: unknown interface %q", r, r.From)
		}
		if !names[r.To] {
			return fmt.Errorf("route %s: unknown interface %q", r, r.To)
		}
		for _, ch := range r.Channels {
			if !validChannel(ch) {
				return fmt.Errorf("route %s: channel %d out of range", r, ch)
			}
		}
		for from, to := range r.Remap {
			if !validChannel(from) || !validChannel(to) {
				return fmt.Errorf("route %s: remap %d to %d out of range", r, from, to)
			}
		}
		if r.Cable != nil && *r.Cable > 15 {
			return fmt.Errorf("route %s: cable %d out of range", r, *r.Cable)
		}
	}
	return nil
}

func validChannel(ch int) bool {
	return ch >= 1 && ch <= 16
}

func (r routeRule) String() string {
	if r.Both {
		return r.From + "<->" + r.To
	}
	return r.From + "->" + r.To
}

// mapper builds the route's mapping chain: channel filter, channel remap,
// cable remap and real-time filter, in that order.
func (r routeRule) mapper() pipe.Mapper {
	var ms []pipe.Mapper
	if len(r.Channels) > 0 {
		channels := make([]midiflow.Channel, 0, len(r.Channels))
		for _, ch := range r.Channels {
			channels = append(channels, midiflow.Channel(ch-1))
		}
		ms = append(ms, pipe.ChannelFilter(channels...))
	}
	if len(r.Remap) > 0 {
		ms = append(ms, channelTable(r.Remap))
	}
	if r.Cable != nil {
		ms = append(ms, pipe.CableRemap(midiflow.Cable(*r.Cable)))
	}
	if r.DropRealTime {
		ms = append(ms, pipe.DropRealTime)
	}
	return pipe.Mappers(ms...)
}

// channelTable remaps every channel in one step, so swaps like 1->2 and
// 2->1 don't cancel out.
func channelTable(remap map[int]int) pipe.Mapper {
	var table [16]midiflow.Channel
	for i := range table {
		table[i] = midiflow.Channel(i)
	}
	for from, to := range remap {
		table[from-1] = midiflow.Channel(to - 1)
	}
	return pipe.MapperFunc(func(msg midiflow.Message, forward func(midiflow.Message)) {
		if m, ok := msg.(midiflow.ChannelMessage); ok {
			m.Channel = table[m.Channel&0x0F]
			msg = m
		}
		forward(msg)
	})
}
