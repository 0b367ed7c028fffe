package main

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	gomidi "gitlab.com/gomidi/midi/v2"
)

var defaultDevicePatterns = []string{
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
	"/dev/ttyAMA*",
	"/dev/snd/midiC*",
}

type listCommand struct {
	out      io.Writer
	patterns stringList
}

func (cmd *listCommand) Name() string {
	return "list"
}

func (cmd *listCommand) Help() string {
	return "Show the list of available MIDI devices and ports"
}

func (cmd *listCommand) Register(fs *flag.FlagSet) {
	fs.Var(&cmd.patterns, "glob", "semicolon separated device patterns to scan")
}

func (cmd *listCommand) Run() error {
	devices, err := scanDevices(cmd.patterns)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.out, "Devices:\n")
	for _, d := range devices {
		fmt.Fprintf(cmd.out, "\t%s\n", d)
	}
	fmt.Fprintf(cmd.out, "Input ports:\n")
	for _, p := range gomidi.GetInPorts() {
		fmt.Fprintf(cmd.out, "\t%s\n", p.String())
	}
	fmt.Fprintf(cmd.out, "Output ports:\n")
	for _, p := range gomidi.GetOutPorts() {
		fmt.Fprintf(cmd.out, "\t%s\n", p.String())
	}
	return nil
}

// scanDevices returns the sorted device files matching patterns, the
// default ones if none are given.
func scanDevices(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = defaultDevicePatterns
	}
	var devices []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", pattern, err)
		}
		devices = append(devices, matches...)
	}
	sort.Strings(devices)
	return devices, nil
}
