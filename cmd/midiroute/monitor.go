package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/dudk/midiflow/log"
)

type monitorCommand struct {
	in     io.Reader
	out    io.Writer
	kind   string
	device string
	baud   int
	cable  uint
	send   bool
}

func (cmd *monitorCommand) Name() string {
	return "monitor"
}

func (cmd *monitorCommand) Help() string {
	return "Print the messages a device sends"
}

func (cmd *monitorCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.kind, "kind", kindSerial, "device kind: serial or raw")
	fs.StringVar(&cmd.device, "device", "", "device file to read (required)")
	fs.IntVar(&cmd.baud, "baud", 0, "serial baud rate, 31250 if not set")
	fs.UintVar(&cmd.cable, "cable", 0, "cable messages are tagged with")
	fs.BoolVar(&cmd.send, "send", false, "send hex typed on standard input to the device")
}

func (cmd *monitorCommand) Run() error {
	c, err := cmd.routes()
	if err != nil {
		return err
	}
	ctx, cancel := interruptible()
	defer cancel()
	return serve(ctx, c, opener{log: log.GetLogger(), stdin: cmd.in, stdout: cmd.out})
}

// routes describes the device routed to a debug interface on standard
// output.
func (cmd *monitorCommand) routes() (*routeConfig, error) {
	if cmd.device == "" {
		return nil, fmt.Errorf("Missing -device required flag")
	}
	c := &routeConfig{
		Poll: defaultPoll,
		Interfaces: []interfaceConfig{
			{
				Name:   cmd.device,
				Kind:   cmd.kind,
				Device: cmd.device,
				Baud:   cmd.baud,
				Cable:  uint8(cmd.cable),
			},
			{
				Name: "monitor",
				Kind: kindDebug,
			},
		},
		Routes: []routeRule{
			{From: cmd.device, To: "monitor", Both: cmd.send},
		},
	}
	if cmd.cable > 15 {
		return nil, fmt.Errorf("cable %d out of range", cmd.cable)
	}
	if cmd.kind != kindSerial && cmd.kind != kindRaw {
		return nil, fmt.Errorf("unknown kind %q", cmd.kind)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}
