package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/dudk/midiflow/log"
)

type routeCommand struct {
	in     io.Reader
	out    io.Writer
	config string
}

func (cmd *routeCommand) Name() string {
	return "route"
}

func (cmd *routeCommand) Help() string {
	return "Connect interfaces as described by a config file"
}

func (cmd *routeCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.config, "config", "", "YAML file with interfaces and routes (required)")
}

func (cmd *routeCommand) Run() error {
	if cmd.config == "" {
		return fmt.Errorf("Missing -config required flag")
	}
	c, err := loadConfig(cmd.config)
	if err != nil {
		return err
	}
	ctx, cancel := interruptible()
	defer cancel()
	return serve(ctx, c, opener{log: log.GetLogger(), stdin: cmd.in, stdout: cmd.out})
}

// serve builds the network described by c and runs it until ctx is done.
func serve(ctx context.Context, c *routeConfig, o opener) error {
	n, err := build(c, o)
	if err != nil {
		return err
	}
	o.log.Info(fmt.Sprintf("routing %d interfaces, %d routes", len(c.Interfaces), len(c.Routes)))
	runErr := n.run(ctx, c.Poll)
	if err := n.close(); err != nil && runErr == nil {
		return err
	}
	return runErr
}
