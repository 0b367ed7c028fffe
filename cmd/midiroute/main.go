package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

type config struct {
	args   []string
	stdin  io.Reader
	stdout io.Writer
}

type command interface {
	Name() string
	Help() string
	Run() error
	Register(*flag.FlagSet)
}

func (config *config) run() int {
	cmdName, args := parseArgs(config.args)
	if cmdName == "" {
		printUsage(config.stdout)
		return errorExitCode
	}

	for _, cmd := range commands(config) {
		if cmd.Name() == cmdName {
			flags := flag.NewFlagSet(cmdName, flag.ContinueOnError)
			flags.SetOutput(config.stdout)
			cmd.Register(flags)
			if err := flags.Parse(args); err != nil {
				return errorExitCode
			}
			if err := cmd.Run(); err != nil {
				fmt.Fprintf(config.stdout, "Command failed: %v\n", err)
				return errorExitCode
			}
			return successExitCode
		}
	}

	printUsage(config.stdout)
	return errorExitCode
}

var (
	successExitCode = 0
	errorExitCode   = 1
)

func commands(c *config) []command {
	return []command{
		&listCommand{out: c.stdout},
		&routeCommand{in: c.stdin, out: c.stdout},
		&monitorCommand{in: c.stdin, out: c.stdout},
	}
}

func main() {
	c := config{
		args:   os.Args,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	os.Exit(c.run())
}

func parseArgs(args []string) (string, []string) {
	if len(args) < 2 {
		return "", nil
	}
	return args[1], args[2:]
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "midiroute connects MIDI interfaces through pipes")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: midiroute <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands(&config{}) {
		fmt.Fprintf(w, "\t%s\t%s\n", cmd.Name(), cmd.Help())
	}
}

// stringList is a semicolon separated flag value.
type stringList []string

func (l *stringList) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ";")
}

func (l *stringList) Set(value string) error {
	for _, s := range strings.Split(value, ";") {
		if s = strings.TrimSpace(s); s != "" {
			*l = append(*l, s)
		}
	}
	return nil
}
