// Package log holds the logging surface shared by pipes, transports and
// bridges. Components take a Logger and default to a logrus logger.
package log

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// DebugEnv names the variable that turns on debug output.
const DebugEnv = "MIDIFLOW_DEBUG"

var debug = enabled(os.Getenv(DebugEnv))

// Logger is what pipes, transports and bridges log through. Both
// *logrus.Logger and Silent satisfy it.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})
}

// enabled parses a boolean environment value, anything unparsable is off.
func enabled(v string) bool {
	on, err := strconv.ParseBool(v)
	return err == nil && on
}

// GetLogger returns a logrus logger for a midiflow component. It logs at
// Debug level when MIDIFLOW_DEBUG is true and at Info level otherwise.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Silent returns a logger that discards everything.
func Silent() Logger {
	return silent{}
}

type silent struct{}

func (silent) Debug(...interface{}) {}
func (silent) Info(...interface{})  {}
func (silent) Warn(...interface{})  {}
func (silent) Error(...interface{}) {}
