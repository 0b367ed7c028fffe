//go:build !tinygo

package midiflow

func halt(err *Error) {
	panic(err)
}
