//go:build tinygo

package midiflow

// halt blocks the calling task forever so the device stays in the state
// that was logged.
func halt(err *Error) {
	select {}
}
