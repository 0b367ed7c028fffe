//go:build !linux

package port

// DefaultBaud is the MIDI 1.0 serial rate.
const DefaultBaud = 31250

// Device is a serial port or a raw MIDI device. Devices are only
// supported on Linux.
type Device struct{}

// OpenSerial returns ErrUnsupported.
func OpenSerial(name string, baud int) (*Device, error) {
	return nil, ErrUnsupported
}

// OpenRaw returns ErrUnsupported.
func OpenRaw(name string) (*Device, error) {
	return nil, ErrUnsupported
}

// Available implements ByteStream.
func (*Device) Available() int { return 0 }

// ReadByte implements ByteStream.
func (*Device) ReadByte() (byte, error) { return 0, ErrUnsupported }

// Write implements ByteStream.
func (*Device) Write(p []byte) (int, error) { return 0, ErrUnsupported }

// Flush implements ByteStream.
func (*Device) Flush() error { return ErrUnsupported }

// Close implements io.Closer.
func (*Device) Close() error { return nil }

func (*Device) String() string { return "unsupported" }
