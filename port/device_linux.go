//go:build linux

package port

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultBaud is the MIDI 1.0 serial rate.
const DefaultBaud = 31250

// Device is a serial port or a raw MIDI character device opened in
// non-blocking mode.
type Device struct {
	name string

	mu     sync.Mutex
	fd     int
	raw    [256]byte
	buf    []byte // unread part of raw
	closed bool
}

// OpenSerial opens a serial port in raw 8N1 mode at the given rate. Rates
// that have no standard termios constant, like 31250, are set with BOTHER.
func OpenSerial(name string, baud int) (*Device, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	d, err := open(name)
	if err != nil {
		return nil, err
	}
	if err := d.configure(baud); err != nil {
		unix.Close(d.fd)
		return nil, fmt.Errorf("port: configure %s: %w", name, err)
	}
	return d, nil
}

// OpenRaw opens a raw MIDI device, such as /dev/snd/midiC1D0, that needs
// no line configuration.
func OpenRaw(name string) (*Device, error) {
	return open(name)
}

func open(name string) (*Device, error) {
	fd, err := unix.Open(name, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("port: open %s: %w", name, err)
	}
	return &Device{
		name: name,
		fd:   fd,
	}, nil
}

func (d *Device) configure(baud int) error {
	t, err := unix.IoctlGetTermios(d.fd, unix.TCGETS2)
	if err != nil {
		return err
	}
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CBAUD
	t.Cflag |= unix.CS8 | unix.CLOCAL | unix.CREAD | unix.BOTHER
	t.Ispeed = uint32(baud)
	t.Ospeed = uint32(baud)
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0
	return unix.IoctlSetTermios(d.fd, unix.TCSETS2, t)
}

// Available implements ByteStream.
func (d *Device) Available() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0
	}
	if len(d.buf) == 0 {
		d.fill()
	}
	return len(d.buf)
}

// fill reads whatever the driver has queued.
func (d *Device) fill() {
	n := len(d.raw)
	if pending, err := unix.IoctlGetInt(d.fd, unix.TIOCINQ); err == nil && pending > 0 && pending < n {
		n = pending
	}
	read, err := unix.Read(d.fd, d.raw[:n])
	if err != nil || read <= 0 {
		d.buf = d.raw[:0]
		return
	}
	d.buf = d.raw[:read]
}

// ReadByte implements ByteStream.
func (d *Device) ReadByte() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	if len(d.buf) == 0 {
		d.fill()
		if len(d.buf) == 0 {
			return 0, unix.EAGAIN
		}
	}
	b := d.buf[0]
	d.buf = d.buf[1:]
	return b, nil
}

// Write implements ByteStream. It retries until everything is written.
func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	written := 0
	for written < len(p) {
		n, err := unix.Write(d.fd, p[written:])
		if err == unix.EAGAIN || err == unix.EINTR {
			continue
		}
		if err != nil {
			return written, fmt.Errorf("port: write %s: %w", d.name, err)
		}
		written += n
	}
	return written, nil
}

// Flush implements ByteStream. Raw devices have nothing to drain.
func (d *Device) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	// tcdrain
	if err := unix.IoctlSetInt(d.fd, unix.TCSBRK, 1); err != nil && err != unix.ENOTTY {
		return fmt.Errorf("port: flush %s: %w", d.name, err)
	}
	return nil
}

// Close closes the device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return unix.Close(d.fd)
}

func (d *Device) String() string {
	return d.name
}
