package port

import (
	"bufio"
	"io"
	"sync"
)

// Stream adapts a blocking reader and a writer to ByteStream. A goroutine
// pulls from the reader until it fails, so Available never blocks. Close
// the reader to stop it.
type Stream struct {
	w *bufio.Writer

	mu   sync.Mutex
	buf  []byte
	err  error
	done chan struct{}
}

// NewStream starts reading from r. Writes to w are buffered until Flush.
func NewStream(r io.Reader, w io.Writer) *Stream {
	s := &Stream{
		w:    bufio.NewWriter(w),
		done: make(chan struct{}),
	}
	go s.pull(r)
	return s
}

func (s *Stream) pull(r io.Reader) {
	defer close(s.done)
	chunk := make([]byte, 256)
	for {
		n, err := r.Read(chunk)
		s.mu.Lock()
		s.buf = append(s.buf, chunk[:n]...)
		if err != nil {
			s.err = err
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}

// Available implements ByteStream.
func (s *Stream) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// ReadByte implements ByteStream. Once buffered bytes are consumed, it
// returns the error that stopped the reader.
func (s *Stream) ReadByte() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		return 0, io.EOF
	}
	b := s.buf[0]
	s.buf = s.buf[1:]
	return b, nil
}

// Write implements ByteStream.
func (s *Stream) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

// Flush implements ByteStream.
func (s *Stream) Flush() error {
	return s.w.Flush()
}

// Err returns the error that stopped the reader, nil while it's running.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed when the reader stops.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}
