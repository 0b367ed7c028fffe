package parser

// sysExBuffer assembles a SysEx message in fixed capacity storage.
type sysExBuffer struct {
	buf       []byte
	receiving bool
}

func newSysExBuffer(size int) sysExBuffer {
	return sysExBuffer{buf: make([]byte, 0, size)}
}

// start discards any message in progress and begins a new one.
func (s *sysExBuffer) start() {
	s.buf = s.buf[:0]
	s.receiving = true
}

// add appends b. Bytes that don't fit are dropped.
func (s *sysExBuffer) add(b byte) {
	if len(s.buf) < cap(s.buf) {
		s.buf = append(s.buf, b)
	}
}

// end finishes the message and returns a view of it.
func (s *sysExBuffer) end() []byte {
	s.receiving = false
	return s.buf
}

// abandon drops the message in progress.
func (s *sysExBuffer) abandon() {
	s.buf = s.buf[:0]
	s.receiving = false
}
