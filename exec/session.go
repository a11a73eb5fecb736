package exec

// Session drives a runner over a byte stream delivered in chunks.
//
// Bytes of an open longest-match token are kept across writes, so actions
// that rewind the cursor to the token end, or read the token text, see the
// whole token even when it spans several chunks. Everything before the token
// start, or before the cursor when no token is open, is released after each
// write.
type Session struct {
	r      *Runner
	h      Host
	st     State
	buf    []byte
	base   int
	closed bool
}

// NewSession starts a session at the machine's start state.
func (r *Runner) NewSession(h Host) *Session {
	s := &Session{r: r, h: h}
	r.Init(&s.st)
	return s
}

// State returns the session's matcher state. Callers may set CS before the
// first write to start at an entry point.
func (s *Session) State() *State {
	return &s.st
}

// Write consumes chunk. It implements io.Writer; a matcher error is returned
// with n = 0 since the chunk is retained as a whole.
func (s *Session) Write(chunk []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	s.buf = append(s.buf, chunk...)
	if err := s.r.run(&s.st, s.buf, nil, s.base, false, s.h); err != nil {
		return 0, err
	}
	s.release()
	return len(chunk), nil
}

// Close signals end of input, running eof transitions and actions.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.r.run(&s.st, s.buf, nil, s.base, true, s.h)
	s.buf = nil
	s.base = s.st.P
	return err
}

// Buffered returns the number of bytes currently retained.
func (s *Session) Buffered() int {
	return len(s.buf)
}

// release drops the bytes no action can reach any more.
func (s *Session) release() {
	keep := s.st.P
	if s.st.TS >= 0 && s.st.TS < keep {
		keep = s.st.TS
	}
	drop := min(max(keep-s.base, 0), len(s.buf))
	if drop == 0 {
		return
	}
	n := copy(s.buf, s.buf[drop:])
	s.buf = s.buf[:n]
	s.base += drop
}
