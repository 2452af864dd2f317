package internal

import (
	"io"
	"sync"

	"github.com/frankli0324/go-asks/internal/model"
)

// streamBody is the single-pass body of a streamed response. It holds the
// connection until the message ends or the body is closed.
type streamBody struct {
	body    io.Reader
	raw     *eventReader
	conn    model.Conn
	session model.Session
	// done stops the exchange's watcher and timeout
	done func()

	mu     sync.Mutex
	once   sync.Once
	closed bool
	err    error // io.EOF once the message ended, else the read failure
}

func (s *streamBody) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStreamConsumed
	}
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.body.Read(p)
	if err == io.EOF {
		err = s.raw.drain()
		if err == nil {
			err = io.EOF
		}
	}
	if err != nil {
		// the connection is handed back here, later reads must not touch it
		if err != io.EOF {
			s.conn.SetActive(false)
		}
		s.err = err
		s.finish()
	}
	return n, err
}

// Close hands the connection back. A body closed before its end leaves
// unread bytes on the wire, so the connection is not reused.
func (s *streamBody) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.conn.SetActive(false)
	}
	s.closed = true
	s.finish()
	return nil
}

func (s *streamBody) finish() {
	s.once.Do(func() {
		if s.done != nil {
			s.done()
		}
		s.session.Release(s.conn)
	})
}
