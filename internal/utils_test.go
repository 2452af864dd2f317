package internal_test

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/frankli0324/go-asks/internal/model"
)

// sent is one request as the fake server saw it.
type sent struct {
	Raw  string
	Req  *http.Request
	Body []byte
	Conn *fakeConn
}

// handler answers the n-th request (counting from 0) with raw response
// bytes. An empty answer leaves the connection silent.
type handler func(n int, r *http.Request, body []byte) string

type fakeSession struct {
	mu     sync.Mutex
	handle handler
	// dry makes reads on a drained connection fail at once with io.EOF
	dry      bool
	conns    []*fakeConn
	sent     []sent
	released []*fakeConn
	retired  []*fakeConn
}

func newFakeSession(h handler) *fakeSession {
	return &fakeSession{handle: h}
}

func (s *fakeSession) Acquire(ctx context.Context, u *url.URL) (model.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &fakeConn{s: s, origin: u.Scheme + "://" + u.Host, active: true, expired: make(chan struct{})}
	s.conns = append(s.conns, c)
	return c, nil
}

func (s *fakeSession) Release(c model.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, c.(*fakeConn))
}

func (s *fakeSession) Retire(c model.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retired = append(s.retired, c.(*fakeConn))
}

func (s *fakeSession) requests() []sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sent(nil), s.sent...)
}

func (s *fakeSession) origins() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.conns {
		out = append(out, c.origin)
	}
	return out
}

type fakeConn struct {
	s      *fakeSession
	origin string
	out    bytes.Buffer
	in     bytes.Buffer

	mu      sync.Mutex
	active  bool
	expired chan struct{}
	once    sync.Once
}

func (c *fakeConn) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *fakeConn) SetActive(a bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = a
}

func (c *fakeConn) SetDeadline(t time.Time) error {
	if !t.IsZero() && t.Before(time.Now()) {
		c.once.Do(func() { close(c.expired) })
	}
	return nil
}

// Write collects request bytes. Every complete request releases one
// response into the read side.
func (c *fakeConn) Write(p []byte) (int, error) {
	c.out.Write(p)
	for {
		r := bytes.NewReader(c.out.Bytes())
		br := bufio.NewReader(r)
		req, err := http.ReadRequest(br)
		if err != nil {
			return len(p), nil
		}
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return len(p), nil
		}
		n := c.out.Len() - r.Len() - br.Buffered()
		raw := string(c.out.Next(n))

		c.s.mu.Lock()
		idx := len(c.s.sent)
		c.s.sent = append(c.s.sent, sent{Raw: raw, Req: req, Body: body, Conn: c})
		c.s.mu.Unlock()
		c.in.WriteString(c.s.handle(idx, req, body))
	}
}

func (c *fakeConn) Read(p []byte) (int, error) {
	if c.in.Len() == 0 {
		if c.s.dry {
			return 0, io.EOF
		}
		select {
		case <-c.expired:
			return 0, os.ErrDeadlineExceeded
		case <-time.After(2 * time.Second):
			return 0, io.EOF
		}
	}
	return c.in.Read(p)
}

// respond renders a response with a Content-Length framed body. headers
// alternate between names and values.
func respond(status int, body string, headers ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "HTTP/1.1 %d %s\r\n", status, http.StatusText(status))
	for i := 0; i+1 < len(headers); i += 2 {
		fmt.Fprintf(&sb, "%s: %s\r\n", headers[i], headers[i+1])
	}
	fmt.Fprintf(&sb, "Content-Length: %d\r\n\r\n%s", len(body), body)
	return sb.String()
}

func always(resp string) handler {
	return func(int, *http.Request, []byte) string { return resp }
}
