package model

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultMaxRedirects applies when neither the request nor the client
// sets a redirect budget.
const DefaultMaxRedirects = 20

// RedirectLimit returns a redirect budget for Request.MaxRedirects or
// Client.MaxRedirects.
func RedirectLimit(n int) *int { return &n }

// Callback receives every chunk of a response body as it arrives. A non-nil
// error aborts the exchange.
type Callback func(chunk []byte) error

// Request describes one logical call. The client works on a private copy,
// so a Request may be reused after the call returns.
type Request struct {
	Method string
	URL    string

	// Params is appended to the query of URL: a mapping (see form.Of) or
	// a literal string.
	Params interface{}

	// Body sources, honored in this order: Files and Data together are
	// sent as multipart, then Files alone, then Data (urlencoded when it is
	// a mapping, verbatim otherwise), then JSON.
	Data  interface{}
	Files interface{}
	JSON  interface{}

	Header  http.Header
	Cookies map[string]string

	Auth Auth
	// AuthOffDomain permits redirects that carry credentials to another
	// base domain or to a weaker scheme.
	AuthOffDomain bool

	Callback Callback
	Stream   bool

	// Timeout bounds the whole call, redirects and retries included.
	Timeout time.Duration
	// MaxRedirects is the redirect budget: N follows N+1 redirects and
	// fails on the next, a negative value fails on the first. nil defers to
	// the client, then DefaultMaxRedirects.
	MaxRedirects *int
	// Encoding names the character set text is sent in, "utf-8" if empty.
	Encoding string
}

func (r *Request) Clone() *Request {
	c := *r
	c.Header = r.Header.Clone()
	if r.Cookies != nil {
		c.Cookies = make(map[string]string, len(r.Cookies))
		for k, v := range r.Cookies {
			c.Cookies[k] = v
		}
	}
	return &c
}

type AuthKind int

const (
	// PreResponse strategies compute headers from the request alone.
	PreResponse AuthKind = iota
	// PostResponse strategies need the 401 answer to a previous attempt.
	PostResponse
)

// Auth supplies authentication headers. resp is nil for PreResponse
// strategies and the challenging 401 response for PostResponse ones. The
// URL of req is the one on the wire, Params included.
type Auth interface {
	Kind() AuthKind
	Authorize(ctx context.Context, resp *Response, req *Request) (http.Header, error)
}

// Conn is a connection handed out by a Session. Clearing Active tells the
// session not to pool the connection again.
type Conn interface {
	io.ReadWriter
	Active() bool
	SetActive(bool)
}

// Session supplies and reclaims connections.
type Session interface {
	// Acquire returns a connection to the origin of u.
	Acquire(ctx context.Context, u *url.URL) (Conn, error)
	// Release hands a connection back; inactive connections are closed.
	Release(c Conn)
	// Retire closes a connection that must never be reused.
	Retire(c Conn)
}

// CookieJar persists cookies across calls.
type CookieJar interface {
	AdditionalCookies(u *url.URL) map[string]string
	Store(u *url.URL, resp *Response)
}
