package internal

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/frankli0324/go-asks/internal/model"
	"github.com/frankli0324/go-asks/utils/netpool"
)

const Version = "0.1.0"

var DefaultUserAgent = "go-asks/" + Version

type Handler = func(ctx context.Context, req *model.Request) (*model.Response, error)
type Middleware func(next Handler) Handler

// Client drives requests over connections from Session. Its fields must not
// change once the client is in use; a Client is safe for concurrent calls.
type Client struct {
	// Session supplies connections. A nil Session is replaced by a
	// *netpool.Session dialing with the default dialer.
	Session model.Session
	// Jar, when set, persists cookies between calls.
	Jar model.CookieJar
	// Header is sent with every request, below the request's own headers.
	Header    http.Header
	UserAgent string
	// Timeout and MaxRedirects apply to requests that do not set their own.
	Timeout      time.Duration
	MaxRedirects *int
	Logger       *slog.Logger

	middlewares []Middleware
	once        sync.Once
}

// Use appends mw to the end of the chain. The last "Use"d mw executes first
func (c *Client) Use(mws ...Middleware) {
	c.middlewares = append(c.middlewares, mws...)
}

func (c *Client) init() {
	c.once.Do(func() {
		if c.Logger == nil {
			c.Logger = slog.New(slog.DiscardHandler)
		}
		if c.Session == nil {
			c.Session = &netpool.Session{Logger: c.Logger}
		}
		if c.UserAgent == "" {
			c.UserAgent = DefaultUserAgent
		}
	})
}

// CtxDo performs req and follows its redirects and authentication retry.
// req itself is never modified.
func (c *Client) CtxDo(ctx context.Context, req *model.Request) (*model.Response, error) {
	c.init()
	next := c.do
	for _, mw := range c.middlewares {
		next = mw(next)
	}
	return next(ctx, req.Clone())
}

func (c *Client) Do(req *model.Request) (*model.Response, error) {
	return c.CtxDo(context.Background(), req)
}
