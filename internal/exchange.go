package internal

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"

	"github.com/frankli0324/go-asks/internal/charset"
	"github.com/frankli0324/go-asks/internal/model"
	"github.com/frankli0324/go-asks/internal/transport"
)

// exchange is the state of one logical call. It owns req, a private copy
// that is rewritten in place as redirects are followed.
type exchange struct {
	c      *Client
	req    *model.Request
	logger *slog.Logger
	enc    charset.Encoder

	u       *url.URL
	initial *url.URL // scheme and host of the first attempt, never changed

	mu          sync.Mutex // guards conn against the cancellation watcher
	conn        model.Conn
	interrupted bool

	cookies       map[string]string
	history       []*model.Response
	redirectsLeft int
	authAttempted bool
	streaming     bool
	attempts      int

	trace connTrace
}

func (c *Client) newExchange(req *model.Request) (*exchange, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, errors.New("asks: missing host in URL")
	}
	if _, ok := securityLevels[u.Scheme]; !ok {
		return nil, errors.New("asks: unsupported protocol scheme " + u.Scheme)
	}
	enc, err := charset.NewEncoder(req.Encoding)
	if err != nil {
		return nil, err
	}
	if req.Method == "" {
		req.Method = "GET"
	}
	ex := &exchange{
		c: c, req: req, logger: c.Logger, enc: enc,
		u: u, initial: &url.URL{Scheme: u.Scheme, Host: u.Host},
		redirectsLeft: model.DefaultMaxRedirects,
	}
	switch {
	case req.MaxRedirects != nil:
		ex.redirectsLeft = *req.MaxRedirects
	case c.MaxRedirects != nil:
		ex.redirectsLeft = *c.MaxRedirects
	}
	return ex, nil
}

func (c *Client) do(ctx context.Context, req *model.Request) (*model.Response, error) {
	ex, err := c.newExchange(req)
	if err != nil {
		return nil, wrapError(ctx, req.Method, req.URL, err)
	}

	cancel := context.CancelFunc(func() {})
	timeout := req.Timeout
	if timeout == 0 {
		timeout = c.Timeout
	}
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	ex.trace = traceFrom(ctx)
	stop := ex.watch(ctx)
	done := func() {
		stop()
		cancel()
		ex.mu.Lock()
		if ex.interrupted && ex.conn != nil {
			ex.conn.SetActive(false)
		}
		ex.mu.Unlock()
	}

	resp, err := ex.run(ctx)
	if err != nil {
		// wrap before cancel, or every failure would read as canceled
		werr := wrapError(ctx, ex.req.Method, ex.u.String(), err)
		done()
		ex.abandon(err)
		return nil, werr
	}
	if resp.Stream != nil {
		// the stream now owns the connection, the watcher and the deadline
		resp.Stream.(*streamBody).done = done
		return resp, nil
	}
	done()
	ex.release()
	return resp, nil
}

// run is the exchange loop. Each pass issues one attempt, then either
// returns the response or rewrites the request for an authentication
// retry or a redirect and goes around again.
func (ex *exchange) run(ctx context.Context) (*model.Response, error) {
	conn, err := ex.acquire(ctx)
	if err != nil {
		return nil, err
	}
	ex.setConn(ctx, conn)

	for {
		resp, err := ex.attempt(ctx)
		if err != nil {
			return nil, err
		}
		if ex.streaming {
			return ex.settle(resp), nil
		}

		if ex.wantsAuthRetry(resp) {
			ex.logger.Debug("asks: retrying with credentials", "url", ex.u.String())
			ex.history = append(ex.history, resp)
			if err := ex.prepareReissue(ctx, resp, nil); err != nil {
				return nil, err
			}
			continue
		}

		if ex.req.Method == "HEAD" || !resp.IsRedirect() {
			return ex.settle(resp), nil
		}
		next, err := ex.redirect(resp)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return ex.settle(resp), nil
		}
		if err := ex.prepareReissue(ctx, resp, next); err != nil {
			return nil, err
		}
	}
}

// attempt sends the current request once and reads the answer.
func (ex *exchange) attempt(ctx context.Context) (*model.Response, error) {
	ex.attempts++
	// cookies are scoped to the current URL, so the set is rebuilt for
	// every attempt
	ex.cookies = make(map[string]string, len(ex.req.Cookies))
	for k, v := range ex.req.Cookies {
		ex.cookies[k] = v
	}
	if ex.c.Jar != nil {
		for k, v := range ex.c.Jar.AdditionalCookies(ex.u) {
			ex.cookies[k] = v
		}
	}
	ex.req.URL = ex.u.String()

	target, err := ex.target()
	if err != nil {
		return nil, err
	}
	header, body, err := ex.assemble(ctx, target)
	if err != nil {
		return nil, err
	}
	ex.logger.Debug("asks: sending request",
		"method", ex.req.Method, "url", ex.req.URL, "attempt", ex.attempts)

	enc := transport.NewEncoder(ex.conn)
	if err := enc.WriteHead(ex.req.Method, target, header); err != nil {
		ex.trace.wroteRequest(err)
		return nil, err
	}
	ex.trace.wroteHeaders()
	err = enc.WriteBody(body)
	if err == nil {
		err = enc.WriteEnd()
	}
	ex.trace.wroteRequest(err)
	if err != nil {
		return nil, err
	}

	resp, err := ex.consume()
	if err != nil {
		return nil, err
	}
	resp.ParseCookies(ex.u.Host)
	if ex.c.Jar != nil {
		ex.c.Jar.Store(ex.u, resp)
	}
	resp.GuessEncoding()
	return resp, nil
}
