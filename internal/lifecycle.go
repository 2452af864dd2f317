package internal

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/frankli0324/go-asks/internal/model"
)

var aLongTimeAgo = time.Unix(1, 0)

type deadliner interface {
	SetDeadline(t time.Time) error
}

func connectionClose(h http.Header) bool {
	return httpguts.HeaderValuesContainsToken(h["Connection"], "close")
}

func sameOrigin(a, b *url.URL) bool {
	return a.Scheme == b.Scheme && a.Host == b.Host
}

func (ex *exchange) setConn(ctx context.Context, conn model.Conn) {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	ex.conn = conn
	if ex.interrupted {
		if d, ok := conn.(deadliner); ok {
			d.SetDeadline(aLongTimeAgo)
		}
	}
}

// watch interrupts blocked reads and writes on the current connection once
// ctx is done. The returned func stops watching; once it returns the
// watcher no longer touches the connection.
func (ex *exchange) watch(ctx context.Context) (stop func()) {
	done, exited := make(chan struct{}), make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			ex.mu.Lock()
			ex.interrupted = true
			if d, ok := ex.conn.(deadliner); ok {
				d.SetDeadline(aLongTimeAgo)
			}
			ex.mu.Unlock()
		case <-done:
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-exited
	}
}

// replaceConn retires the current connection and acquires a fresh one for
// the current URL.
func (ex *exchange) replaceConn(ctx context.Context) error {
	ex.mu.Lock()
	old := ex.conn
	ex.conn = nil
	ex.mu.Unlock()
	if old != nil {
		old.SetActive(false)
		ex.c.Session.Retire(old)
	}
	ex.logger.Debug("asks: replacing connection", "url", ex.u.String())
	conn, err := ex.acquire(ctx)
	if err != nil {
		return err
	}
	ex.setConn(ctx, conn)
	return nil
}

// prepareReissue moves the exchange to next, when set, and makes sure the
// connection can carry another request.
func (ex *exchange) prepareReissue(ctx context.Context, resp *model.Response, next *url.URL) error {
	replace := connectionClose(resp.Header) || !ex.conn.Active()
	if next != nil {
		if !sameOrigin(next, ex.u) {
			replace = true
		}
		ex.u = next
	}
	if replace {
		return ex.replaceConn(ctx)
	}
	return nil
}

// settle attaches the history to the final response. A connection that
// ended up somewhere other than where the exchange started, or that the
// server is closing, is not pooled again.
func (ex *exchange) settle(resp *model.Response) *model.Response {
	resp.History = append([]*model.Response(nil), ex.history...)
	if !sameOrigin(ex.u, ex.initial) || connectionClose(resp.Header) {
		ex.conn.SetActive(false)
	}
	return resp
}

func (ex *exchange) release() {
	ex.mu.Lock()
	conn := ex.conn
	ex.conn = nil
	if conn != nil && ex.interrupted {
		conn.SetActive(false)
	}
	ex.mu.Unlock()
	if conn != nil {
		ex.c.Session.Release(conn)
	}
}

// abandon hands the connection back after a failed exchange. Only a
// redirect budget failure leaves the connection in a known state.
func (ex *exchange) abandon(err error) {
	ex.mu.Lock()
	conn := ex.conn
	ex.mu.Unlock()
	if conn != nil && !errors.Is(err, ErrTooManyRedirects) {
		conn.SetActive(false)
	}
	ex.release()
}
