package internal

import (
	"context"
	"net"
	"net/http/httptrace"
	"net/url"
	"time"

	"github.com/frankli0324/go-asks/internal/dialer"
	"github.com/frankli0324/go-asks/internal/model"
)

// connTrace reports the connection events of an exchange to the
// httptrace.ClientTrace of the caller's context. Dialing runs inside the
// session under the same context, so DNS and connect hooks are fired by
// net.Dialer itself and only pool hand-outs and writes are reported here.
type connTrace struct {
	t *httptrace.ClientTrace
}

func traceFrom(ctx context.Context) connTrace {
	return connTrace{httptrace.ContextClientTrace(ctx)}
}

// pooledConn is implemented by the default session's connections.
type pooledConn interface {
	Raw() net.Conn
	IdleSince() time.Time
}

func (ct connTrace) getConn(u *url.URL) {
	if ct.t != nil && ct.t.GetConn != nil {
		ct.t.GetConn(dialer.HostPort(u))
	}
}

func (ct connTrace) gotConn(c model.Conn) {
	if ct.t == nil || ct.t.GotConn == nil {
		return
	}
	var info httptrace.GotConnInfo
	if pc, ok := c.(pooledConn); ok {
		info.Conn = pc.Raw()
		if idle := pc.IdleSince(); !idle.IsZero() {
			info.Reused, info.WasIdle, info.IdleTime = true, true, time.Since(idle)
		}
	}
	ct.t.GotConn(info)
}

func (ct connTrace) wroteHeaders() {
	if ct.t != nil && ct.t.WroteHeaders != nil {
		ct.t.WroteHeaders()
	}
}

func (ct connTrace) wroteRequest(err error) {
	if ct.t != nil && ct.t.WroteRequest != nil {
		ct.t.WroteRequest(httptrace.WroteRequestInfo{Err: err})
	}
}

// acquire takes a connection for the current URL from the session.
func (ex *exchange) acquire(ctx context.Context) (model.Conn, error) {
	ex.trace.getConn(ex.u)
	conn, err := ex.c.Session.Acquire(ctx, ex.u)
	if err != nil {
		return nil, err
	}
	ex.trace.gotConn(conn)
	return conn, nil
}
