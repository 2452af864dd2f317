package dialer

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
)

// Dialer opens the transport connection a pooled Conn wraps.
type Dialer interface {
	// Dial opens a connection to the origin of u, with TLS already
	// negotiated for https.
	Dial(ctx context.Context, u *url.URL) (net.Conn, error)
}

// CoreDialer dials TCP and TLS directly or through an HTTP CONNECT proxy.
// The zero value dials with the system resolver and no proxy.
type CoreDialer struct {
	ResolveConfig *ResolveConfig
	TLSConfig     *tls.Config

	// GetProxy returns the proxy URL for a request, or "" to dial directly.
	GetProxy    func(ctx context.Context, u *url.URL) (string, error)
	ProxyConfig *ProxyConfig
}

func (d *CoreDialer) Clone() *CoreDialer {
	return &CoreDialer{
		ResolveConfig: d.ResolveConfig.Clone(),
		TLSConfig:     d.TLSConfig.Clone(),
		GetProxy:      d.GetProxy,
		ProxyConfig:   d.ProxyConfig.Clone(),
	}
}

// FixedProxy returns a GetProxy function that routes every request through
// proxy. An empty proxy disables proxying.
func FixedProxy(proxy string) func(context.Context, *url.URL) (string, error) {
	return func(context.Context, *url.URL) (string, error) { return proxy, nil }
}
