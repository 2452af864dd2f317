package dialer

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
)

var defaultPorts = map[string]string{"http": "80", "https": "443"}

// HostPort returns the dial address of u, filling in the scheme's default
// port.
func HostPort(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = defaultPorts[u.Scheme]
	}
	return net.JoinHostPort(u.Hostname(), port)
}

func (d *CoreDialer) Dial(ctx context.Context, u *url.URL) (net.Conn, error) {
	conn, err := d.dialTCP(ctx, u)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "https" {
		return conn, nil
	}
	// only HTTP/1.1 is spoken on the connection
	return handshake(ctx, conn, d.TLSConfig, u.Hostname(), "http/1.1")
}

func (d *CoreDialer) dialTCP(ctx context.Context, u *url.URL) (net.Conn, error) {
	proxy, err := d.proxyFor(ctx, u)
	if err != nil {
		return nil, err
	}
	if proxy != nil {
		return d.DialContextOverProxy(ctx, u, proxy)
	}

	cfg := d.ResolveConfig
	host, port, _ := net.SplitHostPort(HostPort(u))
	if addr, ok := cfg.static(host); ok {
		host = addr
	}
	nd := net.Dialer{Resolver: cfg.resolver()}
	return nd.DialContext(ctx, cfg.tcpNetwork(), net.JoinHostPort(host, port))
}

// handshake runs a TLS client handshake over conn, closing it on failure.
// ServerName defaults to name; protos, when given, replace NextProtos.
func handshake(ctx context.Context, conn net.Conn, base *tls.Config, name string, protos ...string) (net.Conn, error) {
	cfg := base.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = name
	}
	if len(protos) > 0 {
		cfg.NextProtos = protos
	}
	tc := tls.Client(conn, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tc, nil
}
