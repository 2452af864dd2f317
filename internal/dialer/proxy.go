package dialer

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"

	"github.com/frankli0324/go-asks/internal/transport"
)

var ErrProxyScheme = errors.New("dialer: unsupported proxy scheme")

// ProxyError reports a CONNECT request the proxy did not accept.
type ProxyError struct {
	StatusCode int
	Reason     string
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("dialer: proxy refused tunnel: %d %s", e.StatusCode, e.Reason)
}

type ProxyConfig struct {
	TLSConfig      *tls.Config    // for https proxies; CoreDialer.TLSConfig when nil
	ResolveLocally bool           // send the CONNECT request to an IP address instead of the host name
	ResolveConfig  *ResolveConfig // merged over CoreDialer.ResolveConfig when resolving locally
}

func (c *ProxyConfig) Clone() *ProxyConfig {
	if c == nil {
		return nil
	}
	return &ProxyConfig{
		TLSConfig:      c.TLSConfig.Clone(),
		ResolveLocally: c.ResolveLocally,
		ResolveConfig:  c.ResolveConfig.Clone(),
	}
}

func (d *CoreDialer) proxyFor(ctx context.Context, u *url.URL) (*url.URL, error) {
	if d.GetProxy == nil {
		return nil, nil
	}
	raw, err := d.GetProxy(ctx, u)
	if err != nil || raw == "" {
		return nil, err
	}
	return url.Parse(raw)
}

// DialContextOverProxy opens a tunnel to remote through an http or https
// proxy with the CONNECT method.
func (d *CoreDialer) DialContextOverProxy(ctx context.Context, remote, proxy *url.URL) (net.Conn, error) {
	if proxy.Scheme != "http" && proxy.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrProxyScheme, proxy.Scheme)
	}
	pc := d.ProxyConfig
	if pc == nil {
		pc = &ProxyConfig{}
	}

	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", HostPort(proxy))
	if err != nil {
		return nil, err
	}
	if proxy.Scheme == "https" {
		cfg := pc.TLSConfig
		if cfg == nil {
			cfg = d.TLSConfig
		}
		if conn, err = handshake(ctx, conn, cfg, proxy.Hostname()); err != nil {
			return nil, err
		}
	}

	target, err := d.tunnelTarget(ctx, pc, remote)
	if err == nil {
		err = connect(conn, target, remote.Host, proxy.User)
	}
	if err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// tunnelTarget is the CONNECT authority: the remote host name, or one of
// its addresses when the proxy config asks to resolve locally.
func (d *CoreDialer) tunnelTarget(ctx context.Context, pc *ProxyConfig, remote *url.URL) (string, error) {
	hp := HostPort(remote)
	if !pc.ResolveLocally {
		return hp, nil
	}
	host, port, _ := net.SplitHostPort(hp)
	cfg := pc.ResolveConfig.Merge(d.ResolveConfig)
	if addr, ok := cfg.static(host); ok {
		return net.JoinHostPort(addr, port), nil
	}
	ips, err := LookupIP(ctx, cfg, host)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(ips[rand.IntN(len(ips))].String(), port), nil
}

func connect(conn net.Conn, target, host string, user *url.Userinfo) error {
	header := http.Header{"Host": {host}}
	if user != nil {
		header.Set("Proxy-Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(user.String())))
	}
	enc := transport.NewEncoder(conn)
	if err := enc.WriteHead(http.MethodConnect, target, header); err != nil {
		return err
	}
	if err := enc.WriteEnd(); err != nil {
		return err
	}
	// tunnelled bytes follow the head directly, so read it unbuffered
	ev, err := transport.NewDecoder(byteReader{conn}, http.MethodConnect).Next()
	if err != nil {
		return err
	}
	head := ev.(*transport.ResponseHead)
	if head.StatusCode != http.StatusOK {
		return &ProxyError{StatusCode: head.StatusCode, Reason: head.Reason}
	}
	return nil
}

type byteReader struct{ r io.Reader }

func (b byteReader) Read(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	return b.r.Read(p)
}
