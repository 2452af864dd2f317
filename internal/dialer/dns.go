package dialer

import (
	"context"
	"net"
	"sync"
)

// ResolveConfig controls how a target host name becomes a dial address.
type ResolveConfig struct {
	CustomDNSServer string            // host:port queried instead of the system resolver
	Network         string            // "ip4", "ip6", or empty for both
	StaticHosts     map[string]string // consulted before any lookup, like /etc/hosts
}

// Merge returns a copy of c with its unset fields taken from base.
func (c *ResolveConfig) Merge(base *ResolveConfig) *ResolveConfig {
	m := c.Clone()
	switch {
	case m == nil:
		return base.Clone()
	case base == nil:
		return m
	}
	if m.CustomDNSServer == "" {
		m.CustomDNSServer = base.CustomDNSServer
	}
	if m.Network == "" {
		m.Network = base.Network
	}
	if m.StaticHosts == nil {
		m.StaticHosts = base.StaticHosts
	}
	return m
}

func (c *ResolveConfig) Clone() *ResolveConfig {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func (c *ResolveConfig) static(host string) (string, bool) {
	if c == nil {
		return "", false
	}
	addr, ok := c.StaticHosts[host]
	return addr, ok
}

// ipNetwork is the lookup network, tcpNetwork the matching dial network.
func (c *ResolveConfig) ipNetwork() string {
	if c == nil || (c.Network != "ip4" && c.Network != "ip6") {
		return "ip"
	}
	return c.Network
}

func (c *ResolveConfig) tcpNetwork() string {
	return "tcp" + c.ipNetwork()[2:]
}

func (c *ResolveConfig) resolver() *net.Resolver {
	if c == nil {
		return net.DefaultResolver
	}
	return resolverFor(c.CustomDNSServer)
}

var resolvers sync.Map // DNS server address -> *net.Resolver

// resolverFor returns a pure Go resolver that sends every query to server,
// or the system resolver when server is empty.
func resolverFor(server string) *net.Resolver {
	if server == "" {
		return net.DefaultResolver
	}
	if r, ok := resolvers.Load(server); ok {
		return r.(*net.Resolver)
	}
	var d net.Dialer
	r, _ := resolvers.LoadOrStore(server, &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			return d.DialContext(ctx, network, server)
		},
	})
	return r.(*net.Resolver)
}

// LookupIP resolves host the way Dial would, static hosts excluded.
func LookupIP(ctx context.Context, cfg *ResolveConfig, host string) ([]net.IP, error) {
	ips, err := cfg.resolver().LookupIP(ctx, cfg.ipNetwork(), host)
	if err == nil && len(ips) == 0 {
		err = &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	return ips, err
}
