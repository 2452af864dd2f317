package asks

import (
	"github.com/frankli0324/go-asks/internal/config"
	"github.com/frankli0324/go-asks/internal/dialer"
	"github.com/frankli0324/go-asks/internal/model"
	"github.com/frankli0324/go-asks/utils/netpool"
)

// Dialers open the connections a Session pools: plain TCP, TLS, through
// an HTTP proxy, with a custom resolver. A Dialer holds configuration
// only, connection state lives in the Session.
type Dialer = dialer.Dialer

// CoreDialer is the default implementation of the [Dialer] interface. It
// is used by a zero value [Client].
type CoreDialer = dialer.CoreDialer

type ProxyConfig = dialer.ProxyConfig
type ResolveConfig = dialer.ResolveConfig

// Session supplies a Client with connections and takes them back.
type Session = model.Session
type Conn = model.Conn

// Pool is the default Session: per origin keep-alive pools with optional
// connection limits and dial throttling.
type Pool = netpool.Session

type Config = config.Config

// LoadConfig reads a YAML configuration; an empty path searches the
// working directory for asks.yaml or .asks.yaml.
func LoadConfig(path string) (*Config, error) { return config.LoadConfig(path) }

// NewClient builds a client from the configuration found in the working
// directory, or from the defaults.
func NewClient() (*Client, error) {
	c, err := config.LoadConfig("")
	if err != nil {
		return nil, err
	}
	return c.NewClient(nil), nil
}
