// Package config loads client settings from YAML files.
package config

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/frankli0324/go-asks/internal"
	"github.com/frankli0324/go-asks/internal/cookies"
	"github.com/frankli0324/go-asks/internal/dialer"
	"github.com/frankli0324/go-asks/utils/netpool"
)

type Config struct {
	Timeout      time.Duration     `yaml:"timeout,omitempty"`
	MaxRedirects *int              `yaml:"maxRedirects,omitempty"`
	UserAgent    string            `yaml:"userAgent,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty"`
	// Cookies keeps cookies between requests, on unless set to false.
	Cookies *bool `yaml:"cookies,omitempty"`

	MaxConnsPerHost uint          `yaml:"maxConnsPerHost,omitempty"`
	MaxIdlePerHost  uint          `yaml:"maxIdlePerHost,omitempty"`
	IdleTimeout     time.Duration `yaml:"idleTimeout,omitempty"`
	DialRate        float64       `yaml:"dialRate,omitempty"` // new connections per second and host
	DialBurst       int           `yaml:"dialBurst,omitempty"`

	Resolve            Resolve `yaml:"resolve,omitempty"`
	Proxy              string  `yaml:"proxy,omitempty"`
	InsecureSkipVerify bool    `yaml:"insecureSkipVerify,omitempty"`
}

type Resolve struct {
	DNS     string            `yaml:"dns,omitempty"`
	Network string            `yaml:"network,omitempty"` // "ip4" or "ip6"
	Hosts   map[string]string `yaml:"hosts,omitempty"`
}

// ConfigFilenames are searched in order by FindAndLoadConfig.
var ConfigFilenames = []string{
	"asks.yaml",
	".asks.yaml",
	"asks.yml",
	".asks.yml",
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:         30 * time.Second,
		MaxConnsPerHost: netpool.DefaultMaxConnsPerHost,
		MaxIdlePerHost:  netpool.DefaultMaxIdlePerHost,
		IdleTimeout:     90 * time.Second,
	}
}

// LoadConfig loads path, or searches the working directory when path is
// empty.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig loads the first config file found in dir, or the
// defaults when there is none.
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}
	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) GetCookies() bool {
	return c.Cookies == nil || *c.Cookies
}

// Dialer builds the dialer described by the resolve, proxy and TLS
// settings.
func (c *Config) Dialer() *dialer.CoreDialer {
	d := &dialer.CoreDialer{}
	if c.Resolve.DNS != "" || c.Resolve.Network != "" || len(c.Resolve.Hosts) > 0 {
		d.ResolveConfig = &dialer.ResolveConfig{
			CustomDNSServer: c.Resolve.DNS,
			Network:         c.Resolve.Network,
			StaticHosts:     c.Resolve.Hosts,
		}
	}
	if c.InsecureSkipVerify {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if c.Proxy != "" {
		d.GetProxy = dialer.FixedProxy(c.Proxy)
	}
	return d
}

// NewClient builds a client with its own connection pool. logger may be
// nil.
func (c *Config) NewClient(logger *slog.Logger) *internal.Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	client := &internal.Client{
		Session: &netpool.Session{
			Dialer:          c.Dialer(),
			MaxConnsPerHost: c.MaxConnsPerHost,
			MaxIdlePerHost:  c.MaxIdlePerHost,
			IdleTimeout:     c.IdleTimeout,
			DialRate:        rate.Limit(c.DialRate),
			DialBurst:       c.DialBurst,
			Logger:          logger,
		},
		UserAgent:    c.UserAgent,
		Timeout:      c.Timeout,
		MaxRedirects: c.MaxRedirects,
		Logger:       logger,
	}
	if len(c.Headers) > 0 {
		client.Header = http.Header{}
		for k, v := range c.Headers {
			client.Header.Set(k, v)
		}
	}
	if c.GetCookies() {
		client.Jar = cookies.NewTracker()
	}
	return client
}
