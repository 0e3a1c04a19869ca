// Package config loads the creaperctl configuration file using Viper. It
// holds the logging settings and named server profiles, each of which
// converts into online.Options.
package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/viper"

	"github.com/wildfly-extras/creaper-sub003/internal/logging"
	"github.com/wildfly-extras/creaper-sub003/online"
	"github.com/wildfly-extras/creaper-sub003/transport"
)

// FileName is the config file looked up on the search path.
const FileName = "creaper.yaml"

// Server modes.
const (
	ModeStandalone = "standalone"
	ModeDomain     = "domain"
)

// ErrUnknownServer is returned when a named server profile does not exist.
var ErrUnknownServer = errors.New("unknown server")

// Config represents the full structure of the creaper configuration file.
type Config struct {
	Log     logging.Config    `mapstructure:"log"`
	Default string            `mapstructure:"default"` // server used when none is named
	Servers map[string]Server `mapstructure:"servers"`
}

// Server describes one management endpoint.
type Server struct {
	Mode               string        `mapstructure:"mode"` // "standalone" or "domain"
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Socket             string        `mapstructure:"socket"`
	Protocol           string        `mapstructure:"protocol"` // "http", "https" or "stream"
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	DefaultProfile     string        `mapstructure:"default_profile"`
	DefaultHost        string        `mapstructure:"default_host"`
	Timeout            time.Duration `mapstructure:"timeout"`
	BootTimeout        time.Duration `mapstructure:"boot_timeout"`
	CAFile             string        `mapstructure:"ca_file"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
}

// Default is the configuration used when no file exists.
func Default() *Config {
	return &Config{Log: logging.DefaultConfig(), Servers: map[string]Server{}}
}

// Load reads the config file at path. An empty path is resolved with
// ResolveConfigPath; if nothing is found there the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		resolved, err := ResolveConfigPath(FileName)
		if errors.Is(err, ErrNoConfig) {
			return Default(), nil
		}
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	def := logging.DefaultConfig()
	v.SetDefault("log.level", def.Level)
	v.SetDefault("log.format", def.Format)
	v.SetDefault("log.to_stderr", def.ToStderr)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error loading config %s: %w", path, err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}
	if cfg.Servers == nil {
		cfg.Servers = map[string]Server{}
	}
	return cfg, nil
}

// Names returns the configured server names, sorted.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Server returns the named profile. An empty name selects Default, or the
// only configured server.
func (c *Config) Server(name string) (Server, error) {
	if name == "" {
		name = c.Default
	}
	if name == "" && len(c.Servers) == 1 {
		for only := range c.Servers {
			name = only
		}
	}
	srv, ok := c.Servers[name]
	if !ok {
		return Server{}, fmt.Errorf("%w %q (configured: %v)", ErrUnknownServer, name, c.Names())
	}
	return srv, nil
}

// Options converts the profile into online.Options. extra options are
// applied last.
func (s Server) Options(extra ...online.Option) (online.Options, error) {
	var opts []online.Option
	switch s.Mode {
	case "", ModeStandalone:
		opts = append(opts, online.Standalone())
	case ModeDomain:
		opts = append(opts, online.Domain())
		if s.DefaultProfile != "" {
			opts = append(opts, online.DefaultProfile(s.DefaultProfile))
		}
		if s.DefaultHost != "" {
			opts = append(opts, online.DefaultHost(s.DefaultHost))
		}
	default:
		return online.Options{}, fmt.Errorf("%w: unknown mode %q", online.ErrInvalidArgument, s.Mode)
	}

	switch {
	case s.Socket != "":
		opts = append(opts, online.SocketPath(s.Socket))
	case s.Host != "" || s.Port != 0:
		host, port := s.Host, s.Port
		if host == "" {
			host = online.DefaultManagementHost
		}
		if port == 0 {
			port = online.DefaultManagementPort
		}
		opts = append(opts, online.HostAndPort(host, port))
	}
	if s.Protocol != "" {
		opts = append(opts, online.Protocol(s.Protocol))
	}
	if s.Username != "" {
		opts = append(opts, online.Auth(s.Username, s.Password))
	}
	if s.Timeout > 0 {
		opts = append(opts, online.ConnectionTimeout(s.Timeout))
	}
	if s.BootTimeout > 0 {
		opts = append(opts, online.BootTimeout(s.BootTimeout))
	}
	if s.Protocol == transport.ProtocolHTTPS {
		tlsCfg, err := s.tlsConfig()
		if err != nil {
			return online.Options{}, err
		}
		opts = append(opts, online.TLSConfig(tlsCfg))
	}
	return online.NewOptions(append(opts, extra...)...)
}

func (s Server) tlsConfig() (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: s.InsecureSkipVerify, //nolint:gosec // opt-in per server
	}
	if s.CAFile == "" {
		return cfg, nil
	}
	pem, err := os.ReadFile(s.CAFile)
	if err != nil {
		return nil, fmt.Errorf("reading CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("%w: no certificates in %s", online.ErrInvalidArgument, s.CAFile)
	}
	cfg.RootCAs = pool
	return cfg, nil
}
