package online

import (
	"crypto/tls"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wildfly-extras/creaper-sub003/transport"
)

// Defaults applied by NewOptions.
const (
	DefaultManagementHost    = "localhost"
	DefaultManagementPort    = 9990
	DefaultConnectionTimeout = 10 * time.Second
	DefaultBootTimeout       = 2 * time.Minute
)

// Options describes how to build a session. It is immutable once built;
// use NewOptions.
type Options struct {
	domain            bool
	host              string
	port              int
	socket            string
	wrapped           transport.Transport
	protocol          string
	username          string
	password          string
	defaultProfile    string
	defaultHost       string
	connectionTimeout time.Duration
	bootTimeout       time.Duration
	tls               *tls.Config
	logger            *zap.SugaredLogger
}

type builder struct {
	opts        Options
	modeSet     bool
	targetSet   bool
	protocolSet bool
}

// Option configures Options.
type Option func(*builder) error

// NewOptions validates and builds Options. Exactly one of Standalone or
// Domain is required; at most one target (HostAndPort, SocketPath,
// WrappedTransport) may be given.
func NewOptions(opts ...Option) (Options, error) {
	b := &builder{opts: Options{
		protocol:          transport.ProtocolHTTP,
		connectionTimeout: DefaultConnectionTimeout,
		bootTimeout:       DefaultBootTimeout,
	}}
	for _, o := range opts {
		if err := o(b); err != nil {
			return Options{}, err
		}
	}

	if !b.modeSet {
		return Options{}, fmt.Errorf("%w: either Standalone or Domain is required", ErrInvalidArgument)
	}
	if !b.opts.domain && (b.opts.defaultProfile != "" || b.opts.defaultHost != "") {
		return Options{}, fmt.Errorf("%w: default profile and host are only valid in domain mode", ErrInvalidArgument)
	}
	if !b.targetSet {
		b.opts.host = DefaultManagementHost
		b.opts.port = DefaultManagementPort
	}
	if b.opts.socket != "" {
		if !b.protocolSet {
			b.opts.protocol = transport.ProtocolStream
		} else if b.opts.protocol != transport.ProtocolStream {
			return Options{}, fmt.Errorf("%w: unix sockets require the %s protocol", ErrInvalidArgument, transport.ProtocolStream)
		}
	}
	return b.opts, nil
}

func (b *builder) setTarget() error {
	if b.targetSet {
		return fmt.Errorf("%w: connection target set more than once", ErrInvalidArgument)
	}
	b.targetSet = true
	return nil
}

func (b *builder) setMode(domain bool) error {
	if b.modeSet {
		return fmt.Errorf("%w: standalone/domain mode set more than once", ErrInvalidArgument)
	}
	b.modeSet = true
	b.opts.domain = domain
	return nil
}

// Standalone declares a standalone server.
func Standalone() Option { return func(b *builder) error { return b.setMode(false) } }

// Domain declares a managed domain controller.
func Domain() Option { return func(b *builder) error { return b.setMode(true) } }

// HostAndPort targets a management interface over the network.
func HostAndPort(host string, port int) Option {
	return func(b *builder) error {
		if err := b.setTarget(); err != nil {
			return err
		}
		if host == "" {
			return fmt.Errorf("%w: host must not be empty", ErrInvalidArgument)
		}
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%w: port %d out of range", ErrInvalidArgument, port)
		}
		b.opts.host, b.opts.port = host, port
		return nil
	}
}

// SocketPath targets a stream endpoint on a unix socket.
func SocketPath(path string) Option {
	return func(b *builder) error {
		if err := b.setTarget(); err != nil {
			return err
		}
		if path == "" {
			return fmt.Errorf("%w: socket path must not be empty", ErrInvalidArgument)
		}
		b.opts.socket = path
		return nil
	}
}

// WrappedTransport makes the session use an existing transport. Wrapped
// sessions cannot reconnect.
func WrappedTransport(t transport.Transport) Option {
	return func(b *builder) error {
		if err := b.setTarget(); err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("%w: wrapped transport must not be nil", ErrInvalidArgument)
		}
		b.opts.wrapped = t
		return nil
	}
}

// Protocol selects http, https or stream.
func Protocol(p string) Option {
	return func(b *builder) error {
		switch p {
		case transport.ProtocolHTTP, transport.ProtocolHTTPS, transport.ProtocolStream:
			b.opts.protocol = p
			b.protocolSet = true
			return nil
		}
		return fmt.Errorf("%w: unsupported protocol %q", ErrInvalidArgument, p)
	}
}

// Auth sets the management user credentials.
func Auth(username, password string) Option {
	return func(b *builder) error {
		b.opts.username, b.opts.password = username, password
		return nil
	}
}

// DefaultProfile names the profile subsystem addresses are placed under in
// domain mode.
func DefaultProfile(name string) Option {
	return func(b *builder) error {
		if name == "" {
			return fmt.Errorf("%w: default profile must not be empty", ErrInvalidArgument)
		}
		b.opts.defaultProfile = name
		return nil
	}
}

// DefaultHost names the host core-service addresses are placed under in
// domain mode.
func DefaultHost(name string) Option {
	return func(b *builder) error {
		if name == "" {
			return fmt.Errorf("%w: default host must not be empty", ErrInvalidArgument)
		}
		b.opts.defaultHost = name
		return nil
	}
}

// ConnectionTimeout bounds connecting and every single request.
func ConnectionTimeout(d time.Duration) Option {
	return func(b *builder) error {
		if d <= 0 {
			return fmt.Errorf("%w: connection timeout must be positive", ErrInvalidArgument)
		}
		b.opts.connectionTimeout = d
		return nil
	}
}

// BootTimeout bounds waiting for a server to come back after reload or
// restart.
func BootTimeout(d time.Duration) Option {
	return func(b *builder) error {
		if d <= 0 {
			return fmt.Errorf("%w: boot timeout must be positive", ErrInvalidArgument)
		}
		b.opts.bootTimeout = d
		return nil
	}
}

// TLSConfig sets the TLS material for https.
func TLSConfig(cfg *tls.Config) Option {
	return func(b *builder) error {
		if cfg == nil {
			return fmt.Errorf("%w: tls config must not be nil", ErrInvalidArgument)
		}
		b.opts.tls = cfg.Clone()
		return nil
	}
}

// Logger overrides the logger sessions derive theirs from.
func Logger(l *zap.SugaredLogger) Option {
	return func(b *builder) error {
		b.opts.logger = l
		return nil
	}
}

// IsDomain reports whether the options declare a managed domain.
func (o Options) IsDomain() bool { return o.domain }

// IsWrapped reports whether the session reuses a caller-supplied transport.
func (o Options) IsWrapped() bool { return o.wrapped != nil }

// DefaultProfile returns the configured default profile, or "".
func (o Options) DefaultProfile() string { return o.defaultProfile }

// DefaultHost returns the configured default host, or "".
func (o Options) DefaultHost() string { return o.defaultHost }

// ConnectionTimeout returns the per-request timeout.
func (o Options) ConnectionTimeout() time.Duration { return o.connectionTimeout }

// BootTimeout returns how long Reload and Restart wait for the server.
func (o Options) BootTimeout() time.Duration { return o.bootTimeout }

// Endpoint returns a printable target.
func (o Options) Endpoint() string {
	if o.wrapped != nil {
		return "wrapped"
	}
	return o.transportConfig().Endpoint()
}

func (o Options) transportConfig() transport.Config {
	return transport.Config{
		Protocol: o.protocol,
		Host:     o.host,
		Port:     o.port,
		Socket:   o.socket,
		Username: o.username,
		Password: o.password,
		TLS:      o.tls,
		Timeout:  o.connectionTimeout,
	}
}
