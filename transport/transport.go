// Package transport provides the network boundary of the management client.
// A Transport executes one management operation and returns the raw response
// node; it knows nothing about results, domains or commands.
//
// Two implementations are available: the HTTP management endpoint
// (JSON over HTTP POST to /management), and a newline-delimited JSON stream
// over TCP or a unix socket used by management bridges and test servers.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/wildfly-extras/creaper-sub003/protocol"
)

// Protocol names accepted by Dial.
const (
	ProtocolHTTP   = "http"
	ProtocolHTTPS  = "https"
	ProtocolStream = "stream"
)

// DefaultTimeout applies when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Transport executes management operations against one endpoint.
type Transport interface {
	// Execute sends op and returns the raw response node. Server-side
	// operation failures are not errors; they come back as a response with
	// outcome "failed".
	Execute(ctx context.Context, op *protocol.Node) (*protocol.Node, error)

	// Close releases the connection. Calling Close twice is allowed.
	Close() error
}

// Config describes the endpoint a transport connects to.
type Config struct {
	Protocol string
	Host     string
	Port     int
	// Socket is a unix socket path; only valid with ProtocolStream.
	Socket   string
	Username string
	Password string
	TLS      *tls.Config
	Timeout  time.Duration
}

// Endpoint returns a printable form of the target.
func (c Config) Endpoint() string {
	if c.Socket != "" {
		return "unix://" + c.Socket
	}
	return c.Protocol + "://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// Dial creates the transport for cfg.Protocol. Stream transports connect
// immediately; HTTP transports are connectionless and only fail on the
// first Execute.
func Dial(ctx context.Context, cfg Config) (Transport, error) {
	switch cfg.Protocol {
	case "", ProtocolHTTP, ProtocolHTTPS:
		if cfg.Protocol == "" {
			cfg.Protocol = ProtocolHTTP
		}
		return NewHTTP(cfg)
	case ProtocolStream:
		return DialStream(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported management protocol: %s", cfg.Protocol)
	}
}

// ErrorKind classifies transport failures.
type ErrorKind int

const (
	// KindIO covers connect, read and write failures.
	KindIO ErrorKind = iota
	// KindAuth indicates rejected credentials.
	KindAuth
	// KindProtocol indicates an unexpected or undecodable response.
	KindProtocol
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "authentication failed"
	case KindProtocol:
		return "protocol error"
	default:
		return "I/O error"
	}
}

// Error is returned for every failure below the management protocol.
type Error struct {
	// Endpoint is the target that failed.
	Endpoint string
	// Kind categorizes the failure.
	Kind ErrorKind
	// Reason is the underlying error.
	Reason error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s talking to %s: %v", e.Kind, e.Endpoint, e.Reason)
}

func (e *Error) Unwrap() error { return e.Reason }

// IsAuthError reports whether err is a rejected-credentials transport error.
func IsAuthError(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == KindAuth
}
