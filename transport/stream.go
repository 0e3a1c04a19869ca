package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/wildfly-extras/creaper-sub003/protocol"
)

// Stream implements Transport over a newline-delimited JSON connection.
// Requests are serialized; there is at most one request in flight.
type Stream struct {
	mu     sync.Mutex
	cfg    Config
	conn   net.Conn
	reader *bufio.Reader
	closed bool
}

// DialStream connects to cfg.Socket (unix) or cfg.Host:cfg.Port (tcp) and
// verifies the endpoint answers a ping.
func DialStream(ctx context.Context, cfg Config) (*Stream, error) {
	dialer := net.Dialer{Timeout: cfg.timeout()}

	var conn net.Conn
	var err error
	if cfg.Socket != "" {
		conn, err = dialer.DialContext(ctx, "unix", cfg.Socket)
	} else if cfg.Host != "" {
		conn, err = dialer.DialContext(ctx, "tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	} else {
		return nil, fmt.Errorf("invalid stream config: no socket or host defined")
	}
	if err != nil {
		return nil, &Error{Endpoint: cfg.Endpoint(), Kind: KindIO, Reason: err}
	}

	s := &Stream{cfg: cfg, conn: conn, reader: bufio.NewReader(conn)}
	if _, err := s.roundTrip(ctx, &protocol.Request{Type: protocol.CmdPing, Auth: s.auth()}); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Execute sends op wrapped in an execute envelope.
func (s *Stream) Execute(ctx context.Context, op *protocol.Node) (*protocol.Node, error) {
	resp, err := s.roundTrip(ctx, &protocol.Request{Type: protocol.CmdExecute, Auth: s.auth(), Operation: op})
	if err != nil {
		return nil, err
	}
	if resp.Result == nil || resp.Result.Kind() != protocol.KindObject {
		return nil, &Error{Endpoint: s.cfg.Endpoint(), Kind: KindProtocol, Reason: errors.New("response carries no result")}
	}
	return resp.Result, nil
}

func (s *Stream) roundTrip(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, &Error{Endpoint: s.cfg.Endpoint(), Kind: KindIO, Reason: net.ErrClosed}
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{Endpoint: s.cfg.Endpoint(), Kind: KindIO, Reason: err}
	}

	deadline := time.Now().Add(s.cfg.timeout())
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = s.conn.SetDeadline(deadline)

	// unblock a pending read when ctx is cancelled
	stop := context.AfterFunc(ctx, func() { _ = s.conn.SetDeadline(time.Now()) })
	defer stop()

	if err := protocol.WriteRequest(s.conn, req); err != nil {
		return nil, s.fail(ctx, fmt.Errorf("failed to send request: %w", err))
	}
	resp, err := protocol.ReadResponse(s.reader)
	if err != nil {
		return nil, s.fail(ctx, fmt.Errorf("invalid response: %w", err))
	}
	if resp.Status != protocol.StatusOK {
		kind := KindProtocol
		if resp.Error == protocol.ErrorNotAuthenticated {
			kind = KindAuth
		}
		return nil, &Error{Endpoint: s.cfg.Endpoint(), Kind: kind, Reason: errors.New(resp.Error)}
	}
	return resp, nil
}

// fail drops the connection after a broken exchange. A late reply would
// otherwise be read as the answer to the next request. Callers hold s.mu.
func (s *Stream) fail(ctx context.Context, err error) error {
	s.closed = true
	_ = s.conn.Close()
	return s.ioError(ctx, err)
}

func (s *Stream) ioError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	return &Error{Endpoint: s.cfg.Endpoint(), Kind: KindIO, Reason: err}
}

func (s *Stream) auth() *protocol.Auth {
	if s.cfg.Username == "" {
		return nil
	}
	return &protocol.Auth{User: s.cfg.Username, Password: s.cfg.Password}
}

// Close closes the connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
