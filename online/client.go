// Package online is a client for the management interface of a running
// WildFly or JBoss EAP server, standalone or managed domain. A Session owns
// one transport, discovers the server version on connect, rewrites
// addresses for domains, wraps responses in Result and applies Commands.
package online

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wildfly-extras/creaper-sub003/cli"
	"github.com/wildfly-extras/creaper-sub003/internal/logging"
	"github.com/wildfly-extras/creaper-sub003/protocol"
	"github.com/wildfly-extras/creaper-sub003/transport"
)

// reconnectBackoff is the pause between two reconnect attempts.
const reconnectBackoff = 500 * time.Millisecond

// Client is the management client commands work with. Session and
// LazySession implement it.
type Client interface {
	// Execute runs a structured operation. Server-side failures are
	// returned as a failed Result, not as an error.
	Execute(ctx context.Context, op *protocol.Node) (*Result, error)
	// ExecuteCLI parses a CLI operation such as /subsystem=x:read-resource
	// and executes it.
	ExecuteCLI(ctx context.Context, line string) (*Result, error)
	// ExecuteCLICommand runs a CLI line, local commands included, and fails
	// on a nonzero exit code.
	ExecuteCLICommand(ctx context.Context, line string) error
	// Reconnect replaces the transport, waiting up to timeout for the
	// server to come back.
	Reconnect(ctx context.Context, timeout time.Duration) error
	// Version returns the management version discovered on connect.
	Version(ctx context.Context) (ServerVersion, error)
	// Options returns the options the client was built with.
	Options() Options
	// Close releases the transport. Further use fails with *ClosedError.
	Close() error
}

// Session is a connected management client. A Session must not be used
// from several goroutines at once.
type Session struct {
	opts     Options
	id       string
	log      *zap.SugaredLogger
	adjuster domainAdjuster
	out      io.Writer

	transport transport.Transport
	cli       *cli.Context
	version   ServerVersion
	closed    *CloseMarker
}

// Connect builds a session and connects it.
func Connect(ctx context.Context, opts Options) (*Session, error) {
	s := newSession(opts)
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	s.log.Infow("connected", "endpoint", opts.Endpoint(), "version", s.version.String(), "domain", opts.IsDomain())
	return s, nil
}

func newSession(opts Options) *Session {
	base := opts.logger
	if base == nil {
		base = logging.Log
	}
	id := uuid.NewString()
	return &Session{
		opts:     opts,
		id:       id,
		log:      base.With("session", id),
		adjuster: newDomainAdjuster(opts),
		out:      io.Discard,
	}
}

// ID returns the session id used in log lines.
func (s *Session) ID() string { return s.id }

// SetOutput directs the output of local CLI commands (ls, pwd, echo) to w.
func (s *Session) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	s.out = w
	if s.cli != nil {
		s.cli.SetOutput(w)
	}
}

func (s *Session) connect(ctx context.Context) error {
	var t transport.Transport
	if s.opts.wrapped != nil {
		t = s.opts.wrapped
	} else {
		var err error
		t, err = transport.Dial(ctx, s.opts.transportConfig())
		if err != nil {
			return err
		}
	}
	s.transport = t
	// the CLI context and its current node survive a reconnect
	if s.cli == nil {
		s.cli = cli.NewContext(s.cliExecutor, s.out)
	}

	version, err := s.discover(ctx)
	if err != nil {
		if s.opts.wrapped == nil {
			s.closeTransportQuietly()
		}
		return err
	}
	s.version = version
	return nil
}

// discover reads the root resource for the management version and checks
// the topology against the options.
func (s *Session) discover(ctx context.Context) (ServerVersion, error) {
	resp, err := s.transport.Execute(ctx, protocol.NewOperation(protocol.Root(), protocol.OpReadResource))
	if err != nil {
		return ServerVersion{}, err
	}
	res := NewResult(resp)
	if !res.IsSuccess() {
		return ServerVersion{}, fmt.Errorf("reading root resource failed: %s", res.FailureDescription())
	}
	root := resp.Get(protocol.ResultKey)

	part := func(key string) int {
		v, err := root.Get(key).AsInt()
		if err != nil {
			return 0
		}
		return v
	}
	version := ServerVersion{
		Major: part(protocol.ManagementMajorVersion),
		Minor: part(protocol.ManagementMinorVersion),
		Micro: part(protocol.ManagementMicroVersion),
	}

	isDomain := root.Has(protocol.ProfileKey)
	isStandalone := root.Has(protocol.SubsystemKey)
	switch {
	case s.opts.IsDomain() && !isDomain:
		return ServerVersion{}, fmt.Errorf("%w: options declare a managed domain but %s is not a domain controller",
			ErrTopologyMismatch, s.opts.Endpoint())
	case !s.opts.IsDomain() && !isStandalone:
		return ServerVersion{}, fmt.Errorf("%w: options declare a standalone server but %s is not one",
			ErrTopologyMismatch, s.opts.Endpoint())
	}
	return version, nil
}

func (s *Session) checkOpen() error {
	if s.closed != nil {
		return &ClosedError{Marker: s.closed}
	}
	return nil
}

// Execute runs op, rewritten for the domain if needed.
func (s *Session) Execute(ctx context.Context, op *protocol.Node) (*Result, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	resp, err := s.execute(ctx, op)
	if err != nil {
		return nil, err
	}
	return NewResult(resp), nil
}

func (s *Session) execute(ctx context.Context, op *protocol.Node) (*protocol.Node, error) {
	if s.transport == nil {
		return nil, fmt.Errorf("not connected to %s", s.opts.Endpoint())
	}
	adjusted, err := s.adjuster.adjust(op)
	if err != nil {
		return nil, err
	}
	if s.log.Desugar().Core().Enabled(zapcore.DebugLevel) {
		s.log.Debugw("executing", "operation", Render(adjusted))
	}
	resp, err := s.transport.Execute(ctx, adjusted)
	if err != nil {
		return nil, fmt.Errorf("executing %s: %w", Render(adjusted), err)
	}
	return resp, nil
}

func (s *Session) cliExecutor(ctx context.Context, op *protocol.Node) (*protocol.Node, error) {
	return s.execute(ctx, op)
}

// ExecuteCLI parses line relative to the CLI context's current node and
// executes it.
func (s *Session) ExecuteCLI(ctx context.Context, line string) (*Result, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	adjusted, err := s.adjuster.adjustCLI(line)
	if err != nil {
		return nil, err
	}
	op, err := s.cli.BuildOperation(adjusted)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, op)
}

// ExecuteCLICommand runs line in the session's CLI context. The connect
// command is rejected.
func (s *Session) ExecuteCLICommand(ctx context.Context, line string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if fields := strings.Fields(line); len(fields) > 0 && fields[0] == "connect" {
		return fmt.Errorf("%w: the connect command is not allowed on a connected session", ErrInvalidArgument)
	}
	adjusted := line
	if cli.IsOperation(line) {
		var err error
		if adjusted, err = s.adjuster.adjustCLI(line); err != nil {
			return err
		}
	}
	if err := s.cli.Handle(ctx, adjusted); err != nil {
		return &CLIError{Command: line, ExitCode: s.cli.ExitCode(), Err: err}
	}
	if code := s.cli.ExitCode(); code != 0 {
		return &CLIError{Command: line, ExitCode: code, Err: errors.New("nonzero exit code")}
	}
	if s.cli.IsTerminated() {
		return &CLIError{Command: line, ExitCode: s.cli.ExitCode(), Err: cli.ErrTerminated}
	}
	return nil
}

// Reconnect closes the transport and reconnects, retrying every 500ms
// until timeout. Sessions over a wrapped transport cannot reconnect.
func (s *Session) Reconnect(ctx context.Context, timeout time.Duration) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.opts.wrapped != nil {
		return fmt.Errorf("reconnect of a wrapped transport: %w", errors.ErrUnsupported)
	}

	s.closeTransportQuietly()
	s.log.Infow("reconnecting", "endpoint", s.opts.Endpoint(), "timeout", timeout)

	start := time.Now()
	deadline := start.Add(timeout)
	attempts := 0
	for {
		attempts++
		attemptCtx, cancel := context.WithDeadline(ctx, deadline)
		err := s.connect(attemptCtx)
		cancel()
		if err == nil {
			s.log.Infow("reconnected", "attempts", attempts, "elapsed", time.Since(start))
			return nil
		}
		if errors.Is(err, ErrTopologyMismatch) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.log.Debugw("reconnect attempt failed", "attempt", attempts, "error", err)

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &TimeoutError{Op: "reconnect to " + s.opts.Endpoint(), Timeout: timeout, Last: err}
		}
		timer := time.NewTimer(min(reconnectBackoff, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Session) closeTransportQuietly() {
	if s.transport == nil {
		return
	}
	if err := s.transport.Close(); err != nil {
		s.log.Warnw("closing transport failed", "error", err)
	}
	s.transport = nil
}

// Version returns the management version discovered on connect.
func (s *Session) Version(_ context.Context) (ServerVersion, error) {
	if err := s.checkOpen(); err != nil {
		return ServerVersion{}, err
	}
	return s.version, nil
}

// Options returns the session options.
func (s *Session) Options() Options { return s.opts }

// Close closes the transport. It is idempotent; the first call records the
// CloseMarker every later use reports.
func (s *Session) Close() error {
	if s.closed != nil {
		return nil
	}
	s.closed = &CloseMarker{At: time.Now(), Stack: string(debug.Stack())}
	var err error
	if s.transport != nil {
		err = s.transport.Close()
		s.transport = nil
	}
	s.cli = nil
	s.log.Infow("closed", "endpoint", s.opts.Endpoint())
	return err
}
