package online

import (
	"context"
	"io"
	"runtime/debug"
	"time"

	"github.com/wildfly-extras/creaper-sub003/protocol"
)

// LazySession defers connecting until first use. Like Session it is meant
// for use from a single goroutine.
type LazySession struct {
	opts    Options
	out     io.Writer
	session *Session
	closed  *CloseMarker
}

// NewLazy returns a client that connects on first use.
func NewLazy(opts Options) *LazySession {
	return &LazySession{opts: opts}
}

// SetOutput directs the output of local CLI commands to w.
func (l *LazySession) SetOutput(w io.Writer) {
	l.out = w
	if l.session != nil {
		l.session.SetOutput(w)
	}
}

// Connected reports whether the underlying session has been created.
func (l *LazySession) Connected() bool { return l.session != nil }

func (l *LazySession) get(ctx context.Context) (*Session, error) {
	if l.closed != nil {
		return nil, &ClosedError{Marker: l.closed}
	}
	if l.session == nil {
		s, err := Connect(ctx, l.opts)
		if err != nil {
			return nil, err
		}
		if l.out != nil {
			s.SetOutput(l.out)
		}
		l.session = s
	}
	return l.session, nil
}

// Execute connects if needed and executes op.
func (l *LazySession) Execute(ctx context.Context, op *protocol.Node) (*Result, error) {
	s, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, op)
}

// ExecuteCLI connects if needed and executes a CLI operation line.
func (l *LazySession) ExecuteCLI(ctx context.Context, line string) (*Result, error) {
	s, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return s.ExecuteCLI(ctx, line)
}

// ExecuteCLICommand connects if needed and runs a CLI command line.
func (l *LazySession) ExecuteCLICommand(ctx context.Context, line string) error {
	s, err := l.get(ctx)
	if err != nil {
		return err
	}
	return s.ExecuteCLICommand(ctx, line)
}

// Reconnect connects if needed, then reconnects the session.
func (l *LazySession) Reconnect(ctx context.Context, timeout time.Duration) error {
	s, err := l.get(ctx)
	if err != nil {
		return err
	}
	return s.Reconnect(ctx, timeout)
}

// Version connects if needed and returns the server version.
func (l *LazySession) Version(ctx context.Context) (ServerVersion, error) {
	s, err := l.get(ctx)
	if err != nil {
		return ServerVersion{}, err
	}
	return s.Version(ctx)
}

// Options returns the options the session connects with.
func (l *LazySession) Options() Options { return l.opts }

// Close closes the underlying session if one was created.
func (l *LazySession) Close() error {
	if l.closed != nil {
		return nil
	}
	if l.session != nil {
		err := l.session.Close()
		l.closed = l.session.closed
		return err
	}
	l.closed = &CloseMarker{At: time.Now(), Stack: string(debug.Stack())}
	return nil
}
