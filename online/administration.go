package online

import (
	"context"
	"fmt"
	"time"

	"github.com/wildfly-extras/creaper-sub003/protocol"
)

// pollInterval is how often WaitUntilRunning checks the server state.
const pollInterval = 500 * time.Millisecond

// Administration reloads and restarts servers. In domain mode it acts on
// all servers through the domain controller.
type Administration struct {
	client Client
	ops    *Operations
}

// NewAdministration wraps c.
func NewAdministration(c Client) *Administration {
	return &Administration{client: c, ops: NewOperations(c)}
}

// IsReloadRequired reports whether a server is in reload-required state.
func (a *Administration) IsReloadRequired(ctx context.Context) (bool, error) {
	return a.anyServerIn(ctx, protocol.ProcessStateReloadRequired)
}

// IsRestartRequired reports whether a server is in restart-required state.
func (a *Administration) IsRestartRequired(ctx context.Context) (bool, error) {
	return a.anyServerIn(ctx, protocol.ProcessStateRestartRequired)
}

func (a *Administration) anyServerIn(ctx context.Context, state string) (bool, error) {
	states, err := a.serverStates(ctx)
	if err != nil {
		return false, err
	}
	for _, s := range states {
		if s == state {
			return true, nil
		}
	}
	return false, nil
}

// serverStates returns the server-state of the standalone server, or of
// every server on the default host of a domain.
func (a *Administration) serverStates(ctx context.Context) ([]string, error) {
	opts := a.client.Options()
	if !opts.IsDomain() {
		state, err := a.readState(ctx, protocol.Root())
		if err != nil {
			return nil, err
		}
		return []string{state}, nil
	}

	if opts.DefaultHost() == "" {
		return nil, fmt.Errorf("%w: reading server states in domain mode needs a default host", ErrInvalidArgument)
	}
	host := protocol.Host(opts.DefaultHost())
	res, err := a.ops.ReadChildrenNames(ctx, host, protocol.ServerKey)
	if err != nil {
		return nil, err
	}
	if err := res.AssertSuccess(); err != nil {
		return nil, err
	}
	names, err := res.StringListValue()
	if err != nil {
		return nil, err
	}
	states := make([]string, 0, len(names))
	for _, name := range names {
		state, err := a.readState(ctx, host.And(protocol.ServerKey, name))
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}

func (a *Administration) readState(ctx context.Context, addr protocol.Address) (string, error) {
	res, err := a.ops.ReadAttribute(ctx, addr, protocol.ServerStateAttribute)
	if err != nil {
		return "", err
	}
	if err := res.AssertSuccess(); err != nil {
		return "", err
	}
	return res.StringValue()
}

// Reload reloads the server and waits for it to come back. Domains reload
// all servers in blocking mode.
func (a *Administration) Reload(ctx context.Context) error {
	if a.client.Options().IsDomain() {
		return a.domainOp(ctx, protocol.OpReloadServers)
	}
	return a.standaloneOp(ctx, protocol.NewOperation(protocol.Root(), protocol.OpReload))
}

// Restart restarts the server and waits for it to come back. Domains
// restart all servers in blocking mode.
func (a *Administration) Restart(ctx context.Context) error {
	if a.client.Options().IsDomain() {
		return a.domainOp(ctx, protocol.OpRestartServers)
	}
	return a.standaloneOp(ctx, protocol.NewOperation(protocol.Root(), protocol.OpShutdown, protocol.P("restart", true)))
}

// ReloadIfRequired reloads when the server asks for it and reports whether
// it did.
func (a *Administration) ReloadIfRequired(ctx context.Context) (bool, error) {
	required, err := a.IsReloadRequired(ctx)
	if err != nil || !required {
		return false, err
	}
	return true, a.Reload(ctx)
}

// RestartIfRequired restarts when the server asks for it and reports
// whether it did.
func (a *Administration) RestartIfRequired(ctx context.Context) (bool, error) {
	required, err := a.IsRestartRequired(ctx)
	if err != nil || !required {
		return false, err
	}
	return true, a.Restart(ctx)
}

func (a *Administration) domainOp(ctx context.Context, name string) error {
	res, err := a.ops.Invoke(ctx, name, protocol.Root(), protocol.P("blocking", true))
	if err != nil {
		return err
	}
	return res.AssertSuccess(name)
}

func (a *Administration) standaloneOp(ctx context.Context, op *protocol.Node) error {
	name := protocol.OperationName(op)
	res, err := a.client.Execute(ctx, op)
	if err != nil {
		return err
	}
	if err := res.AssertSuccess(name); err != nil {
		return err
	}
	timeout := a.client.Options().BootTimeout()
	if err := a.client.Reconnect(ctx, timeout); err != nil {
		return err
	}
	return a.WaitUntilRunning(ctx, timeout)
}

// WaitUntilRunning polls until every server reports running.
func (a *Administration) WaitUntilRunning(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		states, err := a.serverStates(ctx)
		if err == nil && allRunning(states) {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			if err == nil {
				err = fmt.Errorf("server states %v", states)
			}
			return &TimeoutError{Op: "waiting for running servers", Timeout: timeout, Last: err}
		}
		timer := time.NewTimer(min(pollInterval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func allRunning(states []string) bool {
	for _, s := range states {
		if s != "running" {
			return false
		}
	}
	return len(states) > 0
}
