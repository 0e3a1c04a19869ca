package online

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wildfly-extras/creaper-sub003/protocol"
)

// CommandContext is what a command sees while it is applied.
type CommandContext struct {
	// Client normalizes every error to *CommandFailedError.
	Client  Client
	Options Options
	Version ServerVersion
}

// Command is one intended configuration change.
type Command interface {
	Apply(ctx context.Context, cc *CommandContext) error
}

// CommandFunc adapts a function to Command.
type CommandFunc func(ctx context.Context, cc *CommandContext) error

// Apply calls f.
func (f CommandFunc) Apply(ctx context.Context, cc *CommandContext) error { return f(ctx, cc) }

// Apply applies commands in order and stops at the first failure, which is
// returned as *CommandFailedError. Changes made by earlier commands are not
// undone.
func Apply(ctx context.Context, client Client, commands ...Command) error {
	version, err := client.Version(ctx)
	if err != nil {
		return &CommandFailedError{Err: err}
	}
	cc := &CommandContext{
		Client:  &commandClient{client: client},
		Options: client.Options(),
		Version: version,
	}
	for _, cmd := range commands {
		if err := ctx.Err(); err != nil {
			return &CommandFailedError{Command: describe(cmd), Err: err}
		}
		if err := applyOne(ctx, cmd, cc); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(ctx context.Context, cmd Command, cc *CommandContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CommandFailedError{Command: describe(cmd), Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := cmd.Apply(ctx, cc); err != nil {
		return normalize(describe(cmd), err)
	}
	return nil
}

// normalize wraps err in *CommandFailedError unless it already is one.
func normalize(command string, err error) error {
	var cfe *CommandFailedError
	if errors.As(err, &cfe) {
		return err
	}
	return &CommandFailedError{Command: command, Err: err}
}

func describe(cmd Command) string {
	if s, ok := cmd.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", cmd)
}

// commandClient is the Client handed to commands.
type commandClient struct {
	client Client
}

func (c *commandClient) Execute(ctx context.Context, op *protocol.Node) (*Result, error) {
	res, err := c.client.Execute(ctx, op)
	if err != nil {
		return nil, normalize(Render(op), err)
	}
	return res, nil
}

func (c *commandClient) ExecuteCLI(ctx context.Context, line string) (*Result, error) {
	res, err := c.client.ExecuteCLI(ctx, line)
	if err != nil {
		return nil, normalize(line, err)
	}
	return res, nil
}

func (c *commandClient) ExecuteCLICommand(ctx context.Context, line string) error {
	if err := c.client.ExecuteCLICommand(ctx, line); err != nil {
		return normalize(line, err)
	}
	return nil
}

func (c *commandClient) Reconnect(ctx context.Context, timeout time.Duration) error {
	if err := c.client.Reconnect(ctx, timeout); err != nil {
		return normalize("reconnect", err)
	}
	return nil
}

func (c *commandClient) Version(ctx context.Context) (ServerVersion, error) {
	v, err := c.client.Version(ctx)
	if err != nil {
		return ServerVersion{}, normalize("version", err)
	}
	return v, nil
}

func (c *commandClient) Options() Options { return c.client.Options() }

// Close is not forwarded; the session outlives the commands applied to it.
func (c *commandClient) Close() error {
	return &CommandFailedError{Command: "close", Err: fmt.Errorf("%w: commands must not close the client", ErrInvalidArgument)}
}
