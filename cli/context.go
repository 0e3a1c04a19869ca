package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/shell"

	"github.com/wildfly-extras/creaper-sub003/dispatch"
	"github.com/wildfly-extras/creaper-sub003/protocol"
)

// Executor sends a management operation and returns the full response node.
type Executor func(ctx context.Context, op *protocol.Node) (*protocol.Node, error)

// ErrTerminated is returned by Handle once quit or exit has run.
var ErrTerminated = errors.New("CLI context is terminated")

// CommandError reports a command that ran but did not succeed.
type CommandError struct {
	Line   string
	Reason string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed: %s", e.Line, e.Reason)
}

type handlerFunc func(ctx context.Context, c *Context, args []string) error

var commands *dispatch.Dispatcher[handlerFunc]

func init() {
	commands = newCommands()
}

func newCommands() *dispatch.Dispatcher[handlerFunc] {
	d := dispatch.New[handlerFunc]()
	d.Register("cd", cmdCd, "cn")
	d.Register("pwd", cmdPwd, "pwn")
	d.Register("ls", cmdLs)
	d.Register("echo", cmdEcho)
	d.Register("read-attribute", cmdReadAttribute)
	d.Register("batch", cmdBatch)
	d.Register("run-batch", cmdRunBatch)
	d.Register("discard-batch", cmdDiscardBatch)
	d.Register("list-batch", cmdListBatch)
	d.Register("help", cmdHelp)
	d.Register("quit", cmdQuit, "exit", "q")
	return d
}

// Context evaluates CLI lines against an executor. It keeps the current
// node, an optional pending batch, the exit code of the last line and
// whether the context has been terminated. A Context is not safe for
// concurrent use.
type Context struct {
	exec Executor
	out  io.Writer

	cwd        protocol.Address
	batching   bool
	batch      []*protocol.Node
	exitCode   int
	terminated bool
	last       *protocol.Node

	// argLine is the unsplit argument text of the running command
	argLine string
}

// NewContext binds a context to exec. Command output goes to out; a nil out
// discards it.
func NewContext(exec Executor, out io.Writer) *Context {
	if out == nil {
		out = io.Discard
	}
	return &Context{exec: exec, out: out}
}

// SetOutput redirects command output; a nil w discards it.
func (c *Context) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	c.out = w
}

// ExitCode returns 0 if the last handled line succeeded and 1 otherwise.
func (c *Context) ExitCode() int { return c.exitCode }

// IsTerminated reports whether quit or exit has been handled.
func (c *Context) IsTerminated() bool { return c.terminated }

// CurrentNode returns the node relative paths are resolved against.
func (c *Context) CurrentNode() protocol.Address { return c.cwd }

// InBatch reports whether operations are currently being collected.
func (c *Context) InBatch() bool { return c.batching }

// LastResponse returns the response of the last executed operation.
func (c *Context) LastResponse() *protocol.Node { return c.last }

// BuildOperation parses an operation line relative to the current node.
func (c *Context) BuildOperation(line string) (*protocol.Node, error) {
	return ParseOperation(line, c.cwd)
}

// Handle evaluates one line. Empty lines and '#' comments are no-ops.
func (c *Context) Handle(ctx context.Context, line string) error {
	if c.terminated {
		c.exitCode = 1
		return ErrTerminated
	}
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		c.exitCode = 0
		return nil
	}
	err := c.handle(ctx, line)
	if err != nil {
		c.exitCode = 1
		return err
	}
	c.exitCode = 0
	return nil
}

func (c *Context) handle(ctx context.Context, line string) error {
	if IsOperation(line) {
		op, err := c.BuildOperation(line)
		if err != nil {
			return err
		}
		if c.batching {
			c.batch = append(c.batch, op)
			fmt.Fprintf(c.out, "#%d %s\n", len(c.batch), line)
			return nil
		}
		resp, err := c.execute(ctx, line, op)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, resp.String())
		return nil
	}

	args, err := shell.Fields(line, os.Getenv)
	if err != nil {
		return &SyntaxError{Input: line, Msg: err.Error()}
	}
	if len(args) == 0 {
		return nil
	}
	h, ok := commands.Lookup(args[0])
	if !ok {
		return &CommandError{Line: line, Reason: fmt.Sprintf("unknown command %q", args[0])}
	}
	_, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	c.argLine = strings.TrimSpace(rest)
	defer func() { c.argLine = "" }()
	if err := h(ctx, c, args[1:]); err != nil {
		var ce *CommandError
		var se *SyntaxError
		if errors.As(err, &ce) || errors.As(err, &se) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &CommandError{Line: line, Reason: err.Error()}
	}
	return nil
}

// execute runs op and fails on a failed outcome.
func (c *Context) execute(ctx context.Context, line string, op *protocol.Node) (*protocol.Node, error) {
	resp, err := c.exec(ctx, op)
	if err != nil {
		return nil, err
	}
	c.last = resp
	if outcome, _ := resp.Get(protocol.OutcomeKey).AsString(); outcome != protocol.OutcomeSuccess {
		fd := resp.Get(protocol.FailureDescriptionKey)
		reason, err := fd.AsString()
		if err != nil {
			reason = fd.String()
		}
		return nil, &CommandError{Line: line, Reason: reason}
	}
	return resp, nil
}

func cmdCd(ctx context.Context, c *Context, args []string) error {
	if len(args) == 0 {
		c.cwd = protocol.Root()
		return nil
	}
	// node paths keep their double quotes, which word splitting drops
	addr, err := ParseNodePath(c.argLine, c.cwd)
	if err != nil {
		return err
	}
	if _, err := c.execute(ctx, "cd "+addr.String(), protocol.NewOperation(addr, protocol.OpReadResource)); err != nil {
		return err
	}
	c.cwd = addr
	return nil
}

func cmdPwd(_ context.Context, c *Context, _ []string) error {
	fmt.Fprintln(c.out, c.cwd.String())
	return nil
}

func cmdLs(ctx context.Context, c *Context, args []string) error {
	long := false
	var target string
	for _, a := range args {
		if a == "-l" {
			long = true
			continue
		}
		target = a
	}

	addr := c.cwd
	childType := ""
	if target != "" {
		if strings.Contains(target, "=") || strings.HasPrefix(target, "/") || strings.HasPrefix(target, ".") {
			parsed, err := ParseNodePath(target, c.cwd)
			if err != nil {
				return err
			}
			addr = parsed
		} else {
			childType = target
		}
	}

	if long && childType == "" {
		resp, err := c.execute(ctx, "ls", protocol.NewOperation(addr, protocol.OpReadResource))
		if err != nil {
			return err
		}
		props, err := resp.Get(protocol.ResultKey).Properties()
		if err != nil {
			return err
		}
		for _, p := range props {
			if p.Value.Kind() == protocol.KindObject {
				continue
			}
			fmt.Fprintf(c.out, "%s=%s\n", p.Name, p.Value.String())
		}
		return nil
	}

	var op *protocol.Node
	if childType != "" {
		op = protocol.NewOperation(addr, protocol.OpReadChildrenNames, protocol.P("child-type", childType))
	} else {
		op = protocol.NewOperation(addr, protocol.OpReadChildrenTypes)
	}
	resp, err := c.execute(ctx, "ls", op)
	if err != nil {
		return err
	}
	items, err := resp.Get(protocol.ResultKey).AsList()
	if err != nil {
		return err
	}
	for _, it := range items {
		s, _ := it.AsString()
		fmt.Fprintln(c.out, s)
	}
	return nil
}

func cmdEcho(_ context.Context, c *Context, args []string) error {
	fmt.Fprintln(c.out, strings.Join(args, " "))
	return nil
}

func cmdReadAttribute(ctx context.Context, c *Context, args []string) error {
	addr := c.cwd
	var name string
	for _, a := range args {
		if v, ok := strings.CutPrefix(a, "--node="); ok {
			parsed, err := ParseNodePath(v, c.cwd)
			if err != nil {
				return err
			}
			addr = parsed
			continue
		}
		name = a
	}
	if name == "" {
		return &CommandError{Line: "read-attribute", Reason: "missing attribute name"}
	}
	op := protocol.NewOperation(addr, protocol.OpReadAttribute, protocol.P("name", name))
	resp, err := c.execute(ctx, "read-attribute "+name, op)
	if err != nil {
		return err
	}
	result := resp.Get(protocol.ResultKey)
	if s, err := result.AsString(); err == nil {
		fmt.Fprintln(c.out, s)
	} else {
		fmt.Fprintln(c.out, result.String())
	}
	return nil
}

func cmdBatch(_ context.Context, c *Context, _ []string) error {
	if c.batching {
		return &CommandError{Line: "batch", Reason: "batch already active"}
	}
	c.batching = true
	c.batch = nil
	return nil
}

func cmdRunBatch(ctx context.Context, c *Context, _ []string) error {
	if !c.batching {
		return &CommandError{Line: "run-batch", Reason: "no active batch"}
	}
	steps := c.batch
	c.batching = false
	c.batch = nil
	if len(steps) == 0 {
		return &CommandError{Line: "run-batch", Reason: "batch is empty"}
	}
	if _, err := c.execute(ctx, "run-batch", protocol.Composite(steps...)); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "The batch executed successfully")
	return nil
}

func cmdDiscardBatch(_ context.Context, c *Context, _ []string) error {
	if !c.batching {
		return &CommandError{Line: "discard-batch", Reason: "no active batch"}
	}
	c.batching = false
	c.batch = nil
	return nil
}

func cmdListBatch(_ context.Context, c *Context, _ []string) error {
	if !c.batching {
		return &CommandError{Line: "list-batch", Reason: "no active batch"}
	}
	for i, op := range c.batch {
		fmt.Fprintf(c.out, "#%d %s\n", i+1, op.String())
	}
	return nil
}

func cmdHelp(_ context.Context, c *Context, _ []string) error {
	for _, n := range commands.Names() {
		fmt.Fprintln(c.out, n)
	}
	return nil
}

func cmdQuit(_ context.Context, c *Context, _ []string) error {
	c.terminated = true
	return nil
}
