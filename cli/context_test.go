package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildfly-extras/creaper-sub003/protocol"
)

type recorder struct {
	ops     []*protocol.Node
	respond func(op *protocol.Node) *protocol.Node
}

func (r *recorder) exec(_ context.Context, op *protocol.Node) (*protocol.Node, error) {
	r.ops = append(r.ops, op)
	if r.respond != nil {
		return r.respond(op), nil
	}
	return protocol.Object().Set(protocol.OutcomeKey, protocol.OutcomeSuccess), nil
}

func failed(msg string) *protocol.Node {
	return protocol.Object().
		Set(protocol.OutcomeKey, protocol.OutcomeFailed).
		Set(protocol.FailureDescriptionKey, msg)
}

func TestContextOperation(t *testing.T) {
	rec := &recorder{}
	var out bytes.Buffer
	c := NewContext(rec.exec, &out)

	require.NoError(t, c.Handle(context.Background(), "/subsystem=logging:read-resource"))
	assert.Equal(t, 0, c.ExitCode())
	require.Len(t, rec.ops, 1)
	assert.Equal(t, protocol.OpReadResource, protocol.OperationName(rec.ops[0]))
	assert.Contains(t, out.String(), protocol.OutcomeSuccess)
}

func TestContextFailedOperation(t *testing.T) {
	rec := &recorder{respond: func(*protocol.Node) *protocol.Node { return failed("WFLYCTL0216: not found") }}
	c := NewContext(rec.exec, nil)

	err := c.Handle(context.Background(), "/subsystem=nope:read-resource")
	var ce *CommandError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "WFLYCTL0216: not found", ce.Reason)
	assert.Equal(t, 1, c.ExitCode())
}

func TestContextUnknownCommand(t *testing.T) {
	c := NewContext((&recorder{}).exec, nil)
	err := c.Handle(context.Background(), "frobnicate now")
	var ce *CommandError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, 1, c.ExitCode())

	require.NoError(t, c.Handle(context.Background(), "# comment"))
	assert.Equal(t, 0, c.ExitCode())
}

func TestContextCdAndPwd(t *testing.T) {
	rec := &recorder{}
	var out bytes.Buffer
	c := NewContext(rec.exec, &out)
	ctx := context.Background()

	require.NoError(t, c.Handle(ctx, "cd /subsystem=logging"))
	assert.Equal(t, "/subsystem=logging", c.CurrentNode().String())

	require.NoError(t, c.Handle(ctx, "cd logger=a"))
	assert.Equal(t, "/subsystem=logging/logger=a", c.CurrentNode().String())

	require.NoError(t, c.Handle(ctx, ":remove"))
	addr, _ := protocol.OperationAddress(rec.ops[len(rec.ops)-1])
	assert.Equal(t, "/subsystem=logging/logger=a", addr.String())

	require.NoError(t, c.Handle(ctx, "cd .."))
	out.Reset()
	require.NoError(t, c.Handle(ctx, "pwd"))
	assert.Equal(t, "/subsystem=logging\n", out.String())

	require.NoError(t, c.Handle(ctx, "cd"))
	assert.True(t, c.CurrentNode().IsRoot())
}

func TestContextCdAcceptsPrintedPath(t *testing.T) {
	rec := &recorder{}
	var out bytes.Buffer
	c := NewContext(rec.exec, &out)
	ctx := context.Background()

	want := protocol.Subsystem("naming").And("binding", "java:global/a b")
	require.NoError(t, c.Handle(ctx, "cd "+want.String()))
	assert.True(t, want.Equal(c.CurrentNode()), "got %s", c.CurrentNode())

	out.Reset()
	require.NoError(t, c.Handle(ctx, "pwd"))
	assert.Equal(t, `/subsystem=naming/binding="java:global/a b"`+"\n", out.String())

	back, err := ParseNodePath(c.CurrentNode().String(), protocol.Root())
	require.NoError(t, err)
	assert.True(t, want.Equal(back))
}

func TestContextCdToMissingNodeFails(t *testing.T) {
	rec := &recorder{respond: func(*protocol.Node) *protocol.Node { return failed("not found") }}
	c := NewContext(rec.exec, nil)
	assert.Error(t, c.Handle(context.Background(), "cd /subsystem=missing"))
	assert.True(t, c.CurrentNode().IsRoot())
}

func TestContextBatch(t *testing.T) {
	rec := &recorder{}
	c := NewContext(rec.exec, nil)
	ctx := context.Background()

	require.NoError(t, c.Handle(ctx, "batch"))
	assert.True(t, c.InBatch())
	require.NoError(t, c.Handle(ctx, "/system-property=a:add(value=1)"))
	require.NoError(t, c.Handle(ctx, "/system-property=b:add(value=2)"))
	assert.Empty(t, rec.ops)

	require.NoError(t, c.Handle(ctx, "run-batch"))
	assert.False(t, c.InBatch())
	require.Len(t, rec.ops, 1)
	steps, err := protocol.CompositeSteps(rec.ops[0])
	require.NoError(t, err)
	assert.Len(t, steps, 2)

	assert.Error(t, c.Handle(ctx, "run-batch"))

	require.NoError(t, c.Handle(ctx, "batch"))
	require.NoError(t, c.Handle(ctx, "discard-batch"))
	assert.False(t, c.InBatch())
	assert.Len(t, rec.ops, 1)
}

func TestContextEchoUsesShellQuoting(t *testing.T) {
	var out bytes.Buffer
	c := NewContext((&recorder{}).exec, &out)
	require.NoError(t, c.Handle(context.Background(), `echo "hello   world" 'and more'`))
	assert.Equal(t, "hello   world and more\n", out.String())
}

func TestContextLs(t *testing.T) {
	rec := &recorder{respond: func(op *protocol.Node) *protocol.Node {
		resp := protocol.Object().Set(protocol.OutcomeKey, protocol.OutcomeSuccess)
		switch protocol.OperationName(op) {
		case protocol.OpReadChildrenTypes:
			resp.Set(protocol.ResultKey, []string{"logger", "handler"})
		case protocol.OpReadChildrenNames:
			resp.Set(protocol.ResultKey, []string{"com.example"})
		}
		return resp
	}}
	var out bytes.Buffer
	c := NewContext(rec.exec, &out)
	ctx := context.Background()

	require.NoError(t, c.Handle(ctx, "ls /subsystem=logging"))
	assert.Equal(t, "logger\nhandler\n", out.String())

	out.Reset()
	require.NoError(t, c.Handle(ctx, "ls logger"))
	assert.Equal(t, "com.example\n", out.String())
	childType, _ := rec.ops[1].Get("child-type").AsString()
	assert.Equal(t, "logger", childType)
}

func TestContextQuit(t *testing.T) {
	c := NewContext((&recorder{}).exec, nil)
	require.NoError(t, c.Handle(context.Background(), "quit"))
	assert.True(t, c.IsTerminated())
	assert.ErrorIs(t, c.Handle(context.Background(), "pwd"), ErrTerminated)
	assert.Equal(t, 1, c.ExitCode())
}

func TestContextSyntaxError(t *testing.T) {
	c := NewContext((&recorder{}).exec, nil)
	err := c.Handle(context.Background(), "/subsystem=logging:add(level=")
	var se *SyntaxError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, 1, c.ExitCode())
}

func TestContextSetOutput(t *testing.T) {
	var first, second bytes.Buffer
	c := NewContext(func(context.Context, *protocol.Node) (*protocol.Node, error) {
		return protocol.Object().Set(protocol.OutcomeKey, protocol.OutcomeSuccess), nil
	}, &first)

	require.NoError(t, c.Handle(context.Background(), "echo one"))
	c.SetOutput(&second)
	require.NoError(t, c.Handle(context.Background(), "echo two"))
	c.SetOutput(nil)
	require.NoError(t, c.Handle(context.Background(), "echo three"))

	assert.Equal(t, "one\n", first.String())
	assert.Equal(t, "two\n", second.String())
}
