package online

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildfly-extras/creaper-sub003/protocol"
)

func parseResult(t *testing.T, data string) *Result {
	t.Helper()
	n, err := protocol.Parse([]byte(data))
	require.NoError(t, err)
	return NewResult(n)
}

func TestResultOutcome(t *testing.T) {
	ok := parseResult(t, `{"outcome": "success", "result": "INFO"}`)
	assert.True(t, ok.IsSuccess())
	assert.False(t, ok.IsFailed())
	assert.NoError(t, ok.AssertSuccess())
	assert.Error(t, ok.AssertFailed())

	failed := parseResult(t, `{"outcome": "failed", "failure-description": "WFLYCTL0216: Management resource '[(\"subsystem\" => \"x\")]' not found", "rolled-back": true}`)
	assert.True(t, failed.IsFailed())
	assert.True(t, failed.IsNotFound())
	assert.Contains(t, failed.FailureDescription(), "WFLYCTL0216")

	err := failed.AssertSuccess("adding", "x")
	var ae *AssertionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "adding x", ae.Msg)
	assert.Contains(t, ae.Response, "WFLYCTL0216")

	empty := NewResult(nil)
	assert.False(t, empty.IsSuccess())
	assert.False(t, empty.IsFailed())
	assert.False(t, empty.IsNotFound())
}

func TestResultIsNotFoundOnlyForKnownCodes(t *testing.T) {
	r := parseResult(t, `{"outcome": "failed", "failure-description": "WFLYCTL0212: Duplicate resource"}`)
	assert.False(t, r.IsNotFound())

	legacy := parseResult(t, `{"outcome": "failed", "failure-description": "JBAS014807: Management resource not found"}`)
	assert.True(t, legacy.IsNotFound())
}

func TestResultValues(t *testing.T) {
	r := parseResult(t, `{"outcome": "success", "result": 42}`)
	assert.True(t, r.HasDefinedValue())
	assert.NoError(t, r.AssertDefinedValue())
	assert.Error(t, r.AssertNotDefinedValue())

	i, err := r.IntValue()
	require.NoError(t, err)
	assert.Equal(t, 42, i)
	l, err := r.LongValue()
	require.NoError(t, err)
	assert.Equal(t, int64(42), l)
	s, err := r.StringValue()
	require.NoError(t, err)
	assert.Equal(t, "42", s)

	undefined := parseResult(t, `{"outcome": "success"}`)
	assert.False(t, undefined.HasDefinedValue())
	assert.NoError(t, undefined.AssertNotDefinedValue())
	assert.Error(t, undefined.AssertDefinedValue())
	_, err = undefined.StringValue()
	assert.ErrorIs(t, err, ErrUndefinedValue)
	_, err = undefined.Value()
	assert.ErrorIs(t, err, ErrUndefinedValue)
	assert.Equal(t, "fallback", undefined.StringValueOr("fallback"))
	assert.Equal(t, 7, undefined.IntValueOr(7))
	assert.True(t, undefined.BoolValueOr(true))
	assert.Equal(t, int64(9), undefined.LongValueOr(9))
	assert.Equal(t, []string{"a"}, undefined.StringListValueOr([]string{"a"}))
	assert.Equal(t, `"x"`, undefined.ValueOr(protocol.String("x")).String())

	list := parseResult(t, `{"outcome": "success", "result": ["server-one", "server-two"]}`)
	names, err := list.StringListValue()
	require.NoError(t, err)
	assert.Equal(t, []string{"server-one", "server-two"}, names)
	items, err := list.ListValue()
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestResultFailedValuesAreHidden(t *testing.T) {
	r := parseResult(t, `{"outcome": "failed", "failure-description": "boom", "result": 42}`)
	assert.True(t, r.HasDefinedValue())

	_, err := r.Value()
	assert.ErrorIs(t, err, ErrUndefinedValue)
	var ae *AssertionError
	assert.True(t, errors.As(err, &ae))

	_, err = r.IntValue()
	assert.ErrorIs(t, err, ErrUndefinedValue)
	_, err = r.StringListValue()
	assert.ErrorIs(t, err, ErrUndefinedValue)

	assert.Equal(t, -1, r.IntValueOr(-1))
	assert.Equal(t, "def", r.StringValueOr("def"))
	assert.Equal(t, int64(5), r.LongValueOr(5))
	assert.Nil(t, r.StringListValueOr(nil))
	assert.Equal(t, `"x"`, r.ValueOr(protocol.String("x")).String())
}

func TestResultBatchSteps(t *testing.T) {
	r := parseResult(t, `{"outcome": "success", "result": {
		"step-1": {"outcome": "success", "result": "a"},
		"step-2": {"outcome": "success", "result": "b"}
	}}`)

	first, err := r.ForBatchStep(1)
	require.NoError(t, err)
	assert.Equal(t, "a", first.StringValueOr(""))
	second, err := r.ForBatchStep(2)
	require.NoError(t, err)
	assert.Equal(t, "b", second.StringValueOr(""))

	_, err = r.ForBatchStep(0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = r.ForBatchStep(3)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	collect := func() []string {
		var out []string
		for step := range r.ForAllBatchSteps() {
			out = append(out, step.StringValueOr(""))
		}
		return out
	}
	assert.Equal(t, []string{"a", "b"}, collect())
	assert.Equal(t, []string{"a", "b"}, collect(), "iteration restarts from the first step")
}

func TestResultProcessState(t *testing.T) {
	reload := parseResult(t, `{"outcome": "success", "response-headers": {"operation-requires-reload": true, "process-state": "reload-required"}}`)
	assert.True(t, reload.IsReloadRequired())
	assert.False(t, reload.IsRestartRequired())

	restart := parseResult(t, `{"outcome": "success", "response-headers": {"process-state": "restart-required"}}`)
	assert.True(t, restart.IsRestartRequired())
	assert.False(t, restart.IsReloadRequired())

	plain := parseResult(t, `{"outcome": "success"}`)
	assert.False(t, plain.IsReloadRequired())
	assert.False(t, plain.IsRestartRequired())
}

func TestResultForServer(t *testing.T) {
	r := parseResult(t, `{"outcome": "success", "result": null, "server-groups": {
		"main-server-group": {"host": {"primary": {
			"server-one": {"response": {"outcome": "success", "result": "one"}},
			"server-two": {"response": {"outcome": "failed", "failure-description": "boom"}}
		}}}
	}}`)
	require.True(t, r.IsFromDomain())

	one, err := r.ForServer("primary", "server-one")
	require.NoError(t, err)
	assert.Equal(t, "one", one.StringValueOr(""))

	two, err := r.ForServer("primary", "server-two")
	require.NoError(t, err)
	assert.True(t, two.IsFailed())

	_, err = r.ForServer("primary", "server-three")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = parseResult(t, `{"outcome": "success"}`).ForServer("primary", "server-one")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
