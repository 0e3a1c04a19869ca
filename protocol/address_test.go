package protocol

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressBuilding(t *testing.T) {
	a := Subsystem("logging").And("logger", "com.example")

	assert.Equal(t, "/subsystem=logging/logger=com.example", a.String())
	assert.Equal(t, 2, a.Len())
	assert.True(t, a.Contains(SubsystemKey))
	assert.False(t, a.Contains(ProfileKey))

	p := a.Prepend(ProfileKey, "full")
	assert.Equal(t, "/profile=full/subsystem=logging/logger=com.example", p.String())
	assert.Equal(t, "/subsystem=logging/logger=com.example", a.String(), "Prepend must not modify the receiver")

	assert.Equal(t, "/subsystem=logging", a.Parent().String())
	assert.Equal(t, "/", Root().String())
	assert.True(t, Root().IsRoot())
}

func TestAddressStringQuotesSeparators(t *testing.T) {
	for _, tc := range []struct {
		value string
		want  string
	}{
		{"plain", "/binding=plain"},
		{"java:global/a", `/binding="java:global/a"`},
		{"a=b", `/binding="a=b"`},
		{`say "hi"`, `/binding="say \"hi\""`},
		{`c:\tmp`, `/binding="c:\\tmp"`},
		{" padded", `/binding=" padded"`},
	} {
		assert.Equal(t, tc.want, Root().And("binding", tc.value).String(), tc.value)
	}
}

func TestAddressAndDoesNotAlias(t *testing.T) {
	base := Subsystem("a")
	x := base.And("k", "1")
	y := base.And("k", "2")

	assert.Equal(t, "/subsystem=a/k=1", x.String())
	assert.Equal(t, "/subsystem=a/k=2", y.String())
}

func TestAddressNodeRoundTrip(t *testing.T) {
	a := Host("master").And(ServerKey, "one")
	back, err := AddressFromNode(a.Node())
	require.NoError(t, err)
	assert.True(t, a.Equal(back))

	parsed, err := Parse([]byte(`[{"subsystem":"logging"},{"logger":"x"}]`))
	require.NoError(t, err)
	back, err = AddressFromNode(parsed)
	require.NoError(t, err)
	assert.Equal(t, "/subsystem=logging/logger=x", back.String())
}

func TestAddressFromNodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		node *Node
	}{
		{name: "scalar", node: String("subsystem=logging")},
		{name: "multi-key element", node: List(Object().Set("a", "1").Set("b", "2"))},
		{name: "nested value", node: List(Object().Set("a", List(String("x"))))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AddressFromNode(tt.node)
			assert.Error(t, err)
		})
	}
}

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress("/subsystem=logging/root-logger=ROOT")
	require.NoError(t, err)
	assert.Equal(t, 2, a.Len())

	root, err := ParseAddress("/")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())

	_, err = ParseAddress("subsystem=logging")
	assert.Error(t, err)
	_, err = ParseAddress("/subsystem")
	assert.Error(t, err)

	_, err = NewAddress("a")
	assert.Error(t, err)
}

func TestOperationHelpers(t *testing.T) {
	op := NewOperation(Subsystem("logging"), OpAdd, P("level", "INFO"))
	assert.Equal(t, OpAdd, OperationName(op))
	assert.Equal(t, []string{OpKey, AddressKey, "level"}, op.Keys())

	addr, err := OperationAddress(op)
	require.NoError(t, err)
	assert.Equal(t, "/subsystem=logging", addr.String())

	SetHeader(op, "rollback-on-runtime-failure", false)
	SetHeader(op, "allow-resource-service-restart", true)
	assert.Equal(t, 2, op.Get(OperationHeadersKey).Len())

	c := Composite(op, NewOperation(Root(), OpReadResource))
	assert.True(t, IsComposite(c))
	steps, err := CompositeSteps(c)
	require.NoError(t, err)
	assert.Len(t, steps, 2)

	_, err = CompositeSteps(Object().Set(OpKey, OpComposite).Set(StepsKey, "nope"))
	assert.Error(t, err)
}

func TestCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := &Request{
		Type:      CmdExecute,
		Auth:      &Auth{User: "admin", Password: "secret"},
		Operation: NewOperation(Subsystem("logging"), OpReadResource),
	}
	require.NoError(t, WriteRequest(&buf, req))
	require.NoError(t, WriteResponse(&buf, &Response{Status: StatusOK, Result: Object().Set(OutcomeKey, OutcomeSuccess)}))

	r := bufio.NewReader(&buf)
	gotReq, err := ReadRequest(r)
	require.NoError(t, err)
	assert.Equal(t, CmdExecute, gotReq.Type)
	assert.Equal(t, "admin", gotReq.Auth.User)
	assert.Equal(t, OpReadResource, OperationName(gotReq.Operation))

	gotResp, err := ReadResponse(r)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, gotResp.Status)
	outcome, err := gotResp.Result.Get(OutcomeKey).AsString()
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
}
