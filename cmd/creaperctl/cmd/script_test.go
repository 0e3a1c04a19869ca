package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wildfly-extras/creaper-sub003/internal/config"
	"github.com/wildfly-extras/creaper-sub003/internal/mgmttest"
	"github.com/wildfly-extras/creaper-sub003/online"
	"github.com/wildfly-extras/creaper-sub003/protocol"
)

const script = `
commands:
  - cli: /subsystem=logging/logger=org.example:add(level=DEBUG)
  - name: add properties
    batch:
      - /system-property=a:add(value=1)
      - /system-property=b:add(value=2)
  - operation:
      address: /system-property=a
      name: write-attribute
      params: {name: value, value: "3"}
  - cli: cd /subsystem=logging
reload_if_required: true
`

func session(t *testing.T, srv *mgmttest.Server) *online.Session {
	t.Helper()
	opts, err := online.NewOptions(online.Standalone(), online.WrappedTransport(srv.Transport()),
		online.Logger(zap.NewNop().Sugar()))
	require.NoError(t, err)
	s, err := online.Connect(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestParseScript(t *testing.T) {
	s, err := ParseScript(strings.NewReader(script))
	require.NoError(t, err)
	require.Len(t, s.Commands, 4)
	assert.True(t, s.ReloadIfRequired)
	assert.Equal(t, "add properties", s.Commands[1].String())
	assert.Equal(t, "/system-property=a:write-attribute", s.Commands[2].String())

	for _, bad := range []string{
		"",
		"commands: [{}]",
		"commands: [{cli: ':whoami', batch: [':whoami']}]",
		"commands: [{operation: {address: /}}]",
		"commands: [{unknown: x}]",
	} {
		_, err := ParseScript(strings.NewReader(bad))
		assert.Error(t, err, bad)
	}
}

func TestScriptRun(t *testing.T) {
	srv := mgmttest.New()
	s, err := ParseScript(strings.NewReader(script))
	require.NoError(t, err)

	reports, err := s.Run(context.Background(), session(t, srv))
	require.NoError(t, err)
	for _, r := range reports {
		assert.True(t, r.Ran, r.Step.String())
		assert.NoError(t, r.Err, r.Step.String())
	}

	assert.True(t, srv.Exists(protocol.Subsystem("logging").And("logger", "org.example")))
	v, ok := srv.Attribute(protocol.Root().And("system-property", "a"), "value")
	require.True(t, ok)
	assert.Equal(t, `"3"`, v.String())
	assert.True(t, srv.Exists(protocol.Root().And("system-property", "b")))
}

func TestScriptRunStopsAtFailure(t *testing.T) {
	srv := mgmttest.New()
	s, err := ParseScript(strings.NewReader(`
commands:
  - cli: /system-property=x:add(value=1)
  - cli: /subsystem=missing:remove
  - cli: /system-property=y:add(value=1)
`))
	require.NoError(t, err)

	reports, err := s.Run(context.Background(), session(t, srv))
	var cfe *online.CommandFailedError
	require.ErrorAs(t, err, &cfe)
	assert.Equal(t, "/subsystem=missing:remove", cfe.Command)

	assert.True(t, reports[0].Ran)
	assert.NoError(t, reports[0].Err)
	assert.True(t, reports[1].Ran)
	assert.Error(t, reports[1].Err)
	assert.False(t, reports[2].Ran)
	assert.False(t, srv.Exists(protocol.Root().And("system-property", "y")))

	var out bytes.Buffer
	printReports(&out, reports)
	assert.Contains(t, out.String(), "skipped")
}

func TestScriptIgnoreFailure(t *testing.T) {
	srv := mgmttest.New()
	s, err := ParseScript(strings.NewReader(`
commands:
  - cli: /subsystem=missing:remove
    ignore_failure: true
  - cli: /system-property=z:add(value=1)
`))
	require.NoError(t, err)
	_, err = s.Run(context.Background(), session(t, srv))
	require.NoError(t, err)
	assert.True(t, srv.Exists(protocol.Root().And("system-property", "z")))
}

func TestTargetMergesFlags(t *testing.T) {
	t.Cleanup(func() {
		cfg, serverName, override, domainMode = config.Default(), "", config.Server{}, false
	})
	cfg = &config.Config{Servers: map[string]config.Server{
		"lab": {Host: "wildfly.lab", Port: 9990, Username: "admin", Password: "secret"},
	}}

	srv, err := target()
	require.NoError(t, err)
	assert.Equal(t, "wildfly.lab", srv.Host, "the only server is the default")

	override = config.Server{Port: 19990, Password: "other", DefaultProfile: "full"}
	domainMode = true
	srv, err = target()
	require.NoError(t, err)
	assert.Equal(t, "wildfly.lab", srv.Host)
	assert.Equal(t, 19990, srv.Port)
	assert.Equal(t, "admin", srv.Username)
	assert.Equal(t, "other", srv.Password)
	assert.Equal(t, config.ModeDomain, srv.Mode)
	assert.Equal(t, "full", srv.DefaultProfile)

	override = config.Server{Socket: "/tmp/mgmt.sock"}
	srv, err = target()
	require.NoError(t, err)
	assert.Empty(t, srv.Host)
	assert.Equal(t, "/tmp/mgmt.sock", srv.Socket)

	serverName = "nope"
	_, err = target()
	assert.ErrorIs(t, err, config.ErrUnknownServer)
}

func TestPrintResult(t *testing.T) {
	var out bytes.Buffer
	res := online.NewResult(protocol.Object().
		Set(protocol.OutcomeKey, protocol.OutcomeSuccess).
		Set(protocol.ResultKey, protocol.Object().Set("level", "INFO").Set("enabled", true)))
	printResult(&out, res, false)
	assert.Contains(t, out.String(), "level")
	assert.Contains(t, out.String(), "INFO")

	out.Reset()
	printResult(&out, online.NewResult(protocol.Object().
		Set(protocol.OutcomeKey, protocol.OutcomeSuccess).
		Set(protocol.ResultKey, "running")), false)
	assert.Equal(t, "running\n", out.String())

	out.Reset()
	printResult(&out, online.NewResult(protocol.Object().
		Set(protocol.OutcomeKey, protocol.OutcomeFailed).
		Set(protocol.FailureDescriptionKey, "boom")), false)
	assert.Contains(t, out.String(), "boom")
}
