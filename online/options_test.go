package online

import (
	"crypto/tls"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildfly-extras/creaper-sub003/internal/mgmttest"
	"github.com/wildfly-extras/creaper-sub003/transport"
)

func TestNewOptionsDefaults(t *testing.T) {
	opts, err := NewOptions(Standalone())
	require.NoError(t, err)

	assert.False(t, opts.IsDomain())
	assert.False(t, opts.IsWrapped())
	assert.Equal(t, DefaultConnectionTimeout, opts.ConnectionTimeout())
	assert.Equal(t, DefaultBootTimeout, opts.BootTimeout())
	assert.Equal(t, "http://localhost:9990", opts.Endpoint())
}

func TestNewOptionsRejects(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"no mode", []Option{HostAndPort("localhost", 9990)}},
		{"mode twice", []Option{Standalone(), Domain()}},
		{"two targets", []Option{Standalone(), HostAndPort("a", 1), SocketPath("/tmp/x.sock")}},
		{"empty host", []Option{Standalone(), HostAndPort("", 9990)}},
		{"bad port", []Option{Standalone(), HostAndPort("localhost", 70000)}},
		{"profile in standalone", []Option{Standalone(), DefaultProfile("default")}},
		{"host in standalone", []Option{Standalone(), DefaultHost("primary")}},
		{"empty profile", []Option{Domain(), DefaultProfile("")}},
		{"unknown protocol", []Option{Standalone(), Protocol("remote+http")}},
		{"http over socket", []Option{Standalone(), SocketPath("/tmp/x.sock"), Protocol(transport.ProtocolHTTP)}},
		{"nil wrapped", []Option{Standalone(), WrappedTransport(nil)}},
		{"zero timeout", []Option{Standalone(), ConnectionTimeout(0)}},
		{"negative boot timeout", []Option{Standalone(), BootTimeout(-time.Second)}},
		{"nil tls", []Option{Standalone(), TLSConfig(nil)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOptions(tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestNewOptionsDomain(t *testing.T) {
	opts, err := NewOptions(Domain(), DefaultProfile("full"), DefaultHost("primary"), HostAndPort("dc.example.com", 19990))
	require.NoError(t, err)

	assert.True(t, opts.IsDomain())
	assert.Equal(t, "full", opts.DefaultProfile())
	assert.Equal(t, "primary", opts.DefaultHost())
	assert.Equal(t, "http://dc.example.com:19990", opts.Endpoint())
}

func TestNewOptionsSocketImpliesStream(t *testing.T) {
	opts, err := NewOptions(Standalone(), SocketPath("/run/wildfly/management.sock"))
	require.NoError(t, err)
	cfg := opts.transportConfig()
	assert.Equal(t, transport.ProtocolStream, cfg.Protocol)
	assert.Equal(t, "unix:///run/wildfly/management.sock", opts.Endpoint())
}

func TestNewOptionsWrapped(t *testing.T) {
	opts, err := NewOptions(Standalone(), WrappedTransport(mgmttest.New().Transport()))
	require.NoError(t, err)
	assert.True(t, opts.IsWrapped())
	assert.Equal(t, "wrapped", opts.Endpoint())
}

func TestTLSConfigIsCopied(t *testing.T) {
	cfg := &tls.Config{ServerName: "a"}
	opts, err := NewOptions(Standalone(), Protocol(transport.ProtocolHTTPS), TLSConfig(cfg))
	require.NoError(t, err)
	cfg.ServerName = "b"
	assert.Equal(t, "a", opts.transportConfig().TLS.ServerName)
}
