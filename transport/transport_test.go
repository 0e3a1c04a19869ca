package transport_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildfly-extras/creaper-sub003/internal/mgmttest"
	"github.com/wildfly-extras/creaper-sub003/protocol"
	"github.com/wildfly-extras/creaper-sub003/transport"
)

func readRoot() *protocol.Node {
	return protocol.NewOperation(protocol.Root(), protocol.OpReadResource)
}

func outcome(t *testing.T, resp *protocol.Node) string {
	t.Helper()
	s, err := resp.Get(protocol.OutcomeKey).AsString()
	require.NoError(t, err)
	return s
}

func TestTransports(t *testing.T) {
	for _, tc := range []struct {
		name  string
		start func(*mgmttest.Server, testing.TB) transport.Config
	}{
		{"http", (*mgmttest.Server).StartHTTP},
		{"stream", (*mgmttest.Server).StartStream},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := mgmttest.New(mgmttest.WithCredentials("admin", "secret"))
			cfg := tc.start(srv, t)

			tr, err := transport.Dial(context.Background(), cfg)
			require.NoError(t, err)
			defer tr.Close()

			resp, err := tr.Execute(context.Background(), readRoot())
			require.NoError(t, err)
			assert.Equal(t, protocol.OutcomeSuccess, outcome(t, resp))
			assert.True(t, resp.At(protocol.ResultKey, protocol.SubsystemKey).IsDefined())

			// failed outcomes are responses, not errors
			missing := protocol.NewOperation(protocol.Subsystem("missing"), protocol.OpReadResource)
			resp, err = tr.Execute(context.Background(), missing)
			require.NoError(t, err)
			assert.Equal(t, protocol.OutcomeFailed, outcome(t, resp))

			require.NoError(t, tr.Close())
			require.NoError(t, tr.Close())
		})
	}
}

func TestTransportsRejectBadCredentials(t *testing.T) {
	srv := mgmttest.New(mgmttest.WithCredentials("admin", "secret"))

	httpCfg := srv.StartHTTP(t)
	httpCfg.Password = "wrong"
	tr, err := transport.Dial(context.Background(), httpCfg)
	require.NoError(t, err)
	_, err = tr.Execute(context.Background(), readRoot())
	assert.True(t, transport.IsAuthError(err), "got %v", err)

	streamCfg := srv.StartStream(t)
	streamCfg.Password = "wrong"
	_, err = transport.Dial(context.Background(), streamCfg)
	assert.True(t, transport.IsAuthError(err), "got %v", err)
}

func TestHTTPNonJSONBodyIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "<html>boom</html>", http.StatusBadGateway)
	}))
	defer srv.Close()
	addr := srv.Listener.Addr().(*net.TCPAddr)

	tr, err := transport.NewHTTP(transport.Config{Protocol: transport.ProtocolHTTP, Host: addr.IP.String(), Port: addr.Port})
	require.NoError(t, err)
	_, err = tr.Execute(context.Background(), readRoot())

	var te *transport.Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, transport.KindProtocol, te.Kind)
}

func TestDialRefusedIsIOError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	_, err = transport.Dial(context.Background(), transport.Config{
		Protocol: transport.ProtocolStream,
		Host:     "127.0.0.1",
		Port:     port,
		Timeout:  time.Second,
	})
	var te *transport.Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, transport.KindIO, te.Kind)
	assert.Contains(t, te.Error(), strconv.Itoa(port))
}

func TestDialRejectsUnknownProtocol(t *testing.T) {
	_, err := transport.Dial(context.Background(), transport.Config{Protocol: "remote+http", Host: "localhost", Port: 9990})
	assert.Error(t, err)

	_, err = transport.NewHTTP(transport.Config{Protocol: transport.ProtocolHTTP, Socket: "/tmp/x.sock"})
	assert.Error(t, err)
}

func TestStreamHonoursContext(t *testing.T) {
	srv := mgmttest.New()
	tr, err := transport.Dial(context.Background(), srv.StartStream(t))
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Execute(ctx, readRoot())
	assert.Error(t, err)
}

func TestStreamDropsConnectionAfterTimeout(t *testing.T) {
	srv := mgmttest.New(mgmttest.WithOperation("slow", func(*protocol.Node) *protocol.Node {
		time.Sleep(300 * time.Millisecond)
		return protocol.Object().Set(protocol.OutcomeKey, protocol.OutcomeSuccess).Set(protocol.ResultKey, "late")
	}))
	tr, err := transport.Dial(context.Background(), srv.StartStream(t))
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = tr.Execute(ctx, protocol.NewOperation(protocol.Root(), "slow"))
	require.Error(t, err)

	// the late reply must not answer this request
	time.Sleep(300 * time.Millisecond)
	resp, err := tr.Execute(context.Background(), readRoot())
	assert.Nil(t, resp)
	var te *transport.Error
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, transport.KindIO, te.Kind)
	assert.ErrorIs(t, err, net.ErrClosed)
}
