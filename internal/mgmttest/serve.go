package mgmttest

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/wildfly-extras/creaper-sub003/internal/logging"
	"github.com/wildfly-extras/creaper-sub003/protocol"
	"github.com/wildfly-extras/creaper-sub003/transport"
)

const maxBody = 4 << 20

// Handler serves POST /management requests the way the HTTP management
// interface does: success responses with 200, failed outcomes with 500 and a
// JSON body, bad credentials with 401.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/management", s.handleHTTP)
	return mux
}

func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.Available() {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	user, password, _ := r.BasicAuth()
	s.mu.Lock()
	ok := s.authorized(user, password)
	s.mu.Unlock()
	if !ok {
		w.Header().Set("WWW-Authenticate", `Basic realm="ManagementRealm"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	op, err := protocol.Parse(body)
	if err != nil || op.Kind() != protocol.KindObject {
		http.Error(w, "malformed operation", http.StatusBadRequest)
		return
	}

	resp := s.Execute(op)
	data, err := resp.MarshalJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if isSuccess(resp) {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusInternalServerError)
	}
	_, _ = w.Write(data)
}

// StartHTTP serves the HTTP management interface until the test ends and
// returns a transport config pointing at it.
func (s *Server) StartHTTP(t testing.TB) transport.Config {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	addr := srv.Listener.Addr().(*net.TCPAddr)
	return transport.Config{
		Protocol: transport.ProtocolHTTP,
		Host:     addr.IP.String(),
		Port:     addr.Port,
		Username: s.username,
		Password: s.password,
	}
}

// StartStream serves the stream envelope on a loopback TCP port until the
// test ends and returns a transport config pointing at it.
func (s *Server) StartStream(t testing.TB) transport.Config {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("mgmttest: listen: %v", err)
	}
	logging.Log.Debugf("[mgmttest] Listening on %s", ln.Addr())

	var wg sync.WaitGroup
	conns := &connSet{m: make(map[net.Conn]struct{})}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.Log.Debugf("[mgmttest] Accept error: %v", err)
				continue
			}
			if !conns.add(conn) {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer conns.remove(conn)
				s.handleConn(conn)
			}()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		conns.closeAll()
		wg.Wait()
	})

	addr := ln.Addr().(*net.TCPAddr)
	return transport.Config{
		Protocol: transport.ProtocolStream,
		Host:     addr.IP.String(),
		Port:     addr.Port,
		Username: s.username,
		Password: s.password,
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)

	for {
		req, err := protocol.ReadRequest(reader)
		if err != nil {
			return
		}
		if !s.Available() {
			return
		}

		var user, password string
		if req.Auth != nil {
			user, password = req.Auth.User, req.Auth.Password
		}
		s.mu.Lock()
		ok := s.authorized(user, password)
		s.mu.Unlock()

		var resp *protocol.Response
		switch {
		case !ok:
			resp = &protocol.Response{Status: protocol.StatusError, Error: protocol.ErrorNotAuthenticated}
		case req.Type == protocol.CmdPing:
			resp = &protocol.Response{Status: protocol.StatusOK}
		case req.Type == protocol.CmdExecute && req.Operation != nil:
			resp = &protocol.Response{Status: protocol.StatusOK, Result: s.Execute(req.Operation)}
		case req.Type == protocol.CmdExecute:
			resp = &protocol.Response{Status: protocol.StatusError, Error: "missing operation"}
		default:
			resp = &protocol.Response{Status: protocol.StatusError, Error: "unknown request type"}
		}
		if err := protocol.WriteResponse(conn, resp); err != nil {
			return
		}
		// a reload or restart drops the connection once answered
		if !s.Available() {
			return
		}
	}
}

type connSet struct {
	mu     sync.Mutex
	m      map[net.Conn]struct{}
	closed bool
}

// add tracks conn. Once closeAll has run, conn is closed instead and add
// reports false.
func (c *connSet) add(conn net.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = conn.Close()
		return false
	}
	c.m[conn] = struct{}{}
	return true
}

func (c *connSet) remove(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, conn)
}

func (c *connSet) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for conn := range c.m {
		_ = conn.Close()
	}
}

// Transport returns an in-process transport bound to the server.
func (s *Server) Transport() transport.Transport {
	return &memTransport{s: s}
}

type memTransport struct {
	s      *Server
	closed atomic.Bool
}

func (m *memTransport) Execute(ctx context.Context, op *protocol.Node) (*protocol.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.closed.Load() {
		return nil, &transport.Error{Endpoint: "mgmttest", Kind: transport.KindIO, Reason: net.ErrClosed}
	}
	if !m.s.Available() {
		return nil, &transport.Error{Endpoint: "mgmttest", Kind: transport.KindIO, Reason: errors.New("connection refused")}
	}
	return m.s.Execute(op.Clone()), nil
}

func (m *memTransport) Close() error {
	m.closed.Store(true)
	return nil
}
