package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/wildfly-extras/creaper-sub003/protocol"
)

// managementPath is where the HTTP management endpoint accepts operations.
const managementPath = "/management"

// HTTP implements Transport over the HTTP management API.
type HTTP struct {
	// url is the full management endpoint URL
	url string
	// cfg carries credentials for every request
	cfg Config
	// client is the underlying HTTP client with configured timeout
	client *http.Client
}

// NewHTTP creates an HTTP transport for cfg.
func NewHTTP(cfg Config) (*HTTP, error) {
	if cfg.Socket != "" {
		return nil, fmt.Errorf("unix sockets are not supported by the %s protocol", cfg.Protocol)
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("management host is required")
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLS != nil {
		tr.TLSClientConfig = cfg.TLS.Clone()
	}
	return &HTTP{
		url:    cfg.Protocol + "://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)) + managementPath,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.timeout(), Transport: tr},
	}, nil
}

// Execute POSTs op as JSON. The management endpoint answers failed
// operations with a 500 and a JSON body; such bodies are returned as
// responses, not errors.
func (h *HTTP) Execute(ctx context.Context, op *protocol.Node) (*protocol.Node, error) {
	body, err := json.Marshal(op)
	if err != nil {
		return nil, &Error{Endpoint: h.cfg.Endpoint(), Kind: KindProtocol, Reason: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Endpoint: h.cfg.Endpoint(), Kind: KindIO, Reason: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if h.cfg.Username != "" {
		req.SetBasicAuth(h.cfg.Username, h.cfg.Password)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &Error{Endpoint: h.cfg.Endpoint(), Kind: KindIO, Reason: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &Error{Endpoint: h.cfg.Endpoint(), Kind: KindAuth, Reason: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Endpoint: h.cfg.Endpoint(), Kind: KindIO, Reason: err}
	}
	result, err := protocol.Parse(data)
	if err != nil || result.Kind() != protocol.KindObject {
		if err == nil {
			err = fmt.Errorf("unexpected response body %q", truncate(data, 200))
		}
		return nil, &Error{
			Endpoint: h.cfg.Endpoint(),
			Kind:     KindProtocol,
			Reason:   fmt.Errorf("HTTP %d: %w", resp.StatusCode, err),
		}
	}
	return result, nil
}

// Close releases idle connections.
func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
