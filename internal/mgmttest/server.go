// Package mgmttest provides an in-memory management server for tests. It
// keeps a small standalone or domain resource tree, executes the common
// management operations against it and serves them over HTTP, over the
// stream envelope or through an in-process transport.
package mgmttest

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wildfly-extras/creaper-sub003/dispatch"
	"github.com/wildfly-extras/creaper-sub003/internal/logging"
	"github.com/wildfly-extras/creaper-sub003/protocol"
)

// Names used by the domain model.
const (
	DomainProfile     = "default"
	DomainHost        = "primary"
	DomainServerGroup = "main-server-group"
)

// DomainServers are the servers of DomainServerGroup on DomainHost.
var DomainServers = []string{"server-one", "server-two"}

// Version is the management and product version the server reports.
type Version struct {
	Major, Minor, Micro int
	Product             string
}

// DefaultVersion matches a recent WildFly release.
var DefaultVersion = Version{Major: 20, Minor: 0, Micro: 0, Product: "27.0.0.Final"}

// OperationFunc answers one operation. It runs with the server lock held.
type OperationFunc func(op *protocol.Node) *protocol.Node

type opHandler func(s *Server, addr protocol.Address, op *protocol.Node) *protocol.Node

// Option configures a Server.
type Option func(*Server)

// Domain makes the server a domain controller.
func Domain() Option { return func(s *Server) { s.domain = true } }

// WithVersion sets the reported versions.
func WithVersion(v Version) Option { return func(s *Server) { s.version = v } }

// OmitVersion removes the management version attributes from the root.
func OmitVersion() Option { return func(s *Server) { s.omitVersion = true } }

// WithCredentials requires the given user and password on every request.
func WithCredentials(user, password string) Option {
	return func(s *Server) { s.username, s.password = user, password }
}

// WithReloadDowntime makes the server unavailable for d after a reload or
// restart has been answered.
func WithReloadDowntime(d time.Duration) Option { return func(s *Server) { s.downtime = d } }

// WithReloadAttributes lists attributes whose writes put the server into
// reload-required.
func WithReloadAttributes(names ...string) Option {
	return func(s *Server) {
		for _, n := range names {
			s.reloadAttrs[n] = true
		}
	}
}

// WithOperation replaces or adds an operation handler.
func WithOperation(name string, fn OperationFunc) Option {
	return func(s *Server) { s.custom[name] = fn }
}

// Server is an in-memory management endpoint. It is safe for concurrent use.
type Server struct {
	mu sync.Mutex

	id          string
	domain      bool
	version     Version
	omitVersion bool
	username    string
	password    string
	downtime    time.Duration
	reloadAttrs map[string]bool
	custom      map[string]OperationFunc

	root         *resource
	ops          *dispatch.Dispatcher[opHandler]
	processState string
	downUntil    time.Time
	down         bool
	calls        []*protocol.Node
	reloads      int
	restarts     int
}

// New creates a standalone server unless Domain is given.
func New(opts ...Option) *Server {
	s := &Server{
		id:          uuid.NewString(),
		version:     DefaultVersion,
		reloadAttrs: map[string]bool{"default-server": true},
		custom:      make(map[string]OperationFunc),
	}
	for _, o := range opts {
		o(s)
	}

	if s.domain {
		s.root = domainModel(s.version)
	} else {
		s.root = standaloneModel(s.version)
	}
	s.root.attrs.Set("uuid", s.id)
	if s.omitVersion {
		s.root.attrs.Remove(protocol.ManagementMajorVersion)
		s.root.attrs.Remove(protocol.ManagementMinorVersion)
		s.root.attrs.Remove(protocol.ManagementMicroVersion)
	}

	s.ops = dispatch.New[opHandler]()
	for name, h := range defaultHandlers() {
		if fn, ok := s.custom[name]; ok {
			h = wrapCustom(fn)
		}
		s.ops.Register(name, h)
	}
	for name, fn := range s.custom {
		if _, ok := s.ops.Lookup(name); !ok {
			s.ops.Register(name, wrapCustom(fn))
		}
	}
	return s
}

func wrapCustom(fn OperationFunc) opHandler {
	return func(_ *Server, _ protocol.Address, op *protocol.Node) *protocol.Node { return fn(op) }
}

func defaultHandlers() map[string]opHandler {
	return map[string]opHandler{
		protocol.OpComposite:         opComposite,
		protocol.OpReadResource:      opReadResource,
		protocol.OpReadAttribute:     opReadAttribute,
		protocol.OpWriteAttribute:    opWriteAttribute,
		protocol.OpUndefineAttribute: opUndefineAttribute,
		protocol.OpAdd:               opAdd,
		protocol.OpRemove:            opRemove,
		protocol.OpReadChildrenNames: opReadChildrenNames,
		protocol.OpReadChildrenTypes: opReadChildrenTypes,
		protocol.OpReadResourceDesc:  opReadResourceDescription,
		protocol.OpWhoAmI:            opWhoAmI,
		protocol.OpReload:            opReload,
		protocol.OpShutdown:          opShutdown,
		protocol.OpReloadServers:     opReloadServers,
		protocol.OpRestartServers:    opRestartServers,
	}
}

// ID returns the uuid the server reports as its root uuid attribute.
func (s *Server) ID() string { return s.id }

// Execute runs op against the model and returns the management response.
func (s *Server) Execute(op *protocol.Node) *protocol.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op.Clone())
	return s.execute(op, true)
}

func (s *Server) execute(op *protocol.Node, top bool) *protocol.Node {
	name := protocol.OperationName(op)
	addr, err := protocol.OperationAddress(op)
	if err != nil {
		return failure(fmt.Sprintf("WFLYCTL0387: Invalid address: %v", err))
	}
	logging.Log.Debugf("[mgmttest] %s:%s", addr, name)

	h, ok := s.ops.Lookup(name)
	if !ok {
		if _, exists := s.root.lookup(addr); !exists {
			return failure(notFound(addr))
		}
		return failure(fmt.Sprintf("WFLYCTL0031: No operation named '%s' exists at the address %s", name, formatAddress(addr)))
	}

	resp := h(s, addr, op)
	if top {
		s.decorate(op, resp)
	}
	return resp
}

// decorate adds the response headers and server-groups a real controller
// attaches to top-level responses.
func (s *Server) decorate(op, resp *protocol.Node) {
	if !isSuccess(resp) {
		return
	}
	if s.processState != "" {
		headers := protocol.Object().Set(protocol.ProcessStateKey, s.processState)
		switch s.processState {
		case protocol.ProcessStateReloadRequired:
			headers.Set("operation-requires-reload", true)
		case protocol.ProcessStateRestartRequired:
			headers.Set("operation-requires-restart", true)
		}
		resp.Set(protocol.ResponseHeadersKey, headers)
	}
	if s.domain && touchesProfile(op) {
		hostNode := protocol.Object()
		for _, srv := range DomainServers {
			serverResp := protocol.Object().
				Set(protocol.OutcomeKey, protocol.OutcomeSuccess).
				Set(protocol.ResultKey, resp.Get(protocol.ResultKey).Clone())
			hostNode.Set(srv, protocol.Object().Set(protocol.ResponseKey, serverResp))
		}
		group := protocol.Object().Set(protocol.HostKey, protocol.Object().Set(DomainHost, hostNode))
		resp.Set(protocol.ServerGroupsKey, protocol.Object().Set(DomainServerGroup, group))
	}
}

func touchesProfile(op *protocol.Node) bool {
	if protocol.IsComposite(op) {
		steps, _ := protocol.CompositeSteps(op)
		for _, st := range steps {
			if touchesProfile(st) {
				return true
			}
		}
		return false
	}
	addr, err := protocol.OperationAddress(op)
	if err != nil {
		return false
	}
	first, ok := addr.First()
	return ok && first.Key == protocol.ProfileKey && isWrite(protocol.OperationName(op))
}

func isWrite(name string) bool {
	switch name {
	case protocol.OpAdd, protocol.OpRemove, protocol.OpWriteAttribute, protocol.OpUndefineAttribute:
		return true
	}
	return false
}

// Operations returns copies of every top-level operation received so far.
func (s *Server) Operations() []*protocol.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*protocol.Node, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.Clone()
	}
	return out
}

// Reloads returns how many reloads the server performed.
func (s *Server) Reloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloads
}

// Restarts returns how many restarts the server performed.
func (s *Server) Restarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}

// ProcessState returns "", reload-required or restart-required.
func (s *Server) ProcessState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processState
}

// SetProcessState forces the process state reported in response headers.
func (s *Server) SetProcessState(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processState = state
}

// SetAvailable stops or resumes answering requests.
func (s *Server) SetAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = !available
	if available {
		s.downUntil = time.Time{}
	}
}

// Available reports whether the server currently answers requests.
func (s *Server) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available()
}

func (s *Server) available() bool {
	return !s.down && !time.Now().Before(s.downUntil)
}

// Exists reports whether a resource exists at addr.
func (s *Server) Exists(addr protocol.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.root.lookup(addr)
	return ok
}

// Attribute returns a copy of an attribute value.
func (s *Server) Attribute(addr protocol.Address, name string) (*protocol.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.root.lookup(addr)
	if !ok || !r.attrs.Has(name) {
		return nil, false
	}
	return r.attrs.Get(name).Clone(), true
}

func (s *Server) authorized(user, password string) bool {
	return s.username == "" || (user == s.username && password == s.password)
}

func (s *Server) startDowntime() {
	if s.downtime > 0 {
		s.downUntil = time.Now().Add(s.downtime)
	}
}

func (s *Server) serverState() string {
	if s.processState != "" {
		return s.processState
	}
	return "running"
}

func success(result *protocol.Node) *protocol.Node {
	resp := protocol.Object().Set(protocol.OutcomeKey, protocol.OutcomeSuccess)
	if result != nil {
		resp.Set(protocol.ResultKey, result)
	}
	return resp
}

func failure(desc any) *protocol.Node {
	return protocol.Object().
		Set(protocol.OutcomeKey, protocol.OutcomeFailed).
		Set(protocol.FailureDescriptionKey, desc).
		Set(protocol.RolledBackKey, true)
}

func isSuccess(resp *protocol.Node) bool {
	outcome, _ := resp.Get(protocol.OutcomeKey).AsString()
	return outcome == protocol.OutcomeSuccess
}

func notFound(addr protocol.Address) string {
	return fmt.Sprintf("WFLYCTL0216: Management resource '%s' not found", formatAddress(addr))
}

// formatAddress renders addr the way controller messages do:
// [("subsystem" => "logging"),("logger" => "x")].
func formatAddress(addr protocol.Address) string {
	parts := make([]string, 0, addr.Len())
	for _, seg := range addr.Segments() {
		parts = append(parts, fmt.Sprintf("(%q => %q)", seg.Key, seg.Value))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
