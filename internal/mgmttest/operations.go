package mgmttest

import (
	"fmt"

	"github.com/wildfly-extras/creaper-sub003/protocol"
)

// reserved keys of an operation that are not parameters.
var reserved = map[string]bool{
	protocol.OpKey:               true,
	protocol.AddressKey:          true,
	protocol.OperationHeadersKey: true,
}

func boolParam(op *protocol.Node, name string) bool {
	v, err := op.Get(name).AsBool()
	return err == nil && v
}

func stringParam(op *protocol.Node, name string) (string, bool) {
	if !op.HasDefined(name) {
		return "", false
	}
	v, err := op.Get(name).AsString()
	return v, err == nil
}

func missingParam(name string) *protocol.Node {
	return failure(fmt.Sprintf("WFLYCTL0155: '%s' may not be null", name))
}

func opComposite(s *Server, _ protocol.Address, op *protocol.Node) *protocol.Node {
	steps, err := protocol.CompositeSteps(op)
	if err != nil {
		return failure(fmt.Sprintf("WFLYCTL0097: Wrong type for 'steps': %v", err))
	}

	snapshot := s.root.clone()
	state := s.processState

	results := protocol.Object()
	failed := protocol.Object()
	for i, step := range steps {
		key := fmt.Sprintf("step-%d", i+1)
		if failed.Len() > 0 {
			results.Set(key, protocol.Object().Set(protocol.OutcomeKey, "cancelled"))
			continue
		}
		resp := s.execute(step, false)
		results.Set(key, resp)
		if !isSuccess(resp) {
			failed.Set("Operation "+key, resp.Get(protocol.FailureDescriptionKey).Clone())
		}
	}

	if failed.Len() == 0 {
		return success(results)
	}

	s.root = snapshot
	s.processState = state
	for _, key := range results.Keys() {
		r := results.Get(key)
		if isSuccess(r) {
			r.Set(protocol.RolledBackKey, true)
		}
	}
	desc := protocol.Object().Set("WFLYCTL0062: Composite operation failed and was rolled back. Steps that failed:", failed)
	return failure(desc).Set(protocol.ResultKey, results)
}

func opReadResource(s *Server, addr protocol.Address, op *protocol.Node) *protocol.Node {
	r, ok := s.root.lookup(addr)
	if !ok {
		return failure(notFound(addr))
	}
	out := r.describe(boolParam(op, "recursive"))
	if addr.IsRoot() && !s.domain {
		out.Set(protocol.ServerStateAttribute, s.serverState())
	}
	return success(out)
}

func opReadAttribute(s *Server, addr protocol.Address, op *protocol.Node) *protocol.Node {
	r, ok := s.root.lookup(addr)
	if !ok {
		return failure(notFound(addr))
	}
	name, ok := stringParam(op, "name")
	if !ok {
		return missingParam("name")
	}
	if name == protocol.ServerStateAttribute && s.reportsServerState(addr) {
		return success(protocol.String(s.serverState()))
	}
	if !r.attrs.Has(name) {
		return failure(fmt.Sprintf("WFLYCTL0201: Unknown attribute '%s'", name))
	}
	return success(r.attrs.Get(name).Clone())
}

// reportsServerState is true for the standalone root and for domain
// servers; their server-state follows the process state.
func (s *Server) reportsServerState(addr protocol.Address) bool {
	if !s.domain {
		return addr.IsRoot()
	}
	segs := addr.Segments()
	return len(segs) == 2 && segs[0].Key == protocol.HostKey && segs[1].Key == protocol.ServerKey
}

func opWriteAttribute(s *Server, addr protocol.Address, op *protocol.Node) *protocol.Node {
	r, ok := s.root.lookup(addr)
	if !ok {
		return failure(notFound(addr))
	}
	name, ok := stringParam(op, "name")
	if !ok {
		return missingParam("name")
	}
	r.attrs.Set(name, op.Get("value").Clone())
	s.markReload(name)
	return success(nil)
}

func opUndefineAttribute(s *Server, addr protocol.Address, op *protocol.Node) *protocol.Node {
	r, ok := s.root.lookup(addr)
	if !ok {
		return failure(notFound(addr))
	}
	name, ok := stringParam(op, "name")
	if !ok {
		return missingParam("name")
	}
	r.attrs.Set(name, protocol.New())
	s.markReload(name)
	return success(nil)
}

func (s *Server) markReload(attr string) {
	if s.reloadAttrs[attr] && s.processState == "" {
		s.processState = protocol.ProcessStateReloadRequired
	}
}

func opAdd(s *Server, addr protocol.Address, op *protocol.Node) *protocol.Node {
	last, ok := addr.Last()
	if !ok {
		return failure("WFLYCTL0031: No operation named 'add' exists at the address []")
	}
	parent, ok := s.root.lookup(addr.Parent())
	if !ok {
		return failure(notFound(addr.Parent()))
	}
	if _, exists := parent.child(last.Key, last.Value); exists {
		return failure(fmt.Sprintf("WFLYCTL0212: Duplicate resource %s", formatAddress(addr)))
	}
	child := newResource()
	for _, key := range op.Keys() {
		if reserved[key] {
			continue
		}
		child.attrs.Set(key, op.Get(key).Clone())
	}
	parent.put(last.Key, last.Value, child)
	return success(nil)
}

func opRemove(s *Server, addr protocol.Address, _ *protocol.Node) *protocol.Node {
	last, ok := addr.Last()
	if !ok {
		return failure("WFLYCTL0031: No operation named 'remove' exists at the address []")
	}
	parent, ok := s.root.lookup(addr.Parent())
	if !ok {
		return failure(notFound(addr))
	}
	m, ok := parent.children.Get(last.Key)
	if !ok {
		return failure(notFound(addr))
	}
	if _, ok := m.Delete(last.Value); !ok {
		return failure(notFound(addr))
	}
	return success(nil)
}

func opReadChildrenNames(s *Server, addr protocol.Address, op *protocol.Node) *protocol.Node {
	r, ok := s.root.lookup(addr)
	if !ok {
		return failure(notFound(addr))
	}
	childType, ok := stringParam(op, "child-type")
	if !ok {
		return missingParam("child-type")
	}
	return success(protocol.From(r.childNames(childType)))
}

func opReadChildrenTypes(s *Server, addr protocol.Address, _ *protocol.Node) *protocol.Node {
	r, ok := s.root.lookup(addr)
	if !ok {
		return failure(notFound(addr))
	}
	return success(protocol.From(r.childTypes()))
}

func opReadResourceDescription(s *Server, addr protocol.Address, _ *protocol.Node) *protocol.Node {
	r, ok := s.root.lookup(addr)
	if !ok {
		return failure(notFound(addr))
	}
	attrs := protocol.Object()
	for _, name := range r.attrs.Keys() {
		attrs.Set(name, protocol.Object().Set("type", r.attrs.Get(name).Kind().String()))
	}
	children := protocol.Object()
	for _, t := range r.childTypes() {
		children.Set(t, protocol.Object().Set("description", t))
	}
	return success(protocol.Object().
		Set("description", addr.String()).
		Set("attributes", attrs).
		Set("children", children))
}

func opWhoAmI(s *Server, _ protocol.Address, _ *protocol.Node) *protocol.Node {
	user := s.username
	if user == "" {
		user = "$local"
	}
	identity := protocol.Object().Set("username", user).Set("realm", "ManagementRealm")
	return success(protocol.Object().Set("identity", identity))
}

func opReload(s *Server, addr protocol.Address, _ *protocol.Node) *protocol.Node {
	if s.domain || !addr.IsRoot() {
		return failure(fmt.Sprintf("WFLYCTL0031: No operation named 'reload' exists at the address %s", formatAddress(addr)))
	}
	s.processState = ""
	s.reloads++
	s.startDowntime()
	return success(nil)
}

func opShutdown(s *Server, addr protocol.Address, op *protocol.Node) *protocol.Node {
	if s.domain || !addr.IsRoot() {
		return failure(fmt.Sprintf("WFLYCTL0031: No operation named 'shutdown' exists at the address %s", formatAddress(addr)))
	}
	if !boolParam(op, "restart") {
		s.down = true
		return success(nil)
	}
	s.processState = ""
	s.restarts++
	s.startDowntime()
	return success(nil)
}

func opReloadServers(s *Server, addr protocol.Address, _ *protocol.Node) *protocol.Node {
	if !s.domain || !addr.IsRoot() {
		return failure(fmt.Sprintf("WFLYCTL0031: No operation named 'reload-servers' exists at the address %s", formatAddress(addr)))
	}
	s.processState = ""
	s.reloads++
	return success(nil)
}

func opRestartServers(s *Server, addr protocol.Address, _ *protocol.Node) *protocol.Node {
	if !s.domain || !addr.IsRoot() {
		return failure(fmt.Sprintf("WFLYCTL0031: No operation named 'restart-servers' exists at the address %s", formatAddress(addr)))
	}
	s.processState = ""
	s.restarts++
	return success(nil)
}
