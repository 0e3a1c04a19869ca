package mgmttest

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/wildfly-extras/creaper-sub003/protocol"
)

// resource is one node of the management tree: its attributes plus named
// children grouped by child type.
type resource struct {
	attrs    *protocol.Node
	children *orderedmap.OrderedMap[string, *orderedmap.OrderedMap[string, *resource]]
}

func newResource(types ...string) *resource {
	r := &resource{
		attrs:    protocol.Object(),
		children: orderedmap.New[string, *orderedmap.OrderedMap[string, *resource]](),
	}
	for _, t := range types {
		r.registerType(t)
	}
	return r
}

func (r *resource) registerType(childType string) *orderedmap.OrderedMap[string, *resource] {
	if m, ok := r.children.Get(childType); ok {
		return m
	}
	m := orderedmap.New[string, *resource]()
	r.children.Set(childType, m)
	return m
}

func (r *resource) child(key, value string) (*resource, bool) {
	m, ok := r.children.Get(key)
	if !ok {
		return nil, false
	}
	return m.Get(value)
}

// put adds or replaces a child and returns it.
func (r *resource) put(key, value string, child *resource) *resource {
	r.registerType(key).Set(value, child)
	return child
}

func (r *resource) lookup(addr protocol.Address) (*resource, bool) {
	cur := r
	for _, seg := range addr.Segments() {
		next, ok := cur.child(seg.Key, seg.Value)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func (r *resource) childTypes() []string {
	types := make([]string, 0, r.children.Len())
	for p := r.children.Oldest(); p != nil; p = p.Next() {
		types = append(types, p.Key)
	}
	return types
}

func (r *resource) childNames(childType string) []string {
	m, ok := r.children.Get(childType)
	if !ok {
		return []string{}
	}
	names := make([]string, 0, m.Len())
	for p := m.Oldest(); p != nil; p = p.Next() {
		names = append(names, p.Key)
	}
	return names
}

// describe renders the resource the way read-resource does. Without
// recursion children are listed by name with undefined values.
func (r *resource) describe(recursive bool) *protocol.Node {
	out := r.attrs.Clone()
	for p := r.children.Oldest(); p != nil; p = p.Next() {
		if p.Value.Len() == 0 {
			out.Set(p.Key, protocol.New())
			continue
		}
		names := protocol.Object()
		for c := p.Value.Oldest(); c != nil; c = c.Next() {
			if recursive {
				names.Set(c.Key, c.Value.describe(true))
			} else {
				names.Set(c.Key, protocol.New())
			}
		}
		out.Set(p.Key, names)
	}
	return out
}

func (r *resource) clone() *resource {
	c := &resource{
		attrs:    r.attrs.Clone(),
		children: orderedmap.New[string, *orderedmap.OrderedMap[string, *resource]](),
	}
	for p := r.children.Oldest(); p != nil; p = p.Next() {
		m := orderedmap.New[string, *resource]()
		for ch := p.Value.Oldest(); ch != nil; ch = ch.Next() {
			m.Set(ch.Key, ch.Value.clone())
		}
		c.children.Set(p.Key, m)
	}
	return c
}

func standaloneModel(v Version) *resource {
	root := newResource(protocol.SubsystemKey, protocol.CoreServiceKey, "system-property", "deployment", "interface")
	root.attrs.
		Set(protocol.ManagementMajorVersion, v.Major).
		Set(protocol.ManagementMinorVersion, v.Minor).
		Set(protocol.ManagementMicroVersion, v.Micro).
		Set("product-name", "WildFly").
		Set(protocol.ProductVersionAttribute, v.Product).
		Set("launch-type", "STANDALONE").
		Set("name", "localhost")

	logging := root.put(protocol.SubsystemKey, "logging", newResource("logger", "console-handler", "periodic-rotating-file-handler"))
	logging.attrs.Set("add-logging-api-dependencies", true)
	handler := logging.put("console-handler", "CONSOLE", newResource())
	handler.attrs.Set("level", "INFO").Set("named-formatter", "COLOR-PATTERN")
	logger := logging.put("logger", "com.arjuna", newResource())
	logger.attrs.Set("level", "WARN").Set("category", "com.arjuna")

	root.put(protocol.SubsystemKey, "datasources", newResource("data-source", "xa-data-source"))
	root.put(protocol.SubsystemKey, "undertow", newResource("server")).attrs.Set("default-server", "default-server")
	root.put(protocol.CoreServiceKey, "management", newResource("management-interface"))
	return root
}

func domainModel(v Version) *resource {
	root := newResource(protocol.ProfileKey, protocol.HostKey, protocol.ServerGroupKey, "system-property", "socket-binding-group")
	root.attrs.
		Set(protocol.ManagementMajorVersion, v.Major).
		Set(protocol.ManagementMinorVersion, v.Minor).
		Set(protocol.ManagementMicroVersion, v.Micro).
		Set("product-name", "WildFly").
		Set(protocol.ProductVersionAttribute, v.Product).
		Set("launch-type", "DOMAIN").
		Set("local-host-name", DomainHost)

	for _, name := range []string{DomainProfile, "full"} {
		profile := root.put(protocol.ProfileKey, name, newResource(protocol.SubsystemKey))
		logging := profile.put(protocol.SubsystemKey, "logging", newResource("logger", "console-handler"))
		logging.put("console-handler", "CONSOLE", newResource()).attrs.Set("level", "INFO")
		profile.put(protocol.SubsystemKey, "datasources", newResource("data-source"))
	}

	host := root.put(protocol.HostKey, DomainHost, newResource(protocol.ServerKey, "server-config", protocol.CoreServiceKey, protocol.SubsystemKey))
	host.attrs.Set("host-state", "running").Set("master", true)
	host.put(protocol.CoreServiceKey, "management", newResource("management-interface"))
	host.put(protocol.SubsystemKey, "jmx", newResource())
	for _, srv := range DomainServers {
		cfg := host.put("server-config", srv, newResource())
		cfg.attrs.Set("group", DomainServerGroup).Set("auto-start", true)
		host.put(protocol.ServerKey, srv, newResource()).attrs.Set(protocol.ServerStateAttribute, "running")
	}

	group := root.put(protocol.ServerGroupKey, DomainServerGroup, newResource("deployment"))
	group.attrs.Set(protocol.ProfileKey, DomainProfile).Set("socket-binding-group", "standard-sockets")
	return root
}
