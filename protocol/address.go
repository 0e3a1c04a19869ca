package protocol

import (
	"fmt"
	"strings"
)

// Segment is one key=value element of a management address.
type Segment struct {
	Key   string
	Value string
}

// Address is an ordered sequence of key=value segments identifying a
// resource, e.g. /subsystem=logging/logger=com.example. Address values are
// immutable; methods return modified copies.
type Address struct {
	segments []Segment
}

// Root returns the empty address.
func Root() Address { return Address{} }

// NewAddress builds an address from alternating key/value strings.
func NewAddress(pairs ...string) (Address, error) {
	if len(pairs)%2 != 0 {
		return Address{}, fmt.Errorf("address needs key/value pairs, got %d elements", len(pairs))
	}
	a := Address{}
	for i := 0; i < len(pairs); i += 2 {
		a = a.And(pairs[i], pairs[i+1])
	}
	return a, nil
}

// Subsystem returns /subsystem=name.
func Subsystem(name string) Address { return Root().And(SubsystemKey, name) }

// CoreService returns /core-service=name.
func CoreService(name string) Address { return Root().And(CoreServiceKey, name) }

// Profile returns /profile=name.
func Profile(name string) Address { return Root().And(ProfileKey, name) }

// Host returns /host=name.
func Host(name string) Address { return Root().And(HostKey, name) }

// And returns a copy of the address with one more segment appended.
func (a Address) And(key, value string) Address {
	segs := make([]Segment, len(a.segments), len(a.segments)+1)
	copy(segs, a.segments)
	return Address{segments: append(segs, Segment{Key: key, Value: value})}
}

// Prepend returns a copy of the address with a segment inserted at the front.
func (a Address) Prepend(key, value string) Address {
	segs := make([]Segment, 0, len(a.segments)+1)
	segs = append(segs, Segment{Key: key, Value: value})
	return Address{segments: append(segs, a.segments...)}
}

// Parent returns the address without its last segment.
func (a Address) Parent() Address {
	if len(a.segments) == 0 {
		return a
	}
	segs := make([]Segment, len(a.segments)-1)
	copy(segs, a.segments)
	return Address{segments: segs}
}

// Segments returns a copy of the segments.
func (a Address) Segments() []Segment {
	return append([]Segment(nil), a.segments...)
}

// Len returns the number of segments.
func (a Address) Len() int { return len(a.segments) }

// IsRoot reports whether the address has no segments.
func (a Address) IsRoot() bool { return len(a.segments) == 0 }

// First returns the first segment.
func (a Address) First() (Segment, bool) {
	if len(a.segments) == 0 {
		return Segment{}, false
	}
	return a.segments[0], true
}

// Last returns the last segment.
func (a Address) Last() (Segment, bool) {
	if len(a.segments) == 0 {
		return Segment{}, false
	}
	return a.segments[len(a.segments)-1], true
}

// Contains reports whether any segment has the given key.
func (a Address) Contains(key string) bool {
	for _, s := range a.segments {
		if s.Key == key {
			return true
		}
	}
	return false
}

// Equal reports whether both addresses have the same segments.
func (a Address) Equal(b Address) bool {
	if len(a.segments) != len(b.segments) {
		return false
	}
	for i := range a.segments {
		if a.segments[i] != b.segments[i] {
			return false
		}
	}
	return true
}

// Node returns the wire form of the address: a list of single-key objects.
func (a Address) Node() *Node {
	n := List()
	for _, s := range a.segments {
		n.list = append(n.list, Object().Set(s.Key, s.Value))
	}
	return n
}

// String renders the address in CLI form; the root address renders as "/".
// Values the CLI would split on are double quoted.
func (a Address) String() string {
	if len(a.segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range a.segments {
		b.WriteByte('/')
		b.WriteString(s.Key)
		b.WriteByte('=')
		b.WriteString(quoteValue(s.Value))
	}
	return b.String()
}

// quoteValue quotes v unless the CLI parser reads it back verbatim.
func quoteValue(v string) string {
	if v != "" && v == strings.TrimSpace(v) && !strings.ContainsAny(v, "/=:\"\\ ") {
		return v
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(v); i++ {
		if v[i] == '"' || v[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(v[i])
	}
	b.WriteByte('"')
	return b.String()
}

// ParseAddress parses a CLI-style address such as /subsystem=logging/logger=x.
// Quoted values are not supported here; the cli package parses those.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "/" {
		return Root(), nil
	}
	if !strings.HasPrefix(s, "/") {
		return Address{}, fmt.Errorf("address %q must start with '/'", s)
	}
	a := Address{}
	for _, part := range strings.Split(strings.Trim(s, "/"), "/") {
		key, value, ok := strings.Cut(part, "=")
		if !ok || key == "" || value == "" {
			return Address{}, fmt.Errorf("malformed address segment %q in %q", part, s)
		}
		a = a.And(key, value)
	}
	return a, nil
}

// AddressFromNode converts the wire form of an address back into an
// Address. Both lists of single-key objects and lists of properties are
// accepted; anything that is not a sequence of key/value pairs is an error.
func AddressFromNode(n *Node) (Address, error) {
	switch n.Kind() {
	case KindUndefined:
		return Root(), nil
	case KindList:
		a := Address{}
		for i, it := range n.list {
			p, err := it.AsProperty()
			if err != nil {
				return Address{}, fmt.Errorf("address element %d is not a key/value pair: %s", i, it)
			}
			v, err := p.Value.AsString()
			if err != nil {
				return Address{}, fmt.Errorf("address element %d has a non-scalar value: %w", i, err)
			}
			a = a.And(p.Name, v)
		}
		return a, nil
	case KindObject:
		a := Address{}
		for p := n.obj.Oldest(); p != nil; p = p.Next() {
			v, err := p.Value.AsString()
			if err != nil {
				return Address{}, fmt.Errorf("address segment %q has a non-scalar value: %w", p.Key, err)
			}
			a = a.And(p.Key, v)
		}
		return a, nil
	default:
		return Address{}, fmt.Errorf("address must be a list, got %s", n.Kind())
	}
}
