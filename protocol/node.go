package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies the type of value held by a Node.
type Kind int

const (
	KindUndefined Kind = iota
	KindBool
	KindInt
	KindLong
	KindDouble
	KindString
	KindBytes
	KindExpression
	KindList
	KindObject
	KindProperty
)

// String makes Kind satisfy the fmt.Stringer interface.
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "UNDEFINED"
	case KindBool:
		return "BOOLEAN"
	case KindInt:
		return "INT"
	case KindLong:
		return "LONG"
	case KindDouble:
		return "DOUBLE"
	case KindString:
		return "STRING"
	case KindBytes:
		return "BYTES"
	case KindExpression:
		return "EXPRESSION"
	case KindList:
		return "LIST"
	case KindObject:
		return "OBJECT"
	case KindProperty:
		return "PROPERTY"
	default:
		return "UNKNOWN"
	}
}

const (
	bytesValueKey      = "BYTES_VALUE"
	expressionValueKey = "EXPRESSION_VALUE"
)

// Node is a value of the management model: a scalar, a list, an ordered
// object or a single named property. The zero value is undefined.
//
// Requests and responses are both Nodes. Object keys keep insertion order,
// which matters for composite results (step-1, step-2, ...) and domain
// server-group responses.
type Node struct {
	kind  Kind
	b     bool
	i     int64
	f     float64
	s     string
	raw   []byte
	list  []*Node
	obj   *orderedmap.OrderedMap[string, *Node]
	pname string
	pval  *Node
}

// Prop is a name/value pair as returned by Node.Properties.
type Prop struct {
	Name  string
	Value *Node
}

// New returns an undefined node.
func New() *Node { return &Node{} }

// String returns a string node.
func String(s string) *Node { return &Node{kind: KindString, s: s} }

// Int returns an int node.
func Int(i int) *Node { return &Node{kind: KindInt, i: int64(i)} }

// Long returns a long node.
func Long(i int64) *Node { return &Node{kind: KindLong, i: i} }

// Bool returns a boolean node.
func Bool(b bool) *Node { return &Node{kind: KindBool, b: b} }

// Double returns a double node.
func Double(f float64) *Node { return &Node{kind: KindDouble, f: f} }

// Bytes returns a bytes node.
func Bytes(b []byte) *Node { return &Node{kind: KindBytes, raw: append([]byte(nil), b...)} }

// Expression returns an expression node such as "${jboss.bind.address:127.0.0.1}".
func Expression(s string) *Node { return &Node{kind: KindExpression, s: s} }

// List returns a list node holding the given items.
func List(items ...*Node) *Node {
	n := &Node{kind: KindList, list: make([]*Node, 0, len(items))}
	for _, it := range items {
		n.list = append(n.list, orUndefined(it))
	}
	return n
}

// Object returns an empty object node.
func Object() *Node {
	return &Node{kind: KindObject, obj: orderedmap.New[string, *Node]()}
}

// Property returns a property node.
func Property(name string, value *Node) *Node {
	return &Node{kind: KindProperty, pname: name, pval: orUndefined(value)}
}

// From converts a Go value to a Node. Nodes are returned as is, nil becomes
// undefined, slices become lists and string-keyed maps become objects with
// keys in sorted order.
func From(v any) *Node {
	switch t := v.(type) {
	case nil:
		return New()
	case *Node:
		return orUndefined(t)
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		if t > math.MaxInt32 || t < math.MinInt32 {
			return Long(int64(t))
		}
		return Int(t)
	case int32:
		return Int(int(t))
	case int64:
		return Long(t)
	case float32:
		return Double(float64(t))
	case float64:
		return Double(t)
	case []byte:
		return Bytes(t)
	case []string:
		n := List()
		for _, s := range t {
			n.list = append(n.list, String(s))
		}
		return n
	case []*Node:
		return List(t...)
	case []any:
		n := List()
		for _, it := range t {
			n.list = append(n.list, From(it))
		}
		return n
	case map[string]string:
		n := Object()
		for _, k := range sortedKeys(t) {
			n.obj.Set(k, String(t[k]))
		}
		return n
	case map[string]any:
		n := Object()
		for _, k := range sortedKeys(t) {
			n.obj.Set(k, From(t[k]))
		}
		return n
	case fmt.Stringer:
		return String(t.String())
	default:
		return String(fmt.Sprint(t))
	}
}

func orUndefined(n *Node) *Node {
	if n == nil {
		return New()
	}
	return n
}

// Kind returns the kind of the node. A nil node is undefined.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindUndefined
	}
	return n.kind
}

// IsDefined reports whether the node holds a value.
func (n *Node) IsDefined() bool { return n.Kind() != KindUndefined }

// Has reports whether an object node has the given key.
func (n *Node) Has(key string) bool {
	if n.Kind() != KindObject {
		return false
	}
	_, ok := n.obj.Get(key)
	return ok
}

// HasDefined reports whether an object node has the given key with a defined value.
func (n *Node) HasDefined(key string) bool {
	return n.Has(key) && n.Get(key).IsDefined()
}

// Get returns the child under key, or an undefined node when absent.
// It never modifies the receiver.
func (n *Node) Get(key string) *Node {
	if n.Kind() != KindObject {
		return New()
	}
	v, ok := n.obj.Get(key)
	if !ok {
		return New()
	}
	return v
}

// At follows a path of object keys.
func (n *Node) At(path ...string) *Node {
	cur := n
	for _, p := range path {
		cur = cur.Get(p)
	}
	return orUndefined(cur)
}

// Index returns the i-th list element, or an undefined node when out of range.
func (n *Node) Index(i int) *Node {
	if n.Kind() != KindList || i < 0 || i >= len(n.list) {
		return New()
	}
	return n.list[i]
}

// Set stores value under key. An undefined receiver turns into an object.
// Setting a key on a non-object node panics.
func (n *Node) Set(key string, value any) *Node {
	switch n.kind {
	case KindUndefined:
		n.kind = KindObject
		n.obj = orderedmap.New[string, *Node]()
	case KindObject:
	default:
		panic(fmt.Sprintf("protocol: Set(%q) on %s node", key, n.kind))
	}
	n.obj.Set(key, From(value))
	return n
}

// Remove deletes key from an object node and returns the removed value.
func (n *Node) Remove(key string) *Node {
	if n.Kind() != KindObject {
		return New()
	}
	v, ok := n.obj.Delete(key)
	if !ok {
		return New()
	}
	return v
}

// Add appends value to a list node. An undefined receiver turns into a list.
func (n *Node) Add(value any) *Node {
	switch n.kind {
	case KindUndefined:
		n.kind = KindList
	case KindList:
	default:
		panic(fmt.Sprintf("protocol: Add on %s node", n.kind))
	}
	n.list = append(n.list, From(value))
	return n
}

// Len returns the number of list elements or object keys.
func (n *Node) Len() int {
	switch n.Kind() {
	case KindList:
		return len(n.list)
	case KindObject:
		return n.obj.Len()
	case KindProperty:
		return 1
	default:
		return 0
	}
}

// Keys returns object keys in insertion order.
func (n *Node) Keys() []string {
	if n.Kind() != KindObject {
		return nil
	}
	keys := make([]string, 0, n.obj.Len())
	for p := n.obj.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Properties returns the entries of an object node in insertion order.
// Lists of properties and single property nodes are accepted too.
func (n *Node) Properties() ([]Prop, error) {
	switch n.Kind() {
	case KindObject:
		props := make([]Prop, 0, n.obj.Len())
		for p := n.obj.Oldest(); p != nil; p = p.Next() {
			props = append(props, Prop{Name: p.Key, Value: p.Value})
		}
		return props, nil
	case KindProperty:
		return []Prop{{Name: n.pname, Value: n.pval}}, nil
	case KindList:
		props := make([]Prop, 0, len(n.list))
		for _, it := range n.list {
			p, err := it.AsProperty()
			if err != nil {
				return nil, err
			}
			props = append(props, p)
		}
		return props, nil
	default:
		return nil, conversionError(n, "property list")
	}
}

// AsProperty returns the property held by a property node or by a
// single-key object node.
func (n *Node) AsProperty() (Prop, error) {
	switch n.Kind() {
	case KindProperty:
		return Prop{Name: n.pname, Value: n.pval}, nil
	case KindObject:
		if n.obj.Len() == 1 {
			p := n.obj.Oldest()
			return Prop{Name: p.Key, Value: p.Value}, nil
		}
	}
	return Prop{}, conversionError(n, "property")
}

// AsString converts any scalar node to its string form.
func (n *Node) AsString() (string, error) {
	switch n.Kind() {
	case KindString, KindExpression:
		return n.s, nil
	case KindBool:
		return strconv.FormatBool(n.b), nil
	case KindInt, KindLong:
		return strconv.FormatInt(n.i, 10), nil
	case KindDouble:
		return strconv.FormatFloat(n.f, 'g', -1, 64), nil
	case KindBytes:
		return base64.StdEncoding.EncodeToString(n.raw), nil
	case KindList, KindObject, KindProperty:
		return n.String(), nil
	default:
		return "", conversionError(n, "string")
	}
}

// AsLong converts a numeric, boolean or numeric-string node to int64.
func (n *Node) AsLong() (int64, error) {
	switch n.Kind() {
	case KindInt, KindLong:
		return n.i, nil
	case KindDouble:
		return int64(n.f), nil
	case KindBool:
		if n.b {
			return 1, nil
		}
		return 0, nil
	case KindString:
		v, err := strconv.ParseInt(strings.TrimSpace(n.s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("protocol: cannot convert %q to long: %w", n.s, err)
		}
		return v, nil
	default:
		return 0, conversionError(n, "long")
	}
}

// AsInt converts a node to int.
func (n *Node) AsInt() (int, error) {
	v, err := n.AsLong()
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, fmt.Errorf("protocol: value %d out of int range", v)
	}
	return int(v), nil
}

// AsDouble converts a node to float64.
func (n *Node) AsDouble() (float64, error) {
	switch n.Kind() {
	case KindDouble:
		return n.f, nil
	case KindInt, KindLong:
		return float64(n.i), nil
	case KindString:
		v, err := strconv.ParseFloat(strings.TrimSpace(n.s), 64)
		if err != nil {
			return 0, fmt.Errorf("protocol: cannot convert %q to double: %w", n.s, err)
		}
		return v, nil
	default:
		return 0, conversionError(n, "double")
	}
}

// AsBool converts a node to bool. Strings must be "true" or "false"
// (case-insensitive), numbers are true when non-zero.
func (n *Node) AsBool() (bool, error) {
	switch n.Kind() {
	case KindBool:
		return n.b, nil
	case KindInt, KindLong:
		return n.i != 0, nil
	case KindString:
		switch strings.ToLower(strings.TrimSpace(n.s)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return false, fmt.Errorf("protocol: cannot convert %q to boolean", n.s)
	default:
		return false, conversionError(n, "boolean")
	}
}

// AsBytes returns the raw bytes of a bytes node.
func (n *Node) AsBytes() ([]byte, error) {
	switch n.Kind() {
	case KindBytes:
		return append([]byte(nil), n.raw...), nil
	case KindString:
		return []byte(n.s), nil
	default:
		return nil, conversionError(n, "bytes")
	}
}

// AsList returns the elements of a list node. Object nodes are converted to
// a list of property nodes.
func (n *Node) AsList() ([]*Node, error) {
	switch n.Kind() {
	case KindList:
		return append([]*Node(nil), n.list...), nil
	case KindObject:
		out := make([]*Node, 0, n.obj.Len())
		for p := n.obj.Oldest(); p != nil; p = p.Next() {
			out = append(out, Property(p.Key, p.Value))
		}
		return out, nil
	default:
		return nil, conversionError(n, "list")
	}
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return New()
	}
	c := &Node{kind: n.kind, b: n.b, i: n.i, f: n.f, s: n.s, pname: n.pname}
	switch n.kind {
	case KindBytes:
		c.raw = append([]byte(nil), n.raw...)
	case KindList:
		c.list = make([]*Node, len(n.list))
		for i, it := range n.list {
			c.list[i] = it.Clone()
		}
	case KindObject:
		c.obj = orderedmap.New[string, *Node]()
		for p := n.obj.Oldest(); p != nil; p = p.Next() {
			c.obj.Set(p.Key, p.Value.Clone())
		}
	case KindProperty:
		c.pval = n.pval.Clone()
	}
	return c
}

// String returns the JSON form of the node, or "undefined".
func (n *Node) String() string {
	if !n.IsDefined() {
		return "undefined"
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Sprintf("<%s: %v>", n.kind, err)
	}
	return string(data)
}

// MarshalJSON encodes the node the way the HTTP management endpoint expects.
func (n *Node) MarshalJSON() ([]byte, error) {
	switch n.Kind() {
	case KindUndefined:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(n.b)
	case KindInt, KindLong:
		return []byte(strconv.FormatInt(n.i, 10)), nil
	case KindDouble:
		return json.Marshal(n.f)
	case KindString:
		return json.Marshal(n.s)
	case KindBytes:
		return json.Marshal(map[string]string{bytesValueKey: base64.StdEncoding.EncodeToString(n.raw)})
	case KindExpression:
		return json.Marshal(map[string]string{expressionValueKey: n.s})
	case KindList:
		if len(n.list) == 0 {
			return []byte("[]"), nil
		}
		return json.Marshal(n.list)
	case KindObject:
		return n.obj.MarshalJSON()
	case KindProperty:
		single := orderedmap.New[string, *Node]()
		single.Set(n.pname, n.pval)
		return single.MarshalJSON()
	default:
		return nil, fmt.Errorf("protocol: unknown node kind %d", n.kind)
	}
}

// UnmarshalJSON decodes a node, keeping object key order. Integers that fit
// into 32 bits decode as int, larger ones as long.
func (n *Node) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("protocol: empty JSON value")
	}
	*n = Node{}
	switch data[0] {
	case 'n':
		return nil
	case 't', 'f':
		n.kind = KindBool
		return json.Unmarshal(data, &n.b)
	case '"':
		n.kind = KindString
		return json.Unmarshal(data, &n.s)
	case '[':
		var items []*Node
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		for i := range items {
			items[i] = orUndefined(items[i])
		}
		n.kind = KindList
		n.list = items
		return nil
	case '{':
		obj := orderedmap.New[string, *Node]()
		if err := obj.UnmarshalJSON(data); err != nil {
			return err
		}
		for p := obj.Oldest(); p != nil; p = p.Next() {
			p.Value = orUndefined(p.Value)
		}
		if obj.Len() == 1 {
			p := obj.Oldest()
			switch p.Key {
			case bytesValueKey:
				raw, err := base64.StdEncoding.DecodeString(p.Value.s)
				if err != nil {
					return fmt.Errorf("protocol: invalid %s: %w", bytesValueKey, err)
				}
				n.kind = KindBytes
				n.raw = raw
				return nil
			case expressionValueKey:
				n.kind = KindExpression
				n.s = p.Value.s
				return nil
			}
		}
		n.kind = KindObject
		n.obj = obj
		return nil
	default:
		num := json.Number(data)
		if i, err := num.Int64(); err == nil {
			if i > math.MaxInt32 || i < math.MinInt32 {
				n.kind = KindLong
			} else {
				n.kind = KindInt
			}
			n.i = i
			return nil
		}
		f, err := num.Float64()
		if err != nil {
			return fmt.Errorf("protocol: invalid JSON value %q", string(data))
		}
		n.kind = KindDouble
		n.f = f
		return nil
	}
}

// Parse decodes a JSON document into a Node.
func Parse(data []byte) (*Node, error) {
	n := New()
	if err := json.Unmarshal(data, n); err != nil {
		return nil, err
	}
	return n, nil
}

func conversionError(n *Node, target string) error {
	return fmt.Errorf("protocol: cannot convert %s to %s", n.Kind(), target)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
