package online

import (
	"fmt"
	"strings"

	"github.com/wildfly-extras/creaper-sub003/protocol"
)

// Render formats an operation in CLI-like syntax for logs, e.g.
// /subsystem=logging/logger=x:add(level=INFO). The output is an
// approximation and not guaranteed to parse; if op cannot be rendered its
// raw form is returned.
func Render(op *protocol.Node) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = op.String()
		}
	}()
	s, err := render(op)
	if err != nil {
		return op.String()
	}
	return s
}

func render(op *protocol.Node) (string, error) {
	if protocol.IsComposite(op) {
		steps, err := protocol.CompositeSteps(op)
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(steps))
		for _, st := range steps {
			s, err := render(st)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "composite: " + strings.Join(parts, ", "), nil
	}

	addr, err := protocol.OperationAddress(op)
	if err != nil {
		return "", err
	}
	name := protocol.OperationName(op)
	if name == "" {
		return "", fmt.Errorf("operation name missing")
	}

	var b strings.Builder
	if !addr.IsRoot() {
		b.WriteString(addr.String())
	}
	b.WriteByte(':')
	b.WriteString(name)

	var params []string
	for _, key := range op.Keys() {
		switch key {
		case protocol.OpKey, protocol.AddressKey, protocol.OperationHeadersKey:
			continue
		}
		params = append(params, key+"="+renderValue(op.Get(key)))
	}
	if len(params) > 0 {
		b.WriteByte('(')
		b.WriteString(strings.Join(params, ", "))
		b.WriteByte(')')
	}
	return b.String(), nil
}

func renderValue(n *protocol.Node) string {
	switch n.Kind() {
	case protocol.KindUndefined:
		return "undefined"
	case protocol.KindBytes:
		return "bytes{...}"
	case protocol.KindList:
		items, _ := n.AsList()
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = renderValue(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case protocol.KindObject:
		props, _ := n.Properties()
		parts := make([]string, len(props))
		for i, p := range props {
			parts[i] = p.Name + " => " + renderValue(p.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case protocol.KindProperty:
		p, _ := n.AsProperty()
		return "(" + p.Name + " => " + renderValue(p.Value) + ")"
	default:
		s, err := n.AsString()
		if err != nil {
			return n.String()
		}
		return s
	}
}
