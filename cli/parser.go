// Package cli implements the human-oriented management CLI syntax:
// operation requests such as
//
//	/subsystem=logging/logger=com.example:add(level=DEBUG, handlers=[CONSOLE]){allow-resource-service-restart=true}
//
// and a small set of local commands (cd, ls, batch, ...) evaluated by a
// Context bound to an executor.
package cli

import (
	"fmt"
	"strings"

	"github.com/wildfly-extras/creaper-sub003/protocol"
)

// SyntaxError reports malformed CLI input.
type SyntaxError struct {
	Input  string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("CLI syntax error at offset %d in %q: %s", e.Offset, e.Input, e.Msg)
}

// IsOperation reports whether line is an operation request rather than a
// local command: it starts with '/', ':' or '.', or with a relative
// key=value node path.
func IsOperation(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	switch line[0] {
	case '/', ':', '.':
		return true
	}
	end := strings.IndexAny(line, " \t")
	if end < 0 {
		end = len(line)
	}
	head := line[:end]
	eq := strings.IndexByte(head, '=')
	colon := strings.IndexByte(head, ':')
	return eq > 0 && colon > eq
}

// ParseOperation parses an operation request. Relative node paths are
// resolved against base.
func ParseOperation(line string, base protocol.Address) (*protocol.Node, error) {
	p := &parser{in: line}
	p.skipSpace()
	addr, err := p.address(base)
	if err != nil {
		return nil, err
	}
	if !p.consume(':') {
		return nil, p.errorf("expected ':' followed by an operation name")
	}
	name := strings.TrimSpace(p.readUntil("({"))
	if name == "" {
		return nil, p.errorf("missing operation name")
	}
	op := protocol.NewOperation(addr, name)

	p.skipSpace()
	if p.consume('(') {
		if err := p.params(op); err != nil {
			return nil, err
		}
	}
	p.skipSpace()
	if p.consume('{') {
		if err := p.headers(op); err != nil {
			return nil, err
		}
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected trailing input %q", p.in[p.pos:])
	}
	return op, nil
}

// ParseNodePath parses a node path such as /subsystem=logging, ../logger=x
// or ".." relative to base.
func ParseNodePath(path string, base protocol.Address) (protocol.Address, error) {
	p := &parser{in: path}
	p.skipSpace()
	addr, err := p.address(base)
	if err != nil {
		return protocol.Address{}, err
	}
	p.skipSpace()
	if !p.eof() {
		return protocol.Address{}, p.errorf("unexpected input %q in node path", p.in[p.pos:])
	}
	return addr, nil
}

type parser struct {
	in  string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.in) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.in[p.pos]
}

func (p *parser) consume(c byte) bool {
	if p.peek() == c && !p.eof() {
		p.pos++
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for !p.eof() && (p.in[p.pos] == ' ' || p.in[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Input: p.in, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

// readUntil consumes bytes up to (not including) any of stop.
func (p *parser) readUntil(stop string) string {
	start := p.pos
	for !p.eof() && !strings.ContainsRune(stop, rune(p.in[p.pos])) {
		p.pos++
	}
	return p.in[start:p.pos]
}

func (p *parser) address(base protocol.Address) (protocol.Address, error) {
	addr := base
	if p.peek() == '/' {
		addr = protocol.Root()
	}
	for {
		for p.consume('/') {
		}
		if p.eof() || p.peek() == ':' || p.peek() == ' ' {
			return addr, nil
		}
		rest := p.in[p.pos:]
		if strings.HasPrefix(rest, "..") {
			addr = addr.Parent()
			p.pos += 2
			continue
		}
		if rest[0] == '.' && (len(rest) == 1 || rest[1] == '/' || rest[1] == ':') {
			p.pos++
			continue
		}
		key := strings.TrimSpace(p.readUntil("=/:"))
		if key == "" {
			return protocol.Address{}, p.errorf("missing node type")
		}
		if !p.consume('=') {
			return protocol.Address{}, p.errorf("node type %q must be followed by '=' and a name", key)
		}
		var value string
		if p.peek() == '"' {
			s, err := p.quoted()
			if err != nil {
				return protocol.Address{}, err
			}
			value = s
		} else {
			value = strings.TrimSpace(p.readUntil("/:"))
		}
		if value == "" {
			return protocol.Address{}, p.errorf("missing name for node type %q", key)
		}
		addr = addr.And(key, value)
	}
}

func (p *parser) params(op *protocol.Node) error {
	for {
		p.skipSpace()
		if p.consume(')') {
			return nil
		}
		name := strings.TrimSpace(p.readUntil("=,)"))
		if name == "" {
			return p.errorf("missing parameter name")
		}
		if p.consume('=') {
			v, err := p.value(",)")
			if err != nil {
				return err
			}
			op.Set(name, v)
		} else {
			op.Set(name, true)
		}
		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if p.consume(')') {
			return nil
		}
		return p.errorf("expected ',' or ')' after parameter %q", name)
	}
}

func (p *parser) headers(op *protocol.Node) error {
	for {
		p.skipSpace()
		if p.consume('}') {
			return nil
		}
		name := strings.TrimSpace(p.readUntil("=;}"))
		if name == "" {
			return p.errorf("missing header name")
		}
		if p.consume('=') {
			v, err := p.value(";}")
			if err != nil {
				return err
			}
			protocol.SetHeader(op, name, v)
		} else {
			protocol.SetHeader(op, name, true)
		}
		p.skipSpace()
		if p.consume(';') {
			continue
		}
		if p.consume('}') {
			return nil
		}
		return p.errorf("expected ';' or '}' after header %q", name)
	}
}

// value parses a parameter value; stop lists the bytes that end an
// unquoted scalar at nesting depth zero.
func (p *parser) value(stop string) (*protocol.Node, error) {
	p.skipSpace()
	switch p.peek() {
	case '"':
		s, err := p.quoted()
		if err != nil {
			return nil, err
		}
		return protocol.String(s), nil
	case '[':
		p.pos++
		list := protocol.List()
		for {
			p.skipSpace()
			if p.consume(']') {
				return list, nil
			}
			v, err := p.value(",]")
			if err != nil {
				return nil, err
			}
			list.Add(v)
			p.skipSpace()
			if p.consume(',') {
				continue
			}
			if p.consume(']') {
				return list, nil
			}
			return nil, p.errorf("expected ',' or ']' in list")
		}
	case '{':
		p.pos++
		obj := protocol.Object()
		for {
			p.skipSpace()
			if p.consume('}') {
				return obj, nil
			}
			key := strings.TrimSpace(p.readUntil("=,}"))
			if key == "" {
				return nil, p.errorf("missing key in object")
			}
			if !p.consume('=') {
				return nil, p.errorf("expected '=' or '=>' after key %q", key)
			}
			p.consume('>')
			v, err := p.value(",}")
			if err != nil {
				return nil, err
			}
			obj.Set(key, v)
			p.skipSpace()
			if p.consume(',') {
				continue
			}
			if p.consume('}') {
				return obj, nil
			}
			return nil, p.errorf("expected ',' or '}' in object")
		}
	}

	start := p.pos
	depth := 0
	for !p.eof() {
		c := p.in[p.pos]
		if depth == 0 && strings.IndexByte(stop, c) >= 0 {
			break
		}
		switch c {
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
		}
		p.pos++
	}
	raw := strings.TrimSpace(p.in[start:p.pos])
	if raw == "" {
		return nil, p.errorf("missing value")
	}
	if strings.HasPrefix(raw, "${") && strings.HasSuffix(raw, "}") {
		return protocol.Expression(raw), nil
	}
	return protocol.String(raw), nil
}

func (p *parser) quoted() (string, error) {
	start := p.pos
	p.pos++ // opening quote
	var b strings.Builder
	for !p.eof() {
		c := p.in[p.pos]
		switch c {
		case '\\':
			if p.pos+1 >= len(p.in) {
				p.pos = start
				return "", p.errorf("unterminated escape")
			}
			b.WriteByte(p.in[p.pos+1])
			p.pos += 2
		case '"':
			p.pos++
			return b.String(), nil
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	p.pos = start
	return "", p.errorf("unterminated quoted string")
}
