package online

import (
	"fmt"
	"strings"

	"github.com/wildfly-extras/creaper-sub003/protocol"
)

// domainAdjuster places subsystem addresses under the default profile and
// core-service addresses under the default host. The zero value leaves
// operations alone, which is what standalone sessions use.
type domainAdjuster struct {
	enabled bool
	profile string
	host    string
}

func newDomainAdjuster(opts Options) domainAdjuster {
	return domainAdjuster{enabled: opts.IsDomain(), profile: opts.DefaultProfile(), host: opts.DefaultHost()}
}

// adjust returns op rewritten for the domain. Standalone sessions get op
// itself back; domain sessions get a rewritten copy.
func (a domainAdjuster) adjust(op *protocol.Node) (*protocol.Node, error) {
	if !a.enabled {
		return op, nil
	}
	c := op.Clone()
	if err := a.adjustInPlace(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (a domainAdjuster) adjustInPlace(op *protocol.Node) error {
	if protocol.IsComposite(op) {
		steps, err := protocol.CompositeSteps(op)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		for _, step := range steps {
			if err := a.adjustInPlace(step); err != nil {
				return err
			}
		}
		return nil
	}

	addr, err := protocol.OperationAddress(op)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if addr.Contains(protocol.ProfileKey) || addr.Contains(protocol.HostKey) {
		return nil
	}
	first, ok := addr.First()
	if !ok {
		return nil
	}

	switch first.Key {
	case protocol.SubsystemKey:
		if a.profile == "" {
			return fmt.Errorf("%w: operation %s:%s needs a default profile in domain mode",
				ErrInvalidArgument, addr, protocol.OperationName(op))
		}
		protocol.SetOperationAddress(op, addr.Prepend(protocol.ProfileKey, a.profile))
	case protocol.CoreServiceKey:
		if a.host == "" {
			return fmt.Errorf("%w: operation %s:%s needs a default host in domain mode",
				ErrInvalidArgument, addr, protocol.OperationName(op))
		}
		protocol.SetOperationAddress(op, addr.Prepend(protocol.HostKey, a.host))
	}
	return nil
}

// adjustCLI applies the same rewriting to a CLI line by prefix.
func (a domainAdjuster) adjustCLI(line string) (string, error) {
	if !a.enabled {
		return line, nil
	}
	trimmed := strings.TrimLeft(line, " \t")
	switch {
	case strings.HasPrefix(trimmed, "/"+protocol.SubsystemKey):
		if a.profile == "" {
			return "", fmt.Errorf("%w: CLI operation %q needs a default profile in domain mode", ErrInvalidArgument, line)
		}
		return "/" + protocol.ProfileKey + "=" + a.profile + trimmed, nil
	case strings.HasPrefix(trimmed, "/"+protocol.CoreServiceKey):
		if a.host == "" {
			return "", fmt.Errorf("%w: CLI operation %q needs a default host in domain mode", ErrInvalidArgument, line)
		}
		return "/" + protocol.HostKey + "=" + a.host + trimmed, nil
	}
	return line, nil
}
