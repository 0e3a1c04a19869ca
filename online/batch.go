package online

import "github.com/wildfly-extras/creaper-sub003/protocol"

// Batch collects operations into one composite operation the server
// executes atomically.
type Batch struct {
	steps []*protocol.Node
}

// NewBatch returns an empty batch.
func NewBatch() *Batch { return &Batch{} }

// Step appends a prebuilt operation.
func (b *Batch) Step(op *protocol.Node) *Batch {
	b.steps = append(b.steps, op.Clone())
	return b
}

// Invoke appends an arbitrary operation.
func (b *Batch) Invoke(name string, addr protocol.Address, params ...protocol.Param) *Batch {
	return b.Step(protocol.NewOperation(addr, name, params...))
}

// Add appends an add step.
func (b *Batch) Add(addr protocol.Address, params ...protocol.Param) *Batch {
	return b.Invoke(protocol.OpAdd, addr, params...)
}

// Remove appends a remove step.
func (b *Batch) Remove(addr protocol.Address) *Batch {
	return b.Invoke(protocol.OpRemove, addr)
}

// WriteAttribute appends a write-attribute step.
func (b *Batch) WriteAttribute(addr protocol.Address, name string, value any) *Batch {
	return b.Invoke(protocol.OpWriteAttribute, addr, protocol.P("name", name), protocol.P("value", value))
}

// UndefineAttribute appends an undefine-attribute step.
func (b *Batch) UndefineAttribute(addr protocol.Address, name string) *Batch {
	return b.Invoke(protocol.OpUndefineAttribute, addr, protocol.P("name", name))
}

// Len returns the number of steps.
func (b *Batch) Len() int { return len(b.steps) }

// Operation builds the composite operation.
func (b *Batch) Operation() *protocol.Node {
	steps := make([]*protocol.Node, len(b.steps))
	for i, s := range b.steps {
		steps[i] = s.Clone()
	}
	return protocol.Composite(steps...)
}
