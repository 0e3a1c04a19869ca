package protocol

import "fmt"

// Param is a named operation parameter, used by NewOperation to keep
// parameters in the order the caller gave them.
type Param struct {
	Name  string
	Value any
}

// P is shorthand for Param{Name: name, Value: value}.
func P(name string, value any) Param { return Param{Name: name, Value: value} }

// NewOperation builds {operation: name, address: [...], params...}.
func NewOperation(address Address, name string, params ...Param) *Node {
	op := Object()
	op.Set(OpKey, name)
	op.Set(AddressKey, address.Node())
	for _, p := range params {
		op.Set(p.Name, p.Value)
	}
	return op
}

// Composite wraps steps into a single composite operation executed by the
// server as one unit.
func Composite(steps ...*Node) *Node {
	op := Object()
	op.Set(OpKey, OpComposite)
	op.Set(AddressKey, List())
	op.Set(StepsKey, List(steps...))
	return op
}

// OperationName returns the operation name, or "" when absent.
func OperationName(op *Node) string {
	name, err := op.Get(OpKey).AsString()
	if err != nil {
		return ""
	}
	return name
}

// OperationAddress returns the parsed address of an operation.
func OperationAddress(op *Node) (Address, error) {
	return AddressFromNode(op.Get(AddressKey))
}

// SetOperationAddress replaces the address of an operation in place.
func SetOperationAddress(op *Node, address Address) {
	op.Set(AddressKey, address.Node())
}

// IsComposite reports whether op is a composite operation.
func IsComposite(op *Node) bool { return OperationName(op) == OpComposite }

// CompositeSteps returns the steps of a composite operation.
func CompositeSteps(op *Node) ([]*Node, error) {
	steps := op.Get(StepsKey)
	if steps.Kind() != KindList {
		return nil, fmt.Errorf("composite operation steps must be a list, got %s", steps.Kind())
	}
	return steps.AsList()
}

// SetHeader sets an operation header such as rollback-on-runtime-failure.
func SetHeader(op *Node, name string, value any) {
	headers := op.Get(OperationHeadersKey)
	if !headers.IsDefined() {
		headers = Object()
		op.Set(OperationHeadersKey, headers)
	}
	headers.Set(name, value)
}
