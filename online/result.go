package online

import (
	"fmt"
	"iter"
	"strings"

	"github.com/wildfly-extras/creaper-sub003/protocol"
)

// NotFoundCodes are the failure codes servers of different versions use for
// a missing resource.
var NotFoundCodes = []string{
	"WFLYCTL0216", // Management resource not found
	"WFLYCTL0030", // No resource definition is registered for address
	"WFLYCTL0175", // Resource does not exist
	"JBAS014807",  // Management resource not found (EAP 6)
	"JBAS014883",  // No resource definition is registered (EAP 6)
}

// Result wraps a management response.
type Result struct {
	node *protocol.Node
}

// NewResult wraps resp. A nil resp behaves like an empty response.
func NewResult(resp *protocol.Node) *Result {
	if resp == nil {
		resp = protocol.New()
	}
	return &Result{node: resp}
}

// Node returns the underlying response.
func (r *Result) Node() *protocol.Node { return r.node }

func (r *Result) String() string { return r.node.String() }

func (r *Result) outcome() string {
	s, err := r.node.Get(protocol.OutcomeKey).AsString()
	if err != nil {
		return ""
	}
	return s
}

// IsSuccess reports outcome == "success".
func (r *Result) IsSuccess() bool { return r.outcome() == protocol.OutcomeSuccess }

// IsFailed reports outcome == "failed". Both report false without an
// outcome.
func (r *Result) IsFailed() bool { return r.outcome() == protocol.OutcomeFailed }

// AssertSuccess returns an *AssertionError unless the result succeeded.
func (r *Result) AssertSuccess(msg ...string) error {
	if r.IsSuccess() {
		return nil
	}
	return newAssertion("expected success", msg, r.String())
}

// AssertFailed returns an *AssertionError unless the result failed.
func (r *Result) AssertFailed(msg ...string) error {
	if r.IsFailed() {
		return nil
	}
	return newAssertion("expected failure", msg, r.String())
}

// FailureDescription returns the failure description as text, or "".
func (r *Result) FailureDescription() string {
	fd := r.node.Get(protocol.FailureDescriptionKey)
	if !fd.IsDefined() {
		return ""
	}
	s, err := fd.AsString()
	if err != nil {
		return fd.String()
	}
	return s
}

// IsNotFound reports a failure caused by a missing resource.
func (r *Result) IsNotFound() bool {
	if !r.IsFailed() {
		return false
	}
	fd := r.FailureDescription()
	for _, code := range NotFoundCodes {
		if strings.Contains(fd, code) {
			return true
		}
	}
	return false
}

// HasDefinedValue reports whether the result field is defined.
func (r *Result) HasDefinedValue() bool {
	return r.node.HasDefined(protocol.ResultKey)
}

// AssertDefinedValue asserts success and a defined result value.
func (r *Result) AssertDefinedValue(msg ...string) error {
	if err := r.AssertSuccess(msg...); err != nil {
		return err
	}
	if !r.HasDefinedValue() {
		return newAssertion("expected a defined value", msg, r.String())
	}
	return nil
}

// AssertNotDefinedValue asserts success and an undefined result value.
func (r *Result) AssertNotDefinedValue(msg ...string) error {
	if err := r.AssertSuccess(msg...); err != nil {
		return err
	}
	if r.HasDefinedValue() {
		return newAssertion("expected an undefined value", msg, r.String())
	}
	return nil
}

// Value returns the result field of a successful result. Failed results
// and undefined values give ErrUndefinedValue; for failures it is joined
// with the assertion error.
func (r *Result) Value() (*protocol.Node, error) {
	if err := r.AssertSuccess(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndefinedValue, err)
	}
	if !r.HasDefinedValue() {
		return nil, ErrUndefinedValue
	}
	return r.node.Get(protocol.ResultKey), nil
}

// ValueOr returns the result field, or def unless the result succeeded
// with a defined value.
func (r *Result) ValueOr(def *protocol.Node) *protocol.Node {
	v, err := r.Value()
	if err != nil {
		return def
	}
	return v
}

func typed[T any](r *Result, conv func(*protocol.Node) (T, error)) (T, error) {
	v, err := r.Value()
	if err != nil {
		var zero T
		return zero, err
	}
	return conv(v)
}

func typedOr[T any](r *Result, conv func(*protocol.Node) (T, error), def T) T {
	if !r.IsSuccess() || !r.HasDefinedValue() {
		return def
	}
	v, err := conv(r.node.Get(protocol.ResultKey))
	if err != nil {
		return def
	}
	return v
}

// StringValue returns the result value as a string.
func (r *Result) StringValue() (string, error) { return typed(r, (*protocol.Node).AsString) }

// IntValue returns the result value as an int.
func (r *Result) IntValue() (int, error) { return typed(r, (*protocol.Node).AsInt) }

// LongValue returns the result value as an int64.
func (r *Result) LongValue() (int64, error) { return typed(r, (*protocol.Node).AsLong) }

// BoolValue returns the result value as a bool.
func (r *Result) BoolValue() (bool, error) { return typed(r, (*protocol.Node).AsBool) }

// StringValueOr returns the string value, or def unless the result
// succeeded with a convertible value. The other Or accessors behave alike.
func (r *Result) StringValueOr(def string) string { return typedOr(r, (*protocol.Node).AsString, def) }

// IntValueOr is StringValueOr for ints.
func (r *Result) IntValueOr(def int) int { return typedOr(r, (*protocol.Node).AsInt, def) }

// LongValueOr is StringValueOr for int64s.
func (r *Result) LongValueOr(def int64) int64 { return typedOr(r, (*protocol.Node).AsLong, def) }

// BoolValueOr is StringValueOr for bools.
func (r *Result) BoolValueOr(def bool) bool { return typedOr(r, (*protocol.Node).AsBool, def) }

// ListValue returns the elements of a list result.
func (r *Result) ListValue() ([]*protocol.Node, error) { return typed(r, (*protocol.Node).AsList) }

// StringListValue returns a list result as strings.
func (r *Result) StringListValue() ([]string, error) { return typed(r, asStrings) }

// StringListValueOr returns a list result as strings, or def.
func (r *Result) StringListValueOr(def []string) []string { return typedOr(r, asStrings, def) }

func asStrings(n *protocol.Node) ([]string, error) {
	items, err := n.AsList()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, err := it.AsString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *Result) steps() []protocol.Prop {
	props, err := r.node.Get(protocol.ResultKey).Properties()
	if err != nil {
		return nil
	}
	return props
}

// ForBatchStep returns the result of composite step n, counting from 1.
func (r *Result) ForBatchStep(n int) (*Result, error) {
	steps := r.steps()
	if n < 1 || n > len(steps) {
		return nil, fmt.Errorf("%w: batch step %d out of range [1, %d]", ErrInvalidArgument, n, len(steps))
	}
	return NewResult(steps[n-1].Value), nil
}

// ForAllBatchSteps yields the result of every composite step in order.
// Each call iterates from the first step again.
func (r *Result) ForAllBatchSteps() iter.Seq[*Result] {
	return func(yield func(*Result) bool) {
		for _, p := range r.steps() {
			if !yield(NewResult(p.Value)) {
				return
			}
		}
	}
}

func (r *Result) processState() string {
	s, err := r.node.At(protocol.ResponseHeadersKey, protocol.ProcessStateKey).AsString()
	if err != nil {
		return ""
	}
	return s
}

// IsReloadRequired reports the reload-required process state header.
func (r *Result) IsReloadRequired() bool {
	return r.processState() == protocol.ProcessStateReloadRequired
}

// IsRestartRequired reports the restart-required process state header.
func (r *Result) IsRestartRequired() bool {
	return r.processState() == protocol.ProcessStateRestartRequired
}

// IsFromDomain reports whether the response carries per-server results.
func (r *Result) IsFromDomain() bool {
	return r.node.Has(protocol.ServerGroupsKey)
}

// ForServer returns the response of one server of a domain result.
func (r *Result) ForServer(host, server string) (*Result, error) {
	if !r.IsFromDomain() {
		return nil, fmt.Errorf("%w: not a domain result", ErrInvalidArgument)
	}
	groups, err := r.node.Get(protocol.ServerGroupsKey).Properties()
	if err != nil {
		return nil, fmt.Errorf("%w: malformed server-groups: %v", ErrInvalidArgument, err)
	}
	for _, g := range groups {
		resp := g.Value.At(protocol.HostKey, host, server, protocol.ResponseKey)
		if resp.IsDefined() {
			return NewResult(resp), nil
		}
	}
	return nil, fmt.Errorf("%w: no result for server %s on host %s", ErrInvalidArgument, server, host)
}
