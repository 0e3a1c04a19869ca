package online

import (
	"context"
	"fmt"

	"github.com/wildfly-extras/creaper-sub003/protocol"
)

// Operations offers shortcuts for the common management operations.
type Operations struct {
	client Client
}

// NewOperations wraps c.
func NewOperations(c Client) *Operations { return &Operations{client: c} }

// Invoke executes an arbitrary operation.
func (o *Operations) Invoke(ctx context.Context, name string, addr protocol.Address, params ...protocol.Param) (*Result, error) {
	return o.client.Execute(ctx, protocol.NewOperation(addr, name, params...))
}

// Add creates the resource at addr with params as its attributes.
func (o *Operations) Add(ctx context.Context, addr protocol.Address, params ...protocol.Param) (*Result, error) {
	return o.Invoke(ctx, protocol.OpAdd, addr, params...)
}

// Remove removes the resource at addr.
func (o *Operations) Remove(ctx context.Context, addr protocol.Address) (*Result, error) {
	return o.Invoke(ctx, protocol.OpRemove, addr)
}

// ReadAttribute reads one attribute; extra params such as
// include-defaults=false are passed along.
func (o *Operations) ReadAttribute(ctx context.Context, addr protocol.Address, name string, params ...protocol.Param) (*Result, error) {
	return o.Invoke(ctx, protocol.OpReadAttribute, addr, append([]protocol.Param{protocol.P("name", name)}, params...)...)
}

// WriteAttribute sets attribute name of addr to value.
func (o *Operations) WriteAttribute(ctx context.Context, addr protocol.Address, name string, value any) (*Result, error) {
	return o.Invoke(ctx, protocol.OpWriteAttribute, addr, protocol.P("name", name), protocol.P("value", value))
}

// UndefineAttribute clears attribute name of addr.
func (o *Operations) UndefineAttribute(ctx context.Context, addr protocol.Address, name string) (*Result, error) {
	return o.Invoke(ctx, protocol.OpUndefineAttribute, addr, protocol.P("name", name))
}

// ReadResource reads addr; pass recursive=true and similar as params.
func (o *Operations) ReadResource(ctx context.Context, addr protocol.Address, params ...protocol.Param) (*Result, error) {
	return o.Invoke(ctx, protocol.OpReadResource, addr, params...)
}

// ReadChildrenNames lists the names of the childType children of addr.
func (o *Operations) ReadChildrenNames(ctx context.Context, addr protocol.Address, childType string) (*Result, error) {
	return o.Invoke(ctx, protocol.OpReadChildrenNames, addr, protocol.P("child-type", childType))
}

// Exists reports whether a resource exists at addr. Failures other than
// the known "not found" codes are returned as errors.
func (o *Operations) Exists(ctx context.Context, addr protocol.Address) (bool, error) {
	res, err := o.ReadResource(ctx, addr)
	if err != nil {
		return false, err
	}
	switch {
	case res.IsSuccess():
		return true, nil
	case res.IsNotFound():
		return false, nil
	}
	return false, fmt.Errorf("checking %s: %w", addr, res.AssertSuccess())
}

// RemoveIfExists removes the resource at addr if present and reports
// whether it did.
func (o *Operations) RemoveIfExists(ctx context.Context, addr protocol.Address) (bool, error) {
	exists, err := o.Exists(ctx, addr)
	if err != nil || !exists {
		return false, err
	}
	res, err := o.Remove(ctx, addr)
	if err != nil {
		return false, err
	}
	if err := res.AssertSuccess("removing " + addr.String()); err != nil {
		return false, err
	}
	return true, nil
}

// Batch executes b as one composite operation.
func (o *Operations) Batch(ctx context.Context, b *Batch) (*Result, error) {
	if b.Len() == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidArgument)
	}
	return o.client.Execute(ctx, b.Operation())
}
