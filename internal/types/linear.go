package types

import (
	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
)

// LinearType marks a value that the linear checker (internal/linear)
// tracks through exactly one active/consumed transition per path
// (spec.md §4.1 Linear). A bare token (nil Payload) is zero-sized and
// loader call wrappers skip it; a token with a Payload takes the
// payload's size and layout and is passed as the payload.
type LinearType struct {
	// Payload, when non-nil, is the type a linear token additionally
	// carries (e.g. `linear[FileHandle]`); nil means a bare capability
	// token with no payload.
	Payload Type
}

func (t *LinearType) ByteSize() int {
	if t.Payload != nil {
		return t.Payload.ByteSize()
	}
	return 0
}
func (t *LinearType) Alignment() int {
	if t.Payload != nil {
		return t.Payload.Alignment()
	}
	return 1
}
func (t *LinearType) IRType(ctx *irbuilder.Context) irbuilder.IRType {
	if t.Payload != nil {
		return t.Payload.IRType(ctx)
	}
	return irbuilder.NamedType("{}")
}
func (t *LinearType) String() string {
	if t.Payload != nil {
		return "linear[" + t.Payload.String() + "]"
	}
	return "linear"
}
func (t *LinearType) Equal(other Type) bool {
	o, ok := Unwrap(other).(*LinearType)
	if !ok {
		return false
	}
	if t.Payload == nil || o.Payload == nil {
		return t.Payload == nil && o.Payload == nil
	}
	return t.Payload.Equal(o.Payload)
}

func (t *LinearType) HandleSubscript(em Emitter, base, index *ValueRef, node ast.Node) (*ValueRef, error) {
	if t.Payload != nil {
		return t.Payload.HandleSubscript(em, base, index, node)
	}
	return unsupportedSubscript(t, em, node)
}
func (t *LinearType) HandleAttribute(em Emitter, base *ValueRef, name string, node ast.Node) (*ValueRef, error) {
	if t.Payload != nil {
		return t.Payload.HandleAttribute(em, base, name, node)
	}
	return unsupportedAttribute(t, em, name, node)
}

// HandleCall constructs a fresh linear token (`linear()`); the visitor
// marks the resulting ValueRef's path `active` in the current
// VariableInfo before internal/linear sees it.
func (t *LinearType) HandleCall(em Emitter, args []*ValueRef, node ast.Node) (*ValueRef, error) {
	if t.Payload != nil {
		return t.Payload.HandleCall(em, args, node)
	}
	if len(args) != 0 {
		return nil, report(em, errors.TYP004, node, "linear() takes no arguments")
	}
	b := em.Builder()
	addr := b.Alloca(t.IRType(b.Context()), "tok")
	return &ValueRef{Kind: KindAddress, IRValue: addr, TypeHint: t, Address: addr}, nil
}

func (t *LinearType) HandleCast(em Emitter, operand *ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedCast(t, em, node)
}
