package types

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
)

// ArrayType is a fixed-length array (spec.md §4.1 arr[T, N]). It decays
// to PtrType(Elem) only through an explicit cast (HandleCast, or
// PtrType.HandleCast on an array operand); indexing and `.len` work on
// the array itself, and no other expression position decays it.
type ArrayType struct {
	Elem Type
	Len  int
}

func (t *ArrayType) ByteSize() int  { return t.Elem.ByteSize() * t.Len }
func (t *ArrayType) Alignment() int { return t.Elem.Alignment() }
func (t *ArrayType) IRType(ctx *irbuilder.Context) irbuilder.IRType {
	return irbuilder.NamedType(fmt.Sprintf("[%d x %s]", t.Len, t.Elem.IRType(ctx)))
}
func (t *ArrayType) String() string { return fmt.Sprintf("arr[%s, %d]", t.Elem, t.Len) }
func (t *ArrayType) Equal(other Type) bool {
	o, ok := Unwrap(other).(*ArrayType)
	return ok && o.Len == t.Len && t.Elem.Equal(o.Elem)
}

func (t *ArrayType) HandleSubscript(em Emitter, base, index *ValueRef, node ast.Node) (*ValueRef, error) {
	if index == nil {
		return nil, report(em, errors.TYP001, node, "arr[T, N] requires an index expression")
	}
	b := em.Builder()
	zero := literalPlaceholder(b, irbuilder.NamedType("i64"))
	gep := b.GEP(base.IRValue, []irbuilder.IRValue{zero, index.IRValue}, "idx")
	return &ValueRef{Kind: KindAddress, IRValue: gep, TypeHint: t.Elem, Address: gep}, nil
}

// HandleAttribute supports `.len` (spec.md §4.1), the one attribute an
// array exposes without decaying.
func (t *ArrayType) HandleAttribute(em Emitter, base *ValueRef, name string, node ast.Node) (*ValueRef, error) {
	if name != "len" {
		return unsupportedAttribute(t, em, name, node)
	}
	b := em.Builder()
	irv := literalPlaceholder(b, irbuilder.NamedType("i64"))
	return &ValueRef{Kind: KindValue, IRValue: irv, TypeHint: USize,
		PyConstValue: int64(t.Len)}, nil
}

func (t *ArrayType) HandleCall(em Emitter, args []*ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedCall(t, em, node)
}

// HandleCast decays the array to ptr[Elem] when explicitly cast. The
// resulting pointer carries no qualifiers of the array.
func (t *ArrayType) HandleCast(em Emitter, operand *ValueRef, node ast.Node) (*ValueRef, error) {
	target := &PtrType{Pointee: t.Elem}
	return t.decayTo(em, operand, target, node)
}

// decayTo converts an array-typed ValueRef (which is always
// KindAddress — arrays never exist as bare values) into a pointer to its
// first element, as C's array-to-pointer decay rule does.
func (t *ArrayType) decayTo(em Emitter, operand *ValueRef, target *PtrType, node ast.Node) (*ValueRef, error) {
	if operand.Kind != KindAddress {
		return nil, report(em, errors.TYP008, node, "array value has no address to decay")
	}
	b := em.Builder()
	zero := literalPlaceholder(b, irbuilder.NamedType("i64"))
	gep := b.GEP(operand.IRValue, []irbuilder.IRValue{zero, zero}, "decay")
	return &ValueRef{Kind: KindValue, IRValue: gep, TypeHint: target}, nil
}
