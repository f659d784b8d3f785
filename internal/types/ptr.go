package types

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
)

// PtrType is a raw pointer (spec.md §4.1 ptr[T]). An array becomes a
// PtrType only through an explicit cast (ArrayType.HandleCast, or
// PtrType.HandleCast below on an array operand); no other expression
// position decays an array.
type PtrType struct {
	Pointee Type
}

func (t *PtrType) ByteSize() int  { return 8 }
func (t *PtrType) Alignment() int { return 8 }
func (t *PtrType) IRType(ctx *irbuilder.Context) irbuilder.IRType {
	return irbuilder.NamedType("ptr<" + t.Pointee.IRType(ctx).String() + ">")
}
func (t *PtrType) String() string { return fmt.Sprintf("ptr[%s]", t.Pointee) }
func (t *PtrType) Equal(other Type) bool {
	o, ok := Unwrap(other).(*PtrType)
	return ok && t.Pointee.Equal(o.Pointee)
}

// HandleSubscript implements `p[i]` (pointer arithmetic + dereference,
// producing an address-kind reference to Pointee) and the bare
// `ptr[T, N]` type-constructor spelling when index is nil is not
// supported on an already-constructed PtrType — that form is parsed at
// the annotation level, not through this dispatch.
func (t *PtrType) HandleSubscript(em Emitter, base, index *ValueRef, node ast.Node) (*ValueRef, error) {
	if index == nil {
		return nil, report(em, errors.TYP001, node, "ptr[T] requires an index expression")
	}
	b := em.Builder()
	gep := b.GEP(base.IRValue, []irbuilder.IRValue{index.IRValue}, "idx")
	return &ValueRef{Kind: KindAddress, IRValue: gep, TypeHint: t.Pointee, Address: gep}, nil
}

func (t *PtrType) HandleAttribute(em Emitter, base *ValueRef, name string, node ast.Node) (*ValueRef, error) {
	return unsupportedAttribute(t, em, name, node)
}

func (t *PtrType) HandleCall(em Emitter, args []*ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedCall(t, em, node)
}

// HandleCast implements ptr[T](x) for a pointer, an integer or an array
// operand (the array decays to a pointer to its first element). This is
// the only int/pointer conversion: IntType.HandleCast rejects a pointer
// operand with TYP003, so there is no pointer-to-int cast (spec.md §4.1
// "forbidden implicit conversions").
func (t *PtrType) HandleCast(em Emitter, operand *ValueRef, node ast.Node) (*ValueRef, error) {
	b := em.Builder()
	switch ot := Unwrap(operand.TypeHint).(type) {
	case *PtrType:
		irv := b.Bitcast(operand.IRValue, t.IRType(b.Context()), "ptrcast")
		return &ValueRef{Kind: KindValue, IRValue: irv, TypeHint: t}, nil
	case *IntType:
		irv := b.Bitcast(operand.IRValue, t.IRType(b.Context()), "inttoptr")
		return &ValueRef{Kind: KindValue, IRValue: irv, TypeHint: t}, nil
	case *ArrayType:
		return ot.decayTo(em, operand, t, node)
	default:
		return unsupportedCast(t, em, node)
	}
}
