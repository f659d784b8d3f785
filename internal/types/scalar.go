package types

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
)

// IntType is a fixed-width integer (spec.md §4.1: i8/i16/i32/i64/u8/.../usize).
type IntType struct {
	Bits   int
	Signed bool
}

func (t *IntType) ByteSize() int  { return t.Bits / 8 }
func (t *IntType) Alignment() int { return t.ByteSize() }
func (t *IntType) IRType(ctx *irbuilder.Context) irbuilder.IRType {
	return irbuilder.NamedType(fmt.Sprintf("i%d", t.Bits))
}
func (t *IntType) String() string {
	if t.Signed {
		return fmt.Sprintf("i%d", t.Bits)
	}
	return fmt.Sprintf("u%d", t.Bits)
}
func (t *IntType) Equal(other Type) bool {
	o, ok := Unwrap(other).(*IntType)
	return ok && o.Bits == t.Bits && o.Signed == t.Signed
}

func (t *IntType) HandleSubscript(em Emitter, base, index *ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedSubscript(t, em, node)
}
func (t *IntType) HandleAttribute(em Emitter, base *ValueRef, name string, node ast.Node) (*ValueRef, error) {
	return unsupportedAttribute(t, em, name, node)
}
func (t *IntType) HandleCall(em Emitter, args []*ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedCall(t, em, node)
}

// HandleCast implements int(x) constructor/cast semantics: from another
// int (widen/narrow/change signedness), from float (truncate toward
// zero), from bool (0/1), or from a deferred python-constant (promote
// in place). Pointer-to-int is rejected here with TYP003; the only
// int/pointer conversion is the int-to-pointer `ptr[T](x)` spelling on
// PtrType (spec.md §4.1 "forbidden implicit conversions").
func (t *IntType) HandleCast(em Emitter, operand *ValueRef, node ast.Node) (*ValueRef, error) {
	if operand.Kind == KindPythonConstant {
		return promotePyConstToInt(em, t, operand, node)
	}
	switch Unwrap(operand.TypeHint).(type) {
	case *IntType, *FloatType, *BoolType:
		b := em.Builder()
		irv, err := castNumeric(b, operand.IRValue, t.IRType(b.Context()))
		if err != nil {
			return nil, report(em, errors.TYP008, node, "cannot cast to %s: %v", t, err)
		}
		return &ValueRef{Kind: KindValue, IRValue: irv, TypeHint: t}, nil
	case *PtrType:
		return nil, report(em, errors.TYP003, node,
			"implicit pointer-to-integer conversion is forbidden; use ptr[%s](x) for an explicit cast", t)
	default:
		return unsupportedCast(t, em, node)
	}
}

// FloatType is f32 or f64.
type FloatType struct{ Bits int }

func (t *FloatType) ByteSize() int  { return t.Bits / 8 }
func (t *FloatType) Alignment() int { return t.ByteSize() }
func (t *FloatType) IRType(ctx *irbuilder.Context) irbuilder.IRType {
	return irbuilder.NamedType(fmt.Sprintf("f%d", t.Bits))
}
func (t *FloatType) String() string { return fmt.Sprintf("f%d", t.Bits) }
func (t *FloatType) Equal(other Type) bool {
	o, ok := Unwrap(other).(*FloatType)
	return ok && o.Bits == t.Bits
}
func (t *FloatType) HandleSubscript(em Emitter, base, index *ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedSubscript(t, em, node)
}
func (t *FloatType) HandleAttribute(em Emitter, base *ValueRef, name string, node ast.Node) (*ValueRef, error) {
	return unsupportedAttribute(t, em, name, node)
}
func (t *FloatType) HandleCall(em Emitter, args []*ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedCall(t, em, node)
}
func (t *FloatType) HandleCast(em Emitter, operand *ValueRef, node ast.Node) (*ValueRef, error) {
	if operand.Kind == KindPythonConstant {
		return promotePyConstToFloat(em, t, operand, node)
	}
	switch Unwrap(operand.TypeHint).(type) {
	case *IntType, *FloatType, *BoolType:
		b := em.Builder()
		irv, err := castNumeric(b, operand.IRValue, t.IRType(b.Context()))
		if err != nil {
			return nil, report(em, errors.TYP008, node, "cannot cast to %s: %v", t, err)
		}
		return &ValueRef{Kind: KindValue, IRValue: irv, TypeHint: t}, nil
	default:
		return unsupportedCast(t, em, node)
	}
}

// BoolType is the single boolean type.
type BoolType struct{}

func (t *BoolType) ByteSize() int  { return 1 }
func (t *BoolType) Alignment() int { return 1 }
func (t *BoolType) IRType(ctx *irbuilder.Context) irbuilder.IRType { return irbuilder.NamedType("bool") }
func (t *BoolType) String() string                                { return "bool" }
func (t *BoolType) Equal(other Type) bool {
	_, ok := Unwrap(other).(*BoolType)
	return ok
}
func (t *BoolType) HandleSubscript(em Emitter, base, index *ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedSubscript(t, em, node)
}
func (t *BoolType) HandleAttribute(em Emitter, base *ValueRef, name string, node ast.Node) (*ValueRef, error) {
	return unsupportedAttribute(t, em, name, node)
}
func (t *BoolType) HandleCall(em Emitter, args []*ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedCall(t, em, node)
}
func (t *BoolType) HandleCast(em Emitter, operand *ValueRef, node ast.Node) (*ValueRef, error) {
	switch Unwrap(operand.TypeHint).(type) {
	case *IntType, *FloatType, *BoolType:
		b := em.Builder()
		irv, err := castNumeric(b, operand.IRValue, t.IRType(b.Context()))
		if err != nil {
			return nil, report(em, errors.TYP008, node, "cannot cast to bool: %v", err)
		}
		return &ValueRef{Kind: KindValue, IRValue: irv, TypeHint: t}, nil
	default:
		return unsupportedCast(t, em, node)
	}
}

// VoidType marks a function with no return value. It never appears as a
// variable's type.
type VoidType struct{}

func (t *VoidType) ByteSize() int  { return 0 }
func (t *VoidType) Alignment() int { return 1 }
func (t *VoidType) IRType(ctx *irbuilder.Context) irbuilder.IRType { return irbuilder.NamedType("void") }
func (t *VoidType) String() string                                { return "void" }
func (t *VoidType) Equal(other Type) bool {
	_, ok := Unwrap(other).(*VoidType)
	return ok
}
func (t *VoidType) HandleSubscript(em Emitter, base, index *ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedSubscript(t, em, node)
}
func (t *VoidType) HandleAttribute(em Emitter, base *ValueRef, name string, node ast.Node) (*ValueRef, error) {
	return unsupportedAttribute(t, em, name, node)
}
func (t *VoidType) HandleCall(em Emitter, args []*ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedCall(t, em, node)
}
func (t *VoidType) HandleCast(em Emitter, operand *ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedCast(t, em, node)
}

// Canonical singletons/constructors referenced throughout the compiler.
var (
	I8    = &IntType{Bits: 8, Signed: true}
	I16   = &IntType{Bits: 16, Signed: true}
	I32   = &IntType{Bits: 32, Signed: true}
	I64   = &IntType{Bits: 64, Signed: true}
	U8    = &IntType{Bits: 8, Signed: false}
	U16   = &IntType{Bits: 16, Signed: false}
	U32   = &IntType{Bits: 32, Signed: false}
	U64   = &IntType{Bits: 64, Signed: false}
	F32   = &FloatType{Bits: 32}
	F64   = &FloatType{Bits: 64}
	Bool  = &BoolType{}
	Void  = &VoidType{}
	USize = U64 // spec.md §4.1: usize is an alias for the pointer-width unsigned int
)
