package types

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
)

// castNumeric asks the backend to convert val to target, trusting the
// caller to have already established that a numeric conversion (not a
// pointer conversion) is in play. The text backend models this as a
// bitcast since it never actually executes the program; a real backend
// would emit sext/zext/trunc/fptrunc/fpext/fptosi/sitofp as appropriate
// based on val.Type() and target.
func castNumeric(b irbuilder.Builder, val irbuilder.IRValue, target irbuilder.IRType) (irbuilder.IRValue, error) {
	if val == nil {
		return nil, fmt.Errorf("cast of nil value")
	}
	return b.Bitcast(val, target, "numcast"), nil
}

// promotePyConstToInt finalizes a deferred python-constant literal
// against a concrete integer target (spec.md §3: python-constant
// promotion). It range-checks the literal against the target width so an
// out-of-range literal like `u8(300)` is rejected at compile time rather
// than silently wrapping.
func promotePyConstToInt(em Emitter, target *IntType, operand *ValueRef, node ast.Node) (*ValueRef, error) {
	n, ok := asInt64(operand.PyConstValue)
	if !ok {
		return nil, report(em, errors.TYP008, node, "cannot promote constant %v to %s", operand.PyConstValue, target)
	}
	lo, hi := intRange(target)
	if n < lo || n > hi {
		return nil, report(em, errors.TYP007, node, "constant %d out of range for %s", n, target)
	}
	b := em.Builder()
	irv := b.Bitcast(literalPlaceholder(b, target.IRType(b.Context())), target.IRType(b.Context()), "pyconst")
	return &ValueRef{Kind: KindValue, IRValue: irv, TypeHint: target}, nil
}

// promotePyConstToFloat finalizes a deferred python-constant literal
// against a concrete float target.
func promotePyConstToFloat(em Emitter, target *FloatType, operand *ValueRef, node ast.Node) (*ValueRef, error) {
	if _, ok := asFloat64(operand.PyConstValue); !ok {
		return nil, report(em, errors.TYP008, node, "cannot promote constant %v to %s", operand.PyConstValue, target)
	}
	b := em.Builder()
	irv := b.Bitcast(literalPlaceholder(b, target.IRType(b.Context())), target.IRType(b.Context()), "pyconst")
	return &ValueRef{Kind: KindValue, IRValue: irv, TypeHint: target}, nil
}

// literalPlaceholder produces a zero-value IRValue of the given type for
// the text backend to carry through promotion; a production backend
// would instead emit the actual constant bit pattern here.
func literalPlaceholder(b irbuilder.Builder, t irbuilder.IRType) irbuilder.IRValue {
	blk := b.CurrentBlock()
	if blk == nil {
		blk = b.NewBlock("const")
		b.SetInsertPoint(blk)
	}
	addr := b.Alloca(t, "lit")
	v, _ := b.Load(addr, irbuilder.Qualifiers{})
	return v
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), n == float64(int64(n))
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func intRange(t *IntType) (int64, int64) {
	if t.Signed {
		hi := int64(1)<<(uint(t.Bits)-1) - 1
		lo := -(hi + 1)
		return lo, hi
	}
	if t.Bits >= 64 {
		return 0, 1<<63 - 1 // conservative: full u64 range doesn't fit in int64
	}
	return 0, int64(1)<<uint(t.Bits) - 1
}

// PromoteBinaryOperands implements spec.md §4.1's numeric promotion
// ladder for binary arithmetic/comparison: bool widens to the other
// operand's int type; among two ints, the wider wins, and same-width
// mixed signedness promotes to unsigned; int vs float promotes to
// float; among two floats, the wider wins. Pointer operands are never
// promoted here — arithmetic on pointers is handled by PtrType directly.
func PromoteBinaryOperands(lt, rt Type) (Type, error) {
	l, r := Unwrap(lt), Unwrap(rt)

	if lb, ok := l.(*BoolType); ok {
		_ = lb
		if ri, ok := r.(*IntType); ok {
			return ri, nil
		}
		if _, ok := r.(*FloatType); ok {
			return r, nil
		}
		if _, ok := r.(*BoolType); ok {
			return I32, nil // spec.md §4.1: bool+bool arithmetic promotes to i32, same as Python
		}
	}
	if _, ok := r.(*BoolType); ok {
		return PromoteBinaryOperands(r, l)
	}

	lf, lIsF := l.(*FloatType)
	rf, rIsF := r.(*FloatType)
	li, lIsI := l.(*IntType)
	ri, rIsI := r.(*IntType)

	switch {
	case lIsF && rIsF:
		if lf.Bits >= rf.Bits {
			return lf, nil
		}
		return rf, nil
	case lIsF && rIsI:
		return lf, nil
	case lIsI && rIsF:
		return rf, nil
	case lIsI && rIsI:
		switch {
		case li.Bits > ri.Bits:
			return li, nil
		case ri.Bits > li.Bits:
			return ri, nil
		case li.Signed == ri.Signed:
			return li, nil
		default:
			return &IntType{Bits: li.Bits, Signed: false}, nil
		}
	}
	return nil, fmt.Errorf("no numeric promotion between %s and %s", lt, rt)
}
