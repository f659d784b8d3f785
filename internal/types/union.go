package types

import (
	"strings"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
)

// UnionType overlays several variant types at the same storage address
// (spec.md §4.1 union{variants}). It has no discriminant of its own —
// EnumType is the tagged form built on top of it.
type UnionType struct {
	Variants []Type
}

func (t *UnionType) ByteSize() int {
	max := 0
	for _, v := range t.Variants {
		if s := v.ByteSize(); s > max {
			max = s
		}
	}
	return max
}

func (t *UnionType) Alignment() int {
	max := 1
	for _, v := range t.Variants {
		if a := v.Alignment(); a > max {
			max = a
		}
	}
	return max
}

func (t *UnionType) IRType(ctx *irbuilder.Context) irbuilder.IRType {
	return irbuilder.NamedType("[" + itoaBytes(t.ByteSize()) + " x i8]")
}

func (t *UnionType) String() string {
	parts := make([]string, len(t.Variants))
	for i, v := range t.Variants {
		parts[i] = v.String()
	}
	return "union[" + strings.Join(parts, ", ") + "]"
}

func (t *UnionType) Equal(other Type) bool {
	o, ok := Unwrap(other).(*UnionType)
	if !ok || len(o.Variants) != len(t.Variants) {
		return false
	}
	for i, v := range t.Variants {
		if !v.Equal(o.Variants[i]) {
			return false
		}
	}
	return true
}

func (t *UnionType) HandleSubscript(em Emitter, base, index *ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedSubscript(t, em, node)
}

// HandleAttribute reinterprets the storage as the named variant: union
// attributes are spelled by variant index via "v0", "v1", ... since raw
// unions carry no field names of their own (named access belongs to
// EnumType, which wraps a UnionType with a discriminant).
func (t *UnionType) HandleAttribute(em Emitter, base *ValueRef, name string, node ast.Node) (*ValueRef, error) {
	idx, ok := parseVariantAttr(name)
	if !ok || idx < 0 || idx >= len(t.Variants) {
		return nil, report(em, errors.NAM001, node, "union has no member %q", name)
	}
	variant := t.Variants[idx]
	b := em.Builder()
	bc := b.Bitcast(base.IRValue, &ptrIRType{inner: variant.IRType(b.Context())}, "reinterpret")
	return &ValueRef{Kind: KindAddress, IRValue: bc, TypeHint: variant, Address: bc}, nil
}

func (t *UnionType) HandleCall(em Emitter, args []*ValueRef, node ast.Node) (*ValueRef, error) {
	if len(args) != 1 {
		return nil, report(em, errors.TYP004, node, "union constructor takes exactly one value")
	}
	b := em.Builder()
	addr := b.Alloca(t.IRType(b.Context()), "u")
	reinterpreted := b.Bitcast(addr, &ptrIRType{inner: args[0].TypeHint.IRType(b.Context())}, "as")
	if err := b.Store(args[0].IRValue, reinterpreted, irbuilder.Qualifiers{}); err != nil {
		return nil, report(em, errors.TYP004, node, "union init: %v", err)
	}
	return &ValueRef{Kind: KindAddress, IRValue: addr, TypeHint: t, Address: addr}, nil
}

func (t *UnionType) HandleCast(em Emitter, operand *ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedCast(t, em, node)
}

// ptrIRType is a minimal irbuilder.IRType used for bitcast targets built
// from an arbitrary element type without round-tripping through PtrType.
type ptrIRType struct{ inner irbuilder.IRType }

func (p *ptrIRType) String() string { return "ptr<" + p.inner.String() + ">" }

func parseVariantAttr(name string) (int, bool) {
	if len(name) < 2 || name[0] != 'v' {
		return 0, false
	}
	n := 0
	for _, c := range name[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func itoaBytes(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
