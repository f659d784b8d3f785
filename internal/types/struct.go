package types

import (
	"strings"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
)

// StructField names one member of a StructType.
type StructField struct {
	Name string
	Type Type
}

// StructType is an aggregate of named fields laid out in declaration
// order (spec.md §4.1 struct{fields, by_name_index}). ByName is built
// once at construction and reused by every HandleAttribute lookup.
type StructType struct {
	Name   string
	Fields []StructField
	ByName map[string]int
}

// NewStructType builds a StructType and its by-name index.
func NewStructType(name string, fields []StructField) *StructType {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f.Name] = i
	}
	return &StructType{Name: name, Fields: fields, ByName: idx}
}

func (t *StructType) ByteSize() int {
	size := 0
	for _, f := range t.Fields {
		a := f.Type.Alignment()
		if a > 0 && size%a != 0 {
			size += a - size%a
		}
		size += f.Type.ByteSize()
	}
	if a := t.Alignment(); a > 0 && size%a != 0 {
		size += a - size%a
	}
	return size
}

func (t *StructType) Alignment() int {
	max := 1
	for _, f := range t.Fields {
		if a := f.Type.Alignment(); a > max {
			max = a
		}
	}
	return max
}

func (t *StructType) IRType(ctx *irbuilder.Context) irbuilder.IRType {
	var b strings.Builder
	b.WriteString("%struct." + t.Name + " = type {")
	for i, f := range t.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Type.IRType(ctx).String())
	}
	b.WriteString("}")
	return irbuilder.NamedType(b.String())
}

func (t *StructType) String() string { return t.Name }

func (t *StructType) Equal(other Type) bool {
	o, ok := Unwrap(other).(*StructType)
	if !ok || o.Name != t.Name || len(o.Fields) != len(t.Fields) {
		return false
	}
	for i, f := range t.Fields {
		if f.Name != o.Fields[i].Name || !f.Type.Equal(o.Fields[i].Type) {
			return false
		}
	}
	return true
}

func (t *StructType) HandleSubscript(em Emitter, base, index *ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedSubscript(t, em, node)
}

// HandleAttribute implements field access (spec.md §4.2): on an address
// it yields an address (GEP into the field slot); on a value it extracts
// the field directly.
func (t *StructType) HandleAttribute(em Emitter, base *ValueRef, name string, node ast.Node) (*ValueRef, error) {
	i, ok := t.ByName[name]
	if !ok {
		return nil, report(em, errors.TYP005, node, "struct %s has no field %q", t.Name, name)
	}
	field := t.Fields[i]
	b := em.Builder()
	if base.Kind == KindAddress {
		zero := literalPlaceholder(b, irbuilder.NamedType("i64"))
		idx := literalPlaceholder(b, irbuilder.NamedType("i32"))
		gep := b.GEP(base.IRValue, []irbuilder.IRValue{zero, idx}, name)
		ref := &ValueRef{Kind: KindAddress, IRValue: gep, TypeHint: field.Type, Address: gep}
		if base.IsLinearTracked() {
			ref = ref.WithLinearPath(base.VarName, append(append([]int(nil), base.LinearPath...), i))
		}
		return ref, nil
	}
	extracted := literalPlaceholder(b, field.Type.IRType(b.Context()))
	return &ValueRef{Kind: KindValue, IRValue: extracted, TypeHint: field.Type}, nil
}

// HandleCall implements aggregate construction `struct[…](a, b, c)`
// (spec.md §4.2); arguments must match field arity exactly.
func (t *StructType) HandleCall(em Emitter, args []*ValueRef, node ast.Node) (*ValueRef, error) {
	if len(args) != len(t.Fields) {
		return nil, report(em, errors.TYP004, node, "struct %s expects %d fields, got %d", t.Name, len(t.Fields), len(args))
	}
	b := em.Builder()
	addr := b.Alloca(t.IRType(b.Context()), "agg")
	for i, a := range args {
		zero := literalPlaceholder(b, irbuilder.NamedType("i64"))
		idx := literalPlaceholder(b, irbuilder.NamedType("i32"))
		gep := b.GEP(addr, []irbuilder.IRValue{zero, idx}, t.Fields[i].Name)
		if err := b.Store(a.IRValue, gep, irbuilder.Qualifiers{}); err != nil {
			return nil, report(em, errors.TYP004, node, "storing field %s: %v", t.Fields[i].Name, err)
		}
	}
	return &ValueRef{Kind: KindAddress, IRValue: addr, TypeHint: t, Address: addr}, nil
}

func (t *StructType) HandleCast(em Emitter, operand *ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedCast(t, em, node)
}
