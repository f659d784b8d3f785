package types

import (
	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
)

// EnumVariant names one tagged alternative of an EnumType.
type EnumVariant struct {
	Name    string
	Payload Type // nil for a unit variant (e.g. Status.Ok with no payload)
	Tag     int64
}

// EnumType is a tagged union: an i32 discriminant followed by a
// UnionType big enough to hold the widest payload (spec.md §4.1
// Enum{variant_names, variant_payload_types, tag_values}). The
// exhaustiveness checker (internal/exhaust) always treats it as finite:
// its variants can be enumerated whatever their payloads, and each
// payload is then checked as a column of its own.
type EnumType struct {
	Name     string
	Variants []EnumVariant
	ByName   map[string]int
	payload  *UnionType
}

// NewEnumType builds an EnumType and its internal payload union.
func NewEnumType(name string, variants []EnumVariant) *EnumType {
	idx := make(map[string]int, len(variants))
	payloads := make([]Type, 0, len(variants))
	for i, v := range variants {
		idx[v.Name] = i
		if v.Payload != nil {
			payloads = append(payloads, v.Payload)
		}
	}
	var u *UnionType
	if len(payloads) > 0 {
		u = &UnionType{Variants: payloads}
	}
	return &EnumType{Name: name, Variants: variants, ByName: idx, payload: u}
}

func (t *EnumType) ByteSize() int {
	size := 4 // i32 tag
	if t.payload != nil {
		if a := t.payload.Alignment(); a > 0 && size%a != 0 {
			size += a - size%a
		}
		size += t.payload.ByteSize()
	}
	return size
}

func (t *EnumType) Alignment() int {
	a := 4
	if t.payload != nil {
		if pa := t.payload.Alignment(); pa > a {
			a = pa
		}
	}
	return a
}

func (t *EnumType) IRType(ctx *irbuilder.Context) irbuilder.IRType {
	if t.payload == nil {
		return irbuilder.NamedType("%enum." + t.Name + " = type {i32}")
	}
	return irbuilder.NamedType("%enum." + t.Name + " = type {i32, " + t.payload.IRType(ctx).String() + "}")
}

func (t *EnumType) String() string { return t.Name }

func (t *EnumType) Equal(other Type) bool {
	o, ok := Unwrap(other).(*EnumType)
	return ok && o.Name == t.Name
}

// IsFinite reports whether the enum's constructors can be enumerated by
// the exhaustiveness checker (spec.md §4.5). It always returns true: the
// variant set is fixed whatever the payload types, and the checker
// examines each payload as its own column after specializing on the
// variant, so an i32 payload still needs a wildcard there. It does not
// descend into payloads, so a recursive payload cannot loop; visiting is
// not consulted.
func (t *EnumType) IsFinite(visiting map[string]bool) bool {
	return true
}

func isFiniteType(t Type, visiting map[string]bool) bool {
	switch tt := Unwrap(t).(type) {
	case *BoolType:
		return true
	case *EnumType:
		return tt.IsFinite(visiting)
	case *StructType:
		for _, f := range tt.Fields {
			if !isFiniteType(f.Type, visiting) {
				return false
			}
		}
		return true
	case *ArrayType:
		return isFiniteType(tt.Elem, visiting)
	default:
		return false
	}
}

func (t *EnumType) HandleSubscript(em Emitter, base, index *ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedSubscript(t, em, node)
}

// HandleAttribute exposes ".tag" (the i32 discriminant) plus, for the
// active variant, its unwrapped payload via the variant's own name.
func (t *EnumType) HandleAttribute(em Emitter, base *ValueRef, name string, node ast.Node) (*ValueRef, error) {
	b := em.Builder()
	if name == "tag" {
		zero := literalPlaceholder(b, irbuilder.NamedType("i64"))
		tagIdx := literalPlaceholder(b, irbuilder.NamedType("i32"))
		gep := b.GEP(base.IRValue, []irbuilder.IRValue{zero, tagIdx}, "tag")
		return &ValueRef{Kind: KindAddress, IRValue: gep, TypeHint: I32, Address: gep}, nil
	}
	i, ok := t.ByName[name]
	if !ok {
		return nil, report(em, errors.TYP005, node, "enum %s has no variant %q", t.Name, name)
	}
	v := t.Variants[i]
	if v.Payload == nil {
		return nil, report(em, errors.TYP005, node, "variant %s.%s carries no payload", t.Name, name)
	}
	one := literalPlaceholder(b, irbuilder.NamedType("i64"))
	payloadIdx := literalPlaceholder(b, irbuilder.NamedType("i32"))
	gep := b.GEP(base.IRValue, []irbuilder.IRValue{one, payloadIdx}, name)
	bc := b.Bitcast(gep, &ptrIRType{inner: v.Payload.IRType(b.Context())}, "variant")
	return &ValueRef{Kind: KindAddress, IRValue: bc, TypeHint: v.Payload, Address: bc}, nil
}

// HandleCall constructs variant 0 when the enum has exactly one variant
// and reports TYP004 otherwise. HandleAttribute maps a variant name to
// the address of its payload, not to a constructor, so no
// `Status.Ok(7)`-style construction path goes through this type.
func (t *EnumType) HandleCall(em Emitter, args []*ValueRef, node ast.Node) (*ValueRef, error) {
	if len(t.Variants) != 1 {
		return nil, report(em, errors.TYP004, node, "enum %s requires a variant selector, e.g. %s.%s(...)", t.Name, t.Name, t.Variants[0].Name)
	}
	return t.buildVariant(em, 0, args, node)
}

func (t *EnumType) buildVariant(em Emitter, variantIdx int, args []*ValueRef, node ast.Node) (*ValueRef, error) {
	v := t.Variants[variantIdx]
	b := em.Builder()
	addr := b.Alloca(t.IRType(b.Context()), "enumval")
	zero := literalPlaceholder(b, irbuilder.NamedType("i64"))
	tagIdx := literalPlaceholder(b, irbuilder.NamedType("i32"))
	tagAddr := b.GEP(addr, []irbuilder.IRValue{zero, tagIdx}, "tag")
	tagLit := literalPlaceholder(b, irbuilder.NamedType("i32"))
	if err := b.Store(tagLit, tagAddr, irbuilder.Qualifiers{}); err != nil {
		return nil, report(em, errors.TYP004, node, "enum tag init: %v", err)
	}
	if v.Payload != nil {
		if len(args) != 1 {
			return nil, report(em, errors.TYP004, node, "variant %s.%s expects exactly one payload value", t.Name, v.Name)
		}
		one := literalPlaceholder(b, irbuilder.NamedType("i64"))
		payloadIdx := literalPlaceholder(b, irbuilder.NamedType("i32"))
		payloadAddr := b.GEP(addr, []irbuilder.IRValue{one, payloadIdx}, v.Name)
		bc := b.Bitcast(payloadAddr, &ptrIRType{inner: v.Payload.IRType(b.Context())}, "payload")
		if err := b.Store(args[0].IRValue, bc, irbuilder.Qualifiers{}); err != nil {
			return nil, report(em, errors.TYP004, node, "variant payload init: %v", err)
		}
	} else if len(args) != 0 {
		return nil, report(em, errors.TYP004, node, "unit variant %s.%s takes no arguments", t.Name, v.Name)
	}
	return &ValueRef{Kind: KindAddress, IRValue: addr, TypeHint: t, Address: addr}, nil
}

func (t *EnumType) HandleCast(em Emitter, operand *ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedCast(t, em, node)
}

func (t *EnumType) VariantNames() []string {
	names := make([]string, len(t.Variants))
	for i, v := range t.Variants {
		names[i] = v.Name
	}
	return names
}
