package types

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
)

// RefinedType wraps a predicate-named constraint over one or more
// parameters (spec.md §4.1 Refined{base, predicates, tags}; grounded on
// original_source/pythoc/builtin_entities/refined.py). A single-parameter
// predicate is a zero-overhead wrapper — ByteSize/Alignment/IRType all
// delegate straight to the parameter's own type, and the refinement
// exists only as a compile-time tag. A multi-parameter predicate is
// backed by a struct holding one field per named parameter.
type RefinedType struct {
	PredicateName string
	ParamNames    []string
	ParamTypes    []Type
	Tags          []string
	structType    *StructType // nil for single-parameter refinements
}

// NewRefinedType builds a RefinedType, constructing the backing struct
// when more than one predicate parameter is present.
func NewRefinedType(predicateName string, paramNames []string, paramTypes []Type, tags []string) (*RefinedType, error) {
	if len(paramNames) != len(paramTypes) {
		return nil, fmt.Errorf("%s: refined[%s]: %d parameter names but %d types", errors.TYP009, predicateName, len(paramNames), len(paramTypes))
	}
	if len(paramTypes) == 0 {
		return nil, fmt.Errorf("%s: refined[%s]: predicate must take at least one parameter", errors.TYP009, predicateName)
	}
	rt := &RefinedType{PredicateName: predicateName, ParamNames: paramNames, ParamTypes: paramTypes, Tags: tags}
	if len(paramTypes) > 1 {
		fields := make([]StructField, len(paramTypes))
		for i := range paramTypes {
			fields[i] = StructField{Name: paramNames[i], Type: paramTypes[i]}
		}
		rt.structType = NewStructType("refined."+predicateName, fields)
	}
	return rt, nil
}

func (t *RefinedType) isSingleParam() bool { return len(t.ParamTypes) == 1 }

// IsSingleParam reports whether t is the zero-overhead single-parameter
// form (no backing struct) rather than the multi-parameter aggregate
// form, for collaborators outside this package (e.g. internal/loader's
// ABI classifier) that need to decide how to marshal a refined value
// without reaching into unexported fields.
func (t *RefinedType) IsSingleParam() bool { return t.isSingleParam() }

// Underlying returns the type a refinement is structurally compatible
// with for lowering purposes (spec.md §4.1): the sole parameter's type
// for a single-parameter refinement, or the backing struct for a
// multi-parameter one.
func (t *RefinedType) Underlying() Type { return t.underlying() }

func (t *RefinedType) underlying() Type {
	if t.isSingleParam() {
		return t.ParamTypes[0]
	}
	return t.structType
}

func (t *RefinedType) ByteSize() int  { return t.underlying().ByteSize() }
func (t *RefinedType) Alignment() int { return t.underlying().Alignment() }
func (t *RefinedType) IRType(ctx *irbuilder.Context) irbuilder.IRType {
	return t.underlying().IRType(ctx)
}
func (t *RefinedType) String() string { return "refined[" + t.PredicateName + "]" }
func (t *RefinedType) Equal(other Type) bool {
	o, ok := Unwrap(other).(*RefinedType)
	return ok && o.PredicateName == t.PredicateName
}

// HandleSubscript delegates value subscripting to the backing struct for
// multi-parameter refinements; single-parameter refinements have no
// subscript protocol of their own (spec.md: "use the value directly or
// access by field name").
func (t *RefinedType) HandleSubscript(em Emitter, base, index *ValueRef, node ast.Node) (*ValueRef, error) {
	if t.isSingleParam() {
		return nil, report(em, errors.TYP009, node, "%s is a single-parameter refinement and does not support subscripting", t)
	}
	return t.structType.HandleSubscript(em, base, index, node)
}

// HandleAttribute for a single-parameter refinement: the parameter's own
// name returns the value unchanged, anything else delegates to the
// underlying type's attribute protocol rewrapped without the refinement
// tag. For a multi-parameter refinement, delegates straight to the
// backing struct.
func (t *RefinedType) HandleAttribute(em Emitter, base *ValueRef, name string, node ast.Node) (*ValueRef, error) {
	if t.isSingleParam() {
		if name == t.ParamNames[0] {
			return base, nil
		}
		rewrapped := *base
		rewrapped.TypeHint = t.ParamTypes[0]
		return t.ParamTypes[0].HandleAttribute(em, &rewrapped, name, node)
	}
	return t.structType.HandleAttribute(em, base, name, node)
}

// HandleCall implements the unchecked constructor `refined[Pred](...)`
// (equivalent to `assume(...)` in the original — spec.md's refinement
// predicates are validated only by the separate `refine()` intrinsic,
// not by this constructor).
func (t *RefinedType) HandleCall(em Emitter, args []*ValueRef, node ast.Node) (*ValueRef, error) {
	if len(args) != len(t.ParamTypes) {
		return nil, report(em, errors.TYP004, node, "%s takes %d argument(s), got %d", t, len(t.ParamTypes), len(args))
	}
	if t.isSingleParam() {
		return &ValueRef{Kind: KindValue, IRValue: args[0].IRValue, TypeHint: t}, nil
	}
	built, err := t.structType.HandleCall(em, args, node)
	if err != nil {
		return nil, err
	}
	built.TypeHint = t
	return built, nil
}

func (t *RefinedType) HandleCast(em Emitter, operand *ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedCast(t, em, node)
}
