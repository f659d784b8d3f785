package types

import (
	"strings"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
)

// FuncPtrType is a first-class function-pointer type (spec.md §4.1
// FuncPtr{params, return}), produced by decorator(extern)-declared
// signatures and by taking a compiled function as a value.
type FuncPtrType struct {
	Params   []Type
	Return   Type
	Variadic bool
}

func (t *FuncPtrType) ByteSize() int  { return 8 }
func (t *FuncPtrType) Alignment() int { return 8 }
func (t *FuncPtrType) IRType(ctx *irbuilder.Context) irbuilder.IRType {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.IRType(ctx).String()
	}
	variadicTag := ""
	if t.Variadic {
		variadicTag = ", ..."
	}
	return irbuilder.NamedType("ptr<func(" + strings.Join(parts, ", ") + variadicTag + ") -> " + t.Return.IRType(ctx).String() + ">")
}
func (t *FuncPtrType) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return "func(" + strings.Join(parts, ", ") + ") -> " + t.Return.String()
}
func (t *FuncPtrType) Equal(other Type) bool {
	o, ok := Unwrap(other).(*FuncPtrType)
	if !ok || len(o.Params) != len(t.Params) || t.Variadic != o.Variadic || !t.Return.Equal(o.Return) {
		return false
	}
	for i, p := range t.Params {
		if !p.Equal(o.Params[i]) {
			return false
		}
	}
	return true
}

func (t *FuncPtrType) HandleSubscript(em Emitter, base, index *ValueRef, node ast.Node) (*ValueRef, error) {
	return unsupportedSubscript(t, em, node)
}
func (t *FuncPtrType) HandleAttribute(em Emitter, base *ValueRef, name string, node ast.Node) (*ValueRef, error) {
	return unsupportedAttribute(t, em, name, node)
}

// HandleCall implements an ordinary call through the function pointer,
// applying the calling convention recorded at the extern/compile
// declaration site (spec.md §4.2 Call semantics).
func (t *FuncPtrType) HandleCall(em Emitter, args []*ValueRef, node ast.Node) (*ValueRef, error) {
	if !t.Variadic && len(args) != len(t.Params) {
		return nil, report(em, errors.TYP004, node, "call expects %d arguments, got %d", len(t.Params), len(args))
	}
	b := em.Builder()
	conv := irbuilder.ConvDefault
	if t.Variadic {
		conv = irbuilder.ConvVarargs
	}
	paramHints := make([]irbuilder.IRType, len(t.Params))
	for i, p := range t.Params {
		paramHints[i] = p.IRType(b.Context())
	}
	irArgs := make([]irbuilder.IRValue, len(args))
	for i, a := range args {
		irArgs[i] = a.IRValue
	}
	var returnHint irbuilder.IRType
	if _, isVoid := Unwrap(t.Return).(*VoidType); !isVoid {
		returnHint = t.Return.IRType(b.Context())
	}
	fnVal := literalPlaceholder(b, t.IRType(b.Context()))
	result, err := b.Call(fnVal, irArgs, paramHints, returnHint, conv)
	if err != nil {
		return nil, report(em, errors.TYP004, node, "call failed: %v", err)
	}
	if returnHint == nil {
		return &ValueRef{Kind: KindValue, TypeHint: Void}, nil
	}
	return &ValueRef{Kind: KindValue, IRValue: result, TypeHint: t.Return}, nil
}

func (t *FuncPtrType) HandleCast(em Emitter, operand *ValueRef, node ast.Node) (*ValueRef, error) {
	if _, ok := Unwrap(operand.TypeHint).(*FuncPtrType); !ok {
		return unsupportedCast(t, em, node)
	}
	b := em.Builder()
	irv := b.Bitcast(operand.IRValue, t.IRType(b.Context()), "fpcast")
	return &ValueRef{Kind: KindValue, IRValue: irv, TypeHint: t}, nil
}
