// Package types implements the pythoc type lattice (spec.md §4.1) and the
// value-reference protocol that flows through the lowering driver
// (spec.md §3). The two live in one package — ValueRef is defined in
// valueref.go — because every Type dispatch method both consumes and
// produces ValueRefs; splitting them into separate packages would force
// an artificial interface-inversion layer for no benefit (see DESIGN.md).
package types

import (
	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
)

// Type is the algebraic TypeObject interface from spec.md §3. Every
// variant answers its ABI shape and dispatches the four uniform
// operations (subscript/attribute/call/cast) spec.md §4.1 describes.
type Type interface {
	// ByteSize returns the size in bytes this type occupies.
	ByteSize() int
	// Alignment returns the required alignment in bytes.
	Alignment() int
	// IRType returns the backend IR type for this TypeObject.
	IRType(ctx *irbuilder.Context) irbuilder.IRType
	// String renders the type the way annotations spell it.
	String() string
	// Equal reports structural equality (not identity — hash-consing
	// makes identity equality usually also hold, but callers should not
	// rely on that).
	Equal(other Type) bool

	// HandleSubscript implements `base[index]` for a value, or
	// `base[T, N...]` as a type-constructor expression when index is nil.
	HandleSubscript(em Emitter, base *ValueRef, index *ValueRef, node ast.Node) (*ValueRef, error)
	// HandleAttribute implements `base.name`.
	HandleAttribute(em Emitter, base *ValueRef, name string, node ast.Node) (*ValueRef, error)
	// HandleCall implements constructor calls (`T(...)`) and, for
	// FuncPtr-typed values, ordinary calls.
	HandleCall(em Emitter, args []*ValueRef, node ast.Node) (*ValueRef, error)
	// HandleCast implements explicit `T(x)` casts and exposing a
	// first-class reference to a compiled function.
	HandleCast(em Emitter, operand *ValueRef, node ast.Node) (*ValueRef, error)
}

// Emitter is the minimal surface the type lattice needs from the AST
// visitor to emit IR and report errors. It is defined here (the
// consumer) rather than in the visitor package, so internal/types never
// imports internal/visitor — the visitor's Context implements this
// interface structurally.
type Emitter interface {
	Builder() irbuilder.Builder
	FreshTemp(prefix string) string
	Report(code string, node ast.Node, format string, args ...any) error
}

// report is a small helper so variant methods read naturally:
// `return nil, report(em, errors.TYP004, node, "...")`.
func report(em Emitter, code string, node ast.Node, format string, args ...any) error {
	return em.Report(code, node, format, args...)
}

// unsupported is the shared "this variant doesn't support this operation"
// fallback, used by variants (Bool, Void, ...) that have no subscript or
// attribute protocol of their own.
func unsupportedSubscript(t Type, em Emitter, node ast.Node) (*ValueRef, error) {
	return nil, report(em, errors.TYP001, node, "type %s does not support subscripting", t)
}
func unsupportedAttribute(t Type, em Emitter, name string, node ast.Node) (*ValueRef, error) {
	return nil, report(em, errors.NAM001, node, "type %s has no attribute %q", t, name)
}
func unsupportedCall(t Type, em Emitter, node ast.Node) (*ValueRef, error) {
	return nil, report(em, errors.TYP001, node, "type %s is not callable", t)
}
func unsupportedCast(t Type, em Emitter, node ast.Node) (*ValueRef, error) {
	return nil, report(em, errors.TYP001, node, "type %s does not support casting", t)
}
