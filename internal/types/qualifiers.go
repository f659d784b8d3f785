package types

import (
	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
)

// Qualified wraps an underlying type with const/volatile qualifiers
// (spec.md §4.1). Qualifiers do not change ABI shape — ByteSize,
// Alignment, and IRType all delegate to Inner — they only change what
// Store/Load are allowed to do, which is enforced by the visitor via
// irbuilder.Qualifiers rather than here.
type Qualified struct {
	Inner    Type
	Const    bool
	Volatile bool
}

func (q *Qualified) ByteSize() int  { return q.Inner.ByteSize() }
func (q *Qualified) Alignment() int { return q.Inner.Alignment() }
func (q *Qualified) IRType(ctx *irbuilder.Context) irbuilder.IRType {
	return q.Inner.IRType(ctx)
}

func (q *Qualified) String() string {
	s := q.Inner.String()
	if q.Const {
		s = "const " + s
	}
	if q.Volatile {
		s = "volatile " + s
	}
	return s
}

func (q *Qualified) Equal(other Type) bool {
	o, ok := other.(*Qualified)
	if !ok {
		return false
	}
	return q.Const == o.Const && q.Volatile == o.Volatile && q.Inner.Equal(o.Inner)
}

// Qualifiers mirrors irbuilder.Qualifiers so callers unwrapping a
// Qualified type don't need to import irbuilder just for this.
func (q *Qualified) Qualifiers() irbuilder.Qualifiers {
	return irbuilder.Qualifiers{Const: q.Const, Volatile: q.Volatile}
}

// Unwrap strips any Qualified wrapper, returning the innermost type.
// Most Type methods that need the "real" variant (e.g. deciding whether a
// cast is a numeric cast) should call this first.
func Unwrap(t Type) Type {
	for {
		q, ok := t.(*Qualified)
		if !ok {
			return t
		}
		t = q.Inner
	}
}

func (q *Qualified) HandleSubscript(em Emitter, base, index *ValueRef, node ast.Node) (*ValueRef, error) {
	return q.Inner.HandleSubscript(em, base, index, node)
}
func (q *Qualified) HandleAttribute(em Emitter, base *ValueRef, name string, node ast.Node) (*ValueRef, error) {
	return q.Inner.HandleAttribute(em, base, name, node)
}
func (q *Qualified) HandleCall(em Emitter, args []*ValueRef, node ast.Node) (*ValueRef, error) {
	return q.Inner.HandleCall(em, args, node)
}
func (q *Qualified) HandleCast(em Emitter, operand *ValueRef, node ast.Node) (*ValueRef, error) {
	return q.Inner.HandleCast(em, operand, node)
}
