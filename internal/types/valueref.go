package types

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/irbuilder"
)

// Kind is the discriminant of a ValueRef (spec.md §3).
type Kind int

const (
	// KindAddress: ir_value is a pointer whose pointee is TypeHint.IRType().
	KindAddress Kind = iota
	// KindValue: ir_value matches TypeHint.IRType() directly.
	KindValue
	// KindPythonConstant: PyConstValue holds the literal and TypeHint is
	// unset; promotion to a concrete type is deferred until a target is
	// known.
	KindPythonConstant
	// KindPointerConstant: a compile-time constant pointer value
	// (nullptr, or a constant-folded address).
	KindPointerConstant
)

func (k Kind) String() string {
	switch k {
	case KindAddress:
		return "address"
	case KindValue:
		return "value"
	case KindPythonConstant:
		return "python-constant"
	case KindPointerConstant:
		return "pointer-constant"
	default:
		return "unknown"
	}
}

// ValueRef is the uniform wrapper carrying `{kind, ir-value, address,
// type-hint, linear-path, source-var}` across the visitor (spec.md §3).
//
// Validate checks part of this shape: an address-kind ref has an
// IRValue, a value-kind ref has a TypeHint, a python-constant ref has a
// PyConstValue, and VarName/LinearPath are both set or both unset. It
// does not compare IRValue types against TypeHint.IRType().
type ValueRef struct {
	Kind       Kind
	IRValue    irbuilder.IRValue
	Address    irbuilder.IRValue // set only for KindAddress
	TypeHint   Type
	VarName    string // "" when this reference is not tied to a named variable
	LinearPath []int  // nil when this reference carries no linear-tracked path
	// PyConstValue holds the literal Go value (int64/float64/bool/string)
	// for KindPythonConstant refs, before a target type promotes it.
	PyConstValue any
}

// Validate checks the ValueRef invariants from spec.md §3. It returns a
// descriptive error rather than panicking so callers can surface it as an
// internal-compiler-error report.
func (v *ValueRef) Validate() error {
	switch v.Kind {
	case KindAddress:
		if v.IRValue == nil {
			return fmt.Errorf("address-kind ValueRef has nil ir_value")
		}
	case KindValue:
		if v.TypeHint == nil {
			return fmt.Errorf("value-kind ValueRef has nil type hint")
		}
	case KindPythonConstant:
		if v.PyConstValue == nil {
			return fmt.Errorf("python-constant ValueRef has nil constant value")
		}
	}
	if (v.VarName == "") != (v.LinearPath == nil) {
		return fmt.Errorf("ValueRef var_name/linear_path must both be set or both unset")
	}
	return nil
}

// IsLinearTracked reports whether this reference points into a
// linear-tracked location.
func (v *ValueRef) IsLinearTracked() bool {
	return v.VarName != "" && v.LinearPath != nil
}

// WithLinearPath returns a copy of v tagged with the given variable name
// and path, used when the visitor narrows a reference into a sub-field of
// a linear-bearing composite.
func (v *ValueRef) WithLinearPath(varName string, path []int) *ValueRef {
	cp := *v
	cp.VarName = varName
	cp.LinearPath = append([]int(nil), path...)
	return &cp
}

func (v *ValueRef) String() string {
	switch v.Kind {
	case KindPythonConstant:
		return fmt.Sprintf("pyconst(%v)", v.PyConstValue)
	default:
		t := "?"
		if v.TypeHint != nil {
			t = v.TypeHint.String()
		}
		return fmt.Sprintf("%s<%s>(%v)", v.Kind, t, v.IRValue)
	}
}
