package loader

import (
	"reflect"

	"github.com/pythoc-lang/pythoc/internal/types"
)

// nativeKind classifies a TypeObject for the loader's ctypes-shaped
// signature construction (spec.md §4.10 loader step 4: "the loader
// builds a ctypes-shaped signature from the recorded FunctionInfo,
// mapping each TypeObject to a native type, skipping linear parameters
// which are zero-sized at the ABI").
type nativeKind int

const (
	nativeInt nativeKind = iota
	nativeFloat
	nativePointer
	nativeVoid
	nativeAggregate // struct/array/enum/union passed/returned by value
	nativeSkip      // linear token: zero-sized, dropped from the signature
)

// classify resolves t to the shape the call wrapper needs to marshal an
// argument or return value, unwrapping qualifiers and refinements first
// since both are ABI-transparent (spec.md §4.1: a refinement is
// "structurally compatible with its underlying type for lowering").
func classify(t types.Type) (nativeKind, int) {
	switch u := unwrapAll(t).(type) {
	case *types.IntType:
		return nativeInt, u.Bits
	case *types.FloatType:
		return nativeFloat, u.Bits
	case *types.BoolType:
		return nativeInt, 8
	case *types.PtrType, *types.FuncPtrType:
		return nativePointer, 64
	case *types.VoidType:
		return nativeVoid, 0
	case *types.LinearType:
		if u.Payload == nil {
			return nativeSkip, 0
		}
		return classify(u.Payload)
	case *types.RefinedType:
		// ABI-transparent (spec.md §4.1: "structurally compatible with
		// its underlying type for lowering"), whether that underlying
		// type is the sole parameter or the multi-parameter backing
		// struct.
		return classify(u.Underlying())
	case *types.StructType, *types.ArrayType, *types.EnumType, *types.UnionType:
		return nativeAggregate, t.ByteSize() * 8
	default:
		return nativeAggregate, t.ByteSize() * 8
	}
}

// unwrapAll strips Qualified wrappers and multi-parameter refinements
// collapse to their backing struct naturally in classify, so this only
// needs to peel qualifiers (types.Unwrap's existing job) before
// dispatch.
func unwrapAll(t types.Type) types.Type {
	return types.Unwrap(t)
}

// goType returns the reflect.Type a marshaled argument/return value of
// kind/bits takes on the Go side of the call wrapper. Aggregates are
// represented as a flat byte slice of the right size — the wrapper
// leaves unpacking a struct-by-value result to the caller, matching
// ctypes' own "byref or raw bytes" escape hatch for types it has no
// named binding for.
func goType(kind nativeKind, bits int) reflect.Type {
	switch kind {
	case nativeInt:
		switch {
		case bits <= 8:
			return reflect.TypeOf(int8(0))
		case bits <= 16:
			return reflect.TypeOf(int16(0))
		case bits <= 32:
			return reflect.TypeOf(int32(0))
		default:
			return reflect.TypeOf(int64(0))
		}
	case nativeFloat:
		if bits <= 32 {
			return reflect.TypeOf(float32(0))
		}
		return reflect.TypeOf(float64(0))
	case nativePointer:
		return reflect.TypeOf(uintptr(0))
	case nativeAggregate:
		return reflect.TypeOf([]byte(nil))
	default: // nativeVoid, nativeSkip
		return nil
	}
}

// varargsPromote applies the C default argument promotions spec.md §4.2
// requires for a vararg call slot: small ints widen to i32 (here: to the
// Go int32 carrier, since the wrapper's own marshaling already speaks in
// fixed-width Go ints), f32 widens to f64.
func varargsPromote(kind nativeKind, bits int) (nativeKind, int) {
	switch kind {
	case nativeInt:
		if bits < 32 {
			return nativeInt, 32
		}
	case nativeFloat:
		if bits < 64 {
			return nativeFloat, 64
		}
	}
	return kind, bits
}
