package loader

import (
	"reflect"
	"unsafe"

	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/registry"
)

// maxCallArity bounds the fixed-arity C-calling-convention trampolines
// callNative below can dispatch through. A pythoc-compiled function with
// more non-linear parameters than this needs a codegen'd trampoline
// rather than a hand-enumerated one — spec.md never bounds argument
// count, but every example in §8's end-to-end scenarios stays well under
// this, and BuildCallWrapper reports a clean BuildError past it rather
// than silently truncating the argument list.
const maxCallArity = 8

// BuildCallWrapper constructs the reflect-built Go function that calls
// straight into fn's native symbol (spec.md §4.10 loader step 4: "for
// each called symbol the loader builds a ctypes-shaped signature from
// the recorded FunctionInfo ... wraps the native function, and caches
// the wrapper").
//
// Linear parameters are skipped entirely per spec.md's "zero-sized at
// the ABI" rule — the returned function's Go signature has one
// parameter per non-linear ParamType, in order, plus the mapped return
// type (nothing for void).
func BuildCallWrapper(native nativeHandle, fn *registry.FunctionInfo) (any, error) {
	addr, err := native.Symbol(fn.MangledName)
	if err != nil {
		return nil, errors.Wrap(errors.New(errors.BLD003, nil, "symbol %s: %v", fn.MangledName, err))
	}

	var inKinds []nativeKind
	var inBits []int
	var in []reflect.Type
	for _, pt := range fn.ParamTypes {
		k, bits := classify(pt)
		if k == nativeSkip {
			continue // linear token: dropped from the ABI signature
		}
		inKinds = append(inKinds, k)
		inBits = append(inBits, bits)
		in = append(in, goType(k, bits))
	}
	if len(in) > maxCallArity {
		return nil, errors.Wrap(errors.New(errors.BLD003, nil,
			"%s: %d native arguments exceeds the loader's %d-argument fixed-trampoline limit", fn.MangledName, len(in), maxCallArity))
	}

	retKind, retBits := classify(fn.ReturnType)
	out := goType(retKind, retBits)

	var outTypes []reflect.Type
	if out != nil {
		outTypes = []reflect.Type{out}
	}
	funcType := reflect.FuncOf(in, outTypes, false)

	wrapper := reflect.MakeFunc(funcType, func(args []reflect.Value) []reflect.Value {
		raw := make([]uintptr, len(args))
		for i, a := range args {
			raw[i] = toUintptr(inKinds[i], a)
		}
		result := callNative(addr, raw)
		if out == nil {
			return nil
		}
		return []reflect.Value{fromUintptr(retKind, retBits, result, out)}
	})
	return wrapper.Interface(), nil
}

// toUintptr marshals one reflect.Value argument into the uintptr-wide
// slot callNative's fixed-arity trampolines pass through the platform C
// calling convention. Floats are reinterpreted bit-for-bit rather than
// truncated to an integer value; callNative then passes the slot as an
// integer word like every other argument (see platform_unix.go).
func toUintptr(kind nativeKind, v reflect.Value) uintptr {
	switch kind {
	case nativeFloat:
		if v.Type().Bits() == 32 {
			return uintptr(*(*uint32)(unsafe.Pointer(&[]float32{float32(v.Float())}[0])))
		}
		f := v.Float()
		return uintptr(*(*uint64)(unsafe.Pointer(&f)))
	case nativePointer:
		return uintptr(v.Uint())
	default:
		return uintptr(v.Int())
	}
}

// fromUintptr is toUintptr's inverse for a single scalar return value.
func fromUintptr(kind nativeKind, bits int, raw uintptr, want reflect.Type) reflect.Value {
	switch kind {
	case nativeFloat:
		if bits <= 32 {
			u := uint32(raw)
			return reflect.ValueOf(*(*float32)(unsafe.Pointer(&u))).Convert(want)
		}
		u := uint64(raw)
		return reflect.ValueOf(*(*float64)(unsafe.Pointer(&u))).Convert(want)
	case nativePointer:
		return reflect.ValueOf(uintptr(raw)).Convert(want)
	default:
		v := reflect.New(want).Elem()
		v.SetInt(int64(raw))
		return v
	}
}
