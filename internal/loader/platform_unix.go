//go:build !windows

package loader

import (
	"fmt"
	"plugin"
	"reflect"
	"unsafe"
)

// unixHandle wraps the process's dlopen-equivalent, *plugin.Plugin.
// plugin.Open opens its target with `RTLD_NOW | RTLD_GLOBAL`, so every
// undefined symbol must resolve at open time: a library in a load-order
// cycle whose peer is not open yet fails to load.
type unixHandle struct {
	path string
	p    *plugin.Plugin
}

func newPlatformHandle(path string) (nativeHandle, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return &unixHandle{path: path, p: p}, nil
}

// Symbol resolves name through plugin.Lookup and returns the symbol's
// address: the code pointer for a function symbol, the variable's
// address for a variable symbol.
func (h *unixHandle) Symbol(name string) (uintptr, error) {
	sym, err := h.p.Lookup(name)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", h.path, err)
	}
	return reflect.ValueOf(sym).Pointer(), nil
}

func (h *unixHandle) Close() error { return nil } // plugin.Plugin has no Close/unload

// callNative invokes the function at addr through a fixed-arity
// trampoline built from Go's func-value representation: a Go function
// value is itself a pointer to a small struct whose first word is the
// code entry point, so constructing that one-word struct in place and
// reinterpreting it as a `func(...) uintptr` lets `addr` be called
// directly without cgo. This covers integer/pointer arguments passed in
// general-purpose registers on every platform pythoc targets; a
// float-carrying argument is marshaled through the same uintptr slot by
// toUintptr/fromUintptr's bit-reinterpretation, which is correct only on
// calling conventions that also pass floats in general-purpose registers.
// SPEC_FULL.md §17 documents this as the loader's one platform-ABI
// simplification — a full SSE-register float ABI needs a per-arch
// assembly stub the core compiler does not ship.
func callNative(addr uintptr, args []uintptr) uintptr {
	switch len(args) {
	case 0:
		return makeTrampoline0(addr)()
	case 1:
		return makeTrampoline1(addr)(args[0])
	case 2:
		return makeTrampoline2(addr)(args[0], args[1])
	case 3:
		return makeTrampoline3(addr)(args[0], args[1], args[2])
	case 4:
		return makeTrampoline4(addr)(args[0], args[1], args[2], args[3])
	case 5:
		return makeTrampoline5(addr)(args[0], args[1], args[2], args[3], args[4])
	case 6:
		return makeTrampoline6(addr)(args[0], args[1], args[2], args[3], args[4], args[5])
	case 7:
		return makeTrampoline7(addr)(args[0], args[1], args[2], args[3], args[4], args[5], args[6])
	default:
		return makeTrampoline8(addr)(args[0], args[1], args[2], args[3], args[4], args[5], args[6], args[7])
	}
}

type (
	trampoline0 func() uintptr
	trampoline1 func(uintptr) uintptr
	trampoline2 func(uintptr, uintptr) uintptr
	trampoline3 func(uintptr, uintptr, uintptr) uintptr
	trampoline4 func(uintptr, uintptr, uintptr, uintptr) uintptr
	trampoline5 func(uintptr, uintptr, uintptr, uintptr, uintptr) uintptr
	trampoline6 func(uintptr, uintptr, uintptr, uintptr, uintptr, uintptr) uintptr
	trampoline7 func(uintptr, uintptr, uintptr, uintptr, uintptr, uintptr, uintptr) uintptr
	trampoline8 func(uintptr, uintptr, uintptr, uintptr, uintptr, uintptr, uintptr, uintptr) uintptr
)

func makeTrampoline0(addr uintptr) trampoline0 {
	f := addr
	return *(*trampoline0)(unsafe.Pointer(&f))
}
func makeTrampoline1(addr uintptr) trampoline1 {
	f := addr
	return *(*trampoline1)(unsafe.Pointer(&f))
}
func makeTrampoline2(addr uintptr) trampoline2 {
	f := addr
	return *(*trampoline2)(unsafe.Pointer(&f))
}
func makeTrampoline3(addr uintptr) trampoline3 {
	f := addr
	return *(*trampoline3)(unsafe.Pointer(&f))
}
func makeTrampoline4(addr uintptr) trampoline4 {
	f := addr
	return *(*trampoline4)(unsafe.Pointer(&f))
}
func makeTrampoline5(addr uintptr) trampoline5 {
	f := addr
	return *(*trampoline5)(unsafe.Pointer(&f))
}
func makeTrampoline6(addr uintptr) trampoline6 {
	f := addr
	return *(*trampoline6)(unsafe.Pointer(&f))
}
func makeTrampoline7(addr uintptr) trampoline7 {
	f := addr
	return *(*trampoline7)(unsafe.Pointer(&f))
}
func makeTrampoline8(addr uintptr) trampoline8 {
	f := addr
	return *(*trampoline8)(unsafe.Pointer(&f))
}
