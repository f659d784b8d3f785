// Package effects implements the compile-time effect overlay described by
// spec.md §4.8: a named-namespace dispatch table for builtin effectful
// calls (effect.mem.malloc, ...), a compilation-context stack that lets a
// `with effect(...)` block override bindings and mangle a suffix onto every
// function compiled inside it, and the transitive-specialization walk that
// propagates an override onto any callee that (directly or indirectly)
// depends on the overridden effect.
//
// The nested-map registry and capability-style dispatch are grounded on
// the teacher's internal/effects/ops.go (Registry map[string]map[string]EffOp,
// Call's check-then-dispatch flow). Unlike the teacher, pythoc's effects are
// resolved at compile time against an AST reference (effect.X.f) rather
// than invoked at runtime against a capability-gated EffContext — there is
// no runtime capability grant/deny step here, since spec.md's effect
// overlay is a naming and codegen-selection mechanism, not a sandboxing
// one. The context-stack push/pop and suffix capture are grounded on
// original_source/pythoc/decorators/compile.py's capture_effect_context /
// push_compilation_context / start_effect_tracking call sequence.
package effects

import "fmt"

// EffectOp is one compile-time effect implementation: given the resolved
// argument expressions it is responsible for lowering, it is identified
// purely by name here (the visitor is what actually emits IR for a call);
// Registry exists so effect references can be validated and so a default
// binding is always available to fall back to when no override applies.
type EffectOp struct {
	Effect string // namespace, e.g. "mem"
	Name   string // operation, e.g. "malloc"
	// Binding names the native symbol or synthesized function this
	// operation lowers to by default (e.g. "pythoc_mem_malloc").
	Binding string
}

// Registry holds every effect's default operation set, nested the same
// way the teacher's ops.go registry is: Registry["mem"]["malloc"].
var Registry = map[string]map[string]EffectOp{}

// RegisterOp installs a default effect operation, mirroring ops.go's
// RegisterOp idiom (lazy-init the inner map so init() order across files
// in this package never matters).
func RegisterOp(effect, name, binding string) {
	if Registry[effect] == nil {
		Registry[effect] = make(map[string]EffectOp)
	}
	Registry[effect][name] = EffectOp{Effect: effect, Name: name, Binding: binding}
}

// Lookup resolves a bare (effect, name) pair against Registry, with no
// context-stack involvement — callers that need override-aware resolution
// should go through ContextStack.ResolveEffectRef instead.
func Lookup(effect, name string) (EffectOp, bool) {
	ops, ok := Registry[effect]
	if !ok {
		return EffectOp{}, false
	}
	op, ok := ops[name]
	return op, ok
}

// EffectDependencies is the set of effect namespaces a function
// dereferences, recorded during lowering (spec.md §4.8 step 1) and
// consulted during transitive-specialization propagation (step 3).
type EffectDependencies map[string]bool

func (d EffectDependencies) Add(effect string) {
	d[effect] = true
}

func (d EffectDependencies) Has(effect string) bool {
	return d[effect]
}

// Intersects reports whether d shares any effect name with overrides —
// the "does B transitively reach any overridden effect" test from
// spec.md §4.8 step 3/4.
func (d EffectDependencies) Intersects(overrides map[string]string) bool {
	for name := range overrides {
		if d[name] {
			return true
		}
	}
	return false
}

func (op EffectOp) String() string {
	return fmt.Sprintf("effect.%s.%s -> %s", op.Effect, op.Name, op.Binding)
}
