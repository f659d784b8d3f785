package effects

import "strings"

// CompileContext is one `with effect(mem=MyAllocator, suffix="tracked"):`
// override frame (spec.md §4.8 step 1). Overrides maps an effect
// namespace to the override's binding name; Suffix is what gets
// mangled onto every `@compile`d function compiled inside the block.
type CompileContext struct {
	Overrides map[string]string
	Suffix    string
}

// ContextStack is the compilation-context stack `with effect(...)`
// pushes onto and pops from, grounded on
// original_source/pythoc/decorators/compile.py's
// capture_effect_context/push_compilation_context/start_effect_tracking
// sequence (push on context entry, pop on exit, with the "currently
// active" frame resolved outward-in against the stack, falling back to
// the default Registry).
type ContextStack struct {
	frames []CompileContext
}

// NewContextStack returns an empty (no active override) stack.
func NewContextStack() *ContextStack { return &ContextStack{} }

// Push enters a new `with effect(...)` block.
func (s *ContextStack) Push(ctx CompileContext) { s.frames = append(s.frames, ctx) }

// Pop exits the innermost `with effect(...)` block.
func (s *ContextStack) Pop() {
	if len(s.frames) > 0 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// Current returns the innermost active frame, or the zero value and
// false if no `with effect(...)` block is active.
func (s *ContextStack) Current() (CompileContext, bool) {
	if len(s.frames) == 0 {
		return CompileContext{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// CurrentSuffix mirrors decorators/compile.py's
// get_current_effect_suffix(): the Suffix of the innermost frame that
// carries one (frames without a suffix are skipped outward), or "" if no
// active frame carries a suffix.
func (s *ContextStack) CurrentSuffix() string {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].Suffix != "" {
			return s.frames[i].Suffix
		}
	}
	return ""
}

// ResolveEffectRef resolves `effect.<namespace>.<name>` against the
// stack outward-in, falling back to the process-wide Registry default
// (spec.md §4.8 step 2). The returned binding is the override's name if
// one applies, otherwise the default EffectOp's binding.
func (s *ContextStack) ResolveEffectRef(namespace, name string) (binding string, overridden bool, ok bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if ov, has := s.frames[i].Overrides[namespace]; has {
			return ov, true, true
		}
	}
	op, has := Lookup(namespace, name)
	if !has {
		return "", false, false
	}
	return op.Binding, false, true
}

// ActiveOverrides flattens every override namespace currently in effect
// across the whole stack (outer frames visible unless shadowed by an
// inner one), used by SpecializeForSuffix's "does B transitively reach
// any overridden effect" test.
func (s *ContextStack) ActiveOverrides() map[string]string {
	out := map[string]string{}
	for _, f := range s.frames {
		for k, v := range f.Overrides {
			out[k] = v
		}
	}
	return out
}

// ResolveSuffix implements spec.md §9's Open Question decision:
// explicit-suffix-wins. If explicitSuffix is non-empty it is used as-is;
// otherwise the enclosing context's suffix applies. Mixing an explicit
// suffix with a *different*, non-empty enclosing suffix is rejected
// (errors.SYN007 territory — the caller wraps this as a report), per the
// original's compile() parameter precedence.
func (s *ContextStack) ResolveSuffix(explicitSuffix string) (suffix string, ambiguous bool) {
	ctxSuffix := s.CurrentSuffix()
	if explicitSuffix != "" {
		if ctxSuffix != "" && ctxSuffix != explicitSuffix {
			return "", true
		}
		return explicitSuffix, false
	}
	return ctxSuffix, false
}

// Mangle implements spec.md §4.8's mangling rule: base name plus
// compile-suffix and effect-suffix, separators collapsed so an absent
// suffix never leaves a stray "_" behind.
func Mangle(base, compileSuffix, effectSuffix string) string {
	parts := []string{base}
	if compileSuffix != "" {
		parts = append(parts, compileSuffix)
	}
	if effectSuffix != "" {
		parts = append(parts, effectSuffix)
	}
	return strings.Join(parts, "_")
}
