package effects

import "github.com/pythoc-lang/pythoc/internal/registry"

// FunctionLookup is the minimal registry surface SpecializeForSuffix
// needs: resolve a qualified name to its FunctionInfo, and register a
// freshly-synthesized specialization. internal/effects defines its own
// interface here (rather than depending on *registry.Session directly in
// its exported signature) so a caller can pass a narrower fake in tests.
type FunctionLookup interface {
	Function(qualifiedName string) (*registry.FunctionInfo, bool)
	RegisterFunction(fn *registry.FunctionInfo)
}

// TransitivelyReaches reports whether fn, directly or through any chain
// of Callees, reaches a function whose EffectDependencies intersects
// overrides (spec.md §4.8 step 3/4: "if B does not transitively reach
// any overridden effect, the call uses the default B"). visited guards
// against call cycles (mutual recursion) looping forever.
func TransitivelyReaches(lookup FunctionLookup, fn *registry.FunctionInfo, overrides map[string]string, visited map[string]bool) bool {
	if fn == nil || len(overrides) == 0 {
		return false
	}
	if visited[fn.QualifiedName] {
		return false
	}
	visited[fn.QualifiedName] = true

	if EffectDependencies(fn.EffectDependencies).Intersects(overrides) {
		return true
	}
	for _, callee := range fn.Callees {
		calleeFn, ok := lookup.Function(callee)
		if !ok {
			continue
		}
		if TransitivelyReaches(lookup, calleeFn, overrides, visited) {
			return true
		}
	}
	return false
}

// SpecializeForSuffix implements spec.md §4.8 step 3: given a caller
// compiled under compile-context ctx, resolve the call target `callee`
// either to its default FunctionInfo (no override reaches it) or to a
// freshly-registered `<callee>_<suffix>` specialization compiled under
// the same override context, placed in the caller's compilation group.
//
// buildSpecializedBody is supplied by the visitor: it re-lowers callee's
// body under ctx and returns the resulting FunctionInfo's IRWrapper
// (SpecializeForSuffix only owns the registry bookkeeping, not codegen).
func SpecializeForSuffix(
	lookup FunctionLookup,
	callerGroup registry.GroupKey,
	ctx CompileContext,
	calleeQualifiedName string,
	buildSpecializedBody func(callee *registry.FunctionInfo, mangled string) (any, error),
) (*registry.FunctionInfo, error) {
	callee, ok := lookup.Function(calleeQualifiedName)
	if !ok {
		return nil, nil
	}

	overrides := ctx.Overrides
	if !TransitivelyReaches(lookup, callee, overrides, map[string]bool{}) {
		return callee, nil // default binding suffices, spec.md §4.8 step 4
	}

	specializedName := calleeQualifiedName + "@" + ctx.Suffix
	if existing, ok := lookup.Function(specializedName); ok {
		return existing, nil
	}

	mangled := Mangle(callee.MangledName, "", ctx.Suffix)
	wrapper, err := buildSpecializedBody(callee, mangled)
	if err != nil {
		return nil, err
	}

	specialized := &registry.FunctionInfo{
		QualifiedName:      specializedName,
		MangledName:        mangled,
		SourceFile:         callee.SourceFile,
		ParamNames:         callee.ParamNames,
		ParamTypes:         callee.ParamTypes,
		ReturnType:         callee.ReturnType,
		EffectDependencies: callee.EffectDependencies,
		Callees:            callee.Callees,
		CompilationGroupKey: registry.GroupKey{
			SourceFile:     callerGroup.SourceFile,
			ScopeQualifier: callerGroup.ScopeQualifier,
			CompileSuffix:  callerGroup.CompileSuffix,
			EffectSuffix:   ctx.Suffix,
		},
		IRWrapper: wrapper,
	}
	lookup.RegisterFunction(specialized)
	return specialized, nil
}
