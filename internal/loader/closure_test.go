package loader

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pythoc-lang/pythoc/internal/buildgraph"
	"github.com/pythoc-lang/pythoc/internal/registry"
)

func TestDepsPathForLib(t *testing.T) {
	assert.Equal(t, "/tmp/pkg/mod.deps", depsPathForLib("/tmp/pkg/mod.so"))
	assert.Equal(t, "/tmp/pkg/mod.deps", depsPathForLib("/tmp/pkg/mod.dylib"))
	assert.Equal(t, "/tmp/pkg/mod.deps", depsPathForLib("/tmp/pkg/mod.dll"))
	assert.Equal(t, "/tmp/pkg/mod.bin.deps", depsPathForLib("/tmp/pkg/mod.bin"))
}

func TestClosureLoadOrder_NoDepsFileIsLeaf(t *testing.T) {
	sess := registry.NewSession()
	path := filepath.Join(t.TempDir(), "nope.so")
	order, err := ClosureLoadOrder(path, sess)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, order)
}

func TestClosureLoadOrder_WithDependency(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.so")
	b := filepath.Join(dir, "b.so")

	sess := registry.NewSession()
	bKey := registry.GroupKey{SourceFile: "b.py"}
	sess.RegisterFunction(&registry.FunctionInfo{
		QualifiedName:       "b.f",
		MangledName:         "b_f",
		SourceFile:          "b.py",
		CompilationGroupKey: bKey,
		SharedLibPath:       b,
	})

	deps := buildgraph.NewGroupDeps(registry.GroupKey{SourceFile: "a.py"})
	deps.AddCallable("a_f", []buildgraph.CallableDep{{Name: "b.f", GroupKey: &bKey}})
	require.NoError(t, buildgraph.SaveDeps(deps, filepath.Join(dir, "a.o")))
	// SaveDeps derives the sidecar from a.o -> a.deps; depsPathForLib(a.so)
	// also resolves to a.deps, so the sidecar this test cares about is
	// already in place at the path ClosureLoadOrder will look for.

	order, err := ClosureLoadOrder(a, sess)
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, b, order[0], "dependency must load before the dependent")
	assert.Equal(t, a, order[1])
}

func TestClosureLoadOrder_CycleDoesNotHang(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.so")
	b := filepath.Join(dir, "b.so")

	sess := registry.NewSession()
	aKey := registry.GroupKey{SourceFile: "a.py"}
	bKey := registry.GroupKey{SourceFile: "b.py"}
	sess.RegisterFunction(&registry.FunctionInfo{
		QualifiedName: "a.f", MangledName: "a_f", SourceFile: "a.py",
		CompilationGroupKey: aKey, SharedLibPath: a,
	})
	sess.RegisterFunction(&registry.FunctionInfo{
		QualifiedName: "b.f", MangledName: "b_f", SourceFile: "b.py",
		CompilationGroupKey: bKey, SharedLibPath: b,
	})

	aDeps := buildgraph.NewGroupDeps(aKey)
	aDeps.AddCallable("a_f", []buildgraph.CallableDep{{Name: "b.f", GroupKey: &bKey}})
	require.NoError(t, buildgraph.SaveDeps(aDeps, filepath.Join(dir, "a.o")))

	bDeps := buildgraph.NewGroupDeps(bKey)
	bDeps.AddCallable("b_f", []buildgraph.CallableDep{{Name: "a.f", GroupKey: &aKey}})
	require.NoError(t, buildgraph.SaveDeps(bDeps, filepath.Join(dir, "b.o")))

	order, err := ClosureLoadOrder(a, sess)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, order)
}
