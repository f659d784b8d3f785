package registry

import (
	"testing"

	"github.com/pythoc-lang/pythoc/internal/types"
)

func TestGroupKeyString(t *testing.T) {
	k := GroupKey{SourceFile: "main.pc", ScopeQualifier: "Foo", CompileSuffix: "inline0", EffectSuffix: "mem1"}
	want := "main.pc.Foo.inline0.mem1"
	if got := k.String(); got != want {
		t.Errorf("GroupKey.String() = %q, want %q", got, want)
	}
}

func TestRegisterAndLookupFunction(t *testing.T) {
	s := NewSession()
	fn := &FunctionInfo{QualifiedName: "main.add", MangledName: "main_add", ParamTypes: []types.Type{types.I32, types.I32}, ReturnType: types.I32}
	s.RegisterFunction(fn)

	got, ok := s.Function("main.add")
	if !ok {
		t.Fatal("expected to find registered function")
	}
	if got.MangledName != "main_add" {
		t.Errorf("MangledName = %q, want main_add", got.MangledName)
	}

	if _, ok := s.Function("main.missing"); ok {
		t.Error("expected lookup of unregistered function to fail")
	}
}

func TestLinkLibrariesDedupAndOrder(t *testing.T) {
	s := NewSession()
	s.AddLinkLibrary("m")
	s.AddLinkLibrary("pthread")
	s.AddLinkLibrary("m") // duplicate, should not reorder or double-add

	libs := s.LinkLibraries()
	want := []string{"m", "pthread"}
	if len(libs) != len(want) {
		t.Fatalf("LinkLibraries() = %v, want %v", libs, want)
	}
	for i := range want {
		if libs[i] != want[i] {
			t.Errorf("LinkLibraries()[%d] = %q, want %q", i, libs[i], want[i])
		}
	}
}

func TestCompilerForSourceReusesInstance(t *testing.T) {
	s := NewSession()
	calls := 0
	newFn := func() any {
		calls++
		return struct{ id int }{id: calls}
	}
	a := s.CompilerForSource("a.pc", newFn)
	b := s.CompilerForSource("a.pc", newFn)
	if a != b {
		t.Error("expected the same compiler instance to be reused for the same source file")
	}
	if calls != 1 {
		t.Errorf("newFn called %d times, want 1", calls)
	}
}

func TestMangleAppendsSuffixesInOrder(t *testing.T) {
	key := GroupKey{ScopeQualifier: "Shape", CompileSuffix: "inline2", EffectSuffix: "net0"}
	got := Mangle("area", key)
	want := "area__Shape__inline2__net0"
	if got != want {
		t.Errorf("Mangle() = %q, want %q", got, want)
	}
}

func TestNewSessionAssignsDistinctID(t *testing.T) {
	a := NewSession()
	b := NewSession()
	if a.ID == b.ID {
		t.Error("expected distinct session IDs")
	}
}

func TestRegisterStructAndEnum(t *testing.T) {
	s := NewSession()
	st := types.NewStructType("Point", []types.StructField{{Name: "x", Type: types.I32}})
	s.RegisterStruct("Point", st, "geo.pc")
	info, ok := s.Struct("Point")
	if !ok || info.Type != st {
		t.Fatal("expected struct lookup to return the registered type")
	}

	en := types.NewEnumType("Status", []types.EnumVariant{{Name: "Ok", Tag: 0}})
	s.RegisterEnum("Status", en, "geo.pc")
	if _, ok := s.Enum("Status"); !ok {
		t.Fatal("expected enum lookup to succeed")
	}
}
