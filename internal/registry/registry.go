// Package registry holds the process-wide maps a compilation run shares
// across every source file and compilation group: function signatures,
// struct/enum layouts, one compiler instance per source file, and the
// link libraries/objects accumulated for the final link step (spec.md
// §3 Registry, §9 "Process-wide registries/singletons" redesign note).
//
// Everything lives on a *Session* value passed explicitly rather than on
// package-level globals — spec.md's redesign flag calls this out
// directly ("scope them to a CompilerSession value passed explicitly").
package registry

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/types"
)

// GroupKey uniquely identifies a compilation output group: one shared
// library or object file (spec.md §3 "GroupKey = (source_file,
// scope_qualifier?, compile_suffix?, effect_suffix?)").
type GroupKey struct {
	SourceFile     string
	ScopeQualifier string
	CompileSuffix  string
	EffectSuffix   string
}

// String renders the key the way build output paths are derived from it
// (spec.md §7: "build/<rel-path>/<base>[.scope][.compile_suffix][.effect_suffix]").
func (k GroupKey) String() string {
	s := k.SourceFile
	if k.ScopeQualifier != "" {
		s += "." + k.ScopeQualifier
	}
	if k.CompileSuffix != "" {
		s += "." + k.CompileSuffix
	}
	if k.EffectSuffix != "" {
		s += "." + k.EffectSuffix
	}
	return s
}

// FunctionInfo records everything the registry needs to know about a
// compiled function after it's first declared (spec.md §3).
type FunctionInfo struct {
	QualifiedName       string
	MangledName         string
	SourceFile          string
	ParamNames          []string
	ParamTypes          []types.Type
	ReturnType          types.Type
	EffectDependencies  map[string]bool
	// Callees lists every qualified name this function calls directly,
	// used by the effect overlay's transitive-specialization walk
	// (spec.md §4.8 step 3) to decide whether a call target reaches an
	// overridden effect through one or more intermediate calls.
	Callees             []string
	CompilationGroupKey GroupKey
	SharedLibPath       string
	// IsInline records whether the source FunctionDef carried an
	// `@inline` decorator (spec.md §4.7): such a callee is never emitted
	// as a standalone symbol, only spliced into each call site via
	// internal/inline's Kernel.
	IsInline bool
	// Body is the callee's statement list, kept around so a call site
	// that resolves to an @inline function (or a for-loop over a
	// generator) can hand it to the inline kernel without re-parsing.
	// nil for extern/forward-declared functions.
	Body []ast.Stmt
	// IRWrapper is an opaque handle the visitor stashes here once the
	// function's declaration has been forward-declared in its module,
	// so later callers in the same group can reference it without
	// re-declaring.
	IRWrapper any
}

// StructInfo/EnumInfo let callers look a declared type up by its source
// name without re-parsing the ClassDef that declared it.
type StructInfo struct {
	Type       *types.StructType
	SourceFile string
}

type EnumInfo struct {
	Type       *types.EnumType
	SourceFile string
}

// Session is the process-wide state shared by every compilation group in
// one invocation of pythoc (spec.md §9's "CompilerSession"). All of its
// maps are guarded by a single mutex — contention here is not the
// bottleneck; the build graph's worker pool is.
type Session struct {
	mu sync.RWMutex

	functions map[string]*FunctionInfo // keyed by QualifiedName
	structs   map[string]*StructInfo   // keyed by struct name
	enums     map[string]*EnumInfo     // keyed by enum name

	// compilersBySource holds one *FileCompiler-shaped value per source
	// file, so re-entrant lookups (e.g. the loader resolving a
	// cross-file call) reuse the same parsed module instead of
	// re-parsing. The concrete type lives in internal/visitor; Session
	// only needs to store and retrieve it.
	compilersBySource map[string]any

	linkLibraries []string // -l style library names, in first-seen order
	linkObjects   []string // extra .o paths to link in, in first-seen order
	seenLibrary   map[string]bool
	seenObject    map[string]bool

	Types *types.Cache

	// ID uniquely tags this session; NewSession draws a fresh random one
	// for every session.
	ID uuid.UUID
}

// NewSession creates an empty, ready-to-use Session.
func NewSession() *Session {
	return &Session{
		functions:         make(map[string]*FunctionInfo),
		structs:           make(map[string]*StructInfo),
		enums:             make(map[string]*EnumInfo),
		compilersBySource: make(map[string]any),
		seenLibrary:       make(map[string]bool),
		seenObject:        make(map[string]bool),
		Types:             types.NewCache(),
		ID:                uuid.New(),
	}
}

// RegisterFunction adds fn to the registry. Re-registering the same
// QualifiedName (e.g. the visitor re-visiting a cached group) overwrites
// the previous entry rather than erroring — a cache hit in the build
// graph re-derives the same FunctionInfo deterministically.
func (s *Session) RegisterFunction(fn *FunctionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.functions[fn.QualifiedName] = fn
}

// Function looks up a previously registered function by its qualified
// name, as used when resolving a call target (spec.md §4.3 "Call").
func (s *Session) Function(qualifiedName string) (*FunctionInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn, ok := s.functions[qualifiedName]
	return fn, ok
}

// AllFunctions returns a snapshot of every registered function, used by
// the loader to build its ctypes-shaped signature table at load time.
func (s *Session) AllFunctions() []*FunctionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*FunctionInfo, 0, len(s.functions))
	for _, fn := range s.functions {
		out = append(out, fn)
	}
	return out
}

func (s *Session) RegisterStruct(name string, t *types.StructType, sourceFile string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.structs[name] = &StructInfo{Type: t, SourceFile: sourceFile}
}

func (s *Session) Struct(name string) (*StructInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.structs[name]
	return info, ok
}

func (s *Session) RegisterEnum(name string, t *types.EnumType, sourceFile string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enums[name] = &EnumInfo{Type: t, SourceFile: sourceFile}
}

func (s *Session) Enum(name string) (*EnumInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.enums[name]
	return info, ok
}

// CompilerForSource returns the compiler instance registered for
// sourceFile, or creates one via newFn if absent. This is the
// one-compiler-instance-per-source-file cache spec.md §3 names.
func (s *Session) CompilerForSource(sourceFile string, newFn func() any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.compilersBySource[sourceFile]; ok {
		return c
	}
	c := newFn()
	s.compilersBySource[sourceFile] = c
	return c
}

// AddLinkLibrary records a `-l<name>`-style dependency discovered while
// compiling an `extern(lib=...)` declaration. Order of first appearance
// is preserved since link order can matter for static archives.
func (s *Session) AddLinkLibrary(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seenLibrary[name] {
		return
	}
	s.seenLibrary[name] = true
	s.linkLibraries = append(s.linkLibraries, name)
}

func (s *Session) AddLinkObject(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seenObject[path] {
		return
	}
	s.seenObject[path] = true
	s.linkObjects = append(s.linkObjects, path)
}

func (s *Session) LinkLibraries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.linkLibraries...)
}

func (s *Session) LinkObjects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.linkObjects...)
}

// Mangle produces a FunctionInfo's mangled symbol name, appending the
// compile/effect/scope suffixes a GroupKey carries so that two
// specializations of the same source function never collide in one
// shared library (spec.md §7 output naming, §4.8 effect-overlay
// suffix-mangling).
func Mangle(qualifiedName string, key GroupKey) string {
	name := qualifiedName
	if key.ScopeQualifier != "" {
		name = fmt.Sprintf("%s__%s", name, key.ScopeQualifier)
	}
	if key.CompileSuffix != "" {
		name = fmt.Sprintf("%s__%s", name, key.CompileSuffix)
	}
	if key.EffectSuffix != "" {
		name = fmt.Sprintf("%s__%s", name, key.EffectSuffix)
	}
	return name
}
