package buildgraph

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/registry"
)

// GroupCompiler is the narrow interface an internal/visitor-driven
// per-group compiler must satisfy for the output manager to flush it,
// standing in for output_manager.py's duck-typed `compiler` object
// (`verify_module`/`optimize_module`/`save_ir_to_file`/`compile_to_object`).
type GroupCompiler interface {
	VerifyModule() bool
	OptimizeModule(level int)
	SaveIRToFile(path string) error
	CompileToObject(path string) error
	DumpUnoptimizedIR() string
}

// PendingFunc is one function queued for compilation into a group: the
// callback lowers its body into compiler, funcInfo carries the signature
// needed for forward declaration (output_manager.py's
// `(callback, func_info)` pending-compilation tuple).
type PendingFunc struct {
	Callback func(GroupCompiler) error
	Func     *registry.FunctionInfo
}

// Group is one compilation group's output-file bookkeeping
// (output_manager.py's per-group dict).
type Group struct {
	Key            registry.GroupKey
	Compiler       GroupCompiler
	SourceFile     string
	IRFile         string
	ObjFile        string
	SharedLibFile  string
	ForceRecompile bool
	Failed         bool

	pending []PendingFunc
}

// OutputManager tracks every compilation group seen during one `pythoc
// build` invocation, ported from output_manager.py's OutputManager:
// pending vs. completed groups, cache-hit bookkeeping, and the flush
// driver. SaveUnoptIR/OptLevel are the settings the
// PC_SAVE_UNOPT_IR/PC_OPT_LEVEL env vars name; the OutputManager does not
// read the environment itself — NewOutputManager sets OptLevel to 2 and
// leaves SaveUnoptIR off.
type OutputManager struct {
	mu sync.Mutex

	allGroups     map[registry.GroupKey]*Group
	pendingGroups map[registry.GroupKey]bool
	flushed       map[registry.GroupKey]bool
	cached        map[registry.GroupKey][]PendingFunc

	cache *frontCache
	flight singleflight.Group
	sem    *semaphore.Weighted

	OptLevel    int
	SaveUnoptIR bool
}

// NewOutputManager creates an OutputManager whose flush step recompiles
// at most maxParallel groups concurrently (spec.md §5: "dependency
// recompilation may be parallelized across groups using a bounded thread
// pool").
func NewOutputManager(maxParallel int64) *OutputManager {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &OutputManager{
		allGroups:     make(map[registry.GroupKey]*Group),
		pendingGroups: make(map[registry.GroupKey]bool),
		flushed:       make(map[registry.GroupKey]bool),
		cached:        make(map[registry.GroupKey][]PendingFunc),
		cache:         newFrontCache(),
		sem:           semaphore.NewWeighted(maxParallel),
		OptLevel:      2,
	}
}

// GetOrCreateGroup returns the Group for key, creating it if this is the
// first function routed to it (output_manager.py's get_or_create_group,
// minus the "reopen after native execution started" guard — pythoc is an
// ahead-of-time compiler with no native_executor reopening path, so that
// case does not apply here).
func (m *OutputManager) GetOrCreateGroup(key registry.GroupKey, compiler GroupCompiler, irFile, objFile, soFile, sourceFile string) *Group {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.allGroups[key]; ok {
		return g
	}
	g := &Group{
		Key:           key,
		Compiler:      compiler,
		SourceFile:    sourceFile,
		IRFile:        irFile,
		ObjFile:       objFile,
		SharedLibFile: soFile,
	}
	m.allGroups[key] = g
	m.pendingGroups[key] = true
	return g
}

// QueueCompilation registers fn for deferred compilation into key's
// group (output_manager.py's queue_compilation).
func (m *OutputManager) QueueCompilation(key registry.GroupKey, fn PendingFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.allGroups[key]
	if !ok {
		return
	}
	g.pending = append(g.pending, fn)
	if m.flushed[key] {
		delete(m.flushed, key)
		m.pendingGroups[key] = true
		if cached, ok := m.cached[key]; ok {
			g.ForceRecompile = false
			g.pending = append(cached, g.pending...)
			delete(m.cached, key)
		} else {
			g.ForceRecompile = true
		}
	}
}

// compilePendingForGroup runs every pending function's callback (each
// function once, keyed by mangled name) in a loop until no new pending
// functions appear; no separate forward-declaration pass is made before
// the bodies are compiled. The loop exists so that transitive effect
// specialization (SPEC_FULL.md §14) discovered mid-compile gets its own
// pass, exactly as output_manager.py's `_compile_pending_for_group` loops
// until `_pending_compilations[group_key]` is empty.
func compilePendingForGroup(g *Group) error {
	compiled := make(map[string]bool)
	for len(g.pending) > 0 {
		batch := g.pending
		g.pending = nil

		var fresh []PendingFunc
		for _, p := range batch {
			key := p.Func.MangledName
			if key == "" {
				key = p.Func.QualifiedName
			}
			if compiled[key] {
				continue
			}
			compiled[key] = true
			fresh = append(fresh, p)
		}
		if len(fresh) == 0 {
			break
		}
		for _, p := range fresh {
			if err := p.Callback(g.Compiler); err != nil {
				return err
			}
		}
	}
	return nil
}

// FlushAll compiles and writes every pending group's `.ll`/`.o`,
// skipping groups whose `.o` is already up-to-date, bounding concurrency
// across groups at the OutputManager's configured parallelism and
// collapsing duplicate concurrent flushes of the same group via
// singleflight (SPEC_FULL.md §16). Ported from
// output_manager.py's flush_all, minus the executor/native-execution
// interlock (pythoc never calls into a group mid-build the way the
// original's REPL-driven native execution does).
func (m *OutputManager) FlushAll(ctx context.Context) error {
	m.mu.Lock()
	keys := make([]registry.GroupKey, 0, len(m.pendingGroups))
	for k := range m.pendingGroups {
		keys = append(keys, k)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	errCh := make(chan error, len(keys))
	for _, key := range keys {
		key := key
		if err := m.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer m.sem.Release(1)
			defer wg.Done()
			_, err, _ := m.flight.Do(key.String(), func() (any, error) {
				return nil, m.flushGroup(key)
			})
			if err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		return err // first error wins, matching the original's fail-fast flush
	}
	return nil
}

func (m *OutputManager) flushGroup(key registry.GroupKey) error {
	m.mu.Lock()
	g, ok := m.allGroups[key]
	if !ok || m.flushed[key] {
		m.mu.Unlock()
		return nil
	}
	delete(m.pendingGroups, key)
	m.mu.Unlock()

	if g.Failed {
		return nil
	}

	lock, err := lockPath(g.ObjFile)
	if err != nil {
		return errors.Wrap(errors.New(errors.BLD004, nil, "acquire build lock for %s: %v", g.ObjFile, err))
	}
	defer lock.unlock()

	if !g.ForceRecompile && g.SourceFile != "" && CheckObjUpToDate(g.ObjFile, g.SourceFile) {
		m.restoreDepsFromCache(g)
		m.mu.Lock()
		m.flushed[key] = true
		g.ForceRecompile = false
		if len(g.pending) > 0 {
			m.cached[key] = g.pending
			g.pending = nil
		}
		m.mu.Unlock()
		return nil
	}

	if err := compilePendingForGroup(g); err != nil {
		g.Failed = true
		return err
	}
	if len(g.pending) == 0 && g.Compiler == nil {
		return nil
	}
	if !g.Compiler.VerifyModule() {
		return errors.Wrap(errors.New(errors.BLD001, nil, "module verification failed for group %s", key.String()))
	}
	if m.SaveUnoptIR {
		unoptPath := g.IRFile
		if len(unoptPath) > 3 && unoptPath[len(unoptPath)-3:] == ".ll" {
			unoptPath = unoptPath[:len(unoptPath)-3] + ".unopt.ll"
		}
		_ = os.WriteFile(unoptPath, []byte(g.Compiler.DumpUnoptimizedIR()), 0o644)
	}
	g.Compiler.OptimizeModule(m.OptLevel)

	tmpObj := fmt.Sprintf("%s.tmp.%d", g.ObjFile, os.Getpid())
	if err := g.Compiler.SaveIRToFile(g.IRFile); err != nil {
		return errors.Wrap(errors.New(errors.BLD001, nil, "write IR for %s: %v", key.String(), err))
	}
	if err := g.Compiler.CompileToObject(tmpObj); err != nil {
		return errors.Wrap(errors.New(errors.BLD001, nil, "compile object for %s: %v", key.String(), err))
	}
	if err := os.Rename(tmpObj, g.ObjFile); err != nil {
		os.Remove(tmpObj)
		return errors.Wrap(errors.New(errors.BLD001, nil, "install object for %s: %v", key.String(), err))
	}

	m.mu.Lock()
	m.flushed[key] = true
	g.ForceRecompile = false
	g.pending = nil
	m.mu.Unlock()
	return nil
}

// restoreDepsFromCache loads a group's persisted `.deps` on a cache hit
// into the in-process front cache (output_manager.py's
// `_restore_deps_from_cache`). It does not merge the recorded link
// libraries/objects into the Group or the Session.
func (m *OutputManager) restoreDepsFromCache(g *Group) {
	deps, ok := m.cache.get(g.ObjFile)
	if !ok {
		var err error
		deps, err = LoadDeps(g.ObjFile)
		if err != nil || deps == nil {
			return
		}
		m.cache.put(g.ObjFile, deps)
	}
	_ = deps
}

// SaveGroupDeps persists dependency info for a just-compiled group,
// merging in the registry's accumulated link libraries/objects
// (output_manager.py's `_save_group_deps`).
func (m *OutputManager) SaveGroupDeps(g *Group, sess *registry.Session, extra *GroupDeps) error {
	deps := extra
	if deps == nil {
		deps = NewGroupDeps(g.Key)
	}
	for _, lib := range sess.LinkLibraries() {
		deps.addLib(lib)
	}
	for _, obj := range sess.LinkObjects() {
		deps.addObj(obj)
	}
	if g.SourceFile != "" {
		if info, err := os.Stat(g.SourceFile); err == nil {
			deps.SourceMtime = float64(info.ModTime().UnixNano()) / 1e9
		}
	}
	if err := SaveDeps(deps, g.ObjFile); err != nil {
		return err
	}
	m.cache.put(g.ObjFile, deps)
	return nil
}
