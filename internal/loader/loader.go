// Package loader is pythoc's dynamic loader (spec.md §4.10 /
// SPEC_FULL.md §17): given a built shared library and the registry's
// FunctionInfo table, it resolves the library's dependency closure,
// loads each one exactly once, and hands back reflect-built Go
// functions that call straight into the native code — the
// systems-language shape of the teacher's Python `ctypes`-era
// `native_executor.py`.
package loader

import (
	"fmt"
	"os"
	"sync"

	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/registry"
)

// cacheKey pins a cache entry to both the library path and its mtime at
// load time, so editing and rebuilding a `.so` invalidates the cached
// handle even though the path is unchanged (spec.md §8's "Loader
// monotonicity": a loader never hands back a stale handle for a path
// whose backing file has since changed).
type cacheKey struct {
	path  string
	mtime int64
}

// Handle is a loaded shared library: its native handle plus every
// exported function's reflect-built call wrapper, keyed by the
// function's mangled name.
type Handle struct {
	Path     string
	Native   nativeHandle
	Wrappers map[string]any
}

// Loader owns the process-wide path->handle cache and drives dependency
// closure + load ordering for one `pythoc run`/`repl` invocation.
type Loader struct {
	mu    sync.Mutex
	cache map[cacheKey]*Handle
	byPath map[string]*Handle // latest handle per path, for invalidation lookups
}

// New creates an empty Loader.
func New() *Loader {
	return &Loader{
		cache:  make(map[cacheKey]*Handle),
		byPath: make(map[string]*Handle),
	}
}

// Load loads the shared library at path (and its transitive `.deps`
// closure, see closure.go), returning a cached Handle if the file's
// mtime hasn't changed since the last load.
func (l *Loader) Load(path string, sess *registry.Session) (*Handle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(errors.New(errors.BLD003, nil, "stat %s: %v", path, err))
	}
	key := cacheKey{path: path, mtime: info.ModTime().UnixNano()}

	l.mu.Lock()
	if h, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return h, nil
	}
	l.mu.Unlock()

	order, err := ClosureLoadOrder(path, sess)
	if err != nil {
		return nil, err
	}

	var last *Handle
	for _, lib := range order {
		h, err := l.loadOne(lib, sess)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.byPath[lib] = h
		l.mu.Unlock()
		last = h
	}
	if last == nil {
		// ClosureLoadOrder always ends with path itself, so this only
		// runs if it returned an empty order.
		last, err = l.loadOne(path, sess)
		if err != nil {
			return nil, err
		}
	}

	l.mu.Lock()
	l.cache[key] = last
	l.byPath[path] = last
	l.mu.Unlock()
	return last, nil
}

func (l *Loader) loadOne(path string, sess *registry.Session) (*Handle, error) {
	native, err := openNative(path)
	if err != nil {
		return nil, errors.Wrap(errors.New(errors.BLD003, nil, "load %s: %v", path, err))
	}
	h := &Handle{Path: path, Native: native, Wrappers: make(map[string]any)}
	for _, fn := range sess.AllFunctions() {
		if fn.SharedLibPath != path {
			continue
		}
		w, err := BuildCallWrapper(native, fn)
		if err != nil {
			return nil, err
		}
		h.Wrappers[fn.MangledName] = w
	}
	return h, nil
}

// Lookup returns the reflect-built call wrapper for a mangled function
// name, across every library this Loader has loaded.
func (l *Loader) Lookup(mangledName string) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, h := range l.byPath {
		if w, ok := h.Wrappers[mangledName]; ok {
			return w, true
		}
	}
	return nil, false
}

// nativeHandle is the narrow collaborator interface a concrete
// `dlopen`-equivalent backend implements (the `plugin` package on Unix,
// LoadLibrary on Windows). Symbol resolves a raw function pointer by its
// mangled name.
type nativeHandle interface {
	Symbol(name string) (uintptr, error)
	Close() error
}

func openNative(path string) (nativeHandle, error) {
	return newPlatformHandle(path)
}

var _ = fmt.Sprintf // keep fmt imported even if a platform file trims its own usage
