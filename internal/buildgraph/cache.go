package buildgraph

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// CheckObjUpToDate reports whether objFile is newer than (or as new as)
// sourceFile, i.e. whether recompilation can be skipped — the
// layered-invalidation rule build/cache.py's BuildCache.check_obj_uptodate
// implements ("Source -> Object -> Shared Lib -> dlopen, each layer
// updates only when its input changes").
func CheckObjUpToDate(objFile, sourceFile string) bool {
	srcInfo, err := os.Stat(sourceFile)
	if err != nil {
		return false
	}
	objInfo, err := os.Stat(objFile)
	if err != nil {
		return false
	}
	return !objInfo.ModTime().Before(srcInfo.ModTime())
}

// CheckSharedLibNeedsRelink reports whether soFile must be re-linked
// because it's missing or older than any of objFiles (cache.py's
// check_so_needs_relink, minus the Windows import-library sidecar check
// since pythoc's loader §17 generates that lazily at load time rather
// than at link time).
func CheckSharedLibNeedsRelink(soFile string, objFiles []string) bool {
	soInfo, err := os.Stat(soFile)
	if err != nil {
		return true
	}
	for _, obj := range objFiles {
		objInfo, err := os.Stat(obj)
		if err != nil {
			return true
		}
		if objInfo.ModTime().After(soInfo.ModTime()) {
			return true
		}
	}
	return false
}

// InvalidateObject deletes an `.o` and its sibling `.ll`/`.deps`
// artifacts, ignoring missing files (cache.py's invalidate_obj), used
// when a group's compilation fails partway and the stale object must
// not be mistaken for a valid cache entry on the next run.
func InvalidateObject(objFile string) {
	base := strings.TrimSuffix(objFile, filepath.Ext(objFile))
	for _, f := range []string{objFile, base + ".ll", base + ".deps"} {
		os.Remove(f)
	}
}

// frontCache is a small in-process front cache over the on-disk `.deps`
// store, avoiding a redundant stat+read+unmarshal for a group touched
// more than once within the same `pythoc build` invocation (supplemented
// from build/cache.py's layered-cache spirit plus deps.py's
// `_loaded_deps` in-memory map; unlike deps.py's unbounded map this one
// is just a plain guarded map too — a single build run never touches
// enough groups to need real LRU eviction, so "LRU-ish" in SPEC_FULL.md
// §19 means "process-lifetime, no eviction", not an actual LRU policy).
type frontCache struct {
	mu    sync.RWMutex
	byObj map[string]*GroupDeps
}

func newFrontCache() *frontCache {
	return &frontCache{byObj: make(map[string]*GroupDeps)}
}

func (c *frontCache) get(objFile string) (*GroupDeps, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.byObj[objFile]
	return d, ok
}

func (c *frontCache) put(objFile string, deps *GroupDeps) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byObj[objFile] = deps
}

func (c *frontCache) invalidate(objFile string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byObj, objFile)
}
