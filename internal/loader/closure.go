package loader

import (
	"sort"
	"strings"

	"github.com/pythoc-lang/pythoc/internal/buildgraph"
	"github.com/pythoc-lang/pythoc/internal/registry"
)

// sharedLibExts lists the extensions SPEC_FULL.md §17's build-output
// naming produces on each platform (spec.md §6's
// `build/pkg/mod[...].{so|dylib|dll}`).
var sharedLibExts = []string{".so", ".dylib", ".dll"}

// depsPathForLib derives a `.deps` sidecar path from a shared-library
// path, the loader-side counterpart to buildgraph.DepsFilePath (which is
// specific to `.o` inputs).
func depsPathForLib(libPath string) string {
	for _, ext := range sharedLibExts {
		if strings.HasSuffix(libPath, ext) {
			return libPath[:len(libPath)-len(ext)] + ".deps"
		}
	}
	return libPath + ".deps"
}

// groupLibPath resolves a GroupKey to the shared-library path recorded
// for any function compiled into it. registry.Session has no direct
// GroupKey->path index: a group's output path is only known once the
// first function compiled into it is registered, so this scans the
// session's function table the same way the loader's own loadOne does.
func groupLibPath(sess *registry.Session, key registry.GroupKey) (string, bool) {
	for _, fn := range sess.AllFunctions() {
		if fn.CompilationGroupKey == key && fn.SharedLibPath != "" {
			return fn.SharedLibPath, true
		}
	}
	return "", false
}

// ClosureLoadOrder computes the transitive closure of shared libraries
// that path's `.deps` graph reaches (spec.md §4.10 loader step 2-3),
// resolving each `CallableDep.GroupKey` to a library path via sess, and
// returns them in dependency order — leaves (no further deps) first,
// path itself last — so Loader.loadOne never needs a symbol from a
// library it hasn't opened yet along any acyclic edge.
//
// A cycle (a path reachable from itself) does not loop: a library
// already on the DFS stack is skipped, so each cycle member appears once,
// in the order the DFS finishes it. Loader.Load opens each library once
// in this order and does not retry; on Unix the opener resolves symbols
// eagerly (see platform_unix.go), so a cycle member whose peer is not
// open yet fails to load.
func ClosureLoadOrder(path string, sess *registry.Session) ([]string, error) {
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var order []string

	var visit func(p string) error
	visit = func(p string) error {
		if visited[p] || visiting[p] {
			return nil
		}
		visiting[p] = true

		deps, err := buildgraph.LoadDepsFile(depsPathForLib(p))
		if err != nil {
			return err
		}
		if deps != nil {
			groups := deps.DependentGroups()
			sort.Slice(groups, func(i, j int) bool { return groups[i].String() < groups[j].String() })
			for _, gk := range groups {
				depPath, ok := groupLibPath(sess, gk)
				if !ok || depPath == p {
					continue
				}
				if err := visit(depPath); err != nil {
					return err
				}
			}
		}

		delete(visiting, p)
		if !visited[p] {
			visited[p] = true
			order = append(order, p)
		}
		return nil
	}

	if err := visit(path); err != nil {
		return nil, err
	}
	return order, nil
}
