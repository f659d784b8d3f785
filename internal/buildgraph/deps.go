// Package buildgraph is the incremental build graph (spec.md §4.10 /
// SPEC_FULL.md §16): it tracks dependencies between compilation groups,
// persists them to `.deps` files so a later process can skip
// recompilation, and drives per-group compilation with a bounded
// worker pool. Ported from
// original_source/pythoc/build/deps.py + output_manager.py + cache.py +
// utils/link_utils.py.
package buildgraph

import (
	"encoding/json"
	"os"

	"golang.org/x/mod/semver"

	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/registry"
)

// depsVersion is the `.deps` file schema version (deps.py's DEPS_VERSION).
// Bumping it without a migration path is an errors.BLD005 at load time.
const depsVersion = 1

// abiVersion is the native-ABI compatibility tag stamped into every
// `.deps` file this build of pythoc writes (SPEC_FULL.md §17 supplement:
// the spec's fixed `.deps` schema says nothing about cross-build ABI
// drift, but a loader linking libraries built by two different pythoc
// revisions needs a check sharper than "the JSON parsed"). It is a
// semver string rather than depsVersion's bare int specifically so the
// loader can express "compatible within a minor/patch series" via
// golang.org/x/mod/semver instead of requiring byte-for-byte equality.
const abiVersion = "v1.0.0"

// CheckABICompatible reports whether a dependency's recorded ABI version
// is link-compatible with this build's abiVersion: same major version,
// dependency no newer than this build (a loader must never trust symbols
// laid out by a not-yet-understood newer ABI). An empty dep version
// (pre-ABI-tagging `.deps` files) is treated as compatible for backward
// compatibility with builds produced before this field existed.
func CheckABICompatible(depVersion string) bool {
	if depVersion == "" {
		return true
	}
	if !semver.IsValid(depVersion) || !semver.IsValid(abiVersion) {
		return false
	}
	return semver.Major(depVersion) == semver.Major(abiVersion) && semver.Compare(depVersion, abiVersion) <= 0
}

// CallableDep records one callable a group's function depends on: either
// another compilation group (GroupKey set) or an extern declaration
// (Extern true, carrying the libraries/objects it pulls in), ported from
// deps.py's CallableDep dataclass.
type CallableDep struct {
	Name         string          `json:"name"`
	GroupKey     *registry.GroupKey `json:"group_key,omitempty"`
	Extern       bool            `json:"extern,omitempty"`
	LinkLibraries []string       `json:"link_libraries,omitempty"`
	LinkObjects  []string        `json:"link_objects,omitempty"`
}

// CallableInfo is the dependency list for a single mangled callable name
// within a group (deps.py's CallableInfo).
type CallableInfo struct {
	Deps []CallableDep `json:"deps"`
}

// GroupDeps is the complete dependency record for one compilation group,
// persisted to a `.deps` file next to the group's `.o` (deps.py's
// GroupDeps). EffectsUsed supplements the original with the effect-suffix
// propagation SPEC_FULL.md §14 requires: a caller group needs to know
// which effects a callee group observed so SpecializeForSuffix can decide
// whether it must also specialize.
type GroupDeps struct {
	Version      int                      `json:"version"`
	ABIVersion   string                   `json:"abi_version,omitempty"`
	GroupKey     registry.GroupKey        `json:"group_key"`
	SourceMtime  float64                  `json:"source_mtime"`
	Callables    map[string]CallableInfo  `json:"callables"`
	LinkObjects  []string                 `json:"link_objects"`
	LinkLibraries []string                `json:"link_libraries"`
	EffectsUsed  []string                 `json:"effects_used,omitempty"`
}

// NewGroupDeps returns an empty, ready-to-populate GroupDeps for key.
func NewGroupDeps(key registry.GroupKey) *GroupDeps {
	return &GroupDeps{
		Version:    depsVersion,
		ABIVersion: abiVersion,
		GroupKey:   key,
		Callables:  make(map[string]CallableInfo),
	}
}

// AddCallable records (or replaces) the dependency list for a mangled
// callable name and folds its link libraries/objects into the group
// totals, deduplicating in first-seen order (deps.py's add_callable).
func (g *GroupDeps) AddCallable(name string, deps []CallableDep) {
	g.Callables[name] = CallableInfo{Deps: deps}
	for _, dep := range deps {
		for _, lib := range dep.LinkLibraries {
			g.addLib(lib)
		}
		for _, obj := range dep.LinkObjects {
			g.addObj(obj)
		}
	}
}

func (g *GroupDeps) addLib(lib string) {
	for _, existing := range g.LinkLibraries {
		if existing == lib {
			return
		}
	}
	g.LinkLibraries = append(g.LinkLibraries, lib)
}

func (g *GroupDeps) addObj(obj string) {
	for _, existing := range g.LinkObjects {
		if existing == obj {
			return
		}
	}
	g.LinkObjects = append(g.LinkObjects, obj)
}

// DependentGroups returns every distinct GroupKey this group's callables
// depend on (deps.py's get_all_dependent_groups), used by the output
// manager to decide which already-compiled groups a new group's link
// step must also pull in.
func (g *GroupDeps) DependentGroups() []registry.GroupKey {
	seen := make(map[registry.GroupKey]bool)
	var out []registry.GroupKey
	for _, info := range g.Callables {
		for _, dep := range info.Deps {
			if dep.GroupKey == nil {
				continue
			}
			if seen[*dep.GroupKey] {
				continue
			}
			seen[*dep.GroupKey] = true
			out = append(out, *dep.GroupKey)
		}
	}
	return out
}

// DepsFilePath derives a `.deps` path from a `.o` path, matching
// deps.py's get_deps_file_path.
func DepsFilePath(objFile string) string {
	if len(objFile) > 2 && objFile[len(objFile)-2:] == ".o" {
		return objFile[:len(objFile)-2] + ".deps"
	}
	return objFile + ".deps"
}

// SaveDeps atomically writes deps to the `.deps` file derived from
// objFile (deps.py's save_deps, but routed through writeAtomic instead of
// a bare `open(...).write()` so a concurrent reader never observes a
// half-written file).
func SaveDeps(deps *GroupDeps, objFile string) error {
	data, err := json.MarshalIndent(deps, "", "  ")
	if err != nil {
		return errors.Wrap(errors.New(errors.BLD005, nil, "marshal .deps for %s: %v", objFile, err))
	}
	return writeAtomic(DepsFilePath(objFile), data)
}

// LoadDeps reads and validates the `.deps` file for objFile, returning
// (nil, nil) if it does not exist — a clean-build cache miss, not an
// error (deps.py's load_deps).
func LoadDeps(objFile string) (*GroupDeps, error) {
	return LoadDepsFile(DepsFilePath(objFile))
}

// LoadDepsFile is LoadDeps generalized to an already-resolved `.deps`
// path, used by internal/loader to read a dependency's sidecar given its
// shared-library path rather than its `.o` path (those don't share
// DepsFilePath's ".o"-specific suffix rule).
func LoadDepsFile(path string) (*GroupDeps, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.New(errors.BLD005, nil, "read %s: %v", path, err))
	}
	var deps GroupDeps
	if err := json.Unmarshal(data, &deps); err != nil {
		return nil, errors.Wrap(errors.New(errors.BLD005, nil, "corrupt .deps at %s: %v", path, err))
	}
	if deps.Version != depsVersion {
		return nil, errors.Wrap(errors.New(errors.BLD005, nil, ".deps schema version %d at %s, want %d", deps.Version, path, depsVersion))
	}
	if !CheckABICompatible(deps.ABIVersion) {
		return nil, errors.Wrap(errors.New(errors.BLD006, nil, "ABI version %s at %s is incompatible with this build (%s)", deps.ABIVersion, path, abiVersion))
	}
	return &deps, nil
}
