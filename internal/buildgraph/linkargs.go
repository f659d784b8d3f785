package buildgraph

import (
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// LinkFlags turns a deduplicated library-name list into linker flags,
// ported from utils/link_utils.py's get_link_flags: a name containing a
// path separator or a recognized library extension is passed through
// unchanged (a direct archive/shared-object path); anything else becomes
// `-l<name>`.
func LinkFlags(libs []string) []string {
	flags := make([]string, 0, len(libs))
	for _, lib := range libs {
		if isPathLike(lib) {
			flags = append(flags, lib)
			continue
		}
		flags = append(flags, "-l"+lib)
	}
	if len(flags) > 0 && runtime.GOOS != "windows" && runtime.GOOS != "darwin" {
		// --no-as-needed keeps libraries providing soft-float/runtime
		// support symbols (e.g. libgcc_s) linked even when nothing in
		// the object files appears to reference them directly yet.
		flags = append([]string{"-Wl,--no-as-needed"}, flags...)
	}
	return flags
}

func isPathLike(lib string) bool {
	if filepath.IsAbs(lib) || strings.ContainsRune(lib, '/') || strings.ContainsRune(lib, filepath.Separator) {
		return true
	}
	switch strings.ToLower(filepath.Ext(lib)) {
	case ".a", ".so", ".dll", ".lib":
		return true
	}
	return false
}

// PlatformLinkFlags returns the flags needed to produce a shared library
// (or, when shared is false, a plain executable) on the current
// platform, ported from link_utils.py's get_platform_link_flags (Windows
// zig-target and `-Wl,--export-dynamic`/`-fPIC` handling collapsed to
// the Linux/Darwin cases pythoc actually targets in this module — no
// pack example builds for windows-gnu via zig, so that branch is not
// reproduced here).
func PlatformLinkFlags(shared bool) []string {
	switch runtime.GOOS {
	case "darwin":
		if shared {
			return []string{"-shared", "-undefined", "dynamic_lookup"}
		}
		return nil
	default:
		if shared {
			return []string{"-shared", "-fPIC", "-Wl,--export-dynamic"}
		}
		return nil
	}
}

// DefaultLinkers lists the linker executables to try in order of
// preference, ported from link_utils.py's get_default_linkers (zig
// fallback omitted — out of scope without the ziglang pip package this
// module has no Go equivalent of).
func DefaultLinkers() []string {
	candidates := []string{"cc", "clang", "gcc"}
	var available []string
	for _, c := range candidates {
		if _, err := exec.LookPath(c); err == nil {
			available = append(available, c)
		}
	}
	if len(available) == 0 {
		return candidates
	}
	return available
}

// BuildLinkCommand assembles the argv for a link invocation, ported from
// link_utils.py's build_link_command.
func BuildLinkCommand(linker string, objFiles, linkObjects []string, outputFile string, shared bool, linkLibraries []string) []string {
	args := append([]string{}, PlatformLinkFlags(shared)...)
	for _, f := range objFiles {
		abs, _ := filepath.Abs(f)
		args = append(args, abs)
	}
	for _, f := range linkObjects {
		abs, _ := filepath.Abs(f)
		args = append(args, abs)
	}
	outAbs, _ := filepath.Abs(outputFile)
	args = append(args, "-o", outAbs)
	args = append(args, LinkFlags(linkLibraries)...)
	return args
}

// Link invokes the first available linker (or linkers in fallback order)
// to produce outputFile from objFiles, ported from link_utils.py's
// try_link_with_linkers / link_files (output-up-to-date short circuit
// handled by the caller via CheckSharedLibNeedsRelink, so Link always
// actually links when called).
func Link(objFiles, linkObjects []string, outputFile string, shared bool, linkLibraries []string) error {
	var lastErr error
	for _, linker := range DefaultLinkers() {
		args := BuildLinkCommand(linker, objFiles, linkObjects, outputFile, shared, linkLibraries)
		cmd := exec.Command(linker, args...)
		out, err := cmd.CombinedOutput()
		if err == nil {
			return nil
		}
		lastErr = &linkError{linker: linker, output: string(out), err: err}
	}
	return lastErr
}

type linkError struct {
	linker string
	output string
	err    error
}

func (e *linkError) Error() string {
	return e.linker + ": " + e.err.Error() + "\n" + e.output
}

func (e *linkError) Unwrap() error { return e.err }
