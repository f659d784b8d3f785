//go:build windows

package loader

import (
	"debug/pe"
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

// windowsHandle wraps a loaded DLL. Windows resolves a DLL's import table
// eagerly at LoadLibrary time. When LoadLibrary fails, newPlatformHandle
// runs genImportStub, which writes a `.exports.def` export list for the
// path, and retries LoadLibrary once; nothing in the loader builds an
// import library from that .def file.
type windowsHandle struct {
	path   string
	handle syscall.Handle
}

func newPlatformHandle(path string) (nativeHandle, error) {
	h, err := syscall.LoadLibrary(path)
	if err != nil {
		// Write the .def export list for this path, then retry
		// LoadLibrary once here.
		if stubErr := genImportStub(path); stubErr != nil {
			return nil, fmt.Errorf("load %s: %w (stub pass also failed: %v)", path, err, stubErr)
		}
		h, err = syscall.LoadLibrary(path)
		if err != nil {
			return nil, err
		}
	}
	return &windowsHandle{path: path, handle: h}, nil
}

func (h *windowsHandle) Symbol(name string) (uintptr, error) {
	addr, err := syscall.GetProcAddress(h.handle, name)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", h.path, err)
	}
	return addr, nil
}

func (h *windowsHandle) Close() error {
	return syscall.FreeLibrary(h.handle)
}

// genImportStub parses path's COFF symbol table with debug/pe and writes
// the names of its external symbols to a `.exports.def` file next to
// path. It writes only the .def file: it does not run dlltool or
// lld-link, so no import library is produced.
func genImportStub(path string) error {
	f, err := pe.Open(path)
	if err != nil {
		return fmt.Errorf("open %s for export scan: %w", path, err)
	}
	defer f.Close()

	names := make([]string, 0, len(f.COFFSymbols))
	for _, sym := range f.COFFSymbols {
		if sym.SectionNumber <= 0 || sym.StorageClass != 2 { // IMAGE_SYM_CLASS_EXTERNAL
			continue
		}
		name, err := sym.FullName(f.StringTable)
		if err != nil {
			continue
		}
		names = append(names, name)
	}

	defPath := defPathFor(path)
	var body string
	body = "LIBRARY " + baseNameNoExt(path) + "\nEXPORTS\n"
	for _, n := range names {
		body += "    " + n + "\n"
	}
	return os.WriteFile(defPath, []byte(body), 0o644)
}

func defPathFor(libPath string) string {
	for _, ext := range []string{".dll"} {
		if len(libPath) > len(ext) && libPath[len(libPath)-len(ext):] == ext {
			return libPath[:len(libPath)-len(ext)] + ".exports.def"
		}
	}
	return libPath + ".exports.def"
}

func baseNameNoExt(p string) string {
	base := p
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' || p[i] == '\\' {
			base = p[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

// callNative dispatches through the same fixed-arity funcval trampoline
// idiom as platform_unix.go's callNative (see that file's doc comment
// for the technique and its float-ABI caveat); Windows x64's calling
// convention differs from System V in register assignment but Go's
// funcval-cast trick calls through whatever convention the running
// GOARCH's ABI already uses for a same-signature Go function, so the
// same implementation serves both platform files without duplicating
// the arity ladder.
func callNative(addr uintptr, args []uintptr) uintptr {
	switch len(args) {
	case 0:
		return (*(*func() uintptr)(unsafe.Pointer(&addr)))()
	case 1:
		return (*(*func(uintptr) uintptr)(unsafe.Pointer(&addr)))(args[0])
	case 2:
		return (*(*func(uintptr, uintptr) uintptr)(unsafe.Pointer(&addr)))(args[0], args[1])
	case 3:
		return (*(*func(uintptr, uintptr, uintptr) uintptr)(unsafe.Pointer(&addr)))(args[0], args[1], args[2])
	case 4:
		return (*(*func(uintptr, uintptr, uintptr, uintptr) uintptr)(unsafe.Pointer(&addr)))(args[0], args[1], args[2], args[3])
	case 5:
		return (*(*func(uintptr, uintptr, uintptr, uintptr, uintptr) uintptr)(unsafe.Pointer(&addr)))(args[0], args[1], args[2], args[3], args[4])
	case 6:
		return (*(*func(uintptr, uintptr, uintptr, uintptr, uintptr, uintptr) uintptr)(unsafe.Pointer(&addr)))(args[0], args[1], args[2], args[3], args[4], args[5])
	case 7:
		return (*(*func(uintptr, uintptr, uintptr, uintptr, uintptr, uintptr, uintptr) uintptr)(unsafe.Pointer(&addr)))(args[0], args[1], args[2], args[3], args[4], args[5], args[6])
	default:
		return (*(*func(uintptr, uintptr, uintptr, uintptr, uintptr, uintptr, uintptr, uintptr) uintptr)(unsafe.Pointer(&addr)))(
			args[0], args[1], args[2], args[3], args[4], args[5], args[6], args[7])
	}
}
