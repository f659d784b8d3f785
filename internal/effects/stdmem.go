package effects

// init registers the default `mem` effect namespace — the systems
// equivalent of original_source/pythoc/std/mem.py's libc-backed default
// binding. This gives the effect overlay a concrete default namespace to
// override (spec.md §8 end-to-end scenario 5 overrides exactly this one
// with a `CountingMem` binding under suffix "cnt").
func init() {
	RegisterOp("mem", "malloc", "pythoc_libc_malloc")
	RegisterOp("mem", "free", "pythoc_libc_free")
	RegisterOp("mem", "lmalloc", "pythoc_libc_lmalloc")
	RegisterOp("mem", "lfree", "pythoc_libc_lfree")
}
