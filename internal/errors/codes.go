// Package errors provides the closed taxonomy of compiler error codes used
// across every phase of pythoc, from type resolution through the dynamic
// loader, and the structured report type they attach to.
package errors

// Error codes are grouped by the phase that raises them. The prefix names
// the category from spec.md §7; the numeric suffix is stable once assigned.
const (
	// ============================================================
	// TypeError (TYP###) — type-annotation resolution, coercion,
	// field arity/name mismatches, sizeof on unknown types.
	// ============================================================

	TYP001 = "TYP001" // unknown type annotation
	TYP002 = "TYP002" // implicit int->pointer conversion rejected
	TYP003 = "TYP003" // implicit pointer->int conversion rejected
	TYP004 = "TYP004" // struct field arity mismatch
	TYP005 = "TYP005" // struct field name mismatch
	TYP006 = "TYP006" // sizeof on unresolved type
	TYP007 = "TYP007" // narrowing conversion requires explicit cast
	TYP008 = "TYP008" // incompatible operand types in binary op
	TYP009 = "TYP009" // refinement predicate count/tag mismatch
	TYP010 = "TYP010" // python-constant could not be promoted (no target type)

	// ============================================================
	// LinearError (LIN###) — linear-resource dataflow violations.
	// ============================================================

	LIN001 = "LIN001" // unconsumed_at_exit
	LIN002 = "LIN002" // use_after_consume
	LIN003 = "LIN003" // use_after_move
	LIN004 = "LIN004" // merge_inconsistent
	LIN005 = "LIN005" // exit_inconsistent
	LIN006 = "LIN006" // loop_invariant_violated
	LIN007 = "LIN007" // reassignment to active lvalue
	LIN008 = "LIN008" // consume of non-active token

	// ============================================================
	// ExhaustivenessError (EXH###) — non-exhaustive match.
	// ============================================================

	EXH001 = "EXH001" // non-exhaustive match, missing patterns enumerated
	EXH002 = "EXH002" // unreachable arm (redundant after catch-all)

	// ============================================================
	// SyntaxError (SYN###) — duplicate label, unresolved goto,
	// reserved-name redeclaration, varargs misuse, inline filter.
	// ============================================================

	SYN001 = "SYN001" // duplicate label name in function
	SYN002 = "SYN002" // unresolved goto/goto_end at function end
	SYN003 = "SYN003" // reserved builtin type name redeclared
	SYN004 = "SYN004" // varargs misuse
	SYN005 = "SYN005" // inline/yield construct failed inlinability filter
	SYN006 = "SYN006" // redeclaration in same lexical scope
	SYN007 = "SYN007" // ambiguous effect-suffix precedence

	// ============================================================
	// NameError (NAM###) — unresolved name in type position or call.
	// ============================================================

	NAM001 = "NAM001" // unresolved name in type annotation position
	NAM002 = "NAM002" // unresolved callee
	NAM003 = "NAM003" // unresolved effect reference

	// ============================================================
	// ConstQualifierError (CNQ###) — store to const-qualified loc.
	// ============================================================

	CNQ001 = "CNQ001" // store to const-qualified address

	// ============================================================
	// BuildError (BLD###) — linker failure, missing object, load.
	// ============================================================

	BLD001 = "BLD001" // linker subprocess failed
	BLD002 = "BLD002" // missing object file for a group dependency
	BLD003 = "BLD003" // shared library load failure (second-pass, not cycle retry)
	BLD004 = "BLD004" // lock could not be acquired
	BLD005 = "BLD005" // .deps schema version mismatch
	BLD006 = "BLD006" // ABI version mismatch between linked libraries

	// ============================================================
	// OverloadError (OVL###) — ambiguous or missing overload.
	// ============================================================

	OVL001 = "OVL001" // no matching overload
	OVL002 = "OVL002" // ambiguous overload resolution
)

// Info describes one error code: its phase, category and a short
// human-readable description, mirroring the stable user-facing taxonomy
// required by spec.md §7.
type Info struct {
	Code        string
	Phase       string
	Category    string
	Description string
}

// Registry maps every defined code to its Info. Lookups against an unknown
// code should be treated as an internal-compiler-error, never silently
// ignored.
var Registry = map[string]Info{
	TYP001: {TYP001, "types", "annotation", "Unknown type annotation"},
	TYP002: {TYP002, "types", "coercion", "Implicit int-to-pointer conversion"},
	TYP003: {TYP003, "types", "coercion", "Implicit pointer-to-int conversion"},
	TYP004: {TYP004, "types", "struct", "Struct field arity mismatch"},
	TYP005: {TYP005, "types", "struct", "Struct field name mismatch"},
	TYP006: {TYP006, "types", "sizeof", "sizeof on unresolved type"},
	TYP007: {TYP007, "types", "coercion", "Narrowing conversion requires explicit cast"},
	TYP008: {TYP008, "types", "binop", "Incompatible operand types"},
	TYP009: {TYP009, "types", "refined", "Refinement predicate/tag mismatch"},
	TYP010: {TYP010, "types", "constant", "Python constant could not be promoted"},

	LIN001: {LIN001, "linear", "exit", "Linear token not consumed at exit"},
	LIN002: {LIN002, "linear", "use", "Use after consume"},
	LIN003: {LIN003, "linear", "use", "Use after move"},
	LIN004: {LIN004, "linear", "merge", "Inconsistent linear states at merge"},
	LIN005: {LIN005, "linear", "exit", "Inconsistent linear states at exit points"},
	LIN006: {LIN006, "linear", "loop", "Loop body changes linear state"},
	LIN007: {LIN007, "linear", "assign", "Reassignment to active lvalue"},
	LIN008: {LIN008, "linear", "consume", "Consume of non-active token"},

	EXH001: {EXH001, "exhaust", "match", "Non-exhaustive match"},
	EXH002: {EXH002, "exhaust", "match", "Unreachable match arm"},

	SYN001: {SYN001, "syntax", "label", "Duplicate label name"},
	SYN002: {SYN002, "syntax", "label", "Unresolved goto/goto_end"},
	SYN003: {SYN003, "syntax", "name", "Reserved type name redeclared"},
	SYN004: {SYN004, "syntax", "varargs", "Varargs misuse"},
	SYN005: {SYN005, "syntax", "inline", "Construct failed inlinability filter"},
	SYN006: {SYN006, "syntax", "scope", "Redeclaration in same scope"},
	SYN007: {SYN007, "syntax", "effect", "Ambiguous effect-suffix precedence"},

	NAM001: {NAM001, "name", "type", "Unresolved name in type position"},
	NAM002: {NAM002, "name", "call", "Unresolved callee"},
	NAM003: {NAM003, "name", "effect", "Unresolved effect reference"},

	CNQ001: {CNQ001, "const", "store", "Store to const-qualified address"},

	BLD001: {BLD001, "build", "link", "Linker subprocess failed"},
	BLD002: {BLD002, "build", "link", "Missing object file"},
	BLD003: {BLD003, "build", "load", "Shared library load failure"},
	BLD004: {BLD004, "build", "lock", "Could not acquire build lock"},
	BLD005: {BLD005, "build", "deps", ".deps schema version mismatch"},
	BLD006: {BLD006, "build", "abi", "ABI version mismatch"},

	OVL001: {OVL001, "overload", "resolve", "No matching overload"},
	OVL002: {OVL002, "overload", "resolve", "Ambiguous overload resolution"},
}

// GetInfo returns the Info for a code, if known.
func GetInfo(code string) (Info, bool) {
	info, ok := Registry[code]
	return info, ok
}

// Category helpers mirror spec.md §7's eight closed categories; each asks
// whether a code belongs to that error category (not the finer "phase").
func IsTypeError(code string) bool          { return hasPrefix(code, "TYP") }
func IsLinearError(code string) bool        { return hasPrefix(code, "LIN") }
func IsExhaustivenessError(code string) bool { return hasPrefix(code, "EXH") }
func IsSyntaxError(code string) bool        { return hasPrefix(code, "SYN") }
func IsNameError(code string) bool          { return hasPrefix(code, "NAM") }
func IsConstQualifierError(code string) bool { return hasPrefix(code, "CNQ") }
func IsBuildError(code string) bool         { return hasPrefix(code, "BLD") }
func IsOverloadError(code string) bool      { return hasPrefix(code, "OVL") }

func hasPrefix(code, prefix string) bool {
	return len(code) >= len(prefix) && code[:len(prefix)] == prefix
}
