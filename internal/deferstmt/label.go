package deferstmt

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/ast"
)

// LabelContext is one `with label("X"):` scope (spec.md §3 LabelContext).
// BeginBlock is visible at the parent scope (siblings/uncles can `goto`
// into it); EndBlock is visible only from inside the body (only
// ancestors — including self — can `goto_end` to it), matching
// scoped_label.py's "begin is at the with-statement level, end is inside
// the body" design note.
type LabelContext struct {
	Name             string
	ScopeDepth       int // depth inside the label body
	ParentScopeDepth int // depth at the `with` statement level
	BeginBlock       any // opaque irbuilder.Block handle
	EndBlock         any
	Node             ast.Node
}

// Registry holds every structure scoped_label.py's visitor attributes
// track: the current nesting chain (ancestor lookup), a parent-depth ->
// labels map (sibling/uncle lookup), a by-name map (duplicate detection
// and forward-goto resolution), and the list of pending forward
// references.
type Registry struct {
	stack        []*LabelContext            // ancestor chain, innermost last
	byParentDepth map[int][]*LabelContext    // scope_labels
	byName       map[string]*LabelContext    // all_labels
	pending      []PendingGoto
}

// PendingGoto is a forward reference to a label that hasn't been
// declared yet when the goto/goto_end is lowered (spec.md §4.9:
// "Forward references are recorded and patched when the matching label
// appears. Unresolved at function end => error.").
type PendingGoto struct {
	LabelName  string
	IsGotoEnd  bool
	Node       ast.Node
	// Patch is called with the resolved LabelContext once it appears;
	// the visitor supplies this closure so Registry stays IR-agnostic.
	Patch func(*LabelContext) error
}

// NewRegistry returns an empty label registry.
func NewRegistry() *Registry {
	return &Registry{
		byParentDepth: make(map[int][]*LabelContext),
		byName:        make(map[string]*LabelContext),
	}
}

// Enter declares a new label, erroring (SYN001 territory — callers wrap
// this in an *errors.Report) if the name is already taken anywhere in
// the function, matching scoped_label.py's duplicate-name rule (labels
// are unique per function, not just per scope).
func (r *Registry) Enter(name string, scopeDepth, parentScopeDepth int, begin, end any, node ast.Node) (*LabelContext, error) {
	if _, dup := r.byName[name]; dup {
		return nil, fmt.Errorf("duplicate label name %q in function", name)
	}
	ctx := &LabelContext{
		Name:             name,
		ScopeDepth:       scopeDepth,
		ParentScopeDepth: parentScopeDepth,
		BeginBlock:       begin,
		EndBlock:         end,
		Node:             node,
	}
	r.stack = append(r.stack, ctx)
	r.byParentDepth[parentScopeDepth] = append(r.byParentDepth[parentScopeDepth], ctx)
	r.byName[name] = ctx
	r.resolvePending(ctx)
	return ctx, nil
}

// Exit pops the innermost label context when its `with` body finishes
// lowering. It does not remove the entry from byName/byParentDepth —
// those remain for sibling/uncle lookups and duplicate detection for the
// rest of the function.
func (r *Registry) Exit() {
	if len(r.stack) > 0 {
		r.stack = r.stack[:len(r.stack)-1]
	}
}

// FindForGoto resolves a `goto("X")` target: self, any ancestor, any
// sibling (same parent depth as an ancestor or function level), or any
// uncle (an ancestor's sibling) — scoped_label.py's _find_label_for_begin.
func (r *Registry) FindForGoto(name string) (*LabelContext, bool) {
	for _, ctx := range r.stack {
		if ctx.Name == name {
			return ctx, true
		}
	}
	ancestorDepths := map[int]bool{0: true}
	for _, ctx := range r.stack {
		ancestorDepths[ctx.ParentScopeDepth] = true
	}
	for depth := range ancestorDepths {
		for _, ctx := range r.byParentDepth[depth] {
			if ctx.Name == name {
				return ctx, true
			}
		}
	}
	return nil, false
}

// FindForGotoEnd resolves a `goto_end("X")` target: only self or an
// ancestor — scoped_label.py's _find_label_for_end.
func (r *Registry) FindForGotoEnd(name string) (*LabelContext, bool) {
	for _, ctx := range r.stack {
		if ctx.Name == name {
			return ctx, true
		}
	}
	return nil, false
}

// IsAncestor reports whether ctx is in the current ancestor chain —
// used to decide whether goto_end's own-scope defers must additionally
// be emitted (spec.md §4.9: "For goto_end(X) this includes X's own scope
// defers, since goto_end exits X").
func (r *Registry) IsAncestor(ctx *LabelContext) bool {
	for _, c := range r.stack {
		if c == ctx {
			return true
		}
	}
	return false
}

// AddPending records a forward reference to an as-yet-undeclared label.
func (r *Registry) AddPending(p PendingGoto) {
	if ctx, ok := r.byName[p.LabelName]; ok {
		// Already declared (a backward reference that raced Enter's
		// own resolvePending call) — patch immediately.
		_ = p.Patch(ctx)
		return
	}
	r.pending = append(r.pending, p)
}

func (r *Registry) resolvePending(ctx *LabelContext) {
	var remaining []PendingGoto
	for _, p := range r.pending {
		if p.LabelName == ctx.Name {
			if err := p.Patch(ctx); err != nil {
				// Patch errors surface through FinishFunction's caller
				// instead — keep this resolution best-effort so one bad
				// patch doesn't block resolving the rest.
				remaining = append(remaining, p)
				continue
			}
			continue
		}
		remaining = append(remaining, p)
	}
	r.pending = remaining
}

// FinishFunction reports every goto/goto_end left unresolved at the end
// of the function — spec.md §4.9: "Unresolved at function end => error."
func (r *Registry) FinishFunction() []PendingGoto {
	return append([]PendingGoto(nil), r.pending...)
}
