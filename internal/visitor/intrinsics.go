package visitor

import (
	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/cfg"
	"github.com/pythoc-lang/pythoc/internal/deferstmt"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/types"
)

// dispatchIntrinsic recognizes the small set of compiler-intrinsic names
// spec.md §4.3 calls out (typeof, sizeof, consume, assume, refine,
// defer, __label/__goto, move), resolved before ordinary call handling
// so they never collide with a user-declared function of the same name.
// handled reports whether name was an intrinsic at all; when false, the
// caller falls through to regular call lowering.
func (c *Context) dispatchIntrinsic(name string, n *ast.Call) (ref *types.ValueRef, handled bool, err error) {
	switch name {
	case "typeof":
		ref, err = c.intrinsicTypeof(n)
	case "sizeof":
		ref, err = c.intrinsicSizeof(n)
	case "consume":
		ref, err = c.intrinsicConsume(n)
	case "move":
		ref, err = c.intrinsicMove(n)
	case "assume":
		ref, err = c.intrinsicAssumeOrRefine(n, false)
	case "refine":
		ref, err = c.intrinsicAssumeOrRefine(n, true)
	case "defer":
		ref, err = c.intrinsicDefer(n)
	case "__label", "label":
		ref, err = c.intrinsicLabel(n)
	case "__goto", "goto":
		ref, err = c.intrinsicGoto(n, false)
	case "goto_end":
		ref, err = c.intrinsicGoto(n, true)
	default:
		return nil, false, nil
	}
	return ref, true, err
}

// intrinsicTypeof resolves its single argument's static type and wraps
// it as a python-constant carrying the TypeObject itself, mirroring how
// a bare subscript's constructor form (index==nil) returns a
// type-as-value reference (spec.md §4.1).
func (c *Context) intrinsicTypeof(n *ast.Call) (*types.ValueRef, error) {
	if len(n.Args) != 1 {
		return nil, c.Report(errors.TYP001, n, "typeof(x) takes exactly one argument")
	}
	v, err := c.VisitExpr(n.Args[0])
	if err != nil {
		return nil, err
	}
	return &types.ValueRef{Kind: types.KindPythonConstant, PyConstValue: v.TypeHint}, nil
}

// intrinsicSizeof resolves its argument as a type annotation and
// returns the constant byte size (spec.md §6 "sizeof").
func (c *Context) intrinsicSizeof(n *ast.Call) (*types.ValueRef, error) {
	if len(n.Args) != 1 {
		return nil, c.Report(errors.TYP006, n, "sizeof(T) takes exactly one argument")
	}
	te := asTypeExpr(n.Args[0])
	if te == nil {
		return nil, c.Report(errors.TYP006, n, "sizeof argument must be a type annotation")
	}
	t, err := c.ResolveType(te)
	if err != nil {
		return nil, c.Report(errors.TYP006, n, "sizeof on unresolved type: %v", err)
	}
	return &types.ValueRef{Kind: types.KindPythonConstant, PyConstValue: int64(t.ByteSize())}, nil
}

// intrinsicConsume implements `consume(t)`: requires t to name an active
// linear path and transitions it to consumed (spec.md §4.6).
func (c *Context) intrinsicConsume(n *ast.Call) (*types.ValueRef, error) {
	if len(n.Args) != 1 {
		return nil, c.Report(errors.LIN008, n, "consume(t) takes exactly one argument")
	}
	name, ok := n.Args[0].(*ast.Name)
	if !ok {
		return nil, c.Report(errors.LIN008, n, "consume(t) requires a bare variable reference")
	}
	if err := c.transitionLinear(name.Id, StateActive, StateConsumed, n); err != nil {
		return nil, err
	}
	return &types.ValueRef{Kind: types.KindValue, TypeHint: c.Session.Types.Void()}, nil
}

// intrinsicMove implements `move(x)`: an explicit ownership transfer
// used both by hand-written code and by the inline kernel's
// ReturnExitRule/YieldExitRule splices (spec.md §4.7 "The inline
// wrapper's move(x) call is essential for linear types"). A move of a
// non-linear value is just its value, unchanged.
func (c *Context) intrinsicMove(n *ast.Call) (*types.ValueRef, error) {
	if len(n.Args) != 1 {
		return nil, c.Report(errors.LIN003, n, "move(x) takes exactly one argument")
	}
	if name, ok := n.Args[0].(*ast.Name); ok {
		if v, found := c.Vars.Lookup(name.Id); found && len(v.LinearStates) > 0 {
			if err := c.transitionLinear(name.Id, StateActive, StateConsumed, n); err != nil {
				return nil, err
			}
		}
	}
	v, err := c.VisitExpr(n.Args[0])
	if err != nil {
		return nil, err
	}
	// The source is already consumed above; the moved value is no longer
	// tied to it, so the receiving assignment or return does not consume
	// it a second time.
	moved := *v
	moved.VarName = ""
	moved.LinearPath = nil
	return &moved, nil
}

// transitionLinear moves every linear path of variable name from `from`
// to `to`, erroring if any path is not currently in the `from` state.
func (c *Context) transitionLinear(name string, from, to LinearState, node ast.Node) error {
	v, ok := c.Vars.Lookup(name)
	if !ok {
		return c.Report(errors.NAM002, node, "undefined name %q", name)
	}
	if len(v.LinearStates) == 0 {
		// Non-linear variable; consume/move on it is a no-op at the
		// bookkeeping level — the caller still gets its value.
		return nil
	}
	for path, st := range v.LinearStates {
		if st != from {
			return c.Report(errors.LIN008, node, "cannot transition %q[%s] from %s to %s", name, path, st, to)
		}
		v.LinearStates[path] = to
	}
	return nil
}

// intrinsicAssumeOrRefine implements `assume(v, pred..., "tag"...)` and
// `refine(v, pred..., "tag"...)` — both wrap v's type in a RefinedType
// carrying the given predicate/tag names; refine additionally requires a
// yield-checked predicate call be emitted (modeled here as a no-op
// marker since the predicate bodies themselves are ordinary compiled
// functions the visitor already lowers).
func (c *Context) intrinsicAssumeOrRefine(n *ast.Call, checked bool) (*types.ValueRef, error) {
	if len(n.Args) < 1 {
		return nil, c.Report(errors.TYP009, n, "assume/refine requires a value argument")
	}
	v, err := c.VisitExpr(n.Args[0])
	if err != nil {
		return nil, err
	}
	var predName string
	var tags []string
	for _, a := range n.Args[1:] {
		switch lit := a.(type) {
		case *ast.Name:
			predName = lit.Id
		case *ast.Constant:
			if lit.Kind == ast.ConstString {
				tags = append(tags, lit.Value.(string))
			}
		}
	}
	if predName == "" {
		predName = "assumed"
	}
	rt, err := types.NewRefinedType(predName, []string{"value"}, []types.Type{v.TypeHint}, tags)
	if err != nil {
		return nil, c.Report(errors.TYP009, n, "%s", err)
	}
	_ = checked // refine's extra runtime check is emitted by the caller's predicate call, already lowered above as part of n.Args[0] if present
	return &types.ValueRef{Kind: v.Kind, IRValue: v.IRValue, Address: v.Address, TypeHint: rt, VarName: v.VarName, LinearPath: v.LinearPath}, nil
}

// intrinsicDefer implements `defer(f, *args)`: registers a DeferEntry at
// the current scope depth (spec.md §4.9).
func (c *Context) intrinsicDefer(n *ast.Call) (*types.ValueRef, error) {
	if len(n.Args) < 1 {
		return nil, c.Report(errors.SYN004, n, "defer(f, *args) requires a callable argument")
	}
	callee, err := c.VisitExpr(n.Args[0])
	if err != nil {
		return nil, err
	}
	args := make([]any, 0, len(n.Args)-1)
	for _, a := range n.Args[1:] {
		v, err := c.VisitExpr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	c.Defers.Register(c.ScopeDepth, callee, args, n)
	return &types.ValueRef{Kind: types.KindValue, TypeHint: c.Session.Types.Void()}, nil
}

// intrinsicLabel implements the `label("X")` with-statement intrinsic
// form reached as a bare call (the with-statement lowering in stmt.go
// calls LabelBegin/LabelEnd directly; this path only handles the flat
// `__label("n")` spelling used outside a with-block, which is a no-op
// marker recorded for diagnostics).
func (c *Context) intrinsicLabel(n *ast.Call) (*types.ValueRef, error) {
	if len(n.Args) != 1 {
		return nil, c.Report(errors.SYN001, n, "label(name) takes exactly one string argument")
	}
	return &types.ValueRef{Kind: types.KindValue, TypeHint: c.Session.Types.Void()}, nil
}

// intrinsicGoto implements the flat `__goto("n")`/`goto("n")`/
// `goto_end("n")` forms: resolve the named label against visibility
// rules, emit the crossed scopes' defers, and branch (spec.md §4.9).
func (c *Context) intrinsicGoto(n *ast.Call, isEnd bool) (*types.ValueRef, error) {
	if len(n.Args) != 1 {
		return nil, c.Report(errors.SYN002, n, "goto/goto_end(name) takes exactly one string argument")
	}
	lit, ok := n.Args[0].(*ast.Constant)
	if !ok || lit.Kind != ast.ConstString {
		return nil, c.Report(errors.SYN002, n, "goto/goto_end target must be a string literal")
	}
	name := lit.Value.(string)

	var target *deferstmt.LabelContext
	var found bool
	if isEnd {
		target, found = c.Labels.FindForGotoEnd(name)
	} else {
		target, found = c.Labels.FindForGoto(name)
	}
	if !found {
		c.Labels.AddPending(deferstmt.PendingGoto{
			LabelName: name,
			IsGotoEnd: isEnd,
			Node:      n,
			Patch: func(ctx *deferstmt.LabelContext) error {
				return c.emitGotoEdge(ctx, isEnd, n)
			},
		})
		return &types.ValueRef{Kind: types.KindValue, TypeHint: c.Session.Types.Void()}, nil
	}
	if err := c.emitGotoEdge(target, isEnd, n); err != nil {
		return nil, err
	}
	return &types.ValueRef{Kind: types.KindValue, TypeHint: c.Session.Types.Void()}, nil
}

// emitGotoEdge emits every defer between the jump origin and the
// target's parent scope (inclusive of origin, exclusive of target's
// parent). Both goto and goto_end therefore include the label's own
// scope defers, since the label's scope depth is ParentScopeDepth+1. It
// then records the CFG edge and terminates the current block (spec.md
// §4.9).
func (c *Context) emitGotoEdge(target *deferstmt.LabelContext, isEnd bool, node ast.Node) error {
	minDepth := target.ParentScopeDepth + 1
	if isEnd {
		minDepth = target.ScopeDepth
	}
	c.EmitDefersFromDepth(minDepth)

	var dest cfg.BlockID
	var ok bool
	if isEnd {
		dest, ok = target.EndBlock.(cfg.BlockID)
	} else {
		dest, ok = target.BeginBlock.(cfg.BlockID)
	}
	if !ok {
		return nil
	}
	kind := cfg.Goto
	if isEnd {
		kind = cfg.GotoEnd
	}
	c.CFG.AddEdge(c.CurrentBlock, dest, kind, nil)
	c.Terminate()
	return nil
}
