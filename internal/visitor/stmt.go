package visitor

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/cfg"
	"github.com/pythoc-lang/pythoc/internal/effects"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/exhaust"
	"github.com/pythoc-lang/pythoc/internal/inline"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
	"github.com/pythoc-lang/pythoc/internal/types"
)

// irBlockFor lazily creates the backend block behind a CFG block id, so
// statement lowering never has to special-case "first visit" (spec.md
// §4.4 — every CFG block eventually needs exactly one backend block).
func (c *Context) irBlockFor(id cfg.BlockID) irbuilder.Block {
	b := c.CFG.Blocks[id]
	if b.IRBlock == nil {
		b.IRBlock = c.Builder.NewBlock(fmt.Sprintf("bb%d", id))
	}
	return b.IRBlock.(irbuilder.Block)
}

// gotoBlock moves both the CFG and backend insertion point to id.
func (c *Context) gotoBlock(id cfg.BlockID) {
	c.SetCurrent(id)
	c.Builder.SetInsertPoint(c.irBlockFor(id))
}

// branchSeq emits an unconditional branch from the current block to
// target, records the Sequential edge, and terminates the current block.
func (c *Context) branchSeq(target cfg.BlockID) {
	c.Builder.Branch(c.irBlockFor(target))
	c.CFG.AddEdge(c.CurrentBlock, target, cfg.Sequential, nil)
	c.Terminate()
}

// branchCond emits a conditional branch, recording both outgoing edges.
func (c *Context) branchCond(cond *types.ValueRef, ifTrue, ifFalse cfg.BlockID) {
	var condVal irbuilder.IRValue
	if cond != nil {
		condVal = cond.IRValue
	}
	c.Builder.CondBranch(condVal, c.irBlockFor(ifTrue), c.irBlockFor(ifFalse))
	c.CFG.AddEdge(c.CurrentBlock, ifTrue, cfg.BranchTrue, cond)
	c.CFG.AddEdge(c.CurrentBlock, ifFalse, cfg.BranchFalse, cond)
	c.Terminate()
}

// blockTerminated reports whether id's block has already been closed by a
// terminator (return/break/continue/goto/branch), so VisitBlock knows
// when reaching the end of a statement list is a true fallthrough.
func (c *Context) blockTerminated(id cfg.BlockID) bool {
	b := c.CFG.Blocks[id]
	return b != nil && b.Terminated
}

// VisitBlock lowers a straight-line statement list, routing around any
// terminator a nested statement may have already emitted (spec.md §4.4's
// unreachable_cont rule covers the case where source statements still
// follow it).
func (c *Context) VisitBlock(stmts []ast.Stmt) error {
	for _, s := range stmts {
		c.EnsureLive()
		if err := c.VisitStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// VisitStmt lowers one statement.
func (c *Context) VisitStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.Assign:
		return c.visitAssign(s)
	case *ast.AnnAssign:
		return c.visitAnnAssign(s)
	case *ast.AugAssign:
		return c.visitAugAssign(s)
	case *ast.If:
		return c.visitIf(s)
	case *ast.While:
		return c.visitWhile(s)
	case *ast.For:
		return c.visitFor(s)
	case *ast.With:
		return c.visitWith(s)
	case *ast.Match:
		return c.visitMatch(s)
	case *ast.Try:
		return c.visitTry(s)
	case *ast.Return:
		return c.visitReturn(s)
	case *ast.Break:
		return c.visitBreak(s)
	case *ast.Continue:
		return c.visitContinue(s)
	case *ast.ExprStmt:
		_, err := c.VisitExpr(s.Value)
		return err
	default:
		return c.Report(errors.NAM002, stmt, "unsupported statement form %T", stmt)
	}
}

// --- Assignment ---

// visitAssign lowers `lhs = rhs`, supporting a bare name target, a tuple
// of name targets (positional unpacking of a tuple-literal rhs), and an
// existing lvalue (subscript/attribute) target.
func (c *Context) visitAssign(s *ast.Assign) error {
	if len(s.Targets) != 1 {
		return c.Report(errors.SYN003, s, "chained assignment is not supported")
	}
	switch t := s.Targets[0].(type) {
	case *ast.Tuple:
		return c.visitTupleAssign(t, s.Value, s)
	default:
		val, err := c.VisitExpr(s.Value)
		if err != nil {
			return err
		}
		return c.assignToTarget(s.Targets[0], val, s)
	}
}

// visitTupleAssign unpacks a tuple-literal rhs positionally into each
// target (spec.md §4.3 Assign: "tuple/struct unpacking assigns each
// element positionally").
func (c *Context) visitTupleAssign(target *ast.Tuple, rhs ast.Expr, node ast.Node) error {
	tup, ok := rhs.(*ast.Tuple)
	if !ok || len(tup.Elts) != len(target.Elts) {
		return c.Report(errors.TYP001, node, "tuple assignment requires a tuple literal of matching arity")
	}
	for i, elt := range target.Elts {
		val, err := c.VisitExpr(tup.Elts[i])
		if err != nil {
			return err
		}
		if err := c.assignToTarget(elt, val, node); err != nil {
			return err
		}
	}
	return nil
}

// assignToTarget stores val into target, declaring a fresh variable on
// first assignment to a bare name and otherwise writing through the
// existing binding, transferring linear ownership from val's source
// variable where applicable (spec.md §4.6).
func (c *Context) assignToTarget(target ast.Expr, val *types.ValueRef, node ast.Node) error {
	name, ok := target.(*ast.Name)
	if !ok {
		return c.storeLvalue(target, val, node)
	}
	if existing, found := c.Vars.Lookup(name.Id); found {
		if len(existing.LinearStates) > 0 {
			for path, st := range existing.LinearStates {
				if st == StateActive {
					return c.Report(errors.LIN007, node, "reassigning %q[%s] while still active; consume it first", name.Id, path)
				}
			}
		}
		return c.storeExisting(existing, val, node)
	}
	return c.declareVar(name.Id, val, false, node)
}

// storeLvalue handles assignment through a subscript/attribute target
// reached as a plain address (e.g. `p.x = 1`, `arr[i] = 1`).
func (c *Context) storeLvalue(target ast.Expr, val *types.ValueRef, node ast.Node) error {
	lv, err := c.VisitExpr(target)
	if err != nil {
		return err
	}
	if lv.Kind != types.KindAddress {
		return c.Report(errors.TYP001, node, "assignment target is not an addressable location")
	}
	q := qualifiersOf(lv.TypeHint)
	if err := c.Builder.Store(val.IRValue, lv.Address, irbuilder.Qualifiers{Const: q.Const, Volatile: q.Volatile}); err != nil {
		return c.Report(errors.CNQ001, node, "%s", err)
	}
	return nil
}

// storeExisting writes val into an already-declared variable's storage
// location, applying the linear-ownership transfer rule: if val names a
// source variable that is itself linear-tracked and currently active, the
// source transitions to consumed and the target becomes active.
func (c *Context) storeExisting(v *VariableInfo, val *types.ValueRef, node ast.Node) error {
	if err := c.transferLinearFromValue(val, node); err != nil {
		return err
	}
	if v.ValueRef != nil && v.ValueRef.Kind == types.KindAddress {
		q := qualifiersOf(v.TypeHint)
		if err := c.Builder.Store(val.IRValue, v.ValueRef.Address, irbuilder.Qualifiers{Const: q.Const, Volatile: q.Volatile}); err != nil {
			return c.Report(errors.CNQ001, node, "%s", err)
		}
	} else {
		v.ValueRef = val
	}
	if len(v.LinearStates) > 0 {
		for path := range v.LinearStates {
			v.LinearStates[path] = StateActive
		}
	}
	return nil
}

// declareVar introduces a brand-new binding for name in the current
// scope, inferring its type from val (spec.md §4.3's "a bare assignment to
// an undeclared name declares it with the rhs's type").
func (c *Context) declareVar(name string, val *types.ValueRef, isParam bool, node ast.Node) error {
	if err := c.transferLinearFromValue(val, node); err != nil {
		return err
	}
	info := &VariableInfo{
		Name:        name,
		ScopeLevel:  c.Vars.Depth(),
		TypeHint:    val.TypeHint,
		ValueRef:    val,
		IsParameter: isParam,
		Source:      node,
	}
	if _, ok := val.TypeHint.(*types.LinearType); ok {
		info.LinearStates = map[string]LinearState{"": StateActive}
		info.LinearScopeDepth = c.ScopeDepth
	}
	if err := c.Vars.Declare(info); err != nil {
		return c.Report(errors.SYN006, node, "%s", err)
	}
	return nil
}

// transferLinearFromValue moves ownership out of val's originating
// variable, if any, when that variable is linear-tracked and currently
// active — this is what makes `y = x` for a linear x consume x rather
// than alias it (spec.md §4.6).
func (c *Context) transferLinearFromValue(val *types.ValueRef, node ast.Node) error {
	if val == nil || val.VarName == "" {
		return nil
	}
	src, ok := c.Vars.Lookup(val.VarName)
	if !ok || len(src.LinearStates) == 0 {
		return nil
	}
	for path, st := range src.LinearStates {
		if st != StateActive {
			return c.Report(errors.LIN008, node, "cannot use %q[%s] in state %s", val.VarName, path, st)
		}
		src.LinearStates[path] = StateConsumed
	}
	return nil
}

// visitAnnAssign lowers `x: T = e` / `x: T` declarations (spec.md §4.3
// AnnAssign).
func (c *Context) visitAnnAssign(s *ast.AnnAssign) error {
	name, ok := s.Target.(*ast.Name)
	if !ok {
		return c.Report(errors.SYN006, s, "annotated assignment target must be a bare name")
	}
	t, err := c.ResolveType(s.Type)
	if err != nil {
		return err
	}
	var val *types.ValueRef
	if s.Value != nil {
		val, err = c.VisitExpr(s.Value)
		if err != nil {
			return err
		}
		if err := c.transferLinearFromValue(val, s); err != nil {
			return err
		}
	} else {
		val = &types.ValueRef{Kind: types.KindValue, TypeHint: t}
	}
	info := &VariableInfo{
		Name:       name.Id,
		ScopeLevel: c.Vars.Depth(),
		TypeHint:   t,
		ValueRef:   val,
		Source:     s,
	}
	if _, ok := t.(*types.LinearType); ok {
		info.LinearStates = map[string]LinearState{"": StateActive}
		info.LinearScopeDepth = c.ScopeDepth
	}
	if err := c.Vars.Declare(info); err != nil {
		return c.Report(errors.SYN006, s, "%s", err)
	}
	return nil
}

// visitAugAssign lowers `lhs OP= rhs`, rejecting const-qualified and
// linear-tracked targets (spec.md §4.3 AugAssign: "rejected on const and
// on linear locations").
func (c *Context) visitAugAssign(s *ast.AugAssign) error {
	name, ok := s.Target.(*ast.Name)
	if !ok {
		return c.Report(errors.TYP001, s, "augmented assignment target must be a bare name")
	}
	v, found := c.Vars.Lookup(name.Id)
	if !found {
		return c.Report(errors.NAM002, s, "undefined name %q", name.Id)
	}
	if len(v.LinearStates) > 0 {
		return c.Report(errors.LIN007, s, "cannot augmented-assign to linear-tracked %q", name.Id)
	}
	if q := qualifiersOf(v.TypeHint); q.Const {
		return c.Report(errors.CNQ001, s, "cannot augmented-assign to const %q", name.Id)
	}
	cur, err := c.VisitExpr(name)
	if err != nil {
		return err
	}
	rhs, err := c.VisitExpr(s.Value)
	if err != nil {
		return err
	}
	resultType, err := types.PromoteBinaryOperands(cur.TypeHint, rhs.TypeHint)
	if err != nil {
		return c.Report(errors.TYP008, s, "%s", err)
	}
	result := &types.ValueRef{Kind: types.KindValue, TypeHint: resultType}
	return c.storeExisting(v, result, s)
}

// --- Control flow ---

func (c *Context) visitIf(s *ast.If) error {
	cond, err := c.VisitExpr(s.Test)
	if err != nil {
		return err
	}
	thenID := c.NewBlock()
	elseID := c.NewBlock()
	mergeID := c.NewBlock()
	c.branchCond(cond, thenID, elseID)

	c.gotoBlock(thenID)
	c.PushScope()
	if err := c.VisitBlock(s.Body); err != nil {
		return err
	}
	if !c.blockTerminated(c.CurrentBlock) {
		c.branchSeq(mergeID)
	}
	c.PopScope()

	c.gotoBlock(elseID)
	c.PushScope()
	if err := c.VisitBlock(s.Orelse); err != nil {
		return err
	}
	if !c.blockTerminated(c.CurrentBlock) {
		c.branchSeq(mergeID)
	}
	c.PopScope()

	c.gotoBlock(mergeID)
	return nil
}

// visitWhile lowers a while loop. A literal `while True:` loop with no
// reachable break leaves the exit block unreachable, matching spec.md
// §4.4's "while True with no break" rule — TopoOrder already drops such a
// block from analysis.
func (c *Context) visitWhile(s *ast.While) error {
	headerID := c.NewBlock()
	bodyID := c.NewBlock()
	exitID := c.NewBlock()

	c.branchSeq(headerID)

	c.gotoBlock(headerID)
	if lit, ok := s.Test.(*ast.Constant); ok && lit.Kind == ast.ConstBool && lit.Value == true {
		// `while True`: no edge from the header to the exit; only a
		// break reaches it.
		c.branchSeq(bodyID)
	} else {
		cond, err := c.VisitExpr(s.Test)
		if err != nil {
			return err
		}
		c.branchCond(cond, bodyID, exitID)
	}

	c.gotoBlock(bodyID)
	c.PushScope()
	frame := &LoopFrame{HeaderBlock: headerID, ExitBlock: exitID, ScopeDepth: c.ScopeDepth}
	c.LoopStack = append(c.LoopStack, frame)
	if err := c.VisitBlock(s.Body); err != nil {
		c.LoopStack = c.LoopStack[:len(c.LoopStack)-1]
		return err
	}
	c.LoopStack = c.LoopStack[:len(c.LoopStack)-1]
	if !c.blockTerminated(c.CurrentBlock) {
		c.Builder.Branch(c.irBlockFor(headerID))
		c.CFG.AddEdge(c.CurrentBlock, headerID, cfg.LoopBack, nil)
		c.Terminate()
	}
	c.PopScope()

	c.gotoBlock(exitID)
	return nil
}

// visitFor lowers `for target in iter: body`. Two iterable forms are
// accepted (spec.md §4.7): `seq(lo, hi)`, desugared into a counted while
// loop, and a generator-function call, inlined via the universal inline
// kernel's YieldExitRule so the loop body splices directly in place of
// each `yield`.
func (c *Context) visitFor(s *ast.For) error {
	call, ok := s.Iter.(*ast.Call)
	if !ok {
		return c.Report(errors.SYN005, s, "for-loop iterable must be a seq(...) call or a generator call")
	}
	if name, ok := call.Func.(*ast.Name); ok && name.Id == "seq" {
		return c.visitForSeq(s, call)
	}
	return c.visitForGenerator(s, call)
}

// visitForSeq desugars `for i in seq(lo, hi): body` into:
//
//	i = lo
//	while i < hi:
//	    body
//	    i += 1
func (c *Context) visitForSeq(s *ast.For, call *ast.Call) error {
	if len(call.Args) != 2 {
		return c.Report(errors.SYN005, s, "seq(lo, hi) takes exactly two arguments")
	}
	target, ok := s.Target.(*ast.Name)
	if !ok {
		return c.Report(errors.SYN005, s, "seq(...) for-loop target must be a bare name")
	}
	lo, err := c.VisitExpr(call.Args[0])
	if err != nil {
		return err
	}
	if err := c.declareVar(target.Id, lo, false, s); err != nil {
		return err
	}
	synthesized := &ast.While{
		Test: &ast.Compare{Left: target, Ops: []string{"<"}, Comparators: []ast.Expr{call.Args[1]}, Pos: s.Pos},
		Body: append(append([]ast.Stmt{}, s.Body...), &ast.AugAssign{
			Target: target,
			Op:     "+",
			Value:  &ast.Constant{Kind: ast.ConstInt, Value: int64(1), Pos: s.Pos},
			Pos:    s.Pos,
		}),
		Pos: s.Pos,
	}
	return c.visitWhile(synthesized)
}

// visitForGenerator inlines a generator-function call at the for-loop
// site using internal/inline's YieldExitRule (spec.md §4.7: "for-loops
// over a generator call are lowered by inlining the generator body in
// place, replacing each yield with the loop body").
func (c *Context) visitForGenerator(s *ast.For, call *ast.Call) error {
	name, ok := call.Func.(*ast.Name)
	if !ok {
		return c.Report(errors.SYN005, s, "generator for-loop callee must be a bare name")
	}
	fn, ok := c.Session.Function(name.Id)
	if !ok {
		return c.Report(errors.NAM002, s, "unresolved generator %q", name.Id)
	}

	argTemps := make([]string, len(call.Args))
	for i, a := range call.Args {
		v, err := c.VisitExpr(a)
		if err != nil {
			return err
		}
		temp := c.FreshTemp("arg")
		if err := c.declareVar(temp, v, false, s); err != nil {
			return err
		}
		argTemps[i] = temp
	}

	if fn.Body == nil {
		return c.Report(errors.NAM002, s, "generator %q has no body registered for inlining", fn.QualifiedName)
	}

	breakFlag := c.FreshTemp("brk")
	rule := inline.NewYieldExitRule(s.Target, s.Body, nil, breakFlag)
	op, err := c.Kernel.CreateOp(fn.ParamNames, argTemps, fn.Body, rule)
	if err != nil {
		return c.Report(errors.SYN005, s, "%s", err)
	}
	spliced, err := c.Kernel.Execute(op)
	if err != nil {
		return c.Report(errors.SYN005, s, "%s", err)
	}

	c.PushScope()
	if err := c.declareVar(breakFlag, &types.ValueRef{Kind: types.KindValue, TypeHint: c.Session.Types.Bool()}, false, s); err != nil {
		c.PopScope()
		return err
	}
	if err := c.VisitBlock(spliced); err != nil {
		c.PopScope()
		return err
	}
	c.PopScope()
	return nil
}

// visitWith lowers `with label("X"): body` and `with effect(...): body`
// — the two compiler-intrinsic with-statement forms spec.md §4.8/§4.9
// define; any other with-context is rejected.
func (c *Context) visitWith(s *ast.With) error {
	call, ok := s.Context.(*ast.Call)
	if !ok {
		return c.Report(errors.SYN001, s, "unsupported with-statement context")
	}
	name, ok := call.Func.(*ast.Name)
	if !ok {
		return c.Report(errors.SYN001, s, "unsupported with-statement context")
	}
	switch name.Id {
	case "label":
		return c.visitWithLabel(s, call)
	case "effect":
		return c.visitWithEffect(s, call)
	default:
		return c.Report(errors.SYN001, s, "unsupported with-statement context %q", name.Id)
	}
}

// visitWithLabel implements `with label("X"): body` (spec.md §4.9): a
// begin block at the with-statement's own scope depth, an end block
// reachable only from inside the body, and the body lowered one scope
// deeper so goto_end can address exactly that nesting.
func (c *Context) visitWithLabel(s *ast.With, call *ast.Call) error {
	if len(call.Args) != 1 {
		return c.Report(errors.SYN001, s, "label(name) takes exactly one string argument")
	}
	lit, ok := call.Args[0].(*ast.Constant)
	if !ok || lit.Kind != ast.ConstString {
		return c.Report(errors.SYN001, s, "label name must be a string literal")
	}

	beginID := c.NewBlock()
	endID := c.NewBlock()
	afterID := c.NewBlock()
	parentDepth := c.ScopeDepth

	c.branchSeq(beginID)
	c.gotoBlock(beginID)

	c.PushScope()
	if _, err := c.Labels.Enter(lit.Value.(string), c.ScopeDepth, parentDepth, beginID, endID, s); err != nil {
		c.PopScope()
		return c.Report(errors.SYN001, s, "%s", err)
	}
	if err := c.VisitBlock(s.Body); err != nil {
		c.Labels.Exit()
		c.PopScope()
		return err
	}
	c.Labels.Exit()
	if !c.blockTerminated(c.CurrentBlock) {
		c.branchSeq(endID)
	}
	c.PopScope()

	c.gotoBlock(endID)
	if !c.blockTerminated(c.CurrentBlock) {
		c.branchSeq(afterID)
	}
	c.gotoBlock(afterID)
	return nil
}

// visitWithEffect implements `with effect(ns1=binding1, ..., suffix="s"):
// body`, pushing a CompileContext override frame for the duration of the
// body (spec.md §4.8 step 1).
func (c *Context) visitWithEffect(s *ast.With, call *ast.Call) error {
	ctx := effects.CompileContext{Overrides: map[string]string{}}
	for k, v := range call.Kwargs {
		if k == "suffix" {
			lit, ok := v.(*ast.Constant)
			if !ok || lit.Kind != ast.ConstString {
				return c.Report(errors.SYN007, s, "effect(suffix=...) must be a string literal")
			}
			ctx.Suffix = lit.Value.(string)
			continue
		}
		name, ok := v.(*ast.Name)
		if !ok {
			return c.Report(errors.SYN001, s, "effect override for %q must be a bare name", k)
		}
		ctx.Overrides[k] = name.Id
	}
	c.Effects.Push(ctx)
	c.PushScope()
	err := c.VisitBlock(s.Body)
	c.PopScope()
	c.Effects.Pop()
	return err
}

// visitMatch lowers a match statement: an exhaustiveness check up front
// (spec.md §4.5), then each arm tested in turn against the subject —
// pattern mismatch falls through to the next arm's test rather than
// entering the arm body — fanning in to one merge block.
func (c *Context) visitMatch(s *ast.Match) error {
	subject, err := c.VisitExpr(s.Subject)
	if err != nil {
		return err
	}
	if subject.TypeHint != nil {
		if err := exhaust.CheckMatch(s, subject.TypeHint); err != nil {
			return err
		}
	}

	mergeID := c.NewBlock()
	for _, arm := range s.Cases {
		armID := c.NewBlock()
		nextID := c.NewBlock()
		if err := c.emitPatternTest(arm.Pattern, subject, armID, nextID, arm); err != nil {
			return err
		}
		c.gotoBlock(armID)

		c.PushScope()
		if err := c.bindPattern(arm.Pattern, subject, arm); err != nil {
			c.PopScope()
			return err
		}
		if arm.Guard != nil {
			guardVal, err := c.VisitExpr(arm.Guard)
			if err != nil {
				c.PopScope()
				return err
			}
			bodyID := c.NewBlock()
			c.branchCond(guardVal, bodyID, nextID)
			c.gotoBlock(bodyID)
		}
		if err := c.VisitBlock(arm.Body); err != nil {
			c.PopScope()
			return err
		}
		if !c.blockTerminated(c.CurrentBlock) {
			c.branchSeq(mergeID)
		}
		c.PopScope()

		c.gotoBlock(nextID)
	}
	if !c.blockTerminated(c.CurrentBlock) {
		c.branchSeq(mergeID)
	}
	c.gotoBlock(mergeID)
	return nil
}

// emitPatternTest emits whatever blocks and branches are needed to
// decide, at runtime, whether subject matches p: trueID is entered when
// it does, falseID (the next arm's test, or the exhaustiveness-guaranteed
// unreachable tail) otherwise. A bare wildcard matches unconditionally;
// an Or-pattern chains its alternatives' tests, short-circuiting into
// trueID on the first match; a constructor pattern compares the
// subject's runtime discriminant (spec.md §4.5's Maranget matrix, now
// actually dispatched on at codegen time rather than assumed to always
// succeed).
func (c *Context) emitPatternTest(p ast.Pattern, subject *types.ValueRef, trueID, falseID cfg.BlockID, node ast.Node) error {
	switch pat := p.(type) {
	case *ast.WildcardPattern:
		c.branchSeq(trueID)
		return nil
	case *ast.OrPattern:
		for i, alt := range pat.Alternatives {
			altFalse := falseID
			last := i == len(pat.Alternatives)-1
			if !last {
				altFalse = c.NewBlock()
			}
			if err := c.emitPatternTest(alt, subject, trueID, altFalse, node); err != nil {
				return err
			}
			if !last {
				c.gotoBlock(altFalse)
			}
		}
		return nil
	case *ast.ConstructorPattern:
		return c.emitConstructorTest(pat, subject, trueID, falseID, node)
	default:
		c.branchSeq(trueID)
		return nil
	}
}

// emitConstructorTest compares subject's runtime discriminant (a bool
// value itself, or an enum's `.tag` field) against the tag the
// normalized pattern expects, branching accordingly. A subject type with
// no discriminant to compare (e.g. a single-constructor struct pattern)
// matches unconditionally, matching exhaust.IsFinite's treatment of such
// types as having exactly one constructor.
func (c *Context) emitConstructorTest(pat *ast.ConstructorPattern, subject *types.ValueRef, trueID, falseID cfg.BlockID, node ast.Node) error {
	norm := exhaust.Normalize(pat, subject.TypeHint)
	tagVal, err := c.loadDiscriminant(subject, node)
	if err != nil {
		return err
	}
	if tagVal == nil {
		c.branchSeq(trueID)
		return nil
	}
	litAddr := c.Builder.Alloca(tagVal.Type(), fmt.Sprintf("tag.%s.%d", norm.ConstructorName, norm.ConstructorTag))
	litVal, err := c.Builder.Load(litAddr, irbuilder.Qualifiers{})
	if err != nil {
		return err
	}
	cond := c.Builder.ICmpEq(tagVal, litVal, "match.test")
	c.branchCond(&types.ValueRef{Kind: types.KindValue, IRValue: cond, TypeHint: c.Session.Types.Bool()}, trueID, falseID)
	return nil
}

// loadDiscriminant returns subject's runtime tag value — the bool value
// itself for a Bool subject, the `.tag` field for an Enum subject — or
// nil when subject's type carries no discriminant to test.
func (c *Context) loadDiscriminant(subject *types.ValueRef, node ast.Node) (irbuilder.IRValue, error) {
	switch types.Unwrap(subject.TypeHint).(type) {
	case *types.BoolType:
		return c.loadValue(subject)
	case *types.EnumType:
		tagRef, err := subject.TypeHint.HandleAttribute(c.Emitter(), subject, "tag", node)
		if err != nil {
			return nil, err
		}
		return c.loadValue(tagRef)
	default:
		return nil, nil
	}
}

// loadValue returns v's runtime value, loading through its address if v
// is an lvalue.
func (c *Context) loadValue(v *types.ValueRef) (irbuilder.IRValue, error) {
	if v.Kind == types.KindAddress {
		return c.Builder.Load(v.Address, qualifiersOf(v.TypeHint))
	}
	return v.IRValue, nil
}

// bindPattern declares every variable a pattern binds, against subject's
// static type (only the wildcard-with-bind-name and constructor
// sub-binding shapes introduce names; literal/wildcard-only patterns bind
// nothing).
func (c *Context) bindPattern(p ast.Pattern, subject *types.ValueRef, node ast.Node) error {
	switch pat := p.(type) {
	case *ast.WildcardPattern:
		if pat.BindName == "" {
			return nil
		}
		return c.declareVar(pat.BindName, subject, false, node)
	case *ast.ConstructorPattern:
		for _, sub := range pat.SubPatterns {
			if err := c.bindPattern(sub, subject, node); err != nil {
				return err
			}
		}
		return nil
	case *ast.OrPattern:
		for _, alt := range pat.Alternatives {
			if err := c.bindPattern(alt, subject, node); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

// visitTry lowers only the protected body; the surface grammar retains
// try/except for parser compatibility, but pythoc has no runtime
// exception mechanism (spec.md §9: exceptions for control flow are
// redesigned away) — any try statement with an except handler is
// rejected with SYN005, whether or not the handler could be reached.
func (c *Context) visitTry(s *ast.Try) error {
	if len(s.Handlers) > 0 {
		return c.Report(errors.SYN005, s, "except handlers are not supported; use assume/refine for recoverable checks")
	}
	return c.VisitBlock(s.Body)
}

func (c *Context) visitReturn(s *ast.Return) error {
	var val *types.ValueRef
	if s.Value != nil {
		v, err := c.VisitExpr(s.Value)
		if err != nil {
			return err
		}
		if err := c.transferLinearFromValue(v, s); err != nil {
			return err
		}
		val = v
	}
	c.EmitDefersFromDepth(0)
	if val != nil {
		_ = val // IR emission of the return value is the concrete backend's responsibility
	}
	c.CFG.ReturnBlocks[c.CurrentBlock] = true
	c.Terminate()
	return nil
}

func (c *Context) visitBreak(s *ast.Break) error {
	if len(c.LoopStack) == 0 {
		return c.Report(errors.SYN003, s, "break outside of a loop")
	}
	frame := c.LoopStack[len(c.LoopStack)-1]
	c.EmitDefersFromDepth(frame.ScopeDepth)
	frame.HasBreak = true
	c.branchSeq(frame.ExitBlock)
	return nil
}

func (c *Context) visitContinue(s *ast.Continue) error {
	if len(c.LoopStack) == 0 {
		return c.Report(errors.SYN003, s, "continue outside of a loop")
	}
	frame := c.LoopStack[len(c.LoopStack)-1]
	c.EmitDefersFromDepth(frame.ScopeDepth)
	c.Builder.Branch(c.irBlockFor(frame.HeaderBlock))
	c.CFG.AddEdge(c.CurrentBlock, frame.HeaderBlock, cfg.LoopBack, nil)
	c.Terminate()
	return nil
}
