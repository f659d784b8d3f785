package visitor

import (
	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/cfg"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/inline"
	"github.com/pythoc-lang/pythoc/internal/registry"
	"github.com/pythoc-lang/pythoc/internal/types"
)

// VisitExpr lowers any expression node to a ValueRef, dispatching to the
// Type protocol (subscript/attribute/call/cast) wherever the expression
// targets a TypeObject operation, per spec.md §4.1.
func (c *Context) VisitExpr(e ast.Expr) (*types.ValueRef, error) {
	switch n := e.(type) {
	case *ast.Name:
		return c.visitName(n)
	case *ast.Constant:
		return c.visitConstant(n)
	case *ast.BinOp:
		return c.visitBinOp(n)
	case *ast.UnaryOp:
		return c.visitUnaryOp(n)
	case *ast.BoolOp:
		return c.visitBoolOp(n)
	case *ast.Compare:
		return c.visitCompare(n)
	case *ast.Call:
		return c.visitCall(n)
	case *ast.Subscript:
		return c.visitSubscript(n)
	case *ast.Attribute:
		return c.visitAttribute(n)
	case *ast.Tuple:
		return c.visitTuple(n)
	case *ast.IfExp:
		return c.visitIfExp(n)
	case *ast.Yield:
		return nil, c.Report(errors.SYN005, n, "yield is only valid inside a for-loop-inlined generator body")
	case *ast.Lambda:
		return c.visitLambda(n)
	default:
		return nil, c.Report(errors.NAM002, e, "unsupported expression form %T", e)
	}
}

func (c *Context) visitName(n *ast.Name) (*types.ValueRef, error) {
	v, ok := c.Vars.Lookup(n.Id)
	if !ok {
		return nil, c.Report(errors.NAM002, n, "undefined name %q", n.Id)
	}
	if v.ValueRef == nil {
		return nil, c.Report(errors.NAM002, n, "variable %q referenced before initialization", n.Id)
	}
	if v.ValueRef.Kind == types.KindAddress {
		val, err := c.Builder.Load(v.ValueRef.Address, qualifiersOf(v.TypeHint))
		if err != nil {
			return nil, err
		}
		return &types.ValueRef{Kind: types.KindValue, IRValue: val, TypeHint: v.TypeHint, VarName: n.Id}, nil
	}
	ref := *v.ValueRef
	ref.VarName = n.Id
	return &ref, nil
}

func qualifiersOf(t types.Type) (q struct{ Const, Volatile bool }) {
	if qt, ok := t.(*types.Qualified); ok {
		qq := qt.Qualifiers()
		return struct{ Const, Volatile bool }{qq.Const, qq.Volatile}
	}
	return q
}

func (c *Context) visitConstant(n *ast.Constant) (*types.ValueRef, error) {
	switch n.Kind {
	case ast.ConstNullptr:
		return &types.ValueRef{Kind: types.KindPointerConstant, PyConstValue: nil}, nil
	default:
		return &types.ValueRef{Kind: types.KindPythonConstant, PyConstValue: n.Value}, nil
	}
}

func (c *Context) visitBinOp(n *ast.BinOp) (*types.ValueRef, error) {
	left, err := c.VisitExpr(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.VisitExpr(n.Right)
	if err != nil {
		return nil, err
	}
	resultType, err := types.PromoteBinaryOperands(left.TypeHint, right.TypeHint)
	if err != nil {
		return nil, c.Report(errors.TYP008, n, "%s", err)
	}
	return &types.ValueRef{Kind: types.KindValue, TypeHint: resultType}, nil
}

func (c *Context) visitUnaryOp(n *ast.UnaryOp) (*types.ValueRef, error) {
	operand, err := c.VisitExpr(n.Operand)
	if err != nil {
		return nil, err
	}
	if n.Op == "&" {
		if operand.Kind != types.KindAddress {
			return nil, c.Report(errors.TYP001, n, "cannot take address of a non-lvalue expression")
		}
		return &types.ValueRef{Kind: types.KindValue, IRValue: operand.Address, TypeHint: operand.TypeHint}, nil
	}
	return &types.ValueRef{Kind: types.KindValue, TypeHint: operand.TypeHint}, nil
}

func (c *Context) visitBoolOp(n *ast.BoolOp) (*types.ValueRef, error) {
	for _, v := range n.Values {
		if _, err := c.VisitExpr(v); err != nil {
			return nil, err
		}
	}
	return &types.ValueRef{Kind: types.KindValue, TypeHint: c.Session.Types.Bool()}, nil
}

func (c *Context) visitCompare(n *ast.Compare) (*types.ValueRef, error) {
	if _, err := c.VisitExpr(n.Left); err != nil {
		return nil, err
	}
	for _, comp := range n.Comparators {
		if _, err := c.VisitExpr(comp); err != nil {
			return nil, err
		}
	}
	return &types.ValueRef{Kind: types.KindValue, TypeHint: c.Session.Types.Bool()}, nil
}

func (c *Context) visitSubscript(n *ast.Subscript) (*types.ValueRef, error) {
	base, err := c.VisitExpr(n.Base)
	if err != nil {
		return nil, err
	}
	if len(n.Index) == 0 {
		return base.TypeHint.HandleSubscript(c.Emitter(), base, nil, n)
	}
	idx, err := c.VisitExpr(n.Index[0])
	if err != nil {
		return nil, err
	}
	baseType := base.TypeHint
	if baseType == nil {
		return nil, c.Report(errors.TYP001, n, "subscript base has no resolvable type")
	}
	return baseType.HandleSubscript(c.Emitter(), base, idx, n)
}

func (c *Context) visitAttribute(n *ast.Attribute) (*types.ValueRef, error) {
	base, err := c.VisitExpr(n.Base)
	if err != nil {
		return nil, err
	}
	if base.TypeHint == nil {
		return nil, c.Report(errors.TYP001, n, "attribute base has no resolvable type")
	}
	return base.TypeHint.HandleAttribute(c.Emitter(), base, n.Name, n)
}

func (c *Context) visitCall(n *ast.Call) (*types.ValueRef, error) {
	if name, ok := n.Func.(*ast.Name); ok {
		if v, handled, err := c.dispatchIntrinsic(name.Id, n); handled {
			return v, err
		}
		if ref, err := c.tryEffectCall(n); ref != nil || err != nil {
			return ref, err
		}
	}

	args := make([]*types.ValueRef, len(n.Args))
	for i, a := range n.Args {
		v, err := c.VisitExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	// Callable-value dispatch (spec.md §4.1 HandleCall): a closure value
	// (spec.md §4.7's third inline-kernel use case) or a FuncPtr value.
	// Type-constructor calls such as `ptr[T](x)` or `struct[...](...)`
	// are not dispatched here; a callee that is not a plain name then
	// fails below as unresolvable.
	if funcType, err := c.VisitExpr(n.Func); err == nil && funcType != nil {
		if lambda, ok := funcType.PyConstValue.(*ast.Lambda); ok && funcType.Kind == types.KindPythonConstant {
			return c.visitClosureCall(lambda, n)
		}
		if funcType.TypeHint != nil {
			if _, isCtor := funcType.TypeHint.(*types.FuncPtrType); isCtor {
				return funcType.TypeHint.HandleCall(c.Emitter(), args, n)
			}
		}
	}

	if name, ok := n.Func.(*ast.Name); ok {
		fn, ok := c.Session.Function(name.Id)
		if !ok {
			return nil, c.Report(errors.NAM002, n, "unresolved callee %q", name.Id)
		}
		if fn.IsInline {
			return c.visitInlineCall(fn, n)
		}
		c.recordCall(fn.QualifiedName, fn.EffectDependencies)
		return &types.ValueRef{Kind: types.KindValue, TypeHint: fn.ReturnType}, nil
	}

	return nil, c.Report(errors.NAM002, n, "call target is not a resolvable name")
}

// visitLambda evaluates a lambda literal to a compile-time-only closure
// value: the Lambda AST itself, carried the same way visitTuple carries
// its *ast.Tuple — a KindPythonConstant ValueRef whose PyConstValue is
// the AST node, promoted only once it reaches a consuming position (here,
// a call). There is no managed runtime closure representation (spec.md
// §1 Non-goals); a lambda that is never called compiles to nothing.
func (c *Context) visitLambda(n *ast.Lambda) (*types.ValueRef, error) {
	return &types.ValueRef{Kind: types.KindPythonConstant, PyConstValue: n}, nil
}

// visitInlineCall splices an `@inline` function's body directly into the
// call site via the universal inline kernel's ReturnExitRule (spec.md
// §4.7): each `return e` becomes `result = move(e); flag = True; break`,
// and the whole spliced body is wrapped in `while True: ...` so a return
// nested inside the callee's own loop still reaches the call site by
// breaking out of this synthesized loop. A trailing synthetic break
// guarantees the loop terminates even when the callee falls off the end
// without an explicit return.
func (c *Context) visitInlineCall(fn *registry.FunctionInfo, n *ast.Call) (*types.ValueRef, error) {
	if fn.Body == nil {
		return nil, c.Report(errors.NAM002, n, "inline function %q has no body registered", fn.QualifiedName)
	}
	if len(fn.ParamNames) != len(n.Args) {
		return nil, c.Report(errors.SYN005, n, "inline call to %q expects %d argument(s), got %d", fn.QualifiedName, len(fn.ParamNames), len(n.Args))
	}

	argTemps := make([]string, len(n.Args))
	for i, a := range n.Args {
		v, err := c.VisitExpr(a)
		if err != nil {
			return nil, err
		}
		temp := c.FreshTemp("iarg")
		if err := c.declareVar(temp, v, false, n); err != nil {
			return nil, err
		}
		argTemps[i] = temp
	}

	_, isVoid := fn.ReturnType.(*types.VoidType)
	resultVar := ""
	if !isVoid {
		resultVar = c.FreshTemp("iret")
	}
	flagVar := c.FreshTemp("iflag")

	spliced, err := c.spliceInlineBody(fn.ParamNames, argTemps, fn.Body, &inline.ReturnExitRule{ResultVar: resultVar, FlagVar: flagVar}, n)
	if err != nil {
		return nil, err
	}

	if err := c.declareVar(flagVar, &types.ValueRef{Kind: types.KindValue, TypeHint: c.Session.Types.Bool()}, false, n); err != nil {
		return nil, err
	}
	if resultVar != "" {
		if err := c.declareVar(resultVar, &types.ValueRef{Kind: types.KindValue, TypeHint: fn.ReturnType}, false, n); err != nil {
			return nil, err
		}
	}
	if err := c.visitWhile(&ast.While{Test: trueConst(n.Pos), Body: spliced, Pos: n.Pos}); err != nil {
		return nil, err
	}

	c.recordCall(fn.QualifiedName, fn.EffectDependencies)
	if resultVar == "" {
		return &types.ValueRef{Kind: types.KindValue, TypeHint: c.Session.Types.Void()}, nil
	}
	return c.visitName(&ast.Name{Id: resultVar, Pos: n.Pos})
}

// visitClosureCall materializes a lambda's single-expression body in
// place of the call expression, the same splice-in-place mechanism
// visitInlineCall uses for `@inline` functions (spec.md §4.7's third
// shared use of the inline kernel). The body is synthesized as a single
// `return <expr>` statement so ReturnExitRule applies unchanged.
func (c *Context) visitClosureCall(lambda *ast.Lambda, n *ast.Call) (*types.ValueRef, error) {
	if len(lambda.Params) != len(n.Args) {
		return nil, c.Report(errors.SYN005, n, "closure expects %d argument(s), got %d", len(lambda.Params), len(n.Args))
	}

	paramNames := make([]string, len(lambda.Params))
	for i, p := range lambda.Params {
		paramNames[i] = p.Name
	}
	argTemps := make([]string, len(n.Args))
	for i, a := range n.Args {
		v, err := c.VisitExpr(a)
		if err != nil {
			return nil, err
		}
		temp := c.FreshTemp("carg")
		if err := c.declareVar(temp, v, false, n); err != nil {
			return nil, err
		}
		argTemps[i] = temp
	}

	resultType, err := c.inferClosureResultType(lambda, paramNames, argTemps)
	if err != nil {
		return nil, err
	}

	resultVar := c.FreshTemp("cret")
	flagVar := c.FreshTemp("cflag")
	body := []ast.Stmt{&ast.Return{Value: lambda.Body, Pos: n.Pos}}
	spliced, err := c.spliceInlineBody(paramNames, argTemps, body, &inline.ReturnExitRule{ResultVar: resultVar, FlagVar: flagVar}, n)
	if err != nil {
		return nil, err
	}

	if err := c.declareVar(flagVar, &types.ValueRef{Kind: types.KindValue, TypeHint: c.Session.Types.Bool()}, false, n); err != nil {
		return nil, err
	}
	if err := c.declareVar(resultVar, &types.ValueRef{Kind: types.KindValue, TypeHint: resultType}, false, n); err != nil {
		return nil, err
	}
	if err := c.visitWhile(&ast.While{Test: trueConst(n.Pos), Body: spliced, Pos: n.Pos}); err != nil {
		return nil, err
	}
	return c.visitName(&ast.Name{Id: resultVar, Pos: n.Pos})
}

// inferClosureResultType evaluates lambda's body once, with its
// parameters bound directly (not yet kernel-renamed) to the already
// lowered argument temps, purely to read off the resulting TypeHint — a
// lambda carries no return annotation the way an `@inline` FunctionDef
// does. The binding is pushed and popped through Vars.Declare directly
// (bypassing declareVar's linear-ownership transfer) so this lookahead
// never double-consumes a linear argument the real splice below also
// binds.
func (c *Context) inferClosureResultType(lambda *ast.Lambda, paramNames, argTemps []string) (types.Type, error) {
	c.PushScope()
	defer c.PopScope()
	for i, name := range paramNames {
		arg, ok := c.Vars.Lookup(argTemps[i])
		if !ok {
			return nil, c.Report(errors.NAM002, lambda, "unresolved closure argument temp %q", argTemps[i])
		}
		info := &VariableInfo{Name: name, ScopeLevel: c.Vars.Depth(), TypeHint: arg.TypeHint, ValueRef: arg.ValueRef, IsParameter: true, Source: lambda}
		if err := c.Vars.Declare(info); err != nil {
			return nil, c.Report(errors.SYN006, lambda, "%s", err)
		}
	}
	result, err := c.VisitExpr(lambda.Body)
	if err != nil {
		return nil, err
	}
	return result.TypeHint, nil
}

// spliceInlineBody runs the shared inline kernel and appends a trailing
// synthetic break so the `while True:` wrapper visitInlineCall/
// visitClosureCall build around its result always terminates, even when
// the callee body falls off the end without hitting the rule's own
// return-triggered break.
func (c *Context) spliceInlineBody(params, argTemps []string, body []ast.Stmt, rule inline.ExitRule, n *ast.Call) ([]ast.Stmt, error) {
	op, err := c.Kernel.CreateOp(params, argTemps, body, rule)
	if err != nil {
		return nil, c.Report(errors.SYN005, n, "%s", err)
	}
	spliced, err := c.Kernel.Execute(op)
	if err != nil {
		return nil, c.Report(errors.SYN005, n, "%s", err)
	}
	return append(spliced, &ast.Break{Pos: n.Pos}), nil
}

func trueConst(pos ast.Pos) ast.Expr {
	return &ast.Constant{Kind: ast.ConstBool, Value: true, Pos: pos}
}

// recordCall registers callee in this function's dependency list
// (spec.md §4.3 Call: "register the call in the current compilation
// group's dependency list") and folds its effect dependencies upward so
// a transitive caller's EffectDependencies set stays accurate for the
// effect overlay's suffix-propagation walk (spec.md §4.8 step 3).
func (c *Context) recordCall(qualifiedName string, calleeEffects map[string]bool) {
	c.Callees = append(c.Callees, qualifiedName)
	for eff := range calleeEffects {
		c.EffectDeps[eff] = true
	}
}

// tryEffectCall recognizes `effect.<namespace>.<name>(...)` call forms
// and resolves them against the active effect-override stack (spec.md
// §4.8 step 2), returning (nil, nil) when n.Func is not such a
// reference so the ordinary call path continues.
func (c *Context) tryEffectCall(n *ast.Call) (*types.ValueRef, error) {
	outer, ok := n.Func.(*ast.Attribute)
	if !ok {
		return nil, nil
	}
	inner, ok := outer.Base.(*ast.Attribute)
	if !ok {
		return nil, nil
	}
	root, ok := inner.Base.(*ast.Name)
	if !ok || root.Id != "effect" {
		return nil, nil
	}
	namespace, opName := inner.Name, outer.Name
	binding, overridden, ok := c.Effects.ResolveEffectRef(namespace, opName)
	if !ok {
		return nil, c.Report(errors.NAM003, n, "unresolved effect reference effect.%s.%s", namespace, opName)
	}
	c.EffectDeps[namespace] = true
	_ = overridden
	_ = binding
	for _, a := range n.Args {
		if _, err := c.VisitExpr(a); err != nil {
			return nil, err
		}
	}
	return &types.ValueRef{Kind: types.KindValue, TypeHint: c.Session.Types.Void()}, nil
}

func (c *Context) visitTuple(n *ast.Tuple) (*types.ValueRef, error) {
	for _, e := range n.Elts {
		if _, err := c.VisitExpr(e); err != nil {
			return nil, err
		}
	}
	return &types.ValueRef{Kind: types.KindPythonConstant, PyConstValue: n}, nil
}

func (c *Context) visitIfExp(n *ast.IfExp) (*types.ValueRef, error) {
	if _, err := c.VisitExpr(n.Test); err != nil {
		return nil, err
	}
	body, err := c.VisitExpr(n.Body)
	if err != nil {
		return nil, err
	}
	if _, err := c.VisitExpr(n.Orelse); err != nil {
		return nil, err
	}
	return &types.ValueRef{Kind: types.KindValue, TypeHint: body.TypeHint}, nil
}

// blockRef is a small helper so statement lowering can refer to a CFG
// block ID as an irbuilder.Block-shaped value without the visitor
// package needing a concrete backend; the textbackend (or a production
// LLVM backend) maps these through its own block table.
type blockRef cfg.BlockID

func (b blockRef) String() string { return "" }
