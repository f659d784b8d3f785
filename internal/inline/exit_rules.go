// Package inline implements the universal inline kernel spec.md §4.7
// describes: a single body-transformation engine parameterized by an
// ExitRule, so @inline functions, closures, and yield-based generators
// all share one substitution pass instead of three bespoke ones. It is a
// direct port of original_source/pythoc/inline/exit_rules.py's
// ExitPointRule hierarchy (ReturnExitRule/YieldExitRule/MacroExitRule,
// the variable renamer, and the break/continue-to-flag mini-loop
// transform for yield bodies that contain their own break/continue).
//
// original_source/pythoc/inline/ only ships exit_rules.py and
// yield_adapter.py — the kernel.py/scope_analyzer.py/transformers.py
// files yield_adapter.py imports from are not present in the retrieved
// pack. Kernel (in kernel.go) is therefore a reconstruction of the
// minimal create_inline_op/execute_inline behavior yield_adapter.py's
// call sites imply — rename the callee body against the call-site
// arguments, then substitute each exit point via the active ExitRule —
// not a port of an unseen file.
package inline

import (
	"github.com/pythoc-lang/pythoc/internal/ast"
)

// Context carries the rename map an ExitRule consults while rewriting
// an exit node, mirroring exit_rules.py's InlineContext.rename_map.
type Context struct {
	RenameMap map[string]string
}

// Rename returns a deep copy of e with every Name node substituted
// through ctx.RenameMap (original unchanged if not present), mirroring
// ExitPointRule._rename's VariableRenamer pass.
func (ctx *Context) Rename(e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	if ctx == nil || ctx.RenameMap == nil {
		return renameExpr(e, nil)
	}
	return renameExpr(e, ctx.RenameMap)
}

func renameExpr(e ast.Expr, m map[string]string) ast.Expr {
	switch n := e.(type) {
	case *ast.Name:
		if to, ok := m[n.Id]; ok {
			return &ast.Name{Id: to, Pos: n.Pos}
		}
		return &ast.Name{Id: n.Id, Pos: n.Pos}
	case *ast.Constant:
		cp := *n
		return &cp
	case *ast.BinOp:
		return &ast.BinOp{Left: renameExpr(n.Left, m), Op: n.Op, Right: renameExpr(n.Right, m), Pos: n.Pos}
	case *ast.UnaryOp:
		return &ast.UnaryOp{Op: n.Op, Operand: renameExpr(n.Operand, m), Pos: n.Pos}
	case *ast.BoolOp:
		vals := make([]ast.Expr, len(n.Values))
		for i, v := range n.Values {
			vals[i] = renameExpr(v, m)
		}
		return &ast.BoolOp{Op: n.Op, Values: vals, Pos: n.Pos}
	case *ast.Compare:
		comps := make([]ast.Expr, len(n.Comparators))
		for i, c := range n.Comparators {
			comps[i] = renameExpr(c, m)
		}
		return &ast.Compare{Left: renameExpr(n.Left, m), Ops: append([]string{}, n.Ops...), Comparators: comps, Pos: n.Pos}
	case *ast.Call:
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = renameExpr(a, m)
		}
		var kwargs map[string]ast.Expr
		if n.Kwargs != nil {
			kwargs = make(map[string]ast.Expr, len(n.Kwargs))
			for k, v := range n.Kwargs {
				kwargs[k] = renameExpr(v, m)
			}
		}
		return &ast.Call{Func: renameExpr(n.Func, m), Args: args, Kwargs: kwargs, Pos: n.Pos}
	case *ast.Subscript:
		idx := make([]ast.Expr, len(n.Index))
		for i, x := range n.Index {
			idx[i] = renameExpr(x, m)
		}
		return &ast.Subscript{Base: renameExpr(n.Base, m), Index: idx, Pos: n.Pos}
	case *ast.Attribute:
		return &ast.Attribute{Base: renameExpr(n.Base, m), Name: n.Name, Pos: n.Pos}
	case *ast.Tuple:
		elts := make([]ast.Expr, len(n.Elts))
		for i, x := range n.Elts {
			elts[i] = renameExpr(x, m)
		}
		return &ast.Tuple{Elts: elts, Pos: n.Pos}
	case *ast.List:
		elts := make([]ast.Expr, len(n.Elts))
		for i, x := range n.Elts {
			elts[i] = renameExpr(x, m)
		}
		return &ast.List{Elts: elts, Pos: n.Pos}
	case *ast.Yield:
		return &ast.Yield{Value: renameExpr(n.Value, m), Pos: n.Pos}
	case *ast.IfExp:
		return &ast.IfExp{Test: renameExpr(n.Test, m), Body: renameExpr(n.Body, m), Orelse: renameExpr(n.Orelse, m), Pos: n.Pos}
	default:
		return e
	}
}

// ExitRule transforms one exit-point statement (Return/Yield) into the
// statements that replace it once the callee is inlined, per
// exit_rules.py's ExitPointRule.
type ExitRule interface {
	// Matches reports whether stmt is an exit point this rule handles.
	Matches(stmt ast.Stmt) bool
	// TransformExit rewrites stmt into the statements that take its
	// place in the inlined body.
	TransformExit(stmt ast.Stmt, ctx *Context) ([]ast.Stmt, error)
}

// ReturnExitRule implements @inline/closure inlining: each `return expr`
// becomes `result = move(expr); flag = True; break`, so callers wrap the
// whole inlined body in `while True: ...; if flag: break` to fan in every
// return to one join point (exit_rules.py's ReturnExitRule).
type ReturnExitRule struct {
	ResultVar string // "" discards the return value
	FlagVar   string // "" omits the flag assignment (single-return callee)
}

func (r *ReturnExitRule) Matches(stmt ast.Stmt) bool {
	_, ok := stmt.(*ast.Return)
	return ok
}

func (r *ReturnExitRule) TransformExit(stmt ast.Stmt, ctx *Context) ([]ast.Stmt, error) {
	ret, ok := stmt.(*ast.Return)
	if !ok {
		return []ast.Stmt{stmt}, nil
	}
	var stmts []ast.Stmt
	if ret.Value != nil && r.ResultVar != "" {
		renamed := ctx.Rename(ret.Value)
		moved := moveCall(renamed, ret.Pos)
		stmts = append(stmts, &ast.Assign{
			Targets: []ast.Expr{&ast.Name{Id: r.ResultVar, Pos: ret.Pos}},
			Value:   moved,
			Pos:     ret.Pos,
		})
	}
	if r.FlagVar != "" {
		stmts = append(stmts, &ast.Assign{
			Targets: []ast.Expr{&ast.Name{Id: r.FlagVar, Pos: ret.Pos}},
			Value:   &ast.Constant{Kind: ast.ConstBool, Value: true, Pos: ret.Pos},
			Pos:     ret.Pos,
		})
	}
	stmts = append(stmts, &ast.Break{Pos: ret.Pos})
	return stmts, nil
}

func moveCall(arg ast.Expr, pos ast.Pos) *ast.Call {
	return &ast.Call{Func: &ast.Name{Id: "move", Pos: pos}, Args: []ast.Expr{arg}, Pos: pos}
}

// MacroExitRule implements compile-time macro expansion: `return expr`
// becomes `expr` as a bare expression statement — direct AST
// substitution with no flag/loop machinery (exit_rules.py's
// MacroExitRule).
type MacroExitRule struct{}

func (MacroExitRule) Matches(stmt ast.Stmt) bool {
	_, ok := stmt.(*ast.Return)
	return ok
}

func (MacroExitRule) TransformExit(stmt ast.Stmt, ctx *Context) ([]ast.Stmt, error) {
	ret, ok := stmt.(*ast.Return)
	if !ok || ret.Value == nil {
		return nil, nil
	}
	return []ast.Stmt{&ast.ExprStmt{Value: ctx.Rename(ret.Value), Pos: ret.Pos}}, nil
}

// YieldExitRule implements generator inlining: `yield expr` becomes
// `loop_var = move(expr); <loop body>`, with the loop body's own
// break/continue transformed into a one-shot mini-loop when present
// (exit_rules.py's YieldExitRule).
type YieldExitRule struct {
	LoopVar              ast.Expr // *ast.Name or *ast.Tuple
	LoopBody             []ast.Stmt
	ReturnTypeAnnotation ast.TypeExpr
	BreakFlagVar         string

	bodyHasBreakOrContinue bool
}

// NewYieldExitRule mirrors YieldExitRule.__init__, precomputing whether
// loopBody needs the mini-loop wrapper.
func NewYieldExitRule(loopVar ast.Expr, loopBody []ast.Stmt, retType ast.TypeExpr, breakFlagVar string) *YieldExitRule {
	return &YieldExitRule{
		LoopVar:                loopVar,
		LoopBody:               loopBody,
		ReturnTypeAnnotation:   retType,
		BreakFlagVar:           breakFlagVar,
		bodyHasBreakOrContinue: hasBreakOrContinue(loopBody),
	}
}

func (y *YieldExitRule) Matches(stmt ast.Stmt) bool {
	es, ok := stmt.(*ast.ExprStmt)
	if !ok {
		return false
	}
	_, ok = es.Value.(*ast.Yield)
	return ok
}

func (y *YieldExitRule) TransformExit(stmt ast.Stmt, ctx *Context) ([]ast.Stmt, error) {
	es, ok := stmt.(*ast.ExprStmt)
	if !ok {
		return []ast.Stmt{stmt}, nil
	}
	yld, ok := es.Value.(*ast.Yield)
	if !ok {
		return []ast.Stmt{stmt}, nil
	}

	var body []ast.Stmt
	if yld.Value != nil {
		renamed := ctx.Rename(yld.Value)
		moved := moveCall(renamed, es.Pos)

		if tup, ok := y.LoopVar.(*ast.Tuple); ok {
			body = append(body, &ast.Assign{Targets: []ast.Expr{cloneExpr(tup)}, Value: moved, Pos: es.Pos})
		} else if name, ok := y.LoopVar.(*ast.Name); ok {
			body = append(body, &ast.Assign{Targets: []ast.Expr{&ast.Name{Id: name.Id, Pos: es.Pos}}, Value: moved, Pos: es.Pos})
		}
	}

	if y.bodyHasBreakOrContinue && y.BreakFlagVar != "" {
		for _, s := range y.LoopBody {
			body = append(body, transformBreakContinue(s, y.BreakFlagVar, 0))
		}
		body = append(body, &ast.Break{Pos: es.Pos})
		return []ast.Stmt{&ast.While{
			Test: &ast.UnaryOp{Op: "not", Operand: &ast.Name{Id: y.BreakFlagVar, Pos: es.Pos}, Pos: es.Pos},
			Body: body,
			Pos:  es.Pos,
		}}, nil
	}

	body = append(body, y.LoopBody...)
	return body, nil
}

func cloneExpr(e ast.Expr) ast.Expr { return renameExpr(e, nil) }

// hasBreakOrContinue mirrors _has_break_or_continue: it only looks at
// the current loop level, never descending into a nested For/While
// (their break/continue targets that inner loop, not this one).
func hasBreakOrContinue(body []ast.Stmt) bool {
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ast.Break, *ast.Continue:
			return true
		case *ast.If:
			if hasBreakOrContinue(s.Body) || hasBreakOrContinue(s.Orelse) {
				return true
			}
		case *ast.With:
			if hasBreakOrContinue(s.Body) {
				return true
			}
		case *ast.Try:
			if hasBreakOrContinue(s.Body) {
				return true
			}
			for _, h := range s.Handlers {
				if hasBreakOrContinue(h.Body) {
					return true
				}
			}
		case *ast.Match:
			for _, c := range s.Cases {
				if hasBreakOrContinue(c.Body) {
					return true
				}
			}
		}
	}
	return false
}

// transformBreakContinue mirrors _BreakContinueTransformer: break
// becomes `flag = True; break` (modeled as an always-true If wrapping
// both, since Go's ast.Stmt has no "inline statement list" node),
// continue becomes a bare break (exit the mini-loop, move to the next
// yield). Nested For/While bodies are left untouched — loopDepth tracks
// that nesting so their own break/continue keep their original meaning.
func transformBreakContinue(stmt ast.Stmt, flagVar string, loopDepth int) ast.Stmt {
	switch s := stmt.(type) {
	case *ast.For:
		body := make([]ast.Stmt, len(s.Body))
		for i, b := range s.Body {
			body[i] = transformBreakContinue(b, flagVar, loopDepth+1)
		}
		return &ast.For{Target: s.Target, Iter: s.Iter, Body: body, Pos: s.Pos}
	case *ast.While:
		body := make([]ast.Stmt, len(s.Body))
		for i, b := range s.Body {
			body[i] = transformBreakContinue(b, flagVar, loopDepth+1)
		}
		return &ast.While{Test: s.Test, Body: body, Pos: s.Pos}
	case *ast.Break:
		if loopDepth > 0 {
			return s
		}
		return &ast.If{
			Test: &ast.Constant{Kind: ast.ConstBool, Value: true, Pos: s.Pos},
			Body: []ast.Stmt{
				&ast.Assign{Targets: []ast.Expr{&ast.Name{Id: flagVar, Pos: s.Pos}}, Value: &ast.Constant{Kind: ast.ConstBool, Value: true, Pos: s.Pos}, Pos: s.Pos},
				&ast.Break{Pos: s.Pos},
			},
			Pos: s.Pos,
		}
	case *ast.Continue:
		if loopDepth > 0 {
			return s
		}
		return &ast.Break{Pos: s.Pos}
	case *ast.If:
		body := make([]ast.Stmt, len(s.Body))
		for i, b := range s.Body {
			body[i] = transformBreakContinue(b, flagVar, loopDepth)
		}
		orelse := make([]ast.Stmt, len(s.Orelse))
		for i, b := range s.Orelse {
			orelse[i] = transformBreakContinue(b, flagVar, loopDepth)
		}
		return &ast.If{Test: s.Test, Body: body, Orelse: orelse, Pos: s.Pos}
	case *ast.With:
		body := make([]ast.Stmt, len(s.Body))
		for i, b := range s.Body {
			body[i] = transformBreakContinue(b, flagVar, loopDepth)
		}
		return &ast.With{Context: s.Context, Body: body, Pos: s.Pos}
	default:
		return stmt
	}
}
