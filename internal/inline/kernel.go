package inline

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/ast"
)

// Kernel is the single body-transformation engine every inlining
// scenario (@inline call, closure invocation, yield-based for-loop)
// shares, parameterized by the ExitRule that knows how to translate
// that scenario's exit points. original_source's inline/ package split
// this into InlineKernel + per-scenario adapters across files this pack
// doesn't retain (see the package doc); Kernel reconstructs only the
// operation its one surviving caller, YieldInlineAdapter.try_inline_for_loop,
// exercises: rename the callee body against the call site, then replace
// every exit point via the supplied rule.
//
// Execute also renames every callee local (spec.md §4.7 step 2) to a
// fresh name_inline_<counter> identifier, so a local the callee happens
// to share with the caller's scope can never alias it — localCounter is
// the only state Kernel carries, one per Context since a Context's
// variable scope is single-threaded.
type Kernel struct {
	localCounter int
}

// NewKernel constructs a Kernel.
func NewKernel() *Kernel { return &Kernel{} }

// Op is one inlining operation: a callee body plus the rename map and
// exit rule needed to specialize it for one call site.
type Op struct {
	Params   []string // callee parameter names, in declaration order
	Args     []string // caller-scope variable/temp names bound to each param
	Body     []ast.Stmt
	ExitRule ExitRule
}

// CreateOp builds an Op from a callee's parameter list, the temp
// variable names the caller has already bound each argument to, and the
// callee body, mirroring InlineKernel.create_inline_op's validation:
// arity must match before any substitution happens.
func (k *Kernel) CreateOp(params []string, argTemps []string, body []ast.Stmt, rule ExitRule) (*Op, error) {
	if len(params) != len(argTemps) {
		return nil, fmt.Errorf("inline: callee expects %d argument(s), got %d", len(params), len(argTemps))
	}
	return &Op{Params: params, Args: argTemps, Body: body, ExitRule: rule}, nil
}

// Execute runs the substitution pass, mirroring InlineKernel.execute_inline:
// build the param->arg rename map, then rewrite the body statement by
// statement, substituting every exit point the Op's ExitRule recognizes.
func (k *Kernel) Execute(op *Op) ([]ast.Stmt, error) {
	renameMap := make(map[string]string, len(op.Params))
	isParam := make(map[string]bool, len(op.Params))
	for i, p := range op.Params {
		renameMap[p] = op.Args[i]
		isParam[p] = true
	}

	var locals []string
	collectLocals(op.Body, isParam, map[string]bool{}, &locals)
	for _, name := range locals {
		k.localCounter++
		renameMap[name] = fmt.Sprintf("%s_inline_%d", name, k.localCounter)
	}

	ctx := &Context{RenameMap: renameMap}

	var out []ast.Stmt
	for _, stmt := range op.Body {
		transformed, err := k.transformStmt(stmt, op.ExitRule, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, transformed...)
	}
	return out, nil
}

func (k *Kernel) transformStmt(stmt ast.Stmt, rule ExitRule, ctx *Context) ([]ast.Stmt, error) {
	if rule.Matches(stmt) {
		return rule.TransformExit(stmt, ctx)
	}

	switch s := stmt.(type) {
	case *ast.Assign:
		targets := make([]ast.Expr, len(s.Targets))
		for i, t := range s.Targets {
			targets[i] = ctx.Rename(t)
		}
		return []ast.Stmt{&ast.Assign{Targets: targets, Value: ctx.Rename(s.Value), Pos: s.Pos}}, nil
	case *ast.AnnAssign:
		var val ast.Expr
		if s.Value != nil {
			val = ctx.Rename(s.Value)
		}
		return []ast.Stmt{&ast.AnnAssign{Target: ctx.Rename(s.Target), Type: s.Type, Value: val, Pos: s.Pos}}, nil
	case *ast.AugAssign:
		return []ast.Stmt{&ast.AugAssign{Target: ctx.Rename(s.Target), Op: s.Op, Value: ctx.Rename(s.Value), Pos: s.Pos}}, nil
	case *ast.ExprStmt:
		return []ast.Stmt{&ast.ExprStmt{Value: ctx.Rename(s.Value), Pos: s.Pos}}, nil
	case *ast.Return:
		var val ast.Expr
		if s.Value != nil {
			val = ctx.Rename(s.Value)
		}
		return []ast.Stmt{&ast.Return{Value: val, Pos: s.Pos}}, nil
	case *ast.If:
		body, err := k.transformBlock(s.Body, rule, ctx)
		if err != nil {
			return nil, err
		}
		orelse, err := k.transformBlock(s.Orelse, rule, ctx)
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{&ast.If{Test: ctx.Rename(s.Test), Body: body, Orelse: orelse, Pos: s.Pos}}, nil
	case *ast.While:
		body, err := k.transformBlock(s.Body, rule, ctx)
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{&ast.While{Test: ctx.Rename(s.Test), Body: body, Pos: s.Pos}}, nil
	case *ast.For:
		body, err := k.transformBlock(s.Body, rule, ctx)
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{&ast.For{Target: ctx.Rename(s.Target), Iter: ctx.Rename(s.Iter), Body: body, Pos: s.Pos}}, nil
	case *ast.With:
		body, err := k.transformBlock(s.Body, rule, ctx)
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{&ast.With{Context: ctx.Rename(s.Context), Body: body, Pos: s.Pos}}, nil
	case *ast.Break, *ast.Continue:
		return []ast.Stmt{s}, nil
	default:
		return []ast.Stmt{s}, nil
	}
}

func (k *Kernel) transformBlock(block []ast.Stmt, rule ExitRule, ctx *Context) ([]ast.Stmt, error) {
	var out []ast.Stmt
	for _, stmt := range block {
		transformed, err := k.transformStmt(stmt, rule, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, transformed...)
	}
	return out, nil
}

// collectLocals walks body gathering every name a statement assigns to
// (Assign/AnnAssign/AugAssign targets, a for-loop's target) that is not
// already one of the callee's parameters, appending each exactly once to
// *out in first-seen order. It only recurses into the statement forms
// transformStmt itself recurses into, so collection and substitution stay
// in lockstep.
func collectLocals(body []ast.Stmt, isParam, seen map[string]bool, out *[]string) {
	add := func(e ast.Expr) {
		n, ok := e.(*ast.Name)
		if !ok || isParam[n.Id] || seen[n.Id] {
			return
		}
		seen[n.Id] = true
		*out = append(*out, n.Id)
	}
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ast.Assign:
			for _, t := range s.Targets {
				add(t)
			}
		case *ast.AnnAssign:
			add(s.Target)
		case *ast.AugAssign:
			add(s.Target)
		case *ast.If:
			collectLocals(s.Body, isParam, seen, out)
			collectLocals(s.Orelse, isParam, seen, out)
		case *ast.While:
			collectLocals(s.Body, isParam, seen, out)
		case *ast.For:
			add(s.Target)
			collectLocals(s.Body, isParam, seen, out)
		case *ast.With:
			collectLocals(s.Body, isParam, seen, out)
		}
	}
}
