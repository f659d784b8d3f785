package visitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
	"github.com/pythoc-lang/pythoc/internal/registry"
	"github.com/pythoc-lang/pythoc/internal/types"
)

// declareIntVar puts a plain, addressless i32 value into the current
// scope under varName.
func declareIntVar(t *testing.T, c *Context, varName string) {
	t.Helper()
	addr := c.Builder.Alloca(irbuilder.NamedType("i32"), varName)
	val, err := c.Builder.Load(addr, irbuilder.Qualifiers{})
	require.NoError(t, err)
	ref := &types.ValueRef{Kind: types.KindValue, IRValue: val, TypeHint: types.I32}
	require.NoError(t, c.declareVar(varName, ref, false, nil))
}

func TestVisitCall_InlinesAtCallSite(t *testing.T) {
	c := newTestContext(t)
	c.gotoBlock(c.CFG.EntryID)
	declareIntVar(t, c, "argv")

	// @inline def gen(n): y = n; return y
	fn := &registry.FunctionInfo{
		QualifiedName: "gen",
		ParamNames:    []string{"n"},
		ReturnType:    types.I32,
		IsInline:      true,
		Body: []ast.Stmt{
			&ast.Assign{Targets: []ast.Expr{name("y")}, Value: name("n")},
			&ast.Return{Value: name("y")},
		},
	}
	c.Session.RegisterFunction(fn)

	call := &ast.Call{Func: name("gen"), Args: []ast.Expr{name("argv")}}
	result, err := c.VisitExpr(call)
	require.NoError(t, err)
	assert.Equal(t, types.I32, result.TypeHint)
}

func TestVisitCall_InlineLocalDoesNotAliasCallerVariable(t *testing.T) {
	c := newTestContext(t)
	c.gotoBlock(c.CFG.EntryID)

	// The caller already has a bool variable named "y" before the call.
	declareBoolVar(t, c, "y")
	callerY, ok := c.Vars.Lookup("y")
	require.True(t, ok)
	originalValueRef := callerY.ValueRef

	declareIntVar(t, c, "argv")

	// @inline def gen(n): y = n; return y — the callee's own local happens
	// to be named "y" too.
	fn := &registry.FunctionInfo{
		QualifiedName: "gen",
		ParamNames:    []string{"n"},
		ReturnType:    types.I32,
		IsInline:      true,
		Body: []ast.Stmt{
			&ast.Assign{Targets: []ast.Expr{name("y")}, Value: name("n")},
			&ast.Return{Value: name("y")},
		},
	}
	c.Session.RegisterFunction(fn)

	call := &ast.Call{Func: name("gen"), Args: []ast.Expr{name("argv")}}
	_, err := c.VisitExpr(call)
	require.NoError(t, err)

	afterY, ok := c.Vars.Lookup("y")
	require.True(t, ok)
	assert.Same(t, callerY, afterY, "caller's \"y\" must survive the inline splice untouched")
	assert.Same(t, originalValueRef, afterY.ValueRef, "callee's local assignment must not have overwritten caller's \"y\" value")
	assert.Equal(t, types.Bool, afterY.TypeHint, "callee's int-typed local must not have overwritten caller's bool \"y\"")
}

func TestVisitCall_ClosureMaterialization(t *testing.T) {
	c := newTestContext(t)
	c.gotoBlock(c.CFG.EntryID)
	declareIntVar(t, c, "argv")

	// (lambda x: x)(argv)
	lambda := &ast.Lambda{
		Params: []*ast.Param{{Name: "x"}},
		Body:   name("x"),
	}
	call := &ast.Call{Func: lambda, Args: []ast.Expr{name("argv")}}

	result, err := c.VisitExpr(call)
	require.NoError(t, err)
	assert.Equal(t, types.I32, result.TypeHint)
}

func TestVisitLambda_EvaluatesToPythonConstantClosureValue(t *testing.T) {
	c := newTestContext(t)
	c.gotoBlock(c.CFG.EntryID)

	lambda := &ast.Lambda{Params: []*ast.Param{{Name: "x"}}, Body: name("x")}
	ref, err := c.VisitExpr(lambda)
	require.NoError(t, err)
	assert.Equal(t, types.KindPythonConstant, ref.Kind)
	assert.Same(t, lambda, ref.PyConstValue)
}

func TestVisitCall_UnresolvedCalleeReportsError(t *testing.T) {
	c := newTestContext(t)
	c.gotoBlock(c.CFG.EntryID)

	call := &ast.Call{Func: name("nonexistent")}
	_, err := c.VisitExpr(call)
	assert.Error(t, err)
}

func TestVisitCall_NonInlineCalleeRecordsCallWithoutSplicing(t *testing.T) {
	c := newTestContext(t)
	c.gotoBlock(c.CFG.EntryID)

	fn := &registry.FunctionInfo{
		QualifiedName: "plain",
		ParamNames:    []string{"n"},
		ReturnType:    types.I32,
	}
	c.Session.RegisterFunction(fn)
	declareIntVar(t, c, "argv")

	call := &ast.Call{Func: name("plain"), Args: []ast.Expr{name("argv")}}
	result, err := c.VisitExpr(call)
	require.NoError(t, err)
	assert.Equal(t, types.I32, result.TypeHint)
	assert.Contains(t, c.Callees, "plain")
}
