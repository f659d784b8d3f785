package visitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/cfg"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
	"github.com/pythoc-lang/pythoc/internal/types"
)

// declareBoolVar puts a plain, addressless bool value into the current
// scope under varName, the same shape visitName hands back for a value
// (as opposed to address) variable.
func declareBoolVar(t *testing.T, c *Context, varName string) {
	t.Helper()
	addr := c.Builder.Alloca(irbuilder.NamedType("i1"), varName)
	val, err := c.Builder.Load(addr, irbuilder.Qualifiers{})
	require.NoError(t, err)
	ref := &types.ValueRef{Kind: types.KindValue, IRValue: val, TypeHint: types.Bool}
	require.NoError(t, c.declareVar(varName, ref, false, nil))
}

func TestVisitMatch_BranchesConditionallyPerArm(t *testing.T) {
	c := newTestContext(t)
	c.gotoBlock(c.CFG.EntryID)
	declareBoolVar(t, c, "flag")

	match := &ast.Match{
		Subject: name("flag"),
		Cases: []*ast.MatchCase{
			{Pattern: &ast.ConstructorPattern{Name: "True"}, Body: []ast.Stmt{&ast.Return{}}},
			{Pattern: &ast.ConstructorPattern{Name: "False"}, Body: []ast.Stmt{&ast.Return{}}},
		},
	}

	require.NoError(t, c.visitMatch(match))

	var trueEdges, falseEdges int
	for _, e := range c.CFG.Edges {
		switch e.Kind {
		case cfg.BranchTrue:
			trueEdges++
		case cfg.BranchFalse:
			falseEdges++
		}
	}
	// Each arm's constructor test emits exactly one conditional branch:
	// BranchTrue into the arm body, BranchFalse into the next arm's test
	// (or the exhaustiveness-guaranteed tail). Two arms, unconditional
	// arm entry is no longer possible.
	assert.Equal(t, 2, trueEdges, "each arm should test the subject before entering its body")
	assert.Equal(t, 2, falseEdges, "a failed test must fall through to the next arm rather than skip it")

	dump := c.Builder.(*irbuilder.TextBackend).Dump()
	assert.Contains(t, dump, "icmp eq", "a real discriminant comparison must back each arm's test")
}

func TestVisitMatch_WildcardArmMatchesUnconditionally(t *testing.T) {
	c := newTestContext(t)
	c.gotoBlock(c.CFG.EntryID)
	declareBoolVar(t, c, "flag")

	match := &ast.Match{
		Subject: name("flag"),
		Cases: []*ast.MatchCase{
			{Pattern: &ast.WildcardPattern{}, Body: []ast.Stmt{&ast.Return{}}},
		},
	}

	require.NoError(t, c.visitMatch(match))

	for _, e := range c.CFG.Edges {
		assert.NotEqual(t, cfg.BranchTrue, e.Kind, "a bare wildcard arm needs no discriminant test")
		assert.NotEqual(t, cfg.BranchFalse, e.Kind, "a bare wildcard arm needs no discriminant test")
	}
}

func TestVisitIf_BranchesConditionally(t *testing.T) {
	c := newTestContext(t)
	c.gotoBlock(c.CFG.EntryID)
	declareBoolVar(t, c, "cond")

	stmt := &ast.If{
		Test: name("cond"),
		Body: []ast.Stmt{&ast.Return{}},
		Orelse: []ast.Stmt{&ast.Return{}},
	}
	require.NoError(t, c.visitIf(stmt))

	var trueEdges, falseEdges int
	for _, e := range c.CFG.Edges {
		switch e.Kind {
		case cfg.BranchTrue:
			trueEdges++
		case cfg.BranchFalse:
			falseEdges++
		}
	}
	assert.Equal(t, 1, trueEdges)
	assert.Equal(t, 1, falseEdges)
}

func TestVisitAssign_DeclaresNewVariable(t *testing.T) {
	c := newTestContext(t)
	c.gotoBlock(c.CFG.EntryID)
	declareBoolVar(t, c, "src")

	stmt := &ast.Assign{Targets: []ast.Expr{name("dst")}, Value: name("src")}
	require.NoError(t, c.VisitStmt(stmt))

	v, ok := c.Vars.Lookup("dst")
	require.True(t, ok)
	assert.Equal(t, types.Bool, v.TypeHint)
}

func TestVisitWhile_CreatesLoopBackEdge(t *testing.T) {
	c := newTestContext(t)
	c.gotoBlock(c.CFG.EntryID)
	declareBoolVar(t, c, "cond")

	stmt := &ast.While{Test: name("cond"), Body: []ast.Stmt{&ast.Continue{}}}
	require.NoError(t, c.visitWhile(stmt))

	var sawLoopBack bool
	for _, e := range c.CFG.Edges {
		if e.Kind == cfg.LoopBack {
			sawLoopBack = true
		}
	}
	assert.True(t, sawLoopBack, "continue should branch back to the loop header")
}

func TestVisitBreak_RejectsBreakOutsideLoop(t *testing.T) {
	c := newTestContext(t)
	c.gotoBlock(c.CFG.EntryID)

	err := c.VisitStmt(&ast.Break{})
	assert.Error(t, err)
}
