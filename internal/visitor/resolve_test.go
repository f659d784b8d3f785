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

func newTestContext(t *testing.T) *Context {
	t.Helper()
	sess := registry.NewSession()
	b := irbuilder.NewTextBackend(&irbuilder.Context{ModuleName: "test"})
	return NewContext(sess, b, "<test>", "<test>")
}

func name(id string) *ast.Name { return &ast.Name{Id: id} }

func TestResolveType_ScalarBuiltins(t *testing.T) {
	c := newTestContext(t)

	ty, err := c.ResolveType(name("i32"))
	require.NoError(t, err)
	assert.Equal(t, types.I32, ty)

	ty, err = c.ResolveType(name("f64"))
	require.NoError(t, err)
	assert.Equal(t, types.F64, ty)

	ty, err = c.ResolveType(name("bool"))
	require.NoError(t, err)
	assert.Equal(t, types.Bool, ty)
}

func TestResolveType_Nil(t *testing.T) {
	c := newTestContext(t)
	ty, err := c.ResolveType(nil)
	require.NoError(t, err)
	assert.Equal(t, types.Void, ty)
}

func TestResolveType_PtrSubscript(t *testing.T) {
	c := newTestContext(t)
	expr := &ast.Subscript{Base: name("ptr"), Index: []ast.Expr{name("i32")}}

	ty, err := c.ResolveType(expr)
	require.NoError(t, err)
	pt, ok := ty.(*types.PtrType)
	require.True(t, ok, "expected *types.PtrType, got %T", ty)
	assert.Equal(t, types.I32, pt.Pointee)
}

func TestResolveType_PtrWrongArity(t *testing.T) {
	c := newTestContext(t)
	expr := &ast.Subscript{Base: name("ptr"), Index: []ast.Expr{name("i32"), name("i64")}}

	_, err := c.ResolveType(expr)
	assert.Error(t, err)
}

func TestResolveType_ForwardStringReference(t *testing.T) {
	c := newTestContext(t)
	st := types.NewStructType("Point", []types.StructField{
		{Name: "x", Type: types.I32},
		{Name: "y", Type: types.I32},
	})
	c.Session.RegisterStruct("Point", st, "<test>")

	ty, err := c.ResolveType(&ast.Constant{Kind: ast.ConstString, Value: "Point"})
	require.NoError(t, err)
	assert.True(t, st.Equal(ty))
}

func TestResolveType_ForwardStringReference_RejectsNonString(t *testing.T) {
	c := newTestContext(t)
	_, err := c.ResolveType(&ast.Constant{Kind: ast.ConstInt, Value: int64(1)})
	assert.Error(t, err)
}

func TestResolveType_RefinedCall(t *testing.T) {
	c := newTestContext(t)
	// refined[i32](predicate, "positive")
	expr := &ast.Call{
		Func: &ast.Subscript{Base: name("refined"), Index: []ast.Expr{name("i32")}},
		Args: []ast.Expr{
			name("predicate"),
			&ast.Constant{Kind: ast.ConstString, Value: "positive"},
		},
		Kwargs: map[string]ast.Expr{},
	}

	ty, err := c.ResolveType(expr)
	require.NoError(t, err)
	rt, ok := ty.(*types.RefinedType)
	require.True(t, ok, "expected *types.RefinedType, got %T", ty)
	assert.True(t, rt.IsSingleParam())
	assert.Equal(t, types.I32, rt.Underlying())
}

func TestResolveType_RefinedCallRequiresSubscriptedBase(t *testing.T) {
	c := newTestContext(t)
	// bare `refined(...)` with no `[Base]` is not a valid refinement form.
	expr := &ast.Call{Func: name("refined"), Kwargs: map[string]ast.Expr{}}

	_, err := c.ResolveType(expr)
	assert.Error(t, err)
}

func TestResolveType_UnsupportedCall(t *testing.T) {
	c := newTestContext(t)
	expr := &ast.Call{Func: name("nonsense"), Kwargs: map[string]ast.Expr{}}

	_, err := c.ResolveType(expr)
	assert.Error(t, err)
}
