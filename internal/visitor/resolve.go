// Type annotation resolution (spec.md §4.1's "type resolver"): per
// SPEC_FULL.md §6, this is folded into the visitor rather than kept as a
// separate package, because annotation resolution re-uses the same
// expression-visiting machinery as ordinary value expressions — a
// subscript like `ptr[i32]` or `array[f32, 4]` is parsed identically
// whether it appears in a value position or an annotation position; only
// the interpretation (TypeObject vs. runtime value) differs.
package visitor

import (
	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
	"github.com/pythoc-lang/pythoc/internal/types"
)

// ResolveType reduces an annotation-position AST expression to a
// TypeObject (spec.md §4.1, §9 "AST-annotation -> type-object
// reduction by re-using the expression visitor"). nil input resolves to
// void, matching FunctionDef.ReturnType's "nil => void" convention.
func (c *Context) ResolveType(e ast.TypeExpr) (types.Type, error) {
	if e == nil {
		return types.Void, nil
	}
	switch n := e.(type) {
	case *ast.Name:
		return c.resolveNameType(n)
	case *ast.Subscript:
		return c.resolveSubscriptType(n)
	case *ast.Call:
		return c.resolveCallType(n)
	case *ast.Attribute:
		return c.resolveAttributeType(n)
	case *ast.Constant:
		return c.resolveForwardStringType(n)
	default:
		return nil, c.Report(errors.NAM001, e, "unsupported type annotation form %T", e)
	}
}

// resolveNameType handles bare names: the reserved builtin scalar
// keywords, or a previously declared struct/enum name.
func (c *Context) resolveNameType(n *ast.Name) (types.Type, error) {
	switch n.Id {
	case "i8":
		return types.I8, nil
	case "i16":
		return types.I16, nil
	case "i32":
		return types.I32, nil
	case "i64":
		return types.I64, nil
	case "u8":
		return types.U8, nil
	case "u16":
		return types.U16, nil
	case "u32":
		return types.U32, nil
	case "u64":
		return types.U64, nil
	case "usize":
		return types.USize, nil
	case "f32":
		return types.F32, nil
	case "f64":
		return types.F64, nil
	case "bool":
		return types.Bool, nil
	case "char":
		return types.U8, nil
	case "void":
		return types.Void, nil
	case "linear":
		return &types.LinearType{}, nil
	}
	if st, ok := c.Session.Struct(n.Id); ok {
		return st.Type, nil
	}
	if en, ok := c.Session.Enum(n.Id); ok {
		return en.Type, nil
	}
	return nil, c.Report(errors.NAM001, n, "unresolved name %q in type position", n.Id)
}

// resolveSubscriptType handles the generic type-constructor spellings:
// `ptr[T]`, `array[T, N]` (and the multi-dimensional `array[T, N1, N2,
// ...]` form, nested right-to-left per spec.md §4.1's decay rule),
// `union[A, B, ...]`, and `linear[T]`.
func (c *Context) resolveSubscriptType(n *ast.Subscript) (types.Type, error) {
	base, ok := n.Base.(*ast.Name)
	if !ok {
		return nil, c.Report(errors.TYP001, n, "unsupported type-constructor base")
	}
	switch base.Id {
	case "ptr":
		if len(n.Index) != 1 {
			return nil, c.Report(errors.TYP001, n, "ptr[T] takes exactly one type parameter")
		}
		pointee, err := c.ResolveType(asTypeExpr(n.Index[0]))
		if err != nil {
			return nil, err
		}
		return c.Session.Types.Ptr(pointee), nil
	case "array":
		if len(n.Index) < 2 {
			return nil, c.Report(errors.TYP001, n, "array[T, N, ...] takes a type and at least one dimension")
		}
		elemExpr := asTypeExpr(n.Index[0])
		elem, err := c.ResolveType(elemExpr)
		if err != nil {
			return nil, err
		}
		dims, err := c.resolveDimensions(n.Index[1:])
		if err != nil {
			return nil, err
		}
		// Build right-to-left so array[T,N1,N2] == array[array[T,N2],N1],
		// matching spec.md §4.1/§8's k-D decay rule.
		result := elem
		for i := len(dims) - 1; i >= 0; i-- {
			result = c.Session.Types.Array(result, dims[i])
		}
		return result, nil
	case "union":
		variants := make([]types.Type, len(n.Index))
		for i, idx := range n.Index {
			v, err := c.ResolveType(asTypeExpr(idx))
			if err != nil {
				return nil, err
			}
			variants[i] = v
		}
		return &types.UnionType{Variants: variants}, nil
	case "linear":
		if len(n.Index) == 0 {
			return &types.LinearType{}, nil
		}
		payload, err := c.ResolveType(asTypeExpr(n.Index[0]))
		if err != nil {
			return nil, err
		}
		return &types.LinearType{Payload: payload}, nil
	case "func":
		return c.resolveFuncPtrType(n)
	case "struct":
		return nil, c.Report(errors.TYP001, n, "anonymous struct[...] construction is only valid as a call expression")
	default:
		return nil, c.Report(errors.NAM001, n, "unknown type constructor %q", base.Id)
	}
}

// resolveFuncPtrType handles `func[(P1, P2, ...), R]` function-pointer
// annotations, the two index slots being a tuple of parameter types and
// the return type.
func (c *Context) resolveFuncPtrType(n *ast.Subscript) (types.Type, error) {
	if len(n.Index) != 2 {
		return nil, c.Report(errors.TYP001, n, "func[(params...), ret] takes exactly two arguments")
	}
	var params []types.Type
	if tup, ok := n.Index[0].(*ast.Tuple); ok {
		for _, p := range tup.Elts {
			pt, err := c.ResolveType(asTypeExpr(p))
			if err != nil {
				return nil, err
			}
			params = append(params, pt)
		}
	}
	ret, err := c.ResolveType(asTypeExpr(n.Index[1]))
	if err != nil {
		return nil, err
	}
	return c.Session.Types.FuncPtr(params, ret, false), nil
}

func (c *Context) resolveDimensions(dims []ast.Expr) ([]int, error) {
	out := make([]int, len(dims))
	for i, d := range dims {
		n, err := constantInt(d)
		if err != nil {
			return nil, c.Report(errors.TYP001, d, "%s", err)
		}
		out[i] = n
	}
	return out, nil
}

func constantInt(e ast.Expr) (int, error) {
	c, ok := e.(*ast.Constant)
	if !ok || c.Kind != ast.ConstInt {
		return 0, errNotConstInt
	}
	switch v := c.Value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	default:
		return 0, errNotConstInt
	}
}

var errNotConstInt = &strconvLikeError{"array dimension must be a constant integer"}

type strconvLikeError struct{ msg string }

func (e *strconvLikeError) Error() string { return e.msg }

// resolveCallType handles `struct[("x", i32), ("y", i32)](...)`-shaped
// anonymous aggregate constructors and `refined[Base](pred, "tag")`
// refinement declarations appearing in annotation position.
func (c *Context) resolveCallType(n *ast.Call) (types.Type, error) {
	sub, ok := n.Func.(*ast.Subscript)
	if !ok {
		return nil, c.Report(errors.TYP001, n, "unsupported annotation-position call")
	}
	base, ok := sub.Base.(*ast.Name)
	if !ok {
		return nil, c.Report(errors.TYP001, n, "unsupported annotation-position call")
	}
	if base.Id == "refined" {
		return c.resolveRefinedCall(n)
	}
	if base.Id != "struct" {
		return nil, c.Report(errors.TYP001, n, "unsupported annotation-position call")
	}
	fields := make([]types.StructField, 0, len(sub.Index))
	for _, idx := range sub.Index {
		tup, ok := idx.(*ast.Tuple)
		if !ok || len(tup.Elts) != 2 {
			return nil, c.Report(errors.TYP001, idx, "struct field must be a (name, type) pair")
		}
		nameConst, ok := tup.Elts[0].(*ast.Constant)
		if !ok || nameConst.Kind != ast.ConstString {
			return nil, c.Report(errors.TYP001, idx, "struct field name must be a string literal")
		}
		ft, err := c.ResolveType(asTypeExpr(tup.Elts[1]))
		if err != nil {
			return nil, err
		}
		fields = append(fields, types.StructField{Name: nameConst.Value.(string), Type: ft})
	}
	return types.NewStructType("anon", fields), nil
}

// resolveRefinedCall handles `refined[Base](predicate_name, "tag", ...)`.
func (c *Context) resolveRefinedCall(n *ast.Call) (types.Type, error) {
	sub, ok := n.Func.(*ast.Subscript)
	if !ok || len(sub.Index) != 1 {
		return nil, c.Report(errors.TYP009, n, "refined[Base](...) takes exactly one base type parameter")
	}
	base, err := c.ResolveType(asTypeExpr(sub.Index[0]))
	if err != nil {
		return nil, err
	}
	predName := "predicate"
	var tags []string
	if len(n.Args) > 0 {
		if name, ok := n.Args[0].(*ast.Name); ok {
			predName = name.Id
		}
	}
	for _, a := range n.Args[1:] {
		if s, ok := a.(*ast.Constant); ok && s.Kind == ast.ConstString {
			tags = append(tags, s.Value.(string))
		}
	}
	rt, err := types.NewRefinedType(predName, []string{"value"}, []types.Type{base}, tags)
	if err != nil {
		return nil, c.Report(errors.TYP009, n, "%s", err)
	}
	return rt, nil
}

// resolveAttributeType resolves an Attribute annotation such as
// `other_module.Point` by its final name alone, as a bare Name. The base
// is not consulted, so `const.T` or `volatile.T` resolves to T with no
// qualifier applied.
func (c *Context) resolveAttributeType(n *ast.Attribute) (types.Type, error) {
	return c.resolveNameType(&ast.Name{Id: n.Name, Pos: n.Pos})
}

// resolveForwardStringType resolves a forward-reference string literal
// annotation (`"Point"`), used for types whose declaration appears later
// in the same file (spec.md §4.1 "forward strings").
func (c *Context) resolveForwardStringType(n *ast.Constant) (types.Type, error) {
	if n.Kind != ast.ConstString {
		return nil, c.Report(errors.TYP001, n, "only a string literal is valid as a forward type reference")
	}
	return c.resolveNameType(&ast.Name{Id: n.Value.(string), Pos: n.Pos})
}

// asTypeExpr narrows an ast.Expr known to also implement ast.TypeExpr;
// every expression node in internal/ast eligible for annotation position
// already implements both interfaces (Name/Subscript/Call/Attribute).
func asTypeExpr(e ast.Expr) ast.TypeExpr {
	if te, ok := e.(ast.TypeExpr); ok {
		return te
	}
	return nil
}

// qualify applies const/volatile qualifiers to a resolved type, returning
// t unchanged when neither is set. No lowering path in this package calls
// it.
func (c *Context) qualify(t types.Type, q irbuilder.Qualifiers) types.Type {
	if !q.Const && !q.Volatile {
		return t
	}
	return c.Session.Types.Qualify(t, q)
}
