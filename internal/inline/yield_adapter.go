package inline

import "github.com/pythoc-lang/pythoc/internal/ast"

// InlinabilityCheck mirrors yield_adapter.py's _YieldInlinabilityChecker:
// a generator callee is only inlinable if it yields at least once,
// never returns a value, and declares no nested function.
type InlinabilityCheck struct {
	HasYield          bool
	HasReturnValue    bool
	HasNestedFunction bool
}

// CheckInlinability walks body and reports whether it is a valid inline
// target for for-loop yield expansion.
func CheckInlinability(body []ast.Stmt) InlinabilityCheck {
	c := &InlinabilityCheck{}
	walkInlinability(body, 0, c)
	return *c
}

// Inlinable reports the combined verdict (has_yield and not
// has_return_value and not has_nested_function, per the original).
func (c InlinabilityCheck) Inlinable() bool {
	return c.HasYield && !c.HasReturnValue && !c.HasNestedFunction
}

func walkInlinability(body []ast.Stmt, depth int, c *InlinabilityCheck) {
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ast.Return:
			if s.Value != nil {
				c.HasReturnValue = true
			}
		case *ast.ExprStmt:
			if _, ok := s.Value.(*ast.Yield); ok {
				c.HasYield = true
			}
		case *ast.FunctionDef:
			c.HasNestedFunction = true
			walkInlinability(s.Body, depth+1, c)
		case *ast.If:
			walkInlinability(s.Body, depth, c)
			walkInlinability(s.Orelse, depth, c)
		case *ast.While:
			walkInlinability(s.Body, depth, c)
		case *ast.For:
			walkInlinability(s.Body, depth, c)
		case *ast.With:
			walkInlinability(s.Body, depth, c)
		case *ast.Try:
			walkInlinability(s.Body, depth, c)
			for _, h := range s.Handlers {
				walkInlinability(h.Body, depth, c)
			}
		case *ast.Match:
			for _, mc := range s.Cases {
				walkInlinability(mc.Body, depth, c)
			}
		}
	}
}

// ExtractLoopVar mirrors YieldInlineAdapter._extract_loop_var: only a
// bare name target is supported, matching the original's "tuple
// unpacking and other complex targets not supported yet" restriction —
// callers needing tuple unpacking pass the For node's Target directly to
// NewYieldExitRule instead, since YieldExitRule itself does support it.
func ExtractLoopVar(forNode *ast.For) (string, bool) {
	name, ok := forNode.Target.(*ast.Name)
	if !ok {
		return "", false
	}
	return name.Id, true
}
