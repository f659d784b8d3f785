package inline

import (
	"testing"

	"github.com/pythoc-lang/pythoc/internal/ast"
)

func TestReturnExitRuleTransformsReturnToAssignFlagBreak(t *testing.T) {
	rule := &ReturnExitRule{ResultVar: "result", FlagVar: "flag"}
	ctx := &Context{RenameMap: map[string]string{}}
	ret := &ast.Return{Value: &ast.Constant{Kind: ast.ConstInt, Value: 7}}

	stmts, err := rule.TransformExit(ret, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 3 {
		t.Fatalf("got %d statements, want 3 (assign, flag, break)", len(stmts))
	}
	assign, ok := stmts[0].(*ast.Assign)
	if !ok {
		t.Fatalf("stmts[0] = %T, want *ast.Assign", stmts[0])
	}
	call, ok := assign.Value.(*ast.Call)
	if !ok {
		t.Fatalf("assign value = %T, want *ast.Call (move wrapper)", assign.Value)
	}
	if fn, ok := call.Func.(*ast.Name); !ok || fn.Id != "move" {
		t.Errorf("expected move() wrapper, got %v", call.Func)
	}
	if _, ok := stmts[2].(*ast.Break); !ok {
		t.Errorf("stmts[2] = %T, want *ast.Break", stmts[2])
	}
}

func TestReturnExitRuleDiscardsValueWithoutResultVar(t *testing.T) {
	rule := &ReturnExitRule{}
	ctx := &Context{}
	ret := &ast.Return{Value: &ast.Constant{Kind: ast.ConstInt, Value: 1}}

	stmts, err := rule.TransformExit(ret, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 {
		t.Fatalf("got %d statements, want 1 (just break)", len(stmts))
	}
	if _, ok := stmts[0].(*ast.Break); !ok {
		t.Errorf("stmts[0] = %T, want *ast.Break", stmts[0])
	}
}

func TestMacroExitRuleSubstitutesDirectly(t *testing.T) {
	rule := MacroExitRule{}
	ctx := &Context{RenameMap: map[string]string{"x": "caller_x"}}
	ret := &ast.Return{Value: &ast.Name{Id: "x"}}

	stmts, err := rule.TransformExit(ret, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(stmts))
	}
	es, ok := stmts[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("stmts[0] = %T, want *ast.ExprStmt", stmts[0])
	}
	name, ok := es.Value.(*ast.Name)
	if !ok || name.Id != "caller_x" {
		t.Errorf("expected renamed Name(caller_x), got %v", es.Value)
	}
}

func TestYieldExitRuleSimpleAssignment(t *testing.T) {
	rule := NewYieldExitRule(&ast.Name{Id: "loopvar"}, nil, nil, "")
	ctx := &Context{}
	yieldStmt := &ast.ExprStmt{Value: &ast.Yield{Value: &ast.Constant{Kind: ast.ConstInt, Value: 42}}}

	stmts, err := rule.TransformExit(yieldStmt, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 {
		t.Fatalf("got %d statements, want 1 (assign)", len(stmts))
	}
	assign, ok := stmts[0].(*ast.Assign)
	if !ok {
		t.Fatalf("stmts[0] = %T, want *ast.Assign", stmts[0])
	}
	target, ok := assign.Targets[0].(*ast.Name)
	if !ok || target.Id != "loopvar" {
		t.Errorf("assign target = %v, want Name(loopvar)", assign.Targets[0])
	}
}

func TestYieldExitRuleWrapsBodyWithBreakInMiniLoop(t *testing.T) {
	loopBody := []ast.Stmt{
		&ast.If{
			Test: &ast.Name{Id: "cond"},
			Body: []ast.Stmt{&ast.Break{}},
		},
	}
	rule := NewYieldExitRule(&ast.Name{Id: "x"}, loopBody, nil, "__brk")
	ctx := &Context{}
	yieldStmt := &ast.ExprStmt{Value: &ast.Yield{Value: &ast.Constant{Kind: ast.ConstInt, Value: 1}}}

	stmts, err := rule.TransformExit(yieldStmt, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 {
		t.Fatalf("got %d statements, want 1 (while loop)", len(stmts))
	}
	while, ok := stmts[0].(*ast.While)
	if !ok {
		t.Fatalf("stmts[0] = %T, want *ast.While", stmts[0])
	}
	inner, ok := while.Body[0].(*ast.Assign)
	if !ok {
		t.Fatalf("while.Body[0] = %T, want *ast.Assign", while.Body[0])
	}
	_ = inner
	last := while.Body[len(while.Body)-1]
	if _, ok := last.(*ast.Break); !ok {
		t.Errorf("expected mini-loop to end with Break, got %T", last)
	}
}

func TestYieldExitRuleWithoutBreakFlagInlinesBodyDirectly(t *testing.T) {
	loopBody := []ast.Stmt{&ast.ExprStmt{Value: &ast.Name{Id: "noop"}}}
	rule := NewYieldExitRule(&ast.Name{Id: "x"}, loopBody, nil, "")
	ctx := &Context{}
	yieldStmt := &ast.ExprStmt{Value: &ast.Yield{Value: &ast.Constant{Kind: ast.ConstInt, Value: 1}}}

	stmts, err := rule.TransformExit(yieldStmt, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 2 {
		t.Fatalf("got %d statements, want 2 (assign + loop body)", len(stmts))
	}
	if _, ok := stmts[0].(*ast.Assign); !ok {
		t.Errorf("stmts[0] = %T, want *ast.Assign", stmts[0])
	}
}

func TestHasBreakOrContinueDoesNotDescendIntoNestedLoop(t *testing.T) {
	body := []ast.Stmt{
		&ast.For{Body: []ast.Stmt{&ast.Break{}}},
	}
	if hasBreakOrContinue(body) {
		t.Error("break inside a nested for-loop should not count toward the outer loop")
	}
}

func TestHasBreakOrContinueDetectsDirectBreak(t *testing.T) {
	body := []ast.Stmt{&ast.If{Body: []ast.Stmt{&ast.Continue{}}}}
	if !hasBreakOrContinue(body) {
		t.Error("continue inside a direct if-body should count")
	}
}

func TestKernelRenamesParamsToArgTemps(t *testing.T) {
	k := NewKernel()
	body := []ast.Stmt{
		&ast.Return{Value: &ast.BinOp{Left: &ast.Name{Id: "a"}, Op: "+", Right: &ast.Name{Id: "b"}}},
	}
	op, err := k.CreateOp([]string{"a", "b"}, []string{"__t0", "__t1"}, body, &ReturnExitRule{ResultVar: "result"})
	if err != nil {
		t.Fatal(err)
	}
	stmts, err := k.Execute(op)
	if err != nil {
		t.Fatal(err)
	}
	assign, ok := stmts[0].(*ast.Assign)
	if !ok {
		t.Fatalf("stmts[0] = %T, want *ast.Assign", stmts[0])
	}
	call := assign.Value.(*ast.Call)
	bin := call.Args[0].(*ast.BinOp)
	left := bin.Left.(*ast.Name)
	right := bin.Right.(*ast.Name)
	if left.Id != "__t0" || right.Id != "__t1" {
		t.Errorf("expected renamed operands __t0/__t1, got %s/%s", left.Id, right.Id)
	}
}

func TestKernelRenamesLocalsAwayFromCallerNames(t *testing.T) {
	k := NewKernel()
	// def gen(a): x = a + 1; return x
	body := []ast.Stmt{
		&ast.Assign{
			Targets: []ast.Expr{&ast.Name{Id: "x"}},
			Value:   &ast.BinOp{Left: &ast.Name{Id: "a"}, Op: "+", Right: &ast.Constant{Kind: ast.ConstInt, Value: int64(1)}},
		},
		&ast.Return{Value: &ast.Name{Id: "x"}},
	}
	op, err := k.CreateOp([]string{"a"}, []string{"__t0"}, body, &ReturnExitRule{ResultVar: "result"})
	if err != nil {
		t.Fatal(err)
	}
	stmts, err := k.Execute(op)
	if err != nil {
		t.Fatal(err)
	}
	assign, ok := stmts[0].(*ast.Assign)
	if !ok {
		t.Fatalf("stmts[0] = %T, want *ast.Assign", stmts[0])
	}
	localTarget := assign.Targets[0].(*ast.Name)
	if localTarget.Id == "x" {
		t.Fatalf("callee local %q was not renamed; would alias any caller-scope %q", localTarget.Id, "x")
	}
	resultAssign := stmts[1].(*ast.Assign)
	call := resultAssign.Value.(*ast.Call)
	renamedRef := call.Args[0].(*ast.Name)
	if renamedRef.Id != localTarget.Id {
		t.Errorf("return value referenced %q, want the same renamed local %q", renamedRef.Id, localTarget.Id)
	}
}

func TestKernelRenamesForLoopTargetAsALocal(t *testing.T) {
	k := NewKernel()
	body := []ast.Stmt{
		&ast.For{
			Target: &ast.Name{Id: "i"},
			Iter:   &ast.Name{Id: "n"},
			Body:   []ast.Stmt{&ast.ExprStmt{Value: &ast.Name{Id: "i"}}},
		},
		&ast.Return{},
	}
	op, err := k.CreateOp([]string{"n"}, []string{"__t0"}, body, &ReturnExitRule{})
	if err != nil {
		t.Fatal(err)
	}
	stmts, err := k.Execute(op)
	if err != nil {
		t.Fatal(err)
	}
	forStmt := stmts[0].(*ast.For)
	target := forStmt.Target.(*ast.Name)
	if target.Id == "i" {
		t.Fatalf("for-loop target %q was not renamed", target.Id)
	}
	innerRef := forStmt.Body[0].(*ast.ExprStmt).Value.(*ast.Name)
	if innerRef.Id != target.Id {
		t.Errorf("loop body referenced %q, want the renamed target %q", innerRef.Id, target.Id)
	}
}

func TestKernelRejectsArityMismatch(t *testing.T) {
	k := NewKernel()
	_, err := k.CreateOp([]string{"a", "b"}, []string{"__t0"}, nil, &ReturnExitRule{})
	if err == nil {
		t.Fatal("expected arity mismatch error")
	}
}

func TestCheckInlinabilityRejectsReturnWithValue(t *testing.T) {
	body := []ast.Stmt{
		&ast.ExprStmt{Value: &ast.Yield{Value: &ast.Constant{Kind: ast.ConstInt, Value: 1}}},
		&ast.Return{Value: &ast.Constant{Kind: ast.ConstInt, Value: 2}},
	}
	c := CheckInlinability(body)
	if c.Inlinable() {
		t.Error("a generator that also returns a value should not be inlinable")
	}
}

func TestCheckInlinabilityAcceptsPlainGenerator(t *testing.T) {
	body := []ast.Stmt{
		&ast.ExprStmt{Value: &ast.Yield{Value: &ast.Constant{Kind: ast.ConstInt, Value: 1}}},
		&ast.Return{},
	}
	c := CheckInlinability(body)
	if !c.Inlinable() {
		t.Error("a bare-return generator should be inlinable")
	}
}

func TestExtractLoopVarRejectsTupleTarget(t *testing.T) {
	forNode := &ast.For{Target: &ast.Tuple{Elts: []ast.Expr{&ast.Name{Id: "a"}, &ast.Name{Id: "b"}}}}
	if _, ok := ExtractLoopVar(forNode); ok {
		t.Error("tuple-unpacking for-target should not be extracted as a simple loop var")
	}
}
