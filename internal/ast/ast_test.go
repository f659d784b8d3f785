package ast

import "testing"

func TestPosString(t *testing.T) {
	p := Pos{File: "foo.py", Line: 3, Column: 5}
	if got, want := p.String(), "foo.py:3:5"; got != want {
		t.Errorf("Pos.String() = %q, want %q", got, want)
	}
}

func TestDumpIf(t *testing.T) {
	stmts := []Stmt{
		&If{
			Test: &Name{Id: "x"},
			Body: []Stmt{&Return{Value: &Constant{Kind: ConstInt, Value: 1}}},
			Pos:  Pos{File: "f.py", Line: 1},
		},
	}
	out := Dump(stmts)
	if out == "" {
		t.Fatal("expected non-empty dump")
	}
}

func TestNodeInterfaces(t *testing.T) {
	var _ Expr = &Name{}
	var _ Expr = &Constant{}
	var _ Expr = &BinOp{}
	var _ Stmt = &If{}
	var _ Stmt = &FunctionDef{}
	var _ Pattern = &WildcardPattern{}
	var _ Pattern = &ConstructorPattern{}
	var _ TypeExpr = &Subscript{}
}
