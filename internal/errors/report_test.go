package errors

import (
	stderrors "errors"
	"testing"

	"github.com/pythoc-lang/pythoc/internal/ast"
)

func TestReportRoundTripsThroughErrorsAs(t *testing.T) {
	span := &ast.Span{Start: ast.Pos{File: "f.py", Line: 2, Column: 1}}
	rep := New(LIN001, span, "token %s not consumed", "t")
	err := Wrap(rep)

	wrapped := stderrors.New("wrapping: ")
	_ = wrapped

	got, ok := AsReport(err)
	if !ok {
		t.Fatal("expected AsReport to find the wrapped report")
	}
	if got.Code != LIN001 {
		t.Errorf("Code = %q, want %q", got.Code, LIN001)
	}
	if got.Phase != "linear" {
		t.Errorf("Phase = %q, want %q", got.Phase, "linear")
	}
}

func TestCategoryPredicates(t *testing.T) {
	cases := []struct {
		code string
		pred func(string) bool
	}{
		{TYP001, IsTypeError},
		{LIN001, IsLinearError},
		{EXH001, IsExhaustivenessError},
		{SYN001, IsSyntaxError},
		{NAM001, IsNameError},
		{CNQ001, IsConstQualifierError},
		{BLD001, IsBuildError},
		{OVL001, IsOverloadError},
	}
	for _, c := range cases {
		if !c.pred(c.code) {
			t.Errorf("predicate for %s returned false", c.code)
		}
	}
}

func TestRegistryCompleteness(t *testing.T) {
	for code := range Registry {
		if info, ok := GetInfo(code); !ok || info.Code != code {
			t.Errorf("registry entry for %s is malformed", code)
		}
	}
}

func TestReportJSON(t *testing.T) {
	rep := New(BLD001, nil, "linker failed: %s", "exit status 1")
	js, err := rep.ToJSON(true)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if js == "" {
		t.Fatal("expected non-empty JSON")
	}
}
