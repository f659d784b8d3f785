package exhaust

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/types"
)

func wildcardCase() *ast.MatchCase {
	return &ast.MatchCase{Pattern: &ast.WildcardPattern{}}
}

func ctorCase(name string, subs ...ast.Pattern) *ast.MatchCase {
	return &ast.MatchCase{Pattern: &ast.ConstructorPattern{Name: name, SubPatterns: subs}}
}

func reportCode(t *testing.T, err error) string {
	t.Helper()
	r, ok := errors.AsReport(err)
	if !ok {
		t.Fatalf("expected a *errors.Report-wrapped error, got %v", err)
	}
	return r.Code
}

func TestBoolMatchExhaustiveWithBothArms(t *testing.T) {
	m := &ast.Match{Cases: []*ast.MatchCase{ctorCase("True"), ctorCase("False")}}
	if err := CheckMatch(m, types.Bool); err != nil {
		t.Errorf("expected exhaustive, got %v", err)
	}
}

func TestBoolMatchMissingArmIsNonExhaustive(t *testing.T) {
	m := &ast.Match{Cases: []*ast.MatchCase{ctorCase("True")}}
	err := CheckMatch(m, types.Bool)
	if err == nil {
		t.Fatal("expected non-exhaustive error")
	}
	if got := reportCode(t, err); got != errors.EXH001 {
		t.Errorf("code = %q, want %s", got, errors.EXH001)
	}
}

func TestWildcardCatchAllIsExhaustive(t *testing.T) {
	m := &ast.Match{Cases: []*ast.MatchCase{ctorCase("True"), wildcardCase()}}
	if err := CheckMatch(m, types.Bool); err != nil {
		t.Errorf("expected exhaustive via wildcard, got %v", err)
	}
}

func TestEnumMatchAllVariantsIsExhaustive(t *testing.T) {
	enum := types.NewEnumType("Status", []types.EnumVariant{
		{Name: "Ok", Tag: 0},
		{Name: "Err", Tag: 1, Payload: types.I32},
	})
	m := &ast.Match{Cases: []*ast.MatchCase{
		ctorCase("Ok"),
		ctorCase("Err", &ast.WildcardPattern{}),
	}}
	if err := CheckMatch(m, enum); err != nil {
		t.Errorf("expected exhaustive, got %v", err)
	}
}

func TestEnumMatchMissingVariantIsNonExhaustive(t *testing.T) {
	enum := types.NewEnumType("Status", []types.EnumVariant{
		{Name: "Ok", Tag: 0},
		{Name: "Err", Tag: 1, Payload: types.I32},
	})
	m := &ast.Match{Cases: []*ast.MatchCase{ctorCase("Ok")}}
	err := CheckMatch(m, enum)
	if err == nil {
		t.Fatal("expected non-exhaustive error")
	}
	if got := reportCode(t, err); got != errors.EXH001 {
		t.Errorf("code = %q, want %s", got, errors.EXH001)
	}
}

// TestEnumMatchUncoveredListsExactVariant mirrors spec.md §8 scenario 3:
// a `Status` match covering only `Ok` must report `Status.Err` (and only
// that) as the uncovered case.
func TestEnumMatchUncoveredListsExactVariant(t *testing.T) {
	enum := types.NewEnumType("Status", []types.EnumVariant{
		{Name: "Ok", Tag: 0, Payload: types.I32},
		{Name: "Err", Tag: 1, Payload: types.I32},
	})
	matrix := PatternMatrix{
		Rows:        []PatternRow{{Patterns: []NormalizedPattern{Normalize(ctorCase("Ok", &ast.WildcardPattern{}).Pattern, enum)}}},
		ColumnTypes: []types.Type{enum},
	}
	exhaustive, uncovered := IsExhaustive(matrix)
	if exhaustive {
		t.Fatal("expected non-exhaustive result")
	}
	want := []string{"Status.Err"}
	if diff := cmp.Diff(want, uncovered); diff != "" {
		t.Errorf("uncovered mismatch (-want +got):\n%s", diff)
	}
}

func TestIntMatchRequiresWildcard(t *testing.T) {
	m := &ast.Match{Cases: []*ast.MatchCase{ctorCase("anything")}}
	err := CheckMatch(m, types.I32)
	if err == nil {
		t.Fatal("expected non-exhaustive error for an infinite type without a wildcard")
	}
}

func TestRedundantArmAfterWildcardIsFlagged(t *testing.T) {
	m := &ast.Match{Cases: []*ast.MatchCase{wildcardCase(), ctorCase("True")}}
	err := CheckMatch(m, types.Bool)
	if err == nil {
		t.Fatal("expected unreachable-arm error")
	}
	if got := reportCode(t, err); got != errors.EXH002 {
		t.Errorf("code = %q, want %s", got, errors.EXH002)
	}
}

func TestDuplicateConstructorArmIsFlagged(t *testing.T) {
	m := &ast.Match{Cases: []*ast.MatchCase{ctorCase("True"), ctorCase("True"), ctorCase("False")}}
	err := CheckMatch(m, types.Bool)
	if err == nil {
		t.Fatal("expected unreachable-arm error for duplicate constructor")
	}
	if got := reportCode(t, err); got != errors.EXH002 {
		t.Errorf("code = %q, want %s", got, errors.EXH002)
	}
}

func TestGuardedArmNeverFlaggedRedundant(t *testing.T) {
	guarded := &ast.MatchCase{Pattern: &ast.ConstructorPattern{Name: "True"}, Guard: &ast.Constant{}}
	m := &ast.Match{Cases: []*ast.MatchCase{guarded, ctorCase("True"), ctorCase("False")}}
	if err := checkRedundantArms(m, types.Bool); err != nil {
		t.Errorf("guarded arm should never be treated as redundancy source, got %v", err)
	}
}

func TestStructMatchSingleConstructorExhaustive(t *testing.T) {
	st := types.NewStructType("Point", []types.StructField{{Name: "x", Type: types.I32}, {Name: "y", Type: types.I32}})
	m := &ast.Match{Cases: []*ast.MatchCase{
		ctorCase("Point", &ast.WildcardPattern{}, &ast.WildcardPattern{}),
	}}
	if err := CheckMatch(m, st); err != nil {
		t.Errorf("expected exhaustive struct match, got %v", err)
	}
}
