// Package exhaust checks match statements for exhaustiveness using the
// Maranget-style pattern matrix algorithm (spec.md §4.5), and will later
// back a decision-tree lowering for match codegen. It is a direct port
// of original_source/pythoc/match_exhaustive.py's PatternMatrix/TypeInfo/
// is_exhaustive/specialize pipeline, adjusted to this module's simpler
// pattern grammar (internal/ast has no separate literal-pattern node —
// a boolean literal and an enum variant are both a ConstructorPattern,
// matching the original's own treatment of True/False as constructors of
// tag 1/0) and reusing internal/types' own IsFinite oracle instead of
// re-deriving finiteness from duck-typed attribute probes.
package exhaust

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/types"
)

// PatternKind classifies a NormalizedPattern.
type PatternKind int

const (
	Wildcard PatternKind = iota
	Constructor
	Or
)

// NormalizedPattern is a parser-independent pattern shape the
// exhaustiveness algorithm operates on, mirroring
// match_exhaustive.py's NormalizedPattern dataclass.
type NormalizedPattern struct {
	Kind            PatternKind
	ConstructorTag  int64
	ConstructorName string
	SubPatterns     []NormalizedPattern
	Alternatives    []NormalizedPattern
	TypeHint        types.Type
}

func WildcardPattern(t types.Type) NormalizedPattern {
	return NormalizedPattern{Kind: Wildcard, TypeHint: t}
}

func ConstructorPattern(tag int64, name string, subs []NormalizedPattern, t types.Type) NormalizedPattern {
	return NormalizedPattern{Kind: Constructor, ConstructorTag: tag, ConstructorName: name, SubPatterns: subs, TypeHint: t}
}

func OrPattern(alts []NormalizedPattern, t types.Type) NormalizedPattern {
	return NormalizedPattern{Kind: Or, Alternatives: alts, TypeHint: t}
}

func (p NormalizedPattern) isWildcard() bool { return p.Kind == Wildcard }

// PatternRow is one case clause: one normalized pattern per column, plus
// whether it carries a guard (guards are treated as potentially false,
// per the original's documented conservative-but-sound design).
type PatternRow struct {
	Patterns   []NormalizedPattern
	HasGuard   bool
	SourceCase *ast.MatchCase
}

// PatternMatrix is the rows/column-types pair the algorithm recurses over.
type PatternMatrix struct {
	Rows        []PatternRow
	ColumnTypes []types.Type
}

func (m PatternMatrix) isEmpty() bool { return len(m.Rows) == 0 }

func (m PatternMatrix) firstColumnConstructors() map[int64]bool {
	tags := map[int64]bool{}
	for _, row := range m.Rows {
		if len(row.Patterns) == 0 {
			continue
		}
		switch row.Patterns[0].Kind {
		case Constructor:
			tags[row.Patterns[0].ConstructorTag] = true
		case Or:
			for _, alt := range row.Patterns[0].Alternatives {
				if alt.Kind == Constructor {
					tags[alt.ConstructorTag] = true
				}
			}
		}
	}
	return tags
}

// Constructor names one of a finite type's possible values (a bool
// literal, an enum variant, or a struct's single implicit constructor).
type Constructor struct {
	Tag      int64
	Name     string
	SubTypes []types.Type
}

// isFinite mirrors TypeInfo.is_finite, reusing types.EnumType's own
// IsFinite oracle (which treats every enum as enumerable) instead of
// re-deriving it.
func isFinite(t types.Type) bool {
	if t == nil {
		return false
	}
	switch tt := types.Unwrap(t).(type) {
	case *types.BoolType:
		return true
	case *types.EnumType:
		return tt.IsFinite(map[string]bool{})
	case *types.StructType:
		if len(tt.Fields) == 0 {
			return true
		}
		for _, f := range tt.Fields {
			if !isFinite(f.Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// allConstructors mirrors TypeInfo.get_all_constructors.
func allConstructors(t types.Type) []Constructor {
	switch tt := types.Unwrap(t).(type) {
	case *types.BoolType:
		return []Constructor{{Tag: 1, Name: "True"}, {Tag: 0, Name: "False"}}
	case *types.EnumType:
		out := make([]Constructor, len(tt.Variants))
		for i, v := range tt.Variants {
			var subs []types.Type
			if v.Payload != nil {
				subs = []types.Type{v.Payload}
			}
			out[i] = Constructor{Tag: v.Tag, Name: v.Name, SubTypes: subs}
		}
		return out
	case *types.StructType:
		subs := make([]types.Type, len(tt.Fields))
		for i, f := range tt.Fields {
			subs[i] = f.Type
		}
		return []Constructor{{Tag: 0, Name: tt.Name, SubTypes: subs}}
	default:
		return nil
	}
}

func describeConstructor(t types.Type, tag int64) string {
	switch tt := types.Unwrap(t).(type) {
	case *types.BoolType:
		if tag == 1 {
			return "True"
		}
		return "False"
	case *types.EnumType:
		for _, v := range tt.Variants {
			if v.Tag == tag {
				return fmt.Sprintf("%s.%s", tt.Name, v.Name)
			}
		}
		return fmt.Sprintf("%s.<tag=%d>", tt.Name, tag)
	case *types.StructType:
		return tt.Name
	default:
		return fmt.Sprintf("<tag=%d>", tag)
	}
}

// IsExhaustive recursively checks matrix, returning the uncovered-case
// descriptions when it is not (Maranget's algorithm, case 1-5 as in
// match_exhaustive.py's is_exhaustive).
func IsExhaustive(matrix PatternMatrix) (bool, []string) {
	if matrix.isEmpty() {
		if len(matrix.ColumnTypes) == 0 {
			return true, nil
		}
		return false, []string{"_"}
	}
	if len(matrix.Rows[0].Patterns) == 0 {
		for _, row := range matrix.Rows {
			if !row.HasGuard {
				return true, nil
			}
		}
		return false, []string{"_"}
	}

	var colType types.Type
	if len(matrix.ColumnTypes) > 0 {
		colType = matrix.ColumnTypes[0]
	}

	for _, row := range matrix.Rows {
		if row.Patterns[0].isWildcard() && !row.HasGuard {
			return IsExhaustive(specializeDefault(matrix))
		}
	}

	if isFinite(colType) {
		allCtors := allConstructors(colType)
		covered := matrix.firstColumnConstructors()
		var uncovered []string
		for _, ctor := range allCtors {
			if !covered[ctor.Tag] {
				uncovered = append(uncovered, describeConstructor(colType, ctor.Tag))
				continue
			}
			specialized := specialize(matrix, colType, ctor.Tag)
			subOK, subUncovered := IsExhaustive(specialized)
			if !subOK {
				desc := describeConstructor(colType, ctor.Tag)
				for _, u := range subUncovered {
					uncovered = append(uncovered, fmt.Sprintf("(%s, %s)", desc, u))
				}
			}
		}
		return len(uncovered) == 0, uncovered
	}

	typeName := "unknown"
	if colType != nil {
		typeName = colType.String()
	}
	return false, []string{fmt.Sprintf("_ (catch-all required for %s)", typeName)}
}

// specialize mirrors match_exhaustive.py's specialize().
func specialize(matrix PatternMatrix, colType types.Type, tag int64) PatternMatrix {
	ctors := allConstructors(colType)
	var subTypes []types.Type
	for _, c := range ctors {
		if c.Tag == tag {
			subTypes = c.SubTypes
			break
		}
	}

	var newRows []PatternRow
	for _, row := range matrix.Rows {
		first := row.Patterns[0]
		switch {
		case first.Kind == Constructor && first.ConstructorTag == tag:
			newPatterns := append(append([]NormalizedPattern{}, first.SubPatterns...), row.Patterns[1:]...)
			newRows = append(newRows, PatternRow{Patterns: newPatterns, HasGuard: row.HasGuard, SourceCase: row.SourceCase})
		case first.isWildcard():
			wildcards := make([]NormalizedPattern, len(subTypes))
			for i, st := range subTypes {
				wildcards[i] = WildcardPattern(st)
			}
			newPatterns := append(wildcards, row.Patterns[1:]...)
			newRows = append(newRows, PatternRow{Patterns: newPatterns, HasGuard: row.HasGuard, SourceCase: row.SourceCase})
		case first.Kind == Or:
			for _, alt := range first.Alternatives {
				if alt.Kind == Constructor && alt.ConstructorTag == tag {
					newPatterns := append(append([]NormalizedPattern{}, alt.SubPatterns...), row.Patterns[1:]...)
					newRows = append(newRows, PatternRow{Patterns: newPatterns, HasGuard: row.HasGuard, SourceCase: row.SourceCase})
					break
				}
			}
		}
	}

	newColTypes := append(append([]types.Type{}, subTypes...), matrix.ColumnTypes[1:]...)
	return PatternMatrix{Rows: newRows, ColumnTypes: newColTypes}
}

// specializeDefault mirrors match_exhaustive.py's specialize_default().
func specializeDefault(matrix PatternMatrix) PatternMatrix {
	var newRows []PatternRow
	for _, row := range matrix.Rows {
		if row.Patterns[0].isWildcard() {
			newRows = append(newRows, PatternRow{Patterns: row.Patterns[1:], HasGuard: row.HasGuard, SourceCase: row.SourceCase})
		}
	}
	var newColTypes []types.Type
	if len(matrix.ColumnTypes) > 0 {
		newColTypes = matrix.ColumnTypes[1:]
	}
	return PatternMatrix{Rows: newRows, ColumnTypes: newColTypes}
}

// Normalize converts a surface ast.Pattern into a NormalizedPattern
// against subjectType, mirroring PatternNormalizer.normalize.
func Normalize(p ast.Pattern, subjectType types.Type) NormalizedPattern {
	switch n := p.(type) {
	case *ast.WildcardPattern:
		return WildcardPattern(subjectType)
	case *ast.OrPattern:
		alts := make([]NormalizedPattern, len(n.Alternatives))
		for i, alt := range n.Alternatives {
			alts[i] = Normalize(alt, subjectType)
		}
		return OrPattern(alts, subjectType)
	case *ast.ConstructorPattern:
		return normalizeConstructor(n, subjectType)
	default:
		return WildcardPattern(subjectType)
	}
}

func normalizeConstructor(n *ast.ConstructorPattern, subjectType types.Type) NormalizedPattern {
	switch tt := types.Unwrap(subjectType).(type) {
	case *types.BoolType:
		if n.Name == "True" {
			return ConstructorPattern(1, "True", nil, subjectType)
		}
		return ConstructorPattern(0, "False", nil, subjectType)

	case *types.EnumType:
		i, ok := tt.ByName[n.Name]
		if !ok {
			return WildcardPattern(subjectType)
		}
		v := tt.Variants[i]
		var subs []NormalizedPattern
		if v.Payload != nil && len(n.SubPatterns) >= 1 {
			subs = []NormalizedPattern{Normalize(n.SubPatterns[0], v.Payload)}
		}
		return ConstructorPattern(v.Tag, v.Name, subs, subjectType)

	case *types.StructType:
		subs := make([]NormalizedPattern, len(tt.Fields))
		for i, f := range tt.Fields {
			if i < len(n.SubPatterns) {
				subs[i] = Normalize(n.SubPatterns[i], f.Type)
			} else {
				subs[i] = WildcardPattern(f.Type)
			}
		}
		return ConstructorPattern(0, tt.Name, subs, subjectType)

	default:
		return WildcardPattern(subjectType)
	}
}

// CheckMatch validates node for exhaustiveness against subjectType
// (errors.EXH001) and scans for arms made unreachable by an earlier,
// unconditional arm (errors.EXH002).
func CheckMatch(node *ast.Match, subjectType types.Type) error {
	if err := checkRedundantArms(node, subjectType); err != nil {
		return err
	}

	for _, c := range node.Cases {
		// A bare `_` or a plain variable binding (`case x:`) both match
		// unconditionally, per the original's "both are wildcards for
		// exhaustiveness" rule.
		if _, ok := c.Pattern.(*ast.WildcardPattern); ok && c.Guard == nil {
			return nil
		}
	}

	var rows []PatternRow
	for _, c := range node.Cases {
		normalized := Normalize(c.Pattern, subjectType)
		rows = append(rows, PatternRow{Patterns: []NormalizedPattern{normalized}, HasGuard: c.Guard != nil, SourceCase: c})
	}
	matrix := PatternMatrix{Rows: rows, ColumnTypes: []types.Type{subjectType}}

	exhaustive, uncovered := IsExhaustive(matrix)
	if exhaustive {
		return nil
	}

	msg := "non-exhaustive match statement"
	if len(uncovered) > 0 {
		msg += fmt.Sprintf(": uncovered cases: %v", uncovered)
	}
	hasGuards := false
	for _, c := range node.Cases {
		if c.Guard != nil {
			hasGuards = true
		}
	}
	if hasGuards {
		msg += "; guard conditions are treated as potentially false — add a wildcard case to ensure exhaustiveness"
	}
	return errors.Wrap(errors.New(errors.EXH001, spanOf(node), "%s", msg))
}

// checkRedundantArms flags the two common shapes of unreachable match
// arm: a case following an earlier unconditional wildcard/binding, and a
// case whose top-level constructor duplicates an earlier unconditional
// case's constructor. This is a scoped lint, not a full usefulness
// algorithm — it never flags a guarded arm, since reachability of a
// guarded arm depends on a runtime condition the checker cannot decide.
func checkRedundantArms(node *ast.Match, subjectType types.Type) error {
	seenWildcard := false
	seenTags := map[int64]bool{}
	for _, c := range node.Cases {
		if seenWildcard {
			return errors.Wrap(errors.New(errors.EXH002, spanOf(c.Pattern),
				"match arm is unreachable: an earlier unconditional case already matches every value"))
		}
		normalized := Normalize(c.Pattern, subjectType)
		if normalized.Kind == Constructor && c.Guard == nil && seenTags[normalized.ConstructorTag] {
			return errors.Wrap(errors.New(errors.EXH002, spanOf(c.Pattern),
				"match arm is unreachable: constructor %s already handled by an earlier case", normalized.ConstructorName))
		}
		if normalized.Kind == Constructor && c.Guard == nil {
			seenTags[normalized.ConstructorTag] = true
		}
		if _, ok := c.Pattern.(*ast.WildcardPattern); ok && c.Guard == nil {
			seenWildcard = true
		}
	}
	return nil
}

func spanOf(node ast.Node) *ast.Span {
	pos := node.Position()
	return &ast.Span{Start: pos, End: pos}
}
