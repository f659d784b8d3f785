package ast

import (
	"fmt"
	"strings"
)

// Dump renders a statement list as an indented tree for diagnostics and
// debugging. Mirrors the teacher's
// internal/ast/print.go indentation idiom rather than attempting to
// reproduce the original surface syntax.
func Dump(stmts []Stmt) string {
	var b strings.Builder
	for _, s := range stmts {
		dumpStmt(&b, s, 0)
	}
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
}

func dumpStmt(b *strings.Builder, s Stmt, depth int) {
	indent(b, depth)
	switch n := s.(type) {
	case *If:
		fmt.Fprintf(b, "If @ %s\n", n.Pos)
		for _, st := range n.Body {
			dumpStmt(b, st, depth+1)
		}
		if len(n.Orelse) > 0 {
			indent(b, depth)
			b.WriteString("Else\n")
			for _, st := range n.Orelse {
				dumpStmt(b, st, depth+1)
			}
		}
	case *While:
		fmt.Fprintf(b, "While @ %s\n", n.Pos)
		for _, st := range n.Body {
			dumpStmt(b, st, depth+1)
		}
	case *For:
		fmt.Fprintf(b, "For @ %s\n", n.Pos)
		for _, st := range n.Body {
			dumpStmt(b, st, depth+1)
		}
	case *With:
		fmt.Fprintf(b, "With @ %s\n", n.Pos)
		for _, st := range n.Body {
			dumpStmt(b, st, depth+1)
		}
	case *Match:
		fmt.Fprintf(b, "Match @ %s\n", n.Pos)
		for _, c := range n.Cases {
			indent(b, depth+1)
			fmt.Fprintf(b, "case %s:\n", c.Pattern)
			for _, st := range c.Body {
				dumpStmt(b, st, depth+2)
			}
		}
	case *FunctionDef:
		fmt.Fprintf(b, "FunctionDef %s @ %s\n", n.Name, n.Pos)
		for _, st := range n.Body {
			dumpStmt(b, st, depth+1)
		}
	default:
		fmt.Fprintf(b, "%s @ %s\n", s, s.Position())
	}
}
