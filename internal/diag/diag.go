// Package diag renders pythoc's structured error reports
// (internal/errors.Report) and build-summary tables for terminal output,
// following the teacher's cmd/ailang + internal/repl color-function idiom
// (color.New(...).SprintFunc() bound once per style, reused across every
// print site) generalized into a standalone package since pythoc's CLI
// has more than one command that needs to render a Report.
package diag

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/message"
	"golang.org/x/text/width"

	"github.com/pythoc-lang/pythoc/internal/errors"
)

var (
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// init disables color.NoColor's default TTY guess in favor of
// mattn/go-isatty's check against the actual fd pythoc writes to, since
// color's own isatty probe only ever looks at os.Stdout — a CLI that
// writes diagnostics to stderr (as pythoc's error path does) needs its
// own check.
func init() {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		color.NoColor = true
	}
}

// severityLabel maps a Report's category prefix to the word printed
// ahead of its message (spec.md §7's closed error-category set).
func severityLabel(code string) string {
	switch {
	case errors.IsLinearError(code):
		return red("linear error")
	case errors.IsExhaustivenessError(code):
		return red("non-exhaustive match")
	case errors.IsBuildError(code):
		return red("build error")
	case errors.IsTypeError(code):
		return red("type error")
	default:
		return red("error")
	}
}

// PrintReport renders a single *errors.Report to w, one line naming the
// code/location followed by the message and, when present, a suggested
// fix — the same "Error: <message>" + dimmed detail shape
// cmd/ailang/main.go's printParserErrors uses, extended with the
// code/phase/fix fields a Report carries that a bare parser error
// string doesn't.
func PrintReport(w io.Writer, r *errors.Report) {
	if r == nil {
		return
	}
	loc := dim("<no span>")
	if r.Span != nil {
		loc = dim(r.Span.Start.String())
	}
	fmt.Fprintf(w, "%s %s %s: %s\n", loc, severityLabel(r.Code), dim("["+r.Code+"]"), r.Message)
	if r.Fix != nil {
		fmt.Fprintf(w, "  %s %s\n", cyan("fix:"), r.Fix.Description)
		if r.Fix.Replacement != "" {
			fmt.Fprintf(w, "  %s %s\n", dim("replace with:"), r.Fix.Replacement)
		}
	}
}

// PrintWarning renders one of spec.md §7's non-fatal warnings (unused
// label, guard-only shadowed match row) in yellow rather than red,
// distinguishing it from PrintReport's hard-failure rendering at a
// glance.
func PrintWarning(w io.Writer, loc, message string) {
	fmt.Fprintf(w, "%s %s: %s\n", dim(loc), yellow("warning"), message)
}

// SizeSummary renders a thousands-separated byte count for build-size
// reporting. golang.org/x/text/message gives locale-
// aware grouping (1,234,567 in the default/English printer) instead of
// hand-rolling digit-group insertion.
func SizeSummary(p *message.Printer, bytes int64) string {
	return p.Sprintf("%d bytes", bytes)
}

// Table renders rows of (label, value) pairs left-aligned on the label
// column, padding with golang.org/x/text/width's East-Asian-aware rune
// width so a label containing wide characters (an effect or struct name
// transliterated from a non-Latin source identifier) still lines up —
// a plain len()-based pad, as a naive table printer would use, miscounts
// those runes' display width.
func Table(rows [][2]string) string {
	maxLabel := 0
	for _, r := range rows {
		if w := displayWidth(r[0]); w > maxLabel {
			maxLabel = w
		}
	}
	var b strings.Builder
	for _, r := range rows {
		pad := maxLabel - displayWidth(r[0])
		b.WriteString(bold(r[0]))
		b.WriteString(strings.Repeat(" ", pad+2))
		b.WriteString(r[1])
		b.WriteString("\n")
	}
	return b.String()
}

func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}
