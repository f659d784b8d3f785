package diag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/errors"
)

func TestPrintReport_NilIsNoop(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestPrintReport_RendersCodeAndMessage(t *testing.T) {
	var buf bytes.Buffer
	r := errors.New(errors.TYP001, nil, "expected %s, got %s", "i32", "f64")
	PrintReport(&buf, r)
	out := buf.String()
	assert.Contains(t, out, errors.TYP001)
	assert.Contains(t, out, "expected i32, got f64")
}

func TestPrintReport_RendersFix(t *testing.T) {
	var buf bytes.Buffer
	r := errors.New(errors.TYP001, nil, "bad annotation")
	r = r.WithFix("use i32 instead", "i32")
	PrintReport(&buf, r)
	out := buf.String()
	assert.Contains(t, out, "use i32 instead")
	assert.Contains(t, out, "i32")
}

func TestPrintReport_RendersSpan(t *testing.T) {
	var buf bytes.Buffer
	pos := ast.Pos{Line: 3, Column: 5, File: "x.py"}
	r := errors.New(errors.TYP001, &ast.Span{Start: pos, End: pos}, "bad annotation")
	PrintReport(&buf, r)
	assert.Contains(t, buf.String(), pos.String())
}

func TestPrintWarning(t *testing.T) {
	var buf bytes.Buffer
	PrintWarning(&buf, "x.py:4:1", "unused label 'done'")
	out := buf.String()
	assert.Contains(t, out, "warning")
	assert.Contains(t, out, "unused label 'done'")
}

func TestSizeSummary(t *testing.T) {
	p := message.NewPrinter(language.English)
	assert.Equal(t, "1,234,567 bytes", SizeSummary(p, 1234567))
}

func TestTable_AlignsColumns(t *testing.T) {
	out := Table([][2]string{
		{"a", "1"},
		{"longer", "2"},
	})
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "longer")
	assert.Contains(t, out, "1")
	assert.Contains(t, out, "2")
}

func TestDisplayWidth_WideRunesCountDouble(t *testing.T) {
	assert.Equal(t, 3, displayWidth("abc"))
	assert.Equal(t, 4, displayWidth("世界"))
}
