package errors

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/ast"
)

// Report is the canonical structured error type raised by every pythoc
// compiler phase. All error constructors return *Report, which is wrapped
// as a ReportError so it survives errors.As() unwrapping across package
// boundaries.
type Report struct {
	Schema  string         `json:"schema"` // always "pythoc.error/v1"
	Code    string         `json:"code"`
	Phase   string         `json:"phase"`
	Message string         `json:"message"`
	Span    *ast.Span      `json:"span,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Fix     *Fix           `json:"fix,omitempty"`
}

// Fix is an optional suggested remediation attached to a Report.
type Fix struct {
	Description string `json:"description"`
	Replacement string `json:"replacement,omitempty"`
}

// ReportError wraps a Report as a Go error.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown pythoc error"
	}
	if e.Rep.Span != nil {
		return fmt.Sprintf("%s: %s: %s", e.Rep.Span.Start, e.Rep.Code, e.Rep.Message)
	}
	return fmt.Sprintf("%s: %s", e.Rep.Code, e.Rep.Message)
}

// AsReport extracts a Report from an error chain, if present.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// Wrap wraps a Report as an error. Call sites should return errors.Wrap(r)
// so the structure survives across interfaces that only deal in `error`.
func Wrap(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// New constructs a Report for the given code, filling in phase/category
// from the Registry and attaching an optional source span.
func New(code string, span *ast.Span, format string, args ...any) *Report {
	info, _ := GetInfo(code)
	return &Report{
		Schema:  "pythoc.error/v1",
		Code:    code,
		Phase:   info.Phase,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
		Data:    map[string]any{},
	}
}

// WithData attaches structured data to a Report and returns it for chaining.
func (r *Report) WithData(key string, value any) *Report {
	if r.Data == nil {
		r.Data = map[string]any{}
	}
	r.Data[key] = value
	return r
}

// WithFix attaches a suggested fix and returns the Report for chaining.
func (r *Report) WithFix(description, replacement string) *Report {
	r.Fix = &Fix{Description: description, Replacement: replacement}
	return r
}

// ToJSON renders the report as JSON, indented unless compact is requested.
func (r *Report) ToJSON(compact bool) (string, error) {
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
