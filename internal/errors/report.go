package errors

import (
	"encoding/json"
	"errors"

	"github.com/ashlang/ashc/internal/ast"
)

// SchemaVersion is the schema tag stamped on every Report.
const SchemaVersion = "ashc.error/v1"

// Fix is an optional suggested remediation, surfaced with --debug.
type Fix struct {
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
}

// Report is the canonical structured error value for ashc. Every phase
// (lexer, parser, type checker, emitter, cache, toolchain, resolver,
// installer) builds one of these instead of an ad hoc error string.
type Report struct {
	Schema  string         `json:"schema"`
	Code    string         `json:"code"`
	Phase   string         `json:"phase"`
	Message string         `json:"message"`
	Span    *ast.Span      `json:"span,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Fix     *Fix           `json:"fix,omitempty"`
}

// ReportError wraps a Report so it survives errors.As() unwrapping.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	return e.Rep.Code + ": " + e.Rep.Message
}

// AsReport extracts a Report from an error chain, if present.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// Wrap turns a Report into an error.
func Wrap(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// New builds a Report from a registered code, a message, and an optional
// span. Panics if code is not in Registry -- every call site should be
// using a constant from codes.go, so an unregistered code is a bug.
func New(code, message string, span *ast.Span) *Report {
	info, ok := Lookup(code)
	if !ok {
		panic("errors: unregistered error code " + code)
	}
	return &Report{
		Schema:  SchemaVersion,
		Code:    code,
		Phase:   info.Phase,
		Message: message,
		Span:    span,
		Data:    map[string]any{},
	}
}

// WithData attaches structured data (e.g. the two conflicting types for a
// TYP001 mismatch) and returns the same Report for chaining.
func (r *Report) WithData(key string, value any) *Report {
	if r.Data == nil {
		r.Data = map[string]any{}
	}
	r.Data[key] = value
	return r
}

// WithFix attaches a suggested fix.
func (r *Report) WithFix(suggestion string, confidence float64) *Report {
	r.Fix = &Fix{Suggestion: suggestion, Confidence: confidence}
	return r
}

// ToJSON renders the report as deterministic JSON. Go's encoding/json
// already emits struct fields in declaration order and map keys sorted
// lexically, which is what makes this deterministic across runs.
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
