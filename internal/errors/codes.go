// Package errors provides the structured error taxonomy shared by every
// compiler phase and by the dependency resolver and installer. All error
// builders return *Report so call sites never
// construct ad hoc error strings for anything a user might act on.
package errors

// Error code constants, one family per phase.
const (
	// Lexical errors (LEX###) -- C1
	LEX001IllegalChar     = "LEX001"
	LEX002UnterminatedStr = "LEX002"
	LEX003BadNumber       = "LEX003"
	LEX004Indentation     = "LEX004"

	// Syntax errors (PAR###) -- C2
	PAR001UnexpectedToken  = "PAR001"
	PAR002MissingDelim     = "PAR002"
	PAR003BadFuncDecl      = "PAR003"
	PAR004BadClassDecl     = "PAR004"
	PAR005BadImport        = "PAR005"
	PAR006BadPattern       = "PAR006"
	PAR007BadTypeAnnot     = "PAR007"

	// Static type errors (TYP###) -- C3
	TYP001Mismatch       = "TYP001"
	TYP002UnboundVar     = "TYP002"
	TYP003NoAttribute    = "TYP003"
	TYP004BudgetExceeded = "TYP004"
	TYP005BadAwait       = "TYP005"

	// Emit errors (EMIT###) -- C4, internal bugs
	EMIT001Internal = "EMIT001"

	// Toolchain errors (TOOL###) -- C6
	TOOL001NotFound   = "TOOL001"
	TOOL002NonZeroExit = "TOOL002"

	// Cache errors (CACHE###) -- C5
	CACHE001CorruptSidecar = "CACHE001"
	CACHE002WriteFailed    = "CACHE002"

	// Resolution errors (RES###) -- C8
	RES001Conflict    = "RES001"
	RES002NotFound    = "RES002"
	RES003IndexError  = "RES003"

	// Download/install errors (DL###, HASH###) -- C9
	DL001Failed         = "DL001"
	HASH001Mismatch     = "HASH001"
	INSTALL001NoManifest = "INSTALL001"

	// Test timeout (TIMEOUT###) -- C6
	TIMEOUT001Exceeded = "TIMEOUT001"
)

// ErrorInfo documents one error code for tooling that wants a human
// description without round-tripping through a Report instance.
type ErrorInfo struct {
	Code        string
	Phase       string
	Category    string
	Description string
}

// Registry maps every code above to its ErrorInfo.
var Registry = map[string]ErrorInfo{
	LEX001IllegalChar:     {LEX001IllegalChar, "lexer", "syntax", "Illegal character"},
	LEX002UnterminatedStr: {LEX002UnterminatedStr, "lexer", "syntax", "Unterminated string literal"},
	LEX003BadNumber:       {LEX003BadNumber, "lexer", "syntax", "Malformed numeric literal"},
	LEX004Indentation:     {LEX004Indentation, "lexer", "indentation", "Inconsistent indentation"},

	PAR001UnexpectedToken: {PAR001UnexpectedToken, "parser", "syntax", "Unexpected token"},
	PAR002MissingDelim:    {PAR002MissingDelim, "parser", "syntax", "Missing closing delimiter"},
	PAR003BadFuncDecl:     {PAR003BadFuncDecl, "parser", "syntax", "Invalid function declaration"},
	PAR004BadClassDecl:    {PAR004BadClassDecl, "parser", "syntax", "Invalid class declaration"},
	PAR005BadImport:       {PAR005BadImport, "parser", "syntax", "Invalid import statement"},
	PAR006BadPattern:      {PAR006BadPattern, "parser", "syntax", "Invalid pattern"},
	PAR007BadTypeAnnot:    {PAR007BadTypeAnnot, "parser", "syntax", "Invalid type annotation"},

	TYP001Mismatch:       {TYP001Mismatch, "typecheck", "type", "Type mismatch"},
	TYP002UnboundVar:     {TYP002UnboundVar, "typecheck", "scope", "Unbound variable"},
	TYP003NoAttribute:    {TYP003NoAttribute, "typecheck", "attribute", "No such attribute on closed class"},
	TYP004BudgetExceeded: {TYP004BudgetExceeded, "typecheck", "inference", "Inference budget exceeded, widened to Any"},
	TYP005BadAwait:       {TYP005BadAwait, "typecheck", "async", "await of a non-coroutine"},

	EMIT001Internal: {EMIT001Internal, "emit", "internal", "Internal emitter error"},

	TOOL001NotFound:    {TOOL001NotFound, "toolchain", "environment", "External toolchain not found on PATH"},
	TOOL002NonZeroExit: {TOOL002NonZeroExit, "toolchain", "process", "External toolchain exited non-zero"},

	CACHE001CorruptSidecar: {CACHE001CorruptSidecar, "cache", "integrity", "Corrupt cache sidecar"},
	CACHE002WriteFailed:    {CACHE002WriteFailed, "cache", "io", "Cache write failed"},

	RES001Conflict:   {RES001Conflict, "resolve", "constraint", "Conflicting requirement chain"},
	RES002NotFound:   {RES002NotFound, "resolve", "lookup", "Package not found in index"},
	RES003IndexError: {RES003IndexError, "resolve", "network", "Package index request failed"},

	DL001Failed:          {DL001Failed, "install", "network", "Wheel download failed"},
	HASH001Mismatch:      {HASH001Mismatch, "install", "integrity", "Hash mismatch"},
	INSTALL001NoManifest: {INSTALL001NoManifest, "install", "integrity", "Missing manifest entry"},

	TIMEOUT001Exceeded: {TIMEOUT001Exceeded, "test", "timeout", "Test exceeded its timeout"},
}

// Lookup returns the ErrorInfo for a code, if registered.
func Lookup(code string) (ErrorInfo, bool) {
	info, ok := Registry[code]
	return info, ok
}

// IsPhase reports whether code belongs to the named phase.
func IsPhase(code, phase string) bool {
	info, ok := Lookup(code)
	return ok && info.Phase == phase
}
