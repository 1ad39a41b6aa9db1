package syntax

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every *Error unwraps to exactly one of these.
var (
	// ErrSyntax indicates a malformed pattern.
	ErrSyntax = errors.New("syntax error")

	// ErrUnsupported indicates valid syntax that the selected engine cannot
	// execute.
	ErrUnsupported = errors.New("unsupported syntax")

	// ErrTemplate indicates a malformed substitution template.
	ErrTemplate = errors.New("template error")

	// ErrUsage indicates a wrong argument at the call site, such as an
	// unknown group or incompatible flags.
	ErrUsage = errors.New("usage error")
)

// Error describes a failure to compile a pattern or a template, or a bad
// call. Pos is a byte offset into Pattern, or -1 when the error has no
// position. Line and Column are set only when Pattern spans several lines.
type Error struct {
	Kind    error
	Msg     string
	Pattern string
	Pos     int
	Line    int
	Column  int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Pos < 0 {
		return e.Msg
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s at position %d (line %d, column %d)", e.Msg, e.Pos, e.Line, e.Column)
	}
	return fmt.Sprintf("%s at position %d", e.Msg, e.Pos)
}

// Unwrap returns the error kind.
func (e *Error) Unwrap() error {
	return e.Kind
}

// newError builds a positioned error, computing line and column when the
// pattern contains a newline.
func newError(kind error, msg, pattern string, pos int) *Error {
	e := &Error{Kind: kind, Msg: msg, Pattern: pattern, Pos: pos}
	if pos >= 0 && strings.Contains(pattern, "\n") {
		if pos > len(pattern) {
			pos = len(pattern)
		}
		e.Line = strings.Count(pattern[:pos], "\n") + 1
		e.Column = pos - strings.LastIndexByte(pattern[:pos], '\n')
	}
	return e
}

// SyntaxErrorf returns a positioned ErrSyntax error.
func SyntaxErrorf(pattern string, pos int, format string, args ...any) *Error {
	return newError(ErrSyntax, fmt.Sprintf(format, args...), pattern, pos)
}

// UnsupportedErrorf returns a positioned ErrUnsupported error.
func UnsupportedErrorf(pattern string, pos int, format string, args ...any) *Error {
	return newError(ErrUnsupported, fmt.Sprintf(format, args...), pattern, pos)
}

// TemplateErrorf returns an ErrTemplate error positioned in the template.
func TemplateErrorf(template string, pos int, format string, args ...any) *Error {
	return newError(ErrTemplate, fmt.Sprintf(format, args...), template, pos)
}

// UsageErrorf returns an ErrUsage error without a position.
func UsageErrorf(format string, args ...any) *Error {
	return usageError(fmt.Sprintf(format, args...))
}

func usageError(msg string) *Error {
	return &Error{Kind: ErrUsage, Msg: msg, Pos: -1}
}
