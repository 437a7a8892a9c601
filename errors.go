package dotweb

import (
	"errors"
	"fmt"
	"html"
	"strings"
)

// ErrorKind classifies compile failures.
type ErrorKind string

const (
	ErrInvalidPropSyntax        ErrorKind = "invalid-prop-syntax"
	ErrBlockOnNonComponentProp  ErrorKind = "block-on-non-component-prop"
	ErrMissingBlockForComponent ErrorKind = "missing-block-for-component-prop"
	ErrMissingPropValue         ErrorKind = "missing-prop-value"
	ErrInvalidBooleanLiteral    ErrorKind = "invalid-boolean-literal"
	ErrInvalidNumberLiteral     ErrorKind = "invalid-number-literal"
	ErrExpressionEvaluation     ErrorKind = "expression-evaluation"
	ErrInvalidComponentDef      ErrorKind = "invalid-component-definition"
	ErrRecursionLimit           ErrorKind = "component-recursion"
)

// CompileError represents a compile failure with source context.
type CompileError struct {
	Kind    ErrorKind
	Line    int    // Source line (1-indexed, 0 when unknown)
	Message string // Error message
	Code    string // Offending source line
	Hint    string // Helpful suggestion
	Err     error  // Underlying cause, if any
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// Format returns a multi-line message with the offending line and hint.
func (e *CompileError) Format() string {
	var b strings.Builder

	if e.Line > 0 {
		b.WriteString(fmt.Sprintf("❌ Line %d: %s\n", e.Line, e.Message))
	} else {
		b.WriteString(fmt.Sprintf("❌ %s\n", e.Message))
	}

	if e.Code != "" {
		prefix := "   | "
		if e.Line > 0 {
			prefix = fmt.Sprintf("  %2d | ", e.Line)
		}
		b.WriteString("\n" + prefix + e.Code + "\n")
	}

	if e.Hint != "" {
		b.WriteString(fmt.Sprintf("\n💡 Tip: %s\n", e.Hint))
	}

	return b.String()
}

// newCompileError creates a CompileError located at node.
func newCompileError(kind ErrorKind, node *TreeNode, format string, args ...any) *CompileError {
	e := &CompileError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
	if node != nil {
		e.Line = node.Line
		e.Code = node.Value
	}
	return e
}

// WithHint adds a helpful hint to the error.
func (e *CompileError) WithHint(hint string) *CompileError {
	e.Hint = hint
	return e
}

// WithCause records the underlying error.
func (e *CompileError) WithCause(err error) *CompileError {
	e.Err = err
	return e
}

// IsKind reports whether err is a CompileError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Kind == kind
}

// ErrorPage renders a standalone HTML document describing a failed compile.
func ErrorPage(err error) string {
	msg := err.Error()
	detail := ""
	var ce *CompileError
	if errors.As(err, &ce) {
		detail = ce.Format()
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n  <meta charset=\"UTF-8\">\n")
	b.WriteString("  <title>DotWeb Error</title>\n")
	b.WriteString("  <style>body{font-family:-apple-system,BlinkMacSystemFont,sans-serif;padding:2rem;background:#fee;color:#c00}")
	b.WriteString("pre{background:#fff;padding:1rem;border-radius:0.5rem;overflow:auto}</style>\n")
	b.WriteString("</head>\n<body>\n  <h1>DotWeb Compile Error</h1>\n")
	b.WriteString("  <p><strong>" + html.EscapeString(msg) + "</strong></p>\n")
	if detail != "" {
		b.WriteString("  <pre>" + html.EscapeString(detail) + "</pre>\n")
	}
	b.WriteString("</body>\n</html>")
	return b.String()
}
