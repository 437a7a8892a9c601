// Package runtime evaluates the expressions embedded in DotWeb source.
//
// Expressions appear in two forms: a whole value such as `{count + 1}` (used
// for prop values and pure-expression text lines) and interpolation, where
// `{...}` spans are substituted inside literal text. Identifiers may carry the
// `$` binding marker; `$title` and `title` name the same scope entry.
//
// Evaluation is sandboxed: the environment is exactly the supplied Scope.
// Names outside it are rejected at compile time and nothing from the host
// process is reachable.
package runtime

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// bindingPattern matches `$name` references inside an expression.
var bindingPattern = regexp.MustCompile(`\$([a-zA-Z0-9_]+)`)

// spanPattern matches `{...}` expression spans in text.
var spanPattern = regexp.MustCompile(`\{([^}]+)\}`)

// variablePattern matches a bare `$name` reference.
var variablePattern = regexp.MustCompile(`^\$([a-zA-Z0-9_]+)$`)

// operators lets `+` join text with numbers and booleans, and `%` take
// float operands. Number props are float64, which expr-lang's `%` rejects.
var operators = []expr.Option{
	expr.Function("joinText",
		func(params ...any) (any, error) {
			return Stringify(params[0]) + Stringify(params[1]), nil
		},
		new(func(string, int) string),
		new(func(string, float64) string),
		new(func(string, bool) string),
		new(func(int, string) string),
		new(func(float64, string) string),
		new(func(bool, string) string),
	),
	expr.Function("modulo",
		func(params ...any) (any, error) {
			a, b := toFloat(params[0]), toFloat(params[1])
			if b == 0 {
				return nil, errors.New("modulo by zero")
			}
			return math.Mod(a, b), nil
		},
		new(func(float64, float64) float64),
		new(func(float64, int) float64),
		new(func(int, float64) float64),
	),
	expr.Operator("+", "joinText"),
	expr.Operator("%", "modulo"),
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

// EvalError reports a failed expression.
type EvalError struct {
	Expr string
	Err  error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("expression %q: %v", e.Expr, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// Eval evaluates a single expression against scope and returns its value.
func Eval(expression string, scope Scope) (interface{}, error) {
	code := strings.TrimSpace(bindingPattern.ReplaceAllString(expression, "$1"))
	if code == "" {
		return nil, &EvalError{Expr: expression, Err: errors.New("empty expression")}
	}

	env := map[string]interface{}(NewScope(scope))
	opts := append([]expr.Option{expr.Env(env), expr.DisableBuiltin("now")}, operators...)
	program, err := expr.Compile(code, opts...)
	if err != nil {
		return nil, &EvalError{Expr: expression, Err: err}
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return nil, &EvalError{Expr: expression, Err: err}
	}
	return out, nil
}

// IsExpression reports whether text is exactly one `{...}` span.
func IsExpression(text string) bool {
	text = strings.TrimSpace(text)
	loc := spanPattern.FindStringIndex(text)
	return loc != nil && loc[0] == 0 && loc[1] == len(text)
}

// EvalValue evaluates a whole-value `{...}` expression, returning a typed value.
func EvalValue(text string, scope Scope) (interface{}, error) {
	text = strings.TrimSpace(text)
	if !IsExpression(text) {
		return nil, &EvalError{Expr: text, Err: errors.New("not a {...} expression")}
	}
	return Eval(text[1:len(text)-1], scope)
}

// Interpolate renders text against scope. It handles a whole `{...}` value,
// text containing `{...}` spans, and a bare `$name` reference; anything else is
// returned as is. A failing span is replaced by empty text and its error is
// returned alongside the rendered result.
func Interpolate(text string, scope Scope) (string, error) {
	text = strings.TrimSpace(text)

	if strings.Contains(text, "{") {
		var errs []error
		out := spanPattern.ReplaceAllStringFunc(text, func(span string) string {
			v, err := Eval(span[1:len(span)-1], scope)
			if err != nil {
				errs = append(errs, err)
				return ""
			}
			return Stringify(v)
		})
		return out, errors.Join(errs...)
	}

	if m := variablePattern.FindStringSubmatch(text); m != nil {
		return Stringify(Resolve(m[1], scope)), nil
	}

	return text, nil
}

// Resolve looks name up in scope, returning nil when it is absent.
func Resolve(name string, scope Scope) interface{} {
	v, _ := scope.Lookup(strings.TrimPrefix(name, "$"))
	return v
}

// Stringify converts an evaluated value to the text placed in the document.
func Stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []string:
		return strings.Join(val, "")
	case []interface{}:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = Stringify(item)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprintf("%v", val)
	}
}
