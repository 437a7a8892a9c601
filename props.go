package dotweb

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/livetemplate/dotweb/internal/runtime"
)

// PropType is the declared type of a prop line.
type PropType string

const (
	PropAny       PropType = "any"
	PropString    PropType = "string"
	PropNumber    PropType = "number"
	PropBoolean   PropType = "boolean"
	PropComponent PropType = "Component"
)

var propTypes = map[PropType]bool{
	PropAny:       true,
	PropString:    true,
	PropNumber:    true,
	PropBoolean:   true,
	PropComponent: true,
}

// Prop is a parsed `*key<type> value` directive.
type Prop struct {
	Key   string
	Type  PropType
	Value interface{} // inline value; nil for block props
	Block *TreeNode   // nested block of a Component prop, rendered later
}

// IsBlock reports whether the prop defers a block for later rendering.
func (p *Prop) IsBlock() bool {
	return p.Block != nil
}

// propPattern matches the text after the directive marker:
// key, optional <type>, optional inline value.
var propPattern = regexp.MustCompile(`^([a-zA-Z0-9_]+)(?:<([a-zA-Z0-9_]+)>)?(?:\s+(.+))?$`)

// parseProp parses a directive node. Inline `{...}` values are evaluated
// against caller, the scope of the construct using the prop.
func parseProp(node *TreeNode, caller runtime.Scope) (*Prop, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(node.Value, directiveMarker))
	m := propPattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, newCompileError(ErrInvalidPropSyntax, node, "invalid prop syntax: %s", node.Value).
			WithHint("props are written `*key value` or `*key<type> value`")
	}

	key, typ, inline := m[1], PropType(m[2]), m[3]
	if typ == "" {
		typ = PropAny
	}
	if !propTypes[typ] {
		return nil, newCompileError(ErrInvalidPropSyntax, node, "unknown prop type <%s> for %s", typ, key).
			WithHint("supported types are string, number, boolean and Component")
	}

	if len(node.Children) > 0 {
		if typ != PropComponent {
			return nil, newCompileError(ErrBlockOnNonComponentProp, node,
				"block input allowed only for <Component> prop: %s", key).
				WithHint("declare the prop as *" + key + "<Component> or move the value onto the prop line")
		}
		return &Prop{Key: key, Type: typ, Block: node}, nil
	}

	if inline == "" {
		if typ == PropComponent {
			return nil, newCompileError(ErrMissingBlockForComponent, node,
				"block required for <Component> prop: %s", key).
				WithHint("indent the block content beneath the prop line")
		}
		return nil, newCompileError(ErrMissingPropValue, node, "prop %s requires a value", key)
	}

	value := strings.TrimSpace(inline)
	if runtime.IsExpression(value) {
		v, err := runtime.EvalValue(value, caller)
		if err != nil {
			return nil, newCompileError(ErrExpressionEvaluation, node,
				"expression error in prop %s: %v", key, err).WithCause(err)
		}
		return &Prop{Key: key, Type: typ, Value: v}, nil
	}

	switch typ {
	case PropNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, newCompileError(ErrInvalidNumberLiteral, node,
				"invalid number value for %s: %s", key, value).WithCause(err)
		}
		return &Prop{Key: key, Type: typ, Value: n}, nil
	case PropBoolean:
		if value != "true" && value != "false" {
			return nil, newCompileError(ErrInvalidBooleanLiteral, node,
				"invalid boolean value for %s: %s", key, value).
				WithHint("boolean props accept only true or false")
		}
		return &Prop{Key: key, Type: typ, Value: value == "true"}, nil
	case PropComponent:
		return nil, newCompileError(ErrMissingBlockForComponent, node,
			"block required for <Component> prop: %s", key).
			WithHint("indent the block content beneath the prop line")
	default:
		return &Prop{Key: key, Type: typ, Value: unquote(value)}, nil
	}
}

// unquote strips one pair of matching single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
