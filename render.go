package dotweb

import (
	"fmt"
	"strings"

	"github.com/livetemplate/dotweb/internal/runtime"
)

// maxInvocationDepth bounds nested component invocations so that a
// component using itself fails the compile instead of exhausting the stack.
const maxInvocationDepth = 200

// render dispatches node on its kind.
func (c *Compiler) render(node *TreeNode, scope runtime.Scope) (string, error) {
	switch classify(node, c.registry) {
	case KindDefinition:
		return c.define(node)
	case KindSlot:
		return strings.Join(scope.Slot(), ""), nil
	case KindBuiltin:
		return c.builtin(node, scope)
	case KindDirective:
		return "", nil
	case KindInvocation:
		return c.invoke(node, scope)
	case KindElement:
		return c.element(node, scope)
	default:
		return c.text(node, scope)
	}
}

// renderChildren renders node's children in order and concatenates them.
func (c *Compiler) renderChildren(node *TreeNode, scope runtime.Scope) (string, error) {
	parts, err := c.renderEach(node.Children, scope)
	if err != nil {
		return "", err
	}
	return strings.Join(parts, ""), nil
}

func (c *Compiler) renderEach(nodes []*TreeNode, scope runtime.Scope) ([]string, error) {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out, err := c.render(n, scope)
		if err != nil {
			return nil, err
		}
		parts = append(parts, out)
	}
	return parts, nil
}

// invoke renders a use of a registered component.
//
// Directive children become props and the rest is slot content. Slot content
// is rendered against the caller's scope; block props are rendered afterwards
// against the invocation scope, so they can use sibling props and the slot.
func (c *Compiler) invoke(node *TreeNode, caller runtime.Scope) (string, error) {
	def, _ := c.registry.Get(node.Value)
	if def.Struct == nil {
		return "", nil
	}

	if c.depth >= maxInvocationDepth {
		return "", newCompileError(ErrRecursionLimit, node,
			"component %s nested more than %d levels deep", def.Name, maxInvocationDepth).
			WithHint("a component must not invoke itself, directly or through another component")
	}
	c.depth++
	defer func() { c.depth-- }()

	values := make(map[string]interface{})
	var blocks []*Prop
	var slotNodes []*TreeNode
	for _, child := range node.Children {
		if !strings.HasPrefix(child.Value, directiveMarker) {
			slotNodes = append(slotNodes, child)
			continue
		}
		prop, err := parseProp(child, caller)
		if err != nil {
			return "", err
		}
		if prop.IsBlock() {
			blocks = append(blocks, prop)
		} else {
			values[prop.Key] = prop.Value
		}
	}

	slot, err := c.renderEach(slotNodes, caller)
	if err != nil {
		return "", err
	}
	scope := runtime.NewScope(values).With(runtime.SlotKey, slot)

	for _, p := range blocks {
		out, err := c.renderChildren(p.Block, scope)
		if err != nil {
			return "", err
		}
		scope = scope.With(p.Key, out)
	}

	content, err := c.renderChildren(def.Struct, scope)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`<div data-component="%s">%s</div>`, def.Name, content), nil
}

// text renders a literal or expression line followed by its children. A
// failing expression renders as empty text.
func (c *Compiler) text(node *TreeNode, scope runtime.Scope) (string, error) {
	out := c.interpolate(node, node.Value, scope)
	children, err := c.renderChildren(node, scope)
	if err != nil {
		return "", err
	}
	return out + children, nil
}

// interpolate evaluates text in a decorative context, where failures are
// logged and degrade to empty substitutions.
func (c *Compiler) interpolate(node *TreeNode, text string, scope runtime.Scope) string {
	out, err := runtime.Interpolate(text, scope)
	if err != nil {
		c.logf("line %d: %v", node.Line, err)
	}
	return out
}
