package dotweb

import "strings"

// NodeKind identifies how a tree node is rendered.
type NodeKind int

const (
	KindDefinition NodeKind = iota // $component Name
	KindSlot                       // $slot
	KindBuiltin                    // ViewPort
	KindDirective                  // *key ..., consumed by the parent
	KindInvocation                 // name of a registered component
	KindElement                    // lowercase tag
	KindText                       // text or expression
)

func (k NodeKind) String() string {
	switch k {
	case KindDefinition:
		return "definition"
	case KindSlot:
		return "slot"
	case KindBuiltin:
		return "builtin"
	case KindDirective:
		return "directive"
	case KindInvocation:
		return "invocation"
	case KindElement:
		return "element"
	default:
		return "text"
	}
}

const (
	definitionMarker = "$component"
	slotMarker       = "$slot"
	directiveMarker  = "*"
	viewPortName     = "ViewPort"
)

// builtins are reserved names handled natively rather than via the registry.
var builtins = map[string]bool{
	viewPortName: true,
}

// classify determines a node's kind. Checks run in priority order, so a
// registered component can never shadow a directive or a built-in.
func classify(node *TreeNode, reg *Registry) NodeKind {
	v := node.Value
	switch {
	case node.Head() == definitionMarker:
		return KindDefinition
	case v == slotMarker:
		return KindSlot
	case builtins[v]:
		return KindBuiltin
	case strings.HasPrefix(v, directiveMarker):
		return KindDirective
	case reg.Has(v):
		return KindInvocation
	case v[0] >= 'a' && v[0] <= 'z':
		return KindElement
	default:
		return KindText
	}
}
