package dotweb

import (
	"strings"
)

// ComponentDefinition is a named component extracted from a `$component` node.
type ComponentDefinition struct {
	Name   string
	Struct *TreeNode // *struct: the render template
	Style  *TreeNode // *style: block or single-line CSS
	Class  *TreeNode // *class: constructor and method blocks
}

// Registry stores component definitions by name. A later definition
// replaces an earlier one with the same name.
type Registry struct {
	defs  map[string]*ComponentDefinition
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*ComponentDefinition)}
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.defs[name]
	return ok
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (*ComponentDefinition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Names returns registered names in first-definition order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Add inserts or replaces def.
func (r *Registry) Add(def *ComponentDefinition) {
	if _, exists := r.defs[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.defs[def.Name] = def
}

// parseDefinition extracts a ComponentDefinition from a `$component Name` node.
func parseDefinition(node *TreeNode) (*ComponentDefinition, error) {
	fields := strings.Fields(node.Value)
	if len(fields) != 2 {
		return nil, newCompileError(ErrInvalidComponentDef, node,
			"component definition must name exactly one component").
			WithHint("write `$component Name` on its own line")
	}

	def := &ComponentDefinition{Name: fields[1]}
	for _, c := range node.Children {
		switch head := c.Head(); {
		case head == "*struct":
			def.Struct = c
		case head == "*style":
			def.Style = c
		case strings.HasPrefix(head, "*class"):
			def.Class = c
		}
	}
	return def, nil
}

// define registers the component declared by node and feeds its style and
// class sections to the aggregator. Definitions render as nothing.
func (c *Compiler) define(node *TreeNode) (string, error) {
	def, err := parseDefinition(node)
	if err != nil {
		return "", err
	}
	if _, exists := c.registry.Get(def.Name); exists {
		c.logf("component %s redefined at line %d", def.Name, node.Line)
		if def.Class == nil {
			c.assets.RemoveScript(def.Name)
		}
	}
	c.registry.Add(def)

	if def.Style != nil {
		c.assets.AddStyle(def.Name, def.Style)
	}
	if def.Class != nil {
		c.assets.AddScript(def.Name, def.Class)
	}
	return "", nil
}
