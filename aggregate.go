package dotweb

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Aggregator collects the CSS and behavior scripts declared by component
// definitions. Styles are an insertion-ordered set: a snippet whose text was
// already added is dropped. Scripts hold one entry per behavior class; a
// redefinition replaces the earlier script in place.
type Aggregator struct {
	styles      []string
	seen        map[string]bool
	scripts     []string
	scriptIndex map[string]int // behavior class name -> position in scripts
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{seen: make(map[string]bool), scriptIndex: make(map[string]int)}
}

// Styles returns the unique CSS snippets in insertion order.
func (a *Aggregator) Styles() []string {
	return append([]string(nil), a.styles...)
}

// Scripts returns the generated behavior scripts in definition order.
func (a *Aggregator) Scripts() []string {
	return append([]string(nil), a.scripts...)
}

// addStyleText adds one snippet unless an identical one is present.
func (a *Aggregator) addStyleText(css string) {
	if css == "" || a.seen[css] {
		return
	}
	a.seen[css] = true
	a.styles = append(a.styles, css)
}

// AddStyle records the CSS of a *style section owned by name. A block
// section contributes one snippet per CSS rule; a single-line section
// contributes its inline text.
func (a *Aggregator) AddStyle(name string, style *TreeNode) {
	a.addStyleText(fmt.Sprintf("/* Styles for %s */", name))

	if len(style.Children) == 0 {
		a.addStyleText(style.Rest())
		return
	}

	var lines []string
	style.Walk(func(n *TreeNode, _ int) {
		lines = append(lines, n.Value)
	})
	for _, rule := range groupRules(lines) {
		a.addStyleText(rule)
	}
}

// groupRules joins CSS lines into rule snippets, closing a snippet whenever
// its braces balance. Lines inside a rule are indented by brace depth.
func groupRules(lines []string) []string {
	var rules []string
	var current []string
	depth := 0

	for _, line := range lines {
		level := depth
		if strings.HasPrefix(line, "}") {
			level--
		}
		current = append(current, strings.Repeat("  ", max(level, 0))+line)

		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth <= 0 {
			rules = append(rules, strings.Join(current, "\n"))
			current = nil
			depth = 0
		}
	}
	if len(current) > 0 {
		rules = append(rules, strings.Join(current, "\n"))
	}
	return rules
}

// AddScript synthesizes the behavior class for a *class section owned by
// name, plus the snippet that instantiates it for every element tagged
// data-component="name" once the page is ready.
func (a *Aggregator) AddScript(name string, class *TreeNode) {
	className := behaviorClassName(name)

	var b strings.Builder
	fmt.Fprintf(&b, "class %s {\n", className)
	for _, member := range class.Children {
		switch {
		case member.Value == "constructor":
			b.WriteString("  constructor(element) {\n")
			writeBody(&b, member, 4)
			b.WriteString("  }\n")
		case strings.Contains(member.Value, "(") && strings.Contains(member.Value, ")") &&
			!strings.HasSuffix(member.Value, "{"):
			fmt.Fprintf(&b, "  %s {\n", member.Value)
			writeBody(&b, member, 4)
			b.WriteString("  }\n")
		default:
			fmt.Fprintf(&b, "  %s\n", member.Value)
			writeBody(&b, member, 4)
		}
	}
	b.WriteString("}\n\n")
	b.WriteString("document.addEventListener('DOMContentLoaded', () => {\n")
	fmt.Fprintf(&b, "  document.querySelectorAll('[data-component=\"%s\"]').forEach(el => {\n", name)
	fmt.Fprintf(&b, "    new %s(el);\n", className)
	b.WriteString("  });\n")
	b.WriteString("});")

	if i, ok := a.scriptIndex[className]; ok {
		a.scripts[i] = b.String()
		return
	}
	a.scriptIndex[className] = len(a.scripts)
	a.scripts = append(a.scripts, b.String())
}

// RemoveScript drops the behavior script of name, if any.
func (a *Aggregator) RemoveScript(name string) {
	className := behaviorClassName(name)
	i, ok := a.scriptIndex[className]
	if !ok {
		return
	}
	a.scripts = append(a.scripts[:i], a.scripts[i+1:]...)
	delete(a.scriptIndex, className)
	for k, j := range a.scriptIndex {
		if j > i {
			a.scriptIndex[k] = j - 1
		}
	}
}

// writeBody copies the statement lines beneath member verbatim, indented by
// their nesting depth.
func writeBody(b *strings.Builder, member *TreeNode, indent int) {
	member.Walk(func(n *TreeNode, depth int) {
		b.WriteString(strings.Repeat(" ", indent+2*depth))
		b.WriteString(n.Value)
		b.WriteByte('\n')
	})
}

// behaviorClassName turns "card" or "Card" into "CardComponent".
func behaviorClassName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:] + "Component"
}
