package dotweb

import (
	"html"
	"strings"

	"github.com/livetemplate/dotweb/internal/runtime"
)

// voidElements never have content or a closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// Attribute is one `key=value` (or bare `key`) entry of an element head.
type Attribute struct {
	Key   string
	Value string
	Bare  bool
}

// ElementHead is the parsed `tag.class#id[attrs]` token of an element line.
type ElementHead struct {
	Tag     string
	Classes []string
	ID      string
	Attrs   []Attribute
}

// ParseElementHead splits an element line into its head and the inline text
// that follows it. The bracketed attribute list may contain spaces.
func ParseElementHead(value string) (ElementHead, string) {
	var head ElementHead

	i := strings.IndexAny(value, ".#[ \t")
	if i < 0 {
		head.Tag = value
		return head, ""
	}
	head.Tag = value[:i]

	// readName consumes an identifier starting at i and returns it.
	readName := func() string {
		start := i
		for i < len(value) && !strings.ContainsRune(".#[ \t", rune(value[i])) {
			i++
		}
		return value[start:i]
	}

	for i < len(value) {
		switch value[i] {
		case '.':
			i++
			if name := readName(); name != "" {
				head.Classes = append(head.Classes, name)
			}
		case '#':
			i++
			head.ID = readName()
		case '[':
			end := strings.IndexByte(value[i:], ']')
			if end < 0 {
				head.Attrs = append(head.Attrs, parseAttributes(value[i+1:])...)
				return head, ""
			}
			head.Attrs = append(head.Attrs, parseAttributes(value[i+1:i+end])...)
			i += end + 1
		default:
			return head, strings.TrimSpace(value[i:])
		}
	}
	return head, ""
}

// parseAttributes splits `k=v,k2=v2` into attributes.
func parseAttributes(list string) []Attribute {
	var attrs []Attribute
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			attrs = append(attrs, Attribute{Key: part, Bare: true})
			continue
		}
		attrs = append(attrs, Attribute{
			Key:   strings.TrimSpace(key),
			Value: unquote(strings.TrimSpace(value)),
		})
	}
	return attrs
}

// element renders an HTML element line: the inline text comes first, then
// the rendered children.
func (c *Compiler) element(node *TreeNode, scope runtime.Scope) (string, error) {
	head, inline := ParseElementHead(node.Value)

	var b strings.Builder
	b.WriteString("<" + head.Tag)
	if len(head.Classes) > 0 {
		b.WriteString(` class="` + html.EscapeString(strings.Join(head.Classes, " ")) + `"`)
	}
	if head.ID != "" {
		b.WriteString(` id="` + html.EscapeString(head.ID) + `"`)
	}
	for _, a := range head.Attrs {
		if a.Bare {
			b.WriteString(" " + html.EscapeString(a.Key))
			continue
		}
		v := c.interpolate(node, a.Value, scope)
		b.WriteString(" " + html.EscapeString(a.Key) + `="` + strings.ReplaceAll(v, `"`, "&quot;") + `"`)
	}
	b.WriteString(">")

	if voidElements[head.Tag] {
		return b.String(), nil
	}

	if inline != "" {
		b.WriteString(c.interpolate(node, inline, scope))
	}
	children, err := c.renderChildren(node, scope)
	if err != nil {
		return "", err
	}
	b.WriteString(children)
	b.WriteString("</" + head.Tag + ">")
	return b.String(), nil
}
