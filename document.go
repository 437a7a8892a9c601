package dotweb

import (
	"html"
	"strings"

	"github.com/livetemplate/dotweb/internal/runtime"
)

const doctype = "<!DOCTYPE html>"

// Default document metadata.
const (
	DefaultTitle    = "DotWeb App"
	DefaultLang     = "en"
	DefaultCharset  = "UTF-8"
	DefaultViewport = "width=device-width, initial-scale=1.0"
)

// Metadata is the document information a ViewPort declares through its props.
type Metadata struct {
	Title       string
	Charset     string
	Lang        string
	Viewport    string
	Description string
	Keywords    string
	Author      string
	Styles      []string // stylesheet URLs
	Scripts     []string // script URLs
}

// set assigns a ViewPort prop. Unknown keys are ignored.
func (m *Metadata) set(key, value string) {
	switch key {
	case "title":
		m.Title = value
	case "charset":
		m.Charset = value
	case "lang", "language":
		m.Lang = value
	case "viewport":
		m.Viewport = value
	case "description":
		m.Description = value
	case "keywords":
		m.Keywords = value
	case "author":
		m.Author = value
	case "styles":
		m.Styles = splitList(value)
	case "scripts":
		m.Scripts = splitList(value)
	}
}

// withDefaults fills empty fields from d.
func (m Metadata) withDefaults(d Metadata) Metadata {
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&m.Title, d.Title)
	fill(&m.Charset, d.Charset)
	fill(&m.Lang, d.Lang)
	fill(&m.Viewport, d.Viewport)
	fill(&m.Description, d.Description)
	fill(&m.Keywords, d.Keywords)
	fill(&m.Author, d.Author)
	if m.Styles == nil {
		m.Styles = d.Styles
	}
	if m.Scripts == nil {
		m.Scripts = d.Scripts
	}
	return m
}

func splitList(value string) []string {
	var out []string
	for _, s := range strings.Split(value, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// builtin renders a reserved construct.
func (c *Compiler) builtin(node *TreeNode, scope runtime.Scope) (string, error) {
	switch node.Value {
	case viewPortName:
		return c.viewPort(node, scope)
	}
	return "", nil
}

// viewPort renders a complete document from a ViewPort node. Directive
// children are document metadata props, parsed like component props; a
// *style child adds page-level CSS.
func (c *Compiler) viewPort(node *TreeNode, scope runtime.Scope) (string, error) {
	var meta Metadata
	var body []*TreeNode
	for _, child := range node.Children {
		if !strings.HasPrefix(child.Value, directiveMarker) {
			body = append(body, child)
			continue
		}
		if child.Head() == directiveMarker+"style" {
			c.assets.AddStyle(viewPortName, child)
			continue
		}

		prop, err := parseProp(child, scope)
		if err != nil {
			return "", err
		}
		value := runtime.Stringify(prop.Value)
		if prop.IsBlock() {
			if value, err = c.renderChildren(prop.Block, scope); err != nil {
				return "", err
			}
		}
		meta.set(prop.Key, value)
	}

	content, err := c.renderEach(body, scope)
	if err != nil {
		return "", err
	}
	return c.assemble(strings.Join(content, ""), meta.withDefaults(c.defaults)), nil
}

// assemble wraps body in a document with the aggregated styles and scripts.
// The style and script blocks are omitted when there is nothing to emit.
func (c *Compiler) assemble(body string, meta Metadata) string {
	meta = meta.withDefaults(Metadata{
		Title:    DefaultTitle,
		Charset:  DefaultCharset,
		Lang:     DefaultLang,
		Viewport: DefaultViewport,
	})
	esc := html.EscapeString

	var b strings.Builder
	b.WriteString(doctype + "\n")
	b.WriteString(`<html lang="` + esc(meta.Lang) + `">` + "\n")
	b.WriteString("<head>\n")
	b.WriteString(`  <meta charset="` + esc(meta.Charset) + `">` + "\n")
	b.WriteString(`  <meta name="viewport" content="` + esc(meta.Viewport) + `">` + "\n")
	b.WriteString("  <title>" + esc(meta.Title) + "</title>\n")
	for _, m := range []struct{ name, content string }{
		{"description", meta.Description},
		{"keywords", meta.Keywords},
		{"author", meta.Author},
	} {
		if m.content != "" {
			b.WriteString(`  <meta name="` + m.name + `" content="` + esc(m.content) + `">` + "\n")
		}
	}
	for _, href := range meta.Styles {
		b.WriteString(`  <link rel="stylesheet" href="` + esc(href) + `">` + "\n")
	}
	if styles := c.assets.Styles(); len(styles) > 0 {
		b.WriteString("  <style>\n" + strings.Join(styles, "\n") + "\n  </style>\n")
	}
	for _, src := range meta.Scripts {
		b.WriteString(`  <script src="` + esc(src) + `"></script>` + "\n")
	}
	b.WriteString("</head>\n")
	b.WriteString("<body>\n")
	b.WriteString("  " + body + "\n")
	if scripts := c.assets.Scripts(); len(scripts) > 0 {
		b.WriteString("  <script>\n" + strings.Join(scripts, "\n\n") + "\n  </script>\n")
	}
	b.WriteString("</body>\n")
	b.WriteString("</html>")
	return b.String()
}
