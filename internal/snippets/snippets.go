// Package snippets extracts DotWeb examples embedded in Markdown documents.
package snippets

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Languages are the fenced code block info strings recognized as DotWeb.
var Languages = []string{"web", "dotweb"}

// Snippet is one fenced DotWeb block.
type Snippet struct {
	Language string
	Flags    []string          // bare words after the language, e.g. "expect-error"
	Metadata map[string]string // key=value pairs after the language
	Content  string
	Line     int // line of the first content line in the document (1-indexed)
}

// ExpectsError reports whether the block is marked as an intentionally
// failing example.
func (s *Snippet) ExpectsError() bool {
	for _, f := range s.Flags {
		if f == "expect-error" {
			return true
		}
	}
	return false
}

// Name returns the id= metadata value, or "line N" when absent.
func (s *Snippet) Name() string {
	if id := s.Metadata["id"]; id != "" {
		return id
	}
	return fmt.Sprintf("line %d", s.Line)
}

// Extract returns the DotWeb fenced blocks of a Markdown document in order.
func Extract(source []byte) ([]*Snippet, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(source))

	var snippets []*Snippet
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if s := parseFence(fenced, source); s != nil {
			snippets = append(snippets, s)
		}
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk AST: %w", err)
	}
	return snippets, nil
}

// parseFence converts a fenced block into a Snippet, or nil if the block is
// not DotWeb. Info string format: "web expect-error id=card".
func parseFence(fenced *ast.FencedCodeBlock, source []byte) *Snippet {
	if fenced.Info == nil {
		return nil
	}
	parts := strings.Fields(string(fenced.Info.Segment.Value(source)))
	if len(parts) == 0 || !isDotWeb(parts[0]) {
		return nil
	}

	s := &Snippet{
		Language: parts[0],
		Metadata: make(map[string]string),
	}
	for _, part := range parts[1:] {
		if k, v, ok := strings.Cut(part, "="); ok {
			s.Metadata[k] = strings.Trim(v, `"'`)
			continue
		}
		s.Flags = append(s.Flags, part)
	}

	var buf bytes.Buffer
	lines := fenced.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	s.Content = buf.String()

	// The info string sits on the opening fence line.
	s.Line = bytes.Count(source[:fenced.Info.Segment.Start], []byte("\n")) + 2
	return s
}

func isDotWeb(lang string) bool {
	for _, l := range Languages {
		if strings.EqualFold(lang, l) {
			return true
		}
	}
	return false
}
