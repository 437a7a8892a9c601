// Package dotweb compiles DotWeb source, an indentation-based component
// language, into a standalone HTML document.
//
// A compile is a pure function of the source text given a fresh Compiler:
// the component registry and the style/script aggregator belong to one
// Compiler and accumulate for its lifetime. Compile creates a new instance per
// call; callers driving a Compiler directly must not reuse it across sources.
package dotweb

import (
	"io"
	"log"
	"regexp"
	"strings"

	"github.com/livetemplate/dotweb/internal/runtime"
)

// Compiler renders one parsed source tree. It is not safe for concurrent use.
type Compiler struct {
	registry *Registry
	assets   *Aggregator
	defaults Metadata
	debug    bool
	logger   *log.Logger
	depth    int // current component invocation nesting
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithDebug enables logging of non-fatal problems such as failed text
// expressions.
func WithDebug(debug bool) Option {
	return func(c *Compiler) {
		c.debug = debug
	}
}

// WithLogger sets the logger used in debug mode.
func WithLogger(l *log.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDocumentDefaults sets metadata used when the source does not declare
// its own (the default shell, and ViewPort props that are absent).
func WithDocumentDefaults(meta Metadata) Option {
	return func(c *Compiler) {
		c.defaults = meta
	}
}

// New creates a Compiler with an empty registry and aggregator.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		registry: NewRegistry(),
		assets:   NewAggregator(),
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.debug && c.logger.Writer() == io.Discard {
		c.logger = log.Default()
	}
	return c
}

// Compile parses and renders source with a fresh Compiler.
func Compile(source string, opts ...Option) (string, error) {
	return New(opts...).Run(Parse(source))
}

// Run renders every top-level node of root and assembles the document. If
// the rendered output already starts with a document type declaration (the
// source used ViewPort) it is returned unchanged.
func (c *Compiler) Run(root *TreeNode) (string, error) {
	body, err := c.renderChildren(root, runtime.NewScope(nil))
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(body, doctype) {
		return body, nil
	}
	return c.assemble(body, c.defaults), nil
}

// Components returns the names of registered components in definition order.
func (c *Compiler) Components() []string {
	return c.registry.Names()
}

// Styles returns the aggregated CSS snippets.
func (c *Compiler) Styles() []string {
	return c.assets.Styles()
}

// Scripts returns the generated behavior scripts.
func (c *Compiler) Scripts() []string {
	return c.assets.Scripts()
}

func (c *Compiler) logf(format string, args ...any) {
	if c.debug {
		c.logger.Printf("[Compile] "+format, args...)
	}
}

// Stats summarizes a source file.
type Stats struct {
	Characters int
	Lines      int
	Components int
}

var componentPattern = regexp.MustCompile(`\$component\s+\w+`)

// Analyze counts characters, lines and component definitions in source.
func Analyze(source string) Stats {
	return Stats{
		Characters: len([]rune(source)),
		Lines:      strings.Count(source, "\n") + 1,
		Components: len(componentPattern.FindAllString(source, -1)),
	}
}
