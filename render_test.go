package dotweb

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/dotweb/internal/runtime"
)

// renderFragment renders source without the document shell.
func renderFragment(t *testing.T, source string) string {
	t.Helper()
	out, err := New().renderChildren(Parse(source), runtime.NewScope(nil))
	require.NoError(t, err)
	return out
}

func TestRenderComponents(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{
			name: "card with string prop",
			source: `$component Card
  *struct
    div.card
      h3 {$title}
Card
  *title<string> "Hi"`,
			expected: `<div data-component="Card"><div class="card"><h3>Hi</h3></div></div>`,
		},
		{
			name: "block prop sees callee props and slot",
			source: `$component Panel
  *struct
    section
      header
        $header
      $slot
Panel
  *label Hi
  *header<Component>
    h2 {$label}
    $slot
  p Body`,
			expected: `<div data-component="Panel"><section><header><h2>Hi</h2><p>Body</p></header><p>Body</p></section></div>`,
		},
		{
			name: "slot renders against the caller scope",
			source: `$component Box
  *struct
    div.box
      $slot
$component Greeting
  *struct
    Box
      p Hello {$name}
Greeting
  *name World`,
			expected: `<div data-component="Greeting"><div data-component="Box"><div class="box"><p>Hello World</p></div></div></div>`,
		},
		{
			name: "callee does not inherit caller bindings",
			source: `$component Inner
  *struct
    p x{$name}y
$component Outer
  *struct
    Inner
Outer
  *name World`,
			expected: `<div data-component="Outer"><div data-component="Inner"><p>xy</p></div></div>`,
		},
		{
			name: "prop expression evaluated in caller scope",
			source: `$component Count
  *struct
    span {$n}
$component Double
  *struct
    Count
      *n {$value * 2}
Double
  *value<number> 21`,
			expected: `<div data-component="Double"><div data-component="Count"><span>42</span></div></div>`,
		},
		{
			name: "boolean prop in expression",
			source: `$component Flag
  *struct
    span {$on ? "yes" : "no"}
Flag
  *on<boolean> true`,
			expected: `<div data-component="Flag"><span>yes</span></div>`,
		},
		{
			name: "component without struct renders empty",
			source: `$component Ghost
  *style .ghost { display: none; }
Ghost
  *anything<number> not-a-number`,
			expected: ``,
		},
		{
			name: "later definition wins",
			source: `$component Tag
  *struct
    span first
$component Tag
  *struct
    span second
Tag`,
			expected: `<div data-component="Tag"><span>second</span></div>`,
		},
		{
			name: "number prop in modulo and text concatenation",
			source: `$component Counter
  *struct
    span {$count % 2 == 0 ? "even" : "odd"}
    span {"Total: " + $count}
Counter
  *count<number> 4`,
			expected: `<div data-component="Counter"><span>even</span><span>Total: 4</span></div>`,
		},
		{
			name: "multiple slot children are joined",
			source: `$component List
  *struct
    ul
      $slot
List
  li One
  li Two`,
			expected: `<div data-component="List"><ul><li>One</li><li>Two</li></ul></div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renderFragment(t, tt.source))
		})
	}
}

func TestRenderText(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"literal text", "Hello world", "Hello world"},
		{"whole expression", "{1 + 2}", "3"},
		{"interpolated spans", `p {"a" + "b"} and {2 * 3}`, "<p>ab and 6</p>"},
		{"failing span degrades to empty", "p Value: {missing + 1}", "<p>Value: </p>"},
		{"bare missing variable", "$missing", ""},
		{"slot outside a component", "$slot", ""},
		{"top-level directive renders nothing", "*title ignored", ""},
		{"text with children", "Outer\n  p Inner", "Outer<p>Inner</p>"},
		{"host state is unreachable", "p {now()}", "<p></p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renderFragment(t, tt.source))
		})
	}
}

func TestRenderLogsTextFailuresInDebug(t *testing.T) {
	var buf bytes.Buffer
	out, err := Compile("p {missing}", WithDebug(true), WithLogger(log.New(&buf, "", 0)))
	require.NoError(t, err)

	assert.Contains(t, out, "<p></p>")
	assert.Contains(t, buf.String(), "[Compile] line 1:")
	assert.Contains(t, buf.String(), "missing")
}

func TestRenderPropErrors(t *testing.T) {
	component := "$component C\n  *struct\n    p {$v}\nC\n"

	tests := []struct {
		name string
		prop string
		kind ErrorKind
	}{
		{"invalid syntax", "  *<bad>", ErrInvalidPropSyntax},
		{"unknown type", "  *v<weird> 1", ErrInvalidPropSyntax},
		{"block on string prop", "  *v<string>\n    p nested", ErrBlockOnNonComponentProp},
		{"component prop without block", "  *v<Component>", ErrMissingBlockForComponent},
		{"component prop with inline value", "  *v<Component> inline", ErrMissingBlockForComponent},
		{"missing value", "  *v", ErrMissingPropValue},
		{"invalid boolean", "  *v<boolean> yes", ErrInvalidBooleanLiteral},
		{"invalid number", "  *v<number> five", ErrInvalidNumberLiteral},
		{"failing prop expression", "  *v {nope + 1}", ErrExpressionEvaluation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(component + tt.prop)
			require.Error(t, err)
			assert.True(t, IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestRenderInvalidDefinition(t *testing.T) {
	_, err := Compile("$component\n  *struct\n    p x")
	assert.True(t, IsKind(err, ErrInvalidComponentDef))

	_, err = Compile("$component Two Names\n  *struct\n    p x")
	assert.True(t, IsKind(err, ErrInvalidComponentDef))
}

func TestRenderRecursionLimit(t *testing.T) {
	_, err := Compile("$component Loop\n  *struct\n    Loop\nLoop")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrRecursionLimit))
}

func TestParseProp(t *testing.T) {
	caller := runtime.NewScope(map[string]any{"x": 4.0})

	tests := []struct {
		line     string
		typ      PropType
		expected interface{}
	}{
		{`*count<number> 5`, PropNumber, 5.0},
		{`*ratio<number> -0.25`, PropNumber, -0.25},
		{`*on<boolean> true`, PropBoolean, true},
		{`*on<boolean> false`, PropBoolean, false},
		{`*title<string> "Hi there"`, PropString, "Hi there"},
		{`*title<string> 'single'`, PropString, "single"},
		{`*label plain text`, PropAny, "plain text"},
		{`*label "quoted any"`, PropAny, "quoted any"},
		{`*sum {1 + 2}`, PropAny, 3},
		{`*double<number> {$x * 2}`, PropNumber, 8.0},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			prop, err := parseProp(&TreeNode{Value: tt.line}, caller)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, prop.Type)
			assert.Equal(t, tt.expected, prop.Value)
			assert.False(t, prop.IsBlock())
		})
	}
}

func TestParsePropBlock(t *testing.T) {
	node := Parse("*body<Component>\n  p Inside").Children[0]

	prop, err := parseProp(node, runtime.NewScope(nil))
	require.NoError(t, err)
	assert.True(t, prop.IsBlock())
	assert.Equal(t, "body", prop.Key)
	assert.Nil(t, prop.Value)
}

func TestClassify(t *testing.T) {
	reg := NewRegistry()
	reg.Add(&ComponentDefinition{Name: "Card"})

	tests := []struct {
		value string
		kind  NodeKind
	}{
		{"$component Card", KindDefinition},
		{"$slot", KindSlot},
		{"ViewPort", KindBuiltin},
		{"*title X", KindDirective},
		{"Card", KindInvocation},
		{"div.card", KindElement},
		{"Cards", KindText},
		{"{1 + 1}", KindText},
		{"$title", KindText},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.kind, classify(&TreeNode{Value: tt.value}, reg), tt.kind.String())
		})
	}
}

func TestCompileIdempotent(t *testing.T) {
	source := `$component Counter
  *style
    .counter {
      padding: 1rem;
    }
  *class
    constructor
      this.count = 0;
  *struct
    div.counter
      button#inc Count {$start}
Counter
  *start<number> 3`

	first, err := Compile(source)
	require.NoError(t, err)
	second, err := Compile(source)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompilerReuseAccumulates(t *testing.T) {
	c := New()
	_, err := c.Run(Parse("$component A\n  *style .a { color: red; }"))
	require.NoError(t, err)
	_, err = c.Run(Parse("$component B\n  *style .b { color: blue; }"))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, c.Components())
	assert.Len(t, c.Styles(), 4)
}

func TestAnalyze(t *testing.T) {
	source := "$component A\n  *struct\n    p a\n$component B\nA"
	stats := Analyze(source)

	assert.Equal(t, len(source), stats.Characters)
	assert.Equal(t, 5, stats.Lines)
	assert.Equal(t, 2, stats.Components)
}
