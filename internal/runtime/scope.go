package runtime

// SlotKey is the scope entry holding an invocation's rendered slot content.
const SlotKey = "slot"

// Scope is the flat identifier to value mapping visible during one render.
// Values are string, float64, bool, rendered HTML (string) or the slot list
// ([]string). A Scope is never mutated once handed to a renderer; derive a
// new one with With.
type Scope map[string]any

// NewScope returns a scope holding a copy of values.
func NewScope(values map[string]any) Scope {
	s := make(Scope, len(values)+1)
	for k, v := range values {
		s[k] = v
	}
	return s
}

// With returns a copy of s with key set to value.
func (s Scope) With(key string, value any) Scope {
	out := NewScope(s)
	out[key] = value
	return out
}

// Lookup returns the value bound to name.
func (s Scope) Lookup(name string) (any, bool) {
	v, ok := s[name]
	return v, ok
}

// Slot returns the rendered slot fragments, or nil when no slot is bound.
func (s Scope) Slot() []string {
	if v, ok := s[SlotKey].([]string); ok {
		return v
	}
	return nil
}
