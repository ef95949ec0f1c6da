// Package etag models HTTP entity tags and the strong and weak comparison
// functions of RFC 7232 section 2.3.2.
package etag

import "strings"

// EntityTag is an opaque validator for a representation of a resource.
// The zero value is the strong tag "".
type EntityTag struct {
	Weak  bool
	Value string
}

// New returns a strong entity tag.
func New(value string) EntityTag {
	return EntityTag{Value: value}
}

// NewWeak returns a weak entity tag.
func NewWeak(value string) EntityTag {
	return EntityTag{Weak: true, Value: value}
}

// AsWeak returns a weak copy of the tag.
func (e EntityTag) AsWeak() EntityTag {
	e.Weak = true
	return e
}

// String renders the tag in header form, W/"value" or "value", escaping
// quotes and backslashes inside the value.
func (e EntityTag) String() string {
	var b strings.Builder
	b.Grow(len(e.Value) + 4)
	if e.Weak {
		b.WriteString("W/")
	}
	b.WriteByte('"')
	for i := 0; i < len(e.Value); i++ {
		c := e.Value[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}

// Comparer decides whether two entity tags match.
type Comparer interface {
	Equal(a, b EntityTag) bool
}

// ComparerFunc adapts a function to the Comparer interface.
type ComparerFunc func(a, b EntityTag) bool

// Equal calls f(a, b).
func (f ComparerFunc) Equal(a, b EntityTag) bool { return f(a, b) }

var (
	// Strong matches only when neither tag is weak and the values are equal.
	Strong Comparer = ComparerFunc(func(a, b EntityTag) bool {
		return !a.Weak && !b.Weak && a.Value == b.Value
	})

	// Weak matches when the values are equal, regardless of weakness.
	Weak Comparer = ComparerFunc(func(a, b EntityTag) bool {
		return a.Value == b.Value
	})
)
