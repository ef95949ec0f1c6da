package header

import (
	"errors"
	"strings"

	"github.com/jathurchan/davlock/etag"
)

// Condition is one element of an If header list: an entity tag in brackets
// or a state token in angle brackets, optionally negated with "Not".
// Exactly one of ETag and StateToken is set on a valid condition.
type Condition struct {
	Not        bool
	ETag       *etag.EntityTag
	StateToken string
}

// ETagCondition returns a condition matching tag.
func ETagCondition(not bool, tag etag.EntityTag) Condition {
	return Condition{Not: not, ETag: &tag}
}

// TokenCondition returns a condition matching the state token.
func TokenCondition(not bool, token string) Condition {
	return Condition{Not: not, StateToken: token}
}

// Valid reports whether exactly one validator is set.
func (c Condition) Valid() bool {
	return (c.ETag != nil) != (c.StateToken != "")
}

func (c Condition) String() string {
	if !c.Valid() {
		return ""
	}
	var b strings.Builder
	if c.Not {
		b.WriteString("Not ")
	}
	if c.ETag != nil {
		b.WriteByte('[')
		b.WriteString(c.ETag.String())
		b.WriteByte(']')
	} else {
		b.WriteByte('<')
		b.WriteString(c.StateToken)
		b.WriteByte('>')
	}
	return b.String()
}

func (c Condition) clone() Condition {
	if c.ETag != nil {
		tag := *c.ETag
		c.ETag = &tag
	}
	return c
}

// List is a parenthesized sequence of conditions that must all hold.
type List []Condition

func (l List) String() string {
	parts := make([]string, len(l))
	for i, c := range l {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (l List) clone() List {
	out := make(List, len(l))
	for i, c := range l {
		out[i] = c.clone()
	}
	return out
}

// NoTagList is a list addressed to the request target.
type NoTagList struct {
	List List
}

func (n NoTagList) String() string { return n.List.String() }

// TaggedList is a group of lists addressed to the resource named by
// Reference. The group holds when any of its lists holds.
type TaggedList struct {
	Reference string
	Lists     []List
}

func (t TaggedList) String() string {
	parts := make([]string, 0, len(t.Lists)+1)
	parts = append(parts, "<"+t.Reference+">")
	for _, l := range t.Lists {
		parts = append(parts, l.String())
	}
	return strings.Join(parts, " ")
}

func (t TaggedList) clone() TaggedList {
	lists := make([]List, len(t.Lists))
	for i, l := range t.Lists {
		lists[i] = l.clone()
	}
	return TaggedList{Reference: t.Reference, Lists: lists}
}

// ErrEmptyIfHeader is returned when constructing an IfHeader without entries.
var ErrEmptyIfHeader = errors.New("header: If header must contain at least one list")

// IfHeader is a parsed If header. It holds either no-tag lists or tagged
// lists, never both, and at least one entry. Values are immutable; the
// accessors return copies.
type IfHeader struct {
	noTag  []NoTagList
	tagged []TaggedList
}

// NewNoTagIfHeader builds a header of no-tag lists.
func NewNoTagIfHeader(lists ...NoTagList) (IfHeader, error) {
	if len(lists) == 0 {
		return IfHeader{}, ErrEmptyIfHeader
	}
	h := IfHeader{noTag: make([]NoTagList, len(lists))}
	for i, l := range lists {
		h.noTag[i] = NoTagList{List: l.List.clone()}
	}
	return h, nil
}

// NewTaggedIfHeader builds a header of tagged lists.
func NewTaggedIfHeader(lists ...TaggedList) (IfHeader, error) {
	if len(lists) == 0 {
		return IfHeader{}, ErrEmptyIfHeader
	}
	h := IfHeader{tagged: make([]TaggedList, len(lists))}
	for i, l := range lists {
		h.tagged[i] = l.clone()
	}
	return h, nil
}

// IsTagged reports whether the header consists of tagged lists.
func (h IfHeader) IsTagged() bool {
	return len(h.tagged) > 0
}

// IsZero reports whether h was never populated.
func (h IfHeader) IsZero() bool {
	return len(h.noTag) == 0 && len(h.tagged) == 0
}

// NoTagLists returns a copy of the no-tag entries; nil for tagged headers.
func (h IfHeader) NoTagLists() []NoTagList {
	if h.noTag == nil {
		return nil
	}
	out := make([]NoTagList, len(h.noTag))
	for i, l := range h.noTag {
		out[i] = NoTagList{List: l.List.clone()}
	}
	return out
}

// TaggedLists returns a copy of the tagged entries; nil for no-tag headers.
func (h IfHeader) TaggedLists() []TaggedList {
	if h.tagged == nil {
		return nil
	}
	out := make([]TaggedList, len(h.tagged))
	for i, l := range h.tagged {
		out[i] = l.clone()
	}
	return out
}

// StateTokens returns every state token mentioned in the header, in order
// of appearance, including negated ones.
func (h IfHeader) StateTokens() []string {
	var out []string
	collect := func(l List) {
		for _, c := range l {
			if c.StateToken != "" {
				out = append(out, c.StateToken)
			}
		}
	}
	for _, n := range h.noTag {
		collect(n.List)
	}
	for _, t := range h.tagged {
		for _, l := range t.Lists {
			collect(l)
		}
	}
	return out
}

// String renders the header value.
func (h IfHeader) String() string {
	var parts []string
	for _, n := range h.noTag {
		parts = append(parts, n.String())
	}
	for _, t := range h.tagged {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, " ")
}

// LockTokenHeader is the parsed value of a Lock-Token header.
type LockTokenHeader struct {
	StateToken string
}

// String renders the header value, <token>.
func (h LockTokenHeader) String() string {
	return "<" + h.StateToken + ">"
}
