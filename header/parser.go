package header

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/jathurchan/davlock/etag"
)

// Header names used in syntax errors.
const (
	NameIf        = "If"
	NameLockToken = "Lock-Token"
	NameETag      = "ETag"
	NameTimeout   = "Timeout"
	NameDepth     = "Depth"
)

// ParseIf parses an If header value (RFC 4918 section 10.4).
//
//	If          = "If" ":" ( 1*No-tag-list | 1*Tagged-list )
//	No-tag-list = List
//	Tagged-list = Resource-Tag 1*List
//	List        = "(" 1*Condition ")"
//	Condition   = ["Not"] (State-token | "[" entity-tag "]")
//
// Whitespace is allowed between all terms. The whole input must be
// consumed, and a header may not mix tagged and untagged lists.
func ParseIf(s string) (IfHeader, error) {
	sc := newScanner(NameIf, s)
	sc.skipSpace()

	switch sc.peek() {
	case '(':
		var lists []NoTagList
		for {
			sc.skipSpace()
			if sc.eof() {
				break
			}
			if sc.peek() == '<' {
				return IfHeader{}, sc.errorf("tagged list cannot follow a no-tag list")
			}
			l, err := sc.list()
			if err != nil {
				return IfHeader{}, err
			}
			lists = append(lists, NoTagList{List: l})
		}
		return IfHeader{noTag: lists}, nil

	case '<':
		var tagged []TaggedList
		for {
			sc.skipSpace()
			if sc.eof() {
				break
			}
			t, err := sc.taggedList()
			if err != nil {
				return IfHeader{}, err
			}
			tagged = append(tagged, t)
		}
		return IfHeader{tagged: tagged}, nil

	case 0:
		return IfHeader{}, sc.errorf("empty header")

	default:
		return IfHeader{}, sc.errorf("expected '<' (resource tag) or '(' (list)")
	}
}

// ParseLockToken parses a Lock-Token header value, a single Coded-URL.
func ParseLockToken(s string) (LockTokenHeader, error) {
	sc := newScanner(NameLockToken, s)
	token, err := sc.stateToken()
	if err != nil {
		return LockTokenHeader{}, err
	}
	if err := sc.end(); err != nil {
		return LockTokenHeader{}, err
	}
	return LockTokenHeader{StateToken: token}, nil
}

// ParseEntityTag parses exactly one entity tag.
func ParseEntityTag(s string) (etag.EntityTag, error) {
	sc := newScanner(NameETag, s)
	tag, err := sc.entityTag()
	if err != nil {
		return etag.EntityTag{}, err
	}
	if err := sc.end(); err != nil {
		return etag.EntityTag{}, err
	}
	return tag, nil
}

// ParseEntityTags parses a whitespace-separated list of entity tags. An
// empty input yields an empty list.
func ParseEntityTags(s string) ([]etag.EntityTag, error) {
	sc := newScanner(NameETag, s)
	var tags []etag.EntityTag
	for {
		sc.skipSpace()
		if sc.eof() {
			return tags, nil
		}
		tag, err := sc.entityTag()
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
}

func (s *scanner) list() (List, error) {
	if err := s.expect('(', "list"); err != nil {
		return nil, err
	}
	var l List
	for {
		s.skipSpace()
		switch {
		case s.peek() == ')':
			if len(l) == 0 {
				return nil, s.errorf("expected at least one condition")
			}
			s.pos++
			return l, nil
		case s.eof():
			return nil, s.errorf("expected ')' (list)")
		}
		c, err := s.condition()
		if err != nil {
			return nil, err
		}
		l = append(l, c)
	}
}

func (s *scanner) taggedList() (TaggedList, error) {
	ref, err := s.codedURL("resource tag")
	if err != nil {
		return TaggedList{}, err
	}
	if ref == "" {
		return TaggedList{}, s.errorf("empty resource tag")
	}
	t := TaggedList{Reference: ref}
	for {
		s.skipSpace()
		if s.peek() != '(' {
			break
		}
		l, err := s.list()
		if err != nil {
			return TaggedList{}, err
		}
		t.Lists = append(t.Lists, l)
	}
	if len(t.Lists) == 0 {
		return TaggedList{}, s.errorf("expected '(' (list) after resource tag")
	}
	if !s.eof() && s.peek() != '<' {
		return TaggedList{}, s.errorf("expected '<' (resource tag)")
	}
	return t, nil
}

func (s *scanner) condition() (Condition, error) {
	var c Condition
	if s.consume("Not") {
		c.Not = true
		s.skipSpace()
	}
	switch s.peek() {
	case '[':
		s.pos++
		tag, err := s.entityTag()
		if err != nil {
			return Condition{}, err
		}
		if err := s.expect(']', "entity tag condition"); err != nil {
			return Condition{}, err
		}
		c.ETag = &tag
	case '<':
		token, err := s.stateToken()
		if err != nil {
			return Condition{}, err
		}
		c.StateToken = token
	default:
		return Condition{}, s.errorf("expected '[' (entity tag) or '<' (state token)")
	}
	return c, nil
}

// codedURL reads "<...>" and returns the trimmed contents.
func (s *scanner) codedURL(what string) (string, error) {
	if err := s.expect('<', what); err != nil {
		return "", err
	}
	end := strings.IndexByte(s.src[s.pos:], '>')
	if end < 0 {
		return "", s.errorAt(len(s.src), "expected '>' (%s)", what)
	}
	v := strings.TrimSpace(s.src[s.pos : s.pos+end])
	s.pos += end + 1
	return v, nil
}

// stateToken reads a Coded-URL whose contents must be an absolute URI.
func (s *scanner) stateToken() (string, error) {
	start := s.pos
	v, err := s.codedURL("state token")
	if err != nil {
		return "", err
	}
	u, perr := url.Parse(v)
	if perr != nil || u.Scheme == "" {
		return "", s.errorAt(start, "state token %q is not an absolute URI", v)
	}
	return v, nil
}

func (s *scanner) entityTag() (etag.EntityTag, error) {
	s.skipSpace()
	weak := s.consume("W/")
	value, err := s.quotedString()
	if err != nil {
		return etag.EntityTag{}, err
	}
	return etag.EntityTag{Weak: weak, Value: value}, nil
}

func (s *scanner) quotedString() (string, error) {
	if err := s.expect('"', "starting quote"); err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		if s.eof() {
			return "", s.errorf("expected '\"' (ending quote)")
		}
		c := s.src[s.pos]
		s.pos++
		switch c {
		case '"':
			return b.String(), nil
		case '\\':
			if err := s.escape(&b); err != nil {
				return "", err
			}
		default:
			b.WriteByte(c)
		}
	}
}

var simpleEscapes = map[byte]byte{
	'a': '\a', 'b': '\b', 'e': 0x1b, 'f': '\f',
	'n': '\n', 'r': '\r', 't': '\t', 'v': '\v',
}

// escape decodes the escape sequence following a backslash. \xHH and \uHHHH
// take exactly two and four hex digits. Any other letter or digit is an
// error; other characters stand for themselves.
func (s *scanner) escape(b *strings.Builder) error {
	start := s.pos - 1
	if s.eof() {
		return s.errorAt(start, "unterminated escape sequence")
	}
	c := s.src[s.pos]
	s.pos++
	if r, ok := simpleEscapes[c]; ok {
		b.WriteByte(r)
		return nil
	}
	switch {
	case c == 'x' || c == 'u':
		n := 2
		if c == 'u' {
			n = 4
		}
		if s.pos+n > len(s.src) {
			return s.errorAt(start, "invalid escape sequence")
		}
		v, err := strconv.ParseUint(s.src[s.pos:s.pos+n], 16, 32)
		if err != nil {
			return s.errorAt(start, "invalid escape sequence")
		}
		s.pos += n
		b.WriteRune(rune(v))
	case c == '0':
		b.WriteByte(0)
	case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9':
		return s.errorAt(start, "unrecognized escape sequence \\%c", c)
	default:
		b.WriteByte(c)
	}
	return nil
}
