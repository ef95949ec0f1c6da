package header

import (
	"fmt"
	"strings"
)

// scanner walks a header value byte by byte and produces positioned
// syntax errors.
type scanner struct {
	header string
	src    string
	pos    int
}

func newScanner(header, src string) *scanner {
	return &scanner{header: header, src: src}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) && isSpace(s.src[s.pos]) {
		s.pos++
	}
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.src)
}

// peek returns the next byte, or 0 at end of input.
func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

// consume advances past lit when the input continues with it.
func (s *scanner) consume(lit string) bool {
	if strings.HasPrefix(s.src[s.pos:], lit) {
		s.pos += len(lit)
		return true
	}
	return false
}

func (s *scanner) expect(c byte, what string) error {
	s.skipSpace()
	if s.peek() != c {
		return s.errorf("expected '%c' (%s)", c, what)
	}
	s.pos++
	return nil
}

// end fails unless only whitespace remains.
func (s *scanner) end() error {
	s.skipSpace()
	if !s.eof() {
		return s.errorf("unexpected trailing characters %q", s.src[s.pos:])
	}
	return nil
}

func (s *scanner) errorf(format string, args ...any) *SyntaxError {
	return s.errorAt(s.pos, format, args...)
}

func (s *scanner) errorAt(offset int, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Header: s.header,
		Input:  s.src,
		Offset: offset,
		Reason: fmt.Sprintf(format, args...),
	}
}
