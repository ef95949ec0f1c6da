package header

import (
	"errors"
	"fmt"
)

// ErrSyntax matches every *SyntaxError via errors.Is.
var ErrSyntax = errors.New("header: syntax error")

// SyntaxError describes why a header value was rejected. Malformed headers
// are a client error and are never retried.
type SyntaxError struct {
	Header string // Header being parsed, e.g. "If".
	Input  string // Raw header value.
	Offset int    // Byte offset of the failure within Input.
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("header: invalid %s header at offset %d: %s", e.Header, e.Offset, e.Reason)
}

// Is reports whether target is ErrSyntax.
func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}
