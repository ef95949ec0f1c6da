package lock

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jathurchan/davlock/types"
)

// TokenGenerator allocates state tokens. Tokens must be absolute URIs and
// globally unique.
type TokenGenerator interface {
	NewToken() (types.StateToken, error)
}

// TokenGeneratorFunc adapts a function to TokenGenerator.
type TokenGeneratorFunc func() (types.StateToken, error)

// NewToken calls f.
func (f TokenGeneratorFunc) NewToken() (types.StateToken, error) { return f() }

// UUIDTokenGenerator issues random "urn:uuid:" tokens (RFC 4918 section 6.5).
type UUIDTokenGenerator struct{}

// NewToken returns a fresh version 4 UUID URN.
func (UUIDTokenGenerator) NewToken() (types.StateToken, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("lock: generate state token: %w", err)
	}
	return types.StateToken(StateTokenScheme + id.String()), nil
}
