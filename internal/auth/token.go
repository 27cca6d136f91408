package auth

import (
	"fmt"

	"github.com/google/uuid"
)

// TokenIssuer produces setup tokens.
type TokenIssuer interface {
	Issue() (string, error)
}

// UUIDIssuer issues UUIDv7 setup tokens. They are time ordered and carry
// 74 random bits.
type UUIDIssuer struct{}

// Issue returns a new UUIDv7 string.
func (UUIDIssuer) Issue() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate setup token: %w", err)
	}
	return u.String(), nil
}
