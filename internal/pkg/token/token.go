package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// verificationBytes is 256 bits of entropy per verification token.
const verificationBytes = 32

// NewVerificationToken generates a cryptographically random 64-character hex token.
func NewVerificationToken() (string, error) {
	b := make([]byte, verificationBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
