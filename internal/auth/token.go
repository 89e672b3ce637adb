package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
)

// Session tokens are opaque bearer credentials. 32 random bytes give 256 bits
// of entropy, well above the 128-bit unguessability floor the service needs;
// hex encoding keeps the value safe in query strings and form fields.
const tokenByteLen = 32

// tokenFormatRegex validates the wire shape of a token before any lookup.
var tokenFormatRegex = regexp.MustCompile(`^[a-f0-9]{64}$`)

// NewSessionToken mints a fresh session token from the OS CSPRNG.
func NewSessionToken() (string, error) {
	raw := make([]byte, tokenByteLen)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// ValidTokenFormat reports whether the string has the shape of a minted token.
// Malformed values can be rejected without touching the session store.
func ValidTokenFormat(token string) bool {
	return tokenFormatRegex.MatchString(token)
}
