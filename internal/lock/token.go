package lock

import (
	"crypto/rand"
	"encoding/hex"
)

// tokenBytes is the entropy of a lock token.  Tokens are bearer
// credentials shared by URL, so they come from crypto/rand and are far
// wider than the 128-bit floor.
const tokenBytes = 32

// NewToken returns a 64 character hex token.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// plausibleToken rejects header values that cannot be a token before any
// storage round trip.  Tokens issued by older deployments were uuids, so
// anything of sane length and charset is passed through.
func plausibleToken(token string) bool {
	if token == "" || len(token) > 128 {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
