package sharelink

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const tokenBytes = 32

// newToken generates a fresh 32-byte URL-safe token. The returned string is
// the only time the plaintext value exists outside the caller's possession;
// only its hash is ever persisted.
func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// hashToken returns the deterministic 64-hex-char SHA-256 digest of a
// plaintext token, the only form ever written to storage.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
