package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// TokenHasher derives a keyed, non-reversible reference to an access token.
// Without the key the reference cannot be linked back to a token.
type TokenHasher struct {
	key []byte
}

// NewTokenHasher creates a TokenHasher. An empty key generates a random
// per-process key.
func NewTokenHasher(key string) (*TokenHasher, error) {
	k := []byte(key)
	if len(k) == 0 {
		k = make([]byte, 32)
		if _, err := rand.Read(k); err != nil {
			return nil, fmt.Errorf("generate token hash key: %w", err)
		}
	}
	if len(k) > blake2b.Size {
		sum := blake2b.Sum256(k)
		k = sum[:]
	}
	return &TokenHasher{key: k}, nil
}

// Sum returns the hex-encoded keyed BLAKE2b-256 of token, or "" for an empty token.
func (h *TokenHasher) Sum(token string) string {
	if token == "" {
		return ""
	}
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// Only possible for keys longer than 64 bytes, which NewTokenHasher prevents.
		panic(fmt.Sprintf("blake2b: %v", err))
	}
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
