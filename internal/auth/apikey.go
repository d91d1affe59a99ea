package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HeaderName carries the shared secret on ingest requests.
const HeaderName = "X-API-Key"

const minKeyLength = 8

// KeyVerifier checks presented API keys against a configured secret.
// The zero value, and a verifier built from an empty secret, is disabled
// and accepts every request.
type KeyVerifier struct {
	plain []byte
	hash  []byte
}

// NewKeyVerifier builds a verifier from a plaintext key or a bcrypt hash.
// When both are set the hash wins.
func NewKeyVerifier(plainKey, keyHash string) (*KeyVerifier, error) {
	plainKey = strings.TrimSpace(plainKey)
	keyHash = strings.TrimSpace(keyHash)
	if keyHash != "" {
		if _, err := bcrypt.Cost([]byte(keyHash)); err != nil {
			return nil, fmt.Errorf("invalid api key hash: %w", err)
		}
		return &KeyVerifier{hash: []byte(keyHash)}, nil
	}
	if plainKey == "" {
		return &KeyVerifier{}, nil
	}
	sum := sha256.Sum256([]byte(plainKey))
	return &KeyVerifier{plain: sum[:]}, nil
}

// Enabled reports whether a secret is configured.
func (v *KeyVerifier) Enabled() bool {
	return v != nil && (len(v.plain) > 0 || len(v.hash) > 0)
}

// Verify reports whether candidate matches the configured secret.
func (v *KeyVerifier) Verify(candidate string) bool {
	if !v.Enabled() {
		return true
	}
	if candidate == "" {
		return false
	}
	if len(v.hash) > 0 {
		return bcrypt.CompareHashAndPassword(v.hash, []byte(candidate)) == nil
	}
	sum := sha256.Sum256([]byte(candidate))
	return subtle.ConstantTimeCompare(v.plain, sum[:]) == 1
}

// HashKey hashes one plaintext API key for the api_key_hash setting.
func HashKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if len(key) < minKeyLength {
		return "", fmt.Errorf("api key must be at least %d characters", minKeyLength)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
