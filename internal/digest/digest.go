// Package digest computes content fingerprints for ingested artifacts.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// Algorithm names the hash used for every content digest.
const Algorithm = "sha256"

// HexLen is the length of a hex-encoded digest.
const HexLen = sha256.Size * 2

// Sum returns the lowercase hex SHA-256 digest of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SumReader hashes r to EOF and returns the digest and byte count.
func SumReader(r io.Reader) (string, int64, error) {
	h := New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return h.Hex(), n, nil
}

// Hasher is an io.Writer that accumulates a digest.
type Hasher struct {
	h hash.Hash
}

// New returns an empty Hasher.
func New() *Hasher {
	return &Hasher{h: sha256.New()}
}

func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Hex returns the lowercase hex digest of everything written so far.
func (h *Hasher) Hex() string {
	return hex.EncodeToString(h.h.Sum(nil))
}

// Valid reports whether value looks like a digest produced by this package.
func Valid(value string) bool {
	if len(value) != HexLen {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
