package token

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Digester computes the one-way digest stored in place of token plaintext.
// The hash runs over the exact transmitted bytes, literal prefix included;
// a configured prefix need not be valid hex so no decode step may happen
// before hashing.
type Digester struct {
	algorithm string
	newHash   func() hash.Hash
}

// hashRegistry maps configuration names to 512-bit hash constructors.
// All registered algorithms produce DigestLength hex characters.
var hashRegistry = map[string]func() hash.Hash{
	"sha512":   sha512.New,
	"sha3-512": sha3.New512,
	"blake2b-512": func() hash.Hash {
		h, _ := blake2b.New512(nil)
		return h
	},
}

// NewDigester resolves a registered hash algorithm by configuration name.
func NewDigester(algorithm string) (*Digester, error) {
	newHash, ok := hashRegistry[algorithm]
	if !ok {
		return nil, fmt.Errorf("unknown hash algorithm %q", algorithm)
	}
	return &Digester{algorithm: algorithm, newHash: newHash}, nil
}

// Algorithm returns the configured registry name.
func (d *Digester) Algorithm() string {
	return d.algorithm
}

// Sum returns the lowercase hex digest of plaintext.
func (d *Digester) Sum(plaintext string) string {
	h := d.newHash()
	h.Write([]byte(plaintext))
	return hex.EncodeToString(h.Sum(nil))
}

// CompareDigest reports whether two digests match in constant time.
// Length inequality returns false immediately; digest lengths are fixed by
// the algorithm and reveal nothing about the secret.
func CompareDigest(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
