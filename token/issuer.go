package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// NewSecret returns a crypto-random hex string of the given character
// length. The length must be even because two hex characters encode one
// random byte.
func NewSecret(length int) (string, error) {
	if length <= 0 || length%2 != 0 {
		return "", errors.New("secret length must be a positive even number")
	}

	raw := make([]byte, length/2)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// Issuer mints token records. The plaintext it returns is the only copy
// that will ever exist; the store keeps the digest and lookup key alone.
type Issuer struct {
	store        *Store
	digester     *Digester
	secretLength int
}

// NewIssuer creates an [Issuer] writing through the given store.
func NewIssuer(store *Store, digester *Digester, secretLength int) (*Issuer, error) {
	if secretLength <= 0 || secretLength%2 != 0 {
		return nil, errors.New("secret length must be a positive even number")
	}
	if secretLength < KeyLength {
		return nil, errors.New("secret length shorter than lookup key")
	}
	return &Issuer{
		store:        store,
		digester:     digester,
		secretLength: secretLength,
	}, nil
}

// Issue creates and persists one token for owner. The final plaintext is
// prefix + secret; ttl <= 0 issues a token that never expires.
//
// The returned plaintext is not retrievable after this call returns.
func (i *Issuer) Issue(
	ctx context.Context,
	kind Kind,
	owner string,
	ttl time.Duration,
	prefix string,
	now time.Time,
) (*Record, string, error) {
	if len(prefix) > MaxLiteralPrefixLength {
		return nil, "", errors.New("token prefix exceeds maximum length")
	}

	secret, err := NewSecret(i.secretLength)
	if err != nil {
		return nil, "", err
	}
	plaintext := prefix + secret

	var expiry int64
	if ttl > 0 {
		expiry = now.Add(ttl).Unix()
	}

	rec := &Record{
		Digest:    i.digester.Sum(plaintext),
		LookupKey: plaintext[:KeyLength],
		Owner:     owner,
		Created:   now.Unix(),
		Expiry:    expiry,
	}

	if err := i.store.Save(ctx, kind, rec); err != nil {
		return nil, "", err
	}

	return rec, plaintext, nil
}
