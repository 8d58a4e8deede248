package token

// Storage-layout constants. These are integral to the structure of stored
// records and must never change at runtime.
const (
	// KeyLength is the number of leading plaintext characters indexed as the
	// lookup key. Every stored token kind shares this length.
	KeyLength = 15

	// DigestLength is the hex length of a stored digest (512-bit hash).
	DigestLength = 128

	// MaxLiteralPrefixLength bounds the configurable literal token prefix so
	// that the lookup key always contains secret material.
	MaxLiteralPrefixLength = 10
)

// Kind distinguishes the stored token classes. Auth tokens authorize API
// access; refresh tokens authorize minting a replacement pair.
type Kind uint8

const (
	// KindAuth is a session access token.
	KindAuth Kind = iota
	// KindRefresh is a rotation credential.
	KindRefresh
)

func (k Kind) tag() string {
	if k == KindRefresh {
		return "r"
	}
	return "a"
}

// Record is one persisted token. The plaintext secret is never stored; only
// its digest and the lookup-key prefix survive issuance.
//
// Digest is immutable after creation. Expiry is the only mutable field, and
// only via the sliding-renewal path. Expiry == 0 means the token never
// expires.
type Record struct {
	Digest    string
	LookupKey string
	Owner     string
	Created   int64
	Expiry    int64
}

// Expired reports whether the record's expiry has passed at nowUnix.
// Records with Expiry == 0 never expire.
func (r *Record) Expired(nowUnix int64) bool {
	return r.Expiry != 0 && r.Expiry <= nowUnix
}

// FamilyMember is one link in a refresh-rotation chain. All members of a
// chain share Parent (the lookup key of the chain's root refresh token);
// the member with the greatest Created is the only one valid for rotation.
type FamilyMember struct {
	Parent     string
	TokenKey   string
	RefreshKey string
	Owner      string
	Created    int64
}
