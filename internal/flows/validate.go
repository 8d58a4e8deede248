package flows

import (
	"context"
	"strings"
	"time"

	"github.com/bearauth/bearauth/token"
)

// ValidateFailureKind classifies authentication failures for root-level
// mapping. The transport layer may distinguish malformed headers from
// invalid tokens; the security layer collapses everything else to one
// generic message.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	// ValidateFailureSchemeMismatch means the header belongs to another
	// authenticator and must be passed through, not rejected.
	ValidateFailureSchemeMismatch
	ValidateFailureNoCredentials
	ValidateFailureTokenContainsSpaces
	ValidateFailureInvalidToken
	ValidateFailureInactivePrincipal
	ValidateFailureStore
)

// ValidateResult carries either the resolved owner or failure metadata.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Owner   string
	Record  *token.Record
	Renewed bool
}

// ValidateDeps captures authenticator dependencies.
type ValidateDeps struct {
	Kind    token.Kind
	Records RecordStore
	Digest  func(string) string

	// PrincipalActive is nil when no principal collaborator is wired;
	// ownership checks are then skipped.
	PrincipalActive func(context.Context, string) (bool, error)

	Now                func() time.Time
	AutoRefresh        bool
	TokenTTL           time.Duration
	AutoRefreshMaxTTL  time.Duration
	MinRefreshInterval time.Duration

	// EmitExpired receives (owner, lookupKey, expiredKind) for every record
	// removed by lazy cleanup.
	EmitExpired func(ctx context.Context, owner, lookupKey, expiredKind string)
	// OnRenewalWriteFailed is called when a sliding-expiry persist fails.
	// The authentication itself still succeeds.
	OnRenewalWriteFailed func(ctx context.Context, owner, lookupKey string)
	Warn                 func(string, ...any)
}

// ParseAuthorizationHeader splits an Authorization header under the
// configured scheme. A non-matching scheme is a pass-through, not a
// failure, so other authenticators can coexist on the same endpoint.
func ParseAuthorizationHeader(header, scheme string) (string, ValidateFailureKind) {
	fields := strings.Fields(header)
	if len(fields) == 0 || !strings.EqualFold(fields[0], scheme) {
		return "", ValidateFailureSchemeMismatch
	}
	if len(fields) == 1 {
		return "", ValidateFailureNoCredentials
	}
	if len(fields) > 2 {
		return "", ValidateFailureTokenContainsSpaces
	}
	return fields[1], ValidateFailureNone
}

// RunValidate resolves a presented credential to its owner.
//
// Lookup is by the fixed-length key prefix; several candidates may share a
// prefix, so each is digest-checked in constant time. Expired candidates
// and expired siblings of inspected candidates are deleted on this path —
// expiry enforcement is lazy by design and needs no background sweeper.
func RunValidate(ctx context.Context, presented string, deps ValidateDeps) ValidateResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.EmitExpired == nil {
		deps.EmitExpired = func(context.Context, string, string, string) {}
	}

	if len(presented) < token.KeyLength {
		return ValidateResult{Failure: ValidateFailureInvalidToken}
	}

	candidates, err := deps.Records.GetByLookupKey(ctx, deps.Kind, presented[:token.KeyLength])
	if err != nil {
		return ValidateResult{Failure: ValidateFailureStore, Err: err}
	}

	digest := deps.Digest(presented)
	now := deps.Now()

	for _, candidate := range candidates {
		expired, err := cleanupOwnerTokens(ctx, candidate, now.Unix(), deps)
		if err != nil {
			return ValidateResult{Failure: ValidateFailureStore, Err: err}
		}
		if expired {
			continue
		}

		if !token.CompareDigest(digest, candidate.Digest) {
			continue
		}

		if deps.PrincipalActive != nil {
			active, err := deps.PrincipalActive(ctx, candidate.Owner)
			if err != nil {
				return ValidateResult{Failure: ValidateFailureStore, Err: err}
			}
			if !active {
				return ValidateResult{Failure: ValidateFailureInactivePrincipal, Owner: candidate.Owner}
			}
		}

		renewed := renewExpiry(ctx, candidate, now, deps)

		return ValidateResult{
			Owner:   candidate.Owner,
			Record:  candidate,
			Renewed: renewed,
		}
	}

	return ValidateResult{Failure: ValidateFailureInvalidToken}
}

// cleanupOwnerTokens deletes expired tokens belonging to the candidate's
// owner and reports whether the candidate itself was among them.
func cleanupOwnerTokens(ctx context.Context, candidate *token.Record, nowUnix int64, deps ValidateDeps) (bool, error) {
	siblings, err := deps.Records.OwnerRecords(ctx, deps.Kind, candidate.Owner)
	if err != nil {
		return false, err
	}

	candidateExpired := false
	for _, sibling := range siblings {
		if !sibling.Expired(nowUnix) {
			continue
		}
		if err := deps.Records.Delete(ctx, deps.Kind, sibling); err != nil {
			return false, err
		}

		kind := expiredKindFor(deps.Kind, sibling.Digest == candidate.Digest)
		deps.EmitExpired(ctx, sibling.Owner, sibling.LookupKey, kind)

		if sibling.Digest == candidate.Digest {
			candidateExpired = true
		}
	}
	return candidateExpired, nil
}

func expiredKindFor(kind token.Kind, isCandidate bool) string {
	if kind == token.KindRefresh {
		return "refresh_token"
	}
	if isCandidate {
		return "auth_token"
	}
	return "other_token"
}

// renewExpiry implements sliding expiry: push the deadline to now+TTL,
// never past created+ceiling, and only persist when the gain exceeds the
// minimum refresh interval. The write is best-effort — a transient store
// failure must not fail an otherwise valid authentication.
func renewExpiry(ctx context.Context, rec *token.Record, now time.Time, deps ValidateDeps) bool {
	if !deps.AutoRefresh || rec.Expiry == 0 || deps.TokenTTL <= 0 {
		return false
	}

	newExpiry := now.Add(deps.TokenTTL).Unix()
	if deps.AutoRefreshMaxTTL > 0 {
		ceiling := rec.Created + int64(deps.AutoRefreshMaxTTL/time.Second)
		if newExpiry > ceiling {
			newExpiry = ceiling
		}
	}

	if newExpiry-rec.Expiry <= int64(deps.MinRefreshInterval/time.Second) {
		return false
	}

	if err := deps.Records.UpdateExpiry(ctx, deps.Kind, rec.Digest, newExpiry); err != nil {
		deps.Warn("bearauth: expiry renewal write failed")
		if deps.OnRenewalWriteFailed != nil {
			deps.OnRenewalWriteFailed(ctx, rec.Owner, rec.LookupKey)
		}
		return false
	}
	rec.Expiry = newExpiry
	return true
}
