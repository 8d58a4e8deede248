package flows

import (
	"context"
	"time"

	"github.com/bearauth/bearauth/token"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	// LoginFailureLimitExceeded means the owner already holds the maximum
	// number of unexpired tokens. This is a policy outcome, not an error.
	LoginFailureLimitExceeded
	LoginFailureTTLTooLong
	LoginFailureIssue
	LoginFailureStore
)

// LoginOptions carries per-request overrides validated against server-side
// maximums.
type LoginOptions struct {
	TTL    time.Duration
	HasTTL bool
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Records  RecordStore
	Families FamilyStore

	TokenLimitPerUser int
	TokenTTL          time.Duration
	MaxTTL            time.Duration
	TokenPrefix       string

	RefreshEnabled bool
	RefreshTTL     time.Duration

	Issue func(ctx context.Context, kind token.Kind, owner string, ttl time.Duration, prefix string, now time.Time) (*token.Record, string, error)
	Now   func() time.Time
}

// LoginFlowResult carries the issued pair or failure metadata. Plaintext
// fields exist only in this value; nothing downstream can recover them.
type LoginFlowResult struct {
	Failure LoginFailureKind
	Err     error

	Token        *token.Record
	TokenPlain   string
	Refresh      *token.Record
	RefreshPlain string
}

// RunLogin issues a session token for an externally authenticated owner,
// enforcing the per-user limit over unexpired tokens only. When refresh is
// enabled it also mints the rotation credential and roots a new family at
// it (parent == refresh key == its own chain entry).
func RunLogin(ctx context.Context, owner string, opts LoginOptions, deps LoginDeps) LoginFlowResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	now := deps.Now()

	ttl := deps.TokenTTL
	if opts.HasTTL {
		if deps.MaxTTL > 0 && opts.TTL > deps.MaxTTL {
			return LoginFlowResult{Failure: LoginFailureTTLTooLong}
		}
		ttl = opts.TTL
	}

	if deps.TokenLimitPerUser > 0 {
		active, err := deps.Records.CountActive(ctx, token.KindAuth, owner, now.Unix())
		if err != nil {
			return LoginFlowResult{Failure: LoginFailureStore, Err: err}
		}
		if active >= deps.TokenLimitPerUser {
			return LoginFlowResult{Failure: LoginFailureLimitExceeded}
		}
	}

	authRec, authPlain, err := deps.Issue(ctx, token.KindAuth, owner, ttl, deps.TokenPrefix, now)
	if err != nil {
		return LoginFlowResult{Failure: LoginFailureIssue, Err: err}
	}

	result := LoginFlowResult{
		Token:      authRec,
		TokenPlain: authPlain,
	}

	if !deps.RefreshEnabled {
		return result
	}

	refreshRec, refreshPlain, err := deps.Issue(ctx, token.KindRefresh, owner, deps.RefreshTTL, deps.TokenPrefix, now)
	if err != nil {
		return LoginFlowResult{Failure: LoginFailureIssue, Err: err}
	}

	member := &token.FamilyMember{
		Parent:     refreshRec.LookupKey,
		TokenKey:   authRec.LookupKey,
		RefreshKey: refreshRec.LookupKey,
		Owner:      owner,
		Created:    now.UnixNano(),
	}
	if err := deps.Families.SaveFamily(ctx, member); err != nil {
		return LoginFlowResult{Failure: LoginFailureStore, Err: err}
	}

	result.Refresh = refreshRec
	result.RefreshPlain = refreshPlain
	return result
}
