package flows

import (
	"context"
	"errors"
	"time"

	"github.com/bearauth/bearauth/token"
)

// RotateFailureKind classifies rotation failures for root-level mapping.
type RotateFailureKind int

const (
	RotateFailureNone RotateFailureKind = iota
	RotateFailureInvalidToken
	// RotateFailureReuse means a refresh token from the family's history was
	// replayed. The whole family has already been revoked by the time this
	// kind is returned.
	RotateFailureReuse
	RotateFailureThrottled
	RotateFailureInactivePrincipal
	RotateFailureIssue
	RotateFailureStore
)

// RotationThrottle is the per-family rate-limit surface the rotation flow
// depends on.
type RotationThrottle interface {
	CheckRotation(ctx context.Context, parent string) error
	ReleaseRotation(ctx context.Context, parent string) error
}

// RotateDeps captures rotation flow dependencies. Validate drives the
// refresh-token credential check and must be configured with
// Kind == token.KindRefresh.
type RotateDeps struct {
	Records  RecordStore
	Families FamilyStore
	Validate ValidateDeps

	Throttle    RotationThrottle
	RateLimited error
	NotFound    error

	TokenTTL    time.Duration
	RefreshTTL  time.Duration
	TokenPrefix string
	MaxHistory  int

	Issue func(ctx context.Context, kind token.Kind, owner string, ttl time.Duration, prefix string, now time.Time) (*token.Record, string, error)
	Now   func() time.Time
	Warn  func(string, ...any)
}

// RotateFlowResult carries the replacement pair or failure metadata.
type RotateFlowResult struct {
	Failure RotateFailureKind
	Err     error
	Owner   string
	Parent  string

	Token        *token.Record
	TokenPlain   string
	Refresh      *token.Record
	RefreshPlain string
	TrimmedRows  int
}

// RunRotate exchanges a valid refresh token for a fresh auth/refresh pair
// on the same family chain, voiding the presented pair.
//
// Replay of any superseded refresh token revokes the entire family: the
// superseded record is already deleted, but its chain row survives as
// history, and that row is the tell. Concurrent rotations on the same
// family race through a compare-and-append on the chain; the loser is
// indistinguishable from a replay and triggers the same revocation.
func RunRotate(ctx context.Context, presented string, deps RotateDeps) RotateFlowResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	vr := RunValidate(ctx, presented, deps.Validate)
	switch vr.Failure {
	case ValidateFailureNone:
	case ValidateFailureInvalidToken:
		return deps.handleDeadCredential(ctx, presented)
	case ValidateFailureInactivePrincipal:
		return RotateFlowResult{Failure: RotateFailureInactivePrincipal, Owner: vr.Owner}
	case ValidateFailureStore:
		return RotateFlowResult{Failure: RotateFailureStore, Err: vr.Err}
	default:
		return RotateFlowResult{Failure: RotateFailureInvalidToken}
	}

	current, err := deps.Families.MemberByRefreshKey(ctx, vr.Record.LookupKey)
	if err != nil {
		if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
			// Valid record with no chain row: not rotatable.
			return RotateFlowResult{Failure: RotateFailureInvalidToken, Owner: vr.Owner}
		}
		return RotateFlowResult{Failure: RotateFailureStore, Err: err, Owner: vr.Owner}
	}
	parent := current.Parent

	if deps.Throttle != nil {
		if err := deps.Throttle.CheckRotation(ctx, parent); err != nil {
			if deps.RateLimited != nil && errors.Is(err, deps.RateLimited) {
				return RotateFlowResult{Failure: RotateFailureThrottled, Owner: vr.Owner, Parent: parent}
			}
			return RotateFlowResult{Failure: RotateFailureStore, Err: err, Owner: vr.Owner, Parent: parent}
		}
	}

	now := deps.Now()
	authRec, authPlain, err := deps.Issue(ctx, token.KindAuth, vr.Owner, deps.TokenTTL, deps.TokenPrefix, now)
	if err != nil {
		deps.releaseThrottle(ctx, parent)
		return RotateFlowResult{Failure: RotateFailureIssue, Err: err, Owner: vr.Owner, Parent: parent}
	}
	refreshRec, refreshPlain, err := deps.Issue(ctx, token.KindRefresh, vr.Owner, deps.RefreshTTL, deps.TokenPrefix, now)
	if err != nil {
		deps.discardMinted(ctx, authRec, nil)
		deps.releaseThrottle(ctx, parent)
		return RotateFlowResult{Failure: RotateFailureIssue, Err: err, Owner: vr.Owner, Parent: parent}
	}

	next := &token.FamilyMember{
		Parent:     parent,
		TokenKey:   authRec.LookupKey,
		RefreshKey: refreshRec.LookupKey,
		Owner:      vr.Owner,
		Created:    now.UnixNano(),
	}

	trimmed, err := deps.Families.RotateFamily(ctx, parent, vr.Record.LookupKey, next, deps.MaxHistory)
	if err != nil {
		deps.discardMinted(ctx, authRec, refreshRec)
		if errors.Is(err, token.ErrFamilyConflict) {
			// Another rotation appended first. Treat the loser like a replay.
			if rerr := revokeFamily(ctx, deps.Records, deps.Families, parent); rerr != nil {
				return RotateFlowResult{Failure: RotateFailureStore, Err: rerr, Owner: vr.Owner, Parent: parent}
			}
			deps.releaseThrottle(ctx, parent)
			return RotateFlowResult{Failure: RotateFailureReuse, Owner: vr.Owner, Parent: parent}
		}
		deps.releaseThrottle(ctx, parent)
		return RotateFlowResult{Failure: RotateFailureStore, Err: err, Owner: vr.Owner, Parent: parent}
	}

	// The presented pair is superseded; only its chain row survives as the
	// replay tripwire.
	if err := voidMemberTokens(ctx, deps.Records, current); err != nil {
		deps.Warn("bearauth: failed to void rotated token pair")
	}
	deps.dropTrimmedRows(ctx, trimmed)

	return RotateFlowResult{
		Owner:        vr.Owner,
		Parent:       parent,
		Token:        authRec,
		TokenPlain:   authPlain,
		Refresh:      refreshRec,
		RefreshPlain: refreshPlain,
		TrimmedRows:  len(trimmed),
	}
}

// handleDeadCredential distinguishes a plain bad token from a replayed one.
// A dead refresh token whose chain row was superseded by rotation is reuse,
// and the family dies for it. The chain's newest row going dead is ordinary
// expiry: lazy cleanup already removed the record and nothing was replayed,
// so the chain stays intact for its own lazy teardown.
func (deps RotateDeps) handleDeadCredential(ctx context.Context, presented string) RotateFlowResult {
	if len(presented) < token.KeyLength {
		return RotateFlowResult{Failure: RotateFailureInvalidToken}
	}

	m, err := deps.Families.MemberByRefreshKey(ctx, presented[:token.KeyLength])
	if err != nil {
		if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
			return RotateFlowResult{Failure: RotateFailureInvalidToken}
		}
		return RotateFlowResult{Failure: RotateFailureStore, Err: err}
	}

	current, err := deps.newestMember(ctx, m.Parent)
	if err != nil {
		return RotateFlowResult{Failure: RotateFailureStore, Err: err, Owner: m.Owner, Parent: m.Parent}
	}
	if current != nil && current.RefreshKey == m.RefreshKey {
		return RotateFlowResult{Failure: RotateFailureInvalidToken, Owner: m.Owner, Parent: m.Parent}
	}

	if err := revokeFamily(ctx, deps.Records, deps.Families, m.Parent); err != nil {
		return RotateFlowResult{Failure: RotateFailureStore, Err: err, Owner: m.Owner, Parent: m.Parent}
	}
	return RotateFlowResult{Failure: RotateFailureReuse, Owner: m.Owner, Parent: m.Parent}
}

// newestMember returns the chain row with the greatest Created, the only
// member rotation would accept.
func (deps RotateDeps) newestMember(ctx context.Context, parent string) (*token.FamilyMember, error) {
	members, err := deps.Families.FamilyMembers(ctx, parent)
	if err != nil {
		return nil, err
	}
	var newest *token.FamilyMember
	for _, m := range members {
		if newest == nil || m.Created > newest.Created {
			newest = m
		}
	}
	return newest, nil
}

func (deps RotateDeps) releaseThrottle(ctx context.Context, parent string) {
	if deps.Throttle == nil {
		return
	}
	if err := deps.Throttle.ReleaseRotation(ctx, parent); err != nil {
		deps.Warn("bearauth: failed to release rotation throttle")
	}
}

// discardMinted deletes freshly issued records after a failed rotation so
// half-minted pairs never become usable.
func (deps RotateDeps) discardMinted(ctx context.Context, auth, refresh *token.Record) {
	if auth != nil {
		if err := deps.Records.Delete(ctx, token.KindAuth, auth); err != nil {
			deps.Warn("bearauth: failed to discard minted auth token")
		}
	}
	if refresh != nil {
		if err := deps.Records.Delete(ctx, token.KindRefresh, refresh); err != nil {
			deps.Warn("bearauth: failed to discard minted refresh token")
		}
	}
}

// dropTrimmedRows removes chain-row blobs for entries the rotation script
// trimmed out of the history window. Best-effort: an orphaned blob is
// unreachable once its chain entry is gone.
func (deps RotateDeps) dropTrimmedRows(ctx context.Context, trimmedKeys []string) {
	if len(trimmedKeys) == 0 {
		return
	}
	members := make([]*token.FamilyMember, 0, len(trimmedKeys))
	for _, key := range trimmedKeys {
		m, err := deps.Families.MemberByRefreshKey(ctx, key)
		if err != nil {
			continue
		}
		members = append(members, m)
	}
	if len(members) == 0 {
		return
	}
	if err := deps.Families.DeleteMemberRows(ctx, members); err != nil {
		deps.Warn("bearauth: failed to drop trimmed chain rows")
	}
}
