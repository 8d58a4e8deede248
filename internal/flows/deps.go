package flows

import (
	"context"

	"github.com/bearauth/bearauth/token"
)

// RecordStore is the token-record surface flows depend on. *token.Store
// satisfies it; tests substitute fakes.
type RecordStore interface {
	GetByLookupKey(ctx context.Context, kind token.Kind, lookup string) ([]*token.Record, error)
	OwnerRecords(ctx context.Context, kind token.Kind, owner string) ([]*token.Record, error)
	CountActive(ctx context.Context, kind token.Kind, owner string, nowUnix int64) (int, error)
	Delete(ctx context.Context, kind token.Kind, rec *token.Record) error
	DeleteAllForOwner(ctx context.Context, kind token.Kind, owner string) error
	UpdateExpiry(ctx context.Context, kind token.Kind, digest string, expiry int64) error
}

// FamilyStore is the rotation-chain surface flows depend on. *token.Store
// satisfies it.
type FamilyStore interface {
	SaveFamily(ctx context.Context, m *token.FamilyMember) error
	MemberByRefreshKey(ctx context.Context, refreshKey string) (*token.FamilyMember, error)
	ParentByTokenKey(ctx context.Context, tokenKey string) (string, error)
	FamilyMembers(ctx context.Context, parent string) ([]*token.FamilyMember, error)
	OwnerParents(ctx context.Context, owner string) ([]string, error)
	RotateFamily(ctx context.Context, parent, providedRefreshKey string, next *token.FamilyMember, maxHistory int) ([]string, error)
	DeleteMemberRows(ctx context.Context, members []*token.FamilyMember) error
	DeleteFamily(ctx context.Context, parent string) ([]*token.FamilyMember, error)
}

// voidMemberTokens deletes the auth and refresh records a chain row points
// at. Rows reference tokens by lookup key, so deletion is scoped to the
// member's owner to survive prefix collisions with unrelated tokens.
func voidMemberTokens(ctx context.Context, records RecordStore, m *token.FamilyMember) error {
	auth, err := records.GetByLookupKey(ctx, token.KindAuth, m.TokenKey)
	if err != nil {
		return err
	}
	for _, rec := range auth {
		if rec.Owner != m.Owner {
			continue
		}
		if err := records.Delete(ctx, token.KindAuth, rec); err != nil {
			return err
		}
	}

	refresh, err := records.GetByLookupKey(ctx, token.KindRefresh, m.RefreshKey)
	if err != nil {
		return err
	}
	for _, rec := range refresh {
		if rec.Owner != m.Owner {
			continue
		}
		if err := records.Delete(ctx, token.KindRefresh, rec); err != nil {
			return err
		}
	}
	return nil
}

// revokeFamily deletes every chain row for parent and voids every token
// pair the chain ever referenced. Used on logout and on reuse detection.
func revokeFamily(ctx context.Context, records RecordStore, families FamilyStore, parent string) error {
	members, err := families.DeleteFamily(ctx, parent)
	if err != nil {
		return err
	}
	for _, m := range members {
		if err := voidMemberTokens(ctx, records, m); err != nil {
			return err
		}
	}
	return nil
}
