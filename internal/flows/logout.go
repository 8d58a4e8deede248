package flows

import (
	"context"
	"errors"

	"github.com/bearauth/bearauth/token"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Records  RecordStore
	Families FamilyStore

	RefreshEnabled bool

	// NotFound is the store's sentinel for a missing family index entry.
	NotFound error
}

// RunLogout deletes exactly the token that authenticated the current
// request. Sibling tokens of the same owner stay valid. When refresh is
// enabled, the token's whole rotation family and every pair it referenced
// go with it.
func RunLogout(ctx context.Context, rec *token.Record, deps LogoutDeps) error {
	if err := deps.Records.Delete(ctx, token.KindAuth, rec); err != nil {
		return err
	}

	if !deps.RefreshEnabled {
		return nil
	}

	parent, err := deps.Families.ParentByTokenKey(ctx, rec.LookupKey)
	if err != nil {
		if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
			// Token was issued without a family (refresh enabled later, or
			// issued directly). Nothing more to revoke.
			return nil
		}
		return err
	}

	return revokeFamily(ctx, deps.Records, deps.Families, parent)
}

// RunLogoutAll deletes every token the owner holds: all auth tokens, all
// refresh tokens, and all rotation families rooted by the owner's logins.
// Tokens of other principals are untouched.
func RunLogoutAll(ctx context.Context, owner string, deps LogoutDeps) error {
	if deps.RefreshEnabled {
		parents, err := deps.Families.OwnerParents(ctx, owner)
		if err != nil {
			return err
		}
		for _, parent := range parents {
			if _, err := deps.Families.DeleteFamily(ctx, parent); err != nil {
				return err
			}
		}
		if err := deps.Records.DeleteAllForOwner(ctx, token.KindRefresh, owner); err != nil {
			return err
		}
	}

	return deps.Records.DeleteAllForOwner(ctx, token.KindAuth, owner)
}
