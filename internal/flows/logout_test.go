package flows

import (
	"context"
	"testing"

	"github.com/bearauth/bearauth/token"
)

func (f *flowsFixture) logoutDeps(refreshEnabled bool) LogoutDeps {
	return LogoutDeps{
		Records:        f.store,
		Families:       f.store,
		RefreshEnabled: refreshEnabled,
		NotFound:       token.ErrNotFound,
	}
}

func TestRunLogoutLeavesSiblings(t *testing.T) {
	f, done := newFlowsTest(t)
	defer done()
	ctx := context.Background()

	first := f.mustLogin(t, "user-1", false)
	second := f.mustLogin(t, "user-1", false)

	if err := RunLogout(ctx, first.Token, f.logoutDeps(false)); err != nil {
		t.Fatalf("logout: %v", err)
	}

	deps := f.validateDeps(token.KindAuth)
	if res := RunValidate(ctx, first.TokenPlain, deps); res.Failure != ValidateFailureInvalidToken {
		t.Fatalf("logged-out token still valid: %d", res.Failure)
	}
	if res := RunValidate(ctx, second.TokenPlain, deps); res.Failure != ValidateFailureNone {
		t.Fatalf("sibling token invalidated by logout: %d", res.Failure)
	}
}

func TestRunLogoutRevokesFamily(t *testing.T) {
	f, done := newFlowsTest(t)
	defer done()
	ctx := context.Background()

	login := f.mustLogin(t, "user-1", true)

	if err := RunLogout(ctx, login.Token, f.logoutDeps(true)); err != nil {
		t.Fatalf("logout: %v", err)
	}

	// The refresh token and its chain go with the session.
	if res := RunValidate(ctx, login.RefreshPlain, f.validateDeps(token.KindRefresh)); res.Failure != ValidateFailureInvalidToken {
		t.Fatalf("refresh token survived logout: %d", res.Failure)
	}
	if _, err := f.store.MemberByRefreshKey(ctx, login.Refresh.LookupKey); err == nil {
		t.Fatal("chain row survived logout")
	}
}

func TestRunLogoutTokenWithoutFamily(t *testing.T) {
	f, done := newFlowsTest(t)
	defer done()
	ctx := context.Background()

	// Issued while refresh was disabled, revoked after it was enabled.
	login := f.mustLogin(t, "user-1", false)
	if err := RunLogout(ctx, login.Token, f.logoutDeps(true)); err != nil {
		t.Fatalf("logout of family-less token: %v", err)
	}
}

func TestRunLogoutAllScopedToOwner(t *testing.T) {
	f, done := newFlowsTest(t)
	defer done()
	ctx := context.Background()

	mine1 := f.mustLogin(t, "user-1", true)
	mine2 := f.mustLogin(t, "user-1", true)
	theirs := f.mustLogin(t, "user-2", true)

	if err := RunLogoutAll(ctx, "user-1", f.logoutDeps(true)); err != nil {
		t.Fatalf("logout all: %v", err)
	}

	authDeps := f.validateDeps(token.KindAuth)
	refreshDeps := f.validateDeps(token.KindRefresh)

	for _, plain := range []string{mine1.TokenPlain, mine2.TokenPlain} {
		if res := RunValidate(ctx, plain, authDeps); res.Failure != ValidateFailureInvalidToken {
			t.Fatalf("owner auth token survived logout-all: %d", res.Failure)
		}
	}
	for _, plain := range []string{mine1.RefreshPlain, mine2.RefreshPlain} {
		if res := RunValidate(ctx, plain, refreshDeps); res.Failure != ValidateFailureInvalidToken {
			t.Fatalf("owner refresh token survived logout-all: %d", res.Failure)
		}
	}

	if res := RunValidate(ctx, theirs.TokenPlain, authDeps); res.Failure != ValidateFailureNone {
		t.Fatalf("other principal's token invalidated: %d", res.Failure)
	}
	if res := RunValidate(ctx, theirs.RefreshPlain, refreshDeps); res.Failure != ValidateFailureNone {
		t.Fatalf("other principal's refresh invalidated: %d", res.Failure)
	}

	parents, err := f.store.OwnerParents(ctx, "user-2")
	if err != nil {
		t.Fatalf("owner parents: %v", err)
	}
	if len(parents) != 1 {
		t.Fatalf("other principal's family disturbed: %v", parents)
	}
}
