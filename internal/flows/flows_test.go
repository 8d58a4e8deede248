package flows

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bearauth/bearauth/token"
)

// flowsFixture wires a real store and issuer against miniredis so flow
// tests exercise the same Lua paths production uses.
type flowsFixture struct {
	store    *token.Store
	issuer   *token.Issuer
	digester *token.Digester
}

func newFlowsTest(t *testing.T) (*flowsFixture, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store := token.NewStore(rdb, "bat")
	digester, err := token.NewDigester("sha512")
	if err != nil {
		t.Fatalf("digester: %v", err)
	}
	issuer, err := token.NewIssuer(store, digester, 64)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}

	f := &flowsFixture{store: store, issuer: issuer, digester: digester}
	return f, func() {
		rdb.Close()
		mr.Close()
	}
}

func (f *flowsFixture) validateDeps(kind token.Kind) ValidateDeps {
	return ValidateDeps{
		Kind:    kind,
		Records: f.store,
		Digest:  f.digester.Sum,
	}
}

func (f *flowsFixture) loginDeps(refreshEnabled bool) LoginDeps {
	return LoginDeps{
		Records:        f.store,
		Families:       f.store,
		TokenTTL:       10 * time.Hour,
		RefreshEnabled: refreshEnabled,
		RefreshTTL:     30 * 24 * time.Hour,
		Issue:          f.issuer.Issue,
	}
}

func (f *flowsFixture) rotateDeps() RotateDeps {
	return RotateDeps{
		Records:    f.store,
		Families:   f.store,
		Validate:   f.validateDeps(token.KindRefresh),
		NotFound:   token.ErrNotFound,
		TokenTTL:   10 * time.Hour,
		RefreshTTL: 30 * 24 * time.Hour,
		MaxHistory: 8,
		Issue:      f.issuer.Issue,
	}
}

func (f *flowsFixture) mustLogin(t *testing.T, owner string, refreshEnabled bool) LoginFlowResult {
	t.Helper()
	res := RunLogin(context.Background(), owner, LoginOptions{}, f.loginDeps(refreshEnabled))
	if res.Failure != LoginFailureNone {
		t.Fatalf("login failed: kind=%d err=%v", res.Failure, res.Err)
	}
	return res
}
