//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"testing"
	"time"

	bearauth "github.com/bearauth/bearauth"
)

func TestTokenLifecycleEndToEnd(t *testing.T) {
	engine, _, cleanup := newIntegrationEngine(t, nil)
	defer cleanup()
	ctx := context.Background()

	login, err := engine.Login(ctx, "u1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	res, err := engine.Authenticate(ctx, "Token "+login.Token)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if res.PrincipalID != "u1" {
		t.Fatalf("principal = %q, want u1", res.PrincipalID)
	}
	if res.Expiry.IsZero() {
		t.Fatal("expected expiry on default config token")
	}

	if err := engine.Logout(ctx, login.Token); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := engine.Authenticate(ctx, "Token "+login.Token); !errors.Is(err, bearauth.ErrTokenInvalid) {
		t.Fatalf("expected invalid token after logout, got %v", err)
	}
}

func TestExpiredTokenSelfDestructs(t *testing.T) {
	engine, rdb, cleanup := newIntegrationEngine(t, nil)
	defer cleanup()
	ctx := context.Background()

	login, err := engine.LoginWithTTL(ctx, "u1", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if _, err := engine.AuthenticateToken(ctx, login.Token); !errors.Is(err, bearauth.ErrTokenInvalid) {
		t.Fatalf("expected invalid token after expiry, got %v", err)
	}

	// The failed presentation deleted the credential rows, not just
	// rejected the request.
	keys, err := rdb.Keys(ctx, "bat:d:*").Result()
	if err != nil {
		t.Fatalf("keys scan failed: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected no credential rows after lazy cleanup, found %v", keys)
	}

	// Presenting again is an ordinary miss.
	if _, err := engine.AuthenticateToken(ctx, login.Token); !errors.Is(err, bearauth.ErrTokenInvalid) {
		t.Fatalf("second presentation: %v", err)
	}
}

func TestLogoutAllLeavesOtherPrincipalsAlone(t *testing.T) {
	engine, _, cleanup := newIntegrationEngine(t, nil)
	defer cleanup()
	ctx := context.Background()

	a1, _ := engine.Login(ctx, "alice")
	a2, _ := engine.Login(ctx, "alice")
	b1, _ := engine.Login(ctx, "bob")

	if err := engine.LogoutAll(ctx, "alice"); err != nil {
		t.Fatalf("logoutall failed: %v", err)
	}

	for _, tok := range []string{a1.Token, a2.Token} {
		if _, err := engine.AuthenticateToken(ctx, tok); !errors.Is(err, bearauth.ErrTokenInvalid) {
			t.Fatalf("alice token survived logoutall: %v", err)
		}
	}
	if _, err := engine.AuthenticateToken(ctx, b1.Token); err != nil {
		t.Fatalf("bob's token revoked by alice's logoutall: %v", err)
	}
}

func TestSlidingRenewalEndToEnd(t *testing.T) {
	engine, _, cleanup := newIntegrationEngine(t, func(cfg *bearauth.Config) {
		cfg.Token.AutoRefresh = true
		cfg.Token.TTL = time.Hour
		cfg.Token.MinRefreshInterval = 0
	})
	defer cleanup()
	ctx := context.Background()

	// A short initial lifetime leaves room for renewal to extend it.
	login, err := engine.LoginWithTTL(ctx, "u1", 10*time.Minute)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	res, err := engine.AuthenticateToken(ctx, login.Token)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if !res.Expiry.After(login.Expiry) {
		t.Fatalf("expiry not renewed: login %v, authenticate %v", login.Expiry, res.Expiry)
	}
	if gap := time.Until(res.Expiry); gap < 59*time.Minute {
		t.Fatalf("renewed lifetime %v, want about an hour", gap)
	}
}

func TestRotationEndToEnd(t *testing.T) {
	engine, _, cleanup := newIntegrationEngine(t, enableRefresh)
	defer cleanup()
	ctx := context.Background()

	login, err := engine.Login(ctx, "u1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Walk the chain a few rotations deep.
	pair := login
	for i := 0; i < 4; i++ {
		next, err := engine.Refresh(ctx, pair.RefreshToken)
		if err != nil {
			t.Fatalf("rotation %d failed: %v", i, err)
		}
		if _, err := engine.AuthenticateToken(ctx, next.Token); err != nil {
			t.Fatalf("rotation %d token rejected: %v", i, err)
		}
		pair = next
	}

	// Replaying the original refresh token torches the whole family.
	if _, err := engine.Refresh(ctx, login.RefreshToken); !errors.Is(err, bearauth.ErrRefreshReuse) {
		t.Fatalf("expected reuse detection, got %v", err)
	}
	if _, err := engine.AuthenticateToken(ctx, pair.Token); !errors.Is(err, bearauth.ErrTokenInvalid) {
		t.Fatalf("latest token survived family revocation: %v", err)
	}
}
