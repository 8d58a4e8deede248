//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"sync"
	"testing"

	bearauth "github.com/bearauth/bearauth"
)

func TestRefreshRaceSingleWinner(t *testing.T) {
	ctx := context.Background()
	engine, _, cleanup := newIntegrationEngine(t, enableRefresh)
	defer cleanup()

	login, err := engine.Login(ctx, "u-race")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	const workers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := engine.Refresh(ctx, login.RefreshToken)
			results <- err
		}()
	}

	close(start)
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, bearauth.ErrRefreshReuse), errors.Is(err, bearauth.ErrTokenInvalid):
		default:
			t.Fatalf("unexpected rotate error: %v", err)
		}
	}

	if success > 1 {
		t.Fatalf("expected at most one winner, got %d", success)
	}

	// The concurrent presentations of one refresh token are
	// indistinguishable from replay, so the whole family must be dead
	// afterwards regardless of who won.
	if _, err := engine.AuthenticateToken(ctx, login.Token); !errors.Is(err, bearauth.ErrTokenInvalid) {
		t.Fatalf("original token survived the race: %v", err)
	}
	if _, err := engine.Refresh(ctx, login.RefreshToken); !errors.Is(err, bearauth.ErrTokenInvalid) {
		t.Fatalf("refresh token survived the race: %v", err)
	}
}

func TestConcurrentAuthenticateStable(t *testing.T) {
	ctx := context.Background()
	engine, _, cleanup := newIntegrationEngine(t, nil)
	defer cleanup()

	login, err := engine.Login(ctx, "u-auth")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := engine.AuthenticateToken(ctx, login.Token); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent authenticate failed: %v", err)
	}
}
