package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bearauth/bearauth/token"
)

func TestRunRotateHappyPath(t *testing.T) {
	f, done := newFlowsTest(t)
	defer done()
	ctx := context.Background()

	login := f.mustLogin(t, "user-1", true)

	res := RunRotate(ctx, login.RefreshPlain, f.rotateDeps())
	if res.Failure != RotateFailureNone {
		t.Fatalf("rotate failed: kind=%d err=%v", res.Failure, res.Err)
	}
	if res.Owner != "user-1" {
		t.Fatalf("owner mismatch: %s", res.Owner)
	}
	if res.Parent != login.Refresh.LookupKey {
		t.Fatalf("parent must stay the chain root: got %s want %s", res.Parent, login.Refresh.LookupKey)
	}

	authDeps := f.validateDeps(token.KindAuth)
	refreshDeps := f.validateDeps(token.KindRefresh)

	// New pair works, old pair is dead.
	if vr := RunValidate(ctx, res.TokenPlain, authDeps); vr.Failure != ValidateFailureNone {
		t.Fatalf("new auth token rejected: %d", vr.Failure)
	}
	if vr := RunValidate(ctx, login.TokenPlain, authDeps); vr.Failure != ValidateFailureInvalidToken {
		t.Fatalf("rotated-out auth token still valid: %d", vr.Failure)
	}
	if vr := RunValidate(ctx, login.RefreshPlain, refreshDeps); vr.Failure != ValidateFailureInvalidToken {
		t.Fatalf("rotated-out refresh token still valid: %d", vr.Failure)
	}

	// The chain keeps both rows; the superseded one is the replay tripwire.
	members, err := f.store.FamilyMembers(ctx, res.Parent)
	if err != nil {
		t.Fatalf("family members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 chain members, got %d", len(members))
	}
}

func TestRunRotateReuseRevokesFamily(t *testing.T) {
	f, done := newFlowsTest(t)
	defer done()
	ctx := context.Background()

	login := f.mustLogin(t, "user-1", true)
	deps := f.rotateDeps()

	first := RunRotate(ctx, login.RefreshPlain, deps)
	if first.Failure != RotateFailureNone {
		t.Fatalf("first rotation: kind=%d err=%v", first.Failure, first.Err)
	}

	// Replaying the superseded refresh token trips reuse detection.
	replay := RunRotate(ctx, login.RefreshPlain, deps)
	if replay.Failure != RotateFailureReuse {
		t.Fatalf("expected reuse, got kind=%d err=%v", replay.Failure, replay.Err)
	}
	if replay.Owner != "user-1" || replay.Parent != first.Parent {
		t.Fatalf("reuse result missing family metadata: %+v", replay)
	}

	// Revocation is total: the latest pair is dead too.
	if vr := RunValidate(ctx, first.TokenPlain, f.validateDeps(token.KindAuth)); vr.Failure != ValidateFailureInvalidToken {
		t.Fatalf("auth token survived family revocation: %d", vr.Failure)
	}
	if vr := RunValidate(ctx, first.RefreshPlain, f.validateDeps(token.KindRefresh)); vr.Failure != ValidateFailureInvalidToken {
		t.Fatalf("refresh token survived family revocation: %d", vr.Failure)
	}
	members, err := f.store.FamilyMembers(ctx, first.Parent)
	if err != nil {
		t.Fatalf("family members: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("chain rows survived revocation: %d", len(members))
	}

	// A second replay of the same dead token is now just an invalid token.
	again := RunRotate(ctx, login.RefreshPlain, deps)
	if again.Failure != RotateFailureInvalidToken {
		t.Fatalf("expected invalid token after revocation, got %d", again.Failure)
	}
}

func TestRunRotateUnknownToken(t *testing.T) {
	f, done := newFlowsTest(t)
	defer done()

	res := RunRotate(context.Background(), "zzzzzzzzzzzzzzz-not-a-token", f.rotateDeps())
	if res.Failure != RotateFailureInvalidToken {
		t.Fatalf("expected invalid token, got %d", res.Failure)
	}
}

func TestRunRotateHistoryTrim(t *testing.T) {
	f, done := newFlowsTest(t)
	defer done()
	ctx := context.Background()

	login := f.mustLogin(t, "user-1", true)
	deps := f.rotateDeps()
	deps.MaxHistory = 3

	current := login.RefreshPlain
	trimmedTotal := 0
	for i := 0; i < 5; i++ {
		res := RunRotate(ctx, current, deps)
		if res.Failure != RotateFailureNone {
			t.Fatalf("rotation %d: kind=%d err=%v", i, res.Failure, res.Err)
		}
		trimmedTotal += res.TrimmedRows
		current = res.RefreshPlain
	}

	members, err := f.store.FamilyMembers(ctx, login.Refresh.LookupKey)
	if err != nil {
		t.Fatalf("family members: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("expected chain trimmed to 3, got %d", len(members))
	}
	if trimmedTotal != 3 {
		t.Fatalf("expected 3 rows trimmed across rotations, got %d", trimmedTotal)
	}

	// The newest member still rotates.
	res := RunRotate(ctx, current, deps)
	if res.Failure != RotateFailureNone {
		t.Fatalf("post-trim rotation: kind=%d err=%v", res.Failure, res.Err)
	}
}

type stubThrottle struct {
	allow    bool
	released []string
	limited  error
}

func (s *stubThrottle) CheckRotation(_ context.Context, parent string) error {
	if !s.allow {
		return s.limited
	}
	return nil
}

func (s *stubThrottle) ReleaseRotation(_ context.Context, parent string) error {
	s.released = append(s.released, parent)
	return nil
}

func TestRunRotateThrottled(t *testing.T) {
	f, done := newFlowsTest(t)
	defer done()
	ctx := context.Background()

	login := f.mustLogin(t, "user-1", true)

	limited := errors.New("rate limited")
	deps := f.rotateDeps()
	deps.Throttle = &stubThrottle{allow: false, limited: limited}
	deps.RateLimited = limited

	res := RunRotate(ctx, login.RefreshPlain, deps)
	if res.Failure != RotateFailureThrottled {
		t.Fatalf("expected throttled, got kind=%d err=%v", res.Failure, res.Err)
	}

	// The refresh token is untouched: the caller can retry after backoff.
	retryDeps := f.rotateDeps()
	retry := RunRotate(ctx, login.RefreshPlain, retryDeps)
	if retry.Failure != RotateFailureNone {
		t.Fatalf("retry after throttle failed: kind=%d err=%v", retry.Failure, retry.Err)
	}
}

func TestRunRotateInactivePrincipal(t *testing.T) {
	f, done := newFlowsTest(t)
	defer done()
	ctx := context.Background()

	login := f.mustLogin(t, "user-1", true)

	deps := f.rotateDeps()
	deps.Validate.PrincipalActive = func(context.Context, string) (bool, error) { return false, nil }

	res := RunRotate(ctx, login.RefreshPlain, deps)
	if res.Failure != RotateFailureInactivePrincipal {
		t.Fatalf("expected inactive principal, got %d", res.Failure)
	}
}

func TestExpiredCurrentMemberIsNotReuse(t *testing.T) {
	f, done := newFlowsTest(t)
	defer done()
	ctx := context.Background()

	login := f.mustLogin(t, "user-1", true)

	rotated := RunRotate(ctx, login.RefreshPlain, f.rotateDeps())
	if rotated.Failure != RotateFailureNone {
		t.Fatalf("rotation failed: kind=%d err=%v", rotated.Failure, rotated.Err)
	}

	// Present the chain's current refresh token after its natural lifetime.
	// Lazy cleanup removes the record; the newest row going dead is expiry,
	// not replay.
	future := time.Now().Add(31 * 24 * time.Hour)
	expired := f.rotateDeps()
	expired.Validate.Now = func() time.Time { return future }
	expired.Now = expired.Validate.Now

	res := RunRotate(ctx, rotated.RefreshPlain, expired)
	if res.Failure != RotateFailureInvalidToken {
		t.Fatalf("expected invalid token for expired current member, got kind=%d err=%v", res.Failure, res.Err)
	}

	// The family was not revoked: both chain rows survive.
	members, err := f.store.FamilyMembers(ctx, rotated.Parent)
	if err != nil {
		t.Fatalf("family members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("chain rows = %d, want 2", len(members))
	}

	// A genuinely superseded member still trips the wire.
	stale := RunRotate(ctx, login.RefreshPlain, expired)
	if stale.Failure != RotateFailureReuse {
		t.Fatalf("expected reuse for stale member, got kind=%d err=%v", stale.Failure, stale.Err)
	}
}
