package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	bearauth "github.com/bearauth/bearauth"
)

func newGuardTest(t *testing.T) (*bearauth.Engine, string, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	engine, err := bearauth.New().
		WithConfig(bearauth.DefaultConfig()).
		WithRedis(rdb).
		Build()
	if err != nil {
		t.Fatalf("engine build: %v", err)
	}

	login, err := engine.Login(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	return engine, login.Token, func() {
		engine.Close()
		rdb.Close()
		mr.Close()
	}
}

func echoPrincipal(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := bearauth.AuthResultFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Write([]byte(res.PrincipalID))
	})
}

func TestRequireValidToken(t *testing.T) {
	engine, tokenStr, done := newGuardTest(t)
	defer done()

	handler := Require(engine)(echoPrincipal(t))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token "+tokenStr)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "user-1" {
		t.Fatalf("principal from context = %q, want %q", got, "user-1")
	}
}

func TestRequireRejections(t *testing.T) {
	engine, tokenStr, done := newGuardTest(t)
	defer done()

	handler := Require(engine)(echoPrincipal(t))

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Bearer " + tokenStr},
		{"scheme only", "Token"},
		{"unknown token", "Token 0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if got := rec.Header().Get("WWW-Authenticate"); got != "Token" {
				t.Fatalf("WWW-Authenticate = %q, want %q", got, "Token")
			}
		})
	}
}

func TestRequireRevokedToken(t *testing.T) {
	engine, tokenStr, done := newGuardTest(t)
	defer done()

	if err := engine.Logout(context.Background(), tokenStr); err != nil {
		t.Fatalf("logout: %v", err)
	}

	handler := Require(engine)(echoPrincipal(t))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token "+tokenStr)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status after logout = %d, want 401", rec.Code)
	}
}

func TestRequireNilEngine(t *testing.T) {
	handler := Require(nil)(echoPrincipal(t))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestOptionalPassThrough(t *testing.T) {
	engine, _, done := newGuardTest(t)
	defer done()

	handler := Optional(engine)(echoPrincipal(t))

	// No Authorization header: request proceeds unauthenticated.
	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status without header = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("unexpected principal without credentials: %q", rec.Body.String())
	}

	// Another authenticator's scheme also passes through.
	req = httptest.NewRequest(http.MethodGet, "/page", nil)
	req.Header.Set("Authorization", "Bearer something")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with foreign scheme = %d, want 200", rec.Code)
	}
}

func TestOptionalAuthenticates(t *testing.T) {
	engine, tokenStr, done := newGuardTest(t)
	defer done()

	handler := Optional(engine)(echoPrincipal(t))

	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	req.Header.Set("Authorization", "Token "+tokenStr)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "user-1" {
		t.Fatalf("principal from context = %q, want %q", got, "user-1")
	}
}

func TestOptionalRejectsBadCredential(t *testing.T) {
	engine, _, done := newGuardTest(t)
	defer done()

	handler := Optional(engine)(echoPrincipal(t))

	// Our scheme with a bogus credential is an outright rejection, not a
	// pass-through.
	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	req.Header.Set("Authorization", "Token not-a-real-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
