package test

import (
	"context"
	"net/http"
	"testing"
	"time"

	bearauth "github.com/bearauth/bearauth"
	"github.com/bearauth/bearauth/handlers"
	"github.com/bearauth/bearauth/middleware"
)

// This test intentionally guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = bearauth.New
	_ = bearauth.DefaultConfig

	var _ *bearauth.Engine
	var _ *bearauth.Builder
	var _ bearauth.Config
	var _ bearauth.AuthResult
	var _ bearauth.LoginResult
	var _ bearauth.LoginOptions
	var _ bearauth.Principal
	var _ bearauth.PrincipalProvider
	var _ bearauth.AuditSink
	var _ bearauth.AuditEvent
	var _ bearauth.SecurityReport
	var _ bearauth.MetricsSnapshot

	var _ error = bearauth.ErrTokenInvalid
	var _ error = bearauth.ErrNoCredentials
	var _ error = bearauth.ErrTokenContainsSpaces
	var _ error = bearauth.ErrSchemeMismatch
	var _ error = bearauth.ErrPrincipalInactive
	var _ error = bearauth.ErrPrincipalNotFound
	var _ error = bearauth.ErrPrincipalRequired
	var _ error = bearauth.ErrTokenLimitExceeded
	var _ error = bearauth.ErrTTLTooLong
	var _ error = bearauth.ErrLoginThrottled
	var _ error = bearauth.ErrRefreshDisabled
	var _ error = bearauth.ErrRefreshReuse
	var _ error = bearauth.ErrRotationThrottled
	var _ error = bearauth.ErrEngineNotReady
	var _ error = bearauth.ErrStoreUnavailable

	var _ func(*bearauth.Engine) func(http.Handler) http.Handler = middleware.Require
	var _ func(*bearauth.Engine) func(http.Handler) http.Handler = middleware.Optional
	var _ func(*bearauth.Engine, handlers.Authenticator) *handlers.API = handlers.New

	var _ func(*bearauth.Engine, context.Context, string) (*bearauth.LoginResult, error) = (*bearauth.Engine).Login
	var _ func(*bearauth.Engine, context.Context, string, time.Duration) (*bearauth.LoginResult, error) = (*bearauth.Engine).LoginWithTTL
	var _ func(*bearauth.Engine, context.Context, string) (*bearauth.AuthResult, error) = (*bearauth.Engine).Authenticate
	var _ func(*bearauth.Engine, context.Context, string) (*bearauth.AuthResult, error) = (*bearauth.Engine).AuthenticateToken
	var _ func(*bearauth.Engine, context.Context, string) (*bearauth.LoginResult, error) = (*bearauth.Engine).Refresh
	var _ func(*bearauth.Engine, context.Context, string) error = (*bearauth.Engine).Logout
	var _ func(*bearauth.Engine, context.Context, string) error = (*bearauth.Engine).LogoutAll
	var _ func(*bearauth.Engine, bearauth.Config) error = (*bearauth.Engine).Reload
	var _ func(*bearauth.Engine) bearauth.SecurityReport = (*bearauth.Engine).SecurityReport
}
