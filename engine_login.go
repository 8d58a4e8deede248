package bearauth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/bearauth/bearauth/internal/audit"
	"github.com/bearauth/bearauth/internal/flows"
)

// Login describes the login operation and its observable behavior.
//
// Login issues a session token for a principal the caller has already
// authenticated. The returned plaintext is the only copy that will ever
// exist. When refresh is enabled, a rotation credential and a new token
// family are created alongside it.
func (e *Engine) Login(ctx context.Context, principalID string) (*LoginResult, error) {
	return e.LoginWithOptions(ctx, principalID, LoginOptions{})
}

// LoginWithTTL describes the loginwithttl operation and its observable behavior.
//
// LoginWithTTL issues a token with a per-request lifetime, validated against
// [TokenConfig.MaxTTL]. A zero ttl issues a token that never expires.
func (e *Engine) LoginWithTTL(ctx context.Context, principalID string, ttl time.Duration) (*LoginResult, error) {
	return e.LoginWithOptions(ctx, principalID, LoginOptions{TTL: ttl, HasTTL: true})
}

// LoginWithOptions describes the loginwithoptions operation and its observable behavior.
//
// LoginWithOptions is the full-form login entry point.
func (e *Engine) LoginWithOptions(ctx context.Context, principalID string, opts LoginOptions) (*LoginResult, error) {
	cfg := e.snapshot()
	if cfg == nil || e.issuer == nil {
		return nil, ErrEngineNotReady
	}
	if principalID == "" {
		return nil, ErrPrincipalRequired
	}

	if e.limiter != nil {
		if err := e.limiter.CheckLogin(ctx, principalID); err != nil {
			if errors.Is(err, ErrRateLimited) {
				e.emitLoginDenied(ctx, principalID, ErrLoginThrottled, "throttled")
				return nil, ErrLoginThrottled
			}
			return nil, err
		}
	}

	if e.principals != nil {
		p, err := e.principals.GetPrincipal(ctx, principalID)
		if err != nil {
			if errors.Is(err, ErrPrincipalNotFound) {
				e.recordLoginFailure(ctx, principalID)
				e.emitLoginDenied(ctx, principalID, ErrPrincipalNotFound, "unknown_principal")
				return nil, ErrPrincipalNotFound
			}
			return nil, err
		}
		if p == nil || !p.Active {
			e.recordLoginFailure(ctx, principalID)
			e.metricInc(MetricPrincipalInactive)
			e.emitLoginDenied(ctx, principalID, ErrPrincipalInactive, "inactive_principal")
			return nil, ErrPrincipalInactive
		}
	}

	result := flows.RunLogin(ctx, principalID, flows.LoginOptions{
		TTL:    opts.TTL,
		HasTTL: opts.HasTTL,
	}, flows.LoginDeps{
		Records:           e.store,
		Families:          e.store,
		TokenLimitPerUser: cfg.Token.LimitPerPrincipal,
		TokenTTL:          cfg.Token.TTL,
		MaxTTL:            cfg.Token.MaxTTL,
		TokenPrefix:       cfg.Token.Prefix,
		RefreshEnabled:    cfg.Refresh.Enabled,
		RefreshTTL:        cfg.Refresh.TTL,
		Issue:             e.issuer.Issue,
	})

	switch result.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureLimitExceeded:
		e.metricInc(MetricLoginLimitExceeded)
		event := audit.NewEvent(audit.EventLimitExceeded)
		event.PrincipalID = principalID
		event.Error = ErrTokenLimitExceeded.Error()
		e.emitAudit(ctx, event)
		return nil, ErrTokenLimitExceeded
	case flows.LoginFailureTTLTooLong:
		e.emitLoginDenied(ctx, principalID, ErrTTLTooLong, "ttl_too_long")
		return nil, ErrTTLTooLong
	default:
		e.emitLoginDenied(ctx, principalID, result.Err, "issue_failed")
		return nil, result.Err
	}

	if e.limiter != nil {
		// Counter reset is best-effort and must not block a successful login.
		if err := e.limiter.ResetLogin(ctx, principalID); err != nil {
			log.Print("bearauth: login limiter reset failed")
		}
	}

	e.metricInc(MetricLoginSuccess)
	event := audit.NewEvent(audit.EventLogin)
	event.PrincipalID = principalID
	event.TokenKey = result.Token.LookupKey
	event.Success = true
	e.emitAudit(ctx, event)

	out := &LoginResult{
		Token:     result.TokenPlain,
		Expiry:    expiryTime(result.Token.Expiry),
		Principal: e.lookupPrincipal(ctx, principalID),
	}
	if result.Refresh != nil {
		out.RefreshToken = result.RefreshPlain
		out.RefreshExpiry = expiryTime(result.Refresh.Expiry)
	}
	return out, nil
}

func (e *Engine) recordLoginFailure(ctx context.Context, principalID string) {
	if e.limiter == nil {
		return
	}
	if err := e.limiter.IncrementLogin(ctx, principalID); err != nil && !errors.Is(err, ErrRateLimited) {
		log.Print("bearauth: login limiter increment failed")
	}
}

func (e *Engine) emitLoginDenied(ctx context.Context, principalID string, cause error, reason string) {
	event := audit.NewEvent(audit.EventLoginDenied)
	event.PrincipalID = principalID
	if cause != nil {
		event.Error = cause.Error()
	}
	event.Metadata = map[string]string{"reason": reason}
	e.emitAudit(ctx, event)
}
