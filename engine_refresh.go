package bearauth

import (
	"context"
	"log"

	"github.com/bearauth/bearauth/internal/audit"
	"github.com/bearauth/bearauth/internal/flows"
	"github.com/bearauth/bearauth/internal/rate"
	"github.com/bearauth/bearauth/token"
)

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh exchanges a valid refresh token for a fresh auth/refresh pair on
// the same family chain and voids the presented pair. Presenting any
// superseded refresh token — replay — revokes the entire family and every
// token it ever issued; the caller gets [ErrRefreshReuse] and the legitimate
// holder's credentials stop working, forcing a clean re-login.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	cfg := e.snapshot()
	if cfg == nil || e.issuer == nil {
		return nil, ErrEngineNotReady
	}
	if !cfg.Refresh.Enabled {
		return nil, ErrRefreshDisabled
	}

	res := flows.RunRotate(ctx, refreshToken, flows.RotateDeps{
		Records:     e.store,
		Families:    e.store,
		Validate:    e.validateDeps(cfg, token.KindRefresh, false),
		Throttle:    e.limiter,
		RateLimited: rate.ErrRateLimited,
		NotFound:    token.ErrNotFound,
		TokenTTL:    cfg.Token.TTL,
		RefreshTTL:  cfg.Refresh.TTL,
		TokenPrefix: cfg.Token.Prefix,
		MaxHistory:  cfg.Refresh.MaxHistory,
		Issue:       e.issuer.Issue,
		Warn:        func(msg string, _ ...any) { log.Print(msg) },
	})

	switch res.Failure {
	case flows.RotateFailureNone:
	case flows.RotateFailureReuse:
		e.metricInc(MetricReuseDetected)
		event := audit.NewEvent(audit.EventReplayDetected)
		event.PrincipalID = res.Owner
		event.TokenKey = res.Parent
		event.Error = ErrRefreshReuse.Error()
		e.emitAudit(ctx, event)
		return nil, ErrRefreshReuse
	case flows.RotateFailureThrottled:
		e.metricInc(MetricRotationThrottled)
		event := audit.NewEvent(audit.EventRotationThrottled)
		event.PrincipalID = res.Owner
		event.TokenKey = res.Parent
		event.Error = ErrRotationThrottled.Error()
		e.emitAudit(ctx, event)
		return nil, ErrRotationThrottled
	case flows.RotateFailureInactivePrincipal:
		e.metricInc(MetricPrincipalInactive)
		return nil, ErrPrincipalInactive
	case flows.RotateFailureInvalidToken:
		e.metricInc(MetricRotationFailure)
		return nil, ErrTokenInvalid
	default:
		e.metricInc(MetricRotationFailure)
		return nil, res.Err
	}

	e.metricInc(MetricRotationSuccess)
	event := audit.NewEvent(audit.EventRefreshRotated)
	event.PrincipalID = res.Owner
	event.TokenKey = res.Token.LookupKey
	event.Success = true
	e.emitAudit(ctx, event)

	return &LoginResult{
		Token:         res.TokenPlain,
		Expiry:        expiryTime(res.Token.Expiry),
		RefreshToken:  res.RefreshPlain,
		RefreshExpiry: expiryTime(res.Refresh.Expiry),
		Principal:     e.lookupPrincipal(ctx, res.Owner),
	}, nil
}
