package bearauth

import (
	"context"

	"github.com/bearauth/bearauth/internal/audit"
	"github.com/bearauth/bearauth/internal/flows"
	"github.com/bearauth/bearauth/token"
)

// Logout describes the logout operation and its observable behavior.
//
// Logout revokes exactly the presented token. Other tokens held by the same
// principal stay valid. When refresh is enabled, the token's rotation family
// is revoked with it.
func (e *Engine) Logout(ctx context.Context, tokenStr string) error {
	cfg := e.snapshot()
	if cfg == nil || e.store == nil {
		return ErrEngineNotReady
	}

	// No renewal on the logout path; the token is about to disappear.
	res := flows.RunValidate(ctx, tokenStr, e.validateDeps(cfg, token.KindAuth, false))
	switch res.Failure {
	case flows.ValidateFailureNone:
	case flows.ValidateFailureInactivePrincipal:
		return ErrPrincipalInactive
	case flows.ValidateFailureStore:
		return res.Err
	default:
		return ErrTokenInvalid
	}

	err := flows.RunLogout(ctx, res.Record, flows.LogoutDeps{
		Records:        e.store,
		Families:       e.store,
		RefreshEnabled: cfg.Refresh.Enabled,
		NotFound:       token.ErrNotFound,
	})

	event := audit.NewEvent(audit.EventLogout)
	event.PrincipalID = res.Owner
	event.TokenKey = res.Record.LookupKey
	event.Success = err == nil
	if err != nil {
		event.Error = err.Error()
	}
	e.emitAudit(ctx, event)

	if err == nil {
		e.metricInc(MetricLogout)
	}
	return err
}

// LogoutAll describes the logoutall operation and its observable behavior.
//
// LogoutAll revokes every token the principal holds — auth tokens, refresh
// tokens, and all rotation families — leaving other principals untouched.
func (e *Engine) LogoutAll(ctx context.Context, principalID string) error {
	cfg := e.snapshot()
	if cfg == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if principalID == "" {
		return ErrPrincipalRequired
	}

	err := flows.RunLogoutAll(ctx, principalID, flows.LogoutDeps{
		Records:        e.store,
		Families:       e.store,
		RefreshEnabled: cfg.Refresh.Enabled,
		NotFound:       token.ErrNotFound,
	})

	event := audit.NewEvent(audit.EventLogoutAll)
	event.PrincipalID = principalID
	event.Success = err == nil
	if err != nil {
		event.Error = err.Error()
	}
	e.emitAudit(ctx, event)

	if err == nil {
		e.metricInc(MetricLogoutAll)
	}
	return err
}
