package bearauth

import (
	"context"
	"time"

	"github.com/bearauth/bearauth/internal/flows"
	"github.com/bearauth/bearauth/token"
)

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate resolves an Authorization header to its principal. A header
// carrying a different scheme returns [ErrSchemeMismatch] so callers can
// fall through to other authenticators; a matching scheme with a bad
// credential returns a definitive failure.
func (e *Engine) Authenticate(ctx context.Context, header string) (*AuthResult, error) {
	cfg := e.snapshot()
	if cfg == nil {
		return nil, ErrEngineNotReady
	}

	tokenStr, failure := flows.ParseAuthorizationHeader(header, cfg.Token.HeaderScheme)
	switch failure {
	case flows.ValidateFailureNone:
	case flows.ValidateFailureSchemeMismatch:
		return nil, ErrSchemeMismatch
	case flows.ValidateFailureNoCredentials:
		return nil, ErrNoCredentials
	case flows.ValidateFailureTokenContainsSpaces:
		return nil, ErrTokenContainsSpaces
	default:
		return nil, ErrTokenInvalid
	}

	return e.AuthenticateToken(ctx, tokenStr)
}

// AuthenticateToken describes the authenticatetoken operation and its observable behavior.
//
// AuthenticateToken validates a bare token string: expired tokens belonging
// to inspected candidates are cleaned up, and sliding renewal runs when
// enabled. Invalid and unknown tokens are indistinguishable in the returned
// error.
func (e *Engine) AuthenticateToken(ctx context.Context, tokenStr string) (*AuthResult, error) {
	cfg := e.snapshot()
	if cfg == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricAuthenticateLatency, time.Since(start)) }()
	}

	res := flows.RunValidate(ctx, tokenStr, e.validateDeps(cfg, token.KindAuth, true))
	switch res.Failure {
	case flows.ValidateFailureNone:
	case flows.ValidateFailureInactivePrincipal:
		e.metricInc(MetricPrincipalInactive)
		return nil, ErrPrincipalInactive
	case flows.ValidateFailureStore:
		e.metricInc(MetricAuthenticateFailure)
		return nil, res.Err
	default:
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrTokenInvalid
	}

	e.metricInc(MetricAuthenticateSuccess)
	if res.Renewed {
		e.metricInc(MetricTokenRenewed)
	}

	return &AuthResult{
		PrincipalID: res.Owner,
		TokenKey:    res.Record.LookupKey,
		Expiry:      expiryTime(res.Record.Expiry),
		Renewed:     res.Renewed,
		Principal:   e.lookupPrincipal(ctx, res.Owner),
	}, nil
}
