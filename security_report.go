package bearauth

import "github.com/bearauth/bearauth/internal/security"

// SecurityReport defines a public type used by bearauth APIs. It is a
// read-only snapshot of the engine's security posture, returned by
// [Engine.SecurityReport].
type SecurityReport = security.Report

// SecurityReport derives the posture report from the engine's current
// configuration. Safe to call concurrently with [Engine.Reload]; the report
// reflects one consistent config snapshot.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.snapshot()
	if cfg == nil {
		return SecurityReport{}
	}

	return security.BuildReport(security.ReportInput{
		DigestAlgorithm:     cfg.Token.Algorithm,
		TokenTTL:            cfg.Token.TTL,
		MaxTTL:              cfg.Token.MaxTTL,
		LimitPerPrincipal:   cfg.Token.LimitPerPrincipal,
		AutoRefresh:         cfg.Token.AutoRefresh,
		RefreshEnabled:      cfg.Refresh.Enabled,
		RefreshMaxHistory:   cfg.Refresh.MaxHistory,
		MinRotationInterval: cfg.Refresh.MinRotationInterval,
		LoginThrottle:       cfg.Throttle.EnableLoginThrottle,
		MaxLoginAttempts:    cfg.Throttle.MaxLoginAttempts,
		LoginCooldown:       cfg.Throttle.LoginCooldown,
		AuditEnabled:        cfg.Audit.Enabled,
	})
}
