package security

import "time"

// Report is the computed security posture of a running engine.
type Report struct {
	DigestAlgorithm        string
	TokenTTL               time.Duration
	MaxTTL                 time.Duration
	TokensNeverExpire      bool
	TokenLimitActive       bool
	AutoRefreshEnabled     bool
	RefreshEnabled         bool
	ReuseDetectionActive   bool
	RotationThrottleActive bool
	LoginThrottleActive    bool
	AuditEnabled           bool
}

// ReportInput carries the configuration facts the report is derived from.
type ReportInput struct {
	DigestAlgorithm     string
	TokenTTL            time.Duration
	MaxTTL              time.Duration
	LimitPerPrincipal   int
	AutoRefresh         bool
	RefreshEnabled      bool
	RefreshMaxHistory   int
	MinRotationInterval time.Duration
	LoginThrottle       bool
	MaxLoginAttempts    int
	LoginCooldown       time.Duration
	AuditEnabled        bool
}

// BuildReport derives a [Report] from configuration. Derived fields collapse
// multi-knob settings into a single active/inactive verdict.
func BuildReport(input ReportInput) Report {
	return Report{
		DigestAlgorithm:        input.DigestAlgorithm,
		TokenTTL:               input.TokenTTL,
		MaxTTL:                 input.MaxTTL,
		TokensNeverExpire:      input.TokenTTL == 0,
		TokenLimitActive:       input.LimitPerPrincipal > 0,
		AutoRefreshEnabled:     input.AutoRefresh,
		RefreshEnabled:         input.RefreshEnabled,
		ReuseDetectionActive:   input.RefreshEnabled && input.RefreshMaxHistory > 0,
		RotationThrottleActive: input.RefreshEnabled && input.MinRotationInterval > 0,
		LoginThrottleActive:    input.LoginThrottle && input.MaxLoginAttempts > 0 && input.LoginCooldown > 0,
		AuditEnabled:           input.AuditEnabled,
	}
}
