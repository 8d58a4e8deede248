package bearauth

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/bearauth/bearauth/internal/audit"
	internalmetrics "github.com/bearauth/bearauth/internal/metrics"
)

// Principal is the minimal account representation bearauth needs. Callers
// authenticate principals by their own means; bearauth only checks Active
// on token validation and hands the record back on results.
type Principal struct {
	ID         string
	Username   string
	Active     bool
	Attributes map[string]string
}

// PrincipalProvider is the optional interface that connects bearauth to the
// caller's account database. When no provider is wired, active-status checks
// are skipped and results carry only the principal ID.
//
// Implementations return [ErrPrincipalNotFound] (possibly wrapped) for
// unknown IDs; any other error is treated as a backend failure.
type PrincipalProvider interface {
	GetPrincipal(ctx context.Context, id string) (*Principal, error)
}

// LoginOptions carries per-login overrides for [Engine.LoginWithOptions].
type LoginOptions struct {
	// TTL overrides the configured token lifetime when HasTTL is set. It is
	// validated against [TokenConfig.MaxTTL].
	TTL    time.Duration
	HasTTL bool
}

// LoginResult is returned by [Engine.Login] and [Engine.Refresh]. Token and
// RefreshToken are the only copies of the plaintext credentials that will
// ever exist.
type LoginResult struct {
	Token  string
	Expiry time.Time // zero when the token never expires

	RefreshToken  string
	RefreshExpiry time.Time

	Principal *Principal
}

// AuthResult is returned by [Engine.Authenticate] and
// [Engine.AuthenticateToken].
type AuthResult struct {
	PrincipalID string
	TokenKey    string
	Expiry      time.Time
	Renewed     bool

	// Principal is populated when a [PrincipalProvider] is wired.
	Principal *Principal
}

// AuditEvent is a structured notification record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// Audit event types carried in [AuditEvent].EventType.
const (
	// EventLogin is an exported constant or variable used by the authentication engine.
	EventLogin = internalaudit.EventLogin
	// EventLoginDenied is an exported constant or variable used by the authentication engine.
	EventLoginDenied = internalaudit.EventLoginDenied
	// EventLogout is an exported constant or variable used by the authentication engine.
	EventLogout = internalaudit.EventLogout
	// EventLogoutAll is an exported constant or variable used by the authentication engine.
	EventLogoutAll = internalaudit.EventLogoutAll
	// EventTokenExpired is an exported constant or variable used by the authentication engine.
	EventTokenExpired = internalaudit.EventTokenExpired
	// EventRefreshRotated is an exported constant or variable used by the authentication engine.
	EventRefreshRotated = internalaudit.EventRefreshRotated
	// EventReplayDetected is an exported constant or variable used by the authentication engine.
	EventReplayDetected = internalaudit.EventReplayDetected
	// EventRotationThrottled is an exported constant or variable used by the authentication engine.
	EventRotationThrottled = internalaudit.EventRotationThrottled
	// EventLimitExceeded is an exported constant or variable used by the authentication engine.
	EventLimitExceeded = internalaudit.EventLimitExceeded
)

// MetricID identifies a specific counter or histogram bucket in the
// in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricLoginSuccess is an exported constant or variable used by the authentication engine.
	MetricLoginSuccess = internalmetrics.MetricLoginSuccess
	// MetricLoginLimitExceeded is an exported constant or variable used by the authentication engine.
	MetricLoginLimitExceeded = internalmetrics.MetricLoginLimitExceeded
	// MetricAuthenticateSuccess is an exported constant or variable used by the authentication engine.
	MetricAuthenticateSuccess = internalmetrics.MetricAuthenticateSuccess
	// MetricAuthenticateFailure is an exported constant or variable used by the authentication engine.
	MetricAuthenticateFailure = internalmetrics.MetricAuthenticateFailure
	// MetricPrincipalInactive is an exported constant or variable used by the authentication engine.
	MetricPrincipalInactive = internalmetrics.MetricPrincipalInactive
	// MetricTokenRenewed is an exported constant or variable used by the authentication engine.
	MetricTokenRenewed = internalmetrics.MetricTokenRenewed
	// MetricRenewalWriteFailed is an exported constant or variable used by the authentication engine.
	MetricRenewalWriteFailed = internalmetrics.MetricRenewalWriteFailed
	// MetricExpiredCleanup is an exported constant or variable used by the authentication engine.
	MetricExpiredCleanup = internalmetrics.MetricExpiredCleanup
	// MetricRotationSuccess is an exported constant or variable used by the authentication engine.
	MetricRotationSuccess = internalmetrics.MetricRotationSuccess
	// MetricRotationFailure is an exported constant or variable used by the authentication engine.
	MetricRotationFailure = internalmetrics.MetricRotationFailure
	// MetricReuseDetected is an exported constant or variable used by the authentication engine.
	MetricReuseDetected = internalmetrics.MetricReuseDetected
	// MetricRotationThrottled is an exported constant or variable used by the authentication engine.
	MetricRotationThrottled = internalmetrics.MetricRotationThrottled
	// MetricLogout is an exported constant or variable used by the authentication engine.
	MetricLogout = internalmetrics.MetricLogout
	// MetricLogoutAll is an exported constant or variable used by the authentication engine.
	MetricLogoutAll = internalmetrics.MetricLogoutAll
	// MetricAuthenticateLatency is an exported constant or variable used by the authentication engine.
	MetricAuthenticateLatency = internalmetrics.MetricAuthenticateLatency
)

// Metrics holds atomic counters and optional latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
