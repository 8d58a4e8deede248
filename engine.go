package bearauth

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/bearauth/bearauth/internal/audit"
	"github.com/bearauth/bearauth/internal/flows"
	"github.com/bearauth/bearauth/internal/metrics"
	"github.com/bearauth/bearauth/internal/rate"
	"github.com/bearauth/bearauth/token"
)

// Engine defines a public type used by bearauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// The configuration itself is the exception: [Engine.Reload] swaps tunable
// settings atomically without interrupting in-flight requests.
type Engine struct {
	config     atomic.Pointer[Config]
	store      *token.Store
	digester   *token.Digester
	issuer     *token.Issuer
	limiter    *rate.Limiter
	audit      *audit.Dispatcher
	metrics    *metrics.Metrics
	principals PrincipalProvider
}

func (e *Engine) snapshot() *Config {
	if e == nil {
		return nil
	}
	return e.config.Load()
}

// Reload describes the reload operation and its observable behavior.
//
// Reload validates cfg and swaps it in atomically. Requests already past the
// config read finish under the old settings. Structural settings fixed at
// build time — digest algorithm, secret length, Redis prefix, audit and
// metrics wiring, throttle windows — must match the running values.
func (e *Engine) Reload(cfg Config) error {
	if e == nil {
		return ErrEngineNotReady
	}
	current := e.config.Load()
	if current == nil {
		return ErrEngineNotReady
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Token.Algorithm != current.Token.Algorithm {
		return errors.New("Token Algorithm cannot change at runtime")
	}
	if cfg.Token.SecretLength != current.Token.SecretLength {
		return errors.New("Token SecretLength cannot change at runtime")
	}
	if cfg.Storage.RedisPrefix != current.Storage.RedisPrefix {
		return errors.New("Storage RedisPrefix cannot change at runtime")
	}
	if cfg.Audit != current.Audit {
		return errors.New("Audit settings cannot change at runtime")
	}
	if cfg.Metrics != current.Metrics {
		return errors.New("Metrics settings cannot change at runtime")
	}
	if cfg.Throttle != current.Throttle {
		return errors.New("Throttle settings cannot change at runtime")
	}
	if cfg.Refresh.MinRotationInterval != current.Refresh.MinRotationInterval {
		return errors.New("Refresh MinRotationInterval cannot change at runtime")
	}

	e.config.Store(&cfg)
	return nil
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	cfg := e.snapshot()
	if cfg == nil {
		return Config{}
	}
	return *cfg
}

// Close describes the close operation and its observable behavior.
//
// Close drains and stops the audit dispatcher. Engine methods called after
// Close still work but emit no further events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Ping describes the ping operation and its observable behavior.
//
// Ping checks Redis reachability and reports round-trip latency.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	return e.store.Ping(ctx)
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped returns the number of events discarded because the audit
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot returns a point-in-time copy of every counter and
// histogram. Safe to call concurrently with request traffic.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	if ip := clientIPFromContext(ctx); ip != "" {
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		event.Metadata["client_ip"] = ip
	}
	e.audit.Emit(ctx, event)
}

// validateDeps assembles the authenticator dependency set for one request.
// renew toggles sliding expiry (logout and rotation paths validate without
// renewing).
func (e *Engine) validateDeps(cfg *Config, kind token.Kind, renew bool) flows.ValidateDeps {
	deps := flows.ValidateDeps{
		Kind:    kind,
		Records: e.store,
		Digest:  e.digester.Sum,
		Warn:    func(msg string, _ ...any) { log.Print(msg) },
		EmitExpired: func(ctx context.Context, owner, lookupKey, expiredKind string) {
			e.metricInc(MetricExpiredCleanup)
			event := audit.NewEvent(audit.EventTokenExpired)
			event.PrincipalID = owner
			event.TokenKey = lookupKey
			event.ExpiredKind = expiredKind
			event.Success = true
			e.emitAudit(ctx, event)
		},
	}

	if renew && kind == token.KindAuth && cfg.Token.AutoRefresh {
		deps.AutoRefresh = true
		deps.TokenTTL = cfg.Token.TTL
		deps.AutoRefreshMaxTTL = cfg.Token.AutoRefreshMaxTTL
		deps.MinRefreshInterval = cfg.Token.MinRefreshInterval
		deps.OnRenewalWriteFailed = func(_ context.Context, _, _ string) {
			e.metricInc(MetricRenewalWriteFailed)
		}
	}

	if e.principals != nil {
		deps.PrincipalActive = func(ctx context.Context, id string) (bool, error) {
			p, err := e.principals.GetPrincipal(ctx, id)
			if err != nil {
				if errors.Is(err, ErrPrincipalNotFound) {
					return false, nil
				}
				return false, err
			}
			return p != nil && p.Active, nil
		}
	}

	return deps
}

// lookupPrincipal hydrates the principal record for results. Best-effort:
// a lookup failure after a successful credential check must not fail the
// request.
func (e *Engine) lookupPrincipal(ctx context.Context, id string) *Principal {
	if e == nil || e.principals == nil {
		return nil
	}
	p, err := e.principals.GetPrincipal(ctx, id)
	if err != nil {
		return nil
	}
	return p
}

func expiryTime(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}
