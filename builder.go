package bearauth

import (
	"errors"

	"github.com/bearauth/bearauth/internal/audit"
	"github.com/bearauth/bearauth/internal/metrics"
	"github.com/bearauth/bearauth/internal/rate"
	"github.com/bearauth/bearauth/token"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by bearauth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	principals PrincipalProvider
	auditSink  AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig replaces the entire configuration. Call it before the
// field-level With helpers or they will be overwritten.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis sets the Redis client backing token storage, families, and
// throttles. Cluster and sentinel clients are accepted through the
// UniversalClient interface.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPrincipalProvider describes the withprincipalprovider operation and its observable behavior.
//
// WithPrincipalProvider connects the caller's account database. Optional;
// without it, active-status checks are skipped.
func (b *Builder) WithPrincipalProvider(p PrincipalProvider) *Builder {
	b.principals = p
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink sets the destination for lifecycle events. Audit must also
// be enabled in [AuditConfig] for events to flow.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms toggles latency histogram collection on the
// authenticate path.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration, wires the storage and throttle layers,
// and starts the audit dispatcher. A Builder can build at most one Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	digester, err := token.NewDigester(cfg.Token.Algorithm)
	if err != nil {
		return nil, err
	}

	store := token.NewStore(b.redis, cfg.Storage.RedisPrefix)

	issuer, err := token.NewIssuer(store, digester, cfg.Token.SecretLength)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		store:      store,
		digester:   digester,
		issuer:     issuer,
		principals: b.principals,
	}
	engine.config.Store(&cfg)

	engine.limiter = rate.New(b.redis, rate.Config{
		MinRotationInterval: cfg.Refresh.MinRotationInterval,
		EnableLoginThrottle: cfg.Throttle.EnableLoginThrottle,
		MaxLoginAttempts:    cfg.Throttle.MaxLoginAttempts,
		LoginCooldown:       cfg.Throttle.LoginCooldown,
	})
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = metrics.New(metrics.Config{
		Enabled:       cfg.Metrics.Enabled,
		EnableLatency: cfg.Metrics.EnableLatencyHistograms,
	})

	b.built = true

	return engine, nil
}
