package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters.
type Config struct {
	MinRotationInterval time.Duration

	EnableLoginThrottle bool
	MaxLoginAttempts    int
	LoginCooldown       time.Duration
}

// Limiter enforces the minimum interval between refresh rotations on one
// family and an optional failed-login budget, using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

func rotationKey(parent string) string {
	return "brl:rot:" + parent
}

func loginKey(identifier string) string {
	return "brl:login:" + identifier
}

// CheckRotation reserves a rotation slot for the family parent. The first
// caller in each window succeeds; later callers inside the window get
// ErrRateLimited. A zero interval disables throttling.
func (l *Limiter) CheckRotation(ctx context.Context, parent string) error {
	if l == nil || l.config.MinRotationInterval <= 0 {
		return nil
	}

	ok, err := l.redis.SetNX(ctx, rotationKey(parent), 1, l.config.MinRotationInterval).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}

// ReleaseRotation frees a reserved slot so that a rotation aborted for
// non-throttle reasons does not burn the window.
func (l *Limiter) ReleaseRotation(ctx context.Context, parent string) error {
	if l == nil || l.config.MinRotationInterval <= 0 {
		return nil
	}
	if err := l.redis.Del(ctx, rotationKey(parent)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CheckLogin checks whether the identifier is within the login attempt
// budget. Returns ErrRateLimited when over budget.
func (l *Limiter) CheckLogin(ctx context.Context, identifier string) error {
	if l == nil || !l.config.EnableLoginThrottle {
		return nil
	}

	count, err := l.redis.Get(ctx, loginKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count > int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	return nil
}

// IncrementLogin records a failed login attempt for the identifier.
func (l *Limiter) IncrementLogin(ctx context.Context, identifier string) error {
	if l == nil || !l.config.EnableLoginThrottle {
		return nil
	}

	count, err := l.redis.Incr(ctx, loginKey(identifier)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, loginKey(identifier), l.config.LoginCooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	if count > int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the failed-login counter after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, identifier string) error {
	if l == nil || !l.config.EnableLoginThrottle {
		return nil
	}
	if err := l.redis.Del(ctx, loginKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
