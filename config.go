package bearauth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bearauth/bearauth/token"
)

// Config defines a public type used by bearauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token    TokenConfig
	Refresh  RefreshConfig
	Throttle ThrottleConfig
	Storage  StorageConfig
	Cookie   CookieConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by bearauth APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	// TTL is the default auth-token lifetime. Zero issues tokens that never
	// expire.
	TTL time.Duration
	// MaxTTL caps per-login TTL overrides. Zero accepts any override.
	MaxTTL time.Duration
	// LimitPerPrincipal caps unexpired auth tokens per principal. Zero means
	// unlimited.
	LimitPerPrincipal int
	// Prefix is a literal string prepended to every issued token, at most
	// [token.MaxLiteralPrefixLength] characters. Useful for secret scanning.
	Prefix string
	// SecretLength is the number of hex characters of random secret per
	// token. Must be even and at least [token.KeyLength].
	SecretLength int
	// Algorithm selects the stored digest: "sha512" (default), "sha3-512",
	// or "blake2b-512". Changing it invalidates every outstanding token.
	Algorithm string
	// HeaderScheme is the Authorization scheme accepted by Authenticate,
	// compared case-insensitively.
	HeaderScheme string

	// AutoRefresh enables sliding expiry on every successful authentication.
	AutoRefresh bool
	// AutoRefreshMaxTTL caps total sliding lifetime from creation. Zero
	// means renewals may extend forever.
	AutoRefreshMaxTTL time.Duration
	// MinRefreshInterval suppresses renewal writes that would gain less than
	// this much lifetime.
	MinRefreshInterval time.Duration
}

// RefreshConfig defines a public type used by bearauth APIs.
//
// RefreshConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RefreshConfig struct {
	Enabled bool
	// TTL is the refresh-token lifetime. Zero issues refresh tokens that
	// never expire.
	TTL time.Duration
	// MaxHistory bounds retained chain rows per family. Older rows are
	// trimmed on rotation, which also retires them as replay tripwires.
	MaxHistory int
	// MinRotationInterval rejects rotations on one family closer together
	// than this. Zero disables the throttle.
	MinRotationInterval time.Duration
}

// ThrottleConfig defines a public type used by bearauth APIs.
//
// ThrottleConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ThrottleConfig struct {
	EnableLoginThrottle bool
	MaxLoginAttempts    int
	LoginCooldown       time.Duration
}

// StorageConfig defines a public type used by bearauth APIs.
//
// StorageConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StorageConfig struct {
	// RedisPrefix namespaces every key. Deployments swapping token models
	// run each model under a distinct prefix.
	RedisPrefix string
}

// CookieConfig controls the optional cookie carrier used by the bundled
// HTTP handlers. The Engine itself never reads or writes cookies.
type CookieConfig struct {
	Enabled  bool
	Name     string
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// AuditConfig defines a public type used by bearauth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by bearauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:                10 * time.Hour,
			MaxTTL:             0,
			LimitPerPrincipal:  0,
			Prefix:             "",
			SecretLength:       64,
			Algorithm:          "sha512",
			HeaderScheme:       "Token",
			AutoRefresh:        false,
			AutoRefreshMaxTTL:  0,
			MinRefreshInterval: 60 * time.Second,
		},
		Refresh: RefreshConfig{
			Enabled:             false,
			TTL:                 30 * 24 * time.Hour,
			MaxHistory:          16,
			MinRotationInterval: 10 * time.Second,
		},
		Throttle: ThrottleConfig{
			EnableLoginThrottle: false,
			MaxLoginAttempts:    5,
			LoginCooldown:       15 * time.Minute,
		},
		Storage: StorageConfig{
			RedisPrefix: "bat",
		},
		Cookie: CookieConfig{
			Enabled:  false,
			Name:     "bearauth_token",
			Path:     "/",
			Secure:   true,
			HTTPOnly: true,
			SameSite: http.SameSiteStrictMode,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the stock configuration: sha512 digests, 64-char
// secrets, 10 hour token TTL, refresh and throttles disabled.
func DefaultConfig() Config {
	return defaultConfig()
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Token
	if c.Token.TTL < 0 {
		return errors.New("Token TTL must be >= 0")
	}
	if c.Token.MaxTTL < 0 {
		return errors.New("Token MaxTTL must be >= 0")
	}
	if c.Token.LimitPerPrincipal < 0 {
		return errors.New("Token LimitPerPrincipal must be >= 0")
	}
	if len(c.Token.Prefix) > token.MaxLiteralPrefixLength {
		return errors.New("Token Prefix exceeds maximum length")
	}
	if c.Token.SecretLength <= 0 || c.Token.SecretLength%2 != 0 {
		return errors.New("Token SecretLength must be a positive even number")
	}
	if c.Token.SecretLength < token.KeyLength {
		return errors.New("Token SecretLength must cover the lookup key length")
	}
	if _, err := token.NewDigester(c.Token.Algorithm); err != nil {
		return err
	}
	if c.Token.HeaderScheme == "" || strings.ContainsAny(c.Token.HeaderScheme, " \t") {
		return errors.New("Token HeaderScheme must be a single non-empty word")
	}
	if c.Token.AutoRefresh && c.Token.TTL <= 0 {
		return errors.New("Token AutoRefresh requires a positive TTL")
	}
	if c.Token.AutoRefreshMaxTTL < 0 {
		return errors.New("Token AutoRefreshMaxTTL must be >= 0")
	}
	if c.Token.AutoRefreshMaxTTL > 0 && c.Token.AutoRefreshMaxTTL < c.Token.TTL {
		return errors.New("Token AutoRefreshMaxTTL must be >= TTL")
	}
	if c.Token.MinRefreshInterval < 0 {
		return errors.New("Token MinRefreshInterval must be >= 0")
	}

	// Refresh
	if c.Refresh.Enabled {
		if c.Refresh.TTL < 0 {
			return errors.New("Refresh TTL must be >= 0")
		}
		if c.Refresh.MaxHistory < 1 {
			return errors.New("Refresh MaxHistory must be >= 1")
		}
		if c.Refresh.MinRotationInterval < 0 {
			return errors.New("Refresh MinRotationInterval must be >= 0")
		}
	}

	// Throttle
	if c.Throttle.EnableLoginThrottle {
		if c.Throttle.MaxLoginAttempts <= 0 {
			return errors.New("Throttle MaxLoginAttempts must be > 0 when login throttle is enabled")
		}
		if c.Throttle.LoginCooldown <= 0 {
			return errors.New("Throttle LoginCooldown must be > 0 when login throttle is enabled")
		}
	}

	// Cookie
	if c.Cookie.Enabled && c.Cookie.Name == "" {
		return errors.New("Cookie Name is required when cookie carrier is enabled")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
