package bearauth

import (
	"errors"

	"github.com/bearauth/bearauth/internal/rate"
	"github.com/bearauth/bearauth/token"
)

var (
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrNoCredentials is an exported constant or variable used by the authentication engine.
	ErrNoCredentials = errors.New("no credentials provided")
	// ErrTokenContainsSpaces is an exported constant or variable used by the authentication engine.
	ErrTokenContainsSpaces = errors.New("token string should not contain spaces")
	// ErrSchemeMismatch is an exported constant or variable used by the authentication engine.
	ErrSchemeMismatch = errors.New("authorization scheme not handled")
	// ErrPrincipalInactive is an exported constant or variable used by the authentication engine.
	ErrPrincipalInactive = errors.New("principal inactive or deleted")
	// ErrPrincipalNotFound is an exported constant or variable used by the authentication engine.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrPrincipalRequired is an exported constant or variable used by the authentication engine.
	ErrPrincipalRequired = errors.New("principal id required")
	// ErrTokenLimitExceeded is an exported constant or variable used by the authentication engine.
	ErrTokenLimitExceeded = errors.New("maximum amount of tokens allowed per principal exceeded")
	// ErrTTLTooLong is an exported constant or variable used by the authentication engine.
	ErrTTLTooLong = errors.New("requested token ttl exceeds configured maximum")
	// ErrLoginThrottled is an exported constant or variable used by the authentication engine.
	ErrLoginThrottled = errors.New("login attempts rate limited")
	// ErrRefreshDisabled is an exported constant or variable used by the authentication engine.
	ErrRefreshDisabled = errors.New("refresh rotation disabled")
	// ErrRefreshReuse is an exported constant or variable used by the authentication engine.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrRotationThrottled is an exported constant or variable used by the authentication engine.
	ErrRotationThrottled = errors.New("refresh rotation rate limited")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ErrStoreUnavailable wraps Redis transport failures surfaced by Engine
// methods. Use errors.Is to detect it.
var ErrStoreUnavailable = token.ErrStoreUnavailable

// ErrRateLimited is the underlying limiter sentinel wrapped by
// [ErrLoginThrottled] and [ErrRotationThrottled] flows.
var ErrRateLimited = rate.ErrRateLimited
