package rate

import "errors"

var (
	// ErrRateLimited reports that a rotation or login attempt fell inside an
	// active throttle window. Callers map it to their own sentinel.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps transport failures from the limiter backend.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
