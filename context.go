package bearauth

import "context"

type clientIPContextKey struct{}
type authResultContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine includes
// it in audit event metadata.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

// ContextWithAuthResult attaches an authentication result to ctx. The
// bundled middleware uses it to hand the resolved principal to handlers.
func ContextWithAuthResult(ctx context.Context, res *AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// AuthResultFromContext retrieves the result stored by the middleware, or
// false when the request was not authenticated.
func AuthResultFromContext(ctx context.Context) (*AuthResult, bool) {
	if ctx == nil {
		return nil, false
	}

	res, ok := ctx.Value(authResultContextKey{}).(*AuthResult)
	if !ok || res == nil {
		return nil, false
	}
	return res, true
}
