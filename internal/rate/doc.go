// Package rate provides internal primitives used to build Redis-backed rate limit keys,
// errors, and limiter behavior for security-sensitive authentication workflows.
//
// # Window semantics
//
// Rotation uses a SetNX lock per family (key prefix brl:rot:) that expires
// after the configured minimum interval. Login failures use a fixed-window
// counter (key prefix brl:login:): INCR + conditional EXPIRE on first hit.
//
// # What this package must NOT do
//
//   - Decide which operations are throttled (those calls live in the flows).
//   - Be imported outside the bearauth module.
package rate
