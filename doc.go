// Package bearauth provides opaque bearer-token authentication for API
// servers: digest-only token storage in Redis, lazy expiry cleanup on the
// access path, optional sliding renewal, and rotating refresh tokens with
// family-based reuse detection.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// bearauth is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (LoginResult, AuthResult, MetricsSnapshot, etc.). All
// internal coordination — flow orchestration, record encoding, rate limiting,
// audit dispatch — lives under internal/ and is never exported. The token
// sub-package holds the storage model and is importable for advanced
// integrations.
//
// # What this package must NOT do
//
//   - Persist or log token plaintext anywhere. Secrets exist only in the
//     return values of Login and Refresh.
//   - Verify principal credentials. Callers authenticate principals by their
//     own means and hand bearauth an already-trusted principal ID.
//   - Expose Redis clients, internal stores, or encoding details in its
//     public API.
//
// # Performance contract
//
// Authenticate is the hot path. It performs one indexed Redis lookup plus a
// constant-time digest comparison per candidate; expired-token cleanup reuses
// rows already fetched for that lookup.
package bearauth
