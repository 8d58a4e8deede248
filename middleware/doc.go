// Package middleware exposes HTTP middleware adapters built on top of
// bearauth.Engine authentication.
//
// # Guards
//
//   - [Require] — rejects unauthenticated requests with 401.
//   - [Optional] — authenticates when credentials are present, passes
//     through otherwise.
//
// Each guard reads the Authorization header, calls Engine.Authenticate, and
// injects the result into the request context for retrieval via
// [bearauth.AuthResultFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.Authenticate.
//
// # What this package must NOT do
//
//   - Inspect token contents (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.Authenticate.
package middleware
