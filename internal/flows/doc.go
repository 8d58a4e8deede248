// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunValidate, RunRotate, RunLogout) accepts a
// typed dependency struct and returns a result carrying a failure kind for
// root-level mapping, without side-effects beyond those dependencies. This
// design enables exhaustive unit testing with mock dependencies and keeps
// the Engine type thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the token store, digest engine, rate
// limiter, and event callbacks. They do NOT own any of these resources —
// ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import bearauth (to avoid import cycles).
//   - Perform I/O directly — all I/O is mediated through dependency interfaces.
package flows
