// Package handlers bundles ready-made HTTP endpoints for the token
// lifecycle: login, logout, logout-all, and refresh rotation.
//
// The endpoints mirror the Engine operations one-to-one. Login delegates
// credential verification to a caller-supplied [Authenticator]; everything
// after that point — issuance, limits, cookies, serialization — is handled
// here.
//
// # What this package must NOT do
//
//   - Verify passwords or other credentials (the Authenticator does).
//   - Bypass the Engine for any token operation.
package handlers
