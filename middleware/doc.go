// Package middleware exposes HTTP middleware that enforces pubtkt tickets
// on top of goPubtkt.Engine.
//
// # Guards
//
//   - [Guard] enforces one fixed [goPubtkt.Directory] policy.
//   - [Scoped] resolves the directory policy from each request path.
//
// Each guard reads the ticket cookie (falling back to a query parameter of
// the same name), calls Engine.Authenticate, and either stores an
// [AuthResult] in the request context or redirects to the directory's
// login, timeout or unauthorized URL with the original URL in the back
// argument.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement ticket verification itself; all decisions are delegated to
// Engine.Authenticate.
//
// # What this package must NOT do
//
//   - Parse tickets or check signatures directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Log raw ticket values.
package middleware
