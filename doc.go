// Package goPubtkt verifies pubtkt signed tickets: stateless single sign-on
// credentials issued by a central login server and checked at every node
// with the issuer's public key only.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goPubtkt is the public surface. It exposes [Engine], [Builder], [Config],
// [Escape] and value types (Decision, MetricsSnapshot, SecurityReport). Ticket
// parsing lives in package ticket and signature checking in package
// signature; all internal coordination (verification flow, ticket cache,
// shared Redis tier, forgery throttle, audit dispatch) lives under internal/
// and is never exported.
//
// # What this package must NOT do
//
//   - Issue or sign tickets.
//   - Expose Redis clients, cache slots or encoding details in its public API.
//   - Import any sub-package that re-imports goPubtkt (no import cycles).
//
// # Performance contract
//
// Authenticate is the hot path. A ticket already in the local cache costs one
// digest plus a linear scan of the ring and no signature check. Redis is
// touched only on a local miss, and only when the shared tier or throttle is
// enabled.
package goPubtkt
