// Package flows contains pure-function orchestrators for Engine operations.
//
// Each flow function (RunVerify, RunCheck) accepts a typed dependency struct
// and returns a classified result without side effects beyond those
// dependencies. This keeps the Engine type thin and lets the decision logic be
// tested with in-memory fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate the ticket cache, shared cache tier, forgery
// throttle, parser and signature verifier. They do NOT own any of these
// resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goPubtkt (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency interfaces.
package flows
