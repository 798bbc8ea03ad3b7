// Package internal holds implementation packages that are private to
// goPubtkt.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - cache: fixed-capacity verified-ticket ring keyed by xxhash digest
//   - flows: pure-function orchestrators for verification and policy checks
//   - rate: Redis fixed-window counter for forged-ticket throttling
//   - sharedcache: Redis tier sharing verified tickets between processes
//   - tickettest: throwaway issuer keys for tests and the cmd/ tools
//
// # What this package must NOT do
//
//   - Export types that appear in the public goPubtkt API.
//   - Be imported by any package outside the goPubtkt module.
package internal
