// Package rate provides the Redis-backed counters used to throttle clients
// that keep presenting forged or malformed tickets.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefix:
//   - ptf: invalid tickets per client IP
//
// # What this package must NOT do
//
//   - Count requests that presented an authentic ticket.
//   - Be imported outside the goPubtkt module.
package rate
