// Package sharedcache lets several processes share tickets that one of them
// has already verified, via Redis.
//
// Keys are prefix + hex(BLAKE3 keyed hash of the raw ticket) so raw tickets
// never appear in key space. Values are a CBOR record followed by a BLAKE3
// MAC over it; both keys are derived from one configured secret. A record is
// used only if its MAC checks and its stored raw ticket equals the lookup
// string exactly. Entries expire no later than the ticket itself.
//
// # What this package must NOT do
//
//   - Store tickets that have not passed signature verification.
//   - Fail a request on Redis errors; callers treat errors as a miss.
package sharedcache
