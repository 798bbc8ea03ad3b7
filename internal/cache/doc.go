// Package cache holds recently verified tickets in a fixed-size ring so that
// repeat requests skip signature verification.
//
// Lookups are a full linear scan comparing the 32-bit digest first and the
// exact raw string second. Inserts overwrite the slot under the cursor and
// advance it; hits never reorder entries. Raw tickets longer than the
// configured maximum are never stored.
//
// # What this package must NOT do
//
//   - Store tickets that have not passed signature verification.
//   - Evaluate expiry, IP binding or tokens (entries stay until overwritten).
//   - Deduplicate concurrent inserts of the same ticket.
package cache
