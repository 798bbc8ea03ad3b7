// Package ticket parses raw pubtkt ticket strings into typed records.
//
// A raw ticket has the form
//
//	uid=alice;cip=10.0.0.1;validuntil=1700000000;tokens=admin,ops;udata=x;sig=<base64>
//
// The signature field is always last and its value runs to the end of the
// string. Everything before the sig= key, including the separator that
// precedes it, is the signed payload.
//
// # What this package must NOT do
//
//   - Verify signatures (see package signature).
//   - Decide whether a ticket is expired or authorized.
//   - Truncate oversized fields; they are rejected.
package ticket
