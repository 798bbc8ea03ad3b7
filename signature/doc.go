// Package signature verifies detached ticket signatures with a configured
// public key.
//
// The key type selects the algorithm: RSA keys use PKCS#1 v1.5 with the
// configured digest (SHA-1 unless set), ECDSA keys accept ASN.1 DER or
// fixed-width r||s signatures, Ed25519 keys use pure Ed25519. Keys are read
// from PEM (PKIX, PKCS#1 or certificate) or, for Ed25519, from the raw 32
// bytes.
//
// # What this package must NOT do
//
//   - Sign or issue tickets.
//   - Return errors or panic from Verify; every failure is "not valid".
package signature
