package signature

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	_ "crypto/sha1" //nolint:gosec // pubtkt issuers sign with SHA-1 by default
	_ "crypto/sha256"
	_ "crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Digest names the hash used with RSA and ECDSA keys.
type Digest string

const (
	DigestSHA1   Digest = "sha1"
	DigestSHA224 Digest = "sha224"
	DigestSHA256 Digest = "sha256"
	DigestSHA384 Digest = "sha384"
	DigestSHA512 Digest = "sha512"
)

// Algorithm is the signature scheme implied by the configured key.
type Algorithm string

const (
	AlgorithmRSA     Algorithm = "rsa"
	AlgorithmECDSA   Algorithm = "ecdsa"
	AlgorithmEd25519 Algorithm = "ed25519"
)

var (
	ErrMissingKey        = errors.New("signature: public key required")
	ErrUnsupportedKey    = errors.New("signature: unsupported public key")
	ErrUnsupportedDigest = errors.New("signature: unsupported digest")
)

// Config selects the verification key and digest.
type Config struct {
	PublicKey []byte
	Digest    Digest
}

// Verifier checks signatures against one public key. It is immutable after
// construction and safe for concurrent use.
type Verifier struct {
	alg    Algorithm
	digest Digest
	hash   crypto.Hash
	rsa    *rsa.PublicKey
	ec     *ecdsa.PublicKey
	ed     ed25519.PublicKey
	// jwtMethod is set when golang-jwt implements the exact scheme.
	jwtMethod jwt.SigningMethod
}

// NewVerifier parses cfg.PublicKey and prepares the verification routine.
func NewVerifier(cfg Config) (*Verifier, error) {
	if len(cfg.PublicKey) == 0 {
		return nil, ErrMissingKey
	}
	if cfg.Digest == "" {
		cfg.Digest = DigestSHA1
	}
	h, err := hashFor(cfg.Digest)
	if err != nil {
		return nil, err
	}

	key, err := ParsePublicKey(cfg.PublicKey)
	if err != nil {
		return nil, err
	}

	v := &Verifier{digest: cfg.Digest, hash: h}
	switch k := key.(type) {
	case *rsa.PublicKey:
		v.alg = AlgorithmRSA
		v.rsa = k
		switch cfg.Digest {
		case DigestSHA256:
			v.jwtMethod = jwt.SigningMethodRS256
		case DigestSHA384:
			v.jwtMethod = jwt.SigningMethodRS384
		case DigestSHA512:
			v.jwtMethod = jwt.SigningMethodRS512
		}
	case *ecdsa.PublicKey:
		v.alg = AlgorithmECDSA
		v.ec = k
		v.jwtMethod = ecMethodFor(k, cfg.Digest)
	case ed25519.PublicKey:
		v.alg = AlgorithmEd25519
		v.ed = k
		v.jwtMethod = jwt.SigningMethodEdDSA
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
	}
	return v, nil
}

// Algorithm reports the scheme selected by the key.
func (v *Verifier) Algorithm() Algorithm { return v.alg }

// Digest reports the configured digest. Ed25519 ignores it.
func (v *Verifier) Digest() Digest { return v.digest }

// Verify decodes the base64 signature and checks it over payload.
func (v *Verifier) Verify(payload []byte, encodedSig string) (ok bool) {
	if v == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	sig, err := DecodeSignature(encodedSig)
	if err != nil || len(sig) == 0 {
		return false
	}

	switch v.alg {
	case AlgorithmRSA:
		if v.jwtMethod != nil {
			return v.jwtMethod.Verify(string(payload), sig, v.rsa) == nil
		}
		return rsa.VerifyPKCS1v15(v.rsa, v.hash, v.sum(payload), sig) == nil
	case AlgorithmECDSA:
		if ecdsa.VerifyASN1(v.ec, v.sum(payload), sig) {
			return true
		}
		if v.jwtMethod != nil {
			return v.jwtMethod.Verify(string(payload), sig, v.ec) == nil
		}
		return false
	case AlgorithmEd25519:
		return v.jwtMethod.Verify(string(payload), sig, v.ed) == nil
	default:
		return false
	}
}

func (v *Verifier) sum(payload []byte) []byte {
	h := v.hash.New()
	h.Write(payload)
	return h.Sum(nil)
}

// DecodeSignature decodes standard base64 with or without padding.
// Surrounding whitespace is ignored.
func DecodeSignature(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

// ParsePublicKey reads an RSA, ECDSA or Ed25519 public key from PEM, or an
// Ed25519 key from its raw 32 bytes.
func ParsePublicKey(b []byte) (crypto.PublicKey, error) {
	if len(b) == ed25519.PublicKeySize {
		return ed25519.PublicKey(append([]byte(nil), b...)), nil
	}
	if k, err := jwt.ParseRSAPublicKeyFromPEM(b); err == nil {
		return k, nil
	}
	if k, err := jwt.ParseECPublicKeyFromPEM(b); err == nil {
		return k, nil
	}
	if k, err := jwt.ParseEdPublicKeyFromPEM(b); err == nil {
		if ed, ok := k.(ed25519.PublicKey); ok {
			return ed, nil
		}
	}
	return nil, ErrUnsupportedKey
}

func hashFor(d Digest) (crypto.Hash, error) {
	switch d {
	case DigestSHA1:
		return crypto.SHA1, nil
	case DigestSHA224:
		return crypto.SHA224, nil
	case DigestSHA256:
		return crypto.SHA256, nil
	case DigestSHA384:
		return crypto.SHA384, nil
	case DigestSHA512:
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedDigest, d)
	}
}

// ecMethodFor returns the JOSE method whose curve and hash match, for
// fixed-width r||s signatures.
func ecMethodFor(k *ecdsa.PublicKey, d Digest) jwt.SigningMethod {
	switch {
	case k.Curve.Params().BitSize == 256 && d == DigestSHA256:
		return jwt.SigningMethodES256
	case k.Curve.Params().BitSize == 384 && d == DigestSHA384:
		return jwt.SigningMethodES384
	case k.Curve.Params().BitSize == 521 && d == DigestSHA512:
		return jwt.SigningMethodES512
	}
	return nil
}
