// Package tickettest signs ticket fixtures for tests and the load tool.
// Production code only verifies; nothing outside tests and cmd/ imports this.
package tickettest

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strconv"
	"strings"

	"github.com/MrEthical07/goPubtkt/ticket"
)

// Signer holds a throwaway key pair.
type Signer struct {
	key    crypto.Signer
	hash   crypto.Hash
	public []byte
}

// NewRSA generates an RSA key signing with hash (crypto.SHA1 for the classic
// pubtkt issuer).
func NewRSA(bits int, hash crypto.Hash) (*Signer, error) {
	k, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return newSigner(k, hash)
}

// NewECDSA generates a P-256 key signing SHA-256 digests in ASN.1 form.
func NewECDSA() (*Signer, error) {
	k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return newSigner(k, crypto.SHA256)
}

// NewEd25519 generates an Ed25519 key.
func NewEd25519() (*Signer, error) {
	_, k, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return newSigner(k, crypto.Hash(0))
}

func newSigner(k crypto.Signer, hash crypto.Hash) (*Signer, error) {
	der, err := x509.MarshalPKIXPublicKey(k.Public())
	if err != nil {
		return nil, err
	}
	return &Signer{
		key:    k,
		hash:   hash,
		public: pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}),
	}, nil
}

// PublicPEM returns the PKIX PEM encoding of the public key.
func (s *Signer) PublicPEM() []byte {
	return append([]byte(nil), s.public...)
}

// Payload renders t in issuer field order, ending with the separator that
// precedes sig=.
func Payload(t ticket.Ticket) string {
	var b strings.Builder
	b.WriteString("uid=")
	b.WriteString(t.UID)
	b.WriteByte(';')
	if t.ClientIP != "" {
		b.WriteString("cip=")
		b.WriteString(t.ClientIP)
		b.WriteByte(';')
	}
	b.WriteString("validuntil=")
	b.WriteString(strconv.FormatUint(t.ValidUntil, 10))
	b.WriteByte(';')
	if t.Tokens != "" {
		b.WriteString("tokens=")
		b.WriteString(t.Tokens)
		b.WriteByte(';')
	}
	if t.UserData != "" {
		b.WriteString("udata=")
		b.WriteString(t.UserData)
		b.WriteByte(';')
	}
	return b.String()
}

// SignPayload returns the base64 signature over payload.
func (s *Signer) SignPayload(payload string) (string, error) {
	var (
		sig []byte
		err error
	)
	switch k := s.key.(type) {
	case ed25519.PrivateKey:
		sig = ed25519.Sign(k, []byte(payload))
	case *ecdsa.PrivateKey:
		sig, err = ecdsa.SignASN1(rand.Reader, k, digest(s.hash, payload))
	default:
		sig, err = s.key.Sign(rand.Reader, digest(s.hash, payload), s.hash)
	}
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Sign returns a complete raw ticket for t.
func (s *Signer) Sign(t ticket.Ticket) (string, error) {
	payload := Payload(t)
	sig, err := s.SignPayload(payload)
	if err != nil {
		return "", err
	}
	return payload + "sig=" + sig, nil
}

func digest(h crypto.Hash, payload string) []byte {
	hh := h.New()
	hh.Write([]byte(payload))
	return hh.Sum(nil)
}
