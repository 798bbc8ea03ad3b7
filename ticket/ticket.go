package ticket

import "strings"

// Field bounds in bytes. Values longer than these are rejected, never truncated.
const (
	MaxUIDLen      = 32
	MaxClientIPLen = 39
	MaxTokensLen   = 255
	MaxUserDataLen = 255

	// MaxRawLen is the longest raw ticket accepted for parsing or caching.
	MaxRawLen = 1024
)

// Ticket is a parsed pubtkt record. It holds no signature material.
type Ticket struct {
	UID        string
	ClientIP   string
	ValidUntil uint64
	Tokens     string
	UserData   string
}

// TokenList splits the comma-separated token field. Empty items are skipped.
func (t Ticket) TokenList() []string {
	if t.Tokens == "" {
		return nil
	}
	parts := strings.Split(t.Tokens, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// HasToken reports whether token appears in the ticket's token list.
func (t Ticket) HasToken(token string) bool {
	if token == "" {
		return false
	}
	for _, have := range t.TokenList() {
		if have == token {
			return true
		}
	}
	return false
}

// Parsed is the output of [Parse]: the record plus the byte ranges that the
// signature verifier needs.
type Parsed struct {
	Ticket Ticket
	// Payload is the signed portion of the raw ticket.
	Payload string
	// Signature is the transport-encoded (base64) signature value.
	Signature string
}
