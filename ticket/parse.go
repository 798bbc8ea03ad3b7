package ticket

import (
	"strconv"
	"strings"
)

const sigKey = "sig="

// Parse splits raw into payload and signature and decodes the payload fields.
//
// Recognized keys are uid, cip, validuntil, tokens and udata. Unknown keys are
// ignored. When a key repeats, the later value wins. uid and validuntil are
// required; validuntil must be plain decimal digits.
func Parse(raw string) (Parsed, error) {
	if len(raw) > MaxRawLen {
		return Parsed{}, parseErr("", ErrTicketTooLong)
	}

	sigAt := signatureIndex(raw)
	if sigAt < 0 {
		return Parsed{}, parseErr("sig", ErrMissingSignature)
	}
	sig := raw[sigAt+len(sigKey):]
	if sig == "" {
		return Parsed{}, parseErr("sig", ErrMissingSignature)
	}

	out := Parsed{
		Payload:   raw[:sigAt],
		Signature: sig,
	}

	var haveUID, haveValidUntil bool
	for _, field := range strings.Split(raw[:sigAt], ";") {
		if field == "" {
			continue
		}
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}

		switch key {
		case "uid":
			if len(value) > MaxUIDLen {
				return Parsed{}, parseErr(key, ErrFieldTooLong)
			}
			out.Ticket.UID = value
			haveUID = value != ""
		case "cip":
			if len(value) > MaxClientIPLen {
				return Parsed{}, parseErr(key, ErrFieldTooLong)
			}
			out.Ticket.ClientIP = value
		case "validuntil":
			n, err := parseUnsigned(value)
			if err != nil {
				return Parsed{}, parseErr(key, err)
			}
			out.Ticket.ValidUntil = n
			haveValidUntil = true
		case "tokens":
			if len(value) > MaxTokensLen {
				return Parsed{}, parseErr(key, ErrFieldTooLong)
			}
			out.Ticket.Tokens = value
		case "udata":
			if len(value) > MaxUserDataLen {
				return Parsed{}, parseErr(key, ErrFieldTooLong)
			}
			out.Ticket.UserData = value
		}
	}

	if !haveUID {
		return Parsed{}, parseErr("uid", ErrMissingRequiredField)
	}
	if !haveValidUntil {
		return Parsed{}, parseErr("validuntil", ErrMissingRequiredField)
	}

	return out, nil
}

// signatureIndex returns the offset of the first sig= key that starts a
// field, or -1.
func signatureIndex(raw string) int {
	if strings.HasPrefix(raw, sigKey) {
		return 0
	}
	i := strings.Index(raw, ";"+sigKey)
	if i < 0 {
		return -1
	}
	return i + 1
}

// parseUnsigned accepts ASCII digits only; overflow of uint64 is malformed.
func parseUnsigned(s string) (uint64, error) {
	if s == "" {
		return 0, ErrMalformedInteger
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrMalformedInteger
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ErrMalformedInteger
	}
	return n, nil
}
