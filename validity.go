package goPubtkt

import (
	"time"

	"github.com/MrEthical07/goPubtkt/internal/flows"
)

// CheckValidity applies, in order: expiry (a ticket valid until exactly now
// is still valid), client IP binding when policy requires it and the ticket
// carries an address, and the required token set. It is pure and safe for
// concurrent use.
func CheckValidity(t Ticket, now time.Time, requesterIP string, policy Policy) ValidityResult {
	kind := flows.RunCheck(t, now.Unix(), requesterIP, flows.ValidityPolicy{
		RequireIPMatch: policy.RequireIPMatch,
		NormalizeIP:    policy.NormalizeIP,
		RequiredTokens: policy.RequiredTokens,
		MatchAll:       policy.TokenMatch == TokenMatchAll,
	})
	return validityFromKind(kind)
}

func validityFromKind(kind flows.ValidityKind) ValidityResult {
	switch kind {
	case flows.ValidityExpired:
		return Expired
	case flows.ValidityIPMismatch:
		return IPMismatch
	case flows.ValidityMissingTokens:
		return MissingRequiredTokens
	default:
		return Valid
	}
}
