package flows

import (
	"net/netip"
	"strings"

	"github.com/MrEthical07/goPubtkt/ticket"
)

// ValidityKind is the first rule an authentic ticket fails, or ValidityValid.
type ValidityKind int

const (
	ValidityValid ValidityKind = iota
	ValidityExpired
	ValidityIPMismatch
	ValidityMissingTokens
)

// ValidityPolicy is the per-scope access policy applied to an authentic ticket.
type ValidityPolicy struct {
	RequireIPMatch bool
	// NormalizeIP compares parsed addresses instead of the literal strings,
	// so 2001:db8::1 matches 2001:DB8:0::1 and 10.0.0.1 matches
	// ::ffff:10.0.0.1.
	NormalizeIP    bool
	RequiredTokens []string
	// MatchAll requires every required token; otherwise one suffices.
	MatchAll bool
}

// RunCheck applies expiry, client IP binding and token requirements in that
// order. now is Unix seconds; a ticket whose validuntil equals now is still
// valid.
func RunCheck(t ticket.Ticket, now int64, requesterIP string, p ValidityPolicy) ValidityKind {
	if now > 0 && t.ValidUntil < uint64(now) {
		return ValidityExpired
	}
	if p.RequireIPMatch && t.ClientIP != "" && !sameIP(t.ClientIP, requesterIP, p.NormalizeIP) {
		return ValidityIPMismatch
	}
	if len(p.RequiredTokens) > 0 && !tokensSatisfied(t, p.RequiredTokens, p.MatchAll) {
		return ValidityMissingTokens
	}
	return ValidityValid
}

func sameIP(bound, requester string, normalize bool) bool {
	if bound == requester {
		return true
	}
	if !normalize {
		return false
	}
	a, errA := netip.ParseAddr(bound)
	b, errB := netip.ParseAddr(strings.TrimSpace(requester))
	if errA != nil || errB != nil {
		return false
	}
	return a.Unmap() == b.Unmap()
}

func tokensSatisfied(t ticket.Ticket, required []string, matchAll bool) bool {
	have := t.TokenList()
	if len(have) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(have))
	for _, tok := range have {
		set[tok] = struct{}{}
	}

	matched := 0
	for _, want := range required {
		if _, ok := set[want]; ok {
			if !matchAll {
				return true
			}
			matched++
		} else if matchAll {
			return false
		}
	}
	return matchAll && matched > 0
}
