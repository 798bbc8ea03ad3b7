package goPubtkt

import (
	"testing"
	"time"
)

func TestCheckValidity(t *testing.T) {
	now := time.Unix(1000, 0)
	base := Ticket{UID: "u", ClientIP: "10.0.0.1", ValidUntil: 2000, Tokens: "a, b ,c"}

	tests := []struct {
		name   string
		ticket func(Ticket) Ticket
		ip     string
		policy Policy
		want   ValidityResult
	}{
		{name: "valid", ticket: sameTicket, ip: "10.0.0.1", policy: Policy{RequireIPMatch: true}, want: Valid},
		{name: "boundary", ticket: func(tk Ticket) Ticket { tk.ValidUntil = 1000; return tk }, want: Valid},
		{name: "expired", ticket: func(tk Ticket) Ticket { tk.ValidUntil = 999; return tk }, want: Expired},
		{name: "ip mismatch", ticket: sameTicket, ip: "10.0.0.2", policy: Policy{RequireIPMatch: true}, want: IPMismatch},
		{name: "ip not required", ticket: sameTicket, ip: "10.0.0.2", want: Valid},
		{name: "ticket without ip", ticket: func(tk Ticket) Ticket { tk.ClientIP = ""; return tk }, ip: "10.0.0.2", policy: Policy{RequireIPMatch: true}, want: Valid},
		{name: "mapped ipv4 exact", ticket: sameTicket, ip: "::ffff:10.0.0.1", policy: Policy{RequireIPMatch: true}, want: IPMismatch},
		{name: "mapped ipv4 normalized", ticket: sameTicket, ip: "::ffff:10.0.0.1", policy: Policy{RequireIPMatch: true, NormalizeIP: true}, want: Valid},
		{name: "any token", ticket: sameTicket, policy: Policy{RequiredTokens: []string{"x", "b"}}, want: Valid},
		{name: "any token missing", ticket: sameTicket, policy: Policy{RequiredTokens: []string{"x", "y"}}, want: MissingRequiredTokens},
		{name: "all tokens", ticket: sameTicket, policy: Policy{RequiredTokens: []string{"a", "c"}, TokenMatch: TokenMatchAll}, want: Valid},
		{name: "all tokens missing one", ticket: sameTicket, policy: Policy{RequiredTokens: []string{"a", "x"}, TokenMatch: TokenMatchAll}, want: MissingRequiredTokens},
		{name: "no tokens on ticket", ticket: func(tk Ticket) Ticket { tk.Tokens = ""; return tk }, policy: Policy{RequiredTokens: []string{"a"}}, want: MissingRequiredTokens},
		{
			name:   "ip checked before tokens",
			ticket: sameTicket,
			ip:     "10.0.0.9",
			policy: Policy{RequireIPMatch: true, RequiredTokens: []string{"zzz"}},
			want:   IPMismatch,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CheckValidity(tc.ticket(base), now, tc.ip, tc.policy); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func sameTicket(tk Ticket) Ticket { return tk }

func TestValidityResultString(t *testing.T) {
	for r, want := range map[ValidityResult]string{
		Valid:                 "valid",
		Expired:               "expired",
		IPMismatch:            "ip_mismatch",
		MissingRequiredTokens: "missing_required_tokens",
	} {
		if got := r.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(r), got, want)
		}
	}
}
