package goPubtkt

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goPubtkt/signature"
)

// LintSeverity ranks configuration warnings.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is a valid but questionable configuration choice.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of warnings returned by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError returns an error listing every warning at or above min, or nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

const (
	lintMaxSharedTTL     = time.Hour
	lintMaxThrottleLimit = 1000
)

// Lint reports settings that pass [Config.Validate] but weaken verification
// or make misconfiguration likely. It does not mutate c.
func (c *Config) Lint() LintResult {
	var out LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		out = append(out, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if signature.Digest(c.Server.Digest) == signature.DigestSHA1 {
		add("digest_sha1", LintInfo, "sha1 digests are accepted for compatibility; prefer sha256 for new keys")
	}

	if !c.Throttle.Enabled {
		add("throttle_disabled", LintInfo, "invalid tickets are verified without per-IP throttling")
	} else if c.Throttle.MaxFailures > lintMaxThrottleLimit {
		add("throttle_limit_high", LintWarn, "throttle allows %d failures per window", c.Throttle.MaxFailures)
	}

	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "audit events are not emitted")
	}

	if c.SharedCache.Enabled && c.SharedCache.MaxTTL > lintMaxSharedTTL {
		add("shared_ttl_long", LintWarn, "shared cache entries may outlive a revoked key by up to %s", c.SharedCache.MaxTTL)
	}

	if c.Cache.MinTicketSize == 0 {
		add("min_ticket_size_zero", LintInfo, "cookie values of any length are treated as tickets")
	}

	paths := []string{"/"}
	for _, d := range c.Directories {
		if d.Path != "/" {
			paths = append(paths, d.Path)
		}
	}
	for _, p := range paths {
		d := c.DirectoryFor(p)
		if !d.RequireIPMatch {
			add("ip_match_disabled", LintWarn, "%s: tickets are not bound to the client address", p)
		}
		if !d.RequireSSL {
			add("ssl_not_required", LintWarn, "%s: tickets may be presented over plain HTTP", p)
		}
		if d.TimeoutURL != "" && d.LoginURL == "" {
			add("timeout_without_login", LintWarn, "%s: TimeoutURL is set but LoginURL is not", p)
		}
		if d.Debug {
			add("debug_enabled", LintHigh, "%s: debug logging of ticket decisions is on", p)
		}
		if d.TokenMatch == TokenMatchAll && len(d.RequiredTokens) == 0 {
			add("token_match_all_empty", LintInfo, "%s: TokenMatch all with no required tokens", p)
		}
	}

	return out
}
