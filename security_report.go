package goPubtkt

import (
	"time"

	"github.com/MrEthical07/goPubtkt/signature"
)

// SecurityReport summarizes the effective verification posture of an Engine.
// It never includes key or secret material.
type SecurityReport struct {
	KeyAlgorithm        signature.Algorithm
	Digest              signature.Digest
	CacheCapacity       int
	MaxTicketSize       int
	MinTicketSize       int
	SharedCacheEnabled  bool
	SharedCacheMaxTTL   time.Duration
	ThrottleEnabled     bool
	ThrottleMaxFailures int
	ThrottleWindow      time.Duration
	AuditEnabled        bool
	Directories         []DirectoryReport
}

// DirectoryReport is the resolved policy for one configured directory.
type DirectoryReport struct {
	Path           string
	RequireSSL     bool
	RequireIPMatch bool
	NormalizeIP    bool
	RequiredTokens []string
	TokenMatch     TokenMatch
	LoginRedirect  bool
	Debug          bool
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	report := SecurityReport{
		Digest:             signature.Digest(e.config.Server.Digest),
		CacheCapacity:      e.config.Cache.Capacity,
		MaxTicketSize:      e.config.Cache.MaxTicketSize,
		MinTicketSize:      e.config.Cache.MinTicketSize,
		SharedCacheEnabled: e.config.SharedCache.Enabled,
		ThrottleEnabled:    e.config.Throttle.Enabled,
		AuditEnabled:       e.config.Audit.Enabled,
	}
	if e.verifier != nil {
		report.KeyAlgorithm = e.verifier.Algorithm()
		if report.KeyAlgorithm == signature.AlgorithmEd25519 {
			report.Digest = ""
		}
	}
	if report.SharedCacheEnabled {
		report.SharedCacheMaxTTL = e.config.SharedCache.MaxTTL
	}
	if report.ThrottleEnabled {
		report.ThrottleMaxFailures = e.config.Throttle.MaxFailures
		report.ThrottleWindow = e.config.Throttle.Window
	}

	paths := make([]string, 0, len(e.config.Directories)+1)
	paths = append(paths, "/")
	for _, d := range e.config.Directories {
		if d.Path != "/" {
			paths = append(paths, d.Path)
		}
	}
	for _, p := range paths {
		d := e.config.DirectoryFor(p)
		report.Directories = append(report.Directories, DirectoryReport{
			Path:           p,
			RequireSSL:     d.RequireSSL,
			RequireIPMatch: d.RequireIPMatch,
			NormalizeIP:    d.NormalizeIP,
			RequiredTokens: append([]string(nil), d.RequiredTokens...),
			TokenMatch:     d.TokenMatch,
			LoginRedirect:  d.LoginURL != "",
			Debug:          d.Debug,
		})
	}
	return report
}
