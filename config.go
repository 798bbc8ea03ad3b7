package goPubtkt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goPubtkt/signature"
	"github.com/MrEthical07/goPubtkt/ticket"
)

// Config is the complete Engine configuration.
//
// Config is copied by the Builder; the Engine never observes later mutation
// of the value passed in.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Cache       CacheConfig       `yaml:"cache"`
	SharedCache SharedCacheConfig `yaml:"shared_cache"`
	Throttle    ThrottleConfig    `yaml:"throttle"`
	Audit       AuditConfig       `yaml:"audit"`
	Metrics     MetricsConfig     `yaml:"metrics"`

	// Defaults applies to every request path; entries in Directories
	// override it for their path prefix.
	Defaults    DirectoryConfig   `yaml:"defaults"`
	Directories []DirectoryConfig `yaml:"directories"`
}

/*
====================================
SERVER CONFIG
====================================
*/

// ServerConfig holds the process-wide verification key.
type ServerConfig struct {
	// PublicKey is PEM (RSA, ECDSA, Ed25519) or a raw 32-byte Ed25519 key.
	PublicKey     []byte `yaml:"-"`
	PublicKeyFile string `yaml:"public_key_file"`
	// Digest is used with RSA and ECDSA keys. Default "sha1".
	Digest string `yaml:"digest"`
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig sizes the in-process verified-ticket ring.
type CacheConfig struct {
	Capacity      int `yaml:"capacity"`
	MaxTicketSize int `yaml:"max_ticket_size"`
	// MinTicketSize is enforced by the HTTP middleware only; shorter cookie
	// values are treated as absent.
	MinTicketSize int `yaml:"min_ticket_size"`
}

// SharedCacheConfig enables the optional Redis tier shared between processes.
type SharedCacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Prefix  string `yaml:"prefix"`
	// Secret keys the record MAC and the lookup hash. At least 32 bytes.
	Secret    []byte        `yaml:"-"`
	SecretEnv string        `yaml:"secret_env"`
	MaxTTL    time.Duration `yaml:"max_ttl"`
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig limits how many invalid tickets one client IP may present
// per window before signature verification is skipped for it.
type ThrottleConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Prefix      string        `yaml:"prefix"`
	MaxFailures int           `yaml:"max_failures"`
	Window      time.Duration `yaml:"window"`
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig toggles in-process counters and the latency histogram.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
DIRECTORY CONFIG
====================================
*/

// DirectoryConfig is the per-path access policy as written in configuration.
// Empty strings, nil slices and nil pointers inherit from the enclosing scope.
type DirectoryConfig struct {
	Path           string     `yaml:"path"`
	LoginURL       string     `yaml:"login_url"`
	TimeoutURL     string     `yaml:"timeout_url"`
	PostTimeoutURL string     `yaml:"post_timeout_url"`
	UnauthURL      string     `yaml:"unauth_url"`
	CookieName     string     `yaml:"cookie_name"`
	BackArgName    string     `yaml:"back_arg_name"`
	RequiredTokens []string   `yaml:"tokens"`
	TokenMatch     TokenMatch `yaml:"token_match"`
	RequireSSL     *bool      `yaml:"require_ssl"`
	RequireIPMatch *bool      `yaml:"require_ip_match"`
	NormalizeIP    *bool      `yaml:"normalize_ip"`
	Debug          *bool      `yaml:"debug"`
}

// Directory is a fully resolved DirectoryConfig.
type Directory struct {
	Path           string
	LoginURL       string
	TimeoutURL     string
	PostTimeoutURL string
	UnauthURL      string
	CookieName     string
	BackArgName    string
	RequiredTokens []string
	TokenMatch     TokenMatch
	RequireSSL     bool
	RequireIPMatch bool
	NormalizeIP    bool
	Debug          bool
}

// Policy returns the validity policy for this directory.
func (d Directory) Policy() Policy {
	return Policy{
		RequireIPMatch: d.RequireIPMatch,
		NormalizeIP:    d.NormalizeIP,
		RequiredTokens: append([]string(nil), d.RequiredTokens...),
		TokenMatch:     d.TokenMatch,
	}
}

const (
	DefaultCookieName    = "auth_pubtkt"
	DefaultBackArgName   = "back"
	DefaultMinTicketSize = 64
	DefaultCacheCapacity = 200
)

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Digest: string(signature.DigestSHA1),
		},
		Cache: CacheConfig{
			Capacity:      DefaultCacheCapacity,
			MaxTicketSize: ticket.MaxRawLen,
			MinTicketSize: DefaultMinTicketSize,
		},
		SharedCache: SharedCacheConfig{
			Enabled: false,
			Prefix:  "pt:v",
			MaxTTL:  5 * time.Minute,
		},
		Throttle: ThrottleConfig{
			Enabled:     false,
			Prefix:      "ptf",
			MaxFailures: 20,
			Window:      time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Defaults: DirectoryConfig{
			Path:           "/",
			CookieName:     DefaultCookieName,
			BackArgName:    DefaultBackArgName,
			TokenMatch:     TokenMatchAny,
			RequireSSL:     boolPtr(false),
			RequireIPMatch: boolPtr(true),
			NormalizeIP:    boolPtr(false),
			Debug:          boolPtr(false),
		},
	}
}

// DefaultConfig returns the baseline configuration. The caller still has to
// supply Server.PublicKey.
func DefaultConfig() Config {
	return defaultConfig()
}

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	// Server
	if len(c.Server.PublicKey) == 0 {
		return errors.New("Server PublicKey is required")
	}
	switch signature.Digest(c.Server.Digest) {
	case signature.DigestSHA1, signature.DigestSHA224, signature.DigestSHA256,
		signature.DigestSHA384, signature.DigestSHA512:
	default:
		return fmt.Errorf("unsupported Server Digest %q", c.Server.Digest)
	}

	// Cache
	if c.Cache.Capacity <= 0 {
		return errors.New("Cache Capacity must be > 0")
	}
	if c.Cache.MaxTicketSize <= 0 || c.Cache.MaxTicketSize > ticket.MaxRawLen {
		return fmt.Errorf("Cache MaxTicketSize must be in (0, %d]", ticket.MaxRawLen)
	}
	if c.Cache.MinTicketSize < 0 || c.Cache.MinTicketSize > c.Cache.MaxTicketSize {
		return errors.New("Cache MinTicketSize must be in [0, MaxTicketSize]")
	}

	// Shared cache
	if c.SharedCache.Enabled {
		if len(c.SharedCache.Secret) < 32 {
			return errors.New("SharedCache Secret must be at least 32 bytes")
		}
		if c.SharedCache.MaxTTL <= 0 {
			return errors.New("SharedCache MaxTTL must be > 0")
		}
		if strings.TrimSpace(c.SharedCache.Prefix) == "" {
			return errors.New("SharedCache Prefix must not be empty")
		}
	}

	// Throttle
	if c.Throttle.Enabled {
		if c.Throttle.MaxFailures <= 0 {
			return errors.New("Throttle MaxFailures must be > 0")
		}
		if c.Throttle.Window <= 0 {
			return errors.New("Throttle Window must be > 0")
		}
		if strings.TrimSpace(c.Throttle.Prefix) == "" {
			return errors.New("Throttle Prefix must not be empty")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Directories
	if err := validateDirectory(c.Defaults); err != nil {
		return fmt.Errorf("Defaults: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Directories))
	for i, d := range c.Directories {
		if !strings.HasPrefix(d.Path, "/") {
			return fmt.Errorf("Directories[%d]: Path must start with /", i)
		}
		if _, dup := seen[d.Path]; dup {
			return fmt.Errorf("Directories[%d]: duplicate Path %q", i, d.Path)
		}
		seen[d.Path] = struct{}{}
		if err := validateDirectory(d); err != nil {
			return fmt.Errorf("Directories[%d]: %w", i, err)
		}
	}

	return nil
}

func validateDirectory(d DirectoryConfig) error {
	switch d.TokenMatch {
	case "", TokenMatchAny, TokenMatchAll:
	default:
		return fmt.Errorf("unsupported TokenMatch %q", d.TokenMatch)
	}
	for _, tok := range d.RequiredTokens {
		if strings.TrimSpace(tok) == "" || strings.Contains(tok, ",") {
			return fmt.Errorf("invalid required token %q", tok)
		}
	}
	if strings.ContainsAny(d.CookieName, "=;, \t") {
		return fmt.Errorf("invalid CookieName %q", d.CookieName)
	}
	return nil
}

// DirectoryFor resolves the policy for a request path: the longest matching
// directory prefix, merged over Defaults, merged over built-in defaults.
func (c *Config) DirectoryFor(path string) Directory {
	base := defaultConfig().Defaults
	merged := mergeDirectory(base, c.Defaults)

	best := -1
	for i, d := range c.Directories {
		if !pathHasPrefix(path, d.Path) {
			continue
		}
		if best < 0 || len(d.Path) > len(c.Directories[best].Path) {
			best = i
		}
	}
	if best >= 0 {
		merged = mergeDirectory(merged, c.Directories[best])
	}

	return Directory{
		Path:           merged.Path,
		LoginURL:       merged.LoginURL,
		TimeoutURL:     merged.TimeoutURL,
		PostTimeoutURL: merged.PostTimeoutURL,
		UnauthURL:      merged.UnauthURL,
		CookieName:     merged.CookieName,
		BackArgName:    merged.BackArgName,
		RequiredTokens: append([]string(nil), merged.RequiredTokens...),
		TokenMatch:     merged.TokenMatch,
		RequireSSL:     derefBool(merged.RequireSSL),
		RequireIPMatch: derefBool(merged.RequireIPMatch),
		NormalizeIP:    derefBool(merged.NormalizeIP),
		Debug:          derefBool(merged.Debug),
	}
}

// mergeDirectory overlays child on parent; set child values win.
func mergeDirectory(parent, child DirectoryConfig) DirectoryConfig {
	out := parent
	if child.Path != "" {
		out.Path = child.Path
	}
	if child.LoginURL != "" {
		out.LoginURL = child.LoginURL
	}
	if child.TimeoutURL != "" {
		out.TimeoutURL = child.TimeoutURL
	}
	if child.PostTimeoutURL != "" {
		out.PostTimeoutURL = child.PostTimeoutURL
	}
	if child.UnauthURL != "" {
		out.UnauthURL = child.UnauthURL
	}
	if child.CookieName != "" {
		out.CookieName = child.CookieName
	}
	if child.BackArgName != "" {
		out.BackArgName = child.BackArgName
	}
	if child.RequiredTokens != nil {
		out.RequiredTokens = child.RequiredTokens
	}
	if child.TokenMatch != "" {
		out.TokenMatch = child.TokenMatch
	}
	if child.RequireSSL != nil {
		out.RequireSSL = child.RequireSSL
	}
	if child.RequireIPMatch != nil {
		out.RequireIPMatch = child.RequireIPMatch
	}
	if child.NormalizeIP != nil {
		out.NormalizeIP = child.NormalizeIP
	}
	if child.Debug != nil {
		out.Debug = child.Debug
	}
	return out
}

func pathHasPrefix(path, prefix string) bool {
	if prefix == "/" || prefix == "" {
		return true
	}
	prefix = strings.TrimSuffix(prefix, "/")
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Server.PublicKey = cloneBytes(cfg.Server.PublicKey)
	out.SharedCache.Secret = cloneBytes(cfg.SharedCache.Secret)
	out.Defaults = cloneDirectory(cfg.Defaults)
	if cfg.Directories != nil {
		out.Directories = make([]DirectoryConfig, len(cfg.Directories))
		for i, d := range cfg.Directories {
			out.Directories[i] = cloneDirectory(d)
		}
	}
	return out
}

func cloneDirectory(d DirectoryConfig) DirectoryConfig {
	out := d
	if d.RequiredTokens != nil {
		out.RequiredTokens = append([]string{}, d.RequiredTokens...)
	}
	out.RequireSSL = cloneBoolPtr(d.RequireSSL)
	out.RequireIPMatch = cloneBoolPtr(d.RequireIPMatch)
	out.NormalizeIP = cloneBoolPtr(d.NormalizeIP)
	out.Debug = cloneBoolPtr(d.Debug)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func boolPtr(v bool) *bool { return &v }

func cloneBoolPtr(p *bool) *bool {
	if p == nil {
		return nil
	}
	return boolPtr(*p)
}

func derefBool(p *bool) bool {
	return p != nil && *p
}
