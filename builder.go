package goPubtkt

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/goPubtkt/internal/audit"
	"github.com/MrEthical07/goPubtkt/internal/cache"
	"github.com/MrEthical07/goPubtkt/internal/rate"
	"github.com/MrEthical07/goPubtkt/internal/sharedcache"
	"github.com/MrEthical07/goPubtkt/signature"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithPublicKey sets the issuer's public key (PEM, or raw Ed25519).
func (b *Builder) WithPublicKey(key []byte) *Builder {
	b.config.Server.PublicKey = cloneBytes(key)
	return b
}

// WithDigest sets the digest used with RSA and ECDSA keys.
func (b *Builder) WithDigest(digest signature.Digest) *Builder {
	b.config.Server.Digest = string(digest)
	return b
}

// WithRedis supplies the client used by the shared cache tier and the
// forgery throttle. It is only required when one of them is enabled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Without one the Engine logs nothing.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, parses the public key and wires the
// verification pipeline.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.redis == nil && (cfg.SharedCache.Enabled || cfg.Throttle.Enabled) {
		return nil, ErrRedisRequired
	}

	verifier, err := signature.NewVerifier(signature.Config{
		PublicKey: cloneBytes(cfg.Server.PublicKey),
		Digest:    signature.Digest(cfg.Server.Digest),
	})
	if err != nil {
		return nil, fmt.Errorf("server public key: %w", err)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	engine := &Engine{
		config:   cloneConfig(cfg),
		verifier: verifier,
		cache:    cache.New(cfg.Cache.Capacity, cfg.Cache.MaxTicketSize),
		redis:    b.redis,
		logger:   logger,
		now:      now,
	}

	// -------- SHARED CACHE --------
	if cfg.SharedCache.Enabled {
		store, err := sharedcache.New(b.redis, sharedcache.Config{
			Prefix: cfg.SharedCache.Prefix,
			Secret: cloneBytes(cfg.SharedCache.Secret),
			MaxTTL: cfg.SharedCache.MaxTTL,
		})
		if err != nil {
			return nil, err
		}
		engine.shared = store
	}

	// -------- THROTTLE --------
	if cfg.Throttle.Enabled {
		engine.throttle = rate.New(b.redis, rate.Config{
			Prefix:        cfg.Throttle.Prefix,
			MaxFailures:   cfg.Throttle.MaxFailures,
			FailureWindow: cfg.Throttle.Window,
		})
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Logger:     logger,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.initFlowDeps()

	b.built = true

	return engine, nil
}
