package goPubtkt

import (
	"context"
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/goPubtkt/internal/audit"
	"github.com/MrEthical07/goPubtkt/internal/cache"
	"github.com/MrEthical07/goPubtkt/internal/flows"
	"github.com/MrEthical07/goPubtkt/internal/rate"
	"github.com/MrEthical07/goPubtkt/internal/sharedcache"
	"github.com/MrEthical07/goPubtkt/signature"
	"github.com/MrEthical07/goPubtkt/ticket"
	"github.com/redis/go-redis/v9"
)

// Engine verifies and validates pubtkt tickets.
//
// An Engine is built once by [Builder.Build] and is safe for concurrent use.
// Its configuration is immutable after Build.
type Engine struct {
	config   Config
	verifier *signature.Verifier
	cache    *cache.Cache
	shared   *sharedcache.Store
	throttle *rate.Limiter
	redis    redis.UniversalClient
	audit    *internalaudit.Dispatcher
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
	flowDeps flows.Deps
}

func (e *Engine) initFlowDeps() {
	deps := flows.VerifyDeps{
		MaxTicketSize:    e.config.Cache.MaxTicketSize,
		Cache:            e.cache,
		Parse:            ticket.Parse,
		Verify:           e.verifier.Verify,
		Now:              e.now,
		RateLimitedErr:   rate.ErrRateLimited,
		CorruptSharedErr: sharedcache.ErrCorruptRecord,
	}
	// Typed nil pointers must not leak into the interfaces.
	if e.shared != nil {
		deps.Shared = e.shared
	}
	if e.throttle != nil {
		deps.Throttle = e.throttle
	}
	e.flowDeps = flows.Deps{Verify: deps}
}

// Close stops the audit dispatcher after draining buffered events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Directory resolves the access policy for a request path.
func (e *Engine) Directory(path string) Directory {
	if e == nil {
		return Directory{}
	}
	return e.config.DirectoryFor(path)
}

// MinTicketSize is the shortest cookie value the middleware treats as a ticket.
func (e *Engine) MinTicketSize() int {
	if e == nil {
		return 0
	}
	return e.config.Cache.MinTicketSize
}

// MaxTicketSize is the longest raw ticket the engine will consider.
func (e *Engine) MaxTicketSize() int {
	if e == nil {
		return 0
	}
	return e.config.Cache.MaxTicketSize
}

// Now returns the engine clock.
func (e *Engine) Now() time.Time {
	if e == nil || e.now == nil {
		return time.Now()
	}
	return e.now()
}

// VerifyTicket authenticates raw and returns its fields. It does not apply
// expiry, IP or token rules; see [Engine.Authenticate] and [CheckValidity].
//
// The client IP used for throttling is taken from ctx (see [WithClientIP]).
func (e *Engine) VerifyTicket(ctx context.Context, raw string) (Ticket, error) {
	if e == nil || e.verifier == nil {
		return Ticket{}, ErrEngineNotReady
	}
	clientIP := clientIPFromContext(ctx)
	if raw == "" {
		e.emitAudit(ctx, auditEventTicketMissing, false, "", clientIP, "", ErrTicketMissing, nil)
		return Ticket{}, ErrTicketMissing
	}
	res := e.verify(ctx, raw, clientIP)
	if err := e.verifyError(ctx, raw, clientIP, res); err != nil {
		return Ticket{}, err
	}
	return res.Ticket, nil
}

// Authenticate verifies raw and applies policy for a request from
// requesterIP. An error is returned only when the ticket is missing, not
// authentic, or verification was throttled; every validity outcome of an
// authentic ticket is reported through [Decision.Result].
func (e *Engine) Authenticate(ctx context.Context, raw, requesterIP string, policy Policy) (Decision, error) {
	if e == nil || e.verifier == nil {
		return Decision{}, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start = time.Now()
		defer func() {
			e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
		}()
	}

	if requesterIP == "" {
		requesterIP = clientIPFromContext(ctx)
	}
	if raw == "" {
		e.emitAudit(ctx, auditEventTicketMissing, false, "", requesterIP, "", ErrTicketMissing, nil)
		return Decision{}, ErrTicketMissing
	}

	res := e.verify(ctx, raw, requesterIP)
	if err := e.verifyError(ctx, raw, requesterIP, res); err != nil {
		return Decision{}, err
	}

	result := CheckValidity(res.Ticket, e.Now(), requesterIP, policy)
	decision := Decision{
		Result: result,
		Ticket: res.Ticket,
		Cached: res.Source != flows.VerifySourceSignature,
	}

	switch result {
	case Valid:
		e.metricInc(MetricTicketAccepted)
		e.emitAudit(ctx, auditEventTicketAccepted, true, res.Ticket.UID, requesterIP, raw, nil, nil)
	case Expired:
		e.metricInc(MetricTicketExpired)
		e.emitAudit(ctx, auditEventTicketExpired, false, res.Ticket.UID, requesterIP, raw, nil, nil)
	case IPMismatch:
		e.metricInc(MetricTicketIPMismatch)
		e.emitAudit(ctx, auditEventTicketIPMismatch, false, res.Ticket.UID, requesterIP, raw, nil, func() map[string]string {
			return map[string]string{"ticket_ip": res.Ticket.ClientIP}
		})
	case MissingRequiredTokens:
		e.metricInc(MetricTicketMissingTokens)
		e.emitAudit(ctx, auditEventTicketMissingTokens, false, res.Ticket.UID, requesterIP, raw, nil, nil)
	}

	if result != Valid {
		e.logger.DebugContext(ctx, "ticket rejected by policy",
			slog.String("result", result.String()),
			slog.String("uid", res.Ticket.UID),
			slog.Uint64("digest", uint64(cache.Hash(raw))),
		)
	}

	return decision, nil
}

func (e *Engine) verify(ctx context.Context, raw, clientIP string) flows.VerifyResult {
	res := flows.RunVerify(ctx, raw, clientIP, e.flowDeps.Verify)

	switch {
	case res.Failure != flows.VerifyFailureNone:
		if res.Failure != flows.VerifyFailureTooLong {
			e.metricInc(MetricCacheMiss)
		}
	case res.Source == flows.VerifySourceCache:
		e.metricInc(MetricCacheHit)
	case res.Source == flows.VerifySourceShared:
		e.metricInc(MetricCacheMiss)
		e.metricInc(MetricSharedCacheHit)
	default:
		e.metricInc(MetricCacheMiss)
	}

	if res.SharedErr != nil {
		e.metricInc(MetricSharedCacheError)
		e.logger.WarnContext(ctx, "shared ticket cache degraded", slog.Any("error", res.SharedErr))
	}
	if res.ThrottleErr != nil {
		e.metricInc(MetricThrottleError)
		e.logger.WarnContext(ctx, "verify throttle degraded", slog.Any("error", res.ThrottleErr))
	}
	return res
}

func (e *Engine) verifyError(ctx context.Context, raw, clientIP string, res flows.VerifyResult) error {
	if res.Failure == flows.VerifyFailureNone {
		return nil
	}

	reason := "signature"
	err := ErrTicketInvalid
	switch res.Failure {
	case flows.VerifyFailureTooLong:
		reason = "too_long"
		e.metricInc(MetricTicketTooLong)
	case flows.VerifyFailureMalformed:
		reason = "malformed"
		e.metricInc(MetricTicketMalformed)
	case flows.VerifyFailureSignature:
		e.metricInc(MetricTicketBadSignature)
	case flows.VerifyFailureRateLimited:
		reason = "rate_limited"
		err = ErrVerifyRateLimited
		e.metricInc(MetricThrottleHit)
	}

	attrs := []any{
		slog.String("reason", reason),
		slog.Int("length", len(raw)),
	}
	if res.Failure != flows.VerifyFailureTooLong {
		attrs = append(attrs, slog.Uint64("digest", uint64(cache.Hash(raw))))
	}
	if res.Err != nil && !errors.Is(res.Err, rate.ErrRateLimited) {
		attrs = append(attrs, slog.Any("cause", res.Err))
	}
	e.logger.DebugContext(ctx, "ticket not authentic", attrs...)

	eventType := auditEventTicketInvalid
	if res.Failure == flows.VerifyFailureRateLimited {
		eventType = auditEventVerifyRateLimited
	}
	e.emitAudit(ctx, eventType, false, "", clientIP, raw, err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return err
}
