package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goPubtkt/ticket"
)

// VerifyFailureKind classifies why a raw ticket was not accepted as authentic.
type VerifyFailureKind int

const (
	VerifyFailureNone VerifyFailureKind = iota
	VerifyFailureTooLong
	VerifyFailureMalformed
	VerifyFailureSignature
	VerifyFailureRateLimited
)

// VerifySource records which tier produced an accepted ticket.
type VerifySource int

const (
	VerifySourceSignature VerifySource = iota
	VerifySourceCache
	VerifySourceShared
)

type VerifyCache interface {
	Get(raw string) (ticket.Ticket, bool)
	Put(raw string, t ticket.Ticket)
}

type VerifySharedTier interface {
	Get(ctx context.Context, raw string) (ticket.Ticket, bool, error)
	Put(ctx context.Context, raw string, t ticket.Ticket, now time.Time) error
}

type VerifyThrottle interface {
	Check(ctx context.Context, clientIP string) error
	RecordFailure(ctx context.Context, clientIP string) error
}

// VerifyDeps captures the cache tiers and crypto used to authenticate a raw ticket.
type VerifyDeps struct {
	MaxTicketSize  int
	Cache          VerifyCache
	Shared         VerifySharedTier
	Throttle       VerifyThrottle
	Parse          func(string) (ticket.Parsed, error)
	Verify         func(payload []byte, encodedSig string) bool
	Now            func() time.Time
	RateLimitedErr error
	// CorruptSharedErr marks shared tier read errors that are treated as a
	// miss; the record is overwritten once the signature verifies.
	CorruptSharedErr error
}

// VerifyResult carries either the authenticated ticket or a classified failure.
// SharedErr and ThrottleErr report degraded backends that did not change the
// outcome.
type VerifyResult struct {
	Ticket      ticket.Ticket
	Source      VerifySource
	Failure     VerifyFailureKind
	Err         error
	SharedErr   error
	ThrottleErr error
}

// RunVerify authenticates raw: local cache, then the shared tier, then parse
// and signature verification. Only tickets whose signature verified are
// written back to the caches.
func RunVerify(ctx context.Context, raw, clientIP string, deps VerifyDeps) VerifyResult {
	if deps.MaxTicketSize > 0 && len(raw) > deps.MaxTicketSize {
		return VerifyResult{Failure: VerifyFailureTooLong, Err: ticket.ErrTicketTooLong}
	}

	if deps.Cache != nil {
		if t, ok := deps.Cache.Get(raw); ok {
			return VerifyResult{Ticket: t, Source: VerifySourceCache}
		}
	}

	var res VerifyResult
	writeShared := deps.Shared != nil
	if deps.Shared != nil {
		t, ok, err := deps.Shared.Get(ctx, raw)
		if err != nil {
			res.SharedErr = err
			writeShared = deps.CorruptSharedErr != nil && errors.Is(err, deps.CorruptSharedErr)
		} else if ok {
			if deps.Cache != nil {
				deps.Cache.Put(raw, t)
			}
			res.Ticket = t
			res.Source = VerifySourceShared
			return res
		}
	}

	if deps.Throttle != nil && clientIP != "" {
		if err := deps.Throttle.Check(ctx, clientIP); err != nil {
			if deps.RateLimitedErr != nil && errors.Is(err, deps.RateLimitedErr) {
				res.Failure = VerifyFailureRateLimited
				res.Err = err
				return res
			}
			res.ThrottleErr = err
		}
	}

	parsed, err := deps.Parse(raw)
	if err != nil {
		res.Failure = VerifyFailureMalformed
		res.Err = err
		res.recordFailure(ctx, clientIP, deps)
		return res
	}

	if !deps.Verify([]byte(parsed.Payload), parsed.Signature) {
		res.Failure = VerifyFailureSignature
		res.recordFailure(ctx, clientIP, deps)
		return res
	}

	if deps.Cache != nil {
		deps.Cache.Put(raw, parsed.Ticket)
	}
	if writeShared {
		now := time.Now()
		if deps.Now != nil {
			now = deps.Now()
		}
		if err := deps.Shared.Put(ctx, raw, parsed.Ticket, now); err != nil {
			res.SharedErr = err
		}
	}

	res.Ticket = parsed.Ticket
	res.Source = VerifySourceSignature
	return res
}

func (r *VerifyResult) recordFailure(ctx context.Context, clientIP string, deps VerifyDeps) {
	if deps.Throttle == nil || clientIP == "" {
		return
	}
	if err := deps.Throttle.RecordFailure(ctx, clientIP); err != nil && r.ThrottleErr == nil {
		if deps.RateLimitedErr == nil || !errors.Is(err, deps.RateLimitedErr) {
			r.ThrottleErr = err
		}
	}
}
