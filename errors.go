package goPubtkt

import "errors"

var (
	// ErrTicketInvalid is returned for malformed, oversized or forged tickets.
	// The specific reason is available to metrics, audit and debug logging only.
	ErrTicketInvalid = errors.New("ticket invalid")
	// ErrTicketMissing is returned when no ticket was presented.
	ErrTicketMissing = errors.New("ticket missing")
	// ErrVerifyRateLimited is returned when the client IP has presented too
	// many invalid tickets in the current throttle window.
	ErrVerifyRateLimited = errors.New("ticket verification rate limited")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrRedisRequired is returned by Build when a Redis-backed feature is
	// enabled without a client.
	ErrRedisRequired = errors.New("redis client required")
)
