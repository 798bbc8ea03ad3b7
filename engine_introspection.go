package goPubtkt

import (
	"context"
	"time"
)

// CacheStats is the occupancy of the in-process verified-ticket ring.
type CacheStats struct {
	Capacity int
	Occupied int
}

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisConfigured bool
	RedisAvailable  bool
	RedisLatency    time.Duration
}

// CacheStats reports ring occupancy. Occupied never exceeds Capacity.
func (e *Engine) CacheStats() CacheStats {
	if e == nil || e.cache == nil {
		return CacheStats{}
	}
	return CacheStats{
		Capacity: e.cache.Capacity(),
		Occupied: e.cache.Len(),
	}
}

// Health describes the health operation and its observable behavior.
//
// Health does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.redis == nil {
		return HealthStatus{}
	}

	start := time.Now()
	err := e.redis.Ping(ctx).Err()
	return HealthStatus{
		RedisConfigured: true,
		RedisAvailable:  err == nil,
		RedisLatency:    time.Since(start),
	}
}

// GetVerifyFailures returns how many invalid tickets ip has presented in
// the current throttle window.
func (e *Engine) GetVerifyFailures(ctx context.Context, ip string) (int, error) {
	if e == nil || e.throttle == nil {
		return 0, ErrEngineNotReady
	}
	if ip == "" {
		return 0, nil
	}
	return e.throttle.Failures(ctx, ip)
}

// ResetVerifyFailures clears the throttle counter for ip.
func (e *Engine) ResetVerifyFailures(ctx context.Context, ip string) error {
	if e == nil || e.throttle == nil {
		return ErrEngineNotReady
	}
	if ip == "" {
		return nil
	}
	return e.throttle.Reset(ctx, ip)
}
