package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds throttle tuning parameters.
type Config struct {
	Prefix        string
	MaxFailures   int
	FailureWindow time.Duration
}

// Limiter counts invalid tickets per client IP using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "ptf"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Check returns ErrRateLimited once ip has exceeded its failure budget for
// the current window.
func (l *Limiter) Check(ctx context.Context, ip string) error {
	if ip == "" {
		return nil
	}
	return l.checkCounter(ctx, invalidTicketKey(l.config.Prefix, ip), l.config.MaxFailures)
}

// RecordFailure counts one invalid ticket from ip.
func (l *Limiter) RecordFailure(ctx context.Context, ip string) error {
	if ip == "" {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, invalidTicketKey(l.config.Prefix, ip), l.config.FailureWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxFailures) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter for ip.
func (l *Limiter) Reset(ctx context.Context, ip string) error {
	if err := l.redis.Del(ctx, invalidTicketKey(l.config.Prefix, ip)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Failures returns the current counter for ip. Missing keys return zero.
func (l *Limiter) Failures(ctx context.Context, ip string) (int, error) {
	count, err := l.redis.Get(ctx, invalidTicketKey(l.config.Prefix, ip)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count > int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
