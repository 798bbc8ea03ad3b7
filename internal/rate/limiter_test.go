package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return New(client, cfg), mr
}

func TestLimiterBlocksAfterBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxFailures: 3, FailureWindow: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.RecordFailure(ctx, "10.0.0.1"); err != nil {
			t.Fatalf("failure %d: unexpected error %v", i, err)
		}
		if err := l.Check(ctx, "10.0.0.1"); err != nil {
			t.Fatalf("check %d: unexpected error %v", i, err)
		}
	}
	if err := l.RecordFailure(ctx, "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.Check(ctx, "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.Check(ctx, "10.0.0.2"); err != nil {
		t.Fatalf("other IP must not be limited, got %v", err)
	}
}

func TestLimiterWindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxFailures: 1, FailureWindow: time.Minute})
	ctx := context.Background()

	_ = l.RecordFailure(ctx, "ip")
	_ = l.RecordFailure(ctx, "ip")
	if err := l.Check(ctx, "ip"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if ttl := mr.TTL("ptf:ip"); ttl != time.Minute {
		t.Fatalf("expected window ttl, got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.Check(ctx, "ip"); err != nil {
		t.Fatalf("expected window reset, got %v", err)
	}
}

func TestLimiterResetAndFailures(t *testing.T) {
	l, _ := newTestLimiter(t, Config{Prefix: "x", MaxFailures: 5, FailureWindow: time.Minute})
	ctx := context.Background()

	_ = l.RecordFailure(ctx, "ip")
	_ = l.RecordFailure(ctx, "ip")
	if n, err := l.Failures(ctx, "ip"); err != nil || n != 2 {
		t.Fatalf("expected 2 failures, got %d err=%v", n, err)
	}
	if err := l.Reset(ctx, "ip"); err != nil {
		t.Fatal(err)
	}
	if n, _ := l.Failures(ctx, "ip"); n != 0 {
		t.Fatalf("expected reset counter, got %d", n)
	}
}

func TestLimiterRedisDown(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxFailures: 1, FailureWindow: time.Minute})
	mr.Close()

	if err := l.Check(context.Background(), "ip"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if err := l.RecordFailure(context.Background(), "ip"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
