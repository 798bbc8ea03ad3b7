//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	goPubtkt "github.com/MrEthical07/goPubtkt"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// redisMode describes which Redis backend the compatibility suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes returns the set of Redis backends to test.
// miniredis is always available.
// Real Redis standalone is used when REDIS_ADDR is set (e.g. "127.0.0.1:6379").
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}

	// Cluster mode: when REDIS_CLUSTER_ADDRS is set (comma-separated).
	if addrs := os.Getenv("REDIS_CLUSTER_ADDRS"); addrs != "" {
		modes = append(modes, redisMode{
			name: "cluster",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClusterClient(&redis.ClusterOptions{Addrs: splitAddrs(addrs)})
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis cluster: %v", err)
				}
				return rdb, func() { _ = rdb.Close() }
			},
		})
	}

	// Sentinel mode: when REDIS_SENTINEL_ADDRS and REDIS_SENTINEL_MASTER are set.
	if addrs := os.Getenv("REDIS_SENTINEL_ADDRS"); addrs != "" {
		master := os.Getenv("REDIS_SENTINEL_MASTER")
		if master == "" {
			master = "mymaster"
		}
		modes = append(modes, redisMode{
			name: "sentinel",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewFailoverClient(&redis.FailoverOptions{
					MasterName:    master,
					SentinelAddrs: splitAddrs(addrs),
				})
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis sentinel: %v", err)
				}
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}

	return modes
}

func splitAddrs(s string) []string {
	var addrs []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

// TestRedisCompat_SharedCacheAcrossEngines checks that a ticket verified by
// one engine is served from Redis to a second engine without re-verification.
func TestRedisCompat_SharedCacheAcrossEngines(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			cfg := integrationConfig(t)
			cfg.SharedCache.Prefix = "compat:" + t.Name()
			first := newIntegrationEngine(t, rdb, cfg)
			second := newIntegrationEngine(t, rdb, cfg)

			raw := signFor(t, "alice", "192.0.2.10", time.Hour)
			policy := first.Directory("/").Policy()
			ctx := context.Background()

			d, err := first.Authenticate(ctx, raw, "192.0.2.10", policy)
			if err != nil || !d.Allowed() || d.Cached {
				t.Fatalf("first engine: decision=%+v err=%v", d, err)
			}

			d, err = second.Authenticate(ctx, raw, "192.0.2.10", policy)
			if err != nil || !d.Allowed() {
				t.Fatalf("second engine: decision=%+v err=%v", d, err)
			}
			if !d.Cached {
				t.Fatal("second engine should be served from the shared cache")
			}
			if got := second.MetricsSnapshot().Counters[goPubtkt.MetricSharedCacheHit]; got != 1 {
				t.Fatalf("shared hits = %d, want 1", got)
			}
		})
	}
}

// TestRedisCompat_ThrottleWindow checks the failure counter and its reset.
func TestRedisCompat_ThrottleWindow(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			cfg := integrationConfig(t)
			cfg.Throttle.Prefix = "compat-fail:" + t.Name()
			engine := newIntegrationEngine(t, rdb, cfg)

			ip := "203.0.113.9"
			ctx := goPubtkt.WithClientIP(context.Background(), ip)
			forged := forge(signFor(t, "mallory", ip, time.Hour))

			for i := 0; i <= cfg.Throttle.MaxFailures; i++ {
				if _, err := engine.VerifyTicket(ctx, forged); !errors.Is(err, goPubtkt.ErrTicketInvalid) {
					t.Fatalf("attempt %d: err = %v, want ErrTicketInvalid", i, err)
				}
			}
			if _, err := engine.VerifyTicket(ctx, forged); !errors.Is(err, goPubtkt.ErrVerifyRateLimited) {
				t.Fatalf("err = %v, want ErrVerifyRateLimited", err)
			}

			// A valid ticket from the same address is throttled too until reset.
			good := signFor(t, "alice", ip, time.Hour)
			if _, err := engine.VerifyTicket(ctx, good); !errors.Is(err, goPubtkt.ErrVerifyRateLimited) {
				t.Fatalf("err = %v, want ErrVerifyRateLimited", err)
			}

			if err := engine.ResetVerifyFailures(context.Background(), ip); err != nil {
				t.Fatalf("reset: %v", err)
			}
			if _, err := engine.VerifyTicket(ctx, good); err != nil {
				t.Fatalf("after reset: %v", err)
			}
		})
	}
}

// TestRedisCompat_ExpiredNeverShared checks that the shared tier never
// outlives the ticket.
func TestRedisCompat_ExpiredNeverShared(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			cfg := integrationConfig(t)
			cfg.SharedCache.Prefix = "compat-exp:" + t.Name()
			engine := newIntegrationEngine(t, rdb, cfg)

			raw := signFor(t, "alice", "", -time.Minute)
			d, err := engine.Authenticate(context.Background(), raw, "", engine.Directory("/").Policy())
			if err != nil {
				t.Fatalf("authenticate: %v", err)
			}
			if d.Result != goPubtkt.Expired {
				t.Fatalf("result = %s, want expired", d.Result)
			}

			keys, err := rdb.Keys(context.Background(), cfg.SharedCache.Prefix+"*").Result()
			if err != nil {
				t.Fatalf("keys: %v", err)
			}
			if len(keys) != 0 {
				t.Fatalf("expired ticket was shared: %v", keys)
			}
		})
	}
}
