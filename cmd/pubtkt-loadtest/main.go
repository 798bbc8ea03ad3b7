// Command pubtkt-loadtest drives concurrent Authenticate calls against a
// pool of signed tickets and reports latency percentiles and cache hit
// ratio. With --shared it wires the Redis-backed shared cache, using
// miniredis unless --redis-addr or REDIS_ADDR is set.
package main

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goPubtkt "github.com/MrEthical07/goPubtkt"
	"github.com/MrEthical07/goPubtkt/internal/tickettest"
	"github.com/MrEthical07/goPubtkt/ticket"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "pubtkt-loadtest: %v\n", err)
		os.Exit(2)
	}
}

func run(args []string) error {
	var (
		tickets     int
		concurrency int
		ops         int
		capacity    int
		algorithm   string
		shared      bool
		redisAddr   string
		forgedPct   int
	)

	flagSet := pflag.NewFlagSet("pubtkt-loadtest", pflag.ContinueOnError)
	flagSet.IntVar(&tickets, "tickets", 1000, "number of distinct tickets to sign")
	flagSet.IntVar(&concurrency, "concurrency", 64, "number of concurrent workers")
	flagSet.IntVar(&ops, "ops", 200000, "total Authenticate calls")
	flagSet.IntVar(&capacity, "capacity", goPubtkt.DefaultCacheCapacity, "process cache capacity")
	flagSet.StringVar(&algorithm, "algorithm", "rsa", "issuer key: rsa, ecdsa or ed25519")
	flagSet.BoolVar(&shared, "shared", false, "enable the Redis shared cache")
	flagSet.StringVar(&redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	flagSet.IntVar(&forgedPct, "forged-percent", 0, "percentage of requests carrying a forged ticket")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if tickets <= 0 || concurrency <= 0 || ops <= 0 || capacity <= 0 {
		return errors.New("tickets, concurrency, ops and capacity must be > 0")
	}
	if forgedPct < 0 || forgedPct > 100 {
		return errors.New("forged-percent must be in [0, 100]")
	}

	signer, digest, err := newSigner(algorithm)
	if err != nil {
		return err
	}

	cfg := goPubtkt.DefaultConfig()
	cfg.Server.PublicKey = signer.PublicPEM()
	cfg.Server.Digest = digest
	cfg.Cache.Capacity = capacity
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	builder := goPubtkt.New()
	if shared {
		client, cleanup, err := redisClient(redisAddr)
		if err != nil {
			return err
		}
		defer cleanup()
		cfg.SharedCache.Enabled = true
		cfg.SharedCache.Secret = []byte("pubtkt-loadtest-shared-cache-secret-0001")
		builder = builder.WithRedis(client)
	}

	engine, err := builder.WithConfig(cfg).Build()
	if err != nil {
		return fmt.Errorf("engine build: %w", err)
	}
	defer engine.Close()

	fmt.Printf("signing %d %s tickets...\n", tickets, algorithm)
	startSign := time.Now()
	pool, forged, err := signPool(signer, tickets)
	if err != nil {
		return err
	}
	fmt.Printf("signed in %s\n", time.Since(startSign).Round(time.Millisecond))

	stats := runPhase(engine, pool, forged, ops, concurrency, forgedPct)

	snap := engine.MetricsSnapshot()
	hits := snap.Counters[goPubtkt.MetricCacheHit]
	misses := snap.Counters[goPubtkt.MetricCacheMiss]
	ratio := 0.0
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}

	fmt.Println("---- results ----")
	printStats("authenticate", stats)
	fmt.Printf("cache: hits=%d misses=%d ratio=%.3f shared_hits=%d shared_errors=%d occupied=%d/%d\n",
		hits, misses, ratio,
		snap.Counters[goPubtkt.MetricSharedCacheHit],
		snap.Counters[goPubtkt.MetricSharedCacheError],
		engine.CacheStats().Occupied, engine.CacheStats().Capacity,
	)
	fmt.Printf("outcomes: accepted=%d bad_signature=%d\n",
		snap.Counters[goPubtkt.MetricTicketAccepted],
		snap.Counters[goPubtkt.MetricTicketBadSignature],
	)
	return nil
}

func newSigner(algorithm string) (*tickettest.Signer, string, error) {
	switch algorithm {
	case "rsa":
		s, err := tickettest.NewRSA(2048, crypto.SHA1)
		return s, "sha1", err
	case "ecdsa":
		s, err := tickettest.NewECDSA()
		return s, "sha256", err
	case "ed25519":
		s, err := tickettest.NewEd25519()
		return s, "sha1", err
	default:
		return nil, "", fmt.Errorf("unknown algorithm %q", algorithm)
	}
}

func redisClient(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	fmt.Printf("using redis at %s\n", addr)
	return client, func() { _ = client.Close() }, nil
}

// signPool returns n valid tickets, each bound to a distinct documentation
// address, and one forged ticket.
func signPool(signer *tickettest.Signer, n int) ([]poolEntry, string, error) {
	validUntil := uint64(time.Now().Add(24 * time.Hour).Unix())
	out := make([]poolEntry, n)
	for i := range out {
		ip := fmt.Sprintf("198.51.%d.%d", (i/254)%256, i%254+1)
		raw, err := signer.Sign(ticket.Ticket{
			UID:        fmt.Sprintf("user-%d", i),
			ClientIP:   ip,
			ValidUntil: validUntil,
			Tokens:     "staff",
		})
		if err != nil {
			return nil, "", fmt.Errorf("sign: %w", err)
		}
		out[i] = poolEntry{raw: raw, ip: ip}
	}

	payload := tickettest.Payload(ticket.Ticket{UID: "mallory", ValidUntil: validUntil})
	forged := payload + "sig=" + "AAAA" + "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	return out, forged, nil
}

type poolEntry struct {
	raw string
	ip  string
}

func runPhase(engine *goPubtkt.Engine, pool []poolEntry, forged string, ops, concurrency, forgedPct int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	policy := engine.Directory("/").Policy()
	ctx := context.Background()

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					break
				}
				entry := pool[r.Intn(len(pool))]
				raw := entry.raw
				if forgedPct > 0 && r.Intn(100) < forgedPct {
					raw = forged
				}
				t0 := time.Now()
				decision, err := engine.Authenticate(ctx, raw, entry.ip, policy)
				d := time.Since(t0)
				if err != nil || !decision.Allowed() {
					atomic.AddInt64(&failures, 1)
				}
				local = append(local, d)
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
