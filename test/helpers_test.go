//go:build integration
// +build integration

package test

import (
	"crypto"
	"sync"
	"testing"
	"time"

	goPubtkt "github.com/MrEthical07/goPubtkt"
	"github.com/MrEthical07/goPubtkt/internal/tickettest"
	"github.com/MrEthical07/goPubtkt/ticket"
	"github.com/redis/go-redis/v9"
)

var (
	issuerOnce sync.Once
	issuer     *tickettest.Signer
	issuerErr  error
)

func testIssuer(t testing.TB) *tickettest.Signer {
	t.Helper()
	issuerOnce.Do(func() {
		issuer, issuerErr = tickettest.NewRSA(2048, crypto.SHA1)
	})
	if issuerErr != nil {
		t.Fatalf("issuer key: %v", issuerErr)
	}
	return issuer
}

// integrationConfig enables both Redis-backed features.
func integrationConfig(t testing.TB) goPubtkt.Config {
	t.Helper()
	cfg := goPubtkt.DefaultConfig()
	cfg.Server.PublicKey = testIssuer(t).PublicPEM()
	cfg.SharedCache.Enabled = true
	cfg.SharedCache.Secret = []byte("integration-shared-cache-secret-0001")
	cfg.Throttle.Enabled = true
	cfg.Throttle.MaxFailures = 3
	cfg.Throttle.Window = time.Minute
	cfg.Metrics.Enabled = true
	return cfg
}

func newIntegrationEngine(t *testing.T, rdb redis.UniversalClient, cfg goPubtkt.Config) *goPubtkt.Engine {
	t.Helper()
	engine, err := goPubtkt.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func signFor(t testing.TB, uid, ip string, ttl time.Duration) string {
	t.Helper()
	raw, err := testIssuer(t).Sign(ticket.Ticket{
		UID:        uid,
		ClientIP:   ip,
		ValidUntil: uint64(time.Now().Add(ttl).Unix()),
		Tokens:     "staff",
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

// forge flips one character of the uid so the signature no longer matches.
func forge(raw string) string {
	b := []byte(raw)
	b[len("uid=")] ^= 0x01
	return string(b)
}
