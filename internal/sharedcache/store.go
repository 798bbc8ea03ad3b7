package sharedcache

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goPubtkt/ticket"
	"github.com/redis/go-redis/v9"
	"github.com/zeebo/blake3"
)

const (
	macSize         = 32
	minSecretLength = 32

	lookupContext = "goPubtkt sharedcache 2026 lookup key"
	macContext    = "goPubtkt sharedcache 2026 record mac"
)

var (
	ErrRedisUnavailable = errors.New("sharedcache: redis unavailable")
	ErrCorruptRecord    = errors.New("sharedcache: corrupt record")
	ErrSecretTooShort   = errors.New("sharedcache: secret must be at least 32 bytes")
)

// Config controls key layout and entry lifetime.
type Config struct {
	Prefix string
	Secret []byte
	MaxTTL time.Duration
}

// Store is the Redis-backed shared tier.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	maxTTL    time.Duration
	lookupKey [32]byte
	macKey    [32]byte
}

// New derives the lookup and MAC keys from cfg.Secret.
func New(client redis.UniversalClient, cfg Config) (*Store, error) {
	if client == nil {
		return nil, errors.New("sharedcache: redis client required")
	}
	if len(cfg.Secret) < minSecretLength {
		return nil, ErrSecretTooShort
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "pt:v"
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = 5 * time.Minute
	}

	s := &Store{
		redis:  client,
		prefix: cfg.Prefix,
		maxTTL: cfg.MaxTTL,
	}
	blake3.DeriveKey(lookupContext, cfg.Secret, s.lookupKey[:])
	blake3.DeriveKey(macContext, cfg.Secret, s.macKey[:])
	return s, nil
}

// Get returns the shared record for raw. A missing key is (zero, false, nil).
func (s *Store) Get(ctx context.Context, raw string) (ticket.Ticket, bool, error) {
	val, err := s.redis.Get(ctx, s.key(raw)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ticket.Ticket{}, false, nil
		}
		return ticket.Ticket{}, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if len(val) <= macSize {
		return ticket.Ticket{}, false, ErrCorruptRecord
	}
	body, mac := val[:len(val)-macSize], val[len(val)-macSize:]
	want := s.mac(body)
	if subtle.ConstantTimeCompare(mac, want[:]) != 1 {
		return ticket.Ticket{}, false, ErrCorruptRecord
	}

	var rec record
	if err := decMode.Unmarshal(body, &rec); err != nil {
		return ticket.Ticket{}, false, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if rec.Raw != raw {
		return ticket.Ticket{}, false, nil
	}
	return rec.ticket(), true, nil
}

// Put stores a verified ticket. Tickets already expired at now are skipped.
func (s *Store) Put(ctx context.Context, raw string, t ticket.Ticket, now time.Time) error {
	ttl := s.ttlFor(t, now)
	if ttl <= 0 {
		return nil
	}

	body, err := encMode.Marshal(newRecord(raw, t))
	if err != nil {
		return err
	}
	mac := s.mac(body)
	val := make([]byte, 0, len(body)+macSize)
	val = append(val, body...)
	val = append(val, mac[:]...)

	if err := s.redis.Set(ctx, s.key(raw), val, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) ttlFor(t ticket.Ticket, now time.Time) time.Duration {
	nowSec := now.Unix()
	if nowSec < 0 || t.ValidUntil <= uint64(nowSec) {
		return 0
	}
	remaining := t.ValidUntil - uint64(nowSec)
	if remaining >= uint64(s.maxTTL/time.Second) {
		return s.maxTTL
	}
	return time.Duration(remaining) * time.Second
}

func (s *Store) key(raw string) string {
	h, err := blake3.NewKeyed(s.lookupKey[:])
	if err != nil {
		panic("sharedcache: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = h.Write([]byte(raw))
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return s.prefix + ":" + hex.EncodeToString(sum[:])
}

func (s *Store) mac(body []byte) [32]byte {
	h, err := blake3.NewKeyed(s.macKey[:])
	if err != nil {
		panic("sharedcache: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = h.Write(body)
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}
