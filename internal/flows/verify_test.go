package flows

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MrEthical07/goPubtkt/internal/cache"
	"github.com/MrEthical07/goPubtkt/ticket"
)

var errLimited = errors.New("limited")

type fakeShared struct {
	store  map[string]ticket.Ticket
	getErr error
	puts   int
}

func (f *fakeShared) Get(_ context.Context, raw string) (ticket.Ticket, bool, error) {
	if f.getErr != nil {
		return ticket.Ticket{}, false, f.getErr
	}
	t, ok := f.store[raw]
	return t, ok, nil
}

func (f *fakeShared) Put(_ context.Context, raw string, t ticket.Ticket, _ time.Time) error {
	f.puts++
	if f.store == nil {
		f.store = map[string]ticket.Ticket{}
	}
	f.store[raw] = t
	return nil
}

type fakeThrottle struct {
	checkErr error
	failures map[string]int
}

func (f *fakeThrottle) Check(context.Context, string) error { return f.checkErr }

func (f *fakeThrottle) RecordFailure(_ context.Context, ip string) error {
	if f.failures == nil {
		f.failures = map[string]int{}
	}
	f.failures[ip]++
	return nil
}

type verifyCounter struct {
	calls int
	ok    bool
}

func (v *verifyCounter) verify([]byte, string) bool {
	v.calls++
	return v.ok
}

func testDeps(v *verifyCounter) VerifyDeps {
	return VerifyDeps{
		MaxTicketSize:  ticket.MaxRawLen,
		Cache:          cache.New(4, 0),
		Parse:          ticket.Parse,
		Verify:         v.verify,
		Now:            func() time.Time { return time.Unix(1000, 0) },
		RateLimitedErr: errLimited,
	}
}

const goodRaw = "uid=alice;validuntil=2000;sig=QUJD"

func TestRunVerifyCachesOnlyAfterSignature(t *testing.T) {
	v := &verifyCounter{ok: true}
	deps := testDeps(v)

	res := RunVerify(context.Background(), goodRaw, "", deps)
	if res.Failure != VerifyFailureNone || res.Source != VerifySourceSignature {
		t.Fatalf("unexpected result %+v", res)
	}
	res = RunVerify(context.Background(), goodRaw, "", deps)
	if res.Source != VerifySourceCache || res.Ticket.UID != "alice" {
		t.Fatalf("expected cache hit, got %+v", res)
	}
	if v.calls != 1 {
		t.Fatalf("expected one signature check, got %d", v.calls)
	}
}

func TestRunVerifyBadSignatureNotCached(t *testing.T) {
	v := &verifyCounter{ok: false}
	deps := testDeps(v)

	for i := 0; i < 2; i++ {
		res := RunVerify(context.Background(), goodRaw, "", deps)
		if res.Failure != VerifyFailureSignature {
			t.Fatalf("expected signature failure, got %+v", res)
		}
	}
	if v.calls != 2 {
		t.Fatalf("forged ticket must be re-verified each time, got %d calls", v.calls)
	}
}

func TestRunVerifyMalformedAndTooLong(t *testing.T) {
	v := &verifyCounter{ok: true}
	deps := testDeps(v)

	res := RunVerify(context.Background(), "uid=alice;sig=x", "", deps)
	if res.Failure != VerifyFailureMalformed || !errors.Is(res.Err, ticket.ErrMissingRequiredField) {
		t.Fatalf("expected malformed failure, got %+v", res)
	}

	deps.MaxTicketSize = 8
	res = RunVerify(context.Background(), goodRaw, "", deps)
	if res.Failure != VerifyFailureTooLong {
		t.Fatalf("expected too-long failure, got %+v", res)
	}
	if v.calls != 0 {
		t.Fatalf("verifier must not run, got %d calls", v.calls)
	}
}

func TestRunVerifySharedTier(t *testing.T) {
	v := &verifyCounter{ok: true}
	shared := &fakeShared{store: map[string]ticket.Ticket{goodRaw: {UID: "shared", ValidUntil: 2000}}}
	deps := testDeps(v)
	deps.Shared = shared

	res := RunVerify(context.Background(), goodRaw, "", deps)
	if res.Source != VerifySourceShared || res.Ticket.UID != "shared" {
		t.Fatalf("expected shared hit, got %+v", res)
	}
	res = RunVerify(context.Background(), goodRaw, "", deps)
	if res.Source != VerifySourceCache {
		t.Fatalf("shared hit must populate local cache, got %+v", res)
	}
	if v.calls != 0 {
		t.Fatalf("verifier must not run on shared hit, got %d", v.calls)
	}

	other := "uid=bob;validuntil=2000;sig=QUJD"
	res = RunVerify(context.Background(), other, "", deps)
	if res.Source != VerifySourceSignature || shared.puts != 1 {
		t.Fatalf("expected verified ticket written to shared tier, got %+v puts=%d", res, shared.puts)
	}
}

func TestRunVerifySharedErrorDegradesToMiss(t *testing.T) {
	v := &verifyCounter{ok: true}
	shared := &fakeShared{getErr: errors.New("down")}
	deps := testDeps(v)
	deps.Shared = shared

	res := RunVerify(context.Background(), goodRaw, "", deps)
	if res.Failure != VerifyFailureNone || res.SharedErr == nil {
		t.Fatalf("expected success with shared error reported, got %+v", res)
	}
	if shared.puts != 0 {
		t.Fatal("must not write to a failing shared tier in the same call")
	}
}

func TestRunVerifyCorruptSharedRecordIsOverwritten(t *testing.T) {
	errCorrupt := errors.New("corrupt")
	v := &verifyCounter{ok: true}
	shared := &fakeShared{getErr: fmt.Errorf("%w: bad mac", errCorrupt)}
	deps := testDeps(v)
	deps.Shared = shared
	deps.CorruptSharedErr = errCorrupt

	res := RunVerify(context.Background(), goodRaw, "", deps)
	if res.Failure != VerifyFailureNone || res.Source != VerifySourceSignature {
		t.Fatalf("expected verified ticket, got %+v", res)
	}
	if !errors.Is(res.SharedErr, errCorrupt) {
		t.Fatalf("corrupt record must still be reported, got %v", res.SharedErr)
	}
	if shared.puts != 1 || shared.store[goodRaw].UID != "alice" {
		t.Fatalf("expected corrupt record to be rewritten, puts=%d", shared.puts)
	}
}

func TestRunVerifyThrottle(t *testing.T) {
	v := &verifyCounter{ok: false}
	th := &fakeThrottle{}
	deps := testDeps(v)
	deps.Throttle = th

	RunVerify(context.Background(), goodRaw, "10.0.0.1", deps)
	RunVerify(context.Background(), "garbage", "10.0.0.1", deps)
	if th.failures["10.0.0.1"] != 2 {
		t.Fatalf("expected two recorded failures, got %d", th.failures["10.0.0.1"])
	}

	th.checkErr = errLimited
	res := RunVerify(context.Background(), goodRaw, "10.0.0.1", deps)
	if res.Failure != VerifyFailureRateLimited {
		t.Fatalf("expected rate limited, got %+v", res)
	}

	th.checkErr = errors.New("redis down")
	v.ok = true
	res = RunVerify(context.Background(), goodRaw, "10.0.0.1", deps)
	if res.Failure != VerifyFailureNone || res.ThrottleErr == nil {
		t.Fatalf("throttle outage must not block verification, got %+v", res)
	}
}

func TestRunVerifyCacheHitBypassesThrottle(t *testing.T) {
	v := &verifyCounter{ok: true}
	th := &fakeThrottle{}
	deps := testDeps(v)
	deps.Throttle = th

	RunVerify(context.Background(), goodRaw, "10.0.0.1", deps)
	th.checkErr = errLimited
	res := RunVerify(context.Background(), goodRaw, "10.0.0.1", deps)
	if res.Failure != VerifyFailureNone || res.Source != VerifySourceCache {
		t.Fatalf("cached ticket must bypass throttle, got %+v", res)
	}
}
