package internaldefs

import (
	goPubtkt "github.com/MrEthical07/goPubtkt"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   goPubtkt.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   goPubtkt.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goPubtkt.MetricTicketAccepted, Name: "pubtkt_ticket_accepted_total", Help: "Authentic tickets that satisfied the directory policy."},
	{ID: goPubtkt.MetricTicketExpired, Name: "pubtkt_ticket_expired_total", Help: "Authentic tickets past validuntil."},
	{ID: goPubtkt.MetricTicketIPMismatch, Name: "pubtkt_ticket_ip_mismatch_total", Help: "Authentic tickets bound to another client address."},
	{ID: goPubtkt.MetricTicketMissingTokens, Name: "pubtkt_ticket_missing_tokens_total", Help: "Authentic tickets lacking required tokens."},
	{ID: goPubtkt.MetricTicketMalformed, Name: "pubtkt_ticket_malformed_total", Help: "Tickets rejected by the parser."},
	{ID: goPubtkt.MetricTicketTooLong, Name: "pubtkt_ticket_too_long_total", Help: "Tickets over the size limit."},
	{ID: goPubtkt.MetricTicketBadSignature, Name: "pubtkt_ticket_bad_signature_total", Help: "Well-formed tickets whose signature did not verify."},
	{ID: goPubtkt.MetricCacheHit, Name: "pubtkt_cache_hit_total", Help: "Lookups served by the in-process ticket cache."},
	{ID: goPubtkt.MetricCacheMiss, Name: "pubtkt_cache_miss_total", Help: "Lookups that missed the in-process ticket cache."},
	{ID: goPubtkt.MetricSharedCacheHit, Name: "pubtkt_shared_cache_hit_total", Help: "Lookups served by the shared Redis tier."},
	{ID: goPubtkt.MetricSharedCacheError, Name: "pubtkt_shared_cache_error_total", Help: "Shared tier failures that degraded to a miss."},
	{ID: goPubtkt.MetricThrottleHit, Name: "pubtkt_throttle_hit_total", Help: "Requests refused by the invalid-ticket throttle."},
	{ID: goPubtkt.MetricThrottleError, Name: "pubtkt_throttle_error_total", Help: "Throttle backend failures."},
}

var HistogramDefs = []HistogramDef{
	{ID: goPubtkt.MetricAuthenticateLatency, Name: "pubtkt_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's
// microsecond-scale latency buckets.
var HistogramBounds = []string{
	"0.00005",
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.01",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds in instrument-name-safe form.
var HistogramBoundSuffix = []string{
	"0_00005",
	"0_0001",
	"0_00025",
	"0_0005",
	"0_001",
	"0_0025",
	"0_01",
	"inf",
}

// NormalizeBuckets copies raw into a fixed 8-bucket array, zero-filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
