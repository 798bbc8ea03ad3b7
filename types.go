package goPubtkt

import (
	"io"
	"log/slog"

	internalaudit "github.com/MrEthical07/goPubtkt/internal/audit"
	"github.com/MrEthical07/goPubtkt/ticket"
)

// Ticket is an authenticated pubtkt record.
type Ticket = ticket.Ticket

// ValidityResult is the outcome of checking an authentic ticket against a
// directory policy. Rules are applied in declaration order; the first
// failing rule wins.
type ValidityResult int

const (
	Valid ValidityResult = iota
	Expired
	IPMismatch
	MissingRequiredTokens
)

func (r ValidityResult) String() string {
	switch r {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	case IPMismatch:
		return "ip_mismatch"
	case MissingRequiredTokens:
		return "missing_required_tokens"
	default:
		return "unknown"
	}
}

// TokenMatch selects how a directory's required tokens are matched against
// the ticket's token list.
type TokenMatch string

const (
	// TokenMatchAny accepts a ticket carrying at least one required token.
	TokenMatchAny TokenMatch = "any"
	// TokenMatchAll requires every listed token.
	TokenMatchAll TokenMatch = "all"
)

// Policy is the per-request validity policy.
type Policy struct {
	RequireIPMatch bool
	// NormalizeIP matches the ticket's cip against the requester by parsed
	// address rather than exact text.
	NormalizeIP    bool
	RequiredTokens []string
	TokenMatch     TokenMatch
}

// Decision is returned by [Engine.Authenticate] for authentic tickets.
type Decision struct {
	Result ValidityResult
	Ticket Ticket
	// Cached reports that signature verification was skipped because the
	// ticket was found in the local or shared cache.
	Cached bool
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool { return d.Result == Valid }

// AuditEvent is the canonical audit event model.
type AuditEvent = internalaudit.Event

// AuditSink receives emitted audit events.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink writes audit events into a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink writes audit events as structured log records.
type SlogSink = internalaudit.SlogSink

// NewChannelSink creates a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink creates a [SlogSink] logging at info level through logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
