package goPubtkt

import (
	"context"
	"errors"

	"github.com/MrEthical07/goPubtkt/internal/cache"
	"github.com/google/uuid"
)

const (
	auditEventTicketAccepted      = "ticket_accepted"
	auditEventTicketMissing       = "ticket_missing"
	auditEventTicketInvalid       = "ticket_invalid"
	auditEventTicketExpired       = "ticket_expired"
	auditEventTicketIPMismatch    = "ticket_ip_mismatch"
	auditEventTicketMissingTokens = "ticket_missing_tokens"
	auditEventVerifyRateLimited   = "verify_rate_limited"
)

// AuditErrorCode is the stable error classification written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidTicket AuditErrorCode = "invalid_ticket"
	auditErrMissingTicket AuditErrorCode = "missing_ticket"
	auditErrRateLimited   AuditErrorCode = "rate_limited"
)

// emitAudit never records the raw ticket; only its 32-bit digest.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	clientIP string,
	raw string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventID:   uuid.NewString(),
		Timestamp: e.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIP,
		Path:      requestPathFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if raw != "" && len(raw) <= e.config.Cache.MaxTicketSize {
		event.Digest = cache.Hash(raw)
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

// auditErrorCode leaves Error empty for errors that have no stable code.
func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTicketInvalid):
		return auditErrInvalidTicket
	case errors.Is(err, ErrTicketMissing):
		return auditErrMissingTicket
	case errors.Is(err, ErrVerifyRateLimited):
		return auditErrRateLimited
	default:
		return ""
	}
}
