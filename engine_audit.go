package goCookieAuth

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventAuthenticateRenewed  = "authenticate_renewed"
	auditEventAuthenticateRejected = "authenticate_rejected"
	auditEventAuthenticateError    = "authenticate_error"
	auditEventRenewalConflict      = "renewal_conflict"
	auditEventLogout               = "logout"
)

// AuditErrorCode is the stable error label carried in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrClaimsIncomplete AuditErrorCode = "claims_incomplete"
	auditErrSessionNotFound  AuditErrorCode = "session_not_found"
	auditErrRotationConflict AuditErrorCode = "rotation_conflict"
	auditErrUserNotFound     AuditErrorCode = "user_not_found"
	auditErrIdentityTooLong  AuditErrorCode = "identity_too_long"
	auditErrSessionExpired   AuditErrorCode = "session_expired"
	auditErrUnavailable      AuditErrorCode = "backend_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

type auditRecord struct {
	eventType string
	success   bool
	userID    string
	sessionID string
	code      AuditErrorCode
	metadata  map[string]string
}

func (e *Engine) emitAudit(ctx context.Context, rec auditRecord) {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Emit(ctx, AuditEvent{
		EventType: rec.eventType,
		UserID:    rec.userID,
		SessionID: rec.sessionID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   rec.success,
		Error:     string(rec.code),
		Metadata:  rec.metadata,
	})
}

// criticalAuditEvent keeps failures of the engine itself out of DropIfFull
// shedding. Rejections are client driven and may be shed.
func criticalAuditEvent(event AuditEvent) bool {
	return event.EventType == auditEventLoginFailure || event.EventType == auditEventAuthenticateError
}

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrClaimsIncomplete):
		return auditErrClaimsIncomplete
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrRotationConflict):
		return auditErrRotationConflict
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrIdentityTooLong):
		return auditErrIdentityTooLong
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	default:
		return auditErrInternal
	}
}
