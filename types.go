package goCookieAuth

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	internalaudit "github.com/MrEthical07/goCookieAuth/internal/audit"
	"github.com/MrEthical07/goCookieAuth/jwt"
	"github.com/MrEthical07/goCookieAuth/session"
)

// Claims is the verified content of an access or refresh token.
type Claims = jwt.Claims

// Session is the server-side record of a login.
type Session = session.Session

// Decision is the outcome of Engine.Authenticate.
type Decision uint8

const (
	Unauthenticated Decision = iota
	Authenticated
)

func (d Decision) String() string {
	if d == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// RejectReason says why a request was not authenticated. It is empty for
// authenticated requests.
type RejectReason string

const (
	ReasonNone                   RejectReason = ""
	ReasonAnonymous              RejectReason = "anonymous"
	ReasonAccessInvalid          RejectReason = "access_invalid"
	ReasonAccessExpiredNoRefresh RejectReason = "access_expired_no_refresh"
	ReasonRefreshInvalid         RejectReason = "refresh_invalid"
	ReasonRefreshExpired         RejectReason = "refresh_expired"
	ReasonSessionRevoked         RejectReason = "session_revoked"
	ReasonSessionExpired         RejectReason = "session_expired"
	ReasonRenewalConflict        RejectReason = "renewal_conflict"
)

// AuthResult is returned by Login and Authenticate.
//
// Claims are the access claims the caller should act on. Session is set
// after Login and after a renewal. Renewed means new cookies were written;
// Fallback means the renewal started a new session from refresh claims.
// Conflict means the request lost a concurrent renewal.
type AuthResult struct {
	Decision Decision
	Claims   Claims
	Session  *Session
	Renewed  bool
	Fallback bool
	Conflict bool
	Reason   RejectReason
}

// Authenticated reports whether the request carries a usable identity.
func (r *AuthResult) Authenticated() bool {
	return r != nil && r.Decision == Authenticated
}

// Identity is the user data needed to open a session.
type Identity struct {
	UserID      string
	Email       string
	Role        string
	Name        string
	Permissions []string
}

// IdentityProvider resolves a user id to an Identity for LoginUser.
// Returning (nil, nil) means the user does not exist.
type IdentityProvider interface {
	GetUser(ctx context.Context, userID string) (*Identity, error)
}

// IdentityProviderFunc adapts a function to IdentityProvider.
type IdentityProviderFunc func(ctx context.Context, userID string) (*Identity, error)

func (f IdentityProviderFunc) GetUser(ctx context.Context, userID string) (*Identity, error) {
	return f(ctx, userID)
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives AuditEvent values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an AuditSink that discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based AuditSink.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON-encoded event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// LoggerSink writes events through a zerolog logger.
type LoggerSink = internalaudit.LoggerSink

// NewChannelSink creates a ChannelSink with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a JSONWriterSink that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLoggerSink creates a LoggerSink on top of logger.
func NewLoggerSink(logger zerolog.Logger) *LoggerSink {
	return internalaudit.NewLoggerSink(logger)
}
