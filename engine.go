package goCookieAuth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	internalaudit "github.com/MrEthical07/goCookieAuth/internal/audit"
	"github.com/MrEthical07/goCookieAuth/internal/flows"
	internalmetrics "github.com/MrEthical07/goCookieAuth/internal/metrics"
	"github.com/MrEthical07/goCookieAuth/session"
	"github.com/MrEthical07/goCookieAuth/token"
)

// Engine issues token cookies on login and decides, per request, whether
// the caller is authenticated, renewing the token pair when the access token
// has run out.
//
// An Engine is safe for concurrent use once built.
type Engine struct {
	config     Config
	access     *token.Service
	refresh    *token.Service
	store      *session.Store
	identities IdentityProvider
	audit      *internalaudit.Dispatcher
	metrics    *internalmetrics.Metrics
	logger     zerolog.Logger
	deps       flows.Deps
}

// Close flushes pending audit events. The Redis client is owned by the caller.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports audit events lost to a full buffer or an ended
// request context.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the in-process metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return (*internalmetrics.Metrics)(nil).Snapshot()
	}
	return e.metrics.Snapshot()
}

// Ping checks the session store and reports its round-trip latency.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	return e.store.Ping(ctx)
}

// AccessCookieName and RefreshCookieName expose the configured cookie names.
func (e *Engine) AccessCookieName() string { return e.access.CookieName() }

func (e *Engine) RefreshCookieName() string { return e.refresh.CookieName() }

// Login opens a new session for the user and writes both token cookies to w.
// Cookies already queued on w for either name are replaced.
//
// Login fails with ErrClaimsIncomplete when userID, email or role is blank,
// with ErrIdentityTooLong when a field exceeds the session record limit and
// with ErrStoreUnavailable when the session cannot be written. No cookie is
// written on failure.
func (e *Engine) Login(ctx context.Context, w http.ResponseWriter, userID, email, role string) (*AuthResult, error) {
	return e.LoginIdentity(ctx, w, Identity{UserID: userID, Email: email, Role: role})
}

// LoginIdentity is Login with the optional name and permissions claims.
func (e *Engine) LoginIdentity(ctx context.Context, w http.ResponseWriter, identity Identity) (*AuthResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunLogin(ctx, flows.Identity(identity), e.deps.Login)
	if res.Failure != flows.LoginFailureNone {
		e.metrics.Inc(MetricLoginFailure)
		if res.Failure == flows.LoginFailurePersist {
			e.metrics.Inc(MetricStoreError)
		}
		e.logger.Error().Err(res.Err).
			Str("user_id", identity.UserID).
			Str("stage", loginStage(res.Failure)).
			Msg("login failed")
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventLoginFailure,
			userID:    identity.UserID,
			code:      auditErrorCode(res.Err),
			metadata:  map[string]string{"stage": loginStage(res.Failure)},
		})
		return nil, res.Err
	}

	e.writePair(w, res.Pair)
	e.metrics.Inc(MetricLoginSuccess)
	e.logger.Debug().
		Str("user_id", res.Session.UserID).
		Str("session_id", res.Session.SessionID).
		Msg("session opened")
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventLoginSuccess,
		success:   true,
		userID:    res.Session.UserID,
		sessionID: res.Session.SessionID,
	})

	return &AuthResult{
		Decision: Authenticated,
		Claims:   res.Pair.Claims,
		Session:  res.Session,
	}, nil
}

// LoginUser resolves userID through the IdentityProvider and logs it in.
func (e *Engine) LoginUser(ctx context.Context, w http.ResponseWriter, userID string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.identities == nil {
		return nil, ErrIdentityProviderMissing
	}
	identity, err := e.identities.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user %q: %w", userID, err)
	}
	if identity == nil {
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventLoginFailure,
			userID:    userID,
			code:      auditErrUserNotFound,
		})
		return nil, ErrUserNotFound
	}
	return e.LoginIdentity(ctx, w, *identity)
}

// Authenticate decides whether r carries a usable identity.
//
// The access token is taken from the Authorization bearer header or the
// access cookie; the refresh token only from its cookie. When the access
// token is expired or absent and the refresh token is valid, the session is
// rotated (or re-created, see RenewalConfig) and new cookies are written.
// Every rejection except an anonymous request clears both cookies.
//
// A non-nil error means no decision could be made: the session store failed
// (ErrStoreUnavailable) or new tokens could not be signed. Cookies are left
// untouched in that case.
func (e *Engine) Authenticate(w http.ResponseWriter, r *http.Request) (*AuthResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	ctx := r.Context()

	defer func() { e.metrics.Observe(MetricAuthenticateLatency, time.Since(start)) }()

	res := flows.RunAuthenticate(ctx, e.credentials(r), e.deps.Authenticate)

	switch {
	case res.Failure.Hard():
		return nil, e.authenticateHardFailure(ctx, res)
	case !res.Authenticated():
		return e.authenticateRejected(ctx, w, res), nil
	}

	if res.Pair != nil {
		e.writePair(w, *res.Pair)
	}
	e.metrics.Inc(MetricAuthenticateSuccess)

	out := &AuthResult{
		Decision: Authenticated,
		Claims:   res.Claims,
		Session:  res.Session,
		Renewed:  res.Renewed,
		Fallback: res.Fallback,
		Conflict: res.Conflict,
	}

	switch {
	case res.Conflict:
		e.metrics.Inc(MetricRenewalConflict)
		e.logger.Info().
			Str("session_id", res.Claims.SessionID).
			Str("user_id", res.Claims.UserID).
			Msg("renewal lost to a concurrent request")
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventRenewalConflict,
			success:   true,
			userID:    res.Claims.UserID,
			sessionID: res.Claims.SessionID,
		})
	case res.Renewed:
		e.metrics.Inc(MetricRenewalSuccess)
		if res.Fallback {
			e.metrics.Inc(MetricRenewalFallback)
			e.logger.Warn().
				Str("session_id", res.Session.SessionID).
				Str("user_id", res.Session.UserID).
				Msg("session re-created from refresh token claims")
		}
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventAuthenticateRenewed,
			success:   true,
			userID:    res.Session.UserID,
			sessionID: res.Session.SessionID,
			metadata:  map[string]string{"fallback": strconv.FormatBool(res.Fallback)},
		})
	}
	return out, nil
}

func (e *Engine) authenticateRejected(ctx context.Context, w http.ResponseWriter, res flows.AuthenticateResult) *AuthResult {
	reason := rejectReason(res.Failure)
	e.metrics.Inc(MetricAuthenticateRejected)

	if res.Failure.ClearsCookies() {
		e.clearCookies(w)
		e.metrics.Inc(MetricCookiesCleared)
	}
	if res.Conflict {
		e.metrics.Inc(MetricRenewalConflict)
	}

	if reason != ReasonAnonymous {
		entry := e.logger.Debug().Str("reason", string(reason))
		if res.Err != nil {
			entry = entry.AnErr("cause", res.Err)
		}
		entry.Msg("request rejected")
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventAuthenticateRejected,
			code:      AuditErrorCode(reason),
		})
	}

	return &AuthResult{
		Decision: Unauthenticated,
		Conflict: res.Conflict,
		Reason:   reason,
	}
}

func (e *Engine) authenticateHardFailure(ctx context.Context, res flows.AuthenticateResult) error {
	if res.Failure == flows.AuthenticateFailureStore {
		e.metrics.Inc(MetricStoreError)
	}
	e.logger.Error().Err(res.Err).Msg("authenticate failed")
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventAuthenticateError,
		code:      auditErrorCode(res.Err),
	})
	return res.Err
}

// Logout clears both cookies and, with RenewalConfig.RevokeOnLogout, deletes
// the caller's stored session. Cookies are cleared even when the store
// fails; the store error is returned.
func (e *Engine) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	res := flows.RunLogout(ctx, e.credentials(r), e.deps.Logout)
	e.clearCookies(w)
	e.metrics.Inc(MetricLogout)

	if res.Err != nil {
		e.metrics.Inc(MetricStoreError)
		e.logger.Error().Err(res.Err).Str("session_id", res.SessionID).Msg("session revocation failed")
	}
	if res.Revoked {
		e.metrics.Inc(MetricSessionRevoked)
	}
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventLogout,
		success:   res.Err == nil,
		userID:    res.UserID,
		sessionID: res.SessionID,
		code:      auditErrorCode(res.Err),
		metadata:  map[string]string{"revoked": strconv.FormatBool(res.Revoked)},
	})
	return res.Err
}

func (e *Engine) credentials(r *http.Request) flows.Credentials {
	var creds flows.Credentials
	creds.Access, _ = e.access.ExtractToken(r)
	creds.Refresh, _ = e.refresh.ExtractCookie(r)
	return creds
}

// writePair replaces any queued Set-Cookie lines for either token and sets
// the new ones.
func (e *Engine) writePair(w http.ResponseWriter, pair flows.IssuedPair) {
	dropSetCookies(w.Header(), e.access.CookieName(), e.refresh.CookieName())
	http.SetCookie(w, pair.Access.Cookie)
	http.SetCookie(w, pair.Refresh.Cookie)
}

func (e *Engine) clearCookies(w http.ResponseWriter) {
	dropSetCookies(w.Header(), e.access.CookieName(), e.refresh.CookieName())
	http.SetCookie(w, e.access.ClearCookie())
	http.SetCookie(w, e.refresh.ClearCookie())
}

func dropSetCookies(h http.Header, names ...string) {
	lines := h.Values("Set-Cookie")
	if len(lines) == 0 {
		return
	}
	var kept []string
	for _, line := range lines {
		name, _, _ := strings.Cut(line, "=")
		drop := false
		for _, n := range names {
			if strings.TrimSpace(name) == n {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, line)
		}
	}
	h.Del("Set-Cookie")
	for _, line := range kept {
		h.Add("Set-Cookie", line)
	}
}

func rejectReason(kind flows.AuthenticateFailureKind) RejectReason {
	switch kind {
	case flows.AuthenticateFailureNone:
		return ReasonNone
	case flows.AuthenticateFailureAnonymous:
		return ReasonAnonymous
	case flows.AuthenticateFailureAccessInvalid:
		return ReasonAccessInvalid
	case flows.AuthenticateFailureAccessExpiredNoRefresh:
		return ReasonAccessExpiredNoRefresh
	case flows.AuthenticateFailureRefreshInvalid:
		return ReasonRefreshInvalid
	case flows.AuthenticateFailureRefreshExpired:
		return ReasonRefreshExpired
	case flows.AuthenticateFailureSessionRevoked:
		return ReasonSessionRevoked
	case flows.AuthenticateFailureSessionExpired:
		return ReasonSessionExpired
	case flows.AuthenticateFailureRenewalConflict:
		return ReasonRenewalConflict
	default:
		return ReasonAccessInvalid
	}
}

func loginStage(kind flows.LoginFailureKind) string {
	switch kind {
	case flows.LoginFailureIDs:
		return "ids"
	case flows.LoginFailureInvalid:
		return "invalid"
	case flows.LoginFailureIssue:
		return "issue"
	case flows.LoginFailurePersist:
		return "persist"
	default:
		return "none"
	}
}
