package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goCookieAuth/jwt"
	"github.com/MrEthical07/goCookieAuth/session"
)

// IsRenovationCandidate reports whether stored may be rotated for a client
// presenting these claims. All three must agree on session, user and email,
// and both tokens must carry the same number of claims. Role is not compared.
func IsRenovationCandidate(access, refresh jwt.Claims, stored *session.Session) bool {
	if stored == nil || access.FieldCount() != refresh.FieldCount() {
		return false
	}
	return access.SessionID == refresh.SessionID && refresh.SessionID == stored.SessionID &&
		access.UserID == refresh.UserID && refresh.UserID == stored.UserID &&
		access.UserEmail == refresh.UserEmail && refresh.UserEmail == stored.UserEmail
}

func runRenew(ctx context.Context, accessClaims jwt.Claims, refreshToken string, deps AuthenticateDeps) AuthenticateResult {
	res := deps.Refresh.Validate(refreshToken)
	switch res.Status {
	case jwt.StatusValid:
	case jwt.StatusExpired:
		return reject(AuthenticateFailureRefreshExpired, res.Err)
	default:
		return reject(AuthenticateFailureRefreshInvalid, res.Err)
	}
	refreshClaims := res.Claims

	stored, err := deps.Store.Get(ctx, refreshClaims.SessionID)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			return reject(AuthenticateFailureStore, err)
		}
		stored = nil
	}

	if IsRenovationCandidate(accessClaims, refreshClaims, stored) {
		result, done := rotate(ctx, stored, refreshClaims, deps)
		if done {
			return result
		}
		// the record vanished between Get and Replace
	}

	if !deps.FallbackToRefreshClaims {
		return reject(AuthenticateFailureSessionRevoked, session.ErrSessionNotFound)
	}
	return fallback(ctx, refreshClaims, deps)
}

// rotate swaps a fresh token pair into stored. done is false only when the
// record disappeared before the swap.
func rotate(ctx context.Context, stored *session.Session, refreshClaims jwt.Claims, deps AuthenticateDeps) (AuthenticateResult, bool) {
	ids := idSource{newSessionID: deps.NewSessionID, newTokenID: deps.NewTokenID}
	accessID, refreshID, err := ids.tokenPair()
	if err != nil {
		return reject(AuthenticateFailureIssue, err), true
	}
	next := stored.Rotate(accessID, refreshID)

	pair, err := issuePair(deps.Access, deps.Refresh, next, identityFromClaims(refreshClaims))
	if err != nil {
		return reject(AuthenticateFailureIssue, err), true
	}

	err = deps.Store.Replace(ctx, next, stored.AccessTokenID, stored.RefreshTokenID, deps.Refresh.TTL())
	switch {
	case err == nil:
		return AuthenticateResult{
			Claims:  pair.Claims,
			Session: next,
			Pair:    &pair,
			Renewed: true,
		}, true
	case errors.Is(err, session.ErrRotationConflict):
		if deps.ConflictPolicy == ConflictReject {
			res := reject(AuthenticateFailureRenewalConflict, err)
			res.Conflict = true
			return res, true
		}
		return AuthenticateResult{Claims: refreshClaims, Conflict: true}, true
	case errors.Is(err, session.ErrSessionNotFound):
		return AuthenticateResult{}, false
	default:
		return reject(AuthenticateFailureStore, err), true
	}
}

// fallback trusts the identity in a valid refresh token and starts a new
// session for it. The new session inherits the absolute expiry carried by
// the token; once that has passed the request is rejected.
func fallback(ctx context.Context, refreshClaims jwt.Claims, deps AuthenticateDeps) AuthenticateResult {
	ids := idSource{newSessionID: deps.NewSessionID, newTokenID: deps.NewTokenID}
	identity := identityFromClaims(refreshClaims)
	now := deps.Now()

	capAt := refreshClaims.SessionExpiresAt
	if !capAt.IsZero() && !now.Before(capAt) {
		return reject(AuthenticateFailureSessionExpired, session.ErrSessionExpired)
	}

	sess, err := ids.newSession(identity, now, deps.SessionLifetime)
	if err != nil {
		return reject(AuthenticateFailureIssue, err)
	}
	if !capAt.IsZero() {
		sess.ExpiresAt = capAt.Unix()
	}
	pair, err := issuePair(deps.Access, deps.Refresh, sess, identity)
	if err != nil {
		return reject(AuthenticateFailureIssue, err)
	}
	if err := deps.Store.Set(ctx, sess, deps.Refresh.TTL()); err != nil {
		if errors.Is(err, session.ErrSessionExpired) {
			return reject(AuthenticateFailureSessionExpired, err)
		}
		return reject(AuthenticateFailureStore, err)
	}

	return AuthenticateResult{
		Claims:   pair.Claims,
		Session:  sess,
		Pair:     &pair,
		Renewed:  true,
		Fallback: true,
	}
}
