package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goCookieAuth/jwt"
	"github.com/MrEthical07/goCookieAuth/session"
)

// AuthenticateFailureKind classifies why a request was not authenticated.
type AuthenticateFailureKind int

const (
	AuthenticateFailureNone AuthenticateFailureKind = iota
	AuthenticateFailureAnonymous
	AuthenticateFailureAccessInvalid
	AuthenticateFailureAccessExpiredNoRefresh
	AuthenticateFailureRefreshInvalid
	AuthenticateFailureRefreshExpired
	AuthenticateFailureSessionRevoked
	AuthenticateFailureSessionExpired
	AuthenticateFailureRenewalConflict
	AuthenticateFailureStore
	AuthenticateFailureIssue
)

// Hard reports failures that are not an authentication decision at all.
func (k AuthenticateFailureKind) Hard() bool {
	return k == AuthenticateFailureStore || k == AuthenticateFailureIssue
}

// ClearsCookies reports whether the client's token cookies must be dropped.
func (k AuthenticateFailureKind) ClearsCookies() bool {
	return k != AuthenticateFailureNone && k != AuthenticateFailureAnonymous && !k.Hard()
}

// ConflictPolicy decides how a request that lost a rotation race is answered.
type ConflictPolicy int

const (
	// ConflictAuthenticate lets the request through on its refresh claims
	// without issuing cookies.
	ConflictAuthenticate ConflictPolicy = iota
	// ConflictReject rejects the request and clears its cookies.
	ConflictReject
)

// AuthenticateDeps captures authenticate and renewal dependencies.
type AuthenticateDeps struct {
	Access          TokenService
	Refresh         TokenService
	Store           SessionStore
	NewSessionID    func() (string, error)
	NewTokenID      func() (string, error)
	Now             func() time.Time
	SessionLifetime time.Duration

	// FallbackToRefreshClaims re-creates a session from a valid refresh
	// token when the stored one is missing or does not match.
	FallbackToRefreshClaims bool
	ConflictPolicy          ConflictPolicy
}

// AuthenticateResult is the outcome of one request. Pair is set only when
// new cookies must be written.
type AuthenticateResult struct {
	Failure  AuthenticateFailureKind
	Err      error
	Claims   jwt.Claims
	Session  *session.Session
	Pair     *IssuedPair
	Renewed  bool
	Fallback bool
	Conflict bool
}

// Authenticated reports whether the request carries a usable identity.
func (r AuthenticateResult) Authenticated() bool {
	return r.Failure == AuthenticateFailureNone
}

func reject(kind AuthenticateFailureKind, err error) AuthenticateResult {
	return AuthenticateResult{Failure: kind, Err: err}
}

// RunAuthenticate decides whether creds identify a user, renewing the token
// pair when the access token has expired or is absent.
func RunAuthenticate(ctx context.Context, creds Credentials, deps AuthenticateDeps) AuthenticateResult {
	if creds.Access == "" {
		if creds.Refresh == "" {
			return reject(AuthenticateFailureAnonymous, nil)
		}
		return runRenew(ctx, jwt.Claims{}, creds.Refresh, deps)
	}

	res := deps.Access.Validate(creds.Access)
	switch res.Status {
	case jwt.StatusValid:
		return AuthenticateResult{Claims: res.Claims}
	case jwt.StatusExpired:
		if creds.Refresh == "" {
			return reject(AuthenticateFailureAccessExpiredNoRefresh, res.Err)
		}
		return runRenew(ctx, deps.Access.ExtractUnverified(creds.Access), creds.Refresh, deps)
	default:
		return reject(AuthenticateFailureAccessInvalid, res.Err)
	}
}
