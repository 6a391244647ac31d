package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goCookieAuth/session"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureIDs
	LoginFailureInvalid
	LoginFailureIssue
	LoginFailurePersist
)

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Access          TokenService
	Refresh         TokenService
	Store           SessionStore
	NewSessionID    func() (string, error)
	NewTokenID      func() (string, error)
	Now             func() time.Time
	SessionLifetime time.Duration
}

// LoginResult carries either the new session and its tokens or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Session *session.Session
	Pair    IssuedPair
}

// RunLogin creates a session for identity, signs both tokens and persists
// the session. The tokens are only returned once the session is stored.
func RunLogin(ctx context.Context, identity Identity, deps LoginDeps) LoginResult {
	ids := idSource{newSessionID: deps.NewSessionID, newTokenID: deps.NewTokenID}

	sess, err := ids.newSession(identity, deps.Now(), deps.SessionLifetime)
	if err != nil {
		return LoginResult{Failure: LoginFailureIDs, Err: err}
	}
	if err := session.CheckEncodable(sess); err != nil {
		return LoginResult{Failure: LoginFailureInvalid, Err: err}
	}

	pair, err := issuePair(deps.Access, deps.Refresh, sess, identity)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, Session: sess}
	}

	if err := deps.Store.Set(ctx, sess, deps.Refresh.TTL()); err != nil {
		return LoginResult{Failure: LoginFailurePersist, Err: err, Session: sess}
	}

	return LoginResult{Session: sess, Pair: pair}
}
