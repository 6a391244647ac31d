package flows

import (
	"time"

	"github.com/MrEthical07/goCookieAuth/jwt"
	"github.com/MrEthical07/goCookieAuth/session"
	"github.com/MrEthical07/goCookieAuth/token"
)

// IssuedPair is a freshly signed access/refresh pair for one session.
// Claims are the access token's claims.
type IssuedPair struct {
	Access  token.Issued
	Refresh token.Issued
	Claims  jwt.Claims
}

type idSource struct {
	newSessionID func() (string, error)
	newTokenID   func() (string, error)
}

func (s idSource) tokenPair() (string, string, error) {
	accessID, err := s.newTokenID()
	if err != nil {
		return "", "", err
	}
	refreshID, err := s.newTokenID()
	if err != nil {
		return "", "", err
	}
	return accessID, refreshID, nil
}

// newSession builds a session with fresh ids for identity.
func (s idSource) newSession(identity Identity, now time.Time, lifetime time.Duration) (*session.Session, error) {
	sessionID, err := s.newSessionID()
	if err != nil {
		return nil, err
	}
	accessID, refreshID, err := s.tokenPair()
	if err != nil {
		return nil, err
	}
	sess := &session.Session{
		SessionID:      sessionID,
		UserID:         identity.UserID,
		UserEmail:      identity.Email,
		UserRole:       identity.Role,
		AccessTokenID:  accessID,
		RefreshTokenID: refreshID,
		CreatedAt:      now.Unix(),
	}
	if lifetime > 0 {
		sess.ExpiresAt = now.Add(lifetime).Unix()
	}
	return sess, nil
}

func claimsFor(sess *session.Session, tokenID string, identity Identity) jwt.Claims {
	c := jwt.Claims{
		TokenID:     tokenID,
		SessionID:   sess.SessionID,
		UserID:      sess.UserID,
		UserEmail:   sess.UserEmail,
		UserRole:    sess.UserRole,
		Name:        identity.Name,
		Permissions: identity.Permissions,
	}
	if sess.ExpiresAt > 0 {
		c.SessionExpiresAt = time.Unix(sess.ExpiresAt, 0)
	}
	return c
}

// issuePair signs both tokens for sess. identity only contributes the
// optional Name and Permissions claims.
func issuePair(access, refresh TokenService, sess *session.Session, identity Identity) (IssuedPair, error) {
	accessClaims := claimsFor(sess, sess.AccessTokenID, identity)
	a, err := access.Issue(accessClaims)
	if err != nil {
		return IssuedPair{}, err
	}
	r, err := refresh.Issue(claimsFor(sess, sess.RefreshTokenID, identity))
	if err != nil {
		return IssuedPair{}, err
	}
	return IssuedPair{Access: a, Refresh: r, Claims: accessClaims}, nil
}

func identityFromClaims(c jwt.Claims) Identity {
	return Identity{
		UserID:      c.UserID,
		Email:       c.UserEmail,
		Role:        c.UserRole,
		Name:        c.Name,
		Permissions: c.Permissions,
	}
}
