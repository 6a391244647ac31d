package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goCookieAuth/jwt"
	"github.com/MrEthical07/goCookieAuth/session"
	"github.com/MrEthical07/goCookieAuth/token"
)

// TokenService is the slice of token.Service the flows need.
type TokenService interface {
	Issue(jwt.Claims) (token.Issued, error)
	Validate(string) jwt.Result
	ExtractUnverified(string) jwt.Claims
	TTL() time.Duration
}

// SessionStore is the slice of session.Store the flows need.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	Set(ctx context.Context, sess *session.Session, ttl time.Duration) error
	Replace(ctx context.Context, next *session.Session, expectedAccessTokenID, expectedRefreshTokenID string, ttl time.Duration) error
	Remove(ctx context.Context, sessionID string) error
}

// Identity is the user data embedded in a new session and its tokens.
type Identity struct {
	UserID      string
	Email       string
	Role        string
	Name        string
	Permissions []string
}

// Deps groups flow dependency sets. The Engine builds this once and passes
// the matching member to each Run* call.
type Deps struct {
	Login        LoginDeps
	Authenticate AuthenticateDeps
	Logout       LogoutDeps
}

// Credentials are the raw tokens found on a request. Empty means absent.
type Credentials struct {
	Access  string
	Refresh string
}
