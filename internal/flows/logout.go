package flows

import (
	"context"

	"github.com/MrEthical07/goCookieAuth/jwt"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Access  TokenService
	Refresh TokenService
	Store   SessionStore
	Revoke  bool
}

// LogoutResult reports which session, if any, the request belonged to.
type LogoutResult struct {
	SessionID string
	UserID    string
	Revoked   bool
	Err       error
}

// RunLogout resolves the caller's session from its tokens and, when Revoke
// is set, removes it. Only authentic tokens are trusted, expired or not.
// Cookie clearing is left to the caller and happens regardless.
func RunLogout(ctx context.Context, creds Credentials, deps LogoutDeps) LogoutResult {
	var claims jwt.Claims
	for _, candidate := range []struct {
		raw string
		svc TokenService
	}{
		{creds.Refresh, deps.Refresh},
		{creds.Access, deps.Access},
	} {
		if candidate.raw == "" {
			continue
		}
		res := candidate.svc.Validate(candidate.raw)
		if res.Status != jwt.StatusInvalid {
			claims = res.Claims
			break
		}
	}

	out := LogoutResult{SessionID: claims.SessionID, UserID: claims.UserID}
	if !deps.Revoke || claims.SessionID == "" {
		return out
	}
	if err := deps.Store.Remove(ctx, claims.SessionID); err != nil {
		out.Err = err
		return out
	}
	out.Revoked = true
	return out
}
