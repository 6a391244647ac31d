package jwt

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Wire names of the claims every token carries. The role claim name is
// configurable through Config.RoleClaim.
const (
	ClaimTokenID   = "jti"
	ClaimSessionID = "sid"
	ClaimUserID    = "sub"
	ClaimUserEmail = "email"

	// ClaimSessionExpiry carries the session's absolute expiry (unix
	// seconds) so it survives a session re-created from a refresh token.
	ClaimSessionExpiry = "sexp"

	DefaultRoleClaim = "role"
	DefaultNameClaim = ClaimUserEmail
)

var reservedClaims = map[string]struct{}{
	ClaimTokenID:       {},
	ClaimSessionID:     {},
	ClaimUserID:        {},
	ClaimUserEmail:     {},
	ClaimSessionExpiry: {},
	"iat":              {},
	"nbf":              {},
	"exp":              {},
	"iss":              {},
	"aud":              {},
}

// Claims is the decoded identity carried by a token.
//
// The first five fields form the required claim set. Name, Permissions,
// SessionExpiresAt and the registered times are decoded when present and are
// never required.
type Claims struct {
	TokenID   string
	SessionID string
	UserID    string
	UserEmail string
	UserRole  string

	Name        string
	Permissions []string
	IssuedAt    time.Time
	ExpiresAt   time.Time

	// SessionExpiresAt is the absolute end of the session the token was
	// issued for. Zero means the session has no cap.
	SessionExpiresAt time.Time
}

// Complete reports whether all five required claims are non-empty.
func (c Claims) Complete() bool {
	return c.TokenID != "" &&
		c.SessionID != "" &&
		c.UserID != "" &&
		c.UserEmail != "" &&
		c.UserRole != ""
}

// FieldCount returns how many of the required claims are present.
func (c Claims) FieldCount() int {
	n := 0
	for _, v := range [...]string{c.TokenID, c.SessionID, c.UserID, c.UserEmail, c.UserRole} {
		if v != "" {
			n++
		}
	}
	return n
}

func (c *Codec) toMap(claims Claims, now time.Time, ttl time.Duration) jwt.MapClaims {
	mc := jwt.MapClaims{
		ClaimTokenID:   claims.TokenID,
		ClaimSessionID: claims.SessionID,
		ClaimUserID:    claims.UserID,
		ClaimUserEmail: claims.UserEmail,
		c.roleClaim:    claims.UserRole,
		"iat":          now.Unix(),
		"nbf":          now.Unix(),
		"exp":          now.Add(ttl).Unix(),
	}
	if c.config.Issuer != "" {
		mc["iss"] = c.config.Issuer
	}
	if c.config.Audience != "" {
		mc["aud"] = c.config.Audience
	}
	if _, reserved := reservedClaims[c.nameClaim]; !reserved && c.nameClaim != c.roleClaim && claims.Name != "" {
		mc[c.nameClaim] = claims.Name
	}
	if c.permissionsClaim != "" && len(claims.Permissions) > 0 {
		mc[c.permissionsClaim] = claims.Permissions
	}
	if !claims.SessionExpiresAt.IsZero() {
		mc[ClaimSessionExpiry] = claims.SessionExpiresAt.Unix()
	}
	return mc
}

func (c *Codec) fromMap(mc jwt.MapClaims) Claims {
	out := Claims{
		TokenID:   stringClaim(mc, ClaimTokenID),
		SessionID: stringClaim(mc, ClaimSessionID),
		UserID:    stringClaim(mc, ClaimUserID),
		UserEmail: stringClaim(mc, ClaimUserEmail),
		UserRole:  stringClaim(mc, c.roleClaim),
		Name:      stringClaim(mc, c.nameClaim),
	}
	if c.permissionsClaim != "" {
		out.Permissions = stringsClaim(mc, c.permissionsClaim)
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if sexp, ok := unixClaim(mc, ClaimSessionExpiry); ok {
		out.SessionExpiresAt = sexp
	}
	return out
}

func unixClaim(mc jwt.MapClaims, name string) (time.Time, bool) {
	var sec int64
	switch v := mc[name].(type) {
	case float64:
		sec = int64(v)
	case int64:
		sec = v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return time.Time{}, false
		}
		sec = n
	default:
		return time.Time{}, false
	}
	if sec <= 0 {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

func stringClaim(mc jwt.MapClaims, name string) string {
	v, _ := mc[name].(string)
	return v
}

func stringsClaim(mc jwt.MapClaims, name string) []string {
	switch v := mc[name].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
