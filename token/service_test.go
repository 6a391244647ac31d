package token

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/goCookieAuth/jwt"
	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef-access"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, mutate func(*Config)) *Service {
	t.Helper()
	now := func() time.Time { return testNow }
	codec, err := jwt.NewCodec(jwt.Config{
		SigningKeyEnv: "ACCESS_KEY",
		Style:         jwt.StyleSymmetric,
		Algorithm:     "HS256",
		LookupEnv: func(k string) (string, bool) {
			return testSecret, k == "ACCESS_KEY"
		},
		Now: now,
	})
	require.NoError(t, err)

	cfg := Config{Kind: KindAccess, CookieName: "access", TTL: 15 * time.Minute, Now: now}
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := NewService(codec, cfg)
	require.NoError(t, err)
	return svc
}

func completeClaims() jwt.Claims {
	return jwt.Claims{TokenID: "t1", SessionID: "s1", UserID: "u1", UserEmail: "a@b.com", UserRole: "Lead"}
}

func TestIssueBuildsStrictCookie(t *testing.T) {
	svc := newTestService(t, func(c *Config) { c.CookieDomain = "example.com" })

	issued, err := svc.Issue(completeClaims())
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)

	c := issued.Cookie
	require.Equal(t, "access", c.Name)
	require.Equal(t, issued.Token, c.Value)
	require.True(t, c.HttpOnly)
	require.True(t, c.Secure)
	require.Equal(t, http.SameSiteStrictMode, c.SameSite)
	require.Equal(t, "/", c.Path)
	require.Equal(t, "example.com", c.Domain)
	require.Equal(t, testNow.Add(15*time.Minute), c.Expires)
	require.Equal(t, c.Expires, issued.ExpiresAt)
}

func TestIssueRejectsIncompleteClaims(t *testing.T) {
	svc := newTestService(t, nil)
	claims := completeClaims()
	claims.UserRole = ""

	_, err := svc.Issue(claims)
	require.ErrorIs(t, err, jwt.ErrClaimsIncomplete)
}

func TestValidateRoundTrip(t *testing.T) {
	svc := newTestService(t, nil)
	issued, err := svc.Issue(completeClaims())
	require.NoError(t, err)

	res := svc.Validate(issued.Token)
	require.Equal(t, jwt.StatusValid, res.Status)
	require.Equal(t, "a@b.com", res.Claims.UserEmail)
	require.Equal(t, "Lead", res.Claims.UserRole)
}

func TestValidateDowngradesTokenWithoutRole(t *testing.T) {
	svc := newTestService(t, nil)

	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{
		"jti":   "t1",
		"sid":   "s1",
		"sub":   "u1",
		"email": "a@b.com",
		"iat":   testNow.Unix(),
		"exp":   testNow.Add(time.Hour).Unix(),
	})
	raw, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)

	require.Equal(t, jwt.StatusValid, svc.Codec().Validate(raw).Status)

	res := svc.Validate(raw)
	require.Equal(t, jwt.StatusInvalid, res.Status)
	require.ErrorIs(t, res.Err, jwt.ErrClaimsIncomplete)
	require.Empty(t, res.Claims.UserID)
}

func TestValidateUsesCustomCompleteness(t *testing.T) {
	svc := newTestService(t, func(c *Config) {
		c.Complete = func(claims jwt.Claims) bool {
			return claims.Complete() && claims.UserRole != "guest"
		}
	})
	claims := completeClaims()
	claims.UserRole = "guest"

	_, err := svc.Issue(claims)
	require.ErrorIs(t, err, jwt.ErrClaimsIncomplete)
}

func TestExtractTokenPrefersBearerHeader(t *testing.T) {
	svc := newTestService(t, nil)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer  header-token  extra")
	r.AddCookie(&http.Cookie{Name: "access", Value: "cookie-token"})

	tok, ok := svc.ExtractToken(r)
	require.True(t, ok)
	require.Equal(t, "header-token", tok)

	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	tok, ok = svc.ExtractToken(r)
	require.True(t, ok)
	require.Equal(t, "cookie-token", tok)

	cookieOnly, ok := svc.ExtractCookie(r)
	require.True(t, ok)
	require.Equal(t, "cookie-token", cookieOnly)
}

func TestExtractTokenMissing(t *testing.T) {
	svc := newTestService(t, nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer")

	_, ok := svc.ExtractToken(r)
	require.False(t, ok)

	r.AddCookie(&http.Cookie{Name: "access", Value: ""})
	_, ok = svc.ExtractCookie(r)
	require.False(t, ok)
}

func TestClearCookie(t *testing.T) {
	svc := newTestService(t, func(c *Config) { c.CookiePath = "/app" })
	c := svc.ClearCookie()

	require.Equal(t, "access", c.Name)
	require.Empty(t, c.Value)
	require.Equal(t, -1, c.MaxAge)
	require.Equal(t, "/app", c.Path)
	require.True(t, c.HttpOnly)
	require.True(t, c.Secure)
	require.True(t, c.Expires.Before(testNow))
}

func TestNewServiceRejectsBadConfig(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := NewService(nil, Config{CookieName: "a", TTL: time.Minute})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewService(svc.Codec(), Config{CookieName: " ", TTL: time.Minute})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewService(svc.Codec(), Config{CookieName: "a"})
	require.ErrorIs(t, err, ErrInvalidConfig)
}
