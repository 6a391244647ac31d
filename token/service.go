package token

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goCookieAuth/jwt"
)

// Kind names a token flavour. It only affects logging and metrics labels.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// ErrInvalidConfig is returned by NewService for an unusable Config.
var ErrInvalidConfig = errors.New("token service configuration invalid")

// Config parameterizes a Service.
//
// Complete decides whether a verified claim set is acceptable and defaults to
// jwt.Claims.Complete. Now defaults to time.Now and must be the same clock the
// codec uses so cookie expiry lines up with the token's exp.
type Config struct {
	Kind         Kind
	CookieName   string
	TTL          time.Duration
	CookiePath   string
	CookieDomain string
	Complete     func(jwt.Claims) bool
	Now          func() time.Time
}

// Issued is a freshly signed token together with the cookie that carries it.
type Issued struct {
	Token     string
	Cookie    *http.Cookie
	ExpiresAt time.Time
}

// Service issues, validates and locates tokens of one kind.
type Service struct {
	codec  *jwt.Codec
	config Config
}

// NewService binds codec to cfg.
func NewService(codec *jwt.Codec, cfg Config) (*Service, error) {
	if codec == nil {
		return nil, fmt.Errorf("%w: codec is nil", ErrInvalidConfig)
	}
	cfg.CookieName = strings.TrimSpace(cfg.CookieName)
	if cfg.CookieName == "" {
		return nil, fmt.Errorf("%w: %s cookie name is empty", ErrInvalidConfig, cfg.Kind)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: %s ttl must be positive", ErrInvalidConfig, cfg.Kind)
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if cfg.Complete == nil {
		cfg.Complete = jwt.Claims.Complete
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{codec: codec, config: cfg}, nil
}

func (s *Service) Kind() Kind { return s.config.Kind }

func (s *Service) CookieName() string { return s.config.CookieName }

func (s *Service) TTL() time.Duration { return s.config.TTL }

// Codec exposes the underlying codec, mainly for ExtractUnverified.
func (s *Service) Codec() *jwt.Codec { return s.codec }

// Issue signs claims and wraps the token in a cookie expiring with it.
// An incomplete claim set fails with jwt.ErrClaimsIncomplete.
func (s *Service) Issue(claims jwt.Claims) (Issued, error) {
	if !s.config.Complete(claims) {
		return Issued{}, jwt.ErrClaimsIncomplete
	}
	now := s.config.Now()
	raw, err := s.codec.Generate(claims, s.config.TTL)
	if err != nil {
		return Issued{}, err
	}
	expires := now.Add(s.config.TTL)
	return Issued{
		Token:     raw,
		Cookie:    s.cookie(raw, expires, 0),
		ExpiresAt: expires,
	}, nil
}

// Validate verifies raw and enforces the completeness rule. A token that is
// authentic but incomplete is reported as jwt.StatusInvalid.
func (s *Service) Validate(raw string) jwt.Result {
	res := s.codec.Validate(raw)
	if res.Status == jwt.StatusInvalid {
		return res
	}
	if !s.config.Complete(res.Claims) {
		return jwt.Result{Status: jwt.StatusInvalid, Err: jwt.ErrClaimsIncomplete}
	}
	return res
}

// ExtractUnverified decodes raw without checking signature or expiry.
func (s *Service) ExtractUnverified(raw string) jwt.Claims {
	return s.codec.ExtractUnverified(raw)
}

// ExtractToken returns the bearer token from the Authorization header, or
// the named cookie when no bearer header is present.
func (s *Service) ExtractToken(r *http.Request) (string, bool) {
	if tok, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return tok, true
	}
	return s.ExtractCookie(r)
}

// ExtractCookie returns the named cookie's value only.
func (s *Service) ExtractCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(s.config.CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// ClearCookie returns a cookie that makes the browser drop this kind's token.
func (s *Service) ClearCookie() *http.Cookie {
	return s.cookie("", time.Unix(0, 0).UTC(), -1)
}

func (s *Service) cookie(value string, expires time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.config.CookieName,
		Value:    value,
		Path:     s.config.CookiePath,
		Domain:   s.config.CookieDomain,
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

func bearerToken(header string) (string, bool) {
	fields := strings.Fields(header)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", false
	}
	return fields[1], true
}
