package goCookieAuth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/MrEthical07/goCookieAuth/internal/flows"
	internalmetrics "github.com/MrEthical07/goCookieAuth/internal/metrics"
	"github.com/MrEthical07/goCookieAuth/jwt"
)

// Config is the complete engine configuration. Start from DefaultConfig and
// override what you need; Build validates the result.
type Config struct {
	Access  TokenConfig   `mapstructure:"access"`
	Refresh TokenConfig   `mapstructure:"refresh"`
	Session SessionConfig `mapstructure:"session"`
	Renewal RenewalConfig `mapstructure:"renewal"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig describes one token kind (access or refresh).
//
// SigningKey is the NAME of the environment variable holding the key
// material. NameClaimType selects the claim read into Claims.Name and
// defaults to the email claim. RoleClaimType renames the role claim.
// PermissionsClaimType names an optional string-array claim that is carried
// through but never evaluated.
type TokenConfig struct {
	CookieName           string `mapstructure:"cookie_name" validate:"required,printascii,excludesall=;0x2C"`
	CookiePath           string `mapstructure:"cookie_path"`
	CookieDomain         string `mapstructure:"cookie_domain"`
	SigningKey           string `mapstructure:"signing_key" validate:"required"`
	SigningStyle         string `mapstructure:"signing_style" validate:"oneof=symmetric asymmetric"`
	SigningAlgorithm     string `mapstructure:"signing_algorithm" validate:"oneof=HS256 HS384 HS512 RS256 RS384 RS512 PS256 PS384 PS512 ES256 ES384 ES512 EdDSA"`
	KeyIsPemEncoded      bool   `mapstructure:"key_is_pem_encoded"`
	KeyID                string `mapstructure:"key_id"`
	ExpirationMinutes    int    `mapstructure:"expiration_minutes" validate:"gt=0"`
	ClockSkewSeconds     int    `mapstructure:"clock_skew_seconds" validate:"gte=0,lte=600"`
	Audience             string `mapstructure:"audience"`
	Issuer               string `mapstructure:"issuer"`
	NameClaimType        string `mapstructure:"name_claim_type"`
	RoleClaimType        string `mapstructure:"role_claim_type"`
	PermissionsClaimType string `mapstructure:"permissions_claim_type"`
}

// TTL is the token lifetime.
func (c TokenConfig) TTL() time.Duration {
	return time.Duration(c.ExpirationMinutes) * time.Minute
}

func (c TokenConfig) codecConfig() jwt.Config {
	return jwt.Config{
		SigningKeyEnv:    c.SigningKey,
		Style:            jwt.Style(c.SigningStyle),
		Algorithm:        c.SigningAlgorithm,
		KeyIsPEM:         c.KeyIsPemEncoded,
		KeyID:            c.KeyID,
		ClockSkew:        time.Duration(c.ClockSkewSeconds) * time.Second,
		Issuer:           c.Issuer,
		Audience:         c.Audience,
		RoleClaim:        c.RoleClaimType,
		NameClaim:        c.NameClaimType,
		PermissionsClaim: c.PermissionsClaimType,
	}
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis session records.
//
// IdleTimeout is the sliding window renewed on every read; zero means the
// refresh token lifetime. AbsoluteLifetime caps a session from its creation
// regardless of activity; zero disables the cap.
type SessionConfig struct {
	RedisPrefix       string        `mapstructure:"redis_prefix"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" validate:"gte=0s"`
	SlidingExpiration bool          `mapstructure:"sliding_expiration"`
	AbsoluteLifetime  time.Duration `mapstructure:"absolute_lifetime" validate:"gte=0s"`
	JitterEnabled     bool          `mapstructure:"jitter_enabled"`
	JitterRange       time.Duration `mapstructure:"jitter_range" validate:"gte=0s"`
}

/*
====================================
RENEWAL CONFIG
====================================
*/

// ConflictPolicy names how a request that lost a concurrent renewal is answered.
type ConflictPolicy string

const (
	// ConflictAuthenticate admits the loser on its refresh claims and writes no cookies.
	ConflictAuthenticate ConflictPolicy = "authenticate"
	// ConflictReject rejects the loser with ReasonRenewalConflict.
	ConflictReject ConflictPolicy = "reject"
)

func (p ConflictPolicy) flow() flows.ConflictPolicy {
	if p == ConflictReject {
		return flows.ConflictReject
	}
	return flows.ConflictAuthenticate
}

// RenewalConfig holds the renewal and logout policy switches.
type RenewalConfig struct {
	// FallbackToRefreshClaims starts a new session from a valid refresh
	// token when its stored session is gone or does not match. When false
	// such requests are rejected with ReasonSessionRevoked.
	FallbackToRefreshClaims bool `mapstructure:"fallback_to_refresh_claims"`
	// RevokeOnLogout deletes the stored session on Logout.
	RevokeOnLogout bool           `mapstructure:"revoke_on_logout"`
	ConflictPolicy ConflictPolicy `mapstructure:"conflict_policy" validate:"oneof=authenticate reject"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size" validate:"gte=0"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

// MetricsConfig toggles in-process counters and latency histograms.
type MetricsConfig = internalmetrics.Config

// DefaultConfig returns a configuration with HS256 tokens read from
// GOCOOKIEAUTH_ACCESS_KEY and GOCOOKIEAUTH_REFRESH_KEY, a 15 minute access
// token, a 7 day refresh token and a 30 day absolute session cap.
func DefaultConfig() Config {
	return Config{
		Access: TokenConfig{
			CookieName:        "access_token",
			CookiePath:        "/",
			SigningKey:        "GOCOOKIEAUTH_ACCESS_KEY",
			SigningStyle:      string(jwt.StyleSymmetric),
			SigningAlgorithm:  "HS256",
			ExpirationMinutes: 15,
			ClockSkewSeconds:  30,
		},
		Refresh: TokenConfig{
			CookieName:        "refresh_token",
			CookiePath:        "/",
			SigningKey:        "GOCOOKIEAUTH_REFRESH_KEY",
			SigningStyle:      string(jwt.StyleSymmetric),
			SigningAlgorithm:  "HS256",
			ExpirationMinutes: 7 * 24 * 60,
			ClockSkewSeconds:  30,
		},
		Session: SessionConfig{
			RedisPrefix:       "gca:sess",
			SlidingExpiration: true,
			AbsoluteLifetime:  30 * 24 * time.Hour,
			JitterEnabled:     true,
			JitterRange:       30 * time.Second,
		},
		Renewal: RenewalConfig{
			FallbackToRefreshClaims: true,
			RevokeOnLogout:          false,
			ConflictPolicy:          ConflictAuthenticate,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules. Every failure
// wraps ErrConfiguration. Key material is checked later, by Build.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrConfiguration)
	}
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrConfiguration, describeValidation(err))
	}

	if strings.EqualFold(c.Access.CookieName, c.Refresh.CookieName) {
		return fmt.Errorf("%w: access and refresh cookie names must differ", ErrConfiguration)
	}
	if c.Refresh.TTL() < c.Access.TTL() {
		return fmt.Errorf("%w: refresh token must not expire before the access token", ErrConfiguration)
	}
	if c.Session.JitterEnabled && c.Session.JitterRange <= 0 {
		return fmt.Errorf("%w: session jitter_range must be > 0 when jitter is enabled", ErrConfiguration)
	}
	if idle := c.sessionIdle(); c.Session.JitterEnabled && c.Session.JitterRange >= idle {
		return fmt.Errorf("%w: session jitter_range must be shorter than the idle timeout", ErrConfiguration)
	}
	if c.Session.AbsoluteLifetime > 0 && c.Session.AbsoluteLifetime < c.Access.TTL() {
		return fmt.Errorf("%w: session absolute_lifetime is shorter than the access token", ErrConfiguration)
	}
	return nil
}

func (c *Config) sessionIdle() time.Duration {
	if c.Session.IdleTimeout > 0 {
		return c.Session.IdleTimeout
	}
	return c.Refresh.TTL()
}

// describeValidation flattens validator errors into "Field:tag" pairs.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
