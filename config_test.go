package goCookieAuth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.True(t, cfg.Renewal.FallbackToRefreshClaims)
	require.False(t, cfg.Renewal.RevokeOnLogout)
	require.Equal(t, ConflictAuthenticate, cfg.Renewal.ConflictPolicy)
	require.Equal(t, 15*time.Minute, cfg.Access.TTL())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{"asymmetric style", func(c *Config) {
			c.Access.SigningStyle = "asymmetric"
			c.Access.SigningAlgorithm = "EdDSA"
		}, true},
		{"unknown style", func(c *Config) { c.Access.SigningStyle = "shared" }, false},
		{"unknown algorithm", func(c *Config) { c.Refresh.SigningAlgorithm = "none" }, false},
		{"missing cookie name", func(c *Config) { c.Access.CookieName = "" }, false},
		{"cookie name with separator", func(c *Config) { c.Access.CookieName = "a;b" }, false},
		{"same cookie names", func(c *Config) { c.Refresh.CookieName = "ACCESS_TOKEN" }, false},
		{"missing key env name", func(c *Config) { c.Refresh.SigningKey = "" }, false},
		{"zero expiration", func(c *Config) { c.Access.ExpirationMinutes = 0 }, false},
		{"refresh shorter than access", func(c *Config) { c.Refresh.ExpirationMinutes = 5 }, false},
		{"skew at limit", func(c *Config) { c.Access.ClockSkewSeconds = 600 }, true},
		{"skew too large", func(c *Config) { c.Access.ClockSkewSeconds = 601 }, false},
		{"negative skew", func(c *Config) { c.Refresh.ClockSkewSeconds = -1 }, false},
		{"jitter without range", func(c *Config) { c.Session.JitterRange = 0 }, false},
		{"jitter disabled without range", func(c *Config) {
			c.Session.JitterEnabled = false
			c.Session.JitterRange = 0
		}, true},
		{"jitter wider than idle", func(c *Config) { c.Session.IdleTimeout = 10 * time.Second }, false},
		{"negative idle", func(c *Config) { c.Session.IdleTimeout = -time.Second }, false},
		{"absolute lifetime below access ttl", func(c *Config) { c.Session.AbsoluteLifetime = time.Minute }, false},
		{"no absolute lifetime", func(c *Config) { c.Session.AbsoluteLifetime = 0 }, true},
		{"reject policy", func(c *Config) { c.Renewal.ConflictPolicy = ConflictReject }, true},
		{"unknown policy", func(c *Config) { c.Renewal.ConflictPolicy = "retry" }, false},
		{"negative audit buffer", func(c *Config) { c.Audit.BufferSize = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestLoadConfigFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
access:
  cookie_name: app_at
  expiration_minutes: 5
  issuer: https://auth.example.com
  role_claim_type: app_role
refresh:
  cookie_name: app_rt
  signing_style: asymmetric
  signing_algorithm: EdDSA
  key_is_pem_encoded: true
session:
  idle_timeout: 2h
  jitter_range: 10s
renewal:
  fallback_to_refresh_claims: false
  conflict_policy: reject
`), 0o600))

	t.Setenv("GOCOOKIEAUTH_REFRESH_EXPIRATION_MINUTES", "120")
	t.Setenv("GOCOOKIEAUTH_RENEWAL_REVOKE_ON_LOGOUT", "true")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	require.Equal(t, "app_at", cfg.Access.CookieName)
	require.Equal(t, 5, cfg.Access.ExpirationMinutes)
	require.Equal(t, "https://auth.example.com", cfg.Access.Issuer)
	require.Equal(t, "app_role", cfg.Access.RoleClaimType)
	require.Equal(t, "GOCOOKIEAUTH_ACCESS_KEY", cfg.Access.SigningKey)
	require.Equal(t, "HS256", cfg.Access.SigningAlgorithm)

	require.Equal(t, "EdDSA", cfg.Refresh.SigningAlgorithm)
	require.True(t, cfg.Refresh.KeyIsPemEncoded)
	require.Equal(t, 120, cfg.Refresh.ExpirationMinutes)

	require.Equal(t, 2*time.Hour, cfg.Session.IdleTimeout)
	require.Equal(t, 10*time.Second, cfg.Session.JitterRange)
	require.True(t, cfg.Session.SlidingExpiration)

	require.False(t, cfg.Renewal.FallbackToRefreshClaims)
	require.True(t, cfg.Renewal.RevokeOnLogout)
	require.Equal(t, ConflictReject, cfg.Renewal.ConflictPolicy)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	v := viper.New()
	v.Set("access.expiration_minutes", 0)

	_, err := LoadConfig(v)
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, ErrConfiguration)
}
