package goCookieAuth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goCookieAuth/internal/security"
)

func TestSecurityReportReflectsConfig(t *testing.T) {
	h := newEngineHarness(t, func(c *Config) {
		c.Renewal.ConflictPolicy = ConflictReject
		c.Renewal.RevokeOnLogout = true
		c.Access.Issuer = "gca"
	})

	r := h.engine.SecurityReport()
	require.Equal(t, "HS256", r.Access.Algorithm)
	require.False(t, r.Access.Asymmetric)
	require.True(t, r.Access.Issuer)
	require.False(t, r.Refresh.Issuer)
	require.Equal(t, 15*time.Minute, r.Access.TTL)
	require.Equal(t, 30*time.Second, r.Refresh.ClockSkew)
	require.True(t, r.RejectOnConflict)
	require.False(t, r.SharedSigningKey)
	require.True(t, r.FallbackToRefreshClaims)
	require.Equal(t, []string{security.WarnFallbackLifetime}, r.Warnings)
}

func TestSecurityReportWithoutFallback(t *testing.T) {
	h := newEngineHarness(t, func(c *Config) {
		c.Renewal.FallbackToRefreshClaims = false
		c.Renewal.RevokeOnLogout = true
	})
	require.Empty(t, h.engine.SecurityReport().Warnings)
}

func TestSecurityReportNilEngine(t *testing.T) {
	var e *Engine
	require.Equal(t, SecurityReport{}, e.SecurityReport())
}
