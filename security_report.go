package goCookieAuth

import (
	"time"

	"github.com/MrEthical07/goCookieAuth/internal/security"
)

// SecurityReport describes the signing setup and session policy an engine
// runs with, plus warnings for risky combinations.
type SecurityReport = security.Report

// TokenSecurityReport is the per-token part of a SecurityReport.
type TokenSecurityReport = security.TokenReport

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config
	return security.BuildReport(security.ReportInput{
		Access:                  tokenReport(cfg.Access),
		Refresh:                 tokenReport(cfg.Refresh),
		AccessKeyName:           cfg.Access.SigningKey,
		RefreshKeyName:          cfg.Refresh.SigningKey,
		FallbackToRefreshClaims: cfg.Renewal.FallbackToRefreshClaims,
		RevokeOnLogout:          cfg.Renewal.RevokeOnLogout,
		RejectOnConflict:        cfg.Renewal.ConflictPolicy == ConflictReject,
		SlidingExpiration:       cfg.Session.SlidingExpiration,
		AbsoluteLifetime:        cfg.Session.AbsoluteLifetime,
		AuditEnabled:            cfg.Audit.Enabled,
	})
}

func tokenReport(tc TokenConfig) security.TokenReport {
	return security.TokenReport{
		Algorithm:  tc.SigningAlgorithm,
		Asymmetric: tc.SigningStyle == "asymmetric",
		TTL:        tc.TTL(),
		ClockSkew:  time.Duration(tc.ClockSkewSeconds) * time.Second,
		Audience:   tc.Audience != "",
		Issuer:     tc.Issuer != "",
	}
}
