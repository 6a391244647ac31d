package security

import "time"

// WarnFallbackLifetime flags that sessions re-created from refresh claims
// keep the absolute expiry only when the refresh token carries it.
const WarnFallbackLifetime = "fallback sessions inherit their absolute lifetime from refresh tokens; tokens without a session expiry claim start a new one"

// TokenReport summarizes how one token kind is signed and scoped.
type TokenReport struct {
	Algorithm  string
	Asymmetric bool
	TTL        time.Duration
	ClockSkew  time.Duration
	Audience   bool
	Issuer     bool
}

// Report is a point-in-time view of the engine's security posture.
type Report struct {
	Access  TokenReport
	Refresh TokenReport

	SharedSigningKey        bool
	FallbackToRefreshClaims bool
	RevokeOnLogout          bool
	RejectOnConflict        bool
	SlidingExpiration       bool
	AbsoluteLifetime        time.Duration
	AuditEnabled            bool
	Warnings                []string
}

type ReportInput struct {
	Access                  TokenReport
	Refresh                 TokenReport
	AccessKeyName           string
	RefreshKeyName          string
	FallbackToRefreshClaims bool
	RevokeOnLogout          bool
	RejectOnConflict        bool
	SlidingExpiration       bool
	AbsoluteLifetime        time.Duration
	AuditEnabled            bool
}

func BuildReport(input ReportInput) Report {
	r := Report{
		Access:                  input.Access,
		Refresh:                 input.Refresh,
		SharedSigningKey:        input.AccessKeyName == input.RefreshKeyName,
		FallbackToRefreshClaims: input.FallbackToRefreshClaims,
		RevokeOnLogout:          input.RevokeOnLogout,
		RejectOnConflict:        input.RejectOnConflict,
		SlidingExpiration:       input.SlidingExpiration,
		AbsoluteLifetime:        input.AbsoluteLifetime,
		AuditEnabled:            input.AuditEnabled,
	}

	if r.SharedSigningKey {
		r.Warnings = append(r.Warnings, "access and refresh tokens share a signing key")
	}
	if r.FallbackToRefreshClaims && !r.RevokeOnLogout {
		r.Warnings = append(r.Warnings, "refresh tokens outlive logout and can re-create sessions")
	}
	if r.AbsoluteLifetime == 0 {
		r.Warnings = append(r.Warnings, "sessions have no absolute lifetime")
	} else if r.FallbackToRefreshClaims {
		r.Warnings = append(r.Warnings, WarnFallbackLifetime)
	}
	if !r.AuditEnabled {
		r.Warnings = append(r.Warnings, "audit is disabled")
	}
	return r
}
