package goCookieAuth

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides read by LoadConfig, for example
// GOCOOKIEAUTH_ACCESS_EXPIRATION_MINUTES.
const EnvPrefix = "GOCOOKIEAUTH"

// LoadConfig reads a Config from v on top of DefaultConfig. Keys mirror the
// mapstructure tags ("access.cookie_name", "renewal.conflict_policy", ...)
// and every key can be overridden from the environment under EnvPrefix.
// The result is validated.
func LoadConfig(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	cfg := DefaultConfig()
	registerDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML, TOML or JSON file and passes it to LoadConfig.
func LoadConfigFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("%w: read %s: %v", ErrConfiguration, path, err)
	}
	return LoadConfig(v)
}

// registerDefaults makes every key known to v so AutomaticEnv can resolve
// it during Unmarshal even when the file omits it.
func registerDefaults(v *viper.Viper, cfg Config) {
	for prefix, tc := range map[string]TokenConfig{"access": cfg.Access, "refresh": cfg.Refresh} {
		v.SetDefault(prefix+".cookie_name", tc.CookieName)
		v.SetDefault(prefix+".cookie_path", tc.CookiePath)
		v.SetDefault(prefix+".cookie_domain", tc.CookieDomain)
		v.SetDefault(prefix+".signing_key", tc.SigningKey)
		v.SetDefault(prefix+".signing_style", tc.SigningStyle)
		v.SetDefault(prefix+".signing_algorithm", tc.SigningAlgorithm)
		v.SetDefault(prefix+".key_is_pem_encoded", tc.KeyIsPemEncoded)
		v.SetDefault(prefix+".key_id", tc.KeyID)
		v.SetDefault(prefix+".expiration_minutes", tc.ExpirationMinutes)
		v.SetDefault(prefix+".clock_skew_seconds", tc.ClockSkewSeconds)
		v.SetDefault(prefix+".audience", tc.Audience)
		v.SetDefault(prefix+".issuer", tc.Issuer)
		v.SetDefault(prefix+".name_claim_type", tc.NameClaimType)
		v.SetDefault(prefix+".role_claim_type", tc.RoleClaimType)
		v.SetDefault(prefix+".permissions_claim_type", tc.PermissionsClaimType)
	}

	v.SetDefault("session.redis_prefix", cfg.Session.RedisPrefix)
	v.SetDefault("session.idle_timeout", cfg.Session.IdleTimeout)
	v.SetDefault("session.sliding_expiration", cfg.Session.SlidingExpiration)
	v.SetDefault("session.absolute_lifetime", cfg.Session.AbsoluteLifetime)
	v.SetDefault("session.jitter_enabled", cfg.Session.JitterEnabled)
	v.SetDefault("session.jitter_range", cfg.Session.JitterRange)

	v.SetDefault("renewal.fallback_to_refresh_claims", cfg.Renewal.FallbackToRefreshClaims)
	v.SetDefault("renewal.revoke_on_logout", cfg.Renewal.RevokeOnLogout)
	v.SetDefault("renewal.conflict_policy", string(cfg.Renewal.ConflictPolicy))

	v.SetDefault("audit.enabled", cfg.Audit.Enabled)
	v.SetDefault("audit.buffer_size", cfg.Audit.BufferSize)
	v.SetDefault("audit.drop_if_full", cfg.Audit.DropIfFull)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.enable_latency_histograms", cfg.Metrics.EnableLatencyHistograms)
}
