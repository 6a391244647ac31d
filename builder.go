package goCookieAuth

import (
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/goCookieAuth/internal"
	internalaudit "github.com/MrEthical07/goCookieAuth/internal/audit"
	"github.com/MrEthical07/goCookieAuth/internal/flows"
	internalmetrics "github.com/MrEthical07/goCookieAuth/internal/metrics"
	"github.com/MrEthical07/goCookieAuth/jwt"
	"github.com/MrEthical07/goCookieAuth/session"
	"github.com/MrEthical07/goCookieAuth/token"
)

// Builder assembles an Engine. Configure it during initialization, call
// Build once and discard it.
type Builder struct {
	config     Config
	redis      redis.UniversalClient
	identities IdentityProvider
	auditSink  AuditSink
	logger     zerolog.Logger
	now        func() time.Time
	lookupEnv  func(string) (string, bool)

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config:    DefaultConfig(),
		logger:    zerolog.Nop(),
		now:       time.Now,
		lookupEnv: os.LookupEnv,
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the session backend. Single-node, sentinel and cluster
// clients all satisfy redis.UniversalClient.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithIdentityProvider enables Engine.LoginUser.
func (b *Builder) WithIdentityProvider(p IdentityProvider) *Builder {
	b.identities = p
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces time.Now for token timestamps, cookie expiry and
// session lifetimes. Tests use it to move past token expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	if now != nil {
		b.now = now
	}
	return b
}

// WithEnvLookup replaces os.LookupEnv for resolving signing keys.
func (b *Builder) WithEnvLookup(lookup func(string) (string, bool)) *Builder {
	if lookup != nil {
		b.lookupEnv = lookup
	}
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, resolves both signing keys and wires
// the engine. Any configuration problem wraps ErrConfiguration.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	if b.redis == nil {
		return nil, fmt.Errorf("%w: redis client required", ErrConfiguration)
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	access, err := b.tokenService(token.KindAccess, cfg.Access)
	if err != nil {
		return nil, err
	}
	refresh, err := b.tokenService(token.KindRefresh, cfg.Refresh)
	if err != nil {
		return nil, err
	}

	store := session.NewStore(b.redis, session.Config{
		Prefix:        cfg.Session.RedisPrefix,
		IdleTTL:       cfg.sessionIdle(),
		Sliding:       cfg.Session.SlidingExpiration,
		JitterEnabled: cfg.Session.JitterEnabled,
		JitterRange:   cfg.Session.JitterRange,
		Now:           b.now,
	})

	engine := &Engine{
		config:     cfg,
		access:     access,
		refresh:    refresh,
		store:      store,
		identities: b.identities,
		logger:     b.logger.With().Str("component", "gocookieauth").Logger(),
		metrics:    internalmetrics.New(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			Critical:   criticalAuditEvent,
			Now:        b.now,
		}, b.auditSink),
	}
	engine.deps = flows.Deps{
		Login: flows.LoginDeps{
			Access:          access,
			Refresh:         refresh,
			Store:           store,
			NewSessionID:    internal.NewSessionID,
			NewTokenID:      internal.NewTokenID,
			Now:             b.now,
			SessionLifetime: cfg.Session.AbsoluteLifetime,
		},
		Authenticate: flows.AuthenticateDeps{
			Access:                  access,
			Refresh:                 refresh,
			Store:                   store,
			NewSessionID:            internal.NewSessionID,
			NewTokenID:              internal.NewTokenID,
			Now:                     b.now,
			SessionLifetime:         cfg.Session.AbsoluteLifetime,
			FallbackToRefreshClaims: cfg.Renewal.FallbackToRefreshClaims,
			ConflictPolicy:          cfg.Renewal.ConflictPolicy.flow(),
		},
		Logout: flows.LogoutDeps{
			Access:  access,
			Refresh: refresh,
			Store:   store,
			Revoke:  cfg.Renewal.RevokeOnLogout,
		},
	}

	b.built = true
	return engine, nil
}

func (b *Builder) tokenService(kind token.Kind, tc TokenConfig) (*token.Service, error) {
	codecCfg := tc.codecConfig()
	codecCfg.LookupEnv = b.lookupEnv
	codecCfg.Now = b.now

	codec, err := jwt.NewCodec(codecCfg)
	if err != nil {
		return nil, fmt.Errorf("%s token: %w", kind, err)
	}
	svc, err := token.NewService(codec, token.Config{
		Kind:         kind,
		CookieName:   tc.CookieName,
		TTL:          tc.TTL(),
		CookiePath:   tc.CookiePath,
		CookieDomain: tc.CookieDomain,
		Now:          b.now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return svc, nil
}
