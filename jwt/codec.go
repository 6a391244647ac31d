package jwt

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrConfiguration is returned by NewCodec when the signing setup is unusable.
	ErrConfiguration = errors.New("token codec configuration invalid")
	// ErrClaimsIncomplete is returned by Generate when a required claim is empty.
	ErrClaimsIncomplete = errors.New("token claims incomplete")
)

// Style selects how the signing key is interpreted.
type Style string

const (
	// StyleSymmetric uses a shared HMAC secret.
	StyleSymmetric Style = "symmetric"
	// StyleAsymmetric uses a private key for signing and its public half for verification.
	StyleAsymmetric Style = "asymmetric"
)

// Status is the outcome of Codec.Validate.
type Status uint8

const (
	// StatusInvalid covers malformed tokens, bad signatures and any claim check other than expiry.
	StatusInvalid Status = iota
	// StatusValid means the signature and every registered claim checked out.
	StatusValid
	// StatusExpired means the token is authentic but past exp plus leeway.
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// Result carries the decoded claims alongside the validation status.
// Claims is empty when Status is StatusInvalid. Err holds the underlying
// parser error for logging and is nil for valid tokens.
type Result struct {
	Status Status
	Claims Claims
	Err    error
}

// Config describes one signing identity.
//
// SigningKeyEnv names the environment variable holding the key material, not
// the key itself. LookupEnv and Now are injectable for tests and default to
// os.LookupEnv and time.Now.
type Config struct {
	SigningKeyEnv    string
	Style            Style
	Algorithm        string
	KeyIsPEM         bool
	KeyID            string
	ClockSkew        time.Duration
	Issuer           string
	Audience         string
	RoleClaim        string
	NameClaim        string
	PermissionsClaim string

	LookupEnv func(string) (string, bool)
	Now       func() time.Time
}

// Codec signs and verifies tokens with a single key. It is immutable after
// NewCodec and safe for concurrent use.
type Codec struct {
	config           Config
	method           jwt.SigningMethod
	signKey          any
	verifyKey        any
	roleClaim        string
	nameClaim        string
	permissionsClaim string
	parser           *jwt.Parser
	now              func() time.Time
}

// NewCodec validates cfg and resolves its key material.
//
// Any problem with the environment variable, the key encoding, or the pairing
// of Style and Algorithm is reported as ErrConfiguration.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.LookupEnv == nil {
		cfg.LookupEnv = os.LookupEnv
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ClockSkew < 0 || cfg.ClockSkew > 10*time.Minute {
		return nil, fmt.Errorf("%w: clock skew must be within [0, 10m]", ErrConfiguration)
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	roleClaim := strings.TrimSpace(cfg.RoleClaim)
	if roleClaim == "" {
		roleClaim = DefaultRoleClaim
	}
	if _, reserved := reservedClaims[roleClaim]; reserved {
		return nil, fmt.Errorf("%w: role claim %q collides with a registered claim", ErrConfiguration, roleClaim)
	}
	nameClaim := strings.TrimSpace(cfg.NameClaim)
	if nameClaim == "" {
		nameClaim = DefaultNameClaim
	}
	permissionsClaim := strings.TrimSpace(cfg.PermissionsClaim)
	if permissionsClaim != "" {
		if _, reserved := reservedClaims[permissionsClaim]; reserved || permissionsClaim == roleClaim {
			return nil, fmt.Errorf("%w: permissions claim %q collides with another claim", ErrConfiguration, permissionsClaim)
		}
	}

	method, signKey, verifyKey, err := resolveKeys(cfg)
	if err != nil {
		return nil, err
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.ClockSkew > 0 {
		options = append(options, jwt.WithLeeway(cfg.ClockSkew))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}

	return &Codec{
		config:           cfg,
		method:           method,
		signKey:          signKey,
		verifyKey:        verifyKey,
		roleClaim:        roleClaim,
		nameClaim:        nameClaim,
		permissionsClaim: permissionsClaim,
		parser:           jwt.NewParser(options...),
		now:              cfg.Now,
	}, nil
}

// Algorithm returns the pinned JWS algorithm name.
func (c *Codec) Algorithm() string {
	return c.method.Alg()
}

// Generate signs claims with an expiry ttl after the codec's current time.
func (c *Codec) Generate(claims Claims, ttl time.Duration) (string, error) {
	if !claims.Complete() {
		return "", ErrClaimsIncomplete
	}
	if ttl <= 0 {
		return "", fmt.Errorf("%w: ttl must be positive", ErrConfiguration)
	}

	token := jwt.NewWithClaims(c.method, c.toMap(claims, c.now(), ttl))
	if c.config.KeyID != "" {
		token.Header["kid"] = c.config.KeyID
	}
	return token.SignedString(c.signKey)
}

// Validate verifies token and classifies the outcome.
func (c *Codec) Validate(token string) Result {
	if token == "" {
		return Result{Status: StatusInvalid, Err: jwt.ErrTokenMalformed}
	}

	mc := jwt.MapClaims{}
	_, err := c.parser.ParseWithClaims(token, mc, c.keyFunc)
	if err == nil {
		return Result{Status: StatusValid, Claims: c.fromMap(mc)}
	}
	if onlyExpired(err) {
		return Result{Status: StatusExpired, Claims: c.fromMap(mc), Err: err}
	}
	return Result{Status: StatusInvalid, Err: err}
}

// ExtractUnverified decodes the payload without checking the signature or
// any time claim. Malformed input yields an empty Claims.
func (c *Codec) ExtractUnverified(token string) Claims {
	if token == "" {
		return Claims{}
	}
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}
	}
	return c.fromMap(mc)
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != c.method.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}
	if c.config.KeyID != "" {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		if kid != c.config.KeyID {
			return nil, errors.New("unknown kid")
		}
	}
	return c.verifyKey, nil
}

// onlyExpired reports whether err carries ErrTokenExpired and nothing that
// would make the token untrustworthy.
func onlyExpired(err error) bool {
	if !errors.Is(err, jwt.ErrTokenExpired) {
		return false
	}
	for _, disqualifying := range []error{
		jwt.ErrTokenMalformed,
		jwt.ErrTokenUnverifiable,
		jwt.ErrTokenSignatureInvalid,
		jwt.ErrTokenRequiredClaimMissing,
		jwt.ErrTokenInvalidAudience,
		jwt.ErrTokenInvalidIssuer,
		jwt.ErrTokenNotValidYet,
		jwt.ErrTokenUsedBeforeIssued,
	} {
		if errors.Is(err, disqualifying) {
			return false
		}
	}
	return true
}
