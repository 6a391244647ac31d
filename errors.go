package goCookieAuth

import (
	"errors"

	"github.com/MrEthical07/goCookieAuth/jwt"
	"github.com/MrEthical07/goCookieAuth/session"
)

var (
	// ErrConfiguration is returned for an unusable Config or unreadable key material.
	ErrConfiguration = jwt.ErrConfiguration
	// ErrClaimsIncomplete is returned when a token would be issued without
	// one of the five required claims.
	ErrClaimsIncomplete = jwt.ErrClaimsIncomplete
	// ErrSessionNotFound is returned when no stored session exists.
	ErrSessionNotFound = session.ErrSessionNotFound
	// ErrStoreUnavailable wraps every session store I/O failure.
	ErrStoreUnavailable = session.ErrStoreUnavailable
	// ErrRotationConflict means another request renewed the session first.
	ErrRotationConflict = session.ErrRotationConflict
	// ErrIdentityTooLong is returned by Login when an identity field does
	// not fit the session record.
	ErrIdentityTooLong = session.ErrFieldTooLong
	// ErrSessionExpired means the session passed its absolute lifetime.
	ErrSessionExpired = session.ErrSessionExpired
	// ErrUserNotFound is returned by LoginUser when the IdentityProvider has no such user.
	ErrUserNotFound = errors.New("user not found")
	// ErrIdentityProviderMissing is returned by LoginUser when no IdentityProvider is configured.
	ErrIdentityProviderMissing = errors.New("identity provider not configured")
	// ErrEngineNotReady is returned when an Engine is used before Build or after Close.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrBuilderUsed is returned by a second Build call on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
)
