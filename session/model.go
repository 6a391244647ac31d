package session

// Session is the stored correlation between a user and the token pair most
// recently issued for it. Values are replaced whole; use Rotate to derive
// the next value rather than editing fields of a stored one.
type Session struct {
	SessionID string
	UserID    string
	UserEmail string
	UserRole  string

	AccessTokenID  string
	RefreshTokenID string

	// CreatedAt and ExpiresAt are unix seconds. ExpiresAt is the absolute
	// cap for sliding renewals; zero disables the cap.
	CreatedAt int64
	ExpiresAt int64
}

// Rotate returns a copy of s carrying a new token pair. Identity and
// timestamps are preserved.
func (s *Session) Rotate(accessTokenID, refreshTokenID string) *Session {
	next := *s
	next.AccessTokenID = accessTokenID
	next.RefreshTokenID = refreshTokenID
	return &next
}

// Matches reports whether s still holds the given token pair.
func (s *Session) Matches(accessTokenID, refreshTokenID string) bool {
	return s.AccessTokenID == accessTokenID && s.RefreshTokenID == refreshTokenID
}
