package internal

import "github.com/google/uuid"

// NewSessionID returns a random (v4) UUID string.
func NewSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewTokenID returns a time-ordered (v7) UUID string for jti values.
func NewTokenID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
