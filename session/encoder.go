package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// CurrentSchemaVersion is the leading byte written by Encode.
const CurrentSchemaVersion = 1

// MaxFieldLength is the longest string field the encoding can hold.
const MaxFieldLength = 255

var (
	// ErrUnsupportedSchema is returned by Decode for an unknown leading byte.
	ErrUnsupportedSchema = errors.New("unsupported session schema version")
	// ErrFieldTooLong is returned by CheckEncodable and Encode.
	ErrFieldTooLong = errors.New("session field too long")
)

// CheckEncodable reports whether Encode would accept s.
func CheckEncodable(s *Session) error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"accessTokenID", s.AccessTokenID},
		{"refreshTokenID", s.RefreshTokenID},
		{"userID", s.UserID},
		{"userEmail", s.UserEmail},
		{"userRole", s.UserRole},
	} {
		if len(field.value) > MaxFieldLength {
			return fmt.Errorf("%w: %s is %d bytes", ErrFieldTooLong, field.name, len(field.value))
		}
	}
	return nil
}

// Encode serializes s. SessionID is not written; it is the Redis key.
//
// Layout: version, then length-prefixed AccessTokenID, RefreshTokenID,
// UserID, UserEmail, UserRole (one length byte each), then CreatedAt and
// ExpiresAt as big-endian int64.
func Encode(s *Session) ([]byte, error) {
	if err := CheckEncodable(s); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(1 + 5 + len(s.AccessTokenID) + len(s.RefreshTokenID) + len(s.UserID) + len(s.UserEmail) + len(s.UserRole) + 16)

	buf.WriteByte(CurrentSchemaVersion)

	for _, v := range []string{s.AccessTokenID, s.RefreshTokenID, s.UserID, s.UserEmail, s.UserRole} {
		buf.WriteByte(byte(len(v)))
		buf.WriteString(v)
	}

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a blob written by Encode. The caller fills in SessionID.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, version)
	}

	s := &Session{}
	for _, dst := range []*string{&s.AccessTokenID, &s.RefreshTokenID, &s.UserID, &s.UserEmail, &s.UserRole} {
		if *dst, err = readShortString(reader); err != nil {
			return nil, err
		}
	}

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes after session")
	}

	return s, nil
}

func readShortString(reader *bytes.Reader) (string, error) {
	n, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(reader, b); err != nil {
		return "", err
	}
	return string(b), nil
}
