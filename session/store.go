package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrStoreUnavailable wraps every Redis I/O failure.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrSessionNotFound is returned (joined with redis.Nil) when no record exists.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRotationConflict is returned by Replace when the stored token pair moved.
	ErrRotationConflict = errors.New("session rotation conflict")
	// ErrSessionCorrupt is returned when a stored blob cannot be decoded.
	ErrSessionCorrupt = errors.New("session record corrupt")
	// ErrSessionExpired is returned by Set when the absolute expiry has passed.
	ErrSessionExpired = errors.New("session past absolute expiry")
)

// DefaultPrefix namespaces session keys when Config.Prefix is empty.
const DefaultPrefix = "gca:sess"

const minSlidingTTL = time.Second

const (
	replaceStatusNotFound int64 = 0
	replaceStatusReplaced int64 = 1
	replaceStatusConflict int64 = 2
	replaceStatusCorrupt  int64 = 3
)

// The blob starts with the version byte followed by the length-prefixed
// access and refresh token ids, see Encode.
const replaceScript = `
local function read_short(data, idx)
  local len = string.byte(data, idx)
  if not len then
    return nil, idx
  end
  local first = idx + 1
  local last = first + len - 1
  if #data < last then
    return nil, idx
  end
  return string.sub(data, first, last), last + 1
end

local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
if string.byte(data, 1) ~= 1 then
  return 3
end

local access_id, idx = read_short(data, 2)
if not access_id then
  return 3
end
local refresh_id = read_short(data, idx)
if not refresh_id then
  return 3
end

if access_id ~= ARGV[1] or refresh_id ~= ARGV[2] then
  return 2
end

redis.call("SET", KEYS[1], ARGV[3], "PX", ARGV[4])
return 1
`

var replaceLua = redis.NewScript(replaceScript)

// Config controls key layout and expiration.
//
// IdleTTL is the sliding window applied on reads and the TTL used by writes
// that pass a non-positive ttl. Now defaults to time.Now.
type Config struct {
	Prefix        string
	IdleTTL       time.Duration
	Sliding       bool
	JitterEnabled bool
	JitterRange   time.Duration
	Now           func() time.Time
}

// Store is a Redis-backed session store with sliding expiration and an
// atomic compare-and-swap for token rotation.
type Store struct {
	redis  redis.UniversalClient
	config Config
}

// NewStore creates a [Store] backed by rdb.
func NewStore(rdb redis.UniversalClient, cfg Config) *Store {
	cfg.Prefix = strings.TrimSpace(cfg.Prefix)
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{redis: rdb, config: cfg}
}

func (s *Store) key(sessionID string) string {
	return s.config.Prefix + ":" + sessionID
}

func notFound() error {
	return errors.Join(redis.Nil, ErrSessionNotFound)
}

// Get loads a session and, with sliding expiration, extends its TTL.
//
//	Performance: 1 GET, plus 1 PEXPIRE when sliding.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound()
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, ErrSessionCorrupt, err)
	}
	sess.SessionID = sessionID

	window, ok := s.cappedTTL(sess, s.config.IdleTTL)
	if !ok {
		if err := s.Remove(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, notFound()
	}

	if s.config.Sliding && window > 0 {
		nextTTL, err := s.nextSlidingTTL(window)
		if err != nil {
			return nil, err
		}
		if err := s.redis.Expire(ctx, key, nextTTL).Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
	}

	return sess, nil
}

// Set writes sess unconditionally. A non-positive ttl selects IdleTTL.
//
//	Performance: 1 SET.
func (s *Store) Set(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess == nil || sess.SessionID == "" {
		return errors.New("session id is required")
	}
	ttl, ok := s.cappedTTL(sess, ttl)
	if !ok || ttl <= 0 {
		return ErrSessionExpired
	}

	data, err := Encode(sess)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(sess.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Replace swaps in next only if the stored record still carries the
// expected token pair. It returns ErrRotationConflict when another writer
// got there first and ErrSessionNotFound when the record is gone.
//
//	Performance: 1 Lua EVALSHA.
func (s *Store) Replace(
	ctx context.Context,
	next *Session,
	expectedAccessTokenID, expectedRefreshTokenID string,
	ttl time.Duration,
) error {
	if next == nil || next.SessionID == "" {
		return errors.New("session id is required")
	}
	ttl, ok := s.cappedTTL(next, ttl)
	if !ok || ttl <= 0 {
		if err := s.Remove(ctx, next.SessionID); err != nil {
			return err
		}
		return notFound()
	}

	data, err := Encode(next)
	if err != nil {
		return err
	}

	result, err := replaceLua.Run(
		ctx,
		s.redis,
		[]string{s.key(next.SessionID)},
		expectedAccessTokenID,
		expectedRefreshTokenID,
		data,
		ttl.Milliseconds(),
	).Result()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	code, ok := result.(int64)
	if !ok {
		return fmt.Errorf("%w: invalid replace script status", ErrStoreUnavailable)
	}

	switch code {
	case replaceStatusReplaced:
		return nil
	case replaceStatusNotFound:
		return notFound()
	case replaceStatusConflict:
		return ErrRotationConflict
	case replaceStatusCorrupt:
		return errors.Join(ErrStoreUnavailable, ErrSessionCorrupt)
	default:
		return fmt.Errorf("%w: unknown replace script status %d", ErrStoreUnavailable, code)
	}
}

// Remove deletes a session. Removing a missing session is not an error.
func (s *Store) Remove(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}

// cappedTTL resolves ttl against IdleTTL and the session's absolute expiry.
// ok is false once the absolute expiry has passed.
func (s *Store) cappedTTL(sess *Session, ttl time.Duration) (time.Duration, bool) {
	if ttl <= 0 {
		ttl = s.config.IdleTTL
	}
	if sess.ExpiresAt == 0 {
		return ttl, true
	}

	remaining := time.Unix(sess.ExpiresAt, 0).Sub(s.config.Now())
	if remaining <= 0 {
		return 0, false
	}
	if ttl <= 0 || remaining < ttl {
		ttl = remaining
	}
	return ttl, true
}

func (s *Store) nextSlidingTTL(window time.Duration) (time.Duration, error) {
	nextTTL := window

	if s.config.JitterEnabled && s.config.JitterRange > 0 {
		jitter, err := randomJitter(s.config.JitterRange)
		if err != nil {
			return 0, err
		}
		nextTTL += jitter
	}

	if nextTTL > window {
		nextTTL = window
	}

	minTTL := minSlidingTTL
	if window < minTTL {
		minTTL = window
	}
	if nextTTL < minTTL {
		nextTTL = minTTL
	}

	return nextTTL, nil
}

func randomJitter(jitterRange time.Duration) (time.Duration, error) {
	if jitterRange <= 0 {
		return 0, nil
	}

	max := jitterRange.Nanoseconds()
	if max > (math.MaxInt64-1)/2 {
		return 0, errors.New("jitter range too large")
	}
	span := max*2 + 1

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return 0, err
	}

	return time.Duration(n.Int64() - max), nil
}
