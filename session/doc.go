// Package session persists the server-side record that ties a user identity
// to the token pair currently issued for it.
//
// # Storage
//
// Sessions live in Redis under "<prefix>:<sessionID>" as a small versioned
// binary blob (see [Encode]). The two token ids are written first so the
// compare-and-swap script used by [Store.Replace] can read them without a
// full decoder.
//
// # Expiration
//
// Every write carries a TTL. With sliding expiration enabled, [Store.Get]
// pushes the TTL forward on each successful read, optionally jittered, but
// never past the session's absolute expiry.
//
// # Architecture boundaries
//
// This package does not parse tokens or make authentication decisions. It
// must not import the root package, jwt, or token.
package session
