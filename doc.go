// Package goCookieAuth is a dual-token cookie authentication engine: a
// short-lived access JWT and a longer-lived refresh JWT, both delivered as
// HttpOnly cookies and tied to a Redis-backed session record.
//
// [Engine.Login] opens a session and writes both cookies. [Engine.Authenticate]
// decides per request whether the caller is authenticated; when the access
// token has expired it rotates the session's token pair through an atomic
// compare-and-swap and writes fresh cookies. [Engine.Logout] clears the
// cookies and can revoke the session.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
//
// # Architecture boundaries
//
// This package is the public surface: [Engine], [Builder], [Config] and
// value types. Token encoding lives in jwt/ and token/, session storage in
// session/, and the decision logic in internal/flows, which performs no
// logging, metrics or HTTP work of its own.
package goCookieAuth
