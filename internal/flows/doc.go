// Package flows contains the request-time orchestration behind every Engine
// operation: login, authenticate (with silent renewal) and logout.
//
// Each Run* function takes a typed dependency struct and returns a result
// value describing what happened, including which cookies to emit or clear.
// Nothing here touches net/http responses; the Engine applies the result.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goCookieAuth (to avoid import cycles).
//   - Log, emit metrics or audit events. The Engine does that from the result.
package flows
