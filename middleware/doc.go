// Package middleware adapts goCookieAuth.Engine to net/http.
//
// [Guard] runs Engine.Authenticate for each request and injects the result
// into the request context, readable with [AuthResultFromContext]. API
// clients get a 401 on rejection, browsers are redirected to a login page.
package middleware
