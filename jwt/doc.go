// Package jwt signs and verifies the compact JWS tokens carried in the
// access and refresh cookies.
//
// A Codec is bound to one signing key, resolved once from the environment
// variable named in its Config. Verification never returns an error: every
// outcome is folded into a Result whose Status is Valid, Expired or Invalid.
// Expired is only reported after the signature and the remaining registered
// claims have been checked, so an Expired result still carries trustworthy
// claims.
package jwt
