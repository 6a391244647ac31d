// Package token pairs a jwt.Codec with the cookie policy, lifetime and claim
// completeness rule of one token kind. The engine builds two Services, one
// for access tokens and one for refresh tokens, from the same code.
package token
