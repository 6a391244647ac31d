// Package security derives the posture report exposed by
// goCookieAuth.Engine.SecurityReport from the engine configuration.
package security
