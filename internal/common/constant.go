// Package common contains shared constants and small helpers used across
// AuthKeeper components.
package common

// RequestIDHeaderName is the HTTP header carrying a per-call correlation id
// on outbound API requests.
const RequestIDHeaderName = "X-Request-ID"

// SessionCookieName is the cookie the backend issues after a successful
// login or OAuth round-trip. Its value is a JWT.
const SessionCookieName = "access_token"

// AppName is used for user agents, tracer names and the TOTP issuer fallback.
const AppName = "authkeeper"
