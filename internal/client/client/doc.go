// Package client talks to the authentication backend over HTTP/JSON.
//
// # Overview
//
//  1. Client is the transport-agnostic contract used by the services layer.
//  2. HTTPClient implements it: every call carries a JSON body, an
//     X-Request-ID header, the session cookies from the jar and a bounded
//     timeout; successful responses decode straight into the payload type.
//  3. UnauthorizedGuard is an http.RoundTripper that reacts to 401 responses
//     by clearing the session and navigating to the login screen, except for
//     the session-probing endpoints and when already on the login screen.
//  4. Jar is a cookie jar that survives restarts by mirroring the API
//     origin's cookies into the metadata repository.
//
// # Error Handling
//
// Non-2xx responses become *APIError, which unwraps to one of the status
// sentinels (ErrUnauthorized, ErrSecondFactorRequired, ErrRateLimited, ...).
// Requests that never got a response wrap ErrNetwork.
package client
