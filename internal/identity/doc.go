// Package identity is the client for the hosted identity service.
//
// The service owns the session protocol. This package only speaks to it over HTTP:
// password and refresh grants go through [oauth2.Config], everything else is plain JSON.
//
// # Sessions
//
// A session travels between browser and server as two cookies ([AccessCookie] and
// [RefreshCookie]). [Client.Authenticate] reads them, rotates the access token when it
// is about to expire, validates it against the service and reports the cookie writes
// the caller must copy onto its response.
//
// Access-token expiry is read from the JWT claims without verifying the signature.
// Only the identity service decides whether a token is valid.
//
// # Errors
//
//   - [shared.ErrInvalidCredentials] : the service rejected a password or token
//   - [shared.ErrRefreshFailed] : a refresh token was rejected
//   - [shared.ErrNotAuthenticated] : the access token is not accepted
//   - [shared.ErrServiceUnavailable] : the service could not be reached or answered 5xx
//   - [shared.ErrAPIRequest] : any other unexpected response
package identity
