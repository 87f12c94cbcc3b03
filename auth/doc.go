// Package auth provides the pluggable authentication primitives used
// by the resource gate in front of the MCP endpoint. It focuses on
// opaque bearer tokens whose validity is established by a live entry
// in the key-value store; there is no signature to verify and no
// external authorization server to consult.
//
// The public surface intentionally stays small: an Authenticator
// validates an incoming bearer token string and returns a UserInfo
// (or an error). The gate is responsible for extracting the token from
// the HTTP request and mapping sentinel errors into RFC 6750
// challenges.
//
// The KV-backed implementation lives in the authserver package, which
// owns the token key space. A static implementation for tests and
// local development lives in authtest.
package auth
