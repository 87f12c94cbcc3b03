// Package authserver implements the OAuth 2.0 authorization server
// fronting the TaskM MCP endpoint: dynamic client registration
// (RFC 7591), an email-confirmation authorization endpoint issuing
// PKCE-bound authorization codes, a token endpoint exchanging codes
// and rotating refresh tokens, and the RFC 8414 / RFC 9728 discovery
// documents.
//
// The server is deliberately tiny: it knows exactly one identity (a
// configured allow-listed email address), issues only public clients,
// and keeps every record as a TTL-governed entry in a key-value store.
// Possession of an access token plus a live store entry is the entire
// authorization proof; nothing is signed.
//
// Handlers are stateless: each request is a pure function of
// (request, store, config). All shared mutable state lives in the
// store, which is assumed to provide per-key atomicity only. The
// delete-then-mint sequences in the token endpoint are not wrapped in
// a cross-key transaction, so concurrent replays of the same refresh
// token can race within a narrow window; see Server.handleToken.
package authserver
