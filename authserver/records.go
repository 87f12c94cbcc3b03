package authserver

// RegisteredClient is the stored result of dynamic client
// registration. Clients are public (no secret is ever issued) and
// immutable after creation; there is no update endpoint.
type RegisteredClient struct {
	ClientID                string   `json:"client_id"`
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

// AuthorizationCode is the short-lived record behind an issued code.
// It binds the confirmed identity to the OAuth parameters of the
// authorization request so the token endpoint can enforce PKCE.
// Redeemable at most once: the token endpoint deletes it on first read.
type AuthorizationCode struct {
	Email               string `json:"email"`
	ClientID            string `json:"client_id"`
	RedirectURI         string `json:"redirect_uri"`
	CodeChallenge       string `json:"code_challenge"`
	CodeChallengeMethod string `json:"code_challenge_method"`
	Scope               string `json:"scope"`
}

// TokenGrant is the value stored behind both access and refresh
// tokens: the identity and scope the token was bound to at issuance.
type TokenGrant struct {
	Email string `json:"email"`
	Scope string `json:"scope"`
}
