package authserver

import (
	"encoding/json"
	"net/http"

	"github.com/taskm-dev/mcp-authd/internal/wellknown"
)

// requestOrigin derives the external origin from the request: scheme
// from the connection (or a reverse-proxy's X-Forwarded-Proto) and
// host from the Host header. The discovery documents are pure
// functions of this value.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host
}

// handleAuthServerMetadata serves the OAuth 2.0 Authorization Server
// Metadata document (RFC 8414). This process is its own authorization
// server, so every endpoint lives under the request origin.
func (s *Server) handleAuthServerMetadata(w http.ResponseWriter, r *http.Request) {
	origin := requestOrigin(r)
	doc := wellknown.AuthServerMetadata{
		Issuer:                            origin,
		AuthorizationEndpoint:             origin + "/authorize",
		TokenEndpoint:                     origin + "/token",
		RegistrationEndpoint:              origin + "/register",
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{"authorization_code", "refresh_token"},
		CodeChallengeMethodsSupported:     []string{"S256", "plain"},
		TokenEndpointAuthMethodsSupported: []string{"none"},
	}
	writeMetadata(w, doc)
}

// handleProtectedResourceMetadata serves the OAuth 2.0 Protected
// Resource Metadata document (RFC 9728). The resource and its
// authorization server are the same origin.
func (s *Server) handleProtectedResourceMetadata(w http.ResponseWriter, r *http.Request) {
	origin := requestOrigin(r)
	doc := wellknown.ProtectedResourceMetadata{
		Resource:               origin,
		AuthorizationServers:   []string{origin},
		BearerMethodsSupported: []string{"authorization_header"},
		ResourceName:           s.serverName,
	}
	writeMetadata(w, doc)
}

// handleOptionsMetadata responds to CORS preflight requests for the
// well-known metadata endpoints.
func (s *Server) handleOptionsMetadata(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")
	w.Header().Set("Access-Control-Max-Age", "600")
	w.WriteHeader(http.StatusNoContent)
}

func writeMetadata(w http.ResponseWriter, doc any) {
	// CORS: allow cross-origin browser fetches of the well-known metadata
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Vary", "Origin")
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}
