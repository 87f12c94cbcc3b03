package authserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"
)

var jsonMediaType = contenttype.NewMediaType("application/json")

// registrationRequest is the accepted subset of RFC 7591 client
// metadata. Every field is optional; defaults below.
type registrationRequest struct {
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

// handleRegister implements dynamic client registration. Registration
// is deliberately permissive: any parseable JSON body yields a client.
// Redirect URIs are stored as given, without well-formedness checks.
// Only public clients exist here, so no secret is ever issued.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, err := contenttype.GetMediaType(r)
		if err != nil || !mt.Matches(jsonMediaType) {
			writeOAuthError(w, http.StatusBadRequest, errInvalidRequest, "content-type must be application/json")
			s.log.WarnContext(ctx, "register.content_type.unsupported", slog.String("content_type", ct))
			return
		}
	}

	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOAuthError(w, http.StatusBadRequest, errInvalidRequest, "invalid JSON in request body")
		s.log.WarnContext(ctx, "register.body.decode.fail", slog.String("err", err.Error()))
		return
	}

	client := &RegisteredClient{
		ClientID:                uuid.NewString(),
		ClientName:              req.ClientName,
		RedirectURIs:            req.RedirectURIs,
		GrantTypes:              req.GrantTypes,
		ResponseTypes:           req.ResponseTypes,
		TokenEndpointAuthMethod: req.TokenEndpointAuthMethod,
	}
	if client.ClientName == "" {
		client.ClientName = "Unknown"
	}
	if client.RedirectURIs == nil {
		client.RedirectURIs = []string{}
	}
	if len(client.GrantTypes) == 0 {
		client.GrantTypes = []string{"authorization_code"}
	}
	if len(client.ResponseTypes) == 0 {
		client.ResponseTypes = []string{"code"}
	}
	if client.TokenEndpointAuthMethod == "" {
		client.TokenEndpointAuthMethod = "none"
	}

	if err := s.store.PutClient(ctx, client); err != nil {
		writeOAuthError(w, http.StatusInternalServerError, errServerError, "failed to store client registration")
		s.log.ErrorContext(ctx, "register.store.fail", slog.String("err", err.Error()))
		return
	}

	writeJSON(w, http.StatusCreated, client)
	s.log.InfoContext(ctx, "register.client.ok", slog.String("client_id", client.ClientID))
}
