package authserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// OAuth error codes surfaced at the HTTP boundary.
const (
	errInvalidRequest       = "invalid_request"
	errInvalidGrant         = "invalid_grant"
	errUnsupportedGrantType = "unsupported_grant_type"
	errServerError          = "server_error"
)

// Server carries the handlers for the authorization endpoints. It
// holds no per-request state; everything durable lives in the Store.
type Server struct {
	store        *Store
	log          *slog.Logger
	allowedEmail string
	serverName   string
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the slog logger used by the server. If not provided,
// slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithServerName sets a human-readable name surfaced on the identity
// form and in the protected-resource metadata.
func WithServerName(name string) Option {
	return func(s *Server) { s.serverName = name }
}

// New constructs a Server. allowedEmail is the single identity the
// authorization endpoint will confirm; it is compared
// case-insensitively against submitted addresses.
func New(store *Store, allowedEmail string, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	allowedEmail = strings.TrimSpace(allowedEmail)
	if allowedEmail == "" {
		return nil, fmt.Errorf("allowed email is required")
	}

	s := &Server{
		store:        store,
		log:          slog.Default(),
		allowedEmail: strings.ToLower(allowedEmail),
		serverName:   "TaskM",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Routes registers the authorization server's endpoints on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /authorize", s.handleAuthorizeForm)
	mux.HandleFunc("POST /authorize", s.handleAuthorizeSubmit)
	mux.HandleFunc("POST /token", s.handleToken)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("GET /.well-known/oauth-authorization-server", s.handleAuthServerMetadata)
	mux.HandleFunc("OPTIONS /.well-known/oauth-authorization-server", s.handleOptionsMetadata)
	mux.HandleFunc("GET /.well-known/oauth-protected-resource", s.handleProtectedResourceMetadata)
	mux.HandleFunc("OPTIONS /.well-known/oauth-protected-resource", s.handleOptionsMetadata)
}

// oauthError is the JSON error shape shared by every endpoint.
type oauthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(oauthError{Error: code, ErrorDescription: description})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
