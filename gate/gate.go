// Package gate provides the bearer-token middleware in front of the
// protected MCP endpoint. It extracts the Authorization header,
// validates the token through an auth.Authenticator, and either passes
// the request on with the resolved identity in the context or rejects
// it with an RFC 6750 challenge pointing at the protected-resource
// metadata document so compliant clients can self-discover the
// authorization server.
package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taskm-dev/mcp-authd/auth"
)

const (
	authorizationHeader   = "Authorization"
	wwwAuthenticateHeader = "WWW-Authenticate"
)

// Handler gates a protected http.Handler behind bearer authentication.
type Handler struct {
	next             http.Handler
	authn            auth.Authenticator
	log              *slog.Logger
	resourceMetadata string
	realm            string
	allowedOrigins   map[string]struct{}
}

// Option configures the Handler.
type Option func(*Handler)

// WithLogger sets the slog logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// WithRealm sets the HTTP authentication realm advertised in
// WWW-Authenticate challenges. If empty (default), the realm attribute
// is omitted entirely per RFC 6750.
func WithRealm(realm string) Option {
	return func(h *Handler) { h.realm = strings.TrimSpace(realm) }
}

// WithAllowedOrigins sets the CORS origins allowed to reach the
// protected endpoint from a browser.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) {
		h.allowedOrigins = make(map[string]struct{}, len(origins))
		for _, o := range origins {
			o = strings.TrimSpace(strings.TrimSuffix(o, "/"))
			if o != "" {
				h.allowedOrigins[o] = struct{}{}
			}
		}
	}
}

// New constructs a gate in front of next. resourceMetadata locates the
// RFC 9728 protected-resource metadata document advertised in
// challenges: either a full URL, or an absolute path that is resolved
// against each request's origin.
func New(next http.Handler, authn auth.Authenticator, resourceMetadata string, opts ...Option) (*Handler, error) {
	if next == nil {
		return nil, fmt.Errorf("protected handler is required")
	}
	if authn == nil {
		return nil, fmt.Errorf("authenticator is required")
	}

	h := &Handler{
		next:             next,
		authn:            authn,
		log:              slog.Default(),
		resourceMetadata: resourceMetadata,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	allowed := h.originAllowed(origin)

	if r.Method == http.MethodOptions {
		// CORS preflight; no authentication required.
		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, Mcp-Session-Id, Mcp-Protocol-Version, Last-Event-ID")
			w.Header().Set("Access-Control-Max-Age", "600")
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if allowed {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
	}

	ctx := r.Context()
	userInfo := h.checkAuthentication(ctx, r, w)
	if userInfo == nil {
		return
	}

	h.next.ServeHTTP(w, r.WithContext(WithUser(ctx, userInfo)))
}

func (h *Handler) originAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	_, ok := h.allowedOrigins[strings.TrimSuffix(origin, "/")]
	return ok
}

// checkAuthentication enforces bearer authentication and writes the
// rejection response itself; a nil return means the request is done.
func (h *Handler) checkAuthentication(ctx context.Context, r *http.Request, w http.ResponseWriter) auth.UserInfo {
	authHeader := r.Header.Get(authorizationHeader)

	if authHeader == "" {
		// RFC 6750 section 3.1: a request with no credentials gets a bare
		// challenge without an error code.
		h.log.InfoContext(ctx, "auth.check.missing")
		h.reject(w, r, http.StatusUnauthorized, "unauthorized", "missing authorization header", nil)
		return nil
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) || len(authHeader) <= len(bearerPrefix) {
		h.log.InfoContext(ctx, "auth.check.malformed")
		h.reject(w, r, http.StatusUnauthorized, "unauthorized", "malformed bearer authorization header", nil)
		return nil
	}
	tok := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if tok == "" {
		h.log.InfoContext(ctx, "auth.check.empty")
		h.reject(w, r, http.StatusUnauthorized, "unauthorized", "empty bearer token", nil)
		return nil
	}

	userInfo, err := h.authn.CheckAuthentication(ctx, tok)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			h.log.InfoContext(ctx, "auth.check.fail")
			h.reject(w, r, http.StatusUnauthorized, "invalid_token", "invalid or expired access token", map[string]string{
				"error":             "invalid_token",
				"error_description": "invalid or expired access token",
			})
			return nil
		}
		h.log.ErrorContext(ctx, "auth.check.err", slog.String("err", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return nil
	}

	h.log.InfoContext(ctx, "auth.check.ok", slog.String("user_id", userInfo.UserID()))
	return userInfo
}

// metadataURL resolves the configured resource-metadata location for
// this request. A bare path is made absolute against the request
// origin so the challenge always carries a dereferenceable URL.
func (h *Handler) metadataURL(r *http.Request) string {
	if !strings.HasPrefix(h.resourceMetadata, "/") {
		return h.resourceMetadata
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host + h.resourceMetadata
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, status int, code, description string, challengeParams map[string]string) {
	w.Header().Add(wwwAuthenticateHeader, buildBearerChallenge(h.realm, h.metadataURL(r), challengeParams))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}

// buildBearerChallenge builds a standardized Bearer challenge header
// value:
//
//	Bearer realm="<realm>", resource_metadata="...", error="...", error_description="..."
//
// Realm is omitted if empty. Params are emitted in a fixed logical
// order since Go map iteration is randomized.
func buildBearerChallenge(realm string, resourceMetadata string, params map[string]string) string {
	pieces := make([]string, 0, 2+len(params))
	esc := func(v string) string { return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) }
	if realm != "" {
		pieces = append(pieces, fmt.Sprintf(`realm="%s"`, esc(realm)))
	}
	if resourceMetadata != "" {
		pieces = append(pieces, fmt.Sprintf(`resource_metadata="%s"`, esc(resourceMetadata)))
	}
	if params != nil {
		if v, ok := params["error"]; ok {
			pieces = append(pieces, fmt.Sprintf(`error="%s"`, esc(v)))
		}
		if v, ok := params["error_description"]; ok {
			pieces = append(pieces, fmt.Sprintf(`error_description="%s"`, esc(v)))
		}
		for k, v := range params {
			if k == "error" || k == "error_description" {
				continue
			}
			pieces = append(pieces, fmt.Sprintf(`%s="%s"`, k, esc(v)))
		}
	}
	if len(pieces) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(pieces, ", ")
}

type userKey struct{}

// WithUser attaches the authenticated principal to ctx.
func WithUser(ctx context.Context, ui auth.UserInfo) context.Context {
	return context.WithValue(ctx, userKey{}, ui)
}

// UserFromContext returns the authenticated principal attached by the
// gate, if any. The tool dispatcher downstream uses this for its
// authorization decisions; in this system there are none beyond "is
// this the one allowed identity", already enforced at issuance time.
func UserFromContext(ctx context.Context) (auth.UserInfo, bool) {
	ui, ok := ctx.Value(userKey{}).(auth.UserInfo)
	return ui, ok
}
