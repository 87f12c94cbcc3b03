package authserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/taskm-dev/mcp-authd/internal/logctx"
	"github.com/taskm-dev/mcp-authd/pkce"
)

// tokenResponse is the success shape of the token endpoint (RFC 6749 section 5.1).
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// handleToken dispatches on the grant_type form field.
//
// Concurrency note: minting the access/refresh pair and deleting the
// consumed grant are independent per-key writes; the store offers no
// cross-key transaction. Two concurrent replays of the same refresh
// token can both observe it as valid before either delete lands. This
// is an accepted limitation of the eventually-consistent store, not a
// behavior to paper over.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, errInvalidRequest, "malformed form body")
		s.log.WarnContext(r.Context(), "token.form.parse.fail", slog.String("err", err.Error()))
		return
	}

	grantType := r.PostFormValue("grant_type")
	ctx := logctx.WithGrantData(r.Context(), &logctx.GrantData{
		GrantType: grantType,
		ClientID:  r.PostFormValue("client_id"),
	})

	switch grantType {
	case "authorization_code":
		s.exchangeCode(ctx, w, r)
	case "refresh_token":
		s.rotateRefreshToken(ctx, w, r)
	default:
		writeOAuthError(w, http.StatusBadRequest, errUnsupportedGrantType, "")
		s.log.InfoContext(ctx, "token.grant.unsupported")
	}
}

// exchangeCode redeems an authorization code for a token pair,
// enforcing single use and PKCE.
func (s *Server) exchangeCode(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	code := r.PostFormValue("code")
	verifier := r.PostFormValue("code_verifier")

	// The code is deleted on first read, so a replay inside the TTL
	// window fails identically to an expired or never-issued code.
	rec, err := s.store.TakeCode(ctx, code)
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, errServerError, "authorization code lookup failed")
		s.log.ErrorContext(ctx, "token.code.lookup.fail", slog.String("err", err.Error()))
		return
	}
	if rec == nil {
		writeOAuthError(w, http.StatusBadRequest, errInvalidGrant, "invalid or expired authorization code")
		s.log.InfoContext(ctx, "token.code.miss")
		return
	}

	if rec.CodeChallenge != "" && verifier != "" {
		if !pkce.Verify(verifier, rec.CodeChallenge, rec.CodeChallengeMethod) {
			// Same error as a missing code: callers must not be able
			// to distinguish which check failed.
			writeOAuthError(w, http.StatusBadRequest, errInvalidGrant, "invalid or expired authorization code")
			s.log.InfoContext(ctx, "token.pkce.reject")
			return
		}
	}

	s.issueTokens(ctx, w, &TokenGrant{Email: rec.Email, Scope: rec.Scope})
	s.log.InfoContext(ctx, "token.exchange.ok")
}

// rotateRefreshToken mints a fresh token pair and invalidates the
// consumed refresh token. The old token is deleted before the success
// response is written: once the client sees a 200, the old token must
// not be replayable, so a failed delete aborts the rotation with a
// server error instead.
func (s *Server) rotateRefreshToken(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	token := r.PostFormValue("refresh_token")

	grant, err := s.store.GetRefreshToken(ctx, token)
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, errServerError, "refresh token lookup failed")
		s.log.ErrorContext(ctx, "token.refresh.lookup.fail", slog.String("err", err.Error()))
		return
	}
	if grant == nil {
		writeOAuthError(w, http.StatusBadRequest, errInvalidGrant, "invalid or expired refresh token")
		s.log.InfoContext(ctx, "token.refresh.miss")
		return
	}

	resp, ok := s.mintTokens(ctx, w, grant)
	if !ok {
		return
	}

	if err := s.store.DeleteRefreshToken(ctx, token); err != nil {
		// The new pair is already persisted but the old token still
		// resolves; handing out the 200 anyway would leave it
		// replayable for its full lifetime. The orphaned new pair just
		// ages out.
		writeOAuthError(w, http.StatusInternalServerError, errServerError, "failed to revoke refresh token")
		s.log.ErrorContext(ctx, "token.refresh.revoke.fail", slog.String("err", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, resp)
	s.log.InfoContext(ctx, "token.refresh.rotate.ok")
}

// issueTokens mints a new token pair for grant and writes the token
// response. Reports whether the response was written successfully.
func (s *Server) issueTokens(ctx context.Context, w http.ResponseWriter, grant *TokenGrant) bool {
	resp, ok := s.mintTokens(ctx, w, grant)
	if !ok {
		return false
	}
	writeJSON(w, http.StatusOK, resp)
	return true
}

// mintTokens mints and persists a new access/refresh pair bound to
// grant. The two writes are independent; if the refresh write fails
// after the access write, the access token is not rolled back. On
// failure the error response has already been written and ok is false.
func (s *Server) mintTokens(ctx context.Context, w http.ResponseWriter, grant *TokenGrant) (resp tokenResponse, ok bool) {
	accessToken := uuid.NewString()
	refreshToken := uuid.NewString()

	if err := s.store.PutAccessToken(ctx, accessToken, grant); err != nil {
		writeOAuthError(w, http.StatusInternalServerError, errServerError, "failed to persist access token")
		s.log.ErrorContext(ctx, "token.access.store.fail", slog.String("err", err.Error()))
		return tokenResponse{}, false
	}
	if err := s.store.PutRefreshToken(ctx, refreshToken, grant); err != nil {
		writeOAuthError(w, http.StatusInternalServerError, errServerError, "failed to persist refresh token")
		s.log.ErrorContext(ctx, "token.refresh.store.fail", slog.String("err", err.Error()))
		return tokenResponse{}, false
	}

	return tokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(AccessTokenTTL.Seconds()),
		RefreshToken: refreshToken,
		Scope:        grant.Scope,
	}, true
}
