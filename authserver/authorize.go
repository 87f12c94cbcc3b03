package authserver

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// handleAuthorizeForm renders the identity-confirmation form. The
// OAuth query parameters are carried through as-is; anything missing
// is treated as the empty string. No identity check happens here.
func (s *Server) handleAuthorizeForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.renderAuthPage(w, http.StatusOK, authPageData{
		ServerName:          s.serverName,
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
		Scope:               q.Get("scope"),
	})
}

// handleAuthorizeSubmit confirms the submitted identity and, on
// success, issues a short-lived authorization code bound to the PKCE
// challenge and redirect target before redirecting back to the client.
func (s *Server) handleAuthorizeSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, errInvalidRequest, "malformed form body")
		s.log.WarnContext(ctx, "authorize.form.parse.fail", slog.String("err", err.Error()))
		return
	}

	email := strings.ToLower(strings.TrimSpace(r.PostFormValue("email")))

	data := authPageData{
		ServerName:          s.serverName,
		ClientID:            r.PostFormValue("client_id"),
		RedirectURI:         r.PostFormValue("redirect_uri"),
		State:               r.PostFormValue("state"),
		CodeChallenge:       r.PostFormValue("code_challenge"),
		CodeChallengeMethod: r.PostFormValue("code_challenge_method"),
		Scope:               r.PostFormValue("scope"),
	}

	// Denial is not a distinct redirect: the form is re-presented with
	// an inline error and the original parameters preserved.
	if email == "" || email != s.allowedEmail {
		data.Error = "This email address is not allowed."
		s.renderAuthPage(w, http.StatusForbidden, data)
		s.log.InfoContext(ctx, "authorize.identity.reject")
		return
	}

	code := uuid.NewString()
	rec := &AuthorizationCode{
		Email:               email,
		ClientID:            data.ClientID,
		RedirectURI:         data.RedirectURI,
		CodeChallenge:       data.CodeChallenge,
		CodeChallengeMethod: data.CodeChallengeMethod,
		Scope:               data.Scope,
	}
	if err := s.store.PutCode(ctx, code, rec); err != nil {
		writeOAuthError(w, http.StatusInternalServerError, errServerError, "failed to persist authorization code")
		s.log.ErrorContext(ctx, "authorize.code.store.fail", slog.String("err", err.Error()))
		return
	}

	// The redirect target is taken from the request verbatim. It is
	// not matched against the client's registered redirect URIs; a
	// malformed value is a client error, never a panic.
	redirect, err := url.Parse(data.RedirectURI)
	if err != nil || redirect.Scheme == "" || redirect.Host == "" {
		writeOAuthError(w, http.StatusBadRequest, errInvalidRequest, "malformed redirect_uri")
		s.log.WarnContext(ctx, "authorize.redirect.invalid", slog.String("redirect_uri", data.RedirectURI))
		return
	}
	q := redirect.Query()
	q.Set("code", code)
	if data.State != "" {
		q.Set("state", data.State)
	}
	redirect.RawQuery = q.Encode()

	http.Redirect(w, r, redirect.String(), http.StatusFound)
	s.log.InfoContext(ctx, "authorize.code.issue", slog.String("client_id", data.ClientID))
}

func (s *Server) renderAuthPage(w http.ResponseWriter, status int, data authPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := authPageTmpl.Execute(w, data); err != nil {
		s.log.Error("authorize.page.render.fail", slog.String("err", err.Error()))
	}
}
