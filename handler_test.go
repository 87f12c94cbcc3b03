package mcpauthd

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/taskm-dev/mcp-authd/gate"
	"github.com/taskm-dev/mcp-authd/pkce"
	"github.com/taskm-dev/mcp-authd/storage/memory"
)

const testEmail = "me@example.com"

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	kv, err := memory.New(1024)
	if err != nil {
		t.Fatalf("creating memory storage: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })

	protected := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := gate.UserFromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"user": u.UserID()})
	})

	h, err := New(kv, protected, Config{AllowedEmail: testEmail},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func TestNewValidation(t *testing.T) {
	kv, err := memory.New(16)
	if err != nil {
		t.Fatalf("creating memory storage: %v", err)
	}
	defer kv.Close()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	if _, err := New(nil, next, Config{AllowedEmail: testEmail}); err == nil {
		t.Error("expected error for nil store")
	}
	if _, err := New(kv, nil, Config{AllowedEmail: testEmail}); err == nil {
		t.Error("expected error for nil protected handler")
	}
	if _, err := New(kv, next, Config{}); err == nil {
		t.Error("expected error for missing allowed email")
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
	if body["service"] != "TaskM" {
		t.Errorf("service field = %q, want TaskM", body["service"])
	}
}

// TestFullAuthorizationFlow walks the complete client journey:
// metadata discovery, dynamic registration, identity confirmation,
// code exchange with PKCE, an authenticated MCP call, token refresh,
// and finally the replays that must fail.
func TestFullAuthorizationFlow(t *testing.T) {
	h := newTestHandler(t)

	post := func(path string, form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	// Discovery.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/oauth-authorization-server", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metadata: status = %d, want 200", rec.Code)
	}

	// Registration.
	req := httptest.NewRequest(http.MethodPost, "/register",
		strings.NewReader(`{"client_name": "Task CLI", "redirect_uris": ["http://localhost:5173/callback"]}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}
	var registration struct {
		ClientID string `json:"client_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&registration); err != nil {
		t.Fatalf("register: decoding response: %v", err)
	}

	// The authorization form carries the parameters through.
	verifier, err := pkce.NewVerifier()
	if err != nil {
		t.Fatalf("generating verifier: %v", err)
	}
	challenge := pkce.ChallengeS256(verifier)

	authURL := "/authorize?" + url.Values{
		"client_id":             {registration.ClientID},
		"redirect_uri":          {"http://localhost:5173/callback"},
		"state":                 {"xyzzy"},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
	}.Encode()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, authURL, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("authorize form: status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `name="state" value="xyzzy"`) {
		t.Fatal("authorize form does not carry the state parameter")
	}

	// Identity confirmation issues the code.
	rec = post("/authorize", url.Values{
		"email":                 {testEmail},
		"client_id":             {registration.ClientID},
		"redirect_uri":          {"http://localhost:5173/callback"},
		"state":                 {"xyzzy"},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
	})
	if rec.Code != http.StatusFound {
		t.Fatalf("authorize submit: status = %d, want 302; body: %s", rec.Code, rec.Body.String())
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parsing redirect: %v", err)
	}
	if got := loc.Query().Get("state"); got != "xyzzy" {
		t.Fatalf("redirect state = %q, want xyzzy", got)
	}
	code := loc.Query().Get("code")
	if code == "" {
		t.Fatal("redirect is missing a code")
	}

	// Code exchange with the matching verifier.
	rec = post("/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {verifier},
		"client_id":     {registration.ClientID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("token exchange: status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&tokens); err != nil {
		t.Fatalf("token exchange: decoding response: %v", err)
	}
	if tokens.TokenType != "Bearer" {
		t.Errorf("token_type = %q, want Bearer", tokens.TokenType)
	}

	// The access token opens the MCP endpoint.
	req = httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("mcp call: status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	var mcpBody map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&mcpBody); err != nil {
		t.Fatalf("mcp call: decoding response: %v", err)
	}
	if mcpBody["user"] != testEmail {
		t.Errorf("mcp user = %q, want %q", mcpBody["user"], testEmail)
	}

	// Replaying the code fails.
	rec = post("/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {verifier},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code replay: status = %d, want 400", rec.Code)
	}

	// Refresh rotates the pair.
	rec = post("/token", url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {tokens.RefreshToken},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	var rotated struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&rotated); err != nil {
		t.Fatalf("refresh: decoding response: %v", err)
	}
	if rotated.RefreshToken == tokens.RefreshToken {
		t.Error("refresh token was not rotated")
	}

	// The consumed refresh token is dead.
	rec = post("/token", url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {tokens.RefreshToken},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("refresh replay: status = %d, want 400", rec.Code)
	}
}

func TestMCPRequiresAuthentication(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	challenge := rec.Header().Get("WWW-Authenticate")
	if !strings.Contains(challenge, `resource_metadata="http://example.com/.well-known/oauth-protected-resource"`) {
		t.Errorf("challenge %q does not advertise a dereferenceable resource metadata URL", challenge)
	}
}

func TestWrongEmailNeverReachesTokens(t *testing.T) {
	h := newTestHandler(t)

	form := url.Values{
		"email":        {"intruder@example.com"},
		"redirect_uri": {"http://localhost:5173/callback"},
	}
	req := httptest.NewRequest(http.MethodPost, "/authorize", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "" {
		t.Errorf("denial redirected to %q; it must re-render the form instead", loc)
	}
}
