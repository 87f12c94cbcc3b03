package authserver

import (
	"context"
	"errors"
	"testing"

	"github.com/taskm-dev/mcp-authd/auth"
	"github.com/taskm-dev/mcp-authd/storage/memory"
)

func newTestAuthenticator(t *testing.T) (auth.Authenticator, *Store) {
	t.Helper()
	kv, err := memory.New(64)
	if err != nil {
		t.Fatalf("creating memory storage: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	store := NewStore(kv)
	return NewAuthenticator(store), store
}

func TestAuthenticatorResolvesToken(t *testing.T) {
	authn, store := newTestAuthenticator(t)

	ctx := context.Background()
	if err := store.PutAccessToken(ctx, "tok-1", &TokenGrant{Email: "me@example.com", Scope: "tasks"}); err != nil {
		t.Fatalf("seeding access token: %v", err)
	}

	userInfo, err := authn.CheckAuthentication(ctx, "tok-1")
	if err != nil {
		t.Fatalf("CheckAuthentication: %v", err)
	}
	if got := userInfo.UserID(); got != "me@example.com" {
		t.Errorf("UserID() = %q, want me@example.com", got)
	}

	var claims TokenGrant
	if err := userInfo.Claims(&claims); err != nil {
		t.Fatalf("Claims: %v", err)
	}
	if claims.Scope != "tasks" {
		t.Errorf("claims scope = %q, want tasks", claims.Scope)
	}
}

func TestAuthenticatorRejectsUnknownToken(t *testing.T) {
	authn, _ := newTestAuthenticator(t)

	_, err := authn.CheckAuthentication(context.Background(), "never-issued")
	if !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("err = %v, want auth.ErrUnauthorized", err)
	}
}
