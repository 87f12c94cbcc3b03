package authserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/taskm-dev/mcp-authd/auth"
)

// NewAuthenticator returns an auth.Authenticator that resolves opaque
// bearer tokens against the store's access-token key space. A live
// entry is the entire authorization proof: a token that was never
// issued, has expired, or was deleted fails identically.
func NewAuthenticator(store *Store) auth.Authenticator {
	return &tokenAuthenticator{store: store}
}

type tokenAuthenticator struct {
	store *Store
}

func (a *tokenAuthenticator) CheckAuthentication(ctx context.Context, tok string) (auth.UserInfo, error) {
	grant, err := a.store.GetAccessToken(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("access token lookup: %w", err)
	}
	if grant == nil {
		return nil, auth.ErrUnauthorized
	}
	return &tokenUserInfo{grant: grant}, nil
}

type tokenUserInfo struct {
	grant *TokenGrant
}

func (u *tokenUserInfo) UserID() string { return u.grant.Email }

func (u *tokenUserInfo) Claims(ref any) error {
	b, err := json.Marshal(u.grant)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, ref)
}
