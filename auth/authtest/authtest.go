// Package authtest provides static Authenticator implementations for
// tests and development environments.
package authtest

import (
	"context"

	"github.com/taskm-dev/mcp-authd/auth"
)

// Static accepts exactly one bearer token and resolves it to a fixed
// user. Every other token is rejected with auth.ErrUnauthorized.
type Static struct {
	Token  string
	UserID string
}

// NewStatic creates a Static authenticator. If userID is empty, it
// defaults to "test-user@example.com".
func NewStatic(token, userID string) *Static {
	if userID == "" {
		userID = "test-user@example.com"
	}
	return &Static{Token: token, UserID: userID}
}

// CheckAuthentication implements auth.Authenticator.
func (s *Static) CheckAuthentication(ctx context.Context, tok string) (auth.UserInfo, error) {
	if tok != s.Token {
		return nil, auth.ErrUnauthorized
	}
	return staticUserInfo{userID: s.UserID}, nil
}

type staticUserInfo struct {
	userID string
}

func (u staticUserInfo) UserID() string { return u.userID }

func (u staticUserInfo) Claims(ref any) error { return nil }
