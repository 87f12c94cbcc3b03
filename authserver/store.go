package authserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taskm-dev/mcp-authd/storage"
)

// Key prefixes partition the flat KV key space per record kind.
const (
	clientKeyPrefix  = "client:"
	codeKeyPrefix    = "auth_code:"
	accessKeyPrefix  = "access_token:"
	refreshKeyPrefix = "refresh_token:"
)

// Record lifetimes, enforced by the store's per-key TTL.
const (
	CodeTTL         = 5 * time.Minute
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 90 * 24 * time.Hour
)

// Store wraps the raw key-value storage with typed accessors for the
// authorization server's records. It is the sole writer of every key
// under the prefixes above.
type Store struct {
	kv storage.Storage
}

// NewStore creates a Store on top of kv.
func NewStore(kv storage.Storage) *Store {
	return &Store{kv: kv}
}

func (s *Store) put(ctx context.Context, key string, v any, opts ...storage.Option) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record for %s: %w", key, err)
	}
	return s.kv.Set(ctx, key, data, opts...)
}

func (s *Store) get(ctx context.Context, key string, v any) (bool, error) {
	item, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}
	if err := json.Unmarshal(item.Data, v); err != nil {
		return false, fmt.Errorf("unmarshal record for %s: %w", key, err)
	}
	return true, nil
}

// PutClient persists a registered client without expiry.
func (s *Store) PutClient(ctx context.Context, c *RegisteredClient) error {
	return s.put(ctx, clientKeyPrefix+c.ClientID, c)
}

// GetClient retrieves a registered client. Returns nil when absent.
func (s *Store) GetClient(ctx context.Context, clientID string) (*RegisteredClient, error) {
	var c RegisteredClient
	ok, err := s.get(ctx, clientKeyPrefix+clientID, &c)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

// PutCode persists an authorization code record for CodeTTL.
func (s *Store) PutCode(ctx context.Context, code string, rec *AuthorizationCode) error {
	return s.put(ctx, codeKeyPrefix+code, rec, storage.WithTTL(CodeTTL))
}

// TakeCode retrieves an authorization code record and deletes it in
// the same call, enforcing single use. Returns nil when the code was
// never issued, has expired, or was already redeemed. The delete
// happens before the caller sees the record, so a failed PKCE check
// still burns the code.
func (s *Store) TakeCode(ctx context.Context, code string) (*AuthorizationCode, error) {
	var rec AuthorizationCode
	ok, err := s.get(ctx, codeKeyPrefix+code, &rec)
	if err != nil || !ok {
		return nil, err
	}
	if err := s.kv.Delete(ctx, codeKeyPrefix+code); err != nil {
		return nil, fmt.Errorf("burn authorization code: %w", err)
	}
	return &rec, nil
}

// PutAccessToken persists an access token grant for AccessTokenTTL.
func (s *Store) PutAccessToken(ctx context.Context, token string, g *TokenGrant) error {
	return s.put(ctx, accessKeyPrefix+token, g, storage.WithTTL(AccessTokenTTL))
}

// GetAccessToken resolves an access token. Returns nil when the token
// was never issued, has expired, or was revoked by deletion.
func (s *Store) GetAccessToken(ctx context.Context, token string) (*TokenGrant, error) {
	var g TokenGrant
	ok, err := s.get(ctx, accessKeyPrefix+token, &g)
	if err != nil || !ok {
		return nil, err
	}
	return &g, nil
}

// PutRefreshToken persists a refresh token grant for RefreshTokenTTL.
func (s *Store) PutRefreshToken(ctx context.Context, token string, g *TokenGrant) error {
	return s.put(ctx, refreshKeyPrefix+token, g, storage.WithTTL(RefreshTokenTTL))
}

// GetRefreshToken resolves a refresh token. Returns nil when absent.
func (s *Store) GetRefreshToken(ctx context.Context, token string) (*TokenGrant, error) {
	var g TokenGrant
	ok, err := s.get(ctx, refreshKeyPrefix+token, &g)
	if err != nil || !ok {
		return nil, err
	}
	return &g, nil
}

// DeleteRefreshToken invalidates a consumed refresh token.
func (s *Store) DeleteRefreshToken(ctx context.Context, token string) error {
	return s.kv.Delete(ctx, refreshKeyPrefix+token)
}
