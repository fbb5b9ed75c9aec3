package refresh

import (
	"context"
	"errors"
	"fmt"

	"github.com/authhub/authhub/internal/cache"
	"github.com/authhub/authhub/internal/security/secretbox"
)

// ErrNoToken means the vault holds no refresh token for the connection.
var ErrNoToken = errors.New("refresh: no token in vault")

// Vault stores refresh tokens between sweeps. Access tokens are never kept;
// only the refresh credential needed to mint the next one.
type Vault interface {
	Get(ctx context.Context, connectionID string) (string, error)
	Put(ctx context.Context, connectionID, refreshToken string) error
	Delete(ctx context.Context, connectionID string) error
}

// CacheVault keeps sealed refresh tokens in the cache without expiry.
type CacheVault struct {
	cache cache.Client
}

func NewCacheVault(c cache.Client) *CacheVault {
	return &CacheVault{cache: c}
}

func vaultKey(id string) string { return "vault:refresh:" + id }

func (v *CacheVault) Get(ctx context.Context, connectionID string) (string, error) {
	sealed, err := v.cache.Get(ctx, vaultKey(connectionID))
	if cache.IsNotFound(err) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("vault read: %w", err)
	}
	token, err := secretbox.Decrypt(sealed)
	if err != nil {
		return "", fmt.Errorf("vault open: %w", err)
	}
	return token, nil
}

func (v *CacheVault) Put(ctx context.Context, connectionID, refreshToken string) error {
	sealed, err := secretbox.Encrypt(refreshToken)
	if err != nil {
		return fmt.Errorf("vault seal: %w", err)
	}
	// ttl 0 = no expiry; the sweep rotates or deletes entries itself
	return v.cache.Set(ctx, vaultKey(connectionID), sealed, 0)
}

func (v *CacheVault) Delete(ctx context.Context, connectionID string) error {
	return v.cache.Delete(ctx, vaultKey(connectionID))
}
