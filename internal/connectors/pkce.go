package connectors

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/authhub/authhub/internal/cache"
	"github.com/authhub/authhub/internal/security/tokens"
)

// PKCE code verifier length in random bytes. 64 bytes encode to 86
// characters, inside the 43-128 range RFC 7636 allows.
const codeVerifierBytes = 64

// VerifierTTL bounds how long a stashed verifier survives. It only needs to
// outlive the user's trip through the provider's consent screen.
const VerifierTTL = 10 * time.Minute

// GenerateCodeVerifier creates a cryptographically random PKCE verifier.
func GenerateCodeVerifier() (string, error) {
	b := make([]byte, codeVerifierBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CodeChallenge derives the S256 challenge from a verifier.
func CodeChallenge(verifier string) string {
	return tokens.SHA256Base64URL(verifier)
}

// VerifierStore stashes PKCE code verifiers between the authorize redirect
// and the code exchange, keyed by the opaque state token.
type VerifierStore interface {
	Put(ctx context.Context, state, verifier string) error

	// Take returns the verifier for a state and deletes it: a verifier is
	// single-use by construction, like the state that keys it.
	// Returns ("", nil) when nothing is stashed (expired or reused state).
	Take(ctx context.Context, state string) (string, error)
}

// CacheVerifierStore keeps verifiers in the shared cache with a TTL, so an
// abandoned flow cleans itself up.
type CacheVerifierStore struct {
	Cache cache.Client
	TTL   time.Duration
}

// NewVerifierStore builds a cache-backed verifier store with the default TTL.
func NewVerifierStore(c cache.Client) *CacheVerifierStore {
	return &CacheVerifierStore{Cache: c, TTL: VerifierTTL}
}

func (s *CacheVerifierStore) key(state string) string { return "pkce:" + state }

func (s *CacheVerifierStore) Put(ctx context.Context, state, verifier string) error {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = VerifierTTL
	}
	return s.Cache.Set(ctx, s.key(state), verifier, ttl)
}

func (s *CacheVerifierStore) Take(ctx context.Context, state string) (string, error) {
	v, err := s.Cache.GetDel(ctx, s.key(state))
	if cache.IsNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}
