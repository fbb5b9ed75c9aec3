// Package session is the ephemeral client-session store.
//
// A session bridges the gap between "the client authorized" and "the client
// picked which assets to share": it holds the client's temporary token just
// long enough for the asset-selection step, then disappears. Expiry is
// enforced by the cache backend's TTL, not by application logic, so a
// session is never readable after its TTL even if nobody deleted it, and
// no cleanup job is needed for correctness.
//
// Payloads are sealed with the process master key before they reach the
// cache, so a shared Redis never sees a raw client token.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/authhub/authhub/internal/cache"
	"github.com/authhub/authhub/internal/observability/logger"
	"github.com/authhub/authhub/internal/security/secretbox"
)

// DefaultTTL is the session lifetime: long enough to pick assets, short
// enough that an abandoned token dies quickly.
const DefaultTTL = 900 * time.Second

// Data is one client session. No other component may persist the token
// fields longer-term.
type Data struct {
	SessionID       string     `json:"session_id"`
	AccessRequestID string     `json:"access_request_id"`
	Platform        string     `json:"platform"`
	AccessToken     string     `json:"access_token"`
	RefreshToken    string     `json:"refresh_token,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	ClientEmail     string     `json:"client_email"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Store keeps sessions in the cache under a fixed TTL.
type Store struct {
	cache cache.Client
	ttl   time.Duration
	// seal/open are swappable for tests that run without a master key.
	seal func(string) (string, error)
	open func(string) (string, error)
}

// Option customizes a Store.
type Option func(*Store)

// WithTTL overrides the session lifetime.
func WithTTL(ttl time.Duration) Option { return func(s *Store) { s.ttl = ttl } }

// WithPlaintext disables payload sealing. Tests only.
func WithPlaintext() Option {
	return func(s *Store) {
		s.seal = func(v string) (string, error) { return v, nil }
		s.open = func(v string) (string, error) { return v, nil }
	}
}

// New creates a session store on the given cache.
func New(c cache.Client, opts ...Option) *Store {
	s := &Store{
		cache: c,
		ttl:   DefaultTTL,
		seal:  secretbox.Encrypt,
		open:  secretbox.Decrypt,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func key(id string) string { return "session:" + id }

// Create writes a new session and returns its generated id.
func (s *Store) Create(ctx context.Context, data Data) (string, error) {
	id := uuid.NewString()
	data.SessionID = id
	data.CreatedAt = time.Now().UTC()

	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	sealed, err := s.seal(string(b))
	if err != nil {
		return "", fmt.Errorf("seal session: %w", err)
	}
	if err := s.cache.Set(ctx, key(id), sealed, s.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	logger.From(ctx).Debug("client session created",
		logger.SessionID(id),
		logger.Platform(data.Platform),
		logger.Duration(s.ttl),
	)
	return id, nil
}

// Get returns a session, or nil when it is missing or expired.
func (s *Store) Get(ctx context.Context, id string) (*Data, error) {
	sealed, err := s.cache.Get(ctx, key(id))
	if cache.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	raw, err := s.open(sealed)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	var data Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &data, nil
}

// Delete removes a session. Idempotent: deleting a missing session is fine.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, key(id))
}

// TTL returns the remaining lifetime of a session, or nil if it no longer
// exists.
func (s *Store) TTL(ctx context.Context, id string) (*time.Duration, error) {
	d, err := s.cache.TTL(ctx, key(id))
	if cache.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
