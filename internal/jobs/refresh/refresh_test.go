package refresh

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	cachemem "github.com/authhub/authhub/internal/cache/memory"
	"github.com/authhub/authhub/internal/connectors"
	"github.com/authhub/authhub/internal/security/secretbox"
	"github.com/authhub/authhub/internal/store/core"
	storemem "github.com/authhub/authhub/internal/store/memory"
)

// mapVault is an in-memory Vault for sweep tests.
type mapVault struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMapVault() *mapVault { return &mapVault{tokens: make(map[string]string)} }

func (v *mapVault) Get(_ context.Context, id string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	tok, ok := v.tokens[id]
	if !ok {
		return "", ErrNoToken
	}
	return tok, nil
}

func (v *mapVault) Put(_ context.Context, id, tok string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens[id] = tok
	return nil
}

func (v *mapVault) Delete(_ context.Context, id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.tokens, id)
	return nil
}

type stubConnector struct {
	platform   connectors.Platform
	token      *connectors.TokenResponse
	refreshErr error

	mu        sync.Mutex
	refreshed []string
}

func (s *stubConnector) Platform() connectors.Platform { return s.platform }

func (s *stubConnector) AuthURL(context.Context, string, []string, string) (string, error) {
	return "", nil
}

func (s *stubConnector) ExchangeCode(context.Context, string, string, string) (*connectors.TokenResponse, error) {
	return nil, errors.New("not used")
}

func (s *stubConnector) RefreshToken(_ context.Context, refreshToken string) (*connectors.TokenResponse, error) {
	s.mu.Lock()
	s.refreshed = append(s.refreshed, refreshToken)
	s.mu.Unlock()
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return s.token, nil
}

func (s *stubConnector) VerifyToken(context.Context, string) bool { return true }

func (s *stubConnector) GetUserInfo(context.Context, string) (*connectors.UserInfo, error) {
	return nil, errors.New("not used")
}

func newTestRegistry(stub *stubConnector) *connectors.Registry {
	r := connectors.NewRegistry(connectors.Deps{})
	r.Register(stub.platform, func(connectors.Deps) (connectors.Connector, error) {
		return stub, nil
	})
	return r
}

func TestSweepRefreshesExpiringConnection(t *testing.T) {
	ctx := context.Background()
	st := storemem.New()
	vault := newMapVault()

	newExpiry := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	stub := &stubConnector{
		platform: connectors.PlatformGoogle,
		token: &connectors.TokenResponse{
			AccessToken:  "at-new",
			RefreshToken: "rt-rotated",
			ExpiresAt:    newExpiry,
		},
	}

	conn := &core.Connection{
		ID:             "conn-1",
		Platform:       "google",
		Status:         core.ConnectionActive,
		TokenExpiresAt: time.Now().Add(10 * time.Minute),
	}
	if err := st.CreateConnection(ctx, conn); err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}
	_ = vault.Put(ctx, "conn-1", "rt-old")

	job := New(Config{Lead: time.Hour}, st, newTestRegistry(stub), vault)
	if err := job.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if len(stub.refreshed) != 1 || stub.refreshed[0] != "rt-old" {
		t.Fatalf("refreshed = %v", stub.refreshed)
	}

	got, err := st.GetConnection(ctx, "conn-1")
	if err != nil {
		t.Fatalf("GetConnection: %v", err)
	}
	if !got.TokenExpiresAt.Equal(newExpiry) {
		t.Errorf("TokenExpiresAt = %v, want %v", got.TokenExpiresAt, newExpiry)
	}
	if got.Status != core.ConnectionActive {
		t.Errorf("Status = %q", got.Status)
	}

	// a rotated refresh token must replace the old one
	rotated, err := vault.Get(ctx, "conn-1")
	if err != nil {
		t.Fatalf("vault.Get: %v", err)
	}
	if rotated != "rt-rotated" {
		t.Errorf("vault token = %q", rotated)
	}
}

func TestSweepMarksUnsupportedPlatformForReauth(t *testing.T) {
	ctx := context.Background()
	st := storemem.New()

	// meta issues no refresh tokens
	conn := &core.Connection{
		ID:             "conn-meta",
		Platform:       "meta",
		Status:         core.ConnectionActive,
		TokenExpiresAt: time.Now().Add(10 * time.Minute),
	}
	if err := st.CreateConnection(ctx, conn); err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}

	stub := &stubConnector{platform: connectors.PlatformMeta}
	job := New(Config{Lead: time.Hour}, st, newTestRegistry(stub), newMapVault())
	if err := job.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if len(stub.refreshed) != 0 {
		t.Fatal("a platform without refresh tokens must not be asked to refresh")
	}
	got, _ := st.GetConnection(ctx, "conn-meta")
	if got.Status != core.ConnectionReauthRequired {
		t.Fatalf("Status = %q, want reauth_required", got.Status)
	}
}

func TestSweepMarksReauthOnMissingVaultToken(t *testing.T) {
	ctx := context.Background()
	st := storemem.New()

	conn := &core.Connection{
		ID:             "conn-2",
		Platform:       "google",
		Status:         core.ConnectionActive,
		TokenExpiresAt: time.Now().Add(10 * time.Minute),
	}
	if err := st.CreateConnection(ctx, conn); err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}

	stub := &stubConnector{platform: connectors.PlatformGoogle}
	job := New(Config{Lead: time.Hour}, st, newTestRegistry(stub), newMapVault())
	if err := job.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	got, _ := st.GetConnection(ctx, "conn-2")
	if got.Status != core.ConnectionReauthRequired {
		t.Fatalf("Status = %q, want reauth_required", got.Status)
	}
}

func TestSweepSurvivesOneBadConnection(t *testing.T) {
	ctx := context.Background()
	st := storemem.New()
	vault := newMapVault()

	stub := &stubConnector{
		platform:   connectors.PlatformGoogle,
		refreshErr: connectors.E(connectors.PlatformGoogle, connectors.CodeRefreshFailed, "revoked upstream"),
	}

	for _, id := range []string{"bad-1", "bad-2"} {
		if err := st.CreateConnection(ctx, &core.Connection{
			ID:             id,
			Platform:       "google",
			Status:         core.ConnectionActive,
			TokenExpiresAt: time.Now().Add(10 * time.Minute),
		}); err != nil {
			t.Fatalf("CreateConnection: %v", err)
		}
		_ = vault.Put(ctx, id, "rt")
	}

	job := New(Config{Lead: time.Hour, Concurrency: 1}, st, newTestRegistry(stub), vault)
	if err := job.Sweep(ctx); err != nil {
		t.Fatalf("Sweep must not abort on a failed refresh: %v", err)
	}
	if len(stub.refreshed) != 2 {
		t.Fatalf("refresh attempts = %d, want both connections tried", len(stub.refreshed))
	}
}

func TestSweepSkipsConnectionsNotDue(t *testing.T) {
	ctx := context.Background()
	st := storemem.New()

	if err := st.CreateConnection(ctx, &core.Connection{
		ID:             "fresh",
		Platform:       "google",
		Status:         core.ConnectionActive,
		TokenExpiresAt: time.Now().Add(72 * time.Hour),
	}); err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}

	stub := &stubConnector{platform: connectors.PlatformGoogle}
	job := New(Config{Lead: time.Hour}, st, newTestRegistry(stub), newMapVault())
	if err := job.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(stub.refreshed) != 0 {
		t.Fatal("a connection outside the lead window must be left alone")
	}
}

func TestCacheVault(t *testing.T) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand: %v", err)
	}
	secretbox.UnsafeResetForTests()
	t.Setenv("AUTHHUB_MASTER_KEY", base64.StdEncoding.EncodeToString(key))
	t.Cleanup(secretbox.UnsafeResetForTests)

	ctx := context.Background()
	c := cachemem.New("")
	vault := NewCacheVault(c)

	if _, err := vault.Get(ctx, "conn-1"); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}

	if err := vault.Put(ctx, "conn-1", "rt-secret"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// the cache must hold ciphertext, never the raw token
	sealed, err := c.Get(ctx, "vault:refresh:conn-1")
	if err != nil {
		t.Fatalf("raw cache read: %v", err)
	}
	if sealed == "rt-secret" {
		t.Fatal("refresh token stored in the clear")
	}

	got, err := vault.Get(ctx, "conn-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "rt-secret" {
		t.Fatalf("Get = %q", got)
	}

	if err := vault.Delete(ctx, "conn-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := vault.Get(ctx, "conn-1"); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken after delete, got %v", err)
	}
}
