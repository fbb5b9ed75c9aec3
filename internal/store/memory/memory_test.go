package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/authhub/authhub/internal/store/core"
)

func TestConnectionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	conn := &core.Connection{
		ID:             "conn-1",
		AgencyID:       "agency-1",
		Platform:       "meta",
		Status:         core.ConnectionActive,
		TokenExpiresAt: time.Now().Add(time.Hour),
	}
	if err := s.CreateConnection(ctx, conn); err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}
	if conn.CreatedAt.IsZero() || conn.UpdatedAt.IsZero() {
		t.Fatal("timestamps not set")
	}

	got, err := s.GetConnection(ctx, "conn-1")
	if err != nil {
		t.Fatalf("GetConnection: %v", err)
	}
	if got.Platform != "meta" || got.Status != core.ConnectionActive {
		t.Fatalf("unexpected connection: %+v", got)
	}

	// reads are copies: mutating the result must not touch the store
	got.Status = core.ConnectionRevoked
	again, _ := s.GetConnection(ctx, "conn-1")
	if again.Status != core.ConnectionActive {
		t.Fatal("GetConnection leaked internal state")
	}

	if err := s.UpdateConnectionStatus(ctx, "conn-1", core.ConnectionReauthRequired); err != nil {
		t.Fatalf("UpdateConnectionStatus: %v", err)
	}
	got, _ = s.GetConnection(ctx, "conn-1")
	if got.Status != core.ConnectionReauthRequired {
		t.Fatalf("Status = %q", got.Status)
	}

	newExp := time.Now().Add(48 * time.Hour)
	if err := s.UpdateConnectionExpiry(ctx, "conn-1", newExp); err != nil {
		t.Fatalf("UpdateConnectionExpiry: %v", err)
	}
	got, _ = s.GetConnection(ctx, "conn-1")
	if !got.TokenExpiresAt.Equal(newExp) {
		t.Fatalf("TokenExpiresAt = %v", got.TokenExpiresAt)
	}
}

func TestConnectionNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.GetConnection(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateConnectionStatus(ctx, "nope", core.ConnectionRevoked); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateConnectionExpiry(ctx, "nope", time.Now()); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListConnectionsExpiring(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	seed := []*core.Connection{
		{ID: "soon", Status: core.ConnectionActive, TokenExpiresAt: now.Add(30 * time.Minute)},
		{ID: "later", Status: core.ConnectionActive, TokenExpiresAt: now.Add(48 * time.Hour)},
		{ID: "soon-but-revoked", Status: core.ConnectionRevoked, TokenExpiresAt: now.Add(30 * time.Minute)},
		{ID: "soon-but-reauth", Status: core.ConnectionReauthRequired, TokenExpiresAt: now.Add(30 * time.Minute)},
	}
	for _, c := range seed {
		if err := s.CreateConnection(ctx, c); err != nil {
			t.Fatalf("CreateConnection %s: %v", c.ID, err)
		}
	}

	due, err := s.ListConnectionsExpiring(ctx, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListConnectionsExpiring: %v", err)
	}
	if len(due) != 1 || due[0].ID != "soon" {
		t.Fatalf("due = %+v, want only the active soon-expiring connection", due)
	}
}

func TestAccessRequestLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	ar := &core.AccessRequest{
		ID:          "ar-1",
		AgencyID:    "agency-1",
		ClientEmail: "client@example.com",
		Platforms:   []string{"meta", "klaviyo"},
		Status:      core.AccessRequestPending,
	}
	if err := s.CreateAccessRequest(ctx, ar); err != nil {
		t.Fatalf("CreateAccessRequest: %v", err)
	}

	got, err := s.GetAccessRequest(ctx, "ar-1")
	if err != nil {
		t.Fatalf("GetAccessRequest: %v", err)
	}
	if got.ClientEmail != "client@example.com" || len(got.Platforms) != 2 {
		t.Fatalf("unexpected request: %+v", got)
	}

	if err := s.UpdateAccessRequestStatus(ctx, "ar-1", core.AccessRequestGranted); err != nil {
		t.Fatalf("UpdateAccessRequestStatus: %v", err)
	}
	got, _ = s.GetAccessRequest(ctx, "ar-1")
	if got.Status != core.AccessRequestGranted {
		t.Fatalf("Status = %q", got.Status)
	}

	if _, err := s.GetAccessRequest(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateAccessRequestStatus(ctx, "nope", core.AccessRequestDeclined); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
