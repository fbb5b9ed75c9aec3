package kit

import (
	"testing"
	"time"

	"github.com/authhub/authhub/internal/connectors"
)

func TestNormalizeAnchorsToCreatedAt(t *testing.T) {
	// our clock is deliberately far from created_at: the provider's instant
	// must win
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tok, err := Normalize([]byte(`{
		"access_token":"kit-at",
		"refresh_token":"kit-rt",
		"token_type":"Bearer",
		"expires_in":172800,
		"created_at":1700000000,
		"scope":"public"
	}`), now)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	want := time.Unix(1700000000, 0).Add(172800 * time.Second)
	if !tok.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", tok.ExpiresAt, want)
	}
	if tok.AccessToken != "kit-at" || tok.RefreshToken != "kit-rt" {
		t.Fatalf("unexpected token: %+v", tok)
	}
	if tok.Scope != "public" {
		t.Errorf("Scope = %q", tok.Scope)
	}
}

func TestNormalizeWithoutCreatedAt(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tok, err := Normalize([]byte(`{"access_token":"at","expires_in":600}`), now)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !tok.ExpiresAt.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("ExpiresAt = %v, want anchored at our request time", tok.ExpiresAt)
	}
}

func TestNormalizeRejectsEmptyToken(t *testing.T) {
	if _, err := Normalize([]byte(`{"expires_in":600}`), time.Now()); err == nil {
		t.Fatal("missing access_token must be rejected")
	}
}

func TestMapUserInfo(t *testing.T) {
	info, err := mapUserInfo([]byte(`{
		"account": {
			"id": 9321,
			"name": "Creator Co",
			"primary_email_address": "owner@creator.co"
		}
	}`))
	if err != nil {
		t.Fatalf("mapUserInfo: %v", err)
	}
	if info.ID != "9321" {
		t.Errorf("ID = %q", info.ID)
	}
	if info.Email != "owner@creator.co" {
		t.Errorf("Email = %q", info.Email)
	}
	if info.Name != "Creator Co" {
		t.Errorf("Name = %q", info.Name)
	}
}

func TestFactoryFailsWithoutCredentials(t *testing.T) {
	_, err := Factory(connectors.Deps{
		Creds: func(p connectors.Platform) (connectors.Credentials, error) {
			return connectors.Credentials{}, connectors.E(p, connectors.CodeMissingClientID, "not set")
		},
	})
	if !connectors.IsCode(err, connectors.CodeMissingClientID) {
		t.Fatalf("expected MISSING_CLIENT_ID, got %v", err)
	}
}
