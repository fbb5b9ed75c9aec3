package connect

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStateRoundtrip(t *testing.T) {
	signer := NewHS256Signer("test-secret", "https://authhub.example", 10*time.Minute)

	tok, err := signer.SignState(StateClaims{
		Platform:        "meta",
		AccessRequestID: "ar-42",
		ClientEmail:     "client@example.com",
		Nonce:           "n-1",
	})
	if err != nil {
		t.Fatalf("SignState: %v", err)
	}

	claims, err := signer.ParseState(tok)
	if err != nil {
		t.Fatalf("ParseState: %v", err)
	}
	if claims.Platform != "meta" || claims.AccessRequestID != "ar-42" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ClientEmail != "client@example.com" || claims.Nonce != "n-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseStateExpired(t *testing.T) {
	signer := &HS256Signer{
		Secret:   []byte("test-secret"),
		Issuer:   "https://authhub.example",
		StateTTL: -2 * time.Minute, // already past, beyond the 30s leeway
	}
	tok, err := signer.SignState(StateClaims{Platform: "meta", AccessRequestID: "ar-1", Nonce: "n"})
	if err != nil {
		t.Fatalf("SignState: %v", err)
	}
	if _, err := signer.ParseState(tok); !errors.Is(err, ErrStateExpired) {
		t.Fatalf("expected ErrStateExpired, got %v", err)
	}
}

func TestParseStateWrongSecret(t *testing.T) {
	signer := NewHS256Signer("secret-a", "iss", time.Minute)
	other := NewHS256Signer("secret-b", "iss", time.Minute)

	tok, err := signer.SignState(StateClaims{Platform: "meta", Nonce: "n"})
	if err != nil {
		t.Fatalf("SignState: %v", err)
	}
	if _, err := other.ParseState(tok); !errors.Is(err, ErrStateInvalid) {
		t.Fatalf("expected ErrStateInvalid, got %v", err)
	}
}

func TestParseStateTampered(t *testing.T) {
	signer := NewHS256Signer("secret", "iss", time.Minute)

	tok, err := signer.SignState(StateClaims{Platform: "meta", Nonce: "n"})
	if err != nil {
		t.Fatalf("SignState: %v", err)
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("not a JWT: %q", tok)
	}
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, err := signer.ParseState(tampered); !errors.Is(err, ErrStateInvalid) {
		t.Fatalf("expected ErrStateInvalid, got %v", err)
	}

	if _, err := signer.ParseState("garbage"); !errors.Is(err, ErrStateInvalid) {
		t.Fatalf("expected ErrStateInvalid, got %v", err)
	}
}

func TestParseStateWrongIssuer(t *testing.T) {
	signer := NewHS256Signer("secret", "iss-a", time.Minute)
	other := NewHS256Signer("secret", "iss-b", time.Minute)

	tok, err := signer.SignState(StateClaims{Platform: "meta", Nonce: "n"})
	if err != nil {
		t.Fatalf("SignState: %v", err)
	}
	if _, err := other.ParseState(tok); !errors.Is(err, ErrStateInvalid) {
		t.Fatalf("expected ErrStateInvalid, got %v", err)
	}
}
