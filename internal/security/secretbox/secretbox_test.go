package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"
)

func setTestKey(t *testing.T) {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand: %v", err)
	}
	UnsafeResetForTests()
	t.Setenv("AUTHHUB_MASTER_KEY", base64.StdEncoding.EncodeToString(key))
	t.Cleanup(UnsafeResetForTests)
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	setTestKey(t)

	plain := `{"access_token":"super-secret","platform":"meta"}`
	sealed, err := Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if sealed == plain {
		t.Fatal("ciphertext equals plaintext")
	}
	if !strings.Contains(sealed, "|") {
		t.Fatalf("unexpected wire format: %q", sealed)
	}

	got, err := Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != plain {
		t.Fatalf("roundtrip = %q, want %q", got, plain)
	}

	if !Ready() {
		t.Fatal("Ready() should report true after a successful operation")
	}
}

func TestEncryptUniqueNonces(t *testing.T) {
	setTestKey(t)

	a, err := Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a == b {
		t.Fatal("two seals of the same plaintext must differ")
	}
}

func TestDecryptTampered(t *testing.T) {
	setTestKey(t)

	sealed, err := Encrypt("payload")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	parts := strings.SplitN(sealed, "|", 2)
	ct, _ := base64.StdEncoding.DecodeString(parts[1])
	ct[0] ^= 0xff
	tampered := parts[0] + "|" + base64.StdEncoding.EncodeToString(ct)

	if _, err := Decrypt(tampered); err == nil {
		t.Fatal("tampered ciphertext must not decrypt")
	}

	if _, err := Decrypt("no separator here"); err == nil {
		t.Fatal("malformed input must be rejected")
	}
	if _, err := Decrypt("bad base64|also bad"); err == nil {
		t.Fatal("malformed nonce must be rejected")
	}
}

func TestMissingKey(t *testing.T) {
	UnsafeResetForTests()
	t.Setenv("AUTHHUB_MASTER_KEY", "")
	t.Cleanup(UnsafeResetForTests)

	if _, err := Encrypt("x"); err == nil {
		t.Fatal("Encrypt must fail without a master key")
	}
	if Ready() {
		t.Fatal("Ready() must be false without a key")
	}
}

func TestWrongKeyLength(t *testing.T) {
	UnsafeResetForTests()
	t.Setenv("AUTHHUB_MASTER_KEY", base64.StdEncoding.EncodeToString([]byte("short")))
	t.Cleanup(UnsafeResetForTests)

	if _, err := Encrypt("x"); err == nil {
		t.Fatal("a non-32-byte key must be rejected")
	}
}
