// Package secretbox encrypts short secrets (ephemeral session payloads)
// before they reach the shared cache. NaCl secretbox with a process-wide
// master key from the environment.
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	envVar    = "AUTHHUB_MASTER_KEY"
	nonceSize = 24
	keySize   = 32
	sep       = "|" // base64(nonce)|base64(ciphertext)
)

var (
	masterKey     [keySize]byte
	masterKeyOnce sync.Once
	loadErr       error
	loaded        bool
	mu            sync.RWMutex
)

// ensureLoaded reads the master key from AUTHHUB_MASTER_KEY (base64) once.
func ensureLoaded() error {
	masterKeyOnce.Do(func() {
		kb64 := strings.TrimSpace(os.Getenv(envVar))
		if kb64 == "" {
			loadErr = fmt.Errorf("%s not set; generate one with: openssl rand -base64 32", envVar)
			return
		}
		k, err := base64.StdEncoding.DecodeString(kb64)
		if err != nil {
			loadErr = fmt.Errorf("decode %s: %w", envVar, err)
			return
		}
		if len(k) != keySize {
			loadErr = fmt.Errorf("%s must decode to %d bytes, got %d", envVar, keySize, len(k))
			return
		}
		mu.Lock()
		copy(masterKey[:], k)
		loaded = true
		mu.Unlock()
	})
	return loadErr
}

// Ready reports whether the master key is loaded (for healthchecks).
func Ready() bool {
	mu.RLock()
	defer mu.RUnlock()
	return loaded
}

// Encrypt seals plainText and returns base64(nonce)|base64(ciphertext).
func Encrypt(plainText string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}

	mu.RLock()
	key := masterKey
	mu.RUnlock()

	ct := secretbox.Seal(nil, []byte(plainText), &nonce, &key)
	return base64.StdEncoding.EncodeToString(nonce[:]) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt opens a value produced by Encrypt.
func Decrypt(cipherText string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}

	parts := strings.SplitN(cipherText, sep, 2)
	if len(parts) != 2 {
		return "", errors.New("secretbox: malformed ciphertext")
	}
	nonceRaw, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonceRaw) != nonceSize {
		return "", errors.New("secretbox: malformed nonce")
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", errors.New("secretbox: malformed ciphertext")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], nonceRaw)

	mu.RLock()
	key := masterKey
	mu.RUnlock()

	pt, ok := secretbox.Open(nil, ct, &nonce, &key)
	if !ok {
		return "", errors.New("secretbox: decryption failed (wrong key or tampered data)")
	}
	return string(pt), nil
}

// UnsafeResetForTests clears the loaded key so tests can swap the env var.
func UnsafeResetForTests() {
	mu.Lock()
	defer mu.Unlock()
	masterKeyOnce = sync.Once{}
	masterKey = [keySize]byte{}
	loaded = false
	loadErr = nil
}
