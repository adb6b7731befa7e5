package credcrypto

import (
	"strings"
	"testing"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := "sk-live-very-secret-token"

	encrypted, err := Encrypt(plaintext, testKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if encrypted == plaintext {
		t.Fatal("ciphertext equals plaintext")
	}
	if strings.Contains(encrypted, plaintext) {
		t.Fatal("ciphertext leaks plaintext")
	}

	decrypted, err := Decrypt(encrypted, testKey)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if decrypted != plaintext {
		t.Fatalf("roundtrip = %q, want %q", decrypted, plaintext)
	}
}

func TestEncryptProducesUniqueCiphertext(t *testing.T) {
	a, err := Encrypt("same input", testKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := Encrypt("same input", testKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a == b {
		t.Fatal("two encryptions of the same plaintext must differ (random nonce)")
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	encrypted, err := Encrypt("secret", testKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	wrongKey := []byte("ffffffffffffffffffffffffffffffff")
	if _, err := Decrypt(encrypted, wrongKey); err == nil {
		t.Fatal("expected decryption with wrong key to fail")
	}
}

func TestShortKeyRejected(t *testing.T) {
	if _, err := Encrypt("secret", []byte("short")); err == nil {
		t.Fatal("expected error for short key")
	}
	if _, err := Decrypt("abcdef", []byte("short")); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestEmptyStringPassesThrough(t *testing.T) {
	encrypted, err := Encrypt("", testKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if encrypted != "" {
		t.Fatalf("empty plaintext should stay empty, got %q", encrypted)
	}

	decrypted, err := Decrypt("", testKey)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if decrypted != "" {
		t.Fatalf("empty ciphertext should stay empty, got %q", decrypted)
	}
}
