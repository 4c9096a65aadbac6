package crypto

import (
	"strings"
	"testing"
)

const testSecret = "unit-test-secret-at-least-32-characters-long"

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher(testSecret, nil)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	return c
}

func TestNewCipherEmptySecret(t *testing.T) {
	if _, err := NewCipher("", nil); err != ErrEmptySecret {
		t.Errorf("expected ErrEmptySecret, got %v", err)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	plaintexts := []string{
		"a",
		"service-role-password",
		"exactly-sixteen!",
		strings.Repeat("x", 100),
		"påsswörd with ünicode and symbols !@#$%^&*()",
	}

	for _, plaintext := range plaintexts {
		encrypted, err := c.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		if encrypted == plaintext {
			t.Errorf("Encrypt(%q) returned plaintext", plaintext)
		}
		if got := c.Decrypt(encrypted); got != plaintext {
			t.Errorf("Decrypt(Encrypt(%q)) = %q", plaintext, got)
		}
	}
}

func TestEncryptFormat(t *testing.T) {
	c := newTestCipher(t)

	encrypted, err := c.Encrypt("some-credential")
	if err != nil {
		t.Fatal(err)
	}

	ivHex, ctHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		t.Fatalf("expected iv:ciphertext format, got %q", encrypted)
	}
	if len(ivHex) != 32 {
		t.Errorf("iv segment length = %d, want 32 hex chars", len(ivHex))
	}
	if len(ctHex) == 0 || len(ctHex)%32 != 0 {
		t.Errorf("ciphertext segment length = %d, want non-zero multiple of 32", len(ctHex))
	}
}

func TestEncryptEmptyInput(t *testing.T) {
	c := newTestCipher(t)
	encrypted, err := c.Encrypt("")
	if err != nil {
		t.Fatal(err)
	}
	if encrypted != "" {
		t.Errorf("Encrypt(\"\") = %q, want empty", encrypted)
	}
}

func TestEncryptFreshIVPerCall(t *testing.T) {
	c := newTestCipher(t)
	first, err := c.Encrypt("same-input")
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Encrypt("same-input")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("two encryptions of the same input produced identical output")
	}
}

// Legacy plaintext rows predate encryption; they must pass through untouched.
func TestDecryptPassThrough(t *testing.T) {
	c := newTestCipher(t)

	tests := []struct {
		name  string
		input string
	}{
		{"no separator", "plain-old-password"},
		{"empty", ""},
		{"jwt service key", "eyJhbGciOiJIUzI1NiJ9.eyJyb2xlIjoic2VydmljZV9yb2xlIn0.sig"},
		{"non-hex iv segment", "not-hex-at-all:deadbeef"},
		{"iv wrong length", "abcd:deadbeefdeadbeefdeadbeefdeadbeef"},
		{"ciphertext not block aligned", strings.Repeat("ab", 16) + ":abcdef"},
		{"empty ciphertext segment", strings.Repeat("ab", 16) + ":"},
		{"colon only", ":"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Decrypt(tt.input); got != tt.input {
				t.Errorf("Decrypt(%q) = %q, want input unchanged", tt.input, got)
			}
		})
	}
}

func TestDecryptCorruptedCiphertext(t *testing.T) {
	c := newTestCipher(t)

	encrypted, err := c.Encrypt("credential")
	if err != nil {
		t.Fatal(err)
	}

	// Flip the last ciphertext byte; padding validation should reject it and
	// the corrupted value should come back unchanged.
	corrupted := encrypted[:len(encrypted)-2]
	if strings.HasSuffix(encrypted, "00") {
		corrupted += "11"
	} else {
		corrupted += "00"
	}

	if got := c.Decrypt(corrupted); got != corrupted {
		// A flipped byte can, rarely, still decode to valid padding. The only
		// hard requirement is that the original plaintext is not produced.
		if got == "credential" {
			t.Errorf("corrupted ciphertext decrypted to original plaintext")
		}
	}
}

func TestDecryptDifferentKeyNeverYieldsPlaintext(t *testing.T) {
	c1 := newTestCipher(t)
	c2, err := NewCipher("another-secret-that-is-also-32-chars!!", nil)
	if err != nil {
		t.Fatal(err)
	}

	encrypted, err := c1.Encrypt("the-credential")
	if err != nil {
		t.Fatal(err)
	}

	if got := c2.Decrypt(encrypted); got == "the-credential" {
		t.Error("decryption under a different key produced the original plaintext")
	}
}
