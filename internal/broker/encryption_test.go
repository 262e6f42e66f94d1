package broker

import (
	"strings"
	"testing"
)

func TestNewEncryptor_ValidSecret(t *testing.T) {
	enc, err := NewEncryptor([]byte("this-is-a-valid-32-character-key"))
	if err != nil {
		t.Fatalf("NewEncryptor() error = %v, want nil", err)
	}
	if enc == nil {
		t.Fatal("NewEncryptor() returned nil")
	}
}

func TestNewEncryptor_ShortSecret(t *testing.T) {
	_, err := NewEncryptor([]byte("short"))
	if err != ErrInvalidKey {
		t.Errorf("NewEncryptor() error = %v, want %v", err, ErrInvalidKey)
	}
}

func TestEncryptor_RoundTrip(t *testing.T) {
	enc, err := NewProcessEncryptor()
	if err != nil {
		t.Fatalf("NewProcessEncryptor() error = %v", err)
	}

	testCases := []struct {
		name      string
		plaintext string
		label     string
	}{
		{"simple password", "mypassword123", "secret"},
		{"complex password", "P@ssw0rd!#$%^&*()", "secret"},
		{"unicode password", "пароль密码🔐", "secret"},
		{"api key", "k3y-" + strings.Repeat("x", 40), "api_key"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ciphertext, nonce, err := enc.Encrypt(tc.plaintext, tc.label)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if string(ciphertext) == tc.plaintext {
				t.Error("ciphertext should not equal plaintext")
			}

			decrypted, err := enc.Decrypt(ciphertext, nonce, tc.label)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if decrypted != tc.plaintext {
				t.Errorf("Decrypt() = %q, want %q", decrypted, tc.plaintext)
			}
		})
	}
}

func TestEncryptor_WrongLabel(t *testing.T) {
	enc, _ := NewProcessEncryptor()

	ciphertext, nonce, err := enc.Encrypt("hunter2", "secret")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if _, err := enc.Decrypt(ciphertext, nonce, "api_key"); err != ErrDecryptionFailed {
		t.Errorf("Decrypt() with wrong label error = %v, want %v", err, ErrDecryptionFailed)
	}
}

func TestEncryptor_InvalidInput(t *testing.T) {
	enc, _ := NewProcessEncryptor()

	if _, err := enc.Decrypt(nil, []byte("nonce"), "secret"); err != ErrInvalidCiphertext {
		t.Errorf("Decrypt(nil) error = %v, want %v", err, ErrInvalidCiphertext)
	}
	if _, err := enc.Decrypt([]byte("ct"), []byte("short"), "secret"); err != ErrInvalidCiphertext {
		t.Errorf("Decrypt(short nonce) error = %v, want %v", err, ErrInvalidCiphertext)
	}
}

func TestEncryptor_DeriveKey_PerLabel(t *testing.T) {
	enc, _ := NewEncryptor([]byte("this-is-a-valid-32-character-key"))

	a := enc.DeriveKey("secret")
	b := enc.DeriveKey("api_key")
	if len(a) != KeySize {
		t.Errorf("DeriveKey() length = %d, want %d", len(a), KeySize)
	}
	if string(a) == string(b) {
		t.Error("different labels should derive different keys")
	}
	if string(a) != string(enc.fieldKey("secret")) {
		t.Error("cached field key should match DeriveKey")
	}
}
