package broker

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the size of the AES-256 key in bytes.
	KeySize = 32
	// PBKDF2Iterations is the number of iterations for key derivation.
	PBKDF2Iterations = 100000
)

var (
	ErrInvalidKey        = errors.New("invalid encryption key: must be at least 32 bytes")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrDecryptionFailed  = errors.New("decryption failed")
)

// Encryptor seals credential values in memory.
type Encryptor struct {
	masterKey []byte

	mu      sync.Mutex
	derived map[string][]byte
}

// NewEncryptor creates an Encryptor from a master secret of at least 32 bytes.
func NewEncryptor(secret []byte) (*Encryptor, error) {
	if len(secret) < KeySize {
		return nil, ErrInvalidKey
	}
	hash := sha256.Sum256(secret)
	return &Encryptor{masterKey: hash[:], derived: make(map[string][]byte)}, nil
}

// NewProcessEncryptor creates an Encryptor keyed by fresh random bytes. The key
// lives only as long as the process.
func NewProcessEncryptor() (*Encryptor, error) {
	secret := make([]byte, KeySize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return NewEncryptor(secret)
}

// DeriveKey derives a per-label key so each sealed field uses its own key.
func (e *Encryptor) DeriveKey(label string) []byte {
	return pbkdf2.Key(e.masterKey, []byte("field:"+label), PBKDF2Iterations, KeySize, sha256.New)
}

// Encrypt seals plaintext using AES-256-GCM under the label's key.
func (e *Encryptor) Encrypt(plaintext, label string) (ciphertext, nonce []byte, err error) {
	gcm, err := e.gcm(label)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, []byte(plaintext), []byte(label))
	return ciphertext, nonce, nil
}

// Decrypt opens a value sealed by Encrypt under the same label.
func (e *Encryptor) Decrypt(ciphertext, nonce []byte, label string) (string, error) {
	if len(ciphertext) == 0 || len(nonce) == 0 {
		return "", ErrInvalidCiphertext
	}

	gcm, err := e.gcm(label)
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(label))
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// fieldKey returns the derived key for label, deriving it once.
func (e *Encryptor) fieldKey(label string) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	key, ok := e.derived[label]
	if !ok {
		key = e.DeriveKey(label)
		e.derived[label] = key
	}
	return key
}

func (e *Encryptor) gcm(label string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.fieldKey(label))
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return gcm, nil
}
