package broker

import (
	"fmt"
	"log/slog"
	"strings"

	"signal_relay/internal/telemetry"
)

type sealed struct {
	ciphertext []byte
	nonce      []byte
	length     int
}

// Credentials are the brokerage login credentials. They are immutable once
// built; the password and API key are kept sealed and only opened at the
// moment a request needs them.
type Credentials struct {
	identifier string
	secret     sealed
	apiKey     sealed
	enc        *Encryptor
}

// NewCredentials seals secret and apiKey under a per-process key.
func NewCredentials(identifier, secret, apiKey string) (*Credentials, error) {
	enc, err := NewProcessEncryptor()
	if err != nil {
		return nil, err
	}

	c := &Credentials{identifier: strings.TrimSpace(identifier), enc: enc}
	if c.secret, err = seal(enc, secret, "secret"); err != nil {
		return nil, fmt.Errorf("sealing secret: %w", err)
	}
	if c.apiKey, err = seal(enc, apiKey, "api_key"); err != nil {
		return nil, fmt.Errorf("sealing api key: %w", err)
	}
	return c, nil
}

func seal(enc *Encryptor, value, label string) (sealed, error) {
	if value == "" {
		return sealed{}, nil
	}
	ct, nonce, err := enc.Encrypt(value, label)
	if err != nil {
		return sealed{}, err
	}
	return sealed{ciphertext: ct, nonce: nonce, length: len(value)}, nil
}

func (c *Credentials) open(s sealed, label string) (string, error) {
	if s.length == 0 {
		return "", nil
	}
	return c.enc.Decrypt(s.ciphertext, s.nonce, label)
}

// Identifier returns the login identifier (an email address).
func (c *Credentials) Identifier() string {
	return c.identifier
}

// Secret opens the sealed password.
func (c *Credentials) Secret() (string, error) {
	return c.open(c.secret, "secret")
}

// APIKey opens the sealed API key.
func (c *Credentials) APIKey() (string, error) {
	return c.open(c.apiKey, "api_key")
}

// Missing lists the credential fields that are empty, in a fixed order.
func (c *Credentials) Missing() []string {
	var missing []string
	if c.identifier == "" {
		missing = append(missing, "identifier")
	}
	if c.secret.length == 0 {
		missing = append(missing, "secret")
	}
	if c.apiKey.length == 0 {
		missing = append(missing, "api_key")
	}
	return missing
}

// String never includes the secret or the API key.
func (c *Credentials) String() string {
	return fmt.Sprintf("Credentials{identifier: %s, secret: %s, api_key: %s}",
		c.identifier, telemetry.Mask(c.secret.length), telemetry.Mask(c.apiKey.length))
}

// LogValue implements slog.LogValuer.
func (c *Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("identifier", c.identifier),
		slog.String("secret", telemetry.Mask(c.secret.length)),
		slog.String("api_key", telemetry.Mask(c.apiKey.length)),
	)
}
